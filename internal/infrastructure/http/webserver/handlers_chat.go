package webserver

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/glucomeal/web/internal/domain/chat"
	"github.com/glucomeal/web/internal/domain/recipe"
	apperrors "github.com/glucomeal/web/pkg/errors"
)

// handleChatPage opens (or resumes) a conversation. The backend session is
// verified first; a lost session renders an error page that navigates to
// login after a short fixed delay.
func (s *WebServer) handleChatPage(w http.ResponseWriter, r *http.Request) {
	session := sessionFrom(r)

	if _, err := s.apiClient.GetSession(r.Context(), session.BackendCookie()); err != nil {
		if apperrors.IsAuthFailure(err) {
			session.Clear()
			s.sessionStore.Save(w, session)
			s.renderTemplate(w, "session-expired", map[string]any{
				"Title": "Session expired",
			})
			return
		}
		s.renderError(w, http.StatusBadGateway, userMessage(err))
		return
	}

	var messages []chat.Message
	session.WithTranscript(func(t *chat.Transcript) {
		messages = append(messages, t.Messages...)
	})

	// A fresh transcript means a new conversation: greet first
	if len(messages) == 0 {
		resp, err := s.apiClient.Greet(r.Context(), session.BackendCookie())
		if err != nil {
			s.renderError(w, http.StatusBadGateway, userMessage(err))
			return
		}

		greeting := assistantMessages(resp.Messages)
		session.WithTranscript(func(t *chat.Transcript) {
			for _, m := range greeting {
				t.Append(m)
			}
			messages = append(messages, t.Messages...)
		})
	}

	s.renderTemplate(w, "chat", map[string]any{
		"Title":    "Recipe chat",
		"Messages": messages,
	})
}

// handleChatSend is the HTMX endpoint for one conversation turn. The
// response partial carries the user's message plus the assistant's reply;
// when the backend reports the turn finished, the transcript is
// reinitialized so the next page load greets afresh.
func (s *WebServer) handleChatSend(w http.ResponseWriter, r *http.Request) {
	session := sessionFrom(r)

	text := strings.TrimSpace(r.FormValue("message"))
	if text == "" {
		s.renderChatError(w, http.StatusBadRequest, "Please type a message first")
		return
	}

	userMsg := chat.NewMessage(chat.RoleUser, text)
	var generation int
	session.WithTranscript(func(t *chat.Transcript) {
		t.Append(userMsg)
		generation = t.Generation
	})

	resp, err := s.apiClient.SendMessage(r.Context(), session.BackendCookie(), text)
	if err != nil {
		if apperrors.IsAuthFailure(err) {
			s.renderAuthExpired(w)
			return
		}
		s.logger.Warn("chat send failed", zap.Error(err))
		s.renderChatError(w, http.StatusBadGateway, userMessage(err))
		return
	}

	replies := assistantMessages(resp.Messages)

	// Discard replies that arrive after the transcript moved on
	var stale bool
	session.WithTranscript(func(t *chat.Transcript) {
		if t.Generation != generation {
			stale = true
			return
		}
		for _, m := range replies {
			t.Append(m)
		}
		if resp.Finished {
			t.Reset()
		}
	})
	if stale {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	s.renderTemplate(w, "partials/messages", map[string]any{
		"Messages": append([]chat.Message{userMsg}, replies...),
		"Finished": resp.Finished,
	})
}

// assistantMessages converts backend fragments into transcript messages,
// attaching a structured recipe wherever one can be recovered from the text.
// Text without a parseable recipe degrades to being shown raw.
func assistantMessages(fragments []MessageFragment) []chat.Message {
	var out []chat.Message
	for _, f := range fragments {
		if strings.TrimSpace(f.Text) == "" {
			continue
		}
		m := chat.NewMessage(chat.RoleAssistant, f.Text)
		m.Recipe = recipe.Extract(f.Text)
		out = append(out, m)
	}
	return out
}

func (s *WebServer) renderChatError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	s.renderTemplate(w, "partials/chat-error", map[string]any{
		"Message": message,
	})
}
