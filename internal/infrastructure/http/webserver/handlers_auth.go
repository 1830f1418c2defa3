package webserver

import (
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	apperrors "github.com/glucomeal/web/pkg/errors"
)

func (s *WebServer) handleHome(w http.ResponseWriter, r *http.Request) {
	if sessionFrom(r).Authenticated() {
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

func (s *WebServer) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	s.renderTemplate(w, "login", map[string]any{
		"Title":  "Sign in",
		"UserID": "",
	})
}

func (s *WebServer) handleLogin(w http.ResponseWriter, r *http.Request) {
	raw := strings.TrimSpace(r.FormValue("user_id"))
	userID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || userID <= 0 {
		s.renderTemplate(w, "login", map[string]any{
			"Title":  "Sign in",
			"Error":  "Please enter a valid numeric user id",
			"UserID": raw,
		})
		return
	}

	backendCookie, err := s.apiClient.Login(r.Context(), userID)
	if err != nil {
		s.logger.Debug("login failed", zap.Int64("user_id", userID), zap.Error(err))
		s.renderTemplate(w, "login", map[string]any{
			"Title":  "Sign in",
			"Error":  userMessage(err),
			"UserID": raw,
		})
		return
	}

	session := sessionFrom(r)
	session.SignIn(userID, backendCookie)
	s.sessionStore.Save(w, session)

	http.Redirect(w, r, "/chat", http.StatusSeeOther)
}

func (s *WebServer) handleLogout(w http.ResponseWriter, r *http.Request) {
	session := sessionFrom(r)
	session.Clear()
	s.sessionStore.Save(w, session)

	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

// userMessage extracts the text shown to the user for any error value
func userMessage(err error) string {
	if appErr, ok := err.(*apperrors.AppError); ok {
		return appErr.UserMessage()
	}
	return "Something went wrong. Please try again."
}
