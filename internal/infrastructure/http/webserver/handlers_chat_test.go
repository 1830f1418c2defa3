package webserver

import (
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glucomeal/web/internal/domain/chat"
)

func TestChatPageGreetsOnFreshTranscript(t *testing.T) {
	greets := 0
	mux := http.NewServeMux()
	mux.HandleFunc("/api/session", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, backendCookie, r.Header.Get("Cookie"))
		w.Write([]byte(`{"ok":true,"user_id":7}`))
	})
	mux.HandleFunc("/api/greet", func(w http.ResponseWriter, r *http.Request) {
		greets++
		w.Write([]byte(`{"messages":[{"text":"Hi! What would you like to cook today?"}]}`))
	})
	backend := newBackend(t, mux)
	env := newTestEnv(t, backend.URL)
	sess := env.signIn(7)

	rec := env.do(http.MethodGet, "/chat", nil, sess, false)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "What would you like to cook today?")
	assert.Equal(t, 1, greets)

	sess.WithTranscript(func(tr *chat.Transcript) {
		require.Len(t, tr.Messages, 1)
		assert.Equal(t, chat.RoleAssistant, tr.Messages[0].Role)
	})

	// Revisiting does not greet again while the transcript is live
	rec = env.do(http.MethodGet, "/chat", nil, sess, false)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, greets)
}

func TestChatPageLostBackendSession(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/session", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":"Not logged in"}`))
	})
	backend := newBackend(t, mux)
	env := newTestEnv(t, backend.URL)
	sess := env.signIn(7)

	rec := env.do(http.MethodGet, "/chat", nil, sess, false)

	assert.Contains(t, rec.Body.String(), "Session expired")
	assert.Contains(t, rec.Body.String(), "/login")
	assert.False(t, sess.Authenticated())
}

func TestChatPageBackendOutageIsNotTreatedAsAuthLoss(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/session", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":"database down"}`))
	})
	backend := newBackend(t, mux)
	env := newTestEnv(t, backend.URL)
	sess := env.signIn(7)

	rec := env.do(http.MethodGet, "/chat", nil, sess, false)

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, rec.Body.String(), "database down")
	assert.NotContains(t, rec.Body.String(), "Session expired")
	assert.True(t, sess.Authenticated(), "a backend outage must not sign the user out")
}

func TestChatSend(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/send", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"messages":[{"text":"Here you go: {title: 'Overnight Oats', ingredients: [{name: 'Oats', amount: '1 cup'}], steps: ['Mix', 'Chill']}"}],"finished":false}`))
	})
	backend := newBackend(t, mux)
	env := newTestEnv(t, backend.URL)
	sess := env.signIn(7)

	rec := env.do(http.MethodPost, "/htmx/chat/send", url.Values{"message": {"something with oats"}}, sess, true)

	assert.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "something with oats")
	assert.Contains(t, body, "Overnight Oats")
	assert.Contains(t, body, "Chill")

	sess.WithTranscript(func(tr *chat.Transcript) {
		require.Len(t, tr.Messages, 2)
		assert.Equal(t, chat.RoleUser, tr.Messages[0].Role)
		assert.Equal(t, chat.RoleAssistant, tr.Messages[1].Role)
		require.NotNil(t, tr.Messages[1].Recipe)
		assert.Equal(t, "Overnight Oats", tr.Messages[1].Recipe.Title)
	})
}

func TestChatSendFinishedResetsTranscript(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/send", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"messages":[{"text":"Enjoy your meal!"}],"finished":true}`))
	})
	backend := newBackend(t, mux)
	env := newTestEnv(t, backend.URL)
	sess := env.signIn(7)

	var generationBefore int
	sess.WithTranscript(func(tr *chat.Transcript) { generationBefore = tr.Generation })

	rec := env.do(http.MethodPost, "/htmx/chat/send", url.Values{"message": {"thanks"}}, sess, true)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Enjoy your meal!")
	assert.Contains(t, rec.Body.String(), "/dashboard")

	sess.WithTranscript(func(tr *chat.Transcript) {
		assert.Empty(t, tr.Messages, "finished conversations start over on the next page load")
		assert.Equal(t, generationBefore+1, tr.Generation)
	})
}

func TestChatSendEmptyMessage(t *testing.T) {
	env := newTestEnv(t, "http://backend.invalid")
	sess := env.signIn(7)

	rec := env.do(http.MethodPost, "/htmx/chat/send", url.Values{"message": {"   "}}, sess, true)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Please type a message first")
}

func TestChatSendAuthLoss(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/send", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":"User not authenticated"}`))
	})
	backend := newBackend(t, mux)
	env := newTestEnv(t, backend.URL)
	sess := env.signIn(7)

	rec := env.do(http.MethodPost, "/htmx/chat/send", url.Values{"message": {"hi"}}, sess, true)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "/login")
}

func TestChatSendBackendError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/send", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":"assistant overloaded"}`))
	})
	backend := newBackend(t, mux)
	env := newTestEnv(t, backend.URL)
	sess := env.signIn(7)

	rec := env.do(http.MethodPost, "/htmx/chat/send", url.Values{"message": {"hi"}}, sess, true)

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, rec.Body.String(), "assistant overloaded")
}

func TestChatSendDiscardsStaleReply(t *testing.T) {
	arrived := make(chan struct{})
	release := make(chan struct{})
	mux := http.NewServeMux()
	mux.HandleFunc("/api/send", func(w http.ResponseWriter, r *http.Request) {
		close(arrived)
		<-release
		w.Write([]byte(`{"messages":[{"text":"late reply"}]}`))
	})
	backend := newBackend(t, mux)
	env := newTestEnv(t, backend.URL)
	sess := env.signIn(7)

	done := make(chan int)
	go func() {
		rec := env.do(http.MethodPost, "/htmx/chat/send", url.Values{"message": {"hi"}}, sess, true)
		done <- rec.Code
	}()

	// The conversation is reinitialized while the backend call is in flight
	<-arrived
	sess.WithTranscript(func(tr *chat.Transcript) { tr.Reset() })
	close(release)

	assert.Equal(t, http.StatusNoContent, <-done)

	sess.WithTranscript(func(tr *chat.Transcript) {
		assert.Empty(t, tr.Messages, "a stale reply must not reach the transcript")
	})
}
