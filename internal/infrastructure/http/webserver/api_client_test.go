package webserver

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/glucomeal/web/internal/domain/forecast"
	apperrors "github.com/glucomeal/web/pkg/errors"
)

func newTestClient(t *testing.T, handler http.Handler) *APIClient {
	t.Helper()
	backend := httptest.NewServer(handler)
	t.Cleanup(backend.Close)
	return NewAPIClient(testConfig(backend.URL), zap.NewNop())
}

func TestLoginCapturesBackendCookie(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/login", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]int64
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, int64(42), body["user_id"])

		http.SetCookie(w, &http.Cookie{Name: "session", Value: "backend-xyz"})
		w.Write([]byte(`{"ok":true}`))
	})
	client := newTestClient(t, mux)

	cookie, err := client.Login(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, "session=backend-xyz", cookie)
}

func TestLoginBackendRejection(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/login", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"ok":false,"error":"unknown user"}`))
	})
	client := newTestClient(t, mux)

	_, err := client.Login(context.Background(), 999)
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeBackend, apperrors.GetCode(err))
	assert.Contains(t, err.Error(), "unknown user")
}

func TestGetSessionReplaysCookie(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/session", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "session=backend-xyz", r.Header.Get("Cookie"))
		w.Write([]byte(`{"ok":true,"user_id":42}`))
	})
	client := newTestClient(t, mux)

	userID, err := client.GetSession(context.Background(), "session=backend-xyz")
	require.NoError(t, err)
	assert.Equal(t, int64(42), userID)
}

func TestGetSessionWithoutNumericUserID(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"null user id", `{"ok":true,"user_id":null}`},
		{"absent user id", `{"ok":true}`},
		{"string user id", `{"ok":true,"user_id":"guest"}`},
		{"zero user id", `{"ok":true,"user_id":0}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mux := http.NewServeMux()
			mux.HandleFunc("/api/session", func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(tt.body))
			})
			client := newTestClient(t, mux)

			_, err := client.GetSession(context.Background(), "")
			require.Error(t, err)
			assert.Equal(t, apperrors.CodeUnauthorized, apperrors.GetCode(err))
			assert.True(t, apperrors.IsAuthFailure(err))
		})
	}
}

func TestErrorNormalization(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        string
		wantCode    apperrors.ErrorCode
		wantMessage string
	}{
		{
			name:        "401 becomes unauthorized with backend phrasing",
			status:      http.StatusUnauthorized,
			body:        `{"error":"Not logged in"}`,
			wantCode:    apperrors.CodeUnauthorized,
			wantMessage: "Not logged in",
		},
		{
			name:        "500 surfaces the detail field",
			status:      http.StatusInternalServerError,
			body:        `{"detail":"model unavailable"}`,
			wantCode:    apperrors.CodeBackend,
			wantMessage: "model unavailable",
		},
		{
			name:        "unparseable error body degrades to a generic message",
			status:      http.StatusBadRequest,
			body:        "oops",
			wantCode:    apperrors.CodeBackend,
			wantMessage: "request failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mux := http.NewServeMux()
			mux.HandleFunc("/api/profile", func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			})
			client := newTestClient(t, mux)

			_, err := client.FetchProfile(context.Background(), "")
			require.Error(t, err)

			appErr, ok := err.(*apperrors.AppError)
			require.True(t, ok)
			assert.Equal(t, tt.wantCode, appErr.Code)
			assert.Equal(t, tt.wantMessage, appErr.Message)
		})
	}
}

func TestTransportFailure(t *testing.T) {
	backend := httptest.NewServer(http.NotFoundHandler())
	backend.Close()
	client := NewAPIClient(testConfig(backend.URL), zap.NewNop())

	_, err := client.GetSession(context.Background(), "")
	require.Error(t, err)

	appErr, ok := err.(*apperrors.AppError)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeTransport, appErr.Code)
	assert.Equal(t, "Failed to connect to the server. Please try again.", appErr.UserMessage())
}

func TestUndecodableSuccessBody(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/profile", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>gateway timeout page</html>"))
	})
	client := newTestClient(t, mux)

	_, err := client.FetchProfile(context.Background(), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected response from server")
}

func TestUpdateProfileReturnsStoredRecord(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/profile", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)

		var record ProfileRecord
		require.NoError(t, json.NewDecoder(r.Body).Decode(&record))

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"ok": true, "profile": record})
	})
	client := newTestClient(t, mux)

	age := 34
	height := 170.0
	weight := 70.0
	condition := "type2"
	saved, err := client.UpdateProfile(context.Background(), "", ProfileRecord{
		Age:               &age,
		HeightCm:          &height,
		WeightKg:          &weight,
		UnderlyingDisease: &condition,
	})
	require.NoError(t, err)
	require.NotNil(t, saved.Age)
	assert.Equal(t, 34, *saved.Age)
	assert.Nil(t, saved.Gender)
}

func TestFetchForecastOmitsAbsentOptionalFields(t *testing.T) {
	var sent map[string]any
	mux := http.NewServeMux()
	mux.HandleFunc("/api/predict", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&sent))
		w.Write([]byte(`{"ok":true,"forecast":{"minutes":[15,30],"absolute_glucose":[120,130],"delta_glucose":[20,30]}}`))
	})
	client := newTestClient(t, mux)

	payload, err := client.FetchForecast(context.Background(), "", forecast.Request{
		HeightCm: 170,
		WeightKg: 70,
	})
	require.NoError(t, err)
	assert.Equal(t, []float64{15, 30}, payload.Minutes)

	assert.Contains(t, sent, "height_cm")
	assert.Contains(t, sent, "weight_kg")
	assert.NotContains(t, sent, "age")
	assert.NotContains(t, sent, "gender")
	assert.NotContains(t, sent, "baseline_avg_glucose")
	assert.NotContains(t, sent, "meal_bucket")
}

func TestFetchForecastSendsOptionalFieldsWhenSet(t *testing.T) {
	var sent map[string]any
	mux := http.NewServeMux()
	mux.HandleFunc("/api/predict", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&sent))
		w.Write([]byte(`{"ok":true,"forecast":{"minutes":[],"absolute_glucose":[],"delta_glucose":[]}}`))
	})
	client := newTestClient(t, mux)

	age := 34
	gender := "female"
	baseline := 100.0
	bucket := "lunch"
	_, err := client.FetchForecast(context.Background(), "", forecast.Request{
		HeightCm:           170,
		WeightKg:           70,
		Age:                &age,
		Gender:             &gender,
		BaselineAvgGlucose: &baseline,
		MealBucket:         &bucket,
	})
	require.NoError(t, err)

	assert.Equal(t, float64(34), sent["age"])
	assert.Equal(t, "female", sent["gender"])
	assert.Equal(t, 100.0, sent["baseline_avg_glucose"])
	assert.Equal(t, "lunch", sent["meal_bucket"])
}

func TestVerifyConnection(t *testing.T) {
	t.Run("reachable", func(t *testing.T) {
		mux := http.NewServeMux()
		mux.HandleFunc("/api/session", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"ok":true,"user_id":null}`))
		})
		client := newTestClient(t, mux)
		assert.True(t, client.VerifyConnection(context.Background()))
	})

	t.Run("unreachable", func(t *testing.T) {
		backend := httptest.NewServer(http.NotFoundHandler())
		backend.Close()
		client := NewAPIClient(testConfig(backend.URL), zap.NewNop())
		assert.False(t, client.VerifyConnection(context.Background()))
	})
}
