// Package webserver provides API client for backend communication
package webserver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/glucomeal/web/internal/domain/forecast"
	"github.com/glucomeal/web/internal/infrastructure/config"
	apperrors "github.com/glucomeal/web/pkg/errors"
)

// APIClient handles communication with the wellness backend. The backend
// authenticates with a session cookie; the cookie captured at login is
// replayed on every subsequent call, per session.
type APIClient struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewAPIClient creates a new API client instance
func NewAPIClient(cfg *config.Config, logger *zap.Logger) *APIClient {
	return &APIClient{
		baseURL: strings.TrimRight(cfg.Backend.BaseURL, "/"),
		httpClient: &http.Client{
			Timeout: cfg.Backend.Timeout,
		},
		logger: logger,
	}
}

// ProfileRecord is the canonical profile shape the backend stores
type ProfileRecord struct {
	Age               *int     `json:"age"`
	HeightCm          *float64 `json:"height_cm"`
	WeightKg          *float64 `json:"weight_kg"`
	Gender            *string  `json:"gender"`
	UnderlyingDisease *string  `json:"underlying_disease"`
}

// MessageFragment is one assistant utterance within a chat response
type MessageFragment struct {
	Text string `json:"text"`
}

// ChatResponse is the backend's reply to a greet or send call. Finished
// signals the conversation turn is complete and the chat session should be
// reinitialized.
type ChatResponse struct {
	Messages []MessageFragment `json:"messages"`
	Result   json.RawMessage   `json:"result,omitempty"`
	Finished bool              `json:"finished,omitempty"`
}

// ForecastPayload carries the parallel prediction arrays plus an echo of the
// inputs the model resolved.
type ForecastPayload struct {
	Minutes         []float64      `json:"minutes"`
	AbsoluteGlucose []float64      `json:"absolute_glucose"`
	DeltaGlucose    []float64      `json:"delta_glucose"`
	InputsUsed      map[string]any `json:"inputs_used"`
}

// Login authenticates a user id with the backend and returns the backend
// session cookie to replay on later calls.
func (c *APIClient) Login(ctx context.Context, userID int64) (string, error) {
	body := map[string]int64{"user_id": userID}

	var resp struct {
		OK    bool   `json:"ok"`
		Error string `json:"error,omitempty"`
	}
	cookies, err := c.doJSON(ctx, http.MethodPost, "/api/login", "", body, &resp)
	if err != nil {
		return "", err
	}
	if !resp.OK {
		return "", apperrors.NewBackendError(resp.Error)
	}

	return cookieHeader(cookies), nil
}

// GetSession checks whether the backend still recognizes the session.
// A response without a numeric user id counts as not authenticated; callers
// use that to gate the redirect to login. user_id is decoded leniently so
// an absent, null, or non-numeric value all land in that class rather than
// failing the whole-body decode.
func (c *APIClient) GetSession(ctx context.Context, cookie string) (int64, error) {
	var resp struct {
		OK     bool            `json:"ok"`
		UserID json.RawMessage `json:"user_id"`
	}
	if _, err := c.doJSON(ctx, http.MethodGet, "/api/session", cookie, nil, &resp); err != nil {
		return 0, err
	}

	var userID int64
	if len(resp.UserID) == 0 || string(resp.UserID) == "null" ||
		json.Unmarshal(resp.UserID, &userID) != nil || userID == 0 {
		return 0, apperrors.NewUnauthorizedError("not authenticated")
	}
	return userID, nil
}

// FetchProfile reads the stored profile
func (c *APIClient) FetchProfile(ctx context.Context, cookie string) (*ProfileRecord, error) {
	var resp struct {
		OK      bool           `json:"ok"`
		Profile *ProfileRecord `json:"profile"`
		Error   string         `json:"error,omitempty"`
	}
	if _, err := c.doJSON(ctx, http.MethodGet, "/api/profile", cookie, nil, &resp); err != nil {
		return nil, err
	}
	if resp.Profile == nil {
		return nil, apperrors.NewBackendError(resp.Error)
	}
	return resp.Profile, nil
}

// UpdateProfile writes the profile and returns the record as stored
func (c *APIClient) UpdateProfile(ctx context.Context, cookie string, record ProfileRecord) (*ProfileRecord, error) {
	var resp struct {
		OK      bool           `json:"ok"`
		Profile *ProfileRecord `json:"profile"`
		Error   string         `json:"error,omitempty"`
	}
	if _, err := c.doJSON(ctx, http.MethodPost, "/api/profile", cookie, record, &resp); err != nil {
		return nil, err
	}
	if resp.Profile == nil {
		return nil, apperrors.NewBackendError(resp.Error)
	}
	return resp.Profile, nil
}

// Greet opens a conversation and returns the assistant's opening messages
func (c *APIClient) Greet(ctx context.Context, cookie string) (*ChatResponse, error) {
	var resp ChatResponse
	if _, err := c.doJSON(ctx, http.MethodPost, "/api/greet", cookie, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SendMessage forwards one user message and returns the assistant fragments
func (c *APIClient) SendMessage(ctx context.Context, cookie, text string) (*ChatResponse, error) {
	body := map[string]string{"message": text}

	var resp ChatResponse
	if _, err := c.doJSON(ctx, http.MethodPost, "/api/send", cookie, body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// FetchForecast requests a glucose prediction. Optional request fields are
// pointer-typed with omitempty so absent values never reach the wire.
func (c *APIClient) FetchForecast(ctx context.Context, cookie string, req forecast.Request) (*ForecastPayload, error) {
	var resp struct {
		OK       bool             `json:"ok"`
		Forecast *ForecastPayload `json:"forecast"`
		Error    string           `json:"error,omitempty"`
	}
	if _, err := c.doJSON(ctx, http.MethodPost, "/api/predict", cookie, req, &resp); err != nil {
		return nil, err
	}
	if resp.Forecast == nil {
		return nil, apperrors.NewBackendError(resp.Error)
	}
	return resp.Forecast, nil
}

// VerifyConnection checks if the backend is reachable, for readiness checks
func (c *APIClient) VerifyConnection(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/session", nil)
	if err != nil {
		return false
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Debug("backend connection check failed", zap.Error(err))
		return false
	}
	defer resp.Body.Close()

	return resp.StatusCode < 500
}

// doJSON issues one request and normalizes every failure shape into an
// AppError. Response cookies are returned so login can capture the backend
// session cookie.
func (c *APIClient) doJSON(ctx context.Context, method, path, cookie string, body, response any) ([]*http.Cookie, error) {
	var reader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, apperrors.NewBackendError(fmt.Sprintf("failed to marshal request: %v", err))
		}
		reader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, apperrors.NewBackendError(fmt.Sprintf("failed to create request: %v", err))
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if cookie != "" {
		req.Header.Set("Cookie", cookie)
	}

	c.logger.Debug("backend request",
		zap.String("method", method),
		zap.String("path", path),
	)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperrors.NewTransportError(err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperrors.NewTransportError(err)
	}

	if resp.StatusCode >= 400 {
		message := backendMessage(raw)
		c.logger.Debug("backend error response",
			zap.Int("status", resp.StatusCode),
			zap.String("message", message),
		)
		if resp.StatusCode == http.StatusUnauthorized {
			return nil, apperrors.NewUnauthorizedError(message)
		}
		return nil, apperrors.NewBackendError(message)
	}

	if response != nil {
		if err := json.Unmarshal(raw, response); err != nil {
			return nil, apperrors.NewBackendError("unexpected response from server")
		}
	}

	return resp.Cookies(), nil
}

// backendMessage digs a human-readable message out of the varying error
// shapes the backend produces.
func backendMessage(raw []byte) string {
	var shape struct {
		Error   string `json:"error"`
		Message string `json:"message"`
		Detail  string `json:"detail"`
	}
	if err := json.Unmarshal(raw, &shape); err == nil {
		for _, m := range []string{shape.Error, shape.Message, shape.Detail} {
			if m != "" {
				return m
			}
		}
	}
	return "request failed"
}

func cookieHeader(cookies []*http.Cookie) string {
	pairs := make([]string, 0, len(cookies))
	for _, c := range cookies {
		pairs = append(pairs, c.Name+"="+c.Value)
	}
	return strings.Join(pairs, "; ")
}
