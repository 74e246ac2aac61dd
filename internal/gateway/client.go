// Package gateway is a thin anti-corruption layer over the external WhatsApp
// messaging gateway. The gateway enforces a minimum spacing between sends at
// the account level; pacing is the dispatcher's responsibility, not the
// client's.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const defaultUserAgent = "medreserva-reminder-service/0.1"

// Config controls how the gateway client behaves.
type Config struct {
	BaseURL    string
	APIKey     string
	SessionID  string
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     *slog.Logger
	UserAgent  string
}

// Client wraps the gateway REST endpoints used by the dispatcher.
type Client struct {
	apiKey     string
	baseURL    string
	sessionID  string
	httpClient *http.Client
	logger     *slog.Logger
	userAgent  string
}

// New creates a configured Client with sane defaults.
func New(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("gateway: API key is required")
	}
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		return nil, errors.New("gateway: base URL is required")
	}
	baseURL = strings.TrimRight(baseURL, "/")
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 15 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	userAgent := strings.TrimSpace(cfg.UserAgent)
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	return &Client{
		apiKey:     cfg.APIKey,
		baseURL:    baseURL,
		sessionID:  cfg.SessionID,
		httpClient: httpClient,
		logger:     logger,
		userAgent:  userAgent,
	}, nil
}

// SendMessage delivers one chat message. A non-2xx gateway response is
// returned as a *SendError carrying the gateway's reason.
func (c *Client) SendMessage(ctx context.Context, req SendMessageRequest) (*MessageResponse, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	body, err := json.Marshal(struct {
		SessionID string `json:"session_id,omitempty"`
		To        string `json:"to"`
		Body      string `json:"body"`
	}{
		SessionID: c.sessionID,
		To:        req.To,
		Body:      req.Body,
	})
	if err != nil {
		return nil, fmt.Errorf("gateway: marshal send body: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/messages", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("gateway: build request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("gateway: send message: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("gateway: read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		reason := decodeErrorReason(data)
		c.logger.Warn("gateway send rejected",
			"status", resp.StatusCode,
			"reason", reason,
		)
		return nil, &SendError{StatusCode: resp.StatusCode, Reason: reason}
	}

	var msg MessageResponse
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("gateway: decode response: %w", err)
	}
	return &msg, nil
}

func decodeErrorReason(data []byte) string {
	var payload struct {
		Reason string `json:"reason"`
		Error  string `json:"error"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return ""
	}
	if payload.Reason != "" {
		return payload.Reason
	}
	return payload.Error
}
