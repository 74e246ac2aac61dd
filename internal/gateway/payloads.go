package gateway

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// SendMessageRequest describes an outbound chat message.
type SendMessageRequest struct {
	To   string
	Body string
}

func (r SendMessageRequest) validate() error {
	if strings.TrimSpace(r.To) == "" {
		return errors.New("gateway: recipient required")
	}
	if strings.TrimSpace(r.Body) == "" {
		return errors.New("gateway: body required")
	}
	return nil
}

// MessageResponse mirrors the gateway's message resource.
type MessageResponse struct {
	ID        string    `json:"id"`
	Status    string    `json:"status"`
	To        string    `json:"to"`
	CreatedAt time.Time `json:"created_at"`
}

// SendError is a delivery rejection reported by the gateway.
type SendError struct {
	StatusCode int
	Reason     string
}

func (e *SendError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("gateway: send failed with status %d", e.StatusCode)
	}
	return fmt.Sprintf("gateway: send failed with status %d: %s", e.StatusCode, e.Reason)
}
