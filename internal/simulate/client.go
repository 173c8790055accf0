package simulate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/varvaraparamon/final-eval-bot/internal/adapters/delivery"
)

// Update is the webhook request body.
type Update struct {
	UpdateID      string `json:"update_id"`
	ParticipantID int64  `json:"participant_id"`
	MessageID     int64  `json:"message_id,omitempty"`
	Text          string `json:"text,omitempty"`
	Choice        string `json:"choice,omitempty"`
}

// Reply is the webhook response body.
type Reply struct {
	Status    string             `json:"status"`
	Duplicate bool               `json:"duplicate"`
	State     string             `json:"state"`
	Rejected  bool               `json:"rejected"`
	Messages  []delivery.Message `json:"messages"`
	Code      string             `json:"code"`
	Message   string             `json:"message"`
}

// Client posts updates to the bot webhook.
type Client struct {
	http    *http.Client
	baseURL string
	token   string
}

// NewClient creates a client for cfg.BaseURL.
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		http:    &http.Client{Timeout: timeout},
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		token:   cfg.Token,
	}
}

// Post delivers one update. Any status other than 200 is an error.
func (c *Client) Post(ctx context.Context, u Update) (Reply, error) {
	body, err := json.Marshal(u)
	if err != nil {
		return Reply{}, fmt.Errorf("marshal update: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/updates", bytes.NewReader(body))
	if err != nil {
		return Reply{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Bot-Token", c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		return Reply{}, fmt.Errorf("post update: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return Reply{}, fmt.Errorf("read reply: %w", err)
	}
	var r Reply
	if err := json.Unmarshal(data, &r); err != nil {
		return Reply{}, fmt.Errorf("%w: status %d: %w", ErrUnexpected, resp.StatusCode, err)
	}
	if resp.StatusCode != http.StatusOK {
		return r, fmt.Errorf("%w: status %d: %s: %s", ErrUnexpected, resp.StatusCode, r.Code, r.Message)
	}
	return r, nil
}

// Health checks that the service answers on /healthz.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/healthz", http.NoBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnhealthy, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d", ErrUnhealthy, resp.StatusCode)
	}
	return nil
}
