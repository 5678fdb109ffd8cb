package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/streamwatch/report-service/internal/config"
)

// Messenger is the outbound gateway to the chat platform. Command and view
// registration with the platform lives outside this service; all we need is
// posting messages and updating the bot presence.
type Messenger interface {
	// PostChannel publishes a message to a public channel.
	PostChannel(ctx context.Context, channelID, text string) error
	// SendDirect sends a direct message to the given user reference.
	SendDirect(ctx context.Context, recipientRef, text string) error
	// SetPresence updates the bot's visible presence string.
	SetPresence(ctx context.Context, text string) error
}

// webhookMessenger talks to a messaging gateway over HTTP.
type webhookMessenger struct {
	baseURL string
	token   string
	client  *http.Client
}

// NewWebhookMessenger builds the HTTP gateway client. Falls back to a noop
// messenger when no base URL is configured so the rest of the service keeps
// working in local setups.
func NewWebhookMessenger(cfg config.MessengerConfig, logger *zap.Logger) Messenger {
	if cfg.BaseURL == "" {
		logger.Warn("MESSENGER_BASE_URL not provided; outbound messages disabled")
		return &noopMessenger{logger: logger}
	}
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &webhookMessenger{
		baseURL: cfg.BaseURL,
		token:   cfg.BotToken,
		client:  &http.Client{Timeout: timeout},
	}
}

func (m *webhookMessenger) PostChannel(ctx context.Context, channelID, text string) error {
	return m.post(ctx, fmt.Sprintf("%s/channels/%s/messages", m.baseURL, channelID), map[string]string{
		"content": text,
	})
}

func (m *webhookMessenger) SendDirect(ctx context.Context, recipientRef, text string) error {
	return m.post(ctx, fmt.Sprintf("%s/users/%s/messages", m.baseURL, recipientRef), map[string]string{
		"content": text,
	})
}

func (m *webhookMessenger) SetPresence(ctx context.Context, text string) error {
	return m.post(ctx, m.baseURL+"/presence", map[string]string{
		"activity": "watching",
		"name":     text,
	})
}

func (m *webhookMessenger) post(ctx context.Context, url string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if m.token != "" {
		req.Header.Set("Authorization", "Bot "+m.token)
	}

	resp, err := m.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("messenger gateway returned %d", resp.StatusCode)
	}
	return nil
}

// noopMessenger swallows all outbound traffic.
type noopMessenger struct {
	logger *zap.Logger
}

func (m *noopMessenger) PostChannel(ctx context.Context, channelID, text string) error {
	m.logger.Debug("messenger disabled; dropping channel post", zap.String("channel_id", channelID))
	return nil
}

func (m *noopMessenger) SendDirect(ctx context.Context, recipientRef, text string) error {
	m.logger.Debug("messenger disabled; dropping direct message", zap.String("recipient", recipientRef))
	return nil
}

func (m *noopMessenger) SetPresence(ctx context.Context, text string) error {
	m.logger.Debug("messenger disabled; dropping presence update", zap.String("text", text))
	return nil
}
