// Package notifier delivers maintenance messages to a Slack channel, or to
// the system log when Slack is not configured or cannot be reached.
package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/fenilsonani/uploads-maintenance/internal/config"
)

// Delivery records where a message ended up
type Delivery int

const (
	DeliveredNone Delivery = iota
	DeliveredChat
	DeliveredLog
)

func (d Delivery) String() string {
	switch d {
	case DeliveredChat:
		return "chat"
	case DeliveredLog:
		return "log"
	default:
		return "none"
	}
}

// MarshalText lets reports render the delivery by name
func (d Delivery) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Message is a single notification. Text is always sent; Markdown, when
// set, is rendered by Slack as a section block and Text becomes the
// fallback.
type Message struct {
	Folder   string
	Text     string
	Markdown string
}

// Notifier sends messages. It holds no state between calls.
type Notifier struct {
	cfg    config.NotificationConfig
	client *http.Client
	logger *slog.Logger
}

// Option configures a Notifier
type Option func(*Notifier)

// WithHTTPClient replaces the HTTP client used for Slack calls
func WithHTTPClient(client *http.Client) Option {
	return func(n *Notifier) {
		n.client = client
	}
}

// New creates a notifier for cfg
func New(cfg config.NotificationConfig, logger *slog.Logger, opts ...Option) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = config.DefaultNotifyTimeout
	}
	if cfg.APIURL == "" {
		cfg.APIURL = config.DefaultSlackAPIURL
	}

	n := &Notifier{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
		logger: logger,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Notify delivers msg. A Slack failure of any kind is logged and the
// message is written to the system log instead; Notify never fails.
func (n *Notifier) Notify(ctx context.Context, msg Message) Delivery {
	if !n.cfg.SlackEnabled() {
		n.toLog(msg)
		return DeliveredLog
	}

	if err := n.postMessage(ctx, msg); err != nil {
		n.logger.Error("slack notification failed", "folder", msg.Folder, "error", err)
		n.toLog(msg)
		return DeliveredLog
	}

	n.logger.Debug("slack notification sent", "folder", msg.Folder, "channel", n.cfg.SlackChannelID)
	return DeliveredChat
}

func (n *Notifier) toLog(msg Message) {
	n.logger.Warn(msg.Text, "folder", msg.Folder)
}

type textObject struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type block struct {
	Type string     `json:"type"`
	Text textObject `json:"text"`
}

type postMessageRequest struct {
	Channel string  `json:"channel"`
	Text    string  `json:"text"`
	Blocks  []block `json:"blocks,omitempty"`
}

type postMessageResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// postMessage calls chat.postMessage
func (n *Notifier) postMessage(ctx context.Context, msg Message) error {
	payload := postMessageRequest{
		Channel: n.cfg.SlackChannelID,
		Text:    msg.Text,
	}
	if msg.Markdown != "" {
		payload.Blocks = []block{{
			Type: "section",
			Text: textObject{Type: "mrkdwn", Text: msg.Markdown},
		}}
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	url := strings.TrimRight(n.cfg.APIURL, "/") + "/chat.postMessage"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonData))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	req.Header.Set("Authorization", "Bearer "+n.cfg.SlackToken)

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("slack returned status %d", resp.StatusCode)
	}

	var result postMessageResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if !result.OK {
		return fmt.Errorf("slack rejected message: %s", result.Error)
	}

	return nil
}
