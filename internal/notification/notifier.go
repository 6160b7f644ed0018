package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/recorrente/recorrente/internal/config"
	ierr "github.com/recorrente/recorrente/internal/errors"
	"github.com/recorrente/recorrente/internal/logger"
)

// Message is an email dispatch request handed to the out-of-process
// mailing collaborator
type Message struct {
	To       string `json:"to"`
	Subject  string `json:"subject"`
	HTMLBody string `json:"html_body"`
	// Attachment is the charge PDF when available (optional)
	Attachment *Attachment `json:"attachment,omitempty"`
}

// Attachment is a binary file attached to a message
type Attachment struct {
	Filename string `json:"filename"`
	// Content is base64-encoded by the json marshaller
	Content []byte `json:"content"`
}

// Notifier dispatches messages to the mailing collaborator. Dispatch is
// fire-and-forget from the billing engine's perspective: at-least-once,
// never transactional with charge creation.
type Notifier interface {
	Send(ctx context.Context, msg *Message) error
}

type webhookNotifier struct {
	cfg    *config.Configuration
	client *retryablehttp.Client
	logger *logger.Logger
}

// NewNotifier creates the webhook-backed notifier, or a noop one when
// dispatch is disabled in configuration
func NewNotifier(cfg *config.Configuration, log *logger.Logger) Notifier {
	if !cfg.Notification.Enabled || cfg.Notification.Endpoint == "" {
		return &noopNotifier{logger: log}
	}

	client := retryablehttp.NewClient()
	client.RetryMax = 3
	client.HTTPClient.Timeout = cfg.Notification.Timeout
	client.Logger = nil

	return &webhookNotifier{
		cfg:    cfg,
		client: client,
		logger: log,
	}
}

func (n *webhookNotifier) Send(ctx context.Context, msg *Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Notification payload could not be encoded").
			Mark(ierr.ErrSystem)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, n.cfg.Notification.Endpoint, bytes.NewReader(body))
	if err != nil {
		return ierr.WithError(err).
			Mark(ierr.ErrSystem)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Notification dispatch failed").
			Mark(ierr.ErrHTTPClient)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return ierr.NewError("notification endpoint rejected the message").
			WithReportableDetails(map[string]any{
				"status_code": resp.StatusCode,
			}).
			Mark(ierr.ErrHTTPClient)
	}

	return nil
}

type noopNotifier struct {
	logger *logger.Logger
}

func (n *noopNotifier) Send(ctx context.Context, msg *Message) error {
	n.logger.Debugw("notification dispatch disabled, dropping message",
		"to", msg.To,
		"subject", msg.Subject)
	return nil
}
