package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// EmailSender delivers events through a transactional email HTTP API that
// accepts {from, to, subject, text} as JSON with a bearer key.
type EmailSender struct {
	url    string
	apiKey string
	from   string
	client *http.Client
	logger *zap.Logger
}

// NewEmailSender creates a sender whose HTTP client gives up after timeout.
func NewEmailSender(url, apiKey, from string, timeout time.Duration, logger *zap.Logger) *EmailSender {
	return &EmailSender{
		url:    url,
		apiKey: apiKey,
		from:   from,
		client: &http.Client{Timeout: timeout},
		logger: logger,
	}
}

type emailRequest struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Subject string `json:"subject"`
	Text    string `json:"text"`
}

// Dispatch sends event. Events without a recipient are skipped.
func (s *EmailSender) Dispatch(ctx context.Context, event Event) error {
	if event.To == "" {
		s.logger.Debug("Skipping email without recipient", zap.String("type", string(event.Type)))
		return nil
	}

	payload, err := json.Marshal(emailRequest{
		From:    s.from,
		To:      event.To,
		Subject: event.Subject,
		Text:    event.Body,
	})
	if err != nil {
		return fmt.Errorf("failed to encode email: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewBuffer(payload))
	if err != nil {
		return fmt.Errorf("failed to build email request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("email provider unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("email provider returned %d: %s", resp.StatusCode, bytes.TrimSpace(body))
	}

	s.logger.Info("Email sent",
		zap.String("type", string(event.Type)),
		zap.String("subject", event.Subject),
	)
	return nil
}

// LogSender writes events to the log instead of delivering them. It is used
// when no provider is configured.
type LogSender struct {
	logger *zap.Logger
}

func NewLogSender(logger *zap.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) Dispatch(_ context.Context, event Event) error {
	fields := []zap.Field{
		zap.String("type", string(event.Type)),
		zap.String("subject", event.Subject),
		zap.Bool("has_recipient", event.To != ""),
	}
	// Sign-in codes stay out of logs.
	if event.Type != EventTwoFactorCode {
		fields = append(fields, zap.String("body", event.Body))
	}
	s.logger.Info("Notification (no provider configured)", fields...)
	return nil
}
