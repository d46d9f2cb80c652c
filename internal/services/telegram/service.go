// Package telegram sends operation reports to a Telegram chat.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/fgeck/stl-organizer/internal/models"
	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
)

// Service defines the interface for Telegram notification operations.
type Service interface {
	SendNotification(ctx context.Context, cfg models.TelegramConfig, msg models.TelegramMessage) (*models.TelegramResult, error)
}

// HTTPClient allows mocking HTTP requests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Impl implements the Telegram Service interface.
type Impl struct {
	httpClient HTTPClient
	logger     zerolog.Logger
	baseURL    string
}

// New creates a new Telegram service.
func New(logger zerolog.Logger) *Impl {
	return &Impl{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger:  logger,
		baseURL: "https://api.telegram.org",
	}
}

// NewWithClient creates a new Telegram service with a custom HTTP client (for testing).
func NewWithClient(logger zerolog.Logger, httpClient HTTPClient, baseURL string) *Impl {
	return &Impl{
		httpClient: httpClient,
		logger:     logger,
		baseURL:    baseURL,
	}
}

type sendMessageRequest struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode"`
}

// SendNotification posts an operation report. Delivery failures are stored
// in the result, not returned.
func (s *Impl) SendNotification(ctx context.Context, cfg models.TelegramConfig, msg models.TelegramMessage) (*models.TelegramResult, error) {
	result := &models.TelegramResult{}

	s.logger.Info().
		Str("chat_id", cfg.ChatID).
		Str("status", string(msg.Status)).
		Msg("sending Telegram notification")

	body, err := json.Marshal(sendMessageRequest{
		ChatID:    cfg.ChatID,
		Text:      formatMessage(msg),
		ParseMode: "HTML",
	})
	if err != nil {
		result.Error = errors.Errorf("failed to marshal request: %w", err)
		return result, nil
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", strings.TrimSuffix(s.baseURL, "/"), cfg.BotToken)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		result.Error = errors.Errorf("failed to create request: %w", err)
		return result, nil
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		result.Error = errors.Errorf("failed to send request: %w", err)
		return result, nil
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		result.Error = errors.Errorf("telegram API returned status %d", resp.StatusCode)
		return result, nil
	}

	result.MessageSent = true
	s.logger.Info().Msg("Telegram notification sent successfully")

	return result, nil
}

func formatMessage(msg models.TelegramMessage) string {
	var b strings.Builder

	operation := msg.Operation
	if operation != "" {
		operation = strings.ToUpper(operation[:1]) + operation[1:]
	}

	switch msg.Status {
	case models.StatusSucceeded:
		fmt.Fprintf(&b, "✅ <b>%s Succeeded</b>\n\n", escapeHTML(operation))
	case models.StatusCanceled:
		fmt.Fprintf(&b, "⏹ <b>%s Canceled</b>\n\n", escapeHTML(operation))
	default:
		fmt.Fprintf(&b, "❌ <b>%s Failed</b>\n\n", escapeHTML(operation))
	}

	if msg.Host != "" {
		fmt.Fprintf(&b, "🖥 <b>Host:</b> %s\n", escapeHTML(msg.Host))
	}
	fmt.Fprintf(&b, "📁 <b>Path:</b> <code>%s</code>\n", escapeHTML(msg.Path))
	fmt.Fprintf(&b, "⏰ <b>Started:</b> %s\n", msg.StartTime.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, "⏱ <b>Duration:</b> %s\n", msg.Duration.Round(time.Second))

	switch msg.Status {
	case models.StatusSucceeded:
		b.WriteString("\n<b>📊 Result:</b>\n")
		fmt.Fprintf(&b, "  • %s\n", escapeHTML(msg.Summary))
		if msg.OutputPath != "" {
			fmt.Fprintf(&b, "  • Output: <code>%s</code>\n", escapeHTML(msg.OutputPath))
		}
	case models.StatusCanceled:
		fmt.Fprintf(&b, "\n  • Items processed before cancel: %d\n", msg.Count)
	default:
		b.WriteString("\n<b>⚠️ Error Details:</b>\n")
		if msg.FailedStep != "" {
			fmt.Fprintf(&b, "  • Failed step: %s\n", escapeHTML(msg.FailedStep))
		}
		fmt.Fprintf(&b, "  • Error: <code>%s</code>\n", escapeHTML(msg.Summary))
	}

	return b.String()
}

// escapeHTML escapes the characters Telegram's HTML parse mode reserves.
func escapeHTML(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '<':
			b.WriteString("&lt;")
		case '>':
			b.WriteString("&gt;")
		case '&':
			b.WriteString("&amp;")
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
