package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"
)

// DefaultTelegramBaseURL is the Telegram Bot API host.
const DefaultTelegramBaseURL = "https://api.telegram.org"

// Notifier delivers a text message somewhere.
type Notifier interface {
	SendWithRetry(ctx context.Context, text string, maxRetries int) error
}

// TelegramNotifier posts HTML messages to one chat through the Bot API.
type TelegramNotifier struct {
	BotToken string
	ChatID   string
	BaseURL  string
	Client   *http.Client
	Backoff  time.Duration // first retry delay, doubled per attempt
	logger   zerolog.Logger
}

// NewTelegramNotifier returns a notifier for DefaultTelegramBaseURL, routed
// through proxyURL when it parses.
func NewTelegramNotifier(botToken, chatID, proxyURL string, logger zerolog.Logger) *TelegramNotifier {
	tr := http.DefaultTransport.(*http.Transport).Clone()
	if p, err := url.Parse(proxyURL); proxyURL != "" && err == nil {
		tr.Proxy = http.ProxyURL(p)
	}
	return &TelegramNotifier{
		BotToken: botToken,
		ChatID:   chatID,
		BaseURL:  DefaultTelegramBaseURL,
		Client:   &http.Client{Timeout: 30 * time.Second, Transport: tr},
		Backoff:  time.Second,
		logger:   logger.With().Str("component", "telegram").Logger(),
	}
}

func (t *TelegramNotifier) endpoint(method string) string {
	return t.BaseURL + "/bot" + t.BotToken + "/" + method
}

type sendMessage struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode"`
}

// apiError is the body the Bot API returns with a non-200 status.
type apiError struct {
	ErrorCode   int    `json:"error_code"`
	Description string `json:"description"`
}

// Send posts text once.
func (t *TelegramNotifier) Send(ctx context.Context, text string) error {
	body, err := json.Marshal(sendMessage{ChatID: t.ChatID, Text: text, ParseMode: "HTML"})
	if err != nil {
		return fmt.Errorf("encode message: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint("sendMessage"), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build sendMessage request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.Client.Do(req)
	if err != nil {
		return fmt.Errorf("sendMessage: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusOK {
		return nil
	}

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var apiErr apiError
	if json.Unmarshal(raw, &apiErr) == nil && apiErr.Description != "" {
		return fmt.Errorf("sendMessage: status %d: %s", resp.StatusCode, apiErr.Description)
	}
	return fmt.Errorf("sendMessage: status %d: %s", resp.StatusCode, raw)
}

// SendWithRetry makes up to maxRetries+1 attempts, waiting Backoff, 2*Backoff, ...
// between them.
func (t *TelegramNotifier) SendWithRetry(ctx context.Context, text string, maxRetries int) error {
	var lastErr error
	for attempt := range maxRetries + 1 {
		if lastErr = t.Send(ctx, text); lastErr == nil {
			return nil
		}
		if attempt == maxRetries {
			break
		}
		wait := t.Backoff << attempt
		t.logger.Warn().Err(lastErr).
			Int("attempt", attempt+1).
			Int("max_attempts", maxRetries+1).
			Dur("retry_in", wait).
			Msg("telegram send failed")

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return fmt.Errorf("all %d retries exhausted: %w", maxRetries+1, lastErr)
}
