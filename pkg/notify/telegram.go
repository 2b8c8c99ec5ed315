package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// TelegramConfig holds bot credentials and client tuning.
type TelegramConfig struct {
	BotToken string
	ChatID   string
	Timeout  time.Duration
	BaseURL  string
}

// TelegramSender posts Markdown messages to a fixed Telegram chat.
type TelegramSender struct {
	cfg    TelegramConfig
	client *http.Client
}

// NewTelegramSender constructs a sender. BaseURL is overridable for tests.
func NewTelegramSender(cfg TelegramConfig) *TelegramSender {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.telegram.org"
	}
	return &TelegramSender{cfg: cfg, client: &http.Client{Timeout: cfg.Timeout}}
}

type sendMessageRequest struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode"`
}

type sendMessageResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

// Send delivers the message text with Markdown parse mode.
func (s *TelegramSender) Send(ctx context.Context, text string) error {
	if s.cfg.BotToken == "" || s.cfg.ChatID == "" {
		return fmt.Errorf("telegram sender not configured")
	}

	payload, err := json.Marshal(sendMessageRequest{ChatID: s.cfg.ChatID, Text: text, ParseMode: "Markdown"})
	if err != nil {
		return fmt.Errorf("marshal telegram payload: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", s.cfg.BaseURL, s.cfg.BotToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build telegram request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("send telegram message: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram responded %d: %s", resp.StatusCode, string(body))
	}

	var parsed sendMessageResponse
	if err := json.Unmarshal(body, &parsed); err == nil && !parsed.OK {
		return fmt.Errorf("telegram rejected message: %s", parsed.Description)
	}

	return nil
}
