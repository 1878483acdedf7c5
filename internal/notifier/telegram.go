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
)

const telegramAPI = "https://api.telegram.org"

// TelegramNotifier posts alert messages to a single Telegram chat.
type TelegramNotifier struct {
	BotToken string
	ChatID   string
	BaseURL  string
	Client   *http.Client
}

type sendMessageRequest struct {
	ChatID string `json:"chat_id"`
	Text   string `json:"text"`
}

type telegramResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

// NewTelegramNotifier creates a notifier, routed through proxyURL when set.
func NewTelegramNotifier(botToken, chatID, proxyURL string) *TelegramNotifier {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &TelegramNotifier{
		BotToken: botToken,
		ChatID:   chatID,
		BaseURL:  telegramAPI,
		Client:   &http.Client{Timeout: 30 * time.Second, Transport: transport},
	}
}

// Send posts the subject and body of msg to the chat. msg.To is ignored.
func (t *TelegramNotifier) Send(ctx context.Context, msg Message) error {
	body, err := json.Marshal(sendMessageRequest{
		ChatID: t.ChatID,
		Text:   msg.Subject + "\n\n" + msg.Body,
	})
	if err != nil {
		return fmt.Errorf("telegram: encode message: %w", err)
	}
	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", t.BaseURL, t.BotToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("telegram: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.Client.Do(req)
	if err != nil {
		// The client error embeds the URL, which carries the token.
		return fmt.Errorf("telegram: send to chat %s failed", t.ChatID)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram: status %d: %s", resp.StatusCode, bytes.TrimSpace(raw))
	}
	var r telegramResponse
	if json.Unmarshal(raw, &r) == nil && !r.OK && r.Description != "" {
		return fmt.Errorf("telegram: %s", r.Description)
	}
	return nil
}
