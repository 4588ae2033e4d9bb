package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

// WahaService sends WhatsApp reminders through a WAHA gateway instance.
type WahaService struct {
	baseURL string
	apiKey  string
	session string
	client  *http.Client
}

func NewWahaService() *WahaService {
	url := os.Getenv("WAHA_BASE_URL")
	if url == "" {
		url = "http://waha:3000"
	}
	session := os.Getenv("WAHA_SESSION")
	if session == "" {
		session = "default"
	}
	return &WahaService{
		baseURL: url,
		apiKey:  os.Getenv("WAHA_API_KEY"),
		session: session,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

func (s *WahaService) post(ctx context.Context, endpoint string, payload map[string]string) error {
	payload["session"] = s.session

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+endpoint, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Api-Key", s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("waha %s returned %d: %s", endpoint, resp.StatusCode, string(body))
	}
	return nil
}

// NormalizeChatID converts phone numbers to WAHA chat ids. Local Indonesian
// numbers (leading 0) get the 62 country code; group ids pass through.
func NormalizeChatID(chatID string) string {
	chatID = strings.TrimSpace(chatID)

	if strings.HasSuffix(chatID, "@g.us") {
		return chatID
	}

	chatID = strings.TrimSuffix(chatID, "@c.us")
	if strings.HasPrefix(chatID, "0") {
		chatID = "62" + strings.TrimPrefix(chatID, "0")
	}
	return chatID + "@c.us"
}

// typingDelay approximates how long a person would type the message.
func typingDelay(text string) time.Duration {
	d := time.Duration(len(text)) * 25 * time.Millisecond
	if d > 3*time.Second {
		d = 3 * time.Second
	}
	if d < 200*time.Millisecond {
		d = 200 * time.Millisecond
	}
	return d
}

// SendMessage delivers a text message, mimicking a human sender:
// mark seen, type for a while, then send.
func (s *WahaService) SendMessage(ctx context.Context, chatID, text string) error {
	chatID = NormalizeChatID(chatID)

	if err := s.post(ctx, "/api/sendSeen", map[string]string{"chatId": chatID}); err != nil {
		return fmt.Errorf("failed to send seen: %w", err)
	}
	time.Sleep(100 * time.Millisecond)

	if err := s.post(ctx, "/api/startTyping", map[string]string{"chatId": chatID}); err != nil {
		return fmt.Errorf("failed to start typing: %w", err)
	}
	time.Sleep(typingDelay(text))

	if err := s.post(ctx, "/api/stopTyping", map[string]string{"chatId": chatID}); err != nil {
		return fmt.Errorf("failed to stop typing: %w", err)
	}
	time.Sleep(50 * time.Millisecond)

	if err := s.post(ctx, "/api/sendText", map[string]string{"chatId": chatID, "text": text}); err != nil {
		return fmt.Errorf("failed to send text: %w", err)
	}
	return nil
}
