package channel

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sitegate/notify-api/internal/model"
)

// WhatsAppClient delivers credentials through the provider's template
// message API.
type WhatsAppClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	template   string
}

func NewWhatsAppClient(baseURL, apiKey, template string) *WhatsAppClient {
	if template == "" {
		template = "account_credentials"
	}
	return &WhatsAppClient{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    baseURL,
		apiKey:     apiKey,
		template:   template,
	}
}

func (c *WhatsAppClient) IsConfigured() bool {
	return c.baseURL != "" && c.apiKey != ""
}

type sendTemplateRequest struct {
	To       string            `json:"to"`
	Template string            `json:"template"`
	Language string            `json:"language"`
	Params   map[string]string `json:"params"`
}

type sendTemplateResponse struct {
	MessageID string `json:"message_id"`
	Error     string `json:"error,omitempty"`
}

func (c *WhatsAppClient) Send(ctx context.Context, msg Message) error {
	body := sendTemplateRequest{
		To:       msg.Address,
		Template: c.template,
		Language: templateLanguage(msg.Language),
		Params: map[string]string{
			"name":     msg.DisplayName,
			"account":  msg.Account,
			"password": msg.Password,
		},
	}
	if msg.LoginURL != "" {
		body.Params["login_url"] = msg.LoginURL
	}

	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal template request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/templates/send", bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &TransportError{Message: err.Error()}
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var parsed sendTemplateResponse
		detail := string(bytes.TrimSpace(raw))
		if json.Unmarshal(raw, &parsed) == nil && parsed.Error != "" {
			detail = parsed.Error
		}
		return &TransportError{StatusCode: resp.StatusCode, Message: detail}
	}
	return nil
}

// templateLanguage maps message languages onto the provider's template
// locale codes.
func templateLanguage(lang model.Language) string {
	switch lang {
	case model.LanguageZhCN:
		return "zh_CN"
	case model.LanguageEnUS:
		return "en_US"
	default:
		return "zh_TW"
	}
}
