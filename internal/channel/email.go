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

// MailClient delivers credential emails through the mail provider's HTTP API.
type MailClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	sender     string
}

func NewMailClient(baseURL, apiKey, sender string) *MailClient {
	return &MailClient{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    baseURL,
		apiKey:     apiKey,
		sender:     sender,
	}
}

func (c *MailClient) IsConfigured() bool {
	return c.baseURL != "" && c.apiKey != ""
}

type sendMailRequest struct {
	From    string `json:"from"`
	To      string `json:"to"`
	ToName  string `json:"toName,omitempty"`
	Subject string `json:"subject"`
	HTML    string `json:"html"`
}

func (c *MailClient) Send(ctx context.Context, msg Message) error {
	body := sendMailRequest{
		From:    c.sender,
		To:      msg.Address,
		ToName:  msg.DisplayName,
		Subject: mailSubject(msg.Language),
		HTML:    mailBody(msg),
	}

	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal mail request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/messages", bytes.NewReader(data))
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

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &TransportError{StatusCode: resp.StatusCode, Message: string(bytes.TrimSpace(detail))}
	}
	return nil
}

func mailSubject(lang model.Language) string {
	switch lang {
	case model.LanguageZhCN:
		return "您的工地管理系统账号"
	case model.LanguageEnUS:
		return "Your site management account"
	default:
		return "您的工地管理系統帳號"
	}
}

func mailBody(msg Message) string {
	greeting := msg.DisplayName
	if greeting == "" {
		greeting = msg.Account
	}
	body := fmt.Sprintf("<p>%s</p><p>%s: <b>%s</b><br>%s: <b>%s</b></p>",
		greeting,
		bodyLabel(msg.Language, "account"), msg.Account,
		bodyLabel(msg.Language, "password"), msg.Password,
	)
	if msg.LoginURL != "" {
		body += fmt.Sprintf(`<p><a href="%s">%s</a></p>`, msg.LoginURL, msg.LoginURL)
	}
	return body
}

func bodyLabel(lang model.Language, key string) string {
	labels := map[model.Language]map[string]string{
		model.LanguageZhTW: {"account": "帳號", "password": "密碼"},
		model.LanguageZhCN: {"account": "账号", "password": "密码"},
		model.LanguageEnUS: {"account": "Account", "password": "Password"},
	}
	if m, ok := labels[lang]; ok {
		return m[key]
	}
	return labels[model.DefaultLanguage][key]
}
