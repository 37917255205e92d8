package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// APIError is raised when the Graph API rejects a call or the request
// fails at the transport level (StatusCode 0). Never retried here.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("whatsapp api: request failed: %s", e.Body)
	}
	return fmt.Sprintf("whatsapp api: status %d body=%q", e.StatusCode, e.Body)
}

// WhatsAppClient issues message sends against the Cloud API
// /{phone-number-id}/messages endpoint.
type WhatsAppClient struct {
	baseURL       string
	phoneNumberID string
	accessToken   string
	client        *http.Client
}

func NewWhatsAppClient(baseURL, phoneNumberID, accessToken string) *WhatsAppClient {
	return &WhatsAppClient{
		baseURL:       baseURL,
		phoneNumberID: phoneNumberID,
		accessToken:   accessToken,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type textPayload struct {
	Body string `json:"body"`
}

type templateLanguage struct {
	Code string `json:"code"`
}

type templatePayload struct {
	Name     string           `json:"name"`
	Language templateLanguage `json:"language"`
}

type sendRequest struct {
	MessagingProduct string           `json:"messaging_product"`
	To               string           `json:"to"`
	Type             string           `json:"type"`
	Text             *textPayload     `json:"text,omitempty"`
	Template         *templatePayload `json:"template,omitempty"`
}

type sendResponse struct {
	Messages []struct {
		ID string `json:"id"`
	} `json:"messages"`
}

// SendText sends a free-form text message. Only works inside the
// provider's 24h session window.
func (c *WhatsAppClient) SendText(ctx context.Context, to, body string) (json.RawMessage, error) {
	resp, err := c.send(ctx, sendRequest{
		MessagingProduct: "whatsapp",
		To:               to,
		Type:             "text",
		Text:             &textPayload{Body: body},
	})
	if err != nil {
		return nil, err
	}

	slog.Info("whatsapp send ok", "kind", "text", "to", to, "message_id", messageID(resp))
	return resp, nil
}

// SendTemplate sends a pre-approved template message, usable to open a
// conversation outside the session window.
func (c *WhatsAppClient) SendTemplate(ctx context.Context, to, templateName, languageCode string) (json.RawMessage, error) {
	resp, err := c.send(ctx, sendRequest{
		MessagingProduct: "whatsapp",
		To:               to,
		Type:             "template",
		Template: &templatePayload{
			Name:     templateName,
			Language: templateLanguage{Code: languageCode},
		},
	})
	if err != nil {
		return nil, err
	}

	slog.Info("whatsapp send ok", "kind", "template", "to", to, "template", templateName, "message_id", messageID(resp))
	return resp, nil
}

func (c *WhatsAppClient) send(ctx context.Context, payload sendRequest) (json.RawMessage, error) {
	reqBody, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/%s/messages", c.baseURL, c.phoneNumberID)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(reqBody))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.accessToken)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &APIError{Body: err.Error()}
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &APIError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	return json.RawMessage(body), nil
}

func messageID(raw json.RawMessage) string {
	var sr sendResponse
	if err := json.Unmarshal(raw, &sr); err != nil || len(sr.Messages) == 0 {
		return ""
	}
	return sr.Messages[0].ID
}
