package subscription

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// Client is the HTTP wrapper for the finbank webhook REST API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new finbank webhook API client.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{},
	}
}

// apiError is a non-2xx provider response. Transport failures are returned
// as-is so the manager can tell the two classes apart.
type apiError struct {
	status int
	body   string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("finbank API error %d: %s", e.status, e.body)
}

// CreateWebhookRequest is the body for POST /webhooks.
type CreateWebhookRequest struct {
	URL         string   `json:"url"`
	EventTypes  []string `json:"eventTypes,omitempty"`
	FilterPaths []string `json:"filterPaths,omitempty"`
}

// Webhook is the finbank webhook object. Secret is present only in the
// creation response and is never returned again.
type Webhook struct {
	ID         string   `json:"id"`
	Secret     string   `json:"secret,omitempty"`
	Status     string   `json:"status"`
	URL        string   `json:"url"`
	EventTypes []string `json:"eventTypes,omitempty"`
}

// CreateWebhook registers a webhook via POST /webhooks.
func (c *Client) CreateWebhook(ctx context.Context, accessToken string, req CreateWebhookRequest) (*Webhook, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal create webhook request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/webhooks", bytes.NewBuffer(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build create webhook request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", fmt.Sprintf("Bearer %s", accessToken))

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to call finbank create webhook API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(resp.Body)
		return nil, &apiError{status: resp.StatusCode, body: string(raw)}
	}

	var webhook Webhook
	if err := json.NewDecoder(resp.Body).Decode(&webhook); err != nil {
		return nil, fmt.Errorf("failed to decode create webhook response: %w", err)
	}
	return &webhook, nil
}

// GetWebhook fetches a webhook by its provider-assigned ID.
func (c *Client) GetWebhook(ctx context.Context, accessToken, id string) (*Webhook, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/webhook/%s", c.baseURL, id), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build get webhook request: %w", err)
	}
	httpReq.Header.Set("Authorization", fmt.Sprintf("Bearer %s", accessToken))

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to call finbank get webhook API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(resp.Body)
		return nil, &apiError{status: resp.StatusCode, body: string(raw)}
	}

	var webhook Webhook
	if err := json.NewDecoder(resp.Body).Decode(&webhook); err != nil {
		return nil, fmt.Errorf("failed to decode get webhook response: %w", err)
	}
	return &webhook, nil
}

// DeleteWebhook removes a webhook by its provider-assigned ID.
// Non-2xx responses (including 404) come back as *apiError for the manager
// to interpret.
func (c *Client) DeleteWebhook(ctx context.Context, accessToken, id string) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodDelete, fmt.Sprintf("%s/webhook/%s", c.baseURL, id), nil)
	if err != nil {
		return fmt.Errorf("failed to build delete webhook request: %w", err)
	}
	httpReq.Header.Set("Authorization", fmt.Sprintf("Bearer %s", accessToken))

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("failed to call finbank delete webhook API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(resp.Body)
		return &apiError{status: resp.StatusCode, body: string(raw)}
	}
	return nil
}
