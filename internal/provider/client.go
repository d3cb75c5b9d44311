package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/avolkov/wabridge/internal/config"
	"github.com/avolkov/wabridge/internal/models"
)

type httpClient struct {
	baseURL string
	http    *http.Client
	breaker *circuitBreaker
	logger  *zap.Logger
}

// NewClient creates the HTTP-backed provider client.
func NewClient(cfg *config.ProviderConfig, logger *zap.Logger) Client {
	return &httpClient{
		baseURL: cfg.BaseURL,
		http: &http.Client{
			Timeout: time.Duration(cfg.Timeout) * time.Second,
		},
		breaker: newCircuitBreaker(&cfg.CircuitBreaker, logger),
		logger:  logger,
	}
}

type sendResponse struct {
	Messages []struct {
		ID string `json:"id"`
	} `json:"messages"`
}

type errorEnvelope struct {
	Error *APIError `json:"error"`
}

func (c *httpClient) SendText(ctx context.Context, account *models.Account, to, body, replyTo string) (string, error) {
	payload := map[string]interface{}{
		"messaging_product": "whatsapp",
		"to":                to,
		"type":              "text",
		"text":              map[string]string{"body": body},
	}
	if replyTo != "" {
		payload["context"] = map[string]string{"message_id": replyTo}
	}

	return c.sendMessage(ctx, account, payload)
}

func (c *httpClient) SendMedia(ctx context.Context, account *models.Account, to, link, mediaType, caption string) (string, error) {
	media := map[string]string{"link": link}
	if caption != "" {
		media["caption"] = caption
	}

	payload := map[string]interface{}{
		"messaging_product": "whatsapp",
		"to":                to,
		"type":              mediaType,
		mediaType:           media,
	}

	return c.sendMessage(ctx, account, payload)
}

func (c *httpClient) SendReaction(ctx context.Context, account *models.Account, to, messageID, emoji string) (string, error) {
	payload := map[string]interface{}{
		"messaging_product": "whatsapp",
		"to":                to,
		"type":              "reaction",
		"reaction": map[string]string{
			"message_id": messageID,
			"emoji":      emoji,
		},
	}

	return c.sendMessage(ctx, account, payload)
}

func (c *httpClient) SendTemplate(ctx context.Context, account *models.Account, to string, tpl TemplateSend) (string, error) {
	payload := map[string]interface{}{
		"messaging_product": "whatsapp",
		"to":                to,
		"type":              "template",
		"template": map[string]interface{}{
			"name":       tpl.Name,
			"language":   map[string]string{"code": tpl.Language},
			"components": tpl.Components,
		},
	}

	return c.sendMessage(ctx, account, payload)
}

func (c *httpClient) sendMessage(ctx context.Context, account *models.Account, payload map[string]interface{}) (string, error) {
	if !account.PhoneNumberID.Valid {
		return "", fmt.Errorf("account %d has no registered phone number id", account.ID)
	}

	url := fmt.Sprintf("%s/%s/messages", c.baseURL, account.PhoneNumberID.String)

	var resp sendResponse
	err := c.breaker.Execute(ctx, func() error {
		return c.doJSON(ctx, http.MethodPost, url, account.AccessToken, payload, &resp)
	})
	if err != nil {
		return "", err
	}

	if len(resp.Messages) == 0 {
		return "", fmt.Errorf("provider returned no message id")
	}

	return resp.Messages[0].ID, nil
}

func (c *httpClient) FetchTemplates(ctx context.Context, account *models.Account) ([]Template, error) {
	url := fmt.Sprintf("%s/%s/message_templates", c.baseURL, account.BusinessID)

	var resp struct {
		Data []Template `json:"data"`
	}
	err := c.breaker.Execute(ctx, func() error {
		return c.doJSON(ctx, http.MethodGet, url, account.AccessToken, nil, &resp)
	})
	if err != nil {
		return nil, err
	}

	return resp.Data, nil
}

func (c *httpClient) FetchMediaInfo(ctx context.Context, account *models.Account, mediaID string) (*MediaInfo, error) {
	url := fmt.Sprintf("%s/%s", c.baseURL, mediaID)

	var info MediaInfo
	err := c.breaker.Execute(ctx, func() error {
		return c.doJSON(ctx, http.MethodGet, url, account.AccessToken, nil, &info)
	})
	if err != nil {
		return nil, err
	}

	return &info, nil
}

// DownloadMedia fetches the media bytes from the short-lived URL
// returned by FetchMediaInfo. The URL requires the same bearer token.
func (c *httpClient) DownloadMedia(ctx context.Context, account *models.Account, url string) ([]byte, string, error) {
	var (
		data     []byte
		mimeType string
	)

	err := c.breaker.Execute(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+account.AccessToken)

		resp, err := c.http.Do(req)
		if err != nil {
			return fmt.Errorf("failed to download media: %w", err)
		}
		defer func() {
			if closeErr := resp.Body.Close(); closeErr != nil {
				c.logger.Warn("Failed to close response body", zap.Error(closeErr))
			}
		}()

		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("unexpected status code downloading media: %d", resp.StatusCode)
		}

		data, err = io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("failed to read media body: %w", err)
		}
		mimeType = resp.Header.Get("Content-Type")

		return nil
	})
	if err != nil {
		return nil, "", err
	}

	return data, mimeType, nil
}

func (c *httpClient) BreakerState() (string, uint32, uint32) {
	return c.breaker.State()
}

// doJSON performs one authenticated JSON round trip. Non-2xx responses
// carrying a provider error envelope become *APIError.
func (c *httpClient) doJSON(ctx context.Context, method, url, token string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewBuffer(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			c.logger.Warn("Failed to close response body", zap.Error(closeErr))
		}
	}()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		var envelope errorEnvelope
		if jsonErr := json.Unmarshal(raw, &envelope); jsonErr == nil && envelope.Error != nil {
			return envelope.Error
		}
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}
