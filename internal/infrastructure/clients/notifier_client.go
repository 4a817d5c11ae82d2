package clients

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

	"github.com/tuncanbit/recon/internal/domain/interfaces"
	"github.com/tuncanbit/recon/pkg/config"
)

// NotifierClient posts user notifications to the notification service.
// Delivery is best effort: the reconcilers swallow any error this client
// returns, so retries here are the only redundancy a notification gets.
type NotifierClient struct {
	baseURL    string
	httpClient *http.Client
	config     *config.NotifierConfig
	logger     zerolog.Logger
}

func NewNotifierClient(cfg *config.NotifierConfig, logger zerolog.Logger) interfaces.Notifier {
	return &NotifierClient{
		baseURL: cfg.BaseURL,
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.Timeout) * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				IdleConnTimeout:     30 * time.Second,
				MaxIdleConnsPerHost: 10,
			},
		},
		config: cfg,
		logger: logger.With().Str("component", "notifier_client").Logger(),
	}
}

type notificationRequest struct {
	UserID  string `json:"user_id"`
	Title   string `json:"title"`
	Message string `json:"message"`
	Kind    string `json:"kind"`
	Link    string `json:"link,omitempty"`
}

func (c *NotifierClient) Notify(ctx context.Context, userID, title, message, kind, link string) error {
	payload, err := json.Marshal(notificationRequest{
		UserID:  userID,
		Title:   title,
		Message: message,
		Kind:    kind,
		Link:    link,
	})
	if err != nil {
		return fmt.Errorf("encoding notification failed: %w", err)
	}
	return c.postWithRetry(ctx, payload, 0)
}

func (c *NotifierClient) postWithRetry(ctx context.Context, payload []byte, attempt int) error {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return fmt.Errorf("invalid base URL: %w", err)
	}
	u.Path = "/v1/notifications"

	req, err := http.NewRequestWithContext(ctx, "POST", u.String(), bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("creating request failed: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if shouldRetry(err) && attempt < c.config.MaxRetries {
			backoff := calculateBackoff(attempt, c.config.RetryBackoffBase)
			c.logger.Info().
				Err(err).
				Int("attempt", attempt+1).
				Dur("backoff", backoff).
				Msg("Notification request failed, retrying after backoff")

			time.Sleep(backoff)
			return c.postWithRetry(ctx, payload, attempt+1)
		}
		return fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	if shouldRetryStatusCode(resp.StatusCode) && attempt < c.config.MaxRetries {
		backoff := calculateBackoff(attempt, c.config.RetryBackoffBase)
		c.logger.Warn().
			Int("status_code", resp.StatusCode).
			Int("attempt", attempt+1).
			Dur("backoff", backoff).
			Msg("Notification service returned retryable status, retrying after backoff")

		time.Sleep(backoff)
		return c.postWithRetry(ctx, payload, attempt+1)
	}
	return c.handleErrorResponse(resp)
}

func (c *NotifierClient) handleErrorResponse(resp *http.Response) error {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("HTTP error %d: failed to read response body", resp.StatusCode)
	}

	var errorResp struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &errorResp); err == nil && errorResp.Error != "" {
		return fmt.Errorf("HTTP error %d: %s", resp.StatusCode, errorResp.Error)
	}
	return fmt.Errorf("HTTP error %d: %s", resp.StatusCode, string(body))
}

func shouldRetry(err error) bool {
	if err, ok := err.(interface{ Timeout() bool }); ok && err.Timeout() {
		return true
	}
	if err, ok := err.(interface{ Temporary() bool }); ok && err.Temporary() {
		return true
	}
	return false
}

func shouldRetryStatusCode(statusCode int) bool {
	return statusCode == http.StatusTooManyRequests ||
		statusCode == http.StatusInternalServerError ||
		statusCode == http.StatusBadGateway ||
		statusCode == http.StatusServiceUnavailable ||
		statusCode == http.StatusGatewayTimeout
}

func calculateBackoff(attempt, base int) time.Duration {
	if base <= 0 {
		base = 2
	}
	backoff := time.Duration(1<<attempt*base) * time.Second
	if backoff > 30*time.Second {
		backoff = 30 * time.Second
	}
	return backoff
}
