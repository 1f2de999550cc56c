package mcpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Config holds the configuration for connecting to the fraud service.
type Config struct {
	APIURL string // Base URL, e.g. "http://localhost:8080"
}

// FraudClient is a pure HTTP client for the fraud service API.
type FraudClient struct {
	cfg        Config
	httpClient *http.Client
}

// NewFraudClient creates a new client for the fraud service.
func NewFraudClient(cfg Config) *FraudClient {
	return &FraudClient{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// apiError represents an error response from the service.
type apiError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// doRequest makes an HTTP request to the service and returns the response body.
func (c *FraudClient) doRequest(ctx context.Context, method, path string, query url.Values, body any) (json.RawMessage, error) {
	u, err := url.Parse(c.cfg.APIURL + path)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}
	if query != nil {
		u.RawQuery = query.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reqBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var apiErr apiError
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Message != "" {
			return nil, fmt.Errorf("API error (%d): %s", resp.StatusCode, apiErr.Message)
		}
		return nil, fmt.Errorf("API error (%d): %s", resp.StatusCode, string(respBody))
	}

	return json.RawMessage(respBody), nil
}

// SubmitTransaction submits a transaction for fraud evaluation.
func (c *FraudClient) SubmitTransaction(ctx context.Context, userID int64, value, txType, ip string) (json.RawMessage, error) {
	body := map[string]any{
		"user_id": userID,
		"value":   value,
		"type":    txType,
	}
	if ip != "" {
		body["ip"] = ip
	}
	return c.doRequest(ctx, http.MethodPost, "/v1/transactions", nil, body)
}

// ListFrauds returns registered fraud records.
func (c *FraudClient) ListFrauds(ctx context.Context, limit int) (json.RawMessage, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	return c.doRequest(ctx, http.MethodGet, "/v1/frauds", q, nil)
}

// GetFraud returns the fraud record for a transaction.
func (c *FraudClient) GetFraud(ctx context.Context, transactionID string) (json.RawMessage, error) {
	return c.doRequest(ctx, http.MethodGet, "/v1/frauds/"+transactionID, nil, nil)
}

// ListFlagged returns suspicious transactions.
func (c *FraudClient) ListFlagged(ctx context.Context, limit int) (json.RawMessage, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	return c.doRequest(ctx, http.MethodGet, "/v1/transactions/flagged", q, nil)
}

// GetUserLimits returns a user's day and night limits.
func (c *FraudClient) GetUserLimits(ctx context.Context, userID int64) (json.RawMessage, error) {
	path := "/v1/users/" + strconv.FormatInt(userID, 10) + "/limits"
	return c.doRequest(ctx, http.MethodGet, path, nil, nil)
}

// SetUserLimits configures a user's day and night limits.
func (c *FraudClient) SetUserLimits(ctx context.Context, userID int64, dayLimit, nightLimit string) (json.RawMessage, error) {
	path := "/v1/users/" + strconv.FormatInt(userID, 10) + "/limits"
	body := map[string]string{
		"day_limit":   dayLimit,
		"night_limit": nightLimit,
	}
	return c.doRequest(ctx, http.MethodPut, path, nil, body)
}

// ListLimitAttempts returns a user's shift-limit breach attempts.
func (c *FraudClient) ListLimitAttempts(ctx context.Context, userID int64, limit int) (json.RawMessage, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	path := "/v1/users/" + strconv.FormatInt(userID, 10) + "/limit-attempts"
	return c.doRequest(ctx, http.MethodGet, path, q, nil)
}
