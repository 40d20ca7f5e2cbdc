// Package vonage implements gateway.Gateway on the Vonage (Nexmo) Verify v1 JSON API.
// See https://developer.vonage.com/en/api/verify.
package vonage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"goodies-auth/internal/gateway"
)

const (
	defaultBaseURL = "https://api.nexmo.com"
	defaultTimeout = 15 * time.Second

	statusOK        = "0"
	statusWrongCode = "16"
)

// Client talks to Vonage Verify.
type Client struct {
	APIKey     string
	APISecret  string
	BaseURL    string
	Brand      string
	CodeLength int
	HTTPClient *http.Client
}

// NewClient returns a client with the given credentials and optional base URL.
func NewClient(apiKey, apiSecret, baseURL, brand string, codeLength int) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		APIKey:     apiKey,
		APISecret:  apiSecret,
		BaseURL:    baseURL,
		Brand:      brand,
		CodeLength: codeLength,
		HTTPClient: &http.Client{Timeout: defaultTimeout},
	}
}

// response covers the fields shared by the verify, check and control endpoints.
type response struct {
	Status    string `json:"status"`
	RequestID string `json:"request_id"`
	ErrorText string `json:"error_text"`
}

// Start requests a verification for phone (digits only, country code first).
func (c *Client) Start(ctx context.Context, phone string) (string, error) {
	body := map[string]any{
		"number": phone,
		"brand":  c.Brand,
	}
	if c.CodeLength > 0 {
		body["code_length"] = strconv.Itoa(c.CodeLength)
	}
	res, err := c.post(ctx, "/verify/json", body)
	if err != nil {
		return "", err
	}
	if res.Status != statusOK {
		return "", fmt.Errorf("%w: vonage start status=%s error=%s", gateway.ErrUpstream, res.Status, res.ErrorText)
	}
	if res.RequestID == "" {
		return "", fmt.Errorf("%w: vonage start returned no request_id", gateway.ErrUpstream)
	}
	return res.RequestID, nil
}

// Check verifies code for requestID. Does not log the code.
func (c *Client) Check(ctx context.Context, requestID, code string) error {
	res, err := c.post(ctx, "/verify/check/json", map[string]any{
		"request_id": requestID,
		"code":       code,
	})
	if err != nil {
		return err
	}
	switch res.Status {
	case statusOK:
		return nil
	case statusWrongCode:
		return gateway.ErrCodeMismatch
	default:
		return fmt.Errorf("%w: vonage check status=%s error=%s", gateway.ErrUpstream, res.Status, res.ErrorText)
	}
}

// Cancel aborts requestID. Vonage only allows cancelling after 30s and before the second attempt.
func (c *Client) Cancel(ctx context.Context, requestID string) error {
	res, err := c.post(ctx, "/verify/control/json", map[string]any{
		"request_id": requestID,
		"cmd":        "cancel",
	})
	if err != nil {
		return err
	}
	if res.Status != statusOK {
		return fmt.Errorf("%w: vonage cancel status=%s error=%s", gateway.ErrUpstream, res.Status, res.ErrorText)
	}
	return nil
}

func (c *Client) post(ctx context.Context, path string, body map[string]any) (*response, error) {
	if c.APIKey == "" || c.APISecret == "" {
		return nil, fmt.Errorf("%w: vonage credentials not configured", gateway.ErrUpstream)
	}
	body["api_key"] = c.APIKey
	body["api_secret"] = c.APISecret
	raw, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", gateway.ErrUpstream, err)
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", gateway.ErrUpstream, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: vonage request failed status=%d body=%s", gateway.ErrUpstream, resp.StatusCode, string(b))
	}
	var out response
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, fmt.Errorf("%w: decode vonage response: %v", gateway.ErrUpstream, err)
	}
	return &out, nil
}
