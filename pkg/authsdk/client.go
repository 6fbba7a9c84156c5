package authsdk

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// SDKClient talks to one identity provider.
type SDKClient struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewSDKClient creates a client with a 10s timeout.
func NewSDKClient(baseURL string) *SDKClient {
	return &SDKClient{
		BaseURL:    strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *SDKClient) url(path string) string {
	return c.BaseURL + path
}

func (c *SDKClient) doRequest(
	ctx context.Context,
	method, path string,
	body io.Reader,
	headers map[string]string,
) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.url(path), body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	return resp, nil
}

// readBody reads and closes the body, mapping non-expected statuses to an
// *OAuth2Error.
func readBody(resp *http.Response, expectedStatus int) ([]byte, error) {
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode != expectedStatus {
		if perr := parseErrorResponse(resp, body); perr != nil {
			return nil, perr
		}
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return body, nil
}

func decodeJSON(resp *http.Response, target any, expectedStatus int) error {
	body, err := readBody(resp, expectedStatus)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, target); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// GetLiveness calls /livez.
func (c *SDKClient) GetLiveness(ctx context.Context) (*HealthResponse, error) {
	return c.getHealth(ctx, "/livez")
}

// GetReadiness calls /readyz.
func (c *SDKClient) GetReadiness(ctx context.Context) (*HealthResponse, error) {
	return c.getHealth(ctx, "/readyz")
}

func (c *SDKClient) getHealth(ctx context.Context, path string) (*HealthResponse, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, path, nil, nil)
	if err != nil {
		return nil, err
	}

	var health HealthResponse
	if err := decodeJSON(resp, &health, http.StatusOK); err != nil {
		return nil, err
	}
	return &health, nil
}

// GetDiscovery fetches the OpenID Provider metadata.
func (c *SDKClient) GetDiscovery(ctx context.Context) (*DiscoveryDocument, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, "/.well-known/openid-configuration", nil, nil)
	if err != nil {
		return nil, err
	}

	var doc DiscoveryDocument
	if err := decodeJSON(resp, &doc, http.StatusOK); err != nil {
		return nil, err
	}
	return &doc, nil
}
