// Package square reads the full customer directory from the Square
// Customers API.
package square

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ignite/square-listmonk-sync/internal/pkg/httpretry"
	"github.com/ignite/square-listmonk-sync/internal/pkg/logger"
)

// Config configures a Square client.
type Config struct {
	BaseURL    string
	APIToken   string
	Timeout    time.Duration
	MaxRetries int
}

// Client is the Square Customers API client
type Client struct {
	baseURL    string
	apiToken   string
	httpClient httpretry.HTTPDoer
}

// NewClient creates a new Square API client
func NewClient(config Config) *Client {
	baseURL := strings.TrimRight(config.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		baseURL:  baseURL,
		apiToken: config.APIToken,
		httpClient: httpretry.NewRetryClient(&http.Client{
			Timeout: timeout,
		}, config.MaxRetries),
	}
}

// SetHTTPClient sets a custom HTTP client (useful for testing)
func (c *Client) SetHTTPClient(client httpretry.HTTPDoer) {
	c.httpClient = client
}

// ListCustomers fetches one page of customers. An empty cursor requests the
// first page; the returned cursor is empty on the last page.
func (c *Client) ListCustomers(ctx context.Context, cursor string) (*ListCustomersResponse, error) {
	endpoint := c.baseURL + "/v2/customers"
	if cursor != "" {
		endpoint += "?" + url.Values{"cursor": {cursor}}.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiToken)
	req.Header.Set("Square-Version", APIVersion)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("square request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read square response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode, Body: string(body)}
		var envelope ListCustomersResponse
		if json.Unmarshal(body, &envelope) == nil {
			apiErr.Errors = envelope.Errors
		}
		return nil, apiErr
	}

	var page ListCustomersResponse
	if err := json.Unmarshal(body, &page); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return &page, nil
}

// FetchAllCustomers walks every page of the customer directory and returns
// the customers in page order. Any page failure aborts the whole fetch.
// There is no page cap; the Square API is trusted to end the cursor chain.
func (c *Client) FetchAllCustomers(ctx context.Context) ([]Customer, error) {
	var (
		customers []Customer
		cursor    string
	)

	for page := 0; ; page++ {
		logger.Info("Fetching Square customers", "page", page)
		res, err := c.ListCustomers(ctx, cursor)
		if err != nil {
			return nil, fmt.Errorf("fetching customers page %d: %w", page, err)
		}
		logger.Info("Got Square customers", "page", page, "count", len(res.Customers))
		customers = append(customers, res.Customers...)

		if res.Cursor == "" {
			logger.Info("Reached end of customer list", "pages", page+1)
			break
		}
		cursor = res.Cursor
	}

	logger.Info("Found Square customers", "total", len(customers))
	return customers, nil
}
