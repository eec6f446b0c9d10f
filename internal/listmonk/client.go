// Package listmonk encodes subscriber batches and pushes them to listmonk's
// bulk import API.
package listmonk

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"github.com/ignite/square-listmonk-sync/internal/domain"
	"github.com/ignite/square-listmonk-sync/internal/pkg/httpretry"
)

// Config configures a listmonk client.
type Config struct {
	// Domain is the bare listmonk host; requests go to https://{Domain}.
	Domain   string
	Username string
	Password string
	Timeout  time.Duration

	// BaseURL overrides the origin derived from Domain.
	BaseURL string
}

// Client is the listmonk import API client. Uploads are never retried: a
// failed import is reported and the next run resyncs everything.
type Client struct {
	baseURL    string
	username   string
	password   string
	httpClient httpretry.HTTPDoer
	encode     func([]domain.Subscriber) ([]byte, error)
}

// NewClient creates a new listmonk API client
func NewClient(config Config) *Client {
	baseURL := strings.TrimRight(config.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://" + config.Domain
	}
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		baseURL:    baseURL,
		username:   config.Username,
		password:   config.Password,
		httpClient: &http.Client{Timeout: timeout},
		encode:     EncodeCSV,
	}
}

// SetHTTPClient sets a custom HTTP client (useful for testing)
func (c *Client) SetHTTPClient(client httpretry.HTTPDoer) {
	c.httpClient = client
}

// SetEncoder replaces the CSV encoder (useful for testing)
func (c *Client) SetEncoder(encode func([]domain.Subscriber) ([]byte, error)) {
	c.encode = encode
}

// Upload encodes the batch and imports it. Encoding failures wrap ErrEncode
// and nothing is sent.
func (c *Client) Upload(ctx context.Context, batch ImportBatch) error {
	data, err := c.encode(batch.Subscribers)
	if err != nil {
		if !errors.Is(err, ErrEncode) {
			err = fmt.Errorf("%w: %v", ErrEncode, err)
		}
		return err
	}
	return c.UploadCSV(ctx, batch.Params, data)
}

// UploadCSV posts already-encoded rows with their import params as a
// multipart form: a "params" JSON field and an "import.csv" file part.
func (c *Client) UploadCSV(ctx context.Context, params ImportParams, data []byte) error {
	body, contentType, err := buildImportForm(params, data)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+ImportPath, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")
	req.SetBasicAuth(c.username, c.password)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("listmonk request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read listmonk response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(respBody))}
	}
	return nil
}

func buildImportForm(params ImportParams, data []byte) (*bytes.Buffer, string, error) {
	paramsJSON, err := json.Marshal(params)
	if err != nil {
		return nil, "", fmt.Errorf("failed to marshal import params: %w", err)
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	if err := mw.WriteField("params", string(paramsJSON)); err != nil {
		return nil, "", fmt.Errorf("failed to write params part: %w", err)
	}

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="file"; filename="import.csv"`)
	header.Set("Content-Type", "text/csv")
	part, err := mw.CreatePart(header)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create file part: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return nil, "", fmt.Errorf("failed to write file part: %w", err)
	}

	if err := mw.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to close multipart body: %w", err)
	}
	return &buf, mw.FormDataContentType(), nil
}
