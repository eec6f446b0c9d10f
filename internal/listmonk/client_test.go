package listmonk

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/square-listmonk-sync/internal/domain"
)

func newTestClient(server *httptest.Server) *Client {
	return NewClient(Config{
		Domain:   "lists.example.com",
		Username: "admin",
		Password: "secret",
		BaseURL:  server.URL,
	})
}

func TestNewClient_DerivesHTTPSOrigin(t *testing.T) {
	client := NewClient(Config{Domain: "lists.example.com"})
	assert.Equal(t, "https://lists.example.com", client.baseURL)
}

func TestUpload_SendsMultipartImport(t *testing.T) {
	var (
		gotParams ImportParams
		gotCSV    string
	)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, ImportPath, r.URL.Path)

		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "admin", user)
		assert.Equal(t, "secret", pass)

		if !assert.NoError(t, r.ParseMultipartForm(1<<20)) {
			return
		}
		assert.NoError(t, json.Unmarshal([]byte(r.FormValue("params")), &gotParams))

		file, header, err := r.FormFile("file")
		if !assert.NoError(t, err) {
			return
		}
		defer file.Close()
		assert.Equal(t, "import.csv", header.Filename)
		assert.Equal(t, "text/csv", header.Header.Get("Content-Type"))

		data, err := io.ReadAll(file)
		assert.NoError(t, err)
		gotCSV = string(data)

		w.Write([]byte(`{"data": {"status": "importing"}}`))
	}))
	defer server.Close()

	batch := NewImportBatch(domain.ModeSubscribe, domain.StatusConfirmed, []int{3}, false, []domain.Subscriber{
		{Email: "a@x.com", Name: "Jo", Subscribed: true},
	})

	err := newTestClient(server).Upload(context.Background(), batch)
	require.NoError(t, err)

	assert.Equal(t, ImportParams{
		Mode:               domain.ModeSubscribe,
		Delim:              ",",
		SubscriptionStatus: domain.StatusConfirmed,
		Lists:              []int{3},
		Overwrite:          false,
	}, gotParams)
	assert.Equal(t, "email,name,attributes\na@x.com,Jo,\n", gotCSV)
}

func TestUpload_ParamsJSONShape(t *testing.T) {
	var raw map[string]interface{}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if assert.NoError(t, r.ParseMultipartForm(1<<20)) {
			assert.NoError(t, json.Unmarshal([]byte(r.FormValue("params")), &raw))
		}
	}))
	defer server.Close()

	batch := NewImportBatch(domain.ModeBlocklist, domain.StatusUnconfirmed, []int{1, 2}, true, nil)
	require.NoError(t, newTestClient(server).Upload(context.Background(), batch))

	assert.Equal(t, "blocklist", raw["mode"])
	assert.Equal(t, ",", raw["delim"])
	assert.Equal(t, "unconfirmed", raw["subscription_status"])
	assert.Equal(t, []interface{}{float64(1), float64(2)}, raw["lists"])
	assert.Equal(t, true, raw["overwrite"])
}

func TestUpload_ServerRejected(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"message": "an import is already running"}`))
	}))
	defer server.Close()

	err := newTestClient(server).UploadCSV(context.Background(), ImportParams{Mode: domain.ModeSubscribe}, nil)
	require.Error(t, err)
	assert.Equal(t, 1, calls, "uploads must not be retried")

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusServiceUnavailable, apiErr.StatusCode)
	assert.Contains(t, apiErr.Body, "already running")
	assert.NotErrorIs(t, err, ErrUnauthorized)
}

func TestUpload_Unauthorized(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	err := newTestClient(server).UploadCSV(context.Background(), ImportParams{Mode: domain.ModeSubscribe}, nil)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestUpload_TransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	client := newTestClient(server)
	server.Close()

	err := client.UploadCSV(context.Background(), ImportParams{Mode: domain.ModeSubscribe}, nil)
	require.Error(t, err)

	var apiErr *APIError
	assert.False(t, errors.As(err, &apiErr))
}

func TestUpload_EncodeFailureSendsNothing(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))
	defer server.Close()

	client := newTestClient(server)
	client.SetEncoder(func([]domain.Subscriber) ([]byte, error) {
		return nil, errors.New("short write")
	})

	batch := NewImportBatch(domain.ModeSubscribe, domain.StatusConfirmed, []int{3}, false, []domain.Subscriber{{Email: "a@x.com"}})
	err := client.Upload(context.Background(), batch)

	assert.ErrorIs(t, err, ErrEncode)
	assert.Contains(t, err.Error(), "short write")
	assert.Zero(t, calls)
}
