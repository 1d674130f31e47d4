package off

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/recipepanel/foodsync/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testUserAgent = "foodsync-test/1.0 (ops@example.com)"

func newTestClient(baseURL string) *Client {
	return NewClient(ClientConfig{
		BaseURL:   baseURL,
		UserAgent: testUserAgent,
		Timeout:   2 * time.Second,
	})
}

func TestNewClient(t *testing.T) {
	client := NewClient(ClientConfig{BaseURL: "https://world.openfoodfacts.org/", UserAgent: testUserAgent})

	assert.NotNil(t, client)
	assert.Equal(t, "https://world.openfoodfacts.org", client.baseURL)
	assert.Equal(t, testUserAgent, client.userAgent)
	assert.Equal(t, defaultTimeout, client.httpClient.Timeout)
	assert.NotNil(t, client.rateLimiter)
}

func TestNewClient_Pacing(t *testing.T) {
	client := NewClient(ClientConfig{BaseURL: "http://x", RequestsPerMinute: 60})
	assert.InDelta(t, 1.0, float64(client.rateLimiter.Limit()), 0.0001)
	assert.Equal(t, 6, client.rateLimiter.Burst())

	client = NewClient(ClientConfig{BaseURL: "http://x", RequestsPerMinute: 5})
	assert.Equal(t, 1, client.rateLimiter.Burst())
}

func TestSearch_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/cgi/search.pl", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "mleko", q.Get("search_terms"))
		assert.Equal(t, "1", q.Get("json"))
		assert.Equal(t, "2", q.Get("page"))
		assert.Equal(t, "24", q.Get("page_size"))
		assert.Equal(t, "pl", q.Get("lc"))
		assert.Equal(t, FieldList("pl"), q.Get("fields"))
		assert.Equal(t, testUserAgent, r.Header.Get("User-Agent"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"count":1,"page":2,"products":[{"code":"5900512300108"}]}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	raw, err := client.Search(context.Background(), "mleko", "pl", 2, 24)

	require.NoError(t, err)
	assert.Contains(t, string(raw), "5900512300108")
}

func TestSearch_ClampsPaging(t *testing.T) {
	tests := []struct {
		name         string
		page         int
		pageSize     int
		wantPage     string
		wantPageSize string
	}{
		{"page below one", 0, 10, "1", "10"},
		{"page size above max", 3, 500, "3", "100"},
		{"page size below one", 1, 0, "1", "1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, tt.wantPage, r.URL.Query().Get("page"))
				assert.Equal(t, tt.wantPageSize, r.URL.Query().Get("page_size"))
				w.Write([]byte(`{}`))
			}))
			defer server.Close()

			_, err := newTestClient(server.URL).Search(context.Background(), "milk", "en", tt.page, tt.pageSize)
			require.NoError(t, err)
		})
	}
}

func TestSearch_ServerError_NoRetry(t *testing.T) {
	attempts := 0

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("maintenance"))
	}))
	defer server.Close()

	raw, err := newTestClient(server.URL).Search(context.Background(), "milk", "en", 1, 10)

	assert.Nil(t, raw)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrUpstreamUnavailable)
	assert.Equal(t, http.StatusServiceUnavailable, StatusCode(err))
	assert.Equal(t, 1, attempts)

	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "search", se.Operation)
	assert.Equal(t, "maintenance", se.Body)
}

func TestSearch_NetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	_, err := newTestClient(server.URL).Search(context.Background(), "milk", "en", 1, 10)

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrUpstreamUnavailable)
	assert.Equal(t, 0, StatusCode(err))
}

func TestFetchByBarcode_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v2/product/3017620422003.json", r.URL.Path)
		assert.Equal(t, "fr", r.URL.Query().Get("lc"))
		assert.True(t, strings.HasPrefix(r.URL.Query().Get("fields"), "code,"))
		assert.Equal(t, testUserAgent, r.Header.Get("User-Agent"))

		w.Write([]byte(`{"status":1,"code":"3017620422003","product":{"code":"3017620422003","product_name":"Nutella"}}`))
	}))
	defer server.Close()

	raw, err := newTestClient(server.URL).FetchByBarcode(context.Background(), "3017620422003", "fr")

	require.NoError(t, err)
	item := NormalizeSingleProduct(raw, "3017620422003", "fr")
	require.NotNil(t, item)
	assert.Equal(t, "Nutella", item.Name)
}

func TestFetchByBarcode_NotFoundCarriesStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"status":0,"status_verbose":"product not found"}`))
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).FetchByBarcode(context.Background(), "0000000000000", "en")

	require.Error(t, err)
	assert.Equal(t, http.StatusNotFound, StatusCode(err))
}

func TestFetchByBarcode_ContextCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestClient(server.URL).FetchByBarcode(ctx, "3017620422003", "en")
	assert.ErrorIs(t, err, domain.ErrUpstreamUnavailable)
}
