package results

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"sports-edge-engine/internal/config"

	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// setupTestServer creates a new test server and a Client configured to use it.
func setupTestServer(handler http.Handler) (*Client, *httptest.Server) {
	server := httptest.NewServer(handler)

	c := &Client{
		client:  resty.New().SetBaseURL(server.URL),
		apiKey:  "test_api_key",
		logger:  zap.NewNop(),
		limiter: rate.NewLimiter(rate.Inf, 1), // Allow all requests in tests
	}
	return c, server
}

func TestFetchResults(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		mockResponse := `[
			{"home_team": "A", "away_team": "B", "home_score": 24, "away_score": 21, "commence_time": "2026-01-10T18:00:00Z", "completed": true},
			{"home_team": "C", "away_team": "D", "home_score": 0, "away_score": 0, "commence_time": "2026-01-10T21:00:00Z", "completed": false}
		]`

		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/sports/nfl/scores", r.URL.Path)
			assert.Equal(t, "test_api_key", r.URL.Query().Get("apiKey"))
			assert.Equal(t, "2", r.URL.Query().Get("daysFrom"))
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(mockResponse))
		})

		c, server := setupTestServer(handler)
		defer server.Close()

		finals, err := c.FetchResults(context.Background(), "nfl", 2)

		assert.NoError(t, err)
		// The in-progress game is filtered out.
		assert.Len(t, finals, 1)
		assert.Equal(t, "A", finals[0].HomeTeam)
		assert.Equal(t, 24, finals[0].HomeScore)
		assert.Equal(t, "nfl", finals[0].Sport)
	})

	t.Run("RetriesServerErrorsThenSucceeds", func(t *testing.T) {
		attempts := 0
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			attempts++
			if attempts < 3 {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`[]`))
		})

		c, server := setupTestServer(handler)
		defer server.Close()

		_, err := c.FetchResults(context.Background(), "nfl", 2)

		assert.NoError(t, err)
		assert.Equal(t, 3, attempts)
	})

	t.Run("ClientErrorDoesNotRetry", func(t *testing.T) {
		attempts := 0
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			attempts++
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"message": "invalid api key"}`))
		})

		c, server := setupTestServer(handler)
		defer server.Close()

		_, err := c.FetchResults(context.Background(), "nfl", 2)

		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to fetch results")
		assert.Equal(t, 1, attempts)
	})
}

func TestNewClient(t *testing.T) {
	cfg := &config.Results{
		BaseURL:        "https://example.test/v4",
		APIKey:         "k",
		RateLimit:      5,
		RateLimitBurst: 2,
	}
	c := NewClient(cfg, zap.NewNop())
	assert.NotNil(t, c)
	assert.Equal(t, cfg.APIKey, c.apiKey)
}
