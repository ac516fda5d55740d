// Package results fetches final scores from the external results provider.
package results

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"sports-edge-engine/internal/config"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// GameResult is one finished game as reported by the provider. Teams are
// matched to local rows by (name, sport).
type GameResult struct {
	Sport     string    `json:"sport"`
	HomeTeam  string    `json:"home_team"`
	AwayTeam  string    `json:"away_team"`
	HomeScore int       `json:"home_score"`
	AwayScore int       `json:"away_score"`
	StartedAt time.Time `json:"commence_time"`
	Completed bool      `json:"completed"`
}

// Interface defines the results-provider client surface.
type Interface interface {
	FetchResults(ctx context.Context, sport string, daysBack int) ([]GameResult, error)
}

// Client is a REST client for the results provider.
// It implements Interface.
type Client struct {
	client  *resty.Client
	apiKey  string
	logger  *zap.Logger
	limiter *rate.Limiter
}

// ensure Client implements the interface
var _ Interface = (*Client)(nil)

// NewClient creates a results-provider client with rate limiting.
func NewClient(cfg *config.Results, logger *zap.Logger) *Client {
	client := resty.New().SetBaseURL(cfg.BaseURL)

	// rate.Limit is requests per second.
	limiter := rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateLimitBurst)

	return &Client{
		client:  client,
		apiKey:  cfg.APIKey,
		logger:  logger,
		limiter: limiter,
	}
}

// FetchResults returns the provider's completed games for a sport over the
// last daysBack days. Games still in progress are filtered out.
func (c *Client) FetchResults(ctx context.Context, sport string, daysBack int) ([]GameResult, error) {
	var results []GameResult

	req := c.client.R().
		SetResult(&results).
		SetHeader("Content-Type", "application/json").
		SetQueryParam("apiKey", c.apiKey).
		SetQueryParam("daysFrom", strconv.Itoa(daysBack))

	url := fmt.Sprintf("/sports/%s/scores", sport)
	resp, err := c.doRequest(ctx, "GET", url, req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch results for %s: %w", sport, err)
	}

	all := *resp.Result().(*[]GameResult)
	finals := make([]GameResult, 0, len(all))
	for _, r := range all {
		if !r.Completed {
			continue
		}
		r.Sport = sport
		finals = append(finals, r)
	}

	c.logger.Info("Fetched results",
		zap.String("sport", sport),
		zap.Int("completed", len(finals)),
		zap.Int("total", len(all)))
	return finals, nil
}

// doRequest handles the actual request execution with rate limiting and retry logic.
func (c *Client) doRequest(ctx context.Context, method, url string, req *resty.Request) (*resty.Response, error) {
	var resp *resty.Response
	var err error
	const maxRetries = 3

	for i := 0; i < maxRetries; i++ {
		// Wait for the rate limiter
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter wait failed: %w", err)
		}

		c.logger.Debug("Executing request", zap.String("method", method), zap.String("url", c.client.BaseURL+url))
		resp, err = req.SetContext(ctx).Execute(method, url)

		if err == nil && !resp.IsError() {
			return resp, nil // Success
		}

		// Analyze error and decide whether to retry
		shouldRetry := false
		var retryAfter time.Duration

		if resp != nil {
			statusCode := resp.StatusCode()
			if statusCode == http.StatusTooManyRequests {
				shouldRetry = true
				retryAfterHeader := resp.Header().Get("Retry-After")
				if seconds, err := strconv.Atoi(retryAfterHeader); err == nil {
					retryAfter = time.Duration(seconds) * time.Second
				}
			} else if statusCode >= 500 { // Server errors
				shouldRetry = true
			}
		} else { // Network or other client-side errors
			shouldRetry = true
		}

		if !shouldRetry {
			return nil, fmt.Errorf("request failed with status %s: %s", resp.Status(), resp.String())
		}

		// If we should retry, calculate wait time
		if retryAfter == 0 {
			// Exponential backoff: 1s, 2s, 4s
			retryAfter = time.Duration(math.Pow(2, float64(i))) * time.Second
		}

		c.logger.Warn("Request failed, retrying...",
			zap.Int("attempt", i+1),
			zap.Duration("retry_after", retryAfter),
			zap.Error(err),
		)

		select {
		case <-time.After(retryAfter):
			continue
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	return nil, fmt.Errorf("request failed after %d attempts: %w", maxRetries, err)
}
