package tracker

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/monthviewsales/solanatracker-trade-bot/internal/config"
	"github.com/monthviewsales/solanatracker-trade-bot/internal/models"
)

const apiKeyHeader = "x-api-key"

// retryAfterCapFactor bounds Retry-After to this many base backoffs.
const retryAfterCapFactor = 8

// ErrNoData is returned when the provider answers successfully but has nothing for the request.
var ErrNoData = errors.New("no data")

// Client defines the interface for the trending/chart data provider.
type Client interface {
	GetTrendingTokens(ctx context.Context, timeframe string) ([]models.Candidate, error)
	GetChart(ctx context.Context, mint, interval string) ([]models.Candle, error)
	GetLivePrice(ctx context.Context, mint string) (*models.LivePrice, error)
}

// RestClient is a client for the data provider REST API.
// It implements the Client interface.
type RestClient struct {
	client      *resty.Client
	logger      *zap.Logger
	limiter     *rate.Limiter
	maxRetries  int
	baseBackoff time.Duration
}

// ensure RestClient implements the interface
var _ Client = (*RestClient)(nil)

// NewRestClient creates a new data provider client.
func NewRestClient(cfg *config.Tracker, logger *zap.Logger) *RestClient {
	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetHeader("Accept", "application/json")
	if cfg.ApiKey != "" {
		client.SetHeader(apiKeyHeader, cfg.ApiKey)
	} else {
		logger.Warn("No data provider API key configured")
	}
	if cfg.Timeout > 0 {
		client.SetTimeout(cfg.Timeout)
	}

	backoff := cfg.BaseBackoff
	if backoff <= 0 {
		backoff = time.Second
	}

	return &RestClient{
		client:      client,
		logger:      logger.Named("tracker"),
		limiter:     rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateLimitBurst),
		maxRetries:  cfg.MaxRetries,
		baseBackoff: backoff,
	}
}

// GetTrendingTokens fetches the trending candidates for a timeframe such as "5m".
func (c *RestClient) GetTrendingTokens(ctx context.Context, timeframe string) ([]models.Candidate, error) {
	var candidates []models.Candidate

	endpoint := "/tokens/trending"
	if timeframe != "" {
		endpoint += "/" + url.PathEscape(timeframe)
	}

	resp, err := c.doRequest(ctx, http.MethodGet, endpoint, func() *resty.Request {
		return c.client.R().SetResult(&[]models.Candidate{})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get trending tokens: %w", err)
	}

	candidates = *resp.Result().(*[]models.Candidate)
	c.logger.Debug("Fetched trending tokens", zap.String("timeframe", timeframe), zap.Int("count", len(candidates)))
	return candidates, nil
}

// ChartResponse is the body of the chart endpoint.
type ChartResponse struct {
	Candles []models.Candle `json:"oclhv"`
}

// GetChart fetches the candle history of a token at the given interval, oldest first.
func (c *RestClient) GetChart(ctx context.Context, mint, interval string) ([]models.Candle, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, "/chart/"+url.PathEscape(mint), func() *resty.Request {
		r := c.client.R().SetResult(&ChartResponse{})
		if interval != "" {
			r.SetQueryParam("type", interval)
		}
		return r
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get chart for %s: %w", mint, err)
	}

	chart := resp.Result().(*ChartResponse)
	if len(chart.Candles) == 0 {
		return nil, fmt.Errorf("chart for %s: %w", mint, ErrNoData)
	}
	return chart.Candles, nil
}

// GetLivePrice fetches the current price and liquidity of a token.
func (c *RestClient) GetLivePrice(ctx context.Context, mint string) (*models.LivePrice, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, "/price", func() *resty.Request {
		return c.client.R().
			SetQueryParam("token", mint).
			SetResult(&models.LivePrice{})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get live price for %s: %w", mint, err)
	}

	price := resp.Result().(*models.LivePrice)
	if price.Price <= 0 {
		return nil, fmt.Errorf("live price for %s: %w", mint, ErrNoData)
	}
	return price, nil
}

// doRequest handles the actual request execution with rate limiting and retry logic.
// newReq builds a fresh request for every attempt.
func (c *RestClient) doRequest(ctx context.Context, method, endpoint string, newReq func() *resty.Request) (*resty.Response, error) {
	var resp *resty.Response
	var err error
	attempts := c.maxRetries + 1

	for i := 0; i < attempts; i++ {
		// Wait for the rate limiter
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter wait failed: %w", err)
		}

		c.logger.Debug("Executing request", zap.String("method", method), zap.String("url", c.client.BaseURL+endpoint))
		resp, err = newReq().SetContext(ctx).Execute(method, endpoint)

		if err == nil && !resp.IsError() {
			return resp, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		// Analyze error and decide whether to retry
		shouldRetry := false
		var retryAfter time.Duration

		if err == nil {
			statusCode := resp.StatusCode()
			if statusCode == http.StatusTooManyRequests || statusCode == http.StatusTeapot {
				shouldRetry = true
				if seconds, convErr := strconv.Atoi(resp.Header().Get("Retry-After")); convErr == nil && seconds > 0 {
					retryAfter = min(time.Duration(seconds)*time.Second, c.maxRetryAfter())
				}
			} else if statusCode >= 500 {
				shouldRetry = true
			}
			err = fmt.Errorf("status %s: %s", resp.Status(), truncate(resp.String(), 200))
		} else {
			// network or other client-side errors
			shouldRetry = true
		}

		if !shouldRetry {
			return nil, fmt.Errorf("request failed with %w", err)
		}
		if i == attempts-1 {
			break
		}

		if retryAfter == 0 {
			retryAfter = c.backoff(i)
		}

		c.logger.Warn("Request failed, retrying...",
			zap.String("endpoint", endpoint),
			zap.Int("attempt", i+1),
			zap.Duration("retry_after", retryAfter),
			zap.Error(err),
		)

		timer := time.NewTimer(retryAfter)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		}
	}

	return nil, fmt.Errorf("request failed after %d attempts: %w", attempts, err)
}

// maxRetryAfter caps a server-requested wait.
func (c *RestClient) maxRetryAfter() time.Duration {
	return retryAfterCapFactor * c.baseBackoff
}

// backoff is baseBackoff * 2^attempt plus up to 50% jitter.
func (c *RestClient) backoff(attempt int) time.Duration {
	d := time.Duration(float64(c.baseBackoff) * math.Pow(2, float64(attempt)))
	if half := int64(d / 2); half > 0 {
		d += time.Duration(rand.Int64N(half))
	}
	return d
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
