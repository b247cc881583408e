package marketdata

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/minjae-dev/stockpulse/pkg/config"
	"github.com/minjae-dev/stockpulse/pkg/httputil"
	"github.com/minjae-dev/stockpulse/pkg/logger"
	"github.com/minjae-dev/stockpulse/pkg/redis"
)

// Client fetches quotes, candles and fundamentals from the market data
// provider. Every fetch is memoized through the TTL cache; a cache outage
// degrades to direct fetches.
type Client struct {
	http        *httputil.Client
	cache       *redis.Cache
	localLimit  *rate.Limiter
	baseURL     string
	historyDays int
	logger      *logger.Logger
}

// NewClient builds the market data client. The Redis sliding-window limiter
// guards the provider when Redis is up; the local token bucket covers the
// degraded case.
func NewClient(cfg *config.Config, http *httputil.Client, cache *redis.Cache, limiter *redis.RateLimiter, log *logger.Logger) *Client {
	if limiter != nil {
		http = http.WithRateLimiter(limiter, redis.MarketDataRateLimit)
	}

	return &Client{
		http:        http,
		cache:       cache,
		localLimit:  rate.NewLimiter(rate.Limit(5), 5),
		baseURL:     cfg.MarketData.BaseURL,
		historyDays: cfg.MarketData.HistoryDays,
		logger:      log.WithComponent("marketdata"),
	}
}

// Quote returns the latest snapshot for a symbol.
func (c *Client) Quote(ctx context.Context, symbol string) (Quote, error) {
	var quote Quote
	key := redis.Key("marketdata.quote", symbol)

	err := c.cache.GetOrSet(ctx, key, &quote, redis.TTLShort, func() (interface{}, error) {
		if err := c.localLimit.Wait(ctx); err != nil {
			return nil, err
		}

		var q Quote
		url := fmt.Sprintf("%s/api/v1/quote/%s", c.baseURL, symbol)
		if err := c.http.GetJSON(ctx, url, &q); err != nil {
			return nil, fmt.Errorf("fetch quote %s: %w", symbol, err)
		}
		q.AsOf = time.Now()
		return q, nil
	})

	return quote, err
}

// Candles returns the daily history for a symbol, oldest first.
func (c *Client) Candles(ctx context.Context, symbol string) ([]Candle, error) {
	var candles []Candle
	key := redis.Key("marketdata.candles", symbol, c.historyDays)

	err := c.cache.GetOrSet(ctx, key, &candles, redis.TTLLong, func() (interface{}, error) {
		if err := c.localLimit.Wait(ctx); err != nil {
			return nil, err
		}

		var payload struct {
			Candles []Candle `json:"candles"`
		}
		url := fmt.Sprintf("%s/api/v1/history/%s?days=%d", c.baseURL, symbol, c.historyDays)
		if err := c.http.GetJSON(ctx, url, &payload); err != nil {
			return nil, fmt.Errorf("fetch candles %s: %w", symbol, err)
		}
		if len(payload.Candles) == 0 {
			return nil, fmt.Errorf("no candle data for %s", symbol)
		}
		return payload.Candles, nil
	})

	return candles, err
}

// Fundamentals returns the fundamental signal sources for a symbol.
func (c *Client) Fundamentals(ctx context.Context, symbol string) (Fundamentals, error) {
	var fund Fundamentals
	key := redis.Key("marketdata.fundamentals", symbol)

	err := c.cache.GetOrSet(ctx, key, &fund, redis.TTLDaily, func() (interface{}, error) {
		if err := c.localLimit.Wait(ctx); err != nil {
			return nil, err
		}

		var f Fundamentals
		url := fmt.Sprintf("%s/api/v1/fundamentals/%s", c.baseURL, symbol)
		if err := c.http.GetJSON(ctx, url, &f); err != nil {
			return nil, fmt.Errorf("fetch fundamentals %s: %w", symbol, err)
		}
		return f, nil
	})

	return fund, err
}

// Indicators fetches the candle history and computes the indicator set,
// memoizing the (expensive) computation per symbol and day.
func (c *Client) Indicators(ctx context.Context, symbol string) (IndicatorSet, error) {
	var set IndicatorSet
	key := redis.Key("marketdata.indicators", symbol, time.Now().Format("2006-01-02"))

	err := c.cache.GetOrSet(ctx, key, &set, redis.TTLLong, func() (interface{}, error) {
		candles, err := c.Candles(ctx, symbol)
		if err != nil {
			return nil, err
		}
		return ComputeIndicators(candles), nil
	})

	return set, err
}
