package marketdata

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/minjae-dev/stockpulse/pkg/config"
	"github.com/minjae-dev/stockpulse/pkg/httputil"
	"github.com/minjae-dev/stockpulse/pkg/logger"
	"github.com/minjae-dev/stockpulse/pkg/redis"
)

// SentimentClient scrapes the social sentiment site for trending symbols
// and per-symbol scores. The site is cookie-gated and rate-limited, so
// requests go through the retrying client and results are cached.
type SentimentClient struct {
	http    *httputil.Client
	cache   *redis.Cache
	baseURL string
	logger  *logger.Logger
}

// NewSentimentClient builds the sentiment scraper.
func NewSentimentClient(cfg *config.Config, httpClient *httputil.Client, cache *redis.Cache, limiter *redis.RateLimiter, log *logger.Logger) *SentimentClient {
	if limiter != nil {
		httpClient = httpClient.WithRateLimiter(limiter, redis.SentimentRateLimit)
	}

	return &SentimentClient{
		http:    httpClient,
		cache:   cache,
		baseURL: cfg.MarketData.SentimentURL,
		logger:  log.WithComponent("sentiment"),
	}
}

// Trending scrapes the trending page and returns the top-n symbols ranked
// by sentiment score.
func (c *SentimentClient) Trending(ctx context.Context, n int) ([]ScoredSymbol, error) {
	var all []ScoredSymbol
	key := redis.Key("sentiment.trending")

	err := c.cache.GetOrSet(ctx, key, &all, redis.TTLMedium, func() (interface{}, error) {
		return c.scrapeTrending(ctx)
	})
	if err != nil {
		return nil, err
	}

	ranker := NewSentimentRanker()
	for _, s := range all {
		ranker.Update(s)
	}

	top := ranker.TopN(n)
	c.logger.WithFields(map[string]interface{}{
		"scraped": len(all),
		"top_n":   len(top),
	}).Debug("Ranked trending symbols")

	return top, nil
}

// Score returns the sentiment score for one symbol, or nil when the symbol
// is not covered.
func (c *SentimentClient) Score(ctx context.Context, symbol string) (*float64, error) {
	all, err := c.Trending(ctx, 100)
	if err != nil {
		return nil, err
	}

	for _, s := range all {
		if strings.EqualFold(s.Symbol, symbol) {
			score := s.Score
			return &score, nil
		}
	}
	return nil, nil
}

// scrapeTrending parses the trending table. Each row carries the symbol,
// mention count and a score in [-1, 1].
func (c *SentimentClient) scrapeTrending(ctx context.Context) ([]ScoredSymbol, error) {
	url := fmt.Sprintf("%s/trending", c.baseURL)

	resp, err := c.http.Get(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("fetch trending page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("trending page status: %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse trending page: %w", err)
	}

	var symbols []ScoredSymbol
	doc.Find("table.trending tbody tr").Each(func(_ int, row *goquery.Selection) {
		symbol := strings.TrimSpace(row.Find("td.symbol").Text())
		if symbol == "" {
			symbol, _ = row.Attr("data-symbol")
		}
		if symbol == "" {
			return
		}

		mentions, _ := strconv.Atoi(strings.TrimSpace(row.Find("td.mentions").Text()))
		score, err := strconv.ParseFloat(strings.TrimSpace(row.Find("td.score").Text()), 64)
		if err != nil {
			return
		}

		symbols = append(symbols, ScoredSymbol{
			Symbol:   strings.ToUpper(symbol),
			Score:    clampScore(score),
			Mentions: mentions,
		})
	})

	if len(symbols) == 0 {
		return nil, fmt.Errorf("trending page yielded no symbols")
	}

	return symbols, nil
}

func clampScore(s float64) float64 {
	if s < -1 {
		return -1
	}
	if s > 1 {
		return 1
	}
	return s
}
