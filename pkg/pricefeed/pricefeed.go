// Package pricefeed quotes ETH in a fiat currency through the CoinGecko
// simple price API.
package pricefeed

import (
	"context"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"hashpay/pkg/cache"
	"hashpay/pkg/metrics"
)

const (
	DefaultBaseURL = "https://api.coingecko.com/api/v3"
	assetID        = "ethereum"
)

type Config struct {
	BaseURL  string
	APIKey   string
	Currency string
	Timeout  time.Duration
	CacheTTL time.Duration
}

type Client struct {
	http     *resty.Client
	cache    *cache.RateCache
	currency string
}

func New(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Currency == "" {
		cfg.Currency = "usd"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 10 * time.Minute
	}

	httpClient := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout).
		SetHeader("Accept", "application/json")
	if cfg.APIKey != "" {
		httpClient.SetHeader("x-cg-demo-api-key", cfg.APIKey)
	}

	return &Client{
		http:     httpClient,
		cache:    cache.NewRateCache(cfg.CacheTTL),
		currency: strings.ToLower(cfg.Currency),
	}
}

func (c *Client) Currency() string {
	return c.currency
}

// EthPrice returns the price of one ETH in the configured currency.
func (c *Client) EthPrice(ctx context.Context) (float64, error) {
	key := assetID + "_" + c.currency
	if rate, ok := c.cache.Get(key); ok {
		metrics.PriceQuotes.WithLabelValues("cache").Inc()
		return rate, nil
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"ids":           assetID,
			"vs_currencies": c.currency,
		}).
		SetResult(map[string]map[string]float64{}).
		Get("/simple/price")
	if err != nil {
		metrics.PriceQuotes.WithLabelValues("error").Inc()
		return 0, errors.Wrap(err, "request eth price")
	}
	if resp.IsError() {
		metrics.PriceQuotes.WithLabelValues("error").Inc()
		logrus.WithFields(logrus.Fields{
			"status": resp.StatusCode(),
			"body":   resp.String(),
		}).Warn("price api returned an error")
		return 0, errors.Errorf("price api status %d", resp.StatusCode())
	}

	data := *resp.Result().(*map[string]map[string]float64)
	rate := data[assetID][c.currency]
	if rate <= 0 {
		metrics.PriceQuotes.WithLabelValues("error").Inc()
		return 0, errors.Errorf("no %s quote for %s", c.currency, assetID)
	}

	c.cache.Set(key, rate)
	metrics.PriceQuotes.WithLabelValues("api").Inc()
	return rate, nil
}
