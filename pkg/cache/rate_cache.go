package cache

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

type CachedRate struct {
	Rate      float64
	Timestamp time.Time
}

// RateCache keeps fiat quotes for a fixed time so the balance screen does
// not hit the price API on every refresh.
type RateCache struct {
	mu    sync.Mutex
	ttl   time.Duration
	rates map[string]CachedRate
	now   func() time.Time
}

func NewRateCache(ttl time.Duration) *RateCache {
	return &RateCache{
		ttl:   ttl,
		rates: make(map[string]CachedRate),
		now:   time.Now,
	}
}

// Get returns the rate for key, or false when it is missing or stale.
func (c *RateCache) Get(key string) (float64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	rateData, ok := c.rates[key]
	if !ok {
		return 0, false
	}
	if c.now().Sub(rateData.Timestamp) > c.ttl {
		delete(c.rates, key)
		return 0, false
	}

	logrus.WithField("key", key).Debug("rate served from cache")
	return rateData.Rate, true
}

func (c *RateCache) Set(key string, rate float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.rates[key] = CachedRate{
		Rate:      rate,
		Timestamp: c.now(),
	}
	logrus.WithField("key", key).Debug("rate cached")
}
