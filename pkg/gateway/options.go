package gateway

import "time"

type Config struct {
	ConnectTimeout time.Duration
	BalanceTimeout time.Duration
	SendTimeout    time.Duration
	// RateLimit is outbound calls per second; zero disables the limiter.
	RateLimit float64
	RateBurst int
}

func DefaultConfig() Config {
	return Config{
		ConnectTimeout: 30 * time.Second,
		BalanceTimeout: 10 * time.Second,
		SendTimeout:    30 * time.Second,
		RateLimit:      10,
		RateBurst:      5,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = d.ConnectTimeout
	}
	if c.BalanceTimeout <= 0 {
		c.BalanceTimeout = d.BalanceTimeout
	}
	if c.SendTimeout <= 0 {
		c.SendTimeout = d.SendTimeout
	}
	if c.RateBurst <= 0 {
		c.RateBurst = d.RateBurst
	}
	return c
}

type callOptions struct {
	skipAutoConnect bool
}

type CallOption func(*callOptions)

// SkipAutoConnect keeps GetBalance from starting a handshake. Callers that
// are themselves connecting pass it so the two never recurse.
func SkipAutoConnect() CallOption {
	return func(o *callOptions) {
		o.skipAutoConnect = true
	}
}
