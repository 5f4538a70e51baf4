package gateway

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/shopspring/decimal"
)

// RateFeed represents the forex partner's reference-rate feed.
type RateFeed interface {
	// FetchRates returns the current IBR rate per currency.
	FetchRates(ctx context.Context) (map[string]decimal.Decimal, error)
}

// MockRateFeed simulates the partner feed for development and testing.
// It jitters a fixed base rate per currency and fails ~5% of the time.
type MockRateFeed struct {
	// FailureRate is the probability of failure (0.0 to 1.0).
	FailureRate float64
	base        map[string]decimal.Decimal
}

// NewMockRateFeed creates a MockRateFeed with default settings.
func NewMockRateFeed() *MockRateFeed {
	return &MockRateFeed{
		FailureRate: 0.05,
		base: map[string]decimal.Decimal{
			"USD": decimal.RequireFromString("87.40"),
			"GBP": decimal.RequireFromString("111.20"),
			"EUR": decimal.RequireFromString("95.80"),
			"CAD": decimal.RequireFromString("63.10"),
			"AUD": decimal.RequireFromString("56.70"),
			"NZD": decimal.RequireFromString("52.30"),
			"SGD": decimal.RequireFromString("65.90"),
			"AED": decimal.RequireFromString("23.80"),
			"CHF": decimal.RequireFromString("98.60"),
		},
	}
}

// FetchRates simulates one feed poll. It sleeps briefly to mimic
// network latency, then randomly fails based on FailureRate.
func (g *MockRateFeed) FetchRates(ctx context.Context) (map[string]decimal.Decimal, error) {
	delayMs := time.Duration(100+rand.Intn(400)) * time.Millisecond
	select {
	case <-time.After(delayMs):
	case <-ctx.Done():
		return nil, fmt.Errorf("rate feed call canceled: %w", ctx.Err())
	}

	if rand.Float64() < g.FailureRate {
		return nil, fmt.Errorf("rate feed temporarily unavailable")
	}

	rates := make(map[string]decimal.Decimal, len(g.base))
	for currency, base := range g.base {
		// Jitter within ±0.25% of the base rate.
		jitter := decimal.NewFromFloat((rand.Float64() - 0.5) * 0.005)
		rates[currency] = base.Mul(decimal.NewFromInt(1).Add(jitter)).Round(4)
	}
	return rates, nil
}
