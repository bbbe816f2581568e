package domain

import (
	"context"
	"errors"
)

// ErrRateUnavailable is returned when no exchange rate is known for a
// currency. Callers skip conversion with a warning; it is never fatal.
var ErrRateUnavailable = errors.New("exchange rate unavailable")

// RateProvider looks up the exchange rate for a currency against EUR
// (units of currency per 1 EUR). Implementations should be fronted by a
// cache so evaluation stays deterministic and fast.
type RateProvider interface {
	Rate(ctx context.Context, currency string) (float64, error)
}

// RateFunc adapts a function to the RateProvider interface.
type RateFunc func(ctx context.Context, currency string) (float64, error)

func (f RateFunc) Rate(ctx context.Context, currency string) (float64, error) {
	return f(ctx, currency)
}
