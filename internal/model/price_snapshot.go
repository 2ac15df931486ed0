package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// PriceSnapshot is a timestamped exchange rate. Crediting decisions carry the
// snapshot they were made against instead of reading a shared mutable value.
type PriceSnapshot struct {
	Rate      decimal.Decimal `json:"rate"`
	FetchedAt time.Time       `json:"fetched_at"`
}

func (s *PriceSnapshot) Age() time.Duration {
	return time.Since(s.FetchedAt)
}
