// Package pricing computes reservation quotes. It is pure: rates come in
// through Config, time comes in through the range, nothing is read from
// ambient state.
package pricing

import (
	"math"

	"github.com/saachiraju/Team-07-Spacio/internal/domain"
)

// Config holds the tenant-tunable rates.
type Config struct {
	ServiceFeeRate       float64
	InsuranceRatePerSqft float64
}

// Quote is a priced reservation. BasePrice is rounded to cents for
// reporting; Total is computed from the unrounded base so the rounding
// happens once.
type Quote struct {
	BasePrice  float64
	ServiceFee float64
	Insurance  float64
	Total      float64
}

// Cost prorates the monthly price by the share of capacity requested and
// the length of the stay in 30-day months. Intermediate math stays in full
// precision; each reported component is rounded to 2 decimal places.
func Cost(cfg Config, pricePerMonth float64, totalSqft, sqftRequested int, r domain.DateRange, addInsurance bool) Quote {
	days := r.Days()
	spaceRatio := float64(sqftRequested) / float64(totalSqft)
	base := pricePerMonth * spaceRatio * (float64(days) / 30)

	fee := round2(base * cfg.ServiceFeeRate)
	insurance := 0.0
	if addInsurance {
		insurance = round2(float64(sqftRequested) * cfg.InsuranceRatePerSqft)
	}

	return Quote{
		BasePrice:  round2(base),
		ServiceFee: fee,
		Insurance:  insurance,
		Total:      round2(base + fee + insurance),
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
