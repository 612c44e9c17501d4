package market

import (
	"math"

	"github.com/shopspring/decimal"

	"github.com/maartenscholl/esl/domain/orderbook"
)

// Impact maps the signed net order flow for a property (buys positive,
// sells negative) to a price multiplier. Implementations must be monotonic
// and satisfy f(0) = 1; beyond that the functional form is configuration,
// not a core invariant.
type Impact func(netFlow int64) float64

// LinearImpact returns f(flow) = 1 + k*flow.
func LinearImpact(k float64) Impact {
	return func(netFlow int64) float64 {
		return 1 + k*float64(netFlow)
	}
}

// scalePrice applies a multiplier to a fixed-precision price, rounding half
// up to the nearest hundredth. A non-finite or non-positive multiplier
// leaves the price unchanged; a misconfigured impact function must not
// corrupt the quote series.
func scalePrice(p orderbook.Price, multiplier float64) orderbook.Price {
	if math.IsNaN(multiplier) || math.IsInf(multiplier, 0) || multiplier <= 0 {
		return p
	}
	scaled := decimal.NewFromInt(int64(p)).Mul(decimal.NewFromFloat(multiplier))
	return orderbook.Price(scaled.Round(0).IntPart())
}
