// Package sizing decides order quantities from available capital and the
// current price, under either a fixed lot size or a capital-percentage mode.
package sizing

import "math"

// Mode selects how lot sizes are computed.
type Mode string

const (
	// ModeFixed always trades the configured fixed lot size.
	ModeFixed Mode = "fixed"
	// ModeVariable sizes each trade as a percentage of current capital,
	// capped at the configured maximum.
	ModeVariable Mode = "variable"
)

// LotConfig is the immutable sizing configuration chosen at strategy
// construction. It is read-only during a simulation.
type LotConfig struct {
	Mode              Mode    `yaml:"mode"`
	FixedLotSize      float64 `yaml:"fixed_lot_size"`
	CapitalPercentage float64 `yaml:"capital_percentage"`
	MaxLotSize        float64 `yaml:"max_lot_size"`
}

// DefaultLotConfig trades 10% of capital per entry, at most 100 lots.
func DefaultLotConfig() LotConfig {
	return LotConfig{
		Mode:              ModeVariable,
		FixedLotSize:      1.0,
		CapitalPercentage: 0.1,
		MaxLotSize:        100.0,
	}
}

// LotSize returns the order quantity for the given capital and price.
// Fixed mode returns the configured size unconditionally; whether the order
// is affordable is the ledger's call. Variable mode allocates
// capital*percentage at the current price, clamped to MaxLotSize. Degenerate
// inputs (non-positive or non-finite capital or price) yield zero so the
// engine skips execution naturally.
func (c LotConfig) LotSize(capital, price float64) float64 {
	if c.Mode == ModeFixed {
		return c.FixedLotSize
	}
	if capital <= 0 || price <= 0 ||
		math.IsNaN(capital) || math.IsNaN(price) ||
		math.IsInf(capital, 0) || math.IsInf(price, 0) {
		return 0
	}
	qty := capital * c.CapitalPercentage / price
	return math.Min(qty, c.MaxLotSize)
}
