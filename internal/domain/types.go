// Package domain defines the core data types shared across the hindsight
// backtesting system: market bars, trading signals, positions, completed
// trades, and portfolio snapshots.
package domain

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// ErrInvalidBar reports a bar with non-finite or inconsistent OHLCV fields.
// A run that encounters one is aborted rather than producing partial results.
var ErrInvalidBar = errors.New("invalid bar")

// Bar is a single OHLCV observation for a fixed time interval. Bars are
// immutable once loaded; the engine iterates them in chronological order.
type Bar struct {
	Symbol    string
	Timestamp time.Time
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    int64
}

// Validate checks that all price fields are finite and non-negative, that
// volume is non-negative, and that low ≤ min(open, close) ≤ max(open, close) ≤ high.
func (b Bar) Validate() error {
	for _, p := range []float64{b.Open, b.High, b.Low, b.Close} {
		if math.IsNaN(p) || math.IsInf(p, 0) {
			return fmt.Errorf("%w: non-finite price at %s", ErrInvalidBar, b.Timestamp.Format(time.RFC3339))
		}
		if p < 0 {
			return fmt.Errorf("%w: negative price at %s", ErrInvalidBar, b.Timestamp.Format(time.RFC3339))
		}
	}
	if b.Volume < 0 {
		return fmt.Errorf("%w: negative volume at %s", ErrInvalidBar, b.Timestamp.Format(time.RFC3339))
	}
	if b.High < math.Max(b.Open, b.Close) || b.Low > math.Min(b.Open, b.Close) {
		return fmt.Errorf("%w: high/low outside open/close range at %s", ErrInvalidBar, b.Timestamp.Format(time.RFC3339))
	}
	return nil
}

// SignalAction is the instruction carried by a Signal.
type SignalAction string

const (
	ActionBuy  SignalAction = "buy"
	ActionSell SignalAction = "sell"
	ActionHold SignalAction = "hold"
)

// Signal is a strategy's instruction for the current bar. Signals are
// produced and consumed within one simulation step and never retained.
type Signal struct {
	Action   SignalAction
	Quantity float64 // lots; required for buys, ignored when CloseAll is set
	CloseAll bool    // sell: liquidate every open position (FIFO order)
	Level    float64 // entry level for laddering strategies, -1 otherwise
}

// Position is an open stake owned by the ledger.
type Position struct {
	EntryPrice float64   `json:"entry_price"`
	Quantity   float64   `json:"quantity"`
	EntryTime  time.Time `json:"entry_time"`
	Level      float64   `json:"level"` // strategy tag, -1 when unused
}

// Trade is a closed round-trip. Trades are immutable once created and are
// appended to the ledger's ordered trade history.
type Trade struct {
	EntryTime  time.Time `json:"entry_time"`
	ExitTime   time.Time `json:"exit_time"`
	EntryPrice float64   `json:"entry_price"`
	ExitPrice  float64   `json:"exit_price"`
	Quantity   float64   `json:"quantity"`
	PnL        float64   `json:"pnl"`
	ReturnPct  float64   `json:"return_pct"` // percentage return on the entry price
	Level      float64   `json:"level"`
}

// Snapshot is the portfolio equity state at one bar. The invariant
// Cash + MarketValue == Equity holds at every snapshot.
type Snapshot struct {
	Timestamp   time.Time `json:"timestamp"`
	Cash        float64   `json:"cash"`
	MarketValue float64   `json:"market_value"`
	Equity      float64   `json:"equity"`
}

// AccountState is the read-only view of the portfolio handed to a strategy
// on each bar, so it can size orders and bound its open-position count.
type AccountState struct {
	Cash          float64
	Equity        float64
	OpenPositions int
}
