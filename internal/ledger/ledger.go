// Package ledger tracks cash, open positions, and completed trades for a
// simulation run, applying fills with configurable fee and slippage costs.
// It enforces the core solvency rule: cash never goes negative, and orders
// that would breach it are skipped rather than partially filled.
package ledger

import (
	"log/slog"

	"hindsight/internal/domain"
)

// FillConfig sets the per-fill cost model in basis points of notional.
// Slippage moves the fill price against the order; fees are charged on the
// slipped notional.
type FillConfig struct {
	FeeBps      float64 `yaml:"fee_bps"`
	SlippageBps float64 `yaml:"slippage_bps"`
}

// Ledger is the single-symbol account book for one run. It is not safe for
// concurrent use; the engine drives it from one goroutine.
type Ledger struct {
	cash      float64
	positions []domain.Position // FIFO, oldest first
	trades    []domain.Trade
	fill      FillConfig
	skipped   int
	log       *slog.Logger
}

// New creates a ledger seeded with the starting cash balance.
func New(initialCash float64, fill FillConfig, log *slog.Logger) *Ledger {
	if log == nil {
		log = slog.Default()
	}
	return &Ledger{cash: initialCash, fill: fill, log: log}
}

// ApplyBuy opens a position at the bar's close adjusted for slippage. Orders
// with non-positive quantity, or whose cost plus fee exceeds available cash,
// are skipped and counted; skipping is not an error.
func (l *Ledger) ApplyBuy(bar domain.Bar, qty, level float64) bool {
	if qty <= 0 {
		l.skip(bar, "non-positive quantity", qty)
		return false
	}
	fillPrice := bar.Close * (1 + l.fill.SlippageBps/10_000)
	cost := fillPrice * qty
	fee := cost * l.fill.FeeBps / 10_000
	if cost+fee > l.cash {
		l.skip(bar, "insufficient cash", qty)
		return false
	}
	l.cash -= cost + fee
	l.positions = append(l.positions, domain.Position{
		EntryPrice: fillPrice,
		Quantity:   qty,
		EntryTime:  bar.Timestamp,
		Level:      level,
	})
	return true
}

// ApplySell closes positions at the bar's close adjusted for slippage. With
// closeAll it flattens every open position oldest-first; otherwise it closes
// only the oldest. Each closed position becomes one completed trade whose PnL
// nets out entry and exit fees. A sell with nothing open is skipped.
func (l *Ledger) ApplySell(bar domain.Bar, closeAll bool) []domain.Trade {
	if len(l.positions) == 0 {
		l.skip(bar, "no open positions", 0)
		return nil
	}
	n := 1
	if closeAll {
		n = len(l.positions)
	}
	fillPrice := bar.Close * (1 - l.fill.SlippageBps/10_000)

	closed := make([]domain.Trade, 0, n)
	for _, pos := range l.positions[:n] {
		proceeds := fillPrice * pos.Quantity
		exitFee := proceeds * l.fill.FeeBps / 10_000
		entryFee := pos.EntryPrice * pos.Quantity * l.fill.FeeBps / 10_000
		l.cash += proceeds - exitFee

		tr := domain.Trade{
			EntryTime:  pos.EntryTime,
			ExitTime:   bar.Timestamp,
			EntryPrice: pos.EntryPrice,
			ExitPrice:  fillPrice,
			Quantity:   pos.Quantity,
			PnL:        (fillPrice-pos.EntryPrice)*pos.Quantity - entryFee - exitFee,
			Level:      pos.Level,
		}
		if pos.EntryPrice > 0 {
			tr.ReturnPct = (fillPrice - pos.EntryPrice) / pos.EntryPrice
		}
		closed = append(closed, tr)
	}
	l.positions = l.positions[n:]
	l.trades = append(l.trades, closed...)
	return closed
}

// MarkToMarket values every open position at the bar's close and returns the
// equity snapshot for that bar.
func (l *Ledger) MarkToMarket(bar domain.Bar) domain.Snapshot {
	var mv float64
	for _, pos := range l.positions {
		mv += pos.Quantity * bar.Close
	}
	return domain.Snapshot{
		Timestamp:   bar.Timestamp,
		Cash:        l.cash,
		MarketValue: mv,
		Equity:      l.cash + mv,
	}
}

func (l *Ledger) skip(bar domain.Bar, reason string, qty float64) {
	l.skipped++
	l.log.Warn("signal skipped",
		"reason", reason,
		"symbol", bar.Symbol,
		"time", bar.Timestamp,
		"qty", qty,
		"cash", l.cash)
}

// Cash returns the current cash balance.
func (l *Ledger) Cash() float64 { return l.cash }

// OpenPositionCount returns the number of open positions.
func (l *Ledger) OpenPositionCount() int { return len(l.positions) }

// Positions returns a copy of the open positions, oldest first.
func (l *Ledger) Positions() []domain.Position {
	out := make([]domain.Position, len(l.positions))
	copy(out, l.positions)
	return out
}

// Trades returns a copy of all completed trades in close order.
func (l *Ledger) Trades() []domain.Trade {
	out := make([]domain.Trade, len(l.trades))
	copy(out, l.trades)
	return out
}

// SkippedSignals returns how many signals were skipped as unexecutable.
func (l *Ledger) SkippedSignals() int { return l.skipped }
