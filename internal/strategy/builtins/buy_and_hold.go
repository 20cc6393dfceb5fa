// Package builtins provides the strategy implementations that ship with
// hindsight: buy-and-hold, SMA crossover, and RSI laddering.
package builtins

import (
	"hindsight/internal/domain"
	"hindsight/internal/sizing"
	"hindsight/internal/strategy"
)

// Compile-time interface check.
var _ strategy.Strategy = (*BuyAndHold)(nil)

// BuyAndHold buys once on the first affordable bar and never sells; the open
// position is marked to market at the final bar rather than force-closed.
type BuyAndHold struct {
	lots sizing.LotConfig

	hasEntered bool
}

// NewBuyAndHold creates a buy-and-hold strategy with the given lot sizing.
func NewBuyAndHold(lots sizing.LotConfig) *BuyAndHold {
	return &BuyAndHold{lots: lots}
}

// Name returns "buy-and-hold".
func (s *BuyAndHold) Name() string {
	return "buy-and-hold"
}

// Init resets the entered flag for a new run.
func (s *BuyAndHold) Init() error {
	s.hasEntered = false
	return nil
}

// OnBar emits a single buy on the first bar where sizing yields a positive
// quantity, and nothing afterwards.
func (s *BuyAndHold) OnBar(bar domain.Bar, _ int, _ []domain.Bar, acct domain.AccountState) ([]domain.Signal, error) {
	if s.hasEntered {
		return nil, nil
	}
	qty := s.lots.LotSize(acct.Cash, bar.Close)
	if qty <= 0 {
		return nil, nil
	}
	s.hasEntered = true
	return []domain.Signal{{Action: domain.ActionBuy, Quantity: qty, Level: -1}}, nil
}
