package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"hindsight/internal/store"
	"hindsight/internal/strategy"
)

// Backtester runs registered strategies over stored bar history. It is the
// glue between the bar store, the strategy registry, and the engine loop.
type Backtester struct {
	bars     store.BarStore
	registry *strategy.Registry
	log      *slog.Logger
}

// NewBacktester creates a Backtester reading bars from the given store.
func NewBacktester(bars store.BarStore, registry *strategy.Registry, log *slog.Logger) *Backtester {
	if log == nil {
		log = slog.Default()
	}
	return &Backtester{bars: bars, registry: registry, log: log}
}

// Run loads bars for symbol in [start, end], looks up the named strategy, and
// simulates it with the given run configuration.
func (b *Backtester) Run(ctx context.Context, strategyName, symbol string, start, end time.Time, cfg Config) (*Result, error) {
	strat, ok := b.registry.Get(strategyName)
	if !ok {
		return nil, fmt.Errorf("unknown strategy %q (available: %s)",
			strategyName, strings.Join(b.registry.List(), ", "))
	}

	bars, err := b.bars.ReadBars(ctx, symbol, start, end)
	if err != nil {
		return nil, fmt.Errorf("reading bars for %s: %w", symbol, err)
	}

	b.log.Info("starting run",
		"strategy", strategyName,
		"symbol", symbol,
		"start", start.Format("2006-01-02"),
		"end", end.Format("2006-01-02"),
		"bars", len(bars),
		"initial_capital", cfg.InitialCapital)

	return New(strat, cfg, b.log).Run(ctx, bars)
}
