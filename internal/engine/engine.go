// Package engine drives the bar-by-bar simulation loop: it feeds historical
// bars to a strategy in chronological order, executes the resulting signals
// against a ledger, and produces the run result with its performance report.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"hindsight/internal/analytics"
	"hindsight/internal/domain"
	"hindsight/internal/ledger"
	"hindsight/internal/strategy"
)

// State is the lifecycle phase of a simulation run.
type State string

const (
	StateInitialized State = "INITIALIZED"
	StateRunning     State = "RUNNING"
	StateCompleted   State = "COMPLETED"
	StateFailed      State = "FAILED"
)

// ErrNoData means the run was started with an empty bar series.
var ErrNoData = errors.New("no bars to simulate")

// Config holds the run parameters that are independent of the strategy.
type Config struct {
	InitialCapital float64
	PeriodsPerYear float64
	Fill           ledger.FillConfig
}

// Result is the complete outcome of one run. Open positions are those left
// unclosed at the final bar; they are marked to market in the equity curve
// but never force-liquidated.
type Result struct {
	Symbol         string             `json:"symbol"`
	Strategy       string             `json:"strategy"`
	State          State              `json:"state"`
	InitialCapital float64            `json:"initial_capital"`
	BarsProcessed  int                `json:"bars_processed"`
	Trades         []domain.Trade     `json:"trades"`
	OpenPositions  []domain.Position  `json:"open_positions"`
	EquityCurve    []domain.Snapshot  `json:"equity_curve"`
	SignalsSkipped int                `json:"signals_skipped"`
	Report         analytics.Report   `json:"report"`
}

// Engine runs one strategy over one bar series. A single Engine value may be
// reused for sequential runs; the strategy's Init resets its state each time.
type Engine struct {
	strat strategy.Strategy
	cfg   Config
	log   *slog.Logger
	state State
}

// New creates an engine in the INITIALIZED state.
func New(strat strategy.Strategy, cfg Config, log *slog.Logger) *Engine {
	if log == nil {
		log = slog.Default()
	}
	if cfg.PeriodsPerYear <= 0 {
		cfg.PeriodsPerYear = 252
	}
	return &Engine{strat: strat, cfg: cfg, log: log, state: StateInitialized}
}

// State returns the engine's current lifecycle state.
func (e *Engine) State() State { return e.state }

// Run simulates the strategy over bars, which must be non-empty, individually
// valid, and strictly increasing in time. Any violation fails the run; a
// partial Result carrying the FAILED state is returned alongside the error.
// Strategy errors are likewise fatal. Unexecutable or malformed signals are
// skipped and counted, not errors.
func (e *Engine) Run(ctx context.Context, bars []domain.Bar) (*Result, error) {
	res := &Result{
		Strategy:       e.strat.Name(),
		InitialCapital: e.cfg.InitialCapital,
		State:          StateFailed,
	}
	if len(bars) == 0 {
		e.state = StateFailed
		return res, ErrNoData
	}
	res.Symbol = bars[0].Symbol

	if err := e.strat.Init(); err != nil {
		e.state = StateFailed
		return res, fmt.Errorf("init strategy %s: %w", e.strat.Name(), err)
	}

	e.state = StateRunning
	book := ledger.New(e.cfg.InitialCapital, e.cfg.Fill, e.log)
	res.EquityCurve = make([]domain.Snapshot, 0, len(bars))

	for i, bar := range bars {
		if err := ctx.Err(); err != nil {
			return e.fail(res, book, i, err)
		}
		if err := bar.Validate(); err != nil {
			return e.fail(res, book, i, fmt.Errorf("bar %d: %w", i, err))
		}
		if i > 0 && !bar.Timestamp.After(bars[i-1].Timestamp) {
			return e.fail(res, book, i, fmt.Errorf("bar %d: timestamp %s not after previous %s",
				i, bar.Timestamp, bars[i-1].Timestamp))
		}

		acct := domain.AccountState{
			Cash:          book.Cash(),
			Equity:        book.MarkToMarket(bar).Equity,
			OpenPositions: book.OpenPositionCount(),
		}
		signals, err := e.strat.OnBar(bar, i, bars[:i+1], acct)
		if err != nil {
			return e.fail(res, book, i, fmt.Errorf("strategy %s at bar %d: %w", e.strat.Name(), i, err))
		}

		for _, sig := range signals {
			switch sig.Action {
			case domain.ActionBuy:
				book.ApplyBuy(bar, sig.Quantity, sig.Level)
			case domain.ActionSell:
				book.ApplySell(bar, sig.CloseAll)
			case domain.ActionHold:
				// no-op
			default:
				// Malformed signals are recoverable: drop, count, keep going.
				res.SignalsSkipped++
				e.log.Warn("signal skipped",
					"reason", "unknown action",
					"action", string(sig.Action),
					"strategy", res.Strategy,
					"time", bar.Timestamp)
			}
		}

		res.EquityCurve = append(res.EquityCurve, book.MarkToMarket(bar))
		res.BarsProcessed = i + 1
	}

	e.state = StateCompleted
	res.State = StateCompleted
	res.Trades = book.Trades()
	res.OpenPositions = book.Positions()
	res.SignalsSkipped += book.SkippedSignals()
	res.Report = analytics.BuildReport(res.EquityCurve, res.Trades, e.cfg.InitialCapital, e.cfg.PeriodsPerYear)

	e.log.Info("run completed",
		"strategy", res.Strategy,
		"symbol", res.Symbol,
		"bars", res.BarsProcessed,
		"trades", len(res.Trades),
		"open_positions", len(res.OpenPositions),
		"skipped", res.SignalsSkipped,
		"final_equity", res.Report.FinalEquity)
	return res, nil
}

func (e *Engine) fail(res *Result, book *ledger.Ledger, barIndex int, err error) (*Result, error) {
	e.state = StateFailed
	res.State = StateFailed
	res.Trades = book.Trades()
	res.OpenPositions = book.Positions()
	res.SignalsSkipped += book.SkippedSignals()
	e.log.Error("run failed", "strategy", res.Strategy, "bar", barIndex, "error", err)
	return res, err
}
