// Package store defines storage interfaces for persisting and retrieving
// bar history and completed simulation runs, with Parquet and SQLite backends.
package store

import (
	"context"
	"time"

	"hindsight/internal/domain"
)

// BarStore persists and retrieves OHLCV bar data.
type BarStore interface {
	// WriteBars persists a batch of bars to storage, merging with and
	// deduplicating against any bars already present.
	WriteBars(ctx context.Context, bars []domain.Bar) error

	// ReadBars returns bars for the given symbol within [start, end],
	// sorted by timestamp ascending.
	ReadBars(ctx context.Context, symbol string, start, end time.Time) ([]domain.Bar, error)

	// ListSymbols returns all distinct symbols with stored bars.
	ListSymbols(ctx context.Context) ([]string, error)
}

// RunRecord is the persisted summary of one completed simulation run.
type RunRecord struct {
	ID             int64
	Strategy       string
	Symbol         string
	StartedAt      time.Time
	InitialCapital float64
	FinalEquity    float64
	TotalReturn    float64
	MaxDrawdown    float64
	TotalTrades    int
	SignalsSkipped int
	State          string
	ReportJSON     string
}

// RunStore persists and retrieves simulation run summaries.
type RunStore interface {
	// SaveRun inserts a run summary and returns its assigned ID.
	SaveRun(ctx context.Context, rec *RunRecord) (int64, error)

	// ListRuns returns the most recent runs, newest first, up to limit.
	ListRuns(ctx context.Context, limit int) ([]RunRecord, error)
}
