package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"hindsight/internal/domain"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver.
)

// Compile-time interface checks.
var _ BarStore = (*SQLiteStore)(nil)
var _ RunStore = (*SQLiteStore)(nil)

// SQLiteStore implements BarStore and RunStore backed by a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS bars (
	symbol    TEXT    NOT NULL,
	timestamp INTEGER NOT NULL, -- Unix ms
	open      REAL    NOT NULL,
	high      REAL    NOT NULL,
	low       REAL    NOT NULL,
	close     REAL    NOT NULL,
	volume    INTEGER NOT NULL,
	PRIMARY KEY (symbol, timestamp)
);

CREATE TABLE IF NOT EXISTS runs (
	id              INTEGER PRIMARY KEY AUTOINCREMENT,
	strategy        TEXT    NOT NULL,
	symbol          TEXT    NOT NULL,
	started_at      INTEGER NOT NULL, -- Unix ms
	initial_capital REAL    NOT NULL,
	final_equity    REAL    NOT NULL,
	total_return    REAL    NOT NULL,
	max_drawdown    REAL    NOT NULL,
	total_trades    INTEGER NOT NULL,
	signals_skipped INTEGER NOT NULL,
	state           TEXT    NOT NULL,
	report_json     TEXT    NOT NULL
);
`

// NewSQLiteStore opens (or creates) a SQLite database at dbPath, applies the
// schema, and returns a ready-to-use SQLiteStore.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("applying schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ---------------------------------------------------------------------------
// BarStore implementation
// ---------------------------------------------------------------------------

// WriteBars upserts a batch of bars in a single transaction, deduplicating on
// (symbol, timestamp).
func (s *SQLiteStore) WriteBars(ctx context.Context, bars []domain.Bar) error {
	if len(bars) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO bars (symbol, timestamp, open, high, low, close, volume)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (symbol, timestamp) DO UPDATE SET
			open = excluded.open, high = excluded.high, low = excluded.low,
			close = excluded.close, volume = excluded.volume`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, b := range bars {
		if _, err := stmt.ExecContext(ctx,
			b.Symbol, b.Timestamp.UnixMilli(), b.Open, b.High, b.Low, b.Close, b.Volume); err != nil {
			return fmt.Errorf("inserting bar %s@%s: %w", b.Symbol, b.Timestamp, err)
		}
	}
	return tx.Commit()
}

// ReadBars returns bars for the symbol within [start, end], ordered by
// timestamp ascending.
func (s *SQLiteStore) ReadBars(ctx context.Context, symbol string, start, end time.Time) ([]domain.Bar, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT symbol, timestamp, open, high, low, close, volume
		FROM bars
		WHERE symbol = ? AND timestamp >= ? AND timestamp <= ?
		ORDER BY timestamp ASC`,
		symbol, start.UnixMilli(), end.UnixMilli())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bars []domain.Bar
	for rows.Next() {
		var b domain.Bar
		var ts int64
		if err := rows.Scan(&b.Symbol, &ts, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume); err != nil {
			return nil, err
		}
		b.Timestamp = time.UnixMilli(ts).UTC()
		bars = append(bars, b)
	}
	return bars, rows.Err()
}

// ListSymbols returns all distinct symbols with stored bars, sorted.
func (s *SQLiteStore) ListSymbols(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT symbol FROM bars ORDER BY symbol`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var symbols []string
	for rows.Next() {
		var sym string
		if err := rows.Scan(&sym); err != nil {
			return nil, err
		}
		symbols = append(symbols, sym)
	}
	return symbols, rows.Err()
}

// ---------------------------------------------------------------------------
// RunStore implementation
// ---------------------------------------------------------------------------

// SaveRun inserts a run summary and returns its assigned ID.
func (s *SQLiteStore) SaveRun(ctx context.Context, rec *RunRecord) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (strategy, symbol, started_at, initial_capital, final_equity,
			total_return, max_drawdown, total_trades, signals_skipped, state, report_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.Strategy, rec.Symbol, rec.StartedAt.UnixMilli(), rec.InitialCapital,
		rec.FinalEquity, rec.TotalReturn, rec.MaxDrawdown, rec.TotalTrades,
		rec.SignalsSkipped, rec.State, rec.ReportJSON)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// ListRuns returns the most recent runs, newest first, up to limit.
func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, strategy, symbol, started_at, initial_capital, final_equity,
			total_return, max_drawdown, total_trades, signals_skipped, state, report_json
		FROM runs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recs []RunRecord
	for rows.Next() {
		var rec RunRecord
		var started int64
		if err := rows.Scan(&rec.ID, &rec.Strategy, &rec.Symbol, &started,
			&rec.InitialCapital, &rec.FinalEquity, &rec.TotalReturn, &rec.MaxDrawdown,
			&rec.TotalTrades, &rec.SignalsSkipped, &rec.State, &rec.ReportJSON); err != nil {
			return nil, err
		}
		rec.StartedAt = time.UnixMilli(started).UTC()
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}
