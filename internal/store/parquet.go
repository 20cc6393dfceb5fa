package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/parquet-go/parquet-go"

	"hindsight/internal/domain"
)

// Compile-time interface check.
var _ BarStore = (*ParquetStore)(nil)

// ParquetStore implements BarStore using Parquet files on disk, and exports
// run artifacts (trade lists, equity curves) in the same format.
type ParquetStore struct {
	DataDir string
}

// NewParquetStore creates a ParquetStore rooted at the given data directory.
func NewParquetStore(dataDir string) *ParquetStore {
	return &ParquetStore{DataDir: dataDir}
}

// ---------------------------------------------------------------------------
// Parquet record types (on-disk schema)
// ---------------------------------------------------------------------------

// BarRecord is the Parquet schema for daily bar data.
type BarRecord struct {
	Symbol    string  `parquet:"symbol"`
	Timestamp int64   `parquet:"timestamp,timestamp(millisecond)"` // Unix ms
	Open      float64 `parquet:"open"`
	High      float64 `parquet:"high"`
	Low       float64 `parquet:"low"`
	Close     float64 `parquet:"close"`
	Volume    int64   `parquet:"volume"`
}

// TradeRecord is the Parquet schema for exported completed trades.
type TradeRecord struct {
	EntryTime  int64   `parquet:"entry_time,timestamp(millisecond)"`
	ExitTime   int64   `parquet:"exit_time,timestamp(millisecond)"`
	EntryPrice float64 `parquet:"entry_price"`
	ExitPrice  float64 `parquet:"exit_price"`
	Quantity   float64 `parquet:"quantity"`
	PnL        float64 `parquet:"pnl"`
	ReturnPct  float64 `parquet:"return_pct"`
	Level      float64 `parquet:"level"`
}

// EquityRecord is the Parquet schema for exported equity curves.
type EquityRecord struct {
	Timestamp   int64   `parquet:"timestamp,timestamp(millisecond)"`
	Cash        float64 `parquet:"cash"`
	MarketValue float64 `parquet:"market_value"`
	Equity      float64 `parquet:"equity"`
}

// ---------------------------------------------------------------------------
// BarStore implementation
// ---------------------------------------------------------------------------

// WriteBars writes bar data to Parquet files organized by symbol and year.
// Each symbol+year combination produces a separate file at:
//
//	<DataDir>/daily/<SYMBOL>/<YYYY>.parquet
func (s *ParquetStore) WriteBars(_ context.Context, bars []domain.Bar) error {
	if len(bars) == 0 {
		return nil
	}

	type key struct {
		symbol string
		year   int
	}
	groups := make(map[key][]BarRecord)
	for _, b := range bars {
		k := key{symbol: b.Symbol, year: b.Timestamp.Year()}
		groups[k] = append(groups[k], BarRecord{
			Symbol:    b.Symbol,
			Timestamp: b.Timestamp.UnixMilli(),
			Open:      b.Open,
			High:      b.High,
			Low:       b.Low,
			Close:     b.Close,
			Volume:    b.Volume,
		})
	}

	for k, records := range groups {
		path := s.barPath(k.symbol, k.year)

		// Read existing records to merge.
		existing, _ := readParquetFile[BarRecord](path)
		merged := mergeBarRecords(existing, records)

		if err := writeParquetFile(path, merged); err != nil {
			return fmt.Errorf("writing bars for %s/%d: %w", k.symbol, k.year, err)
		}
	}
	return nil
}

// ReadBars reads bar data from Parquet files for the given symbol and time
// range, sorted by timestamp. Missing year files are skipped.
func (s *ParquetStore) ReadBars(_ context.Context, symbol string, start, end time.Time) ([]domain.Bar, error) {
	var bars []domain.Bar
	for year := start.Year(); year <= end.Year(); year++ {
		records, err := readParquetFile[BarRecord](s.barPath(symbol, year))
		if err != nil {
			continue
		}
		for _, r := range records {
			ts := time.UnixMilli(r.Timestamp).UTC()
			if !ts.Before(start) && !ts.After(end) {
				bars = append(bars, domain.Bar{
					Symbol:    r.Symbol,
					Timestamp: ts,
					Open:      r.Open,
					High:      r.High,
					Low:       r.Low,
					Close:     r.Close,
					Volume:    r.Volume,
				})
			}
		}
	}
	sort.Slice(bars, func(i, j int) bool { return bars[i].Timestamp.Before(bars[j].Timestamp) })
	return bars, nil
}

// ListSymbols lists all symbols that have stored bar data.
func (s *ParquetStore) ListSymbols(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(s.DataDir, "daily"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var symbols []string
	for _, e := range entries {
		if e.IsDir() {
			symbols = append(symbols, e.Name())
		}
	}
	sort.Strings(symbols)
	return symbols, nil
}

// ---------------------------------------------------------------------------
// Run artifact exports
// ---------------------------------------------------------------------------

// ExportTrades writes a completed-trade list to a Parquet file at path.
func ExportTrades(path string, trades []domain.Trade) error {
	records := make([]TradeRecord, len(trades))
	for i, t := range trades {
		records[i] = TradeRecord{
			EntryTime:  t.EntryTime.UnixMilli(),
			ExitTime:   t.ExitTime.UnixMilli(),
			EntryPrice: t.EntryPrice,
			ExitPrice:  t.ExitPrice,
			Quantity:   t.Quantity,
			PnL:        t.PnL,
			ReturnPct:  t.ReturnPct,
			Level:      t.Level,
		}
	}
	return writeParquetFile(path, records)
}

// ExportEquityCurve writes an equity curve to a Parquet file at path.
func ExportEquityCurve(path string, curve []domain.Snapshot) error {
	records := make([]EquityRecord, len(curve))
	for i, snap := range curve {
		records[i] = EquityRecord{
			Timestamp:   snap.Timestamp.UnixMilli(),
			Cash:        snap.Cash,
			MarketValue: snap.MarketValue,
			Equity:      snap.Equity,
		}
	}
	return writeParquetFile(path, records)
}

// ---------------------------------------------------------------------------
// Path and file helpers
// ---------------------------------------------------------------------------

// barPath returns the filesystem path for a bar Parquet file.
// Layout: <dataDir>/daily/<SYMBOL>/<YYYY>.parquet
func (s *ParquetStore) barPath(symbol string, year int) string {
	return filepath.Join(s.DataDir, "daily", strings.ToUpper(symbol), fmt.Sprintf("%d.parquet", year))
}

func writeParquetFile[T any](path string, records []T) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return parquet.WriteFile(path, records)
}

func readParquetFile[T any](path string) ([]T, error) {
	rows, err := parquet.ReadFile[T](path)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// mergeBarRecords deduplicates bar records by (symbol, timestamp), preferring
// incoming records over existing ones. Results are sorted by timestamp.
func mergeBarRecords(existing, incoming []BarRecord) []BarRecord {
	type key struct {
		symbol string
		ts     int64
	}
	seen := make(map[key]BarRecord, len(existing)+len(incoming))
	for _, r := range existing {
		seen[key{r.Symbol, r.Timestamp}] = r
	}
	for _, r := range incoming {
		seen[key{r.Symbol, r.Timestamp}] = r
	}

	merged := make([]BarRecord, 0, len(seen))
	for _, r := range seen {
		merged = append(merged, r)
	}
	sort.Slice(merged, func(i, j int) bool {
		return merged[i].Timestamp < merged[j].Timestamp
	})
	return merged
}
