package store

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"hindsight/internal/domain"
)

func testBar(symbol string, ts time.Time, close float64) domain.Bar {
	return domain.Bar{
		Symbol:    symbol,
		Timestamp: ts,
		Open:      close - 1,
		High:      close + 1,
		Low:       close - 2,
		Close:     close,
		Volume:    1_000_000,
	}
}

func TestParquetStorePath(t *testing.T) {
	ps := NewParquetStore("/data")

	bp := ps.barPath("aapl", 2024)
	want := filepath.Join("/data", "daily", "AAPL", "2024.parquet")
	if bp != want {
		t.Errorf("barPath mismatch:\n  got  %s\n  want %s", bp, want)
	}
	if !strings.Contains(bp, "AAPL") {
		t.Errorf("barPath should upper-case the symbol: %s", bp)
	}
}

func TestParquetStoreWriteReadBars(t *testing.T) {
	ps := NewParquetStore(t.TempDir())
	ctx := context.Background()

	bars := []domain.Bar{
		testBar("AAPL", time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), 185.5),
		testBar("AAPL", time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC), 186.0),
	}
	if err := ps.WriteBars(ctx, bars); err != nil {
		t.Fatalf("WriteBars: %v", err)
	}

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)
	got, err := ps.ReadBars(ctx, "AAPL", start, end)
	if err != nil {
		t.Fatalf("ReadBars: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("ReadBars returned %d bars, want 2", len(got))
	}
	if got[0].Close != 185.5 || got[1].Close != 186.0 {
		t.Errorf("closes = [%v %v], want [185.5 186.0]", got[0].Close, got[1].Close)
	}
}

func TestParquetStoreMergeBars(t *testing.T) {
	ps := NewParquetStore(t.TempDir())
	ctx := context.Background()

	first := testBar("MSFT", time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), 403)
	if err := ps.WriteBars(ctx, []domain.Bar{first}); err != nil {
		t.Fatalf("WriteBars (first): %v", err)
	}

	// Second write for the same symbol+year must merge, not overwrite.
	second := testBar("MSFT", time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC), 408)
	if err := ps.WriteBars(ctx, []domain.Bar{second}); err != nil {
		t.Fatalf("WriteBars (second): %v", err)
	}

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)
	got, err := ps.ReadBars(ctx, "MSFT", start, end)
	if err != nil {
		t.Fatalf("ReadBars: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("ReadBars returned %d bars after merge, want 2", len(got))
	}
}

func TestParquetStoreListSymbols(t *testing.T) {
	ps := NewParquetStore(t.TempDir())
	ctx := context.Background()

	bars := []domain.Bar{
		testBar("AAPL", time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), 185.5),
		testBar("GOOGL", time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), 140.5),
	}
	if err := ps.WriteBars(ctx, bars); err != nil {
		t.Fatalf("WriteBars: %v", err)
	}

	symbols, err := ps.ListSymbols(ctx)
	if err != nil {
		t.Fatalf("ListSymbols: %v", err)
	}
	if len(symbols) != 2 || symbols[0] != "AAPL" || symbols[1] != "GOOGL" {
		t.Errorf("ListSymbols = %v, want [AAPL GOOGL]", symbols)
	}
}

func TestExportTradesAndEquityCurve(t *testing.T) {
	dir := t.TempDir()
	ts := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	trades := []domain.Trade{{
		EntryTime: ts, ExitTime: ts.AddDate(0, 0, 5),
		EntryPrice: 100, ExitPrice: 110, Quantity: 10, PnL: 100, ReturnPct: 0.1, Level: -1,
	}}
	tradePath := filepath.Join(dir, "trades.parquet")
	if err := ExportTrades(tradePath, trades); err != nil {
		t.Fatalf("ExportTrades: %v", err)
	}
	gotTrades, err := readParquetFile[TradeRecord](tradePath)
	if err != nil {
		t.Fatalf("reading exported trades: %v", err)
	}
	if len(gotTrades) != 1 || gotTrades[0].PnL != 100 {
		t.Errorf("exported trades = %+v, want one trade with PnL 100", gotTrades)
	}

	curve := []domain.Snapshot{{Timestamp: ts, Cash: 500, MarketValue: 1100, Equity: 1600}}
	curvePath := filepath.Join(dir, "equity.parquet")
	if err := ExportEquityCurve(curvePath, curve); err != nil {
		t.Fatalf("ExportEquityCurve: %v", err)
	}
	gotCurve, err := readParquetFile[EquityRecord](curvePath)
	if err != nil {
		t.Fatalf("reading exported curve: %v", err)
	}
	if len(gotCurve) != 1 || gotCurve[0].Equity != 1600 {
		t.Errorf("exported curve = %+v, want one point with equity 1600", gotCurve)
	}
}

func TestSQLiteStoreWriteReadBars(t *testing.T) {
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	defer s.Close()
	ctx := context.Background()

	bars := []domain.Bar{
		testBar("SPY", time.Date(2024, 2, 2, 0, 0, 0, 0, time.UTC), 495),
		testBar("SPY", time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), 490),
	}
	if err := s.WriteBars(ctx, bars); err != nil {
		t.Fatalf("WriteBars: %v", err)
	}

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)
	got, err := s.ReadBars(ctx, "SPY", start, end)
	if err != nil {
		t.Fatalf("ReadBars: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("ReadBars returned %d bars, want 2", len(got))
	}
	// Must come back ordered by timestamp regardless of insert order.
	if !got[0].Timestamp.Before(got[1].Timestamp) {
		t.Errorf("bars not ordered: %v then %v", got[0].Timestamp, got[1].Timestamp)
	}
}

func TestSQLiteStoreUpsertDeduplicates(t *testing.T) {
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	defer s.Close()
	ctx := context.Background()

	ts := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	if err := s.WriteBars(ctx, []domain.Bar{testBar("SPY", ts, 490)}); err != nil {
		t.Fatalf("WriteBars (first): %v", err)
	}
	if err := s.WriteBars(ctx, []domain.Bar{testBar("SPY", ts, 491)}); err != nil {
		t.Fatalf("WriteBars (second): %v", err)
	}

	got, err := s.ReadBars(ctx, "SPY", ts, ts)
	if err != nil {
		t.Fatalf("ReadBars: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("ReadBars returned %d bars, want 1 (deduplicated)", len(got))
	}
	if got[0].Close != 491 {
		t.Errorf("Close = %v, want 491 (latest write wins)", got[0].Close)
	}
}

func TestSQLiteStoreSaveListRuns(t *testing.T) {
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	defer s.Close()
	ctx := context.Background()

	rec := &RunRecord{
		Strategy:       "sma-cross",
		Symbol:         "AAPL",
		StartedAt:      time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
		InitialCapital: 100_000,
		FinalEquity:    105_000,
		TotalReturn:    0.05,
		MaxDrawdown:    0.02,
		TotalTrades:    7,
		SignalsSkipped: 1,
		State:          "COMPLETED",
		ReportJSON:     `{"total_return":0.05}`,
	}
	id, err := s.SaveRun(ctx, rec)
	if err != nil {
		t.Fatalf("SaveRun: %v", err)
	}
	if id <= 0 {
		t.Errorf("SaveRun id = %d, want > 0", id)
	}

	runs, err := s.ListRuns(ctx, 10)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("ListRuns returned %d runs, want 1", len(runs))
	}
	got := runs[0]
	if got.Strategy != "sma-cross" || got.TotalTrades != 7 || got.State != "COMPLETED" {
		t.Errorf("run = %+v, want saved values back", got)
	}
	if !got.StartedAt.Equal(rec.StartedAt) {
		t.Errorf("StartedAt = %v, want %v", got.StartedAt, rec.StartedAt)
	}
}

func TestLoadCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bars.csv")
	rows := [][]string{
		{"timestamp", "open", "high", "low", "close", "volume"},
		{"2024-01-02", "185.0", "186.5", "184.0", "185.5", "50000000"},
		{"2024-01-03", "185.5", "187.0", "185.0", "186.0", "45000000"},
	}
	writeCSV(t, path, rows)

	bars, err := LoadCSV(path, "AAPL")
	if err != nil {
		t.Fatalf("LoadCSV: %v", err)
	}
	if len(bars) != 2 {
		t.Fatalf("LoadCSV returned %d bars, want 2", len(bars))
	}
	if bars[0].Symbol != "AAPL" {
		t.Errorf("Symbol = %q, want AAPL", bars[0].Symbol)
	}
	if bars[0].Close != 185.5 || bars[1].Volume != 45_000_000 {
		t.Errorf("parsed values wrong: %+v", bars)
	}
}

func TestLoadCSVRejectsBadRows(t *testing.T) {
	cases := []struct {
		name string
		rows [][]string
	}{
		{
			"missing column",
			[][]string{{"timestamp", "open", "high", "low", "close"}},
		},
		{
			"bad price",
			[][]string{
				{"timestamp", "open", "high", "low", "close", "volume"},
				{"2024-01-02", "x", "186.5", "184.0", "185.5", "50000000"},
			},
		},
		{
			"invalid bar geometry",
			[][]string{
				{"timestamp", "open", "high", "low", "close", "volume"},
				{"2024-01-02", "185.0", "180.0", "184.0", "185.5", "50000000"}, // high < open
			},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "bars.csv")
			writeCSV(t, path, tc.rows)
			if _, err := LoadCSV(path, "AAPL"); err == nil {
				t.Error("LoadCSV accepted malformed input")
			}
		})
	}
}

func writeCSV(t *testing.T, path string, rows [][]string) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("creating csv: %v", err)
	}
	defer f.Close()
	w := csv.NewWriter(f)
	if err := w.WriteAll(rows); err != nil {
		t.Fatalf("writing csv: %v", err)
	}
}
