// Command hindsight runs a trading strategy simulation over stored or
// CSV-supplied bar history and prints the performance report.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"hindsight/internal/config"
	"hindsight/internal/domain"
	"hindsight/internal/engine"
	"hindsight/internal/store"
	"hindsight/internal/strategy"
	"hindsight/internal/strategy/builtins"
	"hindsight/internal/util"
)

func main() {
	var (
		cfgPath       = flag.String("config", "", "path to YAML config (optional)")
		symbol        = flag.String("symbol", "", "symbol to simulate")
		csvPath       = flag.String("csv", "", "load bars from a CSV file instead of the store")
		strategyName  = flag.String("strategy", "", "strategy to run (overrides config)")
		startStr      = flag.String("start", "", "start date YYYY-MM-DD (store mode)")
		endStr        = flag.String("end", "", "end date YYYY-MM-DD (store mode)")
		capital       = flag.Float64("capital", 0, "initial capital (overrides config)")
		outPath       = flag.String("out", "", "write the JSON report to this file instead of stdout")
		exportTrades  = flag.String("export-trades", "", "write completed trades to a Parquet file")
		exportEquity  = flag.String("export-equity", "", "write the equity curve to a Parquet file")
		listStrats    = flag.Bool("list-strategies", false, "list available strategies and exit")
	)
	flag.Parse()

	// .env is optional; missing files are fine.
	_ = godotenv.Load()

	cfg := loadConfig(*cfgPath)
	logger := util.NewLogger(cfg.Logging.Level, cfg.Logging.Format)
	util.SetDefault(logger)

	if *strategyName != "" {
		cfg.Backtest.Strategy = *strategyName
	}
	if *capital > 0 {
		cfg.Backtest.InitialCapital = *capital
	}

	registry := strategy.NewRegistry()
	for _, name := range []string{"buy-and-hold", "sma-cross", "rsi-ladder"} {
		s, err := builtins.FromConfig(name, nil, nil, cfg.Backtest.Lot)
		if err != nil {
			log.Fatalf("building strategy %s: %v", name, err)
		}
		registry.Register(s)
	}
	// The configured strategy replaces its default-parameter twin.
	strat, err := builtins.FromConfig(cfg.Backtest.Strategy, cfg.Backtest.Params, cfg.Backtest.EntryLevels, cfg.Backtest.Lot)
	if err != nil {
		log.Fatalf("building strategy: %v", err)
	}
	registry.Register(strat)

	if *listStrats {
		fmt.Println(strings.Join(registry.List(), "\n"))
		return
	}
	if *symbol == "" {
		log.Fatal("-symbol is required")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	runCfg := engine.Config{
		InitialCapital: cfg.Backtest.InitialCapital,
		PeriodsPerYear: cfg.Backtest.PeriodsPerYear,
		Fill:           cfg.Backtest.Fill,
	}

	var res *engine.Result
	if *csvPath != "" {
		bars, err := store.LoadCSV(*csvPath, *symbol)
		if err != nil {
			log.Fatalf("loading %s: %v", *csvPath, err)
		}
		res, err = engine.New(strat, runCfg, logger).Run(ctx, bars)
		if err != nil {
			log.Fatalf("run failed: %v", err)
		}
	} else {
		start, end := parseRange(*startStr, *endStr)
		barStore, sqlStore := openStores(cfg)
		if sqlStore != nil {
			defer sqlStore.Close()
		}

		bt := engine.NewBacktester(barStore, registry, logger)
		res, err = bt.Run(ctx, cfg.Backtest.Strategy, *symbol, start, end, runCfg)
		if err != nil {
			log.Fatalf("run failed: %v", err)
		}

		if sqlStore != nil {
			saveRun(ctx, sqlStore, res)
		}
	}

	if *exportTrades != "" {
		if err := store.ExportTrades(*exportTrades, res.Trades); err != nil {
			log.Fatalf("exporting trades: %v", err)
		}
	}
	if *exportEquity != "" {
		if err := store.ExportEquityCurve(*exportEquity, res.EquityCurve); err != nil {
			log.Fatalf("exporting equity curve: %v", err)
		}
	}

	writeReport(res, *outPath)
}

func loadConfig(path string) *config.Config {
	if path == "" {
		return config.Default()
	}
	cfg, err := config.Load(path)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}
	return cfg
}

func parseRange(startStr, endStr string) (time.Time, time.Time) {
	start := time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Now().UTC()
	var err error
	if startStr != "" {
		if start, err = time.Parse("2006-01-02", startStr); err != nil {
			log.Fatalf("parsing -start: %v", err)
		}
	}
	if endStr != "" {
		if end, err = time.Parse("2006-01-02", endStr); err != nil {
			log.Fatalf("parsing -end: %v", err)
		}
		end = end.Add(24*time.Hour - time.Nanosecond) // inclusive end date
	}
	return start, end
}

// openStores returns the configured bar store, plus the SQLite store when it
// is the backend so the run summary can be saved.
func openStores(cfg *config.Config) (store.BarStore, *store.SQLiteStore) {
	switch cfg.Storage.Backend {
	case "parquet":
		return store.NewParquetStore(cfg.Storage.DataDir), nil
	default:
		s, err := store.NewSQLiteStore(cfg.Storage.SQLitePath)
		if err != nil {
			log.Fatalf("opening sqlite store: %v", err)
		}
		return s, s
	}
}

func saveRun(ctx context.Context, runs store.RunStore, res *engine.Result) {
	reportJSON, err := json.Marshal(res.Report)
	if err != nil {
		log.Fatalf("encoding report: %v", err)
	}
	id, err := runs.SaveRun(ctx, &store.RunRecord{
		Strategy:       res.Strategy,
		Symbol:         res.Symbol,
		StartedAt:      time.Now().UTC(),
		InitialCapital: res.InitialCapital,
		FinalEquity:    res.Report.FinalEquity,
		TotalReturn:    res.Report.TotalReturn,
		MaxDrawdown:    res.Report.MaxDrawdown,
		TotalTrades:    res.Report.TotalTrades,
		SignalsSkipped: res.SignalsSkipped,
		State:          string(res.State),
		ReportJSON:     string(reportJSON),
	})
	if err != nil {
		log.Fatalf("saving run: %v", err)
	}
	fmt.Fprintf(os.Stderr, "saved run %d\n", id)
}

func writeReport(res *engine.Result, outPath string) {
	out := struct {
		Symbol         string            `json:"symbol"`
		Strategy       string            `json:"strategy"`
		State          engine.State      `json:"state"`
		BarsProcessed  int               `json:"bars_processed"`
		SignalsSkipped int               `json:"signals_skipped"`
		OpenPositions  []domain.Position `json:"open_positions"`
		Trades         []domain.Trade    `json:"trades"`
		Report         any               `json:"report"`
	}{
		Symbol:         res.Symbol,
		Strategy:       res.Strategy,
		State:          res.State,
		BarsProcessed:  res.BarsProcessed,
		SignalsSkipped: res.SignalsSkipped,
		OpenPositions:  res.OpenPositions,
		Trades:         res.Trades,
		Report:         res.Report,
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		log.Fatalf("encoding result: %v", err)
	}
	if outPath == "" {
		fmt.Println(string(data))
		return
	}
	if err := os.WriteFile(outPath, append(data, '\n'), 0o644); err != nil {
		log.Fatalf("writing %s: %v", outPath, err)
	}
}
