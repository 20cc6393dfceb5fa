// Command hindsight-fetch downloads historical daily bars from the Alpaca
// market-data API into the configured bar store.
package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"hindsight/internal/config"
	"hindsight/internal/fetch"
	"hindsight/internal/store"
	"hindsight/internal/util"
)

func main() {
	var (
		cfgPath    = flag.String("config", "", "path to YAML config (optional)")
		symbolsCSV = flag.String("symbols", "", "comma-separated symbols to fetch (required)")
		startStr   = flag.String("start", "", "start date YYYY-MM-DD (default: config fetch.start_date)")
		endStr     = flag.String("end", "", "end date YYYY-MM-DD (default: yesterday)")
	)
	flag.Parse()

	_ = godotenv.Load()

	cfg := config.Default()
	if *cfgPath != "" {
		var err error
		if cfg, err = config.Load(*cfgPath); err != nil {
			log.Fatalf("loading config: %v", err)
		}
	}

	logger := util.NewLogger(cfg.Logging.Level, cfg.Logging.Format)
	util.SetDefault(logger)

	if cfg.Alpaca.APIKey == "" || cfg.Alpaca.APISecret == "" {
		log.Fatal("Alpaca credentials missing: set APCA_API_KEY_ID and APCA_API_SECRET_KEY")
	}

	var symbols []string
	for _, s := range strings.Split(*symbolsCSV, ",") {
		if s = strings.ToUpper(strings.TrimSpace(s)); s != "" {
			symbols = append(symbols, s)
		}
	}
	if len(symbols) == 0 {
		log.Fatal("-symbols is required")
	}

	start, end := fetchRange(cfg, *startStr, *endStr)

	var barStore store.BarStore
	switch cfg.Storage.Backend {
	case "parquet":
		barStore = store.NewParquetStore(cfg.Storage.DataDir)
	default:
		s, err := store.NewSQLiteStore(cfg.Storage.SQLitePath)
		if err != nil {
			log.Fatalf("opening sqlite store: %v", err)
		}
		defer s.Close()
		barStore = s
	}

	fetcher := fetch.NewDailyBarFetcher(
		cfg.Alpaca.APIKey,
		cfg.Alpaca.APISecret,
		cfg.Alpaca.DataURL,
		barStore,
		cfg.Fetch.BatchSize,
		cfg.Fetch.MaxWorkers,
		cfg.Fetch.RateLimitPerMin,
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := fetcher.Fetch(ctx, symbols, start, end); err != nil {
		log.Fatalf("fetch failed: %v", err)
	}
}

func fetchRange(cfg *config.Config, startStr, endStr string) (time.Time, time.Time) {
	if startStr == "" {
		startStr = cfg.Fetch.StartDate
	}
	start, err := time.Parse("2006-01-02", startStr)
	if err != nil {
		log.Fatalf("parsing start date %q: %v", startStr, err)
	}

	// Default to yesterday so the last bar is a finished session.
	end := time.Now().UTC().AddDate(0, 0, -1).Truncate(24 * time.Hour)
	if endStr != "" {
		if end, err = time.Parse("2006-01-02", endStr); err != nil {
			log.Fatalf("parsing end date %q: %v", endStr, err)
		}
	}
	return start, end
}
