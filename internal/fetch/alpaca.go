// Package fetch downloads historical daily bars from the Alpaca market-data
// API into a bar store, so simulations can run against local data.
package fetch

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"

	"hindsight/internal/domain"
	"hindsight/internal/store"
	"hindsight/internal/util"
)

// DailyBarFetcher fetches daily OHLCV bars for a symbol list via the Alpaca
// market-data API and writes them to a bar store.
type DailyBarFetcher struct {
	client     *marketdata.Client
	store      store.BarStore
	limiter    *util.RateLimiter
	batchSize  int // symbols per API call
	maxWorkers int // concurrent goroutines
	log        *slog.Logger
}

// NewDailyBarFetcher creates a DailyBarFetcher configured with the given
// Alpaca credentials, target store, and batch parameters.
func NewDailyBarFetcher(apiKey, apiSecret, dataURL string, s store.BarStore, batchSize, maxWorkers, rateLimitPerMin int) *DailyBarFetcher {
	opts := marketdata.ClientOpts{
		APIKey:    apiKey,
		APISecret: apiSecret,
	}
	if dataURL != "" {
		opts.BaseURL = dataURL
	}
	if batchSize < 1 {
		batchSize = 100
	}
	if maxWorkers < 1 {
		maxWorkers = 1
	}
	if rateLimitPerMin < 1 {
		rateLimitPerMin = 200
	}

	return &DailyBarFetcher{
		client:     marketdata.NewClient(opts),
		store:      s,
		limiter:    util.NewRateLimiter(rateLimitPerMin),
		batchSize:  batchSize,
		maxWorkers: maxWorkers,
		log:        slog.Default().With("fetcher", "alpaca-daily"),
	}
}

// Fetch downloads daily bars for every symbol in [start, end] and writes them
// to the store, batchSize symbols per API call across maxWorkers goroutines.
// Batches are independent: one failed batch is logged and skipped, and the
// first write error ends the run.
func (f *DailyBarFetcher) Fetch(ctx context.Context, symbols []string, start, end time.Time) error {
	if len(symbols) == 0 {
		return nil
	}

	var batches [][]string
	for i := 0; i < len(symbols); i += f.batchSize {
		j := min(i+f.batchSize, len(symbols))
		batches = append(batches, symbols[i:j])
	}

	f.log.Info("starting fetch",
		"symbols", len(symbols),
		"batches", len(batches),
		"start", start.Format("2006-01-02"),
		"end", end.Format("2006-01-02"))

	batchCh := make(chan int, len(batches))
	for i := range batches {
		batchCh <- i
	}
	close(batchCh)

	var (
		wg        sync.WaitGroup
		totalBars atomic.Int64
		failed    atomic.Int64
		writeErr  atomic.Pointer[error]
		runStart  = time.Now()
	)

	workers := min(f.maxWorkers, len(batches))
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for batchIdx := range batchCh {
				if ctx.Err() != nil {
					return
				}

				batch := batches[batchIdx]
				var bars []domain.Bar
				err := util.Retry(ctx, 3, time.Second, func() error {
					if err := f.limiter.Wait(ctx); err != nil {
						return err
					}
					var ferr error
					bars, ferr = f.fetchMultiBars(batch, start, end)
					return ferr
				})
				if err != nil {
					failed.Add(1)
					f.log.Error("batch fetch failed",
						"batch", fmt.Sprintf("%d/%d", batchIdx+1, len(batches)),
						"err", err)
					continue
				}

				if len(bars) > 0 {
					if err := f.store.WriteBars(ctx, bars); err != nil {
						writeErr.CompareAndSwap(nil, &err)
						return
					}
				}
				totalBars.Add(int64(len(bars)))

				f.log.Info("batch done",
					"batch", fmt.Sprintf("%d/%d", batchIdx+1, len(batches)),
					"bars", len(bars),
					"elapsed", time.Since(runStart).Round(time.Second))
			}
		}()
	}

	wg.Wait()

	if err := ctx.Err(); err != nil {
		return err
	}
	if errp := writeErr.Load(); errp != nil {
		return fmt.Errorf("writing bars: %w", *errp)
	}

	f.log.Info("fetch complete",
		"bars", totalBars.Load(),
		"failed_batches", failed.Load(),
		"elapsed", time.Since(runStart).Round(time.Second))
	return nil
}

// fetchMultiBars fetches daily bars for multiple symbols in a single API call.
func (f *DailyBarFetcher) fetchMultiBars(symbols []string, start, end time.Time) ([]domain.Bar, error) {
	multiBars, err := f.client.GetMultiBars(symbols, marketdata.GetBarsRequest{
		TimeFrame: marketdata.OneDay,
		Start:     start,
		End:       end,
		Feed:      "sip",
	})
	if err != nil {
		return nil, fmt.Errorf("GetMultiBars: %w", err)
	}

	var bars []domain.Bar
	for symbol, alpacaBars := range multiBars {
		for _, ab := range alpacaBars {
			bars = append(bars, domain.Bar{
				Symbol:    strings.ToUpper(symbol),
				Timestamp: ab.Timestamp,
				Open:      ab.Open,
				High:      ab.High,
				Low:       ab.Low,
				Close:     ab.Close,
				Volume:    int64(ab.Volume),
			})
		}
	}
	return bars, nil
}
