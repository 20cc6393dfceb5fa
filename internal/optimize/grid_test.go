package optimize

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"hindsight/internal/analytics"
	"hindsight/internal/engine"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestGridCombinations(t *testing.T) {
	g := Grid{
		"short": {5, 10},
		"long":  {20, 50, 100},
	}
	combos := g.Combinations()
	if len(combos) != 6 {
		t.Fatalf("Combinations returned %d, want 6", len(combos))
	}
	// Sorted key order makes the expansion deterministic: "long" varies
	// slower than "short".
	if combos[0]["long"] != 20 || combos[0]["short"] != 5 {
		t.Errorf("first combo = %v, want long=20 short=5", combos[0])
	}
	if combos[1]["long"] != 20 || combos[1]["short"] != 10 {
		t.Errorf("second combo = %v, want long=20 short=10", combos[1])
	}

	seen := make(map[[2]float64]bool)
	for _, c := range combos {
		k := [2]float64{c["short"], c["long"]}
		if seen[k] {
			t.Errorf("duplicate combination %v", c)
		}
		seen[k] = true
	}
}

func TestGridCombinationsEmpty(t *testing.T) {
	combos := Grid{}.Combinations()
	if len(combos) != 1 || len(combos[0]) != 0 {
		t.Errorf("empty grid combinations = %v, want one empty combo", combos)
	}
}

func resultWithReturn(r float64) *engine.Result {
	return &engine.Result{
		State:  engine.StateCompleted,
		Report: analytics.Report{TotalReturn: r},
	}
}

func TestSearchRanksBestFirst(t *testing.T) {
	g := Grid{"x": {1, 2, 3}}
	run := func(_ context.Context, params map[string]float64) (*engine.Result, error) {
		// Score 2 best: returns are 1-(x-2)^2.
		x := params["x"]
		return resultWithReturn(1 - (x-2)*(x-2)), nil
	}

	trials, err := Search(context.Background(), g, run, TotalReturn, 2, testLogger())
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(trials) != 3 {
		t.Fatalf("Search returned %d trials, want 3", len(trials))
	}
	if trials[0].Params["x"] != 2 {
		t.Errorf("best params = %v, want x=2", trials[0].Params)
	}
	if trials[0].Score != 1 {
		t.Errorf("best score = %v, want 1", trials[0].Score)
	}
}

func TestSearchFailedTrialsRankLast(t *testing.T) {
	g := Grid{"x": {1, 2}}
	run := func(_ context.Context, params map[string]float64) (*engine.Result, error) {
		if params["x"] == 1 {
			return nil, errors.New("boom")
		}
		return resultWithReturn(-0.5), nil
	}

	trials, err := Search(context.Background(), g, run, TotalReturn, 4, testLogger())
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if trials[0].Err != nil {
		t.Error("a failed trial ranked above a successful one")
	}
	if trials[1].Err == nil {
		t.Error("failed trial missing from results")
	}
}

func TestSearchBoundsConcurrency(t *testing.T) {
	const workers = 3
	var mu sync.Mutex
	active, peak := 0, 0

	g := Grid{"x": {1, 2, 3, 4, 5, 6, 7, 8, 9, 10}}
	run := func(_ context.Context, _ map[string]float64) (*engine.Result, error) {
		mu.Lock()
		active++
		if active > peak {
			peak = active
		}
		mu.Unlock()

		defer func() {
			mu.Lock()
			active--
			mu.Unlock()
		}()
		return resultWithReturn(0), nil
	}

	if _, err := Search(context.Background(), g, run, TotalReturn, workers, testLogger()); err != nil {
		t.Fatalf("Search: %v", err)
	}
	if peak > workers {
		t.Errorf("peak concurrency = %d, want <= %d", peak, workers)
	}
}

func TestSearchCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	g := Grid{"x": {1, 2, 3}}
	run := func(ctx context.Context, _ map[string]float64) (*engine.Result, error) {
		return nil, ctx.Err()
	}
	if _, err := Search(ctx, g, run, TotalReturn, 1, testLogger()); !errors.Is(err, context.Canceled) {
		t.Errorf("Search error = %v, want context.Canceled", err)
	}
}

func TestSharpeObjectiveNilRanksWorst(t *testing.T) {
	withSharpe := resultWithReturn(0)
	v := 1.5
	withSharpe.Report.SharpeRatio = &v

	if got := SharpeRatio(withSharpe); got != 1.5 {
		t.Errorf("SharpeRatio objective = %v, want 1.5", got)
	}
	if got := SharpeRatio(resultWithReturn(0)); got >= -1e17 {
		t.Errorf("nil Sharpe score = %v, want large negative", got)
	}
}
