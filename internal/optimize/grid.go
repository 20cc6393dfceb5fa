// Package optimize sweeps strategy parameter grids, running an independent
// simulation per combination across a bounded worker pool and ranking the
// outcomes by a pluggable objective.
package optimize

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	"hindsight/internal/engine"
)

// Grid maps a parameter name to the candidate values to sweep.
type Grid map[string][]float64

// Combinations expands the grid into its cartesian product. Parameter names
// are iterated in sorted order so the expansion is deterministic; an empty
// grid yields a single empty combination.
func (g Grid) Combinations() []map[string]float64 {
	names := make([]string, 0, len(g))
	for name := range g {
		names = append(names, name)
	}
	sort.Strings(names)

	combos := []map[string]float64{{}}
	for _, name := range names {
		values := g[name]
		next := make([]map[string]float64, 0, len(combos)*len(values))
		for _, base := range combos {
			for _, v := range values {
				combo := make(map[string]float64, len(base)+1)
				for k, bv := range base {
					combo[k] = bv
				}
				combo[name] = v
				next = append(next, combo)
			}
		}
		combos = next
	}
	return combos
}

// Objective scores a completed run; higher is better.
type Objective func(res *engine.Result) float64

// TotalReturn ranks runs by total return.
func TotalReturn(res *engine.Result) float64 {
	return res.Report.TotalReturn
}

// SharpeRatio ranks runs by Sharpe ratio, treating an undefined ratio as
// worse than any defined one.
func SharpeRatio(res *engine.Result) float64 {
	if res.Report.SharpeRatio == nil {
		return -1e18
	}
	return *res.Report.SharpeRatio
}

// RunFunc executes one simulation for a parameter combination.
type RunFunc func(ctx context.Context, params map[string]float64) (*engine.Result, error)

// Trial is the outcome of one grid point. Err is set when the run itself
// failed; such trials rank below every successful one.
type Trial struct {
	Params map[string]float64
	Result *engine.Result
	Score  float64
	Err    error
}

// Search runs one simulation per grid combination, at most workers at a time,
// and returns all trials sorted best-first. Runs are independent: each worker
// gets its own parameter set, and a cancelled context stops the dispatch of
// further combinations.
func Search(ctx context.Context, grid Grid, run RunFunc, objective Objective, workers int, log *slog.Logger) ([]Trial, error) {
	if log == nil {
		log = slog.Default()
	}
	if workers < 1 {
		workers = 1
	}
	combos := grid.Combinations()
	trials := make([]Trial, len(combos))

	type job struct {
		index  int
		params map[string]float64
	}
	jobCh := make(chan job)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobCh {
				res, err := run(ctx, j.params)
				t := Trial{Params: j.params, Result: res, Err: err}
				if err == nil {
					t.Score = objective(res)
				} else {
					log.Warn("trial failed", "params", j.params, "error", err)
				}
				trials[j.index] = t
			}
		}()
	}

	for i, params := range combos {
		if err := ctx.Err(); err != nil {
			close(jobCh)
			wg.Wait()
			return nil, err
		}
		select {
		case jobCh <- job{index: i, params: params}:
		case <-ctx.Done():
			close(jobCh)
			wg.Wait()
			return nil, ctx.Err()
		}
	}
	close(jobCh)
	wg.Wait()

	sort.SliceStable(trials, func(i, j int) bool {
		if (trials[i].Err == nil) != (trials[j].Err == nil) {
			return trials[i].Err == nil
		}
		return trials[i].Score > trials[j].Score
	})

	if len(trials) > 0 && trials[0].Err == nil {
		log.Info("grid search finished",
			"combinations", len(combos),
			"best_score", trials[0].Score,
			"best_params", trials[0].Params)
	}
	return trials, nil
}
