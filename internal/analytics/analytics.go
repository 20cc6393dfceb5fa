// Package analytics turns an equity curve and trade list into a performance
// report: returns, drawdown, risk-adjusted metrics, and trade statistics.
package analytics

import (
	"math"

	"hindsight/internal/domain"
)

// profitFactorCap stands in for an infinite profit factor (gross profit with
// zero gross loss) so reports stay JSON-encodable.
const profitFactorCap = 999.0

// Report is the performance summary of one simulation run.
type Report struct {
	InitialCapital   float64  `json:"initial_capital"`
	FinalEquity      float64  `json:"final_equity"`
	TotalReturn      float64  `json:"total_return"`
	AnnualizedReturn float64  `json:"annualized_return"`
	MaxDrawdown      float64  `json:"max_drawdown"`
	SharpeRatio      *float64 `json:"sharpe_ratio"` // nil when undefined
	TotalTrades      int      `json:"total_trades"`
	WinningTrades    int      `json:"winning_trades"`
	LosingTrades     int      `json:"losing_trades"`
	WinRate          float64  `json:"win_rate"`
	ProfitFactor     float64  `json:"profit_factor"`
	GrossProfit      float64  `json:"gross_profit"`
	GrossLoss        float64  `json:"gross_loss"`
}

// BuildReport computes the full metric set. periodsPerYear scales the Sharpe
// ratio and annualized return; 252 is the usual value for daily bars. An
// empty equity curve yields a zero-valued report.
func BuildReport(equity []domain.Snapshot, trades []domain.Trade, initialCapital, periodsPerYear float64) Report {
	r := Report{InitialCapital: initialCapital}
	if len(equity) == 0 {
		return r
	}

	r.FinalEquity = equity[len(equity)-1].Equity
	if initialCapital > 0 {
		r.TotalReturn = (r.FinalEquity - initialCapital) / initialCapital
	}
	r.AnnualizedReturn = annualize(r.TotalReturn, len(equity), periodsPerYear)
	r.MaxDrawdown = MaxDrawdown(equity)
	r.SharpeRatio = SharpeRatio(periodReturns(equity), periodsPerYear)

	r.TotalTrades = len(trades)
	for _, tr := range trades {
		switch {
		case tr.PnL > 0:
			r.WinningTrades++
			r.GrossProfit += tr.PnL
		case tr.PnL < 0:
			r.LosingTrades++
			r.GrossLoss += -tr.PnL
		}
	}
	if r.TotalTrades > 0 {
		r.WinRate = float64(r.WinningTrades) / float64(r.TotalTrades)
	}
	r.ProfitFactor = profitFactor(r.GrossProfit, r.GrossLoss)
	return r
}

// MaxDrawdown returns the largest peak-to-trough equity decline as a fraction
// of the peak, in [0, 1] for non-negative equity curves.
func MaxDrawdown(equity []domain.Snapshot) float64 {
	var maxDD float64
	peak := math.Inf(-1)
	for _, snap := range equity {
		if snap.Equity > peak {
			peak = snap.Equity
		}
		if peak > 0 {
			if dd := (peak - snap.Equity) / peak; dd > maxDD {
				maxDD = dd
			}
		}
	}
	return maxDD
}

// SharpeRatio computes the annualized Sharpe ratio over per-period returns
// with a zero risk-free rate and sample standard deviation. It returns nil
// when fewer than two returns exist or the returns have zero variance.
func SharpeRatio(returns []float64, periodsPerYear float64) *float64 {
	if len(returns) < 2 {
		return nil
	}
	var sum float64
	for _, r := range returns {
		sum += r
	}
	mean := sum / float64(len(returns))

	var sumSq float64
	for _, r := range returns {
		d := r - mean
		sumSq += d * d
	}
	variance := sumSq / float64(len(returns)-1)
	if variance <= 0 {
		return nil
	}
	sharpe := mean / math.Sqrt(variance) * math.Sqrt(periodsPerYear)
	return &sharpe
}

// periodReturns derives simple per-period returns from the equity curve.
// Periods starting from zero equity contribute a zero return.
func periodReturns(equity []domain.Snapshot) []float64 {
	if len(equity) < 2 {
		return nil
	}
	returns := make([]float64, 0, len(equity)-1)
	for i := 1; i < len(equity); i++ {
		prev := equity[i-1].Equity
		if prev == 0 {
			returns = append(returns, 0)
			continue
		}
		returns = append(returns, (equity[i].Equity-prev)/prev)
	}
	return returns
}

// annualize converts a total return over n periods into a compound annual
// rate. Runs with no periods yield 0; a total loss of -100% or worse returns
// -1, since the compounding base is non-positive.
func annualize(totalReturn float64, n int, periodsPerYear float64) float64 {
	if n < 1 || periodsPerYear <= 0 {
		return 0
	}
	base := 1 + totalReturn
	if base <= 0 {
		return -1
	}
	years := float64(n) / periodsPerYear
	if years <= 0 {
		return 0
	}
	return math.Pow(base, 1/years) - 1
}

func profitFactor(grossProfit, grossLoss float64) float64 {
	if grossLoss == 0 {
		if grossProfit > 0 {
			return profitFactorCap
		}
		return 0
	}
	return grossProfit / grossLoss
}
