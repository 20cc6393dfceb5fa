// Package indicator provides stateless technical indicators over ordered
// price series. Every function returns slices aligned one-to-one with its
// input; entries that cannot be computed yet (the warm-up prefix) are NaN.
// Use Valid to test individual entries.
package indicator

import "math"

// Valid reports whether an indicator entry holds a computed value.
func Valid(v float64) bool {
	return !math.IsNaN(v)
}

func undefined(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}

// SMA computes the simple moving average over the given period. The first
// period-1 entries are NaN. A non-positive period or insufficient data yields
// an all-NaN slice of the input length.
func SMA(prices []float64, period int) []float64 {
	if period <= 0 || len(prices) < period {
		return undefined(len(prices))
	}
	out := make([]float64, len(prices))
	var sum float64
	for i := range prices {
		sum += prices[i]
		if i >= period {
			sum -= prices[i-period]
		}
		if i < period-1 {
			out[i] = math.NaN()
			continue
		}
		out[i] = sum / float64(period)
	}
	return out
}

// EMA computes the exponential moving average with smoothing 2/(period+1),
// seeded with the SMA of the first period prices at index period-1.
func EMA(prices []float64, period int) []float64 {
	if period <= 0 || len(prices) < period {
		return undefined(len(prices))
	}
	out := make([]float64, len(prices))
	alpha := 2.0 / float64(period+1)

	var seed float64
	for i := 0; i < period; i++ {
		seed += prices[i]
		out[i] = math.NaN()
	}
	out[period-1] = seed / float64(period)

	for i := period; i < len(prices); i++ {
		out[i] = prices[i]*alpha + out[i-1]*(1-alpha)
	}
	return out
}

// RSI computes the Relative Strength Index using Wilder smoothing. The first
// period entries are NaN; fewer than period+1 prices yield an all-NaN slice.
// Where the smoothed average loss is zero the RSI is 100.
func RSI(prices []float64, period int) []float64 {
	if period <= 0 || len(prices) < period+1 {
		return undefined(len(prices))
	}
	out := undefined(len(prices))

	var avgGain, avgLoss float64
	for i := 1; i <= period; i++ {
		change := prices[i] - prices[i-1]
		if change > 0 {
			avgGain += change
		} else {
			avgLoss += -change
		}
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)
	out[period] = rsiValue(avgGain, avgLoss)

	for i := period + 1; i < len(prices); i++ {
		change := prices[i] - prices[i-1]
		gain, loss := 0.0, 0.0
		if change > 0 {
			gain = change
		} else {
			loss = -change
		}
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
		out[i] = rsiValue(avgGain, avgLoss)
	}
	return out
}

func rsiValue(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		return 100.0
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs)
}

// BollingerBands computes (upper, middle, lower) bands where middle is the
// SMA and the bands sit stdDev population standard deviations away from it.
func BollingerBands(prices []float64, period int, stdDev float64) (upper, middle, lower []float64) {
	if period <= 0 || len(prices) < period {
		return undefined(len(prices)), undefined(len(prices)), undefined(len(prices))
	}
	upper = undefined(len(prices))
	middle = undefined(len(prices))
	lower = undefined(len(prices))

	var sum, sumSq float64
	for i := range prices {
		sum += prices[i]
		sumSq += prices[i] * prices[i]
		if i >= period {
			sum -= prices[i-period]
			sumSq -= prices[i-period] * prices[i-period]
		}
		if i < period-1 {
			continue
		}
		mean := sum / float64(period)
		variance := sumSq/float64(period) - mean*mean
		if variance < 0 {
			variance = 0 // floating point noise on flat windows
		}
		sd := math.Sqrt(variance)
		middle[i] = mean
		upper[i] = mean + stdDev*sd
		lower[i] = mean - stdDev*sd
	}
	return upper, middle, lower
}

// MACD computes the MACD line (fast EMA − slow EMA), its signal line (EMA of
// the defined MACD values, re-aligned to the input length), and the
// histogram (MACD − signal) where both are defined.
func MACD(prices []float64, fast, slow, signal int) (macdLine, signalLine, histogram []float64) {
	fastEMA := EMA(prices, fast)
	slowEMA := EMA(prices, slow)

	macdLine = undefined(len(prices))
	for i := range prices {
		if Valid(fastEMA[i]) && Valid(slowEMA[i]) {
			macdLine[i] = fastEMA[i] - slowEMA[i]
		}
	}

	// The signal line is an EMA over only the defined MACD values, padded
	// back out to the input length.
	defined := make([]float64, 0, len(macdLine))
	for _, v := range macdLine {
		if Valid(v) {
			defined = append(defined, v)
		}
	}
	signalLine = undefined(len(prices))
	if len(defined) >= signal {
		sig := EMA(defined, signal)
		offset := len(prices) - len(sig)
		for i, v := range sig {
			signalLine[offset+i] = v
		}
	}

	histogram = undefined(len(prices))
	for i := range prices {
		if Valid(macdLine[i]) && Valid(signalLine[i]) {
			histogram[i] = macdLine[i] - signalLine[i]
		}
	}
	return macdLine, signalLine, histogram
}
