package indicator

import (
	"math"
	"math/rand"
	"testing"
)

func TestSMAAlignment(t *testing.T) {
	prices := []float64{1, 2, 3, 4, 5, 6}
	for _, period := range []int{1, 2, 3, 5} {
		got := SMA(prices, period)
		if len(got) != len(prices) {
			t.Fatalf("period %d: len = %d, want %d", period, len(got), len(prices))
		}
		for i := 0; i < period-1; i++ {
			if Valid(got[i]) {
				t.Errorf("period %d: entry %d should be undefined, got %v", period, i, got[i])
			}
		}
		for i := period - 1; i < len(prices); i++ {
			var sum float64
			for j := i - period + 1; j <= i; j++ {
				sum += prices[j]
			}
			want := sum / float64(period)
			if math.Abs(got[i]-want) > 1e-12 {
				t.Errorf("period %d: sma[%d] = %v, want %v", period, i, got[i], want)
			}
		}
	}
}

func TestSMAInsufficientData(t *testing.T) {
	got := SMA([]float64{1, 2}, 5)
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	for i, v := range got {
		if Valid(v) {
			t.Errorf("entry %d should be undefined, got %v", i, v)
		}
	}
}

func TestEMASeedIsSMA(t *testing.T) {
	prices := []float64{10, 11, 12, 13, 14}
	got := EMA(prices, 3)
	if Valid(got[0]) || Valid(got[1]) {
		t.Error("warm-up entries should be undefined")
	}
	if math.Abs(got[2]-11.0) > 1e-12 {
		t.Errorf("seed = %v, want 11 (SMA of first 3)", got[2])
	}
	alpha := 2.0 / 4.0
	want := 13*alpha + got[2]*(1-alpha)
	if math.Abs(got[3]-want) > 1e-12 {
		t.Errorf("ema[3] = %v, want %v", got[3], want)
	}
}

func TestRSIBounds(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	series := [][]float64{
		{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16}, // monotonic up
		{16, 15, 14, 13, 12, 11, 10, 9, 8, 7, 6, 5, 4, 3, 2, 1}, // monotonic down
	}
	random := make([]float64, 200)
	price := 100.0
	for i := range random {
		price += rng.Float64()*4 - 2
		random[i] = price
	}
	series = append(series, random)

	for si, prices := range series {
		got := RSI(prices, 14)
		if len(got) != len(prices) {
			t.Fatalf("series %d: len = %d, want %d", si, len(got), len(prices))
		}
		for i := 0; i < 14; i++ {
			if Valid(got[i]) {
				t.Errorf("series %d: entry %d should be undefined", si, i)
			}
		}
		for i := 14; i < len(got); i++ {
			if !Valid(got[i]) {
				t.Errorf("series %d: entry %d should be defined", si, i)
				continue
			}
			if got[i] < 0 || got[i] > 100 {
				t.Errorf("series %d: rsi[%d] = %v out of [0,100]", si, i, got[i])
			}
		}
	}
}

func TestRSIMonotonicUpIs100(t *testing.T) {
	prices := []float64{1, 2, 3, 4, 5, 6}
	got := RSI(prices, 3)
	for i := 3; i < len(got); i++ {
		if got[i] != 100 {
			t.Errorf("rsi[%d] = %v, want 100 for gains-only series", i, got[i])
		}
	}
}

func TestRSIInsufficientData(t *testing.T) {
	got := RSI([]float64{1, 2, 3}, 14)
	for i, v := range got {
		if Valid(v) {
			t.Errorf("entry %d should be undefined, got %v", i, v)
		}
	}
}

func TestBollingerBands(t *testing.T) {
	prices := []float64{2, 4, 6, 8, 10, 12}
	upper, middle, lower := BollingerBands(prices, 3, 2.0)
	if len(upper) != len(prices) || len(middle) != len(prices) || len(lower) != len(prices) {
		t.Fatal("band lengths do not match input")
	}
	// Window {2,4,6}: mean 4, population std sqrt(8/3).
	wantMid := 4.0
	wantSD := math.Sqrt(8.0 / 3.0)
	if math.Abs(middle[2]-wantMid) > 1e-12 {
		t.Errorf("middle[2] = %v, want %v", middle[2], wantMid)
	}
	if math.Abs(upper[2]-(wantMid+2*wantSD)) > 1e-12 {
		t.Errorf("upper[2] = %v, want %v", upper[2], wantMid+2*wantSD)
	}
	if math.Abs(lower[2]-(wantMid-2*wantSD)) > 1e-12 {
		t.Errorf("lower[2] = %v, want %v", lower[2], wantMid-2*wantSD)
	}
	if Valid(upper[0]) || Valid(upper[1]) {
		t.Error("warm-up entries should be undefined")
	}
}

func TestBollingerFlatSeries(t *testing.T) {
	prices := []float64{5, 5, 5, 5, 5}
	upper, middle, lower := BollingerBands(prices, 3, 2.0)
	for i := 2; i < len(prices); i++ {
		if upper[i] != 5 || middle[i] != 5 || lower[i] != 5 {
			t.Errorf("flat series bands at %d = (%v, %v, %v), want all 5", i, upper[i], middle[i], lower[i])
		}
	}
}

func TestMACDAlignment(t *testing.T) {
	prices := make([]float64, 60)
	for i := range prices {
		prices[i] = 100 + float64(i)
	}
	macd, signal, hist := MACD(prices, 12, 26, 9)
	if len(macd) != len(prices) || len(signal) != len(prices) || len(hist) != len(prices) {
		t.Fatal("output lengths do not match input")
	}
	// MACD defined once the slow EMA is, i.e. from index 25.
	if Valid(macd[24]) {
		t.Error("macd[24] should be undefined")
	}
	if !Valid(macd[25]) {
		t.Error("macd[25] should be defined")
	}
	// Signal needs 9 defined MACD values: defined from index 33.
	if Valid(signal[32]) {
		t.Error("signal[32] should be undefined")
	}
	if !Valid(signal[33]) {
		t.Error("signal[33] should be defined")
	}
	for i := range prices {
		if Valid(hist[i]) != (Valid(macd[i]) && Valid(signal[i])) {
			t.Errorf("histogram defined-ness mismatch at %d", i)
		}
		if Valid(hist[i]) && math.Abs(hist[i]-(macd[i]-signal[i])) > 1e-12 {
			t.Errorf("hist[%d] = %v, want macd-signal = %v", i, hist[i], macd[i]-signal[i])
		}
	}
}

func TestMACDInsufficientData(t *testing.T) {
	prices := []float64{1, 2, 3}
	macd, signal, hist := MACD(prices, 12, 26, 9)
	for i := range prices {
		if Valid(macd[i]) || Valid(signal[i]) || Valid(hist[i]) {
			t.Errorf("entry %d should be undefined", i)
		}
	}
}
