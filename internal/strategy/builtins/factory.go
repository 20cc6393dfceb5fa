package builtins

import (
	"fmt"

	"hindsight/internal/sizing"
	"hindsight/internal/strategy"
)

// FromConfig constructs a builtin strategy by name from generic numeric
// parameters, applying sensible defaults for anything unset. Unknown names
// are an error listing the available builtins.
func FromConfig(name string, params map[string]float64, entryLevels []float64, lots sizing.LotConfig) (strategy.Strategy, error) {
	get := func(key string, def float64) float64 {
		if v, ok := params[key]; ok {
			return v
		}
		return def
	}

	switch name {
	case "buy-and-hold":
		return NewBuyAndHold(lots), nil
	case "sma-cross":
		short := int(get("short_window", 20))
		long := int(get("long_window", 50))
		return NewSMACross(short, long, lots)
	case "rsi-ladder":
		period := int(get("period", 14))
		exit := get("exit_level", 70)
		maxPos := int(get("max_positions", float64(len(entryLevels))))
		levels := entryLevels
		if len(levels) == 0 {
			levels = []float64{30, 25, 20}
		}
		if maxPos <= 0 {
			maxPos = len(levels)
		}
		return NewRSILadder(period, levels, exit, maxPos, lots)
	default:
		return nil, fmt.Errorf("unknown strategy %q (available: buy-and-hold, sma-cross, rsi-ladder)", name)
	}
}
