package builtins

import (
	"fmt"
	"sort"

	"hindsight/internal/domain"
	"hindsight/internal/indicator"
	"hindsight/internal/sizing"
	"hindsight/internal/strategy"
)

var _ strategy.Strategy = (*RSILadder)(nil)

// RSILadder scales into oversold conditions: each configured entry level
// fires a buy the first time RSI dips to or below it, and every open rung is
// closed together once RSI recovers to the exit level. Used levels reset
// after an exit so the ladder can re-arm on the next dip.
type RSILadder struct {
	period       int
	entryLevels  []float64
	exitLevel    float64
	maxPositions int
	lots         sizing.LotConfig

	usedLevels map[float64]bool
}

// NewRSILadder creates an RSI laddering strategy. Entry levels are sorted
// ascending so the deepest rung is consumed first on a sharp drop.
func NewRSILadder(period int, entryLevels []float64, exitLevel float64, maxPositions int, lots sizing.LotConfig) (*RSILadder, error) {
	if period <= 0 {
		return nil, fmt.Errorf("rsi-ladder: period must be positive, got %d", period)
	}
	if len(entryLevels) == 0 {
		return nil, fmt.Errorf("rsi-ladder: at least one entry level is required")
	}
	if maxPositions <= 0 {
		return nil, fmt.Errorf("rsi-ladder: max positions must be positive, got %d", maxPositions)
	}
	levels := make([]float64, len(entryLevels))
	copy(levels, entryLevels)
	sort.Float64s(levels)
	for _, lv := range levels {
		if lv >= exitLevel {
			return nil, fmt.Errorf("rsi-ladder: entry level %.2f must be below exit level %.2f", lv, exitLevel)
		}
	}
	return &RSILadder{
		period:       period,
		entryLevels:  levels,
		exitLevel:    exitLevel,
		maxPositions: maxPositions,
		lots:         lots,
		usedLevels:   make(map[float64]bool),
	}, nil
}

func (s *RSILadder) Name() string {
	return "rsi-ladder"
}

func (s *RSILadder) Init() error {
	s.usedLevels = make(map[float64]bool)
	return nil
}

func (s *RSILadder) OnBar(bar domain.Bar, index int, history []domain.Bar, acct domain.AccountState) ([]domain.Signal, error) {
	// Wilder's RSI needs period+1 closes before the first defined value.
	if len(history) < s.period+1 {
		return nil, nil
	}

	closes := make([]float64, len(history))
	for i, b := range history {
		closes[i] = b.Close
	}
	rsi := indicator.RSI(closes, s.period)
	cur := rsi[index]
	if !indicator.Valid(cur) {
		return nil, nil
	}

	// Exit takes priority: a recovery closes every rung and re-arms the
	// ladder. Used levels clear even with nothing open, so rungs whose buys
	// were rejected downstream can fire again on the next dip.
	if cur >= s.exitLevel {
		s.usedLevels = make(map[float64]bool)
		if acct.OpenPositions == 0 {
			return nil, nil
		}
		return []domain.Signal{{Action: domain.ActionSell, CloseAll: true, Level: -1}}, nil
	}

	var signals []domain.Signal
	open := acct.OpenPositions
	for _, level := range s.entryLevels {
		if s.usedLevels[level] || level < cur {
			continue
		}
		if open+len(signals) >= s.maxPositions {
			break
		}
		qty := s.lots.LotSize(acct.Cash, bar.Close)
		if qty <= 0 {
			continue
		}
		s.usedLevels[level] = true
		signals = append(signals, domain.Signal{
			Action:   domain.ActionBuy,
			Quantity: qty,
			Level:    level,
		})
	}
	return signals, nil
}
