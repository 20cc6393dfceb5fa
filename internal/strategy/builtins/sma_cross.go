package builtins

import (
	"fmt"

	"hindsight/internal/domain"
	"hindsight/internal/indicator"
	"hindsight/internal/sizing"
	"hindsight/internal/strategy"
)

var _ strategy.Strategy = (*SMACross)(nil)

// SMACross trades simple moving average crossovers: buy when the short
// average crosses above the long one, close everything when it crosses back
// below. Crossings are detected as a change in the relation between
// consecutive bars, so a series that starts above never triggers an entry on
// its own.
type SMACross struct {
	short int
	long  int
	lots  sizing.LotConfig

	// prevAbove is the short-vs-long relation on the previous bar; nil until
	// both averages are defined for the first time.
	prevAbove *bool
}

// NewSMACross creates an SMA crossover strategy. The short window must be
// strictly smaller than the long window and both must be positive.
func NewSMACross(short, long int, lots sizing.LotConfig) (*SMACross, error) {
	if short <= 0 || long <= 0 {
		return nil, fmt.Errorf("sma-cross: windows must be positive, got short=%d long=%d", short, long)
	}
	if short >= long {
		return nil, fmt.Errorf("sma-cross: short window %d must be smaller than long window %d", short, long)
	}
	return &SMACross{short: short, long: long, lots: lots}, nil
}

func (s *SMACross) Name() string {
	return "sma-cross"
}

func (s *SMACross) Init() error {
	s.prevAbove = nil
	return nil
}

func (s *SMACross) OnBar(bar domain.Bar, _ int, history []domain.Bar, acct domain.AccountState) ([]domain.Signal, error) {
	if len(history) < s.long {
		return nil, nil
	}

	shortAvg := tailMean(history, s.short)
	longAvg := tailMean(history, s.long)
	if !indicator.Valid(shortAvg) || !indicator.Valid(longAvg) {
		return nil, nil
	}

	above := shortAvg > longAvg
	defer func() { s.prevAbove = &above }()

	// First bar where both averages exist only establishes the relation.
	if s.prevAbove == nil {
		return nil, nil
	}
	if above == *s.prevAbove {
		return nil, nil
	}

	if above {
		// Golden cross.
		qty := s.lots.LotSize(acct.Cash, bar.Close)
		if qty <= 0 {
			return nil, nil
		}
		return []domain.Signal{{Action: domain.ActionBuy, Quantity: qty, Level: -1}}, nil
	}
	// Death cross: flatten.
	if acct.OpenPositions == 0 {
		return nil, nil
	}
	return []domain.Signal{{Action: domain.ActionSell, CloseAll: true, Level: -1}}, nil
}

// tailMean averages the closing prices of the last n bars.
func tailMean(history []domain.Bar, n int) float64 {
	var sum float64
	for _, b := range history[len(history)-n:] {
		sum += b.Close
	}
	return sum / float64(n)
}
