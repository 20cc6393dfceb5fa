// Package strategy defines the Strategy interface for trading strategies and
// provides a Registry for managing multiple strategy implementations.
package strategy

import (
	"sort"

	"hindsight/internal/domain"
)

// Strategy is the interface that all trading strategies must implement.
// Implementations are stateful across OnBar calls within a run; Init resets
// that state so one instance can be reused across independent runs.
type Strategy interface {
	// Name returns the unique identifier for this strategy.
	Name() string

	// Init resets all per-run state. The engine calls it once before the
	// first bar of every run.
	Init() error

	// OnBar is called once per bar in chronological order with the bar, its
	// index, the price history up to and including the bar, and a read-only
	// account view. It returns zero or more trading signals. Insufficient
	// warm-up data is signalled by an empty result, never an error.
	OnBar(bar domain.Bar, index int, history []domain.Bar, acct domain.AccountState) ([]domain.Signal, error)
}

// Registry holds a named collection of strategies for lookup and enumeration.
type Registry struct {
	strategies map[string]Strategy
}

// NewRegistry creates an empty strategy Registry.
func NewRegistry() *Registry {
	return &Registry{
		strategies: make(map[string]Strategy),
	}
}

// Register adds a strategy to the registry, keyed by its Name().
func (r *Registry) Register(s Strategy) {
	r.strategies[s.Name()] = s
}

// Get retrieves a strategy by name. The second return value indicates whether
// the strategy was found.
func (r *Registry) Get(name string) (Strategy, bool) {
	s, ok := r.strategies[name]
	return s, ok
}

// List returns a sorted slice of all registered strategy names.
func (r *Registry) List() []string {
	names := make([]string, 0, len(r.strategies))
	for name := range r.strategies {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
