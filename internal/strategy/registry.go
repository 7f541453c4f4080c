package strategy

import (
	"fmt"
	"sync"

	"github.com/predeshen/telegramscalperbot-sub001/internal/domain/repository"
)

// Family groups strategies by the market behavior they exploit. The
// orchestrator's skip and boost heuristics key off the family.
type Family string

const (
	FamilyMomentum       Family = "momentum"
	FamilyMeanReversion  Family = "mean_reversion"
	FamilyTrendFollowing Family = "trend_following"
	FamilyBreakout       Family = "breakout"
)

// Descriptor is the registry's view of one registered strategy.
type Descriptor struct {
	Name    string
	Family  Family
	Enabled bool
}

type registration struct {
	descriptor Descriptor
	impl       repository.Strategy
}

// Registry holds named strategies. Registration happens at startup;
// lookups during scanning are read-mostly.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*registration
	order   []string
}

func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]*registration)}
}

// Register adds a strategy under its name. Duplicate names are rejected so
// priority lists stay unambiguous.
func (r *Registry) Register(impl repository.Strategy, family Family) error {
	name := impl.Name()
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.entries[name]; exists {
		return fmt.Errorf("strategy %q already registered", name)
	}
	r.entries[name] = &registration{
		descriptor: Descriptor{Name: name, Family: family, Enabled: true},
		impl:       impl,
	}
	r.order = append(r.order, name)
	return nil
}

// SetEnabled toggles a strategy without unregistering it.
func (r *Registry) SetEnabled(name string, enabled bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	reg, ok := r.entries[name]
	if !ok {
		return fmt.Errorf("unknown strategy %q", name)
	}
	reg.descriptor.Enabled = enabled
	return nil
}

// Get returns the implementation for an enabled strategy name.
func (r *Registry) Get(name string) (repository.Strategy, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	reg, ok := r.entries[name]
	if !ok || !reg.descriptor.Enabled {
		return nil, false
	}
	return reg.impl, true
}

// Describe returns the descriptor for a name, registered or not.
func (r *Registry) Describe(name string) (Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	reg, ok := r.entries[name]
	if !ok {
		return Descriptor{}, false
	}
	return reg.descriptor, true
}

// Enabled lists descriptors of enabled strategies in registration order.
func (r *Registry) Enabled() []Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Descriptor, 0, len(r.order))
	for _, name := range r.order {
		if reg := r.entries[name]; reg.descriptor.Enabled {
			out = append(out, reg.descriptor)
		}
	}
	return out
}
