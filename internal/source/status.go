package source

import (
	"fmt"
	"sync"
	"time"
)

// maxConsecutiveFailures is the circuit-breaker threshold: a provider that
// fails this many times in a row is disabled until reset.
const maxConsecutiveFailures = 3

// SourceStatus is a point-in-time view of one provider's health.
type SourceStatus struct {
	Enabled             bool       `json:"enabled"`
	ConsecutiveFailures int        `json:"consecutive_failures"`
	LastSuccess         *time.Time `json:"last_success,omitempty"`
}

// statusBook tracks per-provider health. It is safe for concurrent use so a
// single UnifiedSource can be shared across symbol loops.
type statusBook struct {
	mu sync.Mutex
	m  map[string]*SourceStatus
}

func newStatusBook(names []string) *statusBook {
	m := make(map[string]*SourceStatus, len(names))
	for _, n := range names {
		m[n] = &SourceStatus{Enabled: true}
	}
	return &statusBook{m: m}
}

func (b *statusBook) enabled(name string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	s, ok := b.m[name]
	return ok && s.Enabled
}

func (b *statusBook) recordSuccess(name string, at time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()
	s, ok := b.m[name]
	if !ok {
		return
	}
	s.ConsecutiveFailures = 0
	t := at
	s.LastSuccess = &t
}

// recordFailure increments the failure counter and reports whether this
// failure tripped the circuit open.
func (b *statusBook) recordFailure(name string) (tripped bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	s, ok := b.m[name]
	if !ok {
		return false
	}
	s.ConsecutiveFailures++
	if s.Enabled && s.ConsecutiveFailures >= maxConsecutiveFailures {
		s.Enabled = false
		return true
	}
	return false
}

func (b *statusBook) reset(name string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	s, ok := b.m[name]
	if !ok {
		return fmt.Errorf("unknown source %q", name)
	}
	s.ConsecutiveFailures = 0
	s.Enabled = true
	return nil
}

func (b *statusBook) snapshot() map[string]SourceStatus {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make(map[string]SourceStatus, len(b.m))
	for name, s := range b.m {
		copied := *s
		if s.LastSuccess != nil {
			t := *s.LastSuccess
			copied.LastSuccess = &t
		}
		out[name] = copied
	}
	return out
}
