package stream

import (
	"strings"
	"sync"
)

// Filter selects event types by exact name ("article.voted"), by family
// ("article.*") or all ("*"). An empty filter matches everything.
type Filter struct {
	mu       sync.RWMutex
	patterns map[string]bool
}

func NewFilter(patterns ...string) *Filter {
	f := &Filter{patterns: make(map[string]bool)}
	f.Add(patterns...)
	return f
}

// ParseFilter reads a comma-separated list such as "article.*,comment.created".
func ParseFilter(raw string) *Filter {
	var patterns []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			patterns = append(patterns, p)
		}
	}
	return NewFilter(patterns...)
}

func (f *Filter) Add(patterns ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range patterns {
		f.patterns[p] = true
	}
}

func (f *Filter) Remove(patterns ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range patterns {
		delete(f.patterns, p)
	}
}

func (f *Filter) Match(eventType string) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if len(f.patterns) == 0 || f.patterns["*"] || f.patterns[eventType] {
		return true
	}
	if i := strings.IndexByte(eventType, '.'); i > 0 {
		return f.patterns[eventType[:i]+".*"]
	}
	return false
}
