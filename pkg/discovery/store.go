package discovery

import (
	"sort"
	"sync"
	"time"
)

// sourceStore accumulates the sources found during a session.
type sourceStore struct {
	sources map[string]Source

	// accept filters out sources before they are stored.
	accept func(Source) bool

	found     chan struct{}
	foundOnce sync.Once

	sync.RWMutex
}

func newSourceStore(accept func(Source) bool) *sourceStore {
	if accept == nil {
		accept = func(Source) bool { return true }
	}

	return &sourceStore{
		sources: make(map[string]Source),
		accept:  accept,
		found:   make(chan struct{}),
	}
}

// add stores a source, keyed by name. A known address is never replaced
// by an unknown one.
func (s *sourceStore) add(src Source) {
	if src.Name == "" || !s.accept(src) {
		return
	}

	s.Lock()
	old, ok := s.sources[src.Name]
	if !ok || src.Address != "" || old.Address == "" {
		s.sources[src.Name] = src
	}
	s.Unlock()

	s.foundOnce.Do(func() { close(s.found) })
}

func (s *sourceStore) wait(timeout time.Duration) bool {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-s.found:
		return true
	case <-timer.C:
		return false
	}
}

// snapshot returns the stored sources ordered by name.
func (s *sourceStore) snapshot() []Source {
	s.RLock()
	defer s.RUnlock()

	sources := make([]Source, 0, len(s.sources))
	for _, v := range s.sources {
		sources = append(sources, v)
	}
	sort.Slice(sources, func(i, j int) bool {
		return sources[i].Name < sources[j].Name
	})

	return sources
}
