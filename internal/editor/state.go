// Package editor holds the live chart specification of one screen session.
package editor

import (
	"sync"

	"github.com/hpungsan/chartd/internal/chart"
)

// State is the single live specification being edited. It performs no
// validation: invalid JSON or non-numeric sizes are legal drafts.
//
// Writes are visible to every reader as soon as the setter returns, and
// subscribers are notified synchronously with the new snapshot.
type State struct {
	mu   sync.RWMutex
	spec chart.Specification

	subMu  sync.Mutex
	nextID int
	subs   map[int]func(chart.Specification)
}

// New creates a State holding spec.
func New(spec chart.Specification) *State {
	return &State{
		spec: spec,
		subs: make(map[int]func(chart.Specification)),
	}
}

// Snapshot returns the current specification.
func (s *State) Snapshot() chart.Specification {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.spec
}

// ConfigText returns the current configuration text.
func (s *State) ConfigText() string { return s.Snapshot().ConfigText }

// Width returns the current width text.
func (s *State) Width() string { return s.Snapshot().Width }

// Height returns the current height text.
func (s *State) Height() string { return s.Snapshot().Height }

// SetConfig replaces the configuration text.
func (s *State) SetConfig(text string) {
	s.update(func(spec *chart.Specification) { spec.ConfigText = text })
}

// SetWidth replaces the width text.
func (s *State) SetWidth(w string) {
	s.update(func(spec *chart.Specification) { spec.Width = w })
}

// SetHeight replaces the height text.
func (s *State) SetHeight(h string) {
	s.update(func(spec *chart.Specification) { spec.Height = h })
}

// Replace sets all three fields at once, notifying subscribers once.
func (s *State) Replace(spec chart.Specification) {
	s.update(func(cur *chart.Specification) { *cur = spec })
}

// Subscribe registers fn to be called after every change. The returned
// function removes the subscription.
func (s *State) Subscribe(fn func(chart.Specification)) (unsubscribe func()) {
	s.subMu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	s.subMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.subMu.Lock()
			delete(s.subs, id)
			s.subMu.Unlock()
		})
	}
}

func (s *State) update(mutate func(*chart.Specification)) {
	s.mu.Lock()
	mutate(&s.spec)
	snap := s.spec
	s.mu.Unlock()

	s.subMu.Lock()
	fns := make([]func(chart.Specification), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subMu.Unlock()

	for _, fn := range fns {
		fn(snap)
	}
}
