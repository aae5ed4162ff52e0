package web

import (
	"sync"
	"time"

	"github.com/hpungsan/chartd/internal/db"
	"github.com/hpungsan/chartd/internal/screen"
)

// screenIdleTTL is how long an untouched editor session is kept.
const screenIdleTTL = 12 * time.Hour

// screens holds the live editor sessions, one per browser, keyed by the
// screen cookie.
type screens struct {
	build func(id string) *screen.Screen
	ttl   time.Duration
	now   func() time.Time

	mu   sync.Mutex
	byID map[string]*screenEntry
}

type screenEntry struct {
	screen   *screen.Screen
	lastSeen time.Time
}

func newScreens(build func(id string) *screen.Screen) *screens {
	return &screens{
		build: build,
		ttl:   screenIdleTTL,
		now:   time.Now,
		byID:  make(map[string]*screenEntry),
	}
}

// get returns the screen for id and marks it used.
func (r *screens) get(id string) (*screen.Screen, bool) {
	if id == "" {
		return nil, false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.byID[id]
	if !ok {
		return nil, false
	}
	e.lastSeen = r.now()
	return e.screen, true
}

// create starts a new screen and evicts idle ones.
func (r *screens) create() (*screen.Screen, error) {
	id, err := db.NewID()
	if err != nil {
		return nil, err
	}
	s := r.build(id)

	r.mu.Lock()
	r.byID[id] = &screenEntry{screen: s, lastSeen: r.now()}
	expired := r.sweepLocked()
	r.mu.Unlock()

	for _, old := range expired {
		old.Close()
	}
	return s, nil
}

func (r *screens) sweepLocked() []*screen.Screen {
	cutoff := r.now().Add(-r.ttl)
	var expired []*screen.Screen
	for id, e := range r.byID {
		if e.lastSeen.Before(cutoff) {
			expired = append(expired, e.screen)
			delete(r.byID, id)
		}
	}
	return expired
}

func (r *screens) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byID)
}

// closeAll closes every screen, for shutdown.
func (r *screens) closeAll() {
	r.mu.Lock()
	all := make([]*screen.Screen, 0, len(r.byID))
	for id, e := range r.byID {
		all = append(all, e.screen)
		delete(r.byID, id)
	}
	r.mu.Unlock()

	for _, s := range all {
		s.Close()
	}
}
