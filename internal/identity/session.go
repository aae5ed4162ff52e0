package identity

import (
	"context"
	"sync"
)

// Authenticator is the part of Provider a Session needs.
type Authenticator interface {
	SignIn(ctx context.Context, email, password string) (string, *Identity, error)
	SignOut(ctx context.Context, token string) error
	Lookup(ctx context.Context, token string) (*Identity, error)
}

// Session is one screen's view of the signed-in user. Listeners registered
// with OnChange receive the identity, or nil, after every change.
type Session struct {
	auth Authenticator

	mu      sync.Mutex
	token   string
	current *Identity
	nextID  int
	subs    map[int]func(*Identity)
}

// NewSession returns a signed-out session backed by auth.
func NewSession(auth Authenticator) *Session {
	return &Session{auth: auth, subs: make(map[int]func(*Identity))}
}

// Token returns the session token, or "" when signed out.
func (s *Session) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

// Current returns the identity for the held token, re-validating it against
// the provider. An expired token signs the session out.
func (s *Session) Current(ctx context.Context) (*Identity, error) {
	s.mu.Lock()
	token := s.token
	s.mu.Unlock()

	if token == "" {
		return nil, nil
	}
	id, err := s.auth.Lookup(ctx, token)
	if err != nil {
		return nil, err
	}
	if id == nil {
		token = ""
	}
	s.set(token, id)
	return id, nil
}

// Resume adopts an existing token, for example one from a cookie.
func (s *Session) Resume(ctx context.Context, token string) (*Identity, error) {
	id, err := s.auth.Lookup(ctx, token)
	if err != nil {
		return nil, err
	}
	if id == nil {
		token = ""
	}
	s.set(token, id)
	return id, nil
}

// SignIn authenticates and switches the session to the new identity.
func (s *Session) SignIn(ctx context.Context, email, password string) (*Identity, error) {
	token, id, err := s.auth.SignIn(ctx, email, password)
	if err != nil {
		return nil, err
	}
	s.set(token, id)
	return id, nil
}

// SignOut ends the provider session and notifies listeners with nil.
func (s *Session) SignOut(ctx context.Context) error {
	s.mu.Lock()
	token := s.token
	s.mu.Unlock()

	err := s.auth.SignOut(ctx, token)
	s.set("", nil)
	return err
}

// OnChange registers fn for identity changes and returns its unsubscribe
// function.
func (s *Session) OnChange(fn func(*Identity)) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
		})
	}
}

// set stores the new state and notifies listeners when the identity moved.
func (s *Session) set(token string, id *Identity) {
	s.mu.Lock()
	changed := !sameIdentity(s.current, id)
	s.token = token
	s.current = id
	var fns []func(*Identity)
	if changed {
		fns = make([]func(*Identity), 0, len(s.subs))
		for _, fn := range s.subs {
			fns = append(fns, fn)
		}
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(id)
	}
}

func sameIdentity(a, b *Identity) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.ID == b.ID
}
