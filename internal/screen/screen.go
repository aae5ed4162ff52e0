// Package screen composes one chart editor session: the live editor state,
// the preset picker, the derived render URL, usage examples and, while
// someone is signed in, that identity's saved charts panel.
package screen

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/hpungsan/chartd/internal/chart"
	"github.com/hpungsan/chartd/internal/editor"
	"github.com/hpungsan/chartd/internal/errors"
	"github.com/hpungsan/chartd/internal/identity"
	"github.com/hpungsan/chartd/internal/panel"
	"github.com/hpungsan/chartd/internal/render"
)

// mountTimeout bounds the list call made when an identity appears.
const mountTimeout = 10 * time.Second

// Options configures a Screen.
type Options struct {
	ID      string
	Presets chart.Presets
	Builder render.Builder
	Session *identity.Session
	Gateway panel.Gateway
	Logger  *slog.Logger

	DefaultWidth  int
	DefaultHeight int
}

// Screen is one editor session. It owns its editor state exclusively.
type Screen struct {
	id      string
	editor  *editor.State
	presets chart.Presets
	builder render.Builder
	session *identity.Session
	gw      panel.Gateway
	logger  *slog.Logger

	defaultWidth  int
	defaultHeight int

	mu          sync.Mutex
	identity    *identity.Identity
	panel       *panel.Panel
	unsubscribe func()
}

// New creates a screen with a fresh editor at the default size and starts
// following the session's identity.
func New(opts Options) *Screen {
	w, h := opts.DefaultWidth, opts.DefaultHeight
	if w <= 0 {
		w = chart.DefaultWidth
	}
	if h <= 0 {
		h = chart.DefaultHeight
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	presets := opts.Presets
	if len(presets) == 0 {
		presets = chart.BuiltinPresets()
	}

	s := &Screen{
		id:            opts.ID,
		editor:        editor.New(chart.NewSpecification(w, h)),
		presets:       presets,
		builder:       opts.Builder,
		session:       opts.Session,
		gw:            opts.Gateway,
		logger:        logger.With("screen", opts.ID),
		defaultWidth:  w,
		defaultHeight: h,
	}
	if s.session != nil {
		s.unsubscribe = s.session.OnChange(s.identityChanged)
	}
	return s
}

// ID returns the screen identifier.
func (s *Screen) ID() string { return s.id }

// Editor returns the screen's editor state.
func (s *Screen) Editor() *editor.State { return s.editor }

// Session returns the identity session, or nil for an anonymous-only screen.
func (s *Screen) Session() *identity.Session { return s.session }

// Presets returns the presets offered by the picker.
func (s *Screen) Presets() chart.Presets { return s.presets }

// SelectPreset replaces the editor's configuration text with the preset's.
// Width and height are left alone.
func (s *Screen) SelectPreset(key string) error {
	p, ok := s.presets.Lookup(key)
	if !ok {
		return errors.NewNotFound("preset", key)
	}
	s.editor.SetConfig(p.Config)
	return nil
}

// PreviewURL derives the render URL from the editor's current contents.
func (s *Screen) PreviewURL() string {
	return s.builder.URL(s.editor.Snapshot())
}

// Examples returns usage snippets for the current render URL.
func (s *Screen) Examples() []chart.Example {
	return chart.UsageExamples(s.PreviewURL())
}

// Identity returns the signed-in identity, or nil.
func (s *Screen) Identity() *identity.Identity {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.identity
}

// Panel returns the saved charts panel, or nil while nobody is signed in.
func (s *Screen) Panel() *panel.Panel {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.panel
}

// Close stops following identity changes and unmounts the panel.
func (s *Screen) Close() {
	s.mu.Lock()
	unsubscribe := s.unsubscribe
	p := s.panel
	s.unsubscribe = nil
	s.panel = nil
	s.identity = nil
	s.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
	if p != nil {
		p.Unmount()
	}
}

// identityChanged swaps the panel when the signed-in identity changes: the
// old panel is unmounted and a new one is built and mounted for the new
// identity. A nil identity leaves no panel at all.
func (s *Screen) identityChanged(id *identity.Identity) {
	s.mu.Lock()
	old := s.panel
	if old != nil && id != nil && old.Owner().ID == id.ID {
		s.mu.Unlock()
		return
	}
	s.identity = id
	s.panel = nil

	var next *panel.Panel
	if id != nil && s.gw != nil {
		p, err := panel.New(id, s.gw, s.editor,
			panel.WithLogger(s.logger),
			panel.WithDefaultSize(s.defaultWidth, s.defaultHeight),
		)
		if err != nil {
			s.logger.Warn("saved charts panel not created", "error", err)
		} else {
			next = p
			s.panel = p
		}
	}
	s.mu.Unlock()

	if old != nil {
		old.Unmount()
	}
	if next != nil {
		ctx, cancel := context.WithTimeout(context.Background(), mountTimeout)
		defer cancel()
		// Mount failures stay on the panel as its notice.
		_ = next.Mount(ctx)
	}
}
