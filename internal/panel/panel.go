// Package panel implements the saved charts side panel: listing, saving,
// loading and deleting one identity's saved charts against an editor.
//
// The panel is a small state machine:
//
//	Idle --Mount--> Loading --list--> Ready --Save--> Saving --list--> Ready
//
// Load and Delete are only accepted in Ready. Every list call carries a
// sequence number and a response older than the newest applied one is
// dropped. Unmount discards the results of calls still in flight.
package panel

import (
	"context"
	"log/slog"
	"slices"
	"sync"

	"github.com/hpungsan/chartd/internal/chart"
	"github.com/hpungsan/chartd/internal/editor"
	"github.com/hpungsan/chartd/internal/errors"
	"github.com/hpungsan/chartd/internal/identity"
	"github.com/hpungsan/chartd/internal/ops"
)

// State is the panel's lifecycle state.
type State int

const (
	Idle State = iota
	Loading
	Ready
	Saving
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Loading:
		return "loading"
	case Ready:
		return "ready"
	case Saving:
		return "saving"
	default:
		return "unknown"
	}
}

// Gateway is the persistence surface the panel drives. *ops.Gateway
// satisfies it.
type Gateway interface {
	List(ctx context.Context, input ops.ListInput) (*ops.ListOutput, error)
	Create(ctx context.Context, input ops.CreateInput) (*ops.CreateOutput, error)
	Remove(ctx context.Context, input ops.RemoveInput) (*ops.RemoveOutput, error)
}

// Option configures a Panel.
type Option func(*Panel)

// WithLogger sets the logger used for store failures.
func WithLogger(l *slog.Logger) Option {
	return func(p *Panel) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithDefaultSize sets the size loaded into the editor for saved charts
// that have no stored dimensions.
func WithDefaultSize(width, height int) Option {
	return func(p *Panel) {
		if width > 0 {
			p.defaultWidth = width
		}
		if height > 0 {
			p.defaultHeight = height
		}
	}
}

// Panel is bound to one identity for its whole life. A new identity gets a
// new Panel.
type Panel struct {
	owner  identity.Identity
	gw     Gateway
	editor *editor.State
	logger *slog.Logger

	defaultWidth  int
	defaultHeight int

	mu      sync.Mutex
	state   State
	items   []chart.SavedChart
	notice  string
	issued  uint64 // last list sequence handed out
	applied uint64 // sequence of the list currently displayed
	gen     uint64 // bumped by Unmount
}

// New creates an unmounted panel for owner. It refuses to exist without an
// identity so anonymous screens never reach the store.
func New(owner *identity.Identity, gw Gateway, ed *editor.State, opts ...Option) (*Panel, error) {
	if owner == nil || owner.ID == "" {
		return nil, errors.NewUnauthenticated("saved charts require a signed-in user")
	}
	p := &Panel{
		owner:         *owner,
		gw:            gw,
		editor:        ed,
		logger:        slog.New(nopHandler{}),
		defaultWidth:  chart.DefaultWidth,
		defaultHeight: chart.DefaultHeight,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Owner returns the identity the panel serves.
func (p *Panel) Owner() identity.Identity { return p.owner }

// State returns the current lifecycle state.
func (p *Panel) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Items returns a copy of the displayed saved charts, newest first.
func (p *Panel) Items() []chart.SavedChart {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Clone(p.items)
}

// Notice returns the last inline message, or "" after a clean operation.
func (p *Panel) Notice() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.notice
}

// Mount moves an idle panel to Loading and fetches the list.
func (p *Panel) Mount(ctx context.Context) error {
	p.mu.Lock()
	if p.state != Idle {
		p.mu.Unlock()
		return nil
	}
	p.state = Loading
	p.mu.Unlock()

	return p.refresh(ctx)
}

// Refresh re-lists the saved charts while the panel is Ready.
func (p *Panel) Refresh(ctx context.Context) error {
	p.mu.Lock()
	if p.state != Ready {
		st := p.state
		p.mu.Unlock()
		return notReady(st)
	}
	p.mu.Unlock()
	return p.refresh(ctx)
}

// Unmount returns the panel to Idle. Results of calls still in flight are
// dropped when they arrive.
func (p *Panel) Unmount() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.gen++
	p.state = Idle
	p.items = nil
	p.notice = ""
}

// Save stores the editor's current specification under title and re-lists.
func (p *Panel) Save(ctx context.Context, title string) (*chart.SavedChart, error) {
	p.mu.Lock()
	if p.state == Saving {
		p.mu.Unlock()
		return nil, errors.NewConflict("a save is already in progress")
	}
	if p.state != Ready {
		st := p.state
		p.mu.Unlock()
		return nil, notReady(st)
	}
	title, err := ops.ValidateTitle(title)
	if err != nil {
		p.notice = errors.As(err).Message
		p.mu.Unlock()
		return nil, err
	}
	p.state = Saving
	gen := p.gen
	p.mu.Unlock()

	spec := p.editor.Snapshot()
	out, err := p.gw.Create(ctx, ops.CreateInput{
		OwnerID:    p.owner.ID,
		Title:      title,
		ConfigText: spec.ConfigText,
		Width:      spec.Width,
		Height:     spec.Height,
	})

	p.mu.Lock()
	if gen != p.gen {
		p.mu.Unlock()
		return nil, errors.NewConflict("panel was closed before the save finished")
	}
	if err != nil {
		p.state = Ready
		p.fail("save", err)
		p.mu.Unlock()
		return nil, err
	}
	p.mu.Unlock()

	saved := out.Chart
	// A failed re-list leaves the old items and a notice; the save itself
	// went through.
	_ = p.refresh(ctx)

	p.mu.Lock()
	if gen == p.gen && p.state == Saving {
		p.state = Ready
	}
	p.mu.Unlock()

	p.logger.Info("chart saved", "id", saved.ID, "owner", p.owner.ID, "type", saved.ChartType)
	return &saved, nil
}

// Load copies a displayed saved chart into the editor. The panel state does
// not change.
func (p *Panel) Load(id string) (*chart.SavedChart, error) {
	p.mu.Lock()
	if p.state != Ready {
		st := p.state
		p.mu.Unlock()
		return nil, notReady(st)
	}
	idx := p.indexOf(id)
	if idx < 0 {
		p.mu.Unlock()
		return nil, errors.NewNotFound("chart", id)
	}
	c := p.items[idx]
	p.mu.Unlock()

	p.editor.Replace(c.Specification(p.defaultWidth, p.defaultHeight))
	return &c, nil
}

// Delete removes a saved chart. On success the item is dropped from the
// displayed list without a round trip; if the store removed nothing the
// list is re-fetched instead. On failure the list is left as it was.
func (p *Panel) Delete(ctx context.Context, id string) error {
	p.mu.Lock()
	if p.state != Ready {
		st := p.state
		p.mu.Unlock()
		return notReady(st)
	}
	gen := p.gen
	p.mu.Unlock()

	out, err := p.gw.Remove(ctx, ops.RemoveInput{ID: id, OwnerID: p.owner.ID})

	p.mu.Lock()
	if gen != p.gen {
		p.mu.Unlock()
		return nil
	}
	if err != nil {
		p.fail("delete", err)
		p.mu.Unlock()
		return err
	}
	if out.Removed {
		if idx := p.indexOf(id); idx >= 0 {
			p.items = slices.Delete(slices.Clone(p.items), idx, idx+1)
		}
		p.notice = ""
		p.mu.Unlock()
		return nil
	}
	p.mu.Unlock()

	p.logger.Debug("delete removed nothing, re-listing", "id", id, "owner", p.owner.ID)
	return p.refresh(ctx)
}

// refresh lists the owner's charts and applies the result unless a newer
// list has already been applied or the panel was unmounted meanwhile.
func (p *Panel) refresh(ctx context.Context) error {
	p.mu.Lock()
	p.issued++
	seq := p.issued
	gen := p.gen
	p.mu.Unlock()

	out, err := p.gw.List(ctx, ops.ListInput{OwnerID: p.owner.ID})

	p.mu.Lock()
	defer p.mu.Unlock()

	if gen != p.gen {
		return nil
	}
	if p.state == Loading {
		p.state = Ready
	}
	if seq < p.applied {
		p.logger.Debug("dropping stale list response", "seq", seq, "applied", p.applied)
		return nil
	}
	if err != nil {
		p.fail("list", err)
		return err
	}

	p.items = out.Items
	p.applied = seq
	p.notice = ""
	return nil
}

// fail records err as the inline notice. Callers hold p.mu.
func (p *Panel) fail(op string, err error) {
	cerr := errors.As(err)
	p.notice = cerr.Message
	if cerr.Code == errors.ErrValidation {
		return
	}
	p.logger.Error("saved charts "+op+" failed", "owner", p.owner.ID, "code", cerr.Code, "error", err, "cause", cerr.Unwrap())
}

func (p *Panel) indexOf(id string) int {
	return slices.IndexFunc(p.items, func(c chart.SavedChart) bool { return c.ID == id })
}

func notReady(st State) error {
	return errors.NewConflict("saved charts are " + st.String())
}
