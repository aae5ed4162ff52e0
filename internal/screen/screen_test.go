package screen

import (
	"context"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hpungsan/chartd/internal/chart"
	"github.com/hpungsan/chartd/internal/db"
	"github.com/hpungsan/chartd/internal/errors"
	"github.com/hpungsan/chartd/internal/identity"
	"github.com/hpungsan/chartd/internal/ops"
	"github.com/hpungsan/chartd/internal/panel"
	"github.com/hpungsan/chartd/internal/render"
)

const origin = "https://charts.example.com"

type fixture struct {
	provider *identity.Provider
	gateway  *ops.Gateway
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	database, err := db.Init(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })

	p := identity.NewProvider(database, time.Hour)
	_, err = p.SignUp(context.Background(), "ada@example.com", "long enough")
	require.NoError(t, err)
	return &fixture{provider: p, gateway: ops.NewGateway(database)}
}

func (f *fixture) screen() *Screen {
	return New(Options{
		ID:      "s1",
		Builder: render.Builder{Origin: origin},
		Session: identity.NewSession(f.provider),
		Gateway: f.gateway,
	})
}

func TestScreen_Defaults(t *testing.T) {
	s := New(Options{Builder: render.Builder{Origin: origin}})

	snap := s.Editor().Snapshot()
	require.Equal(t, "", snap.ConfigText)
	require.Equal(t, "800", snap.Width)
	require.Equal(t, "600", snap.Height)
	require.Equal(t, []string{"bar", "line", "pie", "doughnut"}, s.Presets().Keys())
	require.Nil(t, s.Panel())
	require.Nil(t, s.Identity())
}

func TestScreen_SelectPreset(t *testing.T) {
	s := New(Options{Builder: render.Builder{Origin: origin}})
	s.Editor().SetWidth("1024")

	require.NoError(t, s.SelectPreset("Pie"))
	require.Equal(t, "pie", chart.TypeOf(s.Editor().ConfigText()))
	require.Equal(t, "1024", s.Editor().Width())

	err := s.SelectPreset("radar")
	require.True(t, errors.Is(err, errors.ErrNotFound))
}

func TestScreen_PreviewURLFollowsEditor(t *testing.T) {
	s := New(Options{Builder: render.Builder{Origin: origin}})

	s.Editor().SetConfig(`{"type":"line"}`)
	first := s.PreviewURL()
	s.Editor().SetHeight("300")
	second := s.PreviewURL()
	require.NotEqual(t, first, second)

	u, err := url.Parse(second)
	require.NoError(t, err)
	require.Equal(t, `{"type":"line"}`, u.Query().Get("c"))
	require.Equal(t, "300", u.Query().Get("h"))

	examples := s.Examples()
	require.Len(t, examples, 5)
	for _, ex := range examples {
		require.Contains(t, ex.Code, second, ex.Language)
	}
}

func TestScreen_IdentityGatesPanel(t *testing.T) {
	f := newFixture(t)
	s := f.screen()
	ctx := context.Background()

	require.Nil(t, s.Panel())

	_, err := s.Session().SignIn(ctx, "ada@example.com", "long enough")
	require.NoError(t, err)

	p := s.Panel()
	require.NotNil(t, p)
	require.Equal(t, panel.Ready, p.State())
	require.Equal(t, "ada@example.com", s.Identity().Email)

	require.NoError(t, s.Session().SignOut(ctx))
	require.Nil(t, s.Panel())
	require.Nil(t, s.Identity())
	require.Equal(t, panel.Idle, p.State())
}

func TestScreen_SaveLoadReproducesURL(t *testing.T) {
	f := newFixture(t)
	s := f.screen()
	ctx := context.Background()

	_, err := s.Session().SignIn(ctx, "ada@example.com", "long enough")
	require.NoError(t, err)

	require.NoError(t, s.SelectPreset("doughnut"))
	s.Editor().SetWidth("500")
	atSave := s.PreviewURL()

	saved, err := s.Panel().Save(ctx, "Q1")
	require.NoError(t, err)
	require.Equal(t, "doughnut", saved.ChartType)

	require.NoError(t, s.SelectPreset("bar"))
	s.Editor().SetWidth("10")
	require.NotEqual(t, atSave, s.PreviewURL())

	_, err = s.Panel().Load(saved.ID)
	require.NoError(t, err)
	require.Equal(t, atSave, s.PreviewURL())
}

func TestScreen_Close(t *testing.T) {
	f := newFixture(t)
	s := f.screen()
	ctx := context.Background()

	_, err := s.Session().SignIn(ctx, "ada@example.com", "long enough")
	require.NoError(t, err)
	p := s.Panel()

	s.Close()
	require.Nil(t, s.Panel())
	require.Equal(t, panel.Idle, p.State())

	// No longer following the session.
	require.NoError(t, s.Session().SignOut(ctx))
	_, err = s.Session().SignIn(ctx, "ada@example.com", "long enough")
	require.NoError(t, err)
	require.Nil(t, s.Panel())
}
