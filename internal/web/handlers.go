package web

import (
	"net/http"
	"time"

	"github.com/hpungsan/chartd/internal/chart"
	"github.com/hpungsan/chartd/internal/config"
	"github.com/hpungsan/chartd/internal/errors"
	"github.com/hpungsan/chartd/internal/identity"
	"github.com/hpungsan/chartd/internal/panel"
	"github.com/hpungsan/chartd/internal/render"
	"github.com/hpungsan/chartd/internal/screen"
)

// Cookie names.
const (
	screenCookie  = "chartd_screen"
	sessionCookie = "chartd_session"
)

// previewPath is the same-origin image proxy the editor's <img> points at.
const previewPath = "/preview"

// Handlers contains HTTP route handlers for the web UI.
type Handlers struct {
	cfg      *config.Config
	renderer *Renderer
	provider *identity.Provider
	fetcher  *render.Fetcher
	public   render.Builder // URLs handed to users
	internal render.Builder // URLs the server itself fetches
	screens  *screens
}

// HandleEditor handles GET /: the editor page.
func (h *Handlers) HandleEditor(w http.ResponseWriter, r *http.Request) {
	s, err := h.screenFor(w, r)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	h.renderer.renderPage(w, r, "editor", h.pageData(s, ""))
}

// HandleUpdate handles POST /editor: write form fields into the editor.
// Only fields present in the form are changed.
func (h *Handlers) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	s, err := h.screenFor(w, r)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	if err := r.ParseForm(); err != nil {
		h.renderer.renderError(w, r, errors.NewValidation("form", "invalid form data"))
		return
	}

	ed := s.Editor()
	if v, ok := r.PostForm["config"]; ok {
		ed.SetConfig(first(v))
	}
	if v, ok := r.PostForm["width"]; ok {
		ed.SetWidth(first(v))
	}
	if v, ok := r.PostForm["height"]; ok {
		ed.SetHeight(first(v))
	}

	switch {
	case isHX(r):
		h.renderer.renderBlock(w, http.StatusOK, "editor", "preview", h.pageData(s, ""))
	case wantsJSON(r):
		renderJSON(w, http.StatusOK, map[string]any{
			"url":      s.PreviewURL(),
			"examples": s.Examples(),
		})
	default:
		http.Redirect(w, r, "/", http.StatusSeeOther)
	}
}

// HandlePreset handles POST /presets/{key}: load a preset's config.
func (h *Handlers) HandlePreset(w http.ResponseWriter, r *http.Request) {
	s, err := h.screenFor(w, r)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	if err := s.SelectPreset(r.PathValue("key")); err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	switch {
	case isHX(r):
		h.renderer.renderBlock(w, http.StatusOK, "editor", "editor", h.pageData(s, ""))
	case wantsJSON(r):
		renderJSON(w, http.StatusOK, map[string]any{
			"config": s.Editor().ConfigText(),
			"url":    s.PreviewURL(),
		})
	default:
		http.Redirect(w, r, "/", http.StatusSeeOther)
	}
}

// HandlePreview handles GET /preview: fetch the render URL for the given
// c/w/h parameters from the renderer and relay the image. A failed render
// is answered with the placeholder image, never an error.
func (h *Handlers) HandlePreview(w http.ResponseWriter, r *http.Request) {
	spec := render.ParseQuery(r.URL.Query())
	img := h.fetcher.Fetch(r.Context(), h.internal.URL(spec))

	w.Header().Set("Content-Type", img.ContentType)
	if img.Fallback {
		w.Header().Set("X-Chart-Fallback", "true")
		w.Header().Set("Cache-Control", "no-store")
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(img.Data)
}

// HandleCharts handles GET /charts: re-list the signed-in user's charts.
func (h *Handlers) HandleCharts(w http.ResponseWriter, r *http.Request) {
	s, p, err := h.panelFor(w, r)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	err = p.Refresh(r.Context())
	h.respondPanel(w, r, s, p, err, func() any {
		return map[string]any{"items": p.Items()}
	})
}

// HandleSave handles POST /charts: save the editor under a title.
func (h *Handlers) HandleSave(w http.ResponseWriter, r *http.Request) {
	s, p, err := h.panelFor(w, r)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	if err := r.ParseForm(); err != nil {
		h.renderer.renderError(w, r, errors.NewValidation("form", "invalid form data"))
		return
	}

	saved, err := p.Save(r.Context(), r.PostFormValue("title"))
	h.respondPanel(w, r, s, p, err, func() any {
		return map[string]any{"chart": saved, "url": h.public.URL(saved.Specification(h.cfg.DefaultWidth, h.cfg.DefaultHeight))}
	})
}

// HandleLoad handles POST /charts/{id}/load: copy a saved chart into the
// editor.
func (h *Handlers) HandleLoad(w http.ResponseWriter, r *http.Request) {
	s, p, err := h.panelFor(w, r)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	loaded, err := p.Load(r.PathValue("id"))
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	switch {
	case isHX(r):
		h.renderer.renderBlock(w, http.StatusOK, "editor", "editor", h.pageData(s, ""))
	case wantsJSON(r):
		renderJSON(w, http.StatusOK, map[string]any{
			"chart": loaded,
			"url":   s.PreviewURL(),
		})
	default:
		http.Redirect(w, r, "/", http.StatusSeeOther)
	}
}

// HandleDelete handles DELETE /charts/{id} and its form fallback
// POST /charts/{id}/delete.
func (h *Handlers) HandleDelete(w http.ResponseWriter, r *http.Request) {
	s, p, err := h.panelFor(w, r)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	id := r.PathValue("id")
	err = p.Delete(r.Context(), id)
	h.respondPanel(w, r, s, p, err, func() any {
		return map[string]any{"deleted": true, "id": id}
	})
}

// HandleSignIn handles POST /signin.
func (h *Handlers) HandleSignIn(w http.ResponseWriter, r *http.Request) {
	s, err := h.screenFor(w, r)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	if err := r.ParseForm(); err != nil {
		h.renderer.renderError(w, r, errors.NewValidation("form", "invalid form data"))
		return
	}

	id, err := s.Session().SignIn(r.Context(), r.PostFormValue("email"), r.PostFormValue("password"))
	if err != nil {
		h.authFailed(w, r, s, err)
		return
	}
	h.signedIn(w, r, s, id)
}

// HandleSignUp handles POST /signup: register, then sign in.
func (h *Handlers) HandleSignUp(w http.ResponseWriter, r *http.Request) {
	s, err := h.screenFor(w, r)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	if err := r.ParseForm(); err != nil {
		h.renderer.renderError(w, r, errors.NewValidation("form", "invalid form data"))
		return
	}

	email, password := r.PostFormValue("email"), r.PostFormValue("password")
	if _, err := h.provider.SignUp(r.Context(), email, password); err != nil {
		h.authFailed(w, r, s, err)
		return
	}
	id, err := s.Session().SignIn(r.Context(), email, password)
	if err != nil {
		h.authFailed(w, r, s, err)
		return
	}
	h.signedIn(w, r, s, id)
}

// HandleSignOut handles POST /signout.
func (h *Handlers) HandleSignOut(w http.ResponseWriter, r *http.Request) {
	s, err := h.screenFor(w, r)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	if err := s.Session().SignOut(r.Context()); err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	clearCookie(w, sessionCookie)

	switch {
	case isHX(r):
		w.Header().Set("HX-Redirect", "/")
		w.WriteHeader(http.StatusOK)
	case wantsJSON(r):
		renderJSON(w, http.StatusOK, map[string]any{"signed_out": true})
	default:
		http.Redirect(w, r, "/", http.StatusSeeOther)
	}
}

// screenFor returns the caller's screen, creating one on first visit, and
// brings its identity in line with the session cookie.
func (h *Handlers) screenFor(w http.ResponseWriter, r *http.Request) (*screen.Screen, error) {
	var s *screen.Screen
	if c, err := r.Cookie(screenCookie); err == nil {
		s, _ = h.screens.get(c.Value)
	}
	if s == nil {
		var err error
		s, err = h.screens.create()
		if err != nil {
			return nil, errors.NewInternal(err)
		}
		http.SetCookie(w, &http.Cookie{
			Name:     screenCookie,
			Value:    s.ID(),
			Path:     "/",
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
	}

	token := ""
	if c, err := r.Cookie(sessionCookie); err == nil {
		token = c.Value
	}
	if token != s.Session().Token() {
		id, err := s.Session().Resume(r.Context(), token)
		if err != nil {
			return nil, err
		}
		if id == nil && token != "" {
			clearCookie(w, sessionCookie)
		}
	}
	return s, nil
}

// panelFor is screenFor plus the saved charts panel, which only exists for
// a signed-in user.
func (h *Handlers) panelFor(w http.ResponseWriter, r *http.Request) (*screen.Screen, *panel.Panel, error) {
	s, err := h.screenFor(w, r)
	if err != nil {
		return nil, nil, err
	}
	p := s.Panel()
	if p == nil {
		return nil, nil, errors.NewUnauthenticated("sign in to use saved charts")
	}
	return s, p, nil
}

// respondPanel answers a panel action. Partial requests always get the
// panel back, with any failure shown as its inline notice.
func (h *Handlers) respondPanel(w http.ResponseWriter, r *http.Request, s *screen.Screen, p *panel.Panel, err error, body func() any) {
	switch {
	case isHX(r):
		h.renderer.renderBlock(w, http.StatusOK, "editor", "panel", h.pageData(s, ""))
	case err != nil:
		h.renderer.renderError(w, r, err)
	case wantsJSON(r):
		renderJSON(w, http.StatusOK, body())
	default:
		http.Redirect(w, r, "/", http.StatusSeeOther)
	}
}

func (h *Handlers) signedIn(w http.ResponseWriter, r *http.Request, s *screen.Screen, id *identity.Identity) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    s.Session().Token(),
		Path:     "/",
		MaxAge:   int(h.sessionTTL().Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	switch {
	case isHX(r):
		w.Header().Set("HX-Redirect", "/")
		w.WriteHeader(http.StatusOK)
	case wantsJSON(r):
		renderJSON(w, http.StatusOK, map[string]any{"user": id})
	default:
		http.Redirect(w, r, "/", http.StatusSeeOther)
	}
}

// authFailed shows sign-in problems next to the form on full page loads.
func (h *Handlers) authFailed(w http.ResponseWriter, r *http.Request, s *screen.Screen, err error) {
	if isHX(r) || wantsJSON(r) {
		h.renderer.renderError(w, r, err)
		return
	}
	h.renderer.renderPageStatus(w, r, errors.As(err).Status, "editor", h.pageData(s, errors.As(err).Message))
}

func (h *Handlers) pageData(s *screen.Screen, notice string) EditorPageData {
	snap := s.Editor().Snapshot()
	examples := s.Examples()

	var embed string
	for _, ex := range examples {
		if ex.Language == "Markdown" {
			embed = ex.Code
		}
	}

	return EditorPageData{
		PageData: PageData{
			Title:   "Chart Editor",
			Version: h.renderer.version,
			User:    s.Identity(),
		},
		Editor: EditorData{
			Config:     snap.ConfigText,
			Width:      snap.Width,
			Height:     snap.Height,
			Presets:    s.Presets(),
			PreviewURL: s.PreviewURL(),
			PreviewSrc: render.Builder{Path: previewPath}.URL(snap),
			Fallback:   render.PlaceholderDataURI,
			Examples:   examples,
			Embed:      renderMarkdown(embed),
		},
		Panel:  panelData(s.Panel()),
		Notice: notice,
	}
}

func (h *Handlers) sessionTTL() time.Duration {
	if h.cfg.SessionTTLHours > 0 {
		return time.Duration(h.cfg.SessionTTLHours) * time.Hour
	}
	return identity.DefaultTTL
}

func clearCookie(w http.ResponseWriter, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func first(v []string) string {
	if len(v) == 0 {
		return ""
	}
	return v[0]
}

// editorPresets is the preset list a server offers: the built-ins plus any
// loaded from the presets file.
func editorPresets(extra chart.Presets) chart.Presets {
	return chart.MergePresets(chart.BuiltinPresets(), extra)
}
