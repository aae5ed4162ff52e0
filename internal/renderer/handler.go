package renderer

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/hpungsan/chartd/internal/render"
)

// Handler serves GET <path>?c=&w=&h= with a PNG image. Bad input is answered
// with 400 and the placeholder SVG so an <img> still shows something.
type Handler struct {
	logger *slog.Logger
}

// NewHandler creates a Handler. A nil logger uses slog.Default().
func NewHandler(logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	spec := render.ParseQuery(r.URL.Query())
	img, err := Render(spec, FormatPNG)
	if err != nil {
		h.logger.Debug("render rejected", "error", err)
		w.Header().Set("Content-Type", "image/svg+xml")
		w.Header().Set("Content-Length", strconv.Itoa(len(render.PlaceholderSVG)))
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(render.PlaceholderSVG))
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(len(img)))
	w.WriteHeader(http.StatusOK)
	if r.Method == http.MethodHead {
		return
	}
	_, _ = w.Write(img)
}
