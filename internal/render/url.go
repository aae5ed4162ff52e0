// Package render builds render URLs for chart specifications and fetches the
// images they point at, falling back to a placeholder when rendering fails.
package render

import (
	"net/url"
	"strings"

	"github.com/hpungsan/chartd/internal/chart"
)

// DefaultPath is the render endpoint path under the base origin.
const DefaultPath = "/api/chart"

// Query parameter names of the render contract.
const (
	ParamConfig = "c"
	ParamWidth  = "w"
	ParamHeight = "h"
)

// BuildURL returns the render URL for spec under baseOrigin. It is a pure
// function: the same inputs always give the same string. The config text is
// not validated.
func BuildURL(spec chart.Specification, baseOrigin string) string {
	return Builder{Origin: baseOrigin}.URL(spec)
}

// Builder builds render URLs against a configured origin and path.
type Builder struct {
	Origin string
	Path   string // default DefaultPath
}

// URL returns the render URL for spec. Parameters are emitted in the fixed
// order c, w, h and form-encoded.
func (b Builder) URL(spec chart.Specification) string {
	path := b.Path
	if path == "" {
		path = DefaultPath
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	var sb strings.Builder
	sb.WriteString(strings.TrimRight(b.Origin, "/"))
	sb.WriteString(path)
	sb.WriteByte('?')
	sb.WriteString(ParamConfig)
	sb.WriteByte('=')
	sb.WriteString(url.QueryEscape(spec.ConfigText))
	sb.WriteByte('&')
	sb.WriteString(ParamWidth)
	sb.WriteByte('=')
	sb.WriteString(url.QueryEscape(spec.Width))
	sb.WriteByte('&')
	sb.WriteString(ParamHeight)
	sb.WriteByte('=')
	sb.WriteString(url.QueryEscape(spec.Height))
	return sb.String()
}

// ParseQuery extracts a specification from render query parameters.
func ParseQuery(q url.Values) chart.Specification {
	return chart.Specification{
		ConfigText: q.Get(ParamConfig),
		Width:      q.Get(ParamWidth),
		Height:     q.Get(ParamHeight),
	}
}
