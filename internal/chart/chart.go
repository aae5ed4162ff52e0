// Package chart holds the chart specification and saved chart entities
// together with the pure helpers that derive values from them.
package chart

import (
	"encoding/json"
	"strconv"
	"time"
)

// Fallback dimensions used when an editor starts empty or a saved chart
// has no stored size.
const (
	DefaultWidth  = 800
	DefaultHeight = 600
)

// DefaultType is the chart type recorded when a config has no usable
// top-level "type".
const DefaultType = "bar"

// Specification is the editable description of a chart. All three fields
// are kept as text so partial or invalid input is a legal draft state.
type Specification struct {
	ConfigText string `json:"config"`
	Width      string `json:"width"`
	Height     string `json:"height"`
}

// NewSpecification returns an empty draft with the given default size.
func NewSpecification(width, height int) Specification {
	return Specification{
		Width:  strconv.Itoa(width),
		Height: strconv.Itoa(height),
	}
}

// SavedChart is a durable, owned, named snapshot of a Specification.
type SavedChart struct {
	// ID is a ULID assigned by the store
	ID string `json:"id"`

	// OwnerID is the identity that created the record; never changes
	OwnerID string `json:"owner_id"`

	// Title is the non-empty display label
	Title string `json:"title"`

	// ChartType is derived from the config's top-level "type" at save time
	ChartType string `json:"chart_type"`

	// Config is the validated JSON object, kept byte-for-byte as submitted
	Config json.RawMessage `json:"config"`

	// Width and Height are nil when the text did not parse at save time
	Width  *int `json:"width"`
	Height *int `json:"height"`

	// CreatedAt is the Unix timestamp in milliseconds assigned by the store
	CreatedAt int64 `json:"created_at"`
}

// Created returns CreatedAt as a time.Time in UTC.
func (c *SavedChart) Created() time.Time {
	return time.UnixMilli(c.CreatedAt).UTC()
}

// Specification converts the record back into an editable draft. Missing
// dimensions fall back to the given defaults.
func (c *SavedChart) Specification(defaultWidth, defaultHeight int) Specification {
	w, h := defaultWidth, defaultHeight
	if c.Width != nil {
		w = *c.Width
	}
	if c.Height != nil {
		h = *c.Height
	}
	return Specification{
		ConfigText: string(c.Config),
		Width:      strconv.Itoa(w),
		Height:     strconv.Itoa(h),
	}
}
