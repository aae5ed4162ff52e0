package renderer

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/wcharczuk/go-chart/v2/drawing"
)

// chartConfig is the subset of a Chart.js configuration the renderer reads.
type chartConfig struct {
	Type string `json:"type"`
	Data struct {
		Labels   []any     `json:"labels"`
		Datasets []dataset `json:"datasets"`
	} `json:"data"`
	Options struct {
		Plugins struct {
			Title struct {
				Display *bool           `json:"display"`
				Text    json.RawMessage `json:"text"`
			} `json:"title"`
		} `json:"plugins"`
	} `json:"options"`
}

type dataset struct {
	Label           string          `json:"label"`
	Data            []*float64      `json:"data"`
	BackgroundColor json.RawMessage `json:"backgroundColor"`
	BorderColor     json.RawMessage `json:"borderColor"`
}

func parseConfig(text string) (*chartConfig, error) {
	var cfg chartConfig
	if err := json.Unmarshal([]byte(text), &cfg); err != nil {
		return nil, fmt.Errorf("unsupported chart configuration: %w", err)
	}
	cfg.Type = strings.ToLower(strings.TrimSpace(cfg.Type))
	if cfg.Type == "" {
		cfg.Type = "bar"
	}
	if err := cfg.checkRange(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// maxMagnitude bounds data values and their spread. go-chart maps values to
// pixels with int conversions that overflow, and then loop, far below
// math.MaxFloat64.
const maxMagnitude = 1e15

// checkRange rejects data values go-chart cannot lay out.
func (c *chartConfig) checkRange() error {
	lo, hi := math.Inf(1), math.Inf(-1)
	for i, ds := range c.Data.Datasets {
		for j, v := range ds.Data {
			if v == nil {
				continue
			}
			if math.IsNaN(*v) || math.IsInf(*v, 0) || math.Abs(*v) > maxMagnitude {
				return fmt.Errorf("dataset %d value %d is out of range (|v| <= %g)", i, j, maxMagnitude)
			}
			lo, hi = min(lo, *v), max(hi, *v)
		}
	}
	if hi-lo > maxMagnitude {
		return fmt.Errorf("data spans %g, more than %g", hi-lo, maxMagnitude)
	}
	return nil
}

// title returns the chart title, or "" when it is hidden or absent. Chart.js
// accepts a string or a list of lines.
func (c *chartConfig) title() string {
	t := c.Options.Plugins.Title
	if t.Display != nil && !*t.Display {
		return ""
	}
	if len(t.Text) == 0 {
		return ""
	}
	var s string
	if json.Unmarshal(t.Text, &s) == nil {
		return s
	}
	var lines []string
	if json.Unmarshal(t.Text, &lines) == nil {
		return strings.Join(lines, " ")
	}
	return ""
}

func (c *chartConfig) label(i int) string {
	if i < len(c.Data.Labels) && c.Data.Labels[i] != nil {
		return fmt.Sprint(c.Data.Labels[i])
	}
	return strconv.Itoa(i + 1)
}

func values(d dataset) []float64 {
	out := make([]float64, len(d.Data))
	for i, v := range d.Data {
		if v != nil {
			out[i] = *v
		}
	}
	return out
}

// colors decodes a Chart.js color option: a single color string or a list.
// Unparseable entries are skipped.
func colors(raw json.RawMessage) []drawing.Color {
	if len(raw) == 0 {
		return nil
	}
	var one string
	if json.Unmarshal(raw, &one) == nil {
		if c, ok := parseColor(one); ok {
			return []drawing.Color{c}
		}
		return nil
	}
	var many []string
	if json.Unmarshal(raw, &many) != nil {
		return nil
	}
	out := make([]drawing.Color, 0, len(many))
	for _, s := range many {
		if c, ok := parseColor(s); ok {
			out = append(out, c)
		}
	}
	return out
}

// colorAt cycles through cs, falling back to the default palette.
func colorAt(cs []drawing.Color, i int) drawing.Color {
	if len(cs) == 0 {
		return palette[i%len(palette)]
	}
	return cs[i%len(cs)]
}

var palette = []drawing.Color{
	{R: 255, G: 99, B: 132, A: 255},
	{R: 54, G: 162, B: 235, A: 255},
	{R: 255, G: 206, B: 86, A: 255},
	{R: 75, G: 192, B: 192, A: 255},
	{R: 153, G: 102, B: 255, A: 255},
	{R: 255, G: 159, B: 64, A: 255},
}

// parseColor understands #rgb, #rrggbb, #rrggbbaa, rgb(r, g, b) and
// rgba(r, g, b, a) with a in [0, 1].
func parseColor(s string) (drawing.Color, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch {
	case strings.HasPrefix(s, "#"):
		return parseHex(s[1:])
	case strings.HasPrefix(s, "rgba(") && strings.HasSuffix(s, ")"):
		return parseRGB(s[5:len(s)-1], true)
	case strings.HasPrefix(s, "rgb(") && strings.HasSuffix(s, ")"):
		return parseRGB(s[4:len(s)-1], false)
	}
	return drawing.Color{}, false
}

func parseHex(h string) (drawing.Color, bool) {
	if len(h) == 3 {
		h = string([]byte{h[0], h[0], h[1], h[1], h[2], h[2]})
	}
	if len(h) != 6 && len(h) != 8 {
		return drawing.Color{}, false
	}
	n, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return drawing.Color{}, false
	}
	if len(h) == 6 {
		return drawing.Color{R: uint8(n >> 16), G: uint8(n >> 8), B: uint8(n), A: 255}, true
	}
	return drawing.Color{R: uint8(n >> 24), G: uint8(n >> 16), B: uint8(n >> 8), A: uint8(n)}, true
}

func parseRGB(body string, withAlpha bool) (drawing.Color, bool) {
	parts := strings.Split(body, ",")
	if (withAlpha && len(parts) != 4) || (!withAlpha && len(parts) != 3) {
		return drawing.Color{}, false
	}
	var rgb [3]uint8
	for i := 0; i < 3; i++ {
		n, err := strconv.Atoi(strings.TrimSpace(parts[i]))
		if err != nil || n < 0 || n > 255 {
			return drawing.Color{}, false
		}
		rgb[i] = uint8(n)
	}
	alpha := uint8(255)
	if withAlpha {
		a, err := strconv.ParseFloat(strings.TrimSpace(parts[3]), 64)
		if err != nil || a < 0 || a > 1 {
			return drawing.Color{}, false
		}
		alpha = uint8(a*255 + 0.5)
	}
	return drawing.Color{R: rgb[0], G: rgb[1], B: rgb[2], A: alpha}, true
}
