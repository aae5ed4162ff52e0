package chart

import (
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
)

// Preset is a named starting configuration offered by the editor.
type Preset struct {
	Key    string `toml:"key" json:"key"`
	Name   string `toml:"name" json:"name"`
	Config string `toml:"config" json:"config"`
}

// Presets is an ordered preset list.
type Presets []Preset

// Lookup returns the preset with the given key.
func (p Presets) Lookup(key string) (Preset, bool) {
	key = strings.ToLower(strings.TrimSpace(key))
	for _, preset := range p {
		if preset.Key == key {
			return preset, true
		}
	}
	return Preset{}, false
}

// Keys returns preset keys in display order.
func (p Presets) Keys() []string {
	keys := make([]string, len(p))
	for i, preset := range p {
		keys[i] = preset.Key
	}
	return keys
}

// presetFile is the TOML layout of a presets file:
//
//	[[preset]]
//	key = "radar"
//	name = "Radar Chart"
//	config = '''{"type": "radar", ...}'''
type presetFile struct {
	Preset []Preset `toml:"preset"`
}

// LoadPresets reads extra presets from a TOML file. A missing file is not an
// error. Every preset must have a key and a config that is a JSON object.
func LoadPresets(path string) (Presets, error) {
	if path == "" {
		return nil, nil
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to stat presets file: %w", err)
	}

	var file presetFile
	if _, err := toml.DecodeFile(path, &file); err != nil {
		return nil, fmt.Errorf("failed to decode presets file: %w", err)
	}

	out := make(Presets, 0, len(file.Preset))
	for i, p := range file.Preset {
		p.Key = strings.ToLower(strings.TrimSpace(p.Key))
		if p.Key == "" {
			return nil, fmt.Errorf("preset %d: key is required", i)
		}
		if _, err := ValidateConfig(p.Config); err != nil {
			return nil, fmt.Errorf("preset %q: %w", p.Key, err)
		}
		if strings.TrimSpace(p.Name) == "" {
			p.Name = p.Key
		}
		out = append(out, p)
	}
	return out, nil
}

// MergePresets appends extra presets after base. An extra preset whose key
// already exists replaces the base entry in place.
func MergePresets(base, extra Presets) Presets {
	out := make(Presets, len(base), len(base)+len(extra))
	copy(out, base)
	index := make(map[string]int, len(out))
	for i, p := range out {
		index[p.Key] = i
	}
	for _, p := range extra {
		if i, ok := index[p.Key]; ok {
			out[i] = p
			continue
		}
		index[p.Key] = len(out)
		out = append(out, p)
	}
	return out
}

// BuiltinPresets returns the four presets every editor starts with.
func BuiltinPresets() Presets {
	return Presets{
		{Key: "bar", Name: "Bar Chart", Config: barPreset},
		{Key: "line", Name: "Line Chart", Config: linePreset},
		{Key: "pie", Name: "Pie Chart", Config: piePreset},
		{Key: "doughnut", Name: "Doughnut Chart", Config: doughnutPreset},
	}
}

const barPreset = `{
  "type": "bar",
  "data": {
    "labels": ["Red", "Blue", "Yellow", "Green", "Purple", "Orange"],
    "datasets": [{
      "label": "Votes",
      "data": [12, 19, 3, 5, 2, 3],
      "backgroundColor": [
        "rgba(255, 99, 132, 0.2)",
        "rgba(54, 162, 235, 0.2)",
        "rgba(255, 206, 86, 0.2)",
        "rgba(75, 192, 192, 0.2)",
        "rgba(153, 102, 255, 0.2)",
        "rgba(255, 159, 64, 0.2)"
      ],
      "borderColor": [
        "rgba(255, 99, 132, 1)",
        "rgba(54, 162, 235, 1)",
        "rgba(255, 206, 86, 1)",
        "rgba(75, 192, 192, 1)",
        "rgba(153, 102, 255, 1)",
        "rgba(255, 159, 64, 1)"
      ],
      "borderWidth": 1
    }]
  },
  "options": {
    "plugins": {
      "title": {
        "display": true,
        "text": "Sample Bar Chart"
      }
    }
  }
}`

const linePreset = `{
  "type": "line",
  "data": {
    "labels": ["January", "February", "March", "April", "May", "June"],
    "datasets": [{
      "label": "Sales",
      "data": [65, 59, 80, 81, 56, 55],
      "fill": false,
      "borderColor": "rgb(75, 192, 192)",
      "tension": 0.1
    }]
  },
  "options": {
    "plugins": {
      "title": {
        "display": true,
        "text": "Monthly Sales"
      }
    }
  }
}`

const piePreset = `{
  "type": "pie",
  "data": {
    "labels": ["Red", "Blue", "Yellow", "Green", "Purple", "Orange"],
    "datasets": [{
      "label": "Dataset",
      "data": [12, 19, 3, 5, 2, 3],
      "backgroundColor": [
        "rgba(255, 99, 132, 0.8)",
        "rgba(54, 162, 235, 0.8)",
        "rgba(255, 206, 86, 0.8)",
        "rgba(75, 192, 192, 0.8)",
        "rgba(153, 102, 255, 0.8)",
        "rgba(255, 159, 64, 0.8)"
      ]
    }]
  },
  "options": {
    "plugins": {
      "title": {
        "display": true,
        "text": "Sample Pie Chart"
      }
    }
  }
}`

const doughnutPreset = `{
  "type": "doughnut",
  "data": {
    "labels": ["Desktop", "Mobile", "Tablet"],
    "datasets": [{
      "data": [300, 50, 100],
      "backgroundColor": [
        "#FF6384",
        "#36A2EB",
        "#FFCE56"
      ],
      "hoverBackgroundColor": [
        "#FF6384",
        "#36A2EB",
        "#FFCE56"
      ]
    }]
  },
  "options": {
    "plugins": {
      "title": {
        "display": true,
        "text": "Traffic Sources"
      }
    }
  }
}`
