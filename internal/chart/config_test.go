package chart

import (
	"strings"
	"testing"

	"github.com/hpungsan/chartd/internal/errors"
)

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{name: "object", input: `{"type":"pie","data":{}}`},
		{name: "object with whitespace", input: "  {\n  \"type\": \"bar\"\n}\n"},
		{name: "empty object", input: `{}`},
		{name: "empty string", input: "", wantErr: true},
		{name: "whitespace only", input: "   \n", wantErr: true},
		{name: "truncated", input: `{not json`, wantErr: true},
		{name: "array", input: `[1, 2, 3]`, wantErr: true},
		{name: "number", input: `42`, wantErr: true},
		{name: "null", input: `null`, wantErr: true},
		{name: "trailing data", input: `{} {}`, wantErr: true},
		{name: "trailing garbage", input: `{"a":1}x`, wantErr: true},
		{name: "nested to limit", input: `{"a":` + strings.Repeat("[", MaxConfigDepth-1) + strings.Repeat("]", MaxConfigDepth-1) + `}`},
		{name: "nested too deep", input: `{"a":` + strings.Repeat("[", 1500) + strings.Repeat("]", 1500) + `}`, wantErr: true},
		{name: "brackets inside strings", input: `{"a":"` + strings.Repeat("[{", 500) + `\"]"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, err := ValidateConfig(tt.input)
			if tt.wantErr {
				if !errors.Is(err, errors.ErrValidation) {
					t.Fatalf("ValidateConfig(%q) error = %v, want VALIDATION", tt.input, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ValidateConfig(%q) unexpected error: %v", tt.input, err)
			}
			if string(raw) != tt.input {
				t.Errorf("ValidateConfig must keep bytes verbatim: got %q, want %q", raw, tt.input)
			}
		})
	}
}

func TestTypeOf(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{`{"type":"pie","data":{}}`, "pie"},
		{`{"type":"line"}`, "line"},
		{`{"data":{}}`, "bar"},
		{`{"type":""}`, "bar"},
		{`{"type":5}`, "bar"},
		{`{"type":null}`, "bar"},
		{`{not json`, "bar"},
		{``, "bar"},
		{`[1,2]`, "bar"},
	}

	for _, tt := range tests {
		if got := TypeOf(tt.input); got != tt.expected {
			t.Errorf("TypeOf(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestParseDimension(t *testing.T) {
	tests := []struct {
		input string
		want  int
		isNil bool
	}{
		{input: "800", want: 800},
		{input: " 600 ", want: 600},
		{input: "", isNil: true},
		{input: "abc", isNil: true},
		{input: "0", isNil: true},
		{input: "-5", isNil: true},
		{input: "12.5", isNil: true},
	}

	for _, tt := range tests {
		got := ParseDimension(tt.input)
		if tt.isNil {
			if got != nil {
				t.Errorf("ParseDimension(%q) = %d, want nil", tt.input, *got)
			}
			continue
		}
		if got == nil || *got != tt.want {
			t.Errorf("ParseDimension(%q) = %v, want %d", tt.input, got, tt.want)
		}
	}
}

func TestSavedChart_Specification(t *testing.T) {
	w := 1024
	c := &SavedChart{Config: []byte(`{"type":"line"}`), Width: &w}

	spec := c.Specification(DefaultWidth, DefaultHeight)
	if spec.ConfigText != `{"type":"line"}` {
		t.Errorf("ConfigText = %q", spec.ConfigText)
	}
	if spec.Width != "1024" {
		t.Errorf("Width = %q, want 1024", spec.Width)
	}
	if spec.Height != "600" {
		t.Errorf("Height = %q, want default 600", spec.Height)
	}
}

func TestNewSpecification(t *testing.T) {
	spec := NewSpecification(800, 600)
	if spec.ConfigText != "" || spec.Width != "800" || spec.Height != "600" {
		t.Errorf("NewSpecification = %+v", spec)
	}
}
