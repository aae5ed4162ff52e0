package chart

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/hpungsan/chartd/internal/errors"
)

// ValidateConfig checks that text is a well-formed JSON object and returns it
// unchanged as raw JSON. The bytes are not re-encoded so a saved record
// reproduces the exact render URL it was saved from.
func ValidateConfig(text string) (json.RawMessage, error) {
	if strings.TrimSpace(text) == "" {
		return nil, errors.NewValidation("config", "chart configuration is empty")
	}

	var obj map[string]json.RawMessage
	dec := json.NewDecoder(strings.NewReader(text))
	if err := dec.Decode(&obj); err != nil {
		if isTypeError(err) {
			return nil, errors.NewValidation("config", "chart configuration must be a JSON object")
		}
		return nil, errors.NewValidation("config", "chart configuration is not valid JSON: "+err.Error())
	}
	if obj == nil {
		return nil, errors.NewValidation("config", "chart configuration must be a JSON object")
	}
	if dec.More() {
		return nil, errors.NewValidation("config", "chart configuration has trailing data after the JSON object")
	}
	if depth(text) > MaxConfigDepth {
		return nil, errors.NewValidation("config",
			fmt.Sprintf("chart configuration is nested deeper than %d levels", MaxConfigDepth))
	}

	return json.RawMessage(text), nil
}

// MaxConfigDepth is the deepest object/array nesting a config may have. The
// store's json_valid check gives up at 1000 levels.
const MaxConfigDepth = 100

// depth returns the maximum nesting of objects and arrays in valid JSON text.
func depth(text string) int {
	var cur, deepest int
	inString, escaped := false, false
	for i := 0; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{', '[':
			cur++
			deepest = max(deepest, cur)
		case '}', ']':
			cur--
		}
	}
	return deepest
}

func isTypeError(err error) bool {
	_, ok := err.(*json.UnmarshalTypeError)
	return ok
}

// TypeOf returns the config's top-level "type" string, or DefaultType when it
// is absent, empty, not a string, or the text does not parse.
func TypeOf(text string) string {
	var head struct {
		Type json.RawMessage `json:"type"`
	}
	if err := json.Unmarshal([]byte(text), &head); err != nil {
		return DefaultType
	}
	var typ string
	if err := json.Unmarshal(head.Type, &typ); err != nil {
		return DefaultType
	}
	if typ = strings.TrimSpace(typ); typ == "" {
		return DefaultType
	}
	return typ
}

// ParseDimension parses a width or height as a positive base-10 integer.
// Returns nil for empty, non-numeric, or non-positive input.
func ParseDimension(s string) *int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n <= 0 {
		return nil
	}
	return &n
}
