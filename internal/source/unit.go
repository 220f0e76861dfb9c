package source

import (
	"strings"
	"unicode/utf8"

	scanerrors "github.com/codesift-sec/codesift/pkg/shared/errors"
)

// Span locates a range of source text. Lines and columns are 1-based; the end
// column is inclusive.
type Span struct {
	StartLine   int `json:"start_line"`
	StartColumn int `json:"start_column"`
	EndLine     int `json:"end_line"`
	EndColumn   int `json:"end_column"`
}

// Unit is one loaded code artifact: identity, declared language tag, and the
// indexed raw text. A Unit is immutable once loaded.
type Unit struct {
	id       string
	language string
	raw      string
	lines    []string
}

// Load indexes raw text into a Unit. It performs no parsing, only line
// indexing for later span computation. Non-UTF-8 input fails with
// UnreadableInput, blank input with EmptyUnit.
func Load(id, language, raw string) (*Unit, error) {
	if !utf8.ValidString(raw) {
		return nil, scanerrors.NewLoadError(id, scanerrors.UnreadableInput, "input is not valid UTF-8")
	}
	normalized := strings.ReplaceAll(raw, "\r\n", "\n")
	if strings.TrimSpace(normalized) == "" {
		return nil, scanerrors.NewLoadError(id, scanerrors.EmptyUnit, "input contains no statements")
	}

	return &Unit{
		id:       id,
		language: language,
		raw:      normalized,
		lines:    strings.Split(normalized, "\n"),
	}, nil
}

// ID returns the path-like identity of the unit.
func (u *Unit) ID() string { return u.id }

// Language returns the declared language tag of the unit.
func (u *Unit) Language() string { return u.language }

// Raw returns the normalized raw text.
func (u *Unit) Raw() string { return u.raw }

// NumLines returns the number of physical lines in the unit.
func (u *Unit) NumLines() int { return len(u.lines) }

// Line returns the 1-based physical line n, or "" when out of range.
func (u *Unit) Line(n int) string {
	if n < 1 || n > len(u.lines) {
		return ""
	}
	return u.lines[n-1]
}

// Contains reports whether span falls inside the unit's line range.
func (u *Unit) Contains(span Span) bool {
	if span.StartLine < 1 || span.EndLine < span.StartLine {
		return false
	}
	return span.EndLine <= len(u.lines)
}
