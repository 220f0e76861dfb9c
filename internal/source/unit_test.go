package source

import (
	"errors"
	"testing"

	scanerrors "github.com/codesift-sec/codesift/pkg/shared/errors"
)

func TestLoadRejectsInvalidInput(t *testing.T) {
	var tests = []struct {
		name string
		raw  string
		kind scanerrors.LoadErrorKind
	}{
		{"non UTF-8 bytes", "password = \xff\xfe\"abc\"", scanerrors.UnreadableInput},
		{"empty string", "", scanerrors.EmptyUnit},
		{"whitespace only", " \n\t\n  ", scanerrors.EmptyUnit},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load("app.py", "python", tt.raw)
			if err == nil {
				t.Fatal("expected load error, got nil")
			}
			var loadErr *scanerrors.LoadError
			if !errors.As(err, &loadErr) {
				t.Fatalf("expected *LoadError, got %T", err)
			}
			if loadErr.Kind != tt.kind {
				t.Errorf("got kind %s, want %s", loadErr.Kind, tt.kind)
			}
			if loadErr.UnitID != "app.py" {
				t.Errorf("got unit id %s, want app.py", loadErr.UnitID)
			}
		})
	}
}

func TestLoadNormalizesLineEndings(t *testing.T) {
	unit, err := Load("app.py", "python", "a = 1\r\nb = 2\r\n")
	if err != nil {
		t.Fatal(err)
	}
	if unit.NumLines() != 3 {
		t.Errorf("got %d lines, want 3", unit.NumLines())
	}
	if got := unit.Line(2); got != "b = 2" {
		t.Errorf("got line %q, want %q", got, "b = 2")
	}
}

func TestLoadKeepsIdentity(t *testing.T) {
	unit, err := Load("src/db.py", "python", "x = 1\n")
	if err != nil {
		t.Fatal(err)
	}
	if unit.ID() != "src/db.py" {
		t.Errorf("got id %q", unit.ID())
	}
	if unit.Language() != "python" {
		t.Errorf("got language %q", unit.Language())
	}
}

func TestLineOutOfRange(t *testing.T) {
	unit, err := Load("app.py", "python", "x = 1")
	if err != nil {
		t.Fatal(err)
	}
	if got := unit.Line(0); got != "" {
		t.Errorf("line 0 should be empty, got %q", got)
	}
	if got := unit.Line(2); got != "" {
		t.Errorf("line past end should be empty, got %q", got)
	}
}

func TestContains(t *testing.T) {
	unit, err := Load("app.py", "python", "a = 1\nb = 2\nc = 3")
	if err != nil {
		t.Fatal(err)
	}
	var tests = []struct {
		name string
		span Span
		want bool
	}{
		{"inside", Span{StartLine: 1, EndLine: 2}, true},
		{"exact", Span{StartLine: 1, EndLine: 3}, true},
		{"past end", Span{StartLine: 2, EndLine: 4}, false},
		{"zero start", Span{StartLine: 0, EndLine: 1}, false},
		{"inverted", Span{StartLine: 3, EndLine: 2}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := unit.Contains(tt.span); got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}
