package prompt

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestConfirm(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"y\n", true},
		{"Y\n", true},
		{"  y  \r\n", true},
		{"y", true},
		{"yes\n", false},
		{"n\n", false},
		{"\n", false},
		{"", false},
	}
	for _, tt := range tests {
		var out bytes.Buffer
		got, err := Confirm(strings.NewReader(tt.in), &out, "Continue? [y/n]: ")
		if err != nil {
			t.Fatalf("Confirm(%q): %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("Confirm(%q) = %v, want %v", tt.in, got, tt.want)
		}
		if out.String() != "Continue? [y/n]: " {
			t.Errorf("prompt written = %q", out.String())
		}
	}
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("boom") }

func TestConfirm_readError(t *testing.T) {
	ok, err := Confirm(failingReader{}, &bytes.Buffer{}, "?")
	if err == nil || ok {
		t.Errorf("Confirm = %v, %v; want false and an error", ok, err)
	}
}

func TestOverwriteWarning(t *testing.T) {
	if !strings.Contains(OverwriteWarning, "OVERWRITE") || !strings.HasSuffix(OverwriteWarning, "[y/n]: ") {
		t.Errorf("unexpected warning text: %q", OverwriteWarning)
	}
}
