package records_test

import (
	"testing"

	"github.com/JaimeStill/licita/internal/records"
)

func TestNullIfBlank(t *testing.T) {
	tests := []struct {
		in   string
		null bool
	}{
		{"", true},
		{"  ", true},
		{"{}", true},
		{"[]", true},
		{"null", true},
		{` {} `, true},
		{`{"rfc":"ABC010101AAA"}`, false},
		{`[{"filename":"a.pdf"}]`, false},
		{"logo.png", false},
	}
	for _, tt := range tests {
		got := records.NullIfBlank(tt.in)
		if (got == nil) != tt.null {
			t.Errorf("NullIfBlank(%q) = %v, want null %v", tt.in, got, tt.null)
		}
		if got != nil && *got != tt.in {
			t.Errorf("NullIfBlank(%q) changed the value to %q", tt.in, *got)
		}
	}
}

func TestReplacementName(t *testing.T) {
	tests := []struct {
		in   string
		keep bool
	}{
		{"Junta de Aclaraciones", true},
		{"", false},
		{"   ", false},
		{"1712345678901", false},
		{" 1712345678 ", false},
		{"171234567", true},
		{"LA-1712345678901", true},
	}
	for _, tt := range tests {
		got := records.ReplacementName(tt.in)
		if (got != nil) != tt.keep {
			t.Errorf("ReplacementName(%q) = %v, want kept %v", tt.in, got, tt.keep)
		}
	}
}
