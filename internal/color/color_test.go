package color

import (
	"bytes"
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/stretchr/testify/assert"
)

func TestInitialize(t *testing.T) {
	tests := []struct {
		name       string
		isDarkMode bool
		expected   bool
	}{
		{"set dark mode", true, true},
		{"set light mode", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			Initialize(tt.isDarkMode)
			assert.Equal(t, tt.expected, lipgloss.HasDarkBackground())
		})
	}
}

func TestEnabled(t *testing.T) {
	var buf bytes.Buffer

	assert.True(t, Enabled("always", &buf))
	assert.False(t, Enabled("never", &buf))
	assert.False(t, Enabled("auto", &buf), "a buffer is not a terminal")

	t.Setenv("NO_COLOR", "1")
	assert.False(t, Enabled("auto", &buf))
	assert.True(t, Enabled("always", &buf), "explicit mode wins over NO_COLOR")
}

func TestNewRenderer(t *testing.T) {
	var buf bytes.Buffer

	plain := NewStyles(NewRenderer(&buf, false))
	assert.Equal(t, "✓ ok", plain.Pass.Render("✓ ok"))

	colored := NewStyles(NewRenderer(&buf, true))
	out := colored.Fail.Render("✗ failed")
	assert.True(t, strings.Contains(out, "\x1b["), "expected ANSI escape in %q", out)
	assert.Contains(t, out, "✗ failed")
}
