package color

import (
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
	"github.com/muesli/termenv"
)

// Semantic palette. Each colour adapts to the terminal background.
var (
	Success = lipgloss.AdaptiveColor{Light: "#1A7F37", Dark: "#3FB950"}
	Failure = lipgloss.AdaptiveColor{Light: "#CF222E", Dark: "#F85149"}
	Errored = lipgloss.AdaptiveColor{Light: "#BC4C00", Dark: "#DB6D28"}
	Warning = lipgloss.AdaptiveColor{Light: "#9A6700", Dark: "#D29922"}
	Muted   = lipgloss.AdaptiveColor{Light: "#6E7781", Dark: "#8B949E"}
	Accent  = lipgloss.AdaptiveColor{Light: "#8250DF", Dark: "#A371F7"}
)

// Initialize sets the background mode the adaptive palette resolves against.
func Initialize(isDarkMode bool) {
	lipgloss.SetHasDarkBackground(isDarkMode)
}

// Enabled decides whether output to w should carry ANSI colour. mode is
// "always", "never" or "auto"; auto honours NO_COLOR and requires a terminal.
func Enabled(mode string, w io.Writer) bool {
	switch mode {
	case "always":
		return true
	case "never":
		return false
	}
	if _, set := os.LookupEnv("NO_COLOR"); set {
		return false
	}
	return IsTerminal(w)
}

// IsTerminal reports whether w is an interactive terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(interface{ Fd() uintptr })
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// NewRenderer returns a renderer for w with colour forced on or off.
func NewRenderer(w io.Writer, enabled bool) *lipgloss.Renderer {
	r := lipgloss.NewRenderer(w)
	r.SetHasDarkBackground(lipgloss.HasDarkBackground())
	switch {
	case !enabled:
		r.SetColorProfile(termenv.Ascii)
	case r.ColorProfile() == termenv.Ascii:
		r.SetColorProfile(termenv.ANSI256)
	}
	return r
}

// Styles are the text styles shared by the console reporter and the TUI.
type Styles struct {
	Pass   lipgloss.Style
	Fail   lipgloss.Style
	Error  lipgloss.Style
	Skip   lipgloss.Style
	Slow   lipgloss.Style
	Suite  lipgloss.Style
	Muted  lipgloss.Style
	Accent lipgloss.Style
	Bold   lipgloss.Style
}

// NewStyles builds the shared styles on r.
func NewStyles(r *lipgloss.Renderer) Styles {
	return Styles{
		Pass:   r.NewStyle().Foreground(Success),
		Fail:   r.NewStyle().Foreground(Failure).Bold(true),
		Error:  r.NewStyle().Foreground(Errored).Bold(true),
		Skip:   r.NewStyle().Foreground(Muted),
		Slow:   r.NewStyle().Foreground(Warning),
		Suite:  r.NewStyle().Bold(true).Underline(true),
		Muted:  r.NewStyle().Foreground(Muted),
		Accent: r.NewStyle().Foreground(Accent),
		Bold:   r.NewStyle().Bold(true),
	}
}
