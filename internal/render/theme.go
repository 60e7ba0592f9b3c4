// Package render draws outlines, search results and statistics for a
// terminal. Output degrades to plain text when colour is off or the writer
// is not a terminal.
package render

import (
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

func ac(light, dark string) lipgloss.AdaptiveColor {
	return lipgloss.AdaptiveColor{Light: light, Dark: dark}
}

var (
	colorMuted  = ac("240", "243")
	colorAccent = ac("27", "62")
	colorStar   = ac("136", "220")
	colorDone   = ac("28", "71")
	colorText   = ac("235", "252")
	colorMatch  = ac("#e9e9e9", "#262626")
)

type styles struct {
	text    lipgloss.Style
	muted   lipgloss.Style
	accent  lipgloss.Style
	star    lipgloss.Style
	done    lipgloss.Style
	title   lipgloss.Style
	heading lipgloss.Style
	match   lipgloss.Style
}

func newStyles(r *lipgloss.Renderer) styles {
	muted := r.NewStyle().Foreground(colorMuted)
	if r.HasDarkBackground() {
		// Faint text on light terminals is often unreadable.
		muted = muted.Faint(true)
	}
	return styles{
		text:    r.NewStyle().Foreground(colorText),
		muted:   muted,
		accent:  r.NewStyle().Foreground(colorAccent),
		star:    r.NewStyle().Foreground(colorStar),
		done:    r.NewStyle().Foreground(colorDone).Strikethrough(true),
		title:   r.NewStyle().Foreground(colorText).Bold(true),
		heading: r.NewStyle().Foreground(colorAccent).Bold(true).Underline(true),
		match:   r.NewStyle().Background(colorMatch).Bold(true),
	}
}

// colorProfile picks the profile for w. NO_COLOR and noColor force plain
// output; otherwise termenv's detection is trusted, upgraded when
// COLORTERM/TERM advertise more than it found.
func colorProfile(w io.Writer, noColor bool) termenv.Profile {
	if noColor || strings.TrimSpace(os.Getenv("NO_COLOR")) != "" {
		return termenv.Ascii
	}
	profile := termenv.NewOutput(w).EnvColorProfile()
	if profile == termenv.Ascii {
		return profile
	}
	term := strings.ToLower(strings.TrimSpace(os.Getenv("TERM")))
	colorterm := strings.ToLower(strings.TrimSpace(os.Getenv("COLORTERM")))
	switch {
	case strings.Contains(colorterm, "truecolor") || strings.Contains(colorterm, "24bit"):
		profile = termenv.TrueColor
	case strings.Contains(term, "256color") && profile == termenv.ANSI:
		profile = termenv.ANSI256
	}
	return profile
}

// darkBackground guesses the terminal background without querying it.
//
// Priority:
// 1) OUTLINER_THEME=light|dark
// 2) COLORFGBG heuristic ("fg;bg", bg < 7 is dark)
// 3) dark
func darkBackground() bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv("OUTLINER_THEME"))) {
	case "light":
		return false
	case "dark":
		return true
	}
	if v := strings.TrimSpace(os.Getenv("COLORFGBG")); v != "" {
		parts := strings.Split(v, ";")
		if bg, err := strconv.Atoi(strings.TrimSpace(parts[len(parts)-1])); err == nil {
			return bg < 7
		}
	}
	return true
}
