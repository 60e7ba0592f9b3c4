package render

import (
	"strconv"
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"
	gstyles "github.com/charmbracelet/glamour/styles"
)

var (
	mdRendererMu sync.Mutex
	// Renderers are cached by style and wrap width. WithAutoStyle is avoided
	// because its background query can block on some terminals.
	mdRenderers = map[string]*glamour.TermRenderer{}
)

// markdownStyle maps the output mode to a glamour standard style.
func markdownStyle(plain, dark bool) string {
	switch {
	case plain:
		return gstyles.NoTTYStyle
	case dark:
		return gstyles.DarkStyle
	default:
		return gstyles.LightStyle
	}
}

// renderMarkdown renders notes as markdown. On any renderer error the input
// is returned unchanged.
func renderMarkdown(md string, width int, style string) string {
	md = strings.TrimSpace(md)
	if md == "" {
		return ""
	}
	if width < 10 {
		width = 10
	}

	key := style + ":" + strconv.Itoa(width)
	mdRendererMu.Lock()
	r := mdRenderers[key]
	mdRendererMu.Unlock()

	if r == nil {
		rr, err := glamour.NewTermRenderer(
			glamour.WithStandardStyle(style),
			glamour.WithWordWrap(width),
		)
		if err != nil {
			return md
		}
		mdRendererMu.Lock()
		if existing := mdRenderers[key]; existing != nil {
			r = existing
		} else {
			mdRenderers[key] = rr
			r = rr
		}
		mdRendererMu.Unlock()
	}

	out, err := r.Render(md)
	if err != nil {
		return md
	}
	return strings.Trim(out, "\n")
}
