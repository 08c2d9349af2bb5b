// Package render formats notes, trees and debriefs for the terminal.
package render

import (
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"
	glamouransi "github.com/charmbracelet/glamour/ansi"
	"github.com/charmbracelet/glamour/styles"
	"github.com/pbaille/diffadvisor/internal/domain"
)

type rendererKey struct {
	width int
	theme domain.Theme
}

var (
	rendererMu sync.Mutex
	renderers  = map[rendererKey]*glamour.TermRenderer{}
)

// Markdown renders input for a terminal of the given width. Rendering
// failures fall back to the raw input.
func Markdown(input string, width int, theme domain.Theme) string {
	input = strings.TrimRight(input, "\n")
	if input == "" {
		return ""
	}
	if width <= 0 {
		width = 80
	}
	r := renderer(width, theme)
	if r == nil {
		return input
	}
	out, err := r.Render(input)
	if err != nil {
		return input
	}
	return strings.TrimRight(out, "\n")
}

func renderer(width int, theme domain.Theme) *glamour.TermRenderer {
	rendererMu.Lock()
	defer rendererMu.Unlock()
	key := rendererKey{width: width, theme: theme}
	if r, ok := renderers[key]; ok {
		return r
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStyles(styleConfig(theme)),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return nil
	}
	renderers[key] = r
	return r
}

func styleConfig(theme domain.Theme) glamouransi.StyleConfig {
	base := styles.DarkStyleConfig
	if theme == domain.ThemeLight {
		base = styles.LightStyleConfig
	}
	zero := uint(0)
	base.Document.Margin = &zero
	base.Document.StylePrimitive.BlockPrefix = ""
	base.Document.StylePrimitive.BlockSuffix = ""
	return base
}
