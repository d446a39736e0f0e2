package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/TobiSchelling/catalog/internal/articles"
	"github.com/TobiSchelling/catalog/internal/render"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15"))
	idStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	descStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("7"))
	codeStyle  = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252")).
			Background(lipgloss.Color("236")).
			Padding(0, 1).
			MarginLeft(2)
	emptyStyle = lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("8"))
)

// printArticles writes a result set in store order, code split into the same
// blocks the web view shows.
func printArticles(w io.Writer, list []articles.Article) {
	if len(list) == 0 {
		fmt.Fprintln(w, emptyStyle.Render(render.MsgNoResults))
		return
	}

	for i, a := range list {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, "%s %s\n", idStyle.Render(fmt.Sprintf("[%d]", a.ID)), titleStyle.Render(a.Title))
		fmt.Fprintln(w, descStyle.Render(a.Description))
		for _, segment := range render.SplitCode(a.Code) {
			fmt.Fprintln(w, codeStyle.Render(strings.TrimRight(segment, "\n")))
		}
	}
}
