// Package render turns article result sets into HTML fragments.
//
// Rendering is a pure function of the input: identifiers come from a counter
// scoped to one call, so rendering the same sequence twice yields the same
// bytes.
package render

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"strconv"
	"strings"
	"unicode"

	"github.com/yuin/goldmark"

	"github.com/TobiSchelling/catalog/internal/articles"
)

//go:embed templates/*.html
var templateFS embed.FS

const (
	MsgNoResults    = "No articles were found matching the search criteria."
	MsgSearchFailed = "An error occurred while searching for articles."
	MsgTryAgain     = "Please try again with a different search term."
)

// segmentSeparator splits an article's code into independently copyable blocks.
const segmentSeparator = "\n\n"

// ActionCopy copies the text of the element with the action's ID.
const ActionCopy = "copy"

// Action binds a generated element identifier to a client-side handler.
type Action struct {
	ID   string `json:"id"`
	Kind string `json:"kind"`
}

// Fragment is a rendered piece of the results container together with the
// actions its controls dispatch to.
type Fragment struct {
	HTML    template.HTML
	Actions []Action
}

// Renderer renders result sets. It is safe for concurrent use.
type Renderer struct {
	tmpl     *template.Template
	markdown goldmark.Markdown
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithMarkdownDescriptions renders descriptions as Markdown. Raw HTML in the
// source is dropped.
func WithMarkdownDescriptions() Option {
	return func(r *Renderer) { r.markdown = goldmark.New() }
}

// New parses the embedded templates.
func New(opts ...Option) (*Renderer, error) {
	tmpl, err := template.New("render").ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parsing render templates: %w", err)
	}
	r := &Renderer{tmpl: tmpl}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

type codeBlock struct {
	ID   string
	Text string
}

type articleView struct {
	ID              int64
	Title           string
	Description     string
	DescriptionHTML template.HTML
	Blocks          []codeBlock
}

// Articles renders one block per article, in the order given.
func (r *Renderer) Articles(list []articles.Article) (Fragment, error) {
	var ids idSequence
	views := make([]articleView, 0, len(list))
	actions := []Action{}

	for _, a := range list {
		v := articleView{ID: a.ID, Title: a.Title, Description: a.Description}
		if r.markdown != nil {
			html, err := r.renderMarkdown(a.Description)
			if err != nil {
				return Fragment{}, err
			}
			v.DescriptionHTML = html
		}
		for _, segment := range SplitCode(a.Code) {
			id := ids.next()
			v.Blocks = append(v.Blocks, codeBlock{ID: id, Text: segment})
			actions = append(actions, Action{ID: id, Kind: ActionCopy})
		}
		views = append(views, v)
	}

	html, err := r.execute("results", map[string]any{
		"Articles": views,
		"Actions":  actions,
	})
	if err != nil {
		return Fragment{}, err
	}
	return Fragment{HTML: html, Actions: actions}, nil
}

// Empty renders the single message block shown in place of results.
func (r *Renderer) Empty(message string) (Fragment, error) {
	html, err := r.execute("empty", map[string]string{
		"Message": message,
		"Hint":    MsgTryAgain,
	})
	if err != nil {
		return Fragment{}, err
	}
	return Fragment{HTML: html, Actions: []Action{}}, nil
}

// SplitCode splits code into its blank-line separated segments, trimming
// leading whitespace from each. Empty code yields no segments.
func SplitCode(code string) []string {
	if code == "" {
		return nil
	}
	parts := strings.Split(code, segmentSeparator)
	for i, p := range parts {
		parts[i] = strings.TrimLeftFunc(p, unicode.IsSpace)
	}
	return parts
}

func (r *Renderer) execute(name string, data any) (template.HTML, error) {
	var buf bytes.Buffer
	if err := r.tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("rendering %s: %w", name, err)
	}
	return template.HTML(buf.String()), nil //nolint: gosec
}

func (r *Renderer) renderMarkdown(text string) (template.HTML, error) {
	var buf bytes.Buffer
	if err := r.markdown.Convert([]byte(text), &buf); err != nil {
		return "", fmt.Errorf("rendering markdown: %w", err)
	}
	return template.HTML(buf.String()), nil //nolint: gosec
}

// idSequence hands out element ids unique within one render pass.
type idSequence struct {
	n int
}

func (s *idSequence) next() string {
	s.n++
	return "code-" + strconv.Itoa(s.n)
}
