package render

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"golang.org/x/net/html"

	"github.com/TobiSchelling/catalog/internal/articles"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newRenderer(t *testing.T, opts ...Option) *Renderer {
	t.Helper()
	r, err := New(opts...)
	require.NoError(t, err)
	return r
}

// parse returns the element nodes of a fragment, in document order.
func parse(t *testing.T, frag Fragment) []*html.Node {
	t.Helper()
	doc, err := html.Parse(strings.NewReader(string(frag.HTML)))
	require.NoError(t, err)

	var nodes []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			nodes = append(nodes, n)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return nodes
}

func attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

func withAttr(nodes []*html.Node, key string) []*html.Node {
	var out []*html.Node
	for _, n := range nodes {
		if _, ok := attr(n, key); ok {
			out = append(out, n)
		}
	}
	return out
}

func text(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}

func codeNodes(nodes []*html.Node) []*html.Node {
	var out []*html.Node
	for _, n := range nodes {
		if n.Data == "code" {
			out = append(out, n)
		}
	}
	return out
}

func TestOneBlockPerArticleInGivenOrder(t *testing.T) {
	r := newRenderer(t)
	frag, err := r.Articles([]articles.Article{
		{ID: 2, Title: "Test Article 2", Description: "second"},
		{ID: 1, Title: "Test Article 1", Description: "first"},
	})
	require.NoError(t, err)

	blocks := withAttr(parse(t, frag), "data-article-id")
	require.Len(t, blocks, 2)
	first, _ := attr(blocks[0], "data-article-id")
	second, _ := attr(blocks[1], "data-article-id")
	assert.Equal(t, "2", first)
	assert.Equal(t, "1", second)
	assert.Empty(t, frag.Actions)
}

func TestCodeSplitIntoSegments(t *testing.T) {
	r := newRenderer(t)
	frag, err := r.Articles([]articles.Article{
		{ID: 1, Title: "T", Description: "D", Code: "foo()\n\nbar()"},
	})
	require.NoError(t, err)

	codes := codeNodes(parse(t, frag))
	require.Len(t, codes, 2)
	assert.Equal(t, "foo()", text(codes[0]))
	assert.Equal(t, "bar()", text(codes[1]))

	id0, _ := attr(codes[0], "id")
	id1, _ := attr(codes[1], "id")
	assert.NotEqual(t, id0, id1)

	want := []Action{{ID: id0, Kind: ActionCopy}, {ID: id1, Kind: ActionCopy}}
	if diff := cmp.Diff(want, frag.Actions); diff != "" {
		t.Errorf("actions mismatch (-want +got):\n%s", diff)
	}
}

func TestCopyControlsReferenceBlocks(t *testing.T) {
	r := newRenderer(t)
	frag, err := r.Articles([]articles.Article{
		{ID: 3, Title: "A", Description: "a", Code: "x\n\ny"},
		{ID: 2, Title: "B", Description: "b", Code: "z"},
	})
	require.NoError(t, err)

	nodes := parse(t, frag)
	buttons := withAttr(nodes, "data-action-id")
	codes := codeNodes(nodes)
	require.Len(t, buttons, 3)
	require.Len(t, codes, 3)

	seen := map[string]bool{}
	for i := range buttons {
		target, _ := attr(buttons[i], "data-action-id")
		id, _ := attr(codes[i], "id")
		assert.Equal(t, id, target)
		assert.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}
}

func TestActionsEmbeddedAsJSON(t *testing.T) {
	r := newRenderer(t)
	frag, err := r.Articles([]articles.Article{{ID: 1, Title: "T", Description: "D", Code: "a\n\nb"}})
	require.NoError(t, err)

	var script *html.Node
	for _, n := range parse(t, frag) {
		if n.Data == "script" {
			script = n
		}
	}
	require.NotNil(t, script)
	typ, _ := attr(script, "type")
	assert.Equal(t, "application/json", typ)

	var got []Action
	require.NoError(t, json.Unmarshal([]byte(text(script)), &got))
	assert.Equal(t, frag.Actions, got)
}

func TestLeadingWhitespaceTrimmed(t *testing.T) {
	r := newRenderer(t)
	frag, err := r.Articles([]articles.Article{
		{ID: 1, Title: "T", Description: "D", Code: "  indented()\n\n\n\tnext()  "},
	})
	require.NoError(t, err)

	codes := codeNodes(parse(t, frag))
	require.Len(t, codes, 2)
	assert.Equal(t, "indented()", text(codes[0]))
	assert.Equal(t, "next()  ", text(codes[1]))
}

func TestRenderingIsDeterministic(t *testing.T) {
	r := newRenderer(t)
	set := []articles.Article{
		{ID: 2, Title: "Two", Description: "d2", Code: "a\n\nb"},
		{ID: 1, Title: "One", Description: "d1", Code: "c"},
	}
	first, err := r.Articles(set)
	require.NoError(t, err)
	second, err := r.Articles(set)
	require.NoError(t, err)

	assert.Equal(t, first.HTML, second.HTML)
	assert.Equal(t, first.Actions, second.Actions)
}

func TestContentIsEscaped(t *testing.T) {
	r := newRenderer(t)
	frag, err := r.Articles([]articles.Article{
		{ID: 1, Title: "<script>alert(1)</script>", Description: `<img src=x onerror="x">`, Code: "<b>bold</b>"},
	})
	require.NoError(t, err)

	out := string(frag.HTML)
	assert.NotContains(t, out, "<script>alert(1)</script>")
	assert.NotContains(t, out, "<img")
	assert.Contains(t, out, "&lt;script&gt;alert(1)&lt;/script&gt;")

	codes := codeNodes(parse(t, frag))
	require.Len(t, codes, 1)
	assert.Equal(t, "<b>bold</b>", text(codes[0]))
}

func TestEmptyMessage(t *testing.T) {
	r := newRenderer(t)
	frag, err := r.Empty(MsgNoResults)
	require.NoError(t, err)

	want := `<div class="w-full bg-white rounded-lg shadow-md mb-4 p-4 text-center"><h2 class="text-lg font-bold text-gray-900">No articles were found matching the search criteria.</h2><p class="text-gray-600 text-sm mb-4">Please try again with a different search term.</p></div>`
	assert.Equal(t, want, strings.TrimSpace(string(frag.HTML)))
	assert.Empty(t, frag.Actions)
}

func TestEmptyMessagesDiffer(t *testing.T) {
	r := newRenderer(t)
	none, err := r.Empty(MsgNoResults)
	require.NoError(t, err)
	failed, err := r.Empty(MsgSearchFailed)
	require.NoError(t, err)

	assert.NotEqual(t, none.HTML, failed.HTML)
	assert.Contains(t, string(failed.HTML), MsgSearchFailed)
}

func TestNoArticles(t *testing.T) {
	r := newRenderer(t)
	frag, err := r.Articles(nil)
	require.NoError(t, err)
	assert.Empty(t, strings.TrimSpace(string(frag.HTML)))
}

func TestMarkdownDescriptions(t *testing.T) {
	r := newRenderer(t, WithMarkdownDescriptions())
	frag, err := r.Articles([]articles.Article{
		{ID: 1, Title: "T", Description: "Use **bold** <script>x()</script>"},
	})
	require.NoError(t, err)

	out := string(frag.HTML)
	assert.Contains(t, out, "<strong>bold</strong>")
	assert.NotContains(t, out, "<script>x()</script>")
}

func TestSplitCode(t *testing.T) {
	tests := []struct {
		code string
		want []string
	}{
		{"", nil},
		{"one", []string{"one"}},
		{"foo()\n\nbar()", []string{"foo()", "bar()"}},
		{"a\nb\n\n c", []string{"a\nb", "c"}},
	}
	for _, tt := range tests {
		if diff := cmp.Diff(tt.want, SplitCode(tt.code)); diff != "" {
			t.Errorf("SplitCode(%q) mismatch (-want +got):\n%s", tt.code, diff)
		}
	}
}
