package book

import (
	"slices"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// section is the text between two split-level headings. The leading section
// of a page has no title.
type section struct {
	title  string
	anchor string
	body   string
}

func splitSections(md goldmark.Markdown, source []byte, splitLevel int) []section {
	doc := md.Parser().Parse(text.NewReader(source))

	var (
		out     []section
		current section
		body    strings.Builder
	)
	flush := func() {
		current.body = collapse(body.String())
		out = append(out, current)
		body.Reset()
	}
	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		if h, ok := n.(*ast.Heading); ok && h.Level <= splitLevel {
			flush()
			current = section{title: inlineText(h, source), anchor: headingID(h)}
			continue
		}
		writeText(&body, n, source)
	}
	flush()
	if out[0].title == "" && out[0].body == "" {
		out = out[1:]
	}
	return out
}

func headingID(h *ast.Heading) string {
	v, ok := h.AttributeString("id")
	if !ok {
		return ""
	}
	switch id := v.(type) {
	case []byte:
		return string(id)
	case string:
		return id
	}
	return ""
}

// inlineText is the collapsed text content of n.
func inlineText(n ast.Node, source []byte) string {
	var b strings.Builder
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		writeText(&b, c, source)
	}
	return collapse(b.String())
}

// writeText appends the visible text of n. Element boundaries become spaces
// so words from adjacent cells or list items never merge; adjacent text
// runs are joined as written.
func writeText(b *strings.Builder, n ast.Node, source []byte) {
	_ = ast.Walk(n, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		switch n := n.(type) {
		case *ast.Text:
			if entering {
				b.Write(n.Segment.Value(source))
				if n.SoftLineBreak() || n.HardLineBreak() {
					b.WriteByte(' ')
				}
			}
			return ast.WalkContinue, nil
		case *ast.String:
			if entering {
				b.Write(n.Value)
			}
			return ast.WalkContinue, nil
		case *ast.AutoLink:
			if entering {
				b.WriteByte(' ')
				b.Write(n.Label(source))
				b.WriteByte(' ')
			}
			return ast.WalkSkipChildren, nil
		case *ast.FencedCodeBlock, *ast.CodeBlock:
			if entering {
				b.WriteByte(' ')
				lines := n.Lines()
				for i := 0; i < lines.Len(); i++ {
					seg := lines.At(i)
					b.Write(seg.Value(source))
				}
				b.WriteByte(' ')
			}
			return ast.WalkSkipChildren, nil
		case *ast.HTMLBlock, *ast.RawHTML:
			return ast.WalkSkipChildren, nil
		}
		b.WriteByte(' ')
		return ast.WalkContinue, nil
	})
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// sortPaths orders chapter files so a directory's README comes before its
// other pages.
func sortPaths(paths []string) {
	slices.SortFunc(paths, func(a, b string) int {
		ka, kb := sortKey(a), sortKey(b)
		return strings.Compare(ka, kb)
	})
}

func sortKey(p string) string {
	if strings.EqualFold(p[strings.LastIndexByte(p, '/')+1:], "README.md") {
		return p[:strings.LastIndexByte(p, '/')+1] + "\x00"
	}
	return p
}
