package book

import (
	"net/url"
	"path"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// parseSummary reads prefix/suffix chapter links and nested chapter lists.
// Headings (the title and part titles) and separators are ignored.
func parseSummary(md goldmark.Markdown, source []byte) []Chapter {
	doc := md.Parser().Parse(text.NewReader(source))
	var chapters []Chapter
	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		switch n := n.(type) {
		case *ast.Paragraph:
			for c := n.FirstChild(); c != nil; c = c.NextSibling() {
				if link, ok := c.(*ast.Link); ok {
					chapters = append(chapters, Chapter{
						Name: inlineText(link, source),
						Path: chapterPath(link.Destination),
					})
				}
			}
		case *ast.List:
			chapters = appendListChapters(chapters, n, nil, source)
		}
	}
	return chapters
}

func appendListChapters(chapters []Chapter, list *ast.List, parents []string, source []byte) []Chapter {
	for item := list.FirstChild(); item != nil; item = item.NextSibling() {
		var name string
		for c := item.FirstChild(); c != nil; c = c.NextSibling() {
			switch c := c.(type) {
			case *ast.Paragraph, *ast.TextBlock:
				ch := Chapter{Parents: append([]string(nil), parents...)}
				if link := firstLink(c); link != nil {
					ch.Name = inlineText(link, source)
					ch.Path = chapterPath(link.Destination)
				} else {
					ch.Name = inlineText(c, source)
				}
				name = ch.Name
				chapters = append(chapters, ch)
			case *ast.List:
				chapters = appendListChapters(chapters, c, append(append([]string(nil), parents...), name), source)
			}
		}
	}
	return chapters
}

func firstLink(n ast.Node) *ast.Link {
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if link, ok := c.(*ast.Link); ok {
			return link
		}
	}
	return nil
}

// chapterPath cleans a summary link destination; empty means a draft.
func chapterPath(dest []byte) string {
	raw := strings.TrimSpace(string(dest))
	if i := strings.IndexAny(raw, "#?"); i >= 0 {
		raw = raw[:i]
	}
	if raw == "" {
		return ""
	}
	if unescaped, err := url.PathUnescape(raw); err == nil {
		raw = unescaped
	}
	return strings.TrimPrefix(path.Clean("/"+raw), "/")
}
