// Package book reads a markdown book (a SUMMARY.md table of contents plus
// chapter files) and splits every chapter into searchable sections.
package book

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"strconv"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/index"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/config"
)

// Chapter is one entry of the table of contents. Draft chapters have no
// Path and only contribute their name to breadcrumbs.
type Chapter struct {
	Name    string
	Path    string
	Parents []string
}

// Options mirrors config.BookConfig.
type Options struct {
	SummaryFile       string
	Include           []string
	Exclude           []string
	HeadingSplitLevel int
	Concurrency       int
}

func OptionsFromConfig(cfg config.BookConfig) Options {
	return Options{
		SummaryFile:       cfg.SummaryFile,
		Include:           cfg.Include,
		Exclude:           cfg.Exclude,
		HeadingSplitLevel: cfg.HeadingSplitLevel,
		Concurrency:       cfg.Concurrency,
	}
}

// Loader turns a book directory into documents with positional ids.
type Loader struct {
	fsys   fs.FS
	opts   Options
	md     goldmark.Markdown
	logger *slog.Logger
}

// NewLoader reads the book rooted at dir.
func NewLoader(dir string, opts Options) *Loader {
	return NewLoaderFS(os.DirFS(dir), opts)
}

// NewLoaderFS reads the book from fsys.
func NewLoaderFS(fsys fs.FS, opts Options) *Loader {
	if opts.SummaryFile == "" {
		opts.SummaryFile = "SUMMARY.md"
	}
	if len(opts.Include) == 0 {
		opts.Include = []string{"**/*.md"}
	}
	if opts.HeadingSplitLevel <= 0 {
		opts.HeadingSplitLevel = 3
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 4
	}
	return &Loader{
		fsys: fsys,
		opts: opts,
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithParserOptions(parser.WithAutoHeadingID()),
		),
		logger: slog.Default().With("component", "book-loader"),
	}
}

// Chapters returns the table of contents, from SUMMARY.md when present and
// otherwise from the matching markdown files in path order.
func (l *Loader) Chapters() ([]Chapter, error) {
	summary, err := fs.ReadFile(l.fsys, l.opts.SummaryFile)
	switch {
	case err == nil:
		chapters := parseSummary(l.md, summary)
		out := chapters[:0]
		for _, ch := range chapters {
			if ch.Path == "" || l.wanted(ch.Path) {
				out = append(out, ch)
			}
		}
		return out, nil
	case errors.Is(err, fs.ErrNotExist):
		return l.discover()
	default:
		return nil, fmt.Errorf("reading %s: %w", l.opts.SummaryFile, err)
	}
}

func (l *Loader) wanted(p string) bool {
	included := false
	for _, pattern := range l.opts.Include {
		if ok, _ := doublestar.Match(pattern, p); ok {
			included = true
			break
		}
	}
	if !included {
		return false
	}
	for _, pattern := range l.opts.Exclude {
		if ok, _ := doublestar.Match(pattern, p); ok {
			return false
		}
	}
	return true
}

func (l *Loader) discover() ([]Chapter, error) {
	seen := make(map[string]bool)
	var paths []string
	for _, pattern := range l.opts.Include {
		matches, err := doublestar.Glob(l.fsys, pattern, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("globbing %s: %w", pattern, err)
		}
		for _, m := range matches {
			if !seen[m] && l.wanted(m) && path.Base(m) != l.opts.SummaryFile {
				seen[m] = true
				paths = append(paths, m)
			}
		}
	}
	sortPaths(paths)
	chapters := make([]Chapter, 0, len(paths))
	for _, p := range paths {
		chapters = append(chapters, Chapter{Path: p})
	}
	return chapters, nil
}

// Load parses every chapter concurrently and returns their sections in
// table-of-contents order.
func (l *Loader) Load(ctx context.Context) ([]index.Document, error) {
	chapters, err := l.Chapters()
	if err != nil {
		return nil, err
	}

	perChapter := make([][]section, len(chapters))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(l.opts.Concurrency)
	for i, ch := range chapters {
		if ch.Path == "" {
			continue
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			source, err := fs.ReadFile(l.fsys, ch.Path)
			if err != nil {
				return fmt.Errorf("reading chapter %s: %w", ch.Path, err)
			}
			perChapter[i] = splitSections(l.md, source, l.opts.HeadingSplitLevel)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var docs []index.Document
	for i, ch := range chapters {
		if ch.Path == "" {
			continue
		}
		name := ch.Name
		if name == "" {
			name = chapterName(perChapter[i], ch.Path)
		}
		crumbs := append(append([]string(nil), ch.Parents...), name)
		page := PageURL(ch.Path)
		for _, s := range perChapter[i] {
			doc := index.Document{
				ID:   strconv.Itoa(len(docs)),
				Body: s.body,
			}
			if s.title == "" {
				if s.body == "" {
					continue
				}
				doc.Title = name
				doc.URL = page
				doc.Breadcrumbs = crumbs
			} else {
				doc.Title = s.title
				doc.URL = page + "#" + s.anchor
				doc.Breadcrumbs = append(append([]string(nil), crumbs...), s.title)
			}
			docs = append(docs, doc)
		}
	}
	l.logger.Info("book loaded", "chapters", len(chapters), "sections", len(docs))
	return docs, nil
}

// PageURL maps a chapter path to its rendered page: README.md becomes
// index.html and every other .md becomes .html.
func PageURL(p string) string {
	dir, file := path.Split(p)
	base := strings.TrimSuffix(file, path.Ext(file))
	if strings.EqualFold(file, "README.md") {
		base = "index"
	}
	return dir + base + ".html"
}

func chapterName(sections []section, p string) string {
	for _, s := range sections {
		if s.title != "" {
			return s.title
		}
	}
	return strings.TrimSuffix(path.Base(p), path.Ext(p))
}
