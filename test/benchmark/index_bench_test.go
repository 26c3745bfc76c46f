package benchmark

import (
	"fmt"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/analysis"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/artifact"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer"
)

// BenchmarkBuild measures a full build: analysis, trie insertion and
// document store.
func BenchmarkBuild(b *testing.B) {
	for _, n := range sizes {
		docs := corpus(n)
		b.Run(fmt.Sprintf("docs_%d", n), func(b *testing.B) {
			b.ReportAllocs()
			for b.Loop() {
				if _, err := indexer.Build(docs, indexer.DefaultBuildOptions()); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

// BenchmarkEncode measures serializing a built index to searchindex.js.
func BenchmarkEncode(b *testing.B) {
	for _, n := range sizes {
		bundle, err := indexer.Build(corpus(n), indexer.DefaultBuildOptions())
		if err != nil {
			b.Fatal(err)
		}
		b.Run(fmt.Sprintf("docs_%d", n), func(b *testing.B) {
			b.ReportAllocs()
			for b.Loop() {
				if _, err := artifact.Encode(bundle, artifact.FormatJS); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

// BenchmarkDecode measures what a searcher pays to load an artifact.
func BenchmarkDecode(b *testing.B) {
	for _, n := range sizes {
		bundle, err := indexer.Build(corpus(n), indexer.DefaultBuildOptions())
		if err != nil {
			b.Fatal(err)
		}
		data, err := artifact.Encode(bundle, artifact.FormatJS)
		if err != nil {
			b.Fatal(err)
		}
		b.Run(fmt.Sprintf("docs_%d", n), func(b *testing.B) {
			b.SetBytes(int64(len(data)))
			b.ReportAllocs()
			for b.Loop() {
				if _, err := artifact.Decode(data); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

// BenchmarkPipeline measures tokenizer, trimmer, stop words and stemmer on
// one section body.
func BenchmarkPipeline(b *testing.B) {
	p := analysis.Default()
	b.SetBytes(int64(len(mcingBody)))
	b.ReportAllocs()
	for b.Loop() {
		_ = p.Terms(mcingBody)
	}
}
