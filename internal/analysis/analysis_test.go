package analysis

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/Adithya-Monish-Kumar-K/docsearch/pkg/errors"
)

func TestTokenizerSplitsOnWhitespaceAndHyphens(t *testing.T) {
	stream := Tokenizer{}.Tokenize([]byte("  Hello  World-wide\tWEB "))
	require.Len(t, stream, 4)

	want := []struct {
		term       string
		start, end int
	}{
		{"hello", 0, 5},
		{"world", 7, 12},
		{"wide", 13, 17},
		{"web", 18, 21},
	}
	for i, w := range want {
		assert.Equal(t, w.term, string(stream[i].Term))
		assert.Equal(t, w.start, stream[i].Start)
		assert.Equal(t, w.end, stream[i].End)
		assert.Equal(t, i+1, stream[i].Position)
	}
}

func TestTokenizerEmptyInput(t *testing.T) {
	assert.Empty(t, Tokenizer{}.Tokenize([]byte(" \n\t-- ")))
}

func TestDefaultPipelineTerms(t *testing.T) {
	p := Default()
	tests := []struct {
		in   string
		want []string
	}{
		{"This is the documentation site for MCing.", []string{"document", "site", "mcing"}},
		{"MCing is a Kubernetes operator", []string{"mcing", "kubernet", "oper"}},
		{"Custom Resources", []string{"custom", "resourc"}},
		{"Image for minecraft server *string", []string{"imag", "minecraft", "server", "string"}},
		{"items [] Minecraft", []string{"item", "minecraft"}},
		{"multi-shard", []string{"multi", "shard"}},
		{"the and of", []string{}},
		{"", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, p.Terms(tt.in))
		})
	}
}

func TestTrimmerKeepsInnerPunctuation(t *testing.T) {
	p, err := New(Trimmer)
	require.NoError(t, err)
	assert.Equal(t, []string{"corev1.persistentvolumeclaimspec", "metav1.objectmeta"},
		p.Terms("(corev1.PersistentVolumeClaimSpec) metav1.ObjectMeta,"))
}

func TestTrimmerAdjustsOffsets(t *testing.T) {
	p, err := New(Trimmer)
	require.NoError(t, err)
	stream := p.Analyze("say \"hello\"")
	require.Len(t, stream, 2)
	assert.Equal(t, "hello", string(stream[1].Term))
	assert.Equal(t, 5, stream[1].Start)
	assert.Equal(t, 10, stream[1].End)
}

func TestStem(t *testing.T) {
	assert.Equal(t, "minecraftstatu", Stem("minecraftstatus"))
	assert.Equal(t, "specif", Stem("specification"))
	assert.Equal(t, "desir", Stem("desired"))
	assert.Equal(t, "", Stem(""))
}

func TestNewUnknownFunction(t *testing.T) {
	_, err := New(Trimmer, "lowercaser")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrUnknownPipeline))
	assert.Contains(t, err.Error(), `"lowercaser" (known: stemmer, stopWordFilter, trimmer)`)
}

func TestNamesRoundTrip(t *testing.T) {
	p := Default()
	assert.Equal(t, []string{"trimmer", "stopWordFilter", "stemmer"}, p.Names())

	names := p.Names()
	names[0] = "mutated"
	assert.Equal(t, "trimmer", p.Names()[0])

	rebuilt, err := New(p.Names()...)
	require.NoError(t, err)
	assert.Equal(t, p.Terms("Sub Resources of Minecraft"), rebuilt.Terms("Sub Resources of Minecraft"))
}

func TestIsStopWord(t *testing.T) {
	assert.True(t, IsStopWord("the"))
	assert.True(t, IsStopWord("twas"))
	assert.False(t, IsStopWord("minecraft"))
	assert.Contains(t, Registered(), StopWordFilter)
}
