package index_test

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/analysis"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/fixtures"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/index"
	apperrors "github.com/Adithya-Monish-Kumar-K/docsearch/pkg/errors"
)

func buildBundle(t *testing.T) *index.Bundle {
	t.Helper()
	ix := index.New(index.DefaultFields, analysis.Default())
	var urls []string
	for _, d := range fixtures.MCing() {
		err := ix.AddDoc(d.ID, map[string]string{
			index.FieldTitle:       d.Title,
			index.FieldBody:        d.Body,
			index.FieldBreadcrumbs: strings.Join(d.Breadcrumbs, " » "),
		})
		require.NoError(t, err)
		urls = append(urls, d.URL)
	}
	return &index.Bundle{
		DocURLs:        urls,
		Index:          ix,
		SearchOptions:  index.DefaultSearchOptions(),
		ResultsOptions: index.DefaultResultsOptions(),
	}
}

func TestAddDocFieldLengths(t *testing.T) {
	b := buildBundle(t)
	store := b.Index.Store()

	assert.Equal(t, 4, b.Index.DocumentCount())
	assert.Equal(t, 8, store.FieldLength("0", index.FieldBody))
	assert.Equal(t, 3, store.FieldLength("0", index.FieldBreadcrumbs))
	assert.Equal(t, 2, store.FieldLength("0", index.FieldTitle))
	assert.Equal(t, 0, store.FieldLength("1", index.FieldBody))
	assert.Equal(t, "0", store.Field("0", "id"))
	assert.Equal(t, []string{"0", "1", "2", "3"}, store.Refs())
}

func TestAddDocPostings(t *testing.T) {
	b := buildBundle(t)
	title := b.Index.Tree(index.FieldTitle)
	body := b.Index.Tree(index.FieldBody)

	assert.Equal(t, 2, title.DocFreq("custom"))
	assert.Equal(t, 3, b.Index.Tree(index.FieldBreadcrumbs).DocFreq("custom"))
	assert.ElementsMatch(t, []string{"1", "2", "3"}, keys(title.Docs("resourc")))
	assert.InDelta(t, 1.4142135623730951, body.TermFrequency("mcing", "0"), 1e-15)
	assert.True(t, body.HasToken("kubernet"))
	assert.False(t, body.HasToken("the"), "stop words are not indexed")
	assert.Nil(t, b.Index.Tree("nope"))
}

func TestAddDocRejectsBadRefs(t *testing.T) {
	ix := index.New(index.DefaultFields, analysis.Default())
	require.NoError(t, ix.AddDoc("a", map[string]string{"title": "x"}))

	err := ix.AddDoc("a", map[string]string{"title": "y"})
	assert.True(t, errors.Is(err, apperrors.ErrDuplicateDocument))

	err = ix.AddDoc("", map[string]string{"title": "y"})
	assert.True(t, errors.Is(err, apperrors.ErrInvalidDocument))
	assert.Equal(t, 1, ix.DocumentCount())
}

func TestIDF(t *testing.T) {
	b := buildBundle(t)
	// N=4, df("resourc")=3 in title: 1 + ln(4/4) = 1
	assert.InDelta(t, 1.0, b.Index.IDF(index.FieldTitle, "resourc"), 1e-12)
	assert.Greater(t, b.Index.IDF(index.FieldTitle, "absent"), b.Index.IDF(index.FieldTitle, "resourc"))
}

func TestEncodeLayout(t *testing.T) {
	data, err := buildBundle(t).Encode()
	require.NoError(t, err)
	s := string(data)

	assert.True(t, strings.HasPrefix(s, `{"doc_urls":["index.html#mcing-documentation","crd.html#custom-resources",`))
	for _, want := range []string{
		`"documentStore":{"docInfo":{"0":{"body":8,"breadcrumbs":3,"title":2}`,
		`"breadcrumbs":"MCing » MCing documentation","id":"0","title":"MCing documentation"}`,
		`"length":4,"save":true}`,
		`"fields":["title","body","breadcrumbs"]`,
		`"lang":"English","pipeline":["trimmer","stopWordFilter","stemmer"],"ref":"id","version":"0.9.5"}`,
		`"results_options":{"limit_results":30,"teaser_word_count":30}`,
		`"search_options":{"bool":"OR","expand":true,"fields":{"body":{"boost":1},"breadcrumbs":{"boost":1},"title":{"boost":2}}}}`,
		`"tf":1.0`,
		`"tf":1.4142135623730951`,
	} {
		assert.Contains(t, s, want)
	}
	assert.NotContains(t, s, `\u00bb`)
}

func TestEncodeDeterministic(t *testing.T) {
	first, err := buildBundle(t).Encode()
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := buildBundle(t).Encode()
		require.NoError(t, err)
		require.Equal(t, string(first), string(again))
	}
}

func TestDecodeRoundTrip(t *testing.T) {
	b := buildBundle(t)
	data, err := b.Encode()
	require.NoError(t, err)

	var decoded index.Bundle
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.NoError(t, decoded.Validate())

	assert.Equal(t, b.Index.Store().Refs(), decoded.Index.Store().Refs())
	assert.Equal(t, "crd_minecraft.html#sub-resources", decoded.URL("3"))
	assert.Equal(t, analysis.DefaultNames, decoded.Index.Pipeline().Names())

	again, err := decoded.Encode()
	require.NoError(t, err)
	assert.Equal(t, string(data), string(again))
}

func TestDecodeRejectsMalformed(t *testing.T) {
	data, err := buildBundle(t).Encode()
	require.NoError(t, err)
	good := string(data)

	cases := map[string]string{
		"unknown pipeline": strings.Replace(good, `"stemmer"]`, `"lowercaser"]`, 1),
		"length mismatch":  strings.Replace(good, `"length":4`, `"length":5`, 1),
		"no fields":        strings.Replace(good, `"fields":["title","body","breadcrumbs"]`, `"fields":[]`, 1),
		"missing tree":     strings.Replace(good, `"fields":["title","body","breadcrumbs"]`, `"fields":["title","body","breadcrumbs","summary"]`, 1),
		"no ref":           strings.Replace(good, `"ref":"id"`, `"ref":""`, 1),
		"truncated":        good[:len(good)/2],
	}
	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			var decoded index.Bundle
			err := json.Unmarshal([]byte(input), &decoded)
			if err == nil {
				err = decoded.Validate()
			}
			require.Error(t, err)
			if name != "truncated" {
				assert.True(t, errors.Is(err, apperrors.ErrMalformedIndex), "got %v", err)
			}
		})
	}
}

func TestValidateDocURLCount(t *testing.T) {
	b := buildBundle(t)
	b.DocURLs = b.DocURLs[:2]
	require.NoError(t, b.Validate())
	assert.Equal(t, "crd.html#custom-resources", b.URL("1"))
	assert.Empty(t, b.URL("3"))

	b.DocURLs = append(b.DocURLs, "a.html", "b.html", "c.html")
	assert.True(t, errors.Is(b.Validate(), apperrors.ErrMalformedIndex))
}

func TestValidateRequiresPositionalRefs(t *testing.T) {
	ix := index.New(index.DefaultFields, analysis.Default())
	require.NoError(t, ix.AddDoc("intro", map[string]string{index.FieldTitle: "Intro"}))
	require.NoError(t, ix.AddDoc("api", map[string]string{index.FieldTitle: "API"}))
	b := &index.Bundle{DocURLs: []string{"intro.html", "api.html"}, Index: ix}

	err := b.Validate()
	assert.True(t, errors.Is(err, apperrors.ErrMalformedIndex))
	assert.ErrorContains(t, err, `missing "0"`)

	data, err := b.Encode()
	require.NoError(t, err)
	var decoded index.Bundle
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Error(t, decoded.Validate())
}

func keys(m map[string]index.Posting) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
