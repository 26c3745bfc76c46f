package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/searcher/executor"
)

const mcingSrc = "../../internal/book/testdata/mcing"

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func buildIndex(t *testing.T, format string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "book", "searchindex."+format)
	out, err := run(t, "build", "--src", mcingSrc, "--out", path, "--format", format)
	require.NoError(t, err, out)
	assert.Contains(t, out, "4 documents")
	return path
}

func TestBuildWritesJSWrapper(t *testing.T) {
	path := buildIndex(t, "js")
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("Object.assign(window.search, ")))
}

func TestQueryJSON(t *testing.T) {
	path := buildIndex(t, "json")
	out, err := run(t, "query", "--index", path, "--json", "custom")
	require.NoError(t, err)

	var result executor.SearchResult
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, 3, result.Total)
	assert.Equal(t, []string{"custom"}, result.Terms)
}

func TestQueryText(t *testing.T) {
	path := buildIndex(t, "js")
	out, err := run(t, "query", "-i", path, "-n", "1", "kubernetes", "operator")
	require.NoError(t, err)
	assert.Contains(t, out, "1 of 1 results")
	assert.Contains(t, out, "MCing documentation")

	out, err = run(t, "query", "-i", path, "zzzz")
	require.NoError(t, err)
	assert.Contains(t, out, "No results found.")

	_, err = run(t, "query", "-i", path, "--bool", "XOR", "custom")
	assert.Error(t, err)
}

func TestInspect(t *testing.T) {
	path := buildIndex(t, "js")
	out, err := run(t, "inspect", "-i", path)
	require.NoError(t, err)
	assert.Contains(t, out, "documents:    4")
	assert.Contains(t, out, "breadcrumbs")

	out, err = run(t, "inspect", "-i", path, "--doc", "0")
	require.NoError(t, err)
	assert.Contains(t, out, "index.html#mcing-documentation")

	_, err = run(t, "inspect", "-i", path, "--doc", "99")
	assert.Error(t, err)
}

func TestMissingIndex(t *testing.T) {
	_, err := run(t, "inspect", "-i", filepath.Join(t.TempDir(), "nope.js"))
	assert.Error(t, err)
}

func TestLoadtestReportsCacheTiers(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/search", r.URL.Path)
		assert.Equal(t, "mcing", r.URL.Query().Get("book"))
		if calls.Add(1) == 1 {
			w.Header().Set("X-Cache", "miss")
		} else {
			w.Header().Set("X-Cache", "local")
		}
		w.Write([]byte(`{"total":0,"results":[]}`))
	}))
	defer srv.Close()

	out, err := run(t, "loadtest", "--url", srv.URL, "--book", "mcing", "-q", "kubernetes", "-c", "2", "-d", "100ms")
	require.NoError(t, err, out)
	assert.Contains(t, out, "1 queries")
	assert.Contains(t, out, "200")
	assert.Contains(t, out, "miss")
	assert.Contains(t, out, "local")
	assert.Contains(t, out, "p95")
}

func TestLoadtestQueriesFromIndex(t *testing.T) {
	path := buildIndex(t, "js")
	opts := &loadOptions{indexPath: path, queries: []string{"extra"}}
	queries, err := opts.loadQueries()
	require.NoError(t, err)
	assert.Len(t, queries, 5)
	assert.Equal(t, "extra", queries[0])
	assert.Contains(t, queries, "MCing documentation")

	_, err = (&loadOptions{}).loadQueries()
	assert.Error(t, err)
}
