package cmd

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stubSearchServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/search/hybrid", r.URL.Path)

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "login flow", body["query"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"results": [
				{"rel_path": "auth/login.go", "abs_path": "/src/auth/login.go", "score": 0.91},
				{"rel_path": "docs/auth.md", "abs_path": "/src/docs/auth.md", "score": 0.44}
			],
			"total_results": 2,
			"search_time_ms": 12,
			"mode": "hybrid"
		}`))
	}))
}

func TestSearchCmd_PrintsResults(t *testing.T) {
	ts := stubSearchServer(t)
	defer ts.Close()

	serverURL := ts.URL
	cmd := newSearchCmd(&serverURL)
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"login", "flow"})

	require.NoError(t, cmd.Execute())
	output := buf.String()
	assert.Contains(t, output, "/src/auth/login.go")
	assert.Contains(t, output, "2 results in 12ms (hybrid)")
}

func TestSearchCmd_JSONOutput(t *testing.T) {
	ts := stubSearchServer(t)
	defer ts.Close()

	serverURL := ts.URL
	cmd := newSearchCmd(&serverURL)
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"login", "flow", "--json"})

	require.NoError(t, cmd.Execute())
	var out map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	assert.Equal(t, float64(2), out["total_results"])
}

func TestParseParams(t *testing.T) {
	params, err := parseParams([]string{"query=auth tokens", "limit=5", "verbose=true"})
	require.NoError(t, err)
	assert.Equal(t, "auth tokens", params["query"])
	assert.Equal(t, float64(5), params["limit"])
	assert.Equal(t, true, params["verbose"])

	_, err = parseParams([]string{"no-equals"})
	require.Error(t, err)
}
