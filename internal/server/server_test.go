package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seekspace/seekd/internal/config"
	"github.com/seekspace/seekd/internal/embed"
	"github.com/seekspace/seekd/internal/index"
	"github.com/seekspace/seekd/internal/scanner"
	"github.com/seekspace/seekd/internal/search"
	"github.com/seekspace/seekd/internal/skill"
	"github.com/seekspace/seekd/internal/source"
	"github.com/seekspace/seekd/internal/store"
	"github.com/seekspace/seekd/internal/workflow"
)

type fixture struct {
	ts   *httptest.Server
	meta store.MetadataStore
	root string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	cfg := config.DefaultConfig()
	cfg.DataDir = t.TempDir()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	meta, err := store.Open(filepath.Join(cfg.DataDir, "seekd.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = meta.Close() })

	embedder := embed.NewStaticEmbedder(64)
	lexical, err := index.NewLexicalIndex("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = lexical.Close() })
	vector, err := index.NewVectorStore("", embedder)
	require.NoError(t, err)

	sc, err := scanner.New()
	require.NoError(t, err)

	coordinator := index.NewCoordinator(meta, sc, embedder, lexical, vector, cfg.Index, logger)
	t.Cleanup(coordinator.Close)
	engine := search.NewEngine(lexical, vector, meta, cfg.Search, logger)

	skills := skill.NewRegistry()
	require.NoError(t, skills.Register(skill.NewSearchSkill(engine, meta)))
	require.NoError(t, skills.Register(skill.NewReportSkill()))
	require.NoError(t, skills.Register(skill.NewCodeAnalysisSkill()))
	require.NoError(t, skills.Register(skill.NewRelationalQuerySkill()))

	templates, err := workflow.NewTemplateRegistry(skills)
	require.NoError(t, err)

	srv := New(Options{
		Config:      cfg,
		Logger:      logger,
		Meta:        meta,
		Sources:     source.NewRegistry(meta),
		Coordinator: coordinator,
		Engine:      engine,
		Skills:      skills,
		Templates:   templates,
		Workflows:   workflow.NewEngine(skills, logger),
	})

	ts := httptest.NewServer(srv.Routes())
	t.Cleanup(ts.Close)

	root := t.TempDir()
	return &fixture{ts: ts, meta: meta, root: root}
}

func (f *fixture) postJSON(t *testing.T, path string, body any) (*http.Response, map[string]any) {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(f.ts.URL+path, "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	return resp, decodeBody(t, resp)
}

func (f *fixture) getJSON(t *testing.T, path string) (*http.Response, map[string]any) {
	t.Helper()
	resp, err := http.Get(f.ts.URL + path)
	require.NoError(t, err)
	return resp, decodeBody(t, resp)
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer func() { _ = resp.Body.Close() }()
	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func (f *fixture) writeFile(t *testing.T, rel, content string) {
	t.Helper()
	path := filepath.Join(f.root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func (f *fixture) addSource(t *testing.T) int64 {
	t.Helper()
	resp, body := f.postJSON(t, "/sources", map[string]any{"path": f.root, "name": "fixture"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	return int64(body["id"].(float64))
}

func (f *fixture) reindex(t *testing.T, id int64) {
	t.Helper()
	resp, body := f.postJSON(t, fmt.Sprintf("/sources/%d/reindex", id), map[string]any{})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, true, body["success"])
}

func TestSourceLifecycle(t *testing.T) {
	f := newFixture(t)
	f.writeFile(t, "a.md", "authentication flow with tokens")

	id := f.addSource(t)

	// Duplicate path conflicts.
	resp, _ := f.postJSON(t, "/sources", map[string]any{"path": f.root})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, body := f.getJSON(t, "/sources")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(1), body["total"])

	resp, body = f.getJSON(t, fmt.Sprintf("/sources/%d", id))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	src := body["source"].(map[string]any)
	assert.Equal(t, "fixture", src["name"])

	resp, _ = f.getJSON(t, "/sources/9999")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	req, err := http.NewRequest(http.MethodDelete, f.ts.URL+fmt.Sprintf("/sources/%d", id), nil)
	require.NoError(t, err)
	del, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	_ = del.Body.Close()
	assert.Equal(t, http.StatusOK, del.StatusCode)

	resp, body = f.getJSON(t, "/sources")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(0), body["total"])
}

func TestUpdateSource(t *testing.T) {
	f := newFixture(t)
	id := f.addSource(t)

	req, err := http.NewRequest(http.MethodPatch,
		f.ts.URL+fmt.Sprintf("/sources/%d", id),
		bytes.NewReader([]byte(`{"name": "renamed", "enabled": false}`)))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	body := decodeBody(t, resp)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "renamed", body["name"])
	assert.Equal(t, false, body["enabled"])
}

func TestSearchEndToEnd(t *testing.T) {
	f := newFixture(t)
	f.writeFile(t, "a.md", "authentication flow with tokens")
	f.writeFile(t, "b.py", "def login(user, password):\n    return issue_token(user)\n")

	id := f.addSource(t)
	f.reindex(t, id)

	for _, mode := range []string{"keyword", "semantic", "hybrid"} {
		resp, body := f.postJSON(t, "/search/"+mode, map[string]any{"query": "login", "limit": 10})
		require.Equal(t, http.StatusOK, resp.StatusCode, mode)
		assert.Equal(t, mode, body["mode"])
		results := body["results"].([]any)
		assert.NotEmpty(t, results, mode)
	}

	resp, body := f.postJSON(t, "/search/hybrid", map[string]any{"query": "login", "limit": 10})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	first := body["results"].([]any)[0].(map[string]any)
	assert.Equal(t, "b.py", first["rel_path"])
}

func TestSearchRejectsEmptyQuery(t *testing.T) {
	f := newFixture(t)
	resp, body := f.postJSON(t, "/search/hybrid", map[string]any{"query": "  "})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "INVALID_INPUT", body["kind"])
}

func TestSearchUnknownMode(t *testing.T) {
	f := newFixture(t)
	resp, _ := f.postJSON(t, "/search/fuzzy", map[string]any{"query": "x"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestDirectoriesAliasListsDirectoriesOnly(t *testing.T) {
	f := newFixture(t)
	f.addSource(t)

	resp, body := f.getJSON(t, "/directories")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(1), body["total"])
	first := body["sources"].([]any)[0].(map[string]any)
	assert.Equal(t, "directory", first["type"])
}

func TestDiscoverSource(t *testing.T) {
	f := newFixture(t)
	f.writeFile(t, "sub/x.md", "hello")
	id := f.addSource(t)

	resp, body := f.getJSON(t, fmt.Sprintf("/sources/%d/discover", id))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	children := body["children"].([]any)
	require.Len(t, children, 1)
	assert.Equal(t, "sub", children[0].(map[string]any)["name"])
}

func TestAgentSkillEndpoints(t *testing.T) {
	f := newFixture(t)

	resp, body := f.getJSON(t, "/agent/skills")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(4), body["total"])

	resp, body = f.getJSON(t, "/agent/skills/report")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "report", body["name"])

	resp, _ = f.getJSON(t, "/agent/skills/missing")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestExecuteSkillDirect(t *testing.T) {
	f := newFixture(t)

	resp, body := f.postJSON(t, "/agent/skills/report/execute", map[string]any{
		"input": map[string]any{
			"title":    "Direct",
			"sections": []any{map[string]any{"heading": "S", "content": "c"}},
		},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	output := body["output"].(map[string]any)
	assert.Contains(t, output["report"].(string), "# Direct")

	// Missing required input violates the declared schema.
	resp, body = f.postJSON(t, "/agent/skills/report/execute", map[string]any{
		"input": map[string]any{},
	})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Equal(t, "INVALID_INPUT", body["kind"])
}

func TestAgentTemplateEndpoints(t *testing.T) {
	f := newFixture(t)

	resp, body := f.getJSON(t, "/agent/templates")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.GreaterOrEqual(t, body["total"].(float64), float64(2))

	resp, body = f.getJSON(t, "/agent/templates/code_search")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "code_search", body["name"])

	resp, _ = f.getJSON(t, "/agent/templates/missing")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	yamlDoc := "name: quick\nsteps:\n  - id: r\n    skill: report\n    input:\n      title: Quick\n      sections: []\n"
	req, err := http.NewRequest(http.MethodPost, f.ts.URL+"/agent/templates", bytes.NewReader([]byte(yamlDoc)))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/yaml")
	resp2, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	body = decodeBody(t, resp2)
	require.Equal(t, http.StatusOK, resp2.StatusCode)
	assert.Equal(t, "quick", body["name"])

	resp, _ = f.getJSON(t, "/agent/templates/quick")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAgentExecuteTemplate(t *testing.T) {
	f := newFixture(t)
	f.writeFile(t, "auth.go", "package auth\n\nfunc VerifyToken(raw string) bool { return raw != \"\" }\n")
	id := f.addSource(t)
	f.reindex(t, id)

	resp, body := f.postJSON(t, "/agent/execute", map[string]any{
		"template":   "code_search",
		"parameters": map[string]any{"query": "token", "limit": 5},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body["status"])
	output := body["output"].(map[string]any)
	assert.Contains(t, output["report"].(string), "token")
}

func TestAgentExecuteTemplateMissingParameter(t *testing.T) {
	f := newFixture(t)
	resp, _ := f.postJSON(t, "/agent/execute", map[string]any{
		"template":   "code_search",
		"parameters": map[string]any{},
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAgentExecuteUnknownTemplate(t *testing.T) {
	f := newFixture(t)
	resp, _ := f.postJSON(t, "/agent/execute", map[string]any{"template": "nope"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAgentExecuteInlineWorkflow(t *testing.T) {
	f := newFixture(t)
	f.writeFile(t, "readme.md", "unrelated fixture content")
	id := f.addSource(t)
	f.reindex(t, id)

	resp, body := f.postJSON(t, "/agent/execute-workflow", map[string]any{
		"workflow": map[string]any{
			"name": "find-and-report",
			"parameters": []any{
				map[string]any{"name": "query", "type": "string", "required": true},
			},
			"steps": []any{
				map[string]any{
					"id": "find", "skill": "search",
					"input": map[string]any{"query": "{{ query }}"},
				},
				map[string]any{
					"id": "rep", "skill": "report",
					"input": map[string]any{
						"title": "Results",
						"sections": []any{
							map[string]any{"heading": "Matches", "items": "{{ find.results }}"},
						},
					},
				},
			},
		},
		"parameters": map[string]any{"query": "nothing indexed matches this"},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// Empty result set still completes both steps.
	assert.Equal(t, "ok", body["status"])
	steps := body["steps"].([]any)
	require.Len(t, steps, 2)
	for _, st := range steps {
		assert.Equal(t, "ok", st.(map[string]any)["status"])
	}
	assert.Contains(t, body["output"].(map[string]any)["report"].(string), "## Matches")
}

func TestReindexEmptySourceRecordsScanFailed(t *testing.T) {
	f := newFixture(t)
	id := f.addSource(t)

	// A pass that ran but observed no files is acknowledged, not an error;
	// the outcome carries the failure reason and an index event is recorded.
	resp, body := f.postJSON(t, fmt.Sprintf("/sources/%d/reindex", id), map[string]any{})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "scan_failed", body["reason"])

	resp, body = f.getJSON(t, fmt.Sprintf("/sources/%d", id))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	stats := body["stats"].([]any)
	require.NotEmpty(t, stats)
	assert.Equal(t, "scan_failed", stats[0].(map[string]any)["last_outcome"])
}

func TestAgentInfoAndHealth(t *testing.T) {
	f := newFixture(t)

	resp, body := f.getJSON(t, "/agent/info")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(4), body["skills"])

	resp, body = f.getJSON(t, "/agent/health")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, false, body["llm_ready"])
}
