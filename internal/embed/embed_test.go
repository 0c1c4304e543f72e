package embed

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStaticEmbedderDeterministic(t *testing.T) {
	e := NewStaticEmbedder(0)
	defer func() { _ = e.Close() }()

	a, err := e.Embed(context.Background(), "func main() { fmt.Println() }")
	require.NoError(t, err)
	b, err := e.Embed(context.Background(), "func main() { fmt.Println() }")
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.Len(t, a, StaticDimensions)
}

func TestStaticEmbedderUnitLength(t *testing.T) {
	e := NewStaticEmbedder(64)
	vec, err := e.Embed(context.Background(), "some text with several tokens")
	require.NoError(t, err)

	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	assert.InDelta(t, 1.0, sum, 1e-5)
}

func TestStaticEmbedderBatch(t *testing.T) {
	e := NewStaticEmbedder(32)
	vecs, err := e.EmbedBatch(context.Background(), []string{"alpha", "beta", "alpha"})
	require.NoError(t, err)
	require.Len(t, vecs, 3)
	assert.Equal(t, vecs[0], vecs[2])
	assert.NotEqual(t, vecs[0], vecs[1])
}

func TestNormalizeVectorZero(t *testing.T) {
	v := []float32{0, 0, 0}
	assert.Equal(t, v, normalizeVector(v))
}

func newOllamaTestServer(t *testing.T, dims int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/tags":
			_ = json.NewEncoder(w).Encode(ollamaModelListResponse{
				Models: []ollamaModelInfo{{Name: "nomic-embed-text:latest"}},
			})
		case "/api/embed":
			var req ollamaEmbedRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

			count := 1
			if arr, ok := req.Input.([]any); ok {
				count = len(arr)
			}
			embeddings := make([][]float64, count)
			for i := range embeddings {
				vec := make([]float64, dims)
				vec[i%dims] = 1
				embeddings[i] = vec
			}
			_ = json.NewEncoder(w).Encode(ollamaEmbedResponse{Embeddings: embeddings})
		default:
			http.NotFound(w, r)
		}
	}))
}

func TestOllamaEmbedderResolvesModelTag(t *testing.T) {
	srv := newOllamaTestServer(t, 8)
	defer srv.Close()

	e, err := NewOllamaEmbedder(context.Background(), OllamaConfig{
		Host:  srv.URL,
		Model: "nomic-embed-text",
	})
	require.NoError(t, err)
	defer func() { _ = e.Close() }()

	assert.Equal(t, "nomic-embed-text:latest", e.ModelName())
	assert.Equal(t, 8, e.Dimensions())
	assert.True(t, e.Available(context.Background()))
}

func TestOllamaEmbedderBatchAlignment(t *testing.T) {
	srv := newOllamaTestServer(t, 8)
	defer srv.Close()

	e, err := NewOllamaEmbedder(context.Background(), OllamaConfig{
		Host:      srv.URL,
		Model:     "nomic-embed-text",
		BatchSize: 2,
	})
	require.NoError(t, err)
	defer func() { _ = e.Close() }()

	vecs, err := e.EmbedBatch(context.Background(), []string{"one", "", "three"})
	require.NoError(t, err)
	require.Len(t, vecs, 3)

	// The empty text maps to a zero vector without an API call.
	for _, v := range vecs[1] {
		assert.Zero(t, v)
	}
	assert.Len(t, vecs[0], 8)
	assert.Len(t, vecs[2], 8)
}

func TestOllamaEmbedderMissingModel(t *testing.T) {
	srv := newOllamaTestServer(t, 8)
	defer srv.Close()

	_, err := NewOllamaEmbedder(context.Background(), OllamaConfig{
		Host:  srv.URL,
		Model: "does-not-exist",
	})
	require.Error(t, err)
}

func TestOllamaEmbedderNormalizes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/embed" {
			_ = json.NewEncoder(w).Encode(ollamaEmbedResponse{
				Embeddings: [][]float64{{3, 4}},
			})
			return
		}
		_ = json.NewEncoder(w).Encode(ollamaModelListResponse{
			Models: []ollamaModelInfo{{Name: "m"}},
		})
	}))
	defer srv.Close()

	e, err := NewOllamaEmbedder(context.Background(), OllamaConfig{Host: srv.URL, Model: "m"})
	require.NoError(t, err)
	defer func() { _ = e.Close() }()

	vec, err := e.Embed(context.Background(), "hello")
	require.NoError(t, err)
	require.Len(t, vec, 2)
	assert.InDelta(t, 0.6, float64(vec[0]), 1e-5)
	assert.InDelta(t, 0.8, float64(vec[1]), 1e-5)
	assert.InDelta(t, 1.0, math.Hypot(float64(vec[0]), float64(vec[1])), 1e-5)
}
