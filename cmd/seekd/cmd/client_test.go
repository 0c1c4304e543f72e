package cmd

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	seekerrors "github.com/seekspace/seekd/internal/errors"
)

func TestClientRebuildsServerErrorKind(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"error": "[CONFLICT] source path already registered", "kind": "CONFLICT"}`))
	}))
	defer ts.Close()

	err := newClient(ts.URL).post("/sources", map[string]any{"path": "/x"}, nil)
	require.Error(t, err)
	assert.Equal(t, seekerrors.KindConflict, seekerrors.KindOf(err))
	assert.Equal(t, 3, ExitCode(err))
}

func TestClientUnreachableServer(t *testing.T) {
	// Port 1 is never listening.
	err := newClient("http://127.0.0.1:1").get("/sources", nil)
	require.Error(t, err)
	assert.Equal(t, seekerrors.KindDependencyUnavailable, seekerrors.KindOf(err))
	assert.Equal(t, 4, ExitCode(err))
}

func TestClientNonEnvelopeErrorFallsBackToStatus(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone wrong", http.StatusNotFound)
	}))
	defer ts.Close()

	err := newClient(ts.URL).get("/sources/7", nil)
	require.Error(t, err)
	assert.Equal(t, seekerrors.KindNotFound, seekerrors.KindOf(err))
	assert.Equal(t, 2, ExitCode(err))
}

func TestExitCodes(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, 0},
		{"invalid input", seekerrors.InvalidInput("bad"), 1},
		{"not found", seekerrors.NotFound("missing"), 2},
		{"conflict", seekerrors.Conflict("dup"), 3},
		{"unavailable", seekerrors.Unavailable("down", nil), 4},
		{"transient", seekerrors.Transient("io", nil), 4},
		{"internal", seekerrors.Internal("boom", nil), 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExitCode(tt.err))
		})
	}
}
