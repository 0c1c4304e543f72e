package server

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	seekerrors "github.com/seekspace/seekd/internal/errors"
	"github.com/seekspace/seekd/internal/source"
	"github.com/seekspace/seekd/internal/store"
)

// sourceJSON is the wire shape of a registered source.
type sourceJSON struct {
	ID          int64      `json:"id"`
	Type        string     `json:"type"`
	Path        string     `json:"path"`
	Name        string     `json:"name"`
	Enabled     bool       `json:"enabled"`
	Priority    int        `json:"priority"`
	AutoReindex bool       `json:"auto_reindex"`
	Notes       string     `json:"notes,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	LastIndexed *time.Time `json:"last_indexed,omitempty"`
}

func toSourceJSON(src *store.Source) sourceJSON {
	return sourceJSON{
		ID:          src.ID,
		Type:        string(src.Type),
		Path:        src.Path,
		Name:        src.Name,
		Enabled:     src.Enabled,
		Priority:    src.Priority,
		AutoReindex: src.AutoReindex,
		Notes:       src.Notes,
		CreatedAt:   src.CreatedAt,
		UpdatedAt:   src.UpdatedAt,
		LastIndexed: src.LastIndexed,
	}
}

// sourceID parses the {id} route parameter.
func sourceID(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, seekerrors.InvalidInput("invalid source id: %q", raw)
	}
	return id, nil
}

// directoriesAlias reports whether the request came through the legacy
// /directories mount, which scopes listing to directory sources.
func directoriesAlias(r *http.Request) bool {
	return strings.HasPrefix(r.URL.Path, "/directories")
}

func (s *Server) handleListSources(w http.ResponseWriter, r *http.Request) {
	filter := store.SourceFilter{
		EnabledOnly: r.URL.Query().Get("enabled") == "true",
		Type:        store.SourceType(r.URL.Query().Get("type")),
	}
	if directoriesAlias(r) {
		filter.Type = store.SourceTypeDirectory
	}

	sources, err := s.sources.List(r.Context(), filter)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	out := make([]sourceJSON, 0, len(sources))
	for _, src := range sources {
		out = append(out, toSourceJSON(src))
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"sources": out, "total": len(out)})
}

func (s *Server) handleAddSource(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Path        string `json:"path"`
		Name        string `json:"name"`
		Priority    int    `json:"priority"`
		Notes       string `json:"notes"`
		AutoReindex bool   `json:"auto_reindex"`
	}
	if err := decodeJSON(r, &body); err != nil {
		s.writeError(w, r, err)
		return
	}
	if body.Path == "" {
		s.writeError(w, r, seekerrors.InvalidInput("path must not be empty"))
		return
	}

	src, err := s.sources.Register(r.Context(), body.Path, source.RegisterOptions{
		Name:        body.Name,
		Priority:    body.Priority,
		Notes:       body.Notes,
		AutoReindex: body.AutoReindex,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, toSourceJSON(src))
}

func (s *Server) handleGetSource(w http.ResponseWriter, r *http.Request) {
	id, err := sourceID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	src, err := s.sources.Get(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	// Stats are display-only; their absence never fails the request.
	stats, _ := s.meta.GetStats(r.Context(), id)

	s.writeJSON(w, http.StatusOK, map[string]any{
		"source": toSourceJSON(src),
		"stats":  statsJSON(stats),
	})
}

type indexStatsJSON struct {
	IndexType    string     `json:"index_type"`
	FilesIndexed int64      `json:"files_indexed"`
	BytesIndexed int64      `json:"bytes_indexed"`
	LastDuration int64      `json:"last_duration_ms"`
	LastAt       *time.Time `json:"last_at,omitempty"`
	LastOutcome  string     `json:"last_outcome,omitempty"`
}

func statsJSON(stats []*store.IndexStats) []indexStatsJSON {
	out := make([]indexStatsJSON, 0, len(stats))
	for _, st := range stats {
		out = append(out, indexStatsJSON{
			IndexType:    string(st.IndexType),
			FilesIndexed: st.FilesIndexed,
			BytesIndexed: st.BytesIndexed,
			LastDuration: st.LastDuration.Milliseconds(),
			LastAt:       st.LastAt,
			LastOutcome:  st.LastOutcome,
		})
	}
	return out
}

func (s *Server) handleUpdateSource(w http.ResponseWriter, r *http.Request) {
	id, err := sourceID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	var body struct {
		Name        *string `json:"name"`
		Enabled     *bool   `json:"enabled"`
		Priority    *int    `json:"priority"`
		AutoReindex *bool   `json:"auto_reindex"`
		Notes       *string `json:"notes"`
	}
	if err := decodeJSON(r, &body); err != nil {
		s.writeError(w, r, err)
		return
	}

	src, err := s.sources.Update(r.Context(), id, store.SourceUpdate{
		Name:        body.Name,
		Enabled:     body.Enabled,
		Priority:    body.Priority,
		AutoReindex: body.AutoReindex,
		Notes:       body.Notes,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, toSourceJSON(src))
}

func (s *Server) handleRemoveSource(w http.ResponseWriter, r *http.Request) {
	id, err := sourceID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	purge := r.URL.Query().Get("purge") == "true"

	if err := s.coordinator.RemoveSource(r.Context(), id, purge); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"removed": id, "purged": purge})
}

func (s *Server) handleReindexSource(w http.ResponseWriter, r *http.Request) {
	id, err := sourceID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	src, err := s.sources.Get(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	full := r.URL.Query().Get("full") == "true"

	outcome, err := s.coordinator.IndexSource(r.Context(), src, full)
	if outcome == nil {
		s.writeError(w, r, err)
		return
	}
	// A pass that ran is acknowledged even when it failed; the outcome and
	// the recorded index event carry the reason.
	s.writeJSON(w, http.StatusOK, map[string]any{
		"source_id":     id,
		"full":          full,
		"success":       outcome.Success,
		"reason":        outcome.Reason,
		"files_indexed": outcome.FilesIndexed,
		"bytes_indexed": outcome.BytesIndexed,
	})
}

func (s *Server) handleDiscoverSource(w http.ResponseWriter, r *http.Request) {
	id, err := sourceID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	src, err := s.sources.Get(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	depth := 0
	if raw := r.URL.Query().Get("depth"); raw != "" {
		depth, _ = strconv.Atoi(raw)
	}

	tree, err := source.Discover(src.Path, depth)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, tree)
}
