package server

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/seekspace/seekd/internal/index"
	"github.com/seekspace/seekd/internal/search"
	"github.com/seekspace/seekd/internal/store"
)

// searchRequest is the JSON body of POST /search/{mode}.
type searchRequest struct {
	Query          string        `json:"query"`
	Limit          int           `json:"limit"`
	MinScore       float64       `json:"min_score"`
	KeywordWeight  float64       `json:"keyword_weight"`
	SemanticWeight float64       `json:"semantic_weight"`
	Filters        searchFilters `json:"filters"`
}

type searchFilters struct {
	Repositories []string `json:"repositories"`
	Directories  []string `json:"directories"`
	Folder       string   `json:"folder"`
	Extension    string   `json:"extension"`
}

// searchResponse is the JSON shape of a search result set.
type searchResponse struct {
	Results      []*search.Result `json:"results"`
	TotalResults int              `json:"total_results"`
	SearchTimeMS int64            `json:"search_time_ms"`
	Mode         search.Mode      `json:"mode"`
	Degraded     bool             `json:"degraded,omitempty"`
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var body searchRequest
	if err := decodeJSON(r, &body); err != nil {
		s.writeError(w, r, err)
		return
	}

	filter, err := s.resolveFilter(r.Context(), body.Filters)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	req := &search.Request{
		Query:          body.Query,
		Mode:           search.Mode(chi.URLParam(r, "mode")),
		Limit:          body.Limit,
		MinScore:       body.MinScore,
		Filter:         filter,
		KeywordWeight:  body.KeywordWeight,
		SemanticWeight: body.SemanticWeight,
	}
	resp, err := s.engine.Search(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, searchResponse{
		Results:      resp.Results,
		TotalResults: resp.Total,
		SearchTimeMS: resp.Took.Milliseconds(),
		Mode:         resp.Mode,
		Degraded:     resp.Degraded,
	})
}

// resolveFilter maps repository and directory names to source references.
// Unknown names are ignored so a stale client filter narrows rather than
// fails the search.
func (s *Server) resolveFilter(ctx context.Context, f searchFilters) (*index.Filter, error) {
	out := &index.Filter{FolderPrefix: f.Folder}
	if f.Extension != "" {
		out.Extensions = []string{f.Extension}
	}

	if len(f.Repositories) > 0 || len(f.Directories) > 0 {
		sources, err := s.meta.ListSources(ctx, store.SourceFilter{})
		if err != nil {
			return nil, err
		}
		byName := make(map[string]*store.Source, len(sources))
		for _, src := range sources {
			byName[strings.ToLower(src.Name)] = src
		}
		for _, name := range f.Repositories {
			if src, ok := byName[strings.ToLower(name)]; ok && src.Type == store.SourceTypeRepository {
				out.Sources = append(out.Sources, index.SourceRef{Type: src.Type, ID: src.ID})
			}
		}
		for _, name := range f.Directories {
			if src, ok := byName[strings.ToLower(name)]; ok && src.Type == store.SourceTypeDirectory {
				out.Sources = append(out.Sources, index.SourceRef{Type: src.Type, ID: src.ID})
			}
		}
	}

	if out.IsZero() {
		return nil, nil
	}
	return out, nil
}
