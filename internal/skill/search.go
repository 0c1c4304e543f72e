package skill

import (
	"context"
	"strings"

	"github.com/seekspace/seekd/internal/index"
	"github.com/seekspace/seekd/internal/search"
	"github.com/seekspace/seekd/internal/store"
)

// SearchSkill wraps the hybrid search engine.
type SearchSkill struct {
	engine *search.Engine
	meta   store.MetadataStore
}

// NewSearchSkill creates the search skill.
func NewSearchSkill(engine *search.Engine, meta store.MetadataStore) *SearchSkill {
	return &SearchSkill{engine: engine, meta: meta}
}

func (s *SearchSkill) Info() Info {
	return Info{
		Name:        "search",
		Description: "Hybrid keyword and semantic search over indexed sources",
		Inputs: []FieldSpec{
			{Name: "query", Type: TypeString, Required: true, Description: "Search query text"},
			{Name: "mode", Type: TypeString, Default: "hybrid", Description: "keyword, semantic, or hybrid"},
			{Name: "limit", Type: TypeNumber, Default: float64(10), Description: "Maximum results"},
			{Name: "repositories", Type: TypeList, Description: "Repository source names to search"},
			{Name: "directories", Type: TypeList, Description: "Directory source names to search"},
			{Name: "folder", Type: TypeString, Description: "Restrict to a folder prefix"},
			{Name: "extension", Type: TypeString, Description: "Restrict to a file extension"},
		},
		Outputs: []FieldSpec{
			{Name: "results", Type: TypeList, Description: "Result records with path, source, score, snippet"},
			{Name: "total", Type: TypeNumber},
			{Name: "degraded", Type: TypeBoolean},
		},
		Requires: []string{"search-engine"},
	}
}

func (s *SearchSkill) Execute(ctx context.Context, input map[string]any) (map[string]any, error) {
	input, err := ValidateInput("search", s.Info().Inputs, input)
	if err != nil {
		return nil, err
	}

	filter, err := s.buildFilter(ctx, input)
	if err != nil {
		return nil, &ExecutionError{SkillName: "search", Message: "resolve filter", Cause: err}
	}

	req := &search.Request{
		Query:  input["query"].(string),
		Mode:   search.Mode(input["mode"].(string)),
		Limit:  int(AsNumber(input["limit"])),
		Filter: filter,
	}
	resp, err := s.engine.Search(ctx, req)
	if err != nil {
		return nil, &ExecutionError{SkillName: "search", Message: "search failed", Cause: err}
	}

	results := make([]any, 0, len(resp.Results))
	for _, r := range resp.Results {
		results = append(results, map[string]any{
			"path":    r.RelPath,
			"source":  r.SourceName,
			"score":   r.Score,
			"snippet": r.Snippet,
		})
	}
	return map[string]any{
		"results":  results,
		"total":    float64(resp.Total),
		"degraded": resp.Degraded,
	}, nil
}

// buildFilter resolves repository and directory names to source references.
// Unknown names are ignored rather than failing the whole search.
func (s *SearchSkill) buildFilter(ctx context.Context, input map[string]any) (*index.Filter, error) {
	repos := AsStringList(input["repositories"])
	dirs := AsStringList(input["directories"])
	folder, _ := input["folder"].(string)
	extension, _ := input["extension"].(string)

	f := &index.Filter{FolderPrefix: folder}
	if extension != "" {
		f.Extensions = []string{extension}
	}

	if len(repos) > 0 || len(dirs) > 0 {
		sources, err := s.meta.ListSources(ctx, store.SourceFilter{})
		if err != nil {
			return nil, err
		}
		byName := make(map[string]*store.Source, len(sources))
		for _, src := range sources {
			byName[strings.ToLower(src.Name)] = src
		}
		for _, name := range repos {
			if src, ok := byName[strings.ToLower(name)]; ok && src.Type == store.SourceTypeRepository {
				f.Sources = append(f.Sources, index.SourceRef{Type: src.Type, ID: src.ID})
			}
		}
		for _, name := range dirs {
			if src, ok := byName[strings.ToLower(name)]; ok && src.Type == store.SourceTypeDirectory {
				f.Sources = append(f.Sources, index.SourceRef{Type: src.Type, ID: src.ID})
			}
		}
	}
	if f.IsZero() {
		return nil, nil
	}
	return f, nil
}
