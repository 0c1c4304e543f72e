package embed

import (
	"context"
	"log/slog"

	"github.com/seekspace/seekd/internal/config"
	seekerrors "github.com/seekspace/seekd/internal/errors"
)

// NewEmbedder creates the configured embedder. An unreachable Ollama host
// falls back to the static embedder with a warning so indexing still
// proceeds; searches then run keyword-only quality on the semantic arm
// rather than failing outright.
func NewEmbedder(ctx context.Context, cfg config.EmbedConfig) (Embedder, error) {
	switch cfg.Provider {
	case "", "ollama":
		e, err := NewOllamaEmbedder(ctx, OllamaConfig{
			Host:       cfg.OllamaHost,
			Model:      cfg.Model,
			Dimensions: cfg.Dimensions,
			BatchSize:  cfg.BatchSize,
		})
		if err == nil {
			return e, nil
		}
		slog.Warn("ollama embedder unavailable, falling back to static embeddings",
			slog.String("host", cfg.OllamaHost),
			slog.String("error", err.Error()))
		return NewStaticEmbedder(0), nil
	case "static":
		return NewStaticEmbedder(cfg.Dimensions), nil
	default:
		return nil, seekerrors.InvalidInput("unknown embedding provider: %s", cfg.Provider)
	}
}
