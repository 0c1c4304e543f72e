package llm

import (
	"context"
	"sync"

	"github.com/seekspace/seekd/internal/config"
	seekerrors "github.com/seekspace/seekd/internal/errors"
)

// Session holds the active provider and allows atomic switching at runtime.
// Skills read the provider through Current; a switch validates the new
// provider before installing it, so a failed switch leaves the old provider
// in place.
type Session struct {
	mu       sync.RWMutex
	provider Provider
}

// NewSession creates a session from configuration. A session may start with
// no provider; skills that need one fail with DEPENDENCY_UNAVAILABLE until a
// switch succeeds.
func NewSession(ctx context.Context, cfg config.LLMConfig) *Session {
	s := &Session{}
	if p, err := newProvider(cfg); err == nil {
		if err := p.ValidateCredentials(ctx); err == nil {
			s.provider = p
		}
	}
	return s
}

func newProvider(cfg config.LLMConfig) (Provider, error) {
	switch cfg.Provider {
	case "", "ollama":
		return NewOllamaProvider(cfg.Host, cfg.Model), nil
	default:
		return nil, seekerrors.InvalidInput("unknown llm provider: %s", cfg.Provider)
	}
}

// Current returns the active provider, or an error when none is configured.
func (s *Session) Current() (Provider, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.provider == nil {
		return nil, seekerrors.Newf(seekerrors.KindDependencyUnavailable, "no llm provider configured")
	}
	return s.provider, nil
}

// Switch validates and installs a new provider. On validation failure the
// previous provider stays active.
func (s *Session) Switch(ctx context.Context, cfg config.LLMConfig) error {
	p, err := newProvider(cfg)
	if err != nil {
		return err
	}
	if err := p.ValidateCredentials(ctx); err != nil {
		return err
	}

	s.mu.Lock()
	s.provider = p
	s.mu.Unlock()
	return nil
}

// Info describes the active provider for status surfaces.
type Info struct {
	Provider string `json:"provider"`
	Model    string `json:"model"`
	Ready    bool   `json:"ready"`
}

// Describe reports the session state.
func (s *Session) Describe() Info {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.provider == nil {
		return Info{Ready: false}
	}
	return Info{
		Provider: s.provider.Name(),
		Model:    s.provider.Model(),
		Ready:    true,
	}
}
