package skill

import (
	"sort"
	"sync"

	seekerrors "github.com/seekspace/seekd/internal/errors"
)

// Registry holds named skills. Registration happens at startup; lookups are
// concurrent.
type Registry struct {
	mu     sync.RWMutex
	skills map[string]Skill
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{skills: make(map[string]Skill)}
}

// Register adds a skill. Duplicate names conflict.
func (r *Registry) Register(s Skill) error {
	name := s.Info().Name
	if name == "" {
		return seekerrors.InvalidInput("skill name must not be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.skills[name]; exists {
		return seekerrors.Conflict("skill %q already registered", name)
	}
	r.skills[name] = s
	return nil
}

// Get returns the skill by name.
func (r *Registry) Get(name string) (Skill, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.skills[name]
	if !ok {
		return nil, seekerrors.NotFound("skill %q not registered", name)
	}
	return s, nil
}

// List returns all skill descriptions sorted by name.
func (r *Registry) List() []Info {
	r.mu.RLock()
	defer r.mu.RUnlock()

	infos := make([]Info, 0, len(r.skills))
	for _, s := range r.skills {
		infos = append(infos, s.Info())
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos
}
