// Package source presents repositories and ad-hoc directories through one
// uniform interface. A repository is a source whose root contains a
// version-control marker; this changes discovery defaults but not the
// downstream contract.
package source

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	seekerrors "github.com/seekspace/seekd/internal/errors"
	"github.com/seekspace/seekd/internal/store"
)

// RegisterOptions configures source registration.
type RegisterOptions struct {
	Name        string
	Priority    int
	Notes       string
	AutoReindex bool
}

// Registry manages source registration on top of the metadata store.
type Registry struct {
	meta store.MetadataStore
}

// NewRegistry creates a registry backed by the given metadata store.
func NewRegistry(meta store.MetadataStore) *Registry {
	return &Registry{meta: meta}
}

// Register adds a new source. The source type is detected from the root: a
// version-control marker makes it a repository, otherwise it is a plain
// directory. Fails with InvalidInput when the path does not exist or is not a
// directory, and with Conflict when the canonical path is already registered.
func (r *Registry) Register(ctx context.Context, path string, opts RegisterOptions) (*store.Source, error) {
	canonical := store.Canonicalize(path)

	info, err := os.Stat(canonical)
	if err != nil {
		return nil, seekerrors.InvalidInput("source path does not exist: %s", canonical)
	}
	if !info.IsDir() {
		return nil, seekerrors.InvalidInput("source path is not a directory: %s", canonical)
	}

	name := opts.Name
	if name == "" {
		name = filepath.Base(canonical)
	}

	// Overlapping registrations are permitted (intentional carve-outs), but
	// worth flagging since they can confuse filter configurations.
	if overlap := r.findOverlap(ctx, canonical); overlap != nil {
		slog.Warn("registering source overlapping an existing source",
			slog.String("path", canonical),
			slog.String("existing", overlap.Path))
	}

	src := &store.Source{
		Type:        detectType(canonical),
		Path:        canonical,
		Name:        name,
		Enabled:     true,
		Priority:    opts.Priority,
		AutoReindex: opts.AutoReindex,
		Notes:       opts.Notes,
	}
	return r.meta.AddSource(ctx, src)
}

// Get fetches a source by id.
func (r *Registry) Get(ctx context.Context, id int64) (*store.Source, error) {
	return r.meta.GetSource(ctx, id)
}

// List returns sources matching the filter.
func (r *Registry) List(ctx context.Context, filter store.SourceFilter) ([]*store.Source, error) {
	return r.meta.ListSources(ctx, filter)
}

// Update applies a partial update to a source's mutable fields.
func (r *Registry) Update(ctx context.Context, id int64, update store.SourceUpdate) (*store.Source, error) {
	return r.meta.UpdateSource(ctx, id, update)
}

// Remove deletes a source and its stats. Indexed documents remain in the two
// indexes until the next reindex or an explicit purge.
func (r *Registry) Remove(ctx context.Context, id int64) error {
	return r.meta.DeleteSource(ctx, id)
}

// findOverlap returns any registered source whose path is an ancestor or
// descendant of the candidate path.
func (r *Registry) findOverlap(ctx context.Context, canonical string) *store.Source {
	sources, err := r.meta.ListSources(ctx, store.SourceFilter{})
	if err != nil {
		return nil
	}
	for _, src := range sources {
		if isPathPrefix(src.Path, canonical) || isPathPrefix(canonical, src.Path) {
			return src
		}
	}
	return nil
}

// detectType classifies a root as repository or directory by the presence of
// a version-control marker.
func detectType(root string) store.SourceType {
	for _, marker := range []string{".git", ".hg", ".svn"} {
		if _, err := os.Stat(filepath.Join(root, marker)); err == nil {
			return store.SourceTypeRepository
		}
	}
	return store.SourceTypeDirectory
}

// isPathPrefix reports whether parent is a path-component prefix of child.
func isPathPrefix(parent, child string) bool {
	if parent == child {
		return true
	}
	if !strings.HasSuffix(parent, string(filepath.Separator)) {
		parent += string(filepath.Separator)
	}
	return strings.HasPrefix(child, parent)
}
