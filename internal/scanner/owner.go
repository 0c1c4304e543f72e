package scanner

import (
	"path/filepath"
	"sort"
	"strings"

	"github.com/seekspace/seekd/internal/store"
)

// Owner decides which source owns a file when registered roots overlap: the
// source whose root is the longest path prefix wins. This is the single place
// where ownership is decided; downstream components assume exactly one
// (source_type, source_id) per file.
type Owner struct {
	// sources sorted by descending root length so the first prefix match is
	// the longest.
	sources []*store.Source
}

// NewOwner builds an ownership resolver over the given sources.
func NewOwner(sources []*store.Source) *Owner {
	sorted := make([]*store.Source, len(sources))
	copy(sorted, sources)
	sort.Slice(sorted, func(i, j int) bool {
		return len(sorted[i].Path) > len(sorted[j].Path)
	})
	return &Owner{sources: sorted}
}

// Resolve returns the owning source for an absolute path, or nil when no
// registered root is a prefix of the path.
func (o *Owner) Resolve(absPath string) *store.Source {
	for _, src := range o.sources {
		if hasPathPrefix(absPath, src.Path) {
			return src
		}
	}
	return nil
}

// Owns reports whether src is the owner of absPath.
func (o *Owner) Owns(absPath string, src *store.Source) bool {
	owner := o.Resolve(absPath)
	return owner != nil && owner.ID == src.ID
}

func hasPathPrefix(path, root string) bool {
	if path == root {
		return true
	}
	if !strings.HasSuffix(root, string(filepath.Separator)) {
		root += string(filepath.Separator)
	}
	return strings.HasPrefix(path, root)
}
