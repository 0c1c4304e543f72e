package source

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	seekerrors "github.com/seekspace/seekd/internal/errors"
	"github.com/seekspace/seekd/internal/store"
)

// DirEntry is one node in a discovery tree, used by UI tree pickers.
type DirEntry struct {
	Name         string      `json:"name"`
	Path         string      `json:"path"`
	IsRepository bool        `json:"is_repository"`
	Children     []*DirEntry `json:"children,omitempty"`
}

// MaxDiscoveryDepth bounds discovery recursion.
const MaxDiscoveryDepth = 4

// Discover enumerates subdirectories of root to a bounded depth. It is
// read-only and never mutates the registry. Hidden directories and common
// dependency directories are skipped.
func Discover(root string, maxDepth int) (*DirEntry, error) {
	if maxDepth <= 0 || maxDepth > MaxDiscoveryDepth {
		maxDepth = MaxDiscoveryDepth
	}

	canonical := root
	if abs, err := filepath.Abs(root); err == nil {
		canonical = abs
	}

	info, err := os.Stat(canonical)
	if err != nil {
		return nil, seekerrors.InvalidInput("discovery path does not exist: %s", canonical)
	}
	if !info.IsDir() {
		return nil, seekerrors.InvalidInput("discovery path is not a directory: %s", canonical)
	}

	entry := &DirEntry{
		Name:         filepath.Base(canonical),
		Path:         canonical,
		IsRepository: detectType(canonical) == store.SourceTypeRepository,
	}
	entry.Children = discoverChildren(canonical, maxDepth-1)
	return entry, nil
}

func discoverChildren(dir string, depth int) []*DirEntry {
	if depth < 0 {
		return nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		// Unreadable directories are simply absent from the tree.
		return nil
	}

	var children []*DirEntry
	for _, e := range entries {
		if !e.IsDir() || skipDiscoveryDir(e.Name()) {
			continue
		}
		path := filepath.Join(dir, e.Name())
		child := &DirEntry{
			Name:         e.Name(),
			Path:         path,
			IsRepository: detectType(path) == store.SourceTypeRepository,
		}
		if depth > 0 {
			child.Children = discoverChildren(path, depth-1)
		}
		children = append(children, child)
	}

	sort.Slice(children, func(i, j int) bool { return children[i].Name < children[j].Name })
	return children
}

func skipDiscoveryDir(name string) bool {
	if strings.HasPrefix(name, ".") {
		return true
	}
	switch name {
	case "node_modules", "vendor", "dist", "build", "__pycache__", "target":
		return true
	}
	return false
}
