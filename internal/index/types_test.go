package index

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/seekspace/seekd/internal/store"
)

func chunkMeta(sourceType string, sourceID, relPath, ext string) map[string]string {
	return map[string]string{
		"source_type": sourceType,
		"source_id":   sourceID,
		"rel_path":    relPath,
		"extension":   ext,
	}
}

func TestFilterZeroMatchesEverything(t *testing.T) {
	var f *Filter
	assert.True(t, f.IsZero())
	assert.True(t, f.Matches(chunkMeta("repository", "1", "a/b.go", "go")))

	f = &Filter{}
	assert.True(t, f.IsZero())
	assert.True(t, f.Matches(chunkMeta("directory", "2", "notes.md", "md")))
}

func TestFilterSourceUnion(t *testing.T) {
	f := &Filter{Sources: []SourceRef{
		{Type: store.SourceTypeRepository, ID: 1},
		{Type: store.SourceTypeDirectory, ID: 3},
	}}

	assert.True(t, f.Matches(chunkMeta("repository", "1", "x.go", "go")))
	assert.True(t, f.Matches(chunkMeta("directory", "3", "x.md", "md")))
	assert.False(t, f.Matches(chunkMeta("repository", "2", "x.go", "go")))
	assert.False(t, f.Matches(chunkMeta("directory", "1", "x.go", "go")))
}

func TestFilterFolderPrefix(t *testing.T) {
	f := &Filter{FolderPrefix: "docs"}
	assert.True(t, f.Matches(chunkMeta("repository", "1", "docs/guide.md", "md")))
	assert.False(t, f.Matches(chunkMeta("repository", "1", "docserver/main.go", "go")))
	assert.False(t, f.Matches(chunkMeta("repository", "1", "readme.md", "md")))

	// A trailing slash is normalized away.
	f = &Filter{FolderPrefix: "docs/"}
	assert.True(t, f.Matches(chunkMeta("repository", "1", "docs/guide.md", "md")))
}

func TestFilterExtensions(t *testing.T) {
	f := &Filter{Extensions: []string{"go", ".MD"}}
	assert.True(t, f.Matches(chunkMeta("repository", "1", "x.go", "go")))
	assert.True(t, f.Matches(chunkMeta("repository", "1", "x.md", "md")))
	assert.False(t, f.Matches(chunkMeta("repository", "1", "x.py", "py")))
}

func TestFilterIntersection(t *testing.T) {
	f := &Filter{
		Sources:      []SourceRef{{Type: store.SourceTypeRepository, ID: 1}},
		FolderPrefix: "internal",
		Extensions:   []string{"go"},
	}
	assert.True(t, f.Matches(chunkMeta("repository", "1", "internal/a.go", "go")))
	assert.False(t, f.Matches(chunkMeta("repository", "1", "internal/a.md", "md")))
	assert.False(t, f.Matches(chunkMeta("repository", "1", "cmd/a.go", "go")))
	assert.False(t, f.Matches(chunkMeta("repository", "2", "internal/a.go", "go")))
}
