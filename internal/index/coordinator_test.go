package index

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seekspace/seekd/internal/config"
	"github.com/seekspace/seekd/internal/embed"
	"github.com/seekspace/seekd/internal/scanner"
	"github.com/seekspace/seekd/internal/store"
)

type coordinatorFixture struct {
	meta    store.MetadataStore
	coord   *Coordinator
	lexical *LexicalIndex
	vector  *VectorStore
	root    string
	src     *store.Source
}

func newCoordinatorFixture(t *testing.T) *coordinatorFixture {
	t.Helper()
	ctx := context.Background()

	dataDir := t.TempDir()
	meta, err := store.Open(filepath.Join(dataDir, "seekd.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = meta.Close() })

	lexical, err := NewLexicalIndex("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = lexical.Close() })

	embedder := embed.NewStaticEmbedder(64)
	vector, err := NewVectorStore("", embedder)
	require.NoError(t, err)
	t.Cleanup(func() { _ = vector.Close() })

	sc, err := scanner.New()
	require.NoError(t, err)

	root := t.TempDir()
	src, err := meta.AddSource(ctx, &store.Source{
		Type:    store.SourceTypeDirectory,
		Path:    root,
		Name:    "fixture",
		Enabled: true,
	})
	require.NoError(t, err)

	cfg := config.DefaultConfig().Index
	coord := NewCoordinator(meta, sc, embedder, lexical, vector, cfg, nil)
	t.Cleanup(coord.Close)

	return &coordinatorFixture{
		meta:    meta,
		coord:   coord,
		lexical: lexical,
		vector:  vector,
		root:    root,
		src:     src,
	}
}

func (f *coordinatorFixture) writeFile(t *testing.T, relPath, content string) {
	t.Helper()
	path := filepath.Join(f.root, relPath)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestCoordinatorFullPass(t *testing.T) {
	f := newCoordinatorFixture(t)
	ctx := context.Background()

	f.writeFile(t, "main.go", "package main\n\nfunc main() { startServer() }\n")
	f.writeFile(t, "docs/guide.md", "# Guide\n\nHow to start the server.\n")

	outcome, err := f.coord.IndexSource(ctx, f.src, true)
	require.NoError(t, err)
	require.True(t, outcome.Success)
	assert.Equal(t, int64(2), outcome.FilesIndexed)

	count, err := f.lexical.Count()
	require.NoError(t, err)
	assert.Equal(t, uint64(2), count)
	assert.Greater(t, f.vector.Count(), 0)

	hits, err := f.lexical.Search(ctx, "start server", nil, 10)
	require.NoError(t, err)
	assert.NotEmpty(t, hits)
}

func TestCoordinatorIncrementalSkipsUnchanged(t *testing.T) {
	f := newCoordinatorFixture(t)
	ctx := context.Background()

	f.writeFile(t, "a.go", "package a\n\nfunc A() {}\n")
	f.writeFile(t, "b.go", "package a\n\nfunc B() {}\n")

	outcome, err := f.coord.IndexSource(ctx, f.src, true)
	require.NoError(t, err)
	assert.Equal(t, int64(2), outcome.FilesIndexed)

	// Unchanged files are skipped on the next incremental pass.
	outcome, err = f.coord.IndexSource(ctx, f.src, false)
	require.NoError(t, err)
	assert.Equal(t, int64(0), outcome.FilesIndexed)

	// A content change with a new mtime is picked up.
	path := filepath.Join(f.root, "a.go")
	require.NoError(t, os.WriteFile(path, []byte("package a\n\nfunc A2() {}\n"), 0o644))
	future := time.Now().Add(2 * time.Second)
	require.NoError(t, os.Chtimes(path, future, future))

	outcome, err = f.coord.IndexSource(ctx, f.src, false)
	require.NoError(t, err)
	assert.Equal(t, int64(1), outcome.FilesIndexed)
}

func TestCoordinatorRemovesMissingFiles(t *testing.T) {
	f := newCoordinatorFixture(t)
	ctx := context.Background()

	f.writeFile(t, "keep.go", "package a\n\nfunc Keep() {}\n")
	f.writeFile(t, "gone.go", "package a\n\nfunc Gone() {}\n")

	_, err := f.coord.IndexSource(ctx, f.src, true)
	require.NoError(t, err)

	require.NoError(t, os.Remove(filepath.Join(f.root, "gone.go")))

	outcome, err := f.coord.IndexSource(ctx, f.src, false)
	require.NoError(t, err)
	require.True(t, outcome.Success)

	count, err := f.lexical.Count()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), count)

	files, err := f.meta.FilesBySource(ctx, f.src.ID)
	require.NoError(t, err)
	assert.Len(t, files, 1)
}

func TestCoordinatorFailedScanPreservesState(t *testing.T) {
	f := newCoordinatorFixture(t)
	ctx := context.Background()

	f.writeFile(t, "a.go", "package a\n\nfunc A() {}\n")
	_, err := f.coord.IndexSource(ctx, f.src, true)
	require.NoError(t, err)

	// Removing the root makes the scan fail; prior records must survive.
	require.NoError(t, os.RemoveAll(f.root))

	_, err = f.coord.IndexSource(ctx, f.src, false)
	require.Error(t, err)

	files, err := f.meta.FilesBySource(ctx, f.src.ID)
	require.NoError(t, err)
	assert.Len(t, files, 1)

	count, err := f.lexical.Count()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), count)
}

func TestCoordinatorFailedBatchLeavesFilesUncommitted(t *testing.T) {
	f := newCoordinatorFixture(t)
	ctx := context.Background()

	f.writeFile(t, "a.go", "package a\n\nfunc A() {}\n")
	f.writeFile(t, "b.go", "package a\n\nfunc B() {}\n")

	// A closed lexical index fails every batch write. File records must not
	// be committed, so the next pass reindexes the files.
	require.NoError(t, f.lexical.Close())

	outcome, err := f.coord.IndexSource(ctx, f.src, true)
	require.Error(t, err)
	require.NotNil(t, outcome)
	assert.False(t, outcome.Success)
	assert.Equal(t, "index_failed", outcome.Reason)

	files, err := f.meta.FilesBySource(ctx, f.src.ID)
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestCoordinatorRemoveSourcePurge(t *testing.T) {
	f := newCoordinatorFixture(t)
	ctx := context.Background()

	f.writeFile(t, "a.go", "package a\n\nfunc A() {}\n")
	_, err := f.coord.IndexSource(ctx, f.src, true)
	require.NoError(t, err)

	require.NoError(t, f.coord.RemoveSource(ctx, f.src.ID, true))

	count, err := f.lexical.Count()
	require.NoError(t, err)
	assert.Equal(t, uint64(0), count)
	assert.Equal(t, 0, f.vector.Count())

	_, err = f.meta.GetSource(ctx, f.src.ID)
	require.Error(t, err)
}

func TestChangeDetector(t *testing.T) {
	d := &ChangeDetector{}
	now := time.Now()

	file := &scanner.FileInfo{AbsPath: "/x/a.go", Size: 10, ModTime: now}

	changed, reason := d.Changed(nil, file)
	assert.True(t, changed)
	assert.Equal(t, "new", reason)

	rec := &store.FileRecord{Size: 10, ModTime: now}
	changed, _ = d.Changed(rec, file)
	assert.False(t, changed)

	changed, reason = d.Changed(&store.FileRecord{Size: 11, ModTime: now}, file)
	assert.True(t, changed)
	assert.Equal(t, "size", reason)

	changed, reason = d.Changed(&store.FileRecord{Size: 10, ModTime: now.Add(time.Second)}, file)
	assert.True(t, changed)
	assert.Equal(t, "mtime", reason)
}

func TestChangeDetectorHashVerification(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.go")
	require.NoError(t, os.WriteFile(path, []byte("content"), 0o644))

	info, err := os.Stat(path)
	require.NoError(t, err)

	file := &scanner.FileInfo{AbsPath: path, Size: info.Size(), ModTime: info.ModTime()}
	rec := &store.FileRecord{
		Size:    info.Size(),
		ModTime: info.ModTime(),
		Hash:    HashBytes([]byte("different content")),
	}

	d := &ChangeDetector{VerifyHash: true}
	changed, reason := d.Changed(rec, file)
	assert.True(t, changed)
	assert.Equal(t, "hash", reason)

	rec.Hash = HashBytes([]byte("content"))
	changed, _ = d.Changed(rec, file)
	assert.False(t, changed)
}
