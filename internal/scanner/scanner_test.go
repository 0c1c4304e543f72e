package scanner

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seekspace/seekd/internal/store"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func collect(t *testing.T, results <-chan ScanResult) (files map[string]*FileInfo, errs []error) {
	t.Helper()
	files = make(map[string]*FileInfo)
	for r := range results {
		if r.Err != nil {
			errs = append(errs, r.Err)
			continue
		}
		files[r.File.RelPath] = r.File
	}
	return files, errs
}

func scanRoot(t *testing.T, root string, opts Options) (map[string]*FileInfo, []error) {
	t.Helper()
	sc, err := New()
	require.NoError(t, err)
	if opts.Source == nil {
		opts.Source = &store.Source{ID: 1, Type: store.SourceTypeDirectory, Path: root}
	}
	results, err := sc.Scan(context.Background(), opts)
	require.NoError(t, err)
	return collect(t, results)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		path  string
		sniff string
		kind  string
		ok    bool
	}{
		{"main.go", "package main", "code", true},
		{"script.PY", "import os", "code", true},
		{"README.md", "# Title", "markdown", true},
		{"notes.txt", "plain", "text", true},
		{"config.yaml", "a: 1", "text", true},
		{"Makefile", "all:", "text", true},
		{"run", "#!/bin/sh\necho hi", "code", true},
		{"blob.bin", "ab\x00cd", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			kind, ok := Classify(tt.path, []byte(tt.sniff))
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.kind, kind)
		})
	}
}

func TestScanBasic(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.go", "package a")
	writeFile(t, root, "docs/b.md", "# b")

	files, errs := scanRoot(t, root, Options{})
	require.Empty(t, errs)
	require.Len(t, files, 2)
	assert.Equal(t, "code", files["a.go"].Kind)
	assert.Equal(t, "markdown", files["docs/b.md"].Kind)
	assert.Equal(t, "md", files["docs/b.md"].Extension)
}

func TestScanExcludePrunesDirectories(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.go", "package a")
	writeFile(t, root, "node_modules/lib/x.js", "x")
	writeFile(t, root, "sub/node_modules/y.js", "y")

	files, errs := scanRoot(t, root, Options{
		Exclude: []string{"node_modules/**", "**/node_modules/**"},
	})
	require.Empty(t, errs)
	require.Len(t, files, 1)
	assert.Contains(t, files, "a.go")
}

func TestScanIncludeRestricts(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.go", "package a")
	writeFile(t, root, "b.md", "# b")
	writeFile(t, root, "sub/c.go", "package c")

	files, errs := scanRoot(t, root, Options{
		Include: []string{"*.go", "**/*.go"},
	})
	require.Empty(t, errs)
	assert.Len(t, files, 2)
	assert.NotContains(t, files, "b.md")
}

func TestScanSkipsBinariesAndOversized(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.go", "package a")
	writeFile(t, root, "blob.dat", "a\x00b")
	writeFile(t, root, "big.txt", string(make([]byte, 128)))

	files, errs := scanRoot(t, root, Options{MaxFileSize: 64})
	require.Empty(t, errs)
	require.Len(t, files, 1)
	assert.Contains(t, files, "a.go")
}

func TestScanEmptyRootFails(t *testing.T) {
	files, errs := scanRoot(t, t.TempDir(), Options{})
	assert.Empty(t, files)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error(), "scan_failed")
}

func TestScanMissingRoot(t *testing.T) {
	sc, err := New()
	require.NoError(t, err)
	_, err = sc.Scan(context.Background(), Options{
		Source: &store.Source{ID: 1, Path: filepath.Join(t.TempDir(), "gone")},
	})
	require.Error(t, err)
}

func TestOwnerLongestPrefixWins(t *testing.T) {
	parent := &store.Source{ID: 1, Path: "/tmp/root"}
	child := &store.Source{ID: 2, Path: "/tmp/root/sub"}
	owner := NewOwner([]*store.Source{parent, child})

	assert.Equal(t, child.ID, owner.Resolve("/tmp/root/sub/x.md").ID)
	assert.Equal(t, parent.ID, owner.Resolve("/tmp/root/y.md").ID)
	assert.Nil(t, owner.Resolve("/tmp/elsewhere/z.md"))

	// Sibling prefix is not a path prefix.
	assert.Equal(t, parent.ID, owner.Resolve("/tmp/root/subway.md").ID)

	assert.True(t, owner.Owns("/tmp/root/sub/x.md", child))
	assert.False(t, owner.Owns("/tmp/root/sub/x.md", parent))
}

func TestScanHonorsOwnership(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "mine.go", "package a")
	writeFile(t, root, "sub/theirs.go", "package b")

	parent := &store.Source{ID: 1, Type: store.SourceTypeDirectory, Path: root}
	child := &store.Source{ID: 2, Type: store.SourceTypeDirectory, Path: filepath.Join(root, "sub")}
	owner := NewOwner([]*store.Source{parent, child})

	files, errs := scanRoot(t, root, Options{Source: parent, Owner: owner})
	require.Empty(t, errs)
	require.Len(t, files, 1)
	assert.Contains(t, files, "mine.go")

	childFiles, errs := scanRoot(t, filepath.Join(root, "sub"), Options{Source: child, Owner: owner})
	require.Empty(t, errs)
	require.Len(t, childFiles, 1)
	assert.Contains(t, childFiles, "theirs.go")
}
