package scanner

import (
	"context"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/gobwas/glob"
	lru "github.com/hashicorp/golang-lru/v2"

	seekerrors "github.com/seekspace/seekd/internal/errors"
)

// patternCacheSize bounds the compiled glob matcher cache.
const patternCacheSize = 256

// Scanner discovers indexable files under source roots.
type Scanner struct {
	// patternCache caches compiled glob matchers by pattern string.
	patternCache *lru.Cache[string, glob.Glob]
}

// New creates a Scanner.
func New() (*Scanner, error) {
	cache, err := lru.New[string, glob.Glob](patternCacheSize)
	if err != nil {
		return nil, seekerrors.Internal("create pattern cache", err)
	}
	return &Scanner{patternCache: cache}, nil
}

// Scan traverses the source root depth-first and streams observed files. The
// returned channel is closed when the pass completes. The sequence is finite
// and not restartable; consumers complete or abandon one pass before starting
// another for the same source.
//
// Per-file I/O errors are logged and skipped. A pass that observes zero files
// ends with a scan_failed error on the stream.
func (s *Scanner) Scan(ctx context.Context, opts Options) (<-chan ScanResult, error) {
	if opts.Source == nil {
		return nil, seekerrors.InvalidInput("scan requires a source")
	}

	root := opts.Source.Path
	info, err := os.Stat(root)
	if err != nil {
		return nil, seekerrors.Newf(seekerrors.KindNotFound, "source root missing: %s", root)
	}
	if !info.IsDir() {
		return nil, seekerrors.InvalidInput("source root is not a directory: %s", root)
	}

	if opts.MaxFileSize <= 0 {
		opts.MaxFileSize = DefaultMaxFileSize
	}

	include, err := s.compile(opts.Include)
	if err != nil {
		return nil, err
	}
	exclude, err := s.compile(opts.Exclude)
	if err != nil {
		return nil, err
	}

	results := make(chan ScanResult, 64)
	go func() {
		defer close(results)
		s.walk(ctx, root, opts, include, exclude, results)
	}()
	return results, nil
}

func (s *Scanner) walk(ctx context.Context, root string, opts Options, include, exclude []glob.Glob, results chan<- ScanResult) {
	observed := 0

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if walkErr != nil {
			slog.Debug("scan skipping inaccessible entry",
				slog.String("path", path), slog.String("error", walkErr.Error()))
			return nil
		}

		relPath, err := filepath.Rel(root, path)
		if err != nil || relPath == "." {
			return nil
		}
		relPath = filepath.ToSlash(relPath)

		if d.IsDir() {
			// Prune excluded directories; do not enter them.
			if matchAny(exclude, relPath) || matchAny(exclude, relPath+"/") {
				return filepath.SkipDir
			}
			return nil
		}

		// Symlinks are followed only when the target resolves under the
		// source root; anything else risks cycles or escape.
		if d.Type()&fs.ModeSymlink != 0 {
			target, err := filepath.EvalSymlinks(path)
			if err != nil || !hasPathPrefix(target, root) {
				return nil
			}
		}

		if matchAny(exclude, relPath) {
			return nil
		}
		if len(include) > 0 && !matchAny(include, relPath) {
			return nil
		}

		// Overlapping sources: the longest-prefix owner wins.
		if opts.Owner != nil && !opts.Owner.Owns(path, opts.Source) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			slog.Debug("scan skipping unstatable file",
				slog.String("path", path), slog.String("error", err.Error()))
			return nil
		}
		if info.Size() > opts.MaxFileSize {
			return nil
		}
		if !opts.MtimeFloor.IsZero() && info.ModTime().Before(opts.MtimeFloor) {
			return nil
		}

		sniff, err := sniffFile(path)
		if err != nil {
			slog.Debug("scan skipping unreadable file",
				slog.String("path", path), slog.String("error", err.Error()))
			return nil
		}
		kind, ok := Classify(relPath, sniff)
		if !ok {
			return nil
		}

		file := &FileInfo{
			AbsPath:   path,
			RelPath:   relPath,
			Size:      info.Size(),
			ModTime:   info.ModTime(),
			Extension: Extension(relPath),
			Kind:      kind,
		}

		select {
		case results <- ScanResult{File: file}:
			observed++
		case <-ctx.Done():
			return ctx.Err()
		}
		return nil
	})

	if err != nil && err != context.Canceled {
		sendResult(ctx, results, ScanResult{Err: seekerrors.Transient("scan traversal failed", err)})
		return
	}
	if observed == 0 && err == nil {
		sendResult(ctx, results, ScanResult{
			Err: seekerrors.Newf(seekerrors.KindTransient, "scan_failed: no files observed under %s", root),
		})
	}
}

// compile turns patterns into glob matchers with ** semantics, caching
// compiled matchers across passes.
func (s *Scanner) compile(patterns []string) ([]glob.Glob, error) {
	matchers := make([]glob.Glob, 0, len(patterns))
	for _, p := range patterns {
		if m, ok := s.patternCache.Get(p); ok {
			matchers = append(matchers, m)
			continue
		}
		m, err := glob.Compile(p, '/')
		if err != nil {
			return nil, seekerrors.InvalidInput("invalid glob pattern %q: %v", p, err)
		}
		s.patternCache.Add(p, m)
		matchers = append(matchers, m)
	}
	return matchers, nil
}

func matchAny(matchers []glob.Glob, path string) bool {
	for _, m := range matchers {
		if m.Match(path) {
			return true
		}
	}
	return false
}

// sniffFile reads the first bytes of a file for content classification.
func sniffFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	buf := make([]byte, 512)
	n, err := f.Read(buf)
	if err != nil && err != io.EOF {
		return nil, err
	}
	return buf[:n], nil
}

func sendResult(ctx context.Context, results chan<- ScanResult, r ScanResult) {
	select {
	case results <- r:
	case <-ctx.Done():
	}
}
