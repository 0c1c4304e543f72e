package scanner

import (
	"bytes"
	"path/filepath"
	"strings"
)

// codeExtensions maps file extensions to recognized code kinds.
var codeExtensions = map[string]bool{
	"go": true, "py": true, "js": true, "jsx": true, "ts": true, "tsx": true,
	"java": true, "c": true, "h": true, "cpp": true, "hpp": true, "cc": true,
	"rs": true, "rb": true, "php": true, "cs": true, "swift": true, "kt": true,
	"scala": true, "sh": true, "bash": true, "zsh": true, "sql": true,
	"proto": true, "lua": true, "zig": true, "ex": true, "exs": true,
}

// markdownExtensions maps extensions to structured documentation kinds.
var markdownExtensions = map[string]bool{
	"md": true, "markdown": true, "rst": true, "adoc": true,
}

// textExtensions are plain-text kinds indexed textually but not chunked by
// code-aware rules.
var textExtensions = map[string]bool{
	"txt": true, "text": true, "yaml": true, "yml": true, "json": true,
	"toml": true, "ini": true, "cfg": true, "conf": true, "env": true,
	"xml": true, "html": true, "css": true, "csv": true,
}

// Classify determines the file kind: extension first, then a small content
// sniff for ambiguous cases. Unknown kinds classify as text so they are still
// indexed, just not chunked by code-aware rules. Returns ("", false) for
// binary content.
func Classify(relPath string, sniff []byte) (kind string, ok bool) {
	if isBinary(sniff) {
		return "", false
	}

	ext := Extension(relPath)
	switch {
	case codeExtensions[ext]:
		return "code", true
	case markdownExtensions[ext]:
		return "markdown", true
	case textExtensions[ext]:
		return "text", true
	}

	// Extensionless files with a shebang are scripts.
	if ext == "" && bytes.HasPrefix(sniff, []byte("#!")) {
		return "code", true
	}

	return "text", true
}

// Extension returns the lowercased extension without the leading dot.
func Extension(path string) string {
	ext := filepath.Ext(path)
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// isBinary sniffs the first bytes for null bytes, the usual binary signal.
func isBinary(sniff []byte) bool {
	limit := len(sniff)
	if limit > 8000 {
		limit = 8000
	}
	return bytes.IndexByte(sniff[:limit], 0) >= 0
}
