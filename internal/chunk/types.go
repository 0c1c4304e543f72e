// Package chunk splits file content into bounded slices for vector indexing.
//
// Boundaries are chosen at natural splits: function and class boundaries for
// recognized code kinds (via tree-sitter), heading boundaries for structured
// docs, paragraph boundaries otherwise. All strategies enforce a maximum
// chunk character budget, and successive chunks overlap by a small window to
// preserve context across boundaries.
package chunk

// Default chunking parameters.
const (
	DefaultMaxChars = 2048
	DefaultOverlap  = 256
)

// Chunk is one bounded slice of a file. Chunks for a doc_id are written and
// deleted as a single set; ordinals are contiguous from zero.
type Chunk struct {
	// DocID is the parent document identifier.
	DocID string

	// Ordinal is the chunk's position, contiguous from zero.
	Ordinal int

	// StartByte and EndByte are offsets into the original content
	// (EndByte exclusive).
	StartByte int
	EndByte   int

	// Text is the chunk content, possibly including the overlap window.
	Text string
}

// Options configures a chunking pass.
type Options struct {
	// MaxChars is the maximum chunk character budget.
	MaxChars int

	// Overlap is the window carried over between successive chunks.
	Overlap int
}

// withDefaults fills in zero options.
func (o Options) withDefaults() Options {
	if o.MaxChars <= 0 {
		o.MaxChars = DefaultMaxChars
	}
	if o.Overlap < 0 || o.Overlap >= o.MaxChars {
		o.Overlap = DefaultOverlap
	}
	return o
}

// span is an intermediate boundary-delimited region before budget packing.
type span struct {
	start int
	end   int
}
