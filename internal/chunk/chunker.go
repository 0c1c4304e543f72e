package chunk

import (
	"context"

	"github.com/seekspace/seekd/internal/store"
)

// Chunker splits file content into chunks by kind.
type Chunker struct {
	parser *codeParser
	opts   Options
}

// New creates a Chunker with the given options.
func New(opts Options) *Chunker {
	return &Chunker{
		parser: newCodeParser(),
		opts:   opts.withDefaults(),
	}
}

// Split chunks content according to its kind. For code kinds with a supported
// grammar, boundaries fall on function and class declarations; markdown
// splits on headings; everything else splits on paragraphs. The result is
// never empty for non-empty content.
func (c *Chunker) Split(ctx context.Context, docID, kind, extension string, content []byte) ([]*Chunk, error) {
	if len(content) == 0 {
		return nil, nil
	}

	var spans []span
	switch kind {
	case "code":
		if lang, ok := languageForExtension(extension); ok {
			parsed, err := c.parser.boundaries(ctx, lang, content)
			if err == nil && len(parsed) > 0 {
				spans = parsed
				break
			}
			// Parse failures fall through to paragraph boundaries.
		}
		spans = paragraphSpans(content)
	case "markdown":
		spans = headingSpans(content)
	default:
		spans = paragraphSpans(content)
	}

	return c.pack(docID, content, spans), nil
}

// Close releases parser resources.
func (c *Chunker) Close() {
	c.parser.close()
}

// pack merges boundary spans into chunks under the character budget, splits
// oversized spans, applies the overlap window, and assigns contiguous
// ordinals from zero.
func (c *Chunker) pack(docID string, content []byte, spans []span) []*Chunk {
	var chunks []*Chunk

	flush := func(start, end int) {
		if end <= start {
			return
		}
		// Overlap reaches back into the previous chunk.
		textStart := start - c.opts.Overlap
		if textStart < 0 || len(chunks) == 0 {
			textStart = start
		}
		chunks = append(chunks, &Chunk{
			DocID:     docID,
			Ordinal:   len(chunks),
			StartByte: start,
			EndByte:   end,
			Text:      string(content[textStart:end]),
		})
	}

	cur := -1 // current accumulation start, -1 when empty
	curEnd := 0
	for _, sp := range spans {
		size := sp.end - sp.start
		if size > c.opts.MaxChars {
			// Oversized span: flush accumulation, then hard-split.
			if cur >= 0 {
				flush(cur, curEnd)
				cur = -1
			}
			for off := sp.start; off < sp.end; off += c.opts.MaxChars {
				end := off + c.opts.MaxChars
				if end > sp.end {
					end = sp.end
				}
				flush(off, end)
			}
			continue
		}
		if cur >= 0 && sp.end-cur > c.opts.MaxChars {
			flush(cur, curEnd)
			cur = -1
		}
		if cur < 0 {
			cur = sp.start
		}
		curEnd = sp.end
	}
	if cur >= 0 {
		flush(cur, curEnd)
	}

	return chunks
}

// IDsFor returns the vector-store keys for a chunk set, in ordinal order.
func IDsFor(chunks []*Chunk) []string {
	ids := make([]string, len(chunks))
	for i, ch := range chunks {
		ids[i] = store.ChunkID(ch.DocID, ch.Ordinal)
	}
	return ids
}
