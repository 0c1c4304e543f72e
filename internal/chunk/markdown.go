package chunk

import "bytes"

// headingSpans splits markdown content at ATX heading lines. Content before
// the first heading forms its own span. Fenced code blocks are opaque; a "#"
// inside a fence is not a heading.
func headingSpans(content []byte) []span {
	var spans []span

	start := 0
	offset := 0
	inFence := false
	for _, line := range bytes.SplitAfter(content, []byte("\n")) {
		trimmed := bytes.TrimLeft(line, " \t")
		if bytes.HasPrefix(trimmed, []byte("```")) || bytes.HasPrefix(trimmed, []byte("~~~")) {
			inFence = !inFence
		}
		if !inFence && offset > start && isHeading(trimmed) {
			spans = append(spans, span{start: start, end: offset})
			start = offset
		}
		offset += len(line)
	}
	if offset > start {
		spans = append(spans, span{start: start, end: offset})
	}
	return spans
}

// isHeading reports whether a line is an ATX heading: one to six '#' runes
// followed by a space.
func isHeading(line []byte) bool {
	n := 0
	for n < len(line) && line[n] == '#' {
		n++
	}
	return n >= 1 && n <= 6 && n < len(line) && (line[n] == ' ' || line[n] == '\t')
}
