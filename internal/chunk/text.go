package chunk

// paragraphSpans splits content at blank-line boundaries. A blank-line run
// attaches to the preceding paragraph so spans tile the content exactly.
func paragraphSpans(content []byte) []span {
	var spans []span

	start := 0
	i := 0
	for i < len(content) {
		// Find end of current line.
		lineEnd := i
		for lineEnd < len(content) && content[lineEnd] != '\n' {
			lineEnd++
		}
		if lineEnd < len(content) {
			lineEnd++
		}

		if isBlankLine(content[i:lineEnd]) {
			// Consume the whole blank run.
			runEnd := lineEnd
			for runEnd < len(content) {
				next := runEnd
				for next < len(content) && content[next] != '\n' {
					next++
				}
				if next < len(content) {
					next++
				}
				if !isBlankLine(content[runEnd:next]) {
					break
				}
				runEnd = next
			}
			if runEnd > start {
				spans = append(spans, span{start: start, end: runEnd})
			}
			start = runEnd
			i = runEnd
			continue
		}
		i = lineEnd
	}
	if start < len(content) {
		spans = append(spans, span{start: start, end: len(content)})
	}
	return spans
}

func isBlankLine(line []byte) bool {
	for _, b := range line {
		if b != ' ' && b != '\t' && b != '\r' && b != '\n' {
			return false
		}
	}
	return true
}
