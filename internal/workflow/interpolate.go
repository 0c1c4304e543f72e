package workflow

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	seekerrors "github.com/seekspace/seekd/internal/errors"
)

// refPattern matches {{ ... }} interpolation references.
var refPattern = regexp.MustCompile(`\{\{\s*([^{}]+?)\s*\}\}`)

// scope is the value environment a reference resolves against: workflow
// parameters plus prior step outputs keyed by step id.
type scope struct {
	params  map[string]any
	outputs map[string]map[string]any

	// absent marks steps that failed under on_error continue. References
	// to them fail with a distinct message.
	absent map[string]bool
}

// render resolves all references in a step input map. A string that is
// exactly one reference substitutes the referenced value with its type
// preserved; a string with embedded references coerces each to text. Lists
// and records render recursively.
func (s *scope) render(input map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(input))
	for key, val := range input {
		rendered, err := s.renderValue(val)
		if err != nil {
			return nil, err
		}
		out[key] = rendered
	}
	return out, nil
}

func (s *scope) renderValue(val any) (any, error) {
	switch v := val.(type) {
	case string:
		return s.renderString(v)
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			rendered, err := s.renderValue(item)
			if err != nil {
				return nil, err
			}
			out[i] = rendered
		}
		return out, nil
	case map[string]any:
		return s.render(v)
	default:
		return val, nil
	}
}

func (s *scope) renderString(text string) (any, error) {
	matches := refPattern.FindAllStringSubmatchIndex(text, -1)
	if len(matches) == 0 {
		return text, nil
	}

	// A lone reference keeps the referenced value's type.
	if len(matches) == 1 && matches[0][0] == 0 && matches[0][1] == len(text) {
		ref := strings.TrimSpace(text[matches[0][2]:matches[0][3]])
		return s.resolve(ref)
	}

	var b strings.Builder
	last := 0
	for _, m := range matches {
		b.WriteString(text[last:m[0]])
		ref := strings.TrimSpace(text[m[2]:m[3]])
		val, err := s.resolve(ref)
		if err != nil {
			return nil, err
		}
		b.WriteString(coerceString(val))
		last = m[1]
	}
	b.WriteString(text[last:])
	return b.String(), nil
}

// resolve evaluates one reference: a bare parameter name, or a step id
// followed by a field/index path.
func (s *scope) resolve(ref string) (any, error) {
	path, err := parsePath(ref)
	if err != nil {
		return nil, err
	}

	head := path[0].field
	if len(path) == 1 {
		if val, ok := s.params[head]; ok {
			return val, nil
		}
	}
	if output, ok := s.outputs[head]; ok {
		return evalPath(output, path[1:], ref)
	}
	if s.absent[head] {
		return nil, seekerrors.InvalidInput("reference %q points at a failed step", ref)
	}
	if _, ok := s.params[head]; ok {
		return evalPath(s.params[head], path[1:], ref)
	}
	return nil, seekerrors.InvalidInput("unresolved reference %q", ref)
}

// segment is one path element: a field access or an index access.
type segment struct {
	field string
	index int
	isIdx bool
}

// parsePath parses dot notation with [n] indexing, e.g.
// "find.results[0].path".
func parsePath(ref string) ([]segment, error) {
	if ref == "" {
		return nil, seekerrors.InvalidInput("empty interpolation reference")
	}

	var segments []segment
	for _, part := range strings.Split(ref, ".") {
		for part != "" {
			open := strings.IndexByte(part, '[')
			if open == -1 {
				segments = append(segments, segment{field: part})
				break
			}
			if open > 0 {
				segments = append(segments, segment{field: part[:open]})
			}
			closing := strings.IndexByte(part, ']')
			if closing < open {
				return nil, seekerrors.InvalidInput("malformed index in reference %q", ref)
			}
			idx, err := strconv.Atoi(part[open+1 : closing])
			if err != nil || idx < 0 {
				return nil, seekerrors.InvalidInput("malformed index in reference %q", ref)
			}
			segments = append(segments, segment{index: idx, isIdx: true})
			part = part[closing+1:]
		}
	}
	if len(segments) == 0 || segments[0].isIdx {
		return nil, seekerrors.InvalidInput("reference %q must start with a name", ref)
	}
	return segments, nil
}

// evalPath walks the remaining path over a value.
func evalPath(val any, path []segment, ref string) (any, error) {
	for _, seg := range path {
		if seg.isIdx {
			list, ok := val.([]any)
			if !ok {
				return nil, seekerrors.InvalidInput("reference %q indexes a non-list", ref)
			}
			if seg.index >= len(list) {
				return nil, seekerrors.InvalidInput("reference %q index %d out of range", ref, seg.index)
			}
			val = list[seg.index]
			continue
		}
		record, ok := val.(map[string]any)
		if !ok {
			return nil, seekerrors.InvalidInput("reference %q accesses a field of a non-record", ref)
		}
		field, ok := record[seg.field]
		if !ok {
			return nil, seekerrors.InvalidInput("reference %q: field %q not present", ref, seg.field)
		}
		val = field
	}
	return val, nil
}

// coerceString renders a value as text for embedded interpolation.
func coerceString(val any) string {
	switch v := val.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// references extracts every {{ ... }} reference in a step input, for
// validation ahead of execution.
func references(input map[string]any) []string {
	var refs []string
	var walk func(val any)
	walk = func(val any) {
		switch v := val.(type) {
		case string:
			for _, m := range refPattern.FindAllStringSubmatch(v, -1) {
				refs = append(refs, strings.TrimSpace(m[1]))
			}
		case []any:
			for _, item := range v {
				walk(item)
			}
		case map[string]any:
			for _, item := range v {
				walk(item)
			}
		}
	}
	walk(input)
	return refs
}
