package index

import (
	"regexp"
	"strings"
	"unicode"
)

// tokenRegex matches alphanumeric runs including underscores.
var tokenRegex = regexp.MustCompile(`[a-zA-Z0-9_]+`)

// codeStopWords are identifiers too common in source code to carry signal.
var codeStopWords = map[string]struct{}{
	"the": {}, "and": {}, "for": {}, "var": {}, "func": {}, "return": {},
	"if": {}, "else": {}, "nil": {}, "new": {}, "this": {}, "self": {},
	"true": {}, "false": {}, "null": {}, "void": {}, "int": {}, "str": {},
}

// TokenizeCode splits text with code-aware rules: camelCase, PascalCase, and
// snake_case identifiers split into their parts, everything lowercased, and
// tokens shorter than two characters dropped.
func TokenizeCode(text string) []string {
	var tokens []string
	for _, word := range tokenRegex.FindAllString(text, -1) {
		for _, t := range splitCodeToken(word) {
			lower := strings.ToLower(t)
			if len(lower) >= 2 {
				tokens = append(tokens, lower)
			}
		}
	}
	return tokens
}

// splitCodeToken splits snake_case first, then camelCase within each part.
func splitCodeToken(token string) []string {
	if strings.Contains(token, "_") {
		var result []string
		for _, part := range strings.Split(token, "_") {
			if part != "" {
				result = append(result, splitCamelCase(part)...)
			}
		}
		return result
	}
	return splitCamelCase(token)
}

// splitCamelCase splits camelCase and PascalCase, keeping acronym runs
// together: "parseHTTPRequest" yields ["parse", "HTTP", "Request"].
func splitCamelCase(s string) []string {
	if s == "" {
		return nil
	}

	var result []string
	var current strings.Builder

	runes := []rune(s)
	for i, r := range runes {
		if i > 0 && unicode.IsUpper(r) {
			prevIsLower := unicode.IsLower(runes[i-1])
			nextIsLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if prevIsLower || nextIsLower {
				if current.Len() > 0 {
					result = append(result, current.String())
					current.Reset()
				}
			}
		}
		current.WriteRune(r)
	}
	if current.Len() > 0 {
		result = append(result, current.String())
	}
	return result
}
