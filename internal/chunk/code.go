package chunk

import (
	"context"
	"sort"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/typescript/typescript"

	seekerrors "github.com/seekspace/seekd/internal/errors"
)

// declarationNodes are the top-level node types treated as chunk boundaries,
// per grammar.
var declarationNodes = map[string]map[string]bool{
	"go": {
		"function_declaration": true,
		"method_declaration":   true,
		"type_declaration":     true,
		"const_declaration":    true,
		"var_declaration":      true,
		"import_declaration":   true,
	},
	"javascript": {
		"function_declaration":  true,
		"class_declaration":     true,
		"lexical_declaration":   true,
		"variable_declaration":  true,
		"export_statement":      true,
		"import_statement":      true,
		"expression_statement":  true,
	},
	"typescript": {
		"function_declaration":  true,
		"class_declaration":     true,
		"interface_declaration": true,
		"type_alias_declaration": true,
		"enum_declaration":      true,
		"lexical_declaration":   true,
		"variable_declaration":  true,
		"export_statement":      true,
		"import_statement":      true,
	},
	"python": {
		"function_definition":  true,
		"class_definition":     true,
		"decorated_definition": true,
		"import_statement":     true,
		"import_from_statement": true,
		"expression_statement": true,
	},
}

// languageForExtension maps a file extension to a supported grammar name.
func languageForExtension(ext string) (string, bool) {
	switch ext {
	case "go":
		return "go", true
	case "js", "jsx", "mjs":
		return "javascript", true
	case "ts", "tsx":
		return "typescript", true
	case "py":
		return "python", true
	}
	return "", false
}

// codeParser wraps a tree-sitter parser shared across files. Not safe for
// concurrent use; each Chunker owns one.
type codeParser struct {
	parser    *sitter.Parser
	languages map[string]*sitter.Language
}

func newCodeParser() *codeParser {
	return &codeParser{
		parser: sitter.NewParser(),
		languages: map[string]*sitter.Language{
			"go":         golang.GetLanguage(),
			"javascript": javascript.GetLanguage(),
			"typescript": typescript.GetLanguage(),
			"python":     python.GetLanguage(),
		},
	}
}

// boundaries parses content and returns top-level declaration spans in byte
// order. Gaps between declarations (comments, blank runs) attach to the
// following declaration so no bytes are dropped.
func (p *codeParser) boundaries(ctx context.Context, lang string, content []byte) ([]span, error) {
	language, ok := p.languages[lang]
	if !ok {
		return nil, seekerrors.Newf(seekerrors.KindInvalidInput, "unsupported grammar: %s", lang)
	}

	p.parser.SetLanguage(language)
	tree, err := p.parser.ParseCtx(ctx, nil, content)
	if err != nil {
		return nil, seekerrors.DependencyFailed("parse source", err)
	}
	defer tree.Close()

	root := tree.RootNode()
	wanted := declarationNodes[lang]

	var spans []span
	for i := 0; i < int(root.NamedChildCount()); i++ {
		node := root.NamedChild(i)
		if !wanted[node.Type()] {
			continue
		}
		spans = append(spans, span{start: int(node.StartByte()), end: int(node.EndByte())})
	}
	if len(spans) == 0 {
		return nil, nil
	}

	sort.Slice(spans, func(i, j int) bool { return spans[i].start < spans[j].start })

	// Stretch spans to cover inter-declaration gaps and file edges.
	spans[0].start = 0
	for i := 1; i < len(spans); i++ {
		spans[i].start = spans[i-1].end
	}
	spans[len(spans)-1].end = len(content)

	return spans, nil
}

func (p *codeParser) close() {
	p.parser.Close()
}
