package extract

import (
	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/jmylchreest/codeindex/pkg/grammar"
)

// File runs the full grammar-parse-then-extract pipeline for one file's
// content under a given language tag. A nil *tree_sitter.Tree (malformed
// or empty input) yields an empty Result rather than an error, per the
// extraction-never-aborts-indexing rule (§4.3 failure semantics).
func File(loader *grammar.Loader, tag string, content []byte, maxNestedStructDepth int) (Result, error) {
	lang, err := loader.Grammar(tag)
	if err != nil {
		return Result{}, err
	}

	parser := tree_sitter.NewParser()
	defer parser.Close()
	if err := parser.SetLanguage(lang); err != nil {
		return Result{}, err
	}

	tree := parser.Parse(content, nil)
	if tree == nil {
		return Result{}, nil
	}
	defer tree.Close()

	ex := newExtractor(tag, maxNestedStructDepth)
	if ex == nil {
		return Result{}, nil
	}
	return ex.Extract(tree.RootNode(), content), nil
}

// languageExtractor is satisfied by every per-language extractor's Extract
// method; each type also implements Extractor for the generic walk.
type languageExtractor interface {
	Extract(root *tree_sitter.Node, content []byte) Result
}

func newExtractor(tag string, maxNestedStructDepth int) languageExtractor {
	switch tag {
	case "go":
		return NewGoExtractor(maxNestedStructDepth)
	case "ts", "tsx", "js", "jsx":
		return NewEcmaExtractor(tag)
	case "python":
		return NewPythonExtractor()
	case "rust":
		return NewRustExtractor()
	case "java":
		return NewJavaExtractor()
	case "html":
		return NewHTMLExtractor()
	default:
		return nil
	}
}
