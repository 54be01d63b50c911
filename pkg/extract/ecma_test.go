package extract

import (
	"testing"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_javascript "github.com/tree-sitter/tree-sitter-javascript/bindings/go"
	tree_sitter_typescript "github.com/tree-sitter/tree-sitter-typescript/bindings/go"
)

func parseTS(t *testing.T, src string) (*tree_sitter.Node, []byte) {
	t.Helper()
	parser := tree_sitter.NewParser()
	t.Cleanup(parser.Close)
	lang := tree_sitter.NewLanguage(tree_sitter_typescript.LanguageTypescript())
	if err := parser.SetLanguage(lang); err != nil {
		t.Fatalf("set language: %v", err)
	}
	content := []byte(src)
	tree := parser.Parse(content, nil)
	if tree == nil {
		t.Fatal("parse returned nil tree")
	}
	t.Cleanup(tree.Close)
	return tree.RootNode(), content
}

func parseJS(t *testing.T, src string) (*tree_sitter.Node, []byte) {
	t.Helper()
	parser := tree_sitter.NewParser()
	t.Cleanup(parser.Close)
	lang := tree_sitter.NewLanguage(tree_sitter_javascript.Language())
	if err := parser.SetLanguage(lang); err != nil {
		t.Fatalf("set language: %v", err)
	}
	content := []byte(src)
	tree := parser.Parse(content, nil)
	if tree == nil {
		t.Fatal("parse returned nil tree")
	}
	t.Cleanup(tree.Close)
	return tree.RootNode(), content
}

// TestEcmaExtractorExportedClassDoesNotExportMembers covers the literal
// scenario: an exported class's own members are not exported just because
// the class itself is, since a method/field's immediate parent is the
// class body, not the export statement.
func TestEcmaExtractorExportedClassDoesNotExportMembers(t *testing.T) {
	src := `export class Calculator {
	add(v: number) { return v; }
	private x = 0;
}
`
	root, content := parseTS(t, src)
	result := NewEcmaExtractor("ts").Extract(root, content)

	cls := findSymbol(result, "Calculator")
	if cls == nil {
		t.Fatalf("expected symbol Calculator, got %+v", result.Symbols)
	}
	if !cls.Exported {
		t.Error("Calculator: expected Exported=true")
	}

	method := findSymbol(result, "Calculator.add")
	if method == nil {
		t.Fatalf("expected symbol Calculator.add, got %+v", result.Symbols)
	}
	if method.Exported {
		t.Error("Calculator.add: expected Exported=false, a class's export does not export its members")
	}

	field := findSymbol(result, "Calculator.x")
	if field == nil {
		t.Fatalf("expected symbol Calculator.x, got %+v", result.Symbols)
	}
	if field.Exported {
		t.Error("Calculator.x: expected Exported=false")
	}
}

func TestEcmaExtractorExportedFunction(t *testing.T) {
	src := `export function helper() { return 1; }
function internal() { return 2; }
`
	root, content := parseJS(t, src)
	result := NewEcmaExtractor("js").Extract(root, content)

	helper := findSymbol(result, "helper")
	if helper == nil || !helper.Exported {
		t.Errorf("helper: expected an exported function symbol, got %+v", helper)
	}

	internal := findSymbol(result, "internal")
	if internal == nil {
		t.Fatalf("expected symbol internal, got %+v", result.Symbols)
	}
	if internal.Exported {
		t.Error("internal: expected Exported=false")
	}
}

func TestEcmaExtractorInterfaceOnlyInTypeScript(t *testing.T) {
	src := `export interface Shape {
	area(): number;
}
`
	root, content := parseTS(t, src)
	result := NewEcmaExtractor("ts").Extract(root, content)

	iface := findSymbol(result, "Shape")
	if iface == nil {
		t.Fatalf("expected symbol Shape, got %+v", result.Symbols)
	}
	if iface.Kind != KindInterface || !iface.Exported {
		t.Errorf("Shape: kind=%s exported=%v, want interface/true", iface.Kind, iface.Exported)
	}
}

func TestEcmaExtractorCallRecordsCalleeName(t *testing.T) {
	src := `function caller() {
	helper();
}
function helper() {}
`
	root, content := parseJS(t, src)
	result := NewEcmaExtractor("js").Extract(root, content)

	found := false
	for _, c := range result.Calls {
		if c.CalleeName == "helper" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a call to helper, calls=%+v", result.Calls)
	}
}
