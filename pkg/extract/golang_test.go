package extract

import (
	"testing"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_go "github.com/tree-sitter/tree-sitter-go/bindings/go"
)

func parseGo(t *testing.T, src string) (*tree_sitter.Node, []byte, *tree_sitter.Tree) {
	t.Helper()
	parser := tree_sitter.NewParser()
	t.Cleanup(parser.Close)
	lang := tree_sitter.NewLanguage(tree_sitter_go.Language())
	if err := parser.SetLanguage(lang); err != nil {
		t.Fatalf("set language: %v", err)
	}
	content := []byte(src)
	tree := parser.Parse(content, nil)
	if tree == nil {
		t.Fatal("parse returned nil tree")
	}
	t.Cleanup(tree.Close)
	return tree.RootNode(), content, tree
}

func findSymbol(result Result, qualifiedName string) *Symbol {
	for i := range result.Symbols {
		if result.Symbols[i].QualifiedName == qualifiedName {
			return &result.Symbols[i]
		}
	}
	return nil
}

func TestGoExtractorFunctionsAndExport(t *testing.T) {
	src := `package sample

func Public() int {
	return privateHelper()
}

func privateHelper() int {
	return 1
}
`
	root, content, _ := parseGo(t, src)
	result := NewGoExtractor(0).Extract(root, content)

	pub := findSymbol(result, "sample.Public")
	if pub == nil {
		t.Fatal("expected symbol sample.Public")
	}
	if pub.Kind != KindFunction || !pub.Exported {
		t.Errorf("Public: kind=%s exported=%v, want function/true", pub.Kind, pub.Exported)
	}

	priv := findSymbol(result, "sample.privateHelper")
	if priv == nil {
		t.Fatal("expected symbol sample.privateHelper")
	}
	if priv.Exported {
		t.Errorf("privateHelper should not be exported")
	}

	foundCall := false
	for _, c := range result.Calls {
		if c.CalleeName == "privateHelper" {
			foundCall = true
		}
	}
	if !foundCall {
		t.Errorf("expected a call to privateHelper, calls=%+v", result.Calls)
	}
}

func TestGoExtractorMethodReceiverQualification(t *testing.T) {
	src := `package sample

type Widget struct {
	Name string
}

func (w *Widget) Rename(n string) {
	w.Name = n
}
`
	root, content, _ := parseGo(t, src)
	result := NewGoExtractor(0).Extract(root, content)

	method := findSymbol(result, "sample.Widget.Rename")
	if method == nil {
		t.Fatalf("expected method sample.Widget.Rename, got symbols: %+v", result.Symbols)
	}
	if method.Kind != KindMethod {
		t.Errorf("Rename kind = %s, want method", method.Kind)
	}

	field := findSymbol(result, "sample.Widget.Name")
	if field == nil {
		t.Fatalf("expected field sample.Widget.Name, got symbols: %+v", result.Symbols)
	}
}

func TestGoExtractorNestedStructDepthLimit(t *testing.T) {
	src := `package sample

type Outer struct {
	Inner struct {
		Deep struct {
			Deeper struct {
				X int
			}
		}
	}
}
`
	root, content, _ := parseGo(t, src)
	result := NewGoExtractor(2).Extract(root, content)

	if findSymbol(result, "sample.Outer.Inner") == nil {
		t.Error("expected sample.Outer.Inner at depth 1")
	}
	if findSymbol(result, "sample.Outer.Inner.Deep") == nil {
		t.Error("expected sample.Outer.Inner.Deep at depth 2")
	}
	if s := findSymbol(result, "sample.Outer.Inner.Deep.Deeper"); s != nil {
		t.Errorf("did not expect field beyond max depth 2, found %+v", s)
	}
}

func TestGoExtractorDefinitionNotAlsoReference(t *testing.T) {
	src := `package sample

func Solo() {}
`
	root, content, _ := parseGo(t, src)
	result := NewGoExtractor(0).Extract(root, content)

	for _, ref := range result.References {
		if ref.TargetName == "Solo" {
			t.Errorf("function name should not also appear as a reference: %+v", ref)
		}
	}
}
