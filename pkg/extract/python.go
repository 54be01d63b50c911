package extract

import (
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
)

// PythonExtractor instantiates the extraction framework for Python (§4.3).
// Scope is dotted; module-level assignments become variables or constants,
// class-body assignments become properties, and `@property`-decorated
// methods are always properties regardless of assignment shape.
type PythonExtractor struct{}

func NewPythonExtractor() *PythonExtractor { return &PythonExtractor{} }

func (p *PythonExtractor) Language() string { return "python" }

func (p *PythonExtractor) Extract(root *tree_sitter.Node, content []byte) Result {
	w := NewWalker(content, ".")
	Walk(p, w, root)
	return w.Result
}

func (p *PythonExtractor) Visit(w *Walker, node *tree_sitter.Node) bool {
	switch node.Kind() {
	case "class_definition":
		p.visitClass(w, node)
		return false // body walked manually with scope pushed
	case "function_definition":
		p.visitFunction(w, node)
		return true
	case "assignment":
		p.visitAssignment(w, node)
		return true
	case "call":
		p.visitCall(w, node)
		return true
	case "identifier", "attribute":
		p.visitIdentifierReference(w, node)
		return true
	}
	return true
}

func (p *PythonExtractor) visitClass(w *Walker, node *tree_sitter.Node) {
	name := node.ChildByFieldName("name")
	if name == nil {
		return
	}
	w.Suppress(name)
	short := NodeText(name, w.Content)
	sl, sc, el, ec := Span(node)
	w.EmitSymbol(Symbol{
		Name: short, QualifiedName: w.Qualify(short), Kind: KindClass, Language: "python",
		StartLine: sl, StartCol: sc, EndLine: el, EndCol: ec,
		Signature: Signature(node, w.Content), DocComment: pythonDocstring(node, w.Content),
		Exported: pythonExported(short),
	})

	w.PushScope(short)
	body := node.ChildByFieldName("body")
	if body != nil {
		Walk(p, w, body)
	}
	w.PopScope()
}

func (p *PythonExtractor) visitFunction(w *Walker, node *tree_sitter.Node) {
	name := node.ChildByFieldName("name")
	if name == nil {
		return
	}
	w.Suppress(name)
	short := NodeText(name, w.Content)

	kind := KindFunction
	if w.ScopeDepth() > 0 {
		kind = KindMethod
	}
	if pythonHasPropertyDecorator(node, w.Content) {
		kind = KindProperty
	}

	sl, sc, el, ec := Span(node)
	w.EmitSymbol(Symbol{
		Name: short, QualifiedName: w.Qualify(short), Kind: kind, Language: "python",
		StartLine: sl, StartCol: sc, EndLine: el, EndCol: ec,
		Signature: Signature(node, w.Content), DocComment: pythonDocstring(node, w.Content),
		Exported: pythonExported(short),
	})
}

// pythonHasPropertyDecorator inspects the enclosing decorated_definition
// (the function_definition's parent, when decorated) for a `@property`
// decorator.
func pythonHasPropertyDecorator(node *tree_sitter.Node, content []byte) bool {
	parent := node.Parent()
	if parent == nil || parent.Kind() != "decorated_definition" {
		return false
	}
	count := parent.NamedChildCount()
	for i := uint(0); i < count; i++ {
		child := parent.NamedChild(i)
		if child == nil || child.Kind() != "decorator" {
			continue
		}
		text := NodeText(child, content)
		if strings.Contains(text, "property") {
			return true
		}
	}
	return false
}

func pythonDocstring(defNode *tree_sitter.Node, content []byte) string {
	body := defNode.ChildByFieldName("body")
	if body == nil || body.NamedChildCount() == 0 {
		return ""
	}
	first := body.NamedChild(0)
	if first == nil || first.Kind() != "expression_statement" || first.NamedChildCount() == 0 {
		return ""
	}
	str := first.NamedChild(0)
	if str == nil || str.Kind() != "string" {
		return ""
	}
	return strings.Trim(NodeText(str, content), "\"' \t\n")
}

// visitAssignment handles both module-level (variable/constant) and
// class-body-level (property) assignment targets. Only simple identifier
// targets are recorded; tuple/attribute targets are left to reference
// extraction.
func (p *PythonExtractor) visitAssignment(w *Walker, node *tree_sitter.Node) {
	left := node.ChildByFieldName("left")
	if left == nil || left.Kind() != "identifier" {
		return
	}
	// Only treat this as a symbol-bearing assignment when it is a direct
	// statement inside a module or class body (not a nested expression).
	parent := node.Parent()
	if parent == nil || parent.Kind() != "expression_statement" {
		return
	}
	grandparent := parent.Parent()
	if grandparent == nil {
		return
	}
	switch grandparent.Kind() {
	case "module":
	case "block":
		if body := grandparent.Parent(); body == nil || body.Kind() != "class_definition" {
			return
		}
	default:
		return
	}

	w.Suppress(left)
	short := NodeText(left, w.Content)

	kind := KindVariable
	if w.ScopeDepth() > 0 {
		kind = KindProperty
	} else if pythonIsConstantName(short) {
		kind = KindConstant
	}

	sl, sc, el, ec := Span(node)
	w.EmitSymbol(Symbol{
		Name: short, QualifiedName: w.Qualify(short), Kind: kind, Language: "python",
		StartLine: sl, StartCol: sc, EndLine: el, EndCol: ec,
		Signature: Signature(node, w.Content),
		Exported:  pythonExported(short),
	})
}

func pythonIsConstantName(name string) bool {
	hasUpper := false
	for _, r := range name {
		if r >= 'a' && r <= 'z' {
			return false
		}
		if r >= 'A' && r <= 'Z' {
			hasUpper = true
		}
	}
	return hasUpper
}

func (p *PythonExtractor) visitCall(w *Walker, node *tree_sitter.Node) {
	fn := node.ChildByFieldName("function")
	if fn == nil {
		return
	}
	callee := fn
	if fn.Kind() == "attribute" {
		if attr := fn.ChildByFieldName("attribute"); attr != nil {
			callee = attr
		}
	}
	w.Suppress(callee)
	name := NodeText(callee, w.Content)
	sl, sc, el, ec := Span(node)
	w.EmitCall(Call{CalleeName: name, StartLine: sl, StartCol: sc, EndLine: el, EndCol: ec})
	w.EmitReference(Reference{TargetName: name, Kind: RefCall, StartLine: sl, StartCol: sc, EndLine: el, EndCol: ec})
}

func (p *PythonExtractor) visitIdentifierReference(w *Walker, node *tree_sitter.Node) {
	if node.Kind() == "attribute" {
		return // descend to the plain identifier children instead
	}
	if w.IsSuppressed(node) {
		return
	}
	kind := RefRead
	if IsAssignmentLHS(node) {
		kind = RefWrite
	}
	sl, sc, el, ec := Span(node)
	w.EmitReference(Reference{TargetName: NodeText(node, w.Content), Kind: kind, StartLine: sl, StartCol: sc, EndLine: el, EndCol: ec})
}

// pythonExported implements the "no leading underscore, dunder exception"
// visibility rule (§4.2).
func pythonExported(name string) bool {
	if strings.HasPrefix(name, "__") && strings.HasSuffix(name, "__") && len(name) > 4 {
		return true
	}
	return !strings.HasPrefix(name, "_")
}
