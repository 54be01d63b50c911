package extract

import (
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
)

// EcmaExtractor handles TypeScript, TSX, and JavaScript — grammars share
// enough node-type vocabulary (function/class/method declarations, member
// expressions) to share one extractor parameterized by language tag.
// Interfaces and type aliases are TypeScript-only; the JavaScript grammar
// has no equivalent node types so those cases are simply never reached.
type EcmaExtractor struct {
	lang string
}

func NewEcmaExtractor(lang string) *EcmaExtractor { return &EcmaExtractor{lang: lang} }

func (e *EcmaExtractor) Language() string { return e.lang }

func (e *EcmaExtractor) Extract(root *tree_sitter.Node, content []byte) Result {
	w := NewWalker(content, ".")
	Walk(e, w, root)
	return w.Result
}

func (e *EcmaExtractor) Visit(w *Walker, node *tree_sitter.Node) bool {
	switch node.Kind() {
	case "function_declaration", "generator_function_declaration":
		e.visitFunction(w, node)
		return true
	case "method_definition":
		e.visitMethod(w, node)
		return true
	case "class_declaration":
		e.visitClass(w, node)
		return true
	case "interface_declaration":
		e.visitInterface(w, node)
		return true
	case "type_alias_declaration":
		e.visitTypeAlias(w, node)
		return true
	case "enum_declaration":
		e.visitEnum(w, node)
		return true
	case "public_field_definition", "field_definition":
		e.visitField(w, node)
		return true
	case "variable_declarator":
		e.visitVariableDeclarator(w, node)
		return true
	case "call_expression":
		e.visitCall(w, node)
		return true
	case "new_expression":
		e.visitNew(w, node)
		return true
	case "identifier", "property_identifier", "type_identifier":
		e.visitIdentifierReference(w, node)
		return true
	}
	return true
}

// isExported reports whether node is a direct child of an export
// statement. Only the immediate parent is checked: a class's own export
// does not make its members exported, e.g. `export class C { m() {} }`
// puts `method_definition` under `class_body` under `class_declaration`
// under `export_statement`, two levels removed from the export.
func (e *EcmaExtractor) isExported(node *tree_sitter.Node) bool {
	p := node.Parent()
	if p == nil {
		return false
	}
	return strings.HasPrefix(p.Kind(), "export_")
}

func (e *EcmaExtractor) visitFunction(w *Walker, node *tree_sitter.Node) {
	name := node.ChildByFieldName("name")
	if name == nil {
		return
	}
	w.Suppress(name)
	short := NodeText(name, w.Content)
	sl, sc, el, ec := Span(node)
	w.EmitSymbol(Symbol{
		Name: short, QualifiedName: w.Qualify(short), Kind: KindFunction, Language: e.lang,
		StartLine: sl, StartCol: sc, EndLine: el, EndCol: ec,
		Signature: Signature(node, w.Content), DocComment: PrecedingComment(node, w.Content),
		Exported: e.isExported(node),
	})
}

func (e *EcmaExtractor) visitMethod(w *Walker, node *tree_sitter.Node) {
	name := node.ChildByFieldName("name")
	if name == nil {
		return
	}
	w.Suppress(name)
	short := NodeText(name, w.Content)
	sl, sc, el, ec := Span(node)
	w.EmitSymbol(Symbol{
		Name: short, QualifiedName: w.Qualify(short), Kind: KindMethod, Language: e.lang,
		StartLine: sl, StartCol: sc, EndLine: el, EndCol: ec,
		Signature: Signature(node, w.Content), DocComment: PrecedingComment(node, w.Content),
		Exported: e.isExported(node),
	})
}

func (e *EcmaExtractor) visitClass(w *Walker, node *tree_sitter.Node) {
	name := node.ChildByFieldName("name")
	if name == nil {
		return
	}
	w.Suppress(name)
	short := NodeText(name, w.Content)
	sl, sc, el, ec := Span(node)
	w.EmitSymbol(Symbol{
		Name: short, QualifiedName: w.Qualify(short), Kind: KindClass, Language: e.lang,
		StartLine: sl, StartCol: sc, EndLine: el, EndCol: ec,
		Signature: Signature(node, w.Content), DocComment: PrecedingComment(node, w.Content),
		Exported: e.isExported(node),
	})
	// Descend with class name pushed so members compose `Class.member`.
	w.PushScope(short)
	body := node.ChildByFieldName("body")
	if body != nil {
		Walk(e, w, body)
	}
	w.PopScope()
}

func (e *EcmaExtractor) visitInterface(w *Walker, node *tree_sitter.Node) {
	if e.lang != "ts" && e.lang != "tsx" {
		return
	}
	name := node.ChildByFieldName("name")
	if name == nil {
		return
	}
	w.Suppress(name)
	short := NodeText(name, w.Content)
	sl, sc, el, ec := Span(node)
	w.EmitSymbol(Symbol{
		Name: short, QualifiedName: w.Qualify(short), Kind: KindInterface, Language: e.lang,
		StartLine: sl, StartCol: sc, EndLine: el, EndCol: ec,
		Signature: Signature(node, w.Content), DocComment: PrecedingComment(node, w.Content),
		Exported: e.isExported(node),
	})
}

func (e *EcmaExtractor) visitTypeAlias(w *Walker, node *tree_sitter.Node) {
	if e.lang != "ts" && e.lang != "tsx" {
		return
	}
	name := node.ChildByFieldName("name")
	if name == nil {
		return
	}
	w.Suppress(name)
	short := NodeText(name, w.Content)
	sl, sc, el, ec := Span(node)
	w.EmitSymbol(Symbol{
		Name: short, QualifiedName: w.Qualify(short), Kind: KindType, Language: e.lang,
		StartLine: sl, StartCol: sc, EndLine: el, EndCol: ec,
		Signature: Signature(node, w.Content), DocComment: PrecedingComment(node, w.Content),
		Exported: e.isExported(node),
	})
}

func (e *EcmaExtractor) visitEnum(w *Walker, node *tree_sitter.Node) {
	name := node.ChildByFieldName("name")
	if name == nil {
		return
	}
	w.Suppress(name)
	short := NodeText(name, w.Content)
	sl, sc, el, ec := Span(node)
	w.EmitSymbol(Symbol{
		Name: short, QualifiedName: w.Qualify(short), Kind: KindClass, Language: e.lang,
		StartLine: sl, StartCol: sc, EndLine: el, EndCol: ec,
		Signature: Signature(node, w.Content), DocComment: PrecedingComment(node, w.Content),
		Exported: e.isExported(node),
	})
}

func (e *EcmaExtractor) visitField(w *Walker, node *tree_sitter.Node) {
	name := node.ChildByFieldName("name")
	if name == nil || name.Kind() != "property_identifier" {
		return
	}
	w.Suppress(name)
	short := NodeText(name, w.Content)
	sl, sc, el, ec := Span(node)
	w.EmitSymbol(Symbol{
		Name: short, QualifiedName: w.Qualify(short), Kind: KindProperty, Language: e.lang,
		StartLine: sl, StartCol: sc, EndLine: el, EndCol: ec,
		Signature: Signature(node, w.Content), DocComment: PrecedingComment(node, w.Content),
		Exported: e.isExported(node),
	})
}

// visitVariableDeclarator captures arrow functions / function expressions
// assigned to a top-level or class-scoped const/let, since the ECMA
// grammars have no dedicated "named arrow function" node type.
func (e *EcmaExtractor) visitVariableDeclarator(w *Walker, node *tree_sitter.Node) {
	name := node.ChildByFieldName("name")
	value := node.ChildByFieldName("value")
	if name == nil || value == nil {
		return
	}
	if value.Kind() != "arrow_function" && value.Kind() != "function_expression" {
		return
	}
	w.Suppress(name)
	short := NodeText(name, w.Content)
	sl, sc, el, ec := Span(node)
	w.EmitSymbol(Symbol{
		Name: short, QualifiedName: w.Qualify(short), Kind: KindFunction, Language: e.lang,
		StartLine: sl, StartCol: sc, EndLine: el, EndCol: ec,
		Signature: Signature(value, w.Content), DocComment: PrecedingComment(node, w.Content),
		Exported: e.isExported(node),
	})
}

func (e *EcmaExtractor) visitCall(w *Walker, node *tree_sitter.Node) {
	fn := node.ChildByFieldName("function")
	if fn == nil {
		return
	}
	callee := fn
	if fn.Kind() == "member_expression" {
		if prop := fn.ChildByFieldName("property"); prop != nil {
			callee = prop
		}
	}
	w.Suppress(callee)
	name := NodeText(callee, w.Content)
	sl, sc, el, ec := Span(node)
	w.EmitCall(Call{CalleeName: name, StartLine: sl, StartCol: sc, EndLine: el, EndCol: ec})
	w.EmitReference(Reference{TargetName: name, Kind: RefCall, StartLine: sl, StartCol: sc, EndLine: el, EndCol: ec})
}

func (e *EcmaExtractor) visitNew(w *Walker, node *tree_sitter.Node) {
	ctor := node.ChildByFieldName("constructor")
	if ctor == nil {
		return
	}
	w.Suppress(ctor)
	name := NodeText(ctor, w.Content)
	sl, sc, el, ec := Span(node)
	w.EmitCall(Call{CalleeName: name, StartLine: sl, StartCol: sc, EndLine: el, EndCol: ec})
	w.EmitReference(Reference{TargetName: name, Kind: RefCall, StartLine: sl, StartCol: sc, EndLine: el, EndCol: ec})
}

func (e *EcmaExtractor) visitIdentifierReference(w *Walker, node *tree_sitter.Node) {
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
