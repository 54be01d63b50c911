package extract

import (
	tree_sitter "github.com/tree-sitter/go-tree-sitter"
)

// RustExtractor instantiates the extraction framework for Rust (§4.3).
// The scope separator is `::`; struct fields are joined with `.`. impl and
// trait method bodies are qualified under the implementing/trait type.
type RustExtractor struct{}

func NewRustExtractor() *RustExtractor { return &RustExtractor{} }

func (r *RustExtractor) Language() string { return "rust" }

func (r *RustExtractor) Extract(root *tree_sitter.Node, content []byte) Result {
	w := NewWalker(content, "::")
	Walk(r, w, root)
	return w.Result
}

func (r *RustExtractor) Visit(w *Walker, node *tree_sitter.Node) bool {
	switch node.Kind() {
	case "mod_item":
		r.visitMod(w, node)
		return false
	case "function_item":
		r.visitFunction(w, node, KindFunction)
		return true
	case "struct_item":
		r.visitTypeItem(w, node, KindStruct, true)
		return false
	case "enum_item":
		r.visitTypeItem(w, node, KindType, false)
		return true
	case "trait_item":
		r.visitTrait(w, node)
		return false
	case "impl_item":
		r.visitImpl(w, node)
		return false
	case "const_item":
		r.visitConstOrStatic(w, node, KindConstant)
		return true
	case "static_item":
		r.visitConstOrStatic(w, node, KindVariable)
		return true
	case "type_item":
		r.visitTypeItem(w, node, KindType, false)
		return true
	case "call_expression":
		r.visitCall(w, node)
		return true
	case "identifier", "field_identifier", "type_identifier":
		r.visitIdentifierReference(w, node)
		return true
	}
	return true
}

func rustExported(node *tree_sitter.Node) bool {
	count := node.NamedChildCount()
	for i := uint(0); i < count; i++ {
		child := node.NamedChild(i)
		if child != nil && child.Kind() == "visibility_modifier" {
			return true
		}
	}
	return false
}

func (r *RustExtractor) visitMod(w *Walker, node *tree_sitter.Node) {
	name := node.ChildByFieldName("name")
	if name == nil {
		return
	}
	w.Suppress(name)
	short := NodeText(name, w.Content)
	sl, sc, el, ec := Span(node)
	w.EmitSymbol(Symbol{
		Name: short, QualifiedName: w.Qualify(short), Kind: KindModule, Language: "rust",
		StartLine: sl, StartCol: sc, EndLine: el, EndCol: ec,
		Signature: Signature(node, w.Content), DocComment: PrecedingComment(node, w.Content),
		Exported: rustExported(node),
	})
	w.PushScope(short)
	body := node.ChildByFieldName("body")
	if body != nil {
		Walk(r, w, body)
	}
	w.PopScope()
}

func (r *RustExtractor) visitFunction(w *Walker, node *tree_sitter.Node, kind string) {
	name := node.ChildByFieldName("name")
	if name == nil {
		return
	}
	w.Suppress(name)
	short := NodeText(name, w.Content)
	sl, sc, el, ec := Span(node)
	w.EmitSymbol(Symbol{
		Name: short, QualifiedName: w.Qualify(short), Kind: kind, Language: "rust",
		StartLine: sl, StartCol: sc, EndLine: el, EndCol: ec,
		Signature: Signature(node, w.Content), DocComment: PrecedingComment(node, w.Content),
		Exported: rustExported(node),
	})
}

func (r *RustExtractor) visitTypeItem(w *Walker, node *tree_sitter.Node, kind string, isStruct bool) {
	name := node.ChildByFieldName("name")
	if name == nil {
		return
	}
	w.Suppress(name)
	short := NodeText(name, w.Content)
	sl, sc, el, ec := Span(node)
	w.EmitSymbol(Symbol{
		Name: short, QualifiedName: w.Qualify(short), Kind: kind, Language: "rust",
		StartLine: sl, StartCol: sc, EndLine: el, EndCol: ec,
		Signature: Signature(node, w.Content), DocComment: PrecedingComment(node, w.Content),
		Exported: rustExported(node),
	})
	if !isStruct {
		return
	}
	body := node.ChildByFieldName("body")
	if body == nil {
		return
	}
	w.PushScope(short)
	count := body.NamedChildCount()
	for i := uint(0); i < count; i++ {
		field := body.NamedChild(i)
		if field == nil || field.Kind() != "field_declaration" {
			continue
		}
		r.visitField(w, field)
	}
	w.PopScope()
}

func (r *RustExtractor) visitField(w *Walker, field *tree_sitter.Node) {
	name := field.ChildByFieldName("name")
	if name == nil {
		return
	}
	w.Suppress(name)
	short := NodeText(name, w.Content)
	sl, sc, el, ec := Span(field)
	prevSep := w.sep
	w.sep = "."
	qn := w.Qualify(short)
	w.sep = prevSep
	w.EmitSymbol(Symbol{
		Name: short, QualifiedName: qn, Kind: KindField, Language: "rust",
		StartLine: sl, StartCol: sc, EndLine: el, EndCol: ec,
		Signature: Signature(field, w.Content),
		Exported:  rustExported(field),
	})
}

func (r *RustExtractor) visitTrait(w *Walker, node *tree_sitter.Node) {
	name := node.ChildByFieldName("name")
	if name == nil {
		return
	}
	w.Suppress(name)
	short := NodeText(name, w.Content)
	sl, sc, el, ec := Span(node)
	w.EmitSymbol(Symbol{
		Name: short, QualifiedName: w.Qualify(short), Kind: KindInterface, Language: "rust",
		StartLine: sl, StartCol: sc, EndLine: el, EndCol: ec,
		Signature: Signature(node, w.Content), DocComment: PrecedingComment(node, w.Content),
		Exported: rustExported(node),
	})
	w.PushScope(short)
	body := node.ChildByFieldName("body")
	if body != nil {
		r.visitMethodsIn(w, body)
	}
	w.PopScope()
}

func (r *RustExtractor) visitImpl(w *Walker, node *tree_sitter.Node) {
	typeNode := node.ChildByFieldName("type")
	if typeNode == nil {
		Walk(r, w, node)
		return
	}
	typeName := NodeText(typeNode, w.Content)
	w.PushScope(typeName)
	body := node.ChildByFieldName("body")
	if body != nil {
		r.visitMethodsIn(w, body)
	}
	w.PopScope()
}

// visitMethodsIn walks the named children of an impl/trait body, emitting
// methods and recursing through the framework for everything else (nested
// calls inside method bodies, etc.).
func (r *RustExtractor) visitMethodsIn(w *Walker, body *tree_sitter.Node) {
	count := body.NamedChildCount()
	for i := uint(0); i < count; i++ {
		item := body.NamedChild(i)
		if item == nil {
			continue
		}
		if item.Kind() == "function_item" {
			r.visitFunction(w, item, KindMethod)
			// descend into the function body for calls/references
			if fbody := item.ChildByFieldName("body"); fbody != nil {
				Walk(r, w, fbody)
			}
			continue
		}
		Walk(r, w, item)
	}
}

func (r *RustExtractor) visitCall(w *Walker, node *tree_sitter.Node) {
	fn := node.ChildByFieldName("function")
	if fn == nil {
		return
	}
	callee := fn
	if fn.Kind() == "field_expression" {
		if field := fn.ChildByFieldName("field"); field != nil {
			callee = field
		}
	} else if fn.Kind() == "scoped_identifier" {
		if name := fn.ChildByFieldName("name"); name != nil {
			callee = name
		}
	}
	w.Suppress(callee)
	name := NodeText(callee, w.Content)
	sl, sc, el, ec := Span(node)
	w.EmitCall(Call{CalleeName: name, StartLine: sl, StartCol: sc, EndLine: el, EndCol: ec})
	w.EmitReference(Reference{TargetName: name, Kind: RefCall, StartLine: sl, StartCol: sc, EndLine: el, EndCol: ec})
}

func (r *RustExtractor) visitConstOrStatic(w *Walker, node *tree_sitter.Node, kind string) {
	name := node.ChildByFieldName("name")
	if name == nil {
		return
	}
	w.Suppress(name)
	short := NodeText(name, w.Content)
	sl, sc, el, ec := Span(node)
	w.EmitSymbol(Symbol{
		Name: short, QualifiedName: w.Qualify(short), Kind: kind, Language: "rust",
		StartLine: sl, StartCol: sc, EndLine: el, EndCol: ec,
		Signature: Signature(node, w.Content), DocComment: PrecedingComment(node, w.Content),
		Exported: rustExported(node),
	})
}

func (r *RustExtractor) visitIdentifierReference(w *Walker, node *tree_sitter.Node) {
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
