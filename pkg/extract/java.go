package extract

import (
	tree_sitter "github.com/tree-sitter/go-tree-sitter"
)

// JavaExtractor instantiates the extraction framework for Java (§4.3). The
// package declaration forms the outermost scope; field declarations inside
// an interface are constants (interface fields are implicitly `public
// static final`), and all interface members are exported regardless of
// modifiers.
type JavaExtractor struct {
	interfaceDepth int
}

func NewJavaExtractor() *JavaExtractor { return &JavaExtractor{} }

func (j *JavaExtractor) Language() string { return "java" }

func (j *JavaExtractor) Extract(root *tree_sitter.Node, content []byte) Result {
	w := NewWalker(content, ".")
	if root != nil {
		if pkg := javaPackageName(root, content); pkg != "" {
			w.PushScope(pkg)
		}
	}
	Walk(j, w, root)
	return w.Result
}

func javaPackageName(root *tree_sitter.Node, content []byte) string {
	count := root.NamedChildCount()
	for i := uint(0); i < count; i++ {
		child := root.NamedChild(i)
		if child != nil && child.Kind() == "package_declaration" {
			if child.NamedChildCount() > 0 {
				return NodeText(child.NamedChild(0), content)
			}
		}
	}
	return ""
}

func (j *JavaExtractor) Visit(w *Walker, node *tree_sitter.Node) bool {
	switch node.Kind() {
	case "class_declaration":
		j.visitContainer(w, node, KindClass, false)
		return false
	case "interface_declaration":
		j.visitContainer(w, node, KindInterface, true)
		return false
	case "enum_declaration":
		j.visitContainer(w, node, KindClass, false)
		return false
	case "method_declaration", "constructor_declaration":
		j.visitMethod(w, node)
		return true
	case "field_declaration":
		j.visitField(w, node)
		return true
	case "method_invocation":
		j.visitCall(w, node)
		return true
	case "object_creation_expression":
		j.visitNew(w, node)
		return true
	case "identifier", "type_identifier":
		j.visitIdentifierReference(w, node)
		return true
	}
	return true
}

func javaHasPublicModifier(node *tree_sitter.Node) bool {
	count := node.ChildCount()
	for i := uint(0); i < count; i++ {
		mods := node.Child(i)
		if mods == nil || mods.Kind() != "modifiers" {
			continue
		}
		mc := mods.ChildCount()
		for j := uint(0); j < mc; j++ {
			if m := mods.Child(j); m != nil && m.Kind() == "public" {
				return true
			}
		}
	}
	return false
}

func (j *JavaExtractor) visitContainer(w *Walker, node *tree_sitter.Node, kind string, isInterface bool) {
	name := node.ChildByFieldName("name")
	if name == nil {
		return
	}
	w.Suppress(name)
	short := NodeText(name, w.Content)
	sl, sc, el, ec := Span(node)
	w.EmitSymbol(Symbol{
		Name: short, QualifiedName: w.Qualify(short), Kind: kind, Language: "java",
		StartLine: sl, StartCol: sc, EndLine: el, EndCol: ec,
		Signature: Signature(node, w.Content), DocComment: PrecedingComment(node, w.Content),
		Exported: javaHasPublicModifier(node),
	})

	if isInterface {
		j.interfaceDepth++
	}
	w.PushScope(short)
	body := node.ChildByFieldName("body")
	if body != nil {
		Walk(j, w, body)
	}
	w.PopScope()
	if isInterface {
		j.interfaceDepth--
	}
}

func (j *JavaExtractor) visitMethod(w *Walker, node *tree_sitter.Node) {
	name := node.ChildByFieldName("name")
	if name == nil {
		return
	}
	w.Suppress(name)
	short := NodeText(name, w.Content)
	sl, sc, el, ec := Span(node)
	w.EmitSymbol(Symbol{
		Name: short, QualifiedName: w.Qualify(short), Kind: KindMethod, Language: "java",
		StartLine: sl, StartCol: sc, EndLine: el, EndCol: ec,
		Signature: Signature(node, w.Content), DocComment: PrecedingComment(node, w.Content),
		Exported: j.interfaceDepth > 0 || javaHasPublicModifier(node),
	})
}

func (j *JavaExtractor) visitField(w *Walker, node *tree_sitter.Node) {
	count := node.NamedChildCount()
	for i := uint(0); i < count; i++ {
		child := node.NamedChild(i)
		if child == nil || child.Kind() != "variable_declarator" {
			continue
		}
		name := child.ChildByFieldName("name")
		if name == nil {
			continue
		}
		w.Suppress(name)
		short := NodeText(name, w.Content)
		kind := KindField
		if j.interfaceDepth > 0 {
			kind = KindConstant
		}
		sl, sc, el, ec := Span(node)
		w.EmitSymbol(Symbol{
			Name: short, QualifiedName: w.Qualify(short), Kind: kind, Language: "java",
			StartLine: sl, StartCol: sc, EndLine: el, EndCol: ec,
			Signature: Signature(node, w.Content), DocComment: PrecedingComment(node, w.Content),
			Exported: j.interfaceDepth > 0 || javaHasPublicModifier(node),
		})
	}
}

func (j *JavaExtractor) visitCall(w *Walker, node *tree_sitter.Node) {
	name := node.ChildByFieldName("name")
	if name == nil {
		return
	}
	w.Suppress(name)
	callee := NodeText(name, w.Content)
	sl, sc, el, ec := Span(node)
	w.EmitCall(Call{CalleeName: callee, StartLine: sl, StartCol: sc, EndLine: el, EndCol: ec})
	w.EmitReference(Reference{TargetName: callee, Kind: RefCall, StartLine: sl, StartCol: sc, EndLine: el, EndCol: ec})
}

func (j *JavaExtractor) visitNew(w *Walker, node *tree_sitter.Node) {
	typeNode := node.ChildByFieldName("type")
	if typeNode == nil {
		return
	}
	w.Suppress(typeNode)
	name := NodeText(typeNode, w.Content)
	sl, sc, el, ec := Span(node)
	w.EmitCall(Call{CalleeName: name, StartLine: sl, StartCol: sc, EndLine: el, EndCol: ec})
	w.EmitReference(Reference{TargetName: name, Kind: RefCall, StartLine: sl, StartCol: sc, EndLine: el, EndCol: ec})
}

func (j *JavaExtractor) visitIdentifierReference(w *Walker, node *tree_sitter.Node) {
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
