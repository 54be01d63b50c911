package extract

import (
	"unicode"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
)

// GoExtractor instantiates the extraction framework for Go source (§4.3).
// Package name forms the outermost scope; method declarations inject the
// receiver's (pointer-unwrapped) type between package and method name.
type GoExtractor struct {
	MaxNestedStructDepth int
}

// NewGoExtractor returns a Go extractor with the given nested-struct depth
// limit (§4.3.3). A value <= 0 falls back to the default of 3.
func NewGoExtractor(maxNestedStructDepth int) *GoExtractor {
	if maxNestedStructDepth <= 0 {
		maxNestedStructDepth = 3
	}
	return &GoExtractor{MaxNestedStructDepth: maxNestedStructDepth}
}

func (g *GoExtractor) Language() string { return "go" }

// Extract runs the full walk over a parsed Go file.
func (g *GoExtractor) Extract(root *tree_sitter.Node, content []byte) Result {
	w := NewWalker(content, ".")
	if root != nil {
		if pkgName := goPackageName(root, content); pkgName != "" {
			w.PushScope(pkgName)
		}
	}
	Walk(g, w, root)
	return w.Result
}

func goPackageName(root *tree_sitter.Node, content []byte) string {
	count := root.NamedChildCount()
	for i := uint(0); i < count; i++ {
		child := root.NamedChild(i)
		if child != nil && child.Kind() == "package_clause" {
			name := child.ChildByFieldName("name")
			if name == nil && child.NamedChildCount() > 0 {
				name = child.NamedChild(0)
			}
			return NodeText(name, content)
		}
	}
	return ""
}

func (g *GoExtractor) Visit(w *Walker, node *tree_sitter.Node) bool {
	switch node.Kind() {
	case "function_declaration":
		g.visitFunction(w, node)
		return true
	case "method_declaration":
		g.visitMethod(w, node)
		return true
	case "type_declaration":
		g.visitTypeDeclaration(w, node)
		return false // children handled manually, including nested depth limit
	case "var_declaration":
		g.visitVarOrConst(w, node, KindVariable)
		return true
	case "const_declaration":
		g.visitVarOrConst(w, node, KindConstant)
		return true
	case "call_expression":
		g.visitCall(w, node)
		return true
	case "identifier", "field_identifier", "type_identifier":
		g.visitIdentifierReference(w, node)
		return true
	}
	return true
}

func (g *GoExtractor) visitFunction(w *Walker, node *tree_sitter.Node) {
	name := node.ChildByFieldName("name")
	if name == nil {
		return
	}
	w.Suppress(name)
	short := NodeText(name, w.Content)
	startLine, startCol, endLine, endCol := Span(node)
	w.EmitSymbol(Symbol{
		Name:          short,
		QualifiedName: w.Qualify(short),
		Kind:          KindFunction,
		Language:      "go",
		StartLine:     startLine,
		StartCol:      startCol,
		EndLine:       endLine,
		EndCol:        endCol,
		Signature:     Signature(node, w.Content),
		DocComment:    PrecedingComment(node, w.Content),
		Exported:      goExported(short),
	})
}

func (g *GoExtractor) visitMethod(w *Walker, node *tree_sitter.Node) {
	name := node.ChildByFieldName("name")
	if name == nil {
		return
	}
	w.Suppress(name)
	short := NodeText(name, w.Content)
	recv := goReceiverType(node, w.Content)

	qualified := w.Qualify(short)
	if recv != "" {
		qualified = w.Qualify(recv) + "." + short
	}

	startLine, startCol, endLine, endCol := Span(node)
	w.EmitSymbol(Symbol{
		Name:          short,
		QualifiedName: qualified,
		Kind:          KindMethod,
		Language:      "go",
		StartLine:     startLine,
		StartCol:      startCol,
		EndLine:       endLine,
		EndCol:        endCol,
		Signature:     Signature(node, w.Content),
		DocComment:    PrecedingComment(node, w.Content),
		Exported:      goExported(short),
	})
}

// goReceiverType extracts the receiver's inner type name, stripping any
// pointer-type wrapping (§4.3.4).
func goReceiverType(node *tree_sitter.Node, content []byte) string {
	recv := node.ChildByFieldName("receiver")
	if recv == nil {
		return ""
	}
	// receiver is a parameter_list containing one parameter_declaration
	count := recv.NamedChildCount()
	for i := uint(0); i < count; i++ {
		param := recv.NamedChild(i)
		if param == nil || param.Kind() != "parameter_declaration" {
			continue
		}
		typeNode := param.ChildByFieldName("type")
		if typeNode == nil {
			continue
		}
		if typeNode.Kind() == "pointer_type" {
			inner := typeNode.ChildByFieldName("type")
			if inner == nil && typeNode.NamedChildCount() > 0 {
				inner = typeNode.NamedChild(0)
			}
			return NodeText(inner, content)
		}
		return NodeText(typeNode, content)
	}
	return ""
}

func (g *GoExtractor) visitTypeDeclaration(w *Walker, node *tree_sitter.Node) {
	count := node.NamedChildCount()
	for i := uint(0); i < count; i++ {
		spec := node.NamedChild(i)
		if spec == nil || spec.Kind() != "type_spec" {
			continue
		}
		g.visitTypeSpec(w, spec, node)
	}
}

func (g *GoExtractor) visitTypeSpec(w *Walker, spec, declNode *tree_sitter.Node) {
	name := spec.ChildByFieldName("name")
	if name == nil {
		return
	}
	w.Suppress(name)
	short := NodeText(name, w.Content)
	typeNode := spec.ChildByFieldName("type")

	kind := KindType
	if typeNode != nil {
		switch typeNode.Kind() {
		case "struct_type":
			kind = KindStruct
		case "interface_type":
			kind = KindInterface
		}
	}

	startLine, startCol, endLine, endCol := Span(spec)
	w.EmitSymbol(Symbol{
		Name:          short,
		QualifiedName: w.Qualify(short),
		Kind:          kind,
		Language:      "go",
		StartLine:     startLine,
		StartCol:      startCol,
		EndLine:       endLine,
		EndCol:        endCol,
		Signature:     Signature(spec, w.Content),
		DocComment:    PrecedingComment(declNode, w.Content),
		Exported:      goExported(short),
	})

	if typeNode == nil {
		return
	}
	switch typeNode.Kind() {
	case "struct_type":
		w.PushScope(short)
		g.visitStructFields(w, typeNode, 1)
		w.PopScope()
	case "interface_type":
		w.PushScope(short)
		g.visitInterfaceMethods(w, typeNode)
		w.PopScope()
	default:
		// For non-struct/interface type definitions, still walk the
		// right-hand side for nested calls/references, e.g. map/slice
		// element types that reference other identifiers.
		Walk(g, w, typeNode)
	}
}

func (g *GoExtractor) visitStructFields(w *Walker, structType *tree_sitter.Node, depth int) {
	body := structType.ChildByFieldName("body")
	if body == nil {
		if structType.NamedChildCount() > 0 {
			body = structType.NamedChild(0)
		}
	}
	if body == nil {
		return
	}
	count := body.NamedChildCount()
	for i := uint(0); i < count; i++ {
		field := body.NamedChild(i)
		if field == nil || field.Kind() != "field_declaration" {
			continue
		}
		g.visitFieldDeclaration(w, field, depth)
	}
}

func (g *GoExtractor) visitFieldDeclaration(w *Walker, field *tree_sitter.Node, depth int) {
	if depth > g.MaxNestedStructDepth {
		return
	}
	name := field.ChildByFieldName("name")
	typeNode := field.ChildByFieldName("type")

	var short string
	if name != nil {
		w.Suppress(name)
		short = NodeText(name, w.Content)
	} else if typeNode != nil {
		// Embedded (unnamed) field: use the embedded type's text as the name.
		short = NodeText(typeNode, w.Content)
	}
	if short == "" {
		return
	}

	startLine, startCol, endLine, endCol := Span(field)
	w.EmitSymbol(Symbol{
		Name:          short,
		QualifiedName: w.Qualify(short),
		Kind:          KindField,
		Language:      "go",
		StartLine:     startLine,
		StartCol:      startCol,
		EndLine:       endLine,
		EndCol:        endCol,
		Signature:     Signature(field, w.Content),
		DocComment:    PrecedingComment(field, w.Content),
		Exported:      goExported(short),
	})

	if typeNode != nil {
		inner := typeNode
		if inner.Kind() == "pointer_type" {
			if t := inner.ChildByFieldName("type"); t != nil {
				inner = t
			}
		}
		if inner.Kind() == "struct_type" {
			w.PushScope(short)
			g.visitStructFields(w, inner, depth+1)
			w.PopScope()
		}
	}
}

func (g *GoExtractor) visitInterfaceMethods(w *Walker, ifaceType *tree_sitter.Node) {
	count := ifaceType.NamedChildCount()
	for i := uint(0); i < count; i++ {
		elem := ifaceType.NamedChild(i)
		if elem == nil || elem.Kind() != "method_elem" {
			continue
		}
		name := elem.ChildByFieldName("name")
		if name == nil {
			continue
		}
		w.Suppress(name)
		short := NodeText(name, w.Content)
		startLine, startCol, endLine, endCol := Span(elem)
		w.EmitSymbol(Symbol{
			Name:          short,
			QualifiedName: w.Qualify(short),
			Kind:          KindMethod,
			Language:      "go",
			StartLine:     startLine,
			StartCol:      startCol,
			EndLine:       endLine,
			EndCol:        endCol,
			Signature:     Signature(elem, w.Content),
			Exported:      goExported(short),
		})
	}
}

func (g *GoExtractor) visitVarOrConst(w *Walker, node *tree_sitter.Node, kind string) {
	count := node.NamedChildCount()
	for i := uint(0); i < count; i++ {
		spec := node.NamedChild(i)
		if spec == nil || spec.Kind() != "var_spec" && spec.Kind() != "const_spec" {
			continue
		}
		// var_spec/const_spec can declare multiple names (var a, b int);
		// every identifier child of the spec is one declared name, with the
		// "name" field as a fallback when none is found.
		var names []*tree_sitter.Node
		sc := spec.NamedChildCount()
		for j := uint(0); j < sc; j++ {
			if c := spec.NamedChild(j); c != nil && c.Kind() == "identifier" {
				names = append(names, c)
			}
		}
		if len(names) == 0 {
			names = append(names, spec.ChildByFieldName("name"))
		}
		for _, n := range names {
			if n == nil {
				continue
			}
			w.Suppress(n)
			short := NodeText(n, w.Content)
			startLine, startCol, endLine, endCol := Span(spec)
			w.EmitSymbol(Symbol{
				Name:          short,
				QualifiedName: w.Qualify(short),
				Kind:          kind,
				Language:      "go",
				StartLine:     startLine,
				StartCol:      startCol,
				EndLine:       endLine,
				EndCol:        endCol,
				Signature:     Signature(spec, w.Content),
				DocComment:    PrecedingComment(node, w.Content),
				Exported:      goExported(short),
			})
		}
	}
}

func (g *GoExtractor) visitCall(w *Walker, node *tree_sitter.Node) {
	fn := node.ChildByFieldName("function")
	if fn == nil {
		return
	}
	callee := goCalleeNode(fn)
	if callee == nil {
		return
	}
	w.Suppress(callee)
	name := NodeText(callee, w.Content)

	startLine, startCol, endLine, endCol := Span(node)
	w.EmitCall(Call{
		CalleeName: name,
		StartLine:  startLine,
		StartCol:   startCol,
		EndLine:    endLine,
		EndCol:     endCol,
	})
	w.EmitReference(Reference{
		TargetName: name,
		Kind:       RefCall,
		StartLine:  startLine,
		StartCol:   startCol,
		EndLine:    endLine,
		EndCol:     endCol,
	})
}

// goCalleeNode returns the rightmost identifier of a call's function
// subtree: a plain identifier, or a selector expression's field.
func goCalleeNode(fn *tree_sitter.Node) *tree_sitter.Node {
	switch fn.Kind() {
	case "identifier":
		return fn
	case "selector_expression":
		if field := fn.ChildByFieldName("field"); field != nil {
			return field
		}
	}
	return fn
}

func (g *GoExtractor) visitIdentifierReference(w *Walker, node *tree_sitter.Node) {
	if w.IsSuppressed(node) {
		return
	}
	parent := node.Parent()
	if parent != nil {
		switch parent.Kind() {
		case "package_clause", "selector_expression":
			// No special case: identifiers under these parents fall through
			// and are recorded as read/write references below. A call's
			// selector field is already suppressed by visitCall.
		}
	}
	kind := RefRead
	if IsAssignmentLHS(node) {
		kind = RefWrite
	}
	startLine, startCol, endLine, endCol := Span(node)
	w.EmitReference(Reference{
		TargetName: NodeText(node, w.Content),
		Kind:       kind,
		StartLine:  startLine,
		StartCol:   startCol,
		EndLine:    endLine,
		EndCol:     endCol,
	})
}

func goExported(name string) bool {
	if name == "" {
		return false
	}
	r := []rune(name)[0]
	return unicode.IsUpper(r)
}
