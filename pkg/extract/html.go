package extract

import (
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
)

// HTMLExtractor instantiates the extraction framework for HTML (§4.3).
// Every extracted entity is exported. id attributes become variables
// qualified `#id`; each class token becomes a variable qualified
// `.class`; a non-standard tag name becomes a class; script/style
// elements become modules.
type HTMLExtractor struct{}

func NewHTMLExtractor() *HTMLExtractor { return &HTMLExtractor{} }

func (h *HTMLExtractor) Language() string { return "html" }

func (h *HTMLExtractor) Extract(root *tree_sitter.Node, content []byte) Result {
	w := NewWalker(content, ".")
	Walk(h, w, root)
	return w.Result
}

// html5StandardTags is the fixed whitelist of standard HTML5 tag names; any
// tag outside this set is treated as a custom-element class (§4.3).
var html5StandardTags = map[string]bool{
	"html": true, "head": true, "body": true, "title": true, "meta": true,
	"link": true, "style": true, "script": true, "noscript": true,
	"div": true, "span": true, "p": true, "a": true, "img": true,
	"ul": true, "ol": true, "li": true, "table": true, "tr": true,
	"td": true, "th": true, "thead": true, "tbody": true, "tfoot": true,
	"form": true, "input": true, "button": true, "select": true,
	"option": true, "textarea": true, "label": true, "fieldset": true,
	"legend": true, "h1": true, "h2": true, "h3": true, "h4": true,
	"h5": true, "h6": true, "header": true, "footer": true, "nav": true,
	"main": true, "section": true, "article": true, "aside": true,
	"figure": true, "figcaption": true, "br": true, "hr": true,
	"strong": true, "em": true, "b": true, "i": true, "u": true,
	"small": true, "code": true, "pre": true, "blockquote": true,
	"iframe": true, "video": true, "audio": true, "source": true,
	"canvas": true, "svg": true, "path": true, "template": true,
	"slot": true, "base": true, "area": true, "map": true, "object": true,
	"embed": true, "param": true, "col": true, "colgroup": true,
	"datalist": true, "optgroup": true, "output": true, "progress": true,
	"meter": true, "details": true, "summary": true, "dialog": true,
	"picture": true, "track": true, "time": true, "mark": true,
	"ruby": true, "rt": true, "rp": true, "bdi": true, "bdo": true,
	"wbr": true, "dl": true, "dt": true, "dd": true,
}

func (h *HTMLExtractor) Visit(w *Walker, node *tree_sitter.Node) bool {
	switch node.Kind() {
	case "script_element", "style_element":
		h.visitModuleElement(w, node)
		return true
	case "element":
		h.visitElement(w, node)
		return true
	}
	return true
}

func (h *HTMLExtractor) visitModuleElement(w *Walker, node *tree_sitter.Node) {
	tag := htmlTagName(node, w.Content)
	if tag == "" {
		return
	}
	sl, sc, el, ec := Span(node)
	w.EmitSymbol(Symbol{
		Name: tag, QualifiedName: w.Qualify(tag), Kind: KindModule, Language: "html",
		StartLine: sl, StartCol: sc, EndLine: el, EndCol: ec,
		Signature: Signature(node, w.Content), Exported: true,
	})
}

func (h *HTMLExtractor) visitElement(w *Walker, node *tree_sitter.Node) {
	tag := htmlTagName(node, w.Content)
	if tag != "" && !html5StandardTags[strings.ToLower(tag)] {
		sl, sc, el, ec := Span(node)
		w.EmitSymbol(Symbol{
			Name: tag, QualifiedName: w.Qualify(tag), Kind: KindClass, Language: "html",
			StartLine: sl, StartCol: sc, EndLine: el, EndCol: ec,
			Signature: Signature(node, w.Content), Exported: true,
		})
	}

	start := htmlStartTag(node)
	if start == nil {
		return
	}
	count := start.NamedChildCount()
	for i := uint(0); i < count; i++ {
		attr := start.NamedChild(i)
		if attr == nil || attr.Kind() != "attribute" {
			continue
		}
		h.visitAttribute(w, attr, node)
	}
}

func htmlStartTag(element *tree_sitter.Node) *tree_sitter.Node {
	count := element.NamedChildCount()
	for i := uint(0); i < count; i++ {
		child := element.NamedChild(i)
		if child != nil && child.Kind() == "start_tag" {
			return child
		}
	}
	return nil
}

func htmlTagName(element *tree_sitter.Node, content []byte) string {
	start := htmlStartTag(element)
	if start == nil {
		start = element
	}
	count := start.NamedChildCount()
	for i := uint(0); i < count; i++ {
		child := start.NamedChild(i)
		if child != nil && child.Kind() == "tag_name" {
			return NodeText(child, content)
		}
	}
	return ""
}

func (h *HTMLExtractor) visitAttribute(w *Walker, attr, element *tree_sitter.Node) {
	nameNode := htmlAttrChild(attr, "attribute_name")
	if nameNode == nil {
		return
	}
	attrName := strings.ToLower(NodeText(nameNode, w.Content))
	valueNode := htmlAttrValue(attr)
	if valueNode == nil {
		return
	}
	value := strings.Trim(NodeText(valueNode, w.Content), "\"'")

	sl, sc, el, ec := Span(attr)
	switch attrName {
	case "id":
		if value == "" {
			return
		}
		qn := "#" + value
		w.EmitSymbol(Symbol{
			Name: qn, QualifiedName: qn, Kind: KindVariable, Language: "html",
			StartLine: sl, StartCol: sc, EndLine: el, EndCol: ec, Exported: true,
		})
	case "class":
		for _, token := range strings.Fields(value) {
			qn := "." + token
			w.EmitSymbol(Symbol{
				Name: qn, QualifiedName: qn, Kind: KindVariable, Language: "html",
				StartLine: sl, StartCol: sc, EndLine: el, EndCol: ec, Exported: true,
			})
		}
	}
}

func htmlAttrChild(attr *tree_sitter.Node, kind string) *tree_sitter.Node {
	count := attr.NamedChildCount()
	for i := uint(0); i < count; i++ {
		child := attr.NamedChild(i)
		if child != nil && child.Kind() == kind {
			return child
		}
	}
	return nil
}

func htmlAttrValue(attr *tree_sitter.Node) *tree_sitter.Node {
	if v := htmlAttrChild(attr, "quoted_attribute_value"); v != nil {
		if v.NamedChildCount() > 0 {
			return v.NamedChild(0)
		}
		return v
	}
	return htmlAttrChild(attr, "attribute_value")
}
