package extract

import (
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
)

// Extractor instantiates the extraction framework for one grammar. Walk
// dispatches are driven by node Kind() strings, per the node-type dispatch
// design in §4.2/§9 — there is no shared class hierarchy across languages.
type Extractor interface {
	// Language is the tag this extractor handles (e.g. "go", "python").
	Language() string

	// Visit is called once per named node in document order (pre-order,
	// parent before children). Any symbols/calls/references the node
	// produces are emitted through w; the return value says whether the
	// walker should descend into the node's children. Extractors that fully consume a subtree
	// (e.g. a Go type declaration's children) return descend=false after
	// handling it manually.
	Visit(w *Walker, node *tree_sitter.Node) (descend bool)
}

// Walker threads shared state through one file's extraction pass: the
// source bytes, the result being assembled, and the lexical scope stack
// extractors push/pop as they descend into named constructs.
type Walker struct {
	Content []byte
	Result  Result

	scopes      []string
	sep         string // scope-join separator, language-specific ("." or "::")
	suppressed  map[uint]bool
}

// Suppress marks node's identifier so it is not later emitted as a plain
// read/write reference — used for definition-name identifiers and for
// call-expression callee identifiers already captured as a call reference
// (§4.2's definition-not-reference rule and §4.3.2's call handling).
func (w *Walker) Suppress(node *tree_sitter.Node) {
	if node == nil {
		return
	}
	if w.suppressed == nil {
		w.suppressed = make(map[uint]bool)
	}
	w.suppressed[node.StartByte()] = true
}

// IsSuppressed reports whether node was previously marked with Suppress.
func (w *Walker) IsSuppressed(node *tree_sitter.Node) bool {
	if node == nil || w.suppressed == nil {
		return false
	}
	return w.suppressed[node.StartByte()]
}

// NewWalker creates a Walker for one file. sep is the qualified-name scope
// separator for the language ("." for most, "::" for Rust).
func NewWalker(content []byte, sep string) *Walker {
	return &Walker{Content: content, sep: sep}
}

// PushScope enters a new lexical scope (e.g. a package, class, or impl
// block name) for the duration of the caller's subtree visit.
func (w *Walker) PushScope(name string) {
	w.scopes = append(w.scopes, name)
}

// PopScope leaves the most recently pushed scope.
func (w *Walker) PopScope() {
	if len(w.scopes) > 0 {
		w.scopes = w.scopes[:len(w.scopes)-1]
	}
}

// Qualify composes a qualified name from the current scope stack plus a
// short name, joined by the language's scope separator.
func (w *Walker) Qualify(short string) string {
	if len(w.scopes) == 0 {
		return short
	}
	return strings.Join(w.scopes, w.sep) + w.sep + short
}

// ScopeDepth reports how many scopes are currently pushed.
func (w *Walker) ScopeDepth() int { return len(w.scopes) }

// EmitSymbol appends a symbol to the result being assembled.
func (w *Walker) EmitSymbol(s Symbol) { w.Result.Symbols = append(w.Result.Symbols, s) }

// EmitCall appends a call site to the result being assembled.
func (w *Walker) EmitCall(c Call) { w.Result.Calls = append(w.Result.Calls, c) }

// EmitReference appends a reference to the result being assembled.
func (w *Walker) EmitReference(r Reference) { w.Result.References = append(w.Result.References, r) }

// Walk performs a generic pre-order walk of root's named children, dispatching
// each named node to ex.Visit. It is the single entry point every language
// extractor's top-level Extract function uses.
func Walk(ex Extractor, w *Walker, root *tree_sitter.Node) {
	if root == nil {
		return
	}
	walkNode(ex, w, root)
}

func walkNode(ex Extractor, w *Walker, node *tree_sitter.Node) {
	if node == nil {
		return
	}
	descend := true
	if node.IsNamed() {
		descend = ex.Visit(w, node)
	}
	if !descend {
		return
	}
	count := node.NamedChildCount()
	for i := uint(0); i < count; i++ {
		child := node.NamedChild(i)
		walkNode(ex, w, child)
	}
}

// NodeText returns the raw source text spanned by node.
func NodeText(node *tree_sitter.Node, content []byte) string {
	if node == nil {
		return ""
	}
	start, end := node.StartByte(), node.EndByte()
	if end > uint(len(content)) {
		end = uint(len(content))
	}
	if start > end {
		return ""
	}
	return string(content[start:end])
}

// Span returns a node's position translated to 1-based lines and 0-based
// columns (§4.2).
func Span(node *tree_sitter.Node) (startLine, startCol, endLine, endCol int) {
	sp := node.StartPosition()
	ep := node.EndPosition()
	return int(sp.Row) + 1, int(sp.Column), int(ep.Row) + 1, int(ep.Column)
}

// Signature extracts up to the first three lines of node's text, truncated
// to 200 bytes (§3 signature snippet rule). If node has a "body" field, the
// signature stops at the body's start (so the opening brace/colon of the
// body is excluded, matching a typical declaration header).
func Signature(node *tree_sitter.Node, content []byte) string {
	start := node.StartByte()
	end := node.EndByte()
	if body := node.ChildByFieldName("body"); body != nil {
		end = body.StartByte()
	}
	if end > uint(len(content)) {
		end = uint(len(content))
	}
	if start > end {
		return ""
	}
	text := strings.TrimSpace(string(content[start:end]))
	text = strings.TrimSuffix(text, "{")
	text = strings.TrimSuffix(text, ":")
	text = strings.TrimSpace(text)

	lines := strings.SplitN(text, "\n", maxSignatureLines+1)
	if len(lines) > maxSignatureLines {
		lines = lines[:maxSignatureLines]
	}
	text = strings.Join(lines, "\n")
	if len(text) > maxSignatureBytes {
		text = text[:maxSignatureBytes]
	}
	return text
}

// PrecedingComment returns the text of node's immediately preceding
// sibling when that sibling is a comment, else "".
func PrecedingComment(node *tree_sitter.Node, content []byte) string {
	parent := node.Parent()
	if parent == nil {
		return ""
	}
	count := parent.NamedChildCount()
	for i := uint(0); i < count; i++ {
		child := parent.NamedChild(i)
		if child == nil {
			continue
		}
		if child.StartByte() == node.StartByte() && child.EndByte() == node.EndByte() {
			if i == 0 {
				return ""
			}
			prev := parent.NamedChild(i - 1)
			if prev != nil && strings.Contains(prev.Kind(), "comment") {
				return strings.TrimSpace(NodeText(prev, content))
			}
			return ""
		}
	}
	return ""
}

// IsAssignmentLHS reports whether node sits on the left-hand side of an
// assignment, used to promote a read reference to a write reference.
func IsAssignmentLHS(node *tree_sitter.Node) bool {
	parent := node.Parent()
	if parent == nil {
		return false
	}
	switch parent.Kind() {
	case "assignment_expression", "assignment_statement", "augmented_assignment_expression":
		left := parent.ChildByFieldName("left")
		return left != nil && left.StartByte() == node.StartByte() && left.EndByte() == node.EndByte()
	}
	return false
}
