package query

import "github.com/jmylchreest/codeindex/pkg/store"

// Direction selects which edge buildCallChain follows.
type Direction int

const (
	Forward Direction = iota
	Backward
)

const DefaultCallChainDepth = 5

// CallChainNode is one symbol in a call-chain tree: its identifier, both
// names, its resolved location, its depth in the tree, and its children
// (§4.6).
type CallChainNode struct {
	SymbolID      string
	Name          string
	QualifiedName string
	Location      *store.Location
	Depth         int
	Children      []*CallChainNode
}

// BuildCallChain walks the call graph from a root symbol up to depth
// levels deep, forward (caller→callee) or backward (callee→caller). A
// symbol already visited anywhere in the tree is not expanded again — the
// visited set is global across the whole build, not per-branch (§4.6).
func (e *Engine) BuildCallChain(from string, dir Direction, depth int) (*CallChainNode, error) {
	if depth <= 0 {
		depth = DefaultCallChainDepth
	}
	visited := map[string]bool{from: true}
	return e.buildNode(from, dir, 0, depth, visited)
}

func (e *Engine) buildNode(symbolID string, dir Direction, level, maxDepth int, visited map[string]bool) (*CallChainNode, error) {
	sym, err := e.store.GetSymbol(symbolID)
	if err != nil {
		return nil, err
	}
	if sym == nil {
		return nil, nil
	}
	loc, err := e.store.GetLocation(symbolID)
	if err != nil {
		return nil, err
	}
	node := &CallChainNode{
		SymbolID:      sym.ID,
		Name:          sym.Name,
		QualifiedName: sym.QualifiedName,
		Location:      loc,
		Depth:         level,
	}
	if level >= maxDepth {
		return node, nil
	}

	var edges []store.Call
	if dir == Forward {
		edges, err = e.store.OutgoingCalls(symbolID)
	} else {
		edges, err = e.store.IncomingCalls(symbolID)
	}
	if err != nil {
		return nil, err
	}

	for _, edge := range edges {
		nextID := edge.CalleeID
		if dir == Backward {
			nextID = edge.CallerID
		}
		if visited[nextID] {
			continue
		}
		visited[nextID] = true
		child, err := e.buildNode(nextID, dir, level+1, maxDepth, visited)
		if err != nil {
			return nil, err
		}
		if child != nil {
			node.Children = append(node.Children, child)
		}
	}
	return node, nil
}
