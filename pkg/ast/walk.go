// Copyright 2024 The Carvel Authors.
// SPDX-License-Identifier: Apache-2.0

package ast

// Walk visits node and its children depth first.
// Children are skipped when visitFunc returns false.
func Walk(node Node, visitFunc func(Node) bool) {
	if node == nil || !visitFunc(node) {
		return
	}

	switch typedNode := node.(type) {
	case *Template:
		if typedNode.Body != nil {
			Walk(typedNode.Body, visitFunc)
		}
	case *Block:
		for _, child := range typedNode.Nodes {
			Walk(child, visitFunc)
		}
	case *Reference:
		for _, seg := range typedNode.Segments {
			for _, arg := range seg.Args {
				Walk(arg, visitFunc)
			}
		}
		Walk(typedNode.Alternate, visitFunc)
	case *Directive:
		for _, arg := range typedNode.Args {
			Walk(arg, visitFunc)
		}
		if typedNode.Body != nil {
			Walk(typedNode.Body, visitFunc)
		}
		for _, branch := range typedNode.Branches {
			Walk(branch.Condition, visitFunc)
			if branch.Body != nil {
				Walk(branch.Body, visitFunc)
			}
		}
	case *String:
		if typedNode.Parsed != nil {
			Walk(typedNode.Parsed, visitFunc)
		}
	case *List:
		for _, item := range typedNode.Items {
			Walk(item, visitFunc)
		}
	case *Map:
		for _, entry := range typedNode.Entries {
			Walk(entry.Key, visitFunc)
			Walk(entry.Value, visitFunc)
		}
	case *Range:
		Walk(typedNode.Left, visitFunc)
		Walk(typedNode.Right, visitFunc)
	case *Binary:
		Walk(typedNode.Left, visitFunc)
		Walk(typedNode.Right, visitFunc)
	case *Unary:
		Walk(typedNode.Operand, visitFunc)
	case *Assignment:
		Walk(typedNode.Target, visitFunc)
		Walk(typedNode.Value, visitFunc)
	}
}
