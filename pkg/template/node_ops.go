// Copyright 2024 The Carvel Authors.
// SPDX-License-Identifier: Apache-2.0

package template

import (
	"fmt"
	"math"
	"strings"

	"carvel.dev/vtl/pkg/ast"
	"carvel.dev/vtl/pkg/introspect"
)

type binaryNode struct {
	exprBase
	op    ast.BinaryOp
	left  Expr
	right Expr
}

var _ Expr = &binaryNode{}

func (n *binaryNode) Value(s *State) (interface{}, error) {
	switch n.op {
	case ast.OpOr, ast.OpAnd, ast.OpEq, ast.OpNe, ast.OpLt, ast.OpLe, ast.OpGt, ast.OpGe:
		return n.Evaluate(s)
	}

	left, err := n.left.Value(s)
	if err != nil {
		return nil, err
	}
	right, err := n.right.Value(s)
	if err != nil {
		return nil, err
	}

	if n.op == ast.OpAdd {
		_, leftIsStr := left.(string)
		_, rightIsStr := right.(string)
		if leftIsStr || rightIsStr {
			return n.concat(s, left, right)
		}
	}

	return n.math(s, left, right)
}

func (n *binaryNode) Evaluate(s *State) (bool, error) {
	switch n.op {
	case ast.OpOr:
		left, err := n.left.Evaluate(s)
		if err != nil || left {
			return left, err
		}
		return n.right.Evaluate(s)

	case ast.OpAnd:
		left, err := n.left.Evaluate(s)
		if err != nil || !left {
			return false, err
		}
		return n.right.Evaluate(s)
	}

	switch n.op {
	case ast.OpEq, ast.OpNe, ast.OpLt, ast.OpLe, ast.OpGt, ast.OpGe:
	default:
		return evaluateValue(s, n)
	}

	left, err := n.left.Value(s)
	if err != nil {
		return false, err
	}
	right, err := n.right.Value(s)
	if err != nil {
		return false, err
	}

	switch n.op {
	case ast.OpEq:
		return n.equal(s, left, right)
	case ast.OpNe:
		eq, err := n.equal(s, left, right)
		return !eq && err == nil, err
	}

	cmp, err := n.compare(s, left, right)
	if err != nil || cmp == nil {
		return false, err
	}

	switch n.op {
	case ast.OpLt:
		return *cmp < 0, nil
	case ast.OpLe:
		return *cmp <= 0, nil
	case ast.OpGt:
		return *cmp > 0, nil
	default:
		return *cmp >= 0, nil
	}
}

func (n *binaryNode) concat(s *State, left, right interface{}) (string, error) {
	var result strings.Builder
	for i, val := range []interface{}{left, right} {
		if val == nil {
			// null operands of concatenation render as written
			result.WriteString([]Expr{n.left, n.right}[i].Literal())
			continue
		}
		str, err := s.asString(val)
		if err != nil {
			return "", err
		}
		result.WriteString(str)
	}
	return result.String(), nil
}

func (n *binaryNode) equal(s *State, left, right interface{}) (bool, error) {
	switch {
	case left == nil && right == nil:
		return true, nil
	case left == nil || right == nil:
		return false, nil
	}

	_, leftIsNum := introspect.AsNumber(left)
	_, rightIsNum := introspect.AsNumber(right)
	if leftIsNum && rightIsNum {
		return introspect.Equal(left, right), nil
	}

	leftBool, leftIsBool := left.(bool)
	rightBool, rightIsBool := right.(bool)
	if leftIsBool || rightIsBool {
		return leftIsBool && rightIsBool && leftBool == rightBool, nil
	}

	if introspect.Equal(left, right) {
		return true, nil
	}

	leftStr, err := s.asString(left)
	if err != nil {
		return false, err
	}
	rightStr, err := s.asString(right)
	if err != nil {
		return false, err
	}
	return leftStr == rightStr, nil
}

// compare returns nil when comparison is not possible in lenient mode.
func (n *binaryNode) compare(s *State, left, right interface{}) (*int, error) {
	var cmp int

	leftNum, leftIsNum := introspect.AsNumber(left)
	rightNum, rightIsNum := introspect.AsNumber(right)
	leftStr, leftIsStr := left.(string)
	rightStr, rightIsStr := right.(string)

	switch {
	case leftIsNum && rightIsNum:
		leftInt, leftIsInt := leftNum.(int64)
		rightInt, rightIsInt := rightNum.(int64)
		switch {
		case leftIsInt && rightIsInt:
			cmp = compareOrdered(leftInt, rightInt)
		default:
			cmp = compareOrdered(asFloat(leftNum), asFloat(rightNum))
		}

	case leftIsStr && rightIsStr:
		cmp = strings.Compare(leftStr, rightStr)

	default:
		msg := fmt.Sprintf("Expected operands of '%s' to be comparable, but were '%s' (%T) and '%s' (%T)",
			n.op, n.left.Literal(), left, n.right.Literal(), right)
		if s.strict() || (left != nil && right != nil) {
			return nil, fmt.Errorf("%s at %s", msg, n.pos.AsCompactString())
		}
		s.Logger().Debugf("%s at %s", msg, n.pos.AsCompactString())
		return nil, nil
	}

	return &cmp, nil
}

func (n *binaryNode) math(s *State, left, right interface{}) (interface{}, error) {
	leftNum, leftIsNum := introspect.AsNumber(left)
	rightNum, rightIsNum := introspect.AsNumber(right)

	if !leftIsNum || !rightIsNum {
		msg := fmt.Sprintf("Expected operands of '%s' to be numbers, but were '%s' (%T) and '%s' (%T)",
			n.op, n.left.Literal(), left, n.right.Literal(), right)
		if s.Config().StrictMath || (left != nil && right != nil) {
			return nil, fmt.Errorf("%s at %s", msg, n.pos.AsCompactString())
		}
		s.Logger().Debugf("%s at %s", msg, n.pos.AsCompactString())
		return nil, nil
	}

	leftInt, leftIsInt := leftNum.(int64)
	rightInt, rightIsInt := rightNum.(int64)

	if (n.op == ast.OpDiv || n.op == ast.OpMod) && asFloat(rightNum) == 0 {
		msg := fmt.Sprintf("Division by zero in '%s'", n.literal)
		if s.Config().StrictMath {
			return nil, fmt.Errorf("%s at %s", msg, n.pos.AsCompactString())
		}
		s.Logger().Warningf("%s at %s", msg, n.pos.AsCompactString())
		return nil, nil
	}

	if leftIsInt && rightIsInt {
		switch n.op {
		case ast.OpAdd:
			return leftInt + rightInt, nil
		case ast.OpSub:
			return leftInt - rightInt, nil
		case ast.OpMul:
			return leftInt * rightInt, nil
		case ast.OpDiv:
			return leftInt / rightInt, nil
		case ast.OpMod:
			return leftInt % rightInt, nil
		}
	}

	leftFloat, rightFloat := asFloat(leftNum), asFloat(rightNum)
	switch n.op {
	case ast.OpAdd:
		return leftFloat + rightFloat, nil
	case ast.OpSub:
		return leftFloat - rightFloat, nil
	case ast.OpMul:
		return leftFloat * rightFloat, nil
	case ast.OpDiv:
		return leftFloat / rightFloat, nil
	case ast.OpMod:
		return math.Mod(leftFloat, rightFloat), nil
	}
	return nil, fmt.Errorf("Unknown operator '%s'", n.op)
}

type unaryNode struct {
	exprBase
	op      ast.UnaryOp
	operand Expr
}

var _ Expr = &unaryNode{}

func (n *unaryNode) Value(s *State) (interface{}, error) {
	if n.op == ast.OpNot {
		return n.Evaluate(s)
	}

	val, err := n.operand.Value(s)
	if err != nil {
		return nil, err
	}
	num, ok := introspect.AsNumber(val)
	if !ok {
		msg := fmt.Sprintf("Expected operand '%s' of '-' to be a number, but was %T", n.operand.Literal(), val)
		if s.Config().StrictMath || val != nil {
			return nil, fmt.Errorf("%s at %s", msg, n.pos.AsCompactString())
		}
		s.Logger().Debugf("%s at %s", msg, n.pos.AsCompactString())
		return nil, nil
	}
	switch typedNum := num.(type) {
	case int64:
		return -typedNum, nil
	default:
		return -asFloat(typedNum), nil
	}
}

func (n *unaryNode) Evaluate(s *State) (bool, error) {
	if n.op == ast.OpNot {
		val, err := n.operand.Evaluate(s)
		return !val, err
	}
	return evaluateValue(s, n)
}

func asFloat(num interface{}) float64 {
	switch typedNum := num.(type) {
	case int64:
		return float64(typedNum)
	case float64:
		return typedNum
	}
	return math.NaN()
}

func compareOrdered[T int64 | float64](left, right T) int {
	switch {
	case left < right:
		return -1
	case left > right:
		return 1
	default:
		return 0
	}
}
