package compiler

import (
	"fmt"
	"math"
)

// Eval computes the value of e directly from the tree, with the same 64-bit
// wrapping, truncating semantics as the generated code.
func Eval(e Expr) (int64, error) {
	switch n := e.(type) {
	case *Literal:
		return n.Value, nil

	case *BinaryExpr:
		left, err := Eval(n.Left)
		if err != nil {
			return 0, err
		}
		right, err := Eval(n.Right)
		if err != nil {
			return 0, err
		}
		return apply(n.Op, left, right, n.Pos)

	case nil:
		return 0, fmt.Errorf("eval: nil expression")
	}
	return 0, fmt.Errorf("eval: unsupported node %T", e)
}

func apply(op Operator, left, right int64, pos int) (int64, error) {
	switch op {
	case OpAdd:
		return left + right, nil
	case OpSub:
		return left - right, nil
	case OpMul:
		return left * right, nil
	case OpDiv:
		if right == 0 {
			return 0, fmt.Errorf("offset %d: %w", pos, ErrDivisionByZero)
		}
		if left == math.MinInt64 && right == -1 {
			return 0, fmt.Errorf("offset %d: %w", pos, ErrDivisionOverflow)
		}
		return left / right, nil
	case OpEq:
		return boolToInt(left == right), nil
	case OpNe:
		return boolToInt(left != right), nil
	}
	return 0, fmt.Errorf("eval: unknown operator %s", op)
}

func boolToInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
