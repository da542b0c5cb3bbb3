package compiler

import "fmt"

// Operator is the operation a BinaryExpr applies. It is a separate enum from
// TokenType: the parser maps tokens onto operators.
type Operator int

const (
	OpAdd Operator = iota // +
	OpSub                 // -
	OpMul                 // *
	OpDiv                 // /
	OpEq                  // ==
	OpNe                  // !=
)

var operatorSymbols = [...]string{
	OpAdd: "+",
	OpSub: "-",
	OpMul: "*",
	OpDiv: "/",
	OpEq:  "==",
	OpNe:  "!=",
}

func (op Operator) String() string {
	if int(op) >= 0 && int(op) < len(operatorSymbols) {
		return operatorSymbols[op]
	}
	return fmt.Sprintf("Operator(%d)", int(op))
}

func (op Operator) valid() bool { return op >= OpAdd && op <= OpNe }

// binaryOperators maps the tokens that can join two operands.
var binaryOperators = map[TokenType]Operator{
	PLUS:   OpAdd,
	MINUS:  OpSub,
	STAR:   OpMul,
	SLASH:  OpDiv,
	EQUALS: OpEq,
	NOT_EQ: OpNe,
}

//  Expression nodes

// Expr is implemented by every node of the expression tree.
type Expr interface {
	exprNode()
	String() string
}

// Literal is an integer constant.
//
//	1 + 2
//	^      Literal{Value: 1}
type Literal struct {
	Value int64
	Pos   int
}

func (*Literal) exprNode()        {}
func (l *Literal) String() string { return fmt.Sprintf("%d", l.Value) }

// BinaryExpr represents a binary operation: Left Op Right.
//
//	x + 1
//	^ ^ ^
//	| | |
//	| | Right
//	| Op
//	Left
//
// Unary minus is a BinaryExpr with a zero Literal on the left.
type BinaryExpr struct {
	Op    Operator
	Left  Expr
	Right Expr
	Pos   int // offset of the operator token
}

func (*BinaryExpr) exprNode() {}
func (b *BinaryExpr) String() string {
	return fmt.Sprintf("(%s %s %s)", b.Left, b.Op, b.Right)
}

// CountNodes returns the number of BinaryExpr and Literal nodes in e.
func CountNodes(e Expr) (binaries, literals int) {
	switch n := e.(type) {
	case *Literal:
		return 0, 1
	case *BinaryExpr:
		lb, ll := CountNodes(n.Left)
		rb, rl := CountNodes(n.Right)
		return lb + rb + 1, ll + rl
	}
	return 0, 0
}
