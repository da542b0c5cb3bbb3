package compiler

import (
	"fmt"
	"strings"
)

// Reg names one of the two working registers of the stack machine. Targets
// decide which physical registers they are.
type Reg int

const (
	RegLHS Reg = iota // left operand, receives the result
	RegRHS            // right operand
)

func (r Reg) String() string {
	switch r {
	case RegLHS:
		return "lhs"
	case RegRHS:
		return "rhs"
	}
	return fmt.Sprintf("Reg(%d)", int(r))
}

// Instr is one stack-machine operation.
type Instr interface {
	instr()
	String() string
}

// Push pushes an immediate onto the evaluation stack.
type Push struct{ Value int64 }

// Pop pops the top of the stack into Reg.
type Pop struct{ Reg Reg }

// Combine computes lhs = lhs Op rhs.
type Combine struct{ Op Operator }

// PushReg pushes Reg onto the stack.
type PushReg struct{ Reg Reg }

func (Push) instr()    {}
func (Pop) instr()     {}
func (Combine) instr() {}
func (PushReg) instr() {}

func (i Push) String() string    { return fmt.Sprintf("push %d", i.Value) }
func (i Pop) String() string     { return fmt.Sprintf("pop %s", i.Reg) }
func (i Combine) String() string { return fmt.Sprintf("combine %s", i.Op) }
func (i PushReg) String() string { return fmt.Sprintf("push %s", i.Reg) }

// CodeGen walks an expression tree post-order and collects instructions.
type CodeGen struct {
	out []Instr
}

func (cg *CodeGen) emit(i Instr) {
	cg.out = append(cg.out, i)
}

func (cg *CodeGen) genExpr(e Expr) error {
	switch n := e.(type) {
	case *Literal:
		cg.emit(Push{Value: n.Value})
		return nil

	case *BinaryExpr:
		if n.Left == nil || n.Right == nil {
			return fmt.Errorf("codegen: binary %s at offset %d is missing an operand", n.Op, n.Pos)
		}
		if !n.Op.valid() {
			return fmt.Errorf("codegen: unknown operator %s", n.Op)
		}
		if err := cg.genExpr(n.Left); err != nil {
			return err
		}
		if err := cg.genExpr(n.Right); err != nil {
			return err
		}
		cg.emit(Pop{Reg: RegRHS})
		cg.emit(Pop{Reg: RegLHS})
		cg.emit(Combine{Op: n.Op})
		cg.emit(PushReg{Reg: RegLHS})
		return nil

	case nil:
		return fmt.Errorf("codegen: nil expression")
	}
	return fmt.Errorf("codegen: unsupported node %T", e)
}

// Generate emits the instruction sequence for e. Executing it leaves exactly
// one value, the result of e, on the stack.
func Generate(e Expr) ([]Instr, error) {
	cg := &CodeGen{}
	if err := cg.genExpr(e); err != nil {
		return nil, err
	}
	return cg.out, nil
}

// FormatIR renders instrs one per line in the target-neutral notation.
func FormatIR(instrs []Instr) string {
	var sb strings.Builder
	for _, in := range instrs {
		sb.WriteString("  ")
		sb.WriteString(in.String())
		sb.WriteByte('\n')
	}
	return sb.String()
}
