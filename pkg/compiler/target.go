package compiler

import (
	"fmt"
	"math"
	"strings"
)

// Target renders the stack-machine instruction sequence as assembler text.
type Target interface {
	Name() string
	// Render emits the body only: the instructions for the expression,
	// leaving its value on the stack.
	Render(instrs []Instr) (string, error)
	// Program wraps the body in the directives, entry label and the final
	// pop/return needed to link it as a function returning the value.
	Program(instrs []Instr, entry string) (string, error)
}

// Targets lists the built-in renderers by name.
var Targets = map[string]Target{
	"intel": IntelTarget{},
	"att":   ATTTarget{},
}

// LookupTarget returns the renderer registered under name.
func LookupTarget(name string) (Target, error) {
	t, ok := Targets[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("unknown target syntax %q (want intel or att)", name)
	}
	return t, nil
}

type asmWriter struct {
	out strings.Builder
}

func (w *asmWriter) line(format string, args ...any) {
	fmt.Fprintf(&w.out, format+"\n", args...)
}

func fitsImm32(v int64) bool {
	return v >= math.MinInt32 && v <= math.MaxInt32
}

// IntelTarget emits x86-64 in GNU as Intel syntax. rax holds the left
// operand and the result, rdi the right operand.
type IntelTarget struct{}

func (IntelTarget) Name() string { return "intel" }

var intelRegs = map[Reg]string{RegLHS: "rax", RegRHS: "rdi"}

func (t IntelTarget) Render(instrs []Instr) (string, error) {
	w := &asmWriter{}
	if err := t.body(w, instrs); err != nil {
		return "", err
	}
	return w.out.String(), nil
}

func (t IntelTarget) Program(instrs []Instr, entry string) (string, error) {
	w := &asmWriter{}
	w.line(".intel_syntax noprefix")
	w.line(".globl %s", entry)
	w.line("%s:", entry)
	if err := t.body(w, instrs); err != nil {
		return "", err
	}
	w.line("  pop rax")
	w.line("  ret")
	return w.out.String(), nil
}

func (IntelTarget) body(w *asmWriter, instrs []Instr) error {
	for _, in := range instrs {
		switch i := in.(type) {
		case Push:
			if fitsImm32(i.Value) {
				w.line("  push %d", i.Value)
			} else {
				w.line("  mov rax, %d", i.Value)
				w.line("  push rax")
			}
		case Pop:
			w.line("  pop %s", intelRegs[i.Reg])
		case PushReg:
			w.line("  push %s", intelRegs[i.Reg])
		case Combine:
			switch i.Op {
			case OpAdd:
				w.line("  add rax, rdi")
			case OpSub:
				w.line("  sub rax, rdi")
			case OpMul:
				w.line("  imul rax, rdi")
			case OpDiv:
				w.line("  cqo")
				w.line("  idiv rdi")
			case OpEq:
				w.line("  cmp rax, rdi")
				w.line("  sete al")
				w.line("  movzx rax, al")
			case OpNe:
				w.line("  cmp rax, rdi")
				w.line("  setne al")
				w.line("  movzx rax, al")
			default:
				return fmt.Errorf("intel: unknown operator %s", i.Op)
			}
		default:
			return fmt.Errorf("intel: unsupported instruction %T", in)
		}
	}
	return nil
}

// ATTTarget emits the same sequence as IntelTarget in AT&T syntax.
type ATTTarget struct{}

func (ATTTarget) Name() string { return "att" }

var attRegs = map[Reg]string{RegLHS: "%rax", RegRHS: "%rdi"}

func (t ATTTarget) Render(instrs []Instr) (string, error) {
	w := &asmWriter{}
	if err := t.body(w, instrs); err != nil {
		return "", err
	}
	return w.out.String(), nil
}

func (t ATTTarget) Program(instrs []Instr, entry string) (string, error) {
	w := &asmWriter{}
	w.line(".globl %s", entry)
	w.line("%s:", entry)
	if err := t.body(w, instrs); err != nil {
		return "", err
	}
	w.line("  popq %%rax")
	w.line("  ret")
	return w.out.String(), nil
}

func (ATTTarget) body(w *asmWriter, instrs []Instr) error {
	for _, in := range instrs {
		switch i := in.(type) {
		case Push:
			if fitsImm32(i.Value) {
				w.line("  pushq $%d", i.Value)
			} else {
				w.line("  movabsq $%d, %%rax", i.Value)
				w.line("  pushq %%rax")
			}
		case Pop:
			w.line("  popq %s", attRegs[i.Reg])
		case PushReg:
			w.line("  pushq %s", attRegs[i.Reg])
		case Combine:
			switch i.Op {
			case OpAdd:
				w.line("  addq %%rdi, %%rax")
			case OpSub:
				w.line("  subq %%rdi, %%rax")
			case OpMul:
				w.line("  imulq %%rdi, %%rax")
			case OpDiv:
				w.line("  cqto")
				w.line("  idivq %%rdi")
			case OpEq:
				w.line("  cmpq %%rdi, %%rax")
				w.line("  sete %%al")
				w.line("  movzbq %%al, %%rax")
			case OpNe:
				w.line("  cmpq %%rdi, %%rax")
				w.line("  setne %%al")
				w.line("  movzbq %%al, %%rax")
			default:
				return fmt.Errorf("att: unknown operator %s", i.Op)
			}
		default:
			return fmt.Errorf("att: unsupported instruction %T", in)
		}
	}
	return nil
}
