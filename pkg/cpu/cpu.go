package cpu

import (
	"errors"
	"fmt"
	"math"
	"math/big"
)

// Opcode identifies one instruction of the x86-64 subset the compiler emits.
type Opcode uint8

const (
	OpNOP   Opcode = iota
	OpPUSHI        // push imm32
	OpPUSH         // push r64
	OpPOP          // pop r64
	OpMOVI         // mov r64, imm64
	OpMOV          // mov r64, r64
	OpADD          // add r64, r64
	OpSUB          // sub r64, r64
	OpIMUL         // imul r64, r64
	OpCQO          // rdx := sign of rax
	OpIDIV         // rdx:rax / r64 -> rax, rdx
	OpCMP          // cmp r64, r64
	OpSETE         // sete r8
	OpSETNE        // setne r8
	OpMOVZX        // movzx r64, r8
	OpRET
)

var opNames = [...]string{
	OpNOP:   "nop",
	OpPUSHI: "push",
	OpPUSH:  "push",
	OpPOP:   "pop",
	OpMOVI:  "mov",
	OpMOV:   "mov",
	OpADD:   "add",
	OpSUB:   "sub",
	OpIMUL:  "imul",
	OpCQO:   "cqo",
	OpIDIV:  "idiv",
	OpCMP:   "cmp",
	OpSETE:  "sete",
	OpSETNE: "setne",
	OpMOVZX: "movzx",
	OpRET:   "ret",
}

func (op Opcode) String() string {
	if int(op) < len(opNames) {
		return opNames[op]
	}
	return fmt.Sprintf("Opcode(%d)", int(op))
}

// Register indexes the register file. AL is the low byte of RAX.
type Register uint8

const (
	RAX Register = iota
	RDI
	RDX
	AL
)

var regNames = [...]string{RAX: "rax", RDI: "rdi", RDX: "rdx", AL: "al"}

func (r Register) String() string {
	if int(r) < len(regNames) {
		return regNames[r]
	}
	return fmt.Sprintf("Register(%d)", int(r))
}

// Is8Bit reports whether r is a byte register.
func (r Register) Is8Bit() bool { return r == AL }

// Instruction is one decoded instruction.
type Instruction struct {
	Op  Opcode
	Dst Register
	Src Register
	Imm int64
}

func (in Instruction) String() string {
	switch in.Op {
	case OpPUSHI:
		return fmt.Sprintf("push %d", in.Imm)
	case OpMOVI:
		return fmt.Sprintf("mov %s, %d", in.Dst, in.Imm)
	case OpPUSH, OpPOP, OpIDIV, OpSETE, OpSETNE:
		return fmt.Sprintf("%s %s", in.Op, in.Dst)
	case OpMOV, OpADD, OpSUB, OpIMUL, OpCMP, OpMOVZX:
		return fmt.Sprintf("%s %s, %s", in.Op, in.Dst, in.Src)
	}
	return in.Op.String()
}

// Runtime faults.
var (
	ErrStackUnderflow = errors.New("pop from empty stack")
	ErrDivideByZero   = errors.New("divide by zero")
	ErrDivideOverflow = errors.New("quotient does not fit in 64 bits")
	ErrStepLimit      = errors.New("step limit exceeded")
	ErrNoReturn       = errors.New("execution ran past the last instruction")
	ErrBadInstruction = errors.New("invalid instruction")
	ErrHalted         = errors.New("cpu is halted")
)

// Fault is a runtime error tagged with the instruction that raised it.
type Fault struct {
	PC    int
	Instr Instruction
	Err   error
}

func (f *Fault) Error() string {
	return fmt.Sprintf("fault at %d (%s): %v", f.PC, f.Instr, f.Err)
}

func (f *Fault) Unwrap() error { return f.Err }

// DefaultMaxSteps bounds Run when MaxSteps is zero.
const DefaultMaxSteps = 1 << 20

// CPU executes a loaded program against a register file and an evaluation
// stack. The stack starts empty; the caller's return address is implicit,
// so `ret` ends the run.
type CPU struct {
	Regs [3]int64 // RAX, RDI, RDX

	PC    int
	Stack []int64

	// Z is set by cmp when the operands are equal.
	Z bool

	Halted bool

	Steps    int
	MaxSteps int
	// MaxDepth is the deepest the stack got during the run.
	MaxDepth int

	program []Instruction
}

func NewCPU() *CPU {
	return &CPU{}
}

// Load resets the CPU and installs prog, starting execution at entry.
func (c *CPU) Load(prog []Instruction, entry int) {
	*c = CPU{MaxSteps: c.MaxSteps, program: prog, PC: entry}
}

func (c *CPU) get(r Register) int64 {
	if r == AL {
		return c.Regs[RAX] & 0xFF
	}
	return c.Regs[r]
}

func (c *CPU) set(r Register, v int64) {
	if r == AL {
		c.Regs[RAX] = c.Regs[RAX]&^0xFF | v&0xFF
		return
	}
	c.Regs[r] = v
}

func (c *CPU) push(v int64) {
	c.Stack = append(c.Stack, v)
	if len(c.Stack) > c.MaxDepth {
		c.MaxDepth = len(c.Stack)
	}
}

func (c *CPU) pop() (int64, error) {
	if len(c.Stack) == 0 {
		return 0, ErrStackUnderflow
	}
	v := c.Stack[len(c.Stack)-1]
	c.Stack = c.Stack[:len(c.Stack)-1]
	return v, nil
}

// Depth is the number of values on the stack.
func (c *CPU) Depth() int { return len(c.Stack) }

// Result is the function's return value: rax.
func (c *CPU) Result() int64 { return c.Regs[RAX] }

// Step executes one instruction.
func (c *CPU) Step() error {
	if c.Halted {
		return ErrHalted
	}
	if c.PC < 0 || c.PC >= len(c.program) {
		c.Halted = true
		return &Fault{PC: c.PC, Err: ErrNoReturn}
	}

	pc := c.PC
	instr := c.program[pc]
	c.PC++
	c.Steps++

	if err := c.exec(instr); err != nil {
		c.Halted = true
		return &Fault{PC: pc, Instr: instr, Err: err}
	}
	return nil
}

func (c *CPU) exec(instr Instruction) error {
	switch instr.Op {
	case OpNOP:
		// No operation.

	case OpPUSHI:
		c.push(instr.Imm)

	case OpPUSH:
		c.push(c.get(instr.Dst))

	case OpPOP:
		v, err := c.pop()
		if err != nil {
			return err
		}
		c.set(instr.Dst, v)

	case OpMOVI:
		c.set(instr.Dst, instr.Imm)

	case OpMOV:
		c.set(instr.Dst, c.get(instr.Src))

	case OpADD:
		c.set(instr.Dst, c.get(instr.Dst)+c.get(instr.Src))

	case OpSUB:
		c.set(instr.Dst, c.get(instr.Dst)-c.get(instr.Src))

	case OpIMUL:
		c.set(instr.Dst, c.get(instr.Dst)*c.get(instr.Src))

	case OpCQO:
		if c.Regs[RAX] < 0 {
			c.Regs[RDX] = -1
		} else {
			c.Regs[RDX] = 0
		}

	case OpIDIV:
		return c.idiv(c.get(instr.Dst))

	case OpCMP:
		c.Z = c.get(instr.Dst) == c.get(instr.Src)

	case OpSETE:
		c.set(instr.Dst, flagByte(c.Z))

	case OpSETNE:
		c.set(instr.Dst, flagByte(!c.Z))

	case OpMOVZX:
		c.set(instr.Dst, c.get(instr.Src)&0xFF)

	case OpRET:
		c.Halted = true

	default:
		return ErrBadInstruction
	}
	return nil
}

// idiv divides the signed 128-bit rdx:rax by divisor, truncating toward
// zero: quotient to rax, remainder to rdx.
func (c *CPU) idiv(divisor int64) error {
	if divisor == 0 {
		return ErrDivideByZero
	}
	rax, rdx := c.Regs[RAX], c.Regs[RDX]

	// Fast path: rdx is the sign extension of rax, as after cqo.
	if (rax < 0 && rdx == -1) || (rax >= 0 && rdx == 0) {
		if rax == math.MinInt64 && divisor == -1 {
			return ErrDivideOverflow
		}
		c.Regs[RAX], c.Regs[RDX] = rax/divisor, rax%divisor
		return nil
	}

	dividend := new(big.Int).Lsh(big.NewInt(rdx), 64)
	dividend.Add(dividend, new(big.Int).SetUint64(uint64(rax)))
	q, r := new(big.Int).QuoRem(dividend, big.NewInt(divisor), new(big.Int))
	if !q.IsInt64() {
		return ErrDivideOverflow
	}
	c.Regs[RAX], c.Regs[RDX] = q.Int64(), r.Int64()
	return nil
}

func flagByte(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

// Run steps until ret, a fault, or the step limit.
func (c *CPU) Run() error {
	return c.RunTrace(nil)
}

// RunTrace is Run with onStep called after every instruction that executes
// without a fault. onStep may be nil.
func (c *CPU) RunTrace(onStep func(pc int, instr Instruction)) error {
	limit := c.MaxSteps
	if limit <= 0 {
		limit = DefaultMaxSteps
	}
	for !c.Halted {
		if c.Steps >= limit {
			return &Fault{PC: c.PC, Err: ErrStepLimit}
		}
		pc := c.PC
		if err := c.Step(); err != nil {
			return err
		}
		if onStep != nil {
			onStep(pc, c.program[pc])
		}
	}
	return nil
}
