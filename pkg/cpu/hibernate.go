package cpu

import (
	"fmt"
	"os"

	"github.com/goccy/go-yaml"
)

// instructionState is the YAML form of one Instruction.
type instructionState struct {
	Op  string `yaml:"op"`
	Dst string `yaml:"dst,omitempty"`
	Src string `yaml:"src,omitempty"`
	Imm int64  `yaml:"imm,omitempty"`
}

// machineState is the YAML-serializable snapshot of the whole machine.
type machineState struct {
	RAX      int64              `yaml:"rax"`
	RDI      int64              `yaml:"rdi"`
	RDX      int64              `yaml:"rdx"`
	PC       int                `yaml:"pc"`
	Z        bool               `yaml:"z"`
	Halted   bool               `yaml:"halted"`
	Steps    int                `yaml:"steps"`
	MaxSteps int                `yaml:"max_steps"`
	MaxDepth int                `yaml:"max_depth"`
	Stack    []int64            `yaml:"stack"`
	Program  []instructionState `yaml:"program"`
}

var opcodesByName = func() map[string][]Opcode {
	m := make(map[string][]Opcode)
	for op, name := range opNames {
		m[name] = append(m[name], Opcode(op))
	}
	return m
}()

var registersByName = map[string]Register{"rax": RAX, "rdi": RDI, "rdx": RDX, "al": AL}

// operandShape reports which fields an opcode uses.
func operandShape(op Opcode) (dst, src, imm bool) {
	switch op {
	case OpPUSHI:
		return false, false, true
	case OpMOVI:
		return true, false, true
	case OpPUSH, OpPOP, OpIDIV, OpSETE, OpSETNE:
		return true, false, false
	case OpMOV, OpADD, OpSUB, OpIMUL, OpCMP, OpMOVZX:
		return true, true, false
	}
	return false, false, false
}

func encodeInstruction(in Instruction) instructionState {
	s := instructionState{Op: in.Op.String()}
	dst, src, imm := operandShape(in.Op)
	if dst {
		s.Dst = in.Dst.String()
	}
	if src {
		s.Src = in.Src.String()
	}
	if imm {
		s.Imm = in.Imm
	}
	return s
}

// decodeInstruction picks the opcode variant matching the operands present:
// "push" with a register is OpPUSH, without one OpPUSHI.
func decodeInstruction(s instructionState) (Instruction, error) {
	candidates, ok := opcodesByName[s.Op]
	if !ok {
		return Instruction{}, fmt.Errorf("unknown opcode %q", s.Op)
	}
	for _, op := range candidates {
		dst, src, _ := operandShape(op)
		if dst != (s.Dst != "") || src != (s.Src != "") {
			continue
		}
		in := Instruction{Op: op, Imm: s.Imm}
		if dst {
			r, ok := registersByName[s.Dst]
			if !ok {
				return Instruction{}, fmt.Errorf("unknown register %q", s.Dst)
			}
			in.Dst = r
		}
		if src {
			r, ok := registersByName[s.Src]
			if !ok {
				return Instruction{}, fmt.Errorf("unknown register %q", s.Src)
			}
			in.Src = r
		}
		return in, nil
	}
	return Instruction{}, fmt.Errorf("bad operands for %q", s.Op)
}

// HibernateToBytes serialises the complete machine state, program included,
// as a YAML document.
func (c *CPU) HibernateToBytes() ([]byte, error) {
	state := machineState{
		RAX:      c.Regs[RAX],
		RDI:      c.Regs[RDI],
		RDX:      c.Regs[RDX],
		PC:       c.PC,
		Z:        c.Z,
		Halted:   c.Halted,
		Steps:    c.Steps,
		MaxSteps: c.MaxSteps,
		MaxDepth: c.MaxDepth,
		Stack:    append([]int64{}, c.Stack...),
	}
	for _, in := range c.program {
		state.Program = append(state.Program, encodeInstruction(in))
	}

	data, err := yaml.Marshal(state)
	if err != nil {
		return nil, fmt.Errorf("hibernate: %w", err)
	}
	return data, nil
}

// RestoreFromBytes replaces the machine state with a snapshot written by
// HibernateToBytes.
func (c *CPU) RestoreFromBytes(data []byte) error {
	var state machineState
	if err := yaml.UnmarshalWithOptions(data, &state, yaml.Strict()); err != nil {
		return fmt.Errorf("restore: %w", err)
	}

	program := make([]Instruction, 0, len(state.Program))
	for i, s := range state.Program {
		in, err := decodeInstruction(s)
		if err != nil {
			return fmt.Errorf("restore: instruction %d: %w", i, err)
		}
		program = append(program, in)
	}

	*c = CPU{
		Regs:     [3]int64{state.RAX, state.RDI, state.RDX},
		PC:       state.PC,
		Stack:    state.Stack,
		Z:        state.Z,
		Halted:   state.Halted,
		Steps:    state.Steps,
		MaxSteps: state.MaxSteps,
		MaxDepth: state.MaxDepth,
		program:  program,
	}
	return nil
}

// HibernateToFile writes the snapshot to path.
func (c *CPU) HibernateToFile(path string) error {
	data, err := c.HibernateToBytes()
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// RestoreFromFile loads a snapshot from path.
func (c *CPU) RestoreFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("restore: %w", err)
	}
	return c.RestoreFromBytes(data)
}
