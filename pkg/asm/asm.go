package asm

import (
	"exprc/pkg/cpu"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"
)

var zeroOperandOps = map[string]cpu.Opcode{
	"NOP": cpu.OpNOP,
	"CQO": cpu.OpCQO,
	"RET": cpu.OpRET,
}

var oneRegisterOps = map[string]cpu.Opcode{
	"POP":  cpu.OpPOP,
	"IDIV": cpu.OpIDIV,
}

var byteRegisterOps = map[string]cpu.Opcode{
	"SETE":  cpu.OpSETE,
	"SETNE": cpu.OpSETNE,
}

var twoRegisterOps = map[string]cpu.Opcode{
	"ADD":  cpu.OpADD,
	"SUB":  cpu.OpSUB,
	"IMUL": cpu.OpIMUL,
	"CMP":  cpu.OpCMP,
}

var registers = map[string]cpu.Register{
	"RAX": cpu.RAX,
	"RDI": cpu.RDI,
	"RDX": cpu.RDX,
	"AL":  cpu.AL,
}

// Program is the output of Assemble.
type Program struct {
	Instructions []cpu.Instruction
	// Entry is the index of the instruction at the exported label, or 0.
	Entry  int
	Labels map[string]int
	// SourceMap maps instruction index to 1-based source line.
	SourceMap map[int]int
}

// LoadInto installs the program on c at its entry point.
func (p *Program) LoadInto(c *cpu.CPU) {
	c.Load(p.Instructions, p.Entry)
}

type Assembler struct {
	labels map[string]int
	global string
}

type parsedLine struct {
	lineNo   int
	labels   []string
	mnemonic string
	operands []string
}

func NewAssembler() *Assembler {
	return &Assembler{
		labels: make(map[string]int),
	}
}

// Assemble parses Intel-syntax x86-64 text in the subset the compiler emits.
func Assemble(code string) (*Program, error) {
	return NewAssembler().Assemble(code)
}

func (a *Assembler) Assemble(code string) (*Program, error) {
	lines := strings.Split(code, "\n")

	parsed, err := a.pass1(lines)
	if err != nil {
		return nil, err
	}

	return a.pass2(parsed)
}

// pass1 parses every line, handles directives and records label positions.
func (a *Assembler) pass1(lines []string) ([]parsedLine, error) {
	var out []parsedLine
	index := 0

	for i, raw := range lines {
		p, err := parseLine(raw, i+1)
		if err != nil {
			return nil, err
		}

		for _, label := range p.labels {
			key := normalizeLabel(label)
			if _, dup := a.labels[key]; dup {
				return nil, fmt.Errorf("duplicate label '%s' on line %d", label, p.lineNo)
			}
			a.labels[key] = index
		}

		if strings.HasPrefix(p.mnemonic, ".") {
			if err := a.directive(p); err != nil {
				return nil, err
			}
			continue
		}

		if p.mnemonic != "" {
			out = append(out, p)
			index++
		}
	}
	return out, nil
}

func (a *Assembler) directive(p parsedLine) error {
	switch p.mnemonic {
	case ".INTEL_SYNTAX":
		if len(p.operands) > 0 && !strings.EqualFold(p.operands[0], "noprefix") {
			return fmt.Errorf("only noprefix Intel syntax is supported (line %d)", p.lineNo)
		}
	case ".ATT_SYNTAX":
		return fmt.Errorf("AT&T syntax is not supported (line %d)", p.lineNo)
	case ".GLOBL", ".GLOBAL":
		if len(p.operands) != 1 {
			return fmt.Errorf("%s expects exactly one operand on line %d", strings.ToLower(p.mnemonic), p.lineNo)
		}
		a.global = p.operands[0]
	case ".TEXT":
	default:
		return fmt.Errorf("unknown directive '%s' on line %d", strings.ToLower(p.mnemonic), p.lineNo)
	}
	return nil
}

func (a *Assembler) pass2(lines []parsedLine) (*Program, error) {
	prog := &Program{
		Labels:    a.labels,
		SourceMap: make(map[int]int, len(lines)),
	}

	for _, p := range lines {
		instr, err := encode(p)
		if err != nil {
			return nil, err
		}
		prog.SourceMap[len(prog.Instructions)] = p.lineNo
		prog.Instructions = append(prog.Instructions, instr)
	}

	if a.global != "" {
		entry, ok := a.labels[normalizeLabel(a.global)]
		if !ok {
			return nil, fmt.Errorf("undefined global label '%s'", a.global)
		}
		prog.Entry = entry
	}

	return prog, nil
}

func encode(p parsedLine) (cpu.Instruction, error) {
	m := p.mnemonic

	if op, ok := zeroOperandOps[m]; ok {
		if err := wantOperands(p, 0); err != nil {
			return cpu.Instruction{}, err
		}
		return cpu.Instruction{Op: op}, nil
	}

	if op, ok := oneRegisterOps[m]; ok {
		if err := wantOperands(p, 1); err != nil {
			return cpu.Instruction{}, err
		}
		dst, err := parseRegister64(p.operands[0], p.lineNo)
		return cpu.Instruction{Op: op, Dst: dst}, err
	}

	if op, ok := byteRegisterOps[m]; ok {
		if err := wantOperands(p, 1); err != nil {
			return cpu.Instruction{}, err
		}
		dst, err := parseRegister8(p.operands[0], p.lineNo)
		return cpu.Instruction{Op: op, Dst: dst}, err
	}

	if op, ok := twoRegisterOps[m]; ok {
		if err := wantOperands(p, 2); err != nil {
			return cpu.Instruction{}, err
		}
		dst, err := parseRegister64(p.operands[0], p.lineNo)
		if err != nil {
			return cpu.Instruction{}, err
		}
		src, err := parseRegister64(p.operands[1], p.lineNo)
		return cpu.Instruction{Op: op, Dst: dst, Src: src}, err
	}

	switch m {
	case "PUSH":
		if err := wantOperands(p, 1); err != nil {
			return cpu.Instruction{}, err
		}
		if isRegister(p.operands[0]) {
			dst, err := parseRegister64(p.operands[0], p.lineNo)
			return cpu.Instruction{Op: cpu.OpPUSH, Dst: dst}, err
		}
		imm, err := parseImmediate(p.operands[0], p.lineNo)
		if err != nil {
			return cpu.Instruction{}, err
		}
		if imm < math.MinInt32 || imm > math.MaxInt32 {
			return cpu.Instruction{}, fmt.Errorf("push immediate out of 32-bit range on line %d: %s", p.lineNo, p.operands[0])
		}
		return cpu.Instruction{Op: cpu.OpPUSHI, Imm: imm}, nil

	case "MOV":
		if err := wantOperands(p, 2); err != nil {
			return cpu.Instruction{}, err
		}
		dst, err := parseRegister64(p.operands[0], p.lineNo)
		if err != nil {
			return cpu.Instruction{}, err
		}
		if isRegister(p.operands[1]) {
			src, err := parseRegister64(p.operands[1], p.lineNo)
			return cpu.Instruction{Op: cpu.OpMOV, Dst: dst, Src: src}, err
		}
		imm, err := parseImmediate(p.operands[1], p.lineNo)
		return cpu.Instruction{Op: cpu.OpMOVI, Dst: dst, Imm: imm}, err

	case "MOVZX":
		if err := wantOperands(p, 2); err != nil {
			return cpu.Instruction{}, err
		}
		dst, err := parseRegister64(p.operands[0], p.lineNo)
		if err != nil {
			return cpu.Instruction{}, err
		}
		src, err := parseRegister8(p.operands[1], p.lineNo)
		return cpu.Instruction{Op: cpu.OpMOVZX, Dst: dst, Src: src}, err
	}

	return cpu.Instruction{}, fmt.Errorf("unknown instruction '%s' on line %d", strings.ToLower(m), p.lineNo)
}

func wantOperands(p parsedLine, n int) error {
	if len(p.operands) != n {
		return fmt.Errorf("%s expects %d operand(s), got %d on line %d", strings.ToLower(p.mnemonic), n, len(p.operands), p.lineNo)
	}
	return nil
}

func parseLine(raw string, lineNo int) (parsedLine, error) {
	p := parsedLine{lineNo: lineNo}

	line := strings.TrimSpace(stripComments(raw))
	if line == "" {
		return p, nil
	}

	for {
		colon := strings.IndexByte(line, ':')
		if colon <= 0 {
			break
		}

		beforeColon := strings.TrimSpace(line[:colon])
		if strings.ContainsAny(beforeColon, " \t") {
			break
		}

		if !isIdentifier(beforeColon) {
			return p, fmt.Errorf("invalid label '%s' on line %d", beforeColon, lineNo)
		}

		p.labels = append(p.labels, beforeColon)
		line = strings.TrimSpace(line[colon+1:])
		if line == "" {
			return p, nil
		}
	}

	fields := strings.Fields(normalizeInstructionText(line))
	if len(fields) == 0 {
		return p, nil
	}

	p.mnemonic = strings.ToUpper(fields[0])
	if len(fields) > 1 {
		p.operands = fields[1:]
	}
	return p, nil
}

func stripComments(line string) string {
	cut := -1
	for _, marker := range []string{"#", ";", "//"} {
		if i := strings.Index(line, marker); i >= 0 && (cut == -1 || i < cut) {
			cut = i
		}
	}
	if cut >= 0 {
		return line[:cut]
	}
	return line
}

func normalizeInstructionText(line string) string {
	return strings.ReplaceAll(line, ",", " ")
}

func isRegister(token string) bool {
	_, ok := registers[strings.ToUpper(token)]
	return ok
}

func parseRegister64(token string, lineNo int) (cpu.Register, error) {
	r, ok := registers[strings.ToUpper(token)]
	if !ok || r.Is8Bit() {
		return 0, fmt.Errorf("invalid register '%s' on line %d", token, lineNo)
	}
	return r, nil
}

func parseRegister8(token string, lineNo int) (cpu.Register, error) {
	r, ok := registers[strings.ToUpper(token)]
	if !ok || !r.Is8Bit() {
		return 0, fmt.Errorf("invalid byte register '%s' on line %d", token, lineNo)
	}
	return r, nil
}

func parseImmediate(token string, lineNo int) (int64, error) {
	value, err := strconv.ParseInt(token, 0, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid immediate '%s' on line %d", token, lineNo)
	}
	return value, nil
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}

	for i, r := range s {
		if i == 0 {
			if !unicode.IsLetter(r) && r != '_' && r != '.' {
				return false
			}
			continue
		}

		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' && r != '.' {
			return false
		}
	}

	return true
}

func normalizeLabel(label string) string {
	return strings.ToUpper(label)
}
