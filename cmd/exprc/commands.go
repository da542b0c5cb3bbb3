package main

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"

	"exprc/pkg/asm"
	"exprc/pkg/compiler"
	"exprc/pkg/cpu"
	"exprc/pkg/selftest"
)

var ErrUnknownEmit = errors.New("unknown emit kind (want asm, tokens, ast or ir)")

// compileOptions resolves the target and entry: flags win over config.
func compileOptions(ctx *Context, syntax, entry string) (compiler.Options, error) {
	if syntax == "" {
		syntax = ctx.Config.Syntax
	}
	if entry == "" {
		entry = ctx.Config.Entry
	}
	target, err := compiler.LookupTarget(syntax)
	if err != nil {
		return compiler.Options{}, err
	}
	return compiler.Options{Target: target, Entry: entry, Logger: &ctx.Logger}, nil
}

func compileSource(src string, opts compiler.Options) (*compiler.Result, error) {
	res, err := compiler.Compile(src, opts)
	if err != nil {
		return nil, &sourceError{src: src, err: err}
	}
	return res, nil
}

func writeOutput(ctx *Context, path string, data []byte) error {
	if path == "" || path == "-" {
		_, err := ctx.Stdout.Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	ctx.Logger.Info().Str("path", path).Int("bytes", len(data)).Msg("wrote output")
	return nil
}

// CompileCmd represents the compile command
type CompileCmd struct {
	Expr   string `arg:"" help:"Expression to compile. Put '--' before expressions starting with '-'."`
	Syntax string `help:"Assembly syntax (intel, att)"`
	Entry  string `help:"Symbol the function is exported under"`
	Emit   string `help:"What to print (asm, tokens, ast, ir)"`
	Output string `short:"o" help:"Write to file instead of stdout"`
}

func (c *CompileCmd) Run(ctx *Context) error {
	opts, err := compileOptions(ctx, c.Syntax, c.Entry)
	if err != nil {
		return err
	}
	res, err := compileSource(c.Expr, opts)
	if err != nil {
		return err
	}

	emit := c.Emit
	if emit == "" {
		emit = ctx.Config.Emit
	}

	var out bytes.Buffer
	switch emit {
	case "asm":
		out.WriteString(res.Assembly)
	case "tokens":
		for _, tok := range res.Tokens {
			fmt.Fprintln(&out, tok)
		}
	case "ast":
		fmt.Fprintln(&out, res.Tree)
	case "ir":
		out.WriteString(compiler.FormatIR(res.Instrs))
	default:
		return fmt.Errorf("%w: %q", ErrUnknownEmit, emit)
	}
	return writeOutput(ctx, c.Output, out.Bytes())
}

// RunCmd represents the run command
type RunCmd struct {
	Expr  string `arg:"" help:"Expression to execute"`
	Trace bool   `help:"Log every executed instruction"`
}

func (c *RunCmd) Run(ctx *Context) error {
	opts, err := compileOptions(ctx, "intel", "")
	if err != nil {
		return err
	}
	res, err := compileSource(c.Expr, opts)
	if err != nil {
		return err
	}

	prog, err := asm.Assemble(res.Assembly)
	if err != nil {
		return fmt.Errorf("assemble: %w", err)
	}

	machine := cpu.NewCPU()
	prog.LoadInto(machine)
	if err := execute(ctx, machine, prog.SourceMap, c.Trace, ""); err != nil {
		return fmt.Errorf("run: %w", err)
	}

	ctx.Logger.Debug().
		Int("steps", machine.Steps).
		Int("max_depth", machine.MaxDepth).
		Msg("executed")
	_, err = fmt.Fprintln(ctx.Stdout, machine.Result())
	return err
}

// trace runs machine, writing one line per executed instruction to
// stderr. lines maps instruction index to source line and may be nil.
func trace(ctx *Context, machine *cpu.CPU, lines map[int]int) error {
	return machine.RunTrace(func(pc int, instr cpu.Instruction) {
		fmt.Fprintf(ctx.Stderr, "%4d  line %-3d %-16s depth=%d rax=%d\n",
			pc, lines[pc], instr, machine.Depth(), machine.Regs[cpu.RAX])
	})
}

// execute runs machine to completion, tracing if asked, and snapshots the
// final state to hibernate when it is non-empty.
func execute(ctx *Context, machine *cpu.CPU, lines map[int]int, tracing bool, hibernate string) error {
	var err error
	if tracing {
		err = trace(ctx, machine, lines)
	} else {
		err = machine.Run()
	}
	if hibernate != "" {
		if herr := machine.HibernateToFile(hibernate); herr != nil {
			return herr
		}
		ctx.Logger.Info().Str("path", hibernate).Msg("machine state saved")
	}
	return err
}

// EvalCmd represents the eval command
type EvalCmd struct {
	Expr string `arg:"" help:"Expression to evaluate"`
}

func (c *EvalCmd) Run(ctx *Context) error {
	tokens, err := compiler.Lex(c.Expr)
	if err != nil {
		return &sourceError{src: c.Expr, err: err}
	}
	tree, err := compiler.Parse(tokens)
	if err != nil {
		return &sourceError{src: c.Expr, err: err}
	}
	value, err := compiler.Eval(tree)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(ctx.Stdout, value)
	return err
}

// BatchCmd represents the batch command
type BatchCmd struct {
	File   string `arg:"" help:"File with one expression per line" type:"existingfile"`
	Syntax string `help:"Assembly syntax (intel, att)"`
	Output string `short:"o" help:"Write to file instead of stdout"`
}

type batchLine struct {
	lineNo int
	src    string
}

// readBatch returns the non-blank, non-comment lines of path.
func readBatch(path string) ([]batchLine, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open batch file: %w", err)
	}
	defer f.Close()

	var lines []batchLine
	scanner := bufio.NewScanner(f)
	for n := 1; scanner.Scan(); n++ {
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		lines = append(lines, batchLine{lineNo: n, src: text})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read batch file: %w", err)
	}
	return lines, nil
}

func (c *BatchCmd) Run(ctx *Context) error {
	lines, err := readBatch(c.File)
	if err != nil {
		return err
	}
	opts, err := compileOptions(ctx, c.Syntax, "")
	if err != nil {
		return err
	}

	srcs := make([]string, len(lines))
	for i, l := range lines {
		srcs[i] = l.src
	}

	results, err := compiler.CompileBatch(context.Background(), srcs, opts)
	if err != nil {
		var batchErr *compiler.BatchError
		if errors.As(err, &batchErr) {
			l := lines[batchErr.Index]
			return fmt.Errorf("%s:%d: %w", c.File, l.lineNo, &sourceError{src: l.src, err: batchErr.Err})
		}
		return err
	}

	var out bytes.Buffer
	for i, res := range results {
		if i > 0 {
			out.WriteByte('\n')
		}
		fmt.Fprintf(&out, "# line %d: %s\n", lines[i].lineNo, res.Source)
		out.WriteString(res.Assembly)
	}
	if err := writeOutput(ctx, c.Output, out.Bytes()); err != nil {
		return err
	}

	ctx.Logger.Info().Int("expressions", len(results)).Str("file", c.File).Msg("batch compiled")
	return nil
}

// ExecCmd represents the exec command
type ExecCmd struct {
	File      string `arg:"" help:"Assembly file, as written by compile --syntax intel" type:"existingfile"`
	MaxSteps  int    `help:"Abort after this many instructions (0 for the default)" default:"0"`
	Trace     bool   `help:"Log every executed instruction"`
	Hibernate string `help:"Write the final machine state to this YAML file"`
}

func (c *ExecCmd) Run(ctx *Context) error {
	source, err := os.ReadFile(c.File)
	if err != nil {
		return fmt.Errorf("failed to read input file %q: %w", c.File, err)
	}
	prog, err := asm.Assemble(string(source))
	if err != nil {
		return fmt.Errorf("%s: %w", c.File, err)
	}
	ctx.Logger.Debug().
		Int("instructions", len(prog.Instructions)).
		Int("entry", prog.Entry).
		Msg("assembled")

	machine := cpu.NewCPU()
	machine.MaxSteps = c.MaxSteps
	prog.LoadInto(machine)
	if err := execute(ctx, machine, prog.SourceMap, c.Trace, c.Hibernate); err != nil {
		var fault *cpu.Fault
		if errors.As(err, &fault) && !errors.Is(fault.Err, cpu.ErrStepLimit) && !errors.Is(fault.Err, cpu.ErrNoReturn) {
			return fmt.Errorf("%s:%d: %w", c.File, prog.SourceMap[fault.PC], err)
		}
		return fmt.Errorf("%s: %w", c.File, err)
	}
	_, err = fmt.Fprintln(ctx.Stdout, machine.Result())
	return err
}

// ResumeCmd represents the resume command
type ResumeCmd struct {
	State     string `arg:"" help:"Snapshot written by exec --hibernate" type:"existingfile"`
	MaxSteps  int    `help:"New step budget, counted from the start of the original run (0 for the default)" default:"0"`
	Trace     bool   `help:"Log every executed instruction"`
	Hibernate string `help:"Write the final machine state to this YAML file"`
}

func (c *ResumeCmd) Run(ctx *Context) error {
	machine := cpu.NewCPU()
	if err := machine.RestoreFromFile(c.State); err != nil {
		return err
	}
	machine.MaxSteps = c.MaxSteps
	ctx.Logger.Debug().Int("pc", machine.PC).Int("depth", machine.Depth()).Msg("restored")

	if err := execute(ctx, machine, nil, c.Trace, c.Hibernate); err != nil {
		return fmt.Errorf("%s: %w", c.State, err)
	}
	_, err := fmt.Fprintln(ctx.Stdout, machine.Result())
	return err
}

// SelftestCmd represents the selftest command
type SelftestCmd struct{}

func (c *SelftestCmd) Run(ctx *Context) error {
	return selftest.Run(ctx.Stdout)
}

// VersionCmd represents the version command
type VersionCmd struct{}

func (c *VersionCmd) Run(ctx *Context) error {
	_, err := fmt.Fprintf(ctx.Stdout, "exprc %s (%s)\n", version, color.CyanString(commit))
	return err
}
