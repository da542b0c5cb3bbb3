// Command exprc compiles a single arithmetic expression to x86-64 assembly.
//
//	exprc '1+2*3'
//	exprc --syntax att -o out.s '(1+2)*3'
//	exprc run -- '-3+5'
package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/alecthomas/kong"
	"github.com/fatih/color"
	"github.com/rs/zerolog"

	"exprc/pkg/compiler"
	"exprc/pkg/config"
)

var (
	version = "dev"
	commit  = "none"
)

// Context is handed to every command's Run method.
type Context struct {
	Config *config.Config
	Logger zerolog.Logger
	Stdout io.Writer
	Stderr io.Writer
}

// CLI represents the command-line interface
type CLI struct {
	Config   string `help:"Configuration file path" default:"exprc.yaml"`
	LogLevel string `help:"Log level (debug, info, warn, error)" name:"log-level"`
	Verbose  bool   `help:"Enable debug logging" short:"v"`

	Compile  CompileCmd  `cmd:"" default:"withargs" help:"Compile an expression to assembly (default)"`
	Run      RunCmd      `cmd:"" help:"Compile an expression and execute it on the emulator"`
	Eval     EvalCmd     `cmd:"" help:"Evaluate an expression without generating code"`
	Batch    BatchCmd    `cmd:"" help:"Compile one expression per line of a file"`
	Exec     ExecCmd     `cmd:"" help:"Assemble an Intel-syntax file and execute it on the emulator"`
	Resume   ResumeCmd   `cmd:"" help:"Continue execution from a saved machine state"`
	Selftest SelftestCmd `cmd:"" help:"Run the sequence smoke test"`
	Version  VersionCmd  `cmd:"" help:"Show version information"`
}

// sourceError ties a compiler error to the text it came from so the caret
// can be drawn.
type sourceError struct {
	src string
	err error
}

func (e *sourceError) Error() string { return e.err.Error() }
func (e *sourceError) Unwrap() error { return e.err }

func newLogger(w io.Writer, level string, verbose bool) (zerolog.Logger, error) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return zerolog.Logger{}, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	if verbose {
		lvl = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: w, NoColor: color.NoColor}).
		With().Timestamp().Str("service", "exprc").Logger().
		Level(lvl), nil
}

// reportError prints err in red, with the failing offset marked when err
// carries one.
func reportError(w io.Writer, err error) {
	red := color.New(color.FgRed)
	red.Fprintf(w, "Error: %v\n", err)

	var srcErr *sourceError
	if errors.As(err, &srcErr) {
		if pos, ok := compiler.Position(err); ok {
			red.Fprintln(w, compiler.Caret(srcErr.src, pos))
		}
	}
}

// run parses args, executes the selected command and returns the exit code.
func run(args []string, stdout, stderr io.Writer) int {
	var cli CLI
	parser, err := kong.New(&cli,
		kong.Name("exprc"),
		kong.Description("Compile arithmetic expressions to x86-64 stack-machine assembly."),
		kong.Writers(stdout, stderr),
		kong.UsageOnError(),
	)
	if err != nil {
		reportError(stderr, err)
		return 1
	}

	kctx, err := parser.Parse(args)
	if err != nil {
		reportError(stderr, err)
		return 1
	}

	cfg, err := config.Load(cli.Config)
	if err != nil {
		reportError(stderr, fmt.Errorf("failed to load config: %w", err))
		return 1
	}

	level := cfg.LogLevel
	if cli.LogLevel != "" {
		level = cli.LogLevel
	}
	logger, err := newLogger(stderr, level, cli.Verbose)
	if err != nil {
		reportError(stderr, err)
		return 1
	}
	logger.Debug().Str("version", version).Str("command", kctx.Command()).Msg("starting")

	appCtx := &Context{
		Config: cfg,
		Logger: logger,
		Stdout: stdout,
		Stderr: stderr,
	}
	if err := kctx.Run(appCtx); err != nil {
		reportError(stderr, err)
		return 1
	}
	return 0
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}
