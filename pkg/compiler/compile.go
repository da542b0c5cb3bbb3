package compiler

import (
	"context"
	"fmt"
	"runtime"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// DefaultEntry is the symbol the generated function is exported under.
const DefaultEntry = "main"

// Options controls rendering and logging. The zero value renders Intel
// syntax under DefaultEntry and logs nothing.
type Options struct {
	Target Target
	Entry  string
	Logger *zerolog.Logger
}

func (o Options) withDefaults() Options {
	if o.Target == nil {
		o.Target = IntelTarget{}
	}
	if o.Entry == "" {
		o.Entry = DefaultEntry
	}
	if o.Logger == nil {
		nop := zerolog.Nop()
		o.Logger = &nop
	}
	return o
}

// Result holds every stage's output for one expression.
type Result struct {
	Source   string
	Tokens   []Token
	Tree     Expr
	Instrs   []Instr
	Assembly string
}

// Compile runs the whole pipeline on src.
func Compile(src string, opts Options) (*Result, error) {
	opts = opts.withDefaults()
	log := opts.Logger.With().Str("target", opts.Target.Name()).Logger()

	tokens, err := Lex(src)
	if err != nil {
		log.Debug().Err(err).Msg("lex failed")
		return nil, err
	}
	log.Debug().Int("tokens", len(tokens)).Msg("lexed")

	tree, err := Parse(tokens)
	if err != nil {
		log.Debug().Err(err).Msg("parse failed")
		return nil, err
	}
	binaries, literals := CountNodes(tree)
	log.Debug().Int("binary", binaries).Int("literal", literals).Str("tree", tree.String()).Msg("parsed")

	instrs, err := Generate(tree)
	if err != nil {
		return nil, err
	}
	log.Debug().Int("instructions", len(instrs)).Msg("generated")

	assembly, err := opts.Target.Program(instrs, opts.Entry)
	if err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}

	return &Result{
		Source:   src,
		Tokens:   tokens,
		Tree:     tree,
		Instrs:   instrs,
		Assembly: assembly,
	}, nil
}

// BatchError identifies which input of a batch failed.
type BatchError struct {
	Index int // 0-based index into the batch
	Err   error
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("expression %d: %v", e.Index+1, e.Err)
}

func (e *BatchError) Unwrap() error { return e.Err }

// CompileBatch compiles independent expressions concurrently. Results are in
// input order. Every expression is compiled, and when several fail the one
// with the lowest index is returned as a *BatchError, so the report does not
// depend on scheduling. Cancelling ctx stops work not yet started.
func CompileBatch(ctx context.Context, srcs []string, opts Options) ([]*Result, error) {
	opts = opts.withDefaults()
	results := make([]*Result, len(srcs))
	errs := make([]error, len(srcs))

	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))

	for i, src := range srcs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			res, err := Compile(src, opts)
			if err != nil {
				errs[i] = err
				return nil
			}
			results[i] = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	for i, err := range errs {
		if err != nil {
			return nil, &BatchError{Index: i, Err: err}
		}
	}
	opts.Logger.Debug().Int("expressions", len(srcs)).Msg("batch compiled")
	return results, nil
}
