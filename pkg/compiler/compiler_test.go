package compiler

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompile(t *testing.T) {
	res, err := Compile("2*(3+4)", Options{})
	require.NoError(t, err)

	assert.Equal(t, "2*(3+4)", res.Source)
	assert.Len(t, res.Tokens, 8) // 7 tokens plus EOF
	assert.Equal(t, "(2 * (3 + 4))", res.Tree.String())
	assert.Len(t, res.Instrs, 3+4*2)
	assert.True(t, strings.HasPrefix(res.Assembly, ".intel_syntax noprefix\n.globl main\nmain:\n"))
	assert.True(t, strings.HasSuffix(res.Assembly, "  pop rax\n  ret\n"))
}

func TestCompileOptions(t *testing.T) {
	res, err := Compile("1", Options{Target: ATTTarget{}, Entry: "calc"})
	require.NoError(t, err)
	assert.Equal(t, ".globl calc\ncalc:\n  pushq $1\n  popq %rax\n  ret\n", res.Assembly)
}

func TestCompileErrors(t *testing.T) {
	tests := []struct {
		input string
		cause error
	}{
		{"", ErrExpectedPrimary},
		{"1 ? 2", ErrUnexpectedCharacter},
		{"(1", ErrUnmatchedParen},
		{"1)", ErrTrailingTokens},
		{"99999999999999999999", ErrLiteralOutOfRange},
	}
	for _, tt := range tests {
		_, err := Compile(tt.input, Options{})
		assert.ErrorIs(t, err, tt.cause, "input %q", tt.input)
	}
}

func TestCompileLogging(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf).Level(zerolog.DebugLevel)

	_, err := Compile("1+2", Options{Logger: &logger})
	require.NoError(t, err)

	out := buf.String()
	for _, msg := range []string{`"message":"lexed"`, `"message":"parsed"`, `"message":"generated"`} {
		assert.Contains(t, out, msg)
	}
	assert.Contains(t, out, `"target":"intel"`)
	assert.Contains(t, out, `"tree":"(1 + 2)"`)

	buf.Reset()
	_, err = Compile("1+", Options{Logger: &logger})
	require.Error(t, err)
	assert.Contains(t, buf.String(), `"message":"parse failed"`)
}

func TestCompileBatch(t *testing.T) {
	srcs := make([]string, 50)
	for i := range srcs {
		srcs[i] = fmt.Sprintf("%d*2", i)
	}

	results, err := CompileBatch(context.Background(), srcs, Options{})
	require.NoError(t, err)
	require.Len(t, results, len(srcs))

	for i, res := range results {
		require.NotNil(t, res)
		assert.Equal(t, srcs[i], res.Source)
		v, err := Eval(res.Tree)
		require.NoError(t, err)
		assert.Equal(t, int64(i*2), v)
	}
}

func TestCompileBatchError(t *testing.T) {
	srcs := []string{"1", "2+", "3"}

	_, err := CompileBatch(context.Background(), srcs, Options{})
	require.Error(t, err)

	var batchErr *BatchError
	require.True(t, errors.As(err, &batchErr))
	assert.Equal(t, 1, batchErr.Index)
	assert.ErrorIs(t, err, ErrExpectedPrimary)
	assert.True(t, strings.HasPrefix(err.Error(), "expression 2: "))
}

// With many failures spread across the batch, the lowest index is always
// the one reported.
func TestCompileBatchReportsLowestIndex(t *testing.T) {
	srcs := make([]string, 200)
	for i := range srcs {
		srcs[i] = fmt.Sprintf("%d+1", i)
	}
	for _, i := range []int{37, 38, 120, 199} {
		srcs[i] = "(" + srcs[i]
	}

	for run := 0; run < 20; run++ {
		_, err := CompileBatch(context.Background(), srcs, Options{})
		var batchErr *BatchError
		require.ErrorAs(t, err, &batchErr)
		assert.Equal(t, 37, batchErr.Index)
		assert.ErrorIs(t, err, ErrUnmatchedParen)
	}
}

func TestCompileBatchCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := CompileBatch(ctx, []string{"1", "2"}, Options{})
	assert.ErrorIs(t, err, context.Canceled)
}
