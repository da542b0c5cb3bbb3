package compiler

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCaret(t *testing.T) {
	assert.Equal(t, "  |> (1+2\n  |>     ^", Caret("(1+2", 4))
	assert.Equal(t, "  |> 1 $\n  |>   ^", Caret("1 $", 2))
	assert.Equal(t, "  |> 1\n  |>  ^", Caret("1", 99))
	assert.Equal(t, "  |> 1\n  |> ^", Caret("1", -3))
}

func TestPosition(t *testing.T) {
	_, err := Lex("1 + @")
	pos, ok := Position(err)
	assert.True(t, ok)
	assert.Equal(t, 4, pos)

	_, err = parseString(t, "(1+2")
	pos, ok = Position(fmt.Errorf("compile: %w", err))
	assert.True(t, ok)
	assert.Equal(t, 4, pos)

	_, ok = Position(errors.New("plain"))
	assert.False(t, ok)
}

func TestErrorMessages(t *testing.T) {
	_, err := Lex("1 # 2")
	assert.EqualError(t, err, `lex error at offset 2: unrecognized character: "# 2"`)

	_, err = parseString(t, "1 2")
	assert.EqualError(t, err, `syntax error at offset 2: unexpected token after expression, got INTEGER ("2")`)

	_, err = parseString(t, "1+")
	assert.EqualError(t, err, "syntax error at offset 2: expected a number or '(', got end of input")
}
