package compiler

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors. LexError and SyntaxError wrap one of these so callers can
// test the cause with errors.Is.
var (
	ErrUnexpectedCharacter = errors.New("unrecognized character")
	ErrLiteralOutOfRange   = errors.New("integer literal out of range")
	ErrExpectedPrimary     = errors.New("expected a number or '('")
	ErrUnmatchedParen      = errors.New("no closing parenthesis matches '('")
	ErrTrailingTokens      = errors.New("unexpected token after expression")

	ErrDivisionByZero   = errors.New("division by zero")
	ErrDivisionOverflow = errors.New("division overflow")
)

// LexError reports source text the tokenizer could not classify.
type LexError struct {
	Pos  int    // byte offset of the offending text
	Text string // source from Pos to end of input
	Err  error
}

func (e *LexError) Error() string {
	return fmt.Sprintf("lex error at offset %d: %v: %q", e.Pos, e.Err, e.Text)
}

func (e *LexError) Unwrap() error { return e.Err }

// SyntaxError reports a token that does not fit the grammar at the parser's
// current position.
type SyntaxError struct {
	Pos   int
	Token Token
	Err   error
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("syntax error at offset %d: %v, got %s", e.Pos, e.Err, e.Token.describe())
}

func (e *SyntaxError) Unwrap() error { return e.Err }

// Position extracts the source offset from a LexError or SyntaxError
// anywhere in err's chain.
func Position(err error) (int, bool) {
	var lexErr *LexError
	if errors.As(err, &lexErr) {
		return lexErr.Pos, true
	}
	var synErr *SyntaxError
	if errors.As(err, &synErr) {
		return synErr.Pos, true
	}
	return 0, false
}

// Caret renders src with a '^' under byte offset pos.
//
//	(1+2
//	    ^
func Caret(src string, pos int) string {
	if pos < 0 {
		pos = 0
	}
	if pos > len(src) {
		pos = len(src)
	}
	return fmt.Sprintf("  |> %s\n  |> %s^", src, strings.Repeat(" ", pos))
}
