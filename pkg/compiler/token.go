package compiler

import "fmt"

// TokenType identifies the category of a lexed token.
type TokenType int

const (
	EOF TokenType = iota // sentinel: end of input

	// Literals
	INTEGER // decimal integer literal

	// Paired delimiters
	LPAREN // (
	RPAREN // )

	// Arithmetic operators
	PLUS  // +
	MINUS // -
	STAR  // *
	SLASH // /

	// Comparison
	EQUALS // ==
	NOT_EQ // !=
)

// tokenNames is indexed by TokenType.
var tokenNames = [...]string{
	EOF:     "EOF",
	INTEGER: "INTEGER",
	LPAREN:  "LPAREN",
	RPAREN:  "RPAREN",
	PLUS:    "PLUS",
	MINUS:   "MINUS",
	STAR:    "STAR",
	SLASH:   "SLASH",
	EQUALS:  "EQUALS",
	NOT_EQ:  "NOT_EQ",
}

func (tt TokenType) String() string {
	if int(tt) >= 0 && int(tt) < len(tokenNames) {
		return tokenNames[tt]
	}
	return fmt.Sprintf("TokenType(%d)", int(tt))
}

// Token is a single lexical unit produced by the Lexer.
type Token struct {
	Type   TokenType
	Lexeme string // the exact source text that was matched
	Value  int64  // numeric value, INTEGER only
	Pos    int    // byte offset into the source
}

func (t Token) String() string {
	return fmt.Sprintf("%-8s %-8q  offset %d", t.Type, t.Lexeme, t.Pos)
}

// describe renders a token for error messages.
func (t Token) describe() string {
	if t.Type == EOF {
		return "end of input"
	}
	return fmt.Sprintf("%s (%q)", t.Type, t.Lexeme)
}
