package compiler

import (
	"errors"
	"strconv"
)

// singleCharTokens maps one-byte punctuation to its TokenType.
var singleCharTokens = map[byte]TokenType{
	'+': PLUS,
	'-': MINUS,
	'*': STAR,
	'/': SLASH,
	'(': LPAREN,
	')': RPAREN,
}

// Lexer holds all mutable state for a single scanning pass over src.
type Lexer struct {
	src string
	pos int // offset of the next byte to consume
}

func newLexer(src string) *Lexer {
	return &Lexer{src: src}
}

// peek returns the byte at the current position without advancing.
func (l *Lexer) peek() byte {
	if l.pos >= len(l.src) {
		return 0
	}
	return l.src[l.pos]
}

// peek2 returns the byte one position ahead of the current position.
func (l *Lexer) peek2() byte {
	if l.pos+1 >= len(l.src) {
		return 0
	}
	return l.src[l.pos+1]
}

// isSpace reports ASCII whitespace only; bytes of 0x80 and above are never
// skipped.
func isSpace(b byte) bool {
	switch b {
	case ' ', '\t', '\n', '\v', '\f', '\r':
		return true
	}
	return false
}

func (l *Lexer) skipWhitespace() {
	for l.pos < len(l.src) && isSpace(l.peek()) {
		l.pos++
	}
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

// scanInt collects the longest run of decimal digits.
// The first digit must still be at l.peek().
func (l *Lexer) scanInt() (Token, error) {
	start := l.pos
	for l.pos < len(l.src) && isDigit(l.peek()) {
		l.pos++
	}
	lexeme := l.src[start:l.pos]
	val, err := strconv.ParseInt(lexeme, 10, 64)
	if err != nil {
		if errors.Is(err, strconv.ErrRange) {
			return Token{}, &LexError{Pos: start, Text: l.src[start:], Err: ErrLiteralOutOfRange}
		}
		return Token{}, &LexError{Pos: start, Text: l.src[start:], Err: err}
	}
	return Token{Type: INTEGER, Lexeme: lexeme, Value: val, Pos: start}, nil
}

func (l *Lexer) errorHere() error {
	return &LexError{Pos: l.pos, Text: l.src[l.pos:], Err: ErrUnexpectedCharacter}
}

// next scans one token. Whitespace must already be skipped.
func (l *Lexer) next() (Token, error) {
	start := l.pos
	ch := l.peek()

	switch {
	case isDigit(ch):
		return l.scanInt()

	case ch == '=' || ch == '!':
		if l.peek2() != '=' {
			return Token{}, l.errorHere()
		}
		l.pos += 2
		tt := EQUALS
		if ch == '!' {
			tt = NOT_EQ
		}
		return Token{Type: tt, Lexeme: l.src[start:l.pos], Pos: start}, nil
	}

	if tt, ok := singleCharTokens[ch]; ok {
		l.pos++
		return Token{Type: tt, Lexeme: l.src[start:l.pos], Pos: start}, nil
	}
	return Token{}, l.errorHere()
}

// Lex converts src into a flat slice of tokens terminated by EOF.
// The EOF token's position is len(src).
func Lex(src string) ([]Token, error) {
	l := newLexer(src)
	var tokens []Token

	for {
		l.skipWhitespace()
		if l.pos >= len(l.src) {
			break
		}
		tok, err := l.next()
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, tok)
	}

	tokens = append(tokens, Token{Type: EOF, Pos: l.pos})
	return tokens, nil
}
