package compiler

// Parser consumes the flat token slice produced by the Lexer and builds an
// expression tree. One Parser serves one Parse call.
//
// Grammar (all binary operators left-associative):
//
//	equality       = additive (("==" | "!=") additive)*
//	additive       = multiplicative (("+" | "-") multiplicative)*
//	multiplicative = unary (("*" | "/") unary)*
//	unary          = ("+" | "-")? primary
//	primary        = INTEGER | "(" equality ")"
type Parser struct {
	tokens []Token
	pos    int
}

func NewParser(tokens []Token) *Parser {
	return &Parser{tokens: tokens}
}

func (p *Parser) fmtError(tok Token, err error) error {
	return &SyntaxError{Pos: tok.Pos, Token: tok, Err: err}
}

// peek returns the current token without consuming it.
func (p *Parser) peek() Token {
	if p.pos >= len(p.tokens) {
		return p.eof()
	}
	return p.tokens[p.pos]
}

// eof synthesizes an EOF token positioned after the last real token, for
// token slices that were not produced by Lex.
func (p *Parser) eof() Token {
	if n := len(p.tokens); n > 0 {
		last := p.tokens[n-1]
		return Token{Type: EOF, Pos: last.Pos + len(last.Lexeme)}
	}
	return Token{Type: EOF}
}

// advance consumes and returns the current token.
func (p *Parser) advance() Token {
	tok := p.peek()
	if p.pos < len(p.tokens) {
		p.pos++
	}
	return tok
}

// match consumes the current token if it is one of types.
func (p *Parser) match(types ...TokenType) (Token, bool) {
	tok := p.peek()
	for _, tt := range types {
		if tok.Type == tt {
			p.advance()
			return tok, true
		}
	}
	return tok, false
}

// parseExpression is the entry point for expression parsing.
func (p *Parser) parseExpression() (Expr, error) {
	return p.parseEquality()
}

// parseBinaryTier folds operand (op operand)* to the left.
func (p *Parser) parseBinaryTier(operand func() (Expr, error), ops ...TokenType) (Expr, error) {
	expr, err := operand()
	if err != nil {
		return nil, err
	}
	for {
		tok, ok := p.match(ops...)
		if !ok {
			return expr, nil
		}
		right, err := operand()
		if err != nil {
			return nil, err
		}
		expr = &BinaryExpr{Op: binaryOperators[tok.Type], Left: expr, Right: right, Pos: tok.Pos}
	}
}

// parseEquality handles == and !=
func (p *Parser) parseEquality() (Expr, error) {
	return p.parseBinaryTier(p.parseAdditive, EQUALS, NOT_EQ)
}

// parseAdditive handles + and -
func (p *Parser) parseAdditive() (Expr, error) {
	return p.parseBinaryTier(p.parseMultiplicative, PLUS, MINUS)
}

// parseMultiplicative handles * and /
func (p *Parser) parseMultiplicative() (Expr, error) {
	return p.parseBinaryTier(p.parseUnary, STAR, SLASH)
}

// parseUnary drops a leading '+' and rewrites '-x' as '0 - x'.
func (p *Parser) parseUnary() (Expr, error) {
	tok, ok := p.match(PLUS, MINUS)
	if !ok {
		return p.parsePrimary()
	}
	operand, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	if tok.Type == PLUS {
		return operand, nil
	}
	return &BinaryExpr{Op: OpSub, Left: &Literal{Value: 0, Pos: tok.Pos}, Right: operand, Pos: tok.Pos}, nil
}

func (p *Parser) parsePrimary() (Expr, error) {
	tok := p.peek()
	switch tok.Type {
	case INTEGER:
		p.advance()
		return &Literal{Value: tok.Value, Pos: tok.Pos}, nil

	case LPAREN:
		p.advance()
		expr, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if _, ok := p.match(RPAREN); !ok {
			return nil, p.fmtError(p.peek(), ErrUnmatchedParen)
		}
		return expr, nil
	}
	return nil, p.fmtError(tok, ErrExpectedPrimary)
}

// Parse builds the expression tree for tokens. The whole slice must form a
// single expression followed by EOF.
func Parse(tokens []Token) (Expr, error) {
	p := NewParser(tokens)
	expr, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if tok := p.peek(); tok.Type != EOF {
		return nil, p.fmtError(tok, ErrTrailingTokens)
	}
	return expr, nil
}
