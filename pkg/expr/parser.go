package expr

import (
	"strconv"
	"strings"
)

// Precedence levels for operators.
const (
	_ int = iota
	LOWEST
	LOGICALOR   // or
	LOGICALAND  // and
	NEGATION    // not X
	COMPARE     // == != < > <= >=
	SUM         // +
	PRODUCT     // * / // %
	PREFIX      // -X
	EXPONENT    // **
	CALL        // fn(X)
)

var precedences = map[TokenType]int{
	OR:       LOGICALOR,
	AND:      LOGICALAND,
	EQ:       COMPARE,
	ASSIGN:   COMPARE,
	NOT_EQ:   COMPARE,
	LT:       COMPARE,
	LTE:      COMPARE,
	GT:       COMPARE,
	GTE:      COMPARE,
	PLUS:     SUM,
	MINUS:    SUM,
	ASTERISK: PRODUCT,
	SLASH:    PRODUCT,
	FLOORDIV: PRODUCT,
	PERCENT:  PRODUCT,
	POWER:    EXPONENT,
	LPAREN:   CALL,
}

// Parser parses expression tokens into an AST.
type Parser struct {
	tokens   []Token
	pos      int
	errors   []*Error
	sequence bool // argument-list mode used by ParseSequence

	curToken  Token
	peekToken Token

	prefixParseFns map[TokenType]prefixParseFn
	infixParseFns  map[TokenType]infixParseFn
}

type (
	prefixParseFn func() Node
	infixParseFn  func(Node) Node
)

// NewParser creates a Parser over src.
func NewParser(src string) *Parser {
	p := &Parser{tokens: NewLexer(src).Tokens()}

	p.prefixParseFns = make(map[TokenType]prefixParseFn)
	p.registerPrefix(IDENT, p.parseIdentifier)
	p.registerPrefix(NUMBER, p.parseNumberLiteral)
	p.registerPrefix(STRING, p.parseStringLiteral)
	p.registerPrefix(MINUS, p.parseUnaryExpression)
	p.registerPrefix(PLUS, p.parseUnaryExpression)
	p.registerPrefix(NOT, p.parseNotExpression)
	p.registerPrefix(LPAREN, p.parseGroupedExpression)

	p.infixParseFns = make(map[TokenType]infixParseFn)
	for _, t := range []TokenType{PLUS, MINUS, ASTERISK, SLASH, FLOORDIV, PERCENT} {
		p.registerInfix(t, p.parseInfixExpression)
	}
	p.registerInfix(POWER, p.parsePowerExpression)
	for _, t := range []TokenType{EQ, ASSIGN, NOT_EQ, LT, LTE, GT, GTE} {
		p.registerInfix(t, p.parseCompareExpression)
	}
	p.registerInfix(AND, p.parseLogicalExpression)
	p.registerInfix(OR, p.parseLogicalExpression)
	p.registerInfix(LPAREN, p.parseCallExpression)

	p.nextToken()
	p.nextToken()
	return p
}

// Errors returns the parser errors.
func (p *Parser) Errors() []*Error {
	return p.errors
}

// Parse parses src as a single expression.
func Parse(src string) (Node, error) {
	p := NewParser(src)
	if p.curTokenIs(EOF) {
		return nil, newError(ErrSyntax, 0, "empty expression")
	}
	node := p.parseExpression(LOWEST)
	if len(p.errors) == 0 && !p.peekTokenIs(EOF) {
		p.addError(p.peekToken.Pos, "unexpected %q", p.peekToken.Literal)
	}
	if len(p.errors) > 0 {
		return nil, p.errors[0]
	}
	return node, nil
}

// ParseSequence parses a whitespace or comma separated list of expressions,
// as written after Logo commands ("SETXY :X+10 -20"). A '-' or '+' that
// follows whitespace but is glued to its operand starts a new item.
func ParseSequence(src string) ([]Node, error) {
	p := NewParser(src)
	p.sequence = true
	var nodes []Node
	for !p.curTokenIs(EOF) {
		if p.curTokenIs(COMMA) {
			p.nextToken()
			continue
		}
		node := p.parseExpression(LOWEST)
		if len(p.errors) > 0 {
			return nil, p.errors[0]
		}
		nodes = append(nodes, node)
		p.nextToken()
	}
	return nodes, nil
}

func (p *Parser) parseExpression(precedence int) Node {
	prefix := p.prefixParseFns[p.curToken.Type]
	if prefix == nil {
		p.noPrefixParseFnError(p.curToken)
		return nil
	}
	leftExp := prefix()

	for leftExp != nil && !p.peekTokenIs(EOF) && precedence < p.peekPrecedence() {
		if p.startsNewItem() {
			return leftExp
		}
		infix := p.infixParseFns[p.peekToken.Type]
		if infix == nil {
			return leftExp
		}
		p.nextToken()
		leftExp = infix(leftExp)
	}
	return leftExp
}

// startsNewItem reports whether, in sequence mode, the peek token begins
// the next argument instead of continuing the current expression.
func (p *Parser) startsNewItem() bool {
	if !p.sequence {
		return false
	}
	switch p.peekToken.Type {
	case MINUS, PLUS:
		after := p.tokenAt(p.pos)
		return p.peekToken.Spaced && after.Type != EOF && !after.Spaced
	case LPAREN:
		return p.peekToken.Spaced
	}
	return false
}

func (p *Parser) parseIdentifier() Node {
	return &Ident{Name: p.curToken.Literal, Pos: p.curToken.Pos}
}

func (p *Parser) parseNumberLiteral() Node {
	value, err := strconv.ParseFloat(p.curToken.Literal, 64)
	if err != nil {
		p.addError(p.curToken.Pos, "could not parse %q as number", p.curToken.Literal)
		return nil
	}
	return &NumberLit{Value: value}
}

func (p *Parser) parseStringLiteral() Node {
	return &StringLit{Value: p.curToken.Literal}
}

func (p *Parser) parseUnaryExpression() Node {
	expression := &Unary{Operator: p.curToken.Literal}
	p.nextToken()
	expression.Right = p.parseExpression(PREFIX)
	if expression.Right == nil {
		return nil
	}
	return expression
}

func (p *Parser) parseNotExpression() Node {
	p.nextToken()
	right := p.parseExpression(NEGATION)
	if right == nil {
		return nil
	}
	return &Not{Right: right}
}

func (p *Parser) parseGroupedExpression() Node {
	p.nextToken()
	saved := p.sequence
	p.sequence = false
	exp := p.parseExpression(LOWEST)
	p.sequence = saved
	if exp == nil || !p.expectPeek(RPAREN) {
		return nil
	}
	return exp
}

func (p *Parser) parseInfixExpression(left Node) Node {
	expression := &Binary{
		Operator: p.curToken.Literal,
		Left:     left,
		Pos:      p.curToken.Pos,
	}
	precedence := p.curPrecedence()
	p.nextToken()
	expression.Right = p.parseExpression(precedence)
	if expression.Right == nil {
		return nil
	}
	return expression
}

// parsePowerExpression is right-associative.
func (p *Parser) parsePowerExpression(left Node) Node {
	expression := &Binary{Operator: "**", Left: left, Pos: p.curToken.Pos}
	p.nextToken()
	expression.Right = p.parseExpression(EXPONENT - 1)
	if expression.Right == nil {
		return nil
	}
	return expression
}

func (p *Parser) parseCompareExpression(left Node) Node {
	cmp := &Compare{Operands: []Node{left}, Pos: p.curToken.Pos}
	for {
		cmp.Operators = append(cmp.Operators, normalizeCompare(p.curToken))
		p.nextToken()
		right := p.parseExpression(COMPARE)
		if right == nil {
			return nil
		}
		cmp.Operands = append(cmp.Operands, right)
		if p.curPrecedenceOf(p.peekToken) != COMPARE || p.startsNewItem() {
			return cmp
		}
		p.nextToken()
	}
}

func normalizeCompare(t Token) string {
	switch t.Type {
	case ASSIGN:
		return "=="
	case NOT_EQ:
		return "!="
	}
	return t.Literal
}

func (p *Parser) parseLogicalExpression(left Node) Node {
	op := "and"
	if p.curTokenIs(OR) {
		op = "or"
	}
	precedence := p.curPrecedence()
	p.nextToken()
	right := p.parseExpression(precedence)
	if right == nil {
		return nil
	}
	return &Logical{Operator: op, Left: left, Right: right}
}

func (p *Parser) parseCallExpression(function Node) Node {
	ident, ok := function.(*Ident)
	if !ok {
		p.addError(p.curToken.Pos, "%s is not callable", function.String())
		return nil
	}
	exp := &Call{Name: strings.ToUpper(ident.Name), Pos: ident.Pos}
	saved := p.sequence
	p.sequence = false
	exp.Arguments = p.parseExpressionList(RPAREN)
	p.sequence = saved
	if exp.Arguments == nil {
		return nil
	}
	return exp
}

func (p *Parser) parseExpressionList(end TokenType) []Node {
	list := []Node{}

	if p.peekTokenIs(end) {
		p.nextToken()
		return list
	}

	p.nextToken()
	first := p.parseExpression(LOWEST)
	if first == nil {
		return nil
	}
	list = append(list, first)

	for p.peekTokenIs(COMMA) {
		p.nextToken()
		p.nextToken()
		next := p.parseExpression(LOWEST)
		if next == nil {
			return nil
		}
		list = append(list, next)
	}

	if !p.expectPeek(end) {
		return nil
	}
	return list
}

// Helper functions
func (p *Parser) curTokenIs(t TokenType) bool {
	return p.curToken.Type == t
}

func (p *Parser) peekTokenIs(t TokenType) bool {
	return p.peekToken.Type == t
}

func (p *Parser) expectPeek(t TokenType) bool {
	if p.peekTokenIs(t) {
		p.nextToken()
		return true
	}
	p.peekError(t)
	return false
}

func (p *Parser) tokenAt(i int) Token {
	if i < len(p.tokens) {
		return p.tokens[i]
	}
	end := 0
	if n := len(p.tokens); n > 0 {
		last := p.tokens[n-1]
		end = last.Pos + len(last.Literal)
	}
	return Token{Type: EOF, Pos: end}
}

func (p *Parser) nextToken() {
	p.curToken = p.peekToken
	p.peekToken = p.tokenAt(p.pos)
	p.pos++
}

func (p *Parser) peekPrecedence() int {
	return p.curPrecedenceOf(p.peekToken)
}

func (p *Parser) curPrecedence() int {
	return p.curPrecedenceOf(p.curToken)
}

func (p *Parser) curPrecedenceOf(t Token) int {
	if pr, ok := precedences[t.Type]; ok {
		return pr
	}
	return LOWEST
}

func (p *Parser) peekError(t TokenType) {
	if p.peekToken.Type == EOF {
		p.addError(p.peekToken.Pos, "expected %s, got end of expression", t)
		return
	}
	p.addError(p.peekToken.Pos, "expected %s, got %q", t, p.peekToken.Literal)
}

func (p *Parser) noPrefixParseFnError(t Token) {
	switch t.Type {
	case EOF:
		p.addError(t.Pos, "unexpected end of expression")
	case ILLEGAL:
		p.addError(t.Pos, "illegal character %q", t.Literal)
	default:
		p.addError(t.Pos, "unexpected %q", t.Literal)
	}
}

func (p *Parser) addError(pos int, format string, args ...any) {
	p.errors = append(p.errors, newError(ErrSyntax, pos, format, args...))
}

func (p *Parser) registerPrefix(tokenType TokenType, fn prefixParseFn) {
	p.prefixParseFns[tokenType] = fn
}

func (p *Parser) registerInfix(tokenType TokenType, fn infixParseFn) {
	p.infixParseFns[tokenType] = fn
}
