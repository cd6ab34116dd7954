package compiler

import (
	"strconv"

	"github.com/willow-lang/willow/lang/token"
	"github.com/willow-lang/willow/lang/value"
)

// precedence is the Pratt-parsing precedence ladder, lowest to highest:
// NONE < ASSIGNMENT < OR < AND < EQUALITY < COMPARISON < TERM < FACTOR <
// UNARY < CALL < PRIMARY.
type precedence int

const (
	precNone precedence = iota
	precAssignment
	precOr
	precAnd
	precEquality
	precComparison
	precTerm
	precFactor
	precUnary
	precCall
	precPrimary
)

type (
	prefixFn func(p *parser, canAssign bool)
	infixFn  func(p *parser, canAssign bool)
)

type parseRule struct {
	prefix     prefixFn
	infix      infixFn
	precedence precedence
}

var rules map[token.Kind]parseRule

func init() {
	rules = map[token.Kind]parseRule{
		token.LPAREN:    {grouping, call, precCall},
		token.DOT:       {nil, dot, precCall},
		token.MINUS:     {unary, binary, precTerm},
		token.PLUS:      {nil, binary, precTerm},
		token.SLASH:     {nil, binary, precFactor},
		token.STAR:      {nil, binary, precFactor},
		token.BANG:      {unary, nil, precNone},
		token.BANG_EQ:   {nil, binary, precEquality},
		token.EQ_EQ:     {nil, binary, precEquality},
		token.GT:        {nil, binary, precComparison},
		token.GE:        {nil, binary, precComparison},
		token.LT:        {nil, binary, precComparison},
		token.LE:        {nil, binary, precComparison},
		token.IDENT:     {variable, nil, precNone},
		token.STRING:    {stringLit, nil, precNone},
		token.NUMBER:    {number, nil, precNone},
		token.AND:       {nil, and_, precAnd},
		token.OR:        {nil, or_, precOr},
		token.FALSE:     {literal, nil, precNone},
		token.NIL:       {literal, nil, precNone},
		token.TRUE:      {literal, nil, precNone},
		token.THIS:      {this_, nil, precNone},
		token.SUPER:     {super_, nil, precNone},
	}
}

func getRule(k token.Kind) parseRule {
	if r, ok := rules[k]; ok {
		return r
	}
	return parseRule{}
}

func (p *parser) expression() { p.parsePrecedence(precAssignment) }

// parsePrecedence reads the prefix rule for p.previous, then keeps
// consuming infix operators while the current token's precedence is >=
// prec. Only when prec <= precAssignment may the parsed expression consume
// a trailing `=`; this is what makes `a*b = c` a compile error instead of a
// silently-ignored assignment.
func (p *parser) parsePrecedence(prec precedence) {
	p.advance()
	prefix := getRule(p.previous.Kind).prefix
	if prefix == nil {
		p.error("expect expression")
		return
	}

	canAssign := prec <= precAssignment
	prefix(p, canAssign)

	for prec <= getRule(p.current.Kind).precedence {
		p.advance()
		infix := getRule(p.previous.Kind).infix
		infix(p, canAssign)
	}

	if canAssign && p.match(token.EQ) {
		p.error("invalid assignment target")
	}
}

func number(p *parser, _ bool) {
	f, err := strconv.ParseFloat(p.previous.Lexeme, 64)
	if err != nil {
		p.error("invalid number literal")
		return
	}
	p.emitConstant(value.Number(f))
}

func stringLit(p *parser, _ bool) {
	lexeme := p.previous.Lexeme
	s := lexeme[1 : len(lexeme)-1] // strip surrounding quotes
	p.emitConstant(p.gc.InternString(s))
}

func literal(p *parser, _ bool) {
	switch p.previous.Kind {
	case token.FALSE:
		p.emitOp(value.OP_FALSE)
	case token.TRUE:
		p.emitOp(value.OP_TRUE)
	case token.NIL:
		p.emitOp(value.OP_NIL)
	}
}

func grouping(p *parser, _ bool) {
	p.expression()
	p.consume(token.RPAREN, "expect ')' after expression")
}

func unary(p *parser, _ bool) {
	opKind := p.previous.Kind
	p.parsePrecedence(precUnary)
	switch opKind {
	case token.BANG:
		p.emitOp(value.OP_NOT)
	case token.MINUS:
		p.emitOp(value.OP_NEGATE)
	}
}

func binary(p *parser, _ bool) {
	opKind := p.previous.Kind
	rule := getRule(opKind)
	p.parsePrecedence(rule.precedence + 1)

	switch opKind {
	case token.BANG_EQ:
		p.emitOps(value.OP_EQUAL, value.OP_NOT)
	case token.EQ_EQ:
		p.emitOp(value.OP_EQUAL)
	case token.GT:
		p.emitOp(value.OP_GREATER)
	case token.GE:
		p.emitOps(value.OP_LESS, value.OP_NOT)
	case token.LT:
		p.emitOp(value.OP_LESS)
	case token.LE:
		p.emitOps(value.OP_GREATER, value.OP_NOT)
	case token.PLUS:
		p.emitOp(value.OP_ADD)
	case token.MINUS:
		p.emitOp(value.OP_SUBTRACT)
	case token.STAR:
		p.emitOp(value.OP_MULTIPLY)
	case token.SLASH:
		p.emitOp(value.OP_DIVIDE)
	}
}

func and_(p *parser, _ bool) {
	endJump := p.emitJump(value.OP_JUMP_IF_FALSE)
	p.emitOp(value.OP_POP)
	p.parsePrecedence(precAnd)
	p.patchJump(endJump)
}

func or_(p *parser, _ bool) {
	elseJump := p.emitJump(value.OP_JUMP_IF_FALSE)
	endJump := p.emitJump(value.OP_JUMP)
	p.patchJump(elseJump)
	p.emitOp(value.OP_POP)
	p.parsePrecedence(precOr)
	p.patchJump(endJump)
}

func variable(p *parser, canAssign bool) {
	p.namedVariable(p.previous, canAssign)
}

func this_(p *parser, _ bool) {
	if p.class == nil {
		p.error("can't use 'this' outside of a class")
		return
	}
	p.namedVariable(p.previous, false)
}

func super_(p *parser, _ bool) {
	if p.class == nil {
		p.error("can't use 'super' outside of a class")
	} else if !p.class.hasSuperclass {
		p.error("can't use 'super' in a class with no superclass")
	}

	p.consume(token.DOT, "expect '.' after 'super'")
	p.consume(token.IDENT, "expect superclass method name")
	name := p.identifierConstant(p.previous)

	p.namedVariable(thisToken(), false)
	if p.match(token.LPAREN) {
		argCount := p.argumentList()
		p.namedVariable(superToken(), false)
		p.emitOp(value.OP_SUPER_INVOKE)
		p.emitByte(name)
		p.emitByte(argCount)
		return
	}

	p.namedVariable(superToken(), false)
	p.emitOpByte(value.OP_GET_SUPER, name)
}

func thisToken() token.Token  { return token.Token{Kind: token.IDENT, Lexeme: "this"} }
func superToken() token.Token { return token.Token{Kind: token.IDENT, Lexeme: "super"} }

func call(p *parser, _ bool) {
	argCount := p.argumentList()
	p.emitOpByte(value.OP_CALL, argCount)
}

func (p *parser) argumentList() byte {
	var count int
	if !p.check(token.RPAREN) {
		for {
			p.expression()
			if count == maxArity {
				p.error("can't have more than 255 arguments")
			}
			count++
			if !p.match(token.COMMA) {
				break
			}
		}
	}
	p.consume(token.RPAREN, "expect ')' after arguments")
	return byte(count)
}

func dot(p *parser, canAssign bool) {
	p.consume(token.IDENT, "expect property name after '.'")
	name := p.identifierConstant(p.previous)

	switch {
	case canAssign && p.match(token.EQ):
		p.expression()
		p.emitOpByte(value.OP_SET_PROPERTY, name)
	case p.match(token.LPAREN):
		argCount := p.argumentList()
		p.emitOp(value.OP_INVOKE)
		p.emitByte(name)
		p.emitByte(argCount)
	default:
		p.emitOpByte(value.OP_GET_PROPERTY, name)
	}
}
