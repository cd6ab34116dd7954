package compiler

import (
	"github.com/willow-lang/willow/lang/token"
	"github.com/willow-lang/willow/lang/value"
)

func (p *parser) declaration() {
	switch {
	case p.match(token.CLASS):
		p.classDeclaration()
	case p.match(token.FUN):
		p.funDeclaration()
	case p.match(token.VAR):
		p.varDeclaration()
	default:
		p.statement()
	}

	if p.panicMode {
		p.synchronize()
	}
}

func (p *parser) statement() {
	switch {
	case p.match(token.PRINT):
		p.printStatement()
	case p.match(token.FOR):
		p.forStatement()
	case p.match(token.IF):
		p.ifStatement()
	case p.match(token.RETURN):
		p.returnStatement()
	case p.match(token.WHILE):
		p.whileStatement()
	case p.match(token.LBRACE):
		p.beginScope()
		p.block()
		p.endScope()
	default:
		p.expressionStatement()
	}
}

func (p *parser) printStatement() {
	p.expression()
	p.consume(token.SEMICOLON, "expect ';' after value")
	p.emitOp(value.OP_PRINT)
}

func (p *parser) expressionStatement() {
	p.expression()
	p.consume(token.SEMICOLON, "expect ';' after expression")
	p.emitOp(value.OP_POP)
}

func (p *parser) block() {
	for !p.check(token.RBRACE) && !p.check(token.EOF) {
		p.declaration()
	}
	p.consume(token.RBRACE, "expect '}' after block")
}

func (p *parser) varDeclaration() {
	global := p.parseVariable("expect variable name")

	if p.match(token.EQ) {
		p.expression()
	} else {
		p.emitOp(value.OP_NIL)
	}
	p.consume(token.SEMICOLON, "expect ';' after variable declaration")

	p.defineVariable(global)
}

func (p *parser) ifStatement() {
	p.consume(token.LPAREN, "expect '(' after 'if'")
	p.expression()
	p.consume(token.RPAREN, "expect ')' after condition")

	thenJump := p.emitJump(value.OP_JUMP_IF_FALSE)
	p.emitOp(value.OP_POP)
	p.statement()

	elseJump := p.emitJump(value.OP_JUMP)
	p.patchJump(thenJump)
	p.emitOp(value.OP_POP)

	if p.match(token.ELSE) {
		p.statement()
	}
	p.patchJump(elseJump)
}

func (p *parser) whileStatement() {
	loopStart := len(p.currentChunk().Code)
	p.consume(token.LPAREN, "expect '(' after 'while'")
	p.expression()
	p.consume(token.RPAREN, "expect ')' after condition")

	exitJump := p.emitJump(value.OP_JUMP_IF_FALSE)
	p.emitOp(value.OP_POP)
	p.statement()
	p.emitLoop(loopStart)

	p.patchJump(exitJump)
	p.emitOp(value.OP_POP)
}

// forStatement desugars `for (init; cond; incr) body` into the equivalent
// while loop, exactly as clox does: the increment clause is compiled where
// it's written but spliced to run after the body via a pair of jumps.
func (p *parser) forStatement() {
	p.beginScope()
	p.consume(token.LPAREN, "expect '(' after 'for'")

	switch {
	case p.match(token.SEMICOLON):
		// no initializer
	case p.match(token.VAR):
		p.varDeclaration()
	default:
		p.expressionStatement()
	}

	loopStart := len(p.currentChunk().Code)

	exitJump := -1
	if !p.match(token.SEMICOLON) {
		p.expression()
		p.consume(token.SEMICOLON, "expect ';' after loop condition")
		exitJump = p.emitJump(value.OP_JUMP_IF_FALSE)
		p.emitOp(value.OP_POP)
	}

	if !p.match(token.RPAREN) {
		bodyJump := p.emitJump(value.OP_JUMP)

		incrStart := len(p.currentChunk().Code)
		p.expression()
		p.emitOp(value.OP_POP)
		p.consume(token.RPAREN, "expect ')' after for clauses")

		p.emitLoop(loopStart)
		loopStart = incrStart
		p.patchJump(bodyJump)
	}

	p.statement()
	p.emitLoop(loopStart)

	if exitJump != -1 {
		p.patchJump(exitJump)
		p.emitOp(value.OP_POP)
	}

	p.endScope()
}

func (p *parser) returnStatement() {
	if p.cur.typ == TypeScript {
		p.error("can't return from top-level code")
	}

	if p.match(token.SEMICOLON) {
		p.emitReturn()
		return
	}

	if p.cur.typ == TypeInitializer {
		p.error("can't return a value from an initializer")
	}

	p.expression()
	p.consume(token.SEMICOLON, "expect ';' after return value")
	p.emitOp(value.OP_RETURN)
}

func (p *parser) funDeclaration() {
	global := p.parseVariable("expect function name")
	p.markInitialized()
	p.function(TypeFunction)
	p.defineVariable(global)
}

// function compiles a function body (parameter list plus block) into its
// own fcomp/Chunk, then emits OP_CLOSURE in the *enclosing* chunk with one
// (isLocal, index) byte pair per upvalue the body captured.
func (p *parser) function(typ FunctionType) {
	child := &fcomp{enclosing: p.cur, typ: typ, function: p.gc.NewFunction()}
	if typ == TypeMethod || typ == TypeInitializer {
		child.locals = append(child.locals, local{name: token.Token{Lexeme: "this"}, depth: 0})
	} else {
		child.locals = append(child.locals, local{name: token.Token{Lexeme: ""}, depth: 0})
	}

	if p.previous.Kind == token.IDENT {
		child.function.Name = p.gc.InternString(p.previous.Lexeme)
	}

	p.cur = child
	p.beginScope()

	p.consume(token.LPAREN, "expect '(' after function name")
	if !p.check(token.RPAREN) {
		for {
			p.cur.function.Arity++
			if p.cur.function.Arity > maxArity {
				p.errorAtCurrent("can't have more than 255 parameters")
			}
			paramConst := p.parseVariable("expect parameter name")
			p.defineVariable(paramConst)
			if !p.match(token.COMMA) {
				break
			}
		}
	}
	p.consume(token.RPAREN, "expect ')' after parameters")
	p.consume(token.LBRACE, "expect '{' before function body")
	p.block()

	fn := p.endCompiler()
	upvalues := child.upvalues

	p.emitOpByte(value.OP_CLOSURE, p.makeConstant(fn))
	for _, uv := range upvalues {
		if uv.isLocal {
			p.emitByte(1)
		} else {
			p.emitByte(0)
		}
		p.emitByte(uv.index)
	}
}

func (p *parser) classDeclaration() {
	p.consume(token.IDENT, "expect class name")
	nameTok := p.previous
	nameConstant := p.identifierConstant(nameTok)
	p.declareVariable()

	p.emitOpByte(value.OP_CLASS, nameConstant)
	p.defineVariable(nameConstant)

	cc := &classCompiler{enclosing: p.class}
	p.class = cc

	if p.match(token.LT) {
		p.consume(token.IDENT, "expect superclass name")
		variable(p, false)
		if identifiersEqual(nameTok, p.previous) {
			p.error("a class can't inherit from itself")
		}

		p.beginScope()
		p.addLocal(token.Token{Lexeme: "super"})
		p.defineVariable(0)

		p.namedVariable(nameTok, false)
		p.emitOp(value.OP_INHERIT)
		cc.hasSuperclass = true
	}

	p.namedVariable(nameTok, false)
	p.consume(token.LBRACE, "expect '{' before class body")
	for !p.check(token.RBRACE) && !p.check(token.EOF) {
		p.method()
	}
	p.consume(token.RBRACE, "expect '}' after class body")
	p.emitOp(value.OP_POP)

	if cc.hasSuperclass {
		p.endScope()
	}

	p.class = cc.enclosing
}

func (p *parser) method() {
	p.consume(token.IDENT, "expect method name")
	nameTok := p.previous
	nameConstant := p.identifierConstant(nameTok)

	typ := TypeMethod
	if nameTok.Lexeme == "init" {
		typ = TypeInitializer
	}
	p.function(typ)
	p.emitOpByte(value.OP_METHOD, nameConstant)
}
