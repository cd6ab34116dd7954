// Package compiler implements the single-pass, precedence-climbing
// bytecode compiler: it turns a token stream directly into a value.Chunk,
// with no intermediate AST. Local/upvalue/global resolution, scope and
// control-flow jump patching, and class/method emission all happen inline
// as tokens are consumed.
package compiler

import (
	"fmt"

	"github.com/willow-lang/willow/lang/scanner"
	"github.com/willow-lang/willow/lang/token"
	"github.com/willow-lang/willow/lang/value"
)

// FunctionType distinguishes the kind of function currently being
// compiled, which governs what slot 0 of its locals means and what `return`
// and `this`/`super` are allowed to do.
type FunctionType int

const (
	TypeFunction FunctionType = iota
	TypeInitializer
	TypeMethod
	TypeScript
)

const maxLocals = 256
const maxUpvalues = 256
const maxArity = 255

type local struct {
	name       token.Token
	depth      int // -1 means "declared but not yet initialized"
	isCaptured bool
}

type upvalueRef struct {
	index   uint8
	isLocal bool
}

// classCompiler tracks the class currently being compiled, chained to its
// enclosing class (for nested class bodies) so `super` can be validated.
type classCompiler struct {
	enclosing     *classCompiler
	hasSuperclass bool
}

// fcomp holds the compiler state for a single function body. Functions
// nest via the enclosing pointer, which is also how upvalue resolution
// walks outward and how the GC finds every function still under
// construction (markCompilerRoots).
type fcomp struct {
	enclosing *fcomp

	function *value.ObjFunction
	typ      FunctionType

	locals     []local
	upvalues   []upvalueRef
	scopeDepth int
}

// parser is the single shared parsing state threaded through the whole
// compile: current/previous tokens, error recovery flags, and the chain of
// fcomp/classCompiler currently open.
type parser struct {
	sc *scanner.Scanner
	gc *value.GC

	current  token.Token
	previous token.Token

	hadError  bool
	panicMode bool
	errs      scanner.ErrorList

	cur   *fcomp
	class *classCompiler
}

// Compile compiles source into the implicit top-level function ("script")
// that runs it. On a compile error, it returns a non-nil error (an
// scanner.ErrorList-shaped aggregate of every diagnostic reported) and a
// nil function.
func Compile(gc *value.GC, source string) (*value.ObjFunction, error) {
	p := &parser{sc: scanner.New(source), gc: gc}

	top := &fcomp{typ: TypeScript, function: gc.NewFunction()}
	top.locals = append(top.locals, local{name: token.Token{Lexeme: ""}, depth: 0})
	p.cur = top

	// Let the GC see every function under construction on this chain for
	// the duration of the compile.
	gc.SetCompilerRoots(p.markRoots)
	defer gc.SetCompilerRoots(nil)

	p.advance()
	for !p.check(token.EOF) {
		p.declaration()
	}
	p.consumeEOF()

	fn := p.endCompiler()

	// Lexical errors are already folded into p.errs as they're encountered,
	// by advance's errorAtCurrent call on each ILLEGAL token (except while
	// panic mode is suppressing diagnostics).
	if p.hadError || len(p.errs) > 0 {
		p.errs.Sort()
		return nil, p.errs.Err()
	}
	return fn, nil
}

// markRoots marks every ObjFunction currently under construction on the
// compiler chain, plus each function's already-emitted constants.
func (p *parser) markRoots(gc *value.GC) {
	for c := p.cur; c != nil; c = c.enclosing {
		gc.MarkObject(c.function)
	}
}

func (p *parser) consumeEOF() {
	p.consume(token.EOF, "expect end of expression")
}

// ---- token stream plumbing ----

func (p *parser) advance() {
	p.previous = p.current
	for {
		p.current = p.sc.Scan()
		if p.current.Kind != token.ILLEGAL {
			break
		}
		p.errorAtCurrent(p.current.Lexeme)
	}
}

func (p *parser) check(k token.Kind) bool { return p.current.Kind == k }

func (p *parser) match(k token.Kind) bool {
	if !p.check(k) {
		return false
	}
	p.advance()
	return true
}

func (p *parser) consume(k token.Kind, msg string) {
	if p.current.Kind == k {
		p.advance()
		return
	}
	p.errorAtCurrent(msg)
}

func (p *parser) errorAtCurrent(msg string) { p.errorAt(p.current, msg) }
func (p *parser) error(msg string)          { p.errorAt(p.previous, msg) }

func (p *parser) errorAt(tok token.Token, msg string) {
	if p.panicMode {
		return
	}
	p.panicMode = true
	p.hadError = true

	text := msg
	switch tok.Kind {
	case token.EOF:
		text = fmt.Sprintf("at end: %s", msg)
	case token.ILLEGAL:
		// lexical error already carries its own message
	default:
		text = fmt.Sprintf("at '%s': %s", tok.Lexeme, msg)
	}
	p.errs.Add(tok.Line, text)
}

// synchronize discards tokens until it reaches a likely statement boundary,
// so a single syntax error doesn't cascade into a wall of follow-on errors.
func (p *parser) synchronize() {
	p.panicMode = false
	for p.current.Kind != token.EOF {
		if p.previous.Kind == token.SEMICOLON {
			return
		}
		switch p.current.Kind {
		case token.CLASS, token.FUN, token.VAR, token.FOR, token.IF,
			token.WHILE, token.PRINT, token.RETURN:
			return
		}
		p.advance()
	}
}

// ---- chunk emission helpers ----

func (p *parser) currentChunk() *value.Chunk { return &p.cur.function.Chunk }

func (p *parser) emitByte(b byte) { p.currentChunk().Write(b, p.previous.Line) }
func (p *parser) emitOp(op value.OpCode) { p.currentChunk().WriteOp(op, p.previous.Line) }
func (p *parser) emitOps(op1, op2 value.OpCode) {
	p.emitOp(op1)
	p.emitOp(op2)
}

func (p *parser) emitOpByte(op value.OpCode, operand byte) {
	p.emitOp(op)
	p.emitByte(operand)
}

func (p *parser) makeConstant(v value.Value) byte {
	idx, err := p.currentChunk().AddConstant(v)
	if err != nil {
		p.error(err.Error())
		return 0
	}
	return byte(idx)
}

func (p *parser) emitConstant(v value.Value) {
	p.emitOpByte(value.OP_CONSTANT, p.makeConstant(v))
}

// emitJump emits a 2-byte-operand jump opcode with a placeholder offset and
// returns the offset of the first placeholder byte, to be patched later.
func (p *parser) emitJump(op value.OpCode) int {
	p.emitOp(op)
	p.emitByte(0xff)
	p.emitByte(0xff)
	return len(p.currentChunk().Code) - 2
}

func (p *parser) patchJump(offset int) {
	chunk := p.currentChunk()
	jump := len(chunk.Code) - offset - 2
	if jump > 0xffff {
		p.error("too much code to jump over")
		return
	}
	chunk.Code[offset] = byte(jump >> 8)
	chunk.Code[offset+1] = byte(jump)
}

func (p *parser) emitLoop(loopStart int) {
	p.emitOp(value.OP_LOOP)
	offset := len(p.currentChunk().Code) - loopStart + 2
	if offset > 0xffff {
		p.error("loop body too large")
	}
	p.emitByte(byte(offset >> 8))
	p.emitByte(byte(offset))
}

func (p *parser) emitReturn() {
	if p.cur.typ == TypeInitializer {
		p.emitOpByte(value.OP_GET_LOCAL, 0)
	} else {
		p.emitOp(value.OP_NIL)
	}
	p.emitOp(value.OP_RETURN)
}

// endCompiler finishes the current function, emitting an implicit return,
// and pops back to the enclosing compiler (if any).
func (p *parser) endCompiler() *value.ObjFunction {
	p.emitReturn()
	fn := p.cur.function
	p.cur = p.cur.enclosing
	return fn
}

func (p *parser) identifierConstant(tok token.Token) byte {
	return p.makeConstant(p.gc.InternString(tok.Lexeme))
}

func identifiersEqual(a, b token.Token) bool { return a.Lexeme == b.Lexeme }
