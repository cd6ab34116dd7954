package compiler

import (
	"golang.org/x/exp/slices"

	"github.com/willow-lang/willow/lang/token"
	"github.com/willow-lang/willow/lang/value"
)

func (p *parser) beginScope() { p.cur.scopeDepth++ }

// endScope closes the innermost scope: every local declared in it is either
// closed into an upvalue cell (if captured) or popped, then removed from
// the locals array.
func (p *parser) endScope() {
	p.cur.scopeDepth--
	c := p.cur
	for len(c.locals) > 0 && c.locals[len(c.locals)-1].depth > c.scopeDepth {
		last := c.locals[len(c.locals)-1]
		if last.isCaptured {
			p.emitOp(value.OP_CLOSE_UPVALUE)
		} else {
			p.emitOp(value.OP_POP)
		}
		c.locals = c.locals[:len(c.locals)-1]
	}
}

// declareVariable registers previous (the just-consumed identifier) as a
// new local in the current scope, unless we're at global scope (depth 0),
// in which case locals aren't used at all.
func (p *parser) declareVariable() {
	if p.cur.scopeDepth == 0 {
		return
	}
	name := p.previous
	c := p.cur
	for i := len(c.locals) - 1; i >= 0; i-- {
		l := c.locals[i]
		if l.depth != -1 && l.depth < c.scopeDepth {
			break
		}
		if identifiersEqual(name, l.name) {
			p.error("already a variable with this name in this scope")
		}
	}
	p.addLocal(name)
}

func (p *parser) addLocal(name token.Token) {
	c := p.cur
	if len(c.locals) >= maxLocals {
		p.error("too many local variables in function")
		return
	}
	c.locals = append(c.locals, local{name: name, depth: -1})
}

// markInitialized records that the most recently declared local (or, for a
// function declared at top level, nothing) is now usable. Function
// parameters reach it (via defineVariable) right after being declared;
// var declarations reach it only after their initializer is compiled;
// function declarations call it right after the name is bound so a
// function can recursively refer to itself.
func (p *parser) markInitialized() {
	if p.cur.scopeDepth == 0 {
		return
	}
	p.cur.locals[len(p.cur.locals)-1].depth = p.cur.scopeDepth
}

// resolveLocal scans c's locals from the top down for name, returning its
// slot index, or -1 if not found. Referencing a local whose depth is still
// -1 (declared but not yet initialized, i.e. `var a = a;`) is an error.
func resolveLocal(p *parser, c *fcomp, name token.Token) int {
	for i := len(c.locals) - 1; i >= 0; i-- {
		if identifiersEqual(name, c.locals[i].name) {
			if c.locals[i].depth == -1 {
				p.error("can't read local variable in its own initializer")
			}
			return i
		}
	}
	return -1
}

// resolveUpvalue resolves name as an upvalue of c, recursively asking
// enclosing compilers to resolve it as a local (capturing it) or as one of
// their own upvalues (chaining the capture outward).
func resolveUpvalue(p *parser, c *fcomp, name token.Token) int {
	if c.enclosing == nil {
		return -1
	}

	if local := resolveLocal(p, c.enclosing, name); local != -1 {
		c.enclosing.locals[local].isCaptured = true
		return addUpvalue(p, c, uint8(local), true)
	}

	if up := resolveUpvalue(p, c.enclosing, name); up != -1 {
		return addUpvalue(p, c, uint8(up), false)
	}

	return -1
}

// addUpvalue deduplicates by (index, isLocal) and appends a new upvalue
// slot otherwise.
func addUpvalue(p *parser, c *fcomp, index uint8, isLocal bool) int {
	if i := slices.IndexFunc(c.upvalues, func(uv upvalueRef) bool {
		return uv.index == index && uv.isLocal == isLocal
	}); i != -1 {
		return i
	}
	if len(c.upvalues) >= maxUpvalues {
		p.error("too many closure variables in function")
		return 0
	}
	c.upvalues = append(c.upvalues, upvalueRef{index: index, isLocal: isLocal})
	c.function.UpvalueCount = len(c.upvalues)
	return len(c.upvalues) - 1
}

// parseVariable consumes an identifier, declares it as a local if we're
// inside a scope, and returns the global-name constant index to use with
// OP_DEFINE_GLOBAL (meaningless, but harmless, for locals).
func (p *parser) parseVariable(errMsg string) byte {
	p.consume(token.IDENT, errMsg)
	p.declareVariable()
	if p.cur.scopeDepth > 0 {
		return 0
	}
	return p.identifierConstant(p.previous)
}

func (p *parser) defineVariable(global byte) {
	if p.cur.scopeDepth > 0 {
		p.markInitialized()
		return
	}
	p.emitOpByte(value.OP_DEFINE_GLOBAL, global)
}

// namedVariable compiles a read or (if canAssign and an `=` follows) write
// of the variable named by tok, resolving it local -> upvalue -> global.
func (p *parser) namedVariable(tok token.Token, canAssign bool) {
	var getOp, setOp value.OpCode
	var arg int

	if slot := resolveLocal(p, p.cur, tok); slot != -1 {
		arg = slot
		getOp, setOp = value.OP_GET_LOCAL, value.OP_SET_LOCAL
	} else if slot := resolveUpvalue(p, p.cur, tok); slot != -1 {
		arg = slot
		getOp, setOp = value.OP_GET_UPVALUE, value.OP_SET_UPVALUE
	} else {
		arg = int(p.identifierConstant(tok))
		getOp, setOp = value.OP_GET_GLOBAL, value.OP_SET_GLOBAL
	}

	if canAssign && p.match(token.EQ) {
		p.expression()
		p.emitOpByte(setOp, byte(arg))
	} else {
		p.emitOpByte(getOp, byte(arg))
	}
}
