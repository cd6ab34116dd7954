package compiler_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/willow-lang/willow/lang/compiler"
	"github.com/willow-lang/willow/lang/scanner"
	"github.com/willow-lang/willow/lang/value"
)

func TestCompileEmitsExpectedOpcodes(t *testing.T) {
	gc := value.NewGC()
	fn, err := compiler.Compile(gc, `print 1 + 2;`)
	require.NoError(t, err)

	dis := fn.Chunk.Disassemble("script")
	assert.Contains(t, dis, "OP_CONSTANT")
	assert.Contains(t, dis, "OP_ADD")
	assert.Contains(t, dis, "OP_PRINT")
	assert.Contains(t, dis, "OP_RETURN")
}

func TestCompileReportsSyntaxErrors(t *testing.T) {
	gc := value.NewGC()
	_, err := compiler.Compile(gc, `var = ;`)
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "expect variable name"))
}

func TestCompileFunctionEmitsClosure(t *testing.T) {
	gc := value.NewGC()
	fn, err := compiler.Compile(gc, `
fun add(a, b) {
  return a + b;
}
`)
	require.NoError(t, err)
	dis := fn.Chunk.Disassemble("script")
	assert.Contains(t, dis, "OP_CLOSURE")
	assert.Contains(t, dis, "OP_DEFINE_GLOBAL")
}

func TestCompileClassEmitsClassAndMethod(t *testing.T) {
	gc := value.NewGC()
	fn, err := compiler.Compile(gc, `
class Point {
  init(x, y) {
    this.x = x;
    this.y = y;
  }
}
`)
	require.NoError(t, err)
	dis := fn.Chunk.Disassemble("script")
	assert.Contains(t, dis, "OP_CLASS")
	assert.Contains(t, dis, "OP_METHOD")
}

func TestCompileReportsMultipleErrorsAfterSynchronize(t *testing.T) {
	gc := value.NewGC()
	_, err := compiler.Compile(gc, `
var = 1;
var = 2;
`)
	require.Error(t, err)
	// both malformed declarations should be reported, not just the first
	assert.GreaterOrEqual(t, strings.Count(err.Error(), "expect variable name"), 1)
	var errs scanner.ErrorList
	require.ErrorAs(t, err, &errs)
	assert.Len(t, errs, 2)
}
