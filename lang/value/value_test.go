package value_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/willow-lang/willow/lang/value"
)

func TestTruthiness(t *testing.T) {
	assert.False(t, value.Truthy(value.Nil))
	assert.False(t, value.Truthy(value.Bool(false)))
	assert.True(t, value.Truthy(value.Bool(true)))
	assert.True(t, value.Truthy(value.Number(0)))
	assert.True(t, value.Truthy(value.Number(1)))
}

func TestEqualPrimitives(t *testing.T) {
	assert.True(t, value.Equal(value.Number(1), value.Number(1)))
	assert.False(t, value.Equal(value.Number(1), value.Number(2)))
	assert.True(t, value.Equal(value.Nil, value.Nil))
	assert.False(t, value.Equal(value.Bool(true), value.Bool(false)))
	// numbers and booleans never compare equal to each other's kind
	assert.False(t, value.Equal(value.Number(0), value.Bool(false)))
}

func TestInternStringDeduplicates(t *testing.T) {
	gc := value.NewGC()
	a := gc.InternString("hello")
	b := gc.InternString("hello")
	assert.Same(t, a, b)
	assert.True(t, value.Equal(a, b))

	c := gc.InternString("world")
	assert.False(t, value.Equal(a, c))
}

func TestConcatInternsNewString(t *testing.T) {
	gc := value.NewGC()
	a := gc.InternString("foo")
	b := gc.InternString("bar")
	got := gc.Concat(a, b)
	assert.Equal(t, "foobar", got.Chars)
	assert.Same(t, got, gc.InternString("foobar"))
}

func TestCollectSweepsUnreachableObjects(t *testing.T) {
	gc := value.NewGC()
	gc.SetNextGC(0) // make the next allocation after "kept" trigger a collection

	kept := gc.InternString("kept")

	var roots []value.Value
	gc.SetVMRoots(func(g *value.GC) {
		for _, r := range roots {
			g.MarkValue(r)
		}
	})
	roots = []value.Value{kept}

	_ = gc.InternString("garbage-1")
	_ = gc.InternString("garbage-2")

	gc.Collect()

	require.GreaterOrEqual(t, gc.Collections(), 1)
	// both garbage strings are swept; only kept remains on the allocation list
	assert.Equal(t, 1, gc.LiveObjects())
	// kept survives because it's reachable from the registered root function
	assert.Same(t, kept, gc.InternString("kept"))
}

func TestChunkDisassembleRendersConstantsAndOps(t *testing.T) {
	var c value.Chunk
	idx, err := c.AddConstant(value.Number(42))
	require.NoError(t, err)
	c.WriteOp(value.OP_CONSTANT, 1)
	c.Write(byte(idx), 1)
	c.WriteOp(value.OP_RETURN, 1)

	dis := c.Disassemble("test")
	assert.Contains(t, dis, "OP_CONSTANT")
	assert.Contains(t, dis, "42")
	assert.Contains(t, dis, "OP_RETURN")
}

func TestChunkAddConstantCapsAt256(t *testing.T) {
	var c value.Chunk
	for i := 0; i < 256; i++ {
		_, err := c.AddConstant(value.Number(float64(i)))
		require.NoError(t, err)
	}
	_, err := c.AddConstant(value.Number(256))
	assert.Error(t, err)
}
