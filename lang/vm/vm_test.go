package vm_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/willow-lang/willow/lang/vm"
)

func run(t *testing.T, source string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	m := vm.New()
	m.Stdout = &out
	_, err := m.Interpret(source)
	return out.String(), err
}

func TestArithmetic(t *testing.T) {
	out, err := run(t, `print 1 + 2 * 3;`)
	require.NoError(t, err)
	assert.Equal(t, "7\n", out)
}

func TestStringConcatenation(t *testing.T) {
	out, err := run(t, `print "foo" + "bar";`)
	require.NoError(t, err)
	assert.Equal(t, "foobar\n", out)
}

func TestGlobalsAndLocals(t *testing.T) {
	out, err := run(t, `
var a = 1;
{
  var a = 2;
  print a;
}
print a;
`)
	require.NoError(t, err)
	assert.Equal(t, "2\n1\n", out)
}

func TestControlFlow(t *testing.T) {
	out, err := run(t, `
var i = 0;
var sum = 0;
while (i < 5) {
  sum = sum + i;
  i = i + 1;
}
print sum;
`)
	require.NoError(t, err)
	assert.Equal(t, "10\n", out)
}

func TestClosures(t *testing.T) {
	out, err := run(t, `
fun makeCounter() {
  var i = 0;
  fun counter() {
    i = i + 1;
    return i;
  }
  return counter;
}
var c = makeCounter();
print c();
print c();
print c();
`)
	require.NoError(t, err)
	assert.Equal(t, "1\n2\n3\n", out)
}

func TestClassesAndMethods(t *testing.T) {
	out, err := run(t, `
class Greeter {
  init(name) {
    this.name = name;
  }
  greet() {
    return "hello " + this.name;
  }
}
var g = Greeter("world");
print g.greet();
`)
	require.NoError(t, err)
	assert.Equal(t, "hello world\n", out)
}

func TestInheritanceAndSuper(t *testing.T) {
	out, err := run(t, `
class Animal {
  speak() {
    return "...";
  }
}
class Dog < Animal {
  speak() {
    return "woof (" + super.speak() + ")";
  }
}
print Dog().speak();
`)
	require.NoError(t, err)
	assert.Equal(t, "woof (...)\n", out)
}

func TestRuntimeErrorHasTrace(t *testing.T) {
	_, err := run(t, `
fun boom() {
  return 1 + "nope";
}
boom();
`)
	require.Error(t, err)
	var rerr *vm.RuntimeError
	require.ErrorAs(t, err, &rerr)
	assert.NotEmpty(t, rerr.Trace)
}

func TestNativeClock(t *testing.T) {
	out, err := run(t, `print clock() >= 0;`)
	require.NoError(t, err)
	assert.Equal(t, "true\n", out)
}

func TestCompileErrorIsDistinguishable(t *testing.T) {
	_, err := run(t, `var = ;`)
	require.Error(t, err)
	assert.ErrorIs(t, err, vm.ErrCompile)
}

func TestPersistentVMAcrossInterpretCalls(t *testing.T) {
	var out bytes.Buffer
	m := vm.New()
	m.Stdout = &out

	_, err := m.Interpret(`var counter = 0;`)
	require.NoError(t, err)

	_, err = m.Interpret(`counter = counter + 1; print counter;`)
	require.NoError(t, err)

	_, err = m.Interpret(`counter = counter + 1; print counter;`)
	require.NoError(t, err)

	assert.Equal(t, "1\n2\n", out.String())
}

func TestTruthiness(t *testing.T) {
	out, err := run(t, `
if (!nil) print "nil is falsey";
if (!false) print "false is falsey";
if (0) print "zero is truthy";
if ("") print "empty string is truthy";
`)
	require.NoError(t, err)
	assert.Equal(t, "nil is falsey\nfalse is falsey\nzero is truthy\nempty string is truthy\n", out)
}

func TestForLoopDesugaring(t *testing.T) {
	out, err := run(t, `
var total = 0;
for (var i = 0; i < 4; i = i + 1) {
  total = total + i;
}
print total;
`)
	require.NoError(t, err)
	assert.Equal(t, "6\n", out)
}
