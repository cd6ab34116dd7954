// Package vm implements the register-less, stack-based bytecode
// interpreter: it executes the value.Chunk produced by lang/compiler
// against a fixed-size value stack, with lexically scoped closures,
// first-class functions, and single-inheritance classes with bound
// methods.
package vm

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/dolthub/swiss"

	"github.com/willow-lang/willow/lang/compiler"
	"github.com/willow-lang/willow/lang/value"
)

const (
	framesMax = 64
	stackMax  = framesMax * 256
)

// CallFrame records one active call: the closure being executed, the
// instruction pointer into its chunk, and the base stack slot for its
// locals (slot 0 is the callee itself, or `this` for a method call).
type CallFrame struct {
	closure *value.ObjClosure
	ip      int
	slots   int // base index into vm.stack
}

// Config holds the knobs an embedder (or the CLI, via WILLOW_GC_* env
// vars) can tune before running a program.
type Config struct {
	GCGrowthFactor int64 `env:"WILLOW_GC_GROWTH_FACTOR" envDefault:"2"`
	GCInitialBytes int64 `env:"WILLOW_GC_INITIAL_BYTES" envDefault:"1048576"`
}

// ConfigFromEnv reads a Config from the process environment, applying the
// envDefault tags above when a variable is unset.
func ConfigFromEnv() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse vm config from environment: %w", err)
	}
	return cfg, nil
}

// VM is one interpreter instance: a value stack, a call-frame stack, the
// global-variable table, and the garbage collector shared with whatever
// compile produced the running code.
type VM struct {
	stack    [stackMax]value.Value
	stackTop int

	frames     [framesMax]CallFrame
	frameCount int

	globals      *swiss.Map[string, value.Value]
	gc           *value.GC
	openUpvalues *value.ObjUpvalue
	initString   *value.ObjString

	start time.Time

	// Stdout and Stderr follow the nil-falls-back-to-os.Std* convention:
	// nil falls back to os.Stdout / os.Stderr.
	Stdout io.Writer
	Stderr io.Writer

	// Debug enables a GC stress mode (collect on every allocation) and
	// TraceExecution dumps each instruction to Stderr before it runs.
	Debug          bool
	TraceExecution bool
}

// New returns a ready-to-run VM with its globals and natives installed.
func New() *VM {
	vm := &VM{
		globals: swiss.NewMap[string, value.Value](16),
		gc:      value.NewGC(),
		start:   time.Now(),
	}
	vm.initString = vm.gc.InternString("init")
	vm.gc.SetVMRoots(vm.markRoots)
	vm.defineNatives()
	return vm
}

// NewWithConfig returns a New VM with its GC growth heuristics overridden
// by cfg, the way cmd/willow applies WILLOW_GC_* environment variables
// (via github.com/caarlos0/env/v6) for headless/CI invocations.
func NewWithConfig(cfg Config) *VM {
	vm := New()
	if cfg.GCInitialBytes > 0 {
		vm.gc.SetNextGC(cfg.GCInitialBytes)
	}
	if cfg.GCGrowthFactor > 0 {
		vm.gc.SetGrowthFactor(cfg.GCGrowthFactor)
	}
	return vm
}

func (vm *VM) stdout() io.Writer {
	if vm.Stdout != nil {
		return vm.Stdout
	}
	return os.Stdout
}

func (vm *VM) stderr() io.Writer {
	if vm.Stderr != nil {
		return vm.Stderr
	}
	return os.Stderr
}

// Interpret compiles and runs source against this VM's (persistent)
// global state, the way the REPL driver reuses one VM across inputs.
func (vm *VM) Interpret(source string) (value.Value, error) {
	vm.gc.Debug = vm.Debug

	fn, err := compiler.Compile(vm.gc, source)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCompile, err)
	}

	// fn has no root of its own between Compile's SetCompilerRoots(nil) and
	// here: push it so NewClosure's allocation (and any GC it triggers)
	// sees it on the stack, then swap the closure in over it.
	vm.push(fn)
	closure := vm.gc.NewClosure(fn)
	vm.stack[vm.stackTop-1] = closure
	if err := vm.callClosure(closure, 0); err != nil {
		vm.resetStack()
		return nil, err
	}

	result, err := vm.run()
	if err != nil {
		vm.resetStack()
		return nil, err
	}
	return result, nil
}

func (vm *VM) push(v value.Value) {
	vm.stack[vm.stackTop] = v
	vm.stackTop++
}

func (vm *VM) pop() value.Value {
	vm.stackTop--
	return vm.stack[vm.stackTop]
}

func (vm *VM) peek(distance int) value.Value {
	return vm.stack[vm.stackTop-1-distance]
}

func (vm *VM) resetStack() {
	vm.stackTop = 0
	vm.frameCount = 0
	vm.openUpvalues = nil
}

// markRoots marks the value stack, every frame's closure, the open
// upvalue list, every global value, and initString.
func (vm *VM) markRoots(gc *value.GC) {
	for i := 0; i < vm.stackTop; i++ {
		gc.MarkValue(vm.stack[i])
	}
	for i := 0; i < vm.frameCount; i++ {
		gc.MarkObject(vm.frames[i].closure)
	}
	for uv := vm.openUpvalues; uv != nil; uv = uv.Next {
		gc.MarkObject(uv)
	}
	vm.globals.Iter(func(_ string, v value.Value) bool {
		gc.MarkValue(v)
		return false
	})
	gc.MarkObject(vm.initString)
}
