package vm

import (
	"time"

	"github.com/willow-lang/willow/lang/value"
)

// defineNatives installs the host-provided builtins into globals by
// interned name during VM construction.
func (vm *VM) defineNatives() {
	vm.defineNative("clock", vm.clockNative)
}

func (vm *VM) defineNative(name string, fn value.NativeFn) {
	native := vm.gc.NewNative(name, fn)
	vm.globals.Put(name, native)
}

// clockNative returns the number of seconds elapsed since this VM was
// constructed, the same process-relative measure the original clock()
// builtin uses.
func (vm *VM) clockNative(argCount int, args []value.Value) (value.Value, error) {
	if argCount != 0 {
		return nil, vm.runtimeError("clock expects 0 arguments but got %d", argCount)
	}
	return value.Number(time.Since(vm.start).Seconds()), nil
}
