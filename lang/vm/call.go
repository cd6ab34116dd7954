package vm

import (
	"fmt"

	"github.com/willow-lang/willow/lang/value"
)

// callValue dispatches a call by the callee's concrete type.
func (vm *VM) callValue(callee value.Value, argCount int) error {
	switch c := callee.(type) {
	case *value.ObjClosure:
		return vm.callClosure(c, argCount)

	case *value.ObjNative:
		args := vm.stack[vm.stackTop-argCount : vm.stackTop]
		result, err := c.Fn(argCount, args)
		if err != nil {
			return err
		}
		vm.stackTop -= argCount + 1
		vm.push(result)
		return nil

	case *value.ObjClass:
		instance := vm.gc.NewInstance(c)
		vm.stack[vm.stackTop-argCount-1] = instance
		if initializer, ok := c.Methods.Get(vm.initString.Chars); ok {
			return vm.callClosure(initializer, argCount)
		} else if argCount != 0 {
			return vm.runtimeError("expected 0 arguments but got %d", argCount)
		}
		return nil

	case *value.ObjBoundMethod:
		vm.stack[vm.stackTop-argCount-1] = c.Receiver
		return vm.callClosure(c.Method, argCount)

	default:
		return vm.runtimeError("can only call functions and classes")
	}
}

// callClosure pushes a new CallFrame for closure after checking arity and
// frame-stack depth.
func (vm *VM) callClosure(closure *value.ObjClosure, argCount int) error {
	if argCount != closure.Function.Arity {
		return vm.runtimeError("expected %d arguments but got %d", closure.Function.Arity, argCount)
	}
	if vm.frameCount == framesMax {
		return vm.runtimeError("stack overflow")
	}

	frame := &vm.frames[vm.frameCount]
	vm.frameCount++
	frame.closure = closure
	frame.ip = 0
	frame.slots = vm.stackTop - argCount - 1
	return nil
}

// invoke performs a fused property-lookup-and-call for `recv.name(...)`,
// avoiding the intermediate BoundMethod allocation OP_GET_PROPERTY+OP_CALL
// would otherwise need.
func (vm *VM) invoke(name string, argCount int) error {
	receiver := vm.peek(argCount)
	instance, ok := receiver.(*value.ObjInstance)
	if !ok {
		return vm.runtimeError("only instances have methods")
	}

	if field, ok := instance.Fields.Get(name); ok {
		vm.stack[vm.stackTop-argCount-1] = field
		return vm.callValue(field, argCount)
	}

	return vm.invokeFromClass(instance.Class, name, argCount)
}

func (vm *VM) invokeFromClass(class *value.ObjClass, name string, argCount int) error {
	method, ok := class.Methods.Get(name)
	if !ok {
		return vm.runtimeError("undefined property '%s'", name)
	}
	return vm.callClosure(method, argCount)
}

// bindMethod replaces the receiver on top of the stack with a BoundMethod
// pairing it to the named method of class.
func (vm *VM) bindMethod(class *value.ObjClass, name string) error {
	method, ok := class.Methods.Get(name)
	if !ok {
		return vm.runtimeError("undefined property '%s'", name)
	}
	bound := vm.gc.NewBoundMethod(vm.peek(0), method)
	vm.pop()
	vm.push(bound)
	return nil
}

// captureUpvalue returns the (possibly pre-existing) open upvalue for the
// stack slot at local, inserting a new one in descending-index order if
// none exists yet.
func (vm *VM) captureUpvalue(local int) *value.ObjUpvalue {
	var prev *value.ObjUpvalue
	uv := vm.openUpvalues
	for uv != nil && uv.StackIndex > local {
		prev = uv
		uv = uv.Next
	}
	if uv != nil && uv.StackIndex == local {
		return uv
	}

	created := vm.gc.NewUpvalue(local)
	created.Next = uv
	if prev == nil {
		vm.openUpvalues = created
	} else {
		prev.Next = created
	}
	return created
}

// closeUpvalues closes every open upvalue at or above the stack slot
// last, detaching it from the open list.
func (vm *VM) closeUpvalues(last int) {
	for vm.openUpvalues != nil && vm.openUpvalues.StackIndex >= last {
		uv := vm.openUpvalues
		uv.Close(vm.stack[:])
		vm.openUpvalues = uv.Next
	}
}

func (vm *VM) runtimeError(format string, args ...any) error {
	return vm.newRuntimeError(fmt.Sprintf(format, args...))
}
