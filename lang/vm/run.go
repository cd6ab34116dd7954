package vm

import (
	"fmt"

	"github.com/willow-lang/willow/lang/value"
)

// run is the dispatch loop: a tight switch over the next opcode byte,
// decoding operands inline. It returns the script's implicit top-level
// return value (always Nil in practice, since a script body never itself
// contains a return) or the first runtime error raised.
func (vm *VM) run() (value.Value, error) {
	frame := &vm.frames[vm.frameCount-1]

	readByte := func() byte {
		b := frame.closure.Function.Chunk.Code[frame.ip]
		frame.ip++
		return b
	}
	readShort := func() int {
		hi := frame.closure.Function.Chunk.Code[frame.ip]
		lo := frame.closure.Function.Chunk.Code[frame.ip+1]
		frame.ip += 2
		return int(hi)<<8 | int(lo)
	}
	readConstant := func() value.Value {
		return frame.closure.Function.Chunk.Constants[readByte()]
	}
	readString := func() string {
		return readConstant().(*value.ObjString).Chars
	}

	for {
		if vm.TraceExecution {
			line, _ := frame.closure.Function.Chunk.DisassembleInstruction(frame.ip)
			fmt.Fprintln(vm.stderr(), line)
		}

		op := value.OpCode(readByte())
		switch op {
		case value.OP_CONSTANT:
			vm.push(readConstant())

		case value.OP_NIL:
			vm.push(value.Nil)
		case value.OP_TRUE:
			vm.push(value.Bool(true))
		case value.OP_FALSE:
			vm.push(value.Bool(false))
		case value.OP_POP:
			vm.pop()

		case value.OP_GET_LOCAL:
			slot := readByte()
			vm.push(vm.stack[frame.slots+int(slot)])
		case value.OP_SET_LOCAL:
			slot := readByte()
			vm.stack[frame.slots+int(slot)] = vm.peek(0)

		case value.OP_GET_GLOBAL:
			name := readString()
			v, ok := vm.globals.Get(name)
			if !ok {
				return nil, vm.runtimeError("undefined variable '%s'", name)
			}
			vm.push(v)
		case value.OP_DEFINE_GLOBAL:
			name := readString()
			vm.globals.Put(name, vm.peek(0))
			vm.pop()
		case value.OP_SET_GLOBAL:
			name := readString()
			if _, ok := vm.globals.Get(name); !ok {
				return nil, vm.runtimeError("undefined variable '%s'", name)
			}
			vm.globals.Put(name, vm.peek(0))

		case value.OP_GET_UPVALUE:
			slot := readByte()
			vm.push(frame.closure.Upvalues[slot].Get(vm.stack[:]))
		case value.OP_SET_UPVALUE:
			slot := readByte()
			frame.closure.Upvalues[slot].Set(vm.stack[:], vm.peek(0))

		case value.OP_GET_PROPERTY:
			instance, ok := vm.peek(0).(*value.ObjInstance)
			if !ok {
				return nil, vm.runtimeError("only instances have properties")
			}
			name := readString()
			if field, ok := instance.Fields.Get(name); ok {
				vm.pop()
				vm.push(field)
				break
			}
			if err := vm.bindMethod(instance.Class, name); err != nil {
				return nil, err
			}

		case value.OP_SET_PROPERTY:
			instance, ok := vm.peek(1).(*value.ObjInstance)
			if !ok {
				return nil, vm.runtimeError("only instances have fields")
			}
			name := readString()
			instance.Fields.Put(name, vm.peek(0))
			v := vm.pop()
			vm.pop()
			vm.push(v)

		case value.OP_GET_SUPER:
			name := readString()
			superclass := vm.pop().(*value.ObjClass)
			if err := vm.bindMethod(superclass, name); err != nil {
				return nil, err
			}

		case value.OP_EQUAL:
			b := vm.pop()
			a := vm.pop()
			vm.push(value.Bool(value.Equal(a, b)))

		case value.OP_GREATER, value.OP_LESS:
			bn, bOk := vm.peek(0).(value.Number)
			an, aOk := vm.peek(1).(value.Number)
			if !aOk || !bOk {
				return nil, vm.runtimeError("operands must be numbers")
			}
			vm.pop()
			vm.pop()
			if op == value.OP_GREATER {
				vm.push(value.Bool(an > bn))
			} else {
				vm.push(value.Bool(an < bn))
			}

		case value.OP_ADD:
			if err := vm.add(); err != nil {
				return nil, err
			}

		case value.OP_SUBTRACT, value.OP_MULTIPLY, value.OP_DIVIDE:
			bn, bOk := vm.peek(0).(value.Number)
			an, aOk := vm.peek(1).(value.Number)
			if !aOk || !bOk {
				return nil, vm.runtimeError("operands must be numbers")
			}
			vm.pop()
			vm.pop()
			switch op {
			case value.OP_SUBTRACT:
				vm.push(an - bn)
			case value.OP_MULTIPLY:
				vm.push(an * bn)
			case value.OP_DIVIDE:
				vm.push(an / bn)
			}

		case value.OP_NOT:
			vm.push(value.Bool(!value.Truthy(vm.pop())))

		case value.OP_NEGATE:
			n, ok := vm.peek(0).(value.Number)
			if !ok {
				return nil, vm.runtimeError("operand must be a number")
			}
			vm.pop()
			vm.push(-n)

		case value.OP_PRINT:
			fmt.Fprintln(vm.stdout(), vm.pop().String())

		case value.OP_JUMP:
			offset := readShort()
			frame.ip += offset
		case value.OP_JUMP_IF_FALSE:
			offset := readShort()
			if !value.Truthy(vm.peek(0)) {
				frame.ip += offset
			}
		case value.OP_LOOP:
			offset := readShort()
			frame.ip -= offset

		case value.OP_CALL:
			argCount := int(readByte())
			if err := vm.callValue(vm.peek(argCount), argCount); err != nil {
				return nil, err
			}
			frame = &vm.frames[vm.frameCount-1]

		case value.OP_INVOKE:
			name := readString()
			argCount := int(readByte())
			if err := vm.invoke(name, argCount); err != nil {
				return nil, err
			}
			frame = &vm.frames[vm.frameCount-1]

		case value.OP_SUPER_INVOKE:
			name := readString()
			argCount := int(readByte())
			superclass := vm.pop().(*value.ObjClass)
			if err := vm.invokeFromClass(superclass, name, argCount); err != nil {
				return nil, err
			}
			frame = &vm.frames[vm.frameCount-1]

		case value.OP_CLOSURE:
			fn := readConstant().(*value.ObjFunction)
			closure := vm.gc.NewClosure(fn)
			vm.push(closure)
			for i := 0; i < fn.UpvalueCount; i++ {
				isLocal := readByte()
				index := readByte()
				if isLocal != 0 {
					closure.Upvalues[i] = vm.captureUpvalue(frame.slots + int(index))
				} else {
					closure.Upvalues[i] = frame.closure.Upvalues[index]
				}
			}

		case value.OP_CLOSE_UPVALUE:
			vm.closeUpvalues(vm.stackTop - 1)
			vm.pop()

		case value.OP_RETURN:
			result := vm.pop()
			vm.closeUpvalues(frame.slots)
			vm.frameCount--
			if vm.frameCount == 0 {
				vm.pop()
				return result, nil
			}
			vm.stackTop = frame.slots
			vm.push(result)
			frame = &vm.frames[vm.frameCount-1]

		case value.OP_CLASS:
			vm.push(vm.gc.NewClass(readConstant().(*value.ObjString)))

		case value.OP_INHERIT:
			superclass, ok := vm.peek(1).(*value.ObjClass)
			if !ok {
				return nil, vm.runtimeError("superclass must be a class")
			}
			subclass := vm.peek(0).(*value.ObjClass)
			superclass.Methods.Iter(func(name string, m *value.ObjClosure) bool {
				subclass.Methods.Put(name, m)
				return false
			})
			vm.pop() // subclass

		case value.OP_METHOD:
			vm.defineMethod(readString())

		default:
			return nil, vm.runtimeError("unimplemented opcode %s", op)
		}
	}
}

// add implements OP_ADD: number+number or string+string (concatenation);
// anything else is a runtime error. The two operands are kept on the
// stack across the GC.Concat call (the write-barrier equivalent of spec
// §4.4) and popped only once the result is known.
func (vm *VM) add() error {
	b := vm.peek(0)
	a := vm.peek(1)

	switch bv := b.(type) {
	case value.Number:
		av, ok := a.(value.Number)
		if !ok {
			return vm.runtimeError("operands must be two numbers or two strings")
		}
		vm.pop()
		vm.pop()
		vm.push(av + bv)
		return nil

	case *value.ObjString:
		av, ok := a.(*value.ObjString)
		if !ok {
			return vm.runtimeError("operands must be two numbers or two strings")
		}
		result := vm.gc.Concat(av, bv)
		vm.pop()
		vm.pop()
		vm.push(result)
		return nil

	default:
		return vm.runtimeError("operands must be two numbers or two strings")
	}
}

// defineMethod pops the just-compiled method closure off the stack and
// installs it into the class beneath it on the stack, per OP_METHOD.
func (vm *VM) defineMethod(name string) {
	method := vm.pop().(*value.ObjClosure)
	class := vm.peek(0).(*value.ObjClass)
	class.Methods.Put(name, method)
}
