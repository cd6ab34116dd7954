package value

import "fmt"

// ObjUpvalue is a runtime indirection to a captured variable, modeled as
// the two states it can be in: Open(StackIndex) while the variable is
// still a live local on the VM's value stack, or Closed(Closed) once the
// function that declared it has returned (or the scope that declared it
// has ended) and the value has been copied out to live on its own.
type ObjUpvalue struct {
	gcHeader
	StackIndex int // valid only while Open
	Closed     Value
	Open       bool
	// Next links open upvalues in the VM's open-upvalues list, kept sorted
	// by descending stack index. Closing unlinks the upvalue from that list
	// but does not reset this field.
	Next *ObjUpvalue
}

var _ Obj = (*ObjUpvalue)(nil)

func (u *ObjUpvalue) String() string { return "upvalue" }

// blacken marks the closed value. A still-open upvalue names a slot that
// is part of the VM's active stack range, which the VM's own root marking
// already scans, so there is nothing extra to mark here.
func (u *ObjUpvalue) blacken(gc *GC) {
	if !u.Open {
		gc.MarkValue(u.Closed)
	}
}
func (u *ObjUpvalue) size() int64 { return 32 }

// Get reads the upvalue's current value: the live stack slot while open,
// or the Closed copy once closed.
func (u *ObjUpvalue) Get(stack []Value) Value {
	if u.Open {
		return stack[u.StackIndex]
	}
	return u.Closed
}

// Set writes v to wherever the upvalue currently resolves to.
func (u *ObjUpvalue) Set(stack []Value, v Value) {
	if u.Open {
		stack[u.StackIndex] = v
	} else {
		u.Closed = v
	}
}

// Close copies the current stack-slot value into Closed and transitions
// the upvalue out of the Open state, detaching it from the stack.
func (u *ObjUpvalue) Close(stack []Value) {
	u.Closed = stack[u.StackIndex]
	u.Open = false
}

// ObjClosure is a runtime binding of a Function to the array of upvalues it
// captured. All calls go through a Closure; a bare Function is never called
// directly.
type ObjClosure struct {
	gcHeader
	Function *ObjFunction
	Upvalues []*ObjUpvalue
}

var _ Obj = (*ObjClosure)(nil)

func (c *ObjClosure) String() string { return c.Function.String() }
func (c *ObjClosure) blacken(gc *GC) {
	gc.MarkObject(c.Function)
	for _, uv := range c.Upvalues {
		if uv != nil {
			gc.MarkObject(uv)
		}
	}
}
func (c *ObjClosure) size() int64 { return int64(32 + len(c.Upvalues)*8) }

// Name returns the closure's display name in the same form stack traces
// use: "name()" for a named function, "script" for the top level.
func (c *ObjClosure) Name() string {
	if c.Function.Name == nil {
		return "script"
	}
	return fmt.Sprintf("%s()", c.Function.Name.Chars)
}
