// Package value implements the runtime value representation shared by the
// compiler and the VM: the tagged Value union, the heap object variants
// (string, function, closure, upvalue, class, instance, bound method), and
// the tracing garbage collector that reclaims them.
package value

import "fmt"

// Value is any value the machine can manipulate: nil, a boolean, a
// double-precision number, or a reference to a heap Obj. Equality for the
// primitive kinds and for interned strings is plain Go `==`; all other heap
// objects compare by identity, which `==` on an interface value already
// gives us since their concrete type is always a pointer.
type Value interface {
	isValue()
	String() string
}

// NilType is the type of Nil. There is exactly one value of this type.
type NilType struct{}

func (NilType) isValue()       {}
func (NilType) String() string { return "nil" }

// Nil is the sole nil value.
var Nil = NilType{}

// Bool is the boolean value kind.
type Bool bool

func (Bool) isValue() {}
func (b Bool) String() string {
	if b {
		return "true"
	}
	return "false"
}

// Number is the double-precision numeric value kind.
type Number float64

func (Number) isValue() {}
func (n Number) String() string {
	return fmt.Sprintf("%g", float64(n))
}

// Truthy implements the language's truthiness rule: only nil and false are
// falsey, everything else (including 0 and "") is truthy.
func Truthy(v Value) bool {
	switch v := v.(type) {
	case NilType:
		return false
	case Bool:
		return bool(v)
	default:
		return true
	}
}

// Equal reports whether a and b are the same value: by content for nil,
// booleans and numbers, and by identity for heap objects (which, because
// strings are interned, makes string equality content equality too).
func Equal(a, b Value) bool {
	return a == b
}

// ObjType identifies the concrete kind of a heap-allocated Obj.
type ObjType uint8

//nolint:revive
const (
	ObjTypeString ObjType = iota
	ObjTypeFunction
	ObjTypeNative
	ObjTypeClosure
	ObjTypeUpvalue
	ObjTypeClass
	ObjTypeInstance
	ObjTypeBoundMethod
)

func (t ObjType) String() string {
	switch t {
	case ObjTypeString:
		return "string"
	case ObjTypeFunction:
		return "function"
	case ObjTypeNative:
		return "native"
	case ObjTypeClosure:
		return "closure"
	case ObjTypeUpvalue:
		return "upvalue"
	case ObjTypeClass:
		return "class"
	case ObjTypeInstance:
		return "instance"
	case ObjTypeBoundMethod:
		return "bound method"
	default:
		return "unknown"
	}
}

// Obj is implemented by every heap-allocated value. All heap objects share
// a common GC header: a type tag, a mark bit, and an intrusive "next" link
// forming the allocator's global allocation list.
type Obj interface {
	Value
	isObj()
	objType() ObjType
	header() *gcHeader
	// blacken marks every Value this object directly references, pushing
	// newly-gray objects onto gc's gray stack.
	blacken(gc *GC)
	// size is a rough accounting figure used for the bytesAllocated /
	// nextGC growth heuristic; it need not be exact.
	size() int64
}

// gcHeader is embedded in every concrete Obj implementation.
type gcHeader struct {
	typ    ObjType
	marked bool
	next   Obj
}

func (h *gcHeader) header() *gcHeader { return h }
func (h *gcHeader) objType() ObjType  { return h.typ }
func (h *gcHeader) isObj()            {}
func (h *gcHeader) isValue()          {}
