package value

import "fmt"

// ObjFunction is an immutable compiled unit: its arity, its declared
// upvalue count, its bytecode chunk, and an optional name. A nil Name means
// this is the implicit top-level function wrapping a whole script. Calls
// never invoke a Function directly: the VM always calls through a Closure
// that binds it to its captured upvalues.
type ObjFunction struct {
	gcHeader
	Arity        int
	UpvalueCount int
	Chunk        Chunk
	Name         *ObjString
}

var _ Obj = (*ObjFunction)(nil)

func (f *ObjFunction) String() string {
	if f.Name == nil {
		return "<script>"
	}
	return fmt.Sprintf("<fn %s>", f.Name.Chars)
}

func (f *ObjFunction) blacken(gc *GC) {
	if f.Name != nil {
		gc.MarkObject(f.Name)
	}
	for _, c := range f.Chunk.Constants {
		gc.MarkValue(c)
	}
}

func (f *ObjFunction) size() int64 { return int64(64 + len(f.Chunk.Code) + len(f.Chunk.Constants)*8) }

// NativeFn is the signature of a host-provided callable registered into the
// global namespace, e.g. clock.
type NativeFn func(argCount int, args []Value) (Value, error)

// ObjNative wraps a host callable so it can be called like any other
// language-level function.
type ObjNative struct {
	gcHeader
	Name string
	Fn   NativeFn
}

var _ Obj = (*ObjNative)(nil)

func (n *ObjNative) String() string  { return fmt.Sprintf("<native fn %s>", n.Name) }
func (n *ObjNative) blacken(*GC)     {}
func (n *ObjNative) size() int64     { return 32 }
