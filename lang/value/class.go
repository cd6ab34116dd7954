package value

import (
	"fmt"

	"github.com/dolthub/swiss"
)

// ObjClass is a named class with a method table mapping method name to the
// Closure implementing it. After OP_INHERIT a subclass's method table is
// pre-populated with its superclass's entries; later OP_METHOD instructions
// overwrite individual entries, which is how overriding works.
type ObjClass struct {
	gcHeader
	Name    *ObjString
	Methods *swiss.Map[string, *ObjClosure]
}

var _ Obj = (*ObjClass)(nil)

// NewClassMethods returns an empty method table sized for typical class
// bodies.
func NewClassMethods() *swiss.Map[string, *ObjClosure] {
	return swiss.NewMap[string, *ObjClosure](8)
}

func (c *ObjClass) String() string { return fmt.Sprintf("<class %s>", c.Name.Chars) }
func (c *ObjClass) blacken(gc *GC) {
	gc.MarkObject(c.Name)
	c.Methods.Iter(func(_ string, m *ObjClosure) bool {
		gc.MarkObject(m)
		return false
	})
}
func (c *ObjClass) size() int64 { return int64(32 + c.Methods.Count()*48) }

// ObjInstance is an instance of a class with a mutable field table mapping
// field name to Value.
type ObjInstance struct {
	gcHeader
	Class  *ObjClass
	Fields *swiss.Map[string, Value]
}

var _ Obj = (*ObjInstance)(nil)

func (i *ObjInstance) String() string { return fmt.Sprintf("<%s instance>", i.Class.Name.Chars) }
func (i *ObjInstance) blacken(gc *GC) {
	gc.MarkObject(i.Class)
	i.Fields.Iter(func(_ string, v Value) bool {
		gc.MarkValue(v)
		return false
	})
}
func (i *ObjInstance) size() int64 { return int64(32 + i.Fields.Count()*48) }

// ObjBoundMethod pairs a receiver with the method Closure that should run
// with that receiver installed as slot 0 of the call frame.
type ObjBoundMethod struct {
	gcHeader
	Receiver Value
	Method   *ObjClosure
}

var _ Obj = (*ObjBoundMethod)(nil)

func (b *ObjBoundMethod) String() string { return b.Method.String() }
func (b *ObjBoundMethod) blacken(gc *GC) {
	gc.MarkValue(b.Receiver)
	gc.MarkObject(b.Method)
}
func (b *ObjBoundMethod) size() int64 { return 32 }
