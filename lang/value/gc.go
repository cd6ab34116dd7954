package value

import (
	"fmt"
	"io"

	"github.com/dolthub/swiss"
)

// defaultNextGC is the initial bytesAllocated threshold before the first
// collection is triggered.
const defaultNextGC = 1 << 20 // 1 MiB

// GC is a precise, non-moving, tri-color mark-sweep collector. It owns the
// global allocation list (every live heap object, and nothing else) and the
// weak string-intern table. It is triggered opportunistically by the
// allocator methods (NewX / InternString) whenever bytesAllocated exceeds
// nextGC, and sees roots supplied by whichever of the compiler or the VM
// (or both, since a single GC is shared by compile-time and run-time
// allocation) registers itself via SetCompilerRoots / SetVMRoots.
type GC struct {
	objects Obj
	strings *swiss.Map[string, *ObjString]

	bytesAllocated int64
	nextGC         int64
	growthFactor   int64
	grayStack      []Obj

	compilerRoots func(*GC)
	vmRoots       func(*GC)

	// Debug, when true, forces a collection on every single allocation
	// instead of only when bytesAllocated exceeds nextGC. Useful to shake
	// out missing roots in tests.
	Debug bool
	// Log, if non-nil, receives one line per collection summarizing bytes
	// freed and the new threshold.
	Log io.Writer

	collections int
}

// NewGC returns a ready-to-use collector with nothing allocated yet.
func NewGC() *GC {
	return &GC{
		strings:      swiss.NewMap[string, *ObjString](64),
		nextGC:       defaultNextGC,
		growthFactor: 2,
	}
}

// SetCompilerRoots registers (or clears, with nil) the function that marks
// roots reachable from the active compiler chain. The compiler calls this
// around a Compile call so that allocations made while compiling don't get
// collected out from under an in-progress function.
func (gc *GC) SetCompilerRoots(mark func(*GC)) { gc.compilerRoots = mark }

// SetVMRoots registers (or clears, with nil) the function that marks roots
// reachable from the VM: its value stack, call frames, globals table, open
// upvalues, and initString.
func (gc *GC) SetVMRoots(mark func(*GC)) { gc.vmRoots = mark }

// MarkValue marks v if it is a heap object; primitives are ignored.
func (gc *GC) MarkValue(v Value) {
	if o, ok := v.(Obj); ok {
		gc.MarkObject(o)
	}
}

// MarkObject marks o gray (pushing it to the gray stack for later tracing)
// unless it is already marked.
func (gc *GC) MarkObject(o Obj) {
	if o == nil {
		return
	}
	h := o.header()
	if h.marked {
		return
	}
	h.marked = true
	gc.grayStack = append(gc.grayStack, o)
}

// BytesAllocated returns the live-object byte accounting figure.
func (gc *GC) BytesAllocated() int64 { return gc.bytesAllocated }

// NextGC returns the threshold that will trigger the next collection.
func (gc *GC) NextGC() int64 { return gc.nextGC }

// SetNextGC overrides the next-collection threshold, letting an embedder
// (vm.Config, via WILLOW_GC_INITIAL_BYTES) pick a starting point other
// than defaultNextGC.
func (gc *GC) SetNextGC(n int64) { gc.nextGC = n }

// SetGrowthFactor overrides the post-collection threshold multiplier
// (vm.Config.GCGrowthFactor); defaults to 2.
func (gc *GC) SetGrowthFactor(f int64) { gc.growthFactor = f }

// Collections returns the number of completed collections so far.
func (gc *GC) Collections() int { return gc.collections }

// Collect forces an immediate mark-sweep collection.
func (gc *GC) Collect() {
	before := gc.bytesAllocated

	if gc.compilerRoots != nil {
		gc.compilerRoots(gc)
	}
	if gc.vmRoots != nil {
		gc.vmRoots(gc)
	}
	gc.traceReferences()
	gc.sweepStrings()
	gc.sweep()

	gc.nextGC = gc.bytesAllocated * gc.growthFactor
	if gc.nextGC < defaultNextGC {
		gc.nextGC = defaultNextGC
	}
	gc.collections++

	if gc.Log != nil {
		fmt.Fprintf(gc.Log, "-- gc collected %d bytes (%d -> %d) next at %d\n",
			before-gc.bytesAllocated, before, gc.bytesAllocated, gc.nextGC)
	}
}

func (gc *GC) maybeCollect() {
	if gc.Debug || gc.bytesAllocated > gc.nextGC {
		gc.Collect()
	}
}

func (gc *GC) traceReferences() {
	for len(gc.grayStack) > 0 {
		n := len(gc.grayStack) - 1
		o := gc.grayStack[n]
		gc.grayStack = gc.grayStack[:n]
		o.blacken(gc)
	}
}

// sweepStrings removes unmarked entries from the weak intern table so that
// swept strings don't leave dangling keys behind. Must run after tracing
// and before sweep clears mark bits.
func (gc *GC) sweepStrings() {
	var dead []string
	gc.strings.Iter(func(k string, v *ObjString) bool {
		if !v.header().marked {
			dead = append(dead, k)
		}
		return false
	})
	for _, k := range dead {
		gc.strings.Delete(k)
	}
}

// sweep walks the allocation list, unlinking and discarding unmarked
// objects, and clears the mark bit on survivors.
func (gc *GC) sweep() {
	var prev Obj
	obj := gc.objects
	for obj != nil {
		h := obj.header()
		if h.marked {
			h.marked = false
			prev = obj
			obj = h.next
			continue
		}

		unreached := obj
		obj = h.next
		if prev != nil {
			prev.header().next = obj
		} else {
			gc.objects = obj
		}
		gc.bytesAllocated -= unreached.size()
	}
}

func (gc *GC) register(o Obj, sz int64) {
	h := o.header()
	h.next = gc.objects
	gc.objects = o
	gc.bytesAllocated += sz
}

// LiveObjects returns the number of objects currently on the allocation
// list, a property exercised directly by tests.
func (gc *GC) LiveObjects() int {
	n := 0
	for o := gc.objects; o != nil; o = o.header().next {
		n++
	}
	return n
}

// InternString returns the unique ObjString for s, allocating and
// registering a new one (and triggering GC bookkeeping) only if s has never
// been seen before.
func (gc *GC) InternString(s string) *ObjString {
	if existing, ok := gc.strings.Get(s); ok {
		return existing
	}
	gc.maybeCollect()
	obj := &ObjString{gcHeader: gcHeader{typ: ObjTypeString}, Chars: s, hash: fnv1a(s)}
	gc.register(obj, obj.size())
	gc.strings.Put(s, obj)
	return obj
}

// Concat interns the concatenation of a and b. a and b must already be kept
// alive by the caller (e.g. still resident on the VM's operand stack) for
// the duration of this call: that is the write-barrier equivalent this
// collector needs, since InternString below is the only allocation point
// here and it cannot observe a or b through the allocation list.
func (gc *GC) Concat(a, b *ObjString) *ObjString {
	return gc.InternString(a.Chars + b.Chars)
}

func (gc *GC) NewFunction() *ObjFunction {
	gc.maybeCollect()
	obj := &ObjFunction{gcHeader: gcHeader{typ: ObjTypeFunction}}
	gc.register(obj, obj.size())
	return obj
}

func (gc *GC) NewNative(name string, fn NativeFn) *ObjNative {
	gc.maybeCollect()
	obj := &ObjNative{gcHeader: gcHeader{typ: ObjTypeNative}, Name: name, Fn: fn}
	gc.register(obj, obj.size())
	return obj
}

func (gc *GC) NewClosure(fn *ObjFunction) *ObjClosure {
	gc.maybeCollect()
	obj := &ObjClosure{
		gcHeader: gcHeader{typ: ObjTypeClosure},
		Function: fn,
		Upvalues: make([]*ObjUpvalue, fn.UpvalueCount),
	}
	gc.register(obj, obj.size())
	return obj
}

// NewUpvalue returns a new upvalue open over stack slot index.
func (gc *GC) NewUpvalue(index int) *ObjUpvalue {
	gc.maybeCollect()
	obj := &ObjUpvalue{gcHeader: gcHeader{typ: ObjTypeUpvalue}, StackIndex: index, Open: true}
	gc.register(obj, obj.size())
	return obj
}

func (gc *GC) NewClass(name *ObjString) *ObjClass {
	gc.maybeCollect()
	obj := &ObjClass{gcHeader: gcHeader{typ: ObjTypeClass}, Name: name, Methods: NewClassMethods()}
	gc.register(obj, obj.size())
	return obj
}

func (gc *GC) NewInstance(class *ObjClass) *ObjInstance {
	gc.maybeCollect()
	obj := &ObjInstance{
		gcHeader: gcHeader{typ: ObjTypeInstance},
		Class:    class,
		Fields:   swiss.NewMap[string, Value](4),
	}
	gc.register(obj, obj.size())
	return obj
}

func (gc *GC) NewBoundMethod(recv Value, m *ObjClosure) *ObjBoundMethod {
	gc.maybeCollect()
	obj := &ObjBoundMethod{gcHeader: gcHeader{typ: ObjTypeBoundMethod}, Receiver: recv, Method: m}
	gc.register(obj, obj.size())
	return obj
}
