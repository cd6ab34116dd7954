package value

import "fmt"

// OpCode is a single bytecode instruction.
type OpCode uint8

//nolint:revive
const (
	OP_NIL OpCode = iota
	OP_TRUE
	OP_FALSE
	OP_POP
	OP_EQUAL
	OP_GREATER
	OP_LESS
	OP_ADD
	OP_SUBTRACT
	OP_MULTIPLY
	OP_DIVIDE
	OP_NOT
	OP_NEGATE
	OP_PRINT
	OP_RETURN
	OP_CLOSE_UPVALUE
	OP_INHERIT

	// 1-byte operand opcodes start here.
	OP_CONSTANT
	OP_DEFINE_GLOBAL
	OP_GET_GLOBAL
	OP_SET_GLOBAL
	OP_GET_LOCAL
	OP_SET_LOCAL
	OP_GET_UPVALUE
	OP_SET_UPVALUE
	OP_GET_PROPERTY
	OP_SET_PROPERTY
	OP_CLASS
	OP_METHOD
	OP_CALL

	// 2-byte (big-endian) jump-offset opcodes.
	OP_JUMP
	OP_JUMP_IF_FALSE
	OP_LOOP

	// Fused opcodes with their own operand shapes (see Chunk.Disassemble).
	OP_GET_SUPER     // 1-byte name constant index
	OP_INVOKE        // 1-byte name constant index, 1-byte arg count
	OP_SUPER_INVOKE  // 1-byte name constant index, 1-byte arg count
	OP_CLOSURE       // 1-byte function constant index, then 2*upvalueCount bytes
)

var opcodeNames = [...]string{
	OP_NIL:            "OP_NIL",
	OP_TRUE:           "OP_TRUE",
	OP_FALSE:          "OP_FALSE",
	OP_POP:            "OP_POP",
	OP_EQUAL:          "OP_EQUAL",
	OP_GREATER:        "OP_GREATER",
	OP_LESS:           "OP_LESS",
	OP_ADD:            "OP_ADD",
	OP_SUBTRACT:       "OP_SUBTRACT",
	OP_MULTIPLY:       "OP_MULTIPLY",
	OP_DIVIDE:         "OP_DIVIDE",
	OP_NOT:            "OP_NOT",
	OP_NEGATE:         "OP_NEGATE",
	OP_PRINT:          "OP_PRINT",
	OP_RETURN:         "OP_RETURN",
	OP_CLOSE_UPVALUE:  "OP_CLOSE_UPVALUE",
	OP_INHERIT:        "OP_INHERIT",
	OP_CONSTANT:       "OP_CONSTANT",
	OP_DEFINE_GLOBAL:  "OP_DEFINE_GLOBAL",
	OP_GET_GLOBAL:     "OP_GET_GLOBAL",
	OP_SET_GLOBAL:     "OP_SET_GLOBAL",
	OP_GET_LOCAL:      "OP_GET_LOCAL",
	OP_SET_LOCAL:      "OP_SET_LOCAL",
	OP_GET_UPVALUE:    "OP_GET_UPVALUE",
	OP_SET_UPVALUE:    "OP_SET_UPVALUE",
	OP_GET_PROPERTY:   "OP_GET_PROPERTY",
	OP_SET_PROPERTY:   "OP_SET_PROPERTY",
	OP_CLASS:          "OP_CLASS",
	OP_METHOD:         "OP_METHOD",
	OP_CALL:           "OP_CALL",
	OP_JUMP:           "OP_JUMP",
	OP_JUMP_IF_FALSE:  "OP_JUMP_IF_FALSE",
	OP_LOOP:           "OP_LOOP",
	OP_GET_SUPER:      "OP_GET_SUPER",
	OP_INVOKE:         "OP_INVOKE",
	OP_SUPER_INVOKE:   "OP_SUPER_INVOKE",
	OP_CLOSURE:        "OP_CLOSURE",
}

func (op OpCode) String() string {
	if int(op) < len(opcodeNames) && opcodeNames[op] != "" {
		return opcodeNames[op]
	}
	return fmt.Sprintf("illegal opcode (%d)", byte(op))
}

// Chunk is an append-only bytecode vector with a parallel source-line map
// and a pool of constants referenced by single-byte index.
type Chunk struct {
	Code      []byte
	Lines     []int
	Constants []Value
}

// Write appends a single byte of bytecode, recording the source line it
// came from.
func (c *Chunk) Write(b byte, line int) {
	c.Code = append(c.Code, b)
	c.Lines = append(c.Lines, line)
}

// WriteOp appends an opcode byte.
func (c *Chunk) WriteOp(op OpCode, line int) {
	c.Write(byte(op), line)
}

// AddConstant appends v to the constant pool and returns its index. A chunk
// is bounded to 256 distinct constants since constants are addressed by a
// single byte operand.
func (c *Chunk) AddConstant(v Value) (int, error) {
	if len(c.Constants) >= 256 {
		return 0, fmt.Errorf("too many constants in one chunk")
	}
	c.Constants = append(c.Constants, v)
	return len(c.Constants) - 1, nil
}

// Disassemble renders the entire chunk in the textual pseudo-assembly
// format used by debugging tools and tests.
func (c *Chunk) Disassemble(name string) string {
	var sb []byte
	sb = append(sb, fmt.Sprintf("== %s ==\n", name)...)
	for offset := 0; offset < len(c.Code); {
		line, next := c.disassembleInstruction(offset)
		sb = append(sb, line...)
		sb = append(sb, '\n')
		offset = next
	}
	return string(sb)
}

// DisassembleInstruction renders the single instruction at offset, for
// per-instruction execution tracing (vm.VM.TraceExecution).
func (c *Chunk) DisassembleInstruction(offset int) (string, int) {
	return c.disassembleInstruction(offset)
}

func (c *Chunk) disassembleInstruction(offset int) (string, int) {
	prefix := fmt.Sprintf("%04d ", offset)
	if offset > 0 && c.Lines[offset] == c.Lines[offset-1] {
		prefix += "   | "
	} else {
		prefix += fmt.Sprintf("%4d ", c.Lines[offset])
	}

	op := OpCode(c.Code[offset])
	switch op {
	case OP_CONSTANT, OP_DEFINE_GLOBAL, OP_GET_GLOBAL, OP_SET_GLOBAL,
		OP_CLASS, OP_METHOD, OP_GET_PROPERTY, OP_SET_PROPERTY, OP_GET_SUPER:
		idx := c.Code[offset+1]
		return fmt.Sprintf("%s%-16s %4d '%s'", prefix, op, idx, c.Constants[idx]), offset + 2

	case OP_GET_LOCAL, OP_SET_LOCAL, OP_GET_UPVALUE, OP_SET_UPVALUE, OP_CALL:
		idx := c.Code[offset+1]
		return fmt.Sprintf("%s%-16s %4d", prefix, op, idx), offset + 2

	case OP_INVOKE, OP_SUPER_INVOKE:
		idx := c.Code[offset+1]
		argc := c.Code[offset+2]
		return fmt.Sprintf("%s%-16s (%d args) %4d '%s'", prefix, op, argc, idx, c.Constants[idx]), offset + 3

	case OP_JUMP, OP_JUMP_IF_FALSE:
		hi, lo := c.Code[offset+1], c.Code[offset+2]
		jump := int(hi)<<8 | int(lo)
		return fmt.Sprintf("%s%-16s %4d -> %d", prefix, op, offset, offset+3+jump), offset + 3

	case OP_LOOP:
		hi, lo := c.Code[offset+1], c.Code[offset+2]
		jump := int(hi)<<8 | int(lo)
		return fmt.Sprintf("%s%-16s %4d -> %d", prefix, op, offset, offset+3-jump), offset + 3

	case OP_CLOSURE:
		idx := c.Code[offset+1]
		fn := c.Constants[idx].(*ObjFunction)
		line := fmt.Sprintf("%s%-16s %4d '%s'", prefix, op, idx, fn)
		next := offset + 2
		for i := 0; i < fn.UpvalueCount; i++ {
			isLocal := c.Code[next]
			index := c.Code[next+1]
			kind := "upvalue"
			if isLocal != 0 {
				kind = "local"
			}
			line += fmt.Sprintf("\n%04d      |                     %s %d", next, kind, index)
			next += 2
		}
		return line, next

	default:
		return fmt.Sprintf("%s%-16s", prefix, op), offset + 1
	}
}
