// Package compiler lowers the ast package's tree into value.Chunk bytecode
// that the vm package executes.
package compiler

import (
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/bits-and-blooms/bitset"
	"github.com/dustin/go-humanize"
	"github.com/polotto/hetu-script/value"
)

// Instructions and ConstantPool are defined on the value package: a Chunk
// is just as meaningful to the VM as it is to the compiler, so the
// representation lives where both sides can share it without an import
// cycle.
type Instructions = value.Instructions
type ConstantPool = value.ConstantPool

type Opcode byte

// Opcode names extend the teacher's original flat OP_CONSTANT/OP_ADD/...
// set (they do not reuse the constTable/local/register/... vocabulary of
// the wire format), generalized the same way ast_compiler.go's
// jump-backpatching compiler was
// generalized: same encoding idiom (opcode byte + big-endian operand
// bytes), many more opcodes.
const (
	OP_CONST_INT Opcode = iota
	OP_CONST_FLOAT
	OP_CONST_STRING
	OP_NULL
	OP_TRUE
	OP_FALSE

	OP_POP
	OP_DUP

	OP_DEFINE_GLOBAL
	OP_GET_GLOBAL
	OP_SET_GLOBAL
	OP_DEFINE_LOCAL
	OP_GET_LOCAL
	OP_SET_LOCAL
	OP_SCOPE_ENTER
	OP_SCOPE_EXIT

	OP_JUMP
	OP_JUMP_IF_FALSE
	OP_LOOP

	OP_ADD
	OP_SUBTRACT
	OP_MULTIPLY
	OP_DIVIDE
	OP_MODULO
	OP_NEGATE
	OP_NOT

	OP_EQUAL
	OP_NOT_EQUAL
	OP_LESS
	OP_LESS_EQUAL
	OP_GREATER
	OP_GREATER_EQUAL

	OP_TYPE_IS
	OP_TYPE_IS_NOT
	OP_TYPE_AS
	OP_TYPE_OF

	OP_BUILD_LIST
	OP_BUILD_STRUCT
	OP_STRING_INTERP

	OP_MEMBER_GET
	OP_MEMBER_SET
	OP_SUB_GET
	OP_SUB_SET

	OP_CALL
	OP_CALL_NAMED
	OP_RETURN

	OP_CLOSURE
	OP_CLASS
	OP_INHERIT
	OP_METHOD
	OP_GET_SUPER

	OP_BREAK_LOOP
	OP_CONTINUE_LOOP

	OP_IMPORT

	OP_END
)

var opcodeNames = map[Opcode]string{
	OP_CONST_INT:     "OP_CONST_INT",
	OP_CONST_FLOAT:   "OP_CONST_FLOAT",
	OP_CONST_STRING:  "OP_CONST_STRING",
	OP_NULL:          "OP_NULL",
	OP_TRUE:          "OP_TRUE",
	OP_FALSE:         "OP_FALSE",
	OP_POP:           "OP_POP",
	OP_DUP:           "OP_DUP",
	OP_DEFINE_GLOBAL: "OP_DEFINE_GLOBAL",
	OP_GET_GLOBAL:    "OP_GET_GLOBAL",
	OP_SET_GLOBAL:    "OP_SET_GLOBAL",
	OP_DEFINE_LOCAL:  "OP_DEFINE_LOCAL",
	OP_GET_LOCAL:     "OP_GET_LOCAL",
	OP_SET_LOCAL:     "OP_SET_LOCAL",
	OP_SCOPE_ENTER:   "OP_SCOPE_ENTER",
	OP_SCOPE_EXIT:    "OP_SCOPE_EXIT",
	OP_JUMP:          "OP_JUMP",
	OP_JUMP_IF_FALSE: "OP_JUMP_IF_FALSE",
	OP_LOOP:          "OP_LOOP",
	OP_ADD:           "OP_ADD",
	OP_SUBTRACT:      "OP_SUBTRACT",
	OP_MULTIPLY:      "OP_MULTIPLY",
	OP_DIVIDE:        "OP_DIVIDE",
	OP_MODULO:        "OP_MODULO",
	OP_NEGATE:        "OP_NEGATE",
	OP_NOT:           "OP_NOT",
	OP_EQUAL:         "OP_EQUAL",
	OP_NOT_EQUAL:     "OP_NOT_EQUAL",
	OP_LESS:          "OP_LESS",
	OP_LESS_EQUAL:    "OP_LESS_EQUAL",
	OP_GREATER:       "OP_GREATER",
	OP_GREATER_EQUAL: "OP_GREATER_EQUAL",
	OP_TYPE_IS:       "OP_TYPE_IS",
	OP_TYPE_IS_NOT:   "OP_TYPE_IS_NOT",
	OP_TYPE_AS:       "OP_TYPE_AS",
	OP_TYPE_OF:       "OP_TYPE_OF",
	OP_BUILD_LIST:    "OP_BUILD_LIST",
	OP_BUILD_STRUCT:  "OP_BUILD_STRUCT",
	OP_STRING_INTERP: "OP_STRING_INTERP",
	OP_MEMBER_GET:    "OP_MEMBER_GET",
	OP_MEMBER_SET:    "OP_MEMBER_SET",
	OP_SUB_GET:       "OP_SUB_GET",
	OP_SUB_SET:       "OP_SUB_SET",
	OP_CALL:          "OP_CALL",
	OP_CALL_NAMED:    "OP_CALL_NAMED",
	OP_RETURN:        "OP_RETURN",
	OP_CLOSURE:       "OP_CLOSURE",
	OP_CLASS:         "OP_CLASS",
	OP_INHERIT:       "OP_INHERIT",
	OP_METHOD:        "OP_METHOD",
	OP_GET_SUPER:     "OP_GET_SUPER",
	OP_BREAK_LOOP:    "OP_BREAK_LOOP",
	OP_CONTINUE_LOOP: "OP_CONTINUE_LOOP",
	OP_IMPORT:        "OP_IMPORT",
	OP_END:           "OP_END",
}

// OPCODE_TOTAL_BYTES is the width of the opcode byte itself, the same
// constant name the teacher's disassembler used for instruction-length
// bookkeeping.
const OPCODE_TOTAL_BYTES = 1

// OPERAND_WIDTH is the width, in bytes, of every operand this bytecode
// format uses. Every opcode here takes zero or one operand, so instruction
// length is always either 1 or 1+OPERAND_WIDTH bytes - simpler than the
// teacher's per-opcode OperandWidths slice, since no opcode in this set
// needs more than a single uint16 operand.
const OPERAND_WIDTH = 2

// OpCodeDefinition describes how many operands an opcode takes and how
// wide they are, the same shape the teacher's compiler/code.go used.
type OpCodeDefinition struct {
	Name          string
	OperandWidths []int
}

// noOperandOpcodes marks every zero-operand opcode, one bit per opcode
// byte value. A dense bitset reads more directly as "is opcode N in this
// set" than a map keyed on a single-byte type, the same bookkeeping
// style used elsewhere in the pack for register/column liveness.
var noOperandOpcodes = bitset.New(uint(OP_END) + 1).
	Set(uint(OP_NULL)).Set(uint(OP_TRUE)).Set(uint(OP_FALSE)).
	Set(uint(OP_POP)).Set(uint(OP_DUP)).
	Set(uint(OP_ADD)).Set(uint(OP_SUBTRACT)).Set(uint(OP_MULTIPLY)).Set(uint(OP_DIVIDE)).
	Set(uint(OP_MODULO)).Set(uint(OP_NEGATE)).Set(uint(OP_NOT)).
	Set(uint(OP_EQUAL)).Set(uint(OP_NOT_EQUAL)).Set(uint(OP_LESS)).Set(uint(OP_LESS_EQUAL)).
	Set(uint(OP_GREATER)).Set(uint(OP_GREATER_EQUAL)).
	Set(uint(OP_TYPE_IS)).Set(uint(OP_TYPE_IS_NOT)).Set(uint(OP_TYPE_AS)).Set(uint(OP_TYPE_OF)).
	Set(uint(OP_SUB_GET)).Set(uint(OP_SUB_SET)).
	Set(uint(OP_RETURN)).Set(uint(OP_INHERIT)).
	Set(uint(OP_SCOPE_ENTER)).Set(uint(OP_SCOPE_EXIT)).
	Set(uint(OP_BREAK_LOOP)).Set(uint(OP_CONTINUE_LOOP)).
	Set(uint(OP_END))

// Get returns op's definition: its human-readable name and operand
// widths, used by both AssembleInstruction and DisassembleInstruction.
func Get(op Opcode) (*OpCodeDefinition, error) {
	name, ok := opcodeNames[op]
	if !ok {
		return nil, fmt.Errorf("opcode %d undefined", op)
	}
	if noOperandOpcodes.Test(uint(op)) {
		return &OpCodeDefinition{Name: name, OperandWidths: []int{}}, nil
	}
	return &OpCodeDefinition{Name: name, OperandWidths: []int{OPERAND_WIDTH}}, nil
}

// AssembleInstruction constructs a bytecode instruction from an opcode and
// its operands, encoded in big-endian order, the same convention the
// teacher's MakeInstruction used.
func AssembleInstruction(op Opcode, operands ...int) ([]byte, error) {
	def, err := Get(op)
	if err != nil {
		return nil, err
	}

	length := OPCODE_TOTAL_BYTES
	for _, w := range def.OperandWidths {
		length += w
	}

	instruction := make([]byte, length)
	instruction[0] = byte(op)

	offset := OPCODE_TOTAL_BYTES
	for i, o := range operands {
		width := def.OperandWidths[i]
		switch width {
		case 2:
			binary.BigEndian.PutUint16(instruction[offset:], uint16(o))
		}
		offset += width
	}
	return instruction, nil
}

// DisassembleInstruction renders a single instruction as human-readable
// text, in the same "opcode: X, operand: Y, operand widths: N bytes" shape
// the teacher's disassembler produced.
func DisassembleInstruction(instruction []byte) (string, error) {
	op := Opcode(instruction[0])
	def, err := Get(op)
	if err != nil {
		return "", err
	}
	if len(def.OperandWidths) == 0 {
		return fmt.Sprintf("opcode: %s, operand: None, operand widths: 0 bytes", def.Name), nil
	}
	operand := binary.BigEndian.Uint16(instruction[OPCODE_TOTAL_BYTES:])
	return fmt.Sprintf("opcode: %s, operand: %d, operand widths: %d bytes", def.Name, operand, def.OperandWidths[0]), nil
}

// InstructionLength returns the total byte length (opcode plus operand
// bytes) of an instruction whose opcode is op, used to advance both the
// compiler's disassembler and
// the VM's instruction pointer.
func InstructionLength(op Opcode) int {
	def, err := Get(op)
	if err != nil {
		return OPCODE_TOTAL_BYTES
	}
	length := OPCODE_TOTAL_BYTES
	for _, w := range def.OperandWidths {
		length += w
	}
	return length
}

// DisassembleModule renders every instruction in instructions as text, one
// per line, with a header reporting the humanized size of the stream - a
// debug dump in the same spirit as the teacher's DumpBytecode/
// DiassembleBytecode, generalized from a single flat Bytecode to any
// instruction stream a Module or Chunk carries.
func DisassembleModule(name string, instructions Instructions) string {
	var b strings.Builder
	fmt.Fprintf(&b, "== %s (%s) ==\n", name, humanize.Bytes(uint64(len(instructions))))
	for ip := 0; ip < len(instructions); {
		op := Opcode(instructions[ip])
		length := InstructionLength(op)
		end := ip + length
		if end > len(instructions) {
			end = len(instructions)
		}
		line, err := DisassembleInstruction(instructions[ip:end])
		if err != nil {
			fmt.Fprintf(&b, "%04d ERROR %v\n", ip, err)
			ip++
			continue
		}
		fmt.Fprintf(&b, "%04d %s\n", ip, line)
		ip += length
	}
	return b.String()
}
