package compiler

import "testing"

func TestAssembleInstruction(t *testing.T) {
	operand := 65000
	tests := []struct {
		op       Opcode
		operands []int
		expected []byte
	}{
		{OP_CONST_INT, []int{operand}, []byte{byte(OP_CONST_INT), 253, 232}},
		{OP_END, []int{}, []byte{byte(OP_END)}},
		{OP_ADD, []int{}, []byte{byte(OP_ADD)}},
		{OP_MULTIPLY, []int{}, []byte{byte(OP_MULTIPLY)}},
		{OP_DIVIDE, []int{}, []byte{byte(OP_DIVIDE)}},
		{OP_SUBTRACT, []int{}, []byte{byte(OP_SUBTRACT)}},
		{OP_NEGATE, []int{}, []byte{byte(OP_NEGATE)}},
		{OP_NOT, []int{}, []byte{byte(OP_NOT)}},
		{OP_EQUAL, []int{}, []byte{byte(OP_EQUAL)}},
		{OP_NOT_EQUAL, []int{}, []byte{byte(OP_NOT_EQUAL)}},
		{OP_GREATER, []int{}, []byte{byte(OP_GREATER)}},
		{OP_LESS, []int{}, []byte{byte(OP_LESS)}},
		{OP_GREATER_EQUAL, []int{}, []byte{byte(OP_GREATER_EQUAL)}},
		{OP_LESS_EQUAL, []int{}, []byte{byte(OP_LESS_EQUAL)}},
		{OP_DEFINE_GLOBAL, []int{operand}, []byte{byte(OP_DEFINE_GLOBAL), 253, 232}},
		{OP_SET_GLOBAL, []int{operand}, []byte{byte(OP_SET_GLOBAL), 253, 232}},
		{OP_GET_GLOBAL, []int{operand}, []byte{byte(OP_GET_GLOBAL), 253, 232}},
		{OP_DEFINE_LOCAL, []int{operand}, []byte{byte(OP_DEFINE_LOCAL), 253, 232}},
		{OP_SET_LOCAL, []int{operand}, []byte{byte(OP_SET_LOCAL), 253, 232}},
		{OP_GET_LOCAL, []int{operand}, []byte{byte(OP_GET_LOCAL), 253, 232}},
		{OP_JUMP, []int{operand}, []byte{byte(OP_JUMP), 253, 232}},
		{OP_JUMP_IF_FALSE, []int{operand}, []byte{byte(OP_JUMP_IF_FALSE), 253, 232}},
		{OP_POP, []int{}, []byte{byte(OP_POP)}},
	}

	for _, tt := range tests {
		instruction, err := AssembleInstruction(tt.op, tt.operands...)
		if err != nil {
			t.Errorf("error assembling instruction: %v", err)
		}
		if len(instruction) != len(tt.expected) {
			t.Errorf("instruction has wrong length - got: %d, want: %d", len(instruction), len(tt.expected))
		}
		for i, b := range tt.expected {
			if instruction[i] != b {
				t.Errorf("instruction has wrong byte at %d - got: %v, want: %v", i, instruction[i], b)
			}
		}
	}
}

func TestDisassembleInstruction(t *testing.T) {
	tests := []struct {
		instruction []byte
		expected    string
	}{
		{[]byte{byte(OP_CONST_INT), 253, 232}, "opcode: OP_CONST_INT, operand: 65000, operand widths: 2 bytes"},
		{[]byte{byte(OP_END)}, "opcode: OP_END, operand: None, operand widths: 0 bytes"},
		{[]byte{byte(OP_ADD)}, "opcode: OP_ADD, operand: None, operand widths: 0 bytes"},
	}

	for _, tt := range tests {
		got, err := DisassembleInstruction(tt.instruction)
		if err != nil {
			t.Fatalf("DisassembleInstruction error: %v", err)
		}
		if got != tt.expected {
			t.Errorf("disassembly mismatch - got: %q, want: %q", got, tt.expected)
		}
	}
}

func TestGetUnknownOpcodeErrors(t *testing.T) {
	if _, err := Get(Opcode(250)); err == nil {
		t.Fatalf("expected error for undefined opcode")
	}
}
