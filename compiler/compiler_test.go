package compiler

import (
	"testing"

	"github.com/polotto/hetu-script/lexer"
	"github.com/polotto/hetu-script/parser"
)

func compileSource(t *testing.T, src string) *Module {
	t.Helper()
	lx := lexer.New(src)
	tokens, lexErr := lx.Scan()
	if lexErr != nil {
		t.Fatalf("lex error: %v", lexErr)
	}
	p := parser.Make(tokens, "test.ht")
	stmts, errs := p.Parse()
	if len(errs) != 0 {
		t.Fatalf("parse errors for %q: %v", src, errs)
	}
	c := New("test.ht")
	mod, err := c.CompileModule(stmts)
	if err != nil {
		t.Fatalf("compile error for %q: %v", src, err)
	}
	return mod
}

func opcodesOf(t *testing.T, mod *Module) []Opcode {
	t.Helper()
	var ops []Opcode
	for ip := 0; ip < len(mod.Instructions); {
		op := Opcode(mod.Instructions[ip])
		ops = append(ops, op)
		ip += InstructionLength(op)
	}
	return ops
}

func containsOp(ops []Opcode, want Opcode) bool {
	for _, op := range ops {
		if op == want {
			return true
		}
	}
	return false
}

func TestCompileLiteralAndPop(t *testing.T) {
	mod := compileSource(t, "1 + 2;")
	ops := opcodesOf(t, mod)
	wantSeq := []Opcode{OP_CONST_INT, OP_CONST_INT, OP_ADD, OP_POP, OP_END}
	if len(ops) != len(wantSeq) {
		t.Fatalf("expected %d opcodes, got %d: %v", len(wantSeq), len(ops), ops)
	}
	for i, op := range wantSeq {
		if ops[i] != op {
			t.Errorf("opcode %d: got %v, want %v", i, ops[i], op)
		}
	}
}

func TestCompileGlobalVarDeclareAndAssign(t *testing.T) {
	mod := compileSource(t, "var x = 1;\nx = 2;")
	ops := opcodesOf(t, mod)
	if !containsOp(ops, OP_DEFINE_GLOBAL) {
		t.Errorf("expected OP_DEFINE_GLOBAL, got %v", ops)
	}
	if !containsOp(ops, OP_SET_GLOBAL) {
		t.Errorf("expected OP_SET_GLOBAL, got %v", ops)
	}
}

func TestCompileLocalVarInBlock(t *testing.T) {
	mod := compileSource(t, "{ var x = 1; x = x + 1; }")
	ops := opcodesOf(t, mod)
	if !containsOp(ops, OP_DEFINE_LOCAL) {
		t.Errorf("expected OP_DEFINE_LOCAL, got %v", ops)
	}
	if !containsOp(ops, OP_GET_LOCAL) {
		t.Errorf("expected OP_GET_LOCAL, got %v", ops)
	}
}

func TestCompileIfElseEmitsJumps(t *testing.T) {
	mod := compileSource(t, "if (true) { 1; } else { 2; }")
	ops := opcodesOf(t, mod)
	if !containsOp(ops, OP_JUMP_IF_FALSE) || !containsOp(ops, OP_JUMP) {
		t.Errorf("expected both OP_JUMP_IF_FALSE and OP_JUMP, got %v", ops)
	}
}

func TestCompileWhileLoopEmitsLoopJumpBackward(t *testing.T) {
	mod := compileSource(t, "var i = 0;\nwhile (i < 3) { i = i + 1; }")
	ops := opcodesOf(t, mod)
	if !containsOp(ops, OP_JUMP_IF_FALSE) {
		t.Errorf("expected OP_JUMP_IF_FALSE, got %v", ops)
	}
	backward := false
	for ip := 0; ip < len(mod.Instructions); {
		op := Opcode(mod.Instructions[ip])
		if op == OP_JUMP {
			target := int(mod.Instructions[ip+1])<<8 | int(mod.Instructions[ip+2])
			if target < ip {
				backward = true
			}
		}
		ip += InstructionLength(op)
	}
	if !backward {
		t.Errorf("expected an OP_JUMP back to the loop condition, got %v", ops)
	}
}

func TestCompileForInLoweredToIndexedLoop(t *testing.T) {
	mod := compileSource(t, "for (var n in [1, 2, 3]) { n; }")
	ops := opcodesOf(t, mod)
	if !containsOp(ops, OP_BUILD_LIST) {
		t.Errorf("expected OP_BUILD_LIST for the iterable literal, got %v", ops)
	}
	if !containsOp(ops, OP_SUB_GET) {
		t.Errorf("expected OP_SUB_GET indexing into the iterable, got %v", ops)
	}
	if !containsOp(ops, OP_MEMBER_GET) {
		t.Errorf("expected OP_MEMBER_GET for the .length check, got %v", ops)
	}
}

func TestCompileWhenStmtSkipsBodyOnNoMatch(t *testing.T) {
	mod := compileSource(t, `
		var x = 2;
		when (x) {
			1 => { x = 10; }
			2 => { x = 20; }
			else => { x = 30; }
		}
	`)
	ops := opcodesOf(t, mod)
	jumps := 0
	for _, op := range ops {
		if op == OP_JUMP {
			jumps++
		}
	}
	// Each of the two single-value cases contributes a match jump into
	// its body, a skip-body jump and an end-of-when jump; the else
	// branch is inline with no extra jump.
	if jumps < 6 {
		t.Errorf("expected at least 6 OP_JUMP instructions for a two-case when, got %d (%v)", jumps, ops)
	}
}

func TestCompileFunctionDeclProducesClosureAndEntryChunk(t *testing.T) {
	mod := compileSource(t, `
		fun add(a, b) {
			return a + b;
		}
	`)
	if len(mod.Functions) != 1 {
		t.Fatalf("expected 1 compiled function, got %d", len(mod.Functions))
	}
	fn := mod.Functions[0]
	if fn.Name != "add" {
		t.Errorf("expected function name 'add', got %q", fn.Name)
	}
	if fn.Entry == nil {
		t.Fatalf("expected a compiled entry chunk")
	}
	bodyOps := opcodesOf(t, &Module{Instructions: fn.Entry.Instructions})
	if !containsOp(bodyOps, OP_ADD) || !containsOp(bodyOps, OP_RETURN) {
		t.Errorf("expected function body to contain OP_ADD and OP_RETURN, got %v", bodyOps)
	}
	ops := opcodesOf(t, mod)
	if !containsOp(ops, OP_CLOSURE) {
		t.Errorf("expected OP_CLOSURE in the enclosing module, got %v", ops)
	}
}

func TestCompileFunctionBodyIsIsolatedFromEnclosingStream(t *testing.T) {
	mod := compileSource(t, `
		1 + 1;
		fun f() {
			return 9;
		}
	`)
	if len(mod.Functions) != 1 {
		t.Fatalf("expected 1 compiled function, got %d", len(mod.Functions))
	}
	entry := mod.Functions[0].Entry
	// The function body must not carry along the bytecode for the
	// preceding top-level "1 + 1;" statement: its own stream starts
	// fresh at its own declaration, not at the enclosing module's start.
	bodyOps := opcodesOf(t, &Module{Instructions: entry.Instructions})
	if containsOp(bodyOps, OP_ADD) {
		t.Errorf("function chunk leaked enclosing instructions: %v", bodyOps)
	}
	if bodyOps[0] != OP_CONST_INT {
		t.Errorf("expected function chunk to start with its own OP_CONST_INT, got %v", bodyOps)
	}
}

func TestCompileClassDeclBuildsConstructorAndMethod(t *testing.T) {
	mod := compileSource(t, `
		class Point {
			var x;
			var y;
			construct(x, y) {
				this.x = x;
				this.y = y;
			}
			fun sum() {
				return this.x + this.y;
			}
		}
	`)
	if len(mod.Classes) != 1 {
		t.Fatalf("expected 1 compiled class, got %d", len(mod.Classes))
	}
	class := mod.Classes[0]
	if class.Name != "Point" {
		t.Errorf("expected class name 'Point', got %q", class.Name)
	}
	if _, ok := class.Constructors[""]; !ok {
		t.Errorf("expected a main constructor")
	}
	if _, ok := class.Methods["sum"]; !ok {
		t.Errorf("expected a 'sum' method")
	}
	if len(class.Fields) != 2 {
		t.Errorf("expected 2 field declarations, got %d", len(class.Fields))
	}
}

func TestCompileEnumDeclRecordsMembers(t *testing.T) {
	mod := compileSource(t, `
		enum Color {
			red, green, blue
		}
	`)
	if len(mod.Classes) != 1 {
		t.Fatalf("expected 1 compiled class for the lowered enum, got %d", len(mod.Classes))
	}
	class := mod.Classes[0]
	if !class.IsEnum {
		t.Errorf("expected IsEnum true")
	}
	if len(class.EnumMembers) != 3 {
		t.Errorf("expected 3 enum members, got %d", len(class.EnumMembers))
	}
}

func TestCompileBreakOutsideLoopFails(t *testing.T) {
	lx := lexer.New("break;")
	tokens, lexErr := lx.Scan()
	if lexErr != nil {
		t.Fatalf("lex error: %v", lexErr)
	}
	p := parser.Make(tokens, "test.ht")
	stmts, errs := p.Parse()
	if len(errs) != 0 {
		t.Fatalf("parse errors: %v", errs)
	}
	c := New("test.ht")
	if _, err := c.CompileModule(stmts); err == nil {
		t.Fatalf("expected a compile error for 'break' outside a loop")
	}
}

func TestCompileDuplicateLocalDeclarationFails(t *testing.T) {
	lx := lexer.New("{ var x = 1; var x = 2; }")
	tokens, lexErr := lx.Scan()
	if lexErr != nil {
		t.Fatalf("lex error: %v", lexErr)
	}
	p := parser.Make(tokens, "test.ht")
	stmts, errs := p.Parse()
	if len(errs) != 0 {
		t.Fatalf("parse errors: %v", errs)
	}
	c := New("test.ht")
	if _, err := c.CompileModule(stmts); err == nil {
		t.Fatalf("expected a compile error for redeclaring 'x' in the same scope")
	}
}
