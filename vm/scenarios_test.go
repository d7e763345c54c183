package vm

import (
	"testing"

	"github.com/polotto/hetu-script/hetuerrors"
	"github.com/polotto/hetu-script/lexer"
	"github.com/polotto/hetu-script/parser"
)

// runAndCall compiles and runs src, then invokes the top-level function
// name with args, returning its result.
func runAndCall(t *testing.T, src, name string, args []any) (any, error) {
	t.Helper()
	mod := compileSource(t, src)
	machine := New()
	if _, err := machine.Run(mod); err != nil {
		t.Fatalf("run error for %q: %v", src, err)
	}
	decl, _, ok := machine.Globals().Lookup(name)
	if !ok {
		t.Fatalf("no global %q after running %q", name, src)
	}
	return machine.Call(decl.Value, args, nil)
}

func TestScenarioBasicStructToString(t *testing.T) {
	src := `
		fun t() {
			var f = { value: 42, greeting: 'hi!' };
			f.value = 'ha!';
			f.world = 'everything';
			return f.toString();
		}
	`
	v, err := runAndCall(t, src, "t", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "{\n  value: ha!,\n  greeting: hi!,\n  world: everything\n}"
	if v != want {
		t.Errorf("got %q, want %q", v, want)
	}
}

func TestScenarioNamedAndOptionalArguments(t *testing.T) {
	src := `fun f(a, [b = 2], {c = 3}) { return a + b + c; }`
	mod := compileSource(t, src)
	machine := New()
	if _, err := machine.Run(mod); err != nil {
		t.Fatalf("run error: %v", err)
	}
	decl, _, ok := machine.Globals().Lookup("f")
	if !ok {
		t.Fatalf("no global f")
	}

	cases := []struct {
		args  []any
		named map[string]any
		want  int64
	}{
		{args: []any{int64(10)}, want: 15},
		{args: []any{int64(10), int64(20)}, want: 25},
		{args: []any{int64(10), int64(20)}, named: map[string]any{"c": int64(30)}, want: 60},
	}
	for _, c := range cases {
		v, err := machine.Call(decl.Value, c.args, c.named)
		if err != nil {
			t.Fatalf("unexpected error calling f(%v, %v): %v", c.args, c.named, err)
		}
		if v != c.want {
			t.Errorf("f(%v, %v) = %v, want %d", c.args, c.named, v, c.want)
		}
	}

	_, err := machine.Call(decl.Value, []any{int64(10), int64(20), int64(30), int64(40)}, nil)
	if err == nil {
		t.Fatalf("expected an arity error calling f with 4 arguments")
	}
	herr, ok := err.(*hetuerrors.Error)
	if !ok || herr.Code != hetuerrors.CodeArityMismatch {
		t.Errorf("got error %v, want a %s error", err, hetuerrors.CodeArityMismatch)
	}
}

func TestScenarioForInLowering(t *testing.T) {
	v := runAndLookup(t, `
		var s = 0;
		for (var x in [1, 2, 3, 4]) {
			s = s + x;
		}
	`, "s")
	if v != int64(10) {
		t.Errorf("got %#v, want int64(10)", v)
	}
}

func TestScenarioInheritanceAndSuperCall(t *testing.T) {
	src := `
		class A {
			var x;
			construct(x) { this.x = x; }
		}
		class B extends A {
			var y;
			construct(y) : super(y * 2) { this.y = y; }
		}
		var b = B(3);
	`
	mod := compileSource(t, src)
	machine := New()
	if _, err := machine.Run(mod); err != nil {
		t.Fatalf("run error: %v", err)
	}
	decl, _, ok := machine.Globals().Lookup("b")
	if !ok {
		t.Fatalf("no global b")
	}
	x, err := machine.memberGet(decl.Value, "x", "test.ht")
	if err != nil {
		t.Fatalf("b.x: %v", err)
	}
	if x != int64(6) {
		t.Errorf("b.x = %#v, want int64(6)", x)
	}
	y, err := machine.memberGet(decl.Value, "y", "test.ht")
	if err != nil {
		t.Fatalf("b.y: %v", err)
	}
	if y != int64(3) {
		t.Errorf("b.y = %#v, want int64(3)", y)
	}
}

func TestScenarioEnumLowering(t *testing.T) {
	src := `enum E { a, b }`
	mod := compileSource(t, src)
	machine := New()
	if _, err := machine.Run(mod); err != nil {
		t.Fatalf("run error: %v", err)
	}
	decl, _, ok := machine.Globals().Lookup("E")
	if !ok {
		t.Fatalf("no global E")
	}
	values, err := machine.memberGet(decl.Value, "values", "test.ht")
	if err != nil {
		t.Fatalf("E.values: %v", err)
	}
	length, err := machine.memberGet(values, "length", "test.ht")
	if err != nil {
		t.Fatalf("E.values.length: %v", err)
	}
	if length != int64(2) {
		t.Errorf("E.values.length = %#v, want int64(2)", length)
	}

	a, err := machine.memberGet(decl.Value, "a", "test.ht")
	if err != nil {
		t.Fatalf("E.a: %v", err)
	}
	toStr, err := machine.memberGet(a, "toString", "test.ht")
	if err != nil {
		t.Fatalf("E.a.toString: %v", err)
	}
	str, err := machine.Call(toStr, nil, nil)
	if err != nil {
		t.Fatalf("E.a.toString(): %v", err)
	}
	if str != "E.a" {
		t.Errorf("E.a.toString() = %#v, want %q", str, "E.a")
	}
}

func TestScenarioStringInterpolationRejectsStatements(t *testing.T) {
	tokens, lexErr := lexer.New(`'${var x = 1}'`).Scan()
	if lexErr != nil {
		t.Fatalf("unexpected lex error: %v", lexErr)
	}
	_, errs := parser.Make(tokens, "test.ht").Parse()
	if len(errs) == 0 {
		t.Fatalf("expected a parse error for a declaration inside a string interpolation segment")
	}
}
