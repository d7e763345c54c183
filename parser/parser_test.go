package parser

import (
	"testing"

	"github.com/polotto/hetu-script/ast"
	"github.com/polotto/hetu-script/lexer"
)

func parseSource(t *testing.T, src string) []ast.Stmt {
	t.Helper()
	lx := lexer.New(src)
	tokens, lexErr := lx.Scan()
	if lexErr != nil {
		t.Fatalf("lex error: %v", lexErr)
	}
	p := Make(tokens, "test.ht")
	stmts, errs := p.Parse()
	if len(errs) != 0 {
		t.Fatalf("parse errors for %q: %v", src, errs)
	}
	return stmts
}

func TestParseVarDeclaration(t *testing.T) {
	stmts := parseSource(t, "var x = 1 + 2;")
	if len(stmts) != 1 {
		t.Fatalf("expected 1 statement, got %d", len(stmts))
	}
	v, ok := stmts[0].(ast.VarStmt)
	if !ok {
		t.Fatalf("expected VarStmt, got %T", stmts[0])
	}
	if v.Name.Lexeme != "x" {
		t.Fatalf("expected name 'x', got %q", v.Name.Lexeme)
	}
	if _, ok := v.Initializer.(ast.Binary); !ok {
		t.Fatalf("expected Binary initializer, got %T", v.Initializer)
	}
}

func TestParseConstAndLate(t *testing.T) {
	stmts := parseSource(t, "const pi = 3;\nlate name;")
	if len(stmts) != 2 {
		t.Fatalf("expected 2 statements, got %d", len(stmts))
	}
	c := stmts[0].(ast.VarStmt)
	if !c.IsConst {
		t.Fatalf("expected IsConst true")
	}
	l := stmts[1].(ast.VarStmt)
	if !l.IsLate {
		t.Fatalf("expected IsLate true")
	}
}

func TestParseIfElse(t *testing.T) {
	stmts := parseSource(t, "if (x > 0) { y = 1; } else { y = 2; }")
	ifStmt, ok := stmts[0].(ast.IfStmt)
	if !ok {
		t.Fatalf("expected IfStmt, got %T", stmts[0])
	}
	if ifStmt.Else == nil {
		t.Fatalf("expected non-nil else branch")
	}
}

func TestParseWhileLoop(t *testing.T) {
	stmts := parseSource(t, "while (i < 10) { i = i + 1; }")
	if _, ok := stmts[0].(ast.WhileStmt); !ok {
		t.Fatalf("expected WhileStmt, got %T", stmts[0])
	}
}

func TestParseForInLoop(t *testing.T) {
	stmts := parseSource(t, "for (var item in items) { print(item); }")
	forIn, ok := stmts[0].(ast.ForInStmt)
	if !ok {
		t.Fatalf("expected ForInStmt, got %T", stmts[0])
	}
	if forIn.Name.Lexeme != "item" {
		t.Fatalf("expected loop var 'item', got %q", forIn.Name.Lexeme)
	}
}

func TestParseCStyleForLoop(t *testing.T) {
	stmts := parseSource(t, "for (var i = 0; i < 10; i = i + 1) { x = i; }")
	forStmt, ok := stmts[0].(ast.ForStmt)
	if !ok {
		t.Fatalf("expected ForStmt, got %T", stmts[0])
	}
	if forStmt.Condition == nil {
		t.Fatalf("expected non-nil condition")
	}
}

func TestParseFunctionDeclaration(t *testing.T) {
	stmts := parseSource(t, "fun add(a: int, b: int): int { return a + b; }")
	decl, ok := stmts[0].(ast.FunctionDecl)
	if !ok {
		t.Fatalf("expected FunctionDecl, got %T", stmts[0])
	}
	if decl.Name.Lexeme != "add" {
		t.Fatalf("expected name 'add', got %q", decl.Name.Lexeme)
	}
	if len(decl.Parameters) != 2 {
		t.Fatalf("expected 2 parameters, got %d", len(decl.Parameters))
	}
	if decl.ReturnType == nil || decl.ReturnType.Name.Lexeme != "int" {
		t.Fatalf("expected return type 'int', got %v", decl.ReturnType)
	}
}

func TestParseClassDeclarationWithExtends(t *testing.T) {
	stmts := parseSource(t, `
class Dog extends Animal {
  var name;
  construct(name) {
    this.name = name;
  }
  fun bark() {
    return name;
  }
}
`)
	decl, ok := stmts[0].(ast.ClassDecl)
	if !ok {
		t.Fatalf("expected ClassDecl, got %T", stmts[0])
	}
	if decl.Name.Lexeme != "Dog" {
		t.Fatalf("expected name 'Dog', got %q", decl.Name.Lexeme)
	}
	if decl.Superclass == nil || decl.Superclass.Name.Lexeme != "Animal" {
		t.Fatalf("expected superclass 'Animal', got %v", decl.Superclass)
	}
	if len(decl.Fields) != 1 {
		t.Fatalf("expected 1 field, got %d", len(decl.Fields))
	}
	if len(decl.Methods) != 2 {
		t.Fatalf("expected 2 methods (construct + bark), got %d", len(decl.Methods))
	}
}

func TestParseEnumDeclaration(t *testing.T) {
	stmts := parseSource(t, "enum Color { Red, Green, Blue }")
	decl, ok := stmts[0].(ast.EnumDecl)
	if !ok {
		t.Fatalf("expected EnumDecl, got %T", stmts[0])
	}
	if len(decl.Members) != 3 {
		t.Fatalf("expected 3 members, got %d", len(decl.Members))
	}
}

func TestParseStructDeclaration(t *testing.T) {
	stmts := parseSource(t, "struct Point { var x; var y; }")
	decl, ok := stmts[0].(ast.StructDecl)
	if !ok {
		t.Fatalf("expected StructDecl, got %T", stmts[0])
	}
	if len(decl.Fields) != 2 {
		t.Fatalf("expected 2 fields, got %d", len(decl.Fields))
	}
}

func TestParseImportWithAliasAndShow(t *testing.T) {
	stmts := parseSource(t, `import "math.ht" as m show sqrt, pow;`)
	decl, ok := stmts[0].(ast.ImportStmt)
	if !ok {
		t.Fatalf("expected ImportStmt, got %T", stmts[0])
	}
	if decl.Alias == nil || decl.Alias.Lexeme != "m" {
		t.Fatalf("expected alias 'm', got %v", decl.Alias)
	}
	if len(decl.Show) != 2 {
		t.Fatalf("expected 2 show names, got %d", len(decl.Show))
	}
}

func TestParseTernaryExpression(t *testing.T) {
	stmts := parseSource(t, "var x = a > 0 ? 1 : -1;")
	v := stmts[0].(ast.VarStmt)
	if _, ok := v.Initializer.(ast.Ternary); !ok {
		t.Fatalf("expected Ternary, got %T", v.Initializer)
	}
}

func TestParseMemberAndIndexChain(t *testing.T) {
	stmts := parseSource(t, "var x = obj.list[0].name;")
	v := stmts[0].(ast.VarStmt)
	member, ok := v.Initializer.(ast.Member)
	if !ok {
		t.Fatalf("expected outer Member, got %T", v.Initializer)
	}
	if member.Name.Lexeme != "name" {
		t.Fatalf("expected member 'name', got %q", member.Name.Lexeme)
	}
	if _, ok := member.Object.(ast.Index); !ok {
		t.Fatalf("expected Index nested in Member, got %T", member.Object)
	}
}

func TestParseCallWithNamedArguments(t *testing.T) {
	stmts := parseSource(t, "greet(name: \"world\");")
	exprStmt := stmts[0].(ast.ExpressionStmt)
	call, ok := exprStmt.Expression.(ast.Call)
	if !ok {
		t.Fatalf("expected Call, got %T", exprStmt.Expression)
	}
	if len(call.Named) != 1 {
		t.Fatalf("expected 1 named argument, got %d", len(call.Named))
	}
	if _, ok := call.Named["name"]; !ok {
		t.Fatalf("expected named argument 'name'")
	}
}

func TestParseListLiteral(t *testing.T) {
	stmts := parseSource(t, "var xs = [1, 2, 3];")
	v := stmts[0].(ast.VarStmt)
	list, ok := v.Initializer.(ast.ListLiteral)
	if !ok {
		t.Fatalf("expected ListLiteral, got %T", v.Initializer)
	}
	if len(list.Elements) != 3 {
		t.Fatalf("expected 3 elements, got %d", len(list.Elements))
	}
}

func TestParseStructLiteral(t *testing.T) {
	stmts := parseSource(t, "var p = { x: 1, y: 2 };")
	v := stmts[0].(ast.VarStmt)
	lit, ok := v.Initializer.(ast.StructLiteral)
	if !ok {
		t.Fatalf("expected StructLiteral, got %T", v.Initializer)
	}
	if len(lit.Fields) != 2 {
		t.Fatalf("expected 2 fields, got %d", len(lit.Fields))
	}
}

func TestParseFunctionExprLiteral(t *testing.T) {
	stmts := parseSource(t, "var f = fun(x) { return x; };")
	v := stmts[0].(ast.VarStmt)
	if _, ok := v.Initializer.(ast.FunctionExpr); !ok {
		t.Fatalf("expected FunctionExpr, got %T", v.Initializer)
	}
}

func TestParseCompoundAssignment(t *testing.T) {
	stmts := parseSource(t, "x += 1;")
	exprStmt := stmts[0].(ast.ExpressionStmt)
	assign, ok := exprStmt.Expression.(ast.Assign)
	if !ok {
		t.Fatalf("expected Assign, got %T", exprStmt.Expression)
	}
	if assign.Operator.Lexeme != "+=" {
		t.Fatalf("expected operator '+=', got %q", assign.Operator.Lexeme)
	}
}

func TestParseIndexAssignmentTarget(t *testing.T) {
	stmts := parseSource(t, "xs[0] = 5;")
	exprStmt := stmts[0].(ast.ExpressionStmt)
	assign, ok := exprStmt.Expression.(ast.Assign)
	if !ok {
		t.Fatalf("expected Assign, got %T", exprStmt.Expression)
	}
	if _, ok := assign.Target.(ast.Index); !ok {
		t.Fatalf("expected Index assign target, got %T", assign.Target)
	}
}

func TestParseInvalidAssignTargetIsError(t *testing.T) {
	lx := lexer.New("1 + 1 = 2;")
	tokens, _ := lx.Scan()
	p := Make(tokens, "test.ht")
	_, errs := p.Parse()
	if len(errs) == 0 {
		t.Fatalf("expected a parse error for an invalid assignment target")
	}
}

func TestParseStringInterpolation(t *testing.T) {
	stmts := parseSource(t, `var s = "hello ${name}!";`)
	v := stmts[0].(ast.VarStmt)
	interp, ok := v.Initializer.(ast.StringInterp)
	if !ok {
		t.Fatalf("expected StringInterp, got %T", v.Initializer)
	}
	if len(interp.Exprs) != 1 {
		t.Fatalf("expected 1 interpolated expression, got %d", len(interp.Exprs))
	}
	if _, ok := interp.Exprs[0].(ast.Variable); !ok {
		t.Fatalf("expected Variable expression inside interpolation, got %T", interp.Exprs[0])
	}
}

func TestParseIsAndAsExpressions(t *testing.T) {
	stmts := parseSource(t, "var ok = x is int;\nvar y = x as num;")
	isV := stmts[0].(ast.VarStmt)
	if _, ok := isV.Initializer.(ast.IsExpr); !ok {
		t.Fatalf("expected IsExpr, got %T", isV.Initializer)
	}
	asV := stmts[1].(ast.VarStmt)
	if _, ok := asV.Initializer.(ast.AsExpr); !ok {
		t.Fatalf("expected AsExpr, got %T", asV.Initializer)
	}
}

func TestParseWhenStatement(t *testing.T) {
	stmts := parseSource(t, `
when (x) {
  1, 2 => print("small");
  else => print("big");
}
`)
	whenStmt, ok := stmts[0].(ast.WhenStmt)
	if !ok {
		t.Fatalf("expected WhenStmt, got %T", stmts[0])
	}
	if len(whenStmt.Cases) != 1 {
		t.Fatalf("expected 1 case arm, got %d", len(whenStmt.Cases))
	}
	if len(whenStmt.Cases[0].CaseExprs) != 2 {
		t.Fatalf("expected 2 case expressions, got %d", len(whenStmt.Cases[0].CaseExprs))
	}
	if whenStmt.ElseCase == nil {
		t.Fatalf("expected else arm")
	}
}

func TestParseLibraryAndImport(t *testing.T) {
	stmts := parseSource(t, "library mylib;\nimport \"other.ht\";")
	if _, ok := stmts[0].(ast.LibraryStmt); !ok {
		t.Fatalf("expected LibraryStmt, got %T", stmts[0])
	}
	if _, ok := stmts[1].(ast.ImportStmt); !ok {
		t.Fatalf("expected ImportStmt, got %T", stmts[1])
	}
}
