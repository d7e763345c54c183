package ast

import (
	"testing"

	"github.com/polotto/hetu-script/token"
)

type dispatchRecorder struct {
	called string
}

func (d *dispatchRecorder) VisitBinary(binary Binary) any    { d.called = "binary"; return nil }
func (d *dispatchRecorder) VisitUnary(unary Unary) any       { d.called = "unary"; return nil }
func (d *dispatchRecorder) VisitPostfix(postfix Postfix) any { d.called = "postfix"; return nil }
func (d *dispatchRecorder) VisitLiteral(literal Literal) any { d.called = "literal"; return nil }
func (d *dispatchRecorder) VisitStringInterp(interp StringInterp) any {
	d.called = "stringInterp"
	return nil
}
func (d *dispatchRecorder) VisitGrouping(grouping Grouping) any { d.called = "grouping"; return nil }
func (d *dispatchRecorder) VisitVariableExpression(variable Variable) any {
	d.called = "variable"
	return nil
}
func (d *dispatchRecorder) VisitAssignExpression(assign Assign) any {
	d.called = "assign"
	return nil
}
func (d *dispatchRecorder) VisitLogicalExpression(logical Logical) any {
	d.called = "logical"
	return nil
}
func (d *dispatchRecorder) VisitTernary(ternary Ternary) any { d.called = "ternary"; return nil }
func (d *dispatchRecorder) VisitCall(call Call) any          { d.called = "call"; return nil }
func (d *dispatchRecorder) VisitMember(member Member) any    { d.called = "member"; return nil }
func (d *dispatchRecorder) VisitIndex(index Index) any       { d.called = "index"; return nil }
func (d *dispatchRecorder) VisitListLiteral(list ListLiteral) any {
	d.called = "listLiteral"
	return nil
}
func (d *dispatchRecorder) VisitStructLiteral(lit StructLiteral) any {
	d.called = "structLiteral"
	return nil
}
func (d *dispatchRecorder) VisitThis(this This) any    { d.called = "this"; return nil }
func (d *dispatchRecorder) VisitSuper(super Super) any { d.called = "super"; return nil }
func (d *dispatchRecorder) VisitFunctionExpr(fn FunctionExpr) any {
	d.called = "functionExpr"
	return nil
}
func (d *dispatchRecorder) VisitIsExpr(isExpr IsExpr) any    { d.called = "is"; return nil }
func (d *dispatchRecorder) VisitAsExpr(asExpr AsExpr) any    { d.called = "as"; return nil }
func (d *dispatchRecorder) VisitTypeofExpr(t TypeofExpr) any { d.called = "typeof"; return nil }

func TestExpressionAcceptDispatchesToMatchingVisitMethod(t *testing.T) {
	rec := &dispatchRecorder{}

	cases := []struct {
		name string
		expr Expression
		want string
	}{
		{"binary", Binary{Left: Literal{1}, Operator: token.CreateToken(token.ADD, 1, 1), Right: Literal{2}}, "binary"},
		{"unary", Unary{Operator: token.CreateToken(token.BANG, 1, 1), Right: Literal{true}}, "unary"},
		{"literal", Literal{Value: int64(1)}, "literal"},
		{"grouping", Grouping{Expression: Literal{1}}, "grouping"},
		{"variable", Variable{Name: token.CreateToken(token.IDENTIFIER, 1, 1)}, "variable"},
		{"ternary", Ternary{Condition: Literal{true}, Then: Literal{1}, Else: Literal{2}}, "ternary"},
		{"call", Call{Callee: Variable{}}, "call"},
		{"member", Member{Object: Variable{}}, "member"},
		{"index", Index{Object: Variable{}}, "index"},
		{"this", This{}, "this"},
		{"super", Super{}, "super"},
	}

	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			rec.called = ""
			tt.expr.Accept(rec)
			if rec.called != tt.want {
				t.Errorf("Accept() dispatched to %q, want %q", rec.called, tt.want)
			}
		})
	}
}

type stmtDispatchRecorder struct {
	called string
}

func (s *stmtDispatchRecorder) VisitExpressionStmt(e ExpressionStmt) any {
	s.called = "expressionStmt"
	return nil
}
func (s *stmtDispatchRecorder) VisitVarStmt(v VarStmt) any { s.called = "varStmt"; return nil }
func (s *stmtDispatchRecorder) VisitBlockStmt(b BlockStmt) any {
	s.called = "blockStmt"
	return nil
}
func (s *stmtDispatchRecorder) VisitIfStmt(stmt IfStmt) any { s.called = "ifStmt"; return nil }
func (s *stmtDispatchRecorder) VisitWhileStmt(stmt WhileStmt) any {
	s.called = "whileStmt"
	return nil
}
func (s *stmtDispatchRecorder) VisitDoWhileStmt(stmt DoWhileStmt) any {
	s.called = "doWhileStmt"
	return nil
}
func (s *stmtDispatchRecorder) VisitForStmt(stmt ForStmt) any { s.called = "forStmt"; return nil }
func (s *stmtDispatchRecorder) VisitForInStmt(stmt ForInStmt) any {
	s.called = "forInStmt"
	return nil
}
func (s *stmtDispatchRecorder) VisitBreakStmt(stmt BreakStmt) any {
	s.called = "breakStmt"
	return nil
}
func (s *stmtDispatchRecorder) VisitContinueStmt(stmt ContinueStmt) any {
	s.called = "continueStmt"
	return nil
}
func (s *stmtDispatchRecorder) VisitReturnStmt(stmt ReturnStmt) any {
	s.called = "returnStmt"
	return nil
}
func (s *stmtDispatchRecorder) VisitWhenStmt(stmt WhenStmt) any { s.called = "whenStmt"; return nil }
func (s *stmtDispatchRecorder) VisitFunctionDecl(decl FunctionDecl) any {
	s.called = "functionDecl"
	return nil
}
func (s *stmtDispatchRecorder) VisitClassDecl(decl ClassDecl) any {
	s.called = "classDecl"
	return nil
}
func (s *stmtDispatchRecorder) VisitEnumDecl(decl EnumDecl) any { s.called = "enumDecl"; return nil }
func (s *stmtDispatchRecorder) VisitStructDecl(decl StructDecl) any {
	s.called = "structDecl"
	return nil
}
func (s *stmtDispatchRecorder) VisitImportStmt(stmt ImportStmt) any {
	s.called = "importStmt"
	return nil
}
func (s *stmtDispatchRecorder) VisitLibraryStmt(stmt LibraryStmt) any {
	s.called = "libraryStmt"
	return nil
}

func TestStmtAcceptDispatchesToMatchingVisitMethod(t *testing.T) {
	rec := &stmtDispatchRecorder{}

	cases := []struct {
		name string
		stmt Stmt
		want string
	}{
		{"expressionStmt", ExpressionStmt{Expression: Literal{1}}, "expressionStmt"},
		{"varStmt", VarStmt{Name: token.CreateToken(token.IDENTIFIER, 1, 1)}, "varStmt"},
		{"blockStmt", BlockStmt{}, "blockStmt"},
		{"ifStmt", IfStmt{Condition: Literal{true}, Then: BlockStmt{}}, "ifStmt"},
		{"whileStmt", WhileStmt{Condition: Literal{true}, Body: BlockStmt{}}, "whileStmt"},
		{"forInStmt", ForInStmt{Name: token.CreateToken(token.IDENTIFIER, 1, 1)}, "forInStmt"},
		{"classDecl", ClassDecl{Name: token.CreateToken(token.IDENTIFIER, 1, 1)}, "classDecl"},
		{"enumDecl", EnumDecl{Name: token.CreateToken(token.IDENTIFIER, 1, 1)}, "enumDecl"},
	}

	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			rec.called = ""
			tt.stmt.Accept(rec)
			if rec.called != tt.want {
				t.Errorf("Accept() dispatched to %q, want %q", rec.called, tt.want)
			}
		})
	}
}
