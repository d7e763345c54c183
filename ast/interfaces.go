// interfaces.go contains all visitor interfaces that any code traversing expression and statement AST nodes must implement.
// It also contains the interfaces that all statement and expression AST nodes must implement which also follows the
// visitor design pattern

package ast

// ExpressionVisitor is the interface for operating on all Expression AST nodes.
// Any type that wants to perform an operation on expressions (e.g., a
// compiler, ast-printer, or type checker) must implement this interface.
//
// Each Visit method corresponds to a distinct Expression type.
type ExpressionVisitor interface {
	// VisitBinary is called when visiting a Binary expression (e.g., "a + b").
	VisitBinary(binary Binary) any

	// VisitUnary is called when visiting a Unary expression (e.g., "!a" or "-b").
	VisitUnary(unary Unary) any

	// VisitPostfix is called when visiting a postfix increment/decrement
	// expression (e.g., "a++").
	VisitPostfix(postfix Postfix) any

	// VisitLiteral is called when visiting a Literal expression (e.g., a number, string, or boolean).
	VisitLiteral(literal Literal) any

	// VisitStringInterp is called when visiting an interpolated string
	// composed of literal segments and embedded expressions.
	VisitStringInterp(interp StringInterp) any

	// VisitGrouping is called when visiting a Grouping expression (expressions wrapped in parentheses).
	VisitGrouping(grouping Grouping) any

	VisitVariableExpression(variable Variable) any

	VisitAssignExpression(assign Assign) any

	VisitLogicalExpression(logical Logical) any

	VisitTernary(ternary Ternary) any

	VisitCall(call Call) any

	VisitMember(member Member) any

	VisitIndex(index Index) any

	VisitListLiteral(list ListLiteral) any

	VisitStructLiteral(lit StructLiteral) any

	VisitThis(this This) any

	VisitSuper(super Super) any

	VisitFunctionExpr(fn FunctionExpr) any

	VisitIsExpr(isExpr IsExpr) any

	VisitAsExpr(asExpr AsExpr) any

	VisitTypeofExpr(typeofExpr TypeofExpr) any
}

// StmtVisitor is the interface for operating on all Statement AST nodes.
// Like ExpressionVisitor, it defines one Visit method per statement type.
// This separation between expressions and statements mirrors the grammar structure.
type StmtVisitor interface {
	// VisitExpressionStmt is called when visiting an Expression statement.
	// Example: "foo + bar;"
	VisitExpressionStmt(exprStmt ExpressionStmt) any

	// visitVarStmt is called when visiting a variable declaration statement.
	// Example: "var name = 'foo'"
	VisitVarStmt(varStmt VarStmt) any

	// VisitBlockStmt is called when visiting a block statement.
	VisitBlockStmt(blockStmt BlockStmt) any

	VisitIfStmt(stmt IfStmt) any

	VisitWhileStmt(stmt WhileStmt) any

	VisitDoWhileStmt(stmt DoWhileStmt) any

	VisitForStmt(stmt ForStmt) any

	VisitForInStmt(stmt ForInStmt) any

	VisitBreakStmt(stmt BreakStmt) any

	VisitContinueStmt(stmt ContinueStmt) any

	VisitReturnStmt(stmt ReturnStmt) any

	VisitWhenStmt(stmt WhenStmt) any

	VisitFunctionDecl(decl FunctionDecl) any

	VisitClassDecl(decl ClassDecl) any

	VisitEnumDecl(decl EnumDecl) any

	VisitStructDecl(decl StructDecl) any

	VisitImportStmt(stmt ImportStmt) any

	VisitLibraryStmt(stmt LibraryStmt) any
}

// Stmt is the base interface for all statement nodes in the AST.
// Like Expression, it follows the Visitor design pattern where each
// statement type implements Accept, calling back into the correct
// Visit method on a StmtVisitor.
//
// A statement represents an action in a program (e.g., a declaration,
// evaluating an expression). Unlike expressions, statements typically do
// not produce a value.
type Stmt interface {
	// Accept dispatches this statement to the appropriate Visit method
	// of the provided StmtVisitor implementation.
	Accept(v StmtVisitor) any
}

// Expression is the core interface for all expression nodes in the Abstract Syntax Tree (AST).
// Any expression type (e.g., binary operation, literal, grouping, etc.) must implement this interface.
// The Accept method enables the Visitor design pattern so that operations can be performed on
// expressions without the expression types needing to know the details of those operations.
// The visitor pattern decoupled behaviour from data to easily allow adding the behaviour to objects
// without the need to change the objects themselves.
type Expression interface {
	// Accept dispatches the current expression node to the appropriate method on a Visitor.
	// v: the Visitor instance that defines behavior for this expression type
	// Returns: a generic result (any), since the Visitor may define its own return type
	Accept(v ExpressionVisitor) any
}
