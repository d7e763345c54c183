// expressions.go contains all the expression AST nodes. A expression node always evaluates to a value.

package ast

import (
	"github.com/polotto/hetu-script/token"
)

// Binary represents a binary operation expression (e.g., "a + b").
// It consists of a left-hand side expression, an operator token (e.g., +, -, *, /),
// and a right-hand side expression.
type Binary struct {
	Left     Expression  // The left-hand expression (e.g., "a" in "a + b")
	Operator token.Token // The operator (e.g., "+")
	Right    Expression  // The right-hand expression (e.g., "b" in "a + b")
}

func (binary Binary) Accept(v ExpressionVisitor) any {
	return v.VisitBinary(binary)
}

// Unary represents a unary operation expression (e.g., "!a" or "-b").
// It consists of a prefix operator token and a single right-hand expression.
type Unary struct {
	Operator token.Token // The operator (e.g., "!" or "-")
	Right    Expression  // The expression the operator is applied to (e.g., "a" or "b")
}

func (unary Unary) Accept(v ExpressionVisitor) any {
	return v.VisitUnary(unary)
}

// Postfix represents a postfix increment/decrement expression
// (e.g., "a++" or "a--"). The target must be an assignable expression
// (Variable, Member, or Index).
type Postfix struct {
	Target   Expression
	Operator token.Token
}

func (postfix Postfix) Accept(v ExpressionVisitor) any {
	return v.VisitPostfix(postfix)
}

// Literal represents a literal value in the source code
// (e.g., numbers, strings, booleans, or null).
type Literal struct {
	Value any // The literal value (Go's `any` allows different possible types)
}

func (literal Literal) Accept(v ExpressionVisitor) any {
	return v.VisitLiteral(literal)
}

// StringInterp represents a string literal containing one or more
// `${ }` interpolated expressions. Parts holds the literal segments and
// Exprs the parsed expression for each interpolation span, in source
// order; len(Parts) == len(Exprs)+1.
type StringInterp struct {
	Parts []string
	Exprs []Expression
}

func (interp StringInterp) Accept(v ExpressionVisitor) any {
	return v.VisitStringInterp(interp)
}

// Grouping represents a parenthesized expression (e.g., "(a + b)").
// Useful for controlling evaluation precedence.
type Grouping struct {
	Expression Expression // The inner expression inside the parentheses
}

func (grouping Grouping) Accept(v ExpressionVisitor) any {
	return v.VisitGrouping(grouping)
}

// Variable represents a variable expression in the abstract syntax tree (AST).
// It models the retrieval of a value previously bound to a variable name.
//
// Fields:
//   - Name: The token corresponding to the variable's identifier. This is an
//     IDENTIFIER token that holds the variable's name (lexeme).
type Variable struct {
	Name token.Token // An IDENTIFIER token
}

func (variable Variable) Accept(v ExpressionVisitor) any {
	return v.VisitVariableExpression(variable)
}

// Assign represents an assignment expression in the abstract syntax tree (AST).
// It models the operation of assigning a new value to an assignable target.
//
// Fields:
//   - Target: the assignable expression being written to (Variable, Member,
//     or Index). The parser rejects any other expression on the left of "=".
//   - Operator: the assignment token actually written (ASSIGN or one of the
//     compound forms); the compiler lowers compound forms into a Binary read
//     of Target followed by a plain assignment.
//   - Value: The expression that produces the value being assigned.
type Assign struct {
	Target   Expression
	Operator token.Token
	Value    Expression
}

func (assign Assign) Accept(v ExpressionVisitor) any {
	return v.VisitAssignExpression(assign)
}

// Logical represents a short-circuiting "&&" or "||" expression.
type Logical struct {
	Left     Expression
	Operator token.Token
	Right    Expression
}

func (logical Logical) Accept(v ExpressionVisitor) any {
	return v.VisitLogicalExpression(logical)
}

// Ternary represents a "cond ? then : else" conditional expression.
type Ternary struct {
	Condition Expression
	Then      Expression
	Else      Expression
}

func (ternary Ternary) Accept(v ExpressionVisitor) any {
	return v.VisitTernary(ternary)
}

// Call represents a function/method/constructor invocation. Arguments
// holds positional arguments in source order; Named holds the
// name-to-expression map for named arguments.
type Call struct {
	Callee    Expression
	Paren     token.Token // closing ')' token, used for error position
	Arguments []Expression
	Named     map[string]Expression
}

func (call Call) Accept(v ExpressionVisitor) any {
	return v.VisitCall(call)
}

// Member represents property/method access via the "." operator
// (e.g., "obj.field").
type Member struct {
	Object Expression
	Name   token.Token
}

func (member Member) Accept(v ExpressionVisitor) any {
	return v.VisitMember(member)
}

// Index represents subscript access via "[ ]" (e.g., "list[0]").
type Index struct {
	Object    Expression
	Bracket   token.Token
	Subscript Expression
}

func (index Index) Accept(v ExpressionVisitor) any {
	return v.VisitIndex(index)
}

// ListLiteral represents a list literal (e.g., "[1, 2, 3]").
type ListLiteral struct {
	Elements []Expression
}

func (list ListLiteral) Accept(v ExpressionVisitor) any {
	return v.VisitListLiteral(list)
}

// StructLiteral represents an ad-hoc struct object literal
// (e.g., "{ a: 1, b: 2 }"), optionally declared as a prototype-extending
// literal via "{ ... } : base".
type StructLiteral struct {
	Brace  token.Token
	Fields []StructField
	Proto  Expression // nil unless the literal extends a prototype
}

// StructField is one "key: value" entry of a StructLiteral.
type StructField struct {
	Key   token.Token
	Value Expression
}

func (lit StructLiteral) Accept(v ExpressionVisitor) any {
	return v.VisitStructLiteral(lit)
}

// This represents the implicit receiver reference inside an instance
// method or constructor body.
type This struct {
	Keyword token.Token
}

func (this This) Accept(v ExpressionVisitor) any {
	return v.VisitThis(this)
}

// Super represents a superclass-qualified reference, either a bare
// "super(...)" redirecting-constructor call or "super.method(...)".
type Super struct {
	Keyword token.Token
	Method  *token.Token // nil for a bare "super(...)" call
}

func (super Super) Accept(v ExpressionVisitor) any {
	return v.VisitSuper(super)
}

// FunctionExpr represents a function literal (anonymous function/closure).
type FunctionExpr struct {
	Keyword    token.Token
	Parameters []Parameter
	Body       []Stmt
}

func (fn FunctionExpr) Accept(v ExpressionVisitor) any {
	return v.VisitFunctionExpr(fn)
}

// TypeExpr represents a type annotation expression, e.g. "int", "List<string>",
// or "string?". Nullable reflects a trailing "?".
type TypeExpr struct {
	Name     token.Token
	TypeArgs []TypeExpr
	Nullable bool
}

// IsExpr represents an "expr is Type" type-test expression.
type IsExpr struct {
	Left Expression
	Not  bool
	Type TypeExpr
}

func (isExpr IsExpr) Accept(v ExpressionVisitor) any {
	return v.VisitIsExpr(isExpr)
}

// AsExpr represents an "expr as Type" type-cast expression.
type AsExpr struct {
	Left Expression
	Type TypeExpr
}

func (asExpr AsExpr) Accept(v ExpressionVisitor) any {
	return v.VisitAsExpr(asExpr)
}

// TypeofExpr represents a "typeof expr" runtime type-name query.
type TypeofExpr struct {
	Keyword token.Token
	Right   Expression
}

func (typeofExpr TypeofExpr) Accept(v ExpressionVisitor) any {
	return v.VisitTypeofExpr(typeofExpr)
}

// Parameter describes one function parameter: positional, optional
// (with a default), or named (declared inside "{ }" in the parameter
// list), plus an optional variadic marker and type annotation.
type Parameter struct {
	Name       token.Token
	Type       *TypeExpr
	Default    Expression // nil unless optional/named with a default
	IsOptional bool
	IsNamed    bool
	IsVariadic bool
}
