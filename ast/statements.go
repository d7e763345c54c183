// statements.go contains all the statement AST nodes. A statement node does not produce a value.

package ast

import "github.com/polotto/hetu-script/token"

// ExpressionStmt represents a statement that consists of a single expression.
// Example: `foo + bar;`
// This evaluates the expression and discards the result.
type ExpressionStmt struct {
	Expression Expression // The expression used as a statement
}

func (e ExpressionStmt) Accept(v StmtVisitor) any {
	return v.VisitExpressionStmt(e)
}

// VarStmt represents a variable declaration statement: it is composed
// of the keyword used (var/final/const/late), the name of the variable,
// its optional type annotation, and the expression it binds to.
type VarStmt struct {
	Keyword     token.Token
	Name        token.Token
	Type        *TypeExpr
	Initializer Expression // nil for an uninitialized "late" declaration
	IsConst     bool
	IsLate      bool
}

func (varStmt VarStmt) Accept(v StmtVisitor) any {
	return v.VisitVarStmt(varStmt)
}

// BlockStmt represents a block statement containing a list
// of statement expression AST nodes.
type BlockStmt struct {
	Statements []Stmt
}

func (blockStmt BlockStmt) Accept(v StmtVisitor) any {
	return v.VisitBlockStmt(blockStmt)
}

// IfStmt represents a conditional statement with an optional else
// branch (which may itself be an IfStmt, for "else if" chains).
type IfStmt struct {
	Condition Expression
	Then      Stmt
	Else      Stmt // nil when there is no else branch
}

func (stmt IfStmt) Accept(v StmtVisitor) any {
	return v.VisitIfStmt(stmt)
}

// WhileStmt represents a pre-tested loop: "while (cond) body".
type WhileStmt struct {
	Condition Expression
	Body      Stmt
}

func (stmt WhileStmt) Accept(v StmtVisitor) any {
	return v.VisitWhileStmt(stmt)
}

// DoWhileStmt represents a post-tested loop: "do body while (cond)".
type DoWhileStmt struct {
	Body      Stmt
	Condition Expression
}

func (stmt DoWhileStmt) Accept(v StmtVisitor) any {
	return v.VisitDoWhileStmt(stmt)
}

// ForStmt represents a C-style indexed loop:
// "for (init; cond; increment) body".
type ForStmt struct {
	Init      Stmt // nil, ExpressionStmt, or VarStmt
	Condition Expression
	Increment Expression
	Body      Stmt
}

func (stmt ForStmt) Accept(v StmtVisitor) any {
	return v.VisitForStmt(stmt)
}

// ForInStmt represents "for (var x in iterable) body". The compiler
// lowers this into an indexed loop over the iterable.
type ForInStmt struct {
	Keyword  token.Token
	Name     token.Token
	Iterable Expression
	Body     Stmt
}

func (stmt ForInStmt) Accept(v StmtVisitor) any {
	return v.VisitForInStmt(stmt)
}

// BreakStmt represents a "break;" loop-exit statement.
type BreakStmt struct {
	Keyword token.Token
}

func (stmt BreakStmt) Accept(v StmtVisitor) any {
	return v.VisitBreakStmt(stmt)
}

// ContinueStmt represents a "continue;" loop-skip statement.
type ContinueStmt struct {
	Keyword token.Token
}

func (stmt ContinueStmt) Accept(v StmtVisitor) any {
	return v.VisitContinueStmt(stmt)
}

// ReturnStmt represents a "return expr;" or bare "return;" statement.
type ReturnStmt struct {
	Keyword token.Token
	Value   Expression // nil for a bare return
}

func (stmt ReturnStmt) Accept(v StmtVisitor) any {
	return v.VisitReturnStmt(stmt)
}

// WhenCase is one "case-expr => body" arm of a WhenStmt. CaseExprs is
// empty for the "else" arm.
type WhenCase struct {
	CaseExprs []Expression
	Body      Stmt
}

// WhenStmt represents a "when" multi-way branch over a discriminant
// expression, lowered by the compiler into a chain of equality tests.
type WhenStmt struct {
	Keyword      token.Token
	Discriminant Expression
	Cases        []WhenCase
	ElseCase     Stmt // nil when there is no else arm
}

func (stmt WhenStmt) Accept(v StmtVisitor) any {
	return v.VisitWhenStmt(stmt)
}

// FunctionCategory distinguishes the different roles a FunctionDecl can
// play inside a class body vs. at top level.
type FunctionCategory int

const (
	FunctionNormal FunctionCategory = iota
	FunctionMethod
	FunctionGetter
	FunctionSetter
	FunctionConstructor
	FunctionFactory
)

// FunctionDecl represents a named function/method/constructor
// declaration, at top level or inside a ClassDecl body.
type FunctionDecl struct {
	Name          token.Token
	Category      FunctionCategory
	Parameters    []Parameter
	ReturnType    *TypeExpr
	Body          []Stmt // nil for an external (host-provided) function
	IsStatic      bool
	IsExternal    bool
	RedirectName  *token.Token // set for "construct Foo.bar(...) : this(...)"/"this.other(...)"
	RedirectArgs  []Expression
	RedirectNamed map[string]Expression
	SuperArgs     []Expression // set when the constructor delegates to "super(...)"
	SuperNamed    map[string]Expression
}

func (decl FunctionDecl) Accept(v StmtVisitor) any {
	return v.VisitFunctionDecl(decl)
}

// ClassDecl represents a class declaration: its name, optional
// superclass, optional interfaces/mixins, and member declarations.
type ClassDecl struct {
	Name       token.Token
	TypeParams []token.Token
	Superclass *Variable
	SuperArgs  []Expression
	Implements []Variable
	With       []Variable
	Fields     []VarStmt
	Methods    []FunctionDecl
	IsExternal bool
}

func (decl ClassDecl) Accept(v StmtVisitor) any {
	return v.VisitClassDecl(decl)
}

// EnumMember is one "NAME" or "NAME(args)" entry of an EnumDecl.
type EnumMember struct {
	Name token.Token
	Args []Expression
}

// EnumDecl represents an enum declaration. The compiler lowers an enum
// into a class with one static instance per member (spec.md's enum
// lowering).
type EnumDecl struct {
	Name    token.Token
	Members []EnumMember
	// Associated fields/methods present on a non-trivial enum, declared
	// the same way a class declares them.
	Fields  []VarStmt
	Methods []FunctionDecl
}

func (decl EnumDecl) Accept(v StmtVisitor) any {
	return v.VisitEnumDecl(decl)
}

// StructDecl represents a named struct type declaration, whose
// instances are prototype-chained struct objects (spec.md's Struct
// object entity) rather than Class instances.
type StructDecl struct {
	Name   token.Token
	Proto  *Variable
	Fields []VarStmt
}

func (decl StructDecl) Accept(v StmtVisitor) any {
	return v.VisitStructDecl(decl)
}

// ImportStmt represents "import "key" [as alias] [show a, b];".
type ImportStmt struct {
	Keyword token.Token
	Key     token.Token // STRING token naming the module
	Alias   *token.Token
	Show    []token.Token
}

func (stmt ImportStmt) Accept(v StmtVisitor) any {
	return v.VisitImportStmt(stmt)
}

// LibraryStmt represents a "library name;" declaration naming the
// enclosing module, analogous to a package clause.
type LibraryStmt struct {
	Keyword token.Token
	Name    token.Token
}

func (stmt LibraryStmt) Accept(v StmtVisitor) any {
	return v.VisitLibraryStmt(stmt)
}
