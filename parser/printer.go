package parser

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/fatih/color"

	"github.com/polotto/hetu-script/ast"
)

var astHeaderColor = color.New(color.FgYellow)

// astPrinter implements both visitor interfaces and builds a
// JSON-friendly representation of the AST using maps and slices.
// Each Visit method returns a value that can be marshaled to JSON.
type astPrinter struct{}

func (p astPrinter) VisitExpressionStmt(exprStmt ast.ExpressionStmt) any {
	return map[string]any{
		"type":       "ExpressionStmt",
		"expression": exprStmt.Expression.Accept(p),
	}
}

func (p astPrinter) VisitVarStmt(varStmt ast.VarStmt) any {
	return map[string]any{
		"type":        "VarStmt",
		"keyword":     varStmt.Keyword.Lexeme,
		"name":        varStmt.Name.Lexeme,
		"isConst":     varStmt.IsConst,
		"isLate":      varStmt.IsLate,
		"typeAnn":     typeExprOrNil(varStmt.Type),
		"initializer": nilOrAccept(varStmt.Initializer, p),
	}
}

func (p astPrinter) VisitBlockStmt(blockStmt ast.BlockStmt) any {
	stmts := make([]any, 0, len(blockStmt.Statements))
	for _, stmt := range blockStmt.Statements {
		stmts = append(stmts, stmt.Accept(p))
	}
	return map[string]any{
		"type":       "BlockStmt",
		"statements": stmts,
	}
}

func (p astPrinter) VisitIfStmt(stmt ast.IfStmt) any {
	var elseVal any
	if stmt.Else != nil {
		elseVal = stmt.Else.Accept(p)
	}
	return map[string]any{
		"type":      "IfStmt",
		"condition": stmt.Condition.Accept(p),
		"then":      stmt.Then.Accept(p),
		"else":      elseVal,
	}
}

func (p astPrinter) VisitWhileStmt(stmt ast.WhileStmt) any {
	return map[string]any{
		"type":      "WhileStmt",
		"condition": stmt.Condition.Accept(p),
		"body":      stmt.Body.Accept(p),
	}
}

func (p astPrinter) VisitDoWhileStmt(stmt ast.DoWhileStmt) any {
	return map[string]any{
		"type":      "DoWhileStmt",
		"body":      stmt.Body.Accept(p),
		"condition": stmt.Condition.Accept(p),
	}
}

func (p astPrinter) VisitForStmt(stmt ast.ForStmt) any {
	var initVal any
	if stmt.Init != nil {
		initVal = stmt.Init.Accept(p)
	}
	return map[string]any{
		"type":      "ForStmt",
		"init":      initVal,
		"condition": nilOrAccept(stmt.Condition, p),
		"increment": nilOrAccept(stmt.Increment, p),
		"body":      stmt.Body.Accept(p),
	}
}

func (p astPrinter) VisitForInStmt(stmt ast.ForInStmt) any {
	return map[string]any{
		"type":     "ForInStmt",
		"name":     stmt.Name.Lexeme,
		"iterable": stmt.Iterable.Accept(p),
		"body":     stmt.Body.Accept(p),
	}
}

func (p astPrinter) VisitBreakStmt(stmt ast.BreakStmt) any {
	return map[string]any{"type": "BreakStmt"}
}

func (p astPrinter) VisitContinueStmt(stmt ast.ContinueStmt) any {
	return map[string]any{"type": "ContinueStmt"}
}

func (p astPrinter) VisitReturnStmt(stmt ast.ReturnStmt) any {
	return map[string]any{
		"type":  "ReturnStmt",
		"value": nilOrAccept(stmt.Value, p),
	}
}

func (p astPrinter) VisitWhenStmt(stmt ast.WhenStmt) any {
	cases := make([]any, 0, len(stmt.Cases))
	for _, c := range stmt.Cases {
		exprs := make([]any, 0, len(c.CaseExprs))
		for _, e := range c.CaseExprs {
			exprs = append(exprs, e.Accept(p))
		}
		cases = append(cases, map[string]any{
			"caseExprs": exprs,
			"body":      c.Body.Accept(p),
		})
	}
	return map[string]any{
		"type":         "WhenStmt",
		"discriminant": nilOrAccept(stmt.Discriminant, p),
		"cases":        cases,
		"elseCase":     nilOrStmtAccept(stmt.ElseCase, p),
	}
}

func (p astPrinter) VisitFunctionDecl(decl ast.FunctionDecl) any {
	params := make([]any, 0, len(decl.Parameters))
	for _, param := range decl.Parameters {
		params = append(params, printParameter(param, p))
	}
	body := make([]any, 0, len(decl.Body))
	for _, s := range decl.Body {
		body = append(body, s.Accept(p))
	}
	return map[string]any{
		"type":       "FunctionDecl",
		"name":       decl.Name.Lexeme,
		"category":   int(decl.Category),
		"parameters": params,
		"returnType": typeExprOrNil(decl.ReturnType),
		"isStatic":   decl.IsStatic,
		"isExternal": decl.IsExternal,
		"body":       body,
	}
}

func (p astPrinter) VisitClassDecl(decl ast.ClassDecl) any {
	methods := make([]any, 0, len(decl.Methods))
	for _, m := range decl.Methods {
		methods = append(methods, m.Accept(p))
	}
	fields := make([]any, 0, len(decl.Fields))
	for _, f := range decl.Fields {
		fields = append(fields, f.Accept(p))
	}
	var superName any
	if decl.Superclass != nil {
		superName = decl.Superclass.Name.Lexeme
	}
	return map[string]any{
		"type":       "ClassDecl",
		"name":       decl.Name.Lexeme,
		"superclass": superName,
		"isExternal": decl.IsExternal,
		"fields":     fields,
		"methods":    methods,
	}
}

func (p astPrinter) VisitEnumDecl(decl ast.EnumDecl) any {
	members := make([]any, 0, len(decl.Members))
	for _, m := range decl.Members {
		members = append(members, m.Name.Lexeme)
	}
	return map[string]any{
		"type":    "EnumDecl",
		"name":    decl.Name.Lexeme,
		"members": members,
	}
}

func (p astPrinter) VisitStructDecl(decl ast.StructDecl) any {
	fields := make([]any, 0, len(decl.Fields))
	for _, f := range decl.Fields {
		fields = append(fields, f.Accept(p))
	}
	return map[string]any{
		"type":   "StructDecl",
		"name":   decl.Name.Lexeme,
		"fields": fields,
	}
}

func (p astPrinter) VisitImportStmt(stmt ast.ImportStmt) any {
	return map[string]any{
		"type": "ImportStmt",
		"key":  stmt.Key.Literal,
	}
}

func (p astPrinter) VisitLibraryStmt(stmt ast.LibraryStmt) any {
	return map[string]any{
		"type": "LibraryStmt",
		"name": stmt.Name.Lexeme,
	}
}

func (p astPrinter) VisitLogicalExpression(expr ast.Logical) any {
	return map[string]any{
		"type":     "Logical",
		"operator": expr.Operator.Lexeme,
		"left":     expr.Left.Accept(p),
		"right":    expr.Right.Accept(p),
	}
}

func (p astPrinter) VisitAssignExpression(assign ast.Assign) any {
	return map[string]any{
		"type":     "Assign",
		"operator": assign.Operator.Lexeme,
		"target":   assign.Target.Accept(p),
		"value":    assign.Value.Accept(p),
	}
}

func (p astPrinter) VisitVariableExpression(variable ast.Variable) any {
	return map[string]any{
		"type": "Variable",
		"name": variable.Name.Lexeme,
	}
}

func (p astPrinter) VisitBinary(b ast.Binary) any {
	return map[string]any{
		"type":     "Binary",
		"operator": b.Operator.Lexeme,
		"left":     b.Left.Accept(p),
		"right":    b.Right.Accept(p),
	}
}

func (p astPrinter) VisitUnary(u ast.Unary) any {
	return map[string]any{
		"type":     "Unary",
		"operator": u.Operator.Lexeme,
		"right":    u.Right.Accept(p),
	}
}

func (p astPrinter) VisitPostfix(pf ast.Postfix) any {
	return map[string]any{
		"type":     "Postfix",
		"operator": pf.Operator.Lexeme,
		"target":   pf.Target.Accept(p),
	}
}

func (p astPrinter) VisitLiteral(l ast.Literal) any {
	return l.Value
}

func (p astPrinter) VisitStringInterp(interp ast.StringInterp) any {
	exprs := make([]any, 0, len(interp.Exprs))
	for _, e := range interp.Exprs {
		exprs = append(exprs, e.Accept(p))
	}
	return map[string]any{
		"type":  "StringInterp",
		"parts": interp.Parts,
		"exprs": exprs,
	}
}

func (p astPrinter) VisitGrouping(g ast.Grouping) any {
	return map[string]any{
		"type":       "Grouping",
		"expression": g.Expression.Accept(p),
	}
}

func (p astPrinter) VisitTernary(t ast.Ternary) any {
	return map[string]any{
		"type":      "Ternary",
		"condition": t.Condition.Accept(p),
		"then":      t.Then.Accept(p),
		"else":      t.Else.Accept(p),
	}
}

func (p astPrinter) VisitCall(c ast.Call) any {
	args := make([]any, 0, len(c.Arguments))
	for _, a := range c.Arguments {
		args = append(args, a.Accept(p))
	}
	named := map[string]any{}
	for k, v := range c.Named {
		named[k] = v.Accept(p)
	}
	return map[string]any{
		"type":   "Call",
		"callee": c.Callee.Accept(p),
		"args":   args,
		"named":  named,
	}
}

func (p astPrinter) VisitMember(m ast.Member) any {
	return map[string]any{
		"type":   "Member",
		"object": m.Object.Accept(p),
		"name":   m.Name.Lexeme,
	}
}

func (p astPrinter) VisitIndex(idx ast.Index) any {
	return map[string]any{
		"type":      "Index",
		"object":    idx.Object.Accept(p),
		"subscript": idx.Subscript.Accept(p),
	}
}

func (p astPrinter) VisitListLiteral(list ast.ListLiteral) any {
	elems := make([]any, 0, len(list.Elements))
	for _, e := range list.Elements {
		elems = append(elems, e.Accept(p))
	}
	return map[string]any{
		"type":     "ListLiteral",
		"elements": elems,
	}
}

func (p astPrinter) VisitStructLiteral(lit ast.StructLiteral) any {
	fields := map[string]any{}
	for _, f := range lit.Fields {
		fields[f.Key.Lexeme] = f.Value.Accept(p)
	}
	return map[string]any{
		"type":   "StructLiteral",
		"fields": fields,
		"proto":  nilOrAccept(lit.Proto, p),
	}
}

func (p astPrinter) VisitThis(this ast.This) any {
	return map[string]any{"type": "This"}
}

func (p astPrinter) VisitSuper(super ast.Super) any {
	var method any
	if super.Method != nil {
		method = super.Method.Lexeme
	}
	return map[string]any{
		"type":   "Super",
		"method": method,
	}
}

func (p astPrinter) VisitFunctionExpr(fn ast.FunctionExpr) any {
	params := make([]any, 0, len(fn.Parameters))
	for _, param := range fn.Parameters {
		params = append(params, printParameter(param, p))
	}
	body := make([]any, 0, len(fn.Body))
	for _, s := range fn.Body {
		body = append(body, s.Accept(p))
	}
	return map[string]any{
		"type":       "FunctionExpr",
		"parameters": params,
		"body":       body,
	}
}

func (p astPrinter) VisitIsExpr(isExpr ast.IsExpr) any {
	return map[string]any{
		"type": "IsExpr",
		"not":  isExpr.Not,
		"left": isExpr.Left.Accept(p),
	}
}

func (p astPrinter) VisitAsExpr(asExpr ast.AsExpr) any {
	return map[string]any{
		"type": "AsExpr",
		"left": asExpr.Left.Accept(p),
	}
}

func (p astPrinter) VisitTypeofExpr(t ast.TypeofExpr) any {
	return map[string]any{
		"type":  "TypeofExpr",
		"right": t.Right.Accept(p),
	}
}

func printParameter(param ast.Parameter, p astPrinter) any {
	return map[string]any{
		"name":       param.Name.Lexeme,
		"isOptional": param.IsOptional,
		"isNamed":    param.IsNamed,
		"isVariadic": param.IsVariadic,
		"default":    nilOrAccept(param.Default, p),
	}
}

func typeExprOrNil(t *ast.TypeExpr) any {
	if t == nil {
		return nil
	}
	return map[string]any{
		"name":     t.Name.Lexeme,
		"nullable": t.Nullable,
	}
}

// nilOrAccept returns nil if expr is nil, otherwise it continues
// processing the expression and returns the result.
func nilOrAccept(expr ast.Expression, p ast.ExpressionVisitor) any {
	if expr == nil {
		return nil
	}
	return expr.Accept(p)
}

// nilOrStmtAccept is nilOrAccept's statement-side counterpart.
func nilOrStmtAccept(stmt ast.Stmt, p ast.StmtVisitor) any {
	if stmt == nil {
		return nil
	}
	return stmt.Accept(p)
}

// PrintASTJSON converts a slice of statements into a prettified JSON string.
func PrintASTJSON(statements []ast.Stmt) (string, error) {
	printer := astPrinter{}
	out := make([]any, 0, len(statements))
	for _, s := range statements {
		out = append(out, s.Accept(printer))
	}
	bytes, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return "", err
	}

	jsonStr := string(bytes)
	astHeaderColor.Println("----- AST JSON -----")
	astHeaderColor.Println(jsonStr)
	astHeaderColor.Println("-----")
	fmt.Println("")
	return jsonStr, nil
}

// WriteASTJSONToFile writes the prettified AST JSON to the given file path.
func WriteASTJSONToFile(statements []ast.Stmt, path string) error {
	s, err := PrintASTJSON(statements)
	if err != nil {
		return err
	}
	fDescriptor, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("error creating AST file: %s", err.Error())
	}
	defer fDescriptor.Close()

	_, err = fDescriptor.Write([]byte(s))
	if err != nil {
		return fmt.Errorf("error writing AST to file: %s", err.Error())
	}
	return nil
}
