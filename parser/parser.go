// Recursive descent parser
// https://en.wikipedia.org/wiki/Recursive_descent_parser
//
// A Recursive descent parser is a top-down parser because it starts from the
// top grammar rule and works its way down into the nested sub-expressions
// before reaching the leaves of the syntax tree (terminal rules).
package parser

import (
	"fmt"

	"github.com/polotto/hetu-script/ast"
	"github.com/polotto/hetu-script/hetuerrors"
	"github.com/polotto/hetu-script/token"
)

var equalityTokenTypes = []token.TokenType{
	token.NOT_EQUAL,
	token.EQUAL_EQUAL,
}

var relationalTokenTypes = []token.TokenType{
	token.LARGER,
	token.LARGER_EQUAL,
	token.LESS,
	token.LESS_EQUAL,
}

var termTokenTypes = []token.TokenType{
	token.SUB,
	token.ADD,
}

var factorExpressionTypes = []token.TokenType{
	token.MULT,
	token.DIV,
	token.MOD,
}

var assignTokenTypes = []token.TokenType{
	token.ASSIGN,
	token.PLUS_ASSIGN,
	token.MINUS_ASSIGN,
	token.MULT_ASSIGN,
	token.DIV_ASSIGN,
}

// Parser implements a recursive-descent parser over a flat token
// stream, producing the AST node set defined by package ast.
type Parser struct {
	tokens   []token.Token
	position int
	module   string

	// kindStack tracks the grammatical context (SourceKind) the parser
	// is nested inside, innermost last. Make seeds it with KindScript
	// (string-interpolation reparsing uses Make); MakeOfKind lets a
	// caller (the module loader) declare a different top-level kind.
	kindStack []SourceKind
}

// NOTE: The parser's position is always one unit ahead of the
// current token.

// Make initializes and returns a new Parser instance for the given
// module key (used to stamp any syntax errors raised while parsing),
// parsing as a top-level script.
func Make(tokens []token.Token, module string) *Parser {
	return MakeOfKind(tokens, module, KindScript)
}

// MakeOfKind is Make with an explicit top-level SourceKind, for a
// caller that knows it is parsing an imported module rather than a
// script entry point.
func MakeOfKind(tokens []token.Token, module string, kind SourceKind) *Parser {
	return &Parser{
		tokens:    tokens,
		position:  0,
		module:    module,
		kindStack: []SourceKind{kind},
	}
}

// Print prints the AST as prettified JSON to standard output.
func (parser *Parser) Print(statements []ast.Stmt) {
	_, err := PrintASTJSON(statements)
	if err != nil {
		fmt.Println("error producing AST JSON:", err)
	}
}

// PrintToFile writes the AST for the provided statements to a .json file at the given path.
func (parser *Parser) PrintToFile(statements []ast.Stmt, path string) error {
	return WriteASTJSONToFile(statements, path)
}

func (parser *Parser) peek() token.Token {
	return parser.tokens[parser.position]
}

func (parser *Parser) previous() token.Token {
	return parser.tokens[parser.position-1]
}

func (parser *Parser) advance() token.Token {
	if !parser.isFinished() {
		parser.position++
	}
	return parser.previous()
}

func (parser *Parser) isFinished() bool {
	tok := parser.peek()
	return tok.TokenType == token.EOF
}

func (parser *Parser) checkType(tokenType token.TokenType) bool {
	if parser.isFinished() {
		return false
	}
	return parser.peek().TokenType == tokenType
}

func (parser *Parser) isMatch(tokenTypes []token.TokenType) bool {
	for _, tokenType := range tokenTypes {
		if parser.checkType(tokenType) {
			parser.advance()
			return true
		}
	}
	return false
}

func (parser *Parser) err(tok token.Token, code hetuerrors.Code, message string) *hetuerrors.Error {
	return hetuerrors.Syntactic(code, parser.module, tok.Line, tok.Column, message)
}

// Parse parses the entire token stream into a slice of Stmt (statement) nodes,
// continuing until the end of input. Errors during parsing are collected
// but parsing continues to find additional errors where possible.
func (parser *Parser) Parse() ([]ast.Stmt, []error) {
	statements := []ast.Stmt{}
	errors := []error{}

	for {
		if parser.isFinished() {
			break
		}
		if parser.isMatch([]token.TokenType{token.EMPTYLINE}) {
			continue
		}
		statement, err := parser.declaration()
		if err != nil {
			errors = append(errors, err)
			if !parser.isFinished() {
				parser.position++
			}
			continue
		}
		statements = append(statements, statement)
	}

	return statements, errors
}

// declaration dispatches to the appropriate top-level or block-level
// declaration parser, falling back to statement() for anything that
// is not a declaration keyword.
func (parser *Parser) declaration() (ast.Stmt, error) {
	switch {
	case parser.isMatch([]token.TokenType{token.VAR}):
		return parser.variableDeclaration(parser.previous(), false, false)
	case parser.isMatch([]token.TokenType{token.CONST}):
		return parser.variableDeclaration(parser.previous(), true, false)
	case parser.isMatch([]token.TokenType{token.LATE}):
		return parser.variableDeclaration(parser.previous(), false, true)
	case parser.isMatch([]token.TokenType{token.FUNC}):
		return parser.functionDeclaration(ast.FunctionNormal, false)
	case parser.isMatch([]token.TokenType{token.CLASS}):
		return parser.classDeclaration(false)
	case parser.isMatch([]token.TokenType{token.EXTERNAL}):
		return parser.externalDeclaration()
	case parser.isMatch([]token.TokenType{token.ENUM}):
		return parser.enumDeclaration()
	case parser.isMatch([]token.TokenType{token.STRUCT}):
		return parser.structDeclaration()
	case parser.isMatch([]token.TokenType{token.IMPORT}):
		return parser.importStatement()
	case parser.isMatch([]token.TokenType{token.LIBRARY}):
		return parser.libraryStatement()
	}
	return parser.statement()
}

func (parser *Parser) externalDeclaration() (ast.Stmt, error) {
	if parser.isMatch([]token.TokenType{token.CLASS}) {
		return parser.classDeclaration(true)
	}
	parser.isMatch([]token.TokenType{token.FUNC})
	return parser.functionDeclaration(ast.FunctionNormal, true)
}

func (parser *Parser) libraryStatement() (ast.Stmt, error) {
	keyword := parser.previous()
	name, err := parser.consume(token.IDENTIFIER, "Expected library name.")
	if err != nil {
		return nil, err
	}
	parser.isMatch([]token.TokenType{token.SEMICOLON})
	return ast.LibraryStmt{Keyword: keyword, Name: name}, nil
}

func (parser *Parser) importStatement() (ast.Stmt, error) {
	keyword := parser.previous()
	key, err := parser.consume(token.STRING, "Expected a module path string after 'import'.")
	if err != nil {
		return nil, err
	}
	stmt := ast.ImportStmt{Keyword: keyword, Key: key}
	if parser.isMatch([]token.TokenType{token.AS}) {
		alias, err := parser.consume(token.IDENTIFIER, "Expected alias identifier after 'as'.")
		if err != nil {
			return nil, err
		}
		stmt.Alias = &alias
	}
	if parser.checkType(token.IDENTIFIER) && parser.peek().Lexeme == "show" {
		parser.advance()
		for {
			name, err := parser.consume(token.IDENTIFIER, "Expected identifier in 'show' list.")
			if err != nil {
				return nil, err
			}
			stmt.Show = append(stmt.Show, name)
			if !parser.isMatch([]token.TokenType{token.COMMA}) {
				break
			}
		}
	}
	parser.isMatch([]token.TokenType{token.SEMICOLON})
	return stmt, nil
}

// variableDeclaration parses "var|const|late name [: Type] [= expr];".
func (parser *Parser) variableDeclaration(keyword token.Token, isConst bool, isLate bool) (ast.Stmt, error) {
	name, err := parser.consume(token.IDENTIFIER, "Expected variable name.")
	if err != nil {
		return nil, err
	}

	var typeExpr *ast.TypeExpr
	if parser.isMatch([]token.TokenType{token.COLON}) {
		t, err := parser.parseTypeExpr()
		if err != nil {
			return nil, err
		}
		typeExpr = &t
	}

	var initializer ast.Expression
	if parser.isMatch([]token.TokenType{token.ASSIGN}) {
		initializer, err = parser.expression()
		if err != nil {
			return nil, err
		}
	}
	parser.isMatch([]token.TokenType{token.SEMICOLON})

	return ast.VarStmt{
		Keyword:     keyword,
		Name:        name,
		Type:        typeExpr,
		Initializer: initializer,
		IsConst:     isConst,
		IsLate:      isLate,
	}, nil
}

// parseTypeExpr parses a type annotation: Identifier ('<' Type (',' Type)* '>')? '?'?
func (parser *Parser) parseTypeExpr() (ast.TypeExpr, error) {
	name, err := parser.consume(token.IDENTIFIER, "Expected a type name.")
	if err != nil {
		return ast.TypeExpr{}, err
	}
	t := ast.TypeExpr{Name: name}
	if parser.isMatch([]token.TokenType{token.LESS}) {
		for {
			arg, err := parser.parseTypeExpr()
			if err != nil {
				return ast.TypeExpr{}, err
			}
			t.TypeArgs = append(t.TypeArgs, arg)
			if !parser.isMatch([]token.TokenType{token.COMMA}) {
				break
			}
		}
		if _, err := parser.consume(token.LARGER, "Expected '>' to close type argument list."); err != nil {
			return ast.TypeExpr{}, err
		}
	}
	if parser.isMatch([]token.TokenType{token.QUESTION}) {
		t.Nullable = true
	}
	return t, nil
}

func (parser *Parser) parseParameterList() ([]ast.Parameter, error) {
	if _, err := parser.consume(token.LPA, "Expected '(' to start a parameter list."); err != nil {
		return nil, err
	}
	var params []ast.Parameter
	for !parser.checkType(token.RPA) && !parser.isFinished() {
		param := ast.Parameter{}
		if parser.isMatch([]token.TokenType{token.LBK}) {
			param.IsOptional = true
		} else if parser.isMatch([]token.TokenType{token.LCUR}) {
			param.IsNamed = true
		}
		if parser.isMatch([]token.TokenType{token.DOT}) {
			parser.isMatch([]token.TokenType{token.DOT})
			parser.isMatch([]token.TokenType{token.DOT})
			param.IsVariadic = true
		}
		name, err := parser.consume(token.IDENTIFIER, "Expected parameter name.")
		if err != nil {
			return nil, err
		}
		param.Name = name
		if parser.isMatch([]token.TokenType{token.COLON}) {
			t, err := parser.parseTypeExpr()
			if err != nil {
				return nil, err
			}
			param.Type = &t
		}
		if parser.isMatch([]token.TokenType{token.ASSIGN}) {
			def, err := parser.expression()
			if err != nil {
				return nil, err
			}
			param.Default = def
		}
		if param.IsOptional {
			parser.isMatch([]token.TokenType{token.RBK})
		}
		if param.IsNamed {
			parser.isMatch([]token.TokenType{token.RCUR})
		}
		params = append(params, param)
		if !parser.isMatch([]token.TokenType{token.COMMA}) {
			break
		}
	}
	if _, err := parser.consume(token.RPA, "Expected ')' to close a parameter list."); err != nil {
		return nil, err
	}
	return params, nil
}

// functionDeclaration parses "fun name(params) [: Type] { body }" for a
// top-level function, or an external one with no body.
func (parser *Parser) functionDeclaration(category ast.FunctionCategory, isExternal bool) (ast.Stmt, error) {
	name, err := parser.consume(token.IDENTIFIER, "Expected function name.")
	if err != nil {
		return nil, err
	}
	params, err := parser.parseParameterList()
	if err != nil {
		return nil, err
	}
	var returnType *ast.TypeExpr
	if parser.isMatch([]token.TokenType{token.COLON}) {
		t, err := parser.parseTypeExpr()
		if err != nil {
			return nil, err
		}
		returnType = &t
	}
	decl := ast.FunctionDecl{Name: name, Category: category, Parameters: params, ReturnType: returnType, IsExternal: isExternal}
	if isExternal {
		parser.isMatch([]token.TokenType{token.SEMICOLON})
		return decl, nil
	}
	if _, err := parser.consume(token.LCUR, "Expected '{' to start a function body."); err != nil {
		return nil, err
	}
	parser.pushKind(KindFunctionBody)
	body, err := parser.block()
	parser.popKind()
	if err != nil {
		return nil, err
	}
	decl.Body = body
	return decl, nil
}

// classDeclaration parses a class declaration with optional type
// parameters, superclass, implements/with clauses, and a member list.
func (parser *Parser) classDeclaration(isExternal bool) (ast.Stmt, error) {
	name, err := parser.consume(token.IDENTIFIER, "Expected class name.")
	if err != nil {
		return nil, err
	}
	decl := ast.ClassDecl{Name: name, IsExternal: isExternal}

	if parser.isMatch([]token.TokenType{token.LESS}) {
		for {
			tp, err := parser.consume(token.IDENTIFIER, "Expected type parameter name.")
			if err != nil {
				return nil, err
			}
			decl.TypeParams = append(decl.TypeParams, tp)
			if !parser.isMatch([]token.TokenType{token.COMMA}) {
				break
			}
		}
		if _, err := parser.consume(token.LARGER, "Expected '>' to close a type parameter list."); err != nil {
			return nil, err
		}
	}

	if parser.isMatch([]token.TokenType{token.EXTENDS}) {
		superName, err := parser.consume(token.IDENTIFIER, "Expected superclass name after 'extends'.")
		if err != nil {
			return nil, err
		}
		v := ast.Variable{Name: superName}
		decl.Superclass = &v
		if parser.isMatch([]token.TokenType{token.LPA}) {
			args, _, err := parser.parseArguments()
			if err != nil {
				return nil, err
			}
			decl.SuperArgs = args
		}
	}
	if parser.isMatch([]token.TokenType{token.IMPLEMENTS}) {
		for {
			n, err := parser.consume(token.IDENTIFIER, "Expected interface name.")
			if err != nil {
				return nil, err
			}
			decl.Implements = append(decl.Implements, ast.Variable{Name: n})
			if !parser.isMatch([]token.TokenType{token.COMMA}) {
				break
			}
		}
	}
	if parser.isMatch([]token.TokenType{token.WITH}) {
		for {
			n, err := parser.consume(token.IDENTIFIER, "Expected mixin name.")
			if err != nil {
				return nil, err
			}
			decl.With = append(decl.With, ast.Variable{Name: n})
			if !parser.isMatch([]token.TokenType{token.COMMA}) {
				break
			}
		}
	}

	if _, err := parser.consume(token.LCUR, "Expected '{' to start a class body."); err != nil {
		return nil, err
	}

	parser.pushKind(KindClassBody)
	for !parser.checkType(token.RCUR) && !parser.isFinished() {
		if parser.isMatch([]token.TokenType{token.EMPTYLINE, token.SEMICOLON}) {
			continue
		}
		member, err := parser.classMember(isExternal)
		if err != nil {
			parser.popKind()
			return nil, err
		}
		switch m := member.(type) {
		case ast.FunctionDecl:
			decl.Methods = append(decl.Methods, m)
		case ast.VarStmt:
			decl.Fields = append(decl.Fields, m)
		}
	}
	parser.popKind()
	if _, err := parser.consume(token.RCUR, "Expected '}' to close a class body."); err != nil {
		return nil, err
	}
	return decl, nil
}

// classMember parses one class-body member: a field declaration, or a
// method/getter/setter/constructor/factory function.
func (parser *Parser) classMember(classIsExternal bool) (ast.Stmt, error) {
	isStatic := parser.isMatch([]token.TokenType{token.STATIC})
	isExternal := classIsExternal || parser.isMatch([]token.TokenType{token.EXTERNAL})

	switch {
	case parser.isMatch([]token.TokenType{token.VAR}):
		stmt, err := parser.variableDeclaration(parser.previous(), false, false)
		if err != nil {
			return nil, err
		}
		v := stmt.(ast.VarStmt)
		return v, nil
	case parser.isMatch([]token.TokenType{token.CONST}):
		stmt, err := parser.variableDeclaration(parser.previous(), true, false)
		if err != nil {
			return nil, err
		}
		return stmt.(ast.VarStmt), nil
	case parser.isMatch([]token.TokenType{token.GET}):
		decl, err := parser.functionDeclaration(ast.FunctionGetter, isExternal)
		if err != nil {
			return nil, err
		}
		fn := decl.(ast.FunctionDecl)
		fn.IsStatic = isStatic
		return fn, nil
	case parser.isMatch([]token.TokenType{token.SET}):
		decl, err := parser.functionDeclaration(ast.FunctionSetter, isExternal)
		if err != nil {
			return nil, err
		}
		fn := decl.(ast.FunctionDecl)
		fn.IsStatic = isStatic
		return fn, nil
	case parser.isMatch([]token.TokenType{token.CONSTRUCT}):
		return parser.constructorDeclaration(ast.FunctionConstructor, isExternal)
	case parser.isMatch([]token.TokenType{token.FACTORY}):
		return parser.constructorDeclaration(ast.FunctionFactory, isExternal)
	case parser.isMatch([]token.TokenType{token.FUNC}):
		decl, err := parser.functionDeclaration(ast.FunctionMethod, isExternal)
		if err != nil {
			return nil, err
		}
		fn := decl.(ast.FunctionDecl)
		fn.IsStatic = isStatic
		return fn, nil
	}
	tok := parser.peek()
	return nil, parser.err(tok, hetuerrors.CodeUnexpectedToken, "Expected a field or method declaration inside a class body.")
}

// constructorDeclaration parses "construct [.name](params) [: this(...)|super(...)] [{ body }]".
func (parser *Parser) constructorDeclaration(category ast.FunctionCategory, isExternal bool) (ast.Stmt, error) {
	name := token.CreateLiteralToken(token.IDENTIFIER, nil, "", parser.peek().Line, parser.peek().Column)
	if parser.checkType(token.IDENTIFIER) {
		name = parser.advance()
	}
	if parser.isMatch([]token.TokenType{token.DOT}) {
		n, err := parser.consume(token.IDENTIFIER, "Expected a named-constructor identifier after '.'.")
		if err != nil {
			return nil, err
		}
		name = n
	}
	params, err := parser.parseParameterList()
	if err != nil {
		return nil, err
	}
	decl := ast.FunctionDecl{Name: name, Category: category, Parameters: params, IsExternal: isExternal}

	if parser.isMatch([]token.TokenType{token.COLON}) {
		if parser.isMatch([]token.TokenType{token.THIS}) {
			if _, err := parser.consume(token.LPA, "Expected '(' after 'this' in a redirecting constructor."); err != nil {
				return nil, err
			}
			args, named, err := parser.parseArguments()
			if err != nil {
				return nil, err
			}
			redirectName := name
			decl.RedirectName = &redirectName
			decl.RedirectArgs = args
			decl.RedirectNamed = named
		} else if parser.isMatch([]token.TokenType{token.SUPER}) {
			if _, err := parser.consume(token.LPA, "Expected '(' after 'super' in a constructor."); err != nil {
				return nil, err
			}
			args, named, err := parser.parseArguments()
			if err != nil {
				return nil, err
			}
			decl.SuperArgs = args
			decl.SuperNamed = named
		}
	}

	if isExternal {
		parser.isMatch([]token.TokenType{token.SEMICOLON})
		return decl, nil
	}
	if _, err := parser.consume(token.LCUR, "Expected '{' to start a constructor body."); err != nil {
		return nil, err
	}
	parser.pushKind(KindFunctionBody)
	body, err := parser.block()
	parser.popKind()
	if err != nil {
		return nil, err
	}
	decl.Body = body
	return decl, nil
}

// enumDeclaration parses "enum Name { A, B(1), ... }".
func (parser *Parser) enumDeclaration() (ast.Stmt, error) {
	name, err := parser.consume(token.IDENTIFIER, "Expected enum name.")
	if err != nil {
		return nil, err
	}
	if _, err := parser.consume(token.LCUR, "Expected '{' to start an enum body."); err != nil {
		return nil, err
	}
	decl := ast.EnumDecl{Name: name}
	for !parser.checkType(token.RCUR) && !parser.isFinished() {
		if parser.isMatch([]token.TokenType{token.EMPTYLINE}) {
			continue
		}
		if parser.checkType(token.IDENTIFIER) && looksLikeEnumMember(parser) {
			memberName := parser.advance()
			member := ast.EnumMember{Name: memberName}
			if parser.isMatch([]token.TokenType{token.LPA}) {
				args, _, err := parser.parseArguments()
				if err != nil {
					return nil, err
				}
				member.Args = args
			}
			decl.Members = append(decl.Members, member)
			parser.isMatch([]token.TokenType{token.COMMA})
			continue
		}
		member, err := parser.classMember(false)
		if err != nil {
			return nil, err
		}
		switch m := member.(type) {
		case ast.FunctionDecl:
			decl.Methods = append(decl.Methods, m)
		case ast.VarStmt:
			decl.Fields = append(decl.Fields, m)
		}
	}
	if _, err := parser.consume(token.RCUR, "Expected '}' to close an enum body."); err != nil {
		return nil, err
	}
	return decl, nil
}

// looksLikeEnumMember distinguishes a bare enum member entry ("RED,")
// from a field/method declaration that happens to start with an
// identifier-like keyword (var/fun/etc. are already excluded by
// classMember's own keyword matches, so any IDENTIFIER here is a
// member name).
func looksLikeEnumMember(parser *Parser) bool {
	return true
}

// structDeclaration parses "struct Name [: proto] { fields }".
func (parser *Parser) structDeclaration() (ast.Stmt, error) {
	name, err := parser.consume(token.IDENTIFIER, "Expected struct name.")
	if err != nil {
		return nil, err
	}
	decl := ast.StructDecl{Name: name}
	if parser.isMatch([]token.TokenType{token.COLON}) {
		protoName, err := parser.consume(token.IDENTIFIER, "Expected prototype struct name after ':'.")
		if err != nil {
			return nil, err
		}
		v := ast.Variable{Name: protoName}
		decl.Proto = &v
	}
	if _, err := parser.consume(token.LCUR, "Expected '{' to start a struct body."); err != nil {
		return nil, err
	}
	parser.pushKind(KindStructBody)
	for !parser.checkType(token.RCUR) && !parser.isFinished() {
		if parser.isMatch([]token.TokenType{token.EMPTYLINE, token.SEMICOLON}) {
			continue
		}
		parser.isMatch([]token.TokenType{token.VAR})
		field, err := parser.variableDeclaration(parser.previous(), false, false)
		if err != nil {
			parser.popKind()
			return nil, err
		}
		decl.Fields = append(decl.Fields, field.(ast.VarStmt))
	}
	parser.popKind()
	if _, err := parser.consume(token.RCUR, "Expected '}' to close a struct body."); err != nil {
		return nil, err
	}
	return decl, nil
}

// statement parses a single non-declaration statement.
func (parser *Parser) statement() (ast.Stmt, error) {
	switch {
	case parser.isMatch([]token.TokenType{token.LCUR}):
		statements, err := parser.block()
		if err != nil {
			return nil, err
		}
		return ast.BlockStmt{Statements: statements}, nil
	case parser.isMatch([]token.TokenType{token.IF}):
		return parser.ifStatement()
	case parser.isMatch([]token.TokenType{token.WHILE}):
		return parser.whileStatement()
	case parser.isMatch([]token.TokenType{token.DO}):
		return parser.doWhileStatement()
	case parser.isMatch([]token.TokenType{token.FOR}):
		return parser.forStatement()
	case parser.isMatch([]token.TokenType{token.BREAK}):
		keyword := parser.previous()
		parser.isMatch([]token.TokenType{token.SEMICOLON})
		return ast.BreakStmt{Keyword: keyword}, nil
	case parser.isMatch([]token.TokenType{token.CONTINUE}):
		keyword := parser.previous()
		parser.isMatch([]token.TokenType{token.SEMICOLON})
		return ast.ContinueStmt{Keyword: keyword}, nil
	case parser.isMatch([]token.TokenType{token.RETURN}):
		return parser.returnStatement()
	case parser.isMatch([]token.TokenType{token.WHEN}):
		return parser.whenStatement()
	}

	expr, err := parser.expression()
	if err != nil {
		return nil, err
	}
	parser.isMatch([]token.TokenType{token.SEMICOLON})
	return ast.ExpressionStmt{Expression: expr}, nil
}

func (parser *Parser) whileStatement() (ast.Stmt, error) {
	if _, err := parser.consume(token.LPA, "Expected '(' after 'while'."); err != nil {
		return nil, err
	}
	cond, err := parser.expression()
	if err != nil {
		return nil, err
	}
	if _, err := parser.consume(token.RPA, "Expected ')' after a while condition."); err != nil {
		return nil, err
	}
	body, err := parser.statement()
	if err != nil {
		return nil, err
	}
	return ast.WhileStmt{Condition: cond, Body: body}, nil
}

func (parser *Parser) doWhileStatement() (ast.Stmt, error) {
	body, err := parser.statement()
	if err != nil {
		return nil, err
	}
	if _, err := parser.consume(token.WHILE, "Expected 'while' after a do-block."); err != nil {
		return nil, err
	}
	if _, err := parser.consume(token.LPA, "Expected '(' after 'while'."); err != nil {
		return nil, err
	}
	cond, err := parser.expression()
	if err != nil {
		return nil, err
	}
	if _, err := parser.consume(token.RPA, "Expected ')' after a do-while condition."); err != nil {
		return nil, err
	}
	parser.isMatch([]token.TokenType{token.SEMICOLON})
	return ast.DoWhileStmt{Body: body, Condition: cond}, nil
}

// forStatement parses either a C-style "for (init; cond; incr) body" or
// "for (var x in iterable) body", disambiguating by scanning ahead for
// the 'in' keyword.
func (parser *Parser) forStatement() (ast.Stmt, error) {
	keyword := parser.previous()
	if _, err := parser.consume(token.LPA, "Expected '(' after 'for'."); err != nil {
		return nil, err
	}

	if parser.isForIn() {
		parser.isMatch([]token.TokenType{token.VAR})
		name, err := parser.consume(token.IDENTIFIER, "Expected a loop variable name.")
		if err != nil {
			return nil, err
		}
		if _, err := parser.consume(token.IN, "Expected 'in' in a for-in loop."); err != nil {
			return nil, err
		}
		iterable, err := parser.expression()
		if err != nil {
			return nil, err
		}
		if _, err := parser.consume(token.RPA, "Expected ')' after a for-in clause."); err != nil {
			return nil, err
		}
		body, err := parser.statement()
		if err != nil {
			return nil, err
		}
		return ast.ForInStmt{Keyword: keyword, Name: name, Iterable: iterable, Body: body}, nil
	}

	var init ast.Stmt
	if parser.isMatch([]token.TokenType{token.SEMICOLON}) {
		init = nil
	} else if parser.isMatch([]token.TokenType{token.VAR}) {
		s, err := parser.variableDeclaration(parser.previous(), false, false)
		if err != nil {
			return nil, err
		}
		init = s
	} else {
		expr, err := parser.expression()
		if err != nil {
			return nil, err
		}
		if _, err := parser.consume(token.SEMICOLON, "Expected ';' after a for-loop initializer."); err != nil {
			return nil, err
		}
		init = ast.ExpressionStmt{Expression: expr}
	}

	var cond ast.Expression
	if !parser.checkType(token.SEMICOLON) {
		var err error
		cond, err = parser.expression()
		if err != nil {
			return nil, err
		}
	}
	if _, err := parser.consume(token.SEMICOLON, "Expected ';' after a for-loop condition."); err != nil {
		return nil, err
	}

	var incr ast.Expression
	if !parser.checkType(token.RPA) {
		var err error
		incr, err = parser.expression()
		if err != nil {
			return nil, err
		}
	}
	if _, err := parser.consume(token.RPA, "Expected ')' after a for-loop clause."); err != nil {
		return nil, err
	}

	body, err := parser.statement()
	if err != nil {
		return nil, err
	}
	return ast.ForStmt{Init: init, Condition: cond, Increment: incr, Body: body}, nil
}

// isForIn scans ahead, without consuming tokens, to see whether the
// parenthesized clause is "[var] IDENTIFIER in ...".
func (parser *Parser) isForIn() bool {
	offset := 0
	if parser.tokens[parser.position+offset].TokenType == token.VAR {
		offset++
	}
	if parser.tokens[parser.position+offset].TokenType != token.IDENTIFIER {
		return false
	}
	offset++
	return parser.tokens[parser.position+offset].TokenType == token.IN
}

func (parser *Parser) returnStatement() (ast.Stmt, error) {
	keyword := parser.previous()
	if !parser.inFunctionBody() {
		return nil, parser.err(keyword, hetuerrors.CodeInvalidReturn, "'return' is only allowed inside a function body.")
	}
	var value ast.Expression
	if !parser.checkType(token.SEMICOLON) && !parser.checkType(token.RCUR) {
		var err error
		value, err = parser.expression()
		if err != nil {
			return nil, err
		}
	}
	parser.isMatch([]token.TokenType{token.SEMICOLON})
	return ast.ReturnStmt{Keyword: keyword, Value: value}, nil
}

// whenStatement parses "when (discriminant) { case expr, expr2 => stmt ... else => stmt }".
func (parser *Parser) whenStatement() (ast.Stmt, error) {
	keyword := parser.previous()
	var discriminant ast.Expression
	if parser.isMatch([]token.TokenType{token.LPA}) {
		var err error
		discriminant, err = parser.expression()
		if err != nil {
			return nil, err
		}
		if _, err := parser.consume(token.RPA, "Expected ')' after a when discriminant."); err != nil {
			return nil, err
		}
	}
	if _, err := parser.consume(token.LCUR, "Expected '{' to start a when body."); err != nil {
		return nil, err
	}

	stmt := ast.WhenStmt{Keyword: keyword, Discriminant: discriminant}
	for !parser.checkType(token.RCUR) && !parser.isFinished() {
		if parser.isMatch([]token.TokenType{token.EMPTYLINE}) {
			continue
		}
		if parser.isMatch([]token.TokenType{token.ELSE}) {
			if _, err := parser.consume(token.ARROW, "Expected '=>' after 'else' in a when arm."); err != nil {
				return nil, err
			}
			body, err := parser.statement()
			if err != nil {
				return nil, err
			}
			stmt.ElseCase = body
			continue
		}
		var caseExprs []ast.Expression
		for {
			expr, err := parser.expression()
			if err != nil {
				return nil, err
			}
			caseExprs = append(caseExprs, expr)
			if !parser.isMatch([]token.TokenType{token.COMMA}) {
				break
			}
		}
		if _, err := parser.consume(token.ARROW, "Expected '=>' after a when case."); err != nil {
			return nil, err
		}
		body, err := parser.statement()
		if err != nil {
			return nil, err
		}
		stmt.Cases = append(stmt.Cases, ast.WhenCase{CaseExprs: caseExprs, Body: body})
	}
	if _, err := parser.consume(token.RCUR, "Expected '}' to close a when body."); err != nil {
		return nil, err
	}
	return stmt, nil
}

func (parser *Parser) ifStatement() (ast.Stmt, error) {
	if _, err := parser.consume(token.LPA, "Expected '(' after 'if'."); err != nil {
		return nil, err
	}
	conditionExpr, err := parser.expression()
	if err != nil {
		return nil, err
	}
	if _, err := parser.consume(token.RPA, "Expected ')' after an if condition."); err != nil {
		return nil, err
	}

	thenStmt, err := parser.statement()
	if err != nil {
		return nil, err
	}
	var elseStmt ast.Stmt
	if parser.isMatch([]token.TokenType{token.ELSE}) {
		stmt, err := parser.statement()
		if err != nil {
			return nil, err
		}
		elseStmt = stmt
	}

	return ast.IfStmt{
		Condition: conditionExpr,
		Then:      thenStmt,
		Else:      elseStmt,
	}, nil
}

func (parser *Parser) block() ([]ast.Stmt, error) {
	statements := []ast.Stmt{}

	for !parser.checkType(token.RCUR) && !parser.isFinished() {
		if parser.isMatch([]token.TokenType{token.EMPTYLINE}) {
			continue
		}
		stmt, err := parser.declaration()
		if err != nil {
			return nil, err
		}
		statements = append(statements, stmt)
	}

	if _, err := parser.consume(token.RCUR, fmt.Sprintf("Expected '%s' after block.", token.RCUR)); err != nil {
		return nil, err
	}
	return statements, nil
}

// expression is the entry point for parsing expressions. It begins at
// the assignment rule, which encompasses all lower-precedence rules.
func (parser *Parser) expression() (ast.Expression, error) {
	return parser.assignment()
}

// assignment parses an assignment expression, including the compound
// forms ("+=", "-=", "*=", "/=").
func (parser *Parser) assignment() (ast.Expression, error) {
	expr, err := parser.ternary()
	if err != nil {
		return nil, err
	}
	if parser.isMatch(assignTokenTypes) {
		opToken := parser.previous()
		value, err := parser.assignment()
		if err != nil {
			return nil, err
		}
		switch expr.(type) {
		case ast.Variable, ast.Member, ast.Index:
			return ast.Assign{Target: expr, Operator: opToken, Value: value}, nil
		default:
			return nil, parser.err(opToken, hetuerrors.CodeInvalidAssignTarget, "Invalid assignment target.")
		}
	}
	return expr, nil
}

// ternary parses "cond ? then : else".
func (parser *Parser) ternary() (ast.Expression, error) {
	expr, err := parser.or()
	if err != nil {
		return nil, err
	}
	if parser.isMatch([]token.TokenType{token.QUESTION}) {
		thenExpr, err := parser.expression()
		if err != nil {
			return nil, err
		}
		if _, err := parser.consume(token.COLON, "Expected ':' in a ternary expression."); err != nil {
			return nil, err
		}
		elseExpr, err := parser.ternary()
		if err != nil {
			return nil, err
		}
		return ast.Ternary{Condition: expr, Then: thenExpr, Else: elseExpr}, nil
	}
	return expr, nil
}

func (parser *Parser) or() (ast.Expression, error) {
	expr, err := parser.and()
	if err != nil {
		return nil, err
	}
	for parser.isMatch([]token.TokenType{token.OR}) {
		op := parser.previous()
		right, err := parser.and()
		if err != nil {
			return nil, err
		}
		expr = ast.Logical{Left: expr, Operator: op, Right: right}
	}
	return expr, nil
}

func (parser *Parser) and() (ast.Expression, error) {
	expr, err := parser.equality()
	if err != nil {
		return nil, err
	}
	for parser.isMatch([]token.TokenType{token.AND}) {
		op := parser.previous()
		right, err := parser.equality()
		if err != nil {
			return nil, err
		}
		expr = ast.Logical{Left: expr, Operator: op, Right: right}
	}
	return expr, nil
}

func (parser *Parser) equality() (ast.Expression, error) {
	expr, err := parser.relational()
	if err != nil {
		return nil, err
	}
	for parser.isMatch(equalityTokenTypes) {
		operator := parser.previous()
		right, err := parser.relational()
		if err != nil {
			return nil, err
		}
		expr = ast.Binary{Left: expr, Operator: operator, Right: right}
	}
	return expr, nil
}

// relational parses comparisons ("<", "<=", ">", ">=") as well as the
// type-test operators "is"/"is!" and the type-cast operator "as".
func (parser *Parser) relational() (ast.Expression, error) {
	expr, err := parser.additive()
	if err != nil {
		return nil, err
	}
	for {
		switch {
		case parser.isMatch(relationalTokenTypes):
			operator := parser.previous()
			right, err := parser.additive()
			if err != nil {
				return nil, err
			}
			expr = ast.Binary{Left: expr, Operator: operator, Right: right}
		case parser.isMatch([]token.TokenType{token.IS}):
			not := parser.isMatch([]token.TokenType{token.BANG})
			t, err := parser.parseTypeExpr()
			if err != nil {
				return nil, err
			}
			expr = ast.IsExpr{Left: expr, Not: not, Type: t}
		case parser.isMatch([]token.TokenType{token.AS}):
			t, err := parser.parseTypeExpr()
			if err != nil {
				return nil, err
			}
			expr = ast.AsExpr{Left: expr, Type: t}
		default:
			return expr, nil
		}
	}
}

func (parser *Parser) additive() (ast.Expression, error) {
	expr, err := parser.multiplicative()
	if err != nil {
		return nil, err
	}
	for parser.isMatch(termTokenTypes) {
		operator := parser.previous()
		right, err := parser.multiplicative()
		if err != nil {
			return nil, err
		}
		expr = ast.Binary{Left: expr, Operator: operator, Right: right}
	}
	return expr, nil
}

func (parser *Parser) multiplicative() (ast.Expression, error) {
	expr, err := parser.unary()
	if err != nil {
		return nil, err
	}
	for parser.isMatch(factorExpressionTypes) {
		operator := parser.previous()
		right, err := parser.unary()
		if err != nil {
			return nil, err
		}
		expr = ast.Binary{Left: expr, Operator: operator, Right: right}
	}
	return expr, nil
}

// unary parses prefix "!", "-", "++", "--" expressions, deferring to
// postfix() otherwise.
func (parser *Parser) unary() (ast.Expression, error) {
	if parser.isMatch([]token.TokenType{token.BANG, token.SUB}) {
		operator := parser.previous()
		right, err := parser.unary()
		if err != nil {
			return nil, err
		}
		return ast.Unary{Operator: operator, Right: right}, nil
	}
	if parser.isMatch([]token.TokenType{token.INCREMENT, token.DECREMENT}) {
		operator := parser.previous()
		right, err := parser.unary()
		if err != nil {
			return nil, err
		}
		return ast.Binary{Left: right, Operator: operator, Right: right}, nil
	}
	if parser.isMatch([]token.TokenType{token.TYPEOF}) {
		keyword := parser.previous()
		right, err := parser.unary()
		if err != nil {
			return nil, err
		}
		return ast.TypeofExpr{Keyword: keyword, Right: right}, nil
	}
	return parser.postfix()
}

// postfix parses call/member/index/increment-decrement chains applied
// to a primary expression, e.g. "a.b(1)[2]++".
func (parser *Parser) postfix() (ast.Expression, error) {
	expr, err := parser.primary()
	if err != nil {
		return nil, err
	}
	for {
		switch {
		case parser.isMatch([]token.TokenType{token.LPA}):
			parenOpen := parser.previous()
			args, named, err := parser.parseArguments()
			if err != nil {
				return nil, err
			}
			expr = ast.Call{Callee: expr, Paren: parenOpen, Arguments: args, Named: named}
		case parser.isMatch([]token.TokenType{token.DOT}):
			name, err := parser.consume(token.IDENTIFIER, "Expected a property name after '.'.")
			if err != nil {
				return nil, err
			}
			expr = ast.Member{Object: expr, Name: name}
		case parser.isMatch([]token.TokenType{token.LBK}):
			bracket := parser.previous()
			subscript, err := parser.expression()
			if err != nil {
				return nil, err
			}
			if _, err := parser.consume(token.RBK, "Expected ']' after a subscript expression."); err != nil {
				return nil, err
			}
			expr = ast.Index{Object: expr, Bracket: bracket, Subscript: subscript}
		case parser.isMatch([]token.TokenType{token.INCREMENT, token.DECREMENT}):
			expr = ast.Postfix{Target: expr, Operator: parser.previous()}
		default:
			return expr, nil
		}
	}
}

// parseArguments parses a call's argument list up to and including the
// closing ')'. A "name: value" pair is collected into the named map; a
// bare expression is appended to the positional slice, in order.
func (parser *Parser) parseArguments() ([]ast.Expression, map[string]ast.Expression, error) {
	var positional []ast.Expression
	var named map[string]ast.Expression

	for !parser.checkType(token.RPA) && !parser.isFinished() {
		if parser.checkType(token.IDENTIFIER) && parser.tokens[parser.position+1].TokenType == token.COLON {
			nameTok := parser.advance()
			parser.advance() // consume ':'
			value, err := parser.expression()
			if err != nil {
				return nil, nil, err
			}
			if named == nil {
				named = make(map[string]ast.Expression)
			}
			named[nameTok.Lexeme] = value
		} else {
			value, err := parser.expression()
			if err != nil {
				return nil, nil, err
			}
			positional = append(positional, value)
		}
		if !parser.isMatch([]token.TokenType{token.COMMA}) {
			break
		}
	}
	if _, err := parser.consume(token.RPA, "Expected ')' after an argument list."); err != nil {
		return nil, nil, err
	}
	return positional, named, nil
}

// primary parses the most basic forms of expressions: literals,
// interpolated strings, list/struct literals, identifiers, this/super,
// function literals, and parenthesized groupings.
func (parser *Parser) primary() (ast.Expression, error) {
	switch {
	case parser.isMatch([]token.TokenType{token.FALSE}):
		return ast.Literal{Value: false}, nil
	case parser.isMatch([]token.TokenType{token.NULL}):
		return ast.Literal{Value: nil}, nil
	case parser.isMatch([]token.TokenType{token.TRUE}):
		return ast.Literal{Value: true}, nil
	case parser.isMatch([]token.TokenType{token.FLOAT, token.INT, token.STRING}):
		return ast.Literal{Value: parser.previous().Literal}, nil
	case parser.isMatch([]token.TokenType{token.STRING_INTERP}):
		return parser.stringInterpolation()
	case parser.isMatch([]token.TokenType{token.THIS}):
		return ast.This{Keyword: parser.previous()}, nil
	case parser.isMatch([]token.TokenType{token.SUPER}):
		keyword := parser.previous()
		if parser.isMatch([]token.TokenType{token.DOT}) {
			name, err := parser.consume(token.IDENTIFIER, "Expected a method name after 'super.'.")
			if err != nil {
				return nil, err
			}
			return ast.Super{Keyword: keyword, Method: &name}, nil
		}
		return ast.Super{Keyword: keyword}, nil
	case parser.isMatch([]token.TokenType{token.FUNC}):
		return parser.functionExpr()
	case parser.isMatch([]token.TokenType{token.LBK}):
		return parser.listLiteral()
	case parser.isMatch([]token.TokenType{token.LCUR}):
		return parser.structLiteral()
	case parser.isMatch([]token.TokenType{token.IDENTIFIER}):
		return ast.Variable{Name: parser.previous()}, nil
	case parser.isMatch([]token.TokenType{token.LPA}):
		expr, err := parser.expression()
		if err != nil {
			return nil, err
		}
		if _, err := parser.consume(token.RPA, fmt.Sprintf("expression is missing '%s'", token.RPA)); err != nil {
			return nil, err
		}
		return ast.Grouping{Expression: expr}, nil
	}

	currentToken := parser.peek()
	return nil, parser.err(currentToken, hetuerrors.CodeUnexpectedToken, "Unrecognised expression.")
}

// stringInterpolation parses the token stream lexed for each "${ }"
// span of the current STRING_INTERP token into its own Expression, and
// splits the raw literal (which carries "\x00" placeholders where each
// span was) into the surrounding literal segments.
func (parser *Parser) stringInterpolation() (ast.Expression, error) {
	tok := parser.previous()
	segments := tok.Literal.(token.InterpolationSegment)

	parts := splitOnNUL(tok.Lexeme)
	interp := ast.StringInterp{Parts: parts}
	for _, segTokens := range segments {
		sub := Make(append(segTokens, token.CreateToken(token.EOF, tok.Line, tok.Column)), parser.module)
		expr, err := sub.expression()
		if err != nil {
			return nil, err
		}
		interp.Exprs = append(interp.Exprs, expr)
	}
	return interp, nil
}

func splitOnNUL(s string) []string {
	var parts []string
	var current []rune
	for _, r := range s {
		if r == '\x00' {
			parts = append(parts, string(current))
			current = nil
			continue
		}
		current = append(current, r)
	}
	parts = append(parts, string(current))
	return parts
}

func (parser *Parser) listLiteral() (ast.Expression, error) {
	var elements []ast.Expression
	for !parser.checkType(token.RBK) && !parser.isFinished() {
		elem, err := parser.expression()
		if err != nil {
			return nil, err
		}
		elements = append(elements, elem)
		if !parser.isMatch([]token.TokenType{token.COMMA}) {
			break
		}
	}
	if _, err := parser.consume(token.RBK, "Expected ']' after a list literal."); err != nil {
		return nil, err
	}
	return ast.ListLiteral{Elements: elements}, nil
}

func (parser *Parser) structLiteral() (ast.Expression, error) {
	brace := parser.previous()
	var fields []ast.StructField
	for !parser.checkType(token.RCUR) && !parser.isFinished() {
		key, err := parser.consume(token.IDENTIFIER, "Expected a field name in a struct literal.")
		if err != nil {
			return nil, err
		}
		if _, err := parser.consume(token.COLON, "Expected ':' after a struct literal field name."); err != nil {
			return nil, err
		}
		value, err := parser.expression()
		if err != nil {
			return nil, err
		}
		fields = append(fields, ast.StructField{Key: key, Value: value})
		if !parser.isMatch([]token.TokenType{token.COMMA}) {
			break
		}
	}
	if _, err := parser.consume(token.RCUR, "Expected '}' after a struct literal."); err != nil {
		return nil, err
	}
	lit := ast.StructLiteral{Brace: brace, Fields: fields}
	if parser.isMatch([]token.TokenType{token.COLON}) {
		proto, err := parser.expression()
		if err != nil {
			return nil, err
		}
		lit.Proto = proto
	}
	return lit, nil
}

func (parser *Parser) functionExpr() (ast.Expression, error) {
	keyword := parser.previous()
	params, err := parser.parseParameterList()
	if err != nil {
		return nil, err
	}
	if _, err := parser.consume(token.LCUR, "Expected '{' to start a function literal body."); err != nil {
		return nil, err
	}
	parser.pushKind(KindFunctionBody)
	body, err := parser.block()
	parser.popKind()
	if err != nil {
		return nil, err
	}
	return ast.FunctionExpr{Keyword: keyword, Parameters: params, Body: body}, nil
}

// consume advances past the current token if it matches tokenType,
// otherwise it raises a syntactic hetuerrors.Error.
func (parser *Parser) consume(tokenType token.TokenType, errorMessage string) (token.Token, error) {
	if parser.checkType(tokenType) {
		return parser.advance(), nil
	}
	currentToken := parser.peek()
	return token.CreateToken(token.EOF, 0, 0), parser.err(currentToken, hetuerrors.CodeUnexpectedToken, errorMessage)
}
