package compiler

import (
	"fmt"
	"sort"

	"github.com/polotto/hetu-script/ast"
	"github.com/polotto/hetu-script/hetuerrors"
	"github.com/polotto/hetu-script/token"
	"github.com/polotto/hetu-script/value"
)

// Local tracks a declared name within the current lexical scope purely for
// compile-time duplicate-declaration detection, the same bookkeeping
// purpose the teacher's ast_compiler.go Local struct served. Unlike the
// teacher, storage at runtime goes through a value.Namespace rather than a
// stack slot, so Local carries no slot index: real closures (spec.md's
// core requirement) need a namespace to capture, not a fixed-size frame.
type Local struct {
	name  string
	depth int
}

// Module is the result of compiling one source unit: its instruction
// stream plus every pool OP_* operands index into.
type Module struct {
	Key          string
	Library      string
	Instructions value.Instructions
	Constants    *value.ConstantPool
	Names        []string
	Functions    []*value.Function
	Classes      []*value.Class
}

// unit is the pool state shared by a module compiler and every child
// compiler spawned for a nested function/class body: one constant pool,
// one name table, one flat list of compiled functions and classes, no
// matter how many Chunks worth of Instructions get built out of it. Only
// Instructions is NOT shared - each compiler builds its own independent
// instruction stream so a function's compiled body never gets entangled
// with the bytecode around its declaration.
type unit struct {
	constants *value.ConstantPool
	names     []string
	nameIndex map[string]int
	functions []*value.Function
	classes   []*value.Class
	library   string
}

// Compiler walks the AST and emits bytecode into a Module. It implements
// both ast.ExpressionVisitor and ast.StmtVisitor.
type Compiler struct {
	instructions value.Instructions
	unit         *unit

	locals     []Local
	scopeDepth int

	loops []*loopContext

	moduleKey string

	// funcBody marks a Compiler as compiling a function/method/
	// constructor/getter/setter body specifically (set by
	// compileFunctionBody), as opposed to the module's own top-level
	// statement stream or a standalone expression Chunk (a default
	// parameter, a field initializer) - the same distinction the
	// parser's sourceKind stack makes, kept here too as the compiler's
	// own defense against an AST built by something other than this
	// package's parser.
	funcBody bool
}

type loopContext struct {
	continueTarget int
	breakJumps     []int
}

// New creates a compiler for a fresh module keyed by moduleKey.
func New(moduleKey string) *Compiler {
	return &Compiler{
		unit: &unit{
			constants: value.NewConstantPool(),
			nameIndex: make(map[string]int),
		},
		moduleKey: moduleKey,
	}
}

// child creates a compiler for a nested function or class-member body. It
// shares the parent's unit - constants, names, and the flat
// function/class pools - but starts with a fresh, empty instruction
// stream: the nested body is its own Chunk, not a continuation of the
// enclosing statement stream.
func (c *Compiler) child() *Compiler {
	return &Compiler{
		unit:      c.unit,
		moduleKey: c.moduleKey,
	}
}

// CompileModule compiles every top-level statement into a fresh Module.
func (c *Compiler) CompileModule(statements []ast.Stmt) (*Module, error) {
	var firstErr error
	for _, stmt := range statements {
		if err := c.compileStmtSafely(stmt); err != nil {
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	c.emit(OP_END)
	mod := &Module{
		Key:          c.moduleKey,
		Library:      c.unit.library,
		Instructions: c.instructions,
		Constants:    c.unit.constants,
		Names:        c.unit.names,
		Functions:    c.unit.functions,
		Classes:      c.unit.classes,
	}
	return mod, firstErr
}

func (c *Compiler) compileStmtSafely(stmt ast.Stmt) (err error) {
	defer func() {
		if r := recover(); r != nil {
			if cerr, ok := r.(*hetuerrors.Error); ok {
				err = cerr
				return
			}
			err = fmt.Errorf("%v", r)
		}
	}()
	stmt.Accept(c)
	return nil
}

func (c *Compiler) fail(tok token.Token, code hetuerrors.Code, message string) {
	panic(hetuerrors.CompileTime(code, c.moduleKey, tok.Line, tok.Column, message))
}

// --- emission helpers ---

func (c *Compiler) emit(op Opcode, operands ...int) int {
	instruction, err := AssembleInstruction(op, operands...)
	if err != nil {
		panic(fmt.Sprintf("developer error assembling %v: %v", op, err))
	}
	pos := len(c.instructions)
	c.instructions = append(c.instructions, instruction...)
	return pos
}

func (c *Compiler) emitPlaceholderJump(op Opcode) int {
	pos := len(c.instructions)
	c.emit(op, 0)
	return pos
}

func (c *Compiler) patchJump(jumpPos int, target int) {
	operandPos := jumpPos + OPCODE_TOTAL_BYTES
	instr := c.instructions
	instr[operandPos] = byte(target >> 8)
	instr[operandPos+1] = byte(target)
}

func (c *Compiler) internName(name string) int {
	if idx, ok := c.unit.nameIndex[name]; ok {
		return idx
	}
	c.unit.names = append(c.unit.names, name)
	idx := len(c.unit.names) - 1
	c.unit.nameIndex[name] = idx
	return idx
}

func (c *Compiler) emitConstInt(v int64) {
	idx := c.unit.constants.AddInt(v)
	c.emit(OP_CONST_INT, idx)
}

func (c *Compiler) emitConstFloat(v float64) {
	idx := c.unit.constants.AddFloat(v)
	c.emit(OP_CONST_FLOAT, idx)
}

func (c *Compiler) emitConstString(v string) {
	idx := c.unit.constants.AddString(v)
	c.emit(OP_CONST_STRING, idx)
}

// --- scope management ---

// beginScope/endScope pair compile-time Local bookkeeping with the runtime
// OP_SCOPE_ENTER/OP_SCOPE_EXIT opcodes the VM uses to push/pop a
// value.Namespace, so two sibling blocks that both declare a local named
// the same way never collide in a single shared namespace at runtime.
func (c *Compiler) beginScope() {
	c.scopeDepth++
	c.emit(OP_SCOPE_ENTER)
}

func (c *Compiler) endScope() {
	c.scopeDepth--
	for len(c.locals) > 0 && c.locals[len(c.locals)-1].depth > c.scopeDepth {
		c.locals = c.locals[:len(c.locals)-1]
	}
	c.emit(OP_SCOPE_EXIT)
}

func (c *Compiler) declare(name string, tok token.Token) {
	if c.scopeDepth == 0 {
		return
	}
	for i := len(c.locals) - 1; i >= 0; i-- {
		if c.locals[i].depth < c.scopeDepth {
			break
		}
		if c.locals[i].name == name {
			c.fail(tok, hetuerrors.CodeDuplicateDeclaration, fmt.Sprintf("redeclaration of %q in this scope", name))
		}
	}
	c.locals = append(c.locals, Local{name: name, depth: c.scopeDepth})
}

// defineVar emits the define instruction appropriate for the current
// scope depth: OP_DEFINE_GLOBAL at depth 0, OP_DEFINE_LOCAL otherwise. The
// VM treats both identically (a value.Namespace.Define call); the split
// is kept purely for bytecode-format fidelity with the teacher's
// disassembler and spec.md's separate `local`/wire opcodes.
func (c *Compiler) defineVar(name string) {
	idx := c.internName(name)
	if c.scopeDepth == 0 {
		c.emit(OP_DEFINE_GLOBAL, idx)
	} else {
		c.emit(OP_DEFINE_LOCAL, idx)
	}
}

func (c *Compiler) getVar(name string) {
	idx := c.internName(name)
	if c.scopeDepth == 0 {
		c.emit(OP_GET_GLOBAL, idx)
	} else {
		c.emit(OP_GET_LOCAL, idx)
	}
}

func (c *Compiler) setVar(name string) {
	idx := c.internName(name)
	if c.scopeDepth == 0 {
		c.emit(OP_SET_GLOBAL, idx)
	} else {
		c.emit(OP_SET_LOCAL, idx)
	}
}

// --- expressions ---

// binaryOpcode maps a binary-operator token type to the opcode that
// implements it, shared between VisitBinary and the compound-assignment
// lowering (which lowers PLUS_ASSIGN et al. to their binary counterpart
// via token.CompoundBinaryOp before reaching here).
func binaryOpcode(tt token.TokenType) (Opcode, bool) {
	switch tt {
	case token.ADD:
		return OP_ADD, true
	case token.SUB:
		return OP_SUBTRACT, true
	case token.MULT:
		return OP_MULTIPLY, true
	case token.DIV:
		return OP_DIVIDE, true
	case token.MOD:
		return OP_MODULO, true
	case token.EQUAL_EQUAL:
		return OP_EQUAL, true
	case token.NOT_EQUAL:
		return OP_NOT_EQUAL, true
	case token.LESS:
		return OP_LESS, true
	case token.LESS_EQUAL:
		return OP_LESS_EQUAL, true
	case token.LARGER:
		return OP_GREATER, true
	case token.LARGER_EQUAL:
		return OP_GREATER_EQUAL, true
	default:
		return 0, false
	}
}

func (c *Compiler) VisitBinary(binary ast.Binary) any {
	binary.Left.Accept(c)
	binary.Right.Accept(c)
	if op, ok := binaryOpcode(binary.Operator.TokenType); ok {
		c.emit(op)
	} else {
		c.fail(binary.Operator, hetuerrors.CodeBadBytecode, "unsupported binary operator")
	}
	return nil
}

func (c *Compiler) VisitUnary(unary ast.Unary) any {
	unary.Right.Accept(c)
	switch unary.Operator.TokenType {
	case token.SUB:
		c.emit(OP_NEGATE)
	case token.BANG:
		c.emit(OP_NOT)
	case token.INCREMENT, token.DECREMENT:
		// Prefix ++/-- is lowered by the parser into ast.Binary; this
		// branch only guards against a future parser change.
		c.fail(unary.Operator, hetuerrors.CodeBadBytecode, "unexpected prefix operator")
	}
	return nil
}

func (c *Compiler) VisitPostfix(postfix ast.Postfix) any {
	// Compile as: push current value, then perform the equivalent of
	// target = target + 1 (or -1), discarding the assignment's own
	// pushed value so the expression's result is the pre-increment value.
	postfix.Target.Accept(c)

	delta := int64(1)
	if postfix.Operator.TokenType == token.DECREMENT {
		delta = -1
	}

	switch t := postfix.Target.(type) {
	case ast.Variable:
		c.getVar(t.Name.Lexeme)
		c.emitConstInt(delta)
		c.emit(OP_ADD)
		c.setVar(t.Name.Lexeme)
		c.emit(OP_POP)
	case ast.Member:
		t.Object.Accept(c)
		c.emit(OP_DUP)
		nameIdx := c.internName(t.Name.Lexeme)
		c.emit(OP_MEMBER_GET, nameIdx)
		c.emitConstInt(delta)
		c.emit(OP_ADD)
		c.emit(OP_MEMBER_SET, nameIdx)
		c.emit(OP_POP)
	case ast.Index:
		t.Object.Accept(c)
		t.Subscript.Accept(c)
		// Object and Subscript are evaluated a second time to read the
		// current element, leaving the first object/key pair for
		// OP_SUB_SET; kept simple since postfix on an indexed target is an
		// uncommon pattern and the sole requirement is observable value.
		t.Object.Accept(c)
		t.Subscript.Accept(c)
		c.emit(OP_SUB_GET)
		c.emitConstInt(delta)
		c.emit(OP_ADD)
		c.emit(OP_SUB_SET)
		c.emit(OP_POP)
	}
	return nil
}

func (c *Compiler) VisitLiteral(literal ast.Literal) any {
	switch v := literal.Value.(type) {
	case nil:
		c.emit(OP_NULL)
	case bool:
		if v {
			c.emit(OP_TRUE)
		} else {
			c.emit(OP_FALSE)
		}
	case int64:
		c.emitConstInt(v)
	case int:
		c.emitConstInt(int64(v))
	case float64:
		c.emitConstFloat(v)
	case string:
		c.emitConstString(v)
	default:
		c.emit(OP_NULL)
	}
	return nil
}

func (c *Compiler) VisitStringInterp(interp ast.StringInterp) any {
	for i, part := range interp.Parts {
		c.emitConstString(part)
		if i < len(interp.Exprs) {
			interp.Exprs[i].Accept(c)
		}
	}
	c.emit(OP_STRING_INTERP, len(interp.Exprs))
	return nil
}

func (c *Compiler) VisitGrouping(grouping ast.Grouping) any {
	grouping.Expression.Accept(c)
	return nil
}

func (c *Compiler) VisitVariableExpression(variable ast.Variable) any {
	c.getVar(variable.Name.Lexeme)
	return nil
}

func (c *Compiler) VisitAssignExpression(assign ast.Assign) any {
	compound := assign.Operator.TokenType != token.ASSIGN

	switch target := assign.Target.(type) {
	case ast.Variable:
		if compound {
			c.getVar(target.Name.Lexeme)
			assign.Value.Accept(c)
			c.emitCompoundOp(assign.Operator)
		} else {
			assign.Value.Accept(c)
		}
		c.setVar(target.Name.Lexeme)
	case ast.Member:
		target.Object.Accept(c)
		nameIdx := c.internName(target.Name.Lexeme)
		if compound {
			c.emit(OP_DUP)
			c.emit(OP_MEMBER_GET, nameIdx)
			assign.Value.Accept(c)
			c.emitCompoundOp(assign.Operator)
		} else {
			assign.Value.Accept(c)
		}
		c.emit(OP_MEMBER_SET, nameIdx)
	case ast.Index:
		target.Object.Accept(c)
		target.Subscript.Accept(c)
		if compound {
			target.Object.Accept(c)
			target.Subscript.Accept(c)
			c.emit(OP_SUB_GET)
			assign.Value.Accept(c)
			c.emitCompoundOp(assign.Operator)
		} else {
			assign.Value.Accept(c)
		}
		c.emit(OP_SUB_SET)
	default:
		c.fail(assign.Operator, hetuerrors.CodeInvalidAssignTarget, "invalid assignment target")
	}
	return nil
}

func (c *Compiler) emitCompoundOp(op token.Token) {
	binaryTT, ok := token.CompoundBinaryOp(op.TokenType)
	if !ok {
		c.fail(op, hetuerrors.CodeBadBytecode, "unsupported compound assignment operator")
		return
	}
	opcode, ok := binaryOpcode(binaryTT)
	if !ok {
		c.fail(op, hetuerrors.CodeBadBytecode, "unsupported compound assignment operator")
		return
	}
	c.emit(opcode)
}

func (c *Compiler) VisitLogicalExpression(logical ast.Logical) any {
	logical.Left.Accept(c)
	switch logical.Operator.TokenType {
	case token.OR:
		jumpIfFalse := c.emitPlaceholderJump(OP_JUMP_IF_FALSE)
		jumpEnd := c.emitPlaceholderJump(OP_JUMP)
		c.patchJump(jumpIfFalse, len(c.instructions))
		c.emit(OP_POP)
		logical.Right.Accept(c)
		c.patchJump(jumpEnd, len(c.instructions))
	case token.AND:
		jumpIfFalse := c.emitPlaceholderJump(OP_JUMP_IF_FALSE)
		c.emit(OP_POP)
		logical.Right.Accept(c)
		c.patchJump(jumpIfFalse, len(c.instructions))
	}
	return nil
}

func (c *Compiler) VisitTernary(ternary ast.Ternary) any {
	ternary.Condition.Accept(c)
	jumpIfFalse := c.emitPlaceholderJump(OP_JUMP_IF_FALSE)
	c.emit(OP_POP)
	ternary.Then.Accept(c)
	jumpEnd := c.emitPlaceholderJump(OP_JUMP)
	c.patchJump(jumpIfFalse, len(c.instructions))
	c.emit(OP_POP)
	ternary.Else.Accept(c)
	c.patchJump(jumpEnd, len(c.instructions))
	return nil
}

func (c *Compiler) VisitCall(call ast.Call) any {
	call.Callee.Accept(c)
	for _, arg := range call.Arguments {
		arg.Accept(c)
	}
	names := make([]string, 0, len(call.Named))
	for k := range call.Named {
		names = append(names, k)
	}
	sort.Strings(names)
	c.emit(OP_NULL) // no prototype: OP_BUILD_STRUCT always expects one underneath its pairs
	for _, k := range names {
		c.emitConstString(k)
		call.Named[k].Accept(c)
	}
	c.emit(OP_BUILD_STRUCT, len(names))
	c.emit(OP_CALL, len(call.Arguments))
	return nil
}

func (c *Compiler) VisitMember(member ast.Member) any {
	member.Object.Accept(c)
	nameIdx := c.internName(member.Name.Lexeme)
	c.emit(OP_MEMBER_GET, nameIdx)
	return nil
}

func (c *Compiler) VisitIndex(index ast.Index) any {
	index.Object.Accept(c)
	index.Subscript.Accept(c)
	c.emit(OP_SUB_GET)
	return nil
}

func (c *Compiler) VisitListLiteral(list ast.ListLiteral) any {
	for _, el := range list.Elements {
		el.Accept(c)
	}
	c.emit(OP_BUILD_LIST, len(list.Elements))
	return nil
}

func (c *Compiler) VisitStructLiteral(lit ast.StructLiteral) any {
	if lit.Proto != nil {
		lit.Proto.Accept(c)
	} else {
		c.emit(OP_NULL)
	}
	for _, field := range lit.Fields {
		c.emitConstString(field.Key.Lexeme)
		field.Value.Accept(c)
	}
	c.emit(OP_BUILD_STRUCT, len(lit.Fields))
	return nil
}

func (c *Compiler) VisitThis(this ast.This) any {
	c.getVar("this")
	return nil
}

func (c *Compiler) VisitSuper(super ast.Super) any {
	c.getVar("this")
	if super.Method != nil {
		nameIdx := c.internName(super.Method.Lexeme)
		c.emit(OP_GET_SUPER, nameIdx)
	}
	return nil
}

func (c *Compiler) VisitFunctionExpr(fn ast.FunctionExpr) any {
	funcValue := c.compileFunctionBody("", fn.Parameters, fn.Body, value.FunctionLiteral, nil)
	idx := len(c.unit.functions)
	c.unit.functions = append(c.unit.functions, funcValue)
	c.emit(OP_CLOSURE, idx)
	return nil
}

func (c *Compiler) VisitIsExpr(isExpr ast.IsExpr) any {
	isExpr.Left.Accept(c)
	c.emitConstString(isExpr.Type.Name.Lexeme)
	if isExpr.Not {
		c.emit(OP_TYPE_IS_NOT)
	} else {
		c.emit(OP_TYPE_IS)
	}
	return nil
}

func (c *Compiler) VisitAsExpr(asExpr ast.AsExpr) any {
	asExpr.Left.Accept(c)
	c.emitConstString(asExpr.Type.Name.Lexeme)
	c.emit(OP_TYPE_AS)
	return nil
}

func (c *Compiler) VisitTypeofExpr(typeofExpr ast.TypeofExpr) any {
	typeofExpr.Right.Accept(c)
	c.emit(OP_TYPE_OF)
	return nil
}

// --- statements ---

func (c *Compiler) VisitExpressionStmt(stmt ast.ExpressionStmt) any {
	stmt.Expression.Accept(c)
	c.emit(OP_POP)
	return nil
}

func (c *Compiler) VisitVarStmt(stmt ast.VarStmt) any {
	c.declare(stmt.Name.Lexeme, stmt.Name)
	if stmt.Initializer != nil {
		stmt.Initializer.Accept(c)
	} else {
		c.emit(OP_NULL)
	}
	c.defineVar(stmt.Name.Lexeme)
	return nil
}

func (c *Compiler) VisitBlockStmt(stmt ast.BlockStmt) any {
	c.beginScope()
	for _, s := range stmt.Statements {
		s.Accept(c)
	}
	c.endScope()
	return nil
}

func (c *Compiler) VisitIfStmt(stmt ast.IfStmt) any {
	stmt.Condition.Accept(c)
	jumpIfFalse := c.emitPlaceholderJump(OP_JUMP_IF_FALSE)
	c.emit(OP_POP)
	stmt.Then.Accept(c)

	if stmt.Else != nil {
		jumpEnd := c.emitPlaceholderJump(OP_JUMP)
		c.patchJump(jumpIfFalse, len(c.instructions))
		c.emit(OP_POP)
		stmt.Else.Accept(c)
		c.patchJump(jumpEnd, len(c.instructions))
	} else {
		c.patchJump(jumpIfFalse, len(c.instructions))
		c.emit(OP_POP)
	}
	return nil
}

func (c *Compiler) pushLoop() *loopContext {
	l := &loopContext{}
	c.loops = append(c.loops, l)
	return l
}

func (c *Compiler) popLoop(endPos int) {
	l := c.loops[len(c.loops)-1]
	c.loops = c.loops[:len(c.loops)-1]
	for _, pos := range l.breakJumps {
		c.patchJump(pos, endPos)
	}
}

func (c *Compiler) VisitWhileStmt(stmt ast.WhileStmt) any {
	loopStart := len(c.instructions)
	loop := c.pushLoop()
	loop.continueTarget = loopStart

	stmt.Condition.Accept(c)
	jumpIfFalse := c.emitPlaceholderJump(OP_JUMP_IF_FALSE)
	c.emit(OP_POP)
	stmt.Body.Accept(c)
	c.emit(OP_JUMP, loopStart)

	c.patchJump(jumpIfFalse, len(c.instructions))
	c.emit(OP_POP)
	c.popLoop(len(c.instructions))
	return nil
}

func (c *Compiler) VisitDoWhileStmt(stmt ast.DoWhileStmt) any {
	loopStart := len(c.instructions)
	loop := c.pushLoop()
	loop.continueTarget = loopStart

	stmt.Body.Accept(c)
	stmt.Condition.Accept(c)
	jumpIfFalse := c.emitPlaceholderJump(OP_JUMP_IF_FALSE)
	c.emit(OP_POP)
	c.emit(OP_JUMP, loopStart)
	c.patchJump(jumpIfFalse, len(c.instructions))
	c.emit(OP_POP)
	c.popLoop(len(c.instructions))
	return nil
}

func (c *Compiler) VisitForStmt(stmt ast.ForStmt) any {
	c.beginScope()
	if stmt.Init != nil {
		stmt.Init.Accept(c)
	}

	loopStart := len(c.instructions)
	loop := c.pushLoop()

	var jumpIfFalse int
	hasCondition := stmt.Condition != nil
	if hasCondition {
		stmt.Condition.Accept(c)
		jumpIfFalse = c.emitPlaceholderJump(OP_JUMP_IF_FALSE)
		c.emit(OP_POP)
	}

	stmt.Body.Accept(c)

	continueTarget := len(c.instructions)
	loop.continueTarget = continueTarget
	if stmt.Increment != nil {
		stmt.Increment.Accept(c)
		c.emit(OP_POP)
	}
	c.emit(OP_JUMP, loopStart)

	if hasCondition {
		c.patchJump(jumpIfFalse, len(c.instructions))
		c.emit(OP_POP)
	}
	c.popLoop(len(c.instructions))
	c.endScope()
	return nil
}

// VisitForInStmt lowers "for (var x in iterable) body" into an indexed
// loop over the iterable's elements, the way the teacher's compiler has
// no equivalent construct to ground on but spec.md's own scenario (sum
// [1,2,3,4] == 10) requires it to behave like a plain index-driven while
// loop under the hood.
func (c *Compiler) VisitForInStmt(stmt ast.ForInStmt) any {
	c.beginScope()

	iterName := "$for_iter"
	idxName := "$for_idx"

	c.declare(iterName, stmt.Keyword)
	stmt.Iterable.Accept(c)
	c.defineVar(iterName)

	c.declare(idxName, stmt.Keyword)
	c.emitConstInt(0)
	c.defineVar(idxName)

	loopStart := len(c.instructions)
	loop := c.pushLoop()
	loop.continueTarget = loopStart

	c.getVar(idxName)
	c.getVar(iterName)
	lengthIdx := c.internName("length")
	c.emit(OP_MEMBER_GET, lengthIdx)
	c.emit(OP_LESS)
	jumpIfFalse := c.emitPlaceholderJump(OP_JUMP_IF_FALSE)
	c.emit(OP_POP)

	c.beginScope()
	c.declare(stmt.Name.Lexeme, stmt.Name)
	c.getVar(iterName)
	c.getVar(idxName)
	c.emit(OP_SUB_GET)
	c.defineVar(stmt.Name.Lexeme)
	stmt.Body.Accept(c)
	c.endScope()

	c.getVar(idxName)
	c.emitConstInt(1)
	c.emit(OP_ADD)
	c.setVar(idxName)
	c.emit(OP_POP)

	c.emit(OP_JUMP, loopStart)
	c.patchJump(jumpIfFalse, len(c.instructions))
	c.emit(OP_POP)
	c.popLoop(len(c.instructions))

	c.endScope()
	return nil
}

func (c *Compiler) VisitBreakStmt(stmt ast.BreakStmt) any {
	if len(c.loops) == 0 {
		c.fail(stmt.Keyword, hetuerrors.CodeBadBytecode, "'break' outside a loop")
	}
	loop := c.loops[len(c.loops)-1]
	pos := c.emitPlaceholderJump(OP_JUMP)
	loop.breakJumps = append(loop.breakJumps, pos)
	return nil
}

func (c *Compiler) VisitContinueStmt(stmt ast.ContinueStmt) any {
	if len(c.loops) == 0 {
		c.fail(stmt.Keyword, hetuerrors.CodeBadBytecode, "'continue' outside a loop")
	}
	loop := c.loops[len(c.loops)-1]
	c.emit(OP_JUMP, loop.continueTarget)
	return nil
}

func (c *Compiler) VisitReturnStmt(stmt ast.ReturnStmt) any {
	if !c.funcBody {
		c.fail(stmt.Keyword, hetuerrors.CodeInvalidReturn, "'return' is only allowed inside a function body.")
	}
	if stmt.Value != nil {
		stmt.Value.Accept(c)
	} else {
		c.emit(OP_NULL)
	}
	c.emit(OP_RETURN)
	return nil
}

// VisitWhenStmt lowers a "when" multi-way branch into a chain of
// equality tests against the discriminant, evaluated once into a
// synthetic temporary so each case only pays for one re-evaluation.
func (c *Compiler) VisitWhenStmt(stmt ast.WhenStmt) any {
	c.beginScope()
	discName := "$when_subject"
	c.declare(discName, stmt.Keyword)
	stmt.Discriminant.Accept(c)
	c.defineVar(discName)

	var endJumps []int
	for _, when := range stmt.Cases {
		var matchJumps []int
		for _, caseExpr := range when.CaseExprs {
			c.getVar(discName)
			caseExpr.Accept(c)
			c.emit(OP_EQUAL)
			jumpIfFalse := c.emitPlaceholderJump(OP_JUMP_IF_FALSE)
			c.emit(OP_POP)
			matchJumps = append(matchJumps, c.emitPlaceholderJump(OP_JUMP))
			c.patchJump(jumpIfFalse, len(c.instructions))
			c.emit(OP_POP)
		}
		// Every case expression in this arm failed to match: skip the
		// body and fall through to the next arm (or the else/end).
		skipBody := c.emitPlaceholderJump(OP_JUMP)

		bodyStart := len(c.instructions)
		for _, j := range matchJumps {
			c.patchJump(j, bodyStart)
		}
		when.Body.Accept(c)
		endJumps = append(endJumps, c.emitPlaceholderJump(OP_JUMP))

		c.patchJump(skipBody, len(c.instructions))
	}

	if stmt.ElseCase != nil {
		stmt.ElseCase.Accept(c)
	}

	end := len(c.instructions)
	for _, j := range endJumps {
		c.patchJump(j, end)
	}
	c.endScope()
	return nil
}

func (c *Compiler) VisitFunctionDecl(decl ast.FunctionDecl) any {
	category := value.FunctionCategory(decl.Category)
	fn := c.compileFunctionBody(decl.Name.Lexeme, decl.Parameters, decl.Body, category, &decl)
	idx := len(c.unit.functions)
	c.unit.functions = append(c.unit.functions, fn)
	c.declare(decl.Name.Lexeme, decl.Name)
	c.emit(OP_CLOSURE, idx)
	c.defineVar(decl.Name.Lexeme)
	return nil
}

func (c *Compiler) VisitClassDecl(decl ast.ClassDecl) any {
	class := &value.Class{
		Name:         decl.Name.Lexeme,
		IsExternal:   decl.IsExternal,
		Methods:      make(map[string]*value.Function),
		Constructors: make(map[string]*value.Function),
	}
	if decl.Superclass != nil {
		class.SuperName = decl.Superclass.Name.Lexeme
		child := c.child()
		for _, arg := range decl.SuperArgs {
			class.SuperArgs = append(class.SuperArgs, child.compileExprChunk(arg))
		}
	}
	for _, impl := range decl.Implements {
		class.Implements = append(class.Implements, impl.Name.Lexeme)
	}
	for _, mix := range decl.With {
		class.With = append(class.With, mix.Name.Lexeme)
	}

	for _, field := range decl.Fields {
		fi := value.FieldInit{Name: field.Name.Lexeme, IsConst: field.IsConst}
		if field.Initializer != nil {
			fi.Initializer = c.compileExprChunk(field.Initializer)
		}
		class.Fields = append(class.Fields, fi)
	}

	for _, methodDecl := range decl.Methods {
		fn := c.compileFunctionBody(methodDecl.Name.Lexeme, methodDecl.Parameters, methodDecl.Body, value.FunctionCategory(methodDecl.Category), &methodDecl)
		switch methodDecl.Category {
		case ast.FunctionConstructor, ast.FunctionFactory:
			if methodDecl.RedirectName != nil {
				redirect := &value.RedirectingConstructor{Callee: "this", Name: methodDecl.RedirectName.Lexeme}
				child := c.child()
				for _, a := range methodDecl.RedirectArgs {
					redirect.Args = append(redirect.Args, child.compileExprChunk(a))
				}
				fn.Redirect = redirect
			} else if methodDecl.SuperArgs != nil {
				redirect := &value.RedirectingConstructor{Callee: "super"}
				child := c.child()
				for _, a := range methodDecl.SuperArgs {
					redirect.Args = append(redirect.Args, child.compileExprChunk(a))
				}
				fn.Redirect = redirect
			}
			ctorName := methodDecl.Name.Lexeme
			if ctorName == decl.Name.Lexeme {
				ctorName = ""
			}
			class.Constructors[ctorName] = fn
			class.HasUserConstructor = true
		default:
			class.Methods[methodDecl.Name.Lexeme] = fn
		}
	}

	idx := len(c.unit.classes)
	c.unit.classes = append(c.unit.classes, class)
	c.declare(decl.Name.Lexeme, decl.Name)
	c.emit(OP_CLASS, idx)
	c.defineVar(decl.Name.Lexeme)
	return nil
}

func (c *Compiler) VisitEnumDecl(decl ast.EnumDecl) any {
	class := &value.Class{
		Name:         decl.Name.Lexeme,
		IsEnum:       true,
		Methods:      make(map[string]*value.Function),
		Constructors: make(map[string]*value.Function),
	}
	for _, m := range decl.Members {
		class.EnumMembers = append(class.EnumMembers, m.Name.Lexeme)
	}
	for _, field := range decl.Fields {
		fi := value.FieldInit{Name: field.Name.Lexeme, IsConst: field.IsConst}
		if field.Initializer != nil {
			fi.Initializer = c.compileExprChunk(field.Initializer)
		}
		class.Fields = append(class.Fields, fi)
	}
	for _, methodDecl := range decl.Methods {
		fn := c.compileFunctionBody(methodDecl.Name.Lexeme, methodDecl.Parameters, methodDecl.Body, value.FunctionCategory(methodDecl.Category), &methodDecl)
		class.Methods[methodDecl.Name.Lexeme] = fn
	}

	idx := len(c.unit.classes)
	c.unit.classes = append(c.unit.classes, class)
	c.declare(decl.Name.Lexeme, decl.Name)
	c.emit(OP_CLASS, idx)
	c.defineVar(decl.Name.Lexeme)
	return nil
}

func (c *Compiler) VisitStructDecl(decl ast.StructDecl) any {
	if decl.Proto != nil {
		decl.Proto.Accept(c)
	} else {
		c.emit(OP_NULL)
	}
	for _, field := range decl.Fields {
		c.emitConstString(field.Name.Lexeme)
		if field.Initializer != nil {
			field.Initializer.Accept(c)
		} else {
			c.emit(OP_NULL)
		}
	}
	c.emit(OP_BUILD_STRUCT, len(decl.Fields))
	c.declare(decl.Name.Lexeme, decl.Name)
	c.defineVar(decl.Name.Lexeme)
	return nil
}

func (c *Compiler) VisitImportStmt(stmt ast.ImportStmt) any {
	idx := c.unit.constants.AddString(stmt.Key.Literal.(string))
	c.emit(OP_IMPORT, idx)
	return nil
}

func (c *Compiler) VisitLibraryStmt(stmt ast.LibraryStmt) any {
	c.unit.library = stmt.Name.Lexeme
	return nil
}

// --- function/class compilation helpers ---

func (c *Compiler) compileFunctionBody(name string, params []ast.Parameter, body []ast.Stmt, category value.FunctionCategory, decl *ast.FunctionDecl) *value.Function {
	fc := c.child()
	fc.funcBody = true
	fc.beginScope()

	fn := &value.Function{
		Name:      name,
		Category:  category,
		ModuleKey: c.moduleKey,
	}

	minArity := 0
	maxArity := 0
	variadic := false
	for _, p := range params {
		// Params are bound directly into the call namespace by the VM's
		// call protocol, the same way "this" is bound by BindThis rather
		// than through an opcode - declare here only guards against two
		// parameters sharing a name.
		fc.declare(p.Name.Lexeme, p.Name)

		param := &value.Parameter{Name: p.Name.Lexeme, IsOptional: p.IsOptional, IsNamed: p.IsNamed, IsVariadic: p.IsVariadic}
		if p.Default != nil {
			param.Default = fc.compileExprChunk(p.Default)
		}
		fn.Params = append(fn.Params, param)

		switch {
		case p.IsVariadic:
			variadic = true
		case p.IsOptional, p.IsNamed:
			maxArity++
		default:
			minArity++
			maxArity++
		}
	}
	fn.MinArity = minArity
	if variadic {
		fn.MaxArity = -1
	} else {
		fn.MaxArity = maxArity
	}

	if body == nil {
		// External/abstract declaration: no compiled entry point. The VM
		// dispatches these through the binding package's registry by name
		// instead.
		return fn
	}

	for _, s := range body {
		s.Accept(fc)
	}
	fc.emit(OP_NULL)
	fc.emit(OP_RETURN)

	fn.Entry = &value.Chunk{
		Instructions: fc.instructions,
		Constants:    fc.unit.constants,
		Names:        fc.unit.names,
		ModuleKey:    c.moduleKey,
		Name:         name,
	}
	return fn
}

// compileExprChunk compiles a single expression into its own
// independently executable Chunk, used for default parameter values,
// struct/class field initializers, and redirecting-constructor arguments
// - anything evaluated lazily, later, or in a different namespace than
// the surrounding statement stream.
func (c *Compiler) compileExprChunk(expr ast.Expression) *value.Chunk {
	sub := c.child()
	expr.Accept(sub)
	sub.emit(OP_RETURN)
	return &value.Chunk{
		Instructions: sub.instructions,
		Constants:    sub.unit.constants,
		Names:        sub.unit.names,
		ModuleKey:    c.moduleKey,
	}
}
