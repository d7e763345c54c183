package parser

// SourceKind identifies the grammatical context the parser is
// currently positioned in: a script's top level parses differently
// from an imported module, a class body, a struct body, a function
// body, or a single reentrant expression (the kind stringInterpolation
// reparses with). Most of the grammar does not care, but a handful of
// forms are only legal in one kind - `return` only inside a function
// body, constructor/factory/getter/setter forms only inside a class
// body.
type SourceKind int

const (
	KindScript SourceKind = iota
	KindModule
	KindClassBody
	KindStructBody
	KindFunctionBody
	KindExpression
)

func (k SourceKind) String() string {
	switch k {
	case KindScript:
		return "script"
	case KindModule:
		return "module"
	case KindClassBody:
		return "class body"
	case KindStructBody:
		return "struct body"
	case KindFunctionBody:
		return "function body"
	case KindExpression:
		return "expression"
	default:
		return "unknown source kind"
	}
}

// pushKind enters a new grammatical context, to be left with popKind
// once the corresponding body has been parsed.
func (parser *Parser) pushKind(kind SourceKind) {
	parser.kindStack = append(parser.kindStack, kind)
}

func (parser *Parser) popKind() {
	if len(parser.kindStack) == 0 {
		return
	}
	parser.kindStack = parser.kindStack[:len(parser.kindStack)-1]
}

// currentKind reports the innermost grammatical context, KindScript
// if the stack is empty (only possible before Make's initial kind was
// pushed, which it always is).
func (parser *Parser) currentKind() SourceKind {
	if len(parser.kindStack) == 0 {
		return KindScript
	}
	return parser.kindStack[len(parser.kindStack)-1]
}

// inFunctionBody reports whether a `return` here would be legal. Every
// function/method/constructor/getter/setter/lambda body pushes
// KindFunctionBody around its own block and pops it on the way out, so
// a nested block (an if/while/for body, say) stays under that same
// entry without needing its own push.
func (parser *Parser) inFunctionBody() bool {
	return parser.currentKind() == KindFunctionBody
}
