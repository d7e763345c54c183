package value

// FunctionCategory distinguishes the different shapes a declared function
// can take, mirroring ast.FunctionCategory but at the value layer where the
// VM actually dispatches on it.
type FunctionCategory int

const (
	FunctionNormal FunctionCategory = iota
	FunctionLiteral
	FunctionMethod
	FunctionGetter
	FunctionSetter
	FunctionConstructor
	FunctionFactory
)

func (c FunctionCategory) String() string {
	switch c {
	case FunctionNormal:
		return "normal"
	case FunctionLiteral:
		return "literal"
	case FunctionMethod:
		return "method"
	case FunctionGetter:
		return "getter"
	case FunctionSetter:
		return "setter"
	case FunctionConstructor:
		return "constructor"
	case FunctionFactory:
		return "factory"
	default:
		return "unknown"
	}
}

// Parameter is a single entry in a Function's parameter list. Optional and
// named parameters carry a Default, evaluated in the function's closure
// namespace when the call omits the argument. Variadic must be the last
// positional parameter.
type Parameter struct {
	Name       string
	Type       *TypeExpr
	Default    *Chunk
	IsOptional bool
	IsNamed    bool
	IsVariadic bool
}

// RedirectingConstructor records a `: this(...)`/`: super(...)` redirect
// clause on a constructor declaration: which constructor to forward to, and
// the already-compiled argument chunks to evaluate in the redirecting
// call's own closure before controls transfers.
type RedirectingConstructor struct {
	// Callee is either "this" (delegate to a named constructor on the same
	// class) or "super" (delegate to the superclass's constructor).
	Callee string
	// Name is the named-constructor suffix, empty for the main constructor.
	Name      string
	Args      []*Chunk
	NamedArgs map[string]*Chunk
}

// ExternalFunc is the signature host-bound functions and external class
// members implement.
type ExternalFunc func(this any, args []any, named map[string]any) (any, error)

// Function is a callable value: either a hetu-script function compiled to
// an entry point in a Chunk, or an external function backed by Go code.
type Function struct {
	Name     string
	Category FunctionCategory

	// Class is the owning class for methods/constructors, nil for free
	// functions and closures.
	Class *Class

	// Closure is the namespace this function was declared in; new call
	// namespaces are children of it (or, for bound methods, children of the
	// instance namespace which itself chains to Closure).
	Closure *Namespace

	Params     []*Parameter
	MinArity   int
	MaxArity   int // -1 means unbounded (variadic)
	ReturnType *TypeExpr

	Redirect *RedirectingConstructor

	// Entry holds the compiled body for a hetu-script function. External is
	// set instead for a function backed by Go code; exactly one of the two
	// is non-nil.
	Entry    *Chunk
	External ExternalFunc

	ModuleKey string
}

func (f *Function) IsExternal() bool { return f.External != nil }

// BindThis returns a copy of f whose closure is a fresh child namespace
// with `this` bound to inst, the way an unbound method value becomes a
// callable bound method once resolved off an instance.
func (f *Function) BindThis(inst *Instance) *Function {
	bound := *f
	ns := NewNamespace(f.Closure)
	ns.Define(&Declaration{Name: "this", Value: inst})
	bound.Closure = ns
	return &bound
}

// Chunk is a self-contained, independently executable slice of bytecode:
// a compiled function body, a default-parameter expression, or a
// redirecting-constructor argument. Constants is shared with the rest of
// the compilation unit the chunk came from.
type Chunk struct {
	Instructions Instructions
	Constants    *ConstantPool
	// Names is the name table OP_DEFINE_LOCAL/OP_GET_LOCAL/OP_SET_LOCAL
	// (and their global counterparts) index into. It is a snapshot of the
	// owning compilation unit's name table at the point this chunk was
	// built, shared by slice header with every other chunk from the same
	// unit rather than copied.
	Names     []string
	ModuleKey string
	Name      string
}
