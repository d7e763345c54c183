package vm

import (
	"fmt"

	"github.com/polotto/hetu-script/hetuerrors"
	"github.com/polotto/hetu-script/value"
)

// Call is the exported counterpart of call, for host code (the binding
// package's UnwrapExternalFunctionType) that needs to invoke a script
// callable from outside the opcode dispatch loop. It runs with a
// synthetic "<host>" module key since there is no bytecode frame to
// attribute the call to.
func (vm *VM) Call(callee any, args []any, named map[string]any) (any, error) {
	return vm.call(callee, args, named, "<host>")
}

// call dispatches a resolved callee (a closure, a bound method, an
// external function, or a class used as its own default constructor)
// against already-evaluated positional and named arguments.
func (vm *VM) call(callee any, args []any, named map[string]any, moduleKey string) (any, error) {
	switch c := callee.(type) {
	case *value.Function:
		return vm.callFunction(c, args, named, moduleKey)
	case *value.Class:
		return vm.instantiate(c, moduleKey, args, named, "")
	default:
		return nil, runtimeError(moduleKey, hetuerrors.CodeNotCallable, fmt.Sprintf("%s is not callable", value.ToString(callee)))
	}
}

func (vm *VM) callFunction(fn *value.Function, args []any, named map[string]any, moduleKey string) (any, error) {
	if vm.depth >= maxCallDepth {
		return nil, runtimeError(moduleKey, hetuerrors.CodeStackOverflow, "maximum call depth exceeded")
	}
	if len(args) < fn.MinArity || (fn.MaxArity >= 0 && len(args) > fn.MaxArity) {
		return nil, runtimeError(moduleKey, hetuerrors.CodeArityMismatch, fmt.Sprintf("%s expects between %d and %d arguments, got %d", fn.Name, fn.MinArity, fn.MaxArity, len(args)))
	}

	ns := value.NewNamespace(fn.Closure)
	if err := bindParams(vm, fn, args, named, ns, moduleKey); err != nil {
		return nil, err
	}

	if fn.IsExternal() {
		var this any
		if fn.Closure != nil {
			if decl, ok := fn.Closure.LookupOwn("this"); ok {
				this = decl.Value
			}
		}
		return fn.External(this, args, named)
	}

	if fn.Entry == nil {
		return nil, runtimeError(moduleKey, hetuerrors.CodeBadBytecode, fmt.Sprintf("%s has no compiled body", fn.Name))
	}

	vm.depth++
	defer func() { vm.depth-- }()

	f := &frame{
		instructions: fn.Entry.Instructions,
		constants:    fn.Entry.Constants,
		names:        fn.Entry.Names,
		moduleKey:    fn.Entry.ModuleKey,
		label:        fn.Name,
		ns:           ns,
	}
	return vm.runFrame(f)
}

// bindParams binds positional/named/default/variadic arguments into ns,
// the call-protocol responsibility the compiler leaves out of the
// function body's own bytecode (see compileFunctionBody).
func bindParams(vm *VM, fn *value.Function, args []any, named map[string]any, ns *value.Namespace, moduleKey string) error {
	if len(named) > 0 {
		for key := range named {
			declared := false
			for _, p := range fn.Params {
				if p.IsNamed && p.Name == key {
					declared = true
					break
				}
			}
			if !declared {
				return runtimeError(moduleKey, hetuerrors.CodeNamedArg, fmt.Sprintf("%s has no named parameter %q", fn.Name, key))
			}
		}
	}

	pi := 0
	for _, p := range fn.Params {
		switch {
		case p.IsVariadic:
			rest := make([]any, 0, len(args)-pi)
			if pi < len(args) {
				rest = append(rest, args[pi:]...)
				pi = len(args)
			}
			if err := ns.DefineValue(p.Name, value.NewList(rest)); err != nil {
				return runtimeError(moduleKey, hetuerrors.CodeDuplicateDeclaration, err.Error())
			}

		case p.IsNamed:
			v, ok := named[p.Name]
			if !ok {
				dv, err := paramDefault(vm, p, ns)
				if err != nil {
					return err
				}
				v = dv
			}
			if err := ns.DefineValue(p.Name, v); err != nil {
				return runtimeError(moduleKey, hetuerrors.CodeDuplicateDeclaration, err.Error())
			}

		default:
			var v any
			if pi < len(args) {
				v = args[pi]
				pi++
			} else {
				dv, err := paramDefault(vm, p, ns)
				if err != nil {
					return err
				}
				v = dv
			}
			if err := ns.DefineValue(p.Name, v); err != nil {
				return runtimeError(moduleKey, hetuerrors.CodeDuplicateDeclaration, err.Error())
			}
		}
	}
	return nil
}

func paramDefault(vm *VM, p *value.Parameter, ns *value.Namespace) (any, error) {
	if p.Default != nil {
		return vm.runChunk(p.Default, ns)
	}
	return nil, nil
}

func evalChunks(vm *VM, chunks []*value.Chunk, ns *value.Namespace) ([]any, error) {
	out := make([]any, len(chunks))
	for i, c := range chunks {
		v, err := vm.runChunk(c, ns)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func evalNamedChunks(vm *VM, chunks map[string]*value.Chunk, ns *value.Namespace) (map[string]any, error) {
	if len(chunks) == 0 {
		return nil, nil
	}
	out := make(map[string]any, len(chunks))
	for k, c := range chunks {
		v, err := vm.runChunk(c, ns)
		if err != nil {
			return nil, err
		}
		out[k] = v
	}
	return out, nil
}

// resolveClass runs once per class, the first time its OP_CLASS
// instruction executes: it links the superclass by name, binds every
// method/constructor's closure to the enclosing scope (they never go
// through OP_CLOSURE, since they are reached through the class's method
// table rather than pushed onto the stack individually), and - for an
// enum lowered to a Class - builds the one static instance per member.
func (vm *VM) resolveClass(class *value.Class, f *frame) error {
	if class.Statics != nil {
		return nil
	}

	if class.SuperName != "" {
		decl, _, ok := f.ns.Lookup(class.SuperName)
		if !ok {
			return runtimeError(f.moduleKey, hetuerrors.CodeUndefinedVariable, fmt.Sprintf("undefined superclass %q", class.SuperName))
		}
		super, ok := decl.Value.(*value.Class)
		if !ok {
			return runtimeError(f.moduleKey, hetuerrors.CodeTypeMismatch, fmt.Sprintf("%q is not a class", class.SuperName))
		}
		class.Super = super
	}

	class.Enclosing = f.ns
	for _, fn := range class.Methods {
		fn.Closure = f.ns
	}
	for _, fn := range class.Constructors {
		fn.Closure = f.ns
	}

	class.Statics = value.NewNamespace(nil)

	if class.IsEnum {
		values := make([]any, 0, len(class.EnumMembers))
		for _, name := range class.EnumMembers {
			inst, err := vm.instantiate(class, f.moduleKey, nil, nil, "")
			if err != nil {
				return err
			}
			inst.EnumMemberName = name
			class.Statics.DefineConst(name, inst)
			values = append(values, inst)
		}
		class.Statics.DefineConst("values", value.NewList(values))
	}

	return nil
}

// instantiate builds a new Instance of class: constructing the
// superclass instance first (if any), running field initializers, and
// finally the selected constructor's own body - following a `this(...)`
// redirect to another named constructor, or a `super(...)` redirect
// before the body runs, exactly the way the compiler's VisitClassDecl
// recorded them.
func (vm *VM) instantiate(class *value.Class, moduleKey string, args []any, named map[string]any, ctorName string) (*value.Instance, error) {
	var ctor *value.Function
	if c, ok := class.Constructor(ctorName); ok {
		ctor = c
	}

	ctorNS := value.NewNamespace(class.Enclosing)
	if ctor != nil {
		if err := bindParams(vm, ctor, args, named, ctorNS, moduleKey); err != nil {
			return nil, err
		}
	}

	if ctor != nil && ctor.Redirect != nil && ctor.Redirect.Callee == "this" {
		redirectArgs, err := evalChunks(vm, ctor.Redirect.Args, ctorNS)
		if err != nil {
			return nil, err
		}
		redirectNamed, err := evalNamedChunks(vm, ctor.Redirect.NamedArgs, ctorNS)
		if err != nil {
			return nil, err
		}
		return vm.instantiate(class, moduleKey, redirectArgs, redirectNamed, ctor.Redirect.Name)
	}

	var superArgs []any
	var superNamed map[string]any
	var err error
	if ctor != nil && ctor.Redirect != nil && ctor.Redirect.Callee == "super" {
		superArgs, err = evalChunks(vm, ctor.Redirect.Args, ctorNS)
		if err != nil {
			return nil, err
		}
		superNamed, err = evalNamedChunks(vm, ctor.Redirect.NamedArgs, ctorNS)
		if err != nil {
			return nil, err
		}
	} else if class.SuperArgs != nil {
		parentNS := class.Enclosing
		if parentNS == nil {
			parentNS = ctorNS
		}
		superArgs, err = evalChunks(vm, class.SuperArgs, parentNS)
		if err != nil {
			return nil, err
		}
	}

	instNS := value.NewNamespace(nil)
	inst := &value.Instance{Class: class, Namespace: instNS}

	if class.Super != nil {
		superInst, err := vm.instantiate(class.Super, moduleKey, superArgs, superNamed, "")
		if err != nil {
			return nil, err
		}
		instNS.Super = superInst.Namespace
	}

	for _, field := range class.Fields {
		fieldNS := value.NewNamespace(class.Enclosing)
		fieldNS.DefineValue("this", inst)
		v, err := vm.runChunk(field.Initializer, fieldNS)
		if err != nil {
			return nil, err
		}
		if field.IsConst {
			if err := instNS.DefineConst(field.Name, v); err != nil {
				return nil, runtimeError(moduleKey, hetuerrors.CodeDuplicateDeclaration, err.Error())
			}
		} else {
			if err := instNS.DefineValue(field.Name, v); err != nil {
				return nil, runtimeError(moduleKey, hetuerrors.CodeDuplicateDeclaration, err.Error())
			}
		}
	}

	if ctor != nil && ctor.Entry != nil {
		ctorNS.DefineValue("this", inst)
		f := &frame{
			instructions: ctor.Entry.Instructions,
			constants:    ctor.Entry.Constants,
			names:        ctor.Entry.Names,
			moduleKey:    ctor.Entry.ModuleKey,
			label:        class.Name + "." + ctorName,
			ns:           ctorNS,
		}
		if _, err := vm.runFrame(f); err != nil {
			return nil, err
		}
	}

	return inst, nil
}
