// Package vm executes the bytecode the compiler package emits: a
// stack machine (no register file) that walks a compiler.Module's
// Instructions (or a nested value.Chunk's, for function bodies and
// default-parameter/field-initializer expressions), maintaining an
// operand stack alongside a chain of value.Namespaces for lexical
// scoping, call frames, and instance state.
package vm

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/polotto/hetu-script/binding"
	"github.com/polotto/hetu-script/compiler"
	"github.com/polotto/hetu-script/hetuerrors"
	"github.com/polotto/hetu-script/value"
)

// maxCallDepth bounds recursion the same way the teacher's interpreter
// relied on Go's own goroutine stack: without a cap, a runaway recursive
// script turns into an unrecoverable Go stack overflow instead of a
// catchable hetuerrors.Error.
const maxCallDepth = 1024

// Importer resolves an import key (the string literal naming a module,
// plus the key of the module doing the importing, for resolving a
// relative path) to the namespace of bindings that module exports. The
// hetu package supplies a concrete Importer that parses, compiles,
// caches, and runs sibling modules; the vm package only knows how to
// ask for one.
type Importer func(key, fromModuleKey string) (*value.Namespace, error)

// moduleUnit is the flat pool of compiled functions and classes a single
// compiler.Module produced, keyed by the module's Key so nested Chunks
// (which only carry Instructions/Constants/Names) can still resolve the
// OP_CLOSURE/OP_CLASS indices they were compiled with.
type moduleUnit struct {
	key       string
	library   string
	functions []*value.Function
	classes   []*value.Class
}

// frame is one activation of an instruction stream: a module's top
// level, a function body, or a standalone expression chunk (a default
// parameter value, a field initializer, a redirecting-constructor
// argument).
type frame struct {
	instructions value.Instructions
	constants    *value.ConstantPool
	names        []string
	moduleKey    string
	label        string
	ns           *value.Namespace
	ip           int
}

// maxOperandStack bounds the operand stack the same way maxCallDepth
// bounds call recursion: pathological bytecode (a miscompiled or
// hand-assembled module pushing without matching pops) grows the
// operand stack instead of the Go call stack, so it needs its own cap
// to fail as a catchable hetuerrors.Error rather than exhausting memory.
const maxOperandStack = 1 << 20

// VM is a single execution context: one operand stack, one global
// namespace, and the registry of modules it has loaded so far. The
// operand stack used to be a standalone exported Stack type; it is
// folded directly into VM's own state here since nothing outside this
// package ever addressed a Stack on its own, and folding it in lets
// push report overflow through the same moduleKey-scoped error path
// every other opcode uses instead of a separate type with no way to
// signal a fault.
type VM struct {
	operands []any
	opErr    *hetuerrors.Error
	globals  *value.Namespace
	modules  map[string]*moduleUnit
	Importer Importer

	// RunID is a uuid New generates once per VM, the way the module
	// loader's CompilationBundle gets one; every Run/RunModuleInto call
	// on this VM writes it into its debug log line. It is not added to
	// error stack traces.
	RunID string

	// Binding resolves member access and constructor calls against
	// host-registered external classes (value.Class.IsExternal), the
	// delegation spec.md §4.5 describes for a member read that an
	// instance's own namespace chain can't satisfy. Nil if the host
	// never registered any external classes.
	Binding *binding.Engine

	depth int
}

// push appends v to the operand stack, latching opErr instead of
// growing past maxOperandStack. The dispatch loop checks opErr once per
// instruction rather than every call site checking a return value, the
// same sticky-fault style bufio.Scanner uses for its Err().
func (vm *VM) push(v any) {
	if len(vm.operands) >= maxOperandStack {
		if vm.opErr == nil {
			vm.opErr = runtimeError("", hetuerrors.CodeStackOverflow, "operand stack overflow")
		}
		return
	}
	vm.operands = append(vm.operands, v)
}

// pop removes and returns the top of the operand stack, false if empty.
func (vm *VM) pop() (any, bool) {
	if len(vm.operands) == 0 {
		return nil, false
	}
	index := len(vm.operands) - 1
	v := vm.operands[index]
	vm.operands = vm.operands[:index]
	return v, true
}

// peek returns the top of the operand stack without removing it.
func (vm *VM) peek() (any, bool) {
	if len(vm.operands) == 0 {
		return nil, false
	}
	return vm.operands[len(vm.operands)-1], true
}

// New returns a VM with an empty global namespace, ready to Run a
// compiled module.
func New() *VM {
	return &VM{
		globals: value.NewNamespace(nil),
		modules: make(map[string]*moduleUnit),
		RunID:   uuid.NewString(),
	}
}

// Globals exposes the VM's top-level namespace so a host embedding API
// (the binding package) can install external bindings before Run.
func (vm *VM) Globals() *value.Namespace { return vm.globals }

// Run executes mod's top-level statements against vm.globals. Every
// top-level expression statement pops its result same as any other
// statement, so the returned value only ever carries a `return` from
// the module's own top level (rare outside a REPL-style snippet); the
// host normally reads results back out of vm.Globals() or by Calling
// a named function afterward.
func (vm *VM) Run(mod *compiler.Module) (any, error) {
	return vm.RunModuleInto(mod, vm.globals)
}

// RunModuleInto executes mod's top-level statements against ns instead
// of vm.globals, letting a host run an imported module into its own
// namespace so its exports can be copied into the importing module's
// scope without leaking into vm.globals directly.
func (vm *VM) RunModuleInto(mod *compiler.Module, ns *value.Namespace) (any, error) {
	vm.registerModule(mod)
	log.Debugf("vm[%s]: running module %q (%d bytes)", vm.RunID, mod.Key, len(mod.Instructions))
	f := &frame{
		instructions: mod.Instructions,
		constants:    mod.Constants,
		names:        mod.Names,
		moduleKey:    mod.Key,
		label:        "<module>",
		ns:           ns,
	}
	return vm.runFrame(f)
}

func (vm *VM) registerModule(mod *compiler.Module) *moduleUnit {
	if u, ok := vm.modules[mod.Key]; ok {
		u.functions = mod.Functions
		u.classes = mod.Classes
		return u
	}
	u := &moduleUnit{key: mod.Key, library: mod.Library, functions: mod.Functions, classes: mod.Classes}
	vm.modules[mod.Key] = u
	return u
}

func (vm *VM) unitFor(moduleKey string) *moduleUnit {
	return vm.modules[moduleKey]
}

// --- fetch/decode helpers ---

func decodeOperand(f *frame) int {
	return int(binary.BigEndian.Uint16(f.instructions[f.ip+compiler.OPCODE_TOTAL_BYTES:]))
}

// runFrame is the fetch-decode-execute loop. It returns the value an
// OP_RETURN produced, or nil once OP_END is reached (a module falling
// off the end of its statement list rather than returning explicitly).
func (vm *VM) runFrame(f *frame) (any, error) {
	for {
		if vm.opErr != nil {
			err := vm.opErr
			err.Module = f.moduleKey
			vm.opErr = nil
			return nil, err
		}
		if f.ip >= len(f.instructions) {
			return nil, nil
		}
		op := compiler.Opcode(f.instructions[f.ip])
		length := compiler.InstructionLength(op)

		switch op {
		case compiler.OP_END:
			return nil, nil

		case compiler.OP_RETURN:
			v, _ := vm.pop()
			return v, nil

		case compiler.OP_CONST_INT:
			vm.push(f.constants.Ints[decodeOperand(f)])
		case compiler.OP_CONST_FLOAT:
			vm.push(f.constants.Floats[decodeOperand(f)])
		case compiler.OP_CONST_STRING:
			vm.push(f.constants.Strings[decodeOperand(f)])
		case compiler.OP_NULL:
			vm.push(nil)
		case compiler.OP_TRUE:
			vm.push(true)
		case compiler.OP_FALSE:
			vm.push(false)

		case compiler.OP_POP:
			vm.pop()
		case compiler.OP_DUP:
			top, _ := vm.peek()
			vm.push(top)

		case compiler.OP_DEFINE_GLOBAL, compiler.OP_DEFINE_LOCAL:
			name := f.names[decodeOperand(f)]
			v, _ := vm.pop()
			if err := f.ns.DefineValue(name, v); err != nil {
				return nil, runtimeError(f.moduleKey, hetuerrors.CodeDuplicateDeclaration, err.Error())
			}

		case compiler.OP_GET_GLOBAL, compiler.OP_GET_LOCAL:
			name := f.names[decodeOperand(f)]
			decl, _, ok := f.ns.Lookup(name)
			if !ok {
				return nil, runtimeError(f.moduleKey, hetuerrors.CodeUndefinedVariable, fmt.Sprintf("undefined variable %q", name))
			}
			vm.push(decl.Value)

		case compiler.OP_SET_GLOBAL, compiler.OP_SET_LOCAL:
			name := f.names[decodeOperand(f)]
			v, _ := vm.peek()
			if err := f.ns.Assign(name, v); err != nil {
				return nil, runtimeError(f.moduleKey, hetuerrors.CodeUndefinedVariable, err.Error())
			}

		case compiler.OP_SCOPE_ENTER:
			f.ns = f.ns.Child()
		case compiler.OP_SCOPE_EXIT:
			if parent := f.ns.Parent(); parent != nil {
				f.ns = parent
			}

		case compiler.OP_JUMP, compiler.OP_LOOP:
			f.ip = decodeOperand(f)
			continue
		case compiler.OP_JUMP_IF_FALSE:
			top, _ := vm.peek()
			if !isTruthy(top) {
				f.ip = decodeOperand(f)
				continue
			}

		case compiler.OP_ADD, compiler.OP_SUBTRACT, compiler.OP_MULTIPLY, compiler.OP_DIVIDE, compiler.OP_MODULO:
			right, _ := vm.pop()
			left, _ := vm.pop()
			result, err := vm.arithmetic(op, left, right, f.moduleKey)
			if err != nil {
				return nil, err
			}
			vm.push(result)

		case compiler.OP_NEGATE:
			v, _ := vm.pop()
			switch n := v.(type) {
			case int64:
				vm.push(-n)
			case float64:
				vm.push(-n)
			default:
				return nil, runtimeError(f.moduleKey, hetuerrors.CodeTypeMismatch, fmt.Sprintf("operand must be numeric, got %s", value.ToString(v)))
			}
		case compiler.OP_NOT:
			v, _ := vm.pop()
			vm.push(!isTruthy(v))

		case compiler.OP_EQUAL:
			right, _ := vm.pop()
			left, _ := vm.pop()
			vm.push(valuesEqual(left, right))
		case compiler.OP_NOT_EQUAL:
			right, _ := vm.pop()
			left, _ := vm.pop()
			vm.push(!valuesEqual(left, right))

		case compiler.OP_LESS, compiler.OP_LESS_EQUAL, compiler.OP_GREATER, compiler.OP_GREATER_EQUAL:
			right, _ := vm.pop()
			left, _ := vm.pop()
			result, err := vm.compare(op, left, right, f.moduleKey)
			if err != nil {
				return nil, err
			}
			vm.push(result)

		case compiler.OP_TYPE_IS, compiler.OP_TYPE_IS_NOT:
			typeName, _ := vm.pop()
			v, _ := vm.pop()
			is := vm.isType(v, typeName.(string))
			if op == compiler.OP_TYPE_IS_NOT {
				is = !is
			}
			vm.push(is)
		case compiler.OP_TYPE_AS:
			vm.pop() // the type name; "as" is an advisory cast, the value beneath is unchanged
		case compiler.OP_TYPE_OF:
			v, _ := vm.pop()
			vm.push(typeNameOf(v))

		case compiler.OP_BUILD_LIST:
			n := decodeOperand(f)
			items := make([]any, n)
			for i := n - 1; i >= 0; i-- {
				items[i], _ = vm.pop()
			}
			vm.push(value.NewList(items))

		case compiler.OP_BUILD_STRUCT:
			n := decodeOperand(f)
			type pair struct {
				key string
				val any
			}
			pairs := make([]pair, n)
			for i := n - 1; i >= 0; i-- {
				v, _ := vm.pop()
				k, _ := vm.pop()
				pairs[i] = pair{k.(string), v}
			}
			protoVal, _ := vm.pop()
			proto, _ := protoVal.(*value.Struct)
			s := value.NewStruct(proto)
			for _, p := range pairs {
				s.Set(p.key, p.val)
			}
			vm.push(s)

		case compiler.OP_STRING_INTERP:
			n := decodeOperand(f)
			total := 2*n + 1
			parts := make([]any, total)
			for i := total - 1; i >= 0; i-- {
				parts[i], _ = vm.pop()
			}
			var out string
			for _, p := range parts {
				out += value.ToString(p)
			}
			vm.push(out)

		case compiler.OP_MEMBER_GET:
			name := f.names[decodeOperand(f)]
			obj, _ := vm.pop()
			v, err := vm.memberGet(obj, name, f.moduleKey)
			if err != nil {
				return nil, err
			}
			vm.push(v)
		case compiler.OP_MEMBER_SET:
			name := f.names[decodeOperand(f)]
			v, _ := vm.pop()
			obj, _ := vm.pop()
			if err := vm.memberSet(obj, name, v, f.moduleKey); err != nil {
				return nil, err
			}
			vm.push(v)

		case compiler.OP_SUB_GET:
			key, _ := vm.pop()
			obj, _ := vm.pop()
			v, err := vm.subGet(obj, key, f.moduleKey)
			if err != nil {
				return nil, err
			}
			vm.push(v)
		case compiler.OP_SUB_SET:
			v, _ := vm.pop()
			key, _ := vm.pop()
			obj, _ := vm.pop()
			if err := vm.subSet(obj, key, v, f.moduleKey); err != nil {
				return nil, err
			}
			vm.push(v)

		case compiler.OP_CALL, compiler.OP_CALL_NAMED:
			n := decodeOperand(f)
			namedVal, _ := vm.pop()
			namedStruct, _ := namedVal.(*value.Struct)
			named := map[string]any{}
			if namedStruct != nil {
				for _, k := range namedStruct.Keys() {
					v, _ := namedStruct.Get(k)
					named[k] = v
				}
			}
			args := make([]any, n)
			for i := n - 1; i >= 0; i-- {
				args[i], _ = vm.pop()
			}
			callee, _ := vm.pop()
			result, err := vm.call(callee, args, named, f.moduleKey)
			if err != nil {
				return nil, err
			}
			vm.push(result)

		case compiler.OP_CLOSURE:
			tmpl := vm.unitFor(f.moduleKey).functions[decodeOperand(f)]
			bound := *tmpl
			bound.Closure = f.ns
			vm.push(&bound)

		case compiler.OP_CLASS:
			class := vm.unitFor(f.moduleKey).classes[decodeOperand(f)]
			if err := vm.resolveClass(class, f); err != nil {
				return nil, err
			}
			vm.push(class)

		case compiler.OP_INHERIT:
			// Reserved: superclass linkage is instead resolved lazily in
			// resolveClass the first time a class declaration executes.

		case compiler.OP_METHOD:
			// Reserved: methods are attached to their Class at compile time
			// (class.Methods), not patched in at runtime.

		case compiler.OP_GET_SUPER:
			name := f.names[decodeOperand(f)]
			thisVal, _ := vm.pop()
			inst, ok := thisVal.(*value.Instance)
			if !ok || inst.Class.Super == nil {
				return nil, runtimeError(f.moduleKey, hetuerrors.CodeUndefinedMember, "'super' used outside a subclass method")
			}
			fn, ok := inst.Class.Super.Method(name)
			if !ok {
				return nil, runtimeError(f.moduleKey, hetuerrors.CodeUndefinedMember, fmt.Sprintf("undefined super member %q", name))
			}
			vm.push(fn.BindThis(inst))

		case compiler.OP_BREAK_LOOP, compiler.OP_CONTINUE_LOOP:
			// The compiler lowers break/continue to plain OP_JUMP; these
			// remain in the opcode vocabulary for disassembly fidelity with
			// spec.md's wire format but are never emitted.

		case compiler.OP_IMPORT:
			idx := decodeOperand(f)
			key := f.constants.Strings[idx]
			if vm.Importer == nil {
				return nil, runtimeError(f.moduleKey, hetuerrors.CodeModuleNotFound, fmt.Sprintf("cannot import %q: no module loader configured", key))
			}
			exports, err := vm.Importer(key, f.moduleKey)
			if err != nil {
				return nil, err
			}
			for _, name := range exports.Names() {
				decl, _, _ := exports.Lookup(name)
				f.ns.DefineValue(name, decl.Value)
			}

		default:
			return nil, runtimeError(f.moduleKey, hetuerrors.CodeBadBytecode, fmt.Sprintf("unknown opcode %d at ip %d", op, f.ip))
		}

		f.ip += length
	}
}

// runChunk executes a standalone Chunk (a default parameter value, a
// field initializer, a redirecting-constructor argument) in ns and
// returns the value its trailing OP_RETURN produced.
func (vm *VM) runChunk(chunk *value.Chunk, ns *value.Namespace) (any, error) {
	f := &frame{
		instructions: chunk.Instructions,
		constants:    chunk.Constants,
		names:        chunk.Names,
		moduleKey:    chunk.ModuleKey,
		label:        chunk.Name,
		ns:           ns,
	}
	return vm.runFrame(f)
}

func isTruthy(v any) bool {
	if v == nil {
		return false
	}
	if b, ok := v.(bool); ok {
		return b
	}
	return true
}

func valuesEqual(a, b any) bool {
	af, aIsNum := asFloat(a)
	bf, bIsNum := asFloat(b)
	if aIsNum && bIsNum {
		return af == bf
	}
	return a == b
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int64:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}

func (vm *VM) arithmetic(op compiler.Opcode, left, right any, moduleKey string) (any, error) {
	if op == compiler.OP_ADD {
		ls, lok := left.(string)
		rs, rok := right.(string)
		if lok && rok {
			return ls + rs, nil
		}
	}

	lf, lok := asFloat(left)
	rf, rok := asFloat(right)
	if !lok || !rok {
		return nil, runtimeError(moduleKey, hetuerrors.CodeTypeMismatch, fmt.Sprintf("operands must be numeric: %s, %s", value.ToString(left), value.ToString(right)))
	}

	li, lIsInt := left.(int64)
	ri, rIsInt := right.(int64)
	bothInt := lIsInt && rIsInt

	switch op {
	case compiler.OP_ADD:
		if bothInt {
			return li + ri, nil
		}
		return lf + rf, nil
	case compiler.OP_SUBTRACT:
		if bothInt {
			return li - ri, nil
		}
		return lf - rf, nil
	case compiler.OP_MULTIPLY:
		if bothInt {
			return li * ri, nil
		}
		return lf * rf, nil
	case compiler.OP_DIVIDE:
		if rf == 0 {
			return nil, runtimeError(moduleKey, hetuerrors.CodeDivisionByZero, "division by zero")
		}
		if bothInt && ri != 0 && li%ri == 0 {
			return li / ri, nil
		}
		return lf / rf, nil
	case compiler.OP_MODULO:
		if rf == 0 {
			return nil, runtimeError(moduleKey, hetuerrors.CodeDivisionByZero, "division by zero")
		}
		if bothInt {
			return li % ri, nil
		}
		return math.Mod(lf, rf), nil
	}
	return nil, runtimeError(moduleKey, hetuerrors.CodeBadBytecode, "unreachable arithmetic opcode")
}

func (vm *VM) compare(op compiler.Opcode, left, right any, moduleKey string) (any, error) {
	if ls, ok := left.(string); ok {
		if rs, ok := right.(string); ok {
			switch op {
			case compiler.OP_LESS:
				return ls < rs, nil
			case compiler.OP_LESS_EQUAL:
				return ls <= rs, nil
			case compiler.OP_GREATER:
				return ls > rs, nil
			case compiler.OP_GREATER_EQUAL:
				return ls >= rs, nil
			}
		}
	}

	lf, lok := asFloat(left)
	rf, rok := asFloat(right)
	if !lok || !rok {
		return nil, runtimeError(moduleKey, hetuerrors.CodeTypeMismatch, fmt.Sprintf("operands must be comparable: %s, %s", value.ToString(left), value.ToString(right)))
	}
	switch op {
	case compiler.OP_LESS:
		return lf < rf, nil
	case compiler.OP_LESS_EQUAL:
		return lf <= rf, nil
	case compiler.OP_GREATER:
		return lf > rf, nil
	case compiler.OP_GREATER_EQUAL:
		return lf >= rf, nil
	}
	return nil, runtimeError(moduleKey, hetuerrors.CodeBadBytecode, "unreachable comparison opcode")
}

func typeNameOf(v any) string {
	switch val := v.(type) {
	case nil:
		return "null"
	case bool:
		return "bool"
	case int64:
		return "int"
	case float64:
		return "float"
	case string:
		return "string"
	case *value.List:
		return "list"
	case *value.Struct:
		return "struct"
	case *value.Function:
		return "function"
	case *value.Class:
		return "class"
	case *value.Instance:
		return val.Class.Name
	default:
		return fmt.Sprintf("%T", v)
	}
}

func (vm *VM) isType(v any, typeName string) bool {
	switch typeName {
	case "any", "Object":
		return true
	}
	switch val := v.(type) {
	case nil:
		return typeName == "null"
	case int64:
		return typeName == "int" || typeName == "num"
	case float64:
		return typeName == "float" || typeName == "num" || typeName == "double"
	case *value.Instance:
		for c := val.Class; c != nil; c = c.Super {
			if c.Name == typeName {
				return true
			}
			for _, impl := range c.Implements {
				if impl == typeName {
					return true
				}
			}
		}
		return false
	default:
		return typeNameOf(v) == typeName
	}
}
