package vm

import (
	"fmt"

	"github.com/polotto/hetu-script/binding"
	"github.com/polotto/hetu-script/hetuerrors"
	"github.com/polotto/hetu-script/value"
)

// asExternalClassName reports whether cls is an external class (its
// body supplied by the host, not compiled from script source) and, if
// so, the name the binding.Engine registered it under.
func asExternalClassName(cls *value.Class) (string, bool) {
	if cls == nil || !cls.IsExternal {
		return "", false
	}
	return cls.Name, true
}

// nativeToString returns an unbound builtin `toString` method that renders
// receiver the same way value.ToString would, for the struct/instance member
// accesses that do not already declare their own toString.
func nativeToString(receiver any) *value.Function {
	return &value.Function{
		Name:     "toString",
		Category: value.FunctionMethod,
		MaxArity: 0,
		External: func(this any, args []any, named map[string]any) (any, error) {
			return value.ToString(receiver), nil
		},
	}
}

// memberGet resolves obj.name, the runtime counterpart of the compiler's
// OP_MEMBER_GET: instance fields and bound methods, class statics and
// named constructors, struct fields, and the handful of builtin
// pseudo-members (list/string length) the for-in lowering depends on.
func (vm *VM) memberGet(obj any, name string, moduleKey string) (any, error) {
	switch o := obj.(type) {
	case *value.Instance:
		if v, ok := o.Get(name); ok {
			return v, nil
		}
		if fn, ok := o.Class.Method(name); ok {
			return fn.BindThis(o), nil
		}
		if className, ok := asExternalClassName(o.Class); ok && vm.Binding != nil {
			if class, ok := vm.Binding.FetchExternalClass(className); ok {
				if v, ok := class.InstanceMemberGet(o, name); ok {
					return v, nil
				}
			}
		}
		if name == "toString" {
			return nativeToString(o), nil
		}
		return nil, runtimeError(moduleKey, hetuerrors.CodeUndefinedMember, fmt.Sprintf("undefined member %q on %s", name, o.Class.Name))

	case *value.Class:
		if o.Statics != nil {
			if decl, ok := o.Statics.LookupOwn(name); ok {
				return decl.Value, nil
			}
		}
		if className, ok := asExternalClassName(o); ok && vm.Binding != nil {
			if class, ok := vm.Binding.FetchExternalClass(className); ok {
				if v, ok := class.MemberGet(name); ok {
					return v, nil
				}
			}
		}
		if ctor, ok := o.Constructor(name); ok {
			class := o
			ctorName := name
			bound := &value.Function{
				Name:     o.Name + "." + name,
				Category: value.FunctionFactory,
				MinArity: ctor.MinArity,
				MaxArity: ctor.MaxArity,
				Params:   ctor.Params,
				External: func(this any, args []any, named map[string]any) (any, error) {
					return vm.instantiate(class, moduleKey, args, named, ctorName)
				},
			}
			return bound, nil
		}
		return nil, runtimeError(moduleKey, hetuerrors.CodeUndefinedMember, fmt.Sprintf("undefined member %q on class %s", name, o.Name))

	case *value.Struct:
		if v, ok := o.Get(name); ok {
			return v, nil
		}
		if name == "toString" {
			return nativeToString(o), nil
		}
		return nil, nil

	case *value.List:
		if name == "length" {
			return int64(len(o.Items)), nil
		}
		return nil, runtimeError(moduleKey, hetuerrors.CodeUndefinedMember, fmt.Sprintf("undefined member %q on list", name))

	case string:
		if name == "length" {
			return int64(len([]rune(o))), nil
		}
		return nil, runtimeError(moduleKey, hetuerrors.CodeUndefinedMember, fmt.Sprintf("undefined member %q on string", name))

	default:
		return nil, runtimeError(moduleKey, hetuerrors.CodeUndefinedMember, fmt.Sprintf("cannot access member %q on %s", name, value.ToString(obj)))
	}
}

// memberSet resolves obj.name = v, the runtime counterpart of OP_MEMBER_SET.
func (vm *VM) memberSet(obj any, name string, v any, moduleKey string) error {
	switch o := obj.(type) {
	case *value.Instance:
		if o.Set(name, v) {
			return nil
		}
		if className, ok := asExternalClassName(o.Class); ok && vm.Binding != nil {
			if class, ok := vm.Binding.FetchExternalClass(className); ok {
				if setter, ok := class.(binding.InstanceMemberSetter); ok {
					if ok, err := setter.InstanceMemberSet(o, name, v); ok || err != nil {
						return err
					}
				}
			}
		}
		return runtimeError(moduleKey, hetuerrors.CodeUndefinedMember, fmt.Sprintf("undefined field %q on %s", name, o.Class.Name))

	case *value.Struct:
		o.Set(name, v)
		return nil

	case *value.Class:
		if className, ok := asExternalClassName(o); ok && vm.Binding != nil {
			if class, ok := vm.Binding.FetchExternalClass(className); ok {
				if setter, ok := class.(binding.MemberSetter); ok {
					if ok, err := setter.MemberSet(name, v); ok || err != nil {
						return err
					}
				}
			}
		}
		if o.Statics == nil {
			o.Statics = value.NewNamespace(nil)
		}
		if decl, ok := o.Statics.LookupOwn(name); ok {
			if decl.IsConst {
				return runtimeError(moduleKey, hetuerrors.CodeUndefinedMember, fmt.Sprintf("cannot assign to const static %q", name))
			}
			decl.Value = v
			return nil
		}
		return o.Statics.DefineValue(name, v)

	default:
		return runtimeError(moduleKey, hetuerrors.CodeUndefinedMember, fmt.Sprintf("cannot set member %q on %s", name, value.ToString(obj)))
	}
}

// subGet resolves obj[key], the runtime counterpart of OP_SUB_GET.
func (vm *VM) subGet(obj any, key any, moduleKey string) (any, error) {
	switch o := obj.(type) {
	case *value.List:
		idx, err := indexOf(key, len(o.Items), moduleKey)
		if err != nil {
			return nil, err
		}
		return o.Items[idx], nil

	case *value.Struct:
		k, ok := key.(string)
		if !ok {
			return nil, runtimeError(moduleKey, hetuerrors.CodeTypeMismatch, "struct index must be a string")
		}
		v, _ := o.Get(k)
		return v, nil

	case string:
		runes := []rune(o)
		idx, err := indexOf(key, len(runes), moduleKey)
		if err != nil {
			return nil, err
		}
		return string(runes[idx]), nil

	default:
		return nil, runtimeError(moduleKey, hetuerrors.CodeTypeMismatch, fmt.Sprintf("%s is not indexable", value.ToString(obj)))
	}
}

// subSet resolves obj[key] = v, the runtime counterpart of OP_SUB_SET.
func (vm *VM) subSet(obj any, key any, v any, moduleKey string) error {
	switch o := obj.(type) {
	case *value.List:
		idx, err := indexOf(key, len(o.Items), moduleKey)
		if err != nil {
			return err
		}
		o.Items[idx] = v
		return nil

	case *value.Struct:
		k, ok := key.(string)
		if !ok {
			return runtimeError(moduleKey, hetuerrors.CodeTypeMismatch, "struct index must be a string")
		}
		o.Set(k, v)
		return nil

	default:
		return runtimeError(moduleKey, hetuerrors.CodeTypeMismatch, fmt.Sprintf("%s is not indexable", value.ToString(obj)))
	}
}

func indexOf(key any, length int, moduleKey string) (int, error) {
	i, ok := key.(int64)
	if !ok {
		return 0, runtimeError(moduleKey, hetuerrors.CodeTypeMismatch, "index must be an int")
	}
	idx := int(i)
	if idx < 0 || idx >= length {
		return 0, runtimeError(moduleKey, hetuerrors.CodeTypeMismatch, fmt.Sprintf("index %d out of range [0, %d)", idx, length))
	}
	return idx, nil
}
