package value

import (
	"fmt"
	"strings"

	"github.com/davecgh/go-spew/spew"
)

var debugConfig = spew.ConfigState{
	Indent:                  "  ",
	DisableMethods:          true,
	DisablePointerAddresses: true,
	DisableCapacities:       true,
}

// Inspect renders v for diagnostic output (no other package in this
// module calls it). It special-cases the value types that
// have a natural script-level rendering (ToString below) and falls back to
// go-spew's structural dump for everything else, which is far more useful
// than fmt's default %#v for the pointer-heavy Namespace/Instance graphs.
func Inspect(v any) string {
	switch val := v.(type) {
	case nil:
		return "null"
	case *Instance, *Class, *Function, *Struct, *List:
		return debugConfig.Sdump(val)
	default:
		return ToString(v)
	}
}

// ToString renders v the way hetu-script source code would print it,
// independent of debug tooling.
func ToString(v any) string {
	switch val := v.(type) {
	case nil:
		return "null"
	case bool:
		if val {
			return "true"
		}
		return "false"
	case int64:
		return fmt.Sprintf("%d", val)
	case float64:
		return fmt.Sprintf("%g", val)
	case string:
		return val
	case *List:
		parts := make([]string, len(val.Items))
		for i, item := range val.Items {
			parts[i] = ToString(item)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case *Struct:
		keys := val.Keys()
		if len(keys) == 0 {
			return "{}"
		}
		parts := make([]string, len(keys))
		for i, k := range keys {
			v, _ := val.Get(k)
			parts[i] = k + ": " + ToString(v)
		}
		return "{\n  " + strings.Join(parts, ",\n  ") + "\n}"
	case *Instance:
		if val.Class.IsEnum && val.EnumMemberName != "" {
			return val.Class.Name + "." + val.EnumMemberName
		}
		return val.Class.Name + " instance"
	case *Function:
		return "function " + val.Name
	case *Class:
		return "class " + val.Name
	default:
		return fmt.Sprintf("%v", val)
	}
}
