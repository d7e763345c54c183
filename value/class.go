package value

// Class is a declared class (or a lowered enum, which the compiler turns
// into a Class with IsEnum set and one static instance per member). It owns
// a static namespace for its own members and a method table consulted when
// building each Instance.
type Class struct {
	ID    string
	Name  string
	Super *Class
	// SuperName is the unresolved superclass identifier recorded at
	// compile time; the VM resolves it to Super via namespace lookup the
	// first time the class declaration executes.
	SuperName string
	SuperArgs []*Chunk

	TypeParams []string
	Implements []string
	With       []string

	IsExternal bool
	IsAbstract bool
	IsEnum     bool

	// Statics holds the class's own static fields and methods. Its parent
	// is nil: statics are not visible through the lexical chain, only
	// through explicit ClassName.member access. A nil Statics also marks
	// the class as not yet resolved (superclass linked, methods bound to
	// their enclosing scope) - see the vm package's resolveClass.
	Statics *Namespace

	// Enclosing is the namespace the class declaration executed in,
	// recorded by resolveClass so that constructor redirects (`: super(...)`)
	// and field initializers can see the same outer variables the class
	// body itself could.
	Enclosing *Namespace

	Methods      map[string]*Function
	Constructors map[string]*Function // keyed by name, "" is the main constructor
	Fields       []FieldInit

	HasUserConstructor bool

	// EnumMembers preserves declaration order for Enum.values, populated
	// only when IsEnum is true.
	EnumMembers []string
}

// FieldInit is one instance-field declaration on a class: its name and the
// compiled initializer expression run fresh for each new instance.
type FieldInit struct {
	Name        string
	Type        *TypeExpr
	Initializer *Chunk
	IsConst     bool
}

// Instance is one allocation of a Class. Namespace holds this instance's
// own field values; Namespace.Super chains to the superclass's instance
// namespace (if any) so that `super.field` and unqualified member lookup
// during inherited-method execution can walk up the hierarchy.
type Instance struct {
	Class     *Class
	Namespace *Namespace
	TypeArgs  []*TypeExpr

	// EnumMemberName is set for the static instances a lowered enum
	// class creates, one per member; empty for ordinary instances.
	EnumMemberName string
}

// Get resolves a member access on inst: its own namespace first, then the
// superclass chain.
func (inst *Instance) Get(name string) (any, bool) {
	for ns := inst.Namespace; ns != nil; ns = ns.Super {
		if decl, ok := ns.LookupOwn(name); ok {
			return decl.Value, true
		}
	}
	return nil, false
}

// Set stores a value into the first namespace in the chain that already
// declares name. It does not create new fields: assignment always targets
// an already-declared slot.
func (inst *Instance) Set(name string, v any) bool {
	for ns := inst.Namespace; ns != nil; ns = ns.Super {
		if decl, ok := ns.LookupOwn(name); ok {
			decl.Value = v
			return true
		}
	}
	return false
}

// Method looks up a method by name, walking the superclass chain.
func (c *Class) Method(name string) (*Function, bool) {
	for cur := c; cur != nil; cur = cur.Super {
		if fn, ok := cur.Methods[name]; ok {
			return fn, true
		}
	}
	return nil, false
}

// Constructor looks up a named constructor ("" for the main one), walking
// the superclass chain.
func (c *Class) Constructor(name string) (*Function, bool) {
	for cur := c; cur != nil; cur = cur.Super {
		if fn, ok := cur.Constructors[name]; ok {
			return fn, true
		}
	}
	return nil, false
}
