package value

import "testing"

func TestNamespaceLookupWalksEnclosingScopes(t *testing.T) {
	root := NewNamespace(nil)
	root.Define(&Declaration{Name: "x", Value: int64(1)})

	child := root.Child()
	child.Define(&Declaration{Name: "y", Value: int64(2)})

	decl, owner, ok := child.Lookup("x")
	if !ok {
		t.Fatalf("expected to find x via enclosing scope")
	}
	if owner != root {
		t.Fatalf("expected x to be owned by root namespace")
	}
	if decl.Value.(int64) != 1 {
		t.Fatalf("expected x=1, got %v", decl.Value)
	}
}

func TestNamespaceDuplicateDefineErrors(t *testing.T) {
	ns := NewNamespace(nil)
	if err := ns.Define(&Declaration{Name: "x"}); err != nil {
		t.Fatalf("unexpected error defining x: %v", err)
	}
	if err := ns.Define(&Declaration{Name: "x"}); err == nil {
		t.Fatalf("expected duplicate declaration error")
	}
}

func TestNamespaceAssignRejectsConst(t *testing.T) {
	ns := NewNamespace(nil)
	ns.Define(&Declaration{Name: "x", IsConst: true, Value: int64(1)})

	if err := ns.Assign("x", int64(2)); err == nil {
		t.Fatalf("expected error assigning to const variable")
	}
}

func TestStructPrototypeChainRead(t *testing.T) {
	proto := NewStruct(nil)
	proto.Set("greeting", "hi")

	s := NewStruct(proto)
	s.Set("name", "ada")

	if v, ok := s.Get("greeting"); !ok || v != "hi" {
		t.Fatalf("expected to read 'greeting' via prototype, got %v, %v", v, ok)
	}
	if v, ok := s.Get("name"); !ok || v != "ada" {
		t.Fatalf("expected to read own 'name', got %v, %v", v, ok)
	}
	if _, ok := s.Get("missing"); ok {
		t.Fatalf("expected missing key to be absent")
	}
}

func TestStructWriteTargetsReceiver(t *testing.T) {
	proto := NewStruct(nil)
	proto.Set("count", int64(0))

	s := NewStruct(proto)
	s.Set("count", int64(5))

	if v, _ := s.Get("count"); v != int64(5) {
		t.Fatalf("expected own write to shadow prototype, got %v", v)
	}
	if v, _ := proto.Get("count"); v != int64(0) {
		t.Fatalf("expected prototype to be unaffected by receiver write, got %v", v)
	}
}

func TestConstantPoolDeduplicates(t *testing.T) {
	pool := NewConstantPool()
	first := pool.AddString("hello")
	second := pool.AddString("hello")
	if first != second {
		t.Fatalf("expected duplicate string to reuse index, got %d and %d", first, second)
	}
	if len(pool.Strings) != 1 {
		t.Fatalf("expected pool to hold 1 string, got %d", len(pool.Strings))
	}
}

func TestInstanceGetWalksSuperclassNamespaceChain(t *testing.T) {
	base := &Class{Name: "Base"}
	derived := &Class{Name: "Derived", Super: base}

	baseNs := NewNamespace(nil)
	baseNs.Define(&Declaration{Name: "x", Value: int64(3)})

	derivedNs := NewNamespace(nil)
	derivedNs.Super = baseNs
	derivedNs.Define(&Declaration{Name: "y", Value: int64(6)})

	inst := &Instance{Class: derived, Namespace: derivedNs}

	if v, ok := inst.Get("y"); !ok || v != int64(6) {
		t.Fatalf("expected y=6, got %v, %v", v, ok)
	}
	if v, ok := inst.Get("x"); !ok || v != int64(3) {
		t.Fatalf("expected inherited x=3, got %v, %v", v, ok)
	}
}
