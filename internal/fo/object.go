package fo

// Object is a named first-order constant: an operand that can fill a typed
// parameter slot. Objects are declared once per domain/problem pair and
// referenced by name everywhere else in this package.
type Object struct {
	Name       string
	Type       string // a Type name, possibly an either-type
	IsConstant bool
	IsPrivate  bool
	Owner      string // object name, empty if none
	IsAgent    bool
}

// ObjectTable is the set of declared objects, indexed by name and by the
// plain type they belong to (used heavily by the normaliser's forall/exists
// expansion and the grounder's type-checked unification).
type ObjectTable struct {
	types   *TypeTable
	byName  map[string]Object
	byPlain map[string][]string // plain type name -> object names of that exact declared type
}

func NewObjectTable(types *TypeTable) *ObjectTable {
	return &ObjectTable{types: types, byName: map[string]Object{}, byPlain: map[string][]string{}}
}

func (ot *ObjectTable) Declare(o Object) {
	ot.byName[o.Name] = o
	ot.byPlain[o.Type] = append(ot.byPlain[o.Type], o.Name)
}

func (ot *ObjectTable) Get(name string) (Object, bool) {
	o, ok := ot.byName[name]
	return o, ok
}

// Extent returns every declared object whose type is typeName or a descendant
// of it (so Extent("object") returns all objects). Within one underlying plain
// type the order is declaration order; the plain types themselves are visited
// in map iteration order, which is not defined, so callers that need a total
// order should sort the result.
func (ot *ObjectTable) Extent(typeName string) []string {
	var out []string
	for plain, names := range ot.byPlain {
		if ot.types.IsAncestor(typeName, plain) {
			out = append(out, names...)
		}
	}
	return out
}

// HasType reports whether object obj was declared with a type compatible
// with want (want is an ancestor of, or equal to, the object's declared
// type).
func (ot *ObjectTable) HasType(obj, want string) bool {
	o, ok := ot.byName[obj]
	if !ok {
		return false
	}
	return ot.types.IsAncestor(want, o.Type)
}
