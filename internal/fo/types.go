// Package fo is the first-order data model of the planning description:
// types, objects, predicates, functions, the condition tree, lifted actions,
// and the domain/problem pair that the grounder consumes (spec §3.1).
package fo

import "fmt"

// ObjectType is the built-in root of the type DAG. Every declared type is
// either object or has object as an eventual ancestor.
const ObjectType = "object"

// Type is a named, parented type. A type with len(Either) > 0 is an "either"
// composition: its extent is the union of the component types' extents and it
// has no single Parent (Parent is ignored for either types).
type Type struct {
	Name   string
	Parent string   // empty for object and for either-types
	Either []string // component type names; empty for a plain type
}

func (t Type) IsEither() bool { return len(t.Either) > 0 }

// TypeTable holds the type DAG rooted at object and answers ancestry and
// disjointness queries (spec §3.1: "two types are disjoint iff neither is an
// ancestor of the other, under the either-union").
type TypeTable struct {
	byName map[string]Type
}

func NewTypeTable() *TypeTable {
	tt := &TypeTable{byName: map[string]Type{}}
	tt.byName[ObjectType] = Type{Name: ObjectType}
	return tt
}

// Declare adds a plain (non-either) type. The parent must already exist.
func (tt *TypeTable) Declare(name, parent string) error {
	if parent == "" {
		parent = ObjectType
	}
	if _, ok := tt.byName[parent]; !ok {
		return fmt.Errorf("fo: declare type %q: unknown parent %q", name, parent)
	}
	tt.byName[name] = Type{Name: name, Parent: parent}
	return nil
}

// DeclareEither adds (or replaces) an either-type: the union of components.
func (tt *TypeTable) DeclareEither(name string, components []string) error {
	for _, c := range components {
		if _, ok := tt.byName[c]; !ok {
			return fmt.Errorf("fo: declare either-type %q: unknown component %q", name, c)
		}
	}
	tt.byName[name] = Type{Name: name, Either: append([]string(nil), components...)}
	return nil
}

func (tt *TypeTable) Get(name string) (Type, bool) {
	t, ok := tt.byName[name]
	return t, ok
}

func (tt *TypeTable) Has(name string) bool {
	_, ok := tt.byName[name]
	return ok
}

// componentsOf returns the set of plain (non-either) types whose union forms
// the extent of name: for a plain type that's {name}; for an either-type it
// recursively expands each component.
func (tt *TypeTable) componentsOf(name string) []string {
	t, ok := tt.byName[name]
	if !ok {
		return nil
	}
	if !t.IsEither() {
		return []string{name}
	}
	var out []string
	seen := map[string]bool{}
	for _, c := range t.Either {
		for _, leaf := range tt.componentsOf(c) {
			if !seen[leaf] {
				seen[leaf] = true
				out = append(out, leaf)
			}
		}
	}
	return out
}

// IsAncestor reports whether every leaf component of child has some leaf
// component of ancestor as an ancestor (or is that component itself) in the
// plain-type parent chain, so an either-type is an ancestor of each of its
// components.
func (tt *TypeTable) IsAncestor(ancestor, child string) bool {
	if ancestor == ObjectType {
		return true
	}
	ancLeaves := tt.componentsOf(ancestor)
	for _, leaf := range tt.componentsOf(child) {
		covered := false
		for _, a := range ancLeaves {
			covered = covered || tt.plainIsAncestor(a, leaf)
		}
		if !covered {
			return false
		}
	}
	return len(tt.componentsOf(child)) > 0
}

func (tt *TypeTable) plainIsAncestor(ancestor, leaf string) bool {
	cur := leaf
	for {
		if cur == ancestor {
			return true
		}
		t, ok := tt.byName[cur]
		if !ok || t.Parent == "" {
			return cur == ancestor
		}
		cur = t.Parent
	}
}

// Disjoint reports whether a and b share no extent: neither is an ancestor of
// the other under the either-union (spec §3.1).
func (tt *TypeTable) Disjoint(a, b string) bool {
	return !tt.IsAncestor(a, b) && !tt.IsAncestor(b, a)
}
