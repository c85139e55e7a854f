// Package normalize implements the condition normaliser of spec.md §4.1:
// quantifier expansion, implication removal, negation push-down, static-atom
// evaluation against the initial state, boolean absorption, and the DNF
// rewrite that puts an OR-of-ANDs at the top of every precondition.
//
// The recursive, kind-switching shape here is the "fold recursion" the
// teacher's tagged unions enable (see DESIGN.md and fo.Cond's doc comment) —
// structurally the same shape as the teacher's NFA.ToDFA subset-construction
// loop (internal/ictiobus/automaton/nfa.go): a fixed worklist transform
// applied bottom-up until no node changes shape.
package normalize

import (
	"sort"

	"github.com/keelform/stripsground/internal/diag"
	"github.com/keelform/stripsground/internal/fo"
)

// StaticFacts is a lookup of which ground atoms hold in the initial state,
// keyed by "pred(arg1,arg2,...)" with concrete object names — used by rule
// (c) of spec §4.1 to evaluate static-predicate atoms at normalisation time.
type StaticFacts struct {
	present map[string]bool
	// byPred indexes ground atoms by predicate name so a partially-grounded
	// negative atom can be tested for "no matching grounded atom exists".
	byPred map[string][][]string
}

func NewStaticFacts() *StaticFacts {
	return &StaticFacts{present: map[string]bool{}, byPred: map[string][][]string{}}
}

func key(pred string, args []string) string {
	s := pred + "("
	for i, a := range args {
		if i > 0 {
			s += ","
		}
		s += a
	}
	return s + ")"
}

func (sf *StaticFacts) Add(pred string, args []string) {
	sf.present[key(pred, args)] = true
	sf.byPred[pred] = append(sf.byPred[pred], append([]string(nil), args...))
}

func (sf *StaticFacts) Has(pred string, args []string) bool {
	return sf.present[key(pred, args)]
}

// Tuples returns every recorded argument tuple for pred, used by the
// grounder's join evaluation to enumerate candidate bindings for a static
// precondition atom without re-deriving them from the initial state.
func (sf *StaticFacts) Tuples(pred string) [][]string {
	return sf.byPred[pred]
}

// AnyMatch reports whether some recorded tuple for pred matches args at
// every position where args[i] != "" (the wildcard), used for partially
// grounded negative atoms (spec §4.1 rule c).
func (sf *StaticFacts) AnyMatch(pred string, args []string) bool {
	for _, tuple := range sf.byPred[pred] {
		if len(tuple) != len(args) {
			continue
		}
		ok := true
		for i := range args {
			if args[i] != "" && args[i] != tuple[i] {
				ok = false
				break
			}
		}
		if ok {
			return true
		}
	}
	return false
}

// BuildStaticFacts scans a ground init condition (AND of ATOM/ASSIGN) for
// every atom over a static predicate (Static() == true) and records it.
func BuildStaticFacts(init fo.Cond, preds *fo.PredicateTable) *StaticFacts {
	sf := NewStaticFacts()
	init.Walk(func(c fo.Cond) {
		if c.Kind != fo.KindAtom || c.Neg {
			return
		}
		p, ok := preds.Get(c.Pred)
		if !ok || !p.Static() {
			return
		}
		args := make([]string, len(c.Args))
		for i, a := range c.Args {
			args[i] = a.Object
		}
		sf.Add(c.Pred, args)
	})
	return sf
}

// Binding resolves a ParamTerm to a concrete object name within the
// enclosing parameter list being normalised (nil entry means unbound).
type Binding []string

func (b Binding) resolve(t fo.Term) (string, bool) {
	if !t.IsParam {
		return t.Object, true
	}
	if t.Param < 0 || t.Param >= len(b) || b[t.Param] == "" {
		return "", false
	}
	return b[t.Param], true
}

// Normalizer holds the shared read-only context every Normalize call needs:
// the object table (for quantifier extents), the predicate table (for
// static-ness and substitutive equality), and the static-fact table.
type Normalizer struct {
	Objects *fo.ObjectTable
	Preds   *fo.PredicateTable
	Static  *StaticFacts
	Diag    *diag.Diagnostics
}

// Normalize rewrites c into the canonical form of spec §4.1, relative to an
// enclosing action's parameter vector (used to resolve quantifier extents
// and equality substitution); binding carries any already-substituted
// parameter values (nil initially).
func (nz *Normalizer) Normalize(c fo.Cond, params []fo.ActionParam, binding Binding) (fo.Cond, error) {
	if binding == nil && len(params) > 0 {
		binding = make(Binding, len(params))
	}
	return nz.norm(c, params, binding)
}

func (nz *Normalizer) norm(c fo.Cond, params []fo.ActionParam, binding Binding) (fo.Cond, error) {
	switch c.Kind {
	case fo.KindBool:
		return c, nil

	case fo.KindAtom:
		return nz.normAtom(c, binding)

	case fo.KindAssign, fo.KindIncrease:
		return c, nil // numeric/object-fluent effects pass through unchanged

	case fo.KindImply:
		// rule (b): rewrite (or (not L) R) unless L is a conjunction of
		// static atoms (in which case it's cheaper to leave it as a guard
		// resolved entirely at grounding time via pre_neg_static); this
		// implementation always rewrites for uniformity and lets rule (c)
		// fold static atoms away immediately after.
		left, err := nz.norm(*c.Left, params, binding)
		if err != nil {
			return fo.Cond{}, err
		}
		right, err := nz.norm(*c.Right, params, binding)
		if err != nil {
			return fo.Cond{}, err
		}
		notLeft, err := negate(left)
		if err != nil {
			return fo.Cond{}, err
		}
		return nz.norm(fo.Or(notLeft, right), params, binding)

	case fo.KindForall, fo.KindExists:
		extent := nz.Objects.Extent(c.QuantParam.Type)
		sort.Strings(extent)
		combine := fo.And
		if c.Kind == fo.KindExists {
			combine = fo.Or
		}
		if len(extent) == 0 {
			// rule (a): falls back to the absorbing element for empty extent.
			return fo.BoolLit(c.Kind == fo.KindForall), nil
		}
		var instances []fo.Cond
		for _, obj := range extent {
			body := substituteQuantVar(*c.Body, obj)
			nb, err := nz.norm(body, params, binding)
			if err != nil {
				return fo.Cond{}, err
			}
			instances = append(instances, nb)
		}
		combined := combine(instances...)
		return nz.norm(combined, params, binding)

	case fo.KindWhen:
		pre, err := nz.norm(*c.When, params, binding)
		if err != nil {
			return fo.Cond{}, err
		}
		eff, err := nz.norm(*c.Eff, params, binding)
		if err != nil {
			return fo.Cond{}, err
		}
		return fo.Cond{Kind: fo.KindWhen, When: &pre, Eff: &eff}, nil

	case fo.KindAnd, fo.KindOr:
		children := make([]fo.Cond, 0, len(c.Children))
		for _, ch := range c.Children {
			nc, err := nz.norm(ch, params, binding)
			if err != nil {
				return fo.Cond{}, err
			}
			children = append(children, nc)
		}
		folded := absorb(c.Kind, children)
		if folded.Kind != c.Kind {
			return folded, nil
		}
		return dnf(folded), nil

	default:
		return c, nil
	}
}

// substituteQuantVar replaces every ParamTerm referencing the single
// just-bound quantifier variable (always index 0 relative to a fresh,
// single-parameter scope constructed by the loader — see pddlast.loadCond)
// with a concrete ObjectTerm.
func substituteQuantVar(c fo.Cond, obj string) fo.Cond {
	return rewriteTerms(c.Clone(), obj)
}

func rewriteTerms(c fo.Cond, obj string) fo.Cond {
	switch c.Kind {
	case fo.KindAtom:
		args := make([]fo.Term, len(c.Args))
		for i, a := range c.Args {
			if a.IsParam && a.Param == 0 {
				args[i] = fo.ObjectTerm(obj)
			} else if a.IsParam {
				args[i] = fo.ParamTerm(a.Param - 1)
			} else {
				args[i] = a
			}
		}
		c.Args = args
		return c
	case fo.KindAnd, fo.KindOr:
		children := make([]fo.Cond, len(c.Children))
		for i, ch := range c.Children {
			children[i] = rewriteTerms(ch, obj)
		}
		c.Children = children
		return c
	case fo.KindForall, fo.KindExists:
		body := rewriteTerms(*c.Body, obj)
		c.Body = &body
		return c
	case fo.KindWhen:
		w := rewriteTerms(*c.When, obj)
		e := rewriteTerms(*c.Eff, obj)
		c.When, c.Eff = &w, &e
		return c
	case fo.KindImply:
		l := rewriteTerms(*c.Left, obj)
		r := rewriteTerms(*c.Right, obj)
		c.Left, c.Right = &l, &r
		return c
	default:
		return c
	}
}

// negate pushes negation down to an atom-only level (rule: structural error
// to negate a when/assign, spec §4.1 failure semantics).
func negate(c fo.Cond) (fo.Cond, error) {
	switch c.Kind {
	case fo.KindAtom:
		return c.Negated(), nil
	case fo.KindBool:
		return fo.BoolLit(!c.BoolValue), nil
	case fo.KindAnd:
		children := make([]fo.Cond, len(c.Children))
		for i, ch := range c.Children {
			nc, err := negate(ch)
			if err != nil {
				return fo.Cond{}, err
			}
			children[i] = nc
		}
		return fo.Or(children...), nil
	case fo.KindOr:
		children := make([]fo.Cond, len(c.Children))
		for i, ch := range c.Children {
			nc, err := negate(ch)
			if err != nil {
				return fo.Cond{}, err
			}
			children[i] = nc
		}
		return fo.And(children...), nil
	case fo.KindForall:
		body, err := negate(*c.Body)
		if err != nil {
			return fo.Cond{}, err
		}
		return fo.Cond{Kind: fo.KindExists, QuantParam: c.QuantParam, Body: &body}, nil
	case fo.KindExists:
		body, err := negate(*c.Body)
		if err != nil {
			return fo.Cond{}, err
		}
		return fo.Cond{Kind: fo.KindForall, QuantParam: c.QuantParam, Body: &body}, nil
	default:
		return fo.Cond{}, diag.Semantic(diag.Location{}, "cannot negate condition of kind %s", c.Kind)
	}
}

// normAtom implements rule (c): evaluate a static-predicate atom against the
// initial state, and rule (h): propagate an equality bound to a concrete
// object. Non-static atoms and "=" atoms with no concrete binding pass
// through unchanged (handled later by the preprocessed-action builder).
func (nz *Normalizer) normAtom(c fo.Cond, binding Binding) (fo.Cond, error) {
	resolved := make([]string, len(c.Args))
	allGround := true
	for i, a := range c.Args {
		v, ok := binding.resolve(a)
		resolved[i] = v
		if !ok {
			allGround = false
		}
	}

	if c.Pred == "=" {
		if allGround {
			return fo.BoolLit((resolved[0] == resolved[1]) != c.Neg), nil
		}
		return c, nil
	}

	p, ok := nz.Preds.Get(c.Pred)
	if !ok || !p.Static() || nz.Static == nil {
		return c, nil
	}

	if allGround {
		has := nz.Static.Has(c.Pred, resolved)
		return fo.BoolLit(has != c.Neg), nil
	}
	if c.Neg {
		// rule (c): negative partially-grounded atom -> false iff no
		// matching grounded atom exists in init.
		if !nz.Static.AnyMatch(c.Pred, resolved) {
			return fo.BoolLit(true), nil
		}
	}
	return c, nil
}

// absorb implements rule (d): boolean absorption and flattening for a flat
// AND/OR node whose children have already been normalised.
func absorb(kind fo.Kind, children []fo.Cond) fo.Cond {
	absorbing := kind == fo.KindAnd // AND absorbs at `false`; OR absorbs at `true`
	absorbingVal := false
	if kind == fo.KindOr {
		absorbingVal = true
	}
	identityVal := !absorbingVal

	var flat []fo.Cond
	for _, ch := range children {
		if ch.Kind == fo.KindBool {
			if ch.BoolValue == absorbingVal {
				return fo.BoolLit(absorbingVal)
			}
			if ch.BoolValue == identityVal {
				continue // identity element, drop
			}
		}
		if ch.Kind == kind {
			flat = append(flat, ch.Children...)
		} else {
			flat = append(flat, ch)
		}
	}
	_ = absorbing

	// rule (f)/(g): dedupe atoms and detect conflicting literals among the
	// flat atom children (non-atom children are left as-is for dedup
	// purposes, compared structurally).
	flat = dedupeAndCheckConflict(kind, flat)
	if len(flat) == 1 {
		return flat[0]
	}
	if len(flat) == 0 {
		return fo.BoolLit(identityVal)
	}
	return fo.Cond{Kind: kind, Children: flat}
}

func atomSig(c fo.Cond) (string, bool) {
	if c.Kind != fo.KindAtom {
		return "", false
	}
	s := c.Pred + "("
	for i, a := range c.Args {
		if i > 0 {
			s += ","
		}
		s += a.String()
	}
	s += ")"
	return s, true
}

// dedupeAndCheckConflict removes duplicate atoms and, if two complementary
// atom literals appear in the same flat list, collapses an AND to false or
// strips the pair from an OR (rule g).
func dedupeAndCheckConflict(kind fo.Kind, flat []fo.Cond) []fo.Cond {
	seenPos := map[string]bool{}
	seenNeg := map[string]bool{}
	var out []fo.Cond
	conflict := false

	for _, ch := range flat {
		sig, isAtom := atomSig(ch)
		if !isAtom {
			out = append(out, ch)
			continue
		}
		if ch.Neg {
			if seenPos[sig] {
				conflict = true
			}
			if seenNeg[sig] {
				continue
			}
			seenNeg[sig] = true
		} else {
			if seenNeg[sig] {
				conflict = true
			}
			if seenPos[sig] {
				continue
			}
			seenPos[sig] = true
		}
		out = append(out, ch)
	}

	if conflict {
		if kind == fo.KindAnd {
			return []fo.Cond{fo.BoolLit(false)}
		}
		// OR: strip the conflicting pair entirely (spec: "are stripped from
		// OR"); since the pair is tautological it's equivalent to dropping
		// it from consideration, which for an OR branch means true overall
		// only if it was the sole content -- conservatively keep the rest.
		var stripped []fo.Cond
		for _, ch := range out {
			sig, isAtom := atomSig(ch)
			if isAtom && seenPos[sig] && seenNeg[sig] {
				continue
			}
			stripped = append(stripped, ch)
		}
		if len(stripped) == 0 {
			return []fo.Cond{fo.BoolLit(true)}
		}
		return stripped
	}

	return out
}

// dnf implements rule (e): push disjunctions above conjunctions so an
// AND's direct OR children get distributed outward. Only the top level of a
// precondition needs full DNF per spec §3.1's invariant ("root of a
// precondition is AND-of-atoms" after splitting, see preproc); this pass
// handles one distribution step and relies on the caller re-normalising
// (norm already recurses bottom-up, so repeated application reaches the
// fixed point described in spec §8 "normalising an already-normalised
// condition is a fixed point").
func dnf(c fo.Cond) fo.Cond {
	if c.Kind != fo.KindAnd {
		return c
	}
	// find the first OR child, if any
	orIdx := -1
	for i, ch := range c.Children {
		if ch.Kind == fo.KindOr {
			orIdx = i
			break
		}
	}
	if orIdx == -1 {
		return c
	}
	orNode := c.Children[orIdx]
	rest := append(append([]fo.Cond(nil), c.Children[:orIdx]...), c.Children[orIdx+1:]...)
	var branches []fo.Cond
	for _, disjunct := range orNode.Children {
		combined := append(append([]fo.Cond(nil), rest...), disjunct)
		branches = append(branches, dnf(absorb(fo.KindAnd, combined)))
	}
	return absorb(fo.KindOr, branches)
}
