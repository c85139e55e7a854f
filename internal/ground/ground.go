// Package ground is the grounder of spec.md §4.3: it turns a domain's
// preprocessed actions into a fully propositional strips.Task by computing
// the reachable-fact fixed point and emitting one ground operator per
// applicable (action, binding) pair.
//
// The unify-a-fact-with-tree expansion described in spec §4.3.1 is, in
// effect, a join over precondition atoms against a growing fact table; this
// implementation expresses that join directly (match each precondition atom
// against the current reachable/static tuples, narrowing the candidate
// parameter binding left to right) instead of materializing an explicit
// tree of partially-bound nodes, the same simplification the teacher's
// NFA.ToDFA subset construction makes over an explicit product-automaton
// structure (internal/ictiobus/automaton/nfa.go): fold the search into the
// recursion rather than building an intermediate graph of it.
package ground

import (
	"fmt"
	"sort"
	"strings"

	"github.com/keelform/stripsground/internal/diag"
	"github.com/keelform/stripsground/internal/fo"
	"github.com/keelform/stripsground/internal/normalize"
	"github.com/keelform/stripsground/internal/preproc"
	"github.com/keelform/stripsground/internal/strips"
	"github.com/keelform/stripsground/internal/util"
)

// reachable tracks the growing set of ground dynamic atoms discovered during
// the fixed point, indexed both by full key (membership test) and by
// predicate (join candidates).
type reachable struct {
	present map[string]bool
	byPred  map[string][][]string
}

func newReachable() *reachable {
	return &reachable{present: map[string]bool{}, byPred: map[string][][]string{}}
}

func atomKey(pred string, args []string) string {
	return pred + "(" + strings.Join(args, ",") + ")"
}

func (r *reachable) has(pred string, args []string) bool {
	return r.present[atomKey(pred, args)]
}

// add returns true if the atom was not already known.
func (r *reachable) add(pred string, args []string) bool {
	k := atomKey(pred, args)
	if r.present[k] {
		return false
	}
	r.present[k] = true
	r.byPred[pred] = append(r.byPred[pred], append([]string(nil), args...))
	return true
}

// Grounder holds the fixed, read-only context a Ground call needs.
type Grounder struct {
	Domain  *fo.Domain
	Problem *fo.Problem
	Diag    *diag.Diagnostics
}

// Ground runs the full pipeline stage: normalise every action and the goal,
// split preconditions/effects into preproc.Actions, then compute the
// reachable-fact fixed point and emit ground operators (spec §4.3.2-§4.3.4).
// If the goal is unreachable even under the delete relaxation (every
// positive effect kept, spec §4.3.5), it returns the canonical unsolvable
// skeleton instead of a populated task.
func (g *Grounder) Ground() (*strips.Task, error) {
	static := normalize.BuildStaticFacts(g.Problem.Init, g.Domain.Predicates)
	nz := &normalize.Normalizer{Objects: g.Problem.Objects, Preds: g.Domain.Predicates, Static: static, Diag: g.Diag}

	var preActions []*preproc.Action
	for _, act := range g.Domain.Actions {
		pre, err := nz.Normalize(act.Pre, act.Params, nil)
		if err != nil {
			return nil, fmt.Errorf("ground: normalising precondition of %s: %w", act.Name, err)
		}
		eff, err := nz.Normalize(act.Eff, act.Params, nil)
		if err != nil {
			return nil, fmt.Errorf("ground: normalising effect of %s: %w", act.Name, err)
		}
		built, err := preproc.Build(fo.Action{Name: act.Name, Params: act.Params, Pre: pre, Eff: eff})
		if err != nil {
			return nil, fmt.Errorf("ground: preprocessing %s: %w", act.Name, err)
		}
		preActions = append(preActions, built...)
	}

	goal, err := nz.Normalize(g.Problem.Goal, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("ground: normalising goal: %w", err)
	}

	re := newReachable()
	seedInit(re, g.Problem.Init, g.Domain.Predicates)

	task := strips.NewTask()
	factID := map[string]int{}
	getFact := func(pred string, args []string) int {
		k := atomKey(pred, args)
		if id, ok := factID[k]; ok {
			return id
		}
		id := task.AddFact(printName(pred, args), k)
		factID[k] = id
		return id
	}
	for k := range re.present {
		// seed the fact table with every initial dynamic atom so init-only
		// facts referenced by the goal still get an id even if no operator
		// ever adds them.
		pred, args := splitKey(k)
		getFact(pred, args)
	}

	type opKey struct {
		name    string
		binding string
	}
	emitted := map[opKey]bool{}

	for {
		changed := false
		for _, a := range preActions {
			for _, binding := range g.candidateBindings(a, re, static) {
				if !g.filters(a, binding, re, static) {
					continue
				}
				key := opKey{name: a.Name, binding: strings.Join(binding, ",")}
				addedFact := false
				for _, atom := range a.AddEff {
					args := resolveArgs(atom.Args, binding)
					if re.add(atom.Pred, args) {
						addedFact = true
					}
				}
				for _, child := range a.Children {
					for _, atom := range child.AddEff {
						args := resolveArgs(atom.Args, binding)
						if re.add(atom.Pred, args) {
							addedFact = true
						}
					}
				}
				if addedFact {
					changed = true
				}
				if emitted[key] {
					continue
				}
				emitted[key] = true
				op, ok := g.instantiate(a, binding, getFact)
				if ok {
					task.AddOperator(op)
				}
			}
		}
		if !changed {
			break
		}
	}

	if !evalGoal(goal, re, static) {
		g.Diag.Info(diag.Location{}, "goal is unreachable under the delete relaxation; emitting unsolvable skeleton")
		return strips.UnsolvableSkeleton(), nil
	}

	task.Init = groundInitFacts(g.Problem.Init, g.Domain.Predicates, getFact)
	task.Goal = groundGoalFacts(goal, getFact)

	if err := task.CheckInvariants(); err != nil {
		return nil, fmt.Errorf("ground: %w", err)
	}
	return task, nil
}

func printName(pred string, args []string) string {
	if len(args) == 0 {
		return pred
	}
	return pred + "(" + strings.Join(args, ",") + ")"
}

func splitKey(k string) (string, []string) {
	i := strings.IndexByte(k, '(')
	pred := k[:i]
	inner := k[i+1 : len(k)-1]
	if inner == "" {
		return pred, nil
	}
	return pred, strings.Split(inner, ",")
}

func seedInit(re *reachable, init fo.Cond, preds *fo.PredicateTable) {
	init.Walk(func(c fo.Cond) {
		if c.Kind != fo.KindAtom || c.Neg {
			return
		}
		p, ok := preds.Get(c.Pred)
		if ok && p.Static() {
			return // static facts live in the StaticFacts table, not here
		}
		args := make([]string, len(c.Args))
		for i, a := range c.Args {
			args[i] = a.Object
		}
		re.add(c.Pred, args)
	})
}

func groundInitFacts(init fo.Cond, preds *fo.PredicateTable, getFact func(string, []string) int) util.IntSet {
	out := util.NewIntSet()
	init.Walk(func(c fo.Cond) {
		if c.Kind != fo.KindAtom || c.Neg {
			return
		}
		p, ok := preds.Get(c.Pred)
		if ok && p.Static() {
			return
		}
		args := make([]string, len(c.Args))
		for i, a := range c.Args {
			args[i] = a.Object
		}
		out.Add(getFact(c.Pred, args))
	})
	return out
}

// candidateBindings enumerates every parameter assignment (object names,
// indexed by the action's parameter position) that satisfies the atoms in
// a.Pre via a left-to-right join, then fills in any parameter that never
// appears in a.Pre by enumerating its full type extent (spec §4.3.2's
// "static phase": parameters unconstrained by a positive precondition are
// instantiated against the type's object extent directly).
func (g *Grounder) candidateBindings(a *preproc.Action, re *reachable, static *normalize.StaticFacts) [][]string {
	binding := make([]string, a.MaxArgSize)
	var out [][]string
	g.join(a, a.Pre, 0, binding, re, static, &out)
	if len(out) == 0 && len(a.Pre) == 0 {
		out = g.fillFreeParams(a, binding)
	}
	return out
}

func (g *Grounder) join(a *preproc.Action, atoms []preproc.Atom, i int, binding []string, re *reachable, static *normalize.StaticFacts, out *[][]string) {
	if i == len(atoms) {
		complete := g.fillFreeParams(a, binding)
		*out = append(*out, complete...)
		return
	}
	atom := atoms[i]
	var tuples [][]string
	if p, ok := g.Domain.Predicates.Get(atom.Pred); ok && p.Static() {
		tuples = static.Tuples(atom.Pred)
	} else {
		tuples = re.byPred[atom.Pred]
	}
	for _, tuple := range tuples {
		if len(tuple) != len(atom.Args) {
			continue
		}
		trial := append([]string(nil), binding...)
		ok := true
		for j, term := range atom.Args {
			if term.IsParam {
				if trial[term.Param] == "" {
					if !g.typeOK(a, term.Param, tuple[j]) {
						ok = false
						break
					}
					trial[term.Param] = tuple[j]
				} else if trial[term.Param] != tuple[j] {
					ok = false
					break
				}
			} else if term.Object != tuple[j] {
				ok = false
				break
			}
		}
		if !ok {
			continue
		}
		g.join(a, atoms, i+1, trial, re, static, out)
	}
}

func (g *Grounder) typeOK(a *preproc.Action, paramIdx int, obj string) bool {
	if paramIdx < 0 || paramIdx >= len(a.ParamTypes) {
		return true
	}
	return g.Problem.Objects.HasType(obj, a.ParamTypes[paramIdx])
}

// fillFreeParams enumerates the type extent for every still-unbound
// parameter position, returning the cross product of bindings.
func (g *Grounder) fillFreeParams(a *preproc.Action, binding []string) [][]string {
	out := [][]string{append([]string(nil), binding...)}
	for idx, t := range a.ParamTypes {
		if binding[idx] != "" {
			continue
		}
		extent := append([]string(nil), g.Problem.Objects.Extent(t)...)
		sort.Strings(extent)
		if len(extent) == 0 {
			return nil
		}
		var next [][]string
		for _, partial := range out {
			for _, obj := range extent {
				b := append([]string(nil), partial...)
				b[idx] = obj
				next = append(next, b)
			}
		}
		out = next
	}
	return out
}

// filters re-checks the PreNegStatic and PreEq lists that candidateBindings
// does not fold into the join (spec §4.3.3): negative atoms over a static
// predicate must be absent from the initial state; negative atoms over a
// dynamic predicate fall back to the predicate's negation twin if one was
// synthesised, or are treated as an unconstrained over-approximation with a
// diagnostic warning otherwise (see DESIGN.md's resolution of the open
// question on twin classification).
func (g *Grounder) filters(a *preproc.Action, binding []string, re *reachable, static *normalize.StaticFacts) bool {
	for _, atom := range a.PreNegStatic {
		args := resolveArgs(atom.Args, binding)
		p, ok := g.Domain.Predicates.Get(atom.Pred)
		if ok && p.Static() {
			if static.Has(atom.Pred, args) {
				return false
			}
			continue
		}
		if ok && p.NegOf != "" {
			if !re.has(p.NegOf, args) {
				return false
			}
			continue
		}
		g.Diag.Warn(diag.Location{}, "action %s: negative precondition over dynamic predicate %s has no negation twin; grounding optimistically", a.Name, atom.Pred)
	}
	for _, eq := range a.PreEq {
		l := resolveTerm(eq.Left, binding)
		r := resolveTerm(eq.Right, binding)
		if (l == r) == eq.Neg {
			return false
		}
	}
	return true
}

func resolveArgs(args []fo.Term, binding []string) []string {
	out := make([]string, len(args))
	for i, a := range args {
		out[i] = resolveTerm(a, binding)
	}
	return out
}

func resolveTerm(t fo.Term, binding []string) string {
	if t.IsParam {
		if t.Param < 0 || t.Param >= len(binding) {
			return ""
		}
		return binding[t.Param]
	}
	return t.Object
}

// instantiate builds the ground operator for one (action, binding) pair,
// including any grounded (when ...) children as strips.CondEff entries
// (spec §4.3.3/§4.3.4).
func (g *Grounder) instantiate(a *preproc.Action, binding []string, getFact func(string, []string) int) (strips.Operator, bool) {
	name := a.Name
	if len(binding) > 0 {
		name = fmt.Sprintf("%s(%s)", a.Name, strings.Join(binding, ","))
	}
	op := strips.Operator{Name: name, Cost: operatorCost(a, binding)}
	for _, atom := range a.Pre {
		if p, ok := g.Domain.Predicates.Get(atom.Pred); ok && p.Static() {
			continue // static preconditions are structural constraints, not state facts
		}
		op.Pre = append(op.Pre, getFact(atom.Pred, resolveArgs(atom.Args, binding)))
	}
	for _, atom := range a.AddEff {
		op.Add = append(op.Add, getFact(atom.Pred, resolveArgs(atom.Args, binding)))
	}
	for _, atom := range a.DelEff {
		op.Del = append(op.Del, getFact(atom.Pred, resolveArgs(atom.Args, binding)))
	}
	op.Pre = dedupSorted(op.Pre)
	op.Add = dedupSorted(op.Add)
	op.Del = dedupSorted(op.Del)

	for _, child := range a.Children {
		ce := strips.CondEff{}
		localPre, localNegStatic, _ := child.LocalPrecondition()
		for _, atom := range localPre {
			if p, ok := g.Domain.Predicates.Get(atom.Pred); ok && p.Static() {
				continue
			}
			ce.Pre = append(ce.Pre, getFact(atom.Pred, resolveArgs(atom.Args, binding)))
		}
		_ = localNegStatic
		for _, atom := range child.AddEff {
			ce.Add = append(ce.Add, getFact(atom.Pred, resolveArgs(atom.Args, binding)))
		}
		for _, atom := range child.DelEff {
			ce.Del = append(ce.Del, getFact(atom.Pred, resolveArgs(atom.Args, binding)))
		}
		op.CondEff = append(op.CondEff, ce)
	}
	return op, true
}

func operatorCost(a *preproc.Action, binding []string) int {
	cost := 1
	for _, inc := range a.Increase {
		if inc.LValue == "total-cost" && inc.Value.IsNumber {
			cost = int(inc.Value.Number)
		}
	}
	return cost
}

func dedupSorted(ids []int) []int {
	seen := map[int]bool{}
	out := ids[:0]
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	sort.Ints(out)
	return out
}

// evalGoal checks the normalised goal condition against the fixed point's
// reachable facts (dynamic) plus the static table, i.e. the monotonic
// delete-relaxation test of spec §4.3.5: if the goal cannot hold even when
// no fact is ever removed, the task is unsolvable regardless of operator
// ordering.
func evalGoal(c fo.Cond, re *reachable, static *normalize.StaticFacts) bool {
	switch c.Kind {
	case fo.KindBool:
		return c.BoolValue
	case fo.KindAnd:
		for _, ch := range c.Children {
			if !evalGoal(ch, re, static) {
				return false
			}
		}
		return true
	case fo.KindOr:
		for _, ch := range c.Children {
			if evalGoal(ch, re, static) {
				return true
			}
		}
		return false
	case fo.KindAtom:
		args := make([]string, len(c.Args))
		for i, a := range c.Args {
			args[i] = a.Object
		}
		has := re.has(c.Pred, args) || static.Has(c.Pred, args)
		return has != c.Neg
	default:
		return true
	}
}

func groundGoalFacts(c fo.Cond, getFact func(string, []string) int) util.IntSet {
	out := util.NewIntSet()
	var walk func(fo.Cond)
	walk = func(c fo.Cond) {
		switch c.Kind {
		case fo.KindAnd:
			for _, ch := range c.Children {
				walk(ch)
			}
		case fo.KindAtom:
			if c.Neg {
				return
			}
			args := make([]string, len(c.Args))
			for i, a := range c.Args {
				args[i] = a.Object
			}
			out.Add(getFact(c.Pred, args))
		}
	}
	walk(c)
	return out
}
