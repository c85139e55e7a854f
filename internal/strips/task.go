// Package strips is the propositional (STRIPS-like) task model of spec.md
// §3.2: facts, ground operators, and the task that bundles them with an
// initial state and goal. It also implements the static-fact purge (§4.4)
// and the pure fact-renumbering reduction remove_facts (§3.3).
package strips

import (
	"fmt"
	"sort"

	"github.com/keelform/stripsground/internal/util"
)

// Fact is one propositional atom. Id is its position in the Task's fact
// table and is the only thing later stages reference (spec §9 "hash-consed
// identifiers": stable integer ids, never pointers).
type Fact struct {
	ID        int
	Name      string // canonical printable name, e.g. "at(a)"
	FromAtom  string // the ground atom string this was created from, or ""
	NegOf     int    // id of the fact this is a negation twin of, or -1
}

// CondEff is one conditional-effect branch of a ground operator: the
// condition that must hold in the state being transitioned out of, and the
// add/delete sets that fire when it does (spec §3.2).
type CondEff struct {
	Pre []int
	Add []int
	Del []int
}

// Operator is a fully grounded action: name, precondition, add/delete
// effects, integer cost, and optional conditional effects. The core
// invariant (pre ∩ add = ∅, del ⊆ pre ∪ prevail, add ∩ del = ∅) is checked
// by Task.CheckInvariants, not enforced structurally, so that a caller
// assembling operators incrementally (the grounder) can fix up a draft
// before finalizing it.
type Operator struct {
	ID      int
	Name    string
	Pre     []int
	Add     []int
	Del     []int
	Cost    int
	CondEff []CondEff
}

// Task is a complete propositional planning task (spec §3.2).
type Task struct {
	Facts     []Fact
	Operators []Operator
	Init      util.IntSet
	Goal      util.IntSet

	GoalUnreachable bool
	HasCondEff      bool
}

// NewTask returns an empty task ready for incremental construction by the
// grounder.
func NewTask() *Task {
	return &Task{Init: util.NewIntSet(), Goal: util.NewIntSet()}
}

// AddFact appends a new fact and returns its id.
func (t *Task) AddFact(name, fromAtom string) int {
	id := len(t.Facts)
	t.Facts = append(t.Facts, Fact{ID: id, Name: name, FromAtom: fromAtom, NegOf: -1})
	return id
}

// AddOperator appends a new ground operator and returns its id.
func (t *Task) AddOperator(op Operator) int {
	op.ID = len(t.Operators)
	if len(op.CondEff) > 0 {
		t.HasCondEff = true
	}
	t.Operators = append(t.Operators, op)
	return op.ID
}

// CheckInvariants validates spec §8's per-operator invariants:
// pre ∩ add = ∅, del ⊆ pre, add ∩ del = ∅ (prevail == pre here since this
// model has no separate "prevail" list: every non-deleted precondition atom
// is implicitly a prevail condition).
func (t *Task) CheckInvariants() error {
	for _, op := range t.Operators {
		pre := util.NewIntSet(op.Pre)
		add := util.NewIntSet(op.Add)
		del := util.NewIntSet(op.Del)
		for _, a := range op.Add {
			if pre.Has(a) {
				return fmt.Errorf("strips: operator %q: fact %d is both a precondition and an add effect", op.Name, a)
			}
		}
		for _, d := range op.Del {
			if !pre.Has(d) {
				return fmt.Errorf("strips: operator %q: delete effect %d is not a precondition", op.Name, d)
			}
			if add.Has(d) {
				return fmt.Errorf("strips: operator %q: fact %d is both an add and a delete effect", op.Name, d)
			}
		}
		_ = del
	}
	return nil
}

// Purge removes every fact id in dead and densely renumbers survivors,
// rewriting every operator/init/goal reference (spec §4.4 / §3.3). It is a
// pure renaming: the returned task is semantically identical over the
// surviving facts.
func (t *Task) Purge(dead util.ISet[int]) *Task {
	remap := make(map[int]int)
	var survivors []Fact
	for _, f := range t.Facts {
		if dead.Has(f.ID) {
			continue
		}
		newID := len(survivors)
		remap[f.ID] = newID
		nf := f
		nf.ID = newID
		survivors = append(survivors, nf)
	}
	for i := range survivors {
		if survivors[i].NegOf >= 0 {
			if nid, ok := remap[survivors[i].NegOf]; ok {
				survivors[i].NegOf = nid
			} else {
				survivors[i].NegOf = -1
			}
		}
	}

	remapSet := func(ids []int) []int {
		out := make([]int, 0, len(ids))
		for _, id := range ids {
			if nid, ok := remap[id]; ok {
				out = append(out, nid)
			}
		}
		sort.Ints(out)
		return out
	}

	out := &Task{Facts: survivors, GoalUnreachable: t.GoalUnreachable}
	out.Init = util.NewIntSet(remapSet(util.SortedInts(t.Init)))
	out.Goal = util.NewIntSet(remapSet(util.SortedInts(t.Goal)))

	for _, op := range t.Operators {
		nop := Operator{Name: op.Name, Cost: op.Cost}
		nop.Pre = remapSet(op.Pre)
		nop.Add = remapSet(op.Add)
		nop.Del = remapSet(op.Del)
		for _, ce := range op.CondEff {
			nop.CondEff = append(nop.CondEff, CondEff{
				Pre: remapSet(ce.Pre),
				Add: remapSet(ce.Add),
				Del: remapSet(ce.Del),
			})
		}
		// spec §3.3: "operators with empty add and empty delete after
		// reduction are deleted."
		if len(nop.Add) == 0 && len(nop.Del) == 0 && len(nop.CondEff) == 0 {
			continue
		}
		out.AddOperator(nop)
	}
	return out
}

// StaticPurge removes every fact whose predicate is static (i.e. it never
// appears as an add or delete effect of any operator, spec §4.4) and is not
// referenced by init/goal in a way that needs preserving for the dump; per
// spec.md §4.4 the purge only concerns facts with no producer/consumer in
// operator effects, so init/goal-only static facts that are never deleted
// (e.g. "adjacent(a,b)") still get purged, with the caller expected to have
// already folded any goal/precondition dependence on such facts into the
// ground operators' preconditions before grounding (the grounder does this
// via the static-fact table directly, never emitting a Fact for a predicate
// that stays static throughout, see internal/ground).
func (t *Task) StaticPurge(neverWrittenPredicate func(factID int) bool) *Task {
	dead := util.NewIntSet()
	for _, f := range t.Facts {
		if neverWrittenPredicate(f.ID) {
			dead.Add(f.ID)
		}
	}
	return t.Purge(dead)
}

// UnsolvableSkeleton replaces the operator set and initial/goal state with
// the canonical unsolvable task described by spec §4.3.5: a single
// unreachable goal fact and no operators.
func UnsolvableSkeleton() *Task {
	t := NewTask()
	g := t.AddFact("<unreachable>", "")
	t.Init = util.NewIntSet()
	t.Goal = util.NewIntSet([]int{g})
	t.GoalUnreachable = true
	return t
}
