// Package search is the LAMA-style multi-queue best-first search fringe of
// spec.md §4.10, driven by a delete-relaxation heuristic (hFF/hAdd) computed
// over the grounded strips.Task.
package search

import (
	"sort"

	"github.com/keelform/stripsground/internal/strips"
	"github.com/keelform/stripsground/internal/util"
)

const unreached = 1 << 30

// RelaxedPlan is the result of one delete-relaxation exploration from a
// state: the additive cost estimate (hAdd), which also picks each fact's
// cheapest achiever, and the operator ids a relaxed plan extraction selected
// (hFF's basis and the source of LAMA's "preferred operators").
type RelaxedPlan struct {
	AddCost   int
	Operators []int // ids, in no particular causal order
	Reachable bool
}

// cheapestAchiever picks, among every operator that adds fact f, the one with
// the lowest already-computed additive cost estimate for its own
// preconditions (ties broken by lowest operator id for determinism).
func cheapestAchiever(f int, addCost []int, byFact map[int][]int, opCost []int) (int, bool) {
	ops, ok := byFact[f]
	if !ok {
		return 0, false
	}
	best, bestCost := -1, unreached
	for _, opID := range ops {
		c := opCost[opID]
		if c < bestCost || (c == bestCost && (best == -1 || opID < best)) {
			best, bestCost = opID, c
		}
	}
	return best, best != -1
}

// RelaxAndExtract computes the additive-cost relaxed planning graph from
// state (ignoring every delete effect), then extracts one relaxed plan by
// backchaining from the goal through each fact's cheapest achiever (the
// standard hFF extraction, spec §4.10's "delete-relaxation heuristic
// driving the fringe").
func RelaxAndExtract(task *strips.Task, state util.IntSet) RelaxedPlan {
	n := len(task.Facts)
	factCost := make([]int, n)
	for i := range factCost {
		factCost[i] = unreached
	}
	for _, f := range state.Elements() {
		if f >= 0 && f < n {
			factCost[f] = 0
		}
	}

	byFact := map[int][]int{}
	for _, op := range task.Operators {
		for _, a := range op.Add {
			byFact[a] = append(byFact[a], op.ID)
		}
	}

	opCost := make([]int, len(task.Operators))
	for i := range opCost {
		opCost[i] = unreached
	}

	changed := true
	for changed {
		changed = false
		for _, op := range task.Operators {
			c := 0
			ok := true
			for _, p := range op.Pre {
				if factCost[p] == unreached {
					ok = false
					break
				}
				c += factCost[p]
			}
			if !ok {
				continue
			}
			c += op.Cost
			if c < opCost[op.ID] {
				opCost[op.ID] = c
				changed = true
			}
			for _, a := range op.Add {
				if c < factCost[a] {
					factCost[a] = c
					changed = true
				}
			}
		}
	}

	goalCost := 0
	reachable := true
	for _, g := range util.SortedInts(task.Goal) {
		if factCost[g] == unreached {
			reachable = false
			break
		}
		goalCost += factCost[g]
	}
	if !reachable {
		return RelaxedPlan{AddCost: unreached, Reachable: false}
	}

	// backchain to extract a supporting operator set, deduped, in
	// deterministic (sorted) fact-first order so repeated calls on
	// equivalent states return the same preferred-operator set.
	usedOps := util.NewIntSet()
	visited := util.NewIntSet()
	var stack []int
	goals := util.SortedInts(task.Goal)
	sort.Ints(goals)
	stack = append(stack, goals...)
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if visited.Has(f) || state.Has(f) {
			continue
		}
		visited.Add(f)
		opID, ok := cheapestAchiever(f, factCost, byFact, opCost)
		if !ok {
			continue
		}
		usedOps.Add(opID)
		stack = append(stack, task.Operators[opID].Pre...)
	}

	return RelaxedPlan{AddCost: goalCost, Operators: util.SortedInts(usedOps), Reachable: true}
}
