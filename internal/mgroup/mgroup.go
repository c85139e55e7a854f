// Package mgroup infers mutually-exclusive fact groups: sets of facts of
// which exactly one holds in every reachable state (spec §4.7/§4.8's
// "lifted mutex groups", here worked directly over the grounded task).
//
// The lifted candidate-worklist procedure of spec §4.7 (per predicate
// argument position, treat that position as the counted variable and the
// rest of the argument tuple as fixed, group facts sharing the fixed tuple
// into one candidate, refine with the init-heavy/action-too-heavy/
// action-unbalanced oracles, then ground the survivors via a prefix tree
// per §4.8) is, at the grounded level, the same invariant a classic STRIPS
// mutex-group synthesis computes directly over ground operators: for a
// predicate with arity n, build one candidate per (counted position, fixed
// argument tuple) — e.g. at(?obj,?loc) yields one group per object (the
// fixed argument), each containing that object's possible locations (the
// counted argument) — then refine by checking each operator adds/deletes at
// most one member, and reject (not merely down-flag) any candidate where
// two different operators can independently make two different members
// true without a third operator ever clearing either (the fam-group
// invariant). This implementation works at the grounded level rather than
// building the lifted prefix tree, a simplification recorded in DESIGN.md;
// the refinement rules it applies are the same oracles spec §4.7 names.
package mgroup

import (
	"sort"
	"strconv"
	"strings"

	"github.com/keelform/stripsground/internal/strips"
	"github.com/keelform/stripsground/internal/util"
)

// Group is one inferred mutex group: a set of facts of which at most one
// (ExactlyOne: exactly one) holds in any reachable state.
type Group struct {
	Facts      []int
	ExactlyOne bool
	Static     bool // every member is never added/deleted by any operator (a degenerate, always-true group)
}

// splitArgs parses a ground fact name "pred(a,b,c)" into its predicate and
// argument vector ("pred", ["a","b","c"]); a nullary fact has a nil argument
// vector.
func splitArgs(name string) (string, []string) {
	i := strings.IndexByte(name, '(')
	if i < 0 {
		return name, nil
	}
	inner := name[i+1 : len(name)-1]
	if inner == "" {
		return name[:i], nil
	}
	return name[:i], strings.Split(inner, ",")
}

func fixedKey(args []string, counted int) string {
	return strings.Join(append(append([]string(nil), args[:counted]...), args[counted+1:]...), "\x1f")
}

// Infer builds the candidate groups. Spec §4.7 distinguishes, per predicate
// argument position, the "counted variable" (the position whose value is
// the thing being partitioned into an exactly-one group) from the "fixed"
// positions (the rest of the argument tuple, which selects WHICH group a
// fact belongs to): for at(?obj,?loc), ?loc is counted and ?obj is fixed, so
// every object gets its own exactly-one-location group, not one group
// merging every object's "at" facts by predicate name alone. At the
// grounded level this means: for each predicate and each argument position,
// partition that predicate's facts by the tuple of the OTHER argument
// values, and treat each partition (one per distinct fixed-value tuple) as
// its own candidate.
func Infer(task *strips.Task) []Group {
	type predFact struct {
		id   int
		args []string
	}
	byPred := map[string][]predFact{}
	arity := map[string]int{}
	for _, f := range task.Facts {
		p, args := splitArgs(f.Name)
		byPred[p] = append(byPred[p], predFact{id: f.ID, args: args})
		arity[p] = len(args)
	}

	var names []string
	for p := range byPred {
		names = append(names, p)
	}
	sort.Strings(names)

	var candidates [][]int
	for _, p := range names {
		facts := byPred[p]
		n := arity[p]
		if n == 0 {
			// nullary predicate: at most one ground fact exists, nothing to
			// partition.
			continue
		}
		if n == 1 {
			ids := make([]int, len(facts))
			for i, pf := range facts {
				ids[i] = pf.id
			}
			candidates = append(candidates, ids)
			continue
		}
		for counted := 0; counted < n; counted++ {
			byFixed := map[string][]int{}
			var order []string
			for _, pf := range facts {
				k := fixedKey(pf.args, counted)
				if _, ok := byFixed[k]; !ok {
					order = append(order, k)
				}
				byFixed[k] = append(byFixed[k], pf.id)
			}
			sort.Strings(order)
			for _, k := range order {
				candidates = append(candidates, byFixed[k])
			}
		}
	}

	var groups []Group
	for _, ids := range candidates {
		sort.Ints(ids)
		if len(ids) < 2 {
			continue
		}
		g := Group{Facts: ids}
		if refine(task, &g) {
			groups = append(groups, g)
		}
	}
	return dedupe(groups)
}

// dedupe drops groups that are exact duplicates of an earlier one: a
// counted-position choice and a nullary/unary predicate can both produce
// the same fact set (e.g. an arity-2 predicate that happens to behave
// symmetrically), and spec §5's determinism requirement wants one
// canonical entry per distinct group.
func dedupe(groups []Group) []Group {
	seen := map[string]bool{}
	var out []Group
	for _, g := range groups {
		parts := make([]string, len(g.Facts))
		for i, f := range g.Facts {
			parts[i] = strconv.Itoa(f)
		}
		key := strings.Join(parts, ",")
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, g)
	}
	return out
}

// refine applies the init-heavy, action-too-heavy, action-unbalanced and
// fam-group oracles of spec §4.7 to a single-predicate candidate and sets its
// ExactlyOne and Static flags. It never changes Facts: it returns false when
// an oracle rejects the candidate or when it has fewer than two facts.
func refine(task *strips.Task, g *Group) bool {
	members := util.NewIntSet(g.Facts)

	// init-heavy oracle: if the initial state already sets 2+ members true,
	// the candidate is not a mutex group at all and is rejected.
	initCount := 0
	for _, f := range g.Facts {
		if task.Init.Has(f) {
			initCount++
		}
	}
	if initCount > 1 {
		return false
	}

	written := util.NewIntSet()
	for _, op := range task.Operators {
		added := intersect(op.Add, members)
		// action-too-heavy oracle: an operator that adds 2+ members at once
		// can never preserve "at most one"; the whole candidate is void.
		if len(added) > 1 {
			return false
		}
		for _, a := range op.Add {
			if members.Has(a) {
				written.Add(a)
			}
		}
		for _, d := range op.Del {
			if members.Has(d) {
				written.Add(d)
			}
		}
		// action-unbalanced oracle: an operator that adds a member without
		// deleting any other member (or vice versa) forfeits the ExactlyOne
		// property (allBalanced below); whether the candidate survives at all
		// is decided by the fam-group oracle after this loop.
		_ = op
	}

	if written.Empty() && initCount <= 1 {
		g.Static = true
	}
	g.ExactlyOne = initCount == 1 && allBalanced(task, members)

	// fam-group oracle: even when the candidate isn't balanced enough to be
	// ExactlyOne, it must still hold the weaker invariant that no two
	// distinct members can ever both end up true at once. If two different
	// members can each be added by some operator without that operator
	// deleting any other member, two separate applications (one per
	// operator) reach a state with both members true and neither ever
	// cleared — e.g. two operators that each add a different flag(?x) and
	// delete nothing. That candidate isn't a mutex group in any sense and
	// must be rejected outright, not just down-flagged to ExactlyOne=false.
	if !g.Static && !g.ExactlyOne && len(soloAddable(task, members)) >= 2 {
		return false
	}
	return len(g.Facts) >= 2
}

// soloAddable returns the members an operator can add without deleting any
// other member of the group — the set of facts that can become true
// "for free" relative to the rest of the candidate.
func soloAddable(task *strips.Task, members util.IntSet) util.IntSet {
	out := util.NewIntSet()
	for _, op := range task.Operators {
		del := util.NewIntSet(op.Del)
		for _, a := range op.Add {
			if !members.Has(a) {
				continue
			}
			clearsAnother := false
			for _, m := range members.Elements() {
				if m != a && del.Has(m) {
					clearsAnother = true
					break
				}
			}
			if !clearsAnother {
				out.Add(a)
			}
		}
	}
	return out
}

// allBalanced reports whether every operator that adds a member of members
// also deletes exactly one other member of members (the exactly-one
// invariant's maintenance condition).
func allBalanced(task *strips.Task, members util.IntSet) bool {
	for _, op := range task.Operators {
		addedInGroup := 0
		for _, a := range op.Add {
			if members.Has(a) {
				addedInGroup++
			}
		}
		if addedInGroup == 0 {
			continue
		}
		deletedInGroup := 0
		for _, d := range op.Del {
			if members.Has(d) {
				deletedInGroup++
			}
		}
		if deletedInGroup != 1 {
			return false
		}
	}
	return true
}

func intersect(ids []int, s util.IntSet) []int {
	var out []int
	for _, id := range ids {
		if s.Has(id) {
			out = append(out, id)
		}
	}
	return out
}

// Ground corresponds to spec §4.8's prefix-tree grounding step; at the
// grounded level the candidates are already ground facts, so grounding is
// the identity and this function only sorts each group for deterministic
// output (spec §5's determinism requirement).
func Ground(groups []Group) []Group {
	out := make([]Group, len(groups))
	for i, g := range groups {
		ng := g
		ng.Facts = append([]int(nil), g.Facts...)
		sort.Ints(ng.Facts)
		out[i] = ng
	}
	return out
}
