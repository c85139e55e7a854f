// Package landmark builds the AND/OR landmark graph of spec.md §4.9: a set
// of facts every plan must achieve at some point, plus the ordering
// relations between them (natural, greedy-necessary, reasonable,
// obedient-reasonable) that a search heuristic uses to bound progress.
//
// Graph[*].Providers beyond the fact-landmark backchaining algorithm
// implemented here (rhw, the classic Zhu & Givan / Hoffmann-Porteous-Sebastia
// necessary-precondition discovery) are named by the Provider interface but
// not implemented; spec.md lists ao1/ao2/lm-cut/dof as alternative landmark
// and heuristic providers without specifying their internals, so this
// implementation wires the one it can ground confidently (rhw) and reports
// ErrProviderUnavailable for the rest rather than fabricating an algorithm
// the source material never described.
package landmark

import (
	"errors"
	"sort"

	"github.com/keelform/stripsground/internal/strips"
	"github.com/keelform/stripsground/internal/util"
)

// ErrProviderUnavailable is returned by Provider implementations this
// package does not (yet) supply an algorithm for.
var ErrProviderUnavailable = errors.New("landmark: provider not implemented")

// OrderType is one of the four ordering relations of spec §4.9.
type OrderType int

const (
	OrderNatural OrderType = iota
	OrderGreedyNecessary
	OrderReasonable
	OrderObedientReasonable
)

func (o OrderType) String() string {
	switch o {
	case OrderNatural:
		return "natural"
	case OrderGreedyNecessary:
		return "greedy-necessary"
	case OrderReasonable:
		return "reasonable"
	case OrderObedientReasonable:
		return "obedient-reasonable"
	default:
		return "?"
	}
}

// Node is one landmark: a single fact that must become true at some point
// in every plan (a disjunctive landmark would carry more than one fact id;
// this implementation only discovers atomic, single-fact landmarks).
type Node struct {
	ID    int
	Facts []int
}

// Edge is an ordering constraint From -> To of the given type.
type Edge struct {
	From, To int // Node ids
	Type     OrderType
}

// Graph is the AND/OR landmark graph: nodes plus ordering edges, along with
// each node's first-achieving operators (used by the heuristic's
// reachability/fulfillment bookkeeping, spec §4.9).
type Graph struct {
	Nodes     []Node
	Edges     []Edge
	Achievers [][]int // per node id, operator ids that can add one of its Facts

	factNode map[int]int // fact id -> node id, for single-fact nodes
}

// Provider is a pluggable landmark/heuristic-value algorithm (spec §4.9
// mentions rhw/ao1/ao2/lm-cut/dof as selectable providers, spec §6's config
// knobs let a caller pick one).
type Provider interface {
	Name() string
	Build(task *strips.Task) (*Graph, error)
}

// RHW is the necessary-precondition fact-landmark discovery algorithm
// (Hoffmann, Porteous & Sebastia 2004, building on Zhu & Givan's
// relaxed-plan landmark extraction): a fact is a landmark of the goal if it
// belongs to the intersection, over every operator that could first achieve
// a landmark already found, of that operator's own precondition landmarks.
type RHW struct{}

func (RHW) Name() string { return "rhw" }

func (RHW) Build(task *strips.Task) (*Graph, error) {
	return build(task)
}

// unavailable is a Provider stub for an algorithm spec.md names but does
// not describe precisely enough to implement confidently.
type unavailable struct{ name string }

func (u unavailable) Name() string { return u.name }
func (u unavailable) Build(*strips.Task) (*Graph, error) {
	return nil, ErrProviderUnavailable
}

// AO1, AO2, LMCut and DOF are named per spec §4.9/§6's provider list; none
// of them is implemented (see package doc comment).
var (
	AO1   Provider = unavailable{"ao1"}
	AO2   Provider = unavailable{"ao2"}
	LMCut Provider = unavailable{"lm-cut"}
	DOF   Provider = unavailable{"dof"}
)

// achieversOf returns every operator id that adds fact f (spec §4.9's
// "achiever" relation; first-achiever pruning is left to the caller since
// this implementation computes landmarks over the full achiever set, which
// is sound though possibly less precise than a first-achiever-only variant).
func achieversOf(task *strips.Task) map[int][]int {
	out := map[int][]int{}
	for _, op := range task.Operators {
		for _, a := range op.Add {
			out[a] = append(out[a], op.ID)
		}
	}
	return out
}

// build runs the RHW backchaining computation from the goal and assembles
// the resulting fact set into a Graph with natural-order edges recording
// "l1 must be true before l2 because every achiever of l2 requires l1".
func build(task *strips.Task) (*Graph, error) {
	achievers := achieversOf(task)
	memo := map[int]util.IntSet{}
	inProgress := util.NewIntSet()

	var landmarksOf func(f int) util.IntSet
	landmarksOf = func(f int) util.IntSet {
		if s, ok := memo[f]; ok {
			return s
		}
		if task.Init.Has(f) {
			s := util.NewIntSet([]int{f})
			memo[f] = s
			return s
		}
		if inProgress.Has(f) {
			// a cycle through the achiever graph: treat conservatively as
			// "only f itself is guaranteed" to avoid infinite recursion.
			return util.NewIntSet([]int{f})
		}
		inProgress.Add(f)
		defer inProgress.Remove(f)

		ops := achievers[f]
		if len(ops) == 0 {
			s := util.NewIntSet([]int{f})
			memo[f] = s
			return s
		}
		var common util.IntSet
		for i, opID := range ops {
			op := task.Operators[opID]
			opLandmarks := util.NewIntSet([]int{f})
			for _, pre := range op.Pre {
				opLandmarks.AddAll(landmarksOf(pre))
			}
			if i == 0 {
				common = opLandmarks.(util.KeySet[int])
			} else {
				common = common.Intersection(opLandmarks).(util.KeySet[int])
			}
		}
		if common == nil {
			common = util.NewIntSet([]int{f})
		} else {
			common.Add(f)
		}
		memo[f] = common
		return common
	}

	allLandmarks := util.NewIntSet()
	for _, g := range util.SortedInts(task.Goal) {
		allLandmarks.AddAll(landmarksOf(g))
	}

	graph := &Graph{factNode: map[int]int{}}
	for _, f := range util.SortedInts(allLandmarks) {
		id := len(graph.Nodes)
		graph.Nodes = append(graph.Nodes, Node{ID: id, Facts: []int{f}})
		graph.factNode[f] = id
		graph.Achievers = append(graph.Achievers, append([]int(nil), achievers[f]...))
	}

	// natural-order edges: l1 -> l2 whenever l1 is in every achiever's
	// landmark set for l2 and l1 != l2 (derived directly from the memoised
	// sets above, so no extra fixed point is needed).
	for f, nid := range graph.factNode {
		for l := range memo[f] {
			if l == f {
				continue
			}
			lid, ok := graph.factNode[l]
			if !ok {
				continue
			}
			graph.Edges = append(graph.Edges, Edge{From: lid, To: nid, Type: OrderNatural})
		}
	}
	sort.Slice(graph.Edges, func(i, j int) bool {
		if graph.Edges[i].From != graph.Edges[j].From {
			return graph.Edges[i].From < graph.Edges[j].From
		}
		return graph.Edges[i].To < graph.Edges[j].To
	})

	addGreedyNecessary(task, graph, achievers)
	addReasonable(task, graph)

	return graph, nil
}

// addGreedyNecessary adds the spec §4.9 greedy-necessary orderings: l1 ->gn
// l2 if every achiever of l2 has l1 as a precondition directly (stronger
// than natural order, which only requires l1 transitively in the
// achiever's own landmark set).
func addGreedyNecessary(task *strips.Task, g *Graph, achievers map[int][]int) {
	for f, nid := range g.factNode {
		ops := achievers[f]
		if len(ops) == 0 {
			continue
		}
		var common util.IntSet
		for i, opID := range ops {
			pre := util.NewIntSet(task.Operators[opID].Pre)
			if i == 0 {
				common = pre
			} else {
				common = common.Intersection(pre).(util.KeySet[int])
			}
		}
		for _, l := range util.SortedInts(common) {
			lid, ok := g.factNode[l]
			if !ok || lid == nid {
				continue
			}
			g.Edges = append(g.Edges, Edge{From: lid, To: nid, Type: OrderGreedyNecessary})
		}
	}
}

// addReasonable adds a conservative approximation of spec §4.9's reasonable
// orderings: l2 ->r l1 when every achiever of l1 deletes l2, meaning l2 must
// be given up before l1 can be (re-)established, so a plan reasonably
// achieves l2 before it commits to l1's achievers. Obedient-reasonable
// orderings (the refinement restricted to a fixed achieving operator per
// landmark) are not computed separately since this implementation does not
// track a chosen achiever per landmark.
func addReasonable(task *strips.Task, g *Graph) {
	achievers := achieversOf(task)
	for l1, nid1 := range g.factNode {
		ops := achievers[l1]
		if len(ops) == 0 {
			continue
		}
		deletesAll := map[int]bool{}
		for i, opID := range ops {
			op := task.Operators[opID]
			del := util.NewIntSet(op.Del)
			if i == 0 {
				for _, f := range util.SortedInts(del) {
					deletesAll[f] = true
				}
			} else {
				for f := range deletesAll {
					if !del.Has(f) {
						delete(deletesAll, f)
					}
				}
			}
		}
		for l2 := range deletesAll {
			nid2, ok := g.factNode[l2]
			if !ok || nid2 == nid1 {
				continue
			}
			g.Edges = append(g.Edges, Edge{From: nid2, To: nid1, Type: OrderReasonable})
		}
	}
}

// Fulfilled reports which landmark nodes are already satisfied in state
// (used by the heuristic's landmark-count bookkeeping, spec §4.10's
// LM-count queue).
func (g *Graph) Fulfilled(state util.IntSet) util.IntSet {
	out := util.NewIntSet()
	for _, n := range g.Nodes {
		for _, f := range n.Facts {
			if state.Has(f) {
				out.Add(n.ID)
				break
			}
		}
	}
	return out
}
