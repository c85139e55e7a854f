// Package search's fringe implements spec §4.10's LAMA-style alternation
// between several priority queues (plain hFF, hFF restricted to preferred
// operators, and a landmark-count queue), each a binary heap over
// container/heap. Queue selection follows LAMA's own determineFringe/push
// scheme (ground against original_source/02-planner/src/search/fringes/
// LamaFringe.cpp): every queue carries its own integer priority counter,
// decremented by one each time that queue is popped from, and the
// FF-preferred queue's counter is bumped by a fixed boost amount whenever a
// push computes a new best hFF value seen so far. Pop always takes from
// whichever non-empty queue currently holds the largest counter.
package search

import (
	"container/heap"
	"math"

	"github.com/keelform/stripsground/internal/landmark"
	"github.com/keelform/stripsground/internal/strips"
	"github.com/keelform/stripsground/internal/util"
)

// State is a search node: the set of true facts, the operator sequence that
// reached it (for plan reconstruction) and its accumulated cost.
type State struct {
	Facts util.IntSet
	Plan  []int
	GCost int
}

func apply(task *strips.Task, s State, op strips.Operator) State {
	facts := s.Facts.Copy().(util.KeySet[int])
	for _, d := range op.Del {
		facts.Remove(d)
	}
	for _, a := range op.Add {
		facts.Add(a)
	}
	for _, ce := range op.CondEff {
		fire := true
		for _, p := range ce.Pre {
			if !s.Facts.Has(p) {
				fire = false
				break
			}
		}
		if !fire {
			continue
		}
		for _, d := range ce.Del {
			facts.Remove(d)
		}
		for _, a := range ce.Add {
			facts.Add(a)
		}
	}
	plan := append(append([]int(nil), s.Plan...), op.ID)
	return State{Facts: facts, Plan: plan, GCost: s.GCost + op.Cost}
}

func goalSatisfied(task *strips.Task, s State) bool {
	for _, g := range task.Goal.Elements() {
		if !s.Facts.Has(g) {
			return false
		}
	}
	return true
}

// entry is one priority-queue element: a state plus the heuristic value it
// was inserted with (LAMA never re-evaluates an entry once pushed; queues
// are kept separate precisely so each can use its own h value and ordering,
// spec §4.10).
type entry struct {
	state State
	h     int
	order int // insertion sequence, tie-break for determinism
}

type heapQueue []entry

func (q heapQueue) Len() int { return len(q) }
func (q heapQueue) Less(i, j int) bool {
	if q[i].h != q[j].h {
		return q[i].h < q[j].h
	}
	return q[i].order < q[j].order
}
func (q heapQueue) Swap(i, j int)      { q[i], q[j] = q[j], q[i] }
func (q *heapQueue) Push(x interface{}) { *q = append(*q, x.(entry)) }
func (q *heapQueue) Pop() interface{} {
	old := *q
	n := len(old)
	e := old[n-1]
	*q = old[:n-1]
	return e
}

// QueueKind names the three LAMA fringes of spec §4.10.
type QueueKind int

const (
	QueueFF QueueKind = iota
	QueueFFPreferred
	QueueLandmarkCount
)

// Options configures the fringe (spec §6's LAMA knobs).
type Options struct {
	MaxExpansions int // 0 = unbounded
	Landmarks     *landmark.Graph
	BoostAmount   int // priority bump the FF-preferred queue's counter gets on a new best-hFF push
}

// Result is the outcome of a BestFirstSearch run.
type Result struct {
	Plan        []int
	Cost        int
	Expansions  int
	Found       bool
	Unsolvable  bool
}

// fringe is one of the three LAMA queues plus the running priority counter
// determineFringe compares across queues (LamaFringe.cpp's prioFFnormal/
// prioFFprefered/prioLM): incremented only by a boost on push, decremented
// by one every time this queue is the one popped from.
type fringe struct {
	q    heapQueue
	prio int
}

// fringes holds the three queues keyed by kind plus the cross-queue state
// push/pop share: the sequence counter for FIFO tie-breaking and the best
// hFF value seen by any push so far (the boost trigger).
type fringes struct {
	byKind  map[QueueKind]*fringe
	seq     int
	bestFF  int
	hasBest bool
}

func newFringes() *fringes {
	f := &fringes{byKind: map[QueueKind]*fringe{
		QueueFF:            {},
		QueueFFPreferred:   {},
		QueueLandmarkCount: {},
	}}
	for _, fr := range f.byKind {
		heap.Init(&fr.q)
	}
	return f
}

func (f *fringes) anyNonEmpty() bool {
	for _, fr := range f.byKind {
		if fr.q.Len() > 0 {
			return true
		}
	}
	return false
}

// determineFringe mirrors LamaFringe::determineFringe exactly: check LM,
// then plain FF, then FF-preferred in that order, each time taking the
// queue if it's non-empty and its counter is >= the current max. Checking
// in this fixed order with >= (not >) means ties resolve in favour of
// whichever queue was checked last, i.e. FF-preferred beats FF beats LM.
func (f *fringes) determineFringe() (QueueKind, bool) {
	max := math.MinInt
	use := QueueFF
	found := false
	for _, kind := range []QueueKind{QueueLandmarkCount, QueueFF, QueueFFPreferred} {
		fr := f.byKind[kind]
		if fr.q.Len() == 0 {
			continue
		}
		if !found || fr.prio >= max {
			max = fr.prio
			use = kind
			found = true
		}
	}
	return use, found
}

// pop takes the next entry per determineFringe's choice and decrements that
// queue's counter by one (LamaFringe::pop).
func (f *fringes) pop() (entry, QueueKind, bool) {
	kind, ok := f.determineFringe()
	if !ok {
		return entry{}, 0, false
	}
	fr := f.byKind[kind]
	e := heap.Pop(&fr.q).(entry)
	fr.prio--
	return e, kind, true
}

// push mirrors LamaFringe::push: plain hFF always gets the state; the
// landmark-count queue always gets it when landmarks are tracked; the
// FF-preferred queue only gets it when s was reached by a preferred
// operator, but EVERY push that computes a new best hFF value (even one
// that isn't itself pushed to FF-preferred) bumps that queue's counter,
// since the boost exists to keep exploiting a freshly improved heuristic
// signal regardless of which state triggered it.
func (f *fringes) push(task *strips.Task, s State, opts Options) {
	rp := RelaxAndExtract(task, s.Facts)
	if !rp.Reachable {
		return // a dead end under the delete relaxation is pruned eagerly
	}

	hFF := 0
	for _, id := range rp.Operators {
		hFF += task.Operators[id].Cost
	}
	f.seq++
	heap.Push(&f.byKind[QueueFF].q, entry{state: s, h: hFF, order: f.seq})

	if !f.hasBest || hFF < f.bestFF {
		f.bestFF = hFF
		f.hasBest = true
		if opts.BoostAmount > 0 {
			f.byKind[QueueFFPreferred].prio += opts.BoostAmount
		}
	}

	if len(s.Plan) > 0 && isPreferred(s.Plan[len(s.Plan)-1], rp.Operators) {
		f.seq++
		heap.Push(&f.byKind[QueueFFPreferred].q, entry{state: s, h: hFF, order: f.seq})
	}

	if opts.Landmarks != nil {
		fulfilled := opts.Landmarks.Fulfilled(s.Facts)
		lmCount := len(opts.Landmarks.Nodes) - fulfilled.Len()
		f.seq++
		heap.Push(&f.byKind[QueueLandmarkCount].q, entry{state: s, h: lmCount, order: f.seq})
	}
}

// BestFirstSearch runs spec §4.10's alternating multi-queue fringe: each
// expansion pops exactly one state, chosen by whichever queue's boost
// counter is currently largest (determineFringe), and pushes every
// successor into every queue it qualifies for (plain hFF always;
// hFF-preferred only when the relaxed plan used to compute hFF names the
// generating operator as preferred; landmark-count whenever opts.Landmarks
// is set, scored by the number of not-yet-fulfilled landmarks).
func BestFirstSearch(task *strips.Task, opts Options) Result {
	if task.GoalUnreachable {
		return Result{Unsolvable: true}
	}

	f := newFringes()
	closed := map[string]bool{}

	start := State{Facts: task.Init.Copy().(util.KeySet[int])}
	f.push(task, start, opts)

	expansions := 0
	for f.anyNonEmpty() {
		if opts.MaxExpansions > 0 && expansions >= opts.MaxExpansions {
			break
		}
		e, _, ok := f.pop()
		if !ok {
			break
		}
		key := stateKey(e.state.Facts)
		if closed[key] {
			continue
		}
		closed[key] = true
		expansions++

		if goalSatisfied(task, e.state) {
			return Result{Plan: e.state.Plan, Cost: e.state.GCost, Expansions: expansions, Found: true}
		}

		for _, op := range task.Operators {
			if !opApplicable(op, e.state.Facts) {
				continue
			}
			succ := apply(task, e.state, op)
			if closed[stateKey(succ.Facts)] {
				continue
			}
			f.push(task, succ, opts)
		}
	}
	return Result{Expansions: expansions, Found: false}
}

func opApplicable(op strips.Operator, facts util.IntSet) bool {
	for _, p := range op.Pre {
		if !facts.Has(p) {
			return false
		}
	}
	return true
}

func stateKey(facts util.IntSet) string {
	ids := util.SortedInts(facts)
	b := make([]byte, 0, len(ids)*4)
	for _, id := range ids {
		b = append(b, byte(id), byte(id>>8), byte(id>>16), ',')
	}
	return string(b)
}

func isPreferred(lastOp int, preferred []int) bool {
	for _, p := range preferred {
		if p == lastOp {
			return true
		}
	}
	return false
}
