package ground

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keelform/stripsground/internal/diag"
	"github.com/keelform/stripsground/internal/fo"
)

// fixture builds a tiny fully-connected 3-location "move" domain: objects
// a, b, c of type loc; a static, total adjacent/2 relation; a dynamic at/1
// relation; and one move(?from,?to) action whose precondition requires
// at(?from) and adjacent(?from,?to) and whose effect swaps at from ?from to
// ?to.
func fixture(t *testing.T) (*fo.Domain, *fo.Problem) {
	t.Helper()
	types := fo.NewTypeTable()
	require.NoError(t, types.Declare("loc", ""))

	objects := fo.NewObjectTable(types)
	for _, name := range []string{"a", "b", "c"} {
		objects.Declare(fo.Object{Name: name, Type: "loc"})
	}

	preds := fo.NewPredicateTable()
	preds.Declare(fo.Predicate{Name: "at", Params: []fo.Param{{Name: "x", Type: "loc"}}, Write: true})
	preds.Declare(fo.Predicate{Name: "adjacent", Params: []fo.Param{{Name: "x", Type: "loc"}, {Name: "y", Type: "loc"}}})

	move := fo.Action{
		Name: "move",
		Params: []fo.ActionParam{
			{Name: "from", Type: "loc"},
			{Name: "to", Type: "loc"},
		},
		Pre: fo.And(
			fo.Atom("at", false, fo.ParamTerm(0)),
			fo.Atom("adjacent", false, fo.ParamTerm(0), fo.ParamTerm(1)),
		),
		Eff: fo.And(
			fo.Atom("at", true, fo.ParamTerm(0)),
			fo.Atom("at", false, fo.ParamTerm(1)),
		),
	}

	dom := &fo.Domain{Name: "nav", Types: types, Constants: fo.NewObjectTable(types), Predicates: preds, Actions: []fo.Action{move}}

	var initAtoms []fo.Cond
	initAtoms = append(initAtoms, fo.Atom("at", false, fo.ObjectTerm("a")))
	locs := []string{"a", "b", "c"}
	for _, x := range locs {
		for _, y := range locs {
			if x == y {
				continue
			}
			initAtoms = append(initAtoms, fo.Atom("adjacent", false, fo.ObjectTerm(x), fo.ObjectTerm(y)))
		}
	}

	prob := &fo.Problem{
		Name:    "nav-1",
		Domain:  "nav",
		Objects: objects,
		Init:    fo.And(initAtoms...),
		Goal:    fo.Atom("at", false, fo.ObjectTerm("c")),
	}
	return dom, prob
}

func newDiag() *diag.Diagnostics {
	return diag.New(zerolog.Nop())
}

func Test_Ground_FullyConnectedProducesSixOperators(t *testing.T) {
	dom, prob := fixture(t)
	g := &Grounder{Domain: dom, Problem: prob, Diag: newDiag()}
	task, err := g.Ground()
	require.NoError(t, err)

	assert.False(t, task.GoalUnreachable)
	assert.Len(t, task.Operators, 6, "3 locations, totally adjacent, minus the 3 self-moves excluded by adjacency")
	assert.NoError(t, task.CheckInvariants())
}

func Test_Ground_UnreachableGoalYieldsSkeleton(t *testing.T) {
	dom, prob := fixture(t)
	// goal references a predicate atom that can never become true: nothing
	// ever adds adjacent as a goal-relevant dynamic fact, and no action adds
	// "at" to an object outside the declared extent.
	prob.Goal = fo.Atom("at", false, fo.ObjectTerm("nowhere"))

	g := &Grounder{Domain: dom, Problem: prob, Diag: newDiag()}
	task, err := g.Ground()
	require.NoError(t, err)

	assert.True(t, task.GoalUnreachable)
	assert.Empty(t, task.Operators)
}

func Test_Ground_ForallOverEmptyExtentVacuouslyHolds(t *testing.T) {
	types := fo.NewTypeTable()
	require.NoError(t, types.Declare("loc", ""))
	objects := fo.NewObjectTable(types) // no objects declared: empty extent

	preds := fo.NewPredicateTable()
	preds.Declare(fo.Predicate{Name: "done", Write: true})

	noop := fo.Action{
		Name: "noop",
		Pre: fo.Cond{
			Kind:       fo.KindForall,
			QuantParam: fo.Param{Name: "x", Type: "loc"},
			Body:       boolBody(),
		},
		Eff: fo.Atom("done", false),
	}
	dom := &fo.Domain{Name: "empty", Types: types, Constants: fo.NewObjectTable(types), Predicates: preds, Actions: []fo.Action{noop}}
	prob := &fo.Problem{Name: "empty-1", Domain: "empty", Objects: objects, Init: fo.And(), Goal: fo.Atom("done", false)}

	g := &Grounder{Domain: dom, Problem: prob, Diag: newDiag()}
	task, err := g.Ground()
	require.NoError(t, err)

	assert.False(t, task.GoalUnreachable)
	require.Len(t, task.Operators, 1)
	assert.Empty(t, task.Operators[0].Pre)
}

func boolBody() *fo.Cond {
	c := fo.Atom("done", true, fo.ParamTerm(0))
	return &c
}
