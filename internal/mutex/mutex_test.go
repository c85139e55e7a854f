package mutex

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/keelform/stripsground/internal/strips"
	"github.com/keelform/stripsground/internal/util"
)

// a single "at" location variable over 3 facts: at(a), at(b), at(c). Only
// at(a) holds initially; move(x,y) deletes at(x) and adds at(y). No two
// "at" facts can ever be true together, so every pair should end up mutex
// except the empty/no-pair degenerate case, and no single fact should be
// unreachable.
func buildNavTask() *strips.Task {
	task := strips.NewTask()
	a := task.AddFact("at(a)", "at(a)")
	b := task.AddFact("at(b)", "at(b)")
	c := task.AddFact("at(c)", "at(c)")
	task.Init = util.NewIntSet([]int{a})
	task.Goal = util.NewIntSet([]int{c})

	task.AddOperator(strips.Operator{Name: "move(a,b)", Pre: []int{a}, Add: []int{b}, Del: []int{a}, Cost: 1})
	task.AddOperator(strips.Operator{Name: "move(b,c)", Pre: []int{b}, Add: []int{c}, Del: []int{b}, Cost: 1})
	task.AddOperator(strips.Operator{Name: "move(a,c)", Pre: []int{a}, Add: []int{c}, Del: []int{a}, Cost: 1})
	return task
}

func Test_Run_NoFactIsUnreachable(t *testing.T) {
	task := buildNavTask()
	table := Run(task)
	for _, f := range task.Facts {
		assert.False(t, table.Unreachable(f.ID), "fact %s should be reachable", f.Name)
	}
}

func Test_Run_AtFactsAreMutuallyMutex(t *testing.T) {
	task := buildNavTask()
	table := Run(task)
	assert.True(t, table.Mutex(0, 1))
	assert.True(t, table.Mutex(0, 2))
	assert.True(t, table.Mutex(1, 2))
}

// a fact an operator's pre/add never mentions ("holding") must survive the
// transition and stay jointly reachable with whatever the operator adds:
// move only touches the "at" facts, so holding(pkg) must end up non-mutex
// with every "at" fact it was non-mutex with beforehand.
func Test_Run_PrevailFactStaysNonMutexWithNewlyAddedFact(t *testing.T) {
	task := strips.NewTask()
	atA := task.AddFact("at(a)", "at(a)")
	atB := task.AddFact("at(b)", "at(b)")
	holding := task.AddFact("holding", "holding")
	task.Init = util.NewIntSet([]int{atA, holding})
	task.Goal = util.NewIntSet([]int{atB, holding})

	task.AddOperator(strips.Operator{Name: "move", Pre: []int{atA}, Add: []int{atB}, Del: []int{atA}, Cost: 1})

	table := Run(task)
	assert.False(t, table.Mutex(atB, holding), "at(b) and holding should be jointly reachable via move")
}

func Test_Run_UnreachableFactStaysMutexWithItself(t *testing.T) {
	task := strips.NewTask()
	a := task.AddFact("at(a)", "at(a)")
	dead := task.AddFact("at(nowhere)", "at(nowhere)")
	task.Init = util.NewIntSet([]int{a})
	task.Goal = util.NewIntSet([]int{a})
	_ = dead

	table := Run(task)
	assert.True(t, table.Unreachable(dead))
	assert.False(t, table.Unreachable(a))
}
