package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keelform/stripsground/internal/strips"
	"github.com/keelform/stripsground/internal/util"
)

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

func Test_RelaxAndExtract_PrefersCheaperDirectAchiever(t *testing.T) {
	task := buildNavTask()
	rp := RelaxAndExtract(task, util.NewIntSet([]int{0}))

	require.True(t, rp.Reachable)
	assert.Equal(t, 1, rp.AddCost)
	assert.Equal(t, []int{2}, rp.Operators)
}

func Test_RelaxAndExtract_GoalAlreadyTrueCostsZero(t *testing.T) {
	task := buildNavTask()
	rp := RelaxAndExtract(task, util.NewIntSet([]int{2}))

	require.True(t, rp.Reachable)
	assert.Equal(t, 0, rp.AddCost)
	assert.Empty(t, rp.Operators)
}

func Test_RelaxAndExtract_UnreachableGoalReportsUnreachable(t *testing.T) {
	task := strips.NewTask()
	task.AddFact("at(a)", "at(a)")
	dead := task.AddFact("at(island)", "at(island)")
	task.Init = util.NewIntSet([]int{0})
	task.Goal = util.NewIntSet([]int{dead})

	rp := RelaxAndExtract(task, util.NewIntSet([]int{0}))
	assert.False(t, rp.Reachable)
}
