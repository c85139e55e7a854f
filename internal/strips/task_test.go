package strips

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keelform/stripsground/internal/util"
)

func buildSample(t *testing.T) *Task {
	t.Helper()
	task := NewTask()
	atA := task.AddFact("at(a)", "at(a)")
	atB := task.AddFact("at(b)", "at(b)")
	dead := task.AddFact("unused(x)", "unused(x)")

	task.Init = util.NewIntSet([]int{atA})
	task.Goal = util.NewIntSet([]int{atB})

	task.AddOperator(Operator{Name: "move(a,b)", Pre: []int{atA}, Add: []int{atB}, Del: []int{atA}, Cost: 1})
	_ = dead
	return task
}

func Test_Task_CheckInvariants_Passes(t *testing.T) {
	task := buildSample(t)
	assert.NoError(t, task.CheckInvariants())
}

func Test_Task_CheckInvariants_CatchesBadDelete(t *testing.T) {
	task := NewTask()
	f1 := task.AddFact("p", "p")
	f2 := task.AddFact("q", "q")
	task.AddOperator(Operator{Name: "bad", Pre: []int{f1}, Del: []int{f2}})
	assert.Error(t, task.CheckInvariants())
}

func Test_Task_Purge_RenumbersAndDropsDeadFacts(t *testing.T) {
	task := buildSample(t)
	dead := util.NewIntSet([]int{2}) // "unused(x)"
	purged := task.Purge(dead)

	require.Len(t, purged.Facts, 2)
	assert.Equal(t, "at(a)", purged.Facts[0].Name)
	assert.Equal(t, "at(b)", purged.Facts[1].Name)
	require.Len(t, purged.Operators, 1)
	assert.Equal(t, []int{0}, purged.Operators[0].Pre)
	assert.Equal(t, []int{1}, purged.Operators[0].Add)
}

func Test_Task_Purge_DropsOperatorsWithNoEffects(t *testing.T) {
	task := NewTask()
	f1 := task.AddFact("p", "p")
	f2 := task.AddFact("dead", "dead")
	task.AddOperator(Operator{Name: "noop-like", Pre: []int{f1}})
	task.Init = util.NewIntSet([]int{f1})
	task.Goal = util.NewIntSet([]int{f1})

	purged := task.Purge(util.NewIntSet([]int{f2}))
	assert.Empty(t, purged.Operators)
}

// StaticPurge drops any fact its callback reports as never written by any
// operator, whether or not that fact sits in Init or Goal — the caller is
// expected to have already folded goal/precondition dependence on such a
// fact into ground operators' preconditions (spec §4.4), so a genuinely
// static goal/init fact is safe to drop here.
func Test_Task_StaticPurge_DropsFactsTheCallbackNamesAsNeverWritten(t *testing.T) {
	task := NewTask()
	atA := task.AddFact("at(a)", "at(a)")
	atB := task.AddFact("at(b)", "at(b)")
	adjacent := task.AddFact("adjacent(a,b)", "adjacent(a,b)")

	task.Init = util.NewIntSet([]int{atA, adjacent})
	task.Goal = util.NewIntSet([]int{atB})
	task.AddOperator(Operator{Name: "move(a,b)", Pre: []int{atA, adjacent}, Add: []int{atB}, Del: []int{atA}, Cost: 1})

	neverWritten := func(factID int) bool { return factID == adjacent }
	purged := task.StaticPurge(neverWritten)

	require.Len(t, purged.Facts, 2)
	for _, f := range purged.Facts {
		assert.NotEqual(t, "adjacent(a,b)", f.Name)
	}
	// the surviving "move" operator's precondition drops the purged fact
	// along with it; the "at(a)" precondition survives, remapped.
	require.Len(t, purged.Operators, 1)
	assert.Equal(t, []int{0}, purged.Operators[0].Pre)
}

func Test_Task_StaticPurge_KeepsEveryFactWhenNothingIsNeverWritten(t *testing.T) {
	task := buildSample(t)
	purged := task.StaticPurge(func(int) bool { return false })
	assert.Len(t, purged.Facts, len(task.Facts))
}

func Test_UnsolvableSkeleton(t *testing.T) {
	task := UnsolvableSkeleton()
	assert.True(t, task.GoalUnreachable)
	assert.Empty(t, task.Operators)
	assert.Equal(t, 1, task.Goal.Len())
}
