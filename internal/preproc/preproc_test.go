package preproc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keelform/stripsground/internal/fo"
)

func Test_Build_ClassifiesSingleBranchPrecondition(t *testing.T) {
	act := fo.Action{
		Name:   "move",
		Params: []fo.ActionParam{{Name: "x", Type: "loc"}},
		Pre: fo.And(
			fo.Atom("open", false, fo.ObjectTerm("a")),
			fo.Atom("locked", true, fo.ObjectTerm("b")),
			fo.Atom("=", false, fo.ParamTerm(0), fo.ObjectTerm("x")),
		),
		Eff: fo.And(
			fo.Atom("here", false, fo.ObjectTerm("a")),
			fo.Atom("there", true, fo.ObjectTerm("b")),
		),
	}

	actions, err := Build(act)
	require.NoError(t, err)
	require.Len(t, actions, 1)

	a := actions[0]
	assert.Equal(t, "move", a.Name)
	require.Len(t, a.Pre, 1)
	assert.Equal(t, "open", a.Pre[0].Pred)
	require.Len(t, a.PreNegStatic, 1)
	assert.Equal(t, "locked", a.PreNegStatic[0].Pred)
	require.Len(t, a.PreEq, 1)
	assert.False(t, a.PreEq[0].Neg)

	require.Len(t, a.AddEff, 1)
	assert.Equal(t, "here", a.AddEff[0].Pred)
	require.Len(t, a.DelEff, 1)
	assert.Equal(t, "there", a.DelEff[0].Pred)
	assert.Zero(t, a.CondEffSize)
}

func Test_Build_SplitsTopLevelOrIntoSeparateActions(t *testing.T) {
	act := fo.Action{
		Name: "travel",
		Pre: fo.Or(
			fo.And(fo.Atom("byRoad", false)),
			fo.And(fo.Atom("byRail", false)),
		),
		Eff: fo.And(),
	}

	actions, err := Build(act)
	require.NoError(t, err)
	require.Len(t, actions, 2)
	assert.Equal(t, "travel~0", actions[0].Name)
	assert.Equal(t, "travel~1", actions[1].Name)
	assert.Equal(t, "byRoad", actions[0].Pre[0].Pred)
	assert.Equal(t, "byRail", actions[1].Pre[0].Pred)
}

func Test_Build_FalsePreconditionYieldsNoBranches(t *testing.T) {
	act := fo.Action{Name: "impossible", Pre: fo.BoolLit(false), Eff: fo.And()}
	actions, err := Build(act)
	require.NoError(t, err)
	assert.Empty(t, actions)
}

func Test_Build_CompilesWhenEffectIntoChildAction(t *testing.T) {
	whenPre := fo.Atom("flag", false, fo.ObjectTerm("a"))
	whenEff := fo.Atom("consequence", false, fo.ObjectTerm("a"))
	act := fo.Action{
		Name: "maybe",
		Pre:  fo.BoolLit(true),
		Eff: fo.And(
			fo.Atom("always", false, fo.ObjectTerm("a")),
			fo.Cond{Kind: fo.KindWhen, When: &whenPre, Eff: &whenEff},
		),
	}

	actions, err := Build(act)
	require.NoError(t, err)
	require.Len(t, actions, 1)

	root := actions[0]
	require.Len(t, root.AddEff, 1)
	assert.Equal(t, "always", root.AddEff[0].Pred)
	assert.Equal(t, 1, root.CondEffSize)
	require.Len(t, root.Children, 1)

	child := root.Children[0]
	assert.Same(t, root, child.Parent)
	require.Len(t, child.Pre, 1)
	assert.Equal(t, "flag", child.Pre[0].Pred)
	require.Len(t, child.AddEff, 1)
	assert.Equal(t, "consequence", child.AddEff[0].Pred)

	localPre, localNegStatic, localEq := child.LocalPrecondition()
	assert.Equal(t, "flag", localPre[0].Pred)
	assert.Empty(t, localNegStatic)
	assert.Empty(t, localEq)
}
