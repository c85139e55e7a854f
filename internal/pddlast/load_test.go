package pddlast

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keelform/stripsground/internal/fo"
)

func leaf(text string) Node { return Node{Text: text} }

func list(children ...Node) Node { return Node{Children: children} }

// domain:
//
//	(define (domain nav)
//	  (:types loc)
//	  (:predicates (at ?x - loc))
//	  (:action move
//	    :parameters (?x ?y - loc)
//	    :precondition (at ?x)
//	    :effect (and (not (at ?x)) (at ?y))))
func navDomainNode() Node {
	types := list(leaf(":types"), leaf("loc"))
	atXY := list(leaf("at"), leaf("?x"), leaf("-"), leaf("loc"))
	predicates := list(leaf(":predicates"), atXY)

	params := list(leaf("?x"), leaf("?y"), leaf("-"), leaf("loc"))
	atX := list(leaf("at"), leaf("?x"))
	atY := list(leaf("at"), leaf("?y"))
	notAtX := list(leaf("not"), atX)
	effect := list(leaf("and"), notAtX, atY)
	action := list(leaf(":action"), leaf("move"), leaf(":parameters"), params,
		leaf(":precondition"), atX, leaf(":effect"), effect)

	return list(leaf("define"), list(leaf("domain"), leaf("nav")), types, predicates, action)
}

func Test_LoadDomain_BuildsPredicatesAndAction(t *testing.T) {
	dom, err := LoadDomain(navDomainNode())
	require.NoError(t, err)

	assert.Equal(t, "nav", dom.Name)
	_, ok := dom.Predicates.Get("at")
	assert.True(t, ok)

	require.Len(t, dom.Actions, 1)
	act := dom.Actions[0]
	assert.Equal(t, "move", act.Name)
	require.Len(t, act.Params, 2)
	assert.Equal(t, "loc", act.Params[0].Type)
	assert.Equal(t, "loc", act.Params[1].Type)

	require.Equal(t, fo.KindAtom, act.Pre.Kind)
	assert.Equal(t, "at", act.Pre.Pred)

	require.Equal(t, fo.KindAnd, act.Eff.Kind)
	require.Len(t, act.Eff.Children, 2)
	assert.True(t, act.Eff.Children[0].Neg)
	assert.False(t, act.Eff.Children[1].Neg)
}

func Test_LoadDomain_RejectsNonDefineRoot(t *testing.T) {
	_, err := LoadDomain(list(leaf("nope")))
	assert.Error(t, err)
}

func Test_LoadProblem_BuildsObjectsInitAndGoal(t *testing.T) {
	dom, err := LoadDomain(navDomainNode())
	require.NoError(t, err)

	objects := list(leaf(":objects"), leaf("a"), leaf("b"), leaf("-"), leaf("loc"))
	initNode := list(leaf(":init"), list(leaf("at"), leaf("a")))
	goalNode := list(leaf(":goal"), list(leaf("at"), leaf("b")))
	root := list(leaf("define"),
		list(leaf("problem"), leaf("nav-p1")),
		list(leaf(":domain"), leaf("nav")),
		objects, initNode, goalNode,
	)

	prob, err := LoadProblem(root, dom)
	require.NoError(t, err)

	assert.Equal(t, "nav-p1", prob.Name)
	assert.Equal(t, "nav", prob.Domain)
	assert.ElementsMatch(t, []string{"a", "b"}, prob.Objects.Extent("loc"))

	require.Equal(t, fo.KindAnd, prob.Init.Kind)
	require.Len(t, prob.Init.Children, 1)
	assert.Equal(t, "at", prob.Init.Children[0].Pred)

	assert.Equal(t, fo.KindAtom, prob.Goal.Kind)
	assert.Equal(t, "at", prob.Goal.Pred)
}
