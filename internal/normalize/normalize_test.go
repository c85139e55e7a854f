package normalize

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keelform/stripsground/internal/diag"
	"github.com/keelform/stripsground/internal/fo"
)

func newTestNormalizer(t *testing.T) (*Normalizer, *fo.ObjectTable) {
	t.Helper()
	types := fo.NewTypeTable()
	require.NoError(t, types.Declare("loc", ""))
	objs := fo.NewObjectTable(types)

	preds := fo.NewPredicateTable()
	preds.Declare(fo.Predicate{Name: "on", Params: []fo.Param{{Name: "x", Type: "loc"}, {Name: "y", Type: "loc"}}, Read: true})
	preds.Declare(fo.Predicate{Name: "open", Params: []fo.Param{{Name: "x", Type: "loc"}}, Read: true, Write: true})

	static := NewStaticFacts()
	static.Add("on", []string{"a", "b"})

	return &Normalizer{Objects: objs, Preds: preds, Static: static, Diag: diag.New(zerolog.Nop())}, objs
}

func Test_Normalize_StaticAtomEvaluatesAgainstInit(t *testing.T) {
	nz, _ := newTestNormalizer(t)

	holds := fo.Atom("on", false, fo.ObjectTerm("a"), fo.ObjectTerm("b"))
	out, err := nz.Normalize(holds, nil, nil)
	require.NoError(t, err)
	assert.True(t, out.IsTrue())

	doesNotHold := fo.Atom("on", false, fo.ObjectTerm("a"), fo.ObjectTerm("c"))
	out, err = nz.Normalize(doesNotHold, nil, nil)
	require.NoError(t, err)
	assert.True(t, out.IsFalse())
}

func Test_Normalize_DynamicAtomPassesThroughUnchanged(t *testing.T) {
	nz, _ := newTestNormalizer(t)

	c := fo.Atom("open", false, fo.ObjectTerm("a"))
	out, err := nz.Normalize(c, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, fo.KindAtom, out.Kind)
	assert.Equal(t, "open", out.Pred)
}

func Test_Normalize_ForallOverEmptyExtentIsVacuouslyTrue(t *testing.T) {
	nz, objs := newTestNormalizer(t)
	_ = objs // no "loc" objects declared, so the extent is empty

	body := fo.Atom("open", false, fo.ParamTerm(0))
	forall := fo.Cond{Kind: fo.KindForall, QuantParam: fo.Param{Name: "?x", Type: "loc"}, Body: &body}

	out, err := nz.Normalize(forall, nil, nil)
	require.NoError(t, err)
	assert.True(t, out.IsTrue())
}

func Test_Normalize_ExistsOverEmptyExtentIsVacuouslyFalse(t *testing.T) {
	nz, _ := newTestNormalizer(t)

	body := fo.Atom("open", false, fo.ParamTerm(0))
	exists := fo.Cond{Kind: fo.KindExists, QuantParam: fo.Param{Name: "?x", Type: "loc"}, Body: &body}

	out, err := nz.Normalize(exists, nil, nil)
	require.NoError(t, err)
	assert.True(t, out.IsFalse())
}

func Test_Normalize_ImplicationRewritesToOrOfNegatedLeftAndRight(t *testing.T) {
	nz, _ := newTestNormalizer(t)

	left := fo.Atom("open", false, fo.ObjectTerm("a"))
	right := fo.Atom("open", false, fo.ObjectTerm("b"))
	imply := fo.Cond{Kind: fo.KindImply, Left: &left, Right: &right}

	out, err := nz.Normalize(imply, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, fo.KindOr, out.Kind)
	require.Len(t, out.Children, 2)
}

func Test_Normalize_ConflictingLiteralsCollapseAndToFalse(t *testing.T) {
	nz, _ := newTestNormalizer(t)

	pos := fo.Atom("open", false, fo.ObjectTerm("a"))
	neg := fo.Atom("open", true, fo.ObjectTerm("a"))
	and := fo.And(pos, neg)

	out, err := nz.Normalize(and, nil, nil)
	require.NoError(t, err)
	assert.True(t, out.IsFalse())
}

func Test_Normalize_DNFDistributesOrOverAnd(t *testing.T) {
	nz, _ := newTestNormalizer(t)

	openA := fo.Atom("open", false, fo.ObjectTerm("a"))
	openB := fo.Atom("open", false, fo.ObjectTerm("b"))
	openC := fo.Atom("open", false, fo.ObjectTerm("c"))

	// (and openA (or openB openC)) should distribute to
	// (or (and openA openB) (and openA openC))
	c := fo.And(openA, fo.Or(openB, openC))
	out, err := nz.Normalize(c, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, fo.KindOr, out.Kind)
	assert.Len(t, out.Children, 2)
	for _, branch := range out.Children {
		assert.Equal(t, fo.KindAnd, branch.Kind)
	}
}
