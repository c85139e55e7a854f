package fo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_TypeTable_AncestryAndDisjointness(t *testing.T) {
	tt := NewTypeTable()
	require.NoError(t, tt.Declare("vehicle", ""))
	require.NoError(t, tt.Declare("car", "vehicle"))
	require.NoError(t, tt.Declare("truck", "vehicle"))
	require.NoError(t, tt.Declare("person", ""))

	assert.True(t, tt.IsAncestor("object", "car"))
	assert.True(t, tt.IsAncestor("vehicle", "car"))
	assert.False(t, tt.IsAncestor("car", "vehicle"))
	assert.True(t, tt.Disjoint("car", "truck"))
	assert.False(t, tt.Disjoint("car", "vehicle"))
	assert.True(t, tt.Disjoint("car", "person"))
}

func Test_TypeTable_EitherType(t *testing.T) {
	tt := NewTypeTable()
	require.NoError(t, tt.Declare("car", ""))
	require.NoError(t, tt.Declare("truck", ""))
	require.NoError(t, tt.DeclareEither("car-or-truck", []string{"car", "truck"}))

	assert.True(t, tt.IsAncestor("car-or-truck", "car"))
	assert.True(t, tt.IsAncestor("car-or-truck", "truck"))
	assert.False(t, tt.IsAncestor("car", "car-or-truck"))
}

func Test_TypeTable_DeclareUnknownParentFails(t *testing.T) {
	tt := NewTypeTable()
	err := tt.Declare("car", "vehicle")
	assert.Error(t, err)
}

func Test_ObjectTable_ExtentAndHasType(t *testing.T) {
	tt := NewTypeTable()
	require.NoError(t, tt.Declare("loc", ""))
	ot := NewObjectTable(tt)
	ot.Declare(Object{Name: "a", Type: "loc"})
	ot.Declare(Object{Name: "b", Type: "loc"})

	assert.ElementsMatch(t, []string{"a", "b"}, ot.Extent("loc"))
	assert.ElementsMatch(t, []string{"a", "b"}, ot.Extent("object"))
	assert.True(t, ot.HasType("a", "loc"))
	assert.False(t, ot.HasType("missing", "loc"))
}
