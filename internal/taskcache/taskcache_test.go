package taskcache

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keelform/stripsground/internal/strips"
	"github.com/keelform/stripsground/internal/util"
)

func buildSampleTask() *strips.Task {
	task := strips.NewTask()
	a := task.AddFact("at(a)", "at(a)")
	b := task.AddFact("at(b)", "at(b)")
	task.Init = util.NewIntSet([]int{a})
	task.Goal = util.NewIntSet([]int{b})
	task.AddOperator(strips.Operator{Name: "move(a,b)", Pre: []int{a}, Add: []int{b}, Del: []int{a}, Cost: 1})
	return task
}

func Test_NewKey_IsDeterministicAndInputSensitive(t *testing.T) {
	k1 := NewKey([]byte("domain"), []byte("problem"))
	k2 := NewKey([]byte("domain"), []byte("problem"))
	k3 := NewKey([]byte("domain"), []byte("other-problem"))

	assert.Equal(t, k1, k2)
	assert.NotEqual(t, k1, k3)
}

func Test_Store_PutThenGetRoundTripsTask(t *testing.T) {
	dir := t.TempDir()
	store, err := Open(filepath.Join(dir, "cache.db"))
	require.NoError(t, err)
	defer store.Close()

	task := buildSampleTask()
	key := NewKey([]byte("domain"), []byte("problem"))
	require.NoError(t, store.Put(key, task))

	got, ok, err := store.Get(key)
	require.NoError(t, err)
	require.True(t, ok)

	require.Len(t, got.Facts, 2)
	assert.Equal(t, "at(a)", got.Facts[0].Name)
	require.Len(t, got.Operators, 1)
	assert.Equal(t, "move(a,b)", got.Operators[0].Name)
	assert.Equal(t, []int{0}, util.SortedInts(got.Init))
	assert.Equal(t, []int{1}, util.SortedInts(got.Goal))
}

func Test_Store_GetMissReturnsFalse(t *testing.T) {
	dir := t.TempDir()
	store, err := Open(filepath.Join(dir, "cache.db"))
	require.NoError(t, err)
	defer store.Close()

	_, ok, err := store.Get(NewKey([]byte("nothing-stored")))
	require.NoError(t, err)
	assert.False(t, ok)
}

func Test_Store_PutOverwritesExistingKey(t *testing.T) {
	dir := t.TempDir()
	store, err := Open(filepath.Join(dir, "cache.db"))
	require.NoError(t, err)
	defer store.Close()

	key := NewKey([]byte("same-key"))
	require.NoError(t, store.Put(key, buildSampleTask()))

	bigger := buildSampleTask()
	bigger.AddFact("at(c)", "at(c)")
	require.NoError(t, store.Put(key, bigger))

	got, ok, err := store.Get(key)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Len(t, got.Facts, 3)
}
