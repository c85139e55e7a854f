package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keelform/stripsground/internal/landmark"
	"github.com/keelform/stripsground/internal/strips"
)

func Test_BestFirstSearch_FindsShortestPlanViaDirectShortcut(t *testing.T) {
	task := buildNavTask()
	result := BestFirstSearch(task, Options{})

	require.True(t, result.Found)
	assert.Equal(t, 1, result.Cost)
	assert.Equal(t, []int{2}, result.Plan)
}

func Test_BestFirstSearch_UsesLandmarkQueueWhenGraphProvided(t *testing.T) {
	task := buildNavTask()
	graph, err := landmark.RHW{}.Build(task)
	require.NoError(t, err)

	result := BestFirstSearch(task, Options{Landmarks: graph})
	require.True(t, result.Found)
	assert.Equal(t, 1, result.Cost)
}

func Test_BestFirstSearch_UnsolvableSkeletonReportsUnsolvable(t *testing.T) {
	task := strips.UnsolvableSkeleton()
	result := BestFirstSearch(task, Options{})
	assert.True(t, result.Unsolvable)
	assert.False(t, result.Found)
}

func Test_BestFirstSearch_RespectsMaxExpansions(t *testing.T) {
	task := buildNavTask()
	result := BestFirstSearch(task, Options{MaxExpansions: 1})
	assert.False(t, result.Found)
	assert.Equal(t, 1, result.Expansions)
}
