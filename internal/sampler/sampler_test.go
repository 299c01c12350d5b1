package sampler

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// syntheticTargets builds a balanced labeled dataset: samplesPerLabel
// samples for each of numLabels labels, interleaved.
func syntheticTargets(numLabels, samplesPerLabel int) []int {
	targets := make([]int, 0, numLabels*samplesPerLabel)
	for i := 0; i < numLabels*samplesPerLabel; i++ {
		targets = append(targets, i%numLabels)
	}
	return targets
}

func settingsFor(worldSize, rank int) Settings {
	return Settings{WorldSize: worldSize, Rank: rank, Seed: 42}
}

func TestSettingsValidation(t *testing.T) {
	_, err := Uniform(100, Settings{WorldSize: 1, Rank: 0})
	assert.Error(t, err)

	_, err = Uniform(100, Settings{WorldSize: 4, Rank: 0})
	assert.Error(t, err)

	_, err = Uniform(100, Settings{WorldSize: 4, Rank: 4})
	assert.Error(t, err)

	_, err = Uniform(100, Settings{WorldSize: 4, Rank: 3})
	assert.NoError(t, err)
}

func TestUniformCoversClientsDisjointly(t *testing.T) {
	const worldSize = 4
	const datasetSize = 103

	seen := map[int]int{}
	for rank := 1; rank < worldSize; rank++ {
		indices, err := Uniform(datasetSize, settingsFor(worldSize, rank))
		require.NoError(t, err)
		for _, idx := range indices {
			seen[idx]++
		}
	}

	// Clients share nothing; only the federator's stride is absent.
	for idx, count := range seen {
		assert.Equal(t, 1, count, "index %d assigned more than once", idx)
		assert.NotEqual(t, 0, idx%worldSize)
	}
	assert.Len(t, seen, datasetSize-(datasetSize+worldSize-1)/worldSize)
}

func TestLimitLabelsRespectsLimit(t *testing.T) {
	const numLabels = 10
	const limit = 2
	targets := syntheticTargets(numLabels, 50)

	for rank := 1; rank < 6; rank++ {
		indices, err := LimitLabels(targets, numLabels, limit, settingsFor(6, rank))
		require.NoError(t, err)
		require.NotEmpty(t, indices)

		labels := map[int]bool{}
		for _, idx := range indices {
			labels[targets[idx]] = true
		}
		assert.LessOrEqual(t, len(labels), limit)
	}
}

func TestLimitLabelsDisjointAndDeterministic(t *testing.T) {
	targets := syntheticTargets(10, 40)

	seen := map[int]bool{}
	for rank := 1; rank < 6; rank++ {
		indices, err := LimitLabels(targets, 10, 2, settingsFor(6, rank))
		require.NoError(t, err)
		for _, idx := range indices {
			assert.False(t, seen[idx], "index %d assigned twice", idx)
			seen[idx] = true
		}

		again, err := LimitLabels(targets, 10, 2, settingsFor(6, rank))
		require.NoError(t, err)
		assert.Equal(t, indices, again)
	}
}

func TestLimitLabelsUnalignedClientsAndLabels(t *testing.T) {
	// 3 clients over 3 labels with limit 2: the dealt positions wrap
	// around the label order, which must not hand any client the same
	// label twice or leave part of a label's samples unassigned.
	const numLabels = 3
	const worldSize = 4
	targets := syntheticTargets(numLabels, 20)

	seen := map[int]bool{}
	total := 0
	for rank := 1; rank < worldSize; rank++ {
		indices, err := LimitLabels(targets, numLabels, 2, settingsFor(worldSize, rank))
		require.NoError(t, err)

		labels := map[int]bool{}
		for _, idx := range indices {
			assert.False(t, seen[idx], "index %d assigned twice", idx)
			seen[idx] = true
			labels[targets[idx]] = true
		}
		assert.LessOrEqual(t, len(labels), 2)
		total += len(indices)
	}
	// Every label is held by exactly two clients here, so the clients
	// jointly cover the whole dataset.
	assert.Equal(t, len(targets), total)
}

func TestLimitLabelsRejectsBadLimit(t *testing.T) {
	targets := syntheticTargets(10, 10)

	_, err := LimitLabels(targets, 10, 0, settingsFor(4, 1))
	assert.Error(t, err)

	_, err = LimitLabels(targets, 10, 11, settingsFor(4, 1))
	assert.Error(t, err)
}

func TestProbabilityQRequiresClientMultiple(t *testing.T) {
	targets := syntheticTargets(5, 10)

	// 6 clients over 5 labels cannot form equal groups.
	_, err := ProbabilityQ(targets, 5, 0.8, settingsFor(7, 1))
	assert.Error(t, err)

	_, err = ProbabilityQ(targets, 5, 0.8, settingsFor(6, 1))
	assert.NoError(t, err)
}

func TestProbabilityQPartitionsDisjointly(t *testing.T) {
	const numLabels = 5
	const worldSize = 11 // 10 clients, two per label group
	targets := syntheticTargets(numLabels, 100)

	seen := map[int]bool{}
	total := 0
	for rank := 1; rank < worldSize; rank++ {
		indices, err := ProbabilityQ(targets, numLabels, 0.8, settingsFor(worldSize, rank))
		require.NoError(t, err)
		for _, idx := range indices {
			assert.False(t, seen[idx], "index %d assigned twice", idx)
			seen[idx] = true
		}
		total += len(indices)
	}
	assert.Equal(t, len(targets), total)
}

func TestProbabilityQSkewsTowardOwnLabel(t *testing.T) {
	const numLabels = 5
	targets := syntheticTargets(numLabels, 200)

	// Rank 1 is the sole member of group 0 with 5 clients over 5 labels.
	indices, err := ProbabilityQ(targets, numLabels, 0.9, settingsFor(6, 1))
	require.NoError(t, err)

	own := 0
	for _, idx := range indices {
		if targets[idx] == 0 {
			own++
		}
	}
	assert.Greater(t, own, len(indices)/2)
}

func TestDirichletPartitionsDisjointlyAndCompletely(t *testing.T) {
	targets := syntheticTargets(10, 60)

	seen := map[int]bool{}
	total := 0
	for rank := 1; rank < 5; rank++ {
		indices, err := Dirichlet(targets, 10, 0.5, settingsFor(5, rank))
		require.NoError(t, err)
		for _, idx := range indices {
			assert.False(t, seen[idx], "index %d assigned twice", idx)
			seen[idx] = true
		}
		total += len(indices)
	}
	assert.Equal(t, len(targets), total)
}

func TestDirichletDeterministicPerSeed(t *testing.T) {
	targets := syntheticTargets(10, 30)

	first, err := Dirichlet(targets, 10, 0.3, settingsFor(4, 2))
	require.NoError(t, err)
	second, err := Dirichlet(targets, 10, 0.3, settingsFor(4, 2))
	require.NoError(t, err)
	assert.Equal(t, first, second)

	other, err := Dirichlet(targets, 10, 0.3, Settings{WorldSize: 4, Rank: 2, Seed: 7})
	require.NoError(t, err)
	sort.Ints(first)
	sort.Ints(other)
	assert.NotEqual(t, first, other)
}

func TestDirichletRejectsNonPositiveAlpha(t *testing.T) {
	targets := syntheticTargets(10, 10)
	_, err := Dirichlet(targets, 10, 0, settingsFor(4, 1))
	assert.Error(t, err)
}
