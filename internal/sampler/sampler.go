// Package sampler partitions a labeled dataset's indices across the nodes
// of one training deployment. Rank 0 is the federator and holds no data;
// ranks 1..WorldSize-1 are clients. All strategies are deterministic for a
// given seed, so every node computes the same global partition and picks
// its own share without coordination.
package sampler

import (
	"math"
	"math/rand"

	"github.com/pkg/errors"
)

// Settings describe one node's position in a deployment.
type Settings struct {
	WorldSize int
	Rank      int
	Seed      int64
}

func (s Settings) clientID() int { return s.Rank - 1 }
func (s Settings) clients() int  { return s.WorldSize - 1 }

func (s Settings) validate() error {
	if s.WorldSize < 2 {
		return errors.Errorf("world size must be at least 2 (federator plus one client), got %d", s.WorldSize)
	}
	if s.Rank < 1 || s.Rank >= s.WorldSize {
		return errors.Errorf("client rank must be in [1, %d), got %d", s.WorldSize, s.Rank)
	}
	return nil
}

// Uniform assigns every WorldSize-th index to this node, giving each client
// an IID share of the dataset.
func Uniform(datasetSize int, s Settings) ([]int, error) {
	if err := s.validate(); err != nil {
		return nil, err
	}
	indices := make([]int, 0, datasetSize/s.WorldSize+1)
	for i := s.Rank; i < datasetSize; i += s.WorldSize {
		indices = append(indices, i)
	}
	return indices, nil
}

// LimitLabels gives each client samples from at most limit distinct labels,
// producing a label-skewed (non-IID) distribution. Labels are dealt to
// clients round-robin over a seeded shuffle; clients sharing a label split
// its samples evenly.
func LimitLabels(targets []int, numLabels int, limit int, s Settings) ([]int, error) {
	if err := s.validate(); err != nil {
		return nil, err
	}
	if limit < 1 || limit > numLabels {
		return nil, errors.Errorf("label limit must be in [1, %d], got %d", numLabels, limit)
	}

	rng := rand.New(rand.NewSource(s.Seed))
	labelOrder := rng.Perm(numLabels)

	// Deal every client a block of limit consecutive positions in the
	// shuffled label order. Consecutive positions are distinct modulo
	// numLabels (limit <= numLabels), so a client never holds a label
	// twice regardless of how clients and labels align.
	clientLabels := make([][]int, s.clients())
	for client := range clientLabels {
		for j := 0; j < limit; j++ {
			label := labelOrder[(client*limit+j)%numLabels]
			clientLabels[client] = append(clientLabels[client], label)
		}
	}

	holders := make([][]int, numLabels)
	for client, labels := range clientLabels {
		for _, label := range labels {
			holders[label] = append(holders[label], client)
		}
	}

	orderedByLabel := orderByLabel(targets, numLabels)
	indices := make([]int, 0)
	for _, label := range clientLabels[s.clientID()] {
		samples := orderedByLabel[label]
		share := len(samples) / len(holders[label])
		position := 0
		for i, holder := range holders[label] {
			if holder == s.clientID() {
				position = i
				break
			}
		}
		start := position * share
		end := start + share
		if position == len(holders[label])-1 {
			end = len(samples)
		}
		indices = append(indices, samples[start:end]...)
	}

	shuffleForClient(indices, s)
	return indices, nil
}

// ProbabilityQ divides clients into one group per label; a sample with
// label m goes to a member of group m with probability q and to any other
// group with probability (1-q)/(numLabels-1). Requires the client count to
// be a multiple of the label count.
func ProbabilityQ(targets []int, numLabels int, q float64, s Settings) ([]int, error) {
	if err := s.validate(); err != nil {
		return nil, err
	}
	if s.clients()%numLabels != 0 {
		return nil, errors.Errorf(
			"multiples of %d clients are needed for the probability-q distribution, %d does not work",
			numLabels, s.clients())
	}

	groupID := s.clientID() % numLabels
	groupClients := make([]int, 0, s.clients()/numLabels)
	for client := 0; client < s.clients(); client++ {
		if client%numLabels == groupID {
			groupClients = append(groupClients, client)
		}
	}

	// Every client consumes the identical random stream, so each sample
	// lands with exactly one client globally.
	rng := rand.New(rand.NewSource(s.Seed))
	orderedByLabel := orderByLabel(targets, numLabels)
	indices := make([]int, 0)
	counter := 0
	for group, samples := range orderedByLabel {
		for _, sampleIdx := range samples {
			targetGroup := -1
			if rng.Float64() < q {
				targetGroup = group
			} else {
				pick := rng.Intn(numLabels - 1)
				if pick >= group {
					pick++
				}
				targetGroup = pick
			}
			if targetGroup == groupID {
				if groupClients[counter] == s.clientID() {
					indices = append(indices, sampleIdx)
				}
				counter = (counter + 1) % len(groupClients)
			}
		}
	}

	shuffleForClient(indices, s)
	return indices, nil
}

// Dirichlet skews both label and quantity distribution: for every label, a
// Dirichlet(alpha) draw decides how many of its samples each client gets.
// Smaller alpha means a more non-IID split.
func Dirichlet(targets []int, numLabels int, alpha float64, s Settings) ([]int, error) {
	if err := s.validate(); err != nil {
		return nil, err
	}
	if alpha <= 0 {
		return nil, errors.Errorf("dirichlet alpha must be positive, got %v", alpha)
	}

	rng := rand.New(rand.NewSource(s.Seed))
	orderedByLabel := orderByLabel(targets, numLabels)
	indices := make([]int, 0)
	for _, samples := range orderedByLabel {
		allocation := dirichletDraw(rng, alpha, s.clients())

		start := 0
		for client := 0; client < s.clientID(); client++ {
			start += int(allocation[client] * float64(len(samples)))
		}
		end := start + int(allocation[s.clientID()]*float64(len(samples)))
		if s.clientID() == s.clients()-1 {
			end = len(samples)
		}
		indices = append(indices, samples[start:end]...)
	}

	shuffleForClient(indices, s)
	return indices, nil
}

func orderByLabel(targets []int, numLabels int) [][]int {
	ordered := make([][]int, numLabels)
	for index, target := range targets {
		if target >= 0 && target < numLabels {
			ordered[target] = append(ordered[target], index)
		}
	}
	return ordered
}

// shuffleForClient spreads the labels through each client's epoch with a
// shuffle unique to that client.
func shuffleForClient(indices []int, s Settings) {
	rng := rand.New(rand.NewSource(s.Seed + int64(s.clientID())))
	rng.Shuffle(len(indices), func(i, j int) {
		indices[i], indices[j] = indices[j], indices[i]
	})
}

// dirichletDraw samples a probability vector of length n from a symmetric
// Dirichlet(alpha) via normalized gamma draws.
func dirichletDraw(rng *rand.Rand, alpha float64, n int) []float64 {
	draw := make([]float64, n)
	sum := 0.0
	for i := range draw {
		draw[i] = gammaSample(rng, alpha)
		sum += draw[i]
	}
	for i := range draw {
		draw[i] /= sum
	}
	return draw
}

// gammaSample draws from Gamma(alpha, 1) using Marsaglia-Tsang, with the
// usual boost for alpha < 1.
func gammaSample(rng *rand.Rand, alpha float64) float64 {
	if alpha < 1 {
		return gammaSample(rng, alpha+1) * math.Pow(rng.Float64(), 1/alpha)
	}
	d := alpha - 1.0/3.0
	c := 1.0 / math.Sqrt(9.0*d)
	for {
		x := rng.NormFloat64()
		v := 1.0 + c*x
		if v <= 0 {
			continue
		}
		v = v * v * v
		u := rng.Float64()
		if u < 1.0-0.0331*x*x*x*x {
			return d * v
		}
		if math.Log(u) < 0.5*x*x+d*(1.0-v+math.Log(v)) {
			return d * v
		}
	}
}
