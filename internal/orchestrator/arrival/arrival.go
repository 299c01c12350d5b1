// Package arrival defines the job request events consumed by the
// orchestrator and the drainable feed they are read from. How and when
// arrivals are produced (e.g. a Poisson process driven by a generator
// process) is outside this package; only the feed contract is.
package arrival

import (
	"sync"
)

// Arrival is an externally produced request for one training experiment,
// prior to admission.
type Arrival struct {
	Experiment   string
	Kind         string
	Dataset      string
	Network      string
	Priority     int64
	Replication  int
	Epochs       int
	BatchSize    int
	Parallelism  int
	LearningRate float64
}

// Feed is the read side of an arrival queue. Pop must not block; it reports
// false when the feed is empty, leaving the decision to wait or move on to
// the caller.
type Feed interface {
	Size() int
	IsEmpty() bool
	Pop() (Arrival, bool)
}

// Queue is an in-memory FIFO arrival feed, safe for one producer and one
// consumer in different goroutines.
type Queue struct {
	mu    sync.Mutex
	items []Arrival
}

func NewQueue() *Queue {
	return &Queue{}
}

func (q *Queue) Push(a Arrival) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, a)
}

func (q *Queue) Size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

func (q *Queue) IsEmpty() bool {
	return q.Size() == 0
}

func (q *Queue) Pop() (Arrival, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return Arrival{}, false
	}
	a := q.items[0]
	q.items = q.items[1:]
	return a, true
}
