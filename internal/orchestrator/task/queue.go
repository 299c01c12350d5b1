package task

import (
	"container/heap"

	"github.com/pkg/errors"
)

var ErrEmptyQueue = errors.New("pop from empty task queue")

// Queue is a min-priority queue over pending tasks, keyed by (priority,
// admission sequence). Equal priorities pop in admission order, so ordering
// is total and starvation free. Not safe for concurrent use; the control
// loop owns it from a single goroutine.
type Queue struct {
	pq      taskPQ
	nextSeq uint64
}

func NewQueue() *Queue {
	return &Queue{}
}

func (q *Queue) Push(t *TrainTask) {
	heap.Push(&q.pq, &queuedTask{task: t, seq: q.nextSeq})
	q.nextSeq++
}

func (q *Queue) Pop() (*TrainTask, error) {
	if q.pq.Len() == 0 {
		return nil, errors.WithStack(ErrEmptyQueue)
	}
	item := heap.Pop(&q.pq).(*queuedTask)
	return item.task, nil
}

func (q *Queue) IsEmpty() bool {
	return q.pq.Len() == 0
}

func (q *Queue) Size() int {
	return q.pq.Len()
}

// Queued returns the queued tasks in no particular order. Used by the
// adaptive policy to estimate the cost of the current backlog.
func (q *Queue) Queued() []*TrainTask {
	tasks := make([]*TrainTask, 0, q.pq.Len())
	for _, item := range q.pq.items {
		tasks = append(tasks, item.task)
	}
	return tasks
}

type queuedTask struct {
	task *TrainTask
	seq  uint64
}

type taskPQ struct {
	items []*queuedTask
}

func (pq *taskPQ) Len() int { return len(pq.items) }

func (pq *taskPQ) Less(i, j int) bool {
	if pq.items[i].task.Priority != pq.items[j].task.Priority {
		return pq.items[i].task.Priority < pq.items[j].task.Priority
	}
	return pq.items[i].seq < pq.items[j].seq
}

func (pq *taskPQ) Swap(i, j int) {
	pq.items[i], pq.items[j] = pq.items[j], pq.items[i]
}

func (pq *taskPQ) Push(x any) {
	pq.items = append(pq.items, x.(*queuedTask))
}

func (pq *taskPQ) Pop() any {
	n := len(pq.items)
	item := pq.items[n-1]
	pq.items[n-1] = nil
	pq.items = pq.items[:n-1]
	return item
}
