// Package tracker owns the deployed and completed task sets and detects
// job completion by polling the cluster.
package tracker

import (
	"context"
	"regexp"
	"time"

	log "github.com/sirupsen/logrus"
	"k8s.io/utils/clock"

	clustercontext "github.com/fltkube/fltkube/internal/orchestrator/context"
	"github.com/fltkube/fltkube/internal/orchestrator/task"
)

var terminalStatuses = map[string]bool{
	"Completed": true,
	"Failed":    true,
	"Succeeded": true,
}

var uuidRegex = regexp.MustCompile("[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}")

// JobTracker tracks tasks from submission to a terminal status. A task id
// lives in at most one of the two sets at any instant, and moves
// deployed -> completed exactly once. All methods are called from the
// policy's control loop goroutine.
type JobTracker struct {
	clusterContext clustercontext.ClusterContext
	pollInterval   time.Duration
	clock          clock.Clock
	deployed       map[string]*task.TrainTask
	completed      map[string]*task.TrainTask
}

func New(clusterContext clustercontext.ClusterContext, pollInterval time.Duration) *JobTracker {
	return &JobTracker{
		clusterContext: clusterContext,
		pollInterval:   pollInterval,
		clock:          clock.RealClock{},
		deployed:       map[string]*task.TrainTask{},
		completed:      map[string]*task.TrainTask{},
	}
}

// MarkDeployed records a successfully submitted task.
func (t *JobTracker) MarkDeployed(trainTask *task.TrainTask) {
	t.deployed[trainTask.ID] = trainTask
}

func (t *JobTracker) DeployedCount() int {
	return len(t.deployed)
}

func (t *JobTracker) CompletedCount() int {
	return len(t.completed)
}

func (t *JobTracker) DeployedTasks() []*task.TrainTask {
	return collect(t.deployed)
}

func (t *JobTracker) CompletedTasks() []*task.TrainTask {
	return collect(t.completed)
}

// WaitForCompletion blocks until every deployed task has reached a terminal
// status. Identifiers in others (job names from a previous run) are matched
// for an embedded UUID and tracked alongside this run's tasks.
//
// A failed status query means the job is treated as still running and
// retried on the next iteration; a query hiccup must never be mistaken for
// job failure. The wait aborts between polls when ctx is cancelled. With an
// empty deployed set and no extra identifiers it returns immediately.
func (t *JobTracker) WaitForCompletion(ctx context.Context, others []string) error {
	for _, name := range others {
		if id := uuidRegex.FindString(name); id != "" {
			if _, tracked := t.deployed[id]; !tracked {
				t.deployed[id] = task.Historical(id)
			}
		}
	}

	for len(t.deployed) > 0 {
		for id, trainTask := range t.deployed {
			status, err := t.clusterContext.GetJobStatus(trainTask.JobName())
			if err != nil {
				log.Debugf("Could not retrieve job status for %s: %s", id, err)
				continue
			}
			if terminalStatuses[status] {
				log.Infof("%s was completed with status: %s, moving to completed", id, status)
				t.completed[id] = trainTask
				delete(t.deployed, id)
			} else {
				log.Infof("Waiting for %s to complete, current status: %q", id, status)
			}
		}
		if len(t.deployed) == 0 {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.clock.After(t.pollInterval):
		}
	}
	return nil
}

func collect(tasks map[string]*task.TrainTask) []*task.TrainTask {
	result := make([]*task.TrainTask, 0, len(tasks))
	for _, t := range tasks {
		result = append(result, t)
	}
	return result
}
