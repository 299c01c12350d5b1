// Package orchestrator contains the control loops that admit arriving
// experiments, deploy them on the cluster in priority order and track them
// to completion. Three policies exist: simulated (continuous), batch
// (all-at-once) and adaptive (simulated with epoch budget rewriting).
package orchestrator

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"k8s.io/utils/clock"

	"github.com/fltkube/fltkube/internal/orchestrator/arrival"
	"github.com/fltkube/fltkube/internal/orchestrator/configuration"
	clustercontext "github.com/fltkube/fltkube/internal/orchestrator/context"
	"github.com/fltkube/fltkube/internal/orchestrator/job"
	"github.com/fltkube/fltkube/internal/orchestrator/metrics"
	"github.com/fltkube/fltkube/internal/orchestrator/task"
	"github.com/fltkube/fltkube/internal/orchestrator/tracker"
)

type State int32

const (
	StateIdle State = iota
	StateRunning
	StateDraining
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateRunning:
		return "Running"
	case StateDraining:
		return "Draining"
	case StateStopped:
		return "Stopped"
	default:
		return "Unknown"
	}
}

type Orchestrator interface {
	// Run drives the policy until its stop condition or Stop. Clear removes
	// jobs left behind by previous runs first; experimentReplication tags
	// this run's artifacts and logging directories.
	Run(ctx context.Context, clear bool, experimentReplication int) error
	Stop()
	State() State
}

// baseOrchestrator carries the state shared by all policies. Each
// orchestrator instance owns its task sets outright; nothing is shared
// between instances, so several can run in one process against different
// namespaces. The control loop is single threaded: pending, deployed and
// completed are only touched from Run's goroutine, while Stop may be
// called from any goroutine.
type baseOrchestrator struct {
	clusterContext clustercontext.ClusterContext
	arrivals       arrival.Feed
	deployer       job.Deployer
	tracker        *tracker.JobTracker
	pending        *task.Queue
	config         configuration.OrchestratorConfiguration
	clock          clock.Clock
	alive          atomic.Bool
	state          atomic.Int32
	log            *log.Entry
}

func (o *baseOrchestrator) init(
	clusterContext clustercontext.ClusterContext,
	arrivals arrival.Feed,
	deployer job.Deployer,
	jobTracker *tracker.JobTracker,
	config configuration.OrchestratorConfiguration,
	name string,
) {
	o.clusterContext = clusterContext
	o.arrivals = arrivals
	o.deployer = deployer
	o.tracker = jobTracker
	o.pending = task.NewQueue()
	o.config = config
	o.clock = clock.RealClock{}
	o.log = log.WithField("orchestrator", name)
}

func (o *baseOrchestrator) Stop() {
	o.log.Info("Received stop signal for the Orchestrator.")
	o.alive.Store(false)
	o.clusterContext.Stop()
}

func (o *baseOrchestrator) State() State {
	return State(o.state.Load())
}

func (o *baseOrchestrator) setState(s State) {
	o.state.Store(int32(s))
}

// Observable task sets, for monitoring.
func (o *baseOrchestrator) PendingCount() int                 { return o.pending.Size() }
func (o *baseOrchestrator) DeployedTasks() []*task.TrainTask  { return o.tracker.DeployedTasks() }
func (o *baseOrchestrator) CompletedTasks() []*task.TrainTask { return o.tracker.CompletedTasks() }

// admitArrivals drains the arrival feed without blocking. A construction
// failure drops that single arrival only. When transform is non-nil it is
// applied to each task before it is enqueued.
func (o *baseOrchestrator) admitArrivals(transform func(*task.TrainTask)) {
	for {
		a, ok := o.arrivals.Pop()
		if !ok {
			return
		}
		trainTask, err := task.BuildTask(a, uuid.NewString(), a.Replication)
		if err != nil {
			o.log.WithError(err).Warnf("Dropping arrival %q: task construction failed", a.Experiment)
			metrics.ArrivalsDropped.Inc()
			continue
		}
		if transform != nil {
			transform(trainTask)
		}
		o.log.Infof("Arrival of: %s at %s", trainTask, o.clock.Now().Format(time.RFC3339))
		o.pending.Push(trainTask)
		metrics.TasksAdmitted.Inc()
		metrics.PendingTasks.Set(float64(o.pending.Size()))
	}
}

// deployPending submits every queued task in priority order. A failed
// deployment is logged and the next pending task is tried; it never aborts
// the batch. In sequential mode each deployment blocks until that job
// completes. The returned error is non-nil only when the run context ends.
func (o *baseOrchestrator) deployPending(ctx context.Context, experimentReplication int) error {
	for !o.pending.IsEmpty() {
		trainTask, err := o.pending.Pop()
		if err != nil {
			break
		}
		metrics.PendingTasks.Set(float64(o.pending.Size()))

		o.log.Infof("Scheduling task: %s, priority: %d", trainTask.ID, trainTask.Priority)
		if err := o.deployer.Deploy(trainTask, experimentReplication); err != nil {
			o.log.WithError(err).Errorf("Failed to deploy task %s, continuing with next pending task", trainTask.ID)
			metrics.TaskDeploymentsFailed.Inc()
			continue
		}
		o.tracker.MarkDeployed(trainTask)
		metrics.TasksDeployed.Inc()
		metrics.DeployedTasks.Set(float64(o.tracker.DeployedCount()))

		if !o.config.Policy.ParallelExecution {
			if err := o.waitForCompletion(ctx, nil); err != nil {
				return err
			}
		}
	}
	return nil
}

func (o *baseOrchestrator) waitForCompletion(ctx context.Context, others []string) error {
	completedBefore := o.tracker.CompletedCount()
	err := o.tracker.WaitForCompletion(ctx, others)
	metrics.TasksCompleted.Add(float64(o.tracker.CompletedCount() - completedBefore))
	metrics.DeployedTasks.Set(float64(o.tracker.DeployedCount()))
	return err
}

// clearJobs deletes jobs left behind by previous runs. Deletion failures
// are collected and reported but do not stop the remaining deletions.
func (o *baseOrchestrator) clearJobs() error {
	namespace := o.clusterContext.Namespace()
	o.log.Infof("Clearing old jobs in current namespace: %s", namespace)

	names, err := o.clusterContext.ListJobs()
	if err != nil {
		return errors.Wrapf(err, "listing jobs in namespace %s", namespace)
	}

	var result *multierror.Error
	for _, name := range names {
		o.log.Infof("Deleting: %s", name)
		if err := o.clusterContext.DeleteJob(name); err != nil {
			o.log.Warnf("Could not delete: %s. Reason: %s", name, err)
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}

func (o *baseOrchestrator) sleep(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-o.clock.After(o.config.Policy.PollInterval):
		return nil
	}
}

// runContinuous is the shared control loop of the simulated and adaptive
// policies: admit everything available, deploy everything pending, sleep;
// repeat while alive and within the duration budget. Deployed jobs are
// never orphaned: parallel mode always ends with one bulk completion wait.
func (o *baseOrchestrator) runContinuous(ctx context.Context, clear bool, experimentReplication int, transform func(*task.TrainTask)) error {
	o.alive.Store(true)
	o.setState(StateRunning)
	defer o.setState(StateStopped)
	// Runs after any final completion wait, releasing the cluster context.
	defer o.Stop()

	startTime := o.clock.Now()
	if clear {
		if err := o.clearJobs(); err != nil {
			o.log.WithError(err).Warn("Failed to clear previous jobs")
		}
	}

	for o.alive.Load() && o.clock.Since(startTime) < o.config.Policy.Duration {
		o.admitArrivals(transform)
		if err := o.deployPending(ctx, experimentReplication); err != nil {
			return err
		}
		o.log.Debug("Still alive...")
		if err := o.sleep(ctx); err != nil {
			break
		}
	}

	o.setState(StateDraining)
	o.alive.Store(false)
	if o.config.Policy.ParallelExecution {
		if err := o.waitForCompletion(ctx, nil); err != nil {
			return err
		}
	}
	o.log.Info("Experiment completed.")
	return nil
}
