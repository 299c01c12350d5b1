package orchestrator

import (
	"context"

	"github.com/pkg/errors"

	"github.com/fltkube/fltkube/internal/orchestrator/arrival"
	"github.com/fltkube/fltkube/internal/orchestrator/configuration"
	clustercontext "github.com/fltkube/fltkube/internal/orchestrator/context"
	"github.com/fltkube/fltkube/internal/orchestrator/job"
	"github.com/fltkube/fltkube/internal/orchestrator/tracker"
)

// BatchOrchestrator runs every defined experiment in one go: it waits for
// the feed to produce at least one arrival, drains the feed completely and
// deploys the whole batch, then terminates.
type BatchOrchestrator struct {
	baseOrchestrator
}

func NewBatchOrchestrator(
	clusterContext clustercontext.ClusterContext,
	arrivals arrival.Feed,
	deployer job.Deployer,
	jobTracker *tracker.JobTracker,
	config configuration.OrchestratorConfiguration,
) *BatchOrchestrator {
	o := &BatchOrchestrator{}
	o.init(clusterContext, arrivals, deployer, jobTracker, config, "batch")
	return o
}

func (o *BatchOrchestrator) Run(ctx context.Context, clear bool, experimentReplication int) error {
	o.log.Infof("Starting experiment Orchestrator: %d", experimentReplication)
	o.alive.Store(true)
	o.setState(StateRunning)
	defer o.setState(StateStopped)
	// Runs after any final completion wait, releasing the cluster context.
	defer o.Stop()

	// Housekeeping is advisory: a failure here must not prevent scheduling.
	if err := o.housekeeping(ctx, clear); err != nil {
		o.log.WithError(err).Warn("Failed during house keeping")
	}

	// The generator may not have produced an experiment yet.
	for o.alive.Load() && o.arrivals.IsEmpty() {
		o.log.Info("Waiting for first arrival!")
		if err := o.sleep(ctx); err != nil {
			return err
		}
	}
	if !o.alive.Load() {
		return nil
	}

	o.admitArrivals(nil)
	if err := o.deployPending(ctx, experimentReplication); err != nil {
		return err
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

func (o *BatchOrchestrator) housekeeping(ctx context.Context, clear bool) error {
	if o.config.Policy.WaitForHistoricalJobs {
		jobs, err := o.clusterContext.ListJobs()
		if err != nil {
			return errors.Wrap(err, "listing historical jobs")
		}
		if err := o.waitForCompletion(ctx, jobs); err != nil {
			return err
		}
	}
	if clear {
		return o.clearJobs()
	}
	return nil
}
