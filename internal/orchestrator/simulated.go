package orchestrator

import (
	"context"

	"github.com/fltkube/fltkube/internal/orchestrator/arrival"
	"github.com/fltkube/fltkube/internal/orchestrator/configuration"
	clustercontext "github.com/fltkube/fltkube/internal/orchestrator/context"
	"github.com/fltkube/fltkube/internal/orchestrator/job"
	"github.com/fltkube/fltkube/internal/orchestrator/tracker"
)

// SimulatedOrchestrator deploys experiments continuously as they arrive,
// for use with simulated arrival processes (e.g. Poisson inter-arrival
// times produced by an external generator).
type SimulatedOrchestrator struct {
	baseOrchestrator
}

func NewSimulatedOrchestrator(
	clusterContext clustercontext.ClusterContext,
	arrivals arrival.Feed,
	deployer job.Deployer,
	jobTracker *tracker.JobTracker,
	config configuration.OrchestratorConfiguration,
) *SimulatedOrchestrator {
	o := &SimulatedOrchestrator{}
	o.init(clusterContext, arrivals, deployer, jobTracker, config, "simulated")
	return o
}

func (o *SimulatedOrchestrator) Run(ctx context.Context, clear bool, experimentReplication int) error {
	return o.runContinuous(ctx, clear, experimentReplication, nil)
}
