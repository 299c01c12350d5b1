package orchestrator

import (
	"context"

	"github.com/fltkube/fltkube/internal/orchestrator/arrival"
	"github.com/fltkube/fltkube/internal/orchestrator/configuration"
	clustercontext "github.com/fltkube/fltkube/internal/orchestrator/context"
	"github.com/fltkube/fltkube/internal/orchestrator/job"
	"github.com/fltkube/fltkube/internal/orchestrator/task"
	"github.com/fltkube/fltkube/internal/orchestrator/tracker"
)

// AdaptiveOrchestrator is the simulated policy with admission control: each
// newly admitted task's epoch budget is rewritten so the backlog fits the
// configured time envelope, trading per-task fidelity for throughput.
type AdaptiveOrchestrator struct {
	baseOrchestrator
}

func NewAdaptiveOrchestrator(
	clusterContext clustercontext.ClusterContext,
	arrivals arrival.Feed,
	deployer job.Deployer,
	jobTracker *tracker.JobTracker,
	config configuration.OrchestratorConfiguration,
) *AdaptiveOrchestrator {
	o := &AdaptiveOrchestrator{}
	o.init(clusterContext, arrivals, deployer, jobTracker, config, "adaptive")
	return o
}

func (o *AdaptiveOrchestrator) Run(ctx context.Context, clear bool, experimentReplication int) error {
	return o.runContinuous(ctx, clear, experimentReplication, o.optimizeEpochs)
}

// estimatedTime is the wall clock cost of a task under the linear
// regression model.
func (o *AdaptiveOrchestrator) estimatedTime(epochs int) float64 {
	return o.config.Adaptive.Intercept + o.config.Adaptive.Slope*float64(epochs)
}

// optimizeEpochs rewrites the task's epoch budget by inverting the cost
// model over the time left once the current backlog is accounted for. The
// result is clamped to [1, BaseEpochs]: a task is never assigned a zero or
// negative budget, and never more than the base budget it asked under.
func (o *AdaptiveOrchestrator) optimizeEpochs(trainTask *task.TrainTask) {
	queueTime := 0.0
	for _, pending := range o.pending.Queued() {
		queueTime += o.estimatedTime(pending.Epochs)
	}

	allocatedTime := o.config.Adaptive.TotalTime - queueTime
	epochs := int((allocatedTime - o.config.Adaptive.Intercept) / o.config.Adaptive.Slope)
	if epochs < 1 {
		epochs = 1
	} else if epochs > o.config.Adaptive.BaseEpochs {
		epochs = o.config.Adaptive.BaseEpochs
	}

	if epochs != trainTask.Epochs {
		o.log.Infof("Rewriting epoch budget of task %s: %d -> %d", trainTask.ID, trainTask.Epochs, epochs)
	}
	trainTask.SetEpochs(epochs)
}
