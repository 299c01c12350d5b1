package orchestrator

import (
	"github.com/pkg/errors"

	"github.com/fltkube/fltkube/internal/orchestrator/arrival"
	"github.com/fltkube/fltkube/internal/orchestrator/cluster"
	"github.com/fltkube/fltkube/internal/orchestrator/configuration"
	clustercontext "github.com/fltkube/fltkube/internal/orchestrator/context"
	"github.com/fltkube/fltkube/internal/orchestrator/job"
	"github.com/fltkube/fltkube/internal/orchestrator/render"
	"github.com/fltkube/fltkube/internal/orchestrator/tracker"
)

// StartUp wires an orchestrator for the configured policy against the
// cluster the process runs in (or the local kubeconfig outside a cluster).
func StartUp(config configuration.OrchestratorConfiguration, arrivals arrival.Feed) (Orchestrator, error) {
	if err := configuration.ValidateOrchestratorConfiguration(config); err != nil {
		return nil, err
	}

	clientProvider, err := cluster.NewKubernetesClientProvider()
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to kubernetes")
	}
	clusterContext := clustercontext.NewClusterContext(config.Namespace, clientProvider)

	renderer, err := render.NewTemplateRenderer(config.Execution.TemplatesPath)
	if err != nil {
		return nil, err
	}
	deployer := job.NewDeploymentService(clusterContext, renderer, config.Execution)
	jobTracker := tracker.New(clusterContext, config.Policy.PollInterval)

	switch config.Policy.Type {
	case configuration.PolicyBatch:
		return NewBatchOrchestrator(clusterContext, arrivals, deployer, jobTracker, config), nil
	case configuration.PolicyAdaptive:
		return NewAdaptiveOrchestrator(clusterContext, arrivals, deployer, jobTracker, config), nil
	default:
		return NewSimulatedOrchestrator(clusterContext, arrivals, deployer, jobTracker, config), nil
	}
}
