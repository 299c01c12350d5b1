package job

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	v1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	"github.com/fltkube/fltkube/internal/orchestrator/configuration"
	clustercontext "github.com/fltkube/fltkube/internal/orchestrator/context"
	"github.com/fltkube/fltkube/internal/orchestrator/render"
	"github.com/fltkube/fltkube/internal/orchestrator/task"
)

// DeploymentFailedError reports that a single task could not be deployed.
// The calling policy decides whether to requeue, drop or abort; this
// package never retries.
type DeploymentFailedError struct {
	TaskID string
	Cause  error
}

func (e *DeploymentFailedError) Error() string {
	return fmt.Sprintf("deployment of task %s failed: %s", e.TaskID, e.Cause)
}

func (e *DeploymentFailedError) Unwrap() error {
	return e.Cause
}

type Deployer interface {
	Deploy(t *task.TrainTask, replication int) error
}

// DeploymentService renders and registers a task's configuration artifacts
// and submits its train job. It performs no polling; completion is the
// tracker's concern.
type DeploymentService struct {
	clusterContext clustercontext.ClusterContext
	renderer       render.Renderer
	execution      configuration.ExecutionConfiguration
}

func NewDeploymentService(
	clusterContext clustercontext.ClusterContext,
	renderer render.Renderer,
	execution configuration.ExecutionConfiguration,
) *DeploymentService {
	return &DeploymentService{
		clusterContext: clusterContext,
		renderer:       renderer,
		execution:      execution,
	}
}

func (s *DeploymentService) Deploy(t *task.TrainTask, replication int) error {
	experimentPath := ExperimentPath(s.execution, t)

	configMapNames := map[string]string{}
	for _, role := range t.Kind.Roles() {
		content, err := s.renderer.Render(t, role, replication, experimentPath)
		if err != nil {
			return &DeploymentFailedError{TaskID: t.ID, Cause: errors.Wrapf(err, "rendering %s configuration", role)}
		}

		name := strings.ToLower(fmt.Sprintf("%s-%s-%d", role, t.ID, replication))
		configMap := &v1.ConfigMap{
			ObjectMeta: metav1.ObjectMeta{
				Name:   name,
				Labels: map[string]string{"app.kubernetes.io/name": fmt.Sprintf("fltkube.node.config.%s", role)},
			},
			Data: map[string]string{"node.config.yaml": content},
		}
		if err := s.clusterContext.CreateConfigMap(configMap); err != nil {
			return &DeploymentFailedError{TaskID: t.ID, Cause: errors.Wrapf(err, "registering %s configuration", role)}
		}
		configMapNames[role] = name
	}

	jobToStart := BuildJob(t, configMapNames, s.clusterContext.Namespace(), s.execution.TrainerImage)
	log.Infof("Deploying on cluster: %s", t.ID)
	if err := s.clusterContext.SubmitJob(jobToStart); err != nil {
		return &DeploymentFailedError{TaskID: t.ID, Cause: errors.Wrap(err, "submitting train job")}
	}
	return nil
}
