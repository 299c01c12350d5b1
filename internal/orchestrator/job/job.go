// Package job builds train job descriptors from tasks and deploys them,
// together with their per-role configuration artifacts, to the cluster.
package job

import (
	"fmt"

	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"

	"github.com/fltkube/fltkube/internal/orchestrator/configuration"
	clustercontext "github.com/fltkube/fltkube/internal/orchestrator/context"
	"github.com/fltkube/fltkube/internal/orchestrator/task"
)

// ExperimentPath is the per-experiment logging directory. It outlives the
// train job itself, so results remain reachable after job cleanup.
func ExperimentPath(execution configuration.ExecutionConfiguration, t *task.TrainTask) string {
	experimentName := fmt.Sprintf("%s_%s_%s_%d", t.Dataset, t.Network, t.ID, t.Replication)
	return fmt.Sprintf("%s/%s/%s", execution.LogPath, execution.ExperimentPrefix, experimentName)
}

// BuildJob constructs the train job custom resource for a task. The first
// role of the task's kind becomes the Master replica spec, the second the
// Worker spec; worker count is the task's parallelism minus the master.
func BuildJob(t *task.TrainTask, configMapNames map[string]string, namespace string, image string) *unstructured.Unstructured {
	roles := t.Kind.Roles()
	workerReplicas := t.Parallelism - 1
	if workerReplicas < 0 {
		workerReplicas = 0
	}

	return &unstructured.Unstructured{
		Object: map[string]interface{}{
			"apiVersion": clustercontext.TrainJobGroup + "/" + clustercontext.TrainJobVersion,
			"kind":       clustercontext.TrainJobKind,
			"metadata": map[string]interface{}{
				"name":      t.JobName(),
				"namespace": namespace,
				"labels": map[string]interface{}{
					"app.kubernetes.io/name":      "fltkube",
					"fltkube.org/experiment-kind": string(t.Kind),
					"fltkube.org/task-id":         t.ID,
				},
			},
			"spec": map[string]interface{}{
				"pytorchReplicaSpecs": map[string]interface{}{
					"Master": replicaSpec(1, roles[0], configMapNames[roles[0]], image),
					"Worker": replicaSpec(int64(workerReplicas), roles[1], configMapNames[roles[1]], image),
				},
			},
		},
	}
}

func replicaSpec(replicas int64, role string, configMapName string, image string) map[string]interface{} {
	return map[string]interface{}{
		"replicas":      replicas,
		"restartPolicy": "OnFailure",
		"template": map[string]interface{}{
			"spec": map[string]interface{}{
				"containers": []interface{}{
					map[string]interface{}{
						"name":  "pytorch",
						"image": image,
						"volumeMounts": []interface{}{
							map[string]interface{}{
								"name":      "node-config",
								"mountPath": "/opt/fltkube/config",
							},
						},
					},
				},
				"volumes": []interface{}{
					map[string]interface{}{
						"name": "node-config",
						"configMap": map[string]interface{}{
							"name": configMapName,
						},
					},
				},
			},
		},
	}
}
