package job

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"

	"github.com/fltkube/fltkube/internal/orchestrator/configuration"
	"github.com/fltkube/fltkube/internal/orchestrator/task"
)

func TestExperimentPath(t *testing.T) {
	execution := configuration.ExecutionConfiguration{LogPath: "logs", ExperimentPrefix: "fltkube"}
	trainTask := &task.TrainTask{ID: "abc", Dataset: "mnist", Network: "lenet5", Replication: 2}

	assert.Equal(t, "logs/fltkube/mnist_lenet5_abc_2", ExperimentPath(execution, trainTask))
}

func TestBuildJob_DescriptorShape(t *testing.T) {
	trainTask := &task.TrainTask{
		ID:          "abc",
		Kind:        task.KindDistributed,
		Parallelism: 4,
	}
	configMapNames := map[string]string{"master": "master-abc-1", "worker": "worker-abc-1"}

	jobDescriptor := BuildJob(trainTask, configMapNames, "test", "fltkube/trainer:latest")

	assert.Equal(t, "PyTorchJob", jobDescriptor.GetKind())
	assert.Equal(t, "kubeflow.org/v1", jobDescriptor.GetAPIVersion())
	assert.Equal(t, "trainjob-abc", jobDescriptor.GetName())
	assert.Equal(t, "test", jobDescriptor.GetNamespace())

	masterReplicas, found, err := unstructured.NestedInt64(jobDescriptor.Object,
		"spec", "pytorchReplicaSpecs", "Master", "replicas")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, int64(1), masterReplicas)

	workerReplicas, found, err := unstructured.NestedInt64(jobDescriptor.Object,
		"spec", "pytorchReplicaSpecs", "Worker", "replicas")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, int64(3), workerReplicas)
}

func TestBuildJob_SingleNodeTaskHasNoWorkers(t *testing.T) {
	trainTask := &task.TrainTask{ID: "abc", Kind: task.KindFederated, Parallelism: 1}

	jobDescriptor := BuildJob(trainTask, map[string]string{}, "test", "img")

	workerReplicas, _, err := unstructured.NestedInt64(jobDescriptor.Object,
		"spec", "pytorchReplicaSpecs", "Worker", "replicas")
	require.NoError(t, err)
	assert.Equal(t, int64(0), workerReplicas)
}
