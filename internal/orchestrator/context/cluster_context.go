// Package context wraps the cluster-side surface the orchestrator talks
// to: train job custom resources managed by the training operator, and the
// config maps carrying per-node experiment configuration.
package context

import (
	ctx "context"

	"github.com/pkg/errors"
	v1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"k8s.io/client-go/dynamic"
	"k8s.io/client-go/kubernetes"

	"github.com/fltkube/fltkube/internal/orchestrator/cluster"
)

const (
	TrainJobGroup   = "kubeflow.org"
	TrainJobVersion = "v1"
	TrainJobPlural  = "pytorchjobs"
	TrainJobKind    = "PyTorchJob"
)

var TrainJobResource = schema.GroupVersionResource{
	Group:    TrainJobGroup,
	Version:  TrainJobVersion,
	Resource: TrainJobPlural,
}

type ClusterContext interface {
	SubmitJob(job *unstructured.Unstructured) error
	ListJobs() ([]string, error)
	GetJobStatus(name string) (string, error)
	DeleteJob(name string) error
	CreateConfigMap(configMap *v1.ConfigMap) error
	Namespace() string
	Stop()
}

type KubernetesClusterContext struct {
	namespace     string
	client        kubernetes.Interface
	dynamicClient dynamic.Interface
}

func NewClusterContext(namespace string, clientProvider cluster.KubernetesClientProvider) *KubernetesClusterContext {
	return &KubernetesClusterContext{
		namespace:     namespace,
		client:        clientProvider.Client(),
		dynamicClient: clientProvider.DynamicClient(),
	}
}

func (c *KubernetesClusterContext) Namespace() string {
	return c.namespace
}

func (c *KubernetesClusterContext) SubmitJob(job *unstructured.Unstructured) error {
	_, err := c.trainJobs().Create(ctx.Background(), job, metav1.CreateOptions{})
	return err
}

func (c *KubernetesClusterContext) ListJobs() ([]string, error) {
	list, err := c.trainJobs().List(ctx.Background(), metav1.ListOptions{})
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(list.Items))
	for _, item := range list.Items {
		names = append(names, item.GetName())
	}
	return names, nil
}

// GetJobStatus returns the type of the most recent true condition on the
// job, e.g. Running, Succeeded or Failed. A job without conditions reports
// an empty status.
func (c *KubernetesClusterContext) GetJobStatus(name string) (string, error) {
	job, err := c.trainJobs().Get(ctx.Background(), name, metav1.GetOptions{})
	if err != nil {
		return "", err
	}

	conditions, found, err := unstructured.NestedSlice(job.Object, "status", "conditions")
	if err != nil {
		return "", errors.Wrapf(err, "malformed status on job %s", name)
	}
	if !found {
		return "", nil
	}

	status := ""
	for _, condition := range conditions {
		fields, ok := condition.(map[string]interface{})
		if !ok {
			continue
		}
		if fields["status"] == string(v1.ConditionTrue) {
			if conditionType, ok := fields["type"].(string); ok {
				status = conditionType
			}
		}
	}
	return status, nil
}

func (c *KubernetesClusterContext) DeleteJob(name string) error {
	return c.trainJobs().Delete(ctx.Background(), name, metav1.DeleteOptions{})
}

func (c *KubernetesClusterContext) CreateConfigMap(configMap *v1.ConfigMap) error {
	_, err := c.client.CoreV1().ConfigMaps(c.namespace).Create(ctx.Background(), configMap, metav1.CreateOptions{})
	return err
}

func (c *KubernetesClusterContext) Stop() {}

func (c *KubernetesClusterContext) trainJobs() dynamic.ResourceInterface {
	return c.dynamicClient.Resource(TrainJobResource).Namespace(c.namespace)
}
