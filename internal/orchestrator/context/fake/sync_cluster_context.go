package fake

import (
	v1 "k8s.io/api/core/v1"
	k8s_errors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime/schema"
)

// SyncFakeClusterContext is an in-memory cluster context for tests. All
// fields are inspected and mutated from the test's goroutine.
type SyncFakeClusterContext struct {
	NamespaceName     string
	Jobs              map[string]*unstructured.Unstructured
	SubmittedJobNames []string
	ConfigMaps        map[string]*v1.ConfigMap
	JobStatuses       map[string]string
	DeletedJobNames   []string
	StopCalls         int

	SubmitError          error
	CreateConfigMapError error
	DeleteJobError       error
	ListJobsError        error
	// Overrides JobStatuses lookup when set.
	GetJobStatusFunc func(name string) (string, error)
}

func NewSyncFakeClusterContext() *SyncFakeClusterContext {
	return &SyncFakeClusterContext{
		NamespaceName: "test",
		Jobs:          map[string]*unstructured.Unstructured{},
		ConfigMaps:    map[string]*v1.ConfigMap{},
		JobStatuses:   map[string]string{},
	}
}

func (c *SyncFakeClusterContext) Namespace() string {
	return c.NamespaceName
}

func (c *SyncFakeClusterContext) SubmitJob(job *unstructured.Unstructured) error {
	if c.SubmitError != nil {
		return c.SubmitError
	}
	c.Jobs[job.GetName()] = job
	c.SubmittedJobNames = append(c.SubmittedJobNames, job.GetName())
	return nil
}

func (c *SyncFakeClusterContext) ListJobs() ([]string, error) {
	if c.ListJobsError != nil {
		return nil, c.ListJobsError
	}
	names := make([]string, 0, len(c.Jobs))
	for name := range c.Jobs {
		names = append(names, name)
	}
	return names, nil
}

func (c *SyncFakeClusterContext) GetJobStatus(name string) (string, error) {
	if c.GetJobStatusFunc != nil {
		return c.GetJobStatusFunc(name)
	}
	status, exists := c.JobStatuses[name]
	if !exists {
		return "", k8s_errors.NewNotFound(
			schema.GroupResource{Group: "kubeflow.org", Resource: "pytorchjobs"}, name)
	}
	return status, nil
}

func (c *SyncFakeClusterContext) DeleteJob(name string) error {
	if c.DeleteJobError != nil {
		return c.DeleteJobError
	}
	delete(c.Jobs, name)
	c.DeletedJobNames = append(c.DeletedJobNames, name)
	return nil
}

func (c *SyncFakeClusterContext) CreateConfigMap(configMap *v1.ConfigMap) error {
	if c.CreateConfigMapError != nil {
		return c.CreateConfigMapError
	}
	c.ConfigMaps[configMap.Name] = configMap
	return nil
}

func (c *SyncFakeClusterContext) Stop() {
	c.StopCalls++
}
