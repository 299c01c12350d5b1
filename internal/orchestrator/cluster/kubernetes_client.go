package cluster

import (
	log "github.com/sirupsen/logrus"
	"k8s.io/client-go/dynamic"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
)

type KubernetesClientProvider interface {
	Client() kubernetes.Interface
	DynamicClient() dynamic.Interface
}

type ConfigKubernetesClientProvider struct {
	restConfig    *rest.Config
	client        kubernetes.Interface
	dynamicClient dynamic.Interface
}

func NewKubernetesClientProvider() (*ConfigKubernetesClientProvider, error) {
	config, err := loadConfig()
	if err != nil {
		return nil, err
	}

	config.Burst = 10000
	config.QPS = 10000

	client, err := kubernetes.NewForConfig(config)
	if err != nil {
		return nil, err
	}

	dynamicClient, err := dynamic.NewForConfig(config)
	if err != nil {
		return nil, err
	}

	return &ConfigKubernetesClientProvider{
		restConfig:    config,
		client:        client,
		dynamicClient: dynamicClient,
	}, nil
}

func (c *ConfigKubernetesClientProvider) Client() kubernetes.Interface {
	return c.client
}

// DynamicClient gives access to the train job custom resources, which have
// no typed clientset in this module.
func (c *ConfigKubernetesClientProvider) DynamicClient() dynamic.Interface {
	return c.dynamicClient
}

func loadConfig() (*rest.Config, error) {
	config, err := rest.InClusterConfig()
	if err == rest.ErrNotInCluster {
		log.Info("Running with default client configuration")
		rules := clientcmd.NewDefaultClientConfigLoadingRules()
		overrides := &clientcmd.ConfigOverrides{}
		return clientcmd.NewNonInteractiveDeferredLoadingClientConfig(rules, overrides).ClientConfig()
	}
	log.Info("Running with in cluster client configuration")
	return config, err
}
