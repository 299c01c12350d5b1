package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/fltkube/fltkube/internal/common"
	"github.com/fltkube/fltkube/internal/orchestrator"
	"github.com/fltkube/fltkube/internal/orchestrator/arrival"
	"github.com/fltkube/fltkube/internal/orchestrator/configuration"
)

const (
	CustomConfigLocation string = "config"
	ClearFlag            string = "clear"
	ReplicationFlag      string = "replication"
)

func init() {
	pflag.String(CustomConfigLocation, "", "Fully qualified path to application configuration file")
	pflag.Bool(ClearFlag, false, "Remove jobs left behind by a previous run before scheduling")
	pflag.Int(ReplicationFlag, 1, "Replication index for experiment logging directories")
	pflag.Parse()
}

func main() {
	common.ConfigureLogging()
	common.BindCommandlineArguments()

	var config configuration.OrchestratorConfiguration
	userSpecifiedConfig := viper.GetString(CustomConfigLocation)
	common.LoadConfig(&config, "./config/orchestrator", userSpecifiedConfig)

	shutdownMetricServer := common.ServeMetrics(config.MetricsPort)
	defer shutdownMetricServer()

	// The arrival process itself is external; experiments defined in the
	// configuration are pushed onto the feed as one initial batch.
	arrivals := arrival.NewQueue()
	for _, experiment := range config.Experiments {
		arrivals.Push(arrival.Arrival{
			Experiment:   experiment.Name,
			Kind:         experiment.Kind,
			Dataset:      experiment.Dataset,
			Network:      experiment.Network,
			Priority:     experiment.Priority,
			Replication:  experiment.Replication,
			Epochs:       experiment.Epochs,
			BatchSize:    experiment.BatchSize,
			Parallelism:  experiment.Parallelism,
			LearningRate: experiment.LearningRate,
		})
	}

	o, err := orchestrator.StartUp(config, arrivals)
	if err != nil {
		log.Errorf("Failed to start orchestrator: %s", err)
		os.Exit(-1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stopSignal := make(chan os.Signal, 1)
	signal.Notify(stopSignal, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-stopSignal
		o.Stop()
		cancel()
	}()

	log.Infof("Starting %s policy in namespace %s", config.Policy.Type, config.Namespace)
	if err := o.Run(ctx, viper.GetBool(ClearFlag), viper.GetInt(ReplicationFlag)); err != nil {
		log.Errorf("Orchestrator run failed: %s", err)
		os.Exit(-1)
	}
}
