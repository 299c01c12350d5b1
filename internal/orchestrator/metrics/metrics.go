package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const MetricsPrefix = "fltkube_orchestrator_"

var TasksAdmitted = promauto.NewCounter(prometheus.CounterOpts{
	Name: MetricsPrefix + "tasks_admitted_total",
	Help: "Number of arrivals admitted as tasks",
})

var TasksDeployed = promauto.NewCounter(prometheus.CounterOpts{
	Name: MetricsPrefix + "tasks_deployed_total",
	Help: "Number of tasks submitted to the cluster",
})

var TasksCompleted = promauto.NewCounter(prometheus.CounterOpts{
	Name: MetricsPrefix + "tasks_completed_total",
	Help: "Number of tasks observed to reach a terminal status",
})

var TaskDeploymentsFailed = promauto.NewCounter(prometheus.CounterOpts{
	Name: MetricsPrefix + "task_deployments_failed_total",
	Help: "Number of task deployments that failed and were dropped",
})

var ArrivalsDropped = promauto.NewCounter(prometheus.CounterOpts{
	Name: MetricsPrefix + "arrivals_dropped_total",
	Help: "Number of arrivals dropped because task construction failed",
})

var PendingTasks = promauto.NewGauge(prometheus.GaugeOpts{
	Name: MetricsPrefix + "pending_tasks",
	Help: "Tasks admitted but not yet deployed",
})

var DeployedTasks = promauto.NewGauge(prometheus.GaugeOpts{
	Name: MetricsPrefix + "deployed_tasks",
	Help: "Tasks submitted to the cluster without a terminal status yet",
})
