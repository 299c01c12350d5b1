package configuration

import (
	"time"
)

type PolicyType string

const (
	PolicySimulated PolicyType = "simulated"
	PolicyBatch     PolicyType = "batch"
	PolicyAdaptive  PolicyType = "adaptive"
)

type PolicyConfiguration struct {
	// Which control loop runs the experiment set.
	Type PolicyType
	// If false, every deployment blocks until that job completes before the
	// next one is considered.
	ParallelExecution bool
	// Sleep between control loop iterations and between completion polls.
	PollInterval time.Duration
	// Wall clock budget for the simulated and adaptive loops.
	Duration time.Duration
	// Batch only: wait for jobs left behind by a previous run before deploying.
	WaitForHistoricalJobs bool
}

// AdaptiveConfiguration holds the linear cost model used by the adaptive
// policy to rewrite epoch budgets. Parameters come from regression analysis
// over past runs, they are not task specific.
type AdaptiveConfiguration struct {
	TotalTime  float64
	Intercept  float64
	Slope      float64
	BaseEpochs int
}

type ExecutionConfiguration struct {
	LogPath          string
	ExperimentPrefix string
	// Directory containing the per-kind node configuration templates.
	TemplatesPath string
	TrainerImage  string
}

// ExperimentDefinition seeds the arrival feed at startup. The statistical
// arrival process itself lives outside this binary; definitions listed here
// are pushed onto the feed as-is.
type ExperimentDefinition struct {
	Name         string
	Kind         string
	Dataset      string
	Network      string
	Priority     int64
	Replication  int
	Epochs       int
	BatchSize    int
	Parallelism  int
	LearningRate float64
}

type OrchestratorConfiguration struct {
	MetricsPort uint16
	Namespace   string
	Policy      PolicyConfiguration
	Adaptive    AdaptiveConfiguration
	Execution   ExecutionConfiguration
	Experiments []ExperimentDefinition
}
