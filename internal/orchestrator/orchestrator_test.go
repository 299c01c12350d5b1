package orchestrator

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fltkube/fltkube/internal/orchestrator/arrival"
	"github.com/fltkube/fltkube/internal/orchestrator/configuration"
	"github.com/fltkube/fltkube/internal/orchestrator/context/fake"
	"github.com/fltkube/fltkube/internal/orchestrator/task"
	"github.com/fltkube/fltkube/internal/orchestrator/tracker"
)

// recordingDeployer records the order in which tasks are handed to the
// deployment coordinator.
type recordingDeployer struct {
	deployed []*task.TrainTask
	failFor  map[string]error
}

func (d *recordingDeployer) Deploy(t *task.TrainTask, replication int) error {
	if err := d.failFor[t.Experiment]; err != nil {
		return err
	}
	d.deployed = append(d.deployed, t)
	return nil
}

func (d *recordingDeployer) experiments() []string {
	names := make([]string, 0, len(d.deployed))
	for _, t := range d.deployed {
		names = append(names, t.Experiment)
	}
	return names
}

func testConfig(policyType configuration.PolicyType, parallel bool) configuration.OrchestratorConfiguration {
	return configuration.OrchestratorConfiguration{
		Namespace: "test",
		Policy: configuration.PolicyConfiguration{
			Type:              policyType,
			ParallelExecution: parallel,
			PollInterval:      time.Millisecond,
			Duration:          50 * time.Millisecond,
		},
		Adaptive: configuration.AdaptiveConfiguration{
			TotalTime:  100,
			Intercept:  -3.1629,
			Slope:      27.0135,
			BaseEpochs: 10,
		},
		Execution: configuration.ExecutionConfiguration{TemplatesPath: "unused"},
	}
}

func completedContext() *fake.SyncFakeClusterContext {
	clusterContext := fake.NewSyncFakeClusterContext()
	clusterContext.GetJobStatusFunc = func(name string) (string, error) {
		return "Completed", nil
	}
	return clusterContext
}

func distributedArrival(name string, priority int64) arrival.Arrival {
	return arrival.Arrival{
		Experiment:  name,
		Kind:        "distributed",
		Dataset:     "mnist",
		Network:     "lenet5",
		Priority:    priority,
		Epochs:      10,
		Parallelism: 2,
	}
}

// Scenario: three arrivals with priorities [3,1,2] must deploy in priority
// order in a sequential batch run.
func TestBatchRun_SequentialDeploymentFollowsPriorityOrder(t *testing.T) {
	feed := arrival.NewQueue()
	feed.Push(distributedArrival("prio-3", 3))
	feed.Push(distributedArrival("prio-1", 1))
	feed.Push(distributedArrival("prio-2", 2))

	clusterContext := completedContext()
	config := testConfig(configuration.PolicyBatch, false)
	deployer := &recordingDeployer{}
	o := NewBatchOrchestrator(clusterContext, feed, deployer, tracker.New(clusterContext, config.Policy.PollInterval), config)

	require.NoError(t, o.Run(context.Background(), false, 1))

	assert.Equal(t, []string{"prio-1", "prio-2", "prio-3"}, deployer.experiments())
	assert.Equal(t, 0, o.PendingCount())
	assert.Empty(t, o.DeployedTasks())
	assert.Len(t, o.CompletedTasks(), 3)
	assert.Equal(t, StateStopped, o.State())
}

func TestBatchRun_ParallelDeploymentCompletesAllTasks(t *testing.T) {
	feed := arrival.NewQueue()
	feed.Push(distributedArrival("a", 1))
	feed.Push(distributedArrival("b", 1))

	clusterContext := completedContext()
	config := testConfig(configuration.PolicyBatch, true)
	deployer := &recordingDeployer{}
	o := NewBatchOrchestrator(clusterContext, feed, deployer, tracker.New(clusterContext, config.Policy.PollInterval), config)

	require.NoError(t, o.Run(context.Background(), false, 1))

	// Stability: equal priorities deploy in admission order.
	assert.Equal(t, []string{"a", "b"}, deployer.experiments())
	assert.Len(t, o.CompletedTasks(), 2)
}

// Scenario: an unrecognized experiment kind fails construction without
// corrupting the pending queue or crashing the control loop.
func TestBatchRun_UnknownKindArrivalIsDroppedAndRunContinues(t *testing.T) {
	feed := arrival.NewQueue()
	bad := distributedArrival("bad", 1)
	bad.Kind = "quantum"
	feed.Push(bad)
	feed.Push(distributedArrival("good", 2))

	clusterContext := completedContext()
	config := testConfig(configuration.PolicyBatch, false)
	deployer := &recordingDeployer{}
	o := NewBatchOrchestrator(clusterContext, feed, deployer, tracker.New(clusterContext, config.Policy.PollInterval), config)

	require.NoError(t, o.Run(context.Background(), false, 1))

	assert.Equal(t, []string{"good"}, deployer.experiments())
	assert.Equal(t, 0, o.PendingCount())
	assert.Len(t, o.CompletedTasks(), 1)
}

func TestBatchRun_DeploymentFailureDoesNotAbortTheBatch(t *testing.T) {
	feed := arrival.NewQueue()
	feed.Push(distributedArrival("failing", 1))
	feed.Push(distributedArrival("after-failure", 2))

	clusterContext := completedContext()
	config := testConfig(configuration.PolicyBatch, false)
	deployer := &recordingDeployer{failFor: map[string]error{"failing": errors.New("submission rejected")}}
	o := NewBatchOrchestrator(clusterContext, feed, deployer, tracker.New(clusterContext, config.Policy.PollInterval), config)

	require.NoError(t, o.Run(context.Background(), false, 1))

	assert.Equal(t, []string{"after-failure"}, deployer.experiments())
	assert.Len(t, o.CompletedTasks(), 1)
}

func TestBatchRun_WaitsForHistoricalJobs(t *testing.T) {
	feed := arrival.NewQueue()
	feed.Push(distributedArrival("new", 1))

	clusterContext := completedContext()
	historicalId := "aaaaaaaa-bbbb-cccc-dddd-eeeeeeeeeeee"
	clusterContext.Jobs["trainjob-"+historicalId] = nil

	config := testConfig(configuration.PolicyBatch, false)
	config.Policy.WaitForHistoricalJobs = true
	deployer := &recordingDeployer{}
	o := NewBatchOrchestrator(clusterContext, feed, deployer, tracker.New(clusterContext, config.Policy.PollInterval), config)

	require.NoError(t, o.Run(context.Background(), false, 1))

	completedIds := make([]string, 0)
	for _, completed := range o.CompletedTasks() {
		completedIds = append(completedIds, completed.ID)
	}
	assert.Contains(t, completedIds, historicalId)
	assert.Len(t, o.CompletedTasks(), 2)
}

func TestBatchRun_HousekeepingFailureIsAdvisory(t *testing.T) {
	feed := arrival.NewQueue()
	feed.Push(distributedArrival("new", 1))

	clusterContext := completedContext()
	clusterContext.ListJobsError = errors.New("control plane unavailable")

	config := testConfig(configuration.PolicyBatch, false)
	config.Policy.WaitForHistoricalJobs = true
	deployer := &recordingDeployer{}
	o := NewBatchOrchestrator(clusterContext, feed, deployer, tracker.New(clusterContext, config.Policy.PollInterval), config)

	require.NoError(t, o.Run(context.Background(), false, 1))
	assert.Equal(t, []string{"new"}, deployer.experiments())
}

func TestSimulatedRun_DeploysArrivalsUntilDurationExpires(t *testing.T) {
	feed := arrival.NewQueue()
	feed.Push(distributedArrival("a", 1))
	feed.Push(distributedArrival("b", 2))

	clusterContext := completedContext()
	config := testConfig(configuration.PolicySimulated, true)
	deployer := &recordingDeployer{}
	o := NewSimulatedOrchestrator(clusterContext, feed, deployer, tracker.New(clusterContext, config.Policy.PollInterval), config)

	require.NoError(t, o.Run(context.Background(), false, 1))

	assert.Equal(t, []string{"a", "b"}, deployer.experiments())
	assert.Empty(t, o.DeployedTasks())
	assert.Len(t, o.CompletedTasks(), 2)
	assert.Equal(t, StateStopped, o.State())
}

func TestSimulatedRun_ClearDeletesExistingJobs(t *testing.T) {
	feed := arrival.NewQueue()
	clusterContext := completedContext()
	clusterContext.Jobs["trainjob-old"] = nil

	config := testConfig(configuration.PolicySimulated, true)
	deployer := &recordingDeployer{}
	o := NewSimulatedOrchestrator(clusterContext, feed, deployer, tracker.New(clusterContext, config.Policy.PollInterval), config)

	require.NoError(t, o.Run(context.Background(), false, 1)) // no clear: job stays
	assert.Empty(t, clusterContext.DeletedJobNames)

	require.NoError(t, o.Run(context.Background(), true, 1))
	assert.Equal(t, []string{"trainjob-old"}, clusterContext.DeletedJobNames)
}

func TestRun_StopsClusterContextOnNaturalExit(t *testing.T) {
	feed := arrival.NewQueue()
	feed.Push(distributedArrival("a", 1))

	batchContext := completedContext()
	config := testConfig(configuration.PolicyBatch, true)
	batch := NewBatchOrchestrator(batchContext, feed, &recordingDeployer{}, tracker.New(batchContext, config.Policy.PollInterval), config)
	require.NoError(t, batch.Run(context.Background(), false, 1))
	assert.Equal(t, 1, batchContext.StopCalls)

	simFeed := arrival.NewQueue()
	simFeed.Push(distributedArrival("a", 1))
	simContext := completedContext()
	simConfig := testConfig(configuration.PolicySimulated, true)
	sim := NewSimulatedOrchestrator(simContext, simFeed, &recordingDeployer{}, tracker.New(simContext, simConfig.Policy.PollInterval), simConfig)
	require.NoError(t, sim.Run(context.Background(), false, 1))
	assert.Equal(t, 1, simContext.StopCalls)
}

func TestStop_EndsTheSimulatedLoopBeforeDurationExpires(t *testing.T) {
	feed := arrival.NewQueue()
	clusterContext := completedContext()
	config := testConfig(configuration.PolicySimulated, true)
	config.Policy.Duration = time.Hour
	deployer := &recordingDeployer{}
	o := NewSimulatedOrchestrator(clusterContext, feed, deployer, tracker.New(clusterContext, config.Policy.PollInterval), config)

	done := make(chan error, 1)
	go func() {
		done <- o.Run(context.Background(), false, 1)
	}()

	require.Eventually(t, func() bool { return o.State() == StateRunning }, time.Second, time.Millisecond)
	o.Stop()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("orchestrator did not stop")
	}
	assert.Equal(t, StateStopped, o.State())
}
