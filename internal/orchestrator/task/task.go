// Package task holds the orchestrator's internal representation of an
// admitted experiment and the priority queue pending tasks wait in.
package task

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/fltkube/fltkube/internal/orchestrator/arrival"
)

// Kind distinguishes the experiment variants the orchestrator can deploy.
// It is resolved once, at construction; an unrecognized variant never makes
// it into the queue.
type Kind string

const (
	KindFederated   Kind = "federated"
	KindDistributed Kind = "distributed"
)

var ErrUnknownExperimentKind = errors.New("unknown experiment kind")

func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindFederated:
		return KindFederated, nil
	case KindDistributed:
		return KindDistributed, nil
	default:
		return "", errors.Wrapf(ErrUnknownExperimentKind, "%q", s)
	}
}

// Roles returns the node roles an experiment of this kind deploys, in the
// order their configuration artifacts are created.
func (k Kind) Roles() []string {
	switch k {
	case KindFederated:
		return []string{"federator", "client"}
	default:
		return []string{"master", "worker"}
	}
}

// TrainTask is one admitted, schedulable unit of work. Except for the epoch
// budget, which the adaptive policy may rewrite before deployment, a task is
// immutable once built.
type TrainTask struct {
	ID          string
	Priority    int64
	Experiment  string
	Kind        Kind
	Dataset     string
	Network     string
	Replication int
	// Budget rewritten by SetEpochs; everything else is fixed at admission.
	Epochs       int
	BatchSize    int
	Parallelism  int
	LearningRate float64
}

// BuildTask converts an arrival into a task. It is pure: the same arrival,
// id and replication always produce an identical task.
func BuildTask(a arrival.Arrival, id string, replication int) (*TrainTask, error) {
	kind, err := ParseKind(a.Kind)
	if err != nil {
		return nil, err
	}
	return &TrainTask{
		ID:           id,
		Priority:     a.Priority,
		Experiment:   a.Experiment,
		Kind:         kind,
		Dataset:      a.Dataset,
		Network:      a.Network,
		Replication:  replication,
		Epochs:       a.Epochs,
		BatchSize:    a.BatchSize,
		Parallelism:  a.Parallelism,
		LearningRate: a.LearningRate,
	}, nil
}

// Historical wraps the identifier of a job deployed by a previous run, so it
// can be tracked to completion alongside this run's tasks.
func Historical(id string) *TrainTask {
	return &TrainTask{ID: id}
}

func (t *TrainTask) SetEpochs(epochs int) {
	t.Epochs = epochs
}

// JobName is the name of the train job resource submitted for this task.
func (t *TrainTask) JobName() string {
	return fmt.Sprintf("trainjob-%s", t.ID)
}

func (t *TrainTask) String() string {
	return fmt.Sprintf("%s/%s/%s (%s)", t.Dataset, t.Network, t.ID, t.Kind)
}
