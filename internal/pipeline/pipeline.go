// Package pipeline runs an ordered list of stages over a shared RunContext.
//
// Every stage returns an explicit Result. A stage returning the zero Result
// has neither succeeded nor failed, and the executor reports it as a
// StallError instead of waiting forever.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/SomeAverageDev/konnectors/internal/logging"
	"github.com/SomeAverageDev/konnectors/internal/runerror"
)

type outcome int

const (
	outcomeNone outcome = iota
	outcomeSuccess
	outcomeFailure
)

// Result is the terminal signal of a stage.
type Result struct {
	outcome outcome
	err     error
}

// Success continues with the next stage.
func Success() Result {
	return Result{outcome: outcomeSuccess}
}

// Failure halts the run with err. A nil err is treated as a stall.
func Failure(err error) Result {
	return Result{outcome: outcomeFailure, err: err}
}

// Err returns the failure, if any.
func (r Result) Err() error {
	return r.err
}

// Stage is one step of a run.
type Stage interface {
	Name() string
	Run(ctx context.Context, rc *RunContext) Result
}

type stageFunc struct {
	name string
	fn   func(ctx context.Context, rc *RunContext) Result
}

func (s stageFunc) Name() string                                   { return s.name }
func (s stageFunc) Run(ctx context.Context, rc *RunContext) Result { return s.fn(ctx, rc) }

// NewStage wraps a function as a Stage.
func NewStage(name string, fn func(ctx context.Context, rc *RunContext) Result) Stage {
	return stageFunc{name: name, fn: fn}
}

// Executor runs stages in order and stops at the first failure.
type Executor struct {
	stages  []Stage
	cleanup []Stage
	logger  logging.Logger
}

// New creates an executor for the given stages.
func New(logger logging.Logger, stages ...Stage) *Executor {
	return &Executor{
		stages: stages,
		logger: logging.OrDefault(logger),
	}
}

// Finally registers stages that run after the main sequence, whatever its
// outcome, provided a vendor session was opened. Their failures are recorded
// as warnings and never change the run's error.
func (e *Executor) Finally(stages ...Stage) *Executor {
	e.cleanup = append(e.cleanup, stages...)
	return e
}

// Stages returns the names of the main stages, in order.
func (e *Executor) Stages() []string {
	names := make([]string, len(e.stages))
	for i, s := range e.stages {
		names[i] = s.Name()
	}
	return names
}

// Execute runs the pipeline. The returned error is the first stage failure,
// wrapped with the stage name.
func (e *Executor) Execute(ctx context.Context, rc *RunContext) error {
	log := e.logger.WithFields(
		logging.F(logging.FieldRunID, rc.RunID),
		logging.F(logging.FieldVendor, rc.Vendor),
		logging.F(logging.FieldFolder, rc.Folder))

	err := e.runMain(ctx, rc, log)
	e.runCleanup(rc, log)
	return err
}

func (e *Executor) runMain(ctx context.Context, rc *RunContext, log logging.Logger) error {
	for i, stage := range e.stages {
		stageLog := log.WithField(logging.FieldStage, stage.Name())

		if ctxErr := ctx.Err(); ctxErr != nil {
			err := &runerror.FetchError{Vendor: rc.Vendor, URL: "stage " + stage.Name(), Err: ctxErr}
			stageLog.WithError(err).Error("Run cancelled before stage")
			return fmt.Errorf("pipeline stage %d (%s) failed: %w", i+1, stage.Name(), err)
		}

		start := time.Now()
		stageLog.Debug("Stage started")
		res := stage.Run(ctx, rc)

		var err error
		switch {
		case res.outcome == outcomeSuccess:
		case res.outcome == outcomeFailure && res.err != nil:
			err = res.err
		default:
			err = &runerror.StallError{Stage: stage.Name()}
		}

		if err != nil {
			stageLog.WithError(err).Error("Stage failed",
				logging.F(logging.FieldReason, runerror.KindOf(err).String()))
			return fmt.Errorf("pipeline stage %d (%s) failed: %w", i+1, stage.Name(), err)
		}
		stageLog.Debug("Stage completed", logging.F(logging.FieldDuration, time.Since(start).Milliseconds()))
	}
	return nil
}

// runCleanup uses a fresh context: logout must still be attempted after the
// run's deadline expired.
func (e *Executor) runCleanup(rc *RunContext, log logging.Logger) {
	if rc.Session == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), cleanupTimeout)
	defer cancel()

	for _, stage := range e.cleanup {
		stageLog := log.WithField(logging.FieldStage, stage.Name())
		res := stage.Run(ctx, rc)
		switch {
		case res.outcome == outcomeSuccess:
			stageLog.Debug("Cleanup stage completed")
		case res.outcome == outcomeFailure && res.err != nil:
			rc.Warn(stageLog, res.err, "cleanup stage "+stage.Name()+" failed")
		default:
			rc.Warn(stageLog, &runerror.StallError{Stage: stage.Name()}, "cleanup stage "+stage.Name()+" failed")
		}
	}
}

const cleanupTimeout = 15 * time.Second
