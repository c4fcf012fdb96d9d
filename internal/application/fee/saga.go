package fee

import (
	"context"
	"errors"

	"github.com/feeledger/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

type compensation struct {
	name string
	undo func(ctx context.Context) error
}

// saga records an undo action for each completed step so a failed
// multi-write operation can be rolled back in reverse order
type saga struct {
	name   string
	steps  []compensation
	logger *zap.Logger
}

func newSaga(name string, logger *zap.Logger) *saga {
	return &saga{name: name, logger: logger}
}

// done registers the undo action of a completed step
func (s *saga) done(name string, undo func(ctx context.Context) error) {
	s.steps = append(s.steps, compensation{name: name, undo: undo})
}

// rollback runs the registered undo actions last to first. Every action runs
// even when an earlier one fails; the joined failures are returned.
// Cancellation of ctx does not stop the rollback.
func (s *saga) rollback(ctx context.Context) error {
	ctx, span := telemetry.StartSpan(context.WithoutCancel(ctx), "saga."+s.name+".rollback",
		telemetry.WithAttribute("steps", len(s.steps)))
	defer span.End()

	var errs []error
	for i := len(s.steps) - 1; i >= 0; i-- {
		step := s.steps[i]
		if err := step.undo(ctx); err != nil {
			telemetry.RecordError(span, err)
			s.logger.Error("Compensation failed",
				zap.String("saga", s.name),
				zap.String("step", step.name),
				zap.Error(err),
			)
			errs = append(errs, err)
			continue
		}
		s.logger.Info("Compensation applied",
			zap.String("saga", s.name),
			zap.String("step", step.name),
		)
	}
	s.steps = nil
	return errors.Join(errs...)
}
