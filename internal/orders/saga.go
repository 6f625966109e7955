package orders

import (
	"context"

	"github.com/sirupsen/logrus"
)

// sagaStep pairs a forward action with the compensation that undoes it.
type sagaStep struct {
	name       string
	execute    func(ctx context.Context) error
	compensate func(ctx context.Context) error
}

// saga runs steps in order; when one fails, the compensations of every
// previously successful step run in reverse. The failing step must not leave
// partial effects of its own. Compensation failures are logged as the most
// severe case and never mask the original error: the caller still sees why
// the forward path failed, but state may now hold an orphaned partial record.
type saga struct {
	log   *logrus.Logger
	steps []sagaStep
}

func (s *saga) run(ctx context.Context) error {
	var done []sagaStep
	for _, step := range s.steps {
		if err := step.execute(ctx); err != nil {
			s.log.WithFields(logrus.Fields{"component": "saga", "step": step.name}).
				Warnf("step failed, compensating %d step(s): %v", len(done), err)
			s.rollback(ctx, done)
			return err
		}
		done = append(done, step)
	}
	return nil
}

func (s *saga) rollback(ctx context.Context, done []sagaStep) {
	for i := len(done) - 1; i >= 0; i-- {
		step := done[i]
		if err := step.compensate(ctx); err != nil {
			s.log.WithFields(logrus.Fields{"component": "saga", "step": step.name}).
				Errorf("compensation failed, state may be inconsistent: %v", err)
		}
	}
}
