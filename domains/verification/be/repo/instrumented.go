package repo

import (
	"context"

	"github.com/zenGate-Global/domain-verification/domains/verification/be/service"
)

// StepObserver receives every audit entry that was stored successfully.
type StepObserver interface {
	ObserveStep(step, status string)
}

// InstrumentedRepository reports audit log appends to a StepObserver.
type InstrumentedRepository struct {
	service.Repository
	observer StepObserver
}

// WithStepMetrics decorates a repository; a nil observer returns it unchanged.
func WithStepMetrics(inner service.Repository, observer StepObserver) service.Repository {
	if observer == nil {
		return inner
	}
	return &InstrumentedRepository{Repository: inner, observer: observer}
}

func (r *InstrumentedRepository) AppendLog(ctx context.Context, entry service.LogEntry) error {
	if err := r.Repository.AppendLog(ctx, entry); err != nil {
		return err
	}
	r.observer.ObserveStep(string(entry.Step), string(entry.Status))
	return nil
}
