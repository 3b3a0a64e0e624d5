// Package routing hands verified domains to the routing layer through the job queue.
package routing

import (
	"context"
	"errors"
	"fmt"

	"github.com/riverqueue/river"
	"go.uber.org/zap"

	"github.com/zenGate-Global/domain-verification/domains/verification/be/service"
	"github.com/zenGate-Global/domain-verification/platform/go/jobs"
	"github.com/zenGate-Global/domain-verification/platform/go/requesttrace"
)

const maxAttempts = 5

// DomainVerifiedArgs is the payload of the job enqueued once a domain is verified.
type DomainVerifiedArgs struct {
	DomainID   string  `json:"domain_id"`
	Domain     string  `json:"domain"`
	IP         string  `json:"ip"`
	CustomerID *string `json:"customer_id,omitempty"`
	RequestID  string  `json:"request_id,omitempty"`
}

func (DomainVerifiedArgs) Kind() string { return "domain.verified" }

func (DomainVerifiedArgs) InsertOpts() river.InsertOpts {
	return river.InsertOpts{MaxAttempts: maxAttempts}
}

// EnableFunc makes a verified domain routable.
type EnableFunc func(ctx context.Context, args DomainVerifiedArgs) error

// Worker processes domain.verified jobs.
type Worker struct {
	river.WorkerDefaults[DomainVerifiedArgs]

	logger *zap.Logger
	enable EnableFunc
}

// NewWorker builds the worker. A nil enable only records the event.
func NewWorker(logger *zap.Logger, enable EnableFunc) *Worker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Worker{logger: logger, enable: enable}
}

func (w *Worker) Work(ctx context.Context, job *river.Job[DomainVerifiedArgs]) error {
	args := job.Args
	logger := w.logger.With(
		zap.Int64("job_id", job.ID),
		zap.String("domain", args.Domain),
		zap.String("domain_id", args.DomainID),
		zap.Int("attempt", job.Attempt),
	)
	if args.RequestID != "" {
		logger = logger.With(zap.String("request_id", args.RequestID))
	}

	// Jobs run on behalf of the system, stamped with the originating request.
	ctx = requesttrace.IntoContext(ctx, requesttrace.System(args.RequestID))

	if w.enable != nil {
		if err := w.enable(ctx, args); err != nil {
			logger.Warn("enable routing failed", zap.Error(err))
			return fmt.Errorf("enable routing for %s: %w", args.Domain, err)
		}
	}

	logger.Info("routing enabled for verified domain")
	return nil
}

// Register adds the worker to a river worker set.
func Register(workers *river.Workers, worker *Worker) {
	river.AddWorker(workers, worker)
}

// Hook enqueues a domain.verified job for each verified record.
type Hook struct {
	inserter jobs.Inserter
}

var _ service.VerifiedHook = (*Hook)(nil)

func NewHook(inserter jobs.Inserter) *Hook {
	if inserter == nil {
		panic("job inserter is required")
	}
	return &Hook{inserter: inserter}
}

func (h *Hook) DomainVerified(ctx context.Context, record service.DomainRecord) error {
	if record.Name == "" {
		return errors.New("verified record has no domain name")
	}

	audit := requesttrace.FromContextOrAnonymous(ctx)
	args := DomainVerifiedArgs{
		DomainID:   record.ID.String(),
		Domain:     record.Name,
		IP:         record.IP,
		CustomerID: record.CustomerID,
		RequestID:  audit.RequestID,
	}

	if _, err := h.inserter.Insert(ctx, args, nil); err != nil {
		return fmt.Errorf("enqueue domain verified job: %w", err)
	}
	return nil
}
