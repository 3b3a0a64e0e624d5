package routing

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/rivertype"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/zenGate-Global/domain-verification/domains/verification/be/service"
	"github.com/zenGate-Global/domain-verification/platform/go/requesttrace"
)

type recordingInserter struct {
	args []river.JobArgs
	err  error
}

func (r *recordingInserter) Insert(_ context.Context, args river.JobArgs, _ *river.InsertOpts) (*rivertype.JobInsertResult, error) {
	if r.err != nil {
		return nil, r.err
	}
	r.args = append(r.args, args)
	return &rivertype.JobInsertResult{Job: &rivertype.JobRow{ID: int64(len(r.args))}}, nil
}

func TestHookEnqueuesVerifiedDomain(t *testing.T) {
	t.Parallel()

	inserter := &recordingInserter{}
	hook := NewHook(inserter)

	customer := "c1"
	audit, err := requesttrace.ForCustomer(customer, "req-42")
	require.NoError(t, err)
	ctx := requesttrace.IntoContext(context.Background(), audit)

	record := service.DomainRecord{ID: uuid.New(), Name: "acme.io", IP: "10.0.0.1", CustomerID: &customer, IsVerified: true}
	require.NoError(t, hook.DomainVerified(ctx, record))

	require.Len(t, inserter.args, 1)
	args, ok := inserter.args[0].(DomainVerifiedArgs)
	require.True(t, ok)
	require.Equal(t, DomainVerifiedArgs{
		DomainID:   record.ID.String(),
		Domain:     "acme.io",
		IP:         "10.0.0.1",
		CustomerID: &customer,
		RequestID:  "req-42",
	}, args)
	require.Equal(t, "domain.verified", args.Kind())
	require.Equal(t, maxAttempts, args.InsertOpts().MaxAttempts)
}

func TestHookPropagatesInsertError(t *testing.T) {
	t.Parallel()

	hook := NewHook(&recordingInserter{err: errors.New("queue down")})

	err := hook.DomainVerified(context.Background(), service.DomainRecord{ID: uuid.New(), Name: "acme.io"})
	require.ErrorContains(t, err, "queue down")
	require.Error(t, hook.DomainVerified(context.Background(), service.DomainRecord{}))
}

func TestNewHookPanicsWithoutInserter(t *testing.T) {
	t.Parallel()

	require.Panics(t, func() { NewHook(nil) })
}

func TestWorkerCallsEnable(t *testing.T) {
	t.Parallel()

	var enabled []string
	worker := NewWorker(zaptest.NewLogger(t), func(ctx context.Context, args DomainVerifiedArgs) error {
		audit, ok := requesttrace.FromContext(ctx)
		require.True(t, ok)
		require.Equal(t, requesttrace.ActorKindSystem, audit.ActorKind)
		require.Equal(t, "req-1", audit.RequestID)
		require.Nil(t, audit.CustomerID)
		enabled = append(enabled, args.Domain)
		return nil
	})

	job := &river.Job[DomainVerifiedArgs]{
		JobRow: &rivertype.JobRow{ID: 7, Attempt: 1},
		Args:   DomainVerifiedArgs{Domain: "acme.io", DomainID: uuid.NewString(), RequestID: "req-1"},
	}
	require.NoError(t, worker.Work(context.Background(), job))
	require.Equal(t, []string{"acme.io"}, enabled)
}

func TestWorkerReturnsEnableError(t *testing.T) {
	t.Parallel()

	worker := NewWorker(zaptest.NewLogger(t), func(context.Context, DomainVerifiedArgs) error {
		return errors.New("router unavailable")
	})

	job := &river.Job[DomainVerifiedArgs]{
		JobRow: &rivertype.JobRow{ID: 8, Attempt: 2},
		Args:   DomainVerifiedArgs{Domain: "acme.io"},
	}
	require.ErrorContains(t, worker.Work(context.Background(), job), "router unavailable")
}

func TestWorkerWithoutEnableSucceeds(t *testing.T) {
	t.Parallel()

	worker := NewWorker(nil, nil)
	job := &river.Job[DomainVerifiedArgs]{JobRow: &rivertype.JobRow{ID: 9}, Args: DomainVerifiedArgs{Domain: "acme.io"}}
	require.NoError(t, worker.Work(context.Background(), job))

	workers := river.NewWorkers()
	require.NotPanics(t, func() { Register(workers, worker) })
}
