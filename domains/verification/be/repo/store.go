package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/zenGate-Global/domain-verification/domains/verification/be/service"
	"github.com/zenGate-Global/domain-verification/platform/go/persistence"
	"github.com/zenGate-Global/domain-verification/platform/go/rdb"
)

// DomainStore is the row-level store contract shared by the pgx and GORM backends.
type DomainStore interface {
	Find(ctx context.Context, name string, customerID *string) (persistence.DomainRow, error)
	Insert(ctx context.Context, name, ip string, customerID *string, createdAt time.Time) (persistence.DomainRow, error)
	Update(ctx context.Context, id uuid.UUID, patch persistence.DomainPatch) (persistence.DomainRow, error)
	AppendLog(ctx context.Context, entry persistence.VerificationLogRow) error
	ListLogs(ctx context.Context, domainID uuid.UUID) ([]persistence.VerificationLogRow, error)
	Ping(ctx context.Context) error
}

var (
	_ DomainStore = (*persistence.DomainStore)(nil)
	_ DomainStore = (*rdb.DomainStore)(nil)
)

// StoreRepository implements service.Repository on top of a DomainStore.
type StoreRepository struct {
	store DomainStore
}

// NewPostgresRepository constructs a repository backed by the pgx store.
func NewPostgresRepository(store *persistence.DomainStore) *StoreRepository {
	if store == nil {
		panic("domain store is required")
	}
	return &StoreRepository{store: store}
}

// NewSQLiteRepository constructs a repository backed by the GORM sqlite store.
func NewSQLiteRepository(store *rdb.DomainStore) *StoreRepository {
	if store == nil {
		panic("domain store is required")
	}
	return &StoreRepository{store: store}
}

func (r *StoreRepository) FindDomain(ctx context.Context, name string, customerID *string) (service.DomainRecord, error) {
	row, err := r.store.Find(ctx, name, customerID)
	if err != nil {
		return service.DomainRecord{}, mapStoreError(err)
	}
	return toServiceRecord(row), nil
}

func (r *StoreRepository) InsertDomain(ctx context.Context, input service.NewDomain) (service.DomainRecord, error) {
	row, err := r.store.Insert(ctx, input.Name, input.IP, input.CustomerID, input.CreatedAt)
	if err != nil {
		return service.DomainRecord{}, mapStoreError(err)
	}
	return toServiceRecord(row), nil
}

func (r *StoreRepository) UpdateDomain(ctx context.Context, id uuid.UUID, update service.DomainUpdate) (service.DomainRecord, error) {
	patch := persistence.DomainPatch{
		IP:         update.IP,
		IsVerified: update.IsVerified,
		ClearToken: update.ClearPending,
		ExpectedIP: update.ExpectedIP,
		UpdatedAt:  update.UpdatedAt,
	}
	if update.SetPending != nil && !update.ClearPending {
		patch.Token = &update.SetPending.Token
		patch.TokenExpiresAt = &update.SetPending.ExpiresAt
	}

	row, err := r.store.Update(ctx, id, patch)
	if err != nil {
		return service.DomainRecord{}, mapStoreError(err)
	}
	return toServiceRecord(row), nil
}

func (r *StoreRepository) AppendLog(ctx context.Context, entry service.LogEntry) error {
	var details *string
	if entry.Details != "" {
		details = &entry.Details
	}
	return r.store.AppendLog(ctx, persistence.VerificationLogRow{
		ID:         entry.ID,
		DomainID:   entry.DomainID,
		CustomerID: entry.CustomerID,
		Step:       string(entry.Step),
		Status:     string(entry.Status),
		Details:    details,
		CreatedAt:  entry.CreatedAt,
	})
}

func (r *StoreRepository) ListLogs(ctx context.Context, domainID uuid.UUID) ([]service.LogEntry, error) {
	rows, err := r.store.ListLogs(ctx, domainID)
	if err != nil {
		return nil, err
	}

	out := make([]service.LogEntry, 0, len(rows))
	for _, row := range rows {
		entry := service.LogEntry{
			ID:         row.ID,
			DomainID:   row.DomainID,
			CustomerID: row.CustomerID,
			Step:       service.Step(row.Step),
			Status:     service.Status(row.Status),
			CreatedAt:  row.CreatedAt,
		}
		if row.Details != nil {
			entry.Details = *row.Details
		}
		out = append(out, entry)
	}
	return out, nil
}

func (r *StoreRepository) Ping(ctx context.Context) error {
	return r.store.Ping(ctx)
}

func toServiceRecord(row persistence.DomainRow) service.DomainRecord {
	rec := service.DomainRecord{
		ID:         row.ID,
		Name:       row.Name,
		IP:         row.IP,
		CustomerID: row.CustomerID,
		IsVerified: row.IsVerified,
		CreatedAt:  row.CreatedAt,
		UpdatedAt:  row.UpdatedAt,
	}
	if row.VerificationToken != nil && row.TokenExpiresAt != nil {
		rec.Pending = &service.PendingToken{Token: *row.VerificationToken, ExpiresAt: *row.TokenExpiresAt}
	}
	return rec
}

func mapStoreError(err error) error {
	switch {
	case errors.Is(err, persistence.ErrNotFound):
		return service.ErrNotFound
	case errors.Is(err, persistence.ErrConflict):
		return fmt.Errorf("%w: %v", service.ErrConflict, err)
	default:
		return err
	}
}

// Ensure interface compliance.
var _ service.Repository = (*StoreRepository)(nil)
