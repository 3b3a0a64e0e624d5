package rdb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/zenGate-Global/domain-verification/platform/go/persistence"
)

// DomainStore is the GORM counterpart of persistence.DomainStore. It speaks the same row
// types and sentinel errors so both back the same repository adapter.
type DomainStore struct {
	db *gorm.DB
}

// NewDomainStore wraps an opened, migrated GORM DB.
func NewDomainStore(db *gorm.DB) (*DomainStore, error) {
	if db == nil {
		return nil, errors.New("db is required")
	}
	return &DomainStore{db: db}, nil
}

func (s *DomainStore) Find(ctx context.Context, name string, customerID *string) (persistence.DomainRow, error) {
	q := s.db.WithContext(ctx).Where("name = ?", name)
	if customerID != nil {
		q = q.Where("customer_key = ?", customerKey(customerID))
	}

	var rec DomainRecord
	if err := q.Order("created_at").First(&rec).Error; err != nil {
		return persistence.DomainRow{}, mapError(err)
	}
	return toRow(rec)
}

func (s *DomainStore) Insert(ctx context.Context, name, ip string, customerID *string, createdAt time.Time) (persistence.DomainRow, error) {
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	rec := DomainRecord{
		ID:          uuid.NewString(),
		Name:        name,
		CustomerKey: customerKey(customerID),
		IP:          ip,
		CustomerID:  customerID,
		CreatedAt:   createdAt,
		UpdatedAt:   createdAt,
	}
	if err := s.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return persistence.DomainRow{}, mapError(err)
	}
	return toRow(rec)
}

func (s *DomainStore) Update(ctx context.Context, id uuid.UUID, patch persistence.DomainPatch) (persistence.DomainRow, error) {
	if patch.UpdatedAt.IsZero() {
		patch.UpdatedAt = time.Now().UTC()
	}

	values := map[string]any{"updated_at": patch.UpdatedAt}
	if patch.IP != nil {
		values["ip"] = *patch.IP
	}
	if patch.IsVerified != nil {
		values["is_verified"] = *patch.IsVerified
	}
	switch {
	case patch.ClearToken:
		values["verification_token"] = nil
		values["token_expires_at"] = nil
	case patch.Token != nil && patch.TokenExpiresAt != nil:
		values["verification_token"] = *patch.Token
		values["token_expires_at"] = *patch.TokenExpiresAt
	case patch.Token != nil || patch.TokenExpiresAt != nil:
		return persistence.DomainRow{}, errors.New("token and expiry must be set together")
	}

	var out DomainRecord
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		q := tx.Model(&DomainRecord{}).Where("id = ?", id.String())
		if patch.ExpectedIP != nil {
			q = q.Where("ip = ?", *patch.ExpectedIP)
		}
		res := q.Updates(values)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			if err := tx.First(&out, "id = ?", id.String()).Error; err != nil {
				return err
			}
			return fmt.Errorf("%w: ip changed", persistence.ErrConflict)
		}
		return tx.First(&out, "id = ?", id.String()).Error
	})
	if err != nil {
		return persistence.DomainRow{}, mapError(err)
	}
	return toRow(out)
}

func (s *DomainStore) AppendLog(ctx context.Context, entry persistence.VerificationLogRow) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	rec := VerificationLogRecord{
		ID:         entry.ID.String(),
		DomainID:   entry.DomainID.String(),
		CustomerID: entry.CustomerID,
		Step:       entry.Step,
		Status:     entry.Status,
		Details:    entry.Details,
		CreatedAt:  entry.CreatedAt,
	}
	return mapError(s.db.WithContext(ctx).Create(&rec).Error)
}

func (s *DomainStore) ListLogs(ctx context.Context, domainID uuid.UUID) ([]persistence.VerificationLogRow, error) {
	var recs []VerificationLogRecord
	err := s.db.WithContext(ctx).
		Where("domain_id = ?", domainID.String()).
		Order("created_at").
		Order("rowid").
		Find(&recs).Error
	if err != nil {
		return nil, err
	}

	out := make([]persistence.VerificationLogRow, 0, len(recs))
	for _, rec := range recs {
		id, err := uuid.Parse(rec.ID)
		if err != nil {
			return nil, fmt.Errorf("parse log id: %w", err)
		}
		out = append(out, persistence.VerificationLogRow{
			ID:         id,
			DomainID:   domainID,
			CustomerID: rec.CustomerID,
			Step:       rec.Step,
			Status:     rec.Status,
			Details:    rec.Details,
			CreatedAt:  rec.CreatedAt.UTC(),
		})
	}
	return out, nil
}

func (s *DomainStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func toRow(rec DomainRecord) (persistence.DomainRow, error) {
	id, err := uuid.Parse(rec.ID)
	if err != nil {
		return persistence.DomainRow{}, fmt.Errorf("parse domain id: %w", err)
	}
	row := persistence.DomainRow{
		ID:                id,
		Name:              rec.Name,
		IP:                rec.IP,
		CustomerID:        rec.CustomerID,
		IsVerified:        rec.IsVerified,
		VerificationToken: rec.VerificationToken,
		CreatedAt:         rec.CreatedAt.UTC(),
		UpdatedAt:         rec.UpdatedAt.UTC(),
	}
	if rec.TokenExpiresAt != nil {
		t := rec.TokenExpiresAt.UTC()
		row.TokenExpiresAt = &t
	}
	return row, nil
}

func mapError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return persistence.ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%w: %v", persistence.ErrConflict, err)
	default:
		return err
	}
}
