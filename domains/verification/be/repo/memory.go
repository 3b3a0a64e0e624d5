package repo

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/zenGate-Global/domain-verification/domains/verification/be/service"
)

type domainKey struct {
	name        string
	customer    string
	hasCustomer bool
}

func keyOf(name string, customerID *string) domainKey {
	if customerID == nil {
		return domainKey{name: name}
	}
	return domainKey{name: name, customer: *customerID, hasCustomer: true}
}

// MemoryRepository is an in-memory store suitable for tests and local development.
// Pending verifications are lost on restart.
type MemoryRepository struct {
	mu    sync.RWMutex
	byID  map[uuid.UUID]service.DomainRecord
	byKey map[domainKey]uuid.UUID
	order []uuid.UUID
	logs  map[uuid.UUID][]service.LogEntry
}

// NewMemoryRepository constructs a MemoryRepository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		byID:  make(map[uuid.UUID]service.DomainRecord),
		byKey: make(map[domainKey]uuid.UUID),
		logs:  make(map[uuid.UUID][]service.LogEntry),
	}
}

func (r *MemoryRepository) FindDomain(ctx context.Context, name string, customerID *string) (service.DomainRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if customerID != nil {
		id, ok := r.byKey[keyOf(name, customerID)]
		if !ok {
			return service.DomainRecord{}, service.ErrNotFound
		}
		return copyRecord(r.byID[id]), nil
	}

	// No customer: the oldest record with that name wins.
	for _, id := range r.order {
		if rec := r.byID[id]; rec.Name == name {
			return copyRecord(rec), nil
		}
	}
	return service.DomainRecord{}, service.ErrNotFound
}

func (r *MemoryRepository) InsertDomain(ctx context.Context, input service.NewDomain) (service.DomainRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := keyOf(input.Name, input.CustomerID)
	if _, exists := r.byKey[key]; exists {
		return service.DomainRecord{}, service.ErrConflict
	}

	createdAt := input.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	rec := service.DomainRecord{
		ID:         uuid.New(),
		Name:       input.Name,
		IP:         input.IP,
		CustomerID: cloneString(input.CustomerID),
		CreatedAt:  createdAt,
		UpdatedAt:  createdAt,
	}
	r.byID[rec.ID] = rec
	r.byKey[key] = rec.ID
	r.order = append(r.order, rec.ID)
	return copyRecord(rec), nil
}

func (r *MemoryRepository) UpdateDomain(ctx context.Context, id uuid.UUID, update service.DomainUpdate) (service.DomainRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.byID[id]
	if !ok {
		return service.DomainRecord{}, service.ErrNotFound
	}
	if update.ExpectedIP != nil && *update.ExpectedIP != rec.IP {
		return service.DomainRecord{}, service.ErrConflict
	}

	if update.IP != nil {
		rec.IP = *update.IP
	}
	if update.IsVerified != nil {
		rec.IsVerified = *update.IsVerified
	}
	switch {
	case update.ClearPending:
		rec.Pending = nil
	case update.SetPending != nil:
		pending := *update.SetPending
		rec.Pending = &pending
	}
	rec.UpdatedAt = update.UpdatedAt
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = time.Now().UTC()
	}

	r.byID[id] = rec
	return copyRecord(rec), nil
}

func (r *MemoryRepository) AppendLog(ctx context.Context, entry service.LogEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	r.logs[entry.DomainID] = append(r.logs[entry.DomainID], entry)
	return nil
}

func (r *MemoryRepository) ListLogs(ctx context.Context, domainID uuid.UUID) ([]service.LogEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := append([]service.LogEntry(nil), r.logs[domainID]...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *MemoryRepository) Ping(ctx context.Context) error {
	return nil
}

func copyRecord(rec service.DomainRecord) service.DomainRecord {
	rec.CustomerID = cloneString(rec.CustomerID)
	if rec.Pending != nil {
		pending := *rec.Pending
		rec.Pending = &pending
	}
	return rec
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

// Ensure interface compliance.
var _ service.Repository = (*MemoryRepository)(nil)
