package persistence

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Tables owned by the domain store.
const (
	DomainsTable          = "domains"
	VerificationLogsTable = "verification_logs"
)

const domainColumns = `id, name, ip, customer_id, is_verified, verification_token, token_expires_at, created_at, updated_at`

// DomainRow mirrors a row of the domains table.
type DomainRow struct {
	ID                uuid.UUID  `db:"id"`
	Name              string     `db:"name"`
	IP                string     `db:"ip"`
	CustomerID        *string    `db:"customer_id"`
	IsVerified        bool       `db:"is_verified"`
	VerificationToken *string    `db:"verification_token"`
	TokenExpiresAt    *time.Time `db:"token_expires_at"`
	CreatedAt         time.Time  `db:"created_at"`
	UpdatedAt         time.Time  `db:"updated_at"`
}

// DomainPatch lists the columns to change. ClearToken wins over Token.
// ExpectedIP turns the update into a compare-and-set on the ip column.
type DomainPatch struct {
	IP             *string
	IsVerified     *bool
	Token          *string
	TokenExpiresAt *time.Time
	ClearToken     bool
	ExpectedIP     *string
	UpdatedAt      time.Time
}

// VerificationLogRow mirrors a row of the verification_logs table.
type VerificationLogRow struct {
	ID         uuid.UUID `db:"id"`
	DomainID   uuid.UUID `db:"domain_id"`
	CustomerID string    `db:"customer_id"`
	Step       string    `db:"verification_step"`
	Status     string    `db:"status"`
	Details    *string   `db:"details"`
	CreatedAt  time.Time `db:"created_at"`
}

// DomainStore provides access to the domains and verification_logs tables.
type DomainStore struct {
	pool *pgxpool.Pool
}

// NewDomainStore creates a store; assumes migrations already created the tables.
func NewDomainStore(pool *pgxpool.Pool) (*DomainStore, error) {
	if pool == nil {
		return nil, errors.New("pool is required")
	}
	return &DomainStore{pool: pool}, nil
}

// Find returns the domain by name and customer. A nil customer matches on name alone.
func (s *DomainStore) Find(ctx context.Context, name string, customerID *string) (DomainRow, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s
        WHERE name = $1 AND ($2::varchar IS NULL OR customer_id = $2)
        ORDER BY created_at
        LIMIT 1`, domainColumns, DomainsTable)
	return scanDomainRow(s.pool.QueryRow(ctx, query, name, customerID))
}

// Get returns the domain by id.
func (s *DomainStore) Get(ctx context.Context, id uuid.UUID) (DomainRow, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1`, domainColumns, DomainsTable)
	return scanDomainRow(s.pool.QueryRow(ctx, query, id))
}

// Insert creates a new unverified domain without a token.
func (s *DomainStore) Insert(ctx context.Context, name, ip string, customerID *string, createdAt time.Time) (DomainRow, error) {
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	query := fmt.Sprintf(`
        INSERT INTO %s (id, name, ip, customer_id, is_verified, created_at, updated_at)
        VALUES ($1, $2, $3, $4, FALSE, $5, $5)
        RETURNING %s`, DomainsTable, domainColumns)

	row, err := scanDomainRow(s.pool.QueryRow(ctx, query, uuid.New(), name, ip, customerID, createdAt))
	if err != nil {
		if isUniqueViolation(err) {
			return DomainRow{}, fmt.Errorf("%w: domain %q already registered", ErrConflict, name)
		}
		return DomainRow{}, err
	}
	return row, nil
}

// Update applies the patch and returns the resulting row.
func (s *DomainStore) Update(ctx context.Context, id uuid.UUID, patch DomainPatch) (DomainRow, error) {
	if patch.UpdatedAt.IsZero() {
		patch.UpdatedAt = time.Now().UTC()
	}

	args := []any{id, patch.UpdatedAt}
	sets := []string{"updated_at = $2"}
	set := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if patch.IP != nil {
		set("ip", *patch.IP)
	}
	if patch.IsVerified != nil {
		set("is_verified", *patch.IsVerified)
	}
	switch {
	case patch.ClearToken:
		sets = append(sets, "verification_token = NULL", "token_expires_at = NULL")
	case patch.Token != nil && patch.TokenExpiresAt != nil:
		set("verification_token", *patch.Token)
		set("token_expires_at", *patch.TokenExpiresAt)
	case patch.Token != nil || patch.TokenExpiresAt != nil:
		return DomainRow{}, errors.New("token and expiry must be set together")
	}

	where := "id = $1"
	if patch.ExpectedIP != nil {
		args = append(args, *patch.ExpectedIP)
		where += fmt.Sprintf(" AND ip = $%d", len(args))
	}

	query := fmt.Sprintf(`UPDATE %s SET %s WHERE %s RETURNING %s`,
		DomainsTable, strings.Join(sets, ", "), where, domainColumns)

	row, err := scanDomainRow(s.pool.QueryRow(ctx, query, args...))
	if errors.Is(err, ErrNotFound) && patch.ExpectedIP != nil {
		if _, getErr := s.Get(ctx, id); getErr == nil {
			return DomainRow{}, fmt.Errorf("%w: ip changed", ErrConflict)
		}
	}
	return row, err
}

// AppendLog inserts an audit entry.
func (s *DomainStore) AppendLog(ctx context.Context, entry VerificationLogRow) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	query := fmt.Sprintf(`
        INSERT INTO %s (id, domain_id, customer_id, verification_step, status, details, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)`, VerificationLogsTable)

	_, err := s.pool.Exec(ctx, query,
		entry.ID, entry.DomainID, entry.CustomerID, entry.Step, entry.Status, entry.Details, entry.CreatedAt)
	return err
}

// ListLogs returns the audit entries of a domain, oldest first.
func (s *DomainStore) ListLogs(ctx context.Context, domainID uuid.UUID) ([]VerificationLogRow, error) {
	query := fmt.Sprintf(`SELECT id, domain_id, customer_id, verification_step, status, details, created_at
        FROM %s WHERE domain_id = $1 ORDER BY created_at, id`, VerificationLogsTable)

	rows, err := s.pool.Query(ctx, query, domainID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []VerificationLogRow
	for rows.Next() {
		var rec VerificationLogRow
		if err := rows.Scan(&rec.ID, &rec.DomainID, &rec.CustomerID, &rec.Step, &rec.Status, &rec.Details, &rec.CreatedAt); err != nil {
			return nil, err
		}
		rec.CreatedAt = rec.CreatedAt.UTC()
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Ping checks database connectivity.
func (s *DomainStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDomainRow(row rowScanner) (DomainRow, error) {
	var rec DomainRow
	err := row.Scan(
		&rec.ID,
		&rec.Name,
		&rec.IP,
		&rec.CustomerID,
		&rec.IsVerified,
		&rec.VerificationToken,
		&rec.TokenExpiresAt,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return DomainRow{}, ErrNotFound
		}
		return DomainRow{}, err
	}

	rec.CreatedAt = rec.CreatedAt.UTC()
	rec.UpdatedAt = rec.UpdatedAt.UTC()
	if rec.TokenExpiresAt != nil {
		t := rec.TokenExpiresAt.UTC()
		rec.TokenExpiresAt = &t
	}
	return rec, nil
}
