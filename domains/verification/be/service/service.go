package service

import (
	"context"
	"crypto/rand"
	"errors"
	"io"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Errors returned by the verification engine.
var (
	ErrNotFound                = errors.New("domain not found")
	ErrNoPendingVerification   = errors.New("no pending verification for this domain")
	ErrTokenExpired            = errors.New("verification token expired")
	ErrTxtVerificationFailed   = errors.New("TXT record verification failed")
	ErrCnameVerificationFailed = errors.New("CNAME record verification failed")
	ErrInvalidInput            = errors.New("invalid input")
	ErrConflict                = errors.New("domain record conflict")
)

// DefaultTokenTTL is how long an issued verification token stays valid.
const DefaultTokenTTL = 24 * time.Hour

// Step identifies a verification sub-step recorded in the audit log.
type Step string

const (
	StepTokenGenerated Step = "token_generated"
	StepTxtRecord      Step = "txt_record"
	StepCnameRecord    Step = "cname_record"
	StepCompleted      Step = "completed"
)

// Status is the outcome recorded for a Step.
type Status string

const (
	StatusPending Status = "pending"
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
)

// PendingToken is a live verification attempt. Token and expiry only exist together.
type PendingToken struct {
	Token     string
	ExpiresAt time.Time
}

// Expired reports whether the token is past its expiry at now.
func (p PendingToken) Expired(now time.Time) bool {
	return now.After(p.ExpiresAt)
}

// DomainRecord is the persisted registration of a domain for one customer.
type DomainRecord struct {
	ID         uuid.UUID
	Name       string
	IP         string
	CustomerID *string
	IsVerified bool
	Pending    *PendingToken
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// LogEntry is an append-only audit record of a verification sub-step.
type LogEntry struct {
	ID         uuid.UUID
	DomainID   uuid.UUID
	CustomerID string
	Step       Step
	Status     Status
	Details    string
	CreatedAt  time.Time
}

// DomainStatus is the read model returned by GetDomainStatus.
type DomainStatus struct {
	Domain                       string
	IP                           string
	IsVerified                   bool
	HasActivePendingVerification bool
	CreatedAt                    time.Time
	UpdatedAt                    time.Time
}

// NewDomain holds the fields required to insert a record.
type NewDomain struct {
	Name       string
	IP         string
	CustomerID *string
	CreatedAt  time.Time
}

// DomainUpdate lists the fields to change on a record. Nil fields are left untouched.
// ExpectedIP, when set, makes the update conditional on the stored ip; a mismatch yields ErrConflict.
type DomainUpdate struct {
	IP           *string
	IsVerified   *bool
	SetPending   *PendingToken
	ClearPending bool
	ExpectedIP   *string
	UpdatedAt    time.Time
}

// Repository abstracts the domain record store.
// FindDomain treats a nil customerID as "match on name alone".
type Repository interface {
	FindDomain(ctx context.Context, name string, customerID *string) (DomainRecord, error)
	InsertDomain(ctx context.Context, input NewDomain) (DomainRecord, error)
	UpdateDomain(ctx context.Context, id uuid.UUID, update DomainUpdate) (DomainRecord, error)
	AppendLog(ctx context.Context, entry LogEntry) error
	ListLogs(ctx context.Context, domainID uuid.UUID) ([]LogEntry, error)
	Ping(ctx context.Context) error
}

// Resolver resolves the DNS records the verification protocol inspects.
type Resolver interface {
	LookupTXT(ctx context.Context, name string) ([][]string, error)
	LookupCNAME(ctx context.Context, name string) ([]string, error)
}

// VerifiedHook runs after a domain has been verified. It stands in for enabling routing.
type VerifiedHook interface {
	DomainVerified(ctx context.Context, record DomainRecord) error
}

// VerifiedHookFunc adapts a function to VerifiedHook.
type VerifiedHookFunc func(ctx context.Context, record DomainRecord) error

func (f VerifiedHookFunc) DomainVerified(ctx context.Context, record DomainRecord) error {
	return f(ctx, record)
}

// Service exposes the domain verification operations.
type Service interface {
	RegisterDomain(ctx context.Context, name, ip string, customerID *string) (DomainRecord, error)
	GenerateVerificationToken(ctx context.Context, domain string, customerID *string) (string, error)
	VerifyTxtRecord(ctx context.Context, domain string, customerID *string, txtKey string) (bool, error)
	VerifyCnameRecord(ctx context.Context, domain, expectedTarget string, customerID *string) (bool, error)
	CompleteDomainVerification(ctx context.Context, domain, serviceHost string, customerID *string, txtKey string) (bool, error)
	GetDomainStatus(ctx context.Context, domain string, customerID *string) (DomainStatus, error)
	GetVerificationInstructions(ctx context.Context, domain string, customerID *string, serviceHost, txtKey string) (Instructions, error)
	ListVerificationLogs(ctx context.Context, domain string, customerID *string) ([]LogEntry, error)
	Ping(ctx context.Context) error
}

// Option customises the engine.
type Option func(*service)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithRandom overrides the entropy source used for tokens.
func WithRandom(r io.Reader) Option {
	return func(s *service) {
		if r != nil {
			s.random = r
		}
	}
}

// WithTokenTTL overrides DefaultTokenTTL.
func WithTokenTTL(ttl time.Duration) Option {
	return func(s *service) {
		if ttl > 0 {
			s.tokenTTL = ttl
		}
	}
}

// WithLogger sets the logger used for resolver and hook failures.
func WithLogger(logger *zap.Logger) Option {
	return func(s *service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithVerifiedHook registers the hook fired after a successful verification.
func WithVerifiedHook(hook VerifiedHook) Option {
	return func(s *service) {
		s.hook = hook
	}
}

type service struct {
	repo     Repository
	resolver Resolver
	hook     VerifiedHook
	logger   *zap.Logger
	now      func() time.Time
	random   io.Reader
	tokenTTL time.Duration
	inflight singleflight.Group
}

// New builds the verification engine on top of a store and a DNS resolver.
func New(repo Repository, resolver Resolver, opts ...Option) Service {
	if repo == nil {
		panic("verification repository is required")
	}
	if resolver == nil {
		panic("dns resolver is required")
	}

	s := &service{
		repo:     repo,
		resolver: resolver,
		logger:   zap.NewNop(),
		now:      func() time.Time { return time.Now().UTC() },
		random:   rand.Reader,
		tokenTTL: DefaultTokenTTL,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *service) Ping(ctx context.Context) error {
	return s.repo.Ping(ctx)
}
