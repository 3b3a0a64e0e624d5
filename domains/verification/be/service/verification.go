package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/zenGate-Global/domain-verification/platform/go/dnsresolver"
)

func (s *service) RegisterDomain(ctx context.Context, name, ip string, customerID *string) (DomainRecord, error) {
	if name == "" || ip == "" {
		return DomainRecord{}, fmt.Errorf("%w: domain and ip are required", ErrInvalidInput)
	}

	existing, err := s.repo.FindDomain(ctx, name, customerID)
	if errors.Is(err, ErrNotFound) {
		record, err := s.repo.InsertDomain(ctx, NewDomain{
			Name:       name,
			IP:         ip,
			CustomerID: customerID,
			CreatedAt:  s.now(),
		})
		if err != nil {
			return DomainRecord{}, fmt.Errorf("insert domain: %w", err)
		}
		return record, nil
	}
	if err != nil {
		return DomainRecord{}, fmt.Errorf("find domain: %w", err)
	}

	update := DomainUpdate{IP: &ip, UpdatedAt: s.now()}
	if existing.IP != ip {
		// A new target invalidates any earlier proof.
		unverified := false
		update.IsVerified = &unverified
	}

	record, err := s.repo.UpdateDomain(ctx, existing.ID, update)
	if err != nil {
		return DomainRecord{}, fmt.Errorf("update domain: %w", err)
	}
	return record, nil
}

func (s *service) GenerateVerificationToken(ctx context.Context, domain string, customerID *string) (string, error) {
	record, err := s.findRecord(ctx, domain, customerID)
	if err != nil {
		return "", err
	}

	token, err := newToken(s.random)
	if err != nil {
		return "", err
	}

	now := s.now()
	pending := PendingToken{Token: token, ExpiresAt: now.Add(s.tokenTTL)}
	if _, err := s.repo.UpdateDomain(ctx, record.ID, DomainUpdate{SetPending: &pending, UpdatedAt: now}); err != nil {
		return "", fmt.Errorf("store verification token: %w", err)
	}

	details := fmt.Sprintf("token issued, expires at %s", pending.ExpiresAt.Format(time.RFC3339))
	if err := s.appendLog(ctx, record, StepTokenGenerated, StatusPending, details); err != nil {
		return "", err
	}

	return token, nil
}

func (s *service) VerifyTxtRecord(ctx context.Context, domain string, customerID *string, txtKey string) (bool, error) {
	ok, _, err := s.verifyTxt(ctx, domain, customerID, txtKey)
	return ok, err
}

// verifyTxt also returns the record as it was read before the lookup so callers can detect
// later modifications.
func (s *service) verifyTxt(ctx context.Context, domain string, customerID *string, txtKey string) (bool, DomainRecord, error) {
	if txtKey == "" {
		return false, DomainRecord{}, fmt.Errorf("%w: txt record key is required", ErrInvalidInput)
	}

	record, err := s.findRecord(ctx, domain, customerID)
	if err != nil {
		return false, DomainRecord{}, err
	}
	if record.Pending == nil {
		return false, record, ErrNoPendingVerification
	}

	now := s.now()
	if record.Pending.Expired(now) {
		if _, err := s.repo.UpdateDomain(ctx, record.ID, DomainUpdate{ClearPending: true, UpdatedAt: now}); err != nil {
			return false, record, fmt.Errorf("clear expired token: %w", err)
		}
		return false, record, ErrTokenExpired
	}

	expected := TxtRecordValue(txtKey, record.Pending.Token)
	matched := s.txtContains(ctx, domain, expected)

	status, details := StatusFailed, "expected TXT value not found"
	if matched {
		status, details = StatusSuccess, "TXT record matched"
	}
	if err := s.appendLog(ctx, record, StepTxtRecord, status, details); err != nil {
		return false, record, err
	}
	if !matched {
		return false, record, nil
	}

	// The proof is single use.
	if _, err := s.repo.UpdateDomain(ctx, record.ID, DomainUpdate{ClearPending: true, UpdatedAt: s.now()}); err != nil {
		return false, record, fmt.Errorf("consume token: %w", err)
	}
	return true, record, nil
}

func (s *service) VerifyCnameRecord(ctx context.Context, domain, expectedTarget string, customerID *string) (bool, error) {
	matched := s.cnameMatches(ctx, domain, expectedTarget)

	record, err := s.repo.FindDomain(ctx, domain, customerID)
	if errors.Is(err, ErrNotFound) {
		return matched, nil
	}
	if err != nil {
		return false, fmt.Errorf("find domain: %w", err)
	}

	status, details := StatusFailed, fmt.Sprintf("CNAME does not point to %s", expectedTarget)
	if matched {
		status, details = StatusSuccess, fmt.Sprintf("CNAME points to %s", expectedTarget)
	}
	if err := s.appendLog(ctx, record, StepCnameRecord, status, details); err != nil {
		return false, err
	}
	return matched, nil
}

func (s *service) CompleteDomainVerification(ctx context.Context, domain, serviceHost string, customerID *string, txtKey string) (bool, error) {
	if serviceHost == "" {
		return false, fmt.Errorf("%w: service host is required", ErrInvalidInput)
	}

	// The shared run outlives any single caller; lookups stay bounded by the resolver timeout.
	shared := context.WithoutCancel(ctx)
	ch := s.inflight.DoChan(flightKey(domain, customerID, serviceHost, txtKey), func() (any, error) {
		return s.complete(shared, domain, serviceHost, customerID, txtKey)
	})

	select {
	case <-ctx.Done():
		return false, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return false, res.Err
		}
		return res.Val.(bool), nil
	}
}

func (s *service) complete(ctx context.Context, domain, serviceHost string, customerID *string, txtKey string) (bool, error) {
	ok, snapshot, err := s.verifyTxt(ctx, domain, customerID, txtKey)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, ErrTxtVerificationFailed
	}

	ok, err = s.VerifyCnameRecord(ctx, domain, serviceHost, customerID)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, ErrCnameVerificationFailed
	}

	record, err := s.repo.FindDomain(ctx, domain, customerID)
	if errors.Is(err, ErrNotFound) {
		s.logger.Warn("domain removed before verification was persisted", zap.String("domain", domain))
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("find domain: %w", err)
	}

	verified := true
	updated, err := s.repo.UpdateDomain(ctx, record.ID, DomainUpdate{
		IsVerified: &verified,
		ExpectedIP: &snapshot.IP,
		UpdatedAt:  s.now(),
	})
	if err != nil {
		return false, fmt.Errorf("mark domain verified: %w", err)
	}

	if err := s.appendLog(ctx, updated, StepCompleted, StatusSuccess, "domain verified"); err != nil {
		return false, err
	}

	if s.hook != nil {
		if err := s.hook.DomainVerified(ctx, updated); err != nil {
			s.logger.Error("post-verification hook failed",
				zap.String("domain", domain),
				zap.String("domain_id", updated.ID.String()),
				zap.Error(err),
			)
		}
	}

	return true, nil
}

func (s *service) GetDomainStatus(ctx context.Context, domain string, customerID *string) (DomainStatus, error) {
	record, err := s.findRecord(ctx, domain, customerID)
	if err != nil {
		return DomainStatus{}, err
	}

	return DomainStatus{
		Domain:                       record.Name,
		IP:                           record.IP,
		IsVerified:                   record.IsVerified,
		HasActivePendingVerification: record.Pending != nil,
		CreatedAt:                    record.CreatedAt,
		UpdatedAt:                    record.UpdatedAt,
	}, nil
}

func (s *service) ListVerificationLogs(ctx context.Context, domain string, customerID *string) ([]LogEntry, error) {
	record, err := s.findRecord(ctx, domain, customerID)
	if err != nil {
		return nil, err
	}

	entries, err := s.repo.ListLogs(ctx, record.ID)
	if err != nil {
		return nil, fmt.Errorf("list verification logs: %w", err)
	}
	return entries, nil
}

func (s *service) findRecord(ctx context.Context, domain string, customerID *string) (DomainRecord, error) {
	record, err := s.repo.FindDomain(ctx, domain, customerID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return DomainRecord{}, ErrNotFound
		}
		return DomainRecord{}, fmt.Errorf("find domain: %w", err)
	}
	return record, nil
}

func (s *service) txtContains(ctx context.Context, domain, expected string) bool {
	records, err := s.resolver.LookupTXT(ctx, domain)
	if err != nil {
		s.logLookupError("TXT", domain, err)
		return false
	}

	for _, chunks := range records {
		for _, value := range chunks {
			if strings.Contains(value, expected) {
				return true
			}
		}
	}
	return false
}

func (s *service) cnameMatches(ctx context.Context, domain, expected string) bool {
	targets, err := s.resolver.LookupCNAME(ctx, domain)
	if err != nil {
		s.logLookupError("CNAME", domain, err)
		return false
	}

	for _, target := range targets {
		if target == expected {
			return true
		}
	}
	return false
}

// A missing record is the customer's to fix; anything else points at the resolver.
func (s *service) logLookupError(recordType, domain string, err error) {
	fields := []zap.Field{zap.String("record_type", recordType), zap.String("domain", domain), zap.Error(err)}
	if dnsresolver.IsNotFound(err) {
		s.logger.Info("DNS record not found", fields...)
		return
	}
	s.logger.Warn("DNS lookup failed", fields...)
}

func (s *service) appendLog(ctx context.Context, record DomainRecord, step Step, status Status, details string) error {
	entry := LogEntry{
		DomainID:   record.ID,
		CustomerID: customerKey(record.CustomerID),
		Step:       step,
		Status:     status,
		Details:    details,
		CreatedAt:  s.now(),
	}
	if err := s.repo.AppendLog(ctx, entry); err != nil {
		return fmt.Errorf("append %s log: %w", step, err)
	}
	return nil
}

func customerKey(customerID *string) string {
	if customerID == nil {
		return ""
	}
	return *customerID
}

// flightKey keeps an absent customer distinct from an empty one.
func flightKey(domain string, customerID *string, serviceHost, txtKey string) string {
	customer := "-"
	if customerID != nil {
		customer = "=" + *customerID
	}
	return strings.Join([]string{domain, customer, serviceHost, txtKey}, "\x00")
}
