package requesttrace

import (
	"context"
	"errors"
	"strings"
)

type contextKey string

const (
	ctxAuditInfo contextKey = "DOMAIN_VERIFICATION_REQUEST_TRACE"
)

// CustomerHeader optionally identifies the calling customer for audit purposes.
const CustomerHeader = "X-Customer-ID"

// ActorKind represents who initiated a request.
type ActorKind string

const (
	ActorKindCustomer  ActorKind = "customer"
	ActorKindAnonymous ActorKind = "anonymous"
	ActorKindSystem    ActorKind = "system"
)

// AuditInfo captures request-scoped metadata needed for traceability.
// CustomerID is set only when ActorKind is customer.
type AuditInfo struct {
	ActorKind  ActorKind
	CustomerID *string
	RequestID  string
	RemoteAddr string
}

// IntoContext stores the AuditInfo in the provided context.
func IntoContext(ctx context.Context, audit AuditInfo) context.Context {
	return context.WithValue(ctx, ctxAuditInfo, audit)
}

// FromContext extracts the AuditInfo from context, returning false when not present.
func FromContext(ctx context.Context) (AuditInfo, bool) {
	if ctx == nil {
		return AuditInfo{}, false
	}
	v := ctx.Value(ctxAuditInfo)
	if v == nil {
		return AuditInfo{}, false
	}

	audit, ok := v.(AuditInfo)
	return audit, ok
}

// FromContextOrAnonymous returns the AuditInfo stored on the context, or an anonymous record when absent.
func FromContextOrAnonymous(ctx context.Context) AuditInfo {
	if audit, ok := FromContext(ctx); ok {
		return audit
	}
	return Anonymous("")
}

// ForCustomer builds an AuditInfo for a request that named its customer.
func ForCustomer(customerID, requestID string) (AuditInfo, error) {
	customerID = strings.TrimSpace(customerID)
	if customerID == "" {
		return AuditInfo{}, errors.New("customer id is required to build audit info")
	}
	return AuditInfo{ActorKind: ActorKindCustomer, CustomerID: &customerID, RequestID: requestID}, nil
}

// Anonymous builds an AuditInfo for requests that do not identify a customer.
func Anonymous(requestID string) AuditInfo {
	return AuditInfo{ActorKind: ActorKindAnonymous, RequestID: requestID}
}

// System builds an AuditInfo for background work such as queued jobs and CLI runs.
func System(requestID string) AuditInfo {
	return AuditInfo{ActorKind: ActorKindSystem, RequestID: requestID}
}
