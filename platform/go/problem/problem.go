// Package problem renders RFC 7807 problem documents.
package problem

import (
	"encoding/json"
	"net/http"
)

const ContentType = "application/problem+json"

const (
	TypeValidation   = "https://domain-verification.dev/problems/validation-error"
	TypeNotFound     = "https://domain-verification.dev/problems/not-found"
	TypeConflict     = "https://domain-verification.dev/problems/conflict"
	TypeGone         = "https://domain-verification.dev/problems/token-expired"
	TypeVerification = "https://domain-verification.dev/problems/verification-failed"
	TypeRateLimited  = "https://domain-verification.dev/problems/rate-limited"
	TypeUnavailable  = "https://domain-verification.dev/problems/unavailable"
	TypeInternal     = "https://domain-verification.dev/problems/internal-error"
)

// Details is the problem document body.
type Details struct {
	Type     string              `json:"type,omitempty"`
	Title    string              `json:"title"`
	Status   int                 `json:"status"`
	Detail   string              `json:"detail,omitempty"`
	Instance string              `json:"instance,omitempty"`
	Errors   map[string][]string `json:"errors,omitempty"`
}

func (d Details) Error() string {
	if d.Detail != "" {
		return d.Title + ": " + d.Detail
	}
	return d.Title
}

// New builds a problem document.
func New(status int, problemType, title, detail string) Details {
	return Details{
		Type:   problemType,
		Title:  title,
		Status: status,
		Detail: detail,
	}
}

// Write encodes the document using its Status as the response code.
func Write(w http.ResponseWriter, d Details) {
	if d.Status == 0 {
		d.Status = http.StatusInternalServerError
	}
	w.Header().Set("Content-Type", ContentType)
	w.WriteHeader(d.Status)
	_ = json.NewEncoder(w).Encode(d)
}
