package client

import "time"

// RegisterDomainInput registers a domain or updates its IP.
type RegisterDomainInput struct {
	Domain     string  `json:"domain" validate:"required,max=253"`
	IP         string  `json:"ip" validate:"required,max=255"`
	CustomerID *string `json:"customerId,omitempty"`
}

// VerificationInput drives both token generation and the verification check.
// ServiceHost and TxtRecordVerifyKey fall back to the server defaults when empty.
type VerificationInput struct {
	Domain             string `json:"domain" validate:"required,max=253"`
	CustomerID         string `json:"customerId" validate:"required"`
	ServiceHost        string `json:"serviceHost,omitempty"`
	TxtRecordVerifyKey string `json:"txtRecordVerifyKey,omitempty"`
}

// DomainQuery identifies one registration.
type DomainQuery struct {
	Domain     string `validate:"required,max=253"`
	CustomerID string `validate:"required"`
}

type InstructionsQuery struct {
	DomainQuery
	ServiceHost        string
	TxtRecordVerifyKey string
}

type Domain struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	IP         string  `json:"ip"`
	CustomerID *string `json:"customerId"`
	IsVerified bool    `json:"isVerified"`
}

type RegisterDomainResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Domain  Domain `json:"domain"`
}

type DNSInstruction struct {
	Type        string `json:"type"`
	Name        string `json:"name"`
	Value       string `json:"value"`
	Instruction string `json:"instruction"`
}

// Instructions lists the TXT record (Step1) and the CNAME record (Step2) to publish.
type Instructions struct {
	Step1 DNSInstruction `json:"step1"`
	Step2 DNSInstruction `json:"step2"`
}

type GenerateTokenResponse struct {
	Success      bool         `json:"success"`
	Token        string       `json:"token"`
	Instructions Instructions `json:"instructions"`
}

type CheckVerificationResponse struct {
	Success  bool   `json:"success"`
	Verified bool   `json:"verified"`
	Message  string `json:"message"`
	Domain   string `json:"domain"`
}

type DomainStatus struct {
	Domain                       string    `json:"domain"`
	IP                           string    `json:"ip"`
	IsVerified                   bool      `json:"isVerified"`
	HasActivePendingVerification bool      `json:"hasActivePendingVerification"`
	CreatedAt                    time.Time `json:"createdAt"`
	UpdatedAt                    time.Time `json:"updatedAt"`
}

type DomainStatusResponse struct {
	Success bool         `json:"success"`
	Status  DomainStatus `json:"status"`
}

type InstructionsResponse struct {
	Success      bool         `json:"success"`
	Instructions Instructions `json:"instructions"`
}

type LogEntry struct {
	ID        string    `json:"id"`
	Step      string    `json:"step"`
	Status    string    `json:"status"`
	Details   string    `json:"details"`
	CreatedAt time.Time `json:"createdAt"`
}

type LogsResponse struct {
	Success bool       `json:"success"`
	Logs    []LogEntry `json:"logs"`
}

type HealthCheckResponse struct {
	Message       string            `json:"message"`
	Documentation string            `json:"documentation"`
	Endpoints     map[string]string `json:"endpoints"`
}
