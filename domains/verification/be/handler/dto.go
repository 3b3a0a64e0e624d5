package handler

import (
	"time"

	"github.com/zenGate-Global/domain-verification/domains/verification/be/service"
)

type registerDomainRequest struct {
	Domain     string  `json:"domain" validate:"required,max=253"`
	IP         string  `json:"ip" validate:"required,max=255"`
	CustomerID *string `json:"customerId,omitempty" validate:"omitempty,max=255"`
}

type verificationRequest struct {
	Domain             string `json:"domain" validate:"required,max=253"`
	CustomerID         string `json:"customerId" validate:"required,max=255"`
	ServiceHost        string `json:"serviceHost,omitempty" validate:"omitempty,max=253"`
	TxtRecordVerifyKey string `json:"txtRecordVerifyKey,omitempty" validate:"omitempty,max=255"`
}

type domainQuery struct {
	Domain     string `json:"domain" validate:"required,max=253"`
	CustomerID string `json:"customerId" validate:"required,max=255"`
}

type domainDTO struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	IP         string  `json:"ip"`
	CustomerID *string `json:"customerId"`
	IsVerified bool    `json:"isVerified"`
}

type registerDomainResponse struct {
	Success bool      `json:"success"`
	Message string    `json:"message"`
	Domain  domainDTO `json:"domain"`
}

type dnsInstructionDTO struct {
	Type        string `json:"type"`
	Name        string `json:"name"`
	Value       string `json:"value"`
	Instruction string `json:"instruction"`
}

type instructionsDTO struct {
	Step1 dnsInstructionDTO `json:"step1"`
	Step2 dnsInstructionDTO `json:"step2"`
}

type generateTokenResponse struct {
	Success      bool            `json:"success"`
	Token        string          `json:"token"`
	Instructions instructionsDTO `json:"instructions"`
}

type checkVerificationResponse struct {
	Success  bool   `json:"success"`
	Verified bool   `json:"verified"`
	Message  string `json:"message"`
	Domain   string `json:"domain"`
}

type domainStatusDTO struct {
	Domain                       string    `json:"domain"`
	IP                           string    `json:"ip"`
	IsVerified                   bool      `json:"isVerified"`
	HasActivePendingVerification bool      `json:"hasActivePendingVerification"`
	CreatedAt                    time.Time `json:"createdAt"`
	UpdatedAt                    time.Time `json:"updatedAt"`
}

type domainStatusResponse struct {
	Success bool            `json:"success"`
	Status  domainStatusDTO `json:"status"`
}

type instructionsResponse struct {
	Success      bool            `json:"success"`
	Instructions instructionsDTO `json:"instructions"`
}

type logEntryDTO struct {
	ID        string    `json:"id"`
	Step      string    `json:"step"`
	Status    string    `json:"status"`
	Details   string    `json:"details"`
	CreatedAt time.Time `json:"createdAt"`
}

type logsResponse struct {
	Success bool          `json:"success"`
	Logs    []logEntryDTO `json:"logs"`
}

type rootResponse struct {
	Message       string            `json:"message"`
	Documentation string            `json:"documentation"`
	Endpoints     map[string]string `json:"endpoints"`
}

func toDomainDTO(record service.DomainRecord) domainDTO {
	return domainDTO{
		ID:         record.ID.String(),
		Name:       record.Name,
		IP:         record.IP,
		CustomerID: record.CustomerID,
		IsVerified: record.IsVerified,
	}
}

func toInstructionsDTO(instructions service.Instructions) instructionsDTO {
	return instructionsDTO{
		Step1: toDNSInstructionDTO(instructions.TXT),
		Step2: toDNSInstructionDTO(instructions.CNAME),
	}
}

func toDNSInstructionDTO(in service.DNSInstruction) dnsInstructionDTO {
	return dnsInstructionDTO{
		Type:        in.Type,
		Name:        in.Name,
		Value:       in.Value,
		Instruction: in.Instruction,
	}
}

func toStatusDTO(status service.DomainStatus) domainStatusDTO {
	return domainStatusDTO{
		Domain:                       status.Domain,
		IP:                           status.IP,
		IsVerified:                   status.IsVerified,
		HasActivePendingVerification: status.HasActivePendingVerification,
		CreatedAt:                    status.CreatedAt,
		UpdatedAt:                    status.UpdatedAt,
	}
}

func toLogDTOs(entries []service.LogEntry) []logEntryDTO {
	out := make([]logEntryDTO, 0, len(entries))
	for _, entry := range entries {
		out = append(out, logEntryDTO{
			ID:        entry.ID.String(),
			Step:      string(entry.Step),
			Status:    string(entry.Status),
			Details:   entry.Details,
			CreatedAt: entry.CreatedAt,
		})
	}
	return out
}
