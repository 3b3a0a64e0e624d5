package service

import (
	"context"
	"fmt"
)

// DNSInstruction describes one record the customer has to publish.
type DNSInstruction struct {
	Type        string
	Name        string
	Value       string
	Instruction string
}

// Instructions are the two DNS changes that complete a verification, in order.
type Instructions struct {
	TXT   DNSInstruction
	CNAME DNSInstruction
}

func (s *service) GetVerificationInstructions(ctx context.Context, domain string, customerID *string, serviceHost, txtKey string) (Instructions, error) {
	if serviceHost == "" || txtKey == "" {
		return Instructions{}, fmt.Errorf("%w: service host and txt record key are required", ErrInvalidInput)
	}

	record, err := s.findRecord(ctx, domain, customerID)
	if err != nil {
		return Instructions{}, err
	}
	if record.Pending == nil {
		return Instructions{}, ErrNoPendingVerification
	}

	return Instructions{
		TXT: DNSInstruction{
			Type:        "TXT",
			Name:        record.Name,
			Value:       TxtRecordValue(txtKey, record.Pending.Token),
			Instruction: fmt.Sprintf("Add this TXT record to %s", record.Name),
		},
		CNAME: DNSInstruction{
			Type:        "CNAME",
			Name:        record.Name,
			Value:       serviceHost,
			Instruction: fmt.Sprintf("After TXT verification, point %s to %s", record.Name, serviceHost),
		},
	}, nil
}
