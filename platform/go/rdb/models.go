package rdb

import "time"

// DomainRecord is the RDB persistence model of a registered domain.
// CustomerKey folds the nullable customer id into the unique index: "" for none, "=" + id otherwise.
type DomainRecord struct {
	ID                string     `gorm:"primaryKey;type:text;not null"`
	Name              string     `gorm:"type:text;not null;uniqueIndex:idx_domains_name_customer,priority:1"`
	CustomerKey       string     `gorm:"type:text;not null;uniqueIndex:idx_domains_name_customer,priority:2"`
	IP                string     `gorm:"type:text;not null"`
	CustomerID        *string    `gorm:"type:text"`
	IsVerified        bool       `gorm:"not null;default:false"`
	VerificationToken *string    `gorm:"type:varchar(64)"`
	TokenExpiresAt    *time.Time
	CreatedAt         time.Time `gorm:"not null"`
	UpdatedAt         time.Time `gorm:"not null"`
}

func (DomainRecord) TableName() string { return "domains" }

// VerificationLogRecord is the RDB persistence model of an audit entry.
type VerificationLogRecord struct {
	ID         string    `gorm:"primaryKey;type:text;not null"`
	DomainID   string    `gorm:"type:text;not null;index:idx_verification_logs_domain"`
	CustomerID string    `gorm:"type:text;not null"`
	Step       string    `gorm:"column:verification_step;type:text;not null"`
	Status     string    `gorm:"type:text;not null"`
	Details    *string   `gorm:"type:text"`
	CreatedAt  time.Time `gorm:"not null"`
}

func (VerificationLogRecord) TableName() string { return "verification_logs" }

func customerKey(customerID *string) string {
	if customerID == nil {
		return ""
	}
	return "=" + *customerID
}
