package domain

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Email     string    `json:"email" db:"email"`
	Phone     string    `json:"phone" db:"phone"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

type DocumentType string

const (
	DocumentTypeCCCD           DocumentType = "CCCD"
	DocumentTypeDrivingLicense DocumentType = "DRIVING_LICENSE"
)

// IdentityDocument is a citizen ID card (CCCD) or driving licence that went
// through verification outside this service.
type IdentityDocument struct {
	ID        uuid.UUID    `json:"id" db:"id"`
	UserID    uuid.UUID    `json:"user_id" db:"user_id"`
	Type      DocumentType `json:"type" db:"type"`
	Number    string       `json:"number" db:"number"`
	Verified  bool         `json:"verified" db:"verified"`
	ExpiresAt *time.Time   `json:"expires_at,omitempty" db:"expires_at"`
	CreatedAt time.Time    `json:"created_at" db:"created_at"`
}

// ValidAt reports whether the document can back a rental contract at now.
func (d *IdentityDocument) ValidAt(now time.Time) bool {
	if !d.Verified {
		return false
	}
	if d.Type != DocumentTypeCCCD && d.Type != DocumentTypeDrivingLicense {
		return false
	}
	return d.ExpiresAt == nil || d.ExpiresAt.After(now)
}

type Role string

const (
	RoleCustomer Role = "CUSTOMER"
	RoleStaff    Role = "STAFF"
	RoleAdmin    Role = "ADMIN"
)
