package model

import "time"

// SecretEnvelopeMaxLength is the width of the credentials.password column.
const SecretEnvelopeMaxLength = 512

// SecretEnvelope is the sealed, text-safe form of a credential password.
// It is never the plaintext and never a one-way hash.
type SecretEnvelope string

// Credential is a stored secret for one service. The owner (CreatedBy) is
// an implicit grantee and is never required in AllowedUsers.
type Credential struct {
	ID           uint   `gorm:"primaryKey"`
	Name         string `gorm:"size:100"`
	ServiceID    uint
	Service      Service
	Username     *string        `gorm:"size:100"`
	Password     SecretEnvelope `gorm:"size:512"`
	PublicKey    *string
	CreatedByID  uint
	CreatedBy    User
	CreatedAt    time.Time
	UpdatedAt    time.Time
	Tags         []Tag  `gorm:"many2many:credential_tags;"`
	AllowedUsers []User `gorm:"many2many:credential_allowed_users;"`
}

func (Credential) TableName() string {
	return "credentials"
}

// IsOwnedBy reports whether userID created the credential.
func (c *Credential) IsOwnedBy(userID uint) bool {
	return c.CreatedByID == userID
}

// IsSharedWith reports whether userID was explicitly granted read access.
func (c *Credential) IsSharedWith(userID uint) bool {
	for _, u := range c.AllowedUsers {
		if u.ID == userID {
			return true
		}
	}
	return false
}

// AccessLog records one read of a credential. Rows are append-only and
// their IDs are totally ordered per credential.
type AccessLog struct {
	ID           uint64 `gorm:"primaryKey"`
	UserID       uint
	User         User
	CredentialID uint
	Credential   Credential
	AccessedAt   time.Time
}

func (AccessLog) TableName() string {
	return "access_logs"
}
