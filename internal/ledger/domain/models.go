package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// EntryType marks the direction of a credit posting.
type EntryType string

const (
	EntryTypeCredit EntryType = "credit"
	EntryTypeDebit  EntryType = "debit"
)

var (
	ErrInvalidUser   = errors.New("invalid user")
	ErrInvalidAmount = errors.New("invalid amount")
	ErrInvalidType   = errors.New("invalid entry type")
)

// CreditTransaction is an append-only posting against a user's credit
// balance. Rows are never updated or deleted.
type CreditTransaction struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	UserID    snowflake.ID `gorm:"column:user_id;not null;index" json:"user_id"`
	Amount    int64        `gorm:"not null" json:"amount"`
	Type      EntryType    `gorm:"type:text;not null" json:"type"`
	Reason    string       `gorm:"type:text;not null;default:''" json:"reason"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (CreditTransaction) TableName() string { return "credit_transactions" }

// Entry is the caller-facing shape for a new posting.
type Entry struct {
	UserID snowflake.ID
	Amount int64
	Type   EntryType
	Reason string
}

// Service appends credit postings. Record runs inside the caller's
// transaction so the posting commits atomically with the balance change
// it describes.
type Service interface {
	Record(ctx context.Context, tx *gorm.DB, entry Entry) error
	ListByUser(ctx context.Context, userID snowflake.ID, limit int) ([]CreditTransaction, error)
}
