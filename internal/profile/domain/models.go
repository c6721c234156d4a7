package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

var (
	ErrProfileNotFound     = errors.New("profile not found")
	ErrInsufficientCredits = errors.New("insufficient credits")
	ErrInvalidUser         = errors.New("invalid user")
	ErrInvalidPlan         = errors.New("invalid plan")
	ErrInvalidCustomer     = errors.New("invalid billing customer")
	ErrCustomerNotAttached = errors.New("billing customer not attached")
	ErrInvalidGrant        = errors.New("invalid plan grant")
)

// UserProfile tracks a user's plan and spendable credit balance.
// Credits never go below zero; debits are conditional updates whose
// rows-affected is checked.
type UserProfile struct {
	ID                snowflake.ID `gorm:"primaryKey" json:"id"`
	UserID            snowflake.ID `gorm:"column:user_id;not null;uniqueIndex" json:"user_id"`
	Plan              string       `gorm:"type:text;not null;default:'none'" json:"plan"`
	Credits           int64        `gorm:"not null;default:0" json:"credits"`
	TotalCreditLimit  int64        `gorm:"column:total_credit_limit;not null;default:0" json:"total_credit_limit"`
	BillingCustomerID *string      `gorm:"column:billing_customer_id;type:text;index" json:"billing_customer_id,omitempty"`
	CreatedAt         time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt         time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (UserProfile) TableName() string { return "user_profiles" }

// ApplyPlanGrantRequest applies a subscription grant to a profile. Either
// UserID or CustomerID identifies the target; CustomerID is used when the
// grant arrives from a billing webhook for an already-attached customer.
type ApplyPlanGrantRequest struct {
	UserID     snowflake.ID
	CustomerID string
	Plan       string
	Credits    int64
}

// Service manages user credit profiles.
type Service interface {
	// GetOrCreate returns the profile for userID, lazily creating it with
	// the configured signup grant. Creation is idempotent under races.
	GetOrCreate(ctx context.Context, userID snowflake.ID) (*UserProfile, error)

	// ApplyPlanGrant sets the plan and resets the balance and limit to the
	// granted credits, recording a ledger credit entry in one transaction.
	ApplyPlanGrant(ctx context.Context, req ApplyPlanGrantRequest) (*UserProfile, error)

	// AttachCustomer links a payment-provider customer id to the profile.
	AttachCustomer(ctx context.Context, userID snowflake.ID, customerID string) error

	// DetachCustomer clears the customer link on cancellation. The plan and
	// remaining credits are kept.
	DetachCustomer(ctx context.Context, customerID string) error
}

// Repository persists user profiles.
type Repository interface {
	FindByUserID(ctx context.Context, userID snowflake.ID) (*UserProfile, error)
	FindByCustomerID(ctx context.Context, customerID string) (*UserProfile, error)

	// InsertIfAbsent inserts the profile unless one already exists for its
	// user. It reports whether the row was inserted.
	InsertIfAbsent(ctx context.Context, tx *gorm.DB, profile *UserProfile) (bool, error)

	// Debit decrements the balance by amount only when the balance covers
	// it, returning ErrInsufficientCredits otherwise.
	Debit(ctx context.Context, tx *gorm.DB, userID snowflake.ID, amount int64) error

	UpdateGrant(ctx context.Context, tx *gorm.DB, userID snowflake.ID, plan string, credits int64) error
	SetCustomerID(ctx context.Context, userID snowflake.ID, customerID *string) error
	ClearCustomerID(ctx context.Context, customerID string) error
}
