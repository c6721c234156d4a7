// Package domain defines billing events, checkout, and the payment
// provider contract.
package domain

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

var (
	ErrInvalidSignature = errors.New("invalid webhook signature")
	ErrInvalidPayload   = errors.New("invalid webhook payload")
	ErrInvalidPlan      = errors.New("invalid plan")
	ErrInvalidCheckout  = errors.New("invalid checkout request")
	ErrProviderFailure  = errors.New("payment provider failure")
)

// BillingEvent records a processed webhook delivery. The unique
// (provider, provider_event_id) pair makes redeliveries no-ops.
type BillingEvent struct {
	ID              snowflake.ID   `gorm:"primaryKey"`
	Provider        string         `gorm:"type:text;not null;uniqueIndex:ux_billing_events_provider_event,priority:1"`
	ProviderEventID string         `gorm:"column:provider_event_id;type:text;not null;uniqueIndex:ux_billing_events_provider_event,priority:2"`
	EventType       string         `gorm:"column:event_type;type:text;not null"`
	Payload         datatypes.JSON `gorm:"type:jsonb"`
	ProcessedAt     time.Time      `gorm:"column:processed_at;not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (BillingEvent) TableName() string { return "billing_events" }

// CheckoutRequest starts a subscription checkout for a user.
type CheckoutRequest struct {
	UserID    snowflake.ID
	Email     string
	Name      string
	PlanID    string
	ProductID string
}

// CheckoutResponse carries the provider checkout handoff.
type CheckoutResponse struct {
	CheckoutURL    string `json:"checkoutUrl"`
	SubscriptionID string `json:"subscriptionId"`
}

// CreateSubscriptionRequest is the provider-facing subscription create.
type CreateSubscriptionRequest struct {
	ProductID     string
	CustomerEmail string
	CustomerName  string
	ReturnURL     string
}

// Subscription is the provider's created subscription.
type Subscription struct {
	ID          string
	CheckoutURL string
}

// PaymentClient talks to the payment provider's REST API.
type PaymentClient interface {
	CreateSubscription(ctx context.Context, req CreateSubscriptionRequest) (*Subscription, error)
}

// Service processes checkout requests and webhook deliveries.
type Service interface {
	CreateCheckout(ctx context.Context, req CheckoutRequest) (*CheckoutResponse, error)

	// HandleWebhook verifies, dedupes, and applies one delivery.
	// Redelivered and unrecognized events succeed without side effects.
	HandleWebhook(ctx context.Context, provider string, payload []byte, headers http.Header) error
}

// Repository persists webhook dedupe records.
type Repository interface {
	// InsertEvent records the delivery unless it was already processed,
	// reporting whether this call inserted it.
	InsertEvent(ctx context.Context, event *BillingEvent) (bool, error)

	// DeleteEvent releases a dedupe record so the provider's retry of
	// the same delivery can be processed again.
	DeleteEvent(ctx context.Context, id snowflake.ID) error
}
