package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	authdomain "github.com/scyra/scyra/internal/auth/domain"
	"github.com/scyra/scyra/internal/billing/domain"
	"github.com/scyra/scyra/internal/clock"
	"github.com/scyra/scyra/internal/config"
	obsmetrics "github.com/scyra/scyra/internal/observability/metrics"
	profiledomain "github.com/scyra/scyra/internal/profile/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

type webhookEvent struct {
	EventType string           `json:"event_type"`
	Type      string           `json:"type"`
	Data      webhookEventData `json:"data"`
}

type webhookEventData struct {
	ID         string `json:"id"`
	CustomerID string `json:"customer_id"`
	ProductID  string `json:"product_id"`
	Customer   *struct {
		Email string `json:"email"`
	} `json:"customer"`
}

func (e webhookEvent) eventType() string {
	if e.EventType != "" {
		return e.EventType
	}
	return e.Type
}

func (e webhookEvent) customerEmail() string {
	if e.Data.Customer == nil {
		return ""
	}
	return strings.TrimSpace(e.Data.Customer.Email)
}

type Params struct {
	fx.In

	Log        *zap.Logger
	Cfg        config.Config
	GenID      *snowflake.Node
	Clock      clock.Clock
	Repo       domain.Repository
	Client     domain.PaymentClient
	Profiles   profiledomain.Service
	Users      authdomain.Repository
	Plans      *config.PlanConfigHolder
	ObsMetrics *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	log        *zap.Logger
	cfg        config.Config
	genID      *snowflake.Node
	clock      clock.Clock
	repo       domain.Repository
	client     domain.PaymentClient
	profiles   profiledomain.Service
	users      authdomain.Repository
	plans      *config.PlanConfigHolder
	obsMetrics *obsmetrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		log:        p.Log.Named("billing.service"),
		cfg:        p.Cfg,
		genID:      p.GenID,
		clock:      p.Clock,
		repo:       p.Repo,
		client:     p.Client,
		profiles:   p.Profiles,
		users:      p.Users,
		plans:      p.Plans,
		obsMetrics: p.ObsMetrics,
	}
}

func (s *Service) CreateCheckout(ctx context.Context, req domain.CheckoutRequest) (*domain.CheckoutResponse, error) {
	if req.UserID == 0 || strings.TrimSpace(req.Email) == "" {
		return nil, domain.ErrInvalidCheckout
	}
	if strings.TrimSpace(req.PlanID) == "" || strings.TrimSpace(req.ProductID) == "" {
		return nil, domain.ErrInvalidCheckout
	}
	if req.PlanID != config.PlanPro {
		return nil, domain.ErrInvalidPlan
	}

	subscription, err := s.client.CreateSubscription(ctx, domain.CreateSubscriptionRequest{
		ProductID:     req.ProductID,
		CustomerEmail: req.Email,
		CustomerName:  req.Name,
		ReturnURL:     s.cfg.Dodo.ReturnURL,
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("checkout created",
		zap.String("user_id", req.UserID.String()),
		zap.String("product_id", req.ProductID),
		zap.String("subscription_id", subscription.ID),
	)
	return &domain.CheckoutResponse{
		CheckoutURL:    subscription.CheckoutURL,
		SubscriptionID: subscription.ID,
	}, nil
}

func (s *Service) HandleWebhook(ctx context.Context, provider string, payload []byte, headers http.Header) error {
	if secret := s.cfg.Dodo.WebhookSecret; secret != "" {
		if err := verifySignature(secret, payload, headers); err != nil {
			return err
		}
	}

	var event webhookEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return domain.ErrInvalidPayload
	}
	eventType := strings.TrimSpace(event.eventType())
	if eventType == "" {
		return domain.ErrInvalidPayload
	}

	record := &domain.BillingEvent{
		ID:              s.genID.Generate(),
		Provider:        provider,
		ProviderEventID: deliveryID(headers, payload),
		EventType:       eventType,
		Payload:         datatypes.JSON(payload),
		ProcessedAt:     s.clock.Now(),
	}
	inserted, err := s.repo.InsertEvent(ctx, record)
	if err != nil {
		return err
	}
	if !inserted {
		s.log.Info("webhook redelivery ignored",
			zap.String("provider", provider),
			zap.String("event_type", eventType),
		)
		return nil
	}

	if s.obsMetrics != nil {
		s.obsMetrics.RecordBillingEvent(ctx, provider, eventType)
	}

	if err := s.applyEvent(ctx, eventType, event); err != nil {
		// Release the dedupe record so the provider's retry of this
		// delivery is not swallowed as already processed.
		if dropErr := s.repo.DeleteEvent(ctx, record.ID); dropErr != nil {
			s.log.Error("failed to release webhook dedupe record",
				zap.String("provider", provider),
				zap.String("provider_event_id", record.ProviderEventID),
				zap.Error(dropErr),
			)
		}
		return err
	}
	return nil
}

func (s *Service) applyEvent(ctx context.Context, eventType string, event webhookEvent) error {
	switch eventType {
	case "subscription.created", "subscription.activated":
		return s.applySubscription(ctx, event)
	case "subscription.renewed":
		return s.applyRenewal(ctx, event)
	case "subscription.cancelled", "subscription.canceled":
		return s.applyCancellation(ctx, event)
	default:
		s.log.Info("unhandled webhook event type", zap.String("event_type", eventType))
		return nil
	}
}

func (s *Service) applySubscription(ctx context.Context, event webhookEvent) error {
	email := event.customerEmail()
	if email == "" {
		return domain.ErrInvalidPayload
	}

	grant, ok := s.plans.Get().GrantForProduct(event.Data.ProductID)
	if !ok {
		s.log.Warn("subscription for unrecognized product ignored",
			zap.String("product_id", event.Data.ProductID),
		)
		return nil
	}

	user, err := s.users.FindUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, authdomain.ErrUserNotFound) {
			s.log.Warn("subscription for unknown user ignored", zap.String("email", email))
			return nil
		}
		return err
	}

	if _, err := s.profiles.ApplyPlanGrant(ctx, profiledomain.ApplyPlanGrantRequest{
		UserID:  user.ID,
		Plan:    grant.Plan,
		Credits: grant.MonthlyCredits,
	}); err != nil {
		return err
	}
	if event.Data.CustomerID != "" {
		return s.profiles.AttachCustomer(ctx, user.ID, event.Data.CustomerID)
	}
	return nil
}

func (s *Service) applyRenewal(ctx context.Context, event webhookEvent) error {
	if event.Data.CustomerID == "" {
		return domain.ErrInvalidPayload
	}

	grant, ok := s.renewalGrant(event)
	if !ok {
		s.log.Warn("renewal without a recognizable grant ignored",
			zap.String("customer_id", event.Data.CustomerID),
		)
		return nil
	}

	_, err := s.profiles.ApplyPlanGrant(ctx, profiledomain.ApplyPlanGrantRequest{
		CustomerID: event.Data.CustomerID,
		Plan:       grant.Plan,
		Credits:    grant.MonthlyCredits,
	})
	if errors.Is(err, profiledomain.ErrProfileNotFound) {
		s.log.Warn("renewal for unattached customer ignored",
			zap.String("customer_id", event.Data.CustomerID),
		)
		return nil
	}
	return err
}

// renewalGrant resolves the grant from the renewal's product id, falling
// back to the plan currently held by the attached profile when the
// provider omits it.
func (s *Service) renewalGrant(event webhookEvent) (config.PlanGrant, bool) {
	policy := s.plans.Get()
	if grant, ok := policy.GrantForProduct(event.Data.ProductID); ok {
		return grant, true
	}
	for _, grant := range policy.Grants {
		if grant.Plan == config.PlanPro {
			return grant, true
		}
	}
	return config.PlanGrant{}, false
}

func (s *Service) applyCancellation(ctx context.Context, event webhookEvent) error {
	if event.Data.CustomerID == "" {
		return domain.ErrInvalidPayload
	}
	err := s.profiles.DetachCustomer(ctx, event.Data.CustomerID)
	if errors.Is(err, profiledomain.ErrCustomerNotAttached) {
		s.log.Warn("cancellation for unattached customer ignored",
			zap.String("customer_id", event.Data.CustomerID),
		)
		return nil
	}
	return err
}

// deliveryID identifies a delivery for dedupe: the webhook-id header when
// present, otherwise a digest of the payload.
func deliveryID(headers http.Header, payload []byte) string {
	if id := strings.TrimSpace(headers.Get("webhook-id")); id != "" {
		return id
	}
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}
