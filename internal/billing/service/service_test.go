package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	authdomain "github.com/scyra/scyra/internal/auth/domain"
	authrepository "github.com/scyra/scyra/internal/auth/repository"
	"github.com/scyra/scyra/internal/billing/domain"
	"github.com/scyra/scyra/internal/billing/repository"
	"github.com/scyra/scyra/internal/clock"
	"github.com/scyra/scyra/internal/config"
	ledgerdomain "github.com/scyra/scyra/internal/ledger/domain"
	ledgerservice "github.com/scyra/scyra/internal/ledger/service"
	profiledomain "github.com/scyra/scyra/internal/profile/domain"
	profilerepository "github.com/scyra/scyra/internal/profile/repository"
	profileservice "github.com/scyra/scyra/internal/profile/service"
	"github.com/scyra/scyra/pkg/db"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fakePaymentClient struct {
	subscription *domain.Subscription
	err          error
	lastRequest  domain.CreateSubscriptionRequest
}

func (c *fakePaymentClient) CreateSubscription(_ context.Context, req domain.CreateSubscriptionRequest) (*domain.Subscription, error) {
	c.lastRequest = req
	if c.err != nil {
		return nil, c.err
	}
	return c.subscription, nil
}

type billingFixture struct {
	svc         domain.Service
	conn        *gorm.DB
	node        *snowflake.Node
	client      *fakePaymentClient
	profileRepo profiledomain.Repository
	clk         *clock.FakeClock
}

func newBillingFixture(t *testing.T, cfg config.Config) *billingFixture {
	t.Helper()

	conn, err := db.NewTest()
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(
		&authdomain.User{},
		&profiledomain.UserProfile{},
		&ledgerdomain.CreditTransaction{},
		&domain.BillingEvent{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	clk := clock.NewFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))

	ledgerSvc := ledgerservice.NewService(ledgerservice.Params{
		DB:    conn,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: clk,
	})
	profileRepo := profilerepository.New(conn, clk)
	profileSvc := profileservice.New(profileservice.Params{
		DB:     conn,
		Log:    zap.NewNop(),
		GenID:  node,
		Clock:  clk,
		Repo:   profileRepo,
		Ledger: ledgerSvc,
		Plans:  config.NewStaticPlanConfigHolder(config.DefaultPlanConfig()),
	})

	client := &fakePaymentClient{
		subscription: &domain.Subscription{ID: "sub_123", CheckoutURL: "https://checkout.dodopayments.com/s/123"},
	}
	svc := New(Params{
		Log:      zap.NewNop(),
		Cfg:      cfg,
		GenID:    node,
		Clock:    clk,
		Repo:     repository.New(conn),
		Client:   client,
		Profiles: profileSvc,
		Users:    authrepository.New(conn),
		Plans:    config.NewStaticPlanConfigHolder(config.DefaultPlanConfig()),
	})

	return &billingFixture{
		svc:         svc,
		conn:        conn,
		node:        node,
		client:      client,
		profileRepo: profileRepo,
		clk:         clk,
	}
}

func (f *billingFixture) seedUser(t *testing.T, email string) *authdomain.User {
	t.Helper()
	user := &authdomain.User{
		ID:        f.node.Generate(),
		Email:     email,
		Name:      "Ada",
		CreatedAt: f.clk.Now(),
		UpdatedAt: f.clk.Now(),
	}
	require.NoError(t, f.conn.Create(user).Error)
	return user
}

func subscriptionPayload(eventType, email, customerID, productID string) []byte {
	return []byte(fmt.Sprintf(
		`{"type":%q,"data":{"id":"elem_1","customer_id":%q,"product_id":%q,"customer":{"email":%q}}}`,
		eventType, customerID, productID, email,
	))
}

func deliveryHeaders(id string) http.Header {
	h := http.Header{}
	h.Set("webhook-id", id)
	return h
}

func TestWebhookSubscriptionCreatedGrantsPlan(t *testing.T) {
	f := newBillingFixture(t, config.Config{})
	user := f.seedUser(t, "ada@example.com")

	payload := subscriptionPayload("subscription.created", "ada@example.com", "cus_42", "pdt_0NYUd1mVCB0vEvtCFFj0r")
	require.NoError(t, f.svc.HandleWebhook(context.Background(), "dodo", payload, deliveryHeaders("msg_1")))

	profile, err := f.profileRepo.FindByUserID(context.Background(), user.ID)
	require.NoError(t, err)
	require.Equal(t, config.PlanPro, profile.Plan)
	require.Equal(t, int64(50), profile.Credits)
	require.NotNil(t, profile.BillingCustomerID)
	require.Equal(t, "cus_42", *profile.BillingCustomerID)
}

func TestWebhookRedeliveryIsIgnored(t *testing.T) {
	f := newBillingFixture(t, config.Config{})
	user := f.seedUser(t, "ada@example.com")

	payload := subscriptionPayload("subscription.created", "ada@example.com", "cus_42", "pdt_0NYUd1mVCB0vEvtCFFj0r")
	require.NoError(t, f.svc.HandleWebhook(context.Background(), "dodo", payload, deliveryHeaders("msg_1")))
	require.NoError(t, f.svc.HandleWebhook(context.Background(), "dodo", payload, deliveryHeaders("msg_1")))

	var grants int64
	require.NoError(t, f.conn.Model(&ledgerdomain.CreditTransaction{}).
		Where("user_id = ? AND reason = ?", user.ID, "Plan grant: pro").
		Count(&grants).Error)
	require.Equal(t, int64(1), grants)

	var events int64
	require.NoError(t, f.conn.Model(&domain.BillingEvent{}).Count(&events).Error)
	require.Equal(t, int64(1), events)
}

func TestWebhookRetryAfterFailedGrantCompletes(t *testing.T) {
	f := newBillingFixture(t, config.Config{})
	user := f.seedUser(t, "ada@example.com")

	payload := subscriptionPayload("subscription.created", "ada@example.com", "cus_42", "pdt_0NYUd1mVCB0vEvtCFFj0r")

	// Break the grant path so the first delivery fails after dedupe.
	require.NoError(t, f.conn.Migrator().DropTable(&ledgerdomain.CreditTransaction{}))
	require.Error(t, f.svc.HandleWebhook(context.Background(), "dodo", payload, deliveryHeaders("msg_1")))

	// The failed delivery must not be remembered as processed.
	var events int64
	require.NoError(t, f.conn.Model(&domain.BillingEvent{}).Count(&events).Error)
	require.Zero(t, events)

	require.NoError(t, f.conn.AutoMigrate(&ledgerdomain.CreditTransaction{}))
	require.NoError(t, f.svc.HandleWebhook(context.Background(), "dodo", payload, deliveryHeaders("msg_1")))

	profile, err := f.profileRepo.FindByUserID(context.Background(), user.ID)
	require.NoError(t, err)
	require.Equal(t, config.PlanPro, profile.Plan)
	require.Equal(t, int64(50), profile.Credits)
}

func TestWebhookRenewalTopsUpByCustomerID(t *testing.T) {
	f := newBillingFixture(t, config.Config{})
	f.seedUser(t, "ada@example.com")

	created := subscriptionPayload("subscription.created", "ada@example.com", "cus_42", "pdt_0NYUd1mVCB0vEvtCFFj0r")
	require.NoError(t, f.svc.HandleWebhook(context.Background(), "dodo", created, deliveryHeaders("msg_1")))

	// Renewal omits the product id; the grant falls back to the pro plan.
	renewed := []byte(`{"type":"subscription.renewed","data":{"id":"elem_2","customer_id":"cus_42"}}`)
	require.NoError(t, f.svc.HandleWebhook(context.Background(), "dodo", renewed, deliveryHeaders("msg_2")))

	profile, err := f.profileRepo.FindByCustomerID(context.Background(), "cus_42")
	require.NoError(t, err)
	require.Equal(t, int64(50), profile.Credits)
	require.Equal(t, config.PlanPro, profile.Plan)
}

func TestWebhookCancellationDetachesCustomer(t *testing.T) {
	f := newBillingFixture(t, config.Config{})
	user := f.seedUser(t, "ada@example.com")

	created := subscriptionPayload("subscription.created", "ada@example.com", "cus_42", "pdt_0NYUd1mVCB0vEvtCFFj0r")
	require.NoError(t, f.svc.HandleWebhook(context.Background(), "dodo", created, deliveryHeaders("msg_1")))

	cancelled := []byte(`{"type":"subscription.cancelled","data":{"id":"elem_3","customer_id":"cus_42"}}`)
	require.NoError(t, f.svc.HandleWebhook(context.Background(), "dodo", cancelled, deliveryHeaders("msg_2")))

	profile, err := f.profileRepo.FindByUserID(context.Background(), user.ID)
	require.NoError(t, err)
	require.Nil(t, profile.BillingCustomerID)
	require.Equal(t, int64(50), profile.Credits)
}

func TestWebhookUnknownProductIsAcknowledged(t *testing.T) {
	f := newBillingFixture(t, config.Config{})
	user := f.seedUser(t, "ada@example.com")

	payload := subscriptionPayload("subscription.created", "ada@example.com", "cus_42", "pdt_unknown")
	require.NoError(t, f.svc.HandleWebhook(context.Background(), "dodo", payload, deliveryHeaders("msg_1")))

	_, err := f.profileRepo.FindByUserID(context.Background(), user.ID)
	require.True(t, errors.Is(err, profiledomain.ErrProfileNotFound))
}

func TestWebhookUnknownUserIsAcknowledged(t *testing.T) {
	f := newBillingFixture(t, config.Config{})

	payload := subscriptionPayload("subscription.created", "nobody@example.com", "cus_42", "pdt_0NYUd1mVCB0vEvtCFFj0r")
	require.NoError(t, f.svc.HandleWebhook(context.Background(), "dodo", payload, deliveryHeaders("msg_1")))
}

func TestWebhookUnknownEventTypeIsAcknowledged(t *testing.T) {
	f := newBillingFixture(t, config.Config{})

	payload := []byte(`{"type":"payment.succeeded","data":{"id":"elem_9"}}`)
	require.NoError(t, f.svc.HandleWebhook(context.Background(), "dodo", payload, deliveryHeaders("msg_1")))
}

func TestWebhookMalformedPayloadRejected(t *testing.T) {
	f := newBillingFixture(t, config.Config{})

	err := f.svc.HandleWebhook(context.Background(), "dodo", []byte("not json"), deliveryHeaders("msg_1"))
	require.True(t, errors.Is(err, domain.ErrInvalidPayload))
}

func TestWebhookSignatureVerification(t *testing.T) {
	cfg := config.Config{}
	cfg.Dodo.WebhookSecret = "whsec_" + base64.StdEncoding.EncodeToString([]byte("topsecret"))
	f := newBillingFixture(t, cfg)
	f.seedUser(t, "ada@example.com")

	payload := subscriptionPayload("subscription.created", "ada@example.com", "cus_42", "pdt_0NYUd1mVCB0vEvtCFFj0r")

	unsigned := deliveryHeaders("msg_1")
	err := f.svc.HandleWebhook(context.Background(), "dodo", payload, unsigned)
	require.True(t, errors.Is(err, domain.ErrInvalidSignature))

	signed := deliveryHeaders("msg_1")
	signed.Set("webhook-timestamp", "1717243200")
	mac := hmac.New(sha256.New, []byte("topsecret"))
	mac.Write([]byte("msg_1.1717243200." + string(payload)))
	signed.Set("webhook-signature", "v1,"+base64.StdEncoding.EncodeToString(mac.Sum(nil)))
	require.NoError(t, f.svc.HandleWebhook(context.Background(), "dodo", payload, signed))
}

func TestCreateCheckoutValidation(t *testing.T) {
	f := newBillingFixture(t, config.Config{})

	_, err := f.svc.CreateCheckout(context.Background(), domain.CheckoutRequest{
		UserID:    f.node.Generate(),
		Email:     "ada@example.com",
		PlanID:    "free",
		ProductID: "pdt_0NYUd1mVCB0vEvtCFFj0r",
	})
	require.True(t, errors.Is(err, domain.ErrInvalidPlan))

	_, err = f.svc.CreateCheckout(context.Background(), domain.CheckoutRequest{
		UserID: f.node.Generate(),
		PlanID: "pro",
	})
	require.True(t, errors.Is(err, domain.ErrInvalidCheckout))
}

func TestCreateCheckoutReturnsProviderLink(t *testing.T) {
	cfg := config.Config{}
	cfg.Dodo.ReturnURL = "https://app.scyra.io/dashboard"
	f := newBillingFixture(t, cfg)

	resp, err := f.svc.CreateCheckout(context.Background(), domain.CheckoutRequest{
		UserID:    f.node.Generate(),
		Email:     "ada@example.com",
		Name:      "Ada",
		PlanID:    "pro",
		ProductID: "pdt_0NYUd1mVCB0vEvtCFFj0r",
	})
	require.NoError(t, err)
	require.Equal(t, "https://checkout.dodopayments.com/s/123", resp.CheckoutURL)
	require.Equal(t, "sub_123", resp.SubscriptionID)
	require.Equal(t, "https://app.scyra.io/dashboard", f.client.lastRequest.ReturnURL)
	require.Equal(t, "ada@example.com", f.client.lastRequest.CustomerEmail)
}
