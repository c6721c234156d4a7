package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/scyra/scyra/internal/clock"
	"github.com/scyra/scyra/internal/config"
	ledgerdomain "github.com/scyra/scyra/internal/ledger/domain"
	ledgerservice "github.com/scyra/scyra/internal/ledger/service"
	"github.com/scyra/scyra/internal/profile/domain"
	"github.com/scyra/scyra/internal/profile/repository"
	"github.com/scyra/scyra/pkg/db"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type profileFixture struct {
	svc  domain.Service
	repo domain.Repository
	conn *gorm.DB
	clk  *clock.FakeClock
	node *snowflake.Node
}

func newProfileFixture(t *testing.T) *profileFixture {
	t.Helper()

	conn, err := db.NewTest()
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&domain.UserProfile{}, &ledgerdomain.CreditTransaction{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	clk := clock.NewFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))

	ledgerSvc := ledgerservice.NewService(ledgerservice.Params{
		DB:    conn,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: clk,
	})
	repo := repository.New(conn, clk)
	svc := New(Params{
		DB:     conn,
		Log:    zap.NewNop(),
		GenID:  node,
		Clock:  clk,
		Repo:   repo,
		Ledger: ledgerSvc,
		Plans:  config.NewStaticPlanConfigHolder(config.DefaultPlanConfig()),
	})

	return &profileFixture{svc: svc, repo: repo, conn: conn, clk: clk, node: node}
}

func TestGetOrCreateAppliesSignupGrant(t *testing.T) {
	f := newProfileFixture(t)
	userID := f.node.Generate()

	profile, err := f.svc.GetOrCreate(context.Background(), userID)
	require.NoError(t, err)
	require.Equal(t, config.PlanFree, profile.Plan)
	require.Equal(t, int64(5), profile.Credits)
	require.Equal(t, int64(5), profile.TotalCreditLimit)

	var entries []ledgerdomain.CreditTransaction
	require.NoError(t, f.conn.Where("user_id = ?", userID).Find(&entries).Error)
	require.Len(t, entries, 1)
	require.Equal(t, int64(5), entries[0].Amount)
	require.Equal(t, ledgerdomain.EntryTypeCredit, entries[0].Type)
}

func TestGetOrCreateIsIdempotent(t *testing.T) {
	f := newProfileFixture(t)
	userID := f.node.Generate()

	first, err := f.svc.GetOrCreate(context.Background(), userID)
	require.NoError(t, err)
	second, err := f.svc.GetOrCreate(context.Background(), userID)
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)

	var profiles int64
	require.NoError(t, f.conn.Model(&domain.UserProfile{}).Where("user_id = ?", userID).Count(&profiles).Error)
	require.Equal(t, int64(1), profiles)

	var entries int64
	require.NoError(t, f.conn.Model(&ledgerdomain.CreditTransaction{}).Where("user_id = ?", userID).Count(&entries).Error)
	require.Equal(t, int64(1), entries)
}

func TestDebitStopsAtZero(t *testing.T) {
	f := newProfileFixture(t)
	userID := f.node.Generate()

	_, err := f.svc.GetOrCreate(context.Background(), userID)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		require.NoError(t, f.repo.Debit(context.Background(), nil, userID, 1))
	}

	err = f.repo.Debit(context.Background(), nil, userID, 1)
	require.True(t, errors.Is(err, domain.ErrInsufficientCredits))

	profile, err := f.repo.FindByUserID(context.Background(), userID)
	require.NoError(t, err)
	require.Equal(t, int64(0), profile.Credits)
}

func TestApplyPlanGrantResetsBalance(t *testing.T) {
	f := newProfileFixture(t)
	userID := f.node.Generate()

	_, err := f.svc.GetOrCreate(context.Background(), userID)
	require.NoError(t, err)
	require.NoError(t, f.repo.Debit(context.Background(), nil, userID, 3))

	profile, err := f.svc.ApplyPlanGrant(context.Background(), domain.ApplyPlanGrantRequest{
		UserID:  userID,
		Plan:    config.PlanPro,
		Credits: 50,
	})
	require.NoError(t, err)
	require.Equal(t, config.PlanPro, profile.Plan)
	require.Equal(t, int64(50), profile.Credits)
	require.Equal(t, int64(50), profile.TotalCreditLimit)

	var entries int64
	require.NoError(t, f.conn.Model(&ledgerdomain.CreditTransaction{}).
		Where("user_id = ? AND type = ?", userID, ledgerdomain.EntryTypeCredit).
		Count(&entries).Error)
	require.Equal(t, int64(2), entries)
}

func TestApplyPlanGrantByCustomerID(t *testing.T) {
	f := newProfileFixture(t)
	userID := f.node.Generate()

	_, err := f.svc.GetOrCreate(context.Background(), userID)
	require.NoError(t, err)
	require.NoError(t, f.svc.AttachCustomer(context.Background(), userID, "cus_123"))

	profile, err := f.svc.ApplyPlanGrant(context.Background(), domain.ApplyPlanGrantRequest{
		CustomerID: "cus_123",
		Plan:       config.PlanPro,
		Credits:    50,
	})
	require.NoError(t, err)
	require.Equal(t, userID, profile.UserID)
	require.Equal(t, int64(50), profile.Credits)
}

func TestDetachCustomerKeepsPlan(t *testing.T) {
	f := newProfileFixture(t)
	userID := f.node.Generate()

	_, err := f.svc.GetOrCreate(context.Background(), userID)
	require.NoError(t, err)
	require.NoError(t, f.svc.AttachCustomer(context.Background(), userID, "cus_456"))
	_, err = f.svc.ApplyPlanGrant(context.Background(), domain.ApplyPlanGrantRequest{
		UserID:  userID,
		Plan:    config.PlanPro,
		Credits: 50,
	})
	require.NoError(t, err)

	require.NoError(t, f.svc.DetachCustomer(context.Background(), "cus_456"))

	profile, err := f.repo.FindByUserID(context.Background(), userID)
	require.NoError(t, err)
	require.Equal(t, config.PlanPro, profile.Plan)
	require.Equal(t, int64(50), profile.Credits)
	require.Nil(t, profile.BillingCustomerID)

	err = f.svc.DetachCustomer(context.Background(), "cus_456")
	require.True(t, errors.Is(err, domain.ErrCustomerNotAttached))
}
