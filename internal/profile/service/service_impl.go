package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/scyra/scyra/internal/clock"
	"github.com/scyra/scyra/internal/config"
	ledgerdomain "github.com/scyra/scyra/internal/ledger/domain"
	obsmetrics "github.com/scyra/scyra/internal/observability/metrics"
	"github.com/scyra/scyra/internal/profile/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Clock      clock.Clock
	Repo       domain.Repository
	Ledger     ledgerdomain.Service
	Plans      *config.PlanConfigHolder
	ObsMetrics *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	clock      clock.Clock
	repo       domain.Repository
	ledger     ledgerdomain.Service
	plans      *config.PlanConfigHolder
	obsMetrics *obsmetrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("profile.service"),
		genID:      p.GenID,
		clock:      p.Clock,
		repo:       p.Repo,
		ledger:     p.Ledger,
		plans:      p.Plans,
		obsMetrics: p.ObsMetrics,
	}
}

func (s *Service) GetOrCreate(ctx context.Context, userID snowflake.ID) (*domain.UserProfile, error) {
	if userID == 0 {
		return nil, domain.ErrInvalidUser
	}

	profile, err := s.repo.FindByUserID(ctx, userID)
	if err == nil {
		return profile, nil
	}
	if !errors.Is(err, domain.ErrProfileNotFound) {
		return nil, err
	}

	grant := s.plans.Get().SignupGrant
	now := s.clock.Now()
	candidate := domain.UserProfile{
		ID:               s.genID.Generate(),
		UserID:           userID,
		Plan:             grant.Plan,
		Credits:          grant.Credits,
		TotalCreditLimit: grant.Credits,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		inserted, err := s.repo.InsertIfAbsent(ctx, tx, &candidate)
		if err != nil {
			return err
		}
		if !inserted {
			// Lost a concurrent creation race; the winner wrote the grant.
			return nil
		}
		if grant.Credits > 0 {
			return s.ledger.Record(ctx, tx, ledgerdomain.Entry{
				UserID: userID,
				Amount: grant.Credits,
				Type:   ledgerdomain.EntryTypeCredit,
				Reason: "Initial signup grant",
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.repo.FindByUserID(ctx, userID)
}

func (s *Service) ApplyPlanGrant(ctx context.Context, req domain.ApplyPlanGrantRequest) (*domain.UserProfile, error) {
	if req.Credits <= 0 {
		return nil, domain.ErrInvalidGrant
	}
	switch req.Plan {
	case config.PlanFree, config.PlanPro:
	default:
		return nil, domain.ErrInvalidPlan
	}

	profile, err := s.resolve(ctx, req)
	if err != nil {
		return nil, err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.UpdateGrant(ctx, tx, profile.UserID, req.Plan, req.Credits); err != nil {
			return err
		}
		return s.ledger.Record(ctx, tx, ledgerdomain.Entry{
			UserID: profile.UserID,
			Amount: req.Credits,
			Type:   ledgerdomain.EntryTypeCredit,
			Reason: fmt.Sprintf("Plan grant: %s", req.Plan),
		})
	})
	if err != nil {
		return nil, err
	}

	if s.obsMetrics != nil {
		s.obsMetrics.RecordPlanGrant(ctx, req.Plan)
	}
	s.log.Info("plan grant applied",
		zap.String("user_id", profile.UserID.String()),
		zap.String("plan", req.Plan),
		zap.Int64("credits", req.Credits),
	)

	return s.repo.FindByUserID(ctx, profile.UserID)
}

func (s *Service) AttachCustomer(ctx context.Context, userID snowflake.ID, customerID string) error {
	customerID = strings.TrimSpace(customerID)
	if customerID == "" {
		return domain.ErrInvalidCustomer
	}
	if userID == 0 {
		return domain.ErrInvalidUser
	}
	return s.repo.SetCustomerID(ctx, userID, &customerID)
}

func (s *Service) DetachCustomer(ctx context.Context, customerID string) error {
	return s.repo.ClearCustomerID(ctx, customerID)
}

// resolve finds the target profile for a grant, by user id when present,
// otherwise by the attached billing customer id.
func (s *Service) resolve(ctx context.Context, req domain.ApplyPlanGrantRequest) (*domain.UserProfile, error) {
	if req.UserID != 0 {
		return s.GetOrCreate(ctx, req.UserID)
	}
	if strings.TrimSpace(req.CustomerID) != "" {
		return s.repo.FindByCustomerID(ctx, req.CustomerID)
	}
	return nil, domain.ErrInvalidUser
}
