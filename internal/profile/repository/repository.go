package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/scyra/scyra/internal/clock"
	"github.com/scyra/scyra/internal/profile/domain"
	"github.com/scyra/scyra/pkg/db"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct {
	db    *gorm.DB
	clock clock.Clock
}

func New(db *gorm.DB, clk clock.Clock) domain.Repository {
	return &repo{db: db, clock: clk}
}

func (r *repo) FindByUserID(ctx context.Context, userID snowflake.ID) (*domain.UserProfile, error) {
	var profile domain.UserProfile
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&profile).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrProfileNotFound
	}
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

func (r *repo) FindByCustomerID(ctx context.Context, customerID string) (*domain.UserProfile, error) {
	customerID = strings.TrimSpace(customerID)
	if customerID == "" {
		return nil, domain.ErrInvalidCustomer
	}

	var profile domain.UserProfile
	err := r.db.WithContext(ctx).Where("billing_customer_id = ?", customerID).First(&profile).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrProfileNotFound
	}
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

func (r *repo) InsertIfAbsent(ctx context.Context, tx *gorm.DB, profile *domain.UserProfile) (bool, error) {
	if tx == nil {
		tx = r.db
	}
	result := tx.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoNothing: true,
		}).
		Create(profile)
	if result.Error != nil {
		if db.IsDuplicateKeyErr(result.Error) {
			return false, nil
		}
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *repo) Debit(ctx context.Context, tx *gorm.DB, userID snowflake.ID, amount int64) error {
	if tx == nil {
		tx = r.db
	}
	result := tx.WithContext(ctx).
		Model(&domain.UserProfile{}).
		Where("user_id = ? AND credits >= ?", userID, amount).
		Updates(map[string]any{
			"credits":    gorm.Expr("credits - ?", amount),
			"updated_at": r.clock.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrInsufficientCredits
	}
	return nil
}

func (r *repo) UpdateGrant(ctx context.Context, tx *gorm.DB, userID snowflake.ID, plan string, credits int64) error {
	if tx == nil {
		tx = r.db
	}
	result := tx.WithContext(ctx).
		Model(&domain.UserProfile{}).
		Where("user_id = ?", userID).
		Updates(map[string]any{
			"plan":               plan,
			"credits":            credits,
			"total_credit_limit": credits,
			"updated_at":         r.clock.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrProfileNotFound
	}
	return nil
}

func (r *repo) SetCustomerID(ctx context.Context, userID snowflake.ID, customerID *string) error {
	result := r.db.WithContext(ctx).
		Model(&domain.UserProfile{}).
		Where("user_id = ?", userID).
		Updates(map[string]any{
			"billing_customer_id": customerID,
			"updated_at":          r.clock.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrProfileNotFound
	}
	return nil
}

func (r *repo) ClearCustomerID(ctx context.Context, customerID string) error {
	customerID = strings.TrimSpace(customerID)
	if customerID == "" {
		return domain.ErrInvalidCustomer
	}
	result := r.db.WithContext(ctx).
		Model(&domain.UserProfile{}).
		Where("billing_customer_id = ?", customerID).
		Updates(map[string]any{
			"billing_customer_id": nil,
			"updated_at":          r.clock.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrCustomerNotAttached
	}
	return nil
}
