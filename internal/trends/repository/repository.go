package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/scyra/scyra/internal/trends/domain"
	"gorm.io/gorm"
)

type repo struct {
	db *gorm.DB
}

func New(db *gorm.DB) domain.Repository {
	return &repo{db: db}
}

func (r *repo) Insert(ctx context.Context, tx *gorm.DB, request *domain.TrendRequest) error {
	if tx == nil {
		tx = r.db
	}
	return tx.WithContext(ctx).Create(request).Error
}

func (r *repo) ListByUser(ctx context.Context, userID snowflake.ID, limit int) ([]domain.TrendRequest, error) {
	if limit <= 0 || limit > domain.DefaultHistoryLimit {
		limit = domain.DefaultHistoryLimit
	}

	var requests []domain.TrendRequest
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&requests).Error
	if err != nil {
		return nil, err
	}
	return requests, nil
}
