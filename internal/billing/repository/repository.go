package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/scyra/scyra/internal/billing/domain"
	"github.com/scyra/scyra/pkg/db"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct {
	db *gorm.DB
}

func New(db *gorm.DB) domain.Repository {
	return &repo{db: db}
}

func (r *repo) InsertEvent(ctx context.Context, event *domain.BillingEvent) (bool, error) {
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: "provider"},
				{Name: "provider_event_id"},
			},
			DoNothing: true,
		}).
		Create(event)
	if result.Error != nil {
		// Dialects whose conflict target does not cover the unique
		// index surface the violation as an error instead.
		if db.IsDuplicateKeyErr(result.Error) {
			return false, nil
		}
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *repo) DeleteEvent(ctx context.Context, id snowflake.ID) error {
	return r.db.WithContext(ctx).
		Where("id = ?", id).
		Delete(&domain.BillingEvent{}).Error
}
