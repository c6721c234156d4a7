// Package domain defines the trend request orchestration contract.
package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	researchdomain "github.com/scyra/scyra/internal/research/domain"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var (
	ErrInvalidNiche = errors.New("invalid niche")
	ErrUpstream     = errors.New("upstream dependency failure")
)

// MaxNicheLength bounds the niche input in runes.
const MaxNicheLength = 50

// DefaultHistoryLimit is the page size for request history.
const DefaultHistoryLimit = 20

// TrendRequest is one completed generation. Rows are immutable and
// never deleted.
type TrendRequest struct {
	ID          snowflake.ID   `gorm:"primaryKey" json:"id"`
	UserID      snowflake.ID   `gorm:"column:user_id;not null;index:ix_trend_requests_user_created,priority:1" json:"user_id"`
	Niche       string         `gorm:"type:text;not null" json:"niche"`
	CreditsUsed int64          `gorm:"column:credits_used;not null;default:1" json:"credits_used"`
	Result      datatypes.JSON `gorm:"type:jsonb" json:"result"`
	CreatedAt   time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP;index:ix_trend_requests_user_created,priority:2,sort:desc" json:"created_at"`
}

// TableName sets the database table name.
func (TrendRequest) TableName() string { return "trend_requests" }

// GenerateRequest asks for a trend report.
type GenerateRequest struct {
	UserID snowflake.ID
	Niche  string
}

// HistoryRequest pages a user's past requests, newest first.
type HistoryRequest struct {
	UserID snowflake.ID
	Limit  int
}

// ReportStats is the report's numeric block, with the evidence count
// observed by the pipeline rather than the model's own claim.
type ReportStats struct {
	SourcesAnalyzed  int      `json:"sourcesAnalyzed"`
	TrendingVelocity int      `json:"trendingVelocity"`
	EngagementScore  int      `json:"engagementScore"`
	ContentGaps      int      `json:"contentGaps"`
	Sites            []string `json:"sites"`
	Forums           []string `json:"forums"`
}

// Report is the response returned to the caller.
type Report struct {
	Niche    string                  `json:"niche"`
	Summary  string                  `json:"summary"`
	Themes   []researchdomain.Theme  `json:"themes"`
	Ideas    []researchdomain.Idea   `json:"ideas"`
	Stats    ReportStats             `json:"stats"`
	Insights researchdomain.Insights `json:"insights"`
}

// Service orchestrates trend generation and history.
type Service interface {
	Generate(ctx context.Context, req GenerateRequest) (*Report, error)
	History(ctx context.Context, req HistoryRequest) ([]TrendRequest, error)
}

// Repository persists trend requests.
type Repository interface {
	Insert(ctx context.Context, tx *gorm.DB, request *TrendRequest) error
	ListByUser(ctx context.Context, userID snowflake.ID, limit int) ([]TrendRequest, error)
}
