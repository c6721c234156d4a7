package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/scyra/scyra/internal/clock"
	ledgerdomain "github.com/scyra/scyra/internal/ledger/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const defaultListLimit = 50

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
}

func NewService(p Params) ledgerdomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("ledger.service"),
		genID: p.GenID,
		clock: p.Clock,
	}
}

func (s *Service) Record(ctx context.Context, tx *gorm.DB, entry ledgerdomain.Entry) error {
	if entry.UserID == 0 {
		return ledgerdomain.ErrInvalidUser
	}
	if entry.Amount == 0 {
		return ledgerdomain.ErrInvalidAmount
	}

	entryType, err := normalizeType(entry.Type)
	if err != nil {
		return err
	}
	// Direction and sign must agree.
	if entryType == ledgerdomain.EntryTypeCredit && entry.Amount < 0 {
		return ledgerdomain.ErrInvalidAmount
	}
	if entryType == ledgerdomain.EntryTypeDebit && entry.Amount > 0 {
		return ledgerdomain.ErrInvalidAmount
	}

	if tx == nil {
		tx = s.db
	}

	record := ledgerdomain.CreditTransaction{
		ID:        s.genID.Generate(),
		UserID:    entry.UserID,
		Amount:    entry.Amount,
		Type:      entryType,
		Reason:    strings.TrimSpace(entry.Reason),
		CreatedAt: s.clock.Now(),
	}
	return tx.WithContext(ctx).Create(&record).Error
}

func (s *Service) ListByUser(ctx context.Context, userID snowflake.ID, limit int) ([]ledgerdomain.CreditTransaction, error) {
	if userID == 0 {
		return nil, ledgerdomain.ErrInvalidUser
	}
	if limit <= 0 || limit > defaultListLimit {
		limit = defaultListLimit
	}

	var entries []ledgerdomain.CreditTransaction
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func normalizeType(entryType ledgerdomain.EntryType) (ledgerdomain.EntryType, error) {
	switch ledgerdomain.EntryType(strings.ToLower(strings.TrimSpace(string(entryType)))) {
	case ledgerdomain.EntryTypeCredit:
		return ledgerdomain.EntryTypeCredit, nil
	case ledgerdomain.EntryTypeDebit:
		return ledgerdomain.EntryTypeDebit, nil
	default:
		return "", ledgerdomain.ErrInvalidType
	}
}
