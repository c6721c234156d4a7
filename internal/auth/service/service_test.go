package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/scyra/scyra/internal/auth/domain"
	"github.com/scyra/scyra/internal/auth/repository"
	"github.com/scyra/scyra/internal/clock"
	"github.com/scyra/scyra/pkg/db"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestAuthenticateValidSession(t *testing.T) {
	conn, err := db.NewTest()
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&domain.User{}, &domain.Session{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	clk := clock.NewFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	svc := New(zap.NewNop(), repository.New(conn), clk)

	user := domain.User{ID: node.Generate(), Email: "alice@example.com", Name: "Alice"}
	require.NoError(t, conn.Create(&user).Error)
	require.NoError(t, conn.Create(&domain.Session{
		ID:               node.Generate(),
		UserID:           user.ID,
		SessionTokenHash: hashToken("raw-token"),
		ExpiresAt:        clk.Now().Add(24 * time.Hour),
		CreatedAt:        clk.Now(),
		LastSeenAt:       clk.Now(),
	}).Error)

	got, err := svc.Authenticate(context.Background(), "raw-token")
	require.NoError(t, err)
	require.Equal(t, user.ID, got.ID)
	require.Equal(t, "alice@example.com", got.Email)
}

func TestAuthenticateExpiredSession(t *testing.T) {
	conn, err := db.NewTest()
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&domain.User{}, &domain.Session{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	clk := clock.NewFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	svc := New(zap.NewNop(), repository.New(conn), clk)

	user := domain.User{ID: node.Generate(), Email: "bob@example.com"}
	require.NoError(t, conn.Create(&user).Error)
	require.NoError(t, conn.Create(&domain.Session{
		ID:               node.Generate(),
		UserID:           user.ID,
		SessionTokenHash: hashToken("stale-token"),
		ExpiresAt:        clk.Now().Add(time.Hour),
		CreatedAt:        clk.Now(),
		LastSeenAt:       clk.Now(),
	}).Error)

	clk.Advance(2 * time.Hour)

	_, err = svc.Authenticate(context.Background(), "stale-token")
	require.True(t, errors.Is(err, domain.ErrSessionExpired))
}

func TestAuthenticateRevokedSession(t *testing.T) {
	conn, err := db.NewTest()
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&domain.User{}, &domain.Session{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	clk := clock.NewFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	svc := New(zap.NewNop(), repository.New(conn), clk)

	user := domain.User{ID: node.Generate(), Email: "carol@example.com"}
	require.NoError(t, conn.Create(&user).Error)
	revokedAt := clk.Now().Add(-time.Minute)
	require.NoError(t, conn.Create(&domain.Session{
		ID:               node.Generate(),
		UserID:           user.ID,
		SessionTokenHash: hashToken("revoked-token"),
		ExpiresAt:        clk.Now().Add(time.Hour),
		RevokedAt:        &revokedAt,
		CreatedAt:        clk.Now(),
		LastSeenAt:       clk.Now(),
	}).Error)

	_, err = svc.Authenticate(context.Background(), "revoked-token")
	require.True(t, errors.Is(err, domain.ErrSessionRevoked))
}

func TestAuthenticateUnknownToken(t *testing.T) {
	conn, err := db.NewTest()
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&domain.User{}, &domain.Session{}))

	clk := clock.NewFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	svc := New(zap.NewNop(), repository.New(conn), clk)

	_, err = svc.Authenticate(context.Background(), "no-such-token")
	require.True(t, errors.Is(err, domain.ErrInvalidSession))

	_, err = svc.Authenticate(context.Background(), "   ")
	require.True(t, errors.Is(err, domain.ErrInvalidSession))
}
