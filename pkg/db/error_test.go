package db

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestIsDuplicateKeyErr(t *testing.T) {
	require.False(t, IsDuplicateKeyErr(nil))
	require.False(t, IsDuplicateKeyErr(errors.New("connection refused")))

	require.True(t, IsDuplicateKeyErr(gorm.ErrDuplicatedKey))
	require.True(t, IsDuplicateKeyErr(errors.New(
		`pq: duplicate key value violates unique constraint "ux_billing_events_provider_event"`)))
	require.True(t, IsDuplicateKeyErr(errors.New(
		"Error 1062 (23000): Duplicate entry 'dodo-msg_1' for key 'ux_billing_events_provider_event'")))
	require.True(t, IsDuplicateKeyErr(errors.New(
		"UNIQUE constraint failed: billing_events.provider, billing_events.provider_event_id")))
}
