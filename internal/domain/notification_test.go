package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewNotification(t *testing.T) {
	t.Parallel()

	n, err := NewNotification("backup reminder", true, nil)
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, n.ID)
	assert.True(t, n.IsGlobal)
	assert.False(t, n.Deleted)
	assert.False(t, n.IsRecurring())

	_, err = NewNotification("   ", true, nil)
	assert.ErrorIs(t, err, ErrNotificationTitleEmpty)

	_, err = NewNotification("targeted but empty", false, nil)
	assert.ErrorIs(t, err, ErrNotificationNoTargets)

	n, err = NewNotification("targeted", false, []uuid.UUID{uuid.New()})
	require.NoError(t, err)
	assert.Len(t, n.TargetUserIDs, 1)
}

func TestNotificationIsExpired(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, time.April, 15, 12, 0, 0, 0, time.UTC)

	n := &Notification{}
	assert.False(t, n.IsExpired(now), "nil ExpiresAt never expires")

	past := now.Add(-time.Minute)
	n.ExpiresAt = &past
	assert.True(t, n.IsExpired(now))

	exact := now
	n.ExpiresAt = &exact
	assert.True(t, n.IsExpired(now), "expiry boundary counts as expired")

	future := now.Add(time.Minute)
	n.ExpiresAt = &future
	assert.False(t, n.IsExpired(now))
}

func TestActionItemIsActionable(t *testing.T) {
	t.Parallel()

	assert.True(t, ActionItem{Description: "water plants"}.IsActionable())
	assert.False(t, ActionItem{}.IsActionable())
	assert.False(t, ActionItem{Description: "  \t "}.IsActionable())
	assert.False(t, ActionItem{Category: "chores"}.IsActionable())
}
