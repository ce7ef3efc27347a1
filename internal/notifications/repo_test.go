package notifications

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/gatepass/gatepass-backend/pkg/db/models"
	"github.com/gatepass/gatepass-backend/pkg/enums"
)

func setupNotificationsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := "file:notifications_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	schema := `
CREATE TABLE IF NOT EXISTS notifications (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  order_id TEXT NOT NULL,
  type TEXT NOT NULL,
  title TEXT NOT NULL,
  message TEXT NOT NULL,
  link TEXT,
  read_at DATETIME,
  created_at DATETIME
);`
	require.NoError(t, db.Exec(schema).Error)
	return db
}

func insertNotification(t *testing.T, repo Repository, userID uuid.UUID, createdAt time.Time) *models.Notification {
	t.Helper()
	notification := &models.Notification{
		ID:        uuid.New(),
		UserID:    userID,
		OrderID:   uuid.New(),
		Type:      enums.NotificationTypeOrder,
		Title:     "Order confirmed",
		Message:   "Your order is confirmed.",
		CreatedAt: createdAt,
	}
	require.NoError(t, repo.Create(context.Background(), notification))
	return notification
}

func TestNotificationsRepoListByUserPaginates(t *testing.T) {
	db := setupNotificationsTestDB(t)
	repo := NewRepository(db)
	userID := uuid.New()

	base := time.Now().UTC().Truncate(time.Second)
	for i := 0; i < 3; i++ {
		insertNotification(t, repo, userID, base.Add(time.Duration(i)*time.Minute))
	}
	insertNotification(t, repo, uuid.New(), base)

	first, cursor, err := repo.ListByUser(context.Background(), ListParams{UserID: userID, Limit: 2})
	require.NoError(t, err)
	require.Len(t, first, 2)
	require.NotNil(t, cursor)
	assert.True(t, first[0].CreatedAt.After(first[1].CreatedAt))

	second, next, err := repo.ListByUser(context.Background(), ListParams{UserID: userID, Limit: 2, Cursor: cursor})
	require.NoError(t, err)
	require.Len(t, second, 1)
	assert.Nil(t, next)
	for _, n := range append(first, second...) {
		assert.Equal(t, userID, n.UserID)
	}
}

func TestNotificationsRepoListByUserUnreadOnly(t *testing.T) {
	db := setupNotificationsTestDB(t)
	repo := NewRepository(db)
	userID := uuid.New()

	read := insertNotification(t, repo, userID, time.Now().UTC())
	unread := insertNotification(t, repo, userID, time.Now().UTC().Add(time.Minute))

	updated, err := repo.MarkRead(context.Background(), userID, read.ID, time.Now().UTC())
	require.NoError(t, err)
	require.True(t, updated)

	rows, _, err := repo.ListByUser(context.Background(), ListParams{UserID: userID, UnreadOnly: true})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, unread.ID, rows[0].ID)
}

func TestNotificationsRepoMarkReadIsIdempotent(t *testing.T) {
	db := setupNotificationsTestDB(t)
	repo := NewRepository(db)
	userID := uuid.New()
	notification := insertNotification(t, repo, userID, time.Now().UTC())

	updated, err := repo.MarkRead(context.Background(), userID, notification.ID, time.Now().UTC())
	require.NoError(t, err)
	assert.True(t, updated)

	again, err := repo.MarkRead(context.Background(), userID, notification.ID, time.Now().UTC())
	require.NoError(t, err)
	assert.False(t, again)

	other, err := repo.MarkRead(context.Background(), uuid.New(), notification.ID, time.Now().UTC())
	require.NoError(t, err)
	assert.False(t, other)
}
