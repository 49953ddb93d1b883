package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/ikraamdaanis/discourse/internal/domain"
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	// A uniquely named shared-cache memory database: every pooled
	// connection must see the same tables.
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.New().String())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(
		&domain.MessageModel{},
		&domain.ConversationModel{},
		&domain.ChannelModel{},
	))
	return db
}

// seedMessages inserts n rows into the scope with strictly increasing
// timestamps, ids m1..mn, m1 oldest.
func seedMessages(t *testing.T, db *gorm.DB, scopeID string, n int) {
	t.Helper()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	for i := 1; i <= n; i++ {
		row := domain.MessageModel{
			ID:        fmt.Sprintf("m%d", i),
			ScopeID:   scopeID,
			MemberID:  "member-1",
			Content:   fmt.Sprintf("message %d", i),
			CreatedAt: base.Add(time.Duration(i) * time.Second),
			UpdatedAt: base.Add(time.Duration(i) * time.Second),
		}
		require.NoError(t, db.Create(&row).Error)
	}
}

func pageIDs(msgs []domain.Message) []string {
	out := make([]string, len(msgs))
	for i, m := range msgs {
		out[i] = m.ID
	}
	return out
}

func TestGormMessageRepositoryListPage(t *testing.T) {
	ctx := context.Background()

	t.Run("first page is the newest messages", func(t *testing.T) {
		db := testDB(t)
		repo := NewGormMessageRepository(db)
		seedMessages(t, db, "scope-1", 5)

		msgs, cursor, hasMore, err := repo.ListPage(ctx, "scope-1", "", 3)
		require.NoError(t, err)

		assert.Equal(t, []string{"m5", "m4", "m3"}, pageIDs(msgs))
		assert.Equal(t, "m3", cursor)
		assert.True(t, hasMore)
	})

	t.Run("cursor pages walk backwards without overlap", func(t *testing.T) {
		db := testDB(t)
		repo := NewGormMessageRepository(db)
		seedMessages(t, db, "scope-1", 7)

		var all []string
		cursor := ""
		for {
			msgs, next, hasMore, err := repo.ListPage(ctx, "scope-1", cursor, 3)
			require.NoError(t, err)
			all = append(all, pageIDs(msgs)...)
			if !hasMore {
				break
			}
			cursor = next
		}

		assert.Equal(t, []string{"m7", "m6", "m5", "m4", "m3", "m2", "m1"}, all)
	})

	t.Run("exact fit reports no more history", func(t *testing.T) {
		db := testDB(t)
		repo := NewGormMessageRepository(db)
		seedMessages(t, db, "scope-1", 3)

		msgs, cursor, hasMore, err := repo.ListPage(ctx, "scope-1", "", 3)
		require.NoError(t, err)

		assert.Len(t, msgs, 3)
		assert.Empty(t, cursor)
		assert.False(t, hasMore)
	})

	t.Run("equal timestamps are ordered by id descending", func(t *testing.T) {
		db := testDB(t)
		repo := NewGormMessageRepository(db)

		at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
		for _, id := range []string{"a", "b", "c"} {
			row := domain.MessageModel{
				ID: id, ScopeID: "scope-1", MemberID: "member-1",
				CreatedAt: at, UpdatedAt: at,
			}
			require.NoError(t, db.Create(&row).Error)
		}

		msgs, _, _, err := repo.ListPage(ctx, "scope-1", "", 2)
		require.NoError(t, err)
		assert.Equal(t, []string{"c", "b"}, pageIDs(msgs))

		msgs, _, hasMore, err := repo.ListPage(ctx, "scope-1", "b", 2)
		require.NoError(t, err)
		assert.Equal(t, []string{"a"}, pageIDs(msgs))
		assert.False(t, hasMore)
	})

	t.Run("scopes are isolated", func(t *testing.T) {
		db := testDB(t)
		repo := NewGormMessageRepository(db)
		seedMessages(t, db, "scope-1", 2)
		seedMessages(t, db, "scope-2", 0)

		msgs, _, _, err := repo.ListPage(ctx, "scope-2", "", 10)
		require.NoError(t, err)
		assert.Empty(t, msgs)
	})

	t.Run("unknown cursor is rejected", func(t *testing.T) {
		db := testDB(t)
		repo := NewGormMessageRepository(db)
		seedMessages(t, db, "scope-1", 2)

		_, _, _, err := repo.ListPage(ctx, "scope-1", "nope", 10)
		assert.ErrorIs(t, err, ErrInvalidCursor)
	})

	t.Run("cursor from another scope is rejected", func(t *testing.T) {
		db := testDB(t)
		repo := NewGormMessageRepository(db)
		seedMessages(t, db, "scope-1", 2)
		// seedMessages always uses ids m1..mn, which would collide with
		// scope-1's rows on the global primary key; insert scope-2's row
		// with a distinct id directly.
		at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
		other := domain.MessageModel{
			ID: "other-1", ScopeID: "scope-2", MemberID: "member-1",
			Content: "other message", CreatedAt: at, UpdatedAt: at,
		}
		require.NoError(t, db.Create(&other).Error)

		_, _, _, err := repo.ListPage(ctx, "scope-2", "m2", 10)
		assert.ErrorIs(t, err, ErrInvalidCursor)
	})

	t.Run("tombstones keep their slot in the page", func(t *testing.T) {
		db := testDB(t)
		repo := NewGormMessageRepository(db)
		seedMessages(t, db, "scope-1", 3)

		_, err := repo.SoftDelete(ctx, "m2")
		require.NoError(t, err)

		msgs, _, _, err := repo.ListPage(ctx, "scope-1", "", 10)
		require.NoError(t, err)

		assert.Equal(t, []string{"m3", "m2", "m1"}, pageIDs(msgs))
		assert.True(t, msgs[1].Deleted)
		assert.Empty(t, msgs[1].Content)
	})
}

func TestGormMessageRepositoryWrites(t *testing.T) {
	ctx := context.Background()

	t.Run("create stamps both timestamps with the same instant", func(t *testing.T) {
		db := testDB(t)
		repo := NewGormMessageRepository(db)

		msg := &domain.Message{ID: "m1", ScopeID: "scope-1", MemberID: "member-1", Content: "hi"}
		require.NoError(t, repo.Create(ctx, msg))

		assert.False(t, msg.CreatedAt.IsZero())
		assert.Equal(t, msg.CreatedAt, msg.UpdatedAt)

		got, err := repo.GetByID(ctx, "m1")
		require.NoError(t, err)
		assert.Equal(t, "hi", got.Content)
		assert.False(t, got.Deleted)
	})

	t.Run("edit bumps last-modified and keeps creation time", func(t *testing.T) {
		db := testDB(t)
		repo := NewGormMessageRepository(db)
		seedMessages(t, db, "scope-1", 1)

		before, err := repo.GetByID(ctx, "m1")
		require.NoError(t, err)

		got, err := repo.UpdateContent(ctx, "m1", "edited")
		require.NoError(t, err)

		assert.Equal(t, "edited", got.Content)
		assert.True(t, before.CreatedAt.Equal(got.CreatedAt), "edit must not touch creation time")
		assert.True(t, got.UpdatedAt.After(got.CreatedAt))
	})

	t.Run("soft delete leaves a cleared tombstone", func(t *testing.T) {
		db := testDB(t)
		repo := NewGormMessageRepository(db)

		msg := &domain.Message{ID: "m1", ScopeID: "scope-1", MemberID: "member-1", Content: "hi", FileURL: "https://files/x.png"}
		require.NoError(t, repo.Create(ctx, msg))

		got, err := repo.SoftDelete(ctx, "m1")
		require.NoError(t, err)

		assert.True(t, got.Deleted)
		assert.Empty(t, got.Content)
		assert.Empty(t, got.FileURL)
		assert.True(t, msg.CreatedAt.Equal(got.CreatedAt))
	})

	t.Run("modifying a missing message fails", func(t *testing.T) {
		db := testDB(t)
		repo := NewGormMessageRepository(db)

		_, err := repo.UpdateContent(ctx, "nope", "x")
		assert.ErrorIs(t, err, ErrMessageNotFound)

		_, err = repo.SoftDelete(ctx, "nope")
		assert.ErrorIs(t, err, ErrMessageNotFound)

		_, err = repo.GetByID(ctx, "nope")
		assert.ErrorIs(t, err, ErrMessageNotFound)
	})
}
