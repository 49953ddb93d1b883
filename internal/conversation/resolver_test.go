package conversation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/ikraamdaanis/discourse/internal/domain"
	"github.com/ikraamdaanis/discourse/internal/repository"
)

func testRepo(t *testing.T) repository.ConversationRepository {
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
	require.NoError(t, db.AutoMigrate(&domain.ConversationModel{}))
	return repository.NewGormConversationRepository(db)
}

func TestResolverResolve(t *testing.T) {
	ctx := context.Background()

	t.Run("creates the conversation on first contact", func(t *testing.T) {
		r := NewResolver(testRepo(t))

		conv, err := r.Resolve(ctx, "alice", "bob")
		require.NoError(t, err)

		assert.NotEmpty(t, conv.ID)
		assert.Equal(t, "alice", conv.MemberOneID)
		assert.Equal(t, "bob", conv.MemberTwoID)
	})

	t.Run("repeat calls return the same row", func(t *testing.T) {
		r := NewResolver(testRepo(t))

		first, err := r.Resolve(ctx, "alice", "bob")
		require.NoError(t, err)

		second, err := r.Resolve(ctx, "alice", "bob")
		require.NoError(t, err)
		assert.Equal(t, first.ID, second.ID)
	})

	t.Run("argument order does not matter", func(t *testing.T) {
		r := NewResolver(testRepo(t))

		ab, err := r.Resolve(ctx, "alice", "bob")
		require.NoError(t, err)

		ba, err := r.Resolve(ctx, "bob", "alice")
		require.NoError(t, err)
		assert.Equal(t, ab.ID, ba.ID)
	})

	t.Run("concurrent resolves collapse onto one row", func(t *testing.T) {
		r := NewResolver(testRepo(t))

		const n = 8
		results := make([]*domain.Conversation, n)
		errs := make([]error, n)
		var wg sync.WaitGroup
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				a, b := "alice", "bob"
				if i%2 == 1 {
					a, b = b, a
				}
				results[i], errs[i] = r.Resolve(ctx, a, b)
			}(i)
		}
		wg.Wait()

		for i := 0; i < n; i++ {
			require.NoError(t, errs[i])
			assert.Equal(t, results[0].ID, results[i].ID)
		}
	})
}

// raceRepo forces the "lost the creation race" path: the first find
// misses, the create reports an existing pair, and the re-read sees the
// row the winner inserted.
type raceRepo struct {
	mu      sync.Mutex
	winner  *domain.Conversation
	created bool
	broken  bool // re-read misses too
}

func (r *raceRepo) GetByID(ctx context.Context, id string) (*domain.Conversation, error) {
	return nil, repository.ErrConversationNotFound
}

func (r *raceRepo) FindByMembers(ctx context.Context, memberOneID, memberTwoID string) (*domain.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.created || r.broken {
		return nil, repository.ErrConversationNotFound
	}
	if r.winner.MemberOneID == memberOneID && r.winner.MemberTwoID == memberTwoID {
		return r.winner, nil
	}
	return nil, repository.ErrConversationNotFound
}

func (r *raceRepo) Create(ctx context.Context, memberOneID, memberTwoID string) (*domain.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	// The racing participant's insert landed between the find and this
	// create.
	r.winner = &domain.Conversation{
		ID:          uuid.New().String(),
		MemberOneID: memberTwoID,
		MemberTwoID: memberOneID,
	}
	r.created = true
	return nil, repository.ErrConversationExists
}

func TestResolverLosesCreationRace(t *testing.T) {
	t.Run("re-reads the winner's row", func(t *testing.T) {
		repo := &raceRepo{}
		r := NewResolver(repo)

		conv, err := r.Resolve(context.Background(), "alice", "bob")
		require.NoError(t, err)
		assert.Equal(t, repo.winner.ID, conv.ID)
	})

	t.Run("surfaces an unresolvable conflict", func(t *testing.T) {
		repo := &raceRepo{broken: true}
		r := NewResolver(repo)

		_, err := r.Resolve(context.Background(), "alice", "bob")
		assert.ErrorIs(t, err, ErrConflictUnresolved)
	})
}

func TestResolverPropagatesStoreErrors(t *testing.T) {
	repo := &failingRepo{err: errors.New("store down")}
	r := NewResolver(repo)

	_, err := r.Resolve(context.Background(), "alice", "bob")
	assert.ErrorContains(t, err, "store down")
}

type failingRepo struct {
	err error
}

func (r *failingRepo) GetByID(ctx context.Context, id string) (*domain.Conversation, error) {
	return nil, r.err
}

func (r *failingRepo) FindByMembers(ctx context.Context, memberOneID, memberTwoID string) (*domain.Conversation, error) {
	return nil, r.err
}

func (r *failingRepo) Create(ctx context.Context, memberOneID, memberTwoID string) (*domain.Conversation, error) {
	return nil, r.err
}
