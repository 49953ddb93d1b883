package service

import (
	"context"
	"sync"
	"time"

	"github.com/ikraamdaanis/discourse/internal/cache"
	"github.com/ikraamdaanis/discourse/internal/domain"
	"github.com/ikraamdaanis/discourse/internal/pubsub"
	"github.com/ikraamdaanis/discourse/internal/repository"
)

// fakeMessageRepo is an in-memory MessageRepository. Messages are kept
// newest-first per scope, the order ListPage serves them.
type fakeMessageRepo struct {
	mu       sync.Mutex
	byScope  map[string][]domain.Message
	listErr  error
	listCnt  int
	writeErr error
}

func newFakeMessageRepo() *fakeMessageRepo {
	return &fakeMessageRepo{byScope: map[string][]domain.Message{}}
}

func (f *fakeMessageRepo) seed(scopeID string, msgs ...domain.Message) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.byScope[scopeID] = append(msgs, f.byScope[scopeID]...)
}

func (f *fakeMessageRepo) listCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.listCnt
}

func (f *fakeMessageRepo) ListPage(ctx context.Context, scopeID, cursor string, limit int) ([]domain.Message, string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCnt++
	if f.listErr != nil {
		return nil, "", false, f.listErr
	}

	msgs := f.byScope[scopeID]
	start := 0
	if cursor != "" {
		start = -1
		for i, m := range msgs {
			if m.ID == cursor {
				start = i + 1
				break
			}
		}
		if start < 0 {
			return nil, "", false, repository.ErrInvalidCursor
		}
	}

	end := start + limit
	if end > len(msgs) {
		end = len(msgs)
	}
	page := append([]domain.Message(nil), msgs[start:end]...)

	hasMore := end < len(msgs)
	var next string
	if hasMore && len(page) > 0 {
		next = page[len(page)-1].ID
	}
	return page, next, hasMore, nil
}

func (f *fakeMessageRepo) GetByID(ctx context.Context, id string) (*domain.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, msgs := range f.byScope {
		for _, m := range msgs {
			if m.ID == id {
				out := m
				return &out, nil
			}
		}
	}
	return nil, repository.ErrMessageNotFound
}

func (f *fakeMessageRepo) Create(ctx context.Context, msg *domain.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return f.writeErr
	}
	now := time.Now().UTC()
	msg.CreatedAt = now
	msg.UpdatedAt = now
	f.byScope[msg.ScopeID] = append([]domain.Message{*msg}, f.byScope[msg.ScopeID]...)
	return nil
}

func (f *fakeMessageRepo) UpdateContent(ctx context.Context, id, content string) (*domain.Message, error) {
	return f.mutate(id, func(m *domain.Message) {
		m.Content = content
		m.UpdatedAt = time.Now().UTC()
	})
}

func (f *fakeMessageRepo) SoftDelete(ctx context.Context, id string) (*domain.Message, error) {
	return f.mutate(id, func(m *domain.Message) {
		m.Content = ""
		m.FileURL = ""
		m.Deleted = true
		m.UpdatedAt = time.Now().UTC()
	})
}

func (f *fakeMessageRepo) mutate(id string, fn func(*domain.Message)) (*domain.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return nil, f.writeErr
	}
	for scope, msgs := range f.byScope {
		for i := range msgs {
			if msgs[i].ID == id {
				fn(&msgs[i])
				f.byScope[scope] = msgs
				out := msgs[i]
				return &out, nil
			}
		}
	}
	return nil, repository.ErrMessageNotFound
}

// fakeConversationRepo holds conversations by id.
type fakeConversationRepo struct {
	mu    sync.Mutex
	convs map[string]domain.Conversation
}

func newFakeConversationRepo() *fakeConversationRepo {
	return &fakeConversationRepo{convs: map[string]domain.Conversation{}}
}

func (f *fakeConversationRepo) seed(conv domain.Conversation) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.convs[conv.ID] = conv
}

func (f *fakeConversationRepo) GetByID(ctx context.Context, id string) (*domain.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	conv, ok := f.convs[id]
	if !ok {
		return nil, repository.ErrConversationNotFound
	}
	return &conv, nil
}

func (f *fakeConversationRepo) FindByMembers(ctx context.Context, memberOneID, memberTwoID string) (*domain.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, conv := range f.convs {
		if conv.MemberOneID == memberOneID && conv.MemberTwoID == memberTwoID {
			out := conv
			return &out, nil
		}
	}
	return nil, repository.ErrConversationNotFound
}

func (f *fakeConversationRepo) Create(ctx context.Context, memberOneID, memberTwoID string) (*domain.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, conv := range f.convs {
		if repository.PairKey(conv.MemberOneID, conv.MemberTwoID) == repository.PairKey(memberOneID, memberTwoID) {
			return nil, repository.ErrConversationExists
		}
	}
	conv := domain.Conversation{
		ID:          "conv-" + repository.PairKey(memberOneID, memberTwoID),
		MemberOneID: memberOneID,
		MemberTwoID: memberTwoID,
		CreatedAt:   time.Now().UTC(),
	}
	f.convs[conv.ID] = conv
	return &conv, nil
}

// fakeChannelRepo answers existence from a set.
type fakeChannelRepo struct {
	mu  sync.Mutex
	ids map[string]bool
}

func newFakeChannelRepo(ids ...string) *fakeChannelRepo {
	f := &fakeChannelRepo{ids: map[string]bool{}}
	for _, id := range ids {
		f.ids[id] = true
	}
	return f
}

func (f *fakeChannelRepo) Exists(ctx context.Context, id string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ids[id], nil
}

func (f *fakeChannelRepo) Create(ctx context.Context, id, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ids[id] = true
	return nil
}

// fakePageCache is an in-memory PageCache recording hits and sets.
type fakePageCache struct {
	mu    sync.Mutex
	pages map[string]*domain.Page
	sets  chan string
}

func newFakePageCache() *fakePageCache {
	return &fakePageCache{
		pages: map[string]*domain.Page{},
		sets:  make(chan string, 16),
	}
}

func (f *fakePageCache) Get(ctx context.Context, key string) (*domain.Page, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	page, ok := f.pages[key]
	if !ok {
		return nil, cache.ErrCacheMiss
	}
	return page, nil
}

func (f *fakePageCache) Set(ctx context.Context, key string, page *domain.Page, ttl time.Duration) error {
	f.mu.Lock()
	f.pages[key] = page
	f.mu.Unlock()
	select {
	case f.sets <- key:
	default:
	}
	return nil
}

func (f *fakePageCache) BuildKey(scopeID, cursor string, limit int) string {
	return scopeID + ":" + cursor
}

func (f *fakePageCache) Close() error { return nil }

// capturingPublisher records published events.
type capturingPublisher struct {
	mu     sync.Mutex
	events []*pubsub.Event
	topics []string
	err    error
}

func (p *capturingPublisher) Publish(ctx context.Context, topic string, event *pubsub.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, event)
	p.topics = append(p.topics, topic)
	return nil
}

func (p *capturingPublisher) published() []*pubsub.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*pubsub.Event(nil), p.events...)
}
