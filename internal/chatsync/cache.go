// Package chatsync keeps a viewer's loaded history pages consistent
// with the live event stream for one scope: pages stay newest-first
// across page boundaries, no message appears twice, and live pushes
// arriving while a page fetch is in flight are buffered and replayed
// once the fetch settles.
package chatsync

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ikraamdaanis/discourse/internal/domain"
)

// ErrFetchFailed is returned when a page load fails. The cache is left
// unmodified (the has-more flag included) so the caller can retry.
var ErrFetchFailed = errors.New("history fetch failed")

// Fetcher loads one history page for a scope. An empty cursor requests
// the newest page.
type Fetcher interface {
	FetchPage(ctx context.Context, scopeID, cursor string) (*domain.Page, error)
}

// FetcherFunc adapts a function to the Fetcher interface.
type FetcherFunc func(ctx context.Context, scopeID, cursor string) (*domain.Page, error)

func (f FetcherFunc) FetchPage(ctx context.Context, scopeID, cursor string) (*domain.Page, error) {
	return f(ctx, scopeID, cursor)
}

type pendingEvent struct {
	update bool
	msg    domain.Message
}

// Cache holds one viewer's loaded pages for one scope. All mutation is
// serialized behind a single mutex, which is never held across a fetch;
// live events arriving mid-fetch land in a replay buffer instead of
// blocking.
//
// A Cache belongs to a single viewing session and is discarded on
// navigation away; independent viewers of the same scope each hold
// their own.
type Cache struct {
	scopeID string
	fetcher Fetcher

	mu       sync.Mutex
	pages    []domain.Page
	hasMore  bool
	fetching bool
	pending  []pendingEvent
	closed   bool
}

// NewCache creates an empty cache for a scope. The has-more flag starts
// true: until a fetch says otherwise, older history is presumed to
// exist, so a cache synthesized purely from live creates can still load
// backwards.
func NewCache(scopeID string, fetcher Fetcher) *Cache {
	return &Cache{
		scopeID: scopeID,
		hasMore: true,
		fetcher: fetcher,
	}
}

// LoadInitial fetches the newest page and replaces the cache contents
// with it. Live events that arrive during the fetch are replayed on top
// of the fresh page.
func (c *Cache) LoadInitial(ctx context.Context) error {
	c.mu.Lock()
	if c.closed || c.fetching {
		c.mu.Unlock()
		return nil
	}
	c.fetching = true
	c.mu.Unlock()

	page, err := c.fetcher.FetchPage(ctx, c.scopeID, "")

	c.mu.Lock()
	defer c.mu.Unlock()
	c.fetching = false

	if c.closed {
		// Torn down mid-fetch: discard the result.
		c.pending = nil
		return nil
	}
	if err != nil {
		c.replayPendingLocked()
		return fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}

	c.pages = []domain.Page{*page}
	c.hasMore = page.HasMore
	c.replayPendingLocked()
	return nil
}

// LoadMore fetches the next older page and appends it. It is a no-op
// when no older history remains or a load is already in flight, so
// concurrent scroll triggers never issue duplicate fetches.
func (c *Cache) LoadMore(ctx context.Context) error {
	c.mu.Lock()
	if c.closed || c.fetching || !c.hasMore {
		c.mu.Unlock()
		return nil
	}
	cursor := c.oldestCursorLocked()
	c.fetching = true
	c.mu.Unlock()

	page, err := c.fetcher.FetchPage(ctx, c.scopeID, cursor)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.fetching = false

	if c.closed {
		c.pending = nil
		return nil
	}
	if err != nil {
		// has-more is untouched so the user can retry.
		c.replayPendingLocked()
		return fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}

	// Drop fetched items the cache already holds: with no cursor yet
	// (cache seeded purely by live creates), the newest page overlaps
	// whatever has already been pushed.
	items := make([]domain.Message, 0, len(page.Items))
	for _, msg := range page.Items {
		if !c.containsLocked(msg.ID) {
			items = append(items, msg)
		}
	}

	c.pages = append(c.pages, domain.Page{
		Items:      items,
		NextCursor: page.NextCursor,
		HasMore:    page.HasMore,
	})
	c.hasMore = page.HasMore
	c.replayPendingLocked()
	return nil
}

// ApplyCreate inserts a freshly pushed message at the head of the
// newest page. Redelivery is absorbed: a message already present
// anywhere in the cache is a no-op. On an empty cache a single page is
// synthesized, leaving has-more at its prior value.
func (c *Cache) ApplyCreate(msg domain.Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	if c.fetching {
		c.pending = append(c.pending, pendingEvent{msg: msg})
		return
	}
	c.applyCreateLocked(msg)
}

// ApplyUpdate replaces a message in place, preserving its position;
// edits never reorder. A message not yet loaded is ignored: its edited
// form arrives with the page that contains it.
func (c *Cache) ApplyUpdate(msg domain.Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	if c.fetching {
		c.pending = append(c.pending, pendingEvent{update: true, msg: msg})
		return
	}
	c.applyUpdateLocked(msg)
}

// Close tears the cache down. The result of any in-flight fetch is
// discarded and all further operations are no-ops.
func (c *Cache) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.pending = nil
}

// HasMore reports whether older history remains to load.
func (c *Cache) HasMore() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hasMore
}

// Len returns the number of cached messages across all pages.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for i := range c.pages {
		n += len(c.pages[i].Items)
	}
	return n
}

// Messages returns a newest-first snapshot of all cached messages.
func (c *Cache) Messages() []domain.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []domain.Message
	for i := range c.pages {
		out = append(out, c.pages[i].Items...)
	}
	return out
}

// Pages returns a snapshot of the page structure, newest page first.
func (c *Cache) Pages() []domain.Page {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]domain.Page, len(c.pages))
	for i := range c.pages {
		out[i] = domain.Page{
			Items:      append([]domain.Message(nil), c.pages[i].Items...),
			NextCursor: c.pages[i].NextCursor,
			HasMore:    c.pages[i].HasMore,
		}
	}
	return out
}

func (c *Cache) applyCreateLocked(msg domain.Message) {
	if c.containsLocked(msg.ID) {
		return
	}
	if len(c.pages) == 0 {
		c.pages = []domain.Page{{Items: []domain.Message{msg}}}
		return
	}
	head := &c.pages[0]
	head.Items = append([]domain.Message{msg}, head.Items...)
}

func (c *Cache) applyUpdateLocked(msg domain.Message) {
	for pi := range c.pages {
		items := c.pages[pi].Items
		for i := range items {
			if items[i].ID == msg.ID {
				items[i] = msg
				return
			}
		}
	}
}

// replayPendingLocked applies events buffered during an in-flight fetch.
// Creates whose identifiers landed with the fetched page are discarded
// by the idempotency check.
func (c *Cache) replayPendingLocked() {
	for _, ev := range c.pending {
		if ev.update {
			c.applyUpdateLocked(ev.msg)
		} else {
			c.applyCreateLocked(ev.msg)
		}
	}
	c.pending = nil
}

func (c *Cache) containsLocked(id string) bool {
	for pi := range c.pages {
		for i := range c.pages[pi].Items {
			if c.pages[pi].Items[i].ID == id {
				return true
			}
		}
	}
	return false
}

// oldestCursorLocked picks the cursor for the next older page: the last
// page's outgoing cursor if it has one, otherwise the id of the oldest
// cached message (covers pages synthesized from live creates).
func (c *Cache) oldestCursorLocked() string {
	if n := len(c.pages); n > 0 {
		if cur := c.pages[n-1].NextCursor; cur != "" {
			return cur
		}
		for i := n - 1; i >= 0; i-- {
			if items := c.pages[i].Items; len(items) > 0 {
				return items[len(items)-1].ID
			}
		}
	}
	return ""
}
