// Package conversation resolves direct-message conversations to exactly
// one canonical row per unordered participant pair, creating the row
// lazily on first contact.
package conversation

import (
	"context"
	"errors"
	"fmt"

	"github.com/ikraamdaanis/discourse/internal/domain"
	"github.com/ikraamdaanis/discourse/internal/repository"
	"github.com/ikraamdaanis/discourse/pkg/log"
)

// ErrConflictUnresolved is returned when, after losing the creation race
// and retrying the lookup, no conversation row can be found or created.
// That points at a persistence-layer problem rather than a legitimate
// race, so it is surfaced instead of defaulted.
var ErrConflictUnresolved = errors.New("conversation conflict unresolved")

// Resolver returns the single canonical conversation for two members.
type Resolver struct {
	repo repository.ConversationRepository
}

// NewResolver creates a conversation resolver.
func NewResolver(repo repository.ConversationRepository) *Resolver {
	return &Resolver{repo: repo}
}

// Resolve returns the conversation between the two members, creating it
// if absent. Resolve(a, b) and Resolve(b, a) return the identical row.
//
// Two concurrent calls from both participants can both observe "absent"
// and both attempt creation; the pair-key unique constraint lets exactly
// one insert win, and the loser re-reads the winner's row.
func (r *Resolver) Resolve(ctx context.Context, memberA, memberB string) (*domain.Conversation, error) {
	conv, err := r.find(ctx, memberA, memberB)
	if err == nil {
		return conv, nil
	}
	if !errors.Is(err, repository.ErrConversationNotFound) {
		return nil, fmt.Errorf("resolve conversation: %w", err)
	}

	conv, err = r.repo.Create(ctx, memberA, memberB)
	if err == nil {
		return conv, nil
	}
	if !errors.Is(err, repository.ErrConversationExists) {
		return nil, fmt.Errorf("create conversation: %w", err)
	}

	// A racing call created the pair first; re-read and return the
	// winner's row.
	l := log.Ctx(ctx)
	l.Debug().Str(log.FieldMemberID, memberA).Msg("lost conversation creation race, re-reading")

	conv, err = r.find(ctx, memberA, memberB)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConflictUnresolved, err)
	}
	return conv, nil
}

// find probes both member orders.
func (r *Resolver) find(ctx context.Context, memberA, memberB string) (*domain.Conversation, error) {
	conv, err := r.repo.FindByMembers(ctx, memberA, memberB)
	if err == nil {
		return conv, nil
	}
	if !errors.Is(err, repository.ErrConversationNotFound) {
		return nil, err
	}
	return r.repo.FindByMembers(ctx, memberB, memberA)
}
