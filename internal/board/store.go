// Package board holds the authoritative in-memory card list and
// coordinates mutations against the task repository. Update and move are
// optimistic with snapshot rollback; create and delete are confirmed
// before the cache changes. Every mutation triggers a background refetch
// after settling, which is the consistency backstop for concurrent
// external changes.
//
// Mutations on the same card id are deliberately not serialized: a
// later-issued move may settle before an earlier one. Serializing would
// change drag responsiveness; the post-settle refetch restores eventual
// consistency within one extra round trip.
package board

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Bushidonj/kanban-board/internal/kanban"
)

// ErrCardNotFound indicates the card is not in the cache.
var ErrCardNotFound = errors.New("card not found")

// Repository provides persistence for cards.
type Repository interface {
	List(ctx context.Context) ([]kanban.Card, error)
	Create(ctx context.Context, draft kanban.Card) (kanban.Card, error)
	Update(ctx context.Context, card kanban.Card) (kanban.Card, error)
	Move(ctx context.Context, id string, status kanban.Status) error
	Delete(ctx context.Context, id string) error
}

// DefaultStaleAfter is how long a fetched card list stays fresh before a
// read triggers a background refetch.
const DefaultStaleAfter = time.Minute

// Store is the single source of truth for the card list. All columns
// and consumers read from it; none hold a private copy.
type Store struct {
	repo       Repository
	logger     *slog.Logger
	staleAfter time.Duration

	mu         sync.Mutex
	cards      []kanban.Card
	fetchedAt  time.Time
	refreshing bool
	inFlight   int

	background sync.WaitGroup

	subMu   sync.Mutex
	subs    map[int]func()
	nextSub int
}

// NewStore creates a card store backed by repo.
func NewStore(repo Repository, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		repo:       repo,
		logger:     logger,
		staleAfter: DefaultStaleAfter,
		subs:       map[int]func(){},
	}
}

// SetStaleAfter overrides the freshness window.
func (s *Store) SetStaleAfter(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.staleAfter = d
}

// Subscribe registers a change notification callback and returns its
// unsubscribe function.
func (s *Store) Subscribe(fn func()) func() {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	return func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		delete(s.subs, id)
	}
}

func (s *Store) notify() {
	s.subMu.Lock()
	fns := make([]func(), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subMu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

// Cards returns a snapshot of the card list. A read past the freshness
// window triggers a background refetch; the stale snapshot is still
// returned immediately.
func (s *Store) Cards() []kanban.Card {
	s.mu.Lock()
	stale := !s.fetchedAt.IsZero() && time.Since(s.fetchedAt) > s.staleAfter && !s.refreshing
	if stale {
		s.refreshing = true
	}
	out := cloneCards(s.cards)
	s.mu.Unlock()

	if stale {
		s.background.Add(1)
		go func() {
			defer s.background.Done()
			if err := s.Refresh(context.Background()); err != nil {
				s.logger.Error("background refresh failed", "error", err)
			}
		}()
	}
	return out
}

// CardByID returns a copy of the card with the given id.
func (s *Store) CardByID(id string) (kanban.Card, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, card := range s.cards {
		if card.ID == id {
			return card.Clone(), true
		}
	}
	return kanban.Card{}, false
}

// InFlight returns the number of unsettled mutations.
func (s *Store) InFlight() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inFlight
}

// Wait blocks until all background refetches have settled. Intended for
// shutdown and tests.
func (s *Store) Wait() {
	s.background.Wait()
}

// Refresh fetches the full card list and replaces the cache wholesale.
// On failure the previous cache is left untouched.
func (s *Store) Refresh(ctx context.Context) error {
	cards, err := s.repo.List(ctx)

	s.mu.Lock()
	s.refreshing = false
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("refreshing board: %w", err)
	}
	s.cards = cards
	s.fetchedAt = time.Now()
	s.mu.Unlock()

	s.notify()
	return nil
}

// Create sends the draft to the repository and inserts the confirmed
// record. There is no optimistic insertion: a brand-new entity becoming
// visible and then renumbered (or vanishing on failure) is more
// confusing than a brief wait.
func (s *Store) Create(ctx context.Context, draft kanban.Card) (kanban.Card, error) {
	s.beginMutation()
	defer s.settle()

	created, err := s.repo.Create(ctx, draft)
	if err != nil {
		return kanban.Card{}, err
	}

	s.mu.Lock()
	replaced := false
	for i, card := range s.cards {
		if card.ID == created.ID {
			s.cards[i] = created
			replaced = true
			break
		}
	}
	if !replaced {
		s.cards = append(s.cards, created)
	}
	s.mu.Unlock()

	s.notify()
	return created, nil
}

// Update optimistically replaces the matching cache entry, then sends
// the update. On success the entry is reconciled with the server's
// representation; on failure the full pre-mutation snapshot is restored.
func (s *Store) Update(ctx context.Context, card kanban.Card) error {
	s.beginMutation()
	defer s.settle()

	s.mu.Lock()
	snapshot := cloneCards(s.cards)
	s.replaceLocked(card)
	s.mu.Unlock()
	s.notify()

	updated, err := s.repo.Update(ctx, card)
	if err != nil {
		s.rollback(snapshot)
		return err
	}

	s.mu.Lock()
	s.replaceLocked(updated)
	s.mu.Unlock()
	s.notify()
	return nil
}

// Move is a specialized update affecting only status, with the same
// optimistic contract. Moving a card to its current column is a no-op at
// the cache level but is still sent; the backend treats it as idempotent.
func (s *Store) Move(ctx context.Context, id string, status kanban.Status) error {
	s.beginMutation()
	defer s.settle()

	s.mu.Lock()
	snapshot := cloneCards(s.cards)
	for i := range s.cards {
		if s.cards[i].ID == id {
			s.cards[i].Status = status
			break
		}
	}
	s.mu.Unlock()
	s.notify()

	if err := s.repo.Move(ctx, id, status); err != nil {
		s.rollback(snapshot)
		return err
	}
	return nil
}

// Delete removes the card from the cache only after the repository
// confirms. A failed delete leaving a phantom-removed card would be more
// confusing than a brief lag.
func (s *Store) Delete(ctx context.Context, id string) error {
	s.beginMutation()
	defer s.settle()

	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	s.mu.Lock()
	kept := s.cards[:0]
	for _, card := range s.cards {
		if card.ID != id {
			kept = append(kept, card)
		}
	}
	s.cards = kept
	s.mu.Unlock()

	s.notify()
	return nil
}

func (s *Store) beginMutation() {
	s.mu.Lock()
	s.inFlight++
	s.mu.Unlock()
}

// settle closes out a mutation and schedules the healing refetch.
func (s *Store) settle() {
	s.mu.Lock()
	s.inFlight--
	s.mu.Unlock()

	s.background.Add(1)
	go func() {
		defer s.background.Done()
		if err := s.Refresh(context.Background()); err != nil {
			s.logger.Error("post-mutation refetch failed", "error", err)
		}
	}()
}

func (s *Store) rollback(snapshot []kanban.Card) {
	s.mu.Lock()
	s.cards = snapshot
	s.mu.Unlock()
	s.notify()
}

// replaceLocked swaps the matching-id entry in place. A missing id means
// the card was deleted concurrently; the cache is left as-is and the
// repository call decides the outcome.
func (s *Store) replaceLocked(card kanban.Card) {
	for i := range s.cards {
		if s.cards[i].ID == card.ID {
			s.cards[i] = card
			return
		}
	}
}

func cloneCards(cards []kanban.Card) []kanban.Card {
	out := make([]kanban.Card, len(cards))
	for i, card := range cards {
		out[i] = card.Clone()
	}
	return out
}
