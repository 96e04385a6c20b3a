package board_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Bushidonj/kanban-board/internal/board"
	"github.com/Bushidonj/kanban-board/internal/board/mocks"
	"github.com/Bushidonj/kanban-board/internal/kanban"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func seedCards() []kanban.Card {
	return []kanban.Card{
		{ID: "c1", Title: "first", Status: kanban.StatusToDo, Priority: kanban.PriorityBaixa},
		{ID: "c2", Title: "second", Status: kanban.StatusDoing, Priority: kanban.PriorityMedia},
	}
}

// seededStore returns a store whose cache holds seedCards and whose
// repository answers every List (including post-settle refetches) with
// the given server state.
func seededStore(t *testing.T, serverState []kanban.Card) (*board.Store, *mocks.Repository) {
	t.Helper()
	repo := &mocks.Repository{}
	repo.On("List", mock.Anything).Return(serverState, nil)

	store := board.NewStore(repo, nil)
	require.NoError(t, store.Refresh(context.Background()))
	return store, repo
}

func TestStore_Refresh_FailureKeepsCache(t *testing.T) {
	repo := &mocks.Repository{}
	repo.On("List", mock.Anything).Return(seedCards(), nil).Once()
	repo.On("List", mock.Anything).Return(nil, errors.New("network down"))

	store := board.NewStore(repo, nil)
	require.NoError(t, store.Refresh(context.Background()))

	err := store.Refresh(context.Background())
	require.Error(t, err)
	require.Len(t, store.Cards(), 2)
}

func TestStore_Update_OptimisticThenReconciled(t *testing.T) {
	store, repo := seededStore(t, seedCards())

	edited := seedCards()[0]
	edited.Title = "edited"

	// The server normalizes the title; its representation wins.
	normalized := edited
	normalized.Title = "Edited"

	entered := make(chan struct{})
	release := make(chan struct{})
	repo.On("Update", mock.Anything, edited).
		Run(func(mock.Arguments) {
			close(entered)
			<-release
		}).
		Return(normalized, nil)

	done := make(chan error, 1)
	go func() { done <- store.Update(context.Background(), edited) }()

	<-entered
	// Optimistic apply is visible while the call is still pending.
	card, ok := store.CardByID("c1")
	require.True(t, ok)
	require.Equal(t, "edited", card.Title)
	require.Equal(t, 1, store.InFlight())

	close(release)
	require.NoError(t, <-done)
	require.Zero(t, store.InFlight())

	card, ok = store.CardByID("c1")
	require.True(t, ok)
	require.Equal(t, "Edited", card.Title)
}

func TestStore_Update_RollbackBitForBit(t *testing.T) {
	store, repo := seededStore(t, seedCards())
	before := store.Cards()

	edited := seedCards()[0]
	edited.Title = "doomed edit"
	repo.On("Update", mock.Anything, edited).Return(kanban.Card{}, errors.New("save failed"))

	err := store.Update(context.Background(), edited)
	require.Error(t, err)

	store.Wait()
	require.Equal(t, before, store.Cards())
}

func TestStore_Move_OfflineRevert(t *testing.T) {
	store, repo := seededStore(t, seedCards())

	entered := make(chan struct{})
	release := make(chan struct{})
	repo.On("Move", mock.Anything, "c1", kanban.StatusDoing).
		Run(func(mock.Arguments) {
			close(entered)
			<-release
		}).
		Return(errors.New("offline"))

	done := make(chan error, 1)
	go func() { done <- store.Move(context.Background(), "c1", kanban.StatusDoing) }()

	<-entered
	card, _ := store.CardByID("c1")
	require.Equal(t, kanban.StatusDoing, card.Status)

	close(release)
	require.Error(t, <-done)
	store.Wait()

	card, _ = store.CardByID("c1")
	require.Equal(t, kanban.StatusToDo, card.Status)
}

func TestStore_Create_NotOptimistic(t *testing.T) {
	serverCard := kanban.Card{ID: "srv-9", Title: "created", Status: kanban.StatusBacklog}
	store, repo := seededStore(t, append(seedCards(), serverCard))

	draft := kanban.Card{ID: kanban.NewTempID(), Title: "created", Status: kanban.StatusBacklog}

	entered := make(chan struct{})
	release := make(chan struct{})
	repo.On("Create", mock.Anything, draft).
		Run(func(mock.Arguments) {
			close(entered)
			<-release
		}).
		Return(serverCard, nil)

	done := make(chan error, 1)
	go func() {
		_, err := store.Create(context.Background(), draft)
		done <- err
	}()

	<-entered
	// Nothing appears before confirmation.
	require.Len(t, store.Cards(), 2)

	close(release)
	require.NoError(t, <-done)
	store.Wait()

	seen := 0
	for _, card := range store.Cards() {
		if card.ID == "srv-9" {
			seen++
		}
		require.False(t, kanban.IsTempID(card.ID))
	}
	require.Equal(t, 1, seen)
}

func TestStore_Create_FailureAddsNothing(t *testing.T) {
	store, repo := seededStore(t, seedCards())
	repo.On("Create", mock.Anything, mock.Anything).Return(kanban.Card{}, errors.New("rejected"))

	_, err := store.Create(context.Background(), kanban.Card{Title: "nope"})
	require.Error(t, err)
	store.Wait()
	require.Len(t, store.Cards(), 2)
}

func TestStore_Delete_OnlyOnConfirmation(t *testing.T) {
	remaining := seedCards()[1:]
	store, repo := seededStore(t, seedCards())

	repo.On("Delete", mock.Anything, "c1").Return(errors.New("rejected")).Once()
	require.Error(t, store.Delete(context.Background(), "c1"))

	_, ok := store.CardByID("c1")
	require.True(t, ok, "failed delete must not remove the card")
	store.Wait()

	// Server truth after a confirmed delete no longer contains c1.
	repo.ExpectedCalls = nil
	repo.On("List", mock.Anything).Return(remaining, nil)
	repo.On("Delete", mock.Anything, "c1").Return(nil).Once()

	require.NoError(t, store.Delete(context.Background(), "c1"))
	_, ok = store.CardByID("c1")
	require.False(t, ok)

	// The healing refetch must not re-introduce the id.
	store.Wait()
	require.NoError(t, store.Refresh(context.Background()))
	_, ok = store.CardByID("c1")
	require.False(t, ok)
}

func TestStore_MutationTriggersRefetch(t *testing.T) {
	var listCalls atomic.Int32
	repo := &mocks.Repository{}
	repo.On("List", mock.Anything).
		Run(func(mock.Arguments) { listCalls.Add(1) }).
		Return(seedCards(), nil)
	repo.On("Move", mock.Anything, "c1", kanban.StatusDoing).Return(nil)

	store := board.NewStore(repo, nil)
	require.NoError(t, store.Refresh(context.Background()))
	require.Equal(t, int32(1), listCalls.Load())

	require.NoError(t, store.Move(context.Background(), "c1", kanban.StatusDoing))
	store.Wait()
	require.Equal(t, int32(2), listCalls.Load())
}

func TestStore_StaleReadTriggersBackgroundRefetch(t *testing.T) {
	var listCalls atomic.Int32
	repo := &mocks.Repository{}
	repo.On("List", mock.Anything).
		Run(func(mock.Arguments) { listCalls.Add(1) }).
		Return(seedCards(), nil)

	store := board.NewStore(repo, nil)
	store.SetStaleAfter(time.Nanosecond)
	require.NoError(t, store.Refresh(context.Background()))

	time.Sleep(time.Millisecond)
	snapshot := store.Cards()
	require.Len(t, snapshot, 2, "stale snapshot still served immediately")

	store.Wait()
	require.Equal(t, int32(2), listCalls.Load())
}

func TestStore_SubscribeNotify(t *testing.T) {
	store, repo := seededStore(t, seedCards())
	repo.On("Move", mock.Anything, "c1", kanban.StatusDoing).Return(nil)

	var notified atomic.Int32
	unsubscribe := store.Subscribe(func() { notified.Add(1) })

	require.NoError(t, store.Move(context.Background(), "c1", kanban.StatusDoing))
	require.Greater(t, notified.Load(), int32(0))

	store.Wait()
	count := notified.Load()
	unsubscribe()
	require.NoError(t, store.Refresh(context.Background()))
	require.Equal(t, count, notified.Load())
}

func TestStore_ConvergesToAReceivedState(t *testing.T) {
	// Two racing updates on one card: whichever response is applied
	// last, the cache equals some state actually returned by the
	// repository, never a hybrid.
	store, repo := seededStore(t, seedCards())

	first := seedCards()[0]
	first.Title = "first edit"
	second := seedCards()[0]
	second.Title = "second edit"

	repo.On("Update", mock.Anything, first).Return(first, nil)
	repo.On("Update", mock.Anything, second).Return(second, nil)

	done := make(chan error, 2)
	go func() { done <- store.Update(context.Background(), first) }()
	go func() { done <- store.Update(context.Background(), second) }()
	require.NoError(t, <-done)
	require.NoError(t, <-done)
	store.Wait()

	card, ok := store.CardByID("c1")
	require.True(t, ok)
	require.Contains(t, []string{"first edit", "second edit", "first"}, card.Title)
}
