package services

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dailyDuoAPI/internal/apperr"
	"dailyDuoAPI/internal/events"
	"dailyDuoAPI/internal/types/friendship"
)

func TestSendRequestErrors(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	a, b := env.createUser(t, "ana"), env.createUser(t, "bo")

	_, err := env.friends.SendRequest(ctx, a.ID, a.ID)
	assert.ErrorIs(t, err, apperr.ErrSelfReference)

	_, err = env.friends.SendRequest(ctx, a.ID, "ghost")
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = env.friends.SendRequest(ctx, "ghost", b.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	f, err := env.friends.SendRequest(ctx, a.ID, b.ID)
	require.NoError(t, err)
	assert.Equal(t, friendship.FriendshipPending, f.Status)

	_, err = env.friends.SendRequest(ctx, b.ID, a.ID)
	require.ErrorIs(t, err, apperr.ErrConflict)
	assert.Equal(t, "request already sent", apperr.Message(err))

	_, err = env.friends.AcceptRequest(ctx, f.ID, b.ID)
	require.NoError(t, err)

	_, err = env.friends.SendRequest(ctx, a.ID, b.ID)
	require.ErrorIs(t, err, apperr.ErrConflict)
	assert.Equal(t, "already friends", apperr.Message(err))
}

func TestSendRequestByUsername(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	a, b := env.createUser(t, "ana"), env.createUser(t, "bo")

	f, err := env.friends.SendRequestByUsername(ctx, a.ID, "bo")
	require.NoError(t, err)
	assert.Equal(t, b.ID, f.RecipientID)

	_, err = env.friends.SendRequestByUsername(ctx, a.ID, "nobody")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestConcurrentCrossRequestsCreateOneEdge(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	a, b := env.createUser(t, "ana"), env.createUser(t, "bo")

	var wg sync.WaitGroup
	errs := make(chan error, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			from, to := a.ID, b.ID
			if i%2 == 1 {
				from, to = to, from
			}
			_, err := env.friends.SendRequest(ctx, from, to)
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)

	var ok int
	for err := range errs {
		if err == nil {
			ok++
		} else {
			assert.ErrorIs(t, err, apperr.ErrConflict)
		}
	}
	assert.Equal(t, 1, ok)

	pending, err := env.friends.ListPendingIncoming(ctx, a.ID)
	require.NoError(t, err)
	outgoing, err := env.friends.ListPendingOutgoing(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, len(pending)+len(outgoing))
}

func TestAcceptRequest(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	a, b := env.createUser(t, "ana"), env.createUser(t, "bo")

	f, err := env.friends.SendRequest(ctx, a.ID, b.ID)
	require.NoError(t, err)

	_, err = env.friends.AcceptRequest(ctx, f.ID, a.ID)
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	accepted, err := env.friends.AcceptRequest(ctx, f.ID, b.ID)
	require.NoError(t, err)
	assert.Equal(t, friendship.FriendshipAccepted, accepted.Status)

	_, err = env.friends.AcceptRequest(ctx, f.ID, "")
	assert.ErrorIs(t, err, apperr.ErrInvalidState)

	_, err = env.friends.AcceptRequest(ctx, "missing", "")
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	for _, u := range []string{a.ID, b.ID} {
		got, err := env.users.GetByID(ctx, u)
		require.NoError(t, err)
		assert.Equal(t, 1, got.Stats.FriendsCount)
	}

	assert.Equal(t, []events.Type{
		events.UserRegistered, events.UserRegistered,
		events.FriendshipRequested, events.FriendshipAccepted,
	}, env.events.Types())
}

func TestConcurrentAcceptProducesOneAcceptedEdge(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	a, b := env.createUser(t, "ana"), env.createUser(t, "bo")
	f, err := env.friends.SendRequest(ctx, a.ID, b.ID)
	require.NoError(t, err)

	var wg sync.WaitGroup
	results := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.friends.AcceptRequest(ctx, f.ID, b.ID)
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var ok int
	for err := range results {
		if err == nil {
			ok++
		} else {
			assert.ErrorIs(t, err, apperr.ErrInvalidState)
		}
	}
	assert.Equal(t, 1, ok)

	got, err := env.users.GetByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Stats.FriendsCount)
}

func TestRejectAndRemove(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	a, b := env.createUser(t, "ana"), env.createUser(t, "bo")

	f, err := env.friends.SendRequest(ctx, a.ID, b.ID)
	require.NoError(t, err)

	err = env.friends.RemoveFriend(ctx, f.ID)
	assert.ErrorIs(t, err, apperr.ErrInvalidState)

	require.NoError(t, env.friends.RejectRequest(ctx, f.ID))
	assert.ErrorIs(t, env.friends.RejectRequest(ctx, f.ID), apperr.ErrNotFound)

	// A rejected pair may ask again straight away.
	f, err = env.friends.SendRequest(ctx, b.ID, a.ID)
	require.NoError(t, err)
	_, err = env.friends.AcceptRequest(ctx, f.ID, a.ID)
	require.NoError(t, err)

	edge, err := env.friends.FindAccepted(ctx, a.ID, b.ID)
	require.NoError(t, err)
	assert.Equal(t, f.ID, edge.ID)

	require.NoError(t, env.friends.RemoveFriend(ctx, edge.ID))
	assert.ErrorIs(t, env.friends.RemoveFriend(ctx, edge.ID), apperr.ErrNotFound)

	for _, u := range []string{a.ID, b.ID} {
		got, err := env.users.GetByID(ctx, u)
		require.NoError(t, err)
		assert.Equal(t, 0, got.Stats.FriendsCount)
	}

	_, err = env.friends.FindAccepted(ctx, a.ID, b.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestListAcceptedResolvesOtherParty(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	a, b := env.createUser(t, "ana"), env.createUser(t, "bo")

	f, err := env.friends.SendRequest(ctx, a.ID, b.ID)
	require.NoError(t, err)
	_, err = env.friends.AcceptRequest(ctx, f.ID, b.ID)
	require.NoError(t, err)

	edgesA, err := env.friends.ListAccepted(ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, edgesA, 1)
	assert.Equal(t, f.ID, edgesA[0].ID)
	assert.Equal(t, b.ID, env.friends.ResolveOtherParty(edgesA[0], a.ID))

	edgesB, err := env.friends.ListAccepted(ctx, b.ID)
	require.NoError(t, err)
	require.Len(t, edgesB, 1)
	assert.Equal(t, a.ID, env.friends.ResolveOtherParty(edgesB[0], b.ID))

	friends, err := env.friends.ListFriends(ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, friends, 1)
	assert.Equal(t, "bo", friends[0].Username)
}

func TestWithOtherParty(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	a, b := env.createUser(t, "ana"), env.createUser(t, "bo")
	_, err := env.friends.SendRequest(ctx, a.ID, b.ID)
	require.NoError(t, err)

	incoming, err := env.friends.ListPendingIncoming(ctx, b.ID)
	require.NoError(t, err)
	described, err := env.friends.WithOtherParty(ctx, b.ID, incoming)
	require.NoError(t, err)
	require.Len(t, described, 1)
	assert.Equal(t, "ana", described[0].Username)

	outgoing, err := env.friends.ListPendingOutgoing(ctx, a.ID)
	require.NoError(t, err)
	described, err = env.friends.WithOtherParty(ctx, a.ID, outgoing)
	require.NoError(t, err)
	require.Len(t, described, 1)
	assert.Equal(t, "bo", described[0].Username)
}
