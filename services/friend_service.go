package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"dailyDuoAPI/internal/apperr"
	"dailyDuoAPI/internal/events"
	"dailyDuoAPI/internal/metrics"
	"dailyDuoAPI/internal/store"
	"dailyDuoAPI/internal/types/friendship"
	"dailyDuoAPI/internal/types/user"
)

// FriendService owns the friendship edges: pending until the recipient
// accepts, removed by rejection or unfriending.
type FriendService struct {
	users       store.UserRepository
	friendships store.FriendshipRepository
	events      events.Publisher
	now         func() time.Time
}

func NewFriendService(users store.UserRepository, friendships store.FriendshipRepository, publisher events.Publisher) *FriendService {
	return &FriendService{
		users:       users,
		friendships: friendships,
		events:      publisher,
		now:         time.Now,
	}
}

type friendshipEvent struct {
	FriendshipID string `json:"friendshipId"`
	RequesterID  string `json:"requesterId"`
	RecipientID  string `json:"recipientId"`
}

func edgeEvent(t events.Type, f *friendship.Friendship) events.Event {
	return events.New(t, friendship.PairKey(f.RequesterID, f.RecipientID), friendshipEvent{
		FriendshipID: f.ID,
		RequesterID:  f.RequesterID,
		RecipientID:  f.RecipientID,
	})
}

func (s *FriendService) SendRequest(ctx context.Context, requesterID, recipientID string) (*friendship.Friendship, error) {
	if requesterID == recipientID {
		return nil, fmt.Errorf("%w: cannot befriend yourself", apperr.ErrSelfReference)
	}
	if _, err := s.users.GetUserByID(ctx, requesterID); err != nil {
		return nil, err
	}
	if _, err := s.users.GetUserByID(ctx, recipientID); err != nil {
		return nil, err
	}

	now := s.now()
	f := &friendship.Friendship{
		ID:          uuid.New().String(),
		RequesterID: requesterID,
		RecipientID: recipientID,
		Status:      friendship.FriendshipPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.friendships.CreateFriendship(ctx, f); err != nil {
		if errors.Is(err, apperr.ErrConflict) {
			metrics.FriendRequests.WithLabelValues("duplicate").Inc()
		}
		log.Printf("SendRequest: %s -> %s failed: %v", requesterID, recipientID, err)
		return nil, err
	}

	metrics.FriendRequests.WithLabelValues("sent").Inc()
	publish(ctx, s.events, edgeEvent(events.FriendshipRequested, f))
	return f, nil
}

// SendRequestByUsername resolves the recipient by username first.
func (s *FriendService) SendRequestByUsername(ctx context.Context, requesterID, username string) (*friendship.Friendship, error) {
	target, err := s.users.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	return s.SendRequest(ctx, requesterID, target.ID)
}

func (s *FriendService) GetRequest(ctx context.Context, requestID string) (*friendship.Friendship, error) {
	return s.friendships.GetFriendship(ctx, requestID)
}

// AcceptRequest moves a pending request to accepted. When actingUserID is
// set it must be the recipient.
func (s *FriendService) AcceptRequest(ctx context.Context, requestID, actingUserID string) (*friendship.Friendship, error) {
	if actingUserID != "" {
		f, err := s.friendships.GetFriendship(ctx, requestID)
		if err != nil {
			return nil, err
		}
		if f.RecipientID != actingUserID {
			return nil, fmt.Errorf("%w: only the recipient can accept a request", apperr.ErrForbidden)
		}
	}

	f, err := s.friendships.AcceptFriendship(ctx, requestID, s.now())
	if err != nil {
		log.Printf("AcceptRequest: %s failed: %v", requestID, err)
		return nil, err
	}

	metrics.FriendRequests.WithLabelValues("accepted").Inc()
	publish(ctx, s.events, edgeEvent(events.FriendshipAccepted, f))
	return f, nil
}

// RejectRequest deletes the edge whatever its status. Rejecting an accepted
// edge behaves like unfriending.
func (s *FriendService) RejectRequest(ctx context.Context, requestID string) error {
	f, err := s.friendships.DeleteFriendship(ctx, requestID, "")
	if err != nil {
		log.Printf("RejectRequest: %s failed: %v", requestID, err)
		return err
	}

	metrics.FriendRequests.WithLabelValues("rejected").Inc()
	publish(ctx, s.events, edgeEvent(events.FriendshipRemoved, f))
	return nil
}

// RemoveFriend deletes an accepted edge. Pending edges go through
// RejectRequest instead.
func (s *FriendService) RemoveFriend(ctx context.Context, edgeID string) error {
	f, err := s.friendships.DeleteFriendship(ctx, edgeID, friendship.FriendshipAccepted)
	if err != nil {
		log.Printf("RemoveFriend: %s failed: %v", edgeID, err)
		return err
	}

	metrics.FriendRequests.WithLabelValues("removed").Inc()
	publish(ctx, s.events, edgeEvent(events.FriendshipRemoved, f))
	return nil
}

// FindAccepted returns the accepted edge between userID and friendID.
func (s *FriendService) FindAccepted(ctx context.Context, userID, friendID string) (*friendship.Friendship, error) {
	edges, err := s.ListAccepted(ctx, userID)
	if err != nil {
		return nil, err
	}
	for _, f := range edges {
		if f.OtherParty(userID) == friendID {
			return f, nil
		}
	}
	return nil, apperr.NotFound("friendship with", friendID)
}

func (s *FriendService) ListAccepted(ctx context.Context, userID string) ([]*friendship.Friendship, error) {
	return s.friendships.ListFriendships(ctx, store.FriendshipFilter{
		UserID: userID,
		Status: friendship.FriendshipAccepted,
	})
}

func (s *FriendService) ListPendingIncoming(ctx context.Context, userID string) ([]*friendship.Friendship, error) {
	return s.friendships.ListFriendships(ctx, store.FriendshipFilter{
		UserID:    userID,
		Status:    friendship.FriendshipPending,
		Direction: store.DirectionIncoming,
	})
}

func (s *FriendService) ListPendingOutgoing(ctx context.Context, userID string) ([]*friendship.Friendship, error) {
	return s.friendships.ListFriendships(ctx, store.FriendshipFilter{
		UserID:    userID,
		Status:    friendship.FriendshipPending,
		Direction: store.DirectionOutgoing,
	})
}

func (s *FriendService) ResolveOtherParty(edge *friendship.Friendship, userID string) string {
	return edge.OtherParty(userID)
}

// FriendIDs returns the ids of userID's accepted friends.
func (s *FriendService) FriendIDs(ctx context.Context, userID string) ([]string, error) {
	edges, err := s.ListAccepted(ctx, userID)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(edges))
	for _, f := range edges {
		ids = append(ids, f.OtherParty(userID))
	}
	return ids, nil
}

// ListFriends resolves the users on the other end of userID's accepted edges.
func (s *FriendService) ListFriends(ctx context.Context, userID string) ([]*user.User, error) {
	ids, err := s.FriendIDs(ctx, userID)
	if err != nil {
		return nil, err
	}
	friends := make([]*user.User, 0, len(ids))
	for _, id := range ids {
		u, err := s.users.GetUserByID(ctx, id)
		if err != nil {
			if errors.Is(err, apperr.ErrNotFound) {
				continue
			}
			return nil, err
		}
		friends = append(friends, u)
	}
	return friends, nil
}

// WithOtherParty attaches the username and avatar of the user on the other
// end of each edge, as seen by viewerID.
func (s *FriendService) WithOtherParty(ctx context.Context, viewerID string, edges []*friendship.Friendship) ([]friendship.FriendRequestWithUser, error) {
	out := make([]friendship.FriendRequestWithUser, 0, len(edges))
	for _, f := range edges {
		other, err := s.users.GetUserByID(ctx, f.OtherParty(viewerID))
		if err != nil {
			if errors.Is(err, apperr.ErrNotFound) {
				continue
			}
			return nil, err
		}
		out = append(out, friendship.FriendRequestWithUser{
			Friendship: f,
			Username:   other.Username,
			Avatar:     other.Avatar,
		})
	}
	return out, nil
}
