// Package store declares the persistence contracts behind the services.
//
// Every method that checks-then-writes is atomic inside the implementation:
// callers never hold locks or transactions of their own.
package store

import (
	"context"
	"time"

	"dailyDuoAPI/internal/calendar"
	"dailyDuoAPI/internal/types/friendship"
	"dailyDuoAPI/internal/types/post"
	"dailyDuoAPI/internal/types/user"
)

type UserRepository interface {
	// CreateUser fails with apperr.ErrConflict when the username is taken.
	CreateUser(ctx context.Context, u *user.User, passwordHash string) error
	GetUserByID(ctx context.Context, id string) (*user.User, error)
	GetUserByUsername(ctx context.Context, username string) (*user.User, error)
	GetPasswordHash(ctx context.Context, userID string) (string, error)
	// UpdateUser merges the supplied fields under the user's lock, so it
	// cannot lose a concurrent stats update.
	UpdateUser(ctx context.Context, id string, req *user.UpdateProfileRequest, now time.Time) (*user.User, error)
	ListUsers(ctx context.Context) ([]*user.User, error)
}

type Direction int

const (
	DirectionAny Direction = iota
	DirectionIncoming
	DirectionOutgoing
)

type FriendshipFilter struct {
	UserID    string
	Status    friendship.FriendshipStatus
	Direction Direction
}

type FriendshipRepository interface {
	// CreateFriendship fails with apperr.ErrConflict when any edge exists
	// for the unordered pair.
	CreateFriendship(ctx context.Context, f *friendship.Friendship) error
	GetFriendship(ctx context.Context, id string) (*friendship.Friendship, error)
	// AcceptFriendship moves a pending edge to accepted and bumps both
	// users' FriendsCount in the same step.
	AcceptFriendship(ctx context.Context, id string, now time.Time) (*friendship.Friendship, error)
	// DeleteFriendship removes the edge. A non-empty require makes the
	// delete fail with apperr.ErrInvalidState when the status differs.
	DeleteFriendship(ctx context.Context, id string, require friendship.FriendshipStatus) (*friendship.Friendship, error)
	ListFriendships(ctx context.Context, filter FriendshipFilter) ([]*friendship.Friendship, error)
}

// PostFilter selects posts. Empty AuthorIDs means every author; zero From/To
// leave that side of the [From, To) window open.
type PostFilter struct {
	AuthorIDs []string
	From      time.Time
	To        time.Time
}

type PostRepository interface {
	// CreatePost enforces the one-post-per-day gate on p.PostDay and updates
	// the author's counters atomically. It returns the updated author.
	CreatePost(ctx context.Context, p *post.Post) (*user.User, error)
	GetPost(ctx context.Context, id string) (*post.Post, error)
	// ListPosts returns matches newest-first.
	ListPosts(ctx context.Context, filter PostFilter) ([]*post.Post, error)
	HasPostOnDay(ctx context.Context, authorID string, day calendar.Day) (bool, error)
	LikePost(ctx context.Context, postID, userID string) (*post.Post, error)
	UnlikePost(ctx context.Context, postID, userID string) (*post.Post, error)
	SharePost(ctx context.Context, postID, userID string) (*post.Post, error)
	AddComment(ctx context.Context, postID string, c post.Comment) (*post.Post, error)
}

type Store interface {
	UserRepository
	FriendshipRepository
	PostRepository
	Ping(ctx context.Context) error
	Close()
}
