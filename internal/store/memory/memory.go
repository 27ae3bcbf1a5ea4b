// Package memory is the in-process Store: keyed maps per collection plus the
// insertion order of each, with per-key locks around every check-then-write.
package memory

import (
	"context"
	"slices"
	"sync"
	"time"

	"dailyDuoAPI/internal/apperr"
	"dailyDuoAPI/internal/calendar"
	"dailyDuoAPI/internal/store"
	"dailyDuoAPI/internal/types/friendship"
	"dailyDuoAPI/internal/types/post"
	"dailyDuoAPI/internal/types/user"
)

var _ store.Store = (*Store)(nil)

type userRecord struct {
	user         *user.User
	passwordHash string
}

type Store struct {
	locks *keyLocks

	// mu guards the maps and slices below. Logical operations hold the
	// relevant key locks for their whole duration and take mu only while
	// touching the collections.
	mu sync.RWMutex

	users     map[string]*userRecord
	usernames map[string]string
	userOrder []string

	posts     map[string]*post.Post
	postOrder []string
	postDays  map[string]string

	friendships     map[string]*friendship.Friendship
	friendshipOrder []string
	pairs           map[string]string
}

func New() *Store {
	return &Store{
		locks:       newKeyLocks(),
		users:       make(map[string]*userRecord),
		usernames:   make(map[string]string),
		posts:       make(map[string]*post.Post),
		postDays:    make(map[string]string),
		friendships: make(map[string]*friendship.Friendship),
		pairs:       make(map[string]string),
	}
}

func (s *Store) Ping(ctx context.Context) error { return nil }

func (s *Store) Close() {}

func authorDayKey(authorID string, day calendar.Day) string {
	return authorID + "|" + day.String()
}

// Users

func (s *Store) CreateUser(ctx context.Context, u *user.User, passwordHash string) error {
	unlock := s.locks.Lock(usernameKey(u.Username))
	defer unlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.usernames[u.Username]; taken {
		return apperr.Conflict("username already taken")
	}
	if _, exists := s.users[u.ID]; exists {
		return apperr.Conflict("user id already exists")
	}

	s.users[u.ID] = &userRecord{user: u.Clone(), passwordHash: passwordHash}
	s.usernames[u.Username] = u.ID
	s.userOrder = append(s.userOrder, u.ID)
	return nil
}

func (s *Store) GetUserByID(ctx context.Context, id string) (*user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.users[id]
	if !ok {
		return nil, apperr.NotFound("user", id)
	}
	return rec.user.Clone(), nil
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (*user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.usernames[username]
	if !ok {
		return nil, apperr.NotFound("user", username)
	}
	return s.users[id].user.Clone(), nil
}

func (s *Store) GetPasswordHash(ctx context.Context, userID string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.users[userID]
	if !ok {
		return "", apperr.NotFound("user", userID)
	}
	return rec.passwordHash, nil
}

func (s *Store) UpdateUser(ctx context.Context, id string, req *user.UpdateProfileRequest, now time.Time) (*user.User, error) {
	keys := []string{userKey(id)}
	if req.Username != nil {
		keys = append(keys, usernameKey(*req.Username))
	}
	unlock := s.locks.Lock(keys...)
	defer unlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.users[id]
	if !ok {
		return nil, apperr.NotFound("user", id)
	}

	oldUsername := rec.user.Username
	if req.Username != nil && *req.Username != oldUsername {
		if _, taken := s.usernames[*req.Username]; taken {
			return nil, apperr.Conflict("username already taken")
		}
	}

	req.Apply(rec.user)
	rec.user.UpdatedAt = now

	if rec.user.Username != oldUsername {
		delete(s.usernames, oldUsername)
		s.usernames[rec.user.Username] = id
	}
	return rec.user.Clone(), nil
}

func (s *Store) ListUsers(ctx context.Context) ([]*user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]*user.User, 0, len(s.userOrder))
	for _, id := range s.userOrder {
		users = append(users, s.users[id].user.Clone())
	}
	return users, nil
}

// Friendships

func (s *Store) CreateFriendship(ctx context.Context, f *friendship.Friendship) error {
	pair := friendship.PairKey(f.RequesterID, f.RecipientID)
	unlock := s.locks.Lock(pairKey(pair))
	defer unlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	if existingID, ok := s.pairs[pair]; ok {
		if s.friendships[existingID].Status == friendship.FriendshipAccepted {
			return apperr.Conflict("already friends")
		}
		return apperr.Conflict("request already sent")
	}

	s.friendships[f.ID] = f.Clone()
	s.friendshipOrder = append(s.friendshipOrder, f.ID)
	s.pairs[pair] = f.ID
	return nil
}

func (s *Store) GetFriendship(ctx context.Context, id string) (*friendship.Friendship, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	f, ok := s.friendships[id]
	if !ok {
		return nil, apperr.NotFound("friend request", id)
	}
	return f.Clone(), nil
}

// lockFriendship resolves the edge's pair and locks the pair and both users.
// The edge is looked up again under the lock by the caller.
func (s *Store) lockFriendship(id string) (unlock func(), err error) {
	s.mu.RLock()
	f, ok := s.friendships[id]
	var requester, recipient string
	if ok {
		requester, recipient = f.RequesterID, f.RecipientID
	}
	s.mu.RUnlock()
	if !ok {
		return nil, apperr.NotFound("friend request", id)
	}

	return s.locks.Lock(
		pairKey(friendship.PairKey(requester, recipient)),
		userKey(requester),
		userKey(recipient),
	), nil
}

func (s *Store) AcceptFriendship(ctx context.Context, id string, now time.Time) (*friendship.Friendship, error) {
	unlock, err := s.lockFriendship(id)
	if err != nil {
		return nil, err
	}
	defer unlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	f, ok := s.friendships[id]
	if !ok {
		return nil, apperr.NotFound("friend request", id)
	}
	if f.Status != friendship.FriendshipPending {
		return nil, apperr.InvalidState("friend request is " + string(f.Status))
	}

	f.Status = friendship.FriendshipAccepted
	f.UpdatedAt = now
	s.adjustFriendsCount(f, 1)
	return f.Clone(), nil
}

func (s *Store) DeleteFriendship(ctx context.Context, id string, require friendship.FriendshipStatus) (*friendship.Friendship, error) {
	unlock, err := s.lockFriendship(id)
	if err != nil {
		return nil, err
	}
	defer unlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	f, ok := s.friendships[id]
	if !ok {
		return nil, apperr.NotFound("friend request", id)
	}
	if require != "" && f.Status != require {
		return nil, apperr.InvalidState("friendship is " + string(f.Status))
	}

	if f.Status == friendship.FriendshipAccepted {
		s.adjustFriendsCount(f, -1)
	}
	delete(s.friendships, id)
	delete(s.pairs, friendship.PairKey(f.RequesterID, f.RecipientID))
	s.friendshipOrder = slices.DeleteFunc(s.friendshipOrder, func(v string) bool { return v == id })
	return f.Clone(), nil
}

// adjustFriendsCount requires mu held for writing.
func (s *Store) adjustFriendsCount(f *friendship.Friendship, delta int) {
	for _, id := range []string{f.RequesterID, f.RecipientID} {
		if rec, ok := s.users[id]; ok {
			rec.user.Stats.FriendsCount = max(0, rec.user.Stats.FriendsCount+delta)
		}
	}
}

func (s *Store) ListFriendships(ctx context.Context, filter store.FriendshipFilter) ([]*friendship.Friendship, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*friendship.Friendship
	for i := len(s.friendshipOrder) - 1; i >= 0; i-- {
		f := s.friendships[s.friendshipOrder[i]]
		if filter.Status != "" && f.Status != filter.Status {
			continue
		}
		if filter.UserID != "" {
			switch filter.Direction {
			case store.DirectionIncoming:
				if f.RecipientID != filter.UserID {
					continue
				}
			case store.DirectionOutgoing:
				if f.RequesterID != filter.UserID {
					continue
				}
			default:
				if !f.Involves(filter.UserID) {
					continue
				}
			}
		}
		out = append(out, f.Clone())
	}
	return out, nil
}

// Posts

func (s *Store) CreatePost(ctx context.Context, p *post.Post) (*user.User, error) {
	unlock := s.locks.Lock(userKey(p.AuthorID))
	defer unlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	author, ok := s.users[p.AuthorID]
	if !ok {
		return nil, apperr.NotFound("user", p.AuthorID)
	}
	dayKey := authorDayKey(p.AuthorID, p.PostDay)
	if _, posted := s.postDays[dayKey]; posted {
		return nil, apperr.ErrDailyLimitExceeded
	}

	s.posts[p.ID] = p.Clone()
	s.postOrder = append(s.postOrder, p.ID)
	s.postDays[dayKey] = p.ID

	author.user.RecordPost(p.PostDay)
	return author.user.Clone(), nil
}

func (s *Store) GetPost(ctx context.Context, id string) (*post.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.posts[id]
	if !ok {
		return nil, apperr.NotFound("post", id)
	}
	return p.Clone(), nil
}

func (s *Store) ListPosts(ctx context.Context, filter store.PostFilter) ([]*post.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*post.Post
	for i := len(s.postOrder) - 1; i >= 0; i-- {
		p := s.posts[s.postOrder[i]]
		if len(filter.AuthorIDs) > 0 && !slices.Contains(filter.AuthorIDs, p.AuthorID) {
			continue
		}
		if !filter.From.IsZero() && p.CreatedAt.Before(filter.From) {
			continue
		}
		if !filter.To.IsZero() && !p.CreatedAt.Before(filter.To) {
			continue
		}
		out = append(out, p.Clone())
	}
	post.SortNewestFirst(out)
	return out, nil
}

func (s *Store) HasPostOnDay(ctx context.Context, authorID string, day calendar.Day) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.postDays[authorDayKey(authorID, day)]
	return ok, nil
}

// mutatePost applies fn to the stored post under the post's key lock.
func (s *Store) mutatePost(postID string, fn func(p *post.Post)) (*post.Post, error) {
	unlock := s.locks.Lock(postKey(postID))
	defer unlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.posts[postID]
	if !ok {
		return nil, apperr.NotFound("post", postID)
	}
	fn(p)
	return p.Clone(), nil
}

func (s *Store) LikePost(ctx context.Context, postID, userID string) (*post.Post, error) {
	return s.mutatePost(postID, func(p *post.Post) { p.AddLike(userID) })
}

func (s *Store) UnlikePost(ctx context.Context, postID, userID string) (*post.Post, error) {
	return s.mutatePost(postID, func(p *post.Post) { p.RemoveLike(userID) })
}

func (s *Store) SharePost(ctx context.Context, postID, userID string) (*post.Post, error) {
	return s.mutatePost(postID, func(p *post.Post) { p.AddShare(userID) })
}

func (s *Store) AddComment(ctx context.Context, postID string, c post.Comment) (*post.Post, error) {
	return s.mutatePost(postID, func(p *post.Post) { p.Comments = append(p.Comments, c) })
}
