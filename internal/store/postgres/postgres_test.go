package postgres

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dailyDuoAPI/internal/apperr"
	"dailyDuoAPI/internal/calendar"
	"dailyDuoAPI/internal/store"
	"dailyDuoAPI/internal/types/friendship"
	"dailyDuoAPI/internal/types/post"
	"dailyDuoAPI/internal/types/user"
)

// setupTestDB connects to TEST_DATABASE_URL and applies the schema.
func setupTestDB(t *testing.T) *Store {
	t.Helper()
	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	pool, err := Connect(ctx, dbURL)
	require.NoError(t, err)
	require.NoError(t, Migrate(ctx, pool))
	t.Cleanup(func() { cleanupTestDB(t, pool) })
	return New(pool)
}

func cleanupTestDB(t *testing.T, pool *pgxpool.Pool) {
	ctx := context.Background()
	for _, table := range []string{"post_comments", "posts", "friendships", "users"} {
		if _, err := pool.Exec(ctx, "DELETE FROM "+table+" WHERE id LIKE 'test-%'"); err != nil {
			t.Logf("Warning: failed to cleanup %s: %v", table, err)
		}
	}
	pool.Close()
}

func testID(prefix string) string {
	return "test-" + prefix + "-" + uuid.NewString()
}

func seedUser(t *testing.T, s *Store) *user.User {
	t.Helper()
	now := time.Now().UTC()
	u := &user.User{
		ID:        testID("user"),
		Email:     "test@example.com",
		CreatedAt: now,
		UpdatedAt: now,
	}
	u.Username = u.ID
	require.NoError(t, s.CreateUser(context.Background(), u, "hash"))
	return u
}

func TestUserRoundTripAndConflict(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()
	u := seedUser(t, s)

	got, err := s.GetUserByUsername(ctx, u.Username)
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
	assert.True(t, got.LastPostDay.IsZero())

	err = s.CreateUser(ctx, &user.User{ID: testID("user"), Username: u.Username}, "hash")
	assert.ErrorIs(t, err, apperr.ErrConflict)

	_, err = s.GetUserByID(ctx, "test-missing")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestCreatePostGateAndStats(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()
	u := seedUser(t, s)

	day := calendar.Day{Year: 2026, Month: time.June, Day: 1}
	created := time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.CreatePost(ctx, &post.Post{
				ID:         testID("post"),
				AuthorID:   u.ID,
				FrontImage: "front",
				BackImage:  "back",
				Visibility: post.VisibilityFriends,
				Location:   &post.Location{Latitude: 52.5, Longitude: 13.4, City: "Berlin"},
				CreatedAt:  created,
				ExpiresAt:  created.Add(post.Lifetime),
				PostDay:    day,
			})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	var ok int
	for err := range errs {
		if err == nil {
			ok++
			continue
		}
		assert.ErrorIs(t, err, apperr.ErrDailyLimitExceeded)
	}
	assert.Equal(t, 1, ok)

	got, err := s.GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Stats.TotalPosts)
	assert.Equal(t, 1, got.Stats.Streak)
	assert.Equal(t, day, got.LastPostDay)

	posted, err := s.HasPostOnDay(ctx, u.ID, day)
	require.NoError(t, err)
	assert.True(t, posted)

	posts, err := s.ListPosts(ctx, store.PostFilter{AuthorIDs: []string{u.ID}})
	require.NoError(t, err)
	require.Len(t, posts, 1)
	require.NotNil(t, posts[0].Location)
	assert.Equal(t, "Berlin", posts[0].Location.City)
	assert.Empty(t, posts[0].Likes)
}

func TestLikesAndComments(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()
	u := seedUser(t, s)
	now := time.Now().UTC()

	p := &post.Post{
		ID: testID("post"), AuthorID: u.ID, FrontImage: "f", BackImage: "b",
		Visibility: post.VisibilityPublic, CreatedAt: now, ExpiresAt: now.Add(post.Lifetime),
		PostDay: calendar.DayFromDate(now),
	}
	_, err := s.CreatePost(ctx, p)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err = s.LikePost(ctx, p.ID, u.ID)
		require.NoError(t, err)
	}
	got, err := s.UnlikePost(ctx, p.ID, "nobody")
	require.NoError(t, err)
	assert.Equal(t, []string{u.ID}, got.Likes)

	for i := 0; i < 2; i++ {
		_, err = s.AddComment(ctx, p.ID, post.Comment{
			ID: testID("comment"), UserID: u.ID, Username: u.Username,
			Text: fmt.Sprintf("comment %d", i), CreatedAt: now,
		})
		require.NoError(t, err)
	}
	got, err = s.GetPost(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, got.Comments, 2)
	assert.Equal(t, "comment 0", got.Comments[0].Text)

	_, err = s.LikePost(ctx, "test-missing", u.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestFriendshipLifecycle(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()
	a, b := seedUser(t, s), seedUser(t, s)
	now := time.Now().UTC()

	f := &friendship.Friendship{
		ID: testID("friendship"), RequesterID: a.ID, RecipientID: b.ID,
		Status: friendship.FriendshipPending, CreatedAt: now, UpdatedAt: now,
	}
	require.NoError(t, s.CreateFriendship(ctx, f))

	err := s.CreateFriendship(ctx, &friendship.Friendship{
		ID: testID("friendship"), RequesterID: b.ID, RecipientID: a.ID,
		Status: friendship.FriendshipPending, CreatedAt: now, UpdatedAt: now,
	})
	assert.ErrorIs(t, err, apperr.ErrConflict)

	_, err = s.AcceptFriendship(ctx, f.ID, now)
	require.NoError(t, err)
	_, err = s.AcceptFriendship(ctx, f.ID, now)
	assert.ErrorIs(t, err, apperr.ErrInvalidState)

	incoming, err := s.ListFriendships(ctx, store.FriendshipFilter{UserID: b.ID, Status: friendship.FriendshipAccepted, Direction: store.DirectionIncoming})
	require.NoError(t, err)
	assert.Len(t, incoming, 1)

	_, err = s.DeleteFriendship(ctx, f.ID, friendship.FriendshipAccepted)
	require.NoError(t, err)
	got, err := s.GetUserByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.Stats.FriendsCount)
}
