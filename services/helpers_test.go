package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"dailyDuoAPI/internal/calendar"
	"dailyDuoAPI/internal/events"
	"dailyDuoAPI/internal/session"
	"dailyDuoAPI/internal/store/memory"
	"dailyDuoAPI/internal/types/post"
	"dailyDuoAPI/internal/types/user"
)

// testZone is two hours east of UTC so that local and UTC days differ.
var testZone = time.FixedZone("UTC+2", 2*60*60)

func at(day, hour, minute int) time.Time {
	return time.Date(2026, time.June, day, hour, minute, 0, 0, testZone)
}

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = t
}

type testEnv struct {
	store    *memory.Store
	events   *events.Recorder
	clock    *testClock
	users    *UserService
	auth     *AuthService
	friends  *FriendService
	posts    *PostService
	feed     *FeedService
	sessions *session.Manager
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	st := memory.New()
	rec := &events.Recorder{}
	clk := &testClock{t: at(1, 8, 0)}
	cal := calendar.New(testZone)

	users := NewUserService(st, rec)
	users.now = clk.Now
	users.hashCost = bcrypt.MinCost

	friends := NewFriendService(st, st, rec)
	friends.now = clk.Now

	posts := NewPostService(st, st, cal, rec)
	posts.now = clk.Now

	sessions := session.NewManager(session.NewMemoryStore(), "test-secret-key-for-testing-only", time.Hour)

	return &testEnv{
		store:    st,
		events:   rec,
		clock:    clk,
		users:    users,
		auth:     NewAuthService(users, sessions),
		friends:  friends,
		posts:    posts,
		feed:     NewFeedService(st, st, friends, cal),
		sessions: sessions,
	}
}

func (e *testEnv) createUser(t *testing.T, username string) *user.User {
	t.Helper()
	u, err := e.users.CreateUser(context.Background(), &user.CreateUserRequest{
		Username: username,
		Email:    username + "@example.com",
		Password: "secret-" + username,
	})
	require.NoError(t, err)
	return u
}

func (e *testEnv) befriend(t *testing.T, a, b *user.User) {
	t.Helper()
	ctx := context.Background()
	f, err := e.friends.SendRequest(ctx, a.ID, b.ID)
	require.NoError(t, err)
	_, err = e.friends.AcceptRequest(ctx, f.ID, b.ID)
	require.NoError(t, err)
}

func (e *testEnv) postAt(t *testing.T, author *user.User, when time.Time) *post.Post {
	t.Helper()
	e.clock.Set(when)
	p, err := e.posts.CreatePost(context.Background(), &post.CreatePostRequest{
		AuthorID:   author.ID,
		FrontImage: "front-" + author.Username,
		BackImage:  "back-" + author.Username,
	})
	require.NoError(t, err)
	return p
}
