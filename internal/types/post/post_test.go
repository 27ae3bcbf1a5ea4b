package post

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLikeSetRoundTrip(t *testing.T) {
	p := &Post{Likes: []string{"a", "b"}}
	before := append([]string(nil), p.Likes...)

	assert.True(t, p.AddLike("c"))
	assert.False(t, p.AddLike("c"))
	assert.Equal(t, []string{"a", "b", "c"}, p.Likes)

	assert.True(t, p.RemoveLike("c"))
	assert.False(t, p.RemoveLike("c"))
	assert.Equal(t, before, p.Likes)
}

func TestCloneIsDeep(t *testing.T) {
	p := &Post{Likes: []string{"a"}, Location: &Location{Latitude: 1}}
	c := p.Clone()
	c.Likes[0] = "z"
	c.Location.Latitude = 9

	assert.Equal(t, "a", p.Likes[0])
	assert.Equal(t, 1.0, p.Location.Latitude)
	assert.NotNil(t, c.Comments)
	assert.NotNil(t, c.Shares)
}

func TestIsExpired(t *testing.T) {
	created := time.Date(2026, 1, 1, 23, 50, 0, 0, time.UTC)
	p := &Post{CreatedAt: created, ExpiresAt: created.Add(Lifetime)}

	assert.False(t, p.IsExpired(created.Add(time.Hour)))
	assert.True(t, p.IsExpired(created.Add(Lifetime+time.Second)))
}

func TestSortNewestFirst(t *testing.T) {
	base := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	posts := []*Post{
		{ID: "old", CreatedAt: base},
		{ID: "new", CreatedAt: base.Add(2 * time.Hour)},
		{ID: "mid", CreatedAt: base.Add(time.Hour)},
	}
	SortNewestFirst(posts)

	assert.Equal(t, "new", posts[0].ID)
	assert.Equal(t, "mid", posts[1].ID)
	assert.Equal(t, "old", posts[2].ID)
}

func TestVisibilityValid(t *testing.T) {
	assert.True(t, VisibilityFriends.Valid())
	assert.False(t, Visibility("everyone").Valid())
}
