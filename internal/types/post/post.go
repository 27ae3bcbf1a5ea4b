package post

import (
	"slices"
	"time"

	"dailyDuoAPI/internal/calendar"
	"dailyDuoAPI/internal/types/user"
)

// Lifetime is the fixed expiry of a post. It is independent of the feed
// window, which closes at the next local midnight.
const Lifetime = 24 * time.Hour

const MaxCaptionLength = 280
const MaxCommentLength = 500

type Visibility string

const (
	VisibilityPublic  Visibility = "public"
	VisibilityFriends Visibility = "friends"
	VisibilityPrivate Visibility = "private"
)

func (v Visibility) Valid() bool {
	switch v {
	case VisibilityPublic, VisibilityFriends, VisibilityPrivate:
		return true
	}
	return false
}

type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	City      string  `json:"city,omitempty"`
	Country   string  `json:"country,omitempty"`
}

type Comment struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Username  string    `json:"username"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
}

type Post struct {
	ID         string       `json:"id"`
	AuthorID   string       `json:"authorId"`
	FrontImage string       `json:"frontImage"`
	BackImage  string       `json:"backImage"`
	Caption    string       `json:"caption"`
	Visibility Visibility   `json:"visibility"`
	Location   *Location    `json:"location,omitempty"`
	Likes      []string     `json:"likes"`
	Comments   []Comment    `json:"comments"`
	Shares     []string     `json:"shares"`
	CreatedAt  time.Time    `json:"createdAt"`
	ExpiresAt  time.Time    `json:"expiresAt"`
	PostDay    calendar.Day `json:"postDay"`
}

func (p *Post) Clone() *Post {
	if p == nil {
		return nil
	}
	c := *p
	c.Likes = slices.Clone(p.Likes)
	c.Comments = slices.Clone(p.Comments)
	c.Shares = slices.Clone(p.Shares)
	if p.Location != nil {
		loc := *p.Location
		c.Location = &loc
	}
	if c.Likes == nil {
		c.Likes = []string{}
	}
	if c.Comments == nil {
		c.Comments = []Comment{}
	}
	if c.Shares == nil {
		c.Shares = []string{}
	}
	return &c
}

func (p *Post) IsExpired(now time.Time) bool {
	return now.After(p.ExpiresAt)
}

func (p *Post) LikedBy(userID string) bool {
	return slices.Contains(p.Likes, userID)
}

// AddLike inserts userID into the like set and reports whether it changed.
func (p *Post) AddLike(userID string) bool {
	var changed bool
	p.Likes, changed = addToSet(p.Likes, userID)
	return changed
}

func (p *Post) RemoveLike(userID string) bool {
	var changed bool
	p.Likes, changed = removeFromSet(p.Likes, userID)
	return changed
}

func (p *Post) AddShare(userID string) bool {
	var changed bool
	p.Shares, changed = addToSet(p.Shares, userID)
	return changed
}

func addToSet(set []string, id string) ([]string, bool) {
	if slices.Contains(set, id) {
		return set, false
	}
	return append(set, id), true
}

func removeFromSet(set []string, id string) ([]string, bool) {
	i := slices.Index(set, id)
	if i < 0 {
		return set, false
	}
	return slices.Delete(set, i, i+1), true
}

// SortNewestFirst orders posts by CreatedAt descending. Ties keep their
// relative order.
func SortNewestFirst(posts []*Post) {
	slices.SortStableFunc(posts, func(a, b *Post) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
}

type CreatePostRequest struct {
	AuthorID   string     `json:"-"`
	FrontImage string     `json:"frontImage"`
	BackImage  string     `json:"backImage"`
	Caption    string     `json:"caption"`
	Visibility Visibility `json:"visibility"`
	Location   *Location  `json:"location,omitempty"`
}

type AddCommentRequest struct {
	Text string `json:"text"`
}

// FeedItem is a post as rendered in the friends feed.
type FeedItem struct {
	*Post
	Author        user.AuthorSummary `json:"author"`
	LikeCount     int                `json:"likeCount"`
	CommentCount  int                `json:"commentCount"`
	LikedByViewer bool               `json:"likedByViewer"`
}

// Memory is a post in its author's archive.
type Memory struct {
	*Post
	Expired bool `json:"expired"`
}

type CaptureStatus struct {
	HasPostedToday    bool      `json:"hasPostedToday"`
	Today             string    `json:"today"`
	ResetsAt          time.Time `json:"resetsAt"`
	SecondsUntilReset int64     `json:"secondsUntilReset"`
	CurrentStreak     int       `json:"currentStreak"`
}
