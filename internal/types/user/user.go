package user

import (
	"time"

	"dailyDuoAPI/internal/calendar"
)

// Stats are denormalized counters maintained by the stores alongside the
// writes that change them. They are never recomputed from posts/friendships.
type Stats struct {
	TotalPosts   int `json:"totalPosts"`
	Streak       int `json:"streak"`
	FriendsCount int `json:"friendsCount"`
}

type User struct {
	ID          string       `json:"id"`
	Username    string       `json:"username"`
	Email       string       `json:"email"`
	Bio         string       `json:"bio"`
	Avatar      string       `json:"avatar"`
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`
	Stats       Stats        `json:"stats"`
	LastPostDay calendar.Day `json:"lastPostDay"`
}

func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	c := *u
	return &c
}

func (u *User) Summary() AuthorSummary {
	return AuthorSummary{ID: u.ID, Username: u.Username, Avatar: u.Avatar}
}

// AuthorSummary is the slice of a User shown next to posts and comments.
type AuthorSummary struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Avatar   string `json:"avatar"`
}

const DefaultBio = "Add a bio to your profile"

type CreateUserRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Bio      string `json:"bio,omitempty"`
	Avatar   string `json:"avatar,omitempty"`
}

// UpdateProfileRequest carries only the fields the caller wants to change.
// A nil field is left untouched; a non-nil empty string is a real value and
// goes through validation like any other.
type UpdateProfileRequest struct {
	Username *string `json:"username,omitempty"`
	Email    *string `json:"email,omitempty"`
	Bio      *string `json:"bio,omitempty"`
	Avatar   *string `json:"avatar,omitempty"`
}

func (r *UpdateProfileRequest) IsEmpty() bool {
	return r.Username == nil && r.Email == nil && r.Bio == nil && r.Avatar == nil
}

// Apply merges the supplied fields into u.
func (r *UpdateProfileRequest) Apply(u *User) {
	if r.Username != nil {
		u.Username = *r.Username
	}
	if r.Email != nil {
		u.Email = *r.Email
	}
	if r.Bio != nil {
		u.Bio = *r.Bio
	}
	if r.Avatar != nil {
		u.Avatar = *r.Avatar
	}
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	User      *User     `json:"user"`
}

// RecordPost updates the post-derived counters for a post made on day.
// The streak continues when the previous post was on the day before and
// restarts at 1 otherwise. A day older than LastPostDay only counts toward
// TotalPosts.
func (u *User) RecordPost(day calendar.Day) {
	u.Stats.TotalPosts++
	switch {
	case u.LastPostDay.IsZero() || u.LastPostDay.Before(day.Prev()):
		u.Stats.Streak = 1
	case u.LastPostDay == day.Prev():
		u.Stats.Streak++
	case day.Before(u.LastPostDay) || day == u.LastPostDay:
		return
	}
	u.LastPostDay = day
}

// CurrentStreak is the streak as of today. A streak survives until the end of
// the day after LastPostDay; after a missed day it reads 0 until the next post.
func (u *User) CurrentStreak(today calendar.Day) int {
	if u.LastPostDay.IsZero() {
		return 0
	}
	if u.LastPostDay == today || u.LastPostDay == today.Prev() {
		return u.Stats.Streak
	}
	return 0
}
