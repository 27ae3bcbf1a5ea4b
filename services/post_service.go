package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"dailyDuoAPI/internal/apperr"
	"dailyDuoAPI/internal/calendar"
	"dailyDuoAPI/internal/events"
	"dailyDuoAPI/internal/metrics"
	"dailyDuoAPI/internal/store"
	"dailyDuoAPI/internal/types/post"
	"dailyDuoAPI/internal/types/user"
)

// PostService stores the daily posts. The one-post-per-day gate and the
// author's counters are applied by the store in one atomic step.
type PostService struct {
	users  store.UserRepository
	posts  store.PostRepository
	cal    *calendar.Calendar
	events events.Publisher
	now    func() time.Time
}

func NewPostService(users store.UserRepository, posts store.PostRepository, cal *calendar.Calendar, publisher events.Publisher) *PostService {
	return &PostService{
		users:  users,
		posts:  posts,
		cal:    cal,
		events: publisher,
		now:    time.Now,
	}
}

type postCreatedEvent struct {
	PostID     string          `json:"postId"`
	AuthorID   string          `json:"authorId"`
	Visibility post.Visibility `json:"visibility"`
	PostDay    calendar.Day    `json:"postDay"`
	ExpiresAt  time.Time       `json:"expiresAt"`
}

func validateCreatePost(req *post.CreatePostRequest) error {
	if strings.TrimSpace(req.FrontImage) == "" {
		return apperr.Validation("frontImage", "is required")
	}
	if strings.TrimSpace(req.BackImage) == "" {
		return apperr.Validation("backImage", "is required")
	}
	if req.Visibility != "" && !req.Visibility.Valid() {
		return apperr.Validation("visibility", fmt.Sprintf("unknown value %q", req.Visibility))
	}
	if utf8.RuneCountInString(req.Caption) > post.MaxCaptionLength {
		return apperr.Validation("caption", fmt.Sprintf("must be at most %d characters", post.MaxCaptionLength))
	}
	if loc := req.Location; loc != nil {
		if loc.Latitude < -90 || loc.Latitude > 90 {
			return apperr.Validation("location.latitude", "must be within [-90, 90]")
		}
		if loc.Longitude < -180 || loc.Longitude > 180 {
			return apperr.Validation("location.longitude", "must be within [-180, 180]")
		}
	}
	return nil
}

// CreatePost stores today's post for req.AuthorID. It fails with
// apperr.ErrDailyLimitExceeded when the author already posted on the current
// local calendar day.
func (s *PostService) CreatePost(ctx context.Context, req *post.CreatePostRequest) (*post.Post, error) {
	if err := validateCreatePost(req); err != nil {
		return nil, err
	}

	visibility := req.Visibility
	if visibility == "" {
		visibility = post.VisibilityFriends
	}

	now := s.now()
	p := &post.Post{
		ID:         uuid.New().String(),
		AuthorID:   req.AuthorID,
		FrontImage: req.FrontImage,
		BackImage:  req.BackImage,
		Caption:    req.Caption,
		Visibility: visibility,
		Likes:      []string{},
		Comments:   []post.Comment{},
		Shares:     []string{},
		CreatedAt:  now,
		ExpiresAt:  now.Add(post.Lifetime),
		PostDay:    s.cal.DayOf(now),
	}
	if req.Location != nil {
		loc := *req.Location
		p.Location = &loc
	}

	author, err := s.posts.CreatePost(ctx, p)
	if err != nil {
		if errors.Is(err, apperr.ErrDailyLimitExceeded) {
			metrics.DailyLimitRejections.Inc()
			log.Printf("CreatePost: %s already posted on %s", req.AuthorID, p.PostDay)
			return nil, fmt.Errorf("%w: already posted on %s", apperr.ErrDailyLimitExceeded, p.PostDay)
		}
		log.Printf("CreatePost: failed for %s: %v", req.AuthorID, err)
		return nil, err
	}

	metrics.PostsCreated.Inc()
	log.Printf("CreatePost: %s posted %s (streak %d)", author.ID, p.ID, author.Stats.Streak)
	publish(ctx, s.events, events.New(events.PostCreated, p.AuthorID, postCreatedEvent{
		PostID:     p.ID,
		AuthorID:   p.AuthorID,
		Visibility: p.Visibility,
		PostDay:    p.PostDay,
		ExpiresAt:  p.ExpiresAt,
	}))
	return p, nil
}

func (s *PostService) LikePost(ctx context.Context, postID, userID string) (*post.Post, error) {
	p, err := s.posts.LikePost(ctx, postID, userID)
	if err != nil {
		return nil, err
	}
	metrics.PostInteractions.WithLabelValues("like").Inc()
	return p, nil
}

func (s *PostService) UnlikePost(ctx context.Context, postID, userID string) (*post.Post, error) {
	p, err := s.posts.UnlikePost(ctx, postID, userID)
	if err != nil {
		return nil, err
	}
	metrics.PostInteractions.WithLabelValues("unlike").Inc()
	return p, nil
}

func (s *PostService) SharePost(ctx context.Context, postID, userID string) (*post.Post, error) {
	p, err := s.posts.SharePost(ctx, postID, userID)
	if err != nil {
		return nil, err
	}
	metrics.PostInteractions.WithLabelValues("share").Inc()
	return p, nil
}

// AddComment appends a comment; the commenter's current username is copied
// onto it.
func (s *PostService) AddComment(ctx context.Context, postID, userID, text string) (*post.Post, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, apperr.Validation("text", "must not be blank")
	}
	if utf8.RuneCountInString(text) > post.MaxCommentLength {
		return nil, apperr.Validation("text", fmt.Sprintf("must be at most %d characters", post.MaxCommentLength))
	}

	commenter, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	p, err := s.posts.AddComment(ctx, postID, post.Comment{
		ID:        uuid.New().String(),
		UserID:    commenter.ID,
		Username:  commenter.Username,
		Text:      text,
		CreatedAt: s.now(),
	})
	if err != nil {
		log.Printf("AddComment: failed on %s: %v", postID, err)
		return nil, err
	}
	metrics.PostInteractions.WithLabelValues("comment").Inc()
	return p, nil
}

func (s *PostService) GetByID(ctx context.Context, postID string) (*post.Post, error) {
	return s.posts.GetPost(ctx, postID)
}

// GetByAuthor returns every post of authorID, newest first, expired or not.
func (s *PostService) GetByAuthor(ctx context.Context, authorID string) ([]*post.Post, error) {
	return s.posts.ListPosts(ctx, store.PostFilter{AuthorIDs: []string{authorID}})
}

func (s *PostService) GetAll(ctx context.Context) ([]*post.Post, error) {
	return s.posts.ListPosts(ctx, store.PostFilter{})
}

// Author returns the summary shown next to a post.
func (s *PostService) Author(ctx context.Context, authorID string) (user.AuthorSummary, error) {
	u, err := s.users.GetUserByID(ctx, authorID)
	if err != nil {
		return user.AuthorSummary{}, err
	}
	return u.Summary(), nil
}
