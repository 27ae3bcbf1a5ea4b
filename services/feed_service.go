package services

import (
	"context"
	"errors"
	"time"

	"dailyDuoAPI/internal/apperr"
	"dailyDuoAPI/internal/calendar"
	"dailyDuoAPI/internal/store"
	"dailyDuoAPI/internal/types/post"
	"dailyDuoAPI/internal/types/user"
)

// FeedService answers the read-side questions: today's friends feed, the
// memories archive and the capture gate status.
type FeedService struct {
	users   store.UserRepository
	posts   store.PostRepository
	friends *FriendService
	cal     *calendar.Calendar
}

func NewFeedService(users store.UserRepository, posts store.PostRepository, friends *FriendService, cal *calendar.Calendar) *FeedService {
	return &FeedService{
		users:   users,
		posts:   posts,
		friends: friends,
		cal:     cal,
	}
}

// visibleTo reports whether viewerID may see p given whether the two are
// accepted friends. Authors always see their own posts.
func visibleTo(p *post.Post, viewerID string, friends bool) bool {
	if p.AuthorID == viewerID {
		return true
	}
	switch p.Visibility {
	case post.VisibilityPublic:
		return true
	case post.VisibilityFriends:
		return friends
	default:
		return false
	}
}

func (s *FeedService) authors(ctx context.Context, ids []string) (map[string]user.AuthorSummary, error) {
	out := make(map[string]user.AuthorSummary, len(ids))
	for _, id := range ids {
		if _, ok := out[id]; ok {
			continue
		}
		u, err := s.users.GetUserByID(ctx, id)
		if err != nil {
			if errors.Is(err, apperr.ErrNotFound) {
				continue
			}
			return nil, err
		}
		out[id] = u.Summary()
	}
	return out, nil
}

func feedItem(p *post.Post, author user.AuthorSummary, viewerID string) post.FeedItem {
	return post.FeedItem{
		Post:          p,
		Author:        author,
		LikeCount:     len(p.Likes),
		CommentCount:  len(p.Comments),
		LikedByViewer: p.LikedBy(viewerID),
	}
}

// GetFriendsFeed returns the posts userID and their accepted friends made
// during the local calendar day containing now, newest first. A post drops
// out at the next local midnight even though its 24h lifetime runs on.
func (s *FeedService) GetFriendsFeed(ctx context.Context, userID string, now time.Time) ([]post.FeedItem, error) {
	if _, err := s.users.GetUserByID(ctx, userID); err != nil {
		return nil, err
	}

	friendIDs, err := s.friends.FriendIDs(ctx, userID)
	if err != nil {
		return nil, err
	}
	authorIDs := append([]string{userID}, friendIDs...)

	start, end := s.cal.Bounds(now)
	posts, err := s.posts.ListPosts(ctx, store.PostFilter{
		AuthorIDs: authorIDs,
		From:      start,
		To:        end,
	})
	if err != nil {
		return nil, err
	}

	visible := posts[:0]
	for _, p := range posts {
		// Everyone in authorIDs is either the viewer or a friend.
		if visibleTo(p, userID, true) {
			visible = append(visible, p)
		}
	}

	summaries, err := s.authors(ctx, authorIDs)
	if err != nil {
		return nil, err
	}

	items := make([]post.FeedItem, 0, len(visible))
	for _, p := range visible {
		items = append(items, feedItem(p, summaries[p.AuthorID], userID))
	}
	return items, nil
}

// GetMemories returns every post userID ever made, newest first, each
// flagged with whether its 24h lifetime has passed at now.
func (s *FeedService) GetMemories(ctx context.Context, userID string, now time.Time) ([]post.Memory, error) {
	if _, err := s.users.GetUserByID(ctx, userID); err != nil {
		return nil, err
	}
	posts, err := s.posts.ListPosts(ctx, store.PostFilter{AuthorIDs: []string{userID}})
	if err != nil {
		return nil, err
	}

	memories := make([]post.Memory, 0, len(posts))
	for _, p := range posts {
		memories = append(memories, post.Memory{Post: p, Expired: p.IsExpired(now)})
	}
	return memories, nil
}

// Today is the calendar day containing now in the configured zone.
func (s *FeedService) Today(now time.Time) calendar.Day {
	return s.cal.DayOf(now)
}

// HasPostedToday uses the same calendar day as the posting gate.
func (s *FeedService) HasPostedToday(ctx context.Context, userID string, now time.Time) (bool, error) {
	return s.posts.HasPostOnDay(ctx, userID, s.cal.DayOf(now))
}

// CaptureStatus reports whether userID can still post today, how long until
// the gate resets at the next local midnight and the streak as of today.
func (s *FeedService) CaptureStatus(ctx context.Context, userID string, now time.Time) (*post.CaptureStatus, error) {
	u, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	posted, err := s.HasPostedToday(ctx, userID, now)
	if err != nil {
		return nil, err
	}
	today := s.cal.DayOf(now)
	return &post.CaptureStatus{
		HasPostedToday:    posted,
		CurrentStreak:     u.CurrentStreak(today),
		Today:             today.String(),
		ResetsAt:          s.cal.NextMidnight(now),
		SecondsUntilReset: int64(s.cal.UntilReset(now) / time.Second),
	}, nil
}

// GetMemoriesCalendar lays userID's posts for one month out on a calendar
// grid.
func (s *FeedService) GetMemoriesCalendar(ctx context.Context, userID string, year int, month time.Month, now time.Time) (*calendar.CalendarResponse, error) {
	if month < time.January || month > time.December {
		return nil, apperr.Validation("month", "must be within 1..12")
	}

	days := calendar.MonthDays(year, month)
	posts, err := s.posts.ListPosts(ctx, store.PostFilter{
		AuthorIDs: []string{userID},
		From:      s.cal.Midnight(days[0]),
		To:        s.cal.Midnight(days[len(days)-1].AddDays(1)),
	})
	if err != nil {
		return nil, err
	}

	byDay := make(map[calendar.Day]string, len(posts))
	for _, p := range posts {
		byDay[p.PostDay] = p.ID
	}

	today := s.cal.DayOf(now)
	resp := &calendar.CalendarResponse{Year: year, Month: int(month)}
	for _, d := range days {
		id, ok := byDay[d]
		resp.Days = append(resp.Days, &calendar.CalendarDay{
			Date:    d,
			HasPost: ok,
			PostID:  id,
			IsToday: d == today,
		})
	}
	return resp, nil
}

// ViewPost returns postID as viewerID sees it. Posts the viewer may not see
// are reported as not found.
func (s *FeedService) ViewPost(ctx context.Context, viewerID, postID string) (*post.FeedItem, error) {
	p, err := s.posts.GetPost(ctx, postID)
	if err != nil {
		return nil, err
	}

	friends := false
	if p.AuthorID != viewerID && p.Visibility == post.VisibilityFriends {
		if _, err := s.friends.FindAccepted(ctx, viewerID, p.AuthorID); err == nil {
			friends = true
		} else if !errors.Is(err, apperr.ErrNotFound) {
			return nil, err
		}
	}
	if !visibleTo(p, viewerID, friends) {
		return nil, apperr.NotFound("post", postID)
	}

	summaries, err := s.authors(ctx, []string{p.AuthorID})
	if err != nil {
		return nil, err
	}
	item := feedItem(p, summaries[p.AuthorID], viewerID)
	return &item, nil
}
