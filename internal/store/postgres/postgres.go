// Package postgres implements store.Store on PostgreSQL through pgxpool.
//
// Each logical operation runs in one transaction. The author row is locked
// with SELECT ... FOR UPDATE while a post is created, so the daily gate, the
// insert and the stats update commit together; friend requests take a
// transaction-scoped advisory lock on the unordered pair.
package postgres

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"dailyDuoAPI/internal/apperr"
	"dailyDuoAPI/internal/calendar"
	"dailyDuoAPI/internal/store"
	"dailyDuoAPI/internal/types/friendship"
	"dailyDuoAPI/internal/types/post"
	"dailyDuoAPI/internal/types/user"
)

//go:embed schema.sql
var schema string

const uniqueViolation = "23505"

var _ store.Store = (*Store)(nil)

type Store struct {
	db *pgxpool.Pool
}

func New(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

// Connect opens a pool with the settings the API runs with in production.
func Connect(ctx context.Context, dbURL string) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(dbURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	poolConfig.MaxConns = 25
	poolConfig.MinConns = 5
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute
	poolConfig.HealthCheckPeriod = time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return pool, nil
}

// Migrate applies the schema. Every statement is idempotent.
func Migrate(ctx context.Context, db *pgxpool.Pool) error {
	if _, err := db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	log.Println("Migrate: schema applied")
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

func (s *Store) Close() {
	s.db.Close()
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// inTx runs fn in a transaction and commits when fn returns nil.
func (s *Store) inTx(ctx context.Context, op string, fn func(tx pgx.Tx) error) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return apperr.Storage(op+": begin", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return apperr.Storage(op+": commit", err)
	}
	return nil
}

// Users

const userColumns = `id, username, email, bio, avatar, total_posts, streak, friends_count, last_post_day, created_at, updated_at`

func scanUser(row pgx.Row) (*user.User, error) {
	u := &user.User{}
	var lastPostDay pgtype.Date
	err := row.Scan(
		&u.ID,
		&u.Username,
		&u.Email,
		&u.Bio,
		&u.Avatar,
		&u.Stats.TotalPosts,
		&u.Stats.Streak,
		&u.Stats.FriendsCount,
		&lastPostDay,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if lastPostDay.Valid {
		u.LastPostDay = calendar.DayFromDate(lastPostDay.Time)
	}
	return u, nil
}

func dayParam(d calendar.Day) any {
	if d.IsZero() {
		return nil
	}
	return d.Date()
}

func (s *Store) CreateUser(ctx context.Context, u *user.User, passwordHash string) error {
	query := `
	INSERT INTO users (id, username, email, bio, avatar, password_hash, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := s.db.Exec(ctx, query, u.ID, u.Username, u.Email, u.Bio, u.Avatar, passwordHash, u.CreatedAt, u.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return apperr.Conflict("username already taken")
		}
		return apperr.Storage("create user", err)
	}
	return nil
}

func (s *Store) getUser(ctx context.Context, q pgx.Row, key string) (*user.User, error) {
	u, err := scanUser(q)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("user", key)
		}
		return nil, apperr.Storage("get user", err)
	}
	return u, nil
}

func (s *Store) GetUserByID(ctx context.Context, id string) (*user.User, error) {
	row := s.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return s.getUser(ctx, row, id)
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (*user.User, error) {
	row := s.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE username = $1`, username)
	return s.getUser(ctx, row, username)
}

func (s *Store) GetPasswordHash(ctx context.Context, userID string) (string, error) {
	var hash string
	err := s.db.QueryRow(ctx, `SELECT password_hash FROM users WHERE id = $1`, userID).Scan(&hash)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", apperr.NotFound("user", userID)
		}
		return "", apperr.Storage("get password hash", err)
	}
	return hash, nil
}

func (s *Store) UpdateUser(ctx context.Context, id string, req *user.UpdateProfileRequest, now time.Time) (*user.User, error) {
	var updated *user.User
	err := s.inTx(ctx, "update user", func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1 FOR UPDATE`, id)
		u, err := s.getUser(ctx, row, id)
		if err != nil {
			return err
		}

		req.Apply(u)
		u.UpdatedAt = now

		query := `
		UPDATE users
		SET username = $2, email = $3, bio = $4, avatar = $5, updated_at = $6
		WHERE id = $1
		`
		if _, err := tx.Exec(ctx, query, u.ID, u.Username, u.Email, u.Bio, u.Avatar, u.UpdatedAt); err != nil {
			if isUniqueViolation(err) {
				return apperr.Conflict("username already taken")
			}
			return apperr.Storage("update user", err)
		}
		updated = u
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *Store) ListUsers(ctx context.Context) ([]*user.User, error) {
	rows, err := s.db.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY seq`)
	if err != nil {
		return nil, apperr.Storage("list users", err)
	}
	defer rows.Close()

	var users []*user.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, apperr.Storage("scan user", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Storage("list users", err)
	}
	return users, nil
}

// Friendships

const friendshipColumns = `id, requester_id, recipient_id, status, created_at, updated_at`

func scanFriendship(row pgx.Row) (*friendship.Friendship, error) {
	f := &friendship.Friendship{}
	err := row.Scan(&f.ID, &f.RequesterID, &f.RecipientID, &f.Status, &f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return f, nil
}

func (s *Store) CreateFriendship(ctx context.Context, f *friendship.Friendship) error {
	return s.inTx(ctx, "create friendship", func(tx pgx.Tx) error {
		pair := friendship.PairKey(f.RequesterID, f.RecipientID)
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, pair); err != nil {
			return apperr.Storage("lock friend pair", err)
		}

		var status friendship.FriendshipStatus
		err := tx.QueryRow(ctx, `
		SELECT status FROM friendships
		WHERE (requester_id = $1 AND recipient_id = $2)
		   OR (requester_id = $2 AND recipient_id = $1)
		`, f.RequesterID, f.RecipientID).Scan(&status)
		switch {
		case err == nil && status == friendship.FriendshipAccepted:
			return apperr.Conflict("already friends")
		case err == nil:
			return apperr.Conflict("request already sent")
		case !errors.Is(err, pgx.ErrNoRows):
			return apperr.Storage("check friendship", err)
		}

		query := `
		INSERT INTO friendships (id, requester_id, recipient_id, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		`
		_, err = tx.Exec(ctx, query, f.ID, f.RequesterID, f.RecipientID, f.Status, f.CreatedAt, f.UpdatedAt)
		if err != nil {
			if isUniqueViolation(err) {
				return apperr.Conflict("request already sent")
			}
			return apperr.Storage("create friendship", err)
		}
		return nil
	})
}

func (s *Store) getFriendship(ctx context.Context, q interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}, id string, forUpdate bool) (*friendship.Friendship, error) {
	query := `SELECT ` + friendshipColumns + ` FROM friendships WHERE id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	f, err := scanFriendship(q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("friend request", id)
		}
		return nil, apperr.Storage("get friendship", err)
	}
	return f, nil
}

func (s *Store) GetFriendship(ctx context.Context, id string) (*friendship.Friendship, error) {
	return s.getFriendship(ctx, s.db, id, false)
}

func adjustFriendsCount(ctx context.Context, tx pgx.Tx, f *friendship.Friendship, delta int) error {
	_, err := tx.Exec(ctx, `
	UPDATE users
	SET friends_count = GREATEST(friends_count + $3, 0)
	WHERE id IN ($1, $2)
	`, f.RequesterID, f.RecipientID, delta)
	if err != nil {
		return apperr.Storage("update friends count", err)
	}
	return nil
}

func (s *Store) AcceptFriendship(ctx context.Context, id string, now time.Time) (*friendship.Friendship, error) {
	var accepted *friendship.Friendship
	err := s.inTx(ctx, "accept friendship", func(tx pgx.Tx) error {
		f, err := s.getFriendship(ctx, tx, id, true)
		if err != nil {
			return err
		}
		if f.Status != friendship.FriendshipPending {
			return apperr.InvalidState("friend request is " + string(f.Status))
		}

		f.Status = friendship.FriendshipAccepted
		f.UpdatedAt = now
		_, err = tx.Exec(ctx, `UPDATE friendships SET status = $2, updated_at = $3 WHERE id = $1`, f.ID, f.Status, f.UpdatedAt)
		if err != nil {
			return apperr.Storage("accept friendship", err)
		}
		if err := adjustFriendsCount(ctx, tx, f, 1); err != nil {
			return err
		}
		accepted = f
		return nil
	})
	if err != nil {
		return nil, err
	}
	return accepted, nil
}

func (s *Store) DeleteFriendship(ctx context.Context, id string, require friendship.FriendshipStatus) (*friendship.Friendship, error) {
	var deleted *friendship.Friendship
	err := s.inTx(ctx, "delete friendship", func(tx pgx.Tx) error {
		f, err := s.getFriendship(ctx, tx, id, true)
		if err != nil {
			return err
		}
		if require != "" && f.Status != require {
			return apperr.InvalidState("friendship is " + string(f.Status))
		}

		if _, err := tx.Exec(ctx, `DELETE FROM friendships WHERE id = $1`, id); err != nil {
			return apperr.Storage("delete friendship", err)
		}
		if f.Status == friendship.FriendshipAccepted {
			if err := adjustFriendsCount(ctx, tx, f, -1); err != nil {
				return err
			}
		}
		deleted = f
		return nil
	})
	if err != nil {
		return nil, err
	}
	return deleted, nil
}

func (s *Store) ListFriendships(ctx context.Context, filter store.FriendshipFilter) ([]*friendship.Friendship, error) {
	query := `SELECT ` + friendshipColumns + ` FROM friendships WHERE ($1 = '' OR status = $1)`
	args := []any{string(filter.Status)}

	if filter.UserID != "" {
		args = append(args, filter.UserID)
		switch filter.Direction {
		case store.DirectionIncoming:
			query += ` AND recipient_id = $2`
		case store.DirectionOutgoing:
			query += ` AND requester_id = $2`
		default:
			query += ` AND (requester_id = $2 OR recipient_id = $2)`
		}
	}
	query += ` ORDER BY seq DESC`

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, apperr.Storage("list friendships", err)
	}
	defer rows.Close()

	var out []*friendship.Friendship
	for rows.Next() {
		f, err := scanFriendship(rows)
		if err != nil {
			return nil, apperr.Storage("scan friendship", err)
		}
		out = append(out, f)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Storage("list friendships", err)
	}
	return out, nil
}

// Posts

const postColumns = `id, author_id, front_image, back_image, caption, visibility, latitude, longitude, city, country, likes, shares, created_at, expires_at, post_day`

func scanPost(row pgx.Row) (*post.Post, error) {
	p := &post.Post{}
	var (
		lat, lng      *float64
		city, country *string
		postDay       time.Time
	)
	err := row.Scan(
		&p.ID,
		&p.AuthorID,
		&p.FrontImage,
		&p.BackImage,
		&p.Caption,
		&p.Visibility,
		&lat,
		&lng,
		&city,
		&country,
		&p.Likes,
		&p.Shares,
		&p.CreatedAt,
		&p.ExpiresAt,
		&postDay,
	)
	if err != nil {
		return nil, err
	}
	if lat != nil && lng != nil {
		p.Location = &post.Location{Latitude: *lat, Longitude: *lng}
		if city != nil {
			p.Location.City = *city
		}
		if country != nil {
			p.Location.Country = *country
		}
	}
	p.PostDay = calendar.DayFromDate(postDay)
	p.Comments = []post.Comment{}
	return p, nil
}

func locationParams(loc *post.Location) (lat, lng any, city, country any) {
	if loc == nil {
		return nil, nil, nil, nil
	}
	city, country = nullIfEmpty(loc.City), nullIfEmpty(loc.Country)
	return loc.Latitude, loc.Longitude, city, country
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func (s *Store) CreatePost(ctx context.Context, p *post.Post) (*user.User, error) {
	var author *user.User
	err := s.inTx(ctx, "create post", func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1 FOR UPDATE`, p.AuthorID)
		u, err := s.getUser(ctx, row, p.AuthorID)
		if err != nil {
			return err
		}

		var posted bool
		err = tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM posts WHERE author_id = $1 AND post_day = $2)`,
			p.AuthorID, p.PostDay.Date()).Scan(&posted)
		if err != nil {
			return apperr.Storage("check daily post", err)
		}
		if posted {
			return apperr.ErrDailyLimitExceeded
		}

		lat, lng, city, country := locationParams(p.Location)
		query := `
		INSERT INTO posts (id, author_id, front_image, back_image, caption, visibility, latitude, longitude, city, country, likes, shares, created_at, expires_at, post_day)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		`
		_, err = tx.Exec(ctx, query,
			p.ID, p.AuthorID, p.FrontImage, p.BackImage, p.Caption, p.Visibility,
			lat, lng, city, country, nonNil(p.Likes), nonNil(p.Shares),
			p.CreatedAt, p.ExpiresAt, p.PostDay.Date(),
		)
		if err != nil {
			if isUniqueViolation(err) {
				return apperr.ErrDailyLimitExceeded
			}
			return apperr.Storage("insert post", err)
		}

		u.RecordPost(p.PostDay)
		_, err = tx.Exec(ctx, `
		UPDATE users SET total_posts = $2, streak = $3, last_post_day = $4
		WHERE id = $1
		`, u.ID, u.Stats.TotalPosts, u.Stats.Streak, dayParam(u.LastPostDay))
		if err != nil {
			return apperr.Storage("update author stats", err)
		}
		author = u
		return nil
	})
	if err != nil {
		return nil, err
	}
	return author, nil
}

func nonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}

type queryer interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func (s *Store) loadPost(ctx context.Context, q queryer, id string, forUpdate bool) (*post.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts WHERE id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	p, err := scanPost(q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("post", id)
		}
		return nil, apperr.Storage("get post", err)
	}
	if err := s.attachComments(ctx, q, []*post.Post{p}); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Store) attachComments(ctx context.Context, q queryer, posts []*post.Post) error {
	if len(posts) == 0 {
		return nil
	}
	byID := make(map[string]*post.Post, len(posts))
	ids := make([]string, 0, len(posts))
	for _, p := range posts {
		byID[p.ID] = p
		ids = append(ids, p.ID)
	}

	rows, err := q.Query(ctx, `
	SELECT id, post_id, user_id, username, text, created_at
	FROM post_comments
	WHERE post_id = ANY($1)
	ORDER BY seq
	`, ids)
	if err != nil {
		return apperr.Storage("list comments", err)
	}
	defer rows.Close()

	for rows.Next() {
		var c post.Comment
		var postID string
		if err := rows.Scan(&c.ID, &postID, &c.UserID, &c.Username, &c.Text, &c.CreatedAt); err != nil {
			return apperr.Storage("scan comment", err)
		}
		if p, ok := byID[postID]; ok {
			p.Comments = append(p.Comments, c)
		}
	}
	if err := rows.Err(); err != nil {
		return apperr.Storage("list comments", err)
	}
	return nil
}

func (s *Store) GetPost(ctx context.Context, id string) (*post.Post, error) {
	return s.loadPost(ctx, s.db, id, false)
}

func (s *Store) ListPosts(ctx context.Context, filter store.PostFilter) ([]*post.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts WHERE TRUE`
	var args []any
	if len(filter.AuthorIDs) > 0 {
		args = append(args, filter.AuthorIDs)
		query += fmt.Sprintf(` AND author_id = ANY($%d)`, len(args))
	}
	if !filter.From.IsZero() {
		args = append(args, filter.From)
		query += fmt.Sprintf(` AND created_at >= $%d`, len(args))
	}
	if !filter.To.IsZero() {
		args = append(args, filter.To)
		query += fmt.Sprintf(` AND created_at < $%d`, len(args))
	}
	query += ` ORDER BY created_at DESC, seq DESC`

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, apperr.Storage("list posts", err)
	}
	defer rows.Close()

	var posts []*post.Post
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, apperr.Storage("scan post", err)
		}
		posts = append(posts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Storage("list posts", err)
	}
	rows.Close()

	if err := s.attachComments(ctx, s.db, posts); err != nil {
		return nil, err
	}
	return posts, nil
}

func (s *Store) HasPostOnDay(ctx context.Context, authorID string, day calendar.Day) (bool, error) {
	var posted bool
	err := s.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM posts WHERE author_id = $1 AND post_day = $2)`,
		authorID, day.Date()).Scan(&posted)
	if err != nil {
		return false, apperr.Storage("check daily post", err)
	}
	return posted, nil
}

// mutatePostSets locks the post row, applies fn and writes back the like and
// share sets.
func (s *Store) mutatePostSets(ctx context.Context, op, postID string, fn func(p *post.Post) bool) (*post.Post, error) {
	var out *post.Post
	err := s.inTx(ctx, op, func(tx pgx.Tx) error {
		p, err := s.loadPost(ctx, tx, postID, true)
		if err != nil {
			return err
		}
		if fn(p) {
			_, err = tx.Exec(ctx, `UPDATE posts SET likes = $2, shares = $3 WHERE id = $1`,
				p.ID, nonNil(p.Likes), nonNil(p.Shares))
			if err != nil {
				return apperr.Storage(op, err)
			}
		}
		out = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) LikePost(ctx context.Context, postID, userID string) (*post.Post, error) {
	return s.mutatePostSets(ctx, "like post", postID, func(p *post.Post) bool { return p.AddLike(userID) })
}

func (s *Store) UnlikePost(ctx context.Context, postID, userID string) (*post.Post, error) {
	return s.mutatePostSets(ctx, "unlike post", postID, func(p *post.Post) bool { return p.RemoveLike(userID) })
}

func (s *Store) SharePost(ctx context.Context, postID, userID string) (*post.Post, error) {
	return s.mutatePostSets(ctx, "share post", postID, func(p *post.Post) bool { return p.AddShare(userID) })
}

func (s *Store) AddComment(ctx context.Context, postID string, c post.Comment) (*post.Post, error) {
	var out *post.Post
	err := s.inTx(ctx, "add comment", func(tx pgx.Tx) error {
		p, err := s.loadPost(ctx, tx, postID, true)
		if err != nil {
			return err
		}
		_, err = tx.Exec(ctx, `
		INSERT INTO post_comments (id, post_id, user_id, username, text, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		`, c.ID, postID, c.UserID, c.Username, c.Text, c.CreatedAt)
		if err != nil {
			return apperr.Storage("add comment", err)
		}
		p.Comments = append(p.Comments, c)
		out = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
