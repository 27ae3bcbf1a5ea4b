package services

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"dailyDuoAPI/internal/apperr"
	"dailyDuoAPI/internal/events"
	"dailyDuoAPI/internal/metrics"
	"dailyDuoAPI/internal/store"
	"dailyDuoAPI/internal/types/user"
)

const (
	MaxBioLength = 280
	searchLimit  = 20
)

type UserService struct {
	users    store.UserRepository
	events   events.Publisher
	now      func() time.Time
	hashCost int
}

func NewUserService(users store.UserRepository, publisher events.Publisher) *UserService {
	return &UserService{
		users:    users,
		events:   publisher,
		now:      time.Now,
		hashCost: bcrypt.DefaultCost,
	}
}

func validateUsername(username string) error {
	if strings.TrimSpace(username) == "" {
		return apperr.Validation("username", "must not be blank")
	}
	return nil
}

func validateEmail(email string) error {
	if !strings.Contains(email, "@") {
		return apperr.Validation("email", "must be a valid address")
	}
	return nil
}

func validateBio(bio string) error {
	if utf8.RuneCountInString(bio) > MaxBioLength {
		return apperr.Validation("bio", fmt.Sprintf("must be at most %d characters", MaxBioLength))
	}
	return nil
}

// CreateUser registers a new user with zeroed stats. The password is stored
// as a bcrypt hash.
func (s *UserService) CreateUser(ctx context.Context, req *user.CreateUserRequest) (*user.User, error) {
	username := strings.TrimSpace(req.Username)
	email := strings.TrimSpace(req.Email)

	if err := validateUsername(username); err != nil {
		return nil, err
	}
	if email == "" {
		return nil, apperr.Validation("email", "must not be blank")
	}
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if req.Password == "" {
		return nil, apperr.Validation("password", "must not be blank")
	}
	if err := validateBio(req.Bio); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.hashCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	bio := req.Bio
	if strings.TrimSpace(bio) == "" {
		bio = user.DefaultBio
	}

	now := s.now()
	u := &user.User{
		ID:        uuid.New().String(),
		Username:  username,
		Email:     email,
		Bio:       bio,
		Avatar:    req.Avatar,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.users.CreateUser(ctx, u, string(hash)); err != nil {
		log.Printf("CreateUser: failed to create %q: %v", username, err)
		return nil, err
	}

	metrics.UsersRegistered.Inc()
	publish(ctx, s.events, events.New(events.UserRegistered, u.ID, u.Summary()))
	return u, nil
}

func (s *UserService) FindByUsername(ctx context.Context, username string) (*user.User, error) {
	return s.users.GetUserByUsername(ctx, strings.TrimSpace(username))
}

func (s *UserService) GetByID(ctx context.Context, id string) (*user.User, error) {
	return s.users.GetUserByID(ctx, id)
}

// UpdateUser validates every supplied field and merges them into the stored
// user. Fields left nil are untouched, including the stats.
func (s *UserService) UpdateUser(ctx context.Context, id string, req *user.UpdateProfileRequest) (*user.User, error) {
	if req == nil || req.IsEmpty() {
		return s.users.GetUserByID(ctx, id)
	}

	upd := *req
	if upd.Username != nil {
		trimmed := strings.TrimSpace(*upd.Username)
		if err := validateUsername(trimmed); err != nil {
			return nil, err
		}
		upd.Username = &trimmed
	}
	if upd.Email != nil {
		if err := validateEmail(*upd.Email); err != nil {
			return nil, err
		}
	}
	if upd.Bio != nil {
		if err := validateBio(*upd.Bio); err != nil {
			return nil, err
		}
	}

	u, err := s.users.UpdateUser(ctx, id, &upd, s.now())
	if err != nil {
		log.Printf("UpdateUser: failed to update %s: %v", id, err)
		return nil, err
	}
	return u, nil
}

func (s *UserService) ListUsers(ctx context.Context) ([]*user.User, error) {
	return s.users.ListUsers(ctx)
}

// SearchUsers returns users whose username starts with query, ignoring case,
// shortest names first.
func (s *UserService) SearchUsers(ctx context.Context, query string) ([]*user.User, error) {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return nil, apperr.Validation("query", "must not be blank")
	}

	all, err := s.users.ListUsers(ctx)
	if err != nil {
		return nil, err
	}

	matches := make([]*user.User, 0)
	for _, u := range all {
		if strings.HasPrefix(strings.ToLower(u.Username), query) {
			matches = append(matches, u)
		}
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return len(matches[i].Username) < len(matches[j].Username)
	})
	if len(matches) > searchLimit {
		matches = matches[:searchLimit]
	}
	return matches, nil
}

// checkPassword compares a login attempt with the stored hash.
func (s *UserService) checkPassword(ctx context.Context, userID, password string) error {
	hash, err := s.users.GetPasswordHash(ctx, userID)
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return fmt.Errorf("%w: invalid username or password", apperr.ErrUnauthorized)
	}
	return nil
}
