// Package accounts manages journal users and their preferences.
//
// Users are kept as a JSON list under the "users" key. Credentials are
// compared in plaintext; this mirrors the browser application the server
// backs and is not meant to be a security boundary.
package accounts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/wricardo/moodjournal/game/storage"
)

var (
	ErrUserExists         = errors.New("username already exists")
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrInvalidInput       = errors.New("username and password are required")
)

const (
	usersKey    = "users"
	themePrefix = "theme_"
)

// User is a registered account
type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// Public returns a copy of the user without the password
func (u User) Public() PublicUser {
	return PublicUser{ID: u.ID, Username: u.Username}
}

// PublicUser is the user representation returned to clients
type PublicUser struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// Service registers and authenticates users
type Service struct {
	kv    storage.Store
	newID func() string
	mu    sync.Mutex
}

// NewService creates an account service backed by kv
func NewService(kv storage.Store) *Service {
	return &Service{
		kv:    kv,
		newID: uuid.NewString,
	}
}

// Register creates a new user. Usernames are unique (exact match).
func (s *Service) Register(ctx context.Context, username, password string) (*User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	users, err := s.loadUsers(ctx)
	if err != nil {
		return nil, err
	}

	for _, u := range users {
		if u.Username == username {
			return nil, ErrUserExists
		}
	}

	user := User{
		ID:       s.newID(),
		Username: username,
		Password: password,
	}
	users = append(users, user)

	if err := s.saveUsers(ctx, users); err != nil {
		return nil, err
	}
	return &user, nil
}

// Login returns the user whose username and password match
func (s *Service) Login(ctx context.Context, username, password string) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	users, err := s.loadUsers(ctx)
	if err != nil {
		return nil, err
	}

	for _, u := range users {
		if u.Username == strings.TrimSpace(username) && u.Password == password {
			user := u
			return &user, nil
		}
	}
	return nil, ErrInvalidCredentials
}

// Get returns the user with the given id
func (s *Service) Get(ctx context.Context, id string) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	users, err := s.loadUsers(ctx)
	if err != nil {
		return nil, err
	}

	for _, u := range users {
		if u.ID == id {
			user := u
			return &user, nil
		}
	}
	return nil, ErrUserNotFound
}

// Theme returns the dark mode preference of a user (false by default)
func (s *Service) Theme(ctx context.Context, userID string) (bool, error) {
	raw, err := s.kv.Get(ctx, themePrefix+userID)
	if errors.Is(err, storage.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read theme: %w", err)
	}

	dark, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("failed to parse theme: %w", err)
	}
	return dark, nil
}

// SetTheme stores the dark mode preference of a user
func (s *Service) SetTheme(ctx context.Context, userID string, dark bool) error {
	if err := s.kv.Set(ctx, themePrefix+userID, strconv.FormatBool(dark)); err != nil {
		return fmt.Errorf("failed to save theme: %w", err)
	}
	return nil
}

func (s *Service) loadUsers(ctx context.Context) ([]User, error) {
	raw, err := s.kv.Get(ctx, usersKey)
	if errors.Is(err, storage.ErrNotFound) {
		return []User{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read users: %w", err)
	}

	var users []User
	if err := json.Unmarshal([]byte(raw), &users); err != nil {
		return nil, fmt.Errorf("failed to parse users: %w", err)
	}
	return users, nil
}

func (s *Service) saveUsers(ctx context.Context, users []User) error {
	data, err := json.Marshal(users)
	if err != nil {
		return fmt.Errorf("failed to marshal users: %w", err)
	}
	if err := s.kv.Set(ctx, usersKey, string(data)); err != nil {
		return fmt.Errorf("failed to save users: %w", err)
	}
	return nil
}
