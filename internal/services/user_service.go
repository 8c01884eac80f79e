package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"keshi/internal/core"
)

const bcryptCost = 10

// ErrWrongPassword deliberately reads the same as an unknown user at the API
// surface; handlers must not reveal which half failed.
var ErrWrongPassword = errors.New("wrong password")

// UserService backs the auth and admin surfaces. No lesson or course logic
// depends on which user acted; this exists so the callers can gate access.
type UserService struct {
	users UserStore
}

func NewUserService(users UserStore) *UserService {
	return &UserService{users: users}
}

// Create registers a user with a bcrypt-hashed password.
func (s *UserService) Create(ctx context.Context, username, password string, isAdmin bool) (core.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return core.User{}, core.ErrEmptyUsername
	}
	if password == "" {
		return core.User{}, core.ErrEmptyPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return core.User{}, fmt.Errorf("hash password: %w", err)
	}

	return s.users.CreateUser(ctx, core.User{
		Username:     username,
		PasswordHash: string(hash),
		IsAdmin:      isAdmin,
	})
}

// Authenticate verifies credentials and returns the user.
func (s *UserService) Authenticate(ctx context.Context, username, password string) (core.User, error) {
	user, err := s.users.GetUserByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		return core.User{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return core.User{}, ErrWrongPassword
	}
	return user, nil
}

// Update renames a user and/or resets their password. An empty field keeps
// the current value; supplying neither is a validation error.
func (s *UserService) Update(ctx context.Context, id, username, password string) (core.User, error) {
	username = strings.TrimSpace(username)
	if username == "" && password == "" {
		return core.User{}, fmt.Errorf("%w: nothing to update", core.ErrValidation)
	}

	user, err := s.users.GetUser(ctx, id)
	if err != nil {
		return core.User{}, err
	}
	if username != "" {
		user.Username = username
	}
	if password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
		if err != nil {
			return core.User{}, fmt.Errorf("hash password: %w", err)
		}
		user.PasswordHash = string(hash)
	}

	return s.users.UpdateUser(ctx, user.ID, user.Username, user.PasswordHash)
}

func (s *UserService) Get(ctx context.Context, id string) (core.User, error) {
	return s.users.GetUser(ctx, id)
}

func (s *UserService) List(ctx context.Context) ([]core.User, error) {
	return s.users.ListUsers(ctx)
}

// Delete removes a user. A user cannot delete their own account, so the
// system can never be left without a working login by accident.
func (s *UserService) Delete(ctx context.Context, id, requesterID string) error {
	if id == requesterID {
		return fmt.Errorf("%w: cannot delete your own account", core.ErrValidation)
	}
	return s.users.DeleteUser(ctx, id)
}
