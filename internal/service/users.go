package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"unicode/utf8"

	"github.com/sirupsen/logrus"

	"github.com/Kerhoff/WishShare/internal/auth"
	"github.com/Kerhoff/WishShare/internal/models"
	"github.com/Kerhoff/WishShare/internal/repository"
)

const maxDisplayNameLength = 100

// RegisterInput is the payload of a registration
type RegisterInput struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name"`
}

// ProfileInput holds the profile fields to change; nil fields are kept
type ProfileInput struct {
	DisplayName *string `json:"display_name"`
	AvatarURL   *string `json:"avatar_url"`
}

// Session is returned by Register and Login
type Session struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

// Register creates an account and signs the user in
func (s *Service) Register(ctx context.Context, in RegisterInput) (*Session, error) {
	email := models.NormalizeEmail(in.Email)
	displayName := strings.TrimSpace(in.DisplayName)

	var v validator
	v.check(validEmail(email), "email", "must be a valid email address")
	v.check(utf8.RuneCountInString(in.Password) >= auth.MinPasswordLength, "password",
		fmt.Sprintf("must be at least %d characters", auth.MinPasswordLength))
	v.check(displayName != "", "display_name", "is required")
	v.check(utf8.RuneCountInString(displayName) <= maxDisplayNameLength, "display_name",
		fmt.Sprintf("must be at most %d characters", maxDisplayNameLength))
	if err := v.err(); err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	user, err := s.Users.Create(ctx, &models.User{
		Email:        email,
		DisplayName:  displayName,
		PasswordHash: hash,
	})
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, fmt.Errorf("email %s is already registered: %w", email, ErrConflict)
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.logger.WithFields(logrus.Fields{"user_id": user.ID, "email": user.Email}).Info("Registered new user")
	return s.newSession(user)
}

// Login checks the credentials and issues a token
func (s *Service) Login(ctx context.Context, email, password string) (*Session, error) {
	user, err := s.Users.GetByEmail(ctx, models.NormalizeEmail(email))
	if err != nil {
		return nil, fmt.Errorf("failed to lookup user: %w", err)
	}
	if user == nil || !auth.CheckPassword(user.PasswordHash, password) {
		return nil, fmt.Errorf("invalid email or password: %w", ErrUnauthorized)
	}
	return s.newSession(user)
}

func (s *Service) newSession(user *models.User) (*Session, error) {
	token, err := s.tokens.Issue(user.ID, user.Email)
	if err != nil {
		return nil, err
	}
	return &Session{Token: token, User: user}, nil
}

// Authenticate verifies a bearer token and returns the user it belongs to
func (s *Service) Authenticate(ctx context.Context, token string) (*models.User, error) {
	claims, err := s.tokens.Verify(token)
	if err != nil {
		return nil, fmt.Errorf("%v: %w", err, ErrUnauthorized)
	}

	user, err := s.Users.GetByID(ctx, claims.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to lookup user %d: %w", claims.UserID, err)
	}
	if user == nil {
		return nil, fmt.Errorf("user %d no longer exists: %w", claims.UserID, ErrUnauthorized)
	}
	return user, nil
}

// CurrentUser returns the profile of userID
func (s *Service) CurrentUser(ctx context.Context, userID int64) (*models.User, error) {
	user, err := s.Users.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to lookup user %d: %w", userID, err)
	}
	if user == nil {
		return nil, fmt.Errorf("user %d: %w", userID, ErrNotFound)
	}
	return user, nil
}

// UpdateProfile changes the display name and avatar of userID
func (s *Service) UpdateProfile(ctx context.Context, userID int64, in ProfileInput) (*models.User, error) {
	user, err := s.CurrentUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	var v validator
	if in.DisplayName != nil {
		name := strings.TrimSpace(*in.DisplayName)
		v.check(name != "", "display_name", "must not be empty")
		v.check(utf8.RuneCountInString(name) <= maxDisplayNameLength, "display_name",
			fmt.Sprintf("must be at most %d characters", maxDisplayNameLength))
		user.DisplayName = name
	}
	if in.AvatarURL != nil {
		avatar := strings.TrimSpace(*in.AvatarURL)
		v.check(avatar == "" || validURL(avatar), "avatar_url", "must be an http or https URL")
		user.AvatarURL = avatar
	}
	if err := v.err(); err != nil {
		return nil, err
	}

	updated, err := s.Users.Update(ctx, user)
	if err != nil {
		return nil, fromRepo(err, "failed to update user %d", userID)
	}
	return updated, nil
}

func validEmail(email string) bool {
	if email == "" {
		return false
	}
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email
}
