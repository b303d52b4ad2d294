package services

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"gorm.io/gorm"

	"github.com/wfunc/sololeveling/auth"
	"github.com/wfunc/sololeveling/logger"
	"github.com/wfunc/sololeveling/models"
	"github.com/wfunc/sololeveling/persistence"
)

type AuthService struct {
	*core
	players *PlayerService
}

type AuthResult struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates the user and their player record together.
func (s *AuthService) Register(ctx context.Context, email, password, displayName string) (*AuthResult, error) {
	email = normalizeEmail(email)
	displayName = strings.TrimSpace(displayName)

	verr := &ValidationError{}
	if _, err := mail.ParseAddress(email); err != nil || email == "" {
		verr.add("email", "must be a valid email address")
	}
	if len(password) < 6 {
		verr.add("password", "must be at least 6 characters")
	}
	if len([]rune(displayName)) < 2 {
		verr.add("displayName", "must be at least 2 characters")
	}
	if err := verr.err(); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, err
	}

	user := &models.User{Email: email, PasswordHash: hash, DisplayName: displayName}
	err = s.db.Transaction(ctx, func(tx *gorm.DB) error {
		if err := tx.Create(user).Error; err != nil {
			return err
		}
		return tx.Create(models.NewPlayer(user.ID)).Error
	})
	if errors.Is(persistence.Translate(err), persistence.ErrDuplicateKey) {
		return nil, ErrEmailTaken
	}
	if err != nil {
		return nil, fmt.Errorf("register: %w", err)
	}

	token, err := s.tokens.Issue(user.ID, user.Email)
	if err != nil {
		return nil, err
	}
	logger.Log.Infow("user registered", "user_id", user.ID)
	return &AuthResult{Token: token, User: user}, nil
}

func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	var user models.User
	err := persistence.Translate(s.db.WithContext(ctx).Where("email = ?", normalizeEmail(email)).First(&user).Error)
	if errors.Is(err, persistence.ErrRecordNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	if !s.hasher.Compare(user.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(user.ID, user.Email)
	if err != nil {
		return nil, err
	}
	return &AuthResult{Token: token, User: &user}, nil
}

// Authenticate resolves a bearer token to the identity it was issued for.
func (s *AuthService) Authenticate(token string) (auth.Identity, error) {
	id, err := s.tokens.Verify(token)
	if err != nil {
		return auth.Identity{}, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	return id, nil
}
