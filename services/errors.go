package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrQuestNotFound          = errors.New("quest not found")
	ErrQuestNotActive         = errors.New("quest is not active")
	ErrQuestExpired           = errors.New("quest expired")
	ErrItemNotFound           = errors.New("item not found")
	ErrUnknownShopItem        = errors.New("unknown shop item")
	ErrInsufficientStatPoints = errors.New("not enough stat points")
	ErrEmailTaken             = errors.New("email already registered")
	ErrInvalidCredentials     = errors.New("invalid credentials")
	ErrUnauthorized           = errors.New("unauthorized")
	ErrSkillNotFound          = errors.New("skill not found")
	ErrSkillLocked            = errors.New("skill requires a higher level")
)

type Issue struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError lists every rejected input field.
type ValidationError struct {
	Issues []Issue
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Issues))
	for _, is := range e.Issues {
		parts = append(parts, fmt.Sprintf("%s: %s", is.Field, is.Message))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) add(field, format string, args ...any) {
	e.Issues = append(e.Issues, Issue{Field: field, Message: fmt.Sprintf(format, args...)})
}

func (e *ValidationError) err() error {
	if len(e.Issues) == 0 {
		return nil
	}
	return e
}
