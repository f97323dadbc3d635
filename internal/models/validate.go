package models

import (
	"fmt"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/IsnuMdr/todo-app/internal/common"
)

const (
	MinTaskTitleLength = 3
	MaxTitleLength     = 100
	MinSecretLength    = 6
)

// NormalizeTitle trims title and checks its length.
func NormalizeTitle(title string) (string, error) {
	t := strings.TrimSpace(title)
	if t == "" {
		return "", fmt.Errorf("%w: title is required", common.ErrValidation)
	}
	if utf8.RuneCountInString(t) > MaxTitleLength {
		return "", fmt.Errorf("%w: title must be at most %d characters", common.ErrValidation, MaxTitleLength)
	}
	return t, nil
}

// NormalizeTaskTitle is NormalizeTitle plus the minimum length for tasks.
// Subtask titles only need to be non-empty.
func NormalizeTaskTitle(title string) (string, error) {
	t, err := NormalizeTitle(title)
	if err != nil {
		return "", err
	}
	if utf8.RuneCountInString(t) < MinTaskTitleLength {
		return "", fmt.Errorf("%w: title must be at least %d characters", common.ErrValidation, MinTaskTitleLength)
	}
	return t, nil
}

// ParseSchedule parses an RFC 3339 timestamp and converts it to UTC.
func ParseSchedule(s string) (time.Time, error) {
	ts, err := time.Parse(time.RFC3339, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: scheduledAt must be RFC 3339: %v", common.ErrValidation, err)
	}
	return ts.UTC(), nil
}

// NormalizeEmail checks that email is a bare address and returns it trimmed.
func NormalizeEmail(email string) (string, error) {
	e := strings.TrimSpace(email)
	addr, err := mail.ParseAddress(e)
	if err != nil || addr.Address != e {
		return "", fmt.Errorf("%w: invalid email %q", common.ErrValidation, email)
	}
	return e, nil
}

func ValidateSecret(secret string) error {
	if utf8.RuneCountInString(secret) < MinSecretLength {
		return fmt.Errorf("%w: secret must be at least %d characters", common.ErrValidation, MinSecretLength)
	}
	return nil
}

// Validate checks a create command and returns the normalised title and
// schedule.
func (in TaskInput) Validate() (string, time.Time, error) {
	title, err := NormalizeTaskTitle(in.Title)
	if err != nil {
		return "", time.Time{}, err
	}
	at, err := ParseSchedule(in.ScheduledAt)
	if err != nil {
		return "", time.Time{}, err
	}
	return title, at, nil
}
