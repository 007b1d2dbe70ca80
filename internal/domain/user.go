// Package domain contains entity without logic, just meta-data
package domain

import (
	"errors"
	"strings"

	"github.com/google/uuid"
)

const (
	MaxUsernameLen = 64
	shortIDLen     = 4
)

var (
	ErrUsernameTooLong = errors.New("username too long")
	ErrUsernameEmpty   = errors.New("username empty")
)

// SessionID identifies one connected participant. It is also the address
// used for direct delivery.
type SessionID string

// NewSessionID returns a fresh, globally unique identity.
func NewSessionID() SessionID {
	return SessionID(uuid.NewString())
}

// Short returns the first characters of the id, used in synthesized names.
func (id SessionID) Short() string {
	s := string(id)
	if len(s) > shortIDLen {
		return s[:shortIDLen]
	}
	return s
}

// DefaultPlayerName is the name a player carries until it registers one.
func DefaultPlayerName(id SessionID) string {
	return "Player-" + id.Short()
}

// UnknownSenderName is used when a chat sender has neither a binding nor a player.
func UnknownSenderName(id SessionID) string {
	return "Unknown-" + id.Short()
}

// NormalizeUsername trims the name and checks its length.
func NormalizeUsername(username string) (string, error) {
	username = strings.TrimSpace(username)
	if len(username) == 0 {
		return "", ErrUsernameEmpty
	}
	if len(username) > MaxUsernameLen {
		return "", ErrUsernameTooLong
	}
	return username, nil
}
