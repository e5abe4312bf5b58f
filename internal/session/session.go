// Package session holds the state of one interactive run: the operator's
// admin key and the participant currently selected.
package session

import (
	"crypto/subtle"
	"errors"
	"fmt"

	"github.com/maestroSwift/villarbolsillo/internal/common"
	"github.com/maestroSwift/villarbolsillo/internal/model"
)

// ErrNoParticipant is returned for participant actions before one is selected.
var ErrNoParticipant = errors.New("no participant selected")

// Level is the authorization an action needs.
type Level int

const (
	// Public actions need no key.
	Public Level = iota
	// Owner actions need the selected participant's id or the admin key.
	Owner
	// Admin actions need the admin key.
	Admin
)

func (l Level) String() string {
	switch l {
	case Public:
		return "public"
	case Owner:
		return "owner"
	case Admin:
		return "admin"
	default:
		return "unknown"
	}
}

// Session is created once per run and passed to every flow.
type Session struct {
	participant *model.Participant
	adminKey    string
}

// New starts a session guarded by adminKey.
func New(adminKey string) (*Session, error) {
	if adminKey == "" {
		return nil, fmt.Errorf("%w: admin key", common.ErrMissingConfig)
	}
	return &Session{adminKey: adminKey}, nil
}

// Select makes p the participant subsequent actions apply to.
func (s *Session) Select(p *model.Participant) {
	s.participant = p
}

// Clear forgets the selected participant.
func (s *Session) Clear() {
	s.participant = nil
}

// Participant returns the selected participant, or nil.
func (s *Session) Participant() *model.Participant {
	return s.participant
}

// CharacterID returns the selected participant's character, or "".
func (s *Session) CharacterID() string {
	if s.participant == nil {
		return ""
	}
	return s.participant.CharacterID
}

// RequireParticipant returns the selected participant or ErrNoParticipant.
func (s *Session) RequireParticipant() (*model.Participant, error) {
	if s.participant == nil {
		return nil, ErrNoParticipant
	}
	return s.participant, nil
}

// Authorize checks key against the level an action needs.
func (s *Session) Authorize(level Level, key string) error {
	switch level {
	case Public:
		return nil
	case Admin:
		if s.isAdmin(key) {
			return nil
		}
	case Owner:
		if s.participant == nil {
			return ErrNoParticipant
		}
		if s.isAdmin(key) || equal(key, s.participant.ID) {
			return nil
		}
	}
	return fmt.Errorf("%w: %s action", common.ErrUnauthorized, level)
}

func (s *Session) isAdmin(key string) bool {
	return equal(key, s.adminKey)
}

func equal(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
