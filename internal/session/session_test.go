package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maestroSwift/villarbolsillo/internal/common"
	"github.com/maestroSwift/villarbolsillo/internal/model"
)

func TestNew_RequiresKey(t *testing.T) {
	_, err := New("")
	assert.ErrorIs(t, err, common.ErrMissingConfig)
}

func TestAuthorize(t *testing.T) {
	s, err := New("falken")
	require.NoError(t, err)

	tests := []struct {
		name     string
		selected *model.Participant
		level    Level
		key      string
		wantErr  error
	}{
		{"public needs nothing", nil, Public, "", nil},
		{"admin with admin key", nil, Admin, "falken", nil},
		{"admin with wrong key", nil, Admin, "joshua", common.ErrUnauthorized},
		{"admin with participant id", &model.Participant{ID: "recabc"}, Admin, "recabc", common.ErrUnauthorized},
		{"owner without selection", nil, Owner, "falken", ErrNoParticipant},
		{"owner with own id", &model.Participant{ID: "recabc"}, Owner, "recabc", nil},
		{"owner with admin key", &model.Participant{ID: "recabc"}, Owner, "falken", nil},
		{"owner with another id", &model.Participant{ID: "recabc"}, Owner, "recxyz", common.ErrUnauthorized},
		{"owner with empty key", &model.Participant{ID: "recabc"}, Owner, "", common.ErrUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s.Select(tt.selected)
			err := s.Authorize(tt.level, tt.key)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestSelection(t *testing.T) {
	s, err := New("key")
	require.NoError(t, err)

	_, err = s.RequireParticipant()
	assert.ErrorIs(t, err, ErrNoParticipant)
	assert.Empty(t, s.CharacterID())

	s.Select(&model.Participant{ID: "recp", CharacterID: "recc"})
	p, err := s.RequireParticipant()
	require.NoError(t, err)
	assert.Equal(t, "recp", p.ID)
	assert.Equal(t, "recc", s.CharacterID())

	s.Clear()
	assert.Nil(t, s.Participant())
}
