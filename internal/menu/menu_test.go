package menu

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maestroSwift/villarbolsillo/internal/session"
)

func TestTransition(t *testing.T) {
	tests := []struct {
		name       string
		state      State
		input      string
		wantAction Action
		wantLevel  session.Level
		wantNext   State
	}{
		{"create participant", Main, "c", ActionCreateParticipant, session.Admin, Participant},
		{"list is public", Main, "L", ActionListParticipants, session.Public, Main},
		{"quit needs admin", Main, " s ", ActionQuit, session.Admin, Exit},
		{"character menu needs owner", Participant, "P", ActionNone, session.Owner, Character},
		{"back to main", Participant, "v", ActionNone, session.Public, Main},
		{"assign needs admin", Character, "A", ActionAssignCharacter, session.Admin, Character},
		{"accounts need owner", Character, "O", ActionNone, session.Owner, Accounts},
		{"open accounts", Accounts, "N", ActionOpenAccounts, session.Admin, Accounts},
		{"new movement", Movements, "n", ActionNewMovement, session.Owner, Movements},
		{"purge needs admin", Movements, "T", ActionPurgeMovements, session.Admin, Movements},
		{"back from movements", Movements, "V", ActionNone, session.Public, Accounts},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opt, err := Transition(tt.state, tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.wantAction, opt.Action)
			assert.Equal(t, tt.wantLevel, opt.Level)
			assert.Equal(t, tt.wantNext, opt.Next)
		})
	}
}

func TestTransition_Invalid(t *testing.T) {
	_, err := Transition(Main, "X")
	assert.ErrorIs(t, err, ErrInvalidCommand)

	_, err = Transition(Main, "")
	assert.ErrorIs(t, err, ErrInvalidCommand)

	_, err = Transition(Exit, "V")
	assert.ErrorIs(t, err, ErrInvalidCommand)
}

func TestMenus_WellFormed(t *testing.T) {
	for _, state := range []State{Main, Participant, Character, Accounts, Movements} {
		m, ok := For(state)
		require.True(t, ok, state)
		assert.NotEmpty(t, m.Title)

		seen := make(map[string]bool)
		for _, opt := range m.Options {
			assert.False(t, seen[opt.Key], "%s: duplicate key %s", state, opt.Key)
			seen[opt.Key] = true
			assert.NotEmpty(t, opt.Label)
			assert.NotEmpty(t, opt.Next, "%s/%s has no next state", state, opt.Key)
			if opt.Next != Exit {
				_, ok := For(opt.Next)
				assert.True(t, ok, "%s/%s leads to unknown state %s", state, opt.Key, opt.Next)
			}
		}
	}

	_, ok := For(Exit)
	assert.False(t, ok)
}
