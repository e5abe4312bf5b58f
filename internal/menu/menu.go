// Package menu describes the interactive menus as a state machine. Each
// state has a fixed table of options; Transition maps a state and the
// operator's input to the action to run and the state that follows it.
package menu

import (
	"errors"
	"fmt"
	"strings"

	"github.com/maestroSwift/villarbolsillo/internal/session"
)

// ErrInvalidCommand is returned for input no option of the menu accepts.
var ErrInvalidCommand = errors.New("invalid command")

// State is a menu the operator can be in.
type State string

// Menu states.
const (
	Main        State = "main"
	Participant State = "participant"
	Character   State = "character"
	Accounts    State = "accounts"
	Movements   State = "movements"
	Exit        State = "exit"
)

// Action names the work an option triggers.
type Action string

// Actions. ActionNone only changes state.
const (
	ActionNone              Action = ""
	ActionCreateParticipant Action = "create-participant"
	ActionListParticipants  Action = "list-participants"
	ActionFindParticipant   Action = "find-participant"
	ActionShowParticipant   Action = "show-participant"
	ActionEditParticipant   Action = "edit-participant"
	ActionDeleteParticipant Action = "delete-participant"
	ActionAssignCharacter   Action = "assign-character"
	ActionRemoveCharacter   Action = "remove-character"
	ActionOpenAccounts      Action = "open-accounts"
	ActionDeleteAccount     Action = "delete-account"
	ActionListAccounts      Action = "list-accounts"
	ActionNewMovement       Action = "new-movement"
	ActionListMovements     Action = "list-movements"
	ActionRefundMovement    Action = "refund-movement"
	ActionDeleteMovement    Action = "delete-movement"
	ActionPurgeMovements    Action = "purge-movements"
	ActionQuit              Action = "quit"
)

// Option is one line of a menu.
type Option struct {
	Key    string
	Label  string
	Action Action
	Level  session.Level
	// Next is the state after the action succeeds.
	Next State
}

// Menu is a titled list of options.
type Menu struct {
	Title   string
	Options []Option
}

var menus = map[State]Menu{
	Main: {
		Title: "Main menu",
		Options: []Option{
			{Key: "C", Label: "Create participant", Action: ActionCreateParticipant, Level: session.Admin, Next: Participant},
			{Key: "L", Label: "List participants", Action: ActionListParticipants, Next: Main},
			{Key: "R", Label: "Find participant", Action: ActionFindParticipant, Next: Participant},
			{Key: "S", Label: "Quit", Action: ActionQuit, Level: session.Admin, Next: Exit},
		},
	},
	Participant: {
		Title: "Participant",
		Options: []Option{
			{Key: "D", Label: "Show details", Action: ActionShowParticipant, Next: Participant},
			{Key: "M", Label: "Edit participant", Action: ActionEditParticipant, Level: session.Admin, Next: Participant},
			{Key: "B", Label: "Delete participant", Action: ActionDeleteParticipant, Level: session.Admin, Next: Main},
			{Key: "R", Label: "Find another participant", Action: ActionFindParticipant, Next: Participant},
			{Key: "P", Label: "Character", Level: session.Owner, Next: Character},
			{Key: "V", Label: "Back", Next: Main},
		},
	},
	Character: {
		Title: "Character",
		Options: []Option{
			{Key: "A", Label: "Assign character", Action: ActionAssignCharacter, Level: session.Admin, Next: Character},
			{Key: "B", Label: "Remove character", Action: ActionRemoveCharacter, Level: session.Admin, Next: Character},
			{Key: "P", Label: "Find another participant", Action: ActionFindParticipant, Next: Participant},
			{Key: "O", Label: "Accounts", Level: session.Owner, Next: Accounts},
			{Key: "L", Label: "Refresh", Action: ActionShowParticipant, Next: Character},
			{Key: "V", Label: "Back", Next: Participant},
		},
	},
	Accounts: {
		Title: "Accounts",
		Options: []Option{
			{Key: "L", Label: "List accounts", Action: ActionListAccounts, Next: Accounts},
			{Key: "N", Label: "Open accounts", Action: ActionOpenAccounts, Level: session.Admin, Next: Accounts},
			{Key: "B", Label: "Delete account", Action: ActionDeleteAccount, Level: session.Admin, Next: Accounts},
			{Key: "O", Label: "Movements", Level: session.Owner, Next: Movements},
			{Key: "V", Label: "Back", Next: Character},
		},
	},
	Movements: {
		Title: "Movements",
		Options: []Option{
			{Key: "N", Label: "New movement", Action: ActionNewMovement, Level: session.Owner, Next: Movements},
			{Key: "L", Label: "List movements", Action: ActionListMovements, Next: Movements},
			{Key: "M", Label: "Refund movement", Action: ActionRefundMovement, Level: session.Owner, Next: Movements},
			{Key: "B", Label: "Delete movement", Action: ActionDeleteMovement, Level: session.Owner, Next: Movements},
			{Key: "T", Label: "Delete all movements", Action: ActionPurgeMovements, Level: session.Admin, Next: Movements},
			{Key: "V", Label: "Back", Next: Accounts},
		},
	},
}

// For returns the menu shown in state.
func For(state State) (Menu, bool) {
	m, ok := menus[state]
	return m, ok
}

// Transition resolves the operator's input in state. It never has side
// effects; the caller runs the action and moves to Next when it succeeds.
func Transition(state State, input string) (Option, error) {
	m, ok := menus[state]
	if !ok {
		return Option{}, fmt.Errorf("%w: no menu for state %q", ErrInvalidCommand, state)
	}
	key := strings.ToUpper(strings.TrimSpace(input))
	for _, opt := range m.Options {
		if opt.Key == key {
			return opt, nil
		}
	}
	return Option{}, fmt.Errorf("%w: %q", ErrInvalidCommand, input)
}
