package terminal

import (
	"github.com/gdamore/tcell/v2"

	"stickduel/arena/internal/combat"
	"stickduel/arena/internal/match"
)

// Action is a player intent decoded from a key press.
type Action int

const (
	ActionNone Action = iota
	ActionQuit
	ActionSelectTwoPlayer
	ActionSelectVsCPU
	ActionSelectSurvival
	ActionOpenRules
	ActionCloseRules
	ActionReplayYes
	ActionReplayNo
	ActionAttackOne
	ActionAttackTwo
)

// Source names the input gate bucket an action is throttled in. Quit and unmapped keys
// are never throttled.
func (a Action) Source() string {
	switch a {
	case ActionNone, ActionQuit:
		return ""
	case ActionAttackOne:
		return "p1"
	case ActionAttackTwo:
		return "p2"
	default:
		return "menu"
	}
}

// Controls is the slice of the match session the terminal drives.
type Controls interface {
	SelectMode(match.Mode) error
	Attack(combat.PlayerID) bool
	ConfirmReplay(bool)
	OpenRules()
	CloseRules()
}

// MapKey decodes a key event against the overlay currently on screen.
func MapKey(ev *tcell.EventKey, overlay match.OverlayKind) Action {
	if ev == nil {
		return ActionNone
	}
	//1.- Ctrl-C always quits; Esc quits unless it is closing the rules.
	switch ev.Key() {
	case tcell.KeyCtrlC:
		return ActionQuit
	case tcell.KeyEscape:
		if overlay == match.OverlayRules {
			return ActionCloseRules
		}
		return ActionQuit
	case tcell.KeyEnter:
		switch overlay {
		case match.OverlayRules:
			return ActionCloseRules
		case match.OverlayNone:
			return ActionAttackOne
		}
		return ActionNone
	case tcell.KeyRune:
	default:
		return ActionNone
	}
	//2.- Runes are interpreted per overlay.
	r := ev.Rune()
	switch overlay {
	case match.OverlayModeSelect:
		switch r {
		case '1':
			return ActionSelectTwoPlayer
		case '2':
			return ActionSelectVsCPU
		case '3':
			return ActionSelectSurvival
		case 'r', 'R':
			return ActionOpenRules
		}
	case match.OverlayRules:
		if r == 'r' || r == 'R' {
			return ActionCloseRules
		}
	case match.OverlayGameOver:
		switch r {
		case 'y', 'Y':
			return ActionReplayYes
		case 'n', 'N':
			return ActionReplayNo
		}
	case match.OverlayNone:
		switch r {
		case 'q', 'Q', ' ':
			return ActionAttackOne
		case 'e', 'E':
			return ActionAttackTwo
		}
	}
	return ActionNone
}

// Dispatch forwards an action to the controls. It reports false when the action asks to quit.
func Dispatch(action Action, controls Controls) (bool, error) {
	if controls == nil {
		return action != ActionQuit, nil
	}
	switch action {
	case ActionQuit:
		return false, nil
	case ActionSelectTwoPlayer:
		return true, controls.SelectMode(match.ModeTwoPlayer)
	case ActionSelectVsCPU:
		return true, controls.SelectMode(match.ModeVsCPU)
	case ActionSelectSurvival:
		return true, controls.SelectMode(match.ModeSurvival)
	case ActionOpenRules:
		controls.OpenRules()
	case ActionCloseRules:
		controls.CloseRules()
	case ActionReplayYes:
		controls.ConfirmReplay(true)
	case ActionReplayNo:
		controls.ConfirmReplay(false)
	case ActionAttackOne:
		controls.Attack(combat.PlayerOne)
	case ActionAttackTwo:
		controls.Attack(combat.PlayerTwo)
	}
	return true, nil
}
