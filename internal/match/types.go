package match

//go:generate go tool mockgen -destination=./mocks/sinks_mock.go -package=mocks . UISink,RenderSink

import (
	"errors"
	"fmt"
	"strings"

	"stickduel/arena/internal/combat"
)

// ErrUnknownMode is returned when a mode name cannot be parsed.
var ErrUnknownMode = errors.New("unknown match mode")

// Mode selects who controls combatant two and whether rounds chain.
type Mode string

const (
	ModeTwoPlayer Mode = "two_player"
	ModeVsCPU     Mode = "vs_cpu"
	ModeSurvival  Mode = "survival"
)

// Modes lists every playable mode in menu order.
var Modes = []Mode{ModeTwoPlayer, ModeVsCPU, ModeSurvival}

// ParseMode accepts the canonical names plus the short aliases used on the command line.
func ParseMode(raw string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "two_player", "2player", "2p", "pvp":
		return ModeTwoPlayer, nil
	case "vs_cpu", "cpu", "vs-cpu":
		return ModeVsCPU, nil
	case "survival":
		return ModeSurvival, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownMode, raw)
	}
}

// Valid reports whether the mode is one of the playable modes.
func (m Mode) Valid() bool {
	return m == ModeTwoPlayer || m == ModeVsCPU || m == ModeSurvival
}

// CPUOpponent reports whether combatant two is driven by the agent in this mode.
func (m Mode) CPUOpponent() bool {
	return m == ModeVsCPU || m == ModeSurvival
}

// Title is the human readable menu label.
func (m Mode) Title() string {
	switch m {
	case ModeTwoPlayer:
		return "2 Player"
	case ModeVsCPU:
		return "Vs CPU"
	case ModeSurvival:
		return "Survival"
	default:
		return string(m)
	}
}

// Status is the coarse lifecycle state of the controller.
type Status string

const (
	StatusMenu    Status = "menu"
	StatusPlaying Status = "playing"
	StatusOver    Status = "over"
)

// Phase refines StatusPlaying.
type Phase string

const (
	// PhaseRegular is normal play with the countdown running.
	PhaseRegular Phase = "regular"
	// PhaseSuddenDeath follows a tied timeout; only knockouts can end it.
	PhaseSuddenDeath Phase = "sudden_death"
	// PhaseIntermission is the pause between cleared survival rounds.
	PhaseIntermission Phase = "intermission"
)

// Outcome classifies a decisive win evaluation.
type Outcome string

const (
	OutcomeDraw         Outcome = "draw"
	OutcomeWinner       Outcome = "winner"
	OutcomeRoundCleared Outcome = "round_cleared"
)

// Result captures a decided round.
type Result struct {
	Outcome Outcome         `json:"outcome"`
	Winner  combat.PlayerID `json:"winner,omitempty"`
	Label   string          `json:"label"`
	Round   int             `json:"round"`
	Timeout bool            `json:"timeout"`
}

// Verdict renders the text shown on the game-over screen.
func (r Result) Verdict() string {
	switch r.Outcome {
	case OutcomeDraw:
		return "Draw!"
	case OutcomeRoundCleared:
		return fmt.Sprintf("Round %d Cleared!", r.Round)
	default:
		return fmt.Sprintf("%s Wins!", r.Label)
	}
}

// Context is the explicit state of one controller. Snapshots deep-copy the combatants.
type Context struct {
	ID            string            `json:"id"`
	Mode          Mode              `json:"mode"`
	Status        Status            `json:"status"`
	Phase         Phase             `json:"phase"`
	Remaining     int               `json:"remaining"`
	SurvivalRound int               `json:"survival_round"`
	One           *combat.Combatant `json:"player_one"`
	Two           *combat.Combatant `json:"player_two"`
	Result        *Result           `json:"result,omitempty"`
	Message       string            `json:"message,omitempty"`
	Projectiles   int               `json:"projectiles"`
}

// Combatant returns the combatant in the given seat.
func (c *Context) Combatant(id combat.PlayerID) *combat.Combatant {
	if c == nil {
		return nil
	}
	switch id {
	case combat.PlayerOne:
		return c.One
	case combat.PlayerTwo:
		return c.Two
	}
	return nil
}

// Clone deep-copies the context so observers never alias live combatants.
func (c *Context) Clone() Context {
	if c == nil {
		return Context{}
	}
	clone := *c
	if c.One != nil {
		one := *c.One
		clone.One = &one
	}
	if c.Two != nil {
		two := *c.Two
		clone.Two = &two
	}
	if c.Result != nil {
		result := *c.Result
		clone.Result = &result
	}
	return clone
}

// PlayerHUD is the per-combatant slice of the heads-up display.
type PlayerHUD struct {
	ID        combat.PlayerID `json:"id"`
	Label     string          `json:"label"`
	Health    int             `json:"health"`
	MaxHealth int             `json:"max_health"`
	Percent   float64         `json:"percent"`
	Text      string          `json:"text"`
	Attacks   int             `json:"attacks"`
	CanAttack bool            `json:"can_attack"`
}

// HUD is pushed to the UI sink whenever visible state changes.
type HUD struct {
	Mode      Mode         `json:"mode"`
	Status    Status       `json:"status"`
	Phase     Phase        `json:"phase"`
	Round     int          `json:"round"`
	Remaining int          `json:"remaining"`
	Players   [2]PlayerHUD `json:"players"`
	Message   string       `json:"message,omitempty"`
	Verdict   string       `json:"verdict,omitempty"`
}

// OverlayKind names the modal screens the UI can show.
type OverlayKind string

const (
	OverlayNone       OverlayKind = "none"
	OverlayModeSelect OverlayKind = "mode_select"
	OverlayRules      OverlayKind = "rules"
	OverlayGameOver   OverlayKind = "game_over"
)

// Overlay describes the modal screen to display. OverlayNone hides every overlay.
type Overlay struct {
	Kind    OverlayKind `json:"kind"`
	Verdict string      `json:"verdict,omitempty"`
	Modes   []Mode      `json:"modes,omitempty"`
}

// Fighter is a combatant as the renderer sees it.
type Fighter struct {
	ID       combat.PlayerID `json:"id"`
	Position combat.Vec2     `json:"position"`
	Facing   float64         `json:"facing"`
	CPU      bool            `json:"cpu"`
	Defeated bool            `json:"defeated"`
}

// Frame is emitted once per tick while a match is on screen.
type Frame struct {
	Tick        uint64              `json:"tick"`
	Fighters    [2]Fighter          `json:"fighters"`
	Projectiles []combat.Projectile `json:"projectiles"`
}

// UISink receives HUD updates and overlay changes.
type UISink interface {
	UpdateHUD(HUD)
	ShowOverlay(Overlay)
}

// RenderSink receives one frame per tick.
type RenderSink interface {
	RenderFrame(Frame)
}

// hudLabel is the short name used in health text.
func hudLabel(c *combat.Combatant) string {
	if c == nil {
		return ""
	}
	if c.CPU {
		return "CPU"
	}
	return c.ID.String()
}
