package match

import (
	"fmt"
	"time"

	"stickduel/arena/internal/combat"
)

const (
	// SurvivalHealthStep is the extra health combatant two gains per cleared round.
	SurvivalHealthStep = 100
	// SurvivalRestoreEvery marks the rounds that announce a health restore.
	SurvivalRestoreEvery = 5

	// GetReadyDelay separates mode selection from the first tick.
	GetReadyDelay = 1500 * time.Millisecond
	// RoundClearedDisplay is how long a cleared survival round is announced.
	RoundClearedDisplay = 2000 * time.Millisecond
	// IntermissionDelay is the pause before the next survival round starts.
	IntermissionDelay = 2500 * time.Millisecond
	// GameOverDelay separates the verdict from the game-over overlay.
	GameOverDelay = 2000 * time.Millisecond
	// SuddenDeathDisplay is how long the tie-break announcement stays up.
	SuddenDeathDisplay = 3000 * time.Millisecond
	// RestoreDisplay is how long the survival restore announcement stays up.
	RestoreDisplay = 1500 * time.Millisecond
	// FarewellDisplay is how long the decline message stays up.
	FarewellDisplay = 5000 * time.Millisecond
)

// RoundPlan describes how the combatants of a new round are built.
type RoundPlan struct {
	Mode         Mode
	Round        int
	TwoMax       int
	TwoCPU       bool
	Announcement string
}

// PlanRound derives the combatant setup for a mode and survival round.
func PlanRound(mode Mode, round int) RoundPlan {
	if round < 1 {
		round = 1
	}
	plan := RoundPlan{Mode: mode, Round: round, TwoMax: combat.DefaultMaxHealth, TwoCPU: mode.CPUOpponent()}
	if mode != ModeSurvival {
		return plan
	}
	//1.- Survival stiffens the opponent each round and marks every fifth round with a restore.
	plan.TwoMax = combat.DefaultMaxHealth + SurvivalHealthStep*(round-1)
	if round > 1 && round%SurvivalRestoreEvery == 0 {
		plan.Announcement = fmt.Sprintf("Round %d! HP Restored!", round)
	}
	return plan
}

// Build allocates fresh combatants for the plan. Player one always starts at full health.
func (p RoundPlan) Build() (*combat.Combatant, *combat.Combatant) {
	return combat.NewCombatant(combat.PlayerOne, combat.DefaultMaxHealth, false),
		combat.NewCombatant(combat.PlayerTwo, p.TwoMax, p.TwoCPU)
}

// Evaluation is the outcome of a win check.
type Evaluation struct {
	Decided     bool
	Result      Result
	SuddenDeath bool
}

// Evaluate applies the knockout rules first and the timeout tie-break only when both
// combatants are still standing.
func Evaluate(mode Mode, round int, one, two *combat.Combatant, timeout bool) Evaluation {
	if one == nil || two == nil {
		return Evaluation{}
	}
	oneDown, twoDown := one.Defeated(), two.Defeated()
	switch {
	case oneDown && twoDown:
		return decided(Result{Outcome: OutcomeDraw, Label: "Draw", Round: round, Timeout: timeout})
	case oneDown:
		return decided(Result{Outcome: OutcomeWinner, Winner: combat.PlayerTwo, Label: two.Label(), Round: round, Timeout: timeout})
	case twoDown:
		if mode == ModeSurvival {
			return decided(Result{Outcome: OutcomeRoundCleared, Winner: combat.PlayerOne, Label: one.Label(), Round: round, Timeout: timeout})
		}
		return decided(Result{Outcome: OutcomeWinner, Winner: combat.PlayerOne, Label: one.Label(), Round: round, Timeout: timeout})
	case !timeout:
		return Evaluation{}
	}
	//1.- Timeout with both standing: strictly more health wins, an exact tie goes to sudden death.
	switch {
	case one.Health < two.Health:
		return decided(Result{Outcome: OutcomeWinner, Winner: combat.PlayerTwo, Label: two.Label(), Round: round, Timeout: true})
	case two.Health < one.Health:
		return decided(Result{Outcome: OutcomeWinner, Winner: combat.PlayerOne, Label: one.Label(), Round: round, Timeout: true})
	default:
		return Evaluation{SuddenDeath: true}
	}
}

func decided(result Result) Evaluation {
	return Evaluation{Decided: true, Result: result}
}
