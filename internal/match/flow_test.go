package match

import (
	"errors"
	"testing"

	"stickduel/arena/internal/combat"
)

func TestPlanRoundScalesSurvival(t *testing.T) {
	cases := []struct {
		mode         Mode
		round        int
		twoMax       int
		cpu          bool
		announcement string
	}{
		{mode: ModeTwoPlayer, round: 3, twoMax: 1000},
		{mode: ModeVsCPU, round: 1, twoMax: 1000, cpu: true},
		{mode: ModeSurvival, round: 1, twoMax: 1000, cpu: true},
		{mode: ModeSurvival, round: 3, twoMax: 1200, cpu: true},
		{mode: ModeSurvival, round: 4, twoMax: 1300, cpu: true},
		{mode: ModeSurvival, round: 5, twoMax: 1400, cpu: true, announcement: "Round 5! HP Restored!"},
		{mode: ModeSurvival, round: 10, twoMax: 1900, cpu: true, announcement: "Round 10! HP Restored!"},
	}
	for _, tc := range cases {
		plan := PlanRound(tc.mode, tc.round)
		if plan.TwoMax != tc.twoMax || plan.TwoCPU != tc.cpu || plan.Announcement != tc.announcement {
			t.Fatalf("%s round %d: unexpected plan %+v", tc.mode, tc.round, plan)
		}
		one, two := plan.Build()
		if one.Health != combat.DefaultMaxHealth || two.Health != tc.twoMax || two.MaxHealth != tc.twoMax {
			t.Fatalf("%s round %d: unexpected combatants %+v %+v", tc.mode, tc.round, one, two)
		}
		if one.Position != combat.SpawnOne || two.Position != combat.SpawnTwo {
			t.Fatalf("combatants must start on their spawn points")
		}
	}
	if PlanRound(ModeSurvival, 0).Round != 1 {
		t.Fatalf("rounds below one should clamp to one")
	}
}

func fighters(oneHealth, twoHealth int, cpu bool) (*combat.Combatant, *combat.Combatant) {
	one := combat.NewCombatant(combat.PlayerOne, combat.DefaultMaxHealth, false)
	two := combat.NewCombatant(combat.PlayerTwo, combat.DefaultMaxHealth, cpu)
	one.Health, two.Health = oneHealth, twoHealth
	return one, two
}

func TestEvaluateResolvesRounds(t *testing.T) {
	cases := []struct {
		name     string
		mode     Mode
		one, two int
		cpu      bool
		timeout  bool
		decided  bool
		sudden   bool
		verdict  string
	}{
		{name: "double knockout", mode: ModeTwoPlayer, one: 0, two: 0, decided: true, verdict: "Draw!"},
		{name: "player one down", mode: ModeTwoPlayer, one: 0, two: 10, decided: true, verdict: "Player 2 Wins!"},
		{name: "player one down to cpu", mode: ModeVsCPU, one: 0, two: 10, cpu: true, decided: true, verdict: "CPU Wins!"},
		{name: "player two down", mode: ModeVsCPU, one: 10, two: 0, cpu: true, decided: true, verdict: "Player 1 Wins!"},
		{name: "survival cleared", mode: ModeSurvival, one: 10, two: 0, cpu: true, decided: true, verdict: "Round 3 Cleared!"},
		{name: "both standing", mode: ModeTwoPlayer, one: 10, two: 10},
		{name: "timeout player one ahead", mode: ModeTwoPlayer, one: 600, two: 500, timeout: true, decided: true, verdict: "Player 1 Wins!"},
		{name: "timeout cpu ahead", mode: ModeVsCPU, one: 500, two: 600, cpu: true, timeout: true, decided: true, verdict: "CPU Wins!"},
		{name: "timeout survival ahead ends", mode: ModeSurvival, one: 700, two: 600, cpu: true, timeout: true, decided: true, verdict: "Player 1 Wins!"},
		{name: "timeout tie", mode: ModeTwoPlayer, one: 500, two: 500, timeout: true, sudden: true},
		{name: "knockout beats timeout", mode: ModeTwoPlayer, one: 0, two: 900, timeout: true, decided: true, verdict: "Player 2 Wins!"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			one, two := fighters(tc.one, tc.two, tc.cpu)
			eval := Evaluate(tc.mode, 3, one, two, tc.timeout)
			if eval.Decided != tc.decided || eval.SuddenDeath != tc.sudden {
				t.Fatalf("unexpected evaluation %+v", eval)
			}
			if tc.decided && eval.Result.Verdict() != tc.verdict {
				t.Fatalf("expected verdict %q, got %q", tc.verdict, eval.Result.Verdict())
			}
		})
	}
}

func TestParseMode(t *testing.T) {
	for raw, want := range map[string]Mode{"2player": ModeTwoPlayer, " CPU ": ModeVsCPU, "survival": ModeSurvival} {
		got, err := ParseMode(raw)
		if err != nil || got != want {
			t.Fatalf("ParseMode(%q) = %q, %v", raw, got, err)
		}
	}
	if _, err := ParseMode("arcade"); !errors.Is(err, ErrUnknownMode) {
		t.Fatalf("expected ErrUnknownMode, got %v", err)
	}
}

func TestContextCloneIsDeep(t *testing.T) {
	one, two := fighters(500, 400, false)
	ctx := Context{One: one, Two: two, Result: &Result{Outcome: OutcomeDraw}}
	clone := ctx.Clone()
	clone.One.Health = 1
	clone.Result.Outcome = OutcomeWinner
	if ctx.One.Health != 500 || ctx.Result.Outcome != OutcomeDraw {
		t.Fatalf("clone aliases the live context")
	}
}
