package combat

import (
	"testing"

	"pgregory.net/rapid"

	"stickduel/arena/internal/events"
	"stickduel/arena/internal/rng"
)

func TestRollDamageRanges(t *testing.T) {
	cases := []struct {
		name     string
		ultimate bool
		draw     float64
		damage   int
		critical bool
	}{
		{name: "normal floor", draw: 0, damage: 50},
		{name: "normal crit boundary", draw: 0.5, damage: 200},
		{name: "normal crit", draw: 0.504, damage: 201, critical: true},
		{name: "normal ceiling", draw: 0.9999, damage: 349, critical: true},
		{name: "ultimate floor", ultimate: true, draw: 0, damage: 200},
		{name: "ultimate ceiling never crits", ultimate: true, draw: 0.9999, damage: 799},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			hit := RollDamage(PlayerOne, tc.ultimate, rng.NewScripted(tc.draw))
			if hit.Damage != tc.damage || hit.Critical != tc.critical {
				t.Fatalf("expected damage=%d critical=%t, got %+v", tc.damage, tc.critical, hit)
			}
		})
	}
}

func TestUltimateCritUnreachable(t *testing.T) {
	if UltimateAttack.MaxDamage() > UltimateAttack.CritThreshold {
		t.Fatalf("ultimate crit threshold is expected to sit above the maximum roll")
	}
	if NormalAttack.MaxDamage() != 349 {
		t.Fatalf("unexpected normal max %d", NormalAttack.MaxDamage())
	}
}

func TestHitTelemetryIntegration(t *testing.T) {
	hit := Hit{Attacker: PlayerTwo, Damage: 310, Critical: true, Applied: 250, Remaining: 0}
	telemetry := &events.CombatTelemetry{Kind: events.CombatHit, Metadata: map[string]string{"mode": "vs_cpu"}}
	hit.ApplyToTelemetry(telemetry)

	if telemetry.Attacker != 2 || telemetry.Defender != 1 {
		t.Fatalf("unexpected seats %d -> %d", telemetry.Attacker, telemetry.Defender)
	}
	if telemetry.Damage.Amount != 310 || !telemetry.Damage.Critical {
		t.Fatalf("unexpected damage summary %+v", telemetry.Damage)
	}
	if telemetry.Metadata["damage_applied"] != "250" || telemetry.Metadata["defender_health"] != "0" {
		t.Fatalf("unexpected metadata %v", telemetry.Metadata)
	}
	if telemetry.Metadata["mode"] != "vs_cpu" {
		t.Fatalf("existing metadata should be preserved")
	}
}

func TestHealthStaysWithinBounds(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		maxHealth := rapid.IntRange(1, 5000).Draw(t, "max")
		defender := NewCombatant(PlayerTwo, maxHealth, false)
		draws := rapid.SliceOfN(rapid.Float64Range(0, 0.999999), 1, 40).Draw(t, "draws")
		src := rng.NewScripted(draws...)
		for i := range draws {
			ultimate := rapid.Bool().Draw(t, "ultimate")
			hit := RollDamage(PlayerOne, ultimate, src)
			profile := ProfileFor(ultimate)
			if hit.Damage < profile.DamageBase || hit.Damage > profile.MaxDamage() {
				t.Fatalf("draw %d: damage %d outside profile", i, hit.Damage)
			}
			defender.TakeDamage(hit.Damage)
			if defender.Health < 0 || defender.Health > defender.MaxHealth {
				t.Fatalf("health %d escaped [0,%d]", defender.Health, defender.MaxHealth)
			}
		}
	})
}
