package combat

import "time"

// AttackProfile captures the tuning of one attack variant.
type AttackProfile struct {
	Cooldown      time.Duration
	DamageBase    int
	DamageSpan    int
	CritThreshold int
	Size          float64
}

const (
	// HitChanceFloor is the draw a shot must exceed to connect (80% hit rate).
	HitChanceFloor = 0.20
	// MuzzleOffset is the horizontal distance from the shooter to the spawn point.
	MuzzleOffset = 65.0
	// HitSpawnLift raises connecting shots to the defender's chest.
	HitSpawnLift = 40.0
	// MissSpawnLift sends missing shots over the defender's head.
	MissSpawnLift = 120.0
	// ProjectileSpeed is the horizontal displacement per reference frame.
	ProjectileSpeed = 20.0

	// MissMessageDuration is how long a miss notice stays on screen.
	MissMessageDuration = 1000 * time.Millisecond
	// HitMessageDuration is how long a hit notice stays on screen.
	HitMessageDuration = 1500 * time.Millisecond
)

var (
	// NormalAttack is the default shot.
	NormalAttack = AttackProfile{
		Cooldown:      1200 * time.Millisecond,
		DamageBase:    50,
		DamageSpan:    300,
		CritThreshold: 200,
		Size:          10,
	}
	// UltimateAttack is the heavy shot. Its crit threshold sits above the maximum
	// roll, so ultimates never report a critical.
	UltimateAttack = AttackProfile{
		Cooldown:      3000 * time.Millisecond,
		DamageBase:    200,
		DamageSpan:    600,
		CritThreshold: 1000,
		Size:          30,
	}
)

// ProfileFor selects the profile of an attack variant.
func ProfileFor(ultimate bool) AttackProfile {
	if ultimate {
		return UltimateAttack
	}
	return NormalAttack
}

// MaxDamage is the highest value the profile can roll.
func (p AttackProfile) MaxDamage() int { return p.DamageBase + p.DamageSpan - 1 }

// ProjectileTag picks the tint of a shot.
func ProjectileTag(attacker PlayerID, ultimate bool) string {
	if !ultimate {
		return "white"
	}
	if attacker == PlayerTwo {
		return "gold"
	}
	return "blue"
}
