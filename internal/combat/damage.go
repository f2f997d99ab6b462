package combat

import (
	"fmt"
	"strconv"

	"stickduel/arena/internal/events"
	"stickduel/arena/internal/logging"
	"stickduel/arena/internal/rng"
)

// Hit describes a resolved projectile impact.
type Hit struct {
	Attacker  PlayerID
	Ultimate  bool
	Damage    int
	Critical  bool
	Applied   int
	Remaining int
}

// RollDamage draws the damage of a connecting shot as floor(r*span)+base.
func RollDamage(attacker PlayerID, ultimate bool, src rng.Source) Hit {
	profile := ProfileFor(ultimate)
	//1.- Draw once from the shared source so scripted tests can pin the value.
	damage := rng.Span(src, profile.DamageBase, profile.DamageSpan)
	//2.- Tag the hit as critical strictly above the profile threshold.
	return Hit{
		Attacker: attacker,
		Ultimate: ultimate,
		Damage:   damage,
		Critical: damage > profile.CritThreshold,
	}
}

// Message renders the transient notice shown for the hit.
func (h Hit) Message() string {
	if h.Critical {
		return fmt.Sprintf("%s CRITICAL! %d DMG!", h.Attacker, h.Damage)
	}
	return fmt.Sprintf("%s Hit! %d DMG!", h.Attacker, h.Damage)
}

// LoggingFields returns structured fields describing the hit.
func (h Hit) LoggingFields() []logging.Field {
	return []logging.Field{
		logging.Int("attacker", int(h.Attacker)),
		logging.Bool("ultimate", h.Ultimate),
		logging.Int("damage", h.Damage),
		logging.Int("damage_applied", h.Applied),
		logging.Bool("critical", h.Critical),
		logging.Int("defender_health", h.Remaining),
	}
}

// ApplyToTelemetry copies the damage summary onto a combat telemetry record.
func (h Hit) ApplyToTelemetry(telemetry *events.CombatTelemetry) {
	if telemetry == nil {
		return
	}
	//1.- Fill the numeric summary consumed by spectators.
	telemetry.Attacker = int(h.Attacker)
	telemetry.Defender = int(h.Attacker.Opponent())
	telemetry.Damage.Amount = h.Damage
	telemetry.Damage.Critical = h.Critical
	telemetry.Damage.Ultimate = h.Ultimate
	//2.- Mirror the defender's remaining health into metadata without clobbering caller keys.
	metadata := make(map[string]string, len(telemetry.Metadata)+2)
	for key, value := range telemetry.Metadata {
		metadata[key] = value
	}
	metadata["damage_applied"] = strconv.Itoa(h.Applied)
	metadata["defender_health"] = strconv.Itoa(h.Remaining)
	telemetry.Metadata = metadata
}
