package events

import (
	"fmt"
	"time"

	"google.golang.org/protobuf/types/known/structpb"
)

// CombatKind labels the stage of the attack pipeline a telemetry record describes.
type CombatKind string

const (
	// CombatAttack is emitted when a shot leaves the muzzle.
	CombatAttack CombatKind = "attack"
	// CombatHit is emitted when a connecting shot resolves its damage.
	CombatHit CombatKind = "hit"
	// CombatMiss is emitted when a missing shot leaves the arena.
	CombatMiss CombatKind = "miss"
)

// Vector2 represents a point on the arena plane.
type Vector2 struct {
	X float64
	Y float64
}

// DamageDetails captures combat damage metrics.
type DamageDetails struct {
	Amount   int
	Critical bool
	Ultimate bool
}

// CombatTelemetry describes a combat event before it is encoded for subscribers.
type CombatTelemetry struct {
	SchemaVersion string
	EventID       string
	MatchID       string
	OccurredAt    time.Time
	Kind          CombatKind
	Attacker      int
	Defender      int
	ProjectileID  string
	Position      Vector2
	Damage        DamageDetails
	Metadata      map[string]string
}

// ToStruct converts the telemetry into the generic protobuf payload carried by envelopes.
func (c CombatTelemetry) ToStruct() (*structpb.Struct, error) {
	//1.- Clean the metadata map to avoid empty keys leaking to clients.
	metadata := make(map[string]any, len(c.Metadata))
	for key, value := range c.Metadata {
		if key == "" {
			continue
		}
		metadata[key] = value
	}

	//2.- Assemble the payload with numeric values widened to JSON numbers.
	payload, err := structpb.NewStruct(map[string]any{
		"schema_version": c.SchemaVersion,
		"event_id":       c.EventID,
		"match_id":       c.MatchID,
		"occurred_at_ms": float64(c.OccurredAt.UnixMilli()),
		"kind":           string(c.Kind),
		"attacker":       float64(c.Attacker),
		"defender":       float64(c.Defender),
		"projectile_id":  c.ProjectileID,
		"position": map[string]any{
			"x": c.Position.X,
			"y": c.Position.Y,
		},
		"damage": map[string]any{
			"amount":   float64(c.Damage.Amount),
			"critical": c.Damage.Critical,
			"ultimate": c.Damage.Ultimate,
		},
		"metadata": metadata,
	})
	if err != nil {
		return nil, fmt.Errorf("encode combat telemetry: %w", err)
	}
	return payload, nil
}
