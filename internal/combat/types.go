package combat

import "fmt"

// PlayerID identifies one of the two combatants.
type PlayerID int

const (
	// PlayerOne fires to the right from the left side of the arena.
	PlayerOne PlayerID = 1
	// PlayerTwo fires to the left and is the CPU-controlled side outside two-player mode.
	PlayerTwo PlayerID = 2
)

// Valid reports whether the identifier names one of the two seats.
func (p PlayerID) Valid() bool { return p == PlayerOne || p == PlayerTwo }

// Opponent returns the opposing seat.
func (p PlayerID) Opponent() PlayerID {
	if p == PlayerOne {
		return PlayerTwo
	}
	return PlayerOne
}

// Direction is +1 for player one and -1 for player two.
func (p PlayerID) Direction() float64 {
	if p == PlayerTwo {
		return -1
	}
	return 1
}

func (p PlayerID) String() string { return fmt.Sprintf("P%d", int(p)) }

// Vec2 is an arena coordinate in screen units.
type Vec2 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// DefaultMaxHealth is the health pool of an unscaled combatant.
const DefaultMaxHealth = 1000

var (
	// SpawnOne is where player one stands at round start.
	SpawnOne = Vec2{X: 200, Y: 450}
	// SpawnTwo is where player two stands at round start.
	SpawnTwo = Vec2{X: 800, Y: 450}
)

// Combatant holds the mutable per-round state of one side.
type Combatant struct {
	ID        PlayerID `json:"id"`
	Health    int      `json:"health"`
	MaxHealth int      `json:"max_health"`
	Attacks   int      `json:"attacks"`
	Position  Vec2     `json:"position"`
	CPU       bool     `json:"cpu"`
	CanAttack bool     `json:"can_attack"`
}

// NewCombatant builds a combatant at full health standing on its spawn point.
func NewCombatant(id PlayerID, maxHealth int, cpu bool) *Combatant {
	if maxHealth <= 0 {
		maxHealth = DefaultMaxHealth
	}
	spawn := SpawnOne
	if id == PlayerTwo {
		spawn = SpawnTwo
	}
	return &Combatant{
		ID:        id,
		Health:    maxHealth,
		MaxHealth: maxHealth,
		Position:  spawn,
		CPU:       cpu,
		CanAttack: true,
	}
}

// TakeDamage subtracts damage, clamping at zero, and returns the health actually removed.
func (c *Combatant) TakeDamage(amount int) int {
	if c == nil || amount <= 0 {
		return 0
	}
	before := c.Health
	c.Health -= amount
	if c.Health < 0 {
		c.Health = 0
	}
	return before - c.Health
}

// Restore refills health to the current maximum.
func (c *Combatant) Restore() {
	if c == nil {
		return
	}
	c.Health = c.MaxHealth
}

// Defeated reports whether health has been exhausted.
func (c *Combatant) Defeated() bool {
	return c != nil && c.Health <= 0
}

// HealthPercent maps health onto [0,100] against the current maximum.
func (c *Combatant) HealthPercent() float64 {
	if c == nil || c.MaxHealth <= 0 || c.Health <= 0 {
		return 0
	}
	pct := float64(c.Health) * 100 / float64(c.MaxHealth)
	if pct > 100 {
		return 100
	}
	return pct
}

// Label is the name used in verdicts and HUD text.
func (c *Combatant) Label() string {
	if c == nil {
		return ""
	}
	if c.CPU {
		return "CPU"
	}
	return fmt.Sprintf("Player %d", int(c.ID))
}

// Projectile is a shot in flight. Its outcome is decided when it is fired.
type Projectile struct {
	ID        string   `json:"id"`
	Attacker  PlayerID `json:"attacker"`
	Ultimate  bool     `json:"ultimate"`
	WillHit   bool     `json:"will_hit"`
	Position  Vec2     `json:"position"`
	VelocityX float64  `json:"velocity_x"`
	Size      float64  `json:"size"`
	Tag       string   `json:"tag"`
}

// Target reports the seat the projectile travels towards.
func (p Projectile) Target() PlayerID { return p.Attacker.Opponent() }
