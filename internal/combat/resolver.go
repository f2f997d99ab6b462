package combat

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"stickduel/arena/internal/logging"
	"stickduel/arena/internal/rng"
	"stickduel/arena/internal/scheduler"
)

// Arena exposes the match state the resolver reads and mutates.
type Arena interface {
	// Active reports whether attacks and hits may currently change the match.
	Active() bool
	// Combatant returns the live state of a seat.
	Combatant(id PlayerID) *Combatant
}

// Launcher accepts freshly fired projectiles.
type Launcher interface {
	Launch(p Projectile)
}

// Notifier shows a transient text message.
type Notifier interface {
	Notify(text string, duration time.Duration)
}

// Timers schedules cooldown releases. scheduler.Group satisfies it.
type Timers interface {
	After(delay time.Duration, fn func()) *scheduler.Timer
}

// Attack describes a successfully fired shot.
type Attack struct {
	Attacker   PlayerID
	Ultimate   bool
	Forced     bool
	Projectile Projectile
}

// ResolverConfig wires the resolver to its collaborators.
type ResolverConfig struct {
	Arena    Arena
	Launcher Launcher
	Timers   Timers
	Random   rng.Source
	Notifier Notifier
	// OnAttack observes every fired shot.
	OnAttack func(Attack)
	// OnHit runs after damage is applied; the match re-evaluates its win condition here.
	OnHit  func(Hit)
	NewID  func() string
	Logger *logging.Logger
}

// Resolver validates attack attempts, fires projectiles and applies damage on arrival.
type Resolver struct {
	arena    Arena
	launcher Launcher
	timers   Timers
	random   rng.Source
	notifier Notifier
	onAttack func(Attack)
	onHit    func(Hit)
	newID    func() string
	logger   *logging.Logger
	// cooldowns holds the pending release per seat; a newer cooldown replaces it.
	cooldowns [PlayerTwo + 1]*scheduler.Timer
}

// NewResolver constructs a resolver from the supplied configuration.
func NewResolver(cfg ResolverConfig) *Resolver {
	r := &Resolver{
		arena:    cfg.Arena,
		launcher: cfg.Launcher,
		timers:   cfg.Timers,
		random:   cfg.Random,
		notifier: cfg.Notifier,
		onAttack: cfg.OnAttack,
		onHit:    cfg.OnHit,
		newID:    cfg.NewID,
		logger:   cfg.Logger,
	}
	//1.- Fall back to production defaults for the optional collaborators.
	if r.random == nil {
		r.random = rng.NewSeeded(0)
	}
	if r.newID == nil {
		r.newID = uuid.NewString
	}
	if r.logger == nil {
		r.logger = logging.L()
	}
	return r
}

// Attempt fires a shot when the match is active and the attacker is off cooldown.
// Rejected attempts leave every piece of state untouched and report false.
func (r *Resolver) Attempt(attacker PlayerID, ultimate bool) bool {
	if r == nil || r.arena == nil || !attacker.Valid() || !r.arena.Active() {
		return false
	}
	self := r.arena.Combatant(attacker)
	if self == nil || !self.CanAttack {
		return false
	}
	r.fire(self, ultimate, false)
	return true
}

// Force fires a shot while ignoring the cooldown gate. Sudden death uses it to
// guarantee one ultimate per side.
func (r *Resolver) Force(attacker PlayerID, ultimate bool) bool {
	if r == nil || r.arena == nil || !attacker.Valid() || !r.arena.Active() {
		return false
	}
	self := r.arena.Combatant(attacker)
	if self == nil {
		return false
	}
	r.fire(self, ultimate, true)
	return true
}

func (r *Resolver) fire(self *Combatant, ultimate, forced bool) {
	profile := ProfileFor(ultimate)
	attacker := self.ID

	//1.- Close the cooldown gate; only the latest cooldown of this seat may reopen it.
	self.CanAttack = false
	if r.timers != nil {
		r.cooldowns[attacker].Stop()
		r.cooldowns[attacker] = r.timers.After(profile.Cooldown, func() { self.CanAttack = true })
	}
	self.Attacks++

	//2.- Decide the outcome now; arrival only decides when it lands.
	willHit := r.random.Float64() > HitChanceFloor
	if !willHit && !ultimate {
		r.notify(fmt.Sprintf("%s Missed!", attacker), MissMessageDuration)
	}

	//3.- Spawn at the muzzle, aimed at the defender's chest or over their head.
	foe := r.arena.Combatant(attacker.Opponent())
	spawnY := self.Position.Y - MissSpawnLift
	if willHit && foe != nil {
		spawnY = foe.Position.Y - HitSpawnLift
	}
	projectile := Projectile{
		ID:        r.newID(),
		Attacker:  attacker,
		Ultimate:  ultimate,
		WillHit:   willHit,
		Position:  Vec2{X: self.Position.X + attacker.Direction()*MuzzleOffset, Y: spawnY},
		VelocityX: attacker.Direction() * ProjectileSpeed,
		Size:      profile.Size,
		Tag:       ProjectileTag(attacker, ultimate),
	}
	if r.launcher != nil {
		r.launcher.Launch(projectile)
	}
	r.logger.Debug("attack fired",
		logging.Int("attacker", int(attacker)),
		logging.Bool("ultimate", ultimate),
		logging.Bool("forced", forced),
		logging.Bool("will_hit", willHit),
		logging.String("projectile_id", projectile.ID),
	)
	if r.onAttack != nil {
		r.onAttack(Attack{Attacker: attacker, Ultimate: ultimate, Forced: forced, Projectile: projectile})
	}
}

// ResolveHit applies the damage of a connecting projectile to the attacker's opponent.
// Arrivals after the match stopped being active are discarded.
func (r *Resolver) ResolveHit(attacker PlayerID, ultimate bool) (Hit, bool) {
	if r == nil || r.arena == nil || !attacker.Valid() || !r.arena.Active() {
		return Hit{}, false
	}
	defender := r.arena.Combatant(attacker.Opponent())
	if defender == nil {
		return Hit{}, false
	}
	//1.- Roll and clamp the damage onto the defender.
	hit := RollDamage(attacker, ultimate, r.random)
	hit.Applied = defender.TakeDamage(hit.Damage)
	hit.Remaining = defender.Health
	//2.- Announce the hit, then hand control back so the win condition can be checked.
	r.notify(hit.Message(), HitMessageDuration)
	r.logger.Debug("hit resolved", hit.LoggingFields()...)
	if r.onHit != nil {
		r.onHit(hit)
	}
	return hit, true
}

// HandleArrival adapts ResolveHit to the projectile simulator's arrival callback.
func (r *Resolver) HandleArrival(p Projectile) {
	if !p.WillHit {
		return
	}
	r.ResolveHit(p.Attacker, p.Ultimate)
}

func (r *Resolver) notify(text string, duration time.Duration) {
	if r.notifier != nil {
		r.notifier.Notify(text, duration)
	}
}
