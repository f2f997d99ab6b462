package match

import (
	"strconv"
	"time"

	"github.com/google/uuid"

	"stickduel/arena/internal/bots"
	"stickduel/arena/internal/combat"
	"stickduel/arena/internal/countdown"
	"stickduel/arena/internal/events"
	"stickduel/arena/internal/logging"
	"stickduel/arena/internal/rng"
	"stickduel/arena/internal/scheduler"
	"stickduel/arena/internal/state"
)

// ControllerConfig configures a match controller. Every collaborator is optional.
type ControllerConfig struct {
	ID     string
	UI     UISink
	Render RenderSink
	Random rng.Source
	Events *events.Stream
	Logger *logging.Logger
	// CountdownSeconds overrides the round length.
	CountdownSeconds int
	// DisableCPU keeps combatant two idle even when it is CPU controlled.
	DisableCPU bool
	// Autopilot hands combatant one to an agent as well.
	Autopilot bool
	// CPUMinInterval and CPUMaxInterval bound the agents' attack cadence.
	CPUMinInterval time.Duration
	CPUMaxInterval time.Duration
	NewID          func() string
	Clock          func() time.Time
}

// Controller owns the match lifecycle. It is not safe for concurrent use; Session
// serialises access. Sinks are invoked synchronously and must not call back in.
type Controller struct {
	ctx Context

	sched *scheduler.Scheduler
	// round holds timers that die with the round: cooldowns, countdown and agents.
	round *scheduler.Group
	// flow holds delayed transitions between lifecycle states.
	flow *scheduler.Group

	resolver  *combat.Resolver
	sim       *state.ProjectileSimulator
	countdown *countdown.Service
	cpu       *bots.Agent
	pilot     *bots.Agent

	ui      UISink
	render  RenderSink
	events  *events.Stream
	logger  *logging.Logger
	newID   func() string
	now     func() time.Time
	seconds int

	disableCPU bool
	autopilot  bool

	overlay      Overlay
	rulesOpen    bool
	pendingStart *scheduler.Timer
	messageSeq   uint64
	tick         uint64
}

// NewController assembles the combat pipeline around a fresh virtual clock.
func NewController(cfg ControllerConfig) *Controller {
	c := &Controller{
		sched:      scheduler.New(),
		ui:         cfg.UI,
		render:     cfg.Render,
		events:     cfg.Events,
		newID:      cfg.NewID,
		now:        cfg.Clock,
		seconds:    cfg.CountdownSeconds,
		disableCPU: cfg.DisableCPU,
		autopilot:  cfg.Autopilot,
	}
	//1.- Fill defaults for identity, time and logging.
	if c.newID == nil {
		c.newID = uuid.NewString
	}
	if c.now == nil {
		c.now = time.Now
	}
	if c.seconds <= 0 {
		c.seconds = countdown.DefaultSeconds
	}
	random := cfg.Random
	if random == nil {
		random = rng.NewSeeded(0)
	}
	id := cfg.ID
	if id == "" {
		id = c.newID()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.L()
	}
	c.logger = logger.With(logging.String("match_id", id))

	//2.- Wire the combat pipeline: resolver -> simulator -> arrival -> resolver.
	c.round = c.sched.NewGroup()
	c.flow = c.sched.NewGroup()
	c.sim = state.NewProjectileSimulator(c.handleArrival)
	c.resolver = combat.NewResolver(combat.ResolverConfig{
		Arena:    c,
		Launcher: c.sim,
		Timers:   c.round,
		Random:   random,
		Notifier: c,
		OnAttack: c.handleAttack,
		OnHit:    c.handleHit,
		NewID:    c.newID,
		Logger:   c.logger,
	})
	c.countdown = countdown.New(c.round, c.handleCountdownTick, c.OnTimeout)
	c.cpu = bots.NewAgent(bots.AgentConfig{
		ID:          combat.PlayerTwo,
		Gate:        func() bool { return c.Active() && c.ctx.Two != nil && c.ctx.Two.CPU },
		Attacker:    c.resolver,
		Timers:      c.round,
		Random:      random,
		MinInterval: cfg.CPUMinInterval,
		MaxInterval: cfg.CPUMaxInterval,
		Logger:      c.logger,
	})
	c.pilot = bots.NewAgent(bots.AgentConfig{
		ID:          combat.PlayerOne,
		Gate:        c.Active,
		Attacker:    c.resolver,
		Timers:      c.round,
		Random:      random,
		MinInterval: cfg.CPUMinInterval,
		MaxInterval: cfg.CPUMaxInterval,
		Logger:      c.logger,
	})

	//3.- Start in the menu with placeholder combatants so observers always see both seats.
	one, two := PlanRound(ModeTwoPlayer, 1).Build()
	c.ctx = Context{
		ID:            id,
		Status:        StatusMenu,
		Phase:         PhaseRegular,
		Remaining:     c.seconds,
		SurvivalRound: 1,
		One:           one,
		Two:           two,
	}
	c.overlay = Overlay{Kind: OverlayModeSelect, Modes: Modes}
	return c
}

// ID reports the match identifier.
func (c *Controller) ID() string { return c.ctx.ID }

// Active reports whether attacks and hits are currently accepted.
func (c *Controller) Active() bool {
	return c.ctx.Status == StatusPlaying && c.ctx.Phase != PhaseIntermission
}

// Combatant exposes a live combatant to the resolver.
func (c *Controller) Combatant(id combat.PlayerID) *combat.Combatant {
	return c.ctx.Combatant(id)
}

// Reset returns to the menu and shows the mode selection.
func (c *Controller) Reset() {
	c.haltRound()
	c.flow.CancelAll()
	c.pendingStart = nil
	c.sim.Clear()
	c.ctx.Status = StatusMenu
	c.ctx.Phase = PhaseRegular
	c.ctx.SurvivalRound = 1
	c.ctx.Result = nil
	c.rulesOpen = false
	c.showOverlay(Overlay{Kind: OverlayModeSelect, Modes: Modes})
	c.publishLifecycle()
	c.refreshHUD()
}

// SelectMode schedules the start of a match after the get-ready pause. It only acts in
// the menu and ignores repeated selections while a start is pending.
func (c *Controller) SelectMode(mode Mode) error {
	if !mode.Valid() {
		return ErrUnknownMode
	}
	if c.ctx.Status != StatusMenu || c.pendingStart.Active() {
		return nil
	}
	c.ctx.Mode = mode
	c.rulesOpen = false
	c.showOverlay(Overlay{Kind: OverlayNone})
	c.Notify("Get Ready...", GetReadyDelay)
	c.pendingStart = c.flow.After(GetReadyDelay, func() {
		if c.ctx.Status == StatusMenu {
			c.StartMatch(mode)
		}
	})
	return nil
}

// StartMatch builds fresh combatants for the mode and current survival round and starts
// the countdown and agents. Anything left over from the previous round is discarded.
func (c *Controller) StartMatch(mode Mode) {
	if !mode.Valid() {
		return
	}
	//1.- Tear down the previous round completely.
	c.haltRound()
	c.flow.CancelAll()
	c.pendingStart = nil
	c.sim.Clear()

	//2.- Allocate the combatants the round plan asks for.
	plan := PlanRound(mode, c.ctx.SurvivalRound)
	c.ctx.One, c.ctx.Two = plan.Build()
	c.ctx.Mode = mode
	c.ctx.SurvivalRound = plan.Round
	c.ctx.Status = StatusPlaying
	c.ctx.Phase = PhaseRegular
	c.ctx.Result = nil
	c.rulesOpen = false
	c.showOverlay(Overlay{Kind: OverlayNone})
	if plan.Announcement != "" {
		c.Notify(plan.Announcement, RestoreDisplay)
	}

	//3.- Start the clock and the agents; the CPU fires its first shot immediately.
	c.countdown.Start(c.seconds)
	c.ctx.Remaining = c.countdown.Remaining()
	c.logger.Info("match started",
		logging.String("mode", string(mode)),
		logging.Int("round", plan.Round),
		logging.Int("opponent_health", plan.TwoMax),
		logging.Bool("cpu", plan.TwoCPU),
	)
	c.publishLifecycle()
	c.refreshHUD()
	if c.ctx.Two.CPU && !c.disableCPU {
		c.cpu.Start()
	}
	if c.autopilot {
		c.pilot.Start()
	}
	c.emitFrame()
}

// Attack is the input path for a human attack. Player two may only attack in two player mode.
func (c *Controller) Attack(player combat.PlayerID) bool {
	if player == combat.PlayerTwo && c.ctx.Mode != ModeTwoPlayer {
		return false
	}
	return c.resolver.Attempt(player, false)
}

// OnTimeout is invoked when the countdown reaches zero.
func (c *Controller) OnTimeout() {
	c.ctx.Remaining = 0
	c.CheckWinCondition(true)
}

// CheckWinCondition evaluates the round. It is a no-op unless a round is being played.
func (c *Controller) CheckWinCondition(timeout bool) {
	if c.ctx.Status != StatusPlaying || c.ctx.Phase == PhaseIntermission {
		return
	}
	eval := Evaluate(c.ctx.Mode, c.ctx.SurvivalRound, c.ctx.One, c.ctx.Two, timeout)
	if eval.SuddenDeath {
		c.enterSuddenDeath()
		return
	}
	if !eval.Decided {
		return
	}
	//1.- A defeated survival opponent chains into the next round instead of ending.
	if c.ctx.Mode == ModeSurvival && c.ctx.Two.Defeated() {
		c.enterIntermission(eval.Result)
		return
	}
	c.EndMatch(eval.Result)
}

func (c *Controller) enterSuddenDeath() {
	c.ctx.Phase = PhaseSuddenDeath
	c.logger.Info("sudden death", logging.Int("health", c.ctx.One.Health))
	c.Notify("Draw! Ultimate Round!", SuddenDeathDisplay)
	c.publishLifecycle()
	//1.- Both sides get a forced ultimate; a CPU opponent does not.
	c.resolver.Force(combat.PlayerOne, true)
	if !c.ctx.Two.CPU {
		c.resolver.Force(combat.PlayerTwo, true)
	}
}

func (c *Controller) enterIntermission(result Result) {
	c.haltRound()
	c.ctx.Phase = PhaseIntermission
	c.ctx.Result = &result
	c.ctx.SurvivalRound++
	c.logger.Info("survival round cleared",
		logging.Int("round", result.Round),
		logging.Int("next_round", c.ctx.SurvivalRound),
	)
	c.Notify(result.Verdict(), RoundClearedDisplay)
	c.publishLifecycle()
	mode := c.ctx.Mode
	c.pendingStart = c.flow.After(IntermissionDelay, func() {
		if c.ctx.Status == StatusPlaying && c.ctx.Phase == PhaseIntermission {
			c.StartMatch(mode)
		}
	})
}

// EndMatch finishes the round with the given result and schedules the game-over overlay.
func (c *Controller) EndMatch(result Result) {
	if c.ctx.Status != StatusPlaying {
		return
	}
	//1.- Stop everything scoped to the round, cooldowns included.
	c.haltRound()
	c.ctx.Status = StatusOver
	c.ctx.Phase = PhaseRegular
	c.ctx.Result = &result
	verdict := result.Verdict()
	c.logger.Info("match ended",
		logging.String("verdict", verdict),
		logging.Bool("timeout", result.Timeout),
		logging.Int("player_one_health", c.ctx.One.Health),
		logging.Int("player_two_health", c.ctx.Two.Health),
	)
	c.publishLifecycle()
	c.refreshHUD()
	c.flow.After(GameOverDelay, func() {
		if c.ctx.Status == StatusOver {
			c.showOverlay(Overlay{Kind: OverlayGameOver, Verdict: verdict})
		}
	})
}

// ConfirmReplay answers the play-again prompt. It only acts once the match is over.
func (c *Controller) ConfirmReplay(yes bool) {
	if c.ctx.Status != StatusOver {
		return
	}
	if yes {
		c.Reset()
		return
	}
	c.flow.CancelAll()
	c.showOverlay(Overlay{Kind: OverlayNone})
	c.Notify("Thanks for playing!", FarewellDisplay)
}

// OpenRules shows the rules overlay from the menu.
func (c *Controller) OpenRules() {
	if c.ctx.Status != StatusMenu || c.pendingStart.Active() {
		return
	}
	c.rulesOpen = true
	c.showOverlay(Overlay{Kind: OverlayRules})
}

// CloseRules returns from the rules overlay to the mode selection.
func (c *Controller) CloseRules() {
	if !c.rulesOpen {
		return
	}
	c.rulesOpen = false
	if c.ctx.Status == StatusMenu {
		c.showOverlay(Overlay{Kind: OverlayModeSelect, Modes: Modes})
	}
}

// Notify shows a transient message that clears itself after duration unless replaced.
func (c *Controller) Notify(text string, duration time.Duration) {
	c.messageSeq++
	seq := c.messageSeq
	c.ctx.Message = text
	c.refreshHUD()
	c.sched.After(duration, func() {
		if c.messageSeq != seq {
			return
		}
		c.ctx.Message = ""
		c.refreshHUD()
	})
}

// Step advances virtual time by dt: timers first, then projectiles, then a render frame.
func (c *Controller) Step(dt time.Duration) {
	if dt <= 0 {
		return
	}
	c.sched.Advance(dt)
	if c.ctx.Status != StatusPlaying && c.ctx.Status != StatusOver {
		return
	}
	c.sim.Advance(dt, c.locate)
	c.publishProjectiles()
	c.emitFrame()
}

// Snapshot returns a deep copy of the match context.
func (c *Controller) Snapshot() Context {
	snapshot := c.ctx.Clone()
	snapshot.Projectiles = c.sim.Len()
	return snapshot
}

// Projectiles returns the shots currently in flight.
func (c *Controller) Projectiles() []combat.Projectile {
	return c.sim.Snapshot()
}

// Overlay reports the overlay currently shown.
func (c *Controller) Overlay() Overlay {
	return c.overlay
}

// HUD builds the heads-up display for the current state.
func (c *Controller) HUD() HUD {
	hud := HUD{
		Mode:      c.ctx.Mode,
		Status:    c.ctx.Status,
		Phase:     c.ctx.Phase,
		Round:     c.ctx.SurvivalRound,
		Remaining: c.ctx.Remaining,
		Message:   c.ctx.Message,
	}
	for i, fighter := range []*combat.Combatant{c.ctx.One, c.ctx.Two} {
		if fighter == nil {
			continue
		}
		hud.Players[i] = PlayerHUD{
			ID:        fighter.ID,
			Label:     fighter.Label(),
			Health:    fighter.Health,
			MaxHealth: fighter.MaxHealth,
			Percent:   fighter.HealthPercent(),
			Text:      hudLabel(fighter) + " HP: " + strconv.Itoa(fighter.Health),
			Attacks:   fighter.Attacks,
			CanAttack: fighter.CanAttack,
		}
	}
	if c.ctx.Status == StatusOver && c.ctx.Result != nil {
		hud.Verdict = c.ctx.Result.Verdict()
	}
	return hud
}

// Tick reports how many frames have been emitted.
func (c *Controller) Tick() uint64 { return c.tick }

// Now reports the controller's virtual clock.
func (c *Controller) Now() time.Duration { return c.sched.Now() }

// AgentStats reports attempts and accepted attacks of the CPU and autopilot agents.
func (c *Controller) AgentStats() (cpuAttempts, cpuAccepted, pilotAttempts, pilotAccepted int) {
	cpuAttempts, cpuAccepted = c.cpu.Stats()
	pilotAttempts, pilotAccepted = c.pilot.Stats()
	return
}

func (c *Controller) haltRound() {
	c.countdown.Stop()
	c.cpu.Stop()
	c.pilot.Stop()
	c.round.CancelAll()
}

func (c *Controller) locate(id combat.PlayerID) (combat.Vec2, bool) {
	fighter := c.ctx.Combatant(id)
	if fighter == nil {
		return combat.Vec2{}, false
	}
	return fighter.Position, true
}

func (c *Controller) handleCountdownTick(remaining int) {
	c.ctx.Remaining = remaining
	c.refreshHUD()
}

func (c *Controller) handleAttack(attack combat.Attack) {
	c.publishCombat(events.CombatTelemetry{
		Kind:         events.CombatAttack,
		Attacker:     int(attack.Attacker),
		Defender:     int(attack.Attacker.Opponent()),
		ProjectileID: attack.Projectile.ID,
		Position:     events.Vector2{X: attack.Projectile.Position.X, Y: attack.Projectile.Position.Y},
		Damage:       events.DamageDetails{Ultimate: attack.Ultimate},
		Metadata: map[string]string{
			"will_hit": strconv.FormatBool(attack.Projectile.WillHit),
			"forced":   strconv.FormatBool(attack.Forced),
		},
	})
	c.refreshHUD()
}

func (c *Controller) handleHit(hit combat.Hit) {
	telemetry := events.CombatTelemetry{Kind: events.CombatHit}
	hit.ApplyToTelemetry(&telemetry)
	c.publishCombat(telemetry)
	c.refreshHUD()
	c.CheckWinCondition(false)
}

func (c *Controller) handleArrival(p combat.Projectile) {
	if p.WillHit {
		c.resolver.HandleArrival(p)
		return
	}
	if !c.Active() {
		return
	}
	c.publishCombat(events.CombatTelemetry{
		Kind:         events.CombatMiss,
		Attacker:     int(p.Attacker),
		Defender:     int(p.Target()),
		ProjectileID: p.ID,
		Position:     events.Vector2{X: p.Position.X, Y: p.Position.Y},
		Damage:       events.DamageDetails{Ultimate: p.Ultimate},
	})
}

func (c *Controller) showOverlay(overlay Overlay) {
	c.overlay = overlay
	if c.ui != nil {
		c.ui.ShowOverlay(overlay)
	}
}

func (c *Controller) refreshHUD() {
	hud := c.HUD()
	if c.ui != nil {
		c.ui.UpdateHUD(hud)
	}
	if c.events == nil {
		return
	}
	c.publish(events.KindHUD, map[string]any{
		"match_id":  c.ctx.ID,
		"status":    string(hud.Status),
		"phase":     string(hud.Phase),
		"remaining": float64(hud.Remaining),
		"round":     float64(hud.Round),
		"message":   hud.Message,
		"p1_health": float64(hud.Players[0].Health),
		"p2_health": float64(hud.Players[1].Health),
		"p1_text":   hud.Players[0].Text,
		"p2_text":   hud.Players[1].Text,
	})
}

func (c *Controller) emitFrame() {
	c.tick++
	if c.render == nil {
		return
	}
	frame := Frame{Tick: c.tick, Projectiles: c.sim.Snapshot()}
	for i, fighter := range []*combat.Combatant{c.ctx.One, c.ctx.Two} {
		if fighter == nil {
			continue
		}
		frame.Fighters[i] = Fighter{
			ID:       fighter.ID,
			Position: fighter.Position,
			Facing:   fighter.ID.Direction(),
			CPU:      fighter.CPU,
			Defeated: fighter.Defeated(),
		}
	}
	c.render.RenderFrame(frame)
}

func (c *Controller) publishLifecycle() {
	if c.events == nil {
		return
	}
	fields := map[string]any{
		"match_id": c.ctx.ID,
		"mode":     string(c.ctx.Mode),
		"status":   string(c.ctx.Status),
		"phase":    string(c.ctx.Phase),
		"round":    float64(c.ctx.SurvivalRound),
	}
	if c.ctx.Result != nil {
		fields["verdict"] = c.ctx.Result.Verdict()
	}
	c.publish(events.KindLifecycle, fields)
}

func (c *Controller) publishProjectiles() {
	diff := c.sim.ConsumeDiff()
	if c.events == nil || diff.Empty() {
		return
	}
	launched := make([]any, 0, len(diff.Launched))
	for _, p := range diff.Launched {
		launched = append(launched, map[string]any{
			"id":       p.ID,
			"attacker": float64(p.Attacker),
			"ultimate": p.Ultimate,
			"x":        p.Position.X,
			"y":        p.Position.Y,
			"vx":       p.VelocityX,
			"size":     p.Size,
			"tag":      p.Tag,
		})
	}
	removed := make([]any, 0, len(diff.Removed))
	for _, id := range diff.Removed {
		removed = append(removed, id)
	}
	c.publish(events.KindProjectiles, map[string]any{
		"match_id": c.ctx.ID,
		"launched": launched,
		"removed":  removed,
	})
}

func (c *Controller) publishCombat(telemetry events.CombatTelemetry) {
	if c.events == nil {
		return
	}
	telemetry.SchemaVersion = "1"
	telemetry.EventID = c.newID()
	telemetry.MatchID = c.ctx.ID
	telemetry.OccurredAt = c.now()
	if _, err := c.events.PublishCombat(telemetry); err != nil {
		c.logger.Warn("publish combat event failed", logging.Error(err))
	}
}

func (c *Controller) publish(kind events.Kind, fields map[string]any) {
	if _, err := c.events.Publish(kind, fields); err != nil {
		c.logger.Warn("publish event failed", logging.String("kind", string(kind)), logging.Error(err))
	}
}
