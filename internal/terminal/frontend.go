package terminal

import (
	"fmt"
	"math"
	"strings"
	"sync"

	"github.com/gdamore/tcell/v2"

	"stickduel/arena/internal/combat"
	"stickduel/arena/internal/input"
	"stickduel/arena/internal/match"
)

const (
	arenaWidth = 1000.0
	barWidth   = 10
)

var (
	styleHUD        = tcell.StyleDefault.Bold(true)
	styleMessage    = tcell.StyleDefault.Foreground(tcell.ColorYellow)
	styleGround     = tcell.StyleDefault.Foreground(tcell.ColorGray)
	styleOne        = tcell.StyleDefault.Foreground(tcell.ColorAqua)
	styleTwo        = tcell.StyleDefault.Foreground(tcell.ColorRed)
	styleShot       = tcell.StyleDefault.Foreground(tcell.ColorWhite)
	styleUltimate   = tcell.StyleDefault.Foreground(tcell.ColorFuchsia).Bold(true)
	styleOverlay    = tcell.StyleDefault.Reverse(true)
	styleOverlayHot = tcell.StyleDefault.Reverse(true).Bold(true)
)

var rulesText = []string{
	"RULES",
	"",
	"Each fighter starts with 1000 HP.",
	"Normal shot: 1.2s cooldown, 50-349 damage.",
	"Shots hit 80% of the time.",
	"At 0:00 the healthier fighter wins.",
	"A tie starts sudden death: both sides fire an ultimate (200-799).",
	"Survival: each cleared round adds 100 HP to the CPU.",
	"",
	"[Esc] back",
}

// Frontend renders the match onto a tcell screen. It implements match.UISink and
// match.RenderSink; sink calls only record state so they never block the match.
type Frontend struct {
	mu      sync.Mutex
	hud     match.HUD
	overlay match.Overlay
	frame   match.Frame
	gate    *input.Gate
	presses uint64
}

// Option customises a Frontend.
type Option func(*Frontend)

// WithInputGate drops stale and auto-repeated key presses before they reach the match.
func WithInputGate(gate *input.Gate) Option {
	return func(f *Frontend) {
		f.gate = gate
	}
}

// NewFrontend constructs an empty frontend showing no overlay.
func NewFrontend(opts ...Option) *Frontend {
	frontend := &Frontend{overlay: match.Overlay{Kind: match.OverlayNone}}
	for _, opt := range opts {
		if opt != nil {
			opt(frontend)
		}
	}
	return frontend
}

// UpdateHUD records the latest heads-up display.
func (f *Frontend) UpdateHUD(hud match.HUD) {
	if f == nil {
		return
	}
	f.mu.Lock()
	f.hud = hud
	f.mu.Unlock()
}

// ShowOverlay records the overlay to draw.
func (f *Frontend) ShowOverlay(overlay match.Overlay) {
	if f == nil {
		return
	}
	f.mu.Lock()
	f.overlay = overlay
	f.mu.Unlock()
}

// RenderFrame records the latest frame.
func (f *Frontend) RenderFrame(frame match.Frame) {
	if f == nil {
		return
	}
	f.mu.Lock()
	f.frame = frame
	f.mu.Unlock()
}

// Overlay reports the overlay kind currently on screen.
func (f *Frontend) Overlay() match.OverlayKind {
	if f == nil {
		return match.OverlayNone
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.overlay.Kind == "" {
		return match.OverlayNone
	}
	return f.overlay.Kind
}

// Draw paints the recorded state onto the screen and shows it.
func (f *Frontend) Draw(screen tcell.Screen) {
	if f == nil || screen == nil {
		return
	}
	f.mu.Lock()
	hud, overlay, frame := f.hud, f.overlay, f.frame
	f.mu.Unlock()

	screen.Clear()
	w, h := screen.Size()
	if w <= 0 || h <= 0 {
		return
	}
	//1.- Status rows.
	drawText(screen, 0, 0, w, hudLine(hud), styleHUD)
	drawText(screen, 0, 1, w, hud.Message, styleMessage)

	//2.- Arena floor, fighters and shots while a match is on screen.
	ground := h - 4
	if ground > 3 {
		for x := 0; x < w; x++ {
			screen.SetContent(x, ground+1, '=', nil, styleGround)
		}
		if hud.Status == match.StatusPlaying || hud.Status == match.StatusOver {
			for _, fighter := range frame.Fighters {
				drawFighter(screen, w, ground, fighter)
			}
			for _, shot := range frame.Projectiles {
				drawShot(screen, w, ground, shot)
			}
		}
	}

	//3.- Modal screens on top.
	drawOverlay(screen, w, h, overlay)
	screen.Show()
}

func hudLine(hud match.HUD) string {
	if hud.Status == "" || hud.Status == match.StatusMenu {
		return "STICK DUEL"
	}
	one, two := hud.Players[0], hud.Players[1]
	clock := fmt.Sprintf("%03d", hud.Remaining)
	if hud.Phase == match.PhaseSuddenDeath {
		clock = "SUDDEN DEATH"
	}
	centre := hud.Mode.Title() + " " + clock
	if hud.Mode == match.ModeSurvival {
		centre += fmt.Sprintf(" R%d", hud.Round)
	}
	return fmt.Sprintf("%s %s | %s | %s %s", one.Text, healthBar(one.Percent), centre, healthBar(two.Percent), two.Text)
}

func healthBar(percent float64) string {
	filled := int(math.Round(percent / 100 * barWidth))
	if filled < 0 {
		filled = 0
	}
	if filled > barWidth {
		filled = barWidth
	}
	return "[" + strings.Repeat("#", filled) + strings.Repeat(".", barWidth-filled) + "]"
}

// column maps an arena x coordinate onto a screen column.
func column(x float64, width int) int {
	if width <= 1 {
		return 0
	}
	col := int(math.Round(x / arenaWidth * float64(width-1)))
	if col < 0 {
		return 0
	}
	if col >= width {
		return width - 1
	}
	return col
}

func drawFighter(screen tcell.Screen, width, ground int, fighter match.Fighter) {
	if !fighter.ID.Valid() {
		return
	}
	style := styleOne
	if fighter.ID == combat.PlayerTwo {
		style = styleTwo
	}
	col := column(fighter.Position.X, width)
	if fighter.Defeated {
		screen.SetContent(col, ground, 'x', nil, style)
		for _, dx := range []int{-1, 1} {
			if c := col + dx; c >= 0 && c < width {
				screen.SetContent(c, ground, '_', nil, style)
			}
		}
		return
	}
	screen.SetContent(col, ground-2, 'o', nil, style)
	screen.SetContent(col, ground-1, '|', nil, style)
	screen.SetContent(col, ground, '^', nil, style)
	if arm := col + int(fighter.Facing); arm >= 0 && arm < width {
		screen.SetContent(arm, ground-1, '-', nil, style)
	}
}

func drawShot(screen tcell.Screen, width, ground int, shot combat.Projectile) {
	r, style := '*', styleShot
	if shot.Ultimate {
		r, style = 'O', styleUltimate
	}
	screen.SetContent(column(shot.Position.X, width), ground-1, r, nil, style)
}

func overlayLines(overlay match.Overlay) []string {
	switch overlay.Kind {
	case match.OverlayModeSelect:
		lines := []string{"SELECT MODE", ""}
		modes := overlay.Modes
		if len(modes) == 0 {
			modes = match.Modes
		}
		for i, mode := range modes {
			lines = append(lines, fmt.Sprintf("[%d] %s", i+1, mode.Title()))
		}
		return append(lines, "", "[R] rules   [Esc] quit")
	case match.OverlayRules:
		return rulesText
	case match.OverlayGameOver:
		return []string{"GAME OVER", "", overlay.Verdict, "", "Play again? [Y]/[N]"}
	}
	return nil
}

func drawOverlay(screen tcell.Screen, width, height int, overlay match.Overlay) {
	lines := overlayLines(overlay)
	if len(lines) == 0 {
		return
	}
	//1.- Size the box around the longest line and centre it.
	inner := 0
	for _, line := range lines {
		if n := len([]rune(line)); n > inner {
			inner = n
		}
	}
	boxW, boxH := inner+4, len(lines)+2
	left, top := (width-boxW)/2, (height-boxH)/2
	if left < 0 {
		left = 0
	}
	if top < 0 {
		top = 0
	}
	//2.- Fill the box then write the lines; the first line is the title.
	for y := top; y < top+boxH && y < height; y++ {
		for x := left; x < left+boxW && x < width; x++ {
			screen.SetContent(x, y, ' ', nil, styleOverlay)
		}
	}
	for i, line := range lines {
		style := styleOverlay
		if i == 0 {
			style = styleOverlayHot
		}
		pad := (inner - len([]rune(line))) / 2
		drawText(screen, left+2+pad, top+1+i, width, line, style)
	}
}

func drawText(screen tcell.Screen, x, y, width int, text string, style tcell.Style) {
	for _, r := range text {
		if x >= width {
			return
		}
		if x >= 0 {
			screen.SetContent(x, y, r, nil, style)
		}
		x++
	}
}
