package terminal

import (
	"context"
	"errors"
	"time"

	"github.com/gdamore/tcell/v2"

	"stickduel/arena/internal/input"
	"stickduel/arena/internal/logging"
)

// ErrQuit is returned by Run when the player asks to leave.
var ErrQuit = errors.New("terminal: quit requested")

// DefaultRefresh is how often the screen is redrawn without input.
const DefaultRefresh = time.Second / 30

// OpenScreen allocates and initialises the terminal screen. Callers must Fini it.
func OpenScreen() (tcell.Screen, error) {
	screen, err := tcell.NewScreen()
	if err != nil {
		return nil, err
	}
	if err := screen.Init(); err != nil {
		return nil, err
	}
	screen.HideCursor()
	return screen, nil
}

// Run pumps key events into the controls and redraws the screen until the context ends
// or the player quits. The screen must already be initialised.
func (f *Frontend) Run(ctx context.Context, screen tcell.Screen, controls Controls, logger *logging.Logger) error {
	if f == nil || screen == nil {
		return errors.New("terminal: frontend and screen are required")
	}
	//1.- Forward screen events onto a channel so the select below can also watch the ticker.
	events := make(chan tcell.Event, 32)
	quit := make(chan struct{})
	go screen.ChannelEvents(events, quit)
	defer close(quit)

	ticker := time.NewTicker(DefaultRefresh)
	defer ticker.Stop()
	f.Draw(screen)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return ErrQuit
			}
			//2.- Keys become actions against whatever overlay is showing right now.
			switch ev := ev.(type) {
			case *tcell.EventKey:
				action := MapKey(ev, f.Overlay())
				if !f.admit(action, ev.When()) {
					continue
				}
				keep, err := Dispatch(action, controls)
				if err != nil {
					logger.Warn("terminal input rejected", logging.Error(err))
				}
				if !keep {
					return ErrQuit
				}
			case *tcell.EventResize:
				screen.Sync()
			}
			f.Draw(screen)
		case <-ticker.C:
			f.Draw(screen)
		}
	}
}

// admit numbers the press and runs it through the input gate when one is configured.
func (f *Frontend) admit(action Action, at time.Time) bool {
	source := action.Source()
	if f.gate == nil || source == "" {
		return true
	}
	//1.- Run is the only caller so the counter needs no lock.
	f.presses++
	return f.gate.Evaluate(input.Press{Source: source, Sequence: f.presses, At: at}).Accepted
}
