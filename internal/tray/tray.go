// Package tray provides the system tray menu for mindreader.
package tray

import (
	"sync"

	"github.com/getlantern/systray"

	"github.com/ayusman/mindreader/internal/affect"
)

// Tray represents the system tray application.
type Tray struct {
	onToggle      func(enabled bool)
	onRecalibrate func()
	onDashboard   func()
	onQuit        func()
	enabled       bool
	state         affect.State
	detail        string
	mu            sync.RWMutex

	// Menu items stored for later updates
	menuToggle *systray.MenuItem
	menuState  *systray.MenuItem
}

// New creates a new Tray. enabled is the initial detection state.
func New(enabled bool) *Tray {
	return &Tray{
		enabled: enabled,
		state:   affect.StateAwaitingCalibration,
	}
}

// OnToggle sets the callback function to be called when the enabled state is toggled.
func (t *Tray) OnToggle(fn func(enabled bool)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onToggle = fn
}

// OnRecalibrate sets the callback for the Recalibrate menu item.
func (t *Tray) OnRecalibrate(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onRecalibrate = fn
}

// OnDashboard sets the callback for the Open Dashboard menu item.
func (t *Tray) OnDashboard(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onDashboard = fn
}

// OnQuit sets the callback function to be called when the quit menu item is clicked.
func (t *Tray) OnQuit(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onQuit = fn
}

// Run starts the system tray application.
// This function blocks until systray.Quit() is called.
func (t *Tray) Run() {
	systray.Run(t.onReady, t.onExit)
}

// Quit stops the tray event loop.
func (t *Tray) Quit() {
	systray.Quit()
}

// onReady is called when the system tray is ready.
// It sets up the menu structure.
func (t *Tray) onReady() {
	systray.SetTitle("Mindreader")
	systray.SetTooltip("Mindreader affective state")

	t.mu.Lock()
	t.menuState = systray.AddMenuItem(StateLine(t.state, t.detail), "Current state")
	t.menuState.Disable()
	systray.AddSeparator()

	t.menuToggle = systray.AddMenuItem(toggleTitle(t.enabled), "Toggle detection")
	t.mu.Unlock()

	menuRecalibrate := systray.AddMenuItem("Recalibrate", "Start a new calibration")
	menuDashboard := systray.AddMenuItem("Open Dashboard...", "Open dashboard in browser")
	systray.AddSeparator()

	menuQuit := systray.AddMenuItem("Quit", "Quit Mindreader")

	// Handle menu item clicks in a separate goroutine
	go func() {
		for {
			select {
			case <-t.menuToggle.ClickedCh:
				t.handleToggle()
			case <-menuRecalibrate.ClickedCh:
				t.call(func() func() { return t.onRecalibrate })
			case <-menuDashboard.ClickedCh:
				t.call(func() func() { return t.onDashboard })
			case <-menuQuit.ClickedCh:
				t.call(func() func() { return t.onQuit })
				systray.Quit()
				return
			}
		}
	}()
}

func (t *Tray) onExit() {}

// handleToggle handles the toggle menu item click.
func (t *Tray) handleToggle() {
	t.mu.Lock()
	t.enabled = !t.enabled
	enabled := t.enabled
	if t.menuToggle != nil {
		t.menuToggle.SetTitle(toggleTitle(enabled))
	}
	callback := t.onToggle
	t.mu.Unlock()

	// Call the callback outside the lock to prevent deadlocks
	if callback != nil {
		callback(enabled)
	}
}

// call runs the callback returned by get outside the lock.
func (t *Tray) call(get func() func()) {
	t.mu.RLock()
	callback := get()
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}
}

// SetState updates the state line. It is safe to call before Run.
func (t *Tray) SetState(state affect.State, detail string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if state == t.state && detail == t.detail {
		return
	}
	t.state = state
	t.detail = detail
	if t.menuState != nil {
		t.menuState.SetTitle(StateLine(state, detail))
		systray.SetTitle(titleFor(state))
	}
}

// IsEnabled returns the current enabled state.
func (t *Tray) IsEnabled() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.enabled
}

// StateLine formats the state menu entry.
func StateLine(state affect.State, detail string) string {
	if detail == "" {
		return "State: " + string(state)
	}
	return "State: " + string(state) + " (" + detail + ")"
}

func toggleTitle(enabled bool) string {
	if enabled {
		return "● Enabled"
	}
	return "○ Disabled"
}

func titleFor(state affect.State) string {
	switch state {
	case affect.StateHappy:
		return "Mindreader :)"
	case affect.StateConfused:
		return "Mindreader ?"
	case affect.StateSleepy:
		return "Mindreader z"
	default:
		return "Mindreader"
	}
}
