package affect

// Integrator is a bounded leaky accumulator with asymmetric rise and decay.
type Integrator struct {
	Level     float64
	Increment float64
	Decrement float64
	Confirm   float64
	Max       float64
}

// Update raises the level on a triggering frame and decays it otherwise.
// The level is clamped to [0, Max] and returned.
func (i *Integrator) Update(triggered bool) float64 {
	if triggered {
		return i.Add(i.Increment)
	}
	return i.Add(-i.Decrement)
}

// Add moves the level by delta and clamps it to [0, Max].
func (i *Integrator) Add(delta float64) float64 {
	i.Level = clamp(i.Level+delta, 0, i.Max)
	return i.Level
}

// Confirmed reports whether the level is strictly above the confirm threshold.
func (i *Integrator) Confirmed() bool {
	return i.Level > i.Confirm
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// IntegratorState is a point-in-time copy of the bank's levels and counters.
type IntegratorState struct {
	Fatigue          float64 `json:"fatigue"`
	Confusion        float64 `json:"confusion"`
	Joy              float64 `json:"joy"`
	EyesClosedFrames uint    `json:"eyes_closed_frames"`
	ConfusedFrames   uint    `json:"confused_frames"`
}

// Bank holds the joy, confusion and fatigue integrators plus the blink filter.
type Bank struct {
	joy       Integrator
	confusion Integrator
	fatigue   Integrator

	eyesClosedFrames uint
	confusedFrames   uint

	policy          ConfusionPolicy
	confusionFrames uint
	blinkFrames     uint
}

// NewBank creates an integrator bank with all levels at zero.
func NewBank(cfg Config) *Bank {
	return &Bank{
		joy: Integrator{
			Increment: cfg.JoyIncrement,
			Decrement: cfg.JoyDecrement,
			Confirm:   cfg.JoyConfirm,
			Max:       cfg.LevelMax,
		},
		confusion: Integrator{
			Increment: cfg.ConfusionIncrement,
			Decrement: cfg.ConfusionDecrement,
			Confirm:   cfg.ConfusionConfirm,
			Max:       cfg.LevelMax,
		},
		fatigue: Integrator{
			Confirm: cfg.FatigueConfirm,
			Max:     cfg.LevelMax,
		},
		policy:          cfg.ConfusionPolicy,
		confusionFrames: cfg.ConfusionFrames,
		blinkFrames:     cfg.BlinkFilterFrames,
	}
}

// UpdateJoy feeds the latched raw smile and reports whether joy is confirmed.
func (b *Bank) UpdateJoy(smile bool) bool {
	b.joy.Update(smile)
	return b.joy.Confirmed()
}

// UpdateConfusion feeds the confusion gestures and reports whether confusion
// is confirmed under the configured policy. Closed eyes never count as confusion.
func (b *Bank) UpdateConfusion(f GestureFlags) bool {
	triggered := (f.ConfusedRaw || f.TiltingRaw) && !f.EyesClosed
	b.confusion.Update(triggered)

	if triggered {
		b.confusedFrames++
	} else {
		b.confusedFrames = 0
	}

	if b.policy == ConfusionFrames {
		return b.confusedFrames > b.confusionFrames
	}
	return b.confusion.Confirmed()
}

// UpdateBlink advances the closed-eye counter and reports whether the closure
// has lasted longer than a blink.
func (b *Bank) UpdateBlink(eyesClosed bool) bool {
	if eyesClosed {
		b.eyesClosedFrames++
	} else {
		b.eyesClosedFrames = 0
	}
	return b.eyesClosedFrames > b.blinkFrames
}

// FatigueConfirmed reports whether fatigue is above its confirm threshold.
func (b *Bank) FatigueConfirmed() bool {
	return b.fatigue.Confirmed()
}

// State returns a copy of the current levels and counters.
func (b *Bank) State() IntegratorState {
	return IntegratorState{
		Fatigue:          b.fatigue.Level,
		Confusion:        b.confusion.Level,
		Joy:              b.joy.Level,
		EyesClosedFrames: b.eyesClosedFrames,
		ConfusedFrames:   b.confusedFrames,
	}
}
