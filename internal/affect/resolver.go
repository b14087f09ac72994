package affect

// Status details reported next to the state.
const (
	DetailAwaiting    = "Awaiting calibration"
	DetailCalibrating = "Calibrating"
	DetailCalibrated  = "Calibration complete"
	DetailYawning     = "Yawning"
	DetailSmilingDoze = "Smiling Doze"
	DetailSleeping    = "Sleeping"
	DetailSmiling     = "Smiling"
	DetailThinking    = "Thinking"
	DetailBlinking    = "Blinking"
	DetailMonitoring  = "Monitoring"
)

// signals are the confirmed inputs to the resolver for one frame.
type signals struct {
	yawning            bool
	realSleep          bool
	joyConfirmed       bool
	confusionConfirmed bool
}

// resolveFatigue applies exactly one fatigue branch, first match wins, and
// returns the status detail for it.
func resolveFatigue(cfg Config, b *Bank, s signals) string {
	switch {
	case s.yawning:
		b.fatigue.Add(cfg.FatigueYawn)
		return DetailYawning
	case s.realSleep && s.joyConfirmed:
		b.fatigue.Add(cfg.FatigueSmilingDoze)
		return DetailSmilingDoze
	case s.realSleep:
		b.fatigue.Add(cfg.FatigueSleep)
		return DetailSleeping
	case s.joyConfirmed:
		b.fatigue.Add(-cfg.FatigueSmileRelief)
		return DetailSmiling
	case s.confusionConfirmed:
		b.fatigue.Add(-cfg.FatigueRelief)
		return DetailThinking
	default:
		b.fatigue.Add(-cfg.FatigueRelief)
		if b.eyesClosedFrames > 0 {
			return DetailBlinking
		}
		return DetailMonitoring
	}
}

// resolveState maps the confirmed signals to the exported state by fixed priority.
func resolveState(b *Bank, s signals) State {
	switch {
	case b.FatigueConfirmed():
		return StateSleepy
	case s.confusionConfirmed && !s.joyConfirmed:
		return StateConfused
	case s.joyConfirmed:
		return StateHappy
	default:
		return StateNormal
	}
}
