package affect

import (
	"errors"
	"fmt"
)

// ConfusionPolicy selects how raw confusion gestures are confirmed.
type ConfusionPolicy string

const (
	// ConfusionLeaky confirms confusion when the leaky integrator exceeds its threshold.
	ConfusionLeaky ConfusionPolicy = "leaky"
	// ConfusionFrames confirms confusion after a run of consecutive triggering frames.
	ConfusionFrames ConfusionPolicy = "frames"
)

// Default tuning values.
const (
	DefaultCalibrationFrames = 30
	DefaultBlinkFilterFrames = 8
	DefaultConfusionFrames   = 10
	DefaultLevelMax          = 100.0
)

// Config holds every tunable of the estimator. The zero value is not usable;
// start from DefaultConfig.
type Config struct {
	// CalibrationFrames is the number of accepted samples in the calibration window.
	CalibrationFrames int

	// Threshold derivation from the baseline.
	SleepEARFactor     float64 // sleep trigger = factor × baseline EAR
	SquintFactor       float64 // squint trigger = factor × baseline EAR
	ConfusedBrowFactor float64 // frown trigger = factor × baseline brow
	YawnOffset         float64 // yawn trigger = baseline MAR + offset
	SmileEnterFactor   float64
	SmileExitFactor    float64

	// Gesture gate.
	TensionFactor     float64 // brow tension = brow < factor × baseline brow
	DepthCompensation float64 // smile threshold gain per unit of scale change
	TiltTriggerDeg    float64

	// Joy integrator.
	JoyIncrement float64
	JoyDecrement float64
	JoyConfirm   float64

	// Confusion integrator.
	ConfusionIncrement float64
	ConfusionDecrement float64
	ConfusionConfirm   float64
	ConfusionPolicy    ConfusionPolicy
	ConfusionFrames    uint // consecutive frames required by ConfusionFrames policy

	// Fatigue integrator.
	FatigueYawn        float64
	FatigueSmilingDoze float64
	FatigueSleep       float64
	FatigueSmileRelief float64
	FatigueRelief      float64
	FatigueConfirm     float64

	// LevelMax is the upper clamp shared by all integrators.
	LevelMax float64

	// BlinkFilterFrames is the number of closed-eye frames tolerated as a blink.
	BlinkFilterFrames uint

	// SmileSuppression forces confusion and tilt off while joy is confirmed.
	SmileSuppression bool
}

// DefaultConfig returns the reference tuning.
func DefaultConfig() Config {
	return Config{
		CalibrationFrames: DefaultCalibrationFrames,

		SleepEARFactor:     0.70,
		SquintFactor:       0.90,
		ConfusedBrowFactor: 0.98,
		YawnOffset:         0.4,
		SmileEnterFactor:   1.08,
		SmileExitFactor:    1.04,

		TensionFactor:     0.995,
		DepthCompensation: 0.15,
		TiltTriggerDeg:    12.0,

		JoyIncrement: 2.0,
		JoyDecrement: 10.0,
		JoyConfirm:   40.0,

		ConfusionIncrement: 1.5,
		ConfusionDecrement: 3.0,
		ConfusionConfirm:   50.0,
		ConfusionPolicy:    ConfusionLeaky,
		ConfusionFrames:    DefaultConfusionFrames,

		FatigueYawn:        1.5,
		FatigueSmilingDoze: 1.0,
		FatigueSleep:       3.0,
		FatigueSmileRelief: 1.0,
		FatigueRelief:      0.5,
		FatigueConfirm:     80.0,

		LevelMax:          DefaultLevelMax,
		BlinkFilterFrames: DefaultBlinkFilterFrames,
		SmileSuppression:  true,
	}
}

// ErrInvalidConfig is returned by Validate for unusable settings.
var ErrInvalidConfig = errors.New("invalid estimator config")

// Validate checks that the configuration can drive an estimator.
func (c Config) Validate() error {
	if c.CalibrationFrames <= 0 {
		return fmt.Errorf("%w: calibration frames must be positive, got %d", ErrInvalidConfig, c.CalibrationFrames)
	}
	if c.LevelMax <= 0 {
		return fmt.Errorf("%w: level max must be positive, got %v", ErrInvalidConfig, c.LevelMax)
	}
	for name, v := range map[string]float64{
		"sleep EAR factor":     c.SleepEARFactor,
		"squint factor":        c.SquintFactor,
		"confused brow factor": c.ConfusedBrowFactor,
		"smile enter factor":   c.SmileEnterFactor,
		"smile exit factor":    c.SmileExitFactor,
		"tension factor":       c.TensionFactor,
		"tilt trigger":         c.TiltTriggerDeg,
		"joy confirm":          c.JoyConfirm,
		"confusion confirm":    c.ConfusionConfirm,
		"fatigue confirm":      c.FatigueConfirm,
	} {
		if !(v > 0) {
			return fmt.Errorf("%w: %s must be positive, got %v", ErrInvalidConfig, name, v)
		}
	}
	if c.SmileExitFactor > c.SmileEnterFactor {
		return fmt.Errorf("%w: smile exit factor %v above enter factor %v", ErrInvalidConfig, c.SmileExitFactor, c.SmileEnterFactor)
	}
	for name, rate := range map[string]float64{
		"joy increment":       c.JoyIncrement,
		"joy decrement":       c.JoyDecrement,
		"confusion increment": c.ConfusionIncrement,
		"confusion decrement": c.ConfusionDecrement,
	} {
		if rate < 0 {
			return fmt.Errorf("%w: %s must not be negative, got %v", ErrInvalidConfig, name, rate)
		}
	}
	switch c.ConfusionPolicy {
	case ConfusionLeaky, ConfusionFrames:
	default:
		return fmt.Errorf("%w: unknown confusion policy %q", ErrInvalidConfig, c.ConfusionPolicy)
	}
	return nil
}
