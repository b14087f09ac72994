// Package affect turns per-frame facial geometry into a discrete behavioral state.
//
// An Estimator first learns a person-specific baseline from a short window of
// relaxed-face samples, derives adaptive thresholds from it, and then feeds
// per-frame gesture flags through a bank of leaky integrators so that noisy
// frame-to-frame gestures become stable state transitions.
package affect

import "math"

// FeatureVector holds the facial measurements extracted from a single frame.
// All ratios are image-independent; FaceScale is a pixel distance used as a
// proxy for the subject's distance from the camera.
type FeatureVector struct {
	EyeAspectRatio   float64 `json:"ear"`
	BrowRatio        float64 `json:"brow_ratio"`
	MouthAspectRatio float64 `json:"mar"`
	SmileRatio       float64 `json:"smile_ratio"`
	RollAngleDeg     float64 `json:"roll_deg"`
	FaceScale        float64 `json:"face_scale"`
}

// valid reports whether the vector can be used as a calibration sample.
func (f FeatureVector) valid() bool {
	return isRatio(f.EyeAspectRatio) &&
		isRatio(f.BrowRatio) &&
		isRatio(f.MouthAspectRatio) &&
		isRatio(f.SmileRatio) &&
		isFinite(f.RollAngleDeg) &&
		isFinite(f.FaceScale) && f.FaceScale > 0
}

// BaselineProfile is the mean of each FeatureVector field over the calibration window.
type BaselineProfile struct {
	EyeAspectRatio   float64 `json:"ear"`
	BrowRatio        float64 `json:"brow_ratio"`
	MouthAspectRatio float64 `json:"mar"`
	SmileRatio       float64 `json:"smile_ratio"`
	RollAngleDeg     float64 `json:"roll_deg"`
	FaceScale        float64 `json:"face_scale"`
}

// ThresholdSet holds the trigger levels derived from a BaselineProfile.
type ThresholdSet struct {
	SleepEAR     float64 `json:"sleep_ear"`
	Squint       float64 `json:"squint"`
	ConfusedBrow float64 `json:"confused_brow"`
	Yawn         float64 `json:"yawn"`
	SmileEnter   float64 `json:"smile_enter"`
	SmileExit    float64 `json:"smile_exit"`
}

// State is the exported behavioral state.
type State string

const (
	StateAwaitingCalibration State = "AWAITING_CALIBRATION"
	StateCalibrating         State = "CALIBRATING"
	StateNormal              State = "NORMAL"
	StateHappy               State = "HAPPY"
	StateConfused            State = "CONFUSED"
	StateSleepy              State = "SLEEPY"
)

// Calibrated reports whether the state is a classification result rather than
// a calibration phase.
func (s State) Calibrated() bool {
	switch s {
	case StateNormal, StateHappy, StateConfused, StateSleepy:
		return true
	}
	return false
}

// ParseState converts a state name into a State.
func ParseState(s string) (State, bool) {
	switch st := State(s); st {
	case StateAwaitingCalibration, StateCalibrating, StateNormal, StateHappy, StateConfused, StateSleepy:
		return st, true
	}
	return "", false
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// isRatio reports whether v is a usable non-negative ratio.
func isRatio(v float64) bool {
	return isFinite(v) && v >= 0
}
