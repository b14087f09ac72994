package affect

import "math"

// GestureFlags are the per-frame boolean gestures produced by the Gate.
type GestureFlags struct {
	EyesClosed  bool `json:"eyes_closed"`
	Yawning     bool `json:"yawning"`
	Smile       bool `json:"smile"` // latched raw smile
	Frown       bool `json:"frown"`
	Squinting   bool `json:"squinting"`
	Tension     bool `json:"tension"`
	FocusLook   bool `json:"focus_look"`
	ConfusedRaw bool `json:"confused_raw"`
	TiltingRaw  bool `json:"tilting_raw"`

	// Smile thresholds actually applied this frame.
	DepthCompensation float64 `json:"depth_compensation"`
	SmileEnter        float64 `json:"smile_enter"`
	SmileExit         float64 `json:"smile_exit"`
}

// Suppress clears the confusion and tilt gestures. It is applied while joy is
// confirmed so a smiling face never also registers as confused.
func (f *GestureFlags) Suppress() {
	f.ConfusedRaw = false
	f.TiltingRaw = false
}

// Gate classifies raw gestures from a frame's features against a calibration.
// It holds no per-frame state; the smile latch is passed in and returned.
type Gate struct {
	tensionFactor     float64
	depthCompensation float64
	tiltTriggerDeg    float64
}

// NewGate creates a Gate from the estimator configuration.
func NewGate(cfg Config) Gate {
	return Gate{
		tensionFactor:     cfg.TensionFactor,
		depthCompensation: cfg.DepthCompensation,
		tiltTriggerDeg:    cfg.TiltTriggerDeg,
	}
}

// Evaluate computes the gesture flags for one frame. Inputs outside their
// valid domain (NaN, Inf, negative ratios, non-positive face scale) leave the
// affected flags false.
func (g Gate) Evaluate(fv FeatureVector, b BaselineProfile, th ThresholdSet, latched bool) GestureFlags {
	var f GestureFlags

	earOK := isRatio(fv.EyeAspectRatio)
	browOK := isRatio(fv.BrowRatio)

	f.EyesClosed = earOK && fv.EyeAspectRatio < th.SleepEAR
	f.Yawning = isRatio(fv.MouthAspectRatio) && fv.MouthAspectRatio > th.Yawn

	// Depth compensation: a face closer than at calibration raises the smile bar.
	f.DepthCompensation = 1.0
	scaleOK := isFinite(fv.FaceScale) && fv.FaceScale > 0
	if scaleOK {
		scaleFactor := fv.FaceScale / math.Max(b.FaceScale, 1)
		f.DepthCompensation = 1.0 + (scaleFactor-1.0)*g.depthCompensation
	}
	f.SmileEnter = th.SmileEnter * f.DepthCompensation
	f.SmileExit = th.SmileExit * f.DepthCompensation

	if scaleOK && isRatio(fv.SmileRatio) {
		if !latched {
			f.Smile = fv.SmileRatio > f.SmileEnter
		} else {
			f.Smile = !(fv.SmileRatio < f.SmileExit)
		}
	}

	f.Frown = browOK && fv.BrowRatio < th.ConfusedBrow
	f.Squinting = earOK && fv.EyeAspectRatio > th.SleepEAR && fv.EyeAspectRatio < th.Squint
	f.Tension = browOK && fv.BrowRatio < b.BrowRatio*g.tensionFactor
	f.FocusLook = f.Squinting && f.Tension
	f.ConfusedRaw = f.Frown || f.FocusLook

	if isFinite(fv.RollAngleDeg) {
		f.TiltingRaw = math.Abs(fv.RollAngleDeg-b.RollAngleDeg) > g.tiltTriggerDeg
	}

	return f
}
