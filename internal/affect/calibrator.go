package affect

import "gonum.org/v1/gonum/stat"

// Calibration is the outcome of a completed calibration window.
type Calibration struct {
	Baseline   BaselineProfile `json:"baseline"`
	Thresholds ThresholdSet    `json:"thresholds"`
	Samples    int             `json:"samples"`
}

// Calibrator accumulates relaxed-face samples and produces a Calibration once
// the window is full.
type Calibrator struct {
	cfg      Config
	samples  []FeatureVector
	rejected int
}

// NewCalibrator creates a Calibrator for the configured window size.
func NewCalibrator(cfg Config) *Calibrator {
	return &Calibrator{
		cfg:     cfg,
		samples: make([]FeatureVector, 0, cfg.CalibrationFrames),
	}
}

// Begin discards all collected samples.
func (c *Calibrator) Begin() {
	c.samples = c.samples[:0]
	c.rejected = 0
}

// AddSample appends a sample to the window. Samples with non-finite or
// negative ratios, or a non-positive face scale, are rejected and not counted.
// When the window becomes full the calibration is finalized and returned with ok=true.
func (c *Calibrator) AddSample(fv FeatureVector) (cal *Calibration, ok bool) {
	if !fv.valid() {
		c.rejected++
		return nil, false
	}
	if len(c.samples) >= c.cfg.CalibrationFrames {
		return nil, false
	}

	c.samples = append(c.samples, fv)
	if len(c.samples) < c.cfg.CalibrationFrames {
		return nil, false
	}
	return c.finalize(), true
}

// Collected returns the number of accepted samples.
func (c *Calibrator) Collected() int {
	return len(c.samples)
}

// Rejected returns the number of samples dropped since Begin.
func (c *Calibrator) Rejected() int {
	return c.rejected
}

// Progress returns the filled fraction of the window in [0,1].
func (c *Calibrator) Progress() float64 {
	if c.cfg.CalibrationFrames <= 0 {
		return 0
	}
	p := float64(len(c.samples)) / float64(c.cfg.CalibrationFrames)
	if p > 1 {
		return 1
	}
	return p
}

func (c *Calibrator) finalize() *Calibration {
	n := len(c.samples)
	ear := make([]float64, n)
	brow := make([]float64, n)
	mar := make([]float64, n)
	smile := make([]float64, n)
	roll := make([]float64, n)
	scale := make([]float64, n)
	for i, s := range c.samples {
		ear[i] = s.EyeAspectRatio
		brow[i] = s.BrowRatio
		mar[i] = s.MouthAspectRatio
		smile[i] = s.SmileRatio
		roll[i] = s.RollAngleDeg
		scale[i] = s.FaceScale
	}

	baseline := BaselineProfile{
		EyeAspectRatio:   stat.Mean(ear, nil),
		BrowRatio:        stat.Mean(brow, nil),
		MouthAspectRatio: stat.Mean(mar, nil),
		SmileRatio:       stat.Mean(smile, nil),
		RollAngleDeg:     stat.Mean(roll, nil),
		FaceScale:        stat.Mean(scale, nil),
	}

	return &Calibration{
		Baseline:   baseline,
		Thresholds: DeriveThresholds(baseline, c.cfg),
		Samples:    n,
	}
}

// DeriveThresholds computes the adaptive trigger levels for a baseline.
func DeriveThresholds(b BaselineProfile, cfg Config) ThresholdSet {
	return ThresholdSet{
		SleepEAR:     b.EyeAspectRatio * cfg.SleepEARFactor,
		Squint:       b.EyeAspectRatio * cfg.SquintFactor,
		ConfusedBrow: b.BrowRatio * cfg.ConfusedBrowFactor,
		Yawn:         b.MouthAspectRatio + cfg.YawnOffset,
		SmileEnter:   b.SmileRatio * cfg.SmileEnterFactor,
		SmileExit:    b.SmileRatio * cfg.SmileExitFactor,
	}
}
