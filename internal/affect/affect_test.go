package affect

import (
	"math"
	"testing"
)

const epsilon = 1e-9

// relaxed is the reference baseline face.
var relaxed = FeatureVector{
	EyeAspectRatio:   0.30,
	BrowRatio:        0.25,
	MouthAspectRatio: 0.10,
	SmileRatio:       0.50,
	RollAngleDeg:     0.0,
	FaceScale:        100,
}

// calibrated returns an estimator that has consumed a full window of relaxed frames.
func calibrated(t *testing.T, cfg Config) *Estimator {
	t.Helper()

	e := mustNew(t, cfg)
	for i := 0; i < cfg.CalibrationFrames; i++ {
		e.Tick(relaxed)
	}
	if _, ok := e.Calibration(); !ok {
		t.Fatalf("expected calibration to complete after %d frames", cfg.CalibrationFrames)
	}
	return e
}

func mustNew(t *testing.T, cfg Config) *Estimator {
	t.Helper()

	e, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return e
}

func near(a, b float64) bool {
	return math.Abs(a-b) < epsilon
}
