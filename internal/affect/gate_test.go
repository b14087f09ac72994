package affect

import (
	"math"
	"testing"
)

func referenceCalibration() (BaselineProfile, ThresholdSet) {
	b := BaselineProfile{
		EyeAspectRatio:   0.30,
		BrowRatio:        0.25,
		MouthAspectRatio: 0.10,
		SmileRatio:       0.50,
		RollAngleDeg:     0.0,
		FaceScale:        100,
	}
	return b, DeriveThresholds(b, DefaultConfig())
}

func TestGate_Flags(t *testing.T) {
	gate := NewGate(DefaultConfig())
	b, th := referenceCalibration()

	tests := []struct {
		name   string
		mutate func(*FeatureVector)
		check  func(GestureFlags) bool
	}{
		{
			name:   "relaxed face raises nothing",
			mutate: func(fv *FeatureVector) {},
			check: func(f GestureFlags) bool {
				return !f.EyesClosed && !f.Yawning && !f.Smile && !f.ConfusedRaw && !f.TiltingRaw
			},
		},
		{
			name:   "eyes closed below sleep trigger",
			mutate: func(fv *FeatureVector) { fv.EyeAspectRatio = 0.15 },
			check:  func(f GestureFlags) bool { return f.EyesClosed && !f.Squinting },
		},
		{
			name:   "mouth open past yawn trigger",
			mutate: func(fv *FeatureVector) { fv.MouthAspectRatio = 0.55 },
			check:  func(f GestureFlags) bool { return f.Yawning },
		},
		{
			name:   "frown below confused brow trigger",
			mutate: func(fv *FeatureVector) { fv.BrowRatio = 0.24 },
			check:  func(f GestureFlags) bool { return f.Frown && f.ConfusedRaw },
		},
		{
			name: "squint with slight tension is a focus look",
			mutate: func(fv *FeatureVector) {
				fv.EyeAspectRatio = 0.25
				fv.BrowRatio = 0.248
			},
			check: func(f GestureFlags) bool {
				return f.Squinting && f.Tension && f.FocusLook && !f.Frown && f.ConfusedRaw
			},
		},
		{
			name:   "squint without tension is not confusion",
			mutate: func(fv *FeatureVector) { fv.EyeAspectRatio = 0.25 },
			check:  func(f GestureFlags) bool { return f.Squinting && !f.ConfusedRaw },
		},
		{
			name:   "head tilt past trigger angle",
			mutate: func(fv *FeatureVector) { fv.RollAngleDeg = -12.5 },
			check:  func(f GestureFlags) bool { return f.TiltingRaw },
		},
		{
			name:   "head tilt within trigger angle",
			mutate: func(fv *FeatureVector) { fv.RollAngleDeg = 11.9 },
			check:  func(f GestureFlags) bool { return !f.TiltingRaw },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fv := relaxed
			tt.mutate(&fv)
			f := gate.Evaluate(fv, b, th, false)
			if !tt.check(f) {
				t.Errorf("unexpected flags %+v", f)
			}
		})
	}
}

func TestGate_SmileHysteresis(t *testing.T) {
	gate := NewGate(DefaultConfig())
	b, th := referenceCalibration()

	steps := []struct {
		ratio float64
		want  bool
	}{
		{0.53, false}, // below enter
		{0.55, true},  // crosses enter
		{0.53, true},  // between exit and enter
		{0.525, true},
		{0.535, true},
		{0.521, true},
		{0.51, false}, // below exit
		{0.53, false}, // between again, stays released
		{0.541, true},
	}

	latched := false
	for i, s := range steps {
		fv := relaxed
		fv.SmileRatio = s.ratio
		f := gate.Evaluate(fv, b, th, latched)
		if f.Smile != s.want {
			t.Fatalf("step %d ratio %v: expected smile %v, got %v", i, s.ratio, s.want, f.Smile)
		}
		latched = f.Smile
	}
}

func TestGate_OscillationBetweenThresholdsNeverToggles(t *testing.T) {
	gate := NewGate(DefaultConfig())
	b, th := referenceCalibration()

	for _, start := range []bool{false, true} {
		latched := start
		for i := 0; i < 200; i++ {
			fv := relaxed
			fv.SmileRatio = 0.525 + 0.01*float64(i%2) // 0.525 and 0.535
			f := gate.Evaluate(fv, b, th, latched)
			if f.Smile != start {
				t.Fatalf("latch started %v toggled at step %d", start, i)
			}
			latched = f.Smile
		}
	}
}

func TestGate_DepthCompensationMonotonic(t *testing.T) {
	gate := NewGate(DefaultConfig())
	b, th := referenceCalibration()

	scales := []float64{25, 50, 80, 100, 120, 200, 400}
	prev := math.Inf(-1)
	for _, s := range scales {
		fv := relaxed
		fv.FaceScale = s
		f := gate.Evaluate(fv, b, th, false)
		if f.SmileEnter <= prev {
			t.Errorf("scale %v: enter threshold %v not above %v", s, f.SmileEnter, prev)
		}
		if f.SmileExit >= f.SmileEnter {
			t.Errorf("scale %v: exit %v not below enter %v", s, f.SmileExit, f.SmileEnter)
		}
		prev = f.SmileEnter
	}

	t.Run("double size raises the bar by 15 percent", func(t *testing.T) {
		fv := relaxed
		fv.FaceScale = 200
		f := gate.Evaluate(fv, b, th, false)
		if !near(f.DepthCompensation, 1.15) {
			t.Errorf("expected compensation 1.15, got %v", f.DepthCompensation)
		}
	})

	t.Run("same smile reads differently at different depths", func(t *testing.T) {
		fv := relaxed
		fv.SmileRatio = 0.56
		fv.FaceScale = 100
		if !gate.Evaluate(fv, b, th, false).Smile {
			t.Error("expected smile at calibration distance")
		}
		fv.FaceScale = 200
		if gate.Evaluate(fv, b, th, false).Smile {
			t.Error("expected no smile when the face is twice as close")
		}
	})
}

func TestGate_InvalidInputsAreSafe(t *testing.T) {
	gate := NewGate(DefaultConfig())
	b, th := referenceCalibration()

	inputs := []FeatureVector{
		{EyeAspectRatio: math.NaN(), BrowRatio: math.NaN(), MouthAspectRatio: math.NaN(), SmileRatio: math.NaN(), RollAngleDeg: math.NaN(), FaceScale: math.NaN()},
		{EyeAspectRatio: -1, BrowRatio: -1, MouthAspectRatio: -1, SmileRatio: -1, RollAngleDeg: 0, FaceScale: -5},
		{EyeAspectRatio: math.Inf(-1), BrowRatio: math.Inf(-1), MouthAspectRatio: math.Inf(1), SmileRatio: math.Inf(1), RollAngleDeg: math.Inf(1), FaceScale: math.Inf(1)},
	}

	for i, fv := range inputs {
		for _, latched := range []bool{false, true} {
			f := gate.Evaluate(fv, b, th, latched)
			if f.EyesClosed || f.Yawning || f.Smile || f.Frown || f.Squinting || f.Tension || f.ConfusedRaw || f.TiltingRaw {
				t.Errorf("input %d latched=%v: expected all flags false, got %+v", i, latched, f)
			}
		}
	}
}

func TestGestureFlags_Suppress(t *testing.T) {
	f := GestureFlags{EyesClosed: true, Smile: true, ConfusedRaw: true, TiltingRaw: true}
	f.Suppress()

	if f.ConfusedRaw || f.TiltingRaw {
		t.Errorf("expected confusion and tilt cleared, got %+v", f)
	}
	if !f.EyesClosed || !f.Smile {
		t.Errorf("expected other flags untouched, got %+v", f)
	}
}
