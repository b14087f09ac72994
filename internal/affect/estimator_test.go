package affect

import (
	"errors"
	"math"
	"math/rand"
	"testing"
)

func TestEstimator_AwaitingThenCalibrating(t *testing.T) {
	cfg := DefaultConfig()
	e := mustNew(t, cfg)

	if got := e.Snapshot().State; got != StateAwaitingCalibration {
		t.Fatalf("expected %s before any frame, got %s", StateAwaitingCalibration, got)
	}

	r := e.Tick(relaxed)
	if r.State != StateCalibrating {
		t.Errorf("expected %s, got %s", StateCalibrating, r.State)
	}
	if !near(r.Progress, 1.0/30) {
		t.Errorf("expected progress 1/30, got %v", r.Progress)
	}

	for i := 1; i < cfg.CalibrationFrames; i++ {
		r = e.Tick(relaxed)
	}
	if r.State != StateCalibrating || r.Progress != 1 || r.Detail != DetailCalibrated {
		t.Errorf("expected completed calibration result, got %+v", r)
	}

	r = e.Tick(relaxed)
	if r.State != StateNormal {
		t.Errorf("expected %s after calibration, got %s", StateNormal, r.State)
	}
	if r.Detail != DetailMonitoring {
		t.Errorf("expected detail %q, got %q", DetailMonitoring, r.Detail)
	}
}

func TestEstimator_InvalidFramesNeverCalibrate(t *testing.T) {
	e := mustNew(t, DefaultConfig())
	bad := relaxed
	bad.FaceScale = 0

	for i := 0; i < 500; i++ {
		r := e.Tick(bad)
		if r.State != StateAwaitingCalibration {
			t.Fatalf("frame %d: expected %s, got %s", i, StateAwaitingCalibration, r.State)
		}
	}
	if got := e.Snapshot().Diagnostics.RejectedSamples; got != 500 {
		t.Errorf("expected 500 rejected samples, got %d", got)
	}
}

func TestEstimator_SleepScenario(t *testing.T) {
	e := calibrated(t, DefaultConfig())

	closed := relaxed
	closed.EyeAspectRatio = 0.15

	for tick := 1; tick <= 40; tick++ {
		r := e.Tick(closed)
		d := r.Diagnostics

		if tick <= 8 {
			if d.RealSleep {
				t.Fatalf("tick %d: blink registered as sleep", tick)
			}
			if r.Detail != DetailBlinking {
				t.Errorf("tick %d: expected detail %q, got %q", tick, DetailBlinking, r.Detail)
			}
			if d.Levels.Fatigue != 0 {
				t.Errorf("tick %d: expected fatigue 0, got %v", tick, d.Levels.Fatigue)
			}
			continue
		}

		if !d.RealSleep {
			t.Fatalf("tick %d: expected real sleep", tick)
		}
		if r.Detail != DetailSleeping {
			t.Errorf("tick %d: expected detail %q, got %q", tick, DetailSleeping, r.Detail)
		}

		want := float64(3 * (tick - 8))
		if want > 100 {
			want = 100
		}
		if !near(d.Levels.Fatigue, want) {
			t.Errorf("tick %d: expected fatigue %v, got %v", tick, want, d.Levels.Fatigue)
		}

		wantState := StateNormal
		if tick >= 35 {
			wantState = StateSleepy
		}
		if r.State != wantState {
			t.Errorf("tick %d: expected %s, got %s (fatigue %v)", tick, wantState, r.State, d.Levels.Fatigue)
		}
	}
}

func TestEstimator_HappyScenario(t *testing.T) {
	e := calibrated(t, DefaultConfig())

	smiling := relaxed
	smiling.SmileRatio = 0.60

	var r Result
	for tick := 1; tick <= 25; tick++ {
		r = e.Tick(smiling)

		if !r.Diagnostics.Flags.Smile {
			t.Fatalf("tick %d: expected raw smile latched", tick)
		}
		if tick <= 20 && r.State != StateNormal {
			t.Errorf("tick %d: expected %s before joy confirms, got %s", tick, StateNormal, r.State)
		}
		if tick > 20 && r.State != StateHappy {
			t.Errorf("tick %d: expected %s, got %s (joy %v)", tick, StateHappy, r.State, r.Diagnostics.Levels.Joy)
		}
	}

	if !near(r.Diagnostics.Levels.Joy, 50) {
		t.Errorf("expected joy 50 after 25 ticks, got %v", r.Diagnostics.Levels.Joy)
	}
	if r.Detail != DetailSmiling {
		t.Errorf("expected detail %q, got %q", DetailSmiling, r.Detail)
	}

	// Joy decays faster than it rises.
	r = e.Tick(relaxed)
	if !near(r.Diagnostics.Levels.Joy, 40) {
		t.Errorf("expected joy 40 after one neutral tick, got %v", r.Diagnostics.Levels.Joy)
	}
	if r.State != StateNormal {
		t.Errorf("expected %s once joy drops to the threshold, got %s", StateNormal, r.State)
	}
}

func TestEstimator_BlinkImmunity(t *testing.T) {
	closed := relaxed
	closed.EyeAspectRatio = 0.15

	for run := 1; run <= 8; run++ {
		e := calibrated(t, DefaultConfig())
		for i := 0; i < run; i++ {
			if e.Tick(closed).Diagnostics.RealSleep {
				t.Fatalf("run of %d closed frames registered sleep at frame %d", run, i+1)
			}
		}
		r := e.Tick(relaxed)
		if r.Diagnostics.RealSleep || r.Diagnostics.Levels.EyesClosedFrames != 0 {
			t.Errorf("run of %d: expected counter reset after opening, got %+v", run, r.Diagnostics.Levels)
		}
	}

	e := calibrated(t, DefaultConfig())
	for i := 1; i <= 9; i++ {
		got := e.Tick(closed).Diagnostics.RealSleep
		if got != (i == 9) {
			t.Errorf("frame %d: expected real sleep %v, got %v", i, i == 9, got)
		}
	}
}

func TestEstimator_Confusion(t *testing.T) {
	frowning := relaxed
	frowning.BrowRatio = 0.20

	t.Run("leaky integrator confirms above 50", func(t *testing.T) {
		e := calibrated(t, DefaultConfig())
		for tick := 1; tick <= 40; tick++ {
			r := e.Tick(frowning)
			// 1.5 per tick crosses 50 on tick 34.
			want := tick >= 34
			if r.Diagnostics.ConfusionConfirmed != want {
				t.Fatalf("tick %d: expected confirmed %v, level %v", tick, want, r.Diagnostics.Levels.Confusion)
			}
			if want && (r.State != StateConfused || r.Detail != DetailThinking) {
				t.Errorf("tick %d: expected %s/%s, got %s/%s", tick, StateConfused, DetailThinking, r.State, r.Detail)
			}
		}
	})

	t.Run("tilt counts as confusion", func(t *testing.T) {
		e := calibrated(t, DefaultConfig())
		tilted := relaxed
		tilted.RollAngleDeg = 20
		var r Result
		for i := 0; i < 40; i++ {
			r = e.Tick(tilted)
		}
		if r.State != StateConfused {
			t.Errorf("expected %s, got %s", StateConfused, r.State)
		}
	})

	t.Run("closed eyes block confusion", func(t *testing.T) {
		e := calibrated(t, DefaultConfig())
		closedFrown := frowning
		closedFrown.EyeAspectRatio = 0.15
		for i := 0; i < 40; i++ {
			if r := e.Tick(closedFrown); r.Diagnostics.Levels.Confusion != 0 {
				t.Fatalf("tick %d: expected confusion 0, got %v", i+1, r.Diagnostics.Levels.Confusion)
			}
		}
	})

	t.Run("frame counter policy", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.ConfusionPolicy = ConfusionFrames
		cfg.ConfusionFrames = 10
		e := calibrated(t, cfg)

		for tick := 1; tick <= 11; tick++ {
			r := e.Tick(frowning)
			if got := r.Diagnostics.ConfusionConfirmed; got != (tick == 11) {
				t.Errorf("tick %d: expected confirmed %v, got %v", tick, tick == 11, got)
			}
		}

		r := e.Tick(relaxed)
		if r.Diagnostics.ConfusionConfirmed || r.Diagnostics.Levels.ConfusedFrames != 0 {
			t.Errorf("expected counter reset on a neutral frame, got %+v", r.Diagnostics)
		}
	})
}

func TestEstimator_SmileSuppressesConfusion(t *testing.T) {
	frowning := relaxed
	frowning.BrowRatio = 0.20

	happyFrown := frowning
	happyFrown.SmileRatio = 0.60
	happyFrown.RollAngleDeg = 25

	t.Run("enabled", func(t *testing.T) {
		e := calibrated(t, DefaultConfig())
		for i := 0; i < 40; i++ {
			e.Tick(frowning)
		}
		if got := e.Snapshot().State; got != StateConfused {
			t.Fatalf("expected %s before smiling, got %s", StateConfused, got)
		}

		sawHappy := false
		for tick := 1; tick <= 40; tick++ {
			r := e.Tick(happyFrown)
			d := r.Diagnostics
			if d.JoyConfirmed {
				if d.ConfusionConfirmed {
					t.Fatalf("tick %d: confusion confirmed while joy confirmed (level %v)", tick, d.Levels.Confusion)
				}
				if d.Flags.ConfusedRaw || d.Flags.TiltingRaw {
					t.Fatalf("tick %d: raw confusion flags not suppressed", tick)
				}
				if r.State != StateHappy {
					t.Errorf("tick %d: expected %s, got %s", tick, StateHappy, r.State)
				}
				sawHappy = true
			}
		}
		if !sawHappy {
			t.Error("joy never confirmed")
		}
	})

	t.Run("disabled", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.SmileSuppression = false
		e := calibrated(t, cfg)
		for i := 0; i < 40; i++ {
			e.Tick(frowning)
		}

		var r Result
		for i := 0; i < 21; i++ {
			r = e.Tick(happyFrown)
		}
		if !r.Diagnostics.JoyConfirmed || !r.Diagnostics.ConfusionConfirmed {
			t.Fatalf("expected both confirmed without suppression, got %+v", r.Diagnostics)
		}
		if r.State != StateHappy {
			t.Errorf("expected %s, got %s", StateHappy, r.State)
		}
	})
}

func TestEstimator_FatigueBranches(t *testing.T) {
	t.Run("yawning", func(t *testing.T) {
		e := calibrated(t, DefaultConfig())
		yawn := relaxed
		yawn.MouthAspectRatio = 0.7
		r := e.Tick(yawn)
		if r.Detail != DetailYawning || !near(r.Diagnostics.Levels.Fatigue, 1.5) {
			t.Errorf("expected %q with fatigue 1.5, got %q with %v", DetailYawning, r.Detail, r.Diagnostics.Levels.Fatigue)
		}
	})

	t.Run("smiling doze", func(t *testing.T) {
		e := calibrated(t, DefaultConfig())
		doze := relaxed
		doze.EyeAspectRatio = 0.15
		doze.SmileRatio = 0.60

		var prev, r Result
		for i := 0; i < 21; i++ {
			prev = r
			r = e.Tick(doze)
		}
		if r.Detail != DetailSmilingDoze {
			t.Fatalf("expected %q, got %q", DetailSmilingDoze, r.Detail)
		}
		delta := r.Diagnostics.Levels.Fatigue - prev.Diagnostics.Levels.Fatigue
		if !near(delta, 1.0) {
			t.Errorf("expected fatigue to rise by 1.0, got %v", delta)
		}
	})

	t.Run("smiling relieves fatigue faster", func(t *testing.T) {
		e := calibrated(t, DefaultConfig())
		closed := relaxed
		closed.EyeAspectRatio = 0.15
		for i := 0; i < 20; i++ {
			e.Tick(closed)
		}
		before := e.Snapshot().Diagnostics.Levels.Fatigue

		smiling := relaxed
		smiling.SmileRatio = 0.60
		var r Result
		for i := 0; i < 21; i++ {
			r = e.Tick(smiling)
		}
		// 20 neutral-relief ticks then one smiling tick.
		want := before - 20*0.5 - 1.0
		if !near(r.Diagnostics.Levels.Fatigue, want) {
			t.Errorf("expected fatigue %v, got %v", want, r.Diagnostics.Levels.Fatigue)
		}
	})
}

func TestEstimator_LevelsStayClamped(t *testing.T) {
	e := calibrated(t, DefaultConfig())
	rng := rand.New(rand.NewSource(7))

	frames := []FeatureVector{relaxed}
	for _, mutate := range []func(*FeatureVector){
		func(fv *FeatureVector) { fv.EyeAspectRatio = 0.1 },
		func(fv *FeatureVector) { fv.MouthAspectRatio = 0.9 },
		func(fv *FeatureVector) { fv.SmileRatio = 0.7 },
		func(fv *FeatureVector) { fv.BrowRatio = 0.1 },
		func(fv *FeatureVector) { fv.RollAngleDeg = 30 },
	} {
		fv := relaxed
		mutate(&fv)
		frames = append(frames, fv)
	}

	check := func(step int, r Result) {
		l := r.Diagnostics.Levels
		for name, v := range map[string]float64{"fatigue": l.Fatigue, "confusion": l.Confusion, "joy": l.Joy} {
			if v < 0 || v > 100 {
				t.Fatalf("step %d: %s level %v out of range", step, name, v)
			}
		}
	}

	// Unbroken runs of each frame type, then random interleaving.
	step := 0
	for _, fv := range frames {
		for i := 0; i < 200; i++ {
			check(step, e.Tick(fv))
			step++
		}
	}
	for i := 0; i < 5000; i++ {
		check(step, e.Tick(frames[rng.Intn(len(frames))]))
		step++
	}
}

func TestEstimator_ResetKeepsLevels(t *testing.T) {
	e := calibrated(t, DefaultConfig())
	closed := relaxed
	closed.EyeAspectRatio = 0.15
	for i := 0; i < 20; i++ {
		e.Tick(closed)
	}
	before := e.Snapshot().Diagnostics.Levels.Fatigue

	e.ResetCalibration()
	r := e.Snapshot()
	if r.State != StateAwaitingCalibration {
		t.Errorf("expected %s, got %s", StateAwaitingCalibration, r.State)
	}
	if r.Diagnostics.Levels.Fatigue != before {
		t.Errorf("expected fatigue %v preserved, got %v", before, r.Diagnostics.Levels.Fatigue)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"default", func(c *Config) {}, false},
		{"frames policy", func(c *Config) { c.ConfusionPolicy = ConfusionFrames }, false},
		{"zero window", func(c *Config) { c.CalibrationFrames = 0 }, true},
		{"exit above enter", func(c *Config) { c.SmileExitFactor = 1.2 }, true},
		{"negative rate", func(c *Config) { c.JoyDecrement = -1 }, true},
		{"unknown policy", func(c *Config) { c.ConfusionPolicy = "vibes" }, true},
		{"zero sleep factor", func(c *Config) { c.SleepEARFactor = 0 }, true},
		{"zero fatigue confirm", func(c *Config) { c.FatigueConfirm = 0 }, true},
		{"NaN tilt trigger", func(c *Config) { c.TiltTriggerDeg = math.NaN() }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestNew_RejectsIncompleteConfig(t *testing.T) {
	// Only the defaulted fields are filled in; every threshold factor is zero.
	e, err := New(Config{SmileSuppression: true})
	if !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("New() error = %v, want ErrInvalidConfig", err)
	}
	if e != nil {
		t.Error("expected nil estimator on error")
	}

	cfg := DefaultConfig()
	cfg.CalibrationFrames = 0
	cfg.LevelMax = 0
	cfg.ConfusionPolicy = ""
	e, err = New(cfg)
	if err != nil {
		t.Fatalf("New() with defaulted fields error = %v", err)
	}
	if got := e.Config(); got.CalibrationFrames != DefaultCalibrationFrames || got.LevelMax != DefaultLevelMax || got.ConfusionPolicy != ConfusionLeaky {
		t.Errorf("defaults not applied: %+v", got)
	}
}
