package affect

// Diagnostics exposes the estimator internals for display and telemetry.
type Diagnostics struct {
	Levels             IntegratorState `json:"levels"`
	Flags              GestureFlags    `json:"flags"`
	RealSleep          bool            `json:"real_sleep"`
	JoyConfirmed       bool            `json:"joy_confirmed"`
	ConfusionConfirmed bool            `json:"confusion_confirmed"`
	Features           FeatureVector   `json:"features"`
	RejectedSamples    int             `json:"rejected_samples,omitempty"`
}

// Result is the outcome of one Tick.
type Result struct {
	State       State       `json:"state"`
	Progress    float64     `json:"progress"`
	Detail      string      `json:"detail"`
	Diagnostics Diagnostics `json:"diagnostics"`
}

// Estimator is the calibration-then-classification pipeline. It is a
// synchronous state transformer and is not safe for concurrent use; the host
// must serialize calls to Tick and ResetCalibration.
type Estimator struct {
	cfg         Config
	gate        Gate
	calibrator  *Calibrator
	calibration *Calibration
	latched     bool
	bank        *Bank
	last        Result
}

// New creates an Estimator awaiting calibration.
// A non-positive CalibrationFrames or LevelMax falls back to the default, and
// an empty ConfusionPolicy means ConfusionLeaky. The result must pass
// Config.Validate.
func New(cfg Config) (*Estimator, error) {
	if cfg.CalibrationFrames <= 0 {
		cfg.CalibrationFrames = DefaultCalibrationFrames
	}
	if cfg.LevelMax <= 0 {
		cfg.LevelMax = DefaultLevelMax
	}
	if cfg.ConfusionPolicy == "" {
		cfg.ConfusionPolicy = ConfusionLeaky
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	e := &Estimator{
		cfg:        cfg,
		gate:       NewGate(cfg),
		calibrator: NewCalibrator(cfg),
		bank:       NewBank(cfg),
	}
	e.last = e.calibratingResult(FeatureVector{})
	return e, nil
}

// Config returns the configuration the estimator runs with.
func (e *Estimator) Config() Config {
	return e.cfg
}

// ResetCalibration discards the baseline, thresholds and smile latch and
// starts a new calibration window. Integrator levels are left untouched.
func (e *Estimator) ResetCalibration() {
	e.calibration = nil
	e.latched = false
	e.calibrator.Begin()
	e.last = e.calibratingResult(FeatureVector{})
}

// Calibration returns the active calibration, if any.
func (e *Estimator) Calibration() (Calibration, bool) {
	if e.calibration == nil {
		return Calibration{}, false
	}
	return *e.calibration, true
}

// Snapshot returns the result of the most recent tick without advancing.
func (e *Estimator) Snapshot() Result {
	return e.last
}

// Tick consumes one frame's features. Frames without a face must not be fed;
// the integrators only move when Tick is called.
func (e *Estimator) Tick(fv FeatureVector) Result {
	if e.calibration == nil {
		if cal, ok := e.calibrator.AddSample(fv); ok {
			e.calibration = cal
			e.last = Result{
				State:    StateCalibrating,
				Progress: 1,
				Detail:   DetailCalibrated,
				Diagnostics: Diagnostics{
					Levels:   e.bank.State(),
					Features: fv,
				},
			}
			return e.last
		}
		e.last = e.calibratingResult(fv)
		return e.last
	}

	flags := e.gate.Evaluate(fv, e.calibration.Baseline, e.calibration.Thresholds, e.latched)
	e.latched = flags.Smile

	s := signals{yawning: flags.Yawning}
	s.joyConfirmed = e.bank.UpdateJoy(flags.Smile)
	suppress := e.cfg.SmileSuppression && s.joyConfirmed
	if suppress {
		flags.Suppress()
	}
	s.confusionConfirmed = e.bank.UpdateConfusion(flags) && !suppress
	s.realSleep = e.bank.UpdateBlink(flags.EyesClosed)

	detail := resolveFatigue(e.cfg, e.bank, s)

	e.last = Result{
		State:    resolveState(e.bank, s),
		Progress: 1,
		Detail:   detail,
		Diagnostics: Diagnostics{
			Levels:             e.bank.State(),
			Flags:              flags,
			RealSleep:          s.realSleep,
			JoyConfirmed:       s.joyConfirmed,
			ConfusionConfirmed: s.confusionConfirmed,
			Features:           fv,
		},
	}
	return e.last
}

func (e *Estimator) calibratingResult(fv FeatureVector) Result {
	r := Result{
		State:    StateCalibrating,
		Progress: e.calibrator.Progress(),
		Detail:   DetailCalibrating,
		Diagnostics: Diagnostics{
			Levels:          e.bank.State(),
			Features:        fv,
			RejectedSamples: e.calibrator.Rejected(),
		},
	}
	if e.calibrator.Collected() == 0 {
		r.State = StateAwaitingCalibration
		r.Detail = DetailAwaiting
	}
	return r
}
