// Package app runs the mindreader pipeline: camera frames in, affective state out.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"gocv.io/x/gocv"

	"github.com/ayusman/mindreader/internal/affect"
	"github.com/ayusman/mindreader/internal/capture"
	"github.com/ayusman/mindreader/internal/detector"
	"github.com/ayusman/mindreader/internal/features"
	"github.com/ayusman/mindreader/internal/log"
	"github.com/ayusman/mindreader/internal/overlay"
	"github.com/ayusman/mindreader/internal/plugin"
	"github.com/ayusman/mindreader/internal/publish"
	"github.com/ayusman/mindreader/internal/store"
)

// DefaultPluginTimeoutMs bounds a single action run.
const DefaultPluginTimeoutMs = 5000

// Listener receives every update produced by the pipeline.
type Listener func(publish.Update)

// Config holds configuration options for the application.
type Config struct {
	Store     *store.Store
	Estimator affect.Config
	Capture   capture.Config

	// Camera and Detector override the devices built from Capture and
	// DetectorConfig. Tests inject mocks here.
	Camera         capture.Camera
	Detector       detector.Detector
	DetectorConfig detector.Config

	// Publisher receives every update. Nil disables publishing.
	Publisher publish.Publisher

	Plugins         *plugin.Manager
	PluginTimeoutMs int

	// Preview renders the overlay and keeps the latest frame as JPEG.
	Preview bool
}

// App owns the estimator and feeds it from the camera.
type App struct {
	config    Config
	camera    capture.Camera
	detector  detector.Detector
	pluginExc *plugin.Executor
	logger    *slog.Logger

	// persistMu is held from a tick's session write through its transition
	// write, and around the session end in ResetCalibration. Lock order is
	// persistMu then mu.
	persistMu sync.Mutex

	// mu serializes Tick and ResetCalibration.
	mu         sync.Mutex
	estimator  *affect.Estimator
	last       affect.State
	sessionID  string
	calibStart time.Time
	rejected   int
	seq        uint64

	// dispatched is the sequence number of the newest update fanned out.
	dispatchMu sync.Mutex
	dispatched uint64

	stateMu   sync.RWMutex
	enabled   bool
	listeners []Listener

	frameMu sync.RWMutex
	jpeg    []byte

	runMu  sync.Mutex
	stopCh chan struct{}
	done   chan struct{}
	wg     sync.WaitGroup
}

// New creates a new App. Detection starts enabled unless the store says otherwise.
// It fails when the estimator configuration is unusable.
func New(config Config) (*App, error) {
	if config.PluginTimeoutMs <= 0 {
		config.PluginTimeoutMs = DefaultPluginTimeoutMs
	}
	if config.Capture.FPS <= 0 {
		config.Capture.FPS = capture.DefaultFPS
	}
	if config.DetectorConfig.MaxFaces <= 0 {
		script := config.DetectorConfig.ScriptPath
		config.DetectorConfig = detector.DefaultConfig()
		config.DetectorConfig.ScriptPath = script
	}

	est, err := affect.New(config.Estimator)
	if err != nil {
		return nil, fmt.Errorf("create estimator: %w", err)
	}
	a := &App{
		config:    config,
		camera:    config.Camera,
		detector:  config.Detector,
		pluginExc: plugin.NewExecutor(config.PluginTimeoutMs),
		logger:    log.Component("app"),
		estimator: est,
		last:      est.Snapshot().State,
		enabled:   true,
	}

	if a.camera == nil {
		a.camera = capture.NewCamera(config.Capture)
	}

	if a.detector == nil {
		// Try MediaPipe first, fall back to a detector that never sees a face.
		if mp, err := detector.NewMediaPipeDetector(config.DetectorConfig); err == nil {
			a.detector = mp
			a.logger.Info("using MediaPipe face mesh")
		} else {
			a.logger.Warn("MediaPipe not available, using mock detector", "error", err)
			a.detector = detector.NewMockDetector()
		}
	}

	if config.Store != nil {
		a.enabled = config.Store.Settings().GetBool(store.SettingEnabled, true)
	}

	return a, nil
}

// SetEnabled enables or disables detection and persists the choice.
func (a *App) SetEnabled(enabled bool) {
	a.stateMu.Lock()
	a.enabled = enabled
	a.stateMu.Unlock()

	if a.config.Store != nil {
		if err := a.config.Store.Settings().SetBool(store.SettingEnabled, enabled); err != nil {
			a.logger.Warn("failed to persist enabled setting", "error", err)
		}
	}
	a.logger.Info("detection toggled", "enabled", enabled)
}

// IsEnabled returns whether detection is currently enabled.
func (a *App) IsEnabled() bool {
	a.stateMu.RLock()
	defer a.stateMu.RUnlock()
	return a.enabled
}

// AddListener registers fn to receive every update.
func (a *App) AddListener(fn Listener) {
	a.stateMu.Lock()
	defer a.stateMu.Unlock()
	a.listeners = append(a.listeners, fn)
}

// Snapshot returns the latest estimator result.
func (a *App) Snapshot() affect.Result {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.estimator.Snapshot()
}

// SessionID returns the id of the active calibration session, or "" while
// calibrating.
func (a *App) SessionID() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.sessionID
}

// ResetCalibration discards the current calibration, ends its session and
// notifies publishers and listeners. It is atomic with respect to Tick,
// including the session and transition records a tick writes.
func (a *App) ResetCalibration() {
	a.persistMu.Lock()
	a.mu.Lock()
	ended := a.sessionID
	prev := a.last
	a.estimator.ResetCalibration()
	a.sessionID = ""
	a.calibStart = time.Time{}
	a.rejected = 0
	r := a.estimator.Snapshot()
	a.last = r.State
	a.seq++
	seq := a.seq
	a.mu.Unlock()

	now := time.Now()
	if ended != "" && a.config.Store != nil {
		if err := a.config.Store.Sessions().End(ended, now); err != nil {
			a.logger.Warn("failed to end session", "session", ended, "error", err)
		}
	}
	a.persistMu.Unlock()

	a.logger.Info("calibration reset", "ended_session", ended)
	a.dispatch(publish.Update{
		State:    r.State,
		Previous: prev,
		Detail:   r.Detail,
		Progress: r.Progress,
		Levels:   r.Diagnostics.Levels,
		Time:     now,
	}, seq)
}

// Tick advances the estimator by one face sample and fans the result out.
func (a *App) Tick(fv affect.FeatureVector) affect.Result {
	now := time.Now()

	a.persistMu.Lock()
	a.mu.Lock()
	if a.calibStart.IsZero() {
		a.calibStart = now
	}
	prev := a.last
	r := a.estimator.Tick(fv)
	a.last = r.State
	if r.Diagnostics.RejectedSamples > a.rejected {
		a.rejected = r.Diagnostics.RejectedSamples
	}

	var session *store.Session
	if a.sessionID == "" {
		if cal, ok := a.estimator.Calibration(); ok {
			cfg := a.estimator.Config()
			a.sessionID = uuid.New().String()
			session = &store.Session{
				ID:               a.sessionID,
				Baseline:         cal.Baseline,
				Thresholds:       cal.Thresholds,
				Samples:          cal.Samples,
				Rejected:         a.rejected,
				ConfusionPolicy:  cfg.ConfusionPolicy,
				SmileSuppression: cfg.SmileSuppression,
				StartedAt:        a.calibStart,
			}
		}
	}
	sessionID := a.sessionID
	a.seq++
	seq := a.seq
	a.mu.Unlock()

	if session != nil {
		a.recordSession(session)
	}

	u := publish.Update{
		State:    r.State,
		Previous: prev,
		Detail:   r.Detail,
		Progress: r.Progress,
		Levels:   r.Diagnostics.Levels,
		Time:     now,
	}
	if u.Changed() && sessionID != "" {
		a.recordTransition(u, sessionID)
	}
	a.persistMu.Unlock()

	a.dispatch(u, seq)
	return r
}

// ProcessFrame runs detection and feature extraction on frame and ticks the
// estimator when a face is found. Frames without a face leave the estimator
// untouched and report false.
func (a *App) ProcessFrame(frame *gocv.Mat) (affect.Result, bool, error) {
	faces, err := a.detector.Detect(frame)
	if err != nil {
		return affect.Result{}, false, fmt.Errorf("detect face: %w", err)
	}
	if len(faces) == 0 {
		r := a.Snapshot()
		a.render(frame, r, nil)
		return r, false, nil
	}

	face := &faces[0]
	fv := features.Extract(face, frame.Cols(), frame.Rows())
	r := a.Tick(fv)
	a.render(frame, r, face)
	return r, true, nil
}

// LatestJPEG returns the most recent annotated frame, or nil.
func (a *App) LatestJPEG() []byte {
	a.frameMu.RLock()
	defer a.frameMu.RUnlock()
	return a.jpeg
}

// Camera returns the camera instance.
func (a *App) Camera() capture.Camera {
	return a.camera
}

// Detector returns the face detector.
func (a *App) Detector() detector.Detector {
	return a.detector
}

// PluginManager returns the plugin manager, which may be nil.
func (a *App) PluginManager() *plugin.Manager {
	return a.config.Plugins
}

func (a *App) recordSession(s *store.Session) {
	a.logger.Info("calibration complete",
		"session", s.ID,
		"samples", s.Samples,
		"rejected", s.Rejected,
		"sleep_ear", s.Thresholds.SleepEAR,
		"smile_enter", s.Thresholds.SmileEnter,
	)
	if a.config.Store == nil {
		return
	}
	if err := a.config.Store.Sessions().Create(s); err != nil {
		a.logger.Error("failed to record session", "session", s.ID, "error", err)
	}
}

// recordTransition stores a state change in the session's history.
func (a *App) recordTransition(u publish.Update, sessionID string) {
	if a.config.Store == nil {
		return
	}
	t := &store.Transition{
		SessionID: sessionID,
		From:      u.Previous,
		To:        u.State,
		Detail:    u.Detail,
		Fatigue:   u.Levels.Fatigue,
		Confusion: u.Levels.Confusion,
		Joy:       u.Levels.Joy,
		CreatedAt: u.Time,
	}
	if err := a.config.Store.Transitions().Create(t); err != nil {
		a.logger.Error("failed to record transition", "error", err)
	}
}

// dispatch publishes u, notifies listeners and, on a change into a
// classified state, runs the actions bound to it. Updates older than one
// already dispatched are dropped.
func (a *App) dispatch(u publish.Update, seq uint64) {
	a.dispatchMu.Lock()
	if seq < a.dispatched {
		a.dispatchMu.Unlock()
		return
	}
	a.dispatched = seq
	a.dispatchMu.Unlock()

	if a.config.Publisher != nil {
		if err := a.config.Publisher.Publish(u); err != nil {
			a.logger.Debug("publish failed", "error", err)
		}
	}

	a.stateMu.RLock()
	listeners := a.listeners
	a.stateMu.RUnlock()
	for _, fn := range listeners {
		fn(u)
	}

	if !u.Changed() {
		return
	}
	a.logger.Info("state changed", "from", u.Previous, "to", u.State, "detail", u.Detail)

	if u.State.Calibrated() {
		a.runActions(u)
	}
}

// runActions executes every enabled binding for the new state in the background.
func (a *App) runActions(u publish.Update) {
	if a.config.Store == nil || a.config.Plugins == nil {
		return
	}

	actions, err := a.config.Store.Actions().ListByState(u.State)
	if err != nil {
		a.logger.Error("failed to load actions", "state", u.State, "error", err)
		return
	}

	for _, action := range actions {
		p, err := a.config.Plugins.Get(action.PluginName)
		if err != nil {
			a.logger.Warn("action references missing plugin", "action", action.ID, "plugin", action.PluginName)
			continue
		}

		req := &plugin.Request{
			Action:   action.ActionName,
			State:    string(u.State),
			Previous: string(u.Previous),
			Detail:   u.Detail,
			Config:   action.Config,
		}

		a.wg.Add(1)
		go func(actionID string) {
			defer a.wg.Done()
			resp, err := a.pluginExc.Execute(context.Background(), p, req)
			switch {
			case err != nil:
				a.logger.Warn("action failed", "action", actionID, "plugin", p.Manifest.Name, "error", err)
			case !resp.Success:
				a.logger.Warn("action reported failure", "action", actionID, "plugin", p.Manifest.Name, "error", resp.Error)
			default:
				a.logger.Debug("action executed", "action", actionID, "plugin", p.Manifest.Name)
			}
		}(action.ID)
	}
}

// WaitActions blocks until every running action has finished.
func (a *App) WaitActions() {
	a.wg.Wait()
}

// render annotates frame and caches it as JPEG when the preview is on.
func (a *App) render(frame *gocv.Mat, r affect.Result, face *detector.FaceLandmarks) {
	if !a.config.Preview {
		return
	}

	if face != nil {
		overlay.DrawLandmarks(frame, face)
	}
	overlay.Draw(frame, r, a.estimator.Config().LevelMax)

	buf, err := gocv.IMEncode(".jpg", *frame)
	if err != nil {
		a.logger.Debug("failed to encode preview frame", "error", err)
		return
	}
	defer buf.Close()

	jpeg := make([]byte, buf.Len())
	copy(jpeg, buf.GetBytes())

	a.frameMu.Lock()
	a.jpeg = jpeg
	a.frameMu.Unlock()
}
