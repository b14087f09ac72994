package app

import (
	"errors"
	"time"

	"github.com/ayusman/mindreader/internal/capture"
)

// Start opens the camera and begins the detection pipeline.
func (a *App) Start() error {
	a.runMu.Lock()
	defer a.runMu.Unlock()

	// Don't start if already running
	if a.stopCh != nil {
		return nil
	}

	if err := a.camera.Open(); err != nil {
		return err
	}
	a.camera.SetFPS(a.config.Capture.FPS)

	a.stopCh = make(chan struct{})
	a.done = make(chan struct{})
	go a.runPipeline(a.stopCh, a.done)

	a.logger.Info("detection pipeline started", "fps", a.camera.FPS())
	return nil
}

// Stop halts the pipeline, waits for running actions and releases the
// camera and detector.
func (a *App) Stop() {
	a.runMu.Lock()
	defer a.runMu.Unlock()

	if a.stopCh != nil {
		close(a.stopCh)
		<-a.done
		a.stopCh = nil
		a.done = nil
	}
	a.wg.Wait()

	if err := a.camera.Close(); err != nil {
		a.logger.Warn("error closing camera", "error", err)
	}
	if err := a.detector.Close(); err != nil {
		a.logger.Warn("error closing detector", "error", err)
	}
	if a.config.Publisher != nil {
		if err := a.config.Publisher.Close(); err != nil {
			a.logger.Warn("error closing publisher", "error", err)
		}
	}

	a.logger.Info("detection pipeline stopped")
}

// runPipeline reads one frame per tick until stop is closed:
//  1. read a frame
//  2. detect the face; without one the estimator is left untouched
//  3. extract features and tick the estimator
//  4. publish, record transitions and run bound actions
func (a *App) runPipeline(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	fps := a.camera.FPS()
	if fps <= 0 {
		fps = capture.DefaultFPS
	}
	ticker := time.NewTicker(time.Second / time.Duration(fps))
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if !a.IsEnabled() {
				continue
			}

			frame, err := a.camera.ReadFrame()
			if err != nil {
				if errors.Is(err, capture.ErrNoMoreFrames) {
					a.logger.Info("camera has no more frames")
					return
				}
				a.logger.Warn("error reading frame", "error", err)
				continue
			}

			if _, _, err := a.ProcessFrame(frame); err != nil {
				a.logger.Warn("error processing frame", "error", err)
			}
			frame.Close()
		}
	}
}
