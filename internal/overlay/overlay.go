// Package overlay annotates preview frames with the estimator's status.
package overlay

import (
	"fmt"
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"github.com/ayusman/mindreader/internal/affect"
	"github.com/ayusman/mindreader/internal/detector"
)

// Bar sizes in pixels.
const (
	FatigueBarWidth    = 200
	ConfusionBarHeight = 150
	ProgressBarWidth   = 300
)

var (
	white  = color.RGBA{255, 255, 255, 0}
	grey   = color.RGBA{200, 200, 200, 0}
	red    = color.RGBA{255, 0, 0, 0}
	green  = color.RGBA{0, 255, 0, 0}
	yellow = color.RGBA{255, 255, 0, 0}
	orange = color.RGBA{255, 165, 0, 0}
)

// StateColor returns the status text color for a state.
func StateColor(s affect.State) color.RGBA {
	switch s {
	case affect.StateSleepy:
		return red
	case affect.StateConfused:
		return yellow
	case affect.StateHappy, affect.StateNormal:
		return green
	default:
		return orange
	}
}

// BarLength scales level/max onto a bar of the given length, clamped to [0, length].
func BarLength(level, max float64, length int) int {
	if max <= 0 || level <= 0 {
		return 0
	}
	if level >= max {
		return length
	}
	return int(level / max * float64(length))
}

// Draw renders the status for r onto frame. levelMax is the integrator ceiling.
func Draw(frame *gocv.Mat, r affect.Result, levelMax float64) {
	w, h := frame.Cols(), frame.Rows()

	gocv.PutText(frame, "STATUS: "+string(r.State), image.Pt(30, 50),
		gocv.FontHersheySimplex, 1, StateColor(r.State), 3)

	if !r.State.Calibrated() {
		drawProgress(frame, r, w, h)
		return
	}

	flags := r.Diagnostics.Flags
	fv := r.Diagnostics.Features

	// Smile ratio against the threshold that applies to the current latch.
	smileColor := grey
	threshold := flags.SmileEnter
	if flags.Smile {
		smileColor = green
		threshold = flags.SmileExit
	}
	gocv.PutText(frame, fmt.Sprintf("SmileRatio: %d (>%d)", int(fv.SmileRatio*100), int(threshold*100)),
		image.Pt(w-350, 40), gocv.FontHersheySimplex, 0.6, smileColor, 2)

	browColor := grey
	if flags.ConfusedRaw {
		browColor = red
	}
	gocv.PutText(frame, fmt.Sprintf("Brow: %.1f", fv.BrowRatio*100),
		image.Pt(w-350, 70), gocv.FontHersheySimplex, 0.6, browColor, 2)

	levels := r.Diagnostics.Levels

	// Fatigue: horizontal bar at the bottom center with the detail text.
	fatigueLen := BarLength(levels.Fatigue, levelMax, FatigueBarWidth)
	left := w/2 - FatigueBarWidth/2
	if fatigueLen > 0 {
		gocv.Rectangle(frame, image.Rect(left, h-40, left+fatigueLen, h-20), red, -1)
	}
	gocv.Rectangle(frame, image.Rect(left, h-40, left+FatigueBarWidth, h-20), white, 2)
	gocv.PutText(frame, r.Detail, image.Pt(left+FatigueBarWidth+10, h-25),
		gocv.FontHersheySimplex, 0.5, white, 1)

	// Confusion: vertical bar on the right, only while non-zero.
	if confLen := BarLength(levels.Confusion, levelMax, ConfusionBarHeight); confLen > 0 {
		gocv.Rectangle(frame, image.Rect(w-40, h-50-confLen, w-20, h-50), yellow, -1)
		gocv.Rectangle(frame, image.Rect(w-40, h-50-ConfusionBarHeight, w-20, h-50), white, 1)
		gocv.PutText(frame, "Conf", image.Pt(w-55, h-30), gocv.FontHersheySimplex, 0.4, yellow, 1)
	}
}

func drawProgress(frame *gocv.Mat, r affect.Result, w, h int) {
	left := w/2 - ProgressBarWidth/2
	filled := BarLength(r.Progress, 1, ProgressBarWidth)
	if filled > 0 {
		gocv.Rectangle(frame, image.Rect(left, h-40, left+filled, h-20), orange, -1)
	}
	gocv.Rectangle(frame, image.Rect(left, h-40, left+ProgressBarWidth, h-20), white, 2)
	gocv.PutText(frame, r.Detail, image.Pt(left, h-50), gocv.FontHersheySimplex, 0.6, white, 1)
}

// DrawLandmarks marks the landmarks the feature extractor reads.
func DrawLandmarks(frame *gocv.Mat, face *detector.FaceLandmarks) {
	w, h := frame.Cols(), frame.Rows()
	for _, i := range detector.KeyPoints {
		x, y := face.Pixel(i, w, h)
		gocv.Circle(frame, image.Pt(int(x), int(y)), 2, green, -1)
	}
}
