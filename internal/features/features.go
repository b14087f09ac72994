// Package features turns a face mesh into the per-frame ratios the affect
// estimator consumes.
package features

import (
	"math"

	"github.com/ayusman/mindreader/internal/affect"
	"github.com/ayusman/mindreader/internal/detector"
)

// minDistance floors every denominator so the ratios stay finite.
const minDistance = 1.0

// Extract computes the feature vector for one face in a width x height frame.
// Distances are measured in pixels so the ratios do not depend on aspect ratio.
func Extract(lm *detector.FaceLandmarks, width, height int) affect.FeatureVector {
	dist := func(a, b int) float64 {
		return lm.PixelDistance(a, b, width, height)
	}

	leftEAR := dist(detector.LeftEyeTop, detector.LeftEyeBottom) /
		floor(dist(detector.LeftEyeOuter, detector.LeftEyeInner))
	rightEAR := dist(detector.RightEyeTop, detector.RightEyeBottom) /
		floor(dist(detector.RightEyeInner, detector.RightEyeOuter))

	innerEye := floor(dist(detector.LeftEyeInner, detector.RightEyeInner))
	mouthWidth := dist(detector.MouthLeft, detector.MouthRight)

	return affect.FeatureVector{
		EyeAspectRatio:   (leftEAR + rightEAR) / 2,
		BrowRatio:        dist(detector.RightBrowInner, detector.LeftBrowInner) / innerEye,
		MouthAspectRatio: dist(detector.UpperLipInner, detector.LowerLipInner) / floor(mouthWidth),
		SmileRatio:       mouthWidth / innerEye,
		RollAngleDeg:     Roll(lm, width, height),
		FaceScale:        innerEye,
	}
}

// Roll returns the angle of the cheek-to-cheek line in degrees.
// Positive values mean the right cheek sits lower in the image.
func Roll(lm *detector.FaceLandmarks, width, height int) float64 {
	lx, ly := lm.Pixel(detector.LeftCheek, width, height)
	rx, ry := lm.Pixel(detector.RightCheek, width, height)
	return math.Atan2(ry-ly, rx-lx) * 180 / math.Pi
}

func floor(d float64) float64 {
	if d < minDistance || math.IsNaN(d) {
		return minDistance
	}
	return d
}
