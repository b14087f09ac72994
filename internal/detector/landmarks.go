// Package detector provides face landmark detection interfaces and types.
package detector

import "math"

// Face mesh landmark indices following the MediaPipe Face Mesh topology.
// See: https://developers.google.com/mediapipe/solutions/vision/face_landmarker
const (
	LeftEyeOuter  = 33
	LeftEyeInner  = 133
	LeftEyeTop    = 159
	LeftEyeBottom = 145

	RightEyeInner  = 362
	RightEyeOuter  = 263
	RightEyeTop    = 386
	RightEyeBottom = 374

	LeftBrowInner  = 107
	RightBrowInner = 336

	LeftCheek  = 234
	RightCheek = 454

	UpperLipInner = 13
	LowerLipInner = 14
	MouthLeft     = 61
	MouthRight    = 291

	// NumLandmarks is the mesh size with refined iris landmarks.
	NumLandmarks = 478
)

// KeyPoints lists the landmarks the feature extractor reads, for debug overlays.
var KeyPoints = []int{
	LeftEyeOuter, LeftEyeInner, LeftEyeTop, LeftEyeBottom,
	RightEyeInner, RightEyeOuter, RightEyeTop, RightEyeBottom,
	RightBrowInner, LeftBrowInner, LeftCheek, RightCheek,
	UpperLipInner, LowerLipInner, MouthLeft, MouthRight,
}

// Point3D represents a landmark position. X and Y are normalized to [0,1]
// by image width and height; Z is relative depth.
type Point3D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// FaceLandmarks represents the face mesh detected in a frame.
type FaceLandmarks struct {
	Points [NumLandmarks]Point3D `json:"points"`
	Score  float64               `json:"score"`
}

// PixelDistance returns the 2-D distance between two landmarks in pixels for
// an image of the given size.
func (f *FaceLandmarks) PixelDistance(a, b, width, height int) float64 {
	p1, p2 := f.Points[a], f.Points[b]
	dx := (p1.X - p2.X) * float64(width)
	dy := (p1.Y - p2.Y) * float64(height)
	return math.Hypot(dx, dy)
}

// Pixel returns a landmark position in pixel coordinates.
func (f *FaceLandmarks) Pixel(i, width, height int) (x, y float64) {
	p := f.Points[i]
	return p.X * float64(width), p.Y * float64(height)
}
