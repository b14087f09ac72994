package detector

import (
	"math"
	"sync"

	"gocv.io/x/gocv"
)

// MockDetector is a test implementation of the Detector interface.
// It allows tests to control the detection results.
type MockDetector struct {
	mu    sync.Mutex
	faces []FaceLandmarks
	queue [][]FaceLandmarks
	err   error
	calls int
}

// NewMockDetector creates a new MockDetector instance.
func NewMockDetector() *MockDetector {
	return &MockDetector{}
}

// SetFaces sets the faces returned by every Detect call once the queue is empty.
func (m *MockDetector) SetFaces(faces []FaceLandmarks) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.faces = faces
}

// Enqueue appends per-call results consumed in order before falling back to SetFaces.
func (m *MockDetector) Enqueue(results ...[]FaceLandmarks) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queue = append(m.queue, results...)
}

// SetError sets the error that will be returned by Detect.
func (m *MockDetector) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Calls returns how many times Detect has been called.
func (m *MockDetector) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Detect returns the next queued result, the configured faces, or the configured error.
func (m *MockDetector) Detect(frame *gocv.Mat) ([]FaceLandmarks, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	if len(m.queue) > 0 {
		next := m.queue[0]
		m.queue = m.queue[1:]
		return next, nil
	}
	return m.faces, nil
}

// Close is a no-op for the mock detector.
func (m *MockDetector) Close() error {
	return nil
}

// FaceParams describes the geometry of a synthetic face.
type FaceParams struct {
	Width, Height int // image size in pixels

	InnerEyeDist float64 // pixels between inner eye corners
	EAR          float64 // eye aspect ratio
	BrowRatio    float64 // inner brow distance / inner eye distance
	MAR          float64 // mouth aspect ratio
	SmileRatio   float64 // mouth width / inner eye distance
	RollDeg      float64 // head roll
}

// RelaxedFaceParams returns a neutral face for a 640x480 image.
func RelaxedFaceParams() FaceParams {
	return FaceParams{
		Width:        640,
		Height:       480,
		InnerEyeDist: 100,
		EAR:          0.30,
		BrowRatio:    0.25,
		MAR:          0.10,
		SmileRatio:   0.50,
	}
}

// SyntheticFace builds a face mesh whose extracted features reproduce p.
// Only the landmarks in KeyPoints are placed; the rest sit at the face center.
func SyntheticFace(p FaceParams) FaceLandmarks {
	w, h := float64(p.Width), float64(p.Height)
	cx, cy := w/2, h/2
	d := p.InnerEyeDist
	eyeW := d

	px := make(map[int][2]float64, len(KeyPoints))

	// Eyes: inner corners d apart, each eye as wide as the gap.
	px[LeftEyeInner] = [2]float64{cx - d/2, cy}
	px[LeftEyeOuter] = [2]float64{cx - d/2 - eyeW, cy}
	px[RightEyeInner] = [2]float64{cx + d/2, cy}
	px[RightEyeOuter] = [2]float64{cx + d/2 + eyeW, cy}

	eyeV := p.EAR * eyeW
	px[LeftEyeTop] = [2]float64{cx - d/2 - eyeW/2, cy - eyeV/2}
	px[LeftEyeBottom] = [2]float64{cx - d/2 - eyeW/2, cy + eyeV/2}
	px[RightEyeTop] = [2]float64{cx + d/2 + eyeW/2, cy - eyeV/2}
	px[RightEyeBottom] = [2]float64{cx + d/2 + eyeW/2, cy + eyeV/2}

	browY := cy - 0.6*d
	px[LeftBrowInner] = [2]float64{cx - p.BrowRatio*d/2, browY}
	px[RightBrowInner] = [2]float64{cx + p.BrowRatio*d/2, browY}

	px[LeftCheek] = [2]float64{cx - 2*d, cy}
	px[RightCheek] = [2]float64{cx + 2*d, cy}

	mouthY := cy + 1.5*d
	mouthW := p.SmileRatio * d
	mouthV := p.MAR * mouthW
	px[MouthLeft] = [2]float64{cx - mouthW/2, mouthY}
	px[MouthRight] = [2]float64{cx + mouthW/2, mouthY}
	px[UpperLipInner] = [2]float64{cx, mouthY - mouthV/2}
	px[LowerLipInner] = [2]float64{cx, mouthY + mouthV/2}

	sin, cos := math.Sincos(p.RollDeg * math.Pi / 180)

	face := FaceLandmarks{Score: 0.95}
	for i := range face.Points {
		face.Points[i] = Point3D{X: 0.5, Y: 0.5}
	}
	for i, pt := range px {
		dx, dy := pt[0]-cx, pt[1]-cy
		rx := cx + dx*cos - dy*sin
		ry := cy + dx*sin + dy*cos
		face.Points[i] = Point3D{X: rx / w, Y: ry / h}
	}
	return face
}

// RelaxedFace returns a neutral synthetic face.
func RelaxedFace() FaceLandmarks {
	return SyntheticFace(RelaxedFaceParams())
}

// SleepingFace returns a synthetic face with the eyes shut.
func SleepingFace() FaceLandmarks {
	p := RelaxedFaceParams()
	p.EAR = 0.12
	return SyntheticFace(p)
}

// SmilingFace returns a synthetic face with a wide mouth.
func SmilingFace() FaceLandmarks {
	p := RelaxedFaceParams()
	p.SmileRatio = 0.62
	return SyntheticFace(p)
}
