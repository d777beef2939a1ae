package capture

import (
	"image"
	"sync"

	"gocv.io/x/gocv"
)

// Frame differencing parameters for the activity gate.
const (
	activityBlurSize  = 21
	activityDiffLevel = 25
	activityWidth     = 320
)

// ActivityGate reports whether the scene in front of the camera changed
// since the previous frame. The decoder uses it to drop to an idle rate
// while nothing moves.
type ActivityGate struct {
	threshold float64

	mu       sync.Mutex
	previous gocv.Mat
	primed   bool
}

// NewActivityGate creates a gate that fires when more than threshold
// percent of pixels differ between consecutive frames.
func NewActivityGate(threshold float64) *ActivityGate {
	return &ActivityGate{
		threshold: threshold,
		previous:  gocv.NewMat(),
	}
}

// Changed compares frame against the previous one. The first frame after
// creation or Reset always counts as changed so a product already held up
// to the camera is decoded immediately.
func (g *ActivityGate) Changed(frame *gocv.Mat) (bool, float64) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if frame == nil || frame.Empty() {
		return false, 0
	}

	current := prepareActivityFrame(frame)
	defer current.Close()

	if !g.primed || g.previous.Empty() {
		current.CopyTo(&g.previous)
		g.primed = true
		return true, 100
	}

	if current.Rows() != g.previous.Rows() || current.Cols() != g.previous.Cols() {
		current.CopyTo(&g.previous)
		return true, 100
	}

	diff := gocv.NewMat()
	defer diff.Close()
	gocv.AbsDiff(current, g.previous, &diff)

	mask := gocv.NewMat()
	defer mask.Close()
	gocv.Threshold(diff, &mask, activityDiffLevel, 255, gocv.ThresholdBinary)

	total := mask.Rows() * mask.Cols()
	if total == 0 {
		return false, 0
	}
	percent := float64(gocv.CountNonZero(mask)) / float64(total) * 100.0

	current.CopyTo(&g.previous)
	return percent > g.threshold, percent
}

// Reset forgets the previous frame.
func (g *ActivityGate) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.release()
}

// Close releases the retained frame.
func (g *ActivityGate) Close() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.release()
}

func (g *ActivityGate) release() {
	if !g.previous.Empty() {
		g.previous.Close()
		g.previous = gocv.NewMat()
	}
	g.primed = false
}

// prepareActivityFrame returns a downscaled, blurred grayscale copy.
func prepareActivityFrame(frame *gocv.Mat) gocv.Mat {
	gray := gocv.NewMat()
	if frame.Channels() > 1 {
		gocv.CvtColor(*frame, &gray, gocv.ColorBGRToGray)
	} else {
		frame.CopyTo(&gray)
	}

	if gray.Cols() > activityWidth {
		height := gray.Rows() * activityWidth / gray.Cols()
		small := gocv.NewMat()
		gocv.Resize(gray, &small, image.Point{X: activityWidth, Y: height}, 0, 0, gocv.InterpolationArea)
		gray.Close()
		gray = small
	}

	blurred := gocv.NewMat()
	gocv.GaussianBlur(gray, &blurred, image.Point{X: activityBlurSize, Y: activityBlurSize}, 0, 0, gocv.BorderDefault)
	gray.Close()
	return blurred
}
