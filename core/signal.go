package core

import (
	"math"
)

// Orientation classifies which axis points against gravity.
type Orientation int

const (
	OrientationUnset Orientation = iota
	XUp
	XDown
	YUp
	YDown
	ZUp
	ZDown
)

func (o Orientation) String() string {
	switch o {
	case XUp:
		return "x-up"
	case XDown:
		return "x-down"
	case YUp:
		return "y-up"
	case YDown:
		return "y-down"
	case ZUp:
		return "z-up"
	case ZDown:
		return "z-down"
	}
	return "unset"
}

// ShakeDetector fires when a single sample's magnitude crosses a
// threshold. The threshold is stored squared so the per-sample check
// avoids a square root.
type ShakeDetector struct {
	threshold2 float64
}

// NewShakeDetector returns a detector with the given threshold in g.
func NewShakeDetector(g float64) *ShakeDetector {
	d := &ShakeDetector{}
	d.SetThreshold(g)
	return d
}

// SetThreshold sets the shake threshold in g. Must be positive.
func (d *ShakeDetector) SetThreshold(g float64) error {
	if g <= 0 {
		return ErrInvalidArgument
	}
	d.threshold2 = g * g
	return nil
}

// Detect reports whether the sample magnitude reaches the threshold
// and, if so, returns the true (unsquared) magnitude. A magnitude
// exactly equal to the threshold counts as a shake.
func (d *ShakeDetector) Detect(s Sample) (float64, bool) {
	mag2 := s.X*s.X + s.Y*s.Y + s.Z*s.Z
	if mag2 < d.threshold2 {
		return 0, false
	}
	return math.Sqrt(mag2), true
}

// OrientationTracker keeps a ring buffer of recent samples and derives
// a debounced orientation from the per-axis moving average. Turbulence
// (the normalized sum of sample-to-sample deltas across the buffer)
// gates emissions: a noisy stream suppresses reclassification until it
// settles.
type OrientationTracker struct {
	buf         []Sample
	idx         int
	total       uint64
	current     Orientation
	turbulence  float64
	suppression float64
}

// minSuppression is the smallest accepted suppression threshold.
const minSuppression = 0.0001

// NewOrientationTracker returns a tracker with a cold, zeroed buffer.
// bufferLength must be at least 2.
func NewOrientationTracker(bufferLength int, suppression float64) (*OrientationTracker, error) {
	t := &OrientationTracker{suppression: suppression}
	if suppression <= minSuppression {
		return nil, ErrInvalidArgument
	}
	if err := t.SetBufferLength(bufferLength); err != nil {
		return nil, err
	}
	return t, nil
}

// SetBufferLength resizes the sample buffer. History, the sample
// count, turbulence and the current orientation are all discarded; the
// tracker restarts cold.
func (t *OrientationTracker) SetBufferLength(n int) error {
	if n < 2 {
		return ErrInvalidArgument
	}
	t.buf = make([]Sample, n)
	t.idx = 0
	t.total = 0
	t.turbulence = 0
	t.current = OrientationUnset
	return nil
}

// SetSuppression sets the turbulence threshold below which a new
// classification may be emitted. Must exceed 0.0001.
func (t *OrientationTracker) SetSuppression(v float64) error {
	if v <= minSuppression {
		return ErrInvalidArgument
	}
	t.suppression = v
	return nil
}

// Update inserts a sample and reports whether an orientation event
// should fire. Nothing emits while the buffer is still filling; the
// first fill forces one emission of the current classification so
// consumers get an initial reading. After that, a change is emitted
// only while turbulence is below the suppression threshold.
func (t *OrientationTracker) Update(s Sample) (Orientation, bool) {
	t.buf[t.idx] = s
	t.idx = (t.idx + 1) % len(t.buf)
	t.total++

	avg := t.Average()
	t.turbulence = t.computeTurbulence()
	classified := classify(avg)

	if t.total < uint64(len(t.buf)) {
		// Cold fill: averages still include zeroed slots, so any
		// classification is provisional.
		return classified, false
	}
	if t.total == uint64(len(t.buf)) {
		// Buffer just filled for the first time: force the initial
		// reading even without a preceding change.
		t.current = classified
		return classified, true
	}
	if classified != t.current && t.turbulence < t.suppression {
		t.current = classified
		return classified, true
	}
	return classified, false
}

// Average returns the per-axis mean over the whole buffer. Cold slots
// count as zero, matching the buffer's zeroed initial state.
func (t *OrientationTracker) Average() Sample {
	var sum Sample
	for _, s := range t.buf {
		sum.X += s.X
		sum.Y += s.Y
		sum.Z += s.Z
	}
	n := float64(len(t.buf))
	return Sample{X: sum.X / n, Y: sum.Y / n, Z: sum.Z / n}
}

// Turbulence returns the last computed turbulence value.
func (t *OrientationTracker) Turbulence() float64 {
	return t.turbulence
}

// Current returns the last committed orientation.
func (t *OrientationTracker) Current() Orientation {
	return t.current
}

// computeTurbulence sums the absolute consecutive-sample deltas on all
// three axes across the buffer in slot order, normalized by the number
// of deltas.
func (t *OrientationTracker) computeTurbulence() float64 {
	var sum float64
	for i := 1; i < len(t.buf); i++ {
		prev, cur := t.buf[i-1], t.buf[i]
		sum += math.Abs(cur.X-prev.X) + math.Abs(cur.Y-prev.Y) + math.Abs(cur.Z-prev.Z)
	}
	return sum / (float64(len(t.buf)-1) * 3)
}

// classify picks the dominant signed axis. Candidates are scanned in a
// fixed priority order with a strict comparison, so ties and the
// all-zero case resolve to ZDown.
func classify(avg Sample) Orientation {
	best := ZDown
	bestVal := -avg.Z

	candidates := []struct {
		val float64
		o   Orientation
	}{
		{avg.X, XUp},
		{-avg.X, XDown},
		{avg.Y, YUp},
		{-avg.Y, YDown},
		{avg.Z, ZUp},
	}
	for _, c := range candidates {
		if c.val > bestVal {
			best, bestVal = c.o, c.val
		}
	}
	return best
}
