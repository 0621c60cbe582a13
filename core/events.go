package core

import (
	"sync"
)

// Subscription is a handle on a registered event consumer. Cancel
// removes the consumer; canceling twice is harmless.
type Subscription struct {
	once   sync.Once
	cancel func()
}

// Cancel detaches the consumer from its event.
func (s *Subscription) Cancel() {
	s.once.Do(s.cancel)
}

// OrientationChange is delivered when the debounced classification
// commits a new orientation.
type OrientationChange struct {
	Orientation Orientation
	Turbulence  float64
}

// Shake is delivered when a sample's magnitude reaches the shake
// threshold. Magnitude is the true (unsquared) value in g.
type Shake struct {
	Magnitude float64
	Sample    Sample
}

// events routes driver events to registered consumers. Delivery is
// synchronous and in-process. Sample consumers carry a side effect:
// the first one registered activates the hardware data-ready interrupt
// and removing the last one deactivates it.
type events struct {
	mu          sync.Mutex
	nextID      int
	ready       map[int]func()
	sample      map[int]func(Sample)
	shake       map[int]func(Shake)
	orientation map[int]func(OrientationChange)
	errs        map[int]func(error)

	// Hooks invoked on the first/last sample subscriber transition.
	activate   func()
	deactivate func()
}

func newEvents(activate, deactivate func()) *events {
	return &events{
		ready:       make(map[int]func()),
		sample:      make(map[int]func(Sample)),
		shake:       make(map[int]func(Shake)),
		orientation: make(map[int]func(OrientationChange)),
		errs:        make(map[int]func(error)),
		activate:    activate,
		deactivate:  deactivate,
	}
}

func (e *events) subscribeReady(fn func()) *Subscription {
	e.mu.Lock()
	id := e.nextID
	e.nextID++
	e.ready[id] = fn
	e.mu.Unlock()
	return &Subscription{cancel: func() {
		e.mu.Lock()
		delete(e.ready, id)
		e.mu.Unlock()
	}}
}

func (e *events) subscribeSample(fn func(Sample)) *Subscription {
	e.mu.Lock()
	id := e.nextID
	e.nextID++
	e.sample[id] = fn
	first := len(e.sample) == 1
	e.mu.Unlock()

	if first && e.activate != nil {
		e.activate()
	}
	return &Subscription{cancel: func() {
		e.mu.Lock()
		delete(e.sample, id)
		last := len(e.sample) == 0
		e.mu.Unlock()
		if last && e.deactivate != nil {
			e.deactivate()
		}
	}}
}

func (e *events) subscribeShake(fn func(Shake)) *Subscription {
	e.mu.Lock()
	id := e.nextID
	e.nextID++
	e.shake[id] = fn
	e.mu.Unlock()
	return &Subscription{cancel: func() {
		e.mu.Lock()
		delete(e.shake, id)
		e.mu.Unlock()
	}}
}

func (e *events) subscribeOrientation(fn func(OrientationChange)) *Subscription {
	e.mu.Lock()
	id := e.nextID
	e.nextID++
	e.orientation[id] = fn
	e.mu.Unlock()
	return &Subscription{cancel: func() {
		e.mu.Lock()
		delete(e.orientation, id)
		e.mu.Unlock()
	}}
}

func (e *events) subscribeError(fn func(error)) *Subscription {
	e.mu.Lock()
	id := e.nextID
	e.nextID++
	e.errs[id] = fn
	e.mu.Unlock()
	return &Subscription{cancel: func() {
		e.mu.Lock()
		delete(e.errs, id)
		e.mu.Unlock()
	}}
}

func (e *events) emitReady() {
	for _, fn := range e.snapshotReady() {
		fn()
	}
}

func (e *events) emitSample(s Sample) {
	for _, fn := range e.snapshotSample() {
		fn(s)
	}
}

func (e *events) emitShake(s Shake) {
	e.mu.Lock()
	fns := make([]func(Shake), 0, len(e.shake))
	for _, fn := range e.shake {
		fns = append(fns, fn)
	}
	e.mu.Unlock()
	for _, fn := range fns {
		fn(s)
	}
}

func (e *events) emitOrientation(c OrientationChange) {
	e.mu.Lock()
	fns := make([]func(OrientationChange), 0, len(e.orientation))
	for _, fn := range e.orientation {
		fns = append(fns, fn)
	}
	e.mu.Unlock()
	for _, fn := range fns {
		fn(c)
	}
}

func (e *events) emitError(err error) {
	e.mu.Lock()
	fns := make([]func(error), 0, len(e.errs))
	for _, fn := range e.errs {
		fns = append(fns, fn)
	}
	e.mu.Unlock()
	for _, fn := range fns {
		fn(err)
	}
}

func (e *events) snapshotReady() []func() {
	e.mu.Lock()
	defer e.mu.Unlock()
	fns := make([]func(), 0, len(e.ready))
	for _, fn := range e.ready {
		fns = append(fns, fn)
	}
	return fns
}

func (e *events) snapshotSample() []func(Sample) {
	e.mu.Lock()
	defer e.mu.Unlock()
	fns := make([]func(Sample), 0, len(e.sample))
	for _, fn := range e.sample {
		fns = append(fns, fn)
	}
	return fns
}
