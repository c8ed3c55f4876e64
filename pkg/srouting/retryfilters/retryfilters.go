// Package retryfilters runs the bounded per-device retry loop that
// installs port filters until results stabilize, handling the race where a
// device appears to the controller before its ports do.
package retryfilters

import (
	"sync"
	"time"

	"github.com/srfabric/srctl/pkg/srouting/fabric"
	"github.com/srfabric/srctl/pkg/srouting/rulepop"
	"github.com/srfabric/srctl/pkg/util"
)

// MaxConstantRetryAttempts is how many consecutive identical results end a
// device's retry loop.
const MaxConstantRetryAttempts = 5

// RetryIntervalMS is the base delay, in milliseconds, between retries.
const RetryIntervalMS = 250

// RetryIntervalScale is the exponent applied to the attempt counter; 1
// yields linear growth.
const RetryIntervalScale = 1

// Clock abstracts time so tests can drive the scheduler without sleeping
// rather than waiting on real timers.
type Clock interface {
	After(d time.Duration) <-chan time.Time
}

type realClock struct{}

func (realClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// Install installs one device's port-address filters and calls
// PopulateRouterMacVlanFilters, matching rulepop.Populator's contract.
type Install interface {
	PopulateRouterMacVlanFilters(id fabric.DeviceID) (*rulepop.PortFilterInfo, bool)
}

// runnable tracks one device's retry state: counter, remaining
// constant-result attempts, and the previous round's result.
type runnable struct {
	device           fabric.DeviceID
	counter          int
	constantAttempts int
	prevRun          *rulepop.PortFilterInfo
}

// Scheduler runs retry loops for any number of devices against a single
// worker goroutine: every call into install happens on that one goroutine,
// so retry ticks always serialize against each other and never run
// concurrently, no matter how many devices are under retry at once. Each
// device still gets its own timer wait while between ticks, but those waits
// are serviced by short-lived forwarder goroutines that do nothing but
// block on a channel and hand the device back to the worker — the actual
// retry work (Install calls) is confined to worker().
type Scheduler struct {
	install Install
	clock   Clock

	mu         sync.Mutex
	running    map[fabric.DeviceID]chan struct{}
	runnables  map[fabric.DeviceID]*runnable
	due        chan fabric.DeviceID
	workerOnce sync.Once
}

// New creates a Scheduler driving install through clock-paced retries.
func New(install Install) *Scheduler {
	return newScheduler(install, realClock{})
}

// NewWithClock creates a Scheduler with an injected Clock, for tests that
// need to drive retries without waiting on real timers.
func NewWithClock(install Install, clock Clock) *Scheduler {
	return newScheduler(install, clock)
}

func newScheduler(install Install, clock Clock) *Scheduler {
	return &Scheduler{
		install:   install,
		clock:     clock,
		running:   make(map[fabric.DeviceID]chan struct{}),
		runnables: make(map[fabric.DeviceID]*runnable),
		due:       make(chan fabric.DeviceID),
	}
}

// Start begins (or restarts) the retry loop for device, seeded with
// baseline as the first prevRun. A nil baseline means "no prior result" —
// the loop runs unconditionally at least once.
func (s *Scheduler) Start(device fabric.DeviceID, baseline *rulepop.PortFilterInfo) {
	s.mu.Lock()
	if stop, ok := s.running[device]; ok {
		close(stop)
	}
	stop := make(chan struct{})
	s.running[device] = stop
	s.runnables[device] = &runnable{
		device:           device,
		constantAttempts: MaxConstantRetryAttempts,
		prevRun:          baseline,
	}
	s.mu.Unlock()

	s.workerOnce.Do(func() { go s.worker() })
	go s.notify(device, stop)
}

// Stop cancels device's retry loop, if any, before its natural termination.
func (s *Scheduler) Stop(device fabric.DeviceID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if stop, ok := s.running[device]; ok {
		close(stop)
		delete(s.running, device)
		delete(s.runnables, device)
	}
}

// Running reports whether device currently has an active retry loop.
func (s *Scheduler) Running(device fabric.DeviceID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.running[device]
	return ok
}

// worker is the Scheduler's single retry goroutine: every PopulateRouterMacVlanFilters
// call made through tick happens here, one device at a time, for the life
// of the Scheduler.
func (s *Scheduler) worker() {
	for device := range s.due {
		s.mu.Lock()
		r, tracked := s.runnables[device]
		stop, running := s.running[device]
		s.mu.Unlock()
		if !tracked || !running {
			continue
		}

		reschedule, delay := s.tick(r)
		if !reschedule {
			s.mu.Lock()
			delete(s.running, device)
			delete(s.runnables, device)
			s.mu.Unlock()
			continue
		}

		go s.notifyAfter(device, delay, stop)
	}
}

// notify hands device straight to the worker — used for the first attempt,
// which the original loop ran unconditionally with no initial wait.
func (s *Scheduler) notify(device fabric.DeviceID, stop chan struct{}) {
	select {
	case s.due <- device:
	case <-stop:
	}
}

// notifyAfter waits out one retry's backoff before handing device to the
// worker. It runs no Install calls itself — it's plumbing, equivalent to
// the forwarding the runtime already does inside time.After.
func (s *Scheduler) notifyAfter(device fabric.DeviceID, delay time.Duration, stop chan struct{}) {
	select {
	case <-stop:
		return
	case <-s.clock.After(delay):
		s.notify(device, stop)
	}
}

// tick runs one retry attempt and decides whether to reschedule: reschedule
// iff thisRun is nil, or the result changed from last time, or the result
// repeated and constantAttempts is still above zero after decrementing.
func (s *Scheduler) tick(r *runnable) (reschedule bool, delay time.Duration) {
	r.counter++
	thisRun, _ := s.install.PopulateRouterMacVlanFilters(r.device)

	sameResult := thisRun != nil && r.prevRun != nil && thisRun.Equal(*r.prevRun)

	if !sameResult {
		r.constantAttempts = MaxConstantRetryAttempts
	}

	reschedule = thisRun == nil || !sameResult
	if sameResult {
		r.constantAttempts--
		reschedule = r.constantAttempts > 0
	}

	if thisRun != nil {
		r.prevRun = thisRun
	}

	util.WithFields(map[string]interface{}{
		"device":      r.device,
		"attempt":     r.counter,
		"sameResult":  sameResult,
		"reschedule":  reschedule,
		"constantLeft": r.constantAttempts,
	}).Debug("port filter retry tick")

	return reschedule, nextDelay(r.counter)
}

func nextDelay(counter int) time.Duration {
	ms := RetryIntervalMS
	for i := 0; i < RetryIntervalScale; i++ {
		ms *= counter
	}
	return time.Duration(ms) * time.Millisecond
}
