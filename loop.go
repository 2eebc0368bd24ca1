package cluster

import (
	"context"
	"sync"
	"time"

	"github.com/MadAppGang/animcluster/internal/timeutil"
)

// Loop owns a View and runs everything that touches it on one goroutine.
// Region changes are coalesced: while a pass is running only the newest
// posted region is kept, older ones are dropped.
type Loop struct {
	view *View

	mu         sync.Mutex
	pending    Region
	hasPending bool

	wake  chan struct{}
	calls chan call
	done  chan struct{}

	// owned by the Run goroutine
	timer    timeutil.Timer
	armedFor time.Time
}

type call struct {
	fn   func(*View)
	done chan struct{}
}

// NewLoop wraps v. Nothing happens until Run is called.
func NewLoop(v *View) *Loop {
	return &Loop{
		view:  v,
		wake:  make(chan struct{}, 1),
		calls: make(chan call),
		done:  make(chan struct{}),
	}
}

// PostRegion hands a region change to the loop without blocking.
// A region posted before the previous one was picked up replaces it.
func (l *Loop) PostRegion(r Region) {
	l.mu.Lock()
	l.pending = r
	l.hasPending = true
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Do runs fn on the loop goroutine and waits for it to return.
// Regions posted before Do are applied, and a due settle is done, before
// fn runs.
func (l *Loop) Do(fn func(*View)) error {
	c := call{fn: fn, done: make(chan struct{})}
	select {
	case l.calls <- c:
	case <-l.done:
		return ErrLoopStopped
	}
	<-c.done
	return nil
}

// Done is closed when Run returns
func (l *Loop) Done() <-chan struct{} {
	return l.done
}

// Run processes region changes, settle deadlines and Do calls until ctx is
// cancelled. It must be called once.
func (l *Loop) Run(ctx context.Context) error {
	defer close(l.done)
	defer l.disarm()

	for {
		var timerC <-chan time.Time
		if l.timer != nil {
			timerC = l.timer.C()
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.wake:
			l.sync()
		case <-timerC:
			l.timer = nil
			l.armedFor = time.Time{}
			l.sync()
		case c := <-l.calls:
			l.sync()
			c.fn(l.view)
			l.arm()
			close(c.done)
		}
	}
}

// sync settles a finished animation, applies the newest posted region and
// re-arms the settle timer
func (l *Loop) sync() {
	l.view.SettleIfDue()

	l.mu.Lock()
	r, ok := l.pending, l.hasPending
	l.hasPending = false
	l.mu.Unlock()

	if ok {
		// errors are logged by the view, the loop keeps going
		_, _ = l.view.RegionChanged(r)
	}
	l.arm()
}

func (l *Loop) arm() {
	deadline, ok := l.view.SettleDue()
	if !ok {
		l.disarm()
		return
	}
	if l.timer != nil && deadline.Equal(l.armedFor) {
		return
	}
	l.disarm()

	clock := l.view.clock()
	d := deadline.Sub(clock.Now())
	if d <= 0 {
		l.view.SettleIfDue()
		return
	}
	l.timer = clock.NewTimer(d)
	l.armedFor = deadline
}

func (l *Loop) disarm() {
	if l.timer != nil {
		l.timer.Stop()
		l.timer = nil
	}
	l.armedFor = time.Time{}
}
