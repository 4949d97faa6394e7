// Package clock provides the tracker's session clock: a millisecond counter
// that wraps at 32 bits, like a microcontroller uptime counter.
//
// Elapsed time must always be computed with Since, which relies on unsigned
// subtraction and therefore stays correct across a wraparound.
package clock

import (
	"sync"
	"time"
)

// Clock is a wrapping millisecond counter that can also pause the caller.
type Clock interface {
	// Millis returns the current counter value.
	Millis() uint32
	// Sleep blocks the caller for d.
	Sleep(d time.Duration)
}

// Since returns the time elapsed between then and the current counter value.
func Since(c Clock, then uint32) time.Duration {
	return Elapsed(then, c.Millis())
}

// Elapsed returns now-then modulo 2^32 milliseconds.
func Elapsed(then, now uint32) time.Duration {
	return time.Duration(now-then) * time.Millisecond
}

// System is a Clock backed by the monotonic time source. The counter starts
// at zero when the value is created and wraps after about 49.7 days.
type System struct {
	start time.Time
}

// NewSystem returns a System clock starting now.
func NewSystem() *System {
	return &System{start: time.Now()}
}

func (s *System) Millis() uint32 {
	return uint32(time.Since(s.start).Milliseconds())
}

func (s *System) Sleep(d time.Duration) {
	time.Sleep(d)
}

// Fake is a manually driven Clock for tests. Sleep advances the counter
// instead of blocking, so timeouts elapse instantly.
type Fake struct {
	mu  sync.Mutex
	now uint32
}

// NewFake returns a Fake clock whose counter starts at start.
func NewFake(start uint32) *Fake {
	return &Fake{now: start}
}

func (f *Fake) Millis() uint32 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *Fake) Sleep(d time.Duration) {
	f.Advance(d)
}

// Advance moves the counter forward by d, wrapping at 32 bits.
func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now += uint32(d / time.Millisecond)
}

// Set moves the counter to an absolute value.
func (f *Fake) Set(ms uint32) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = ms
}
