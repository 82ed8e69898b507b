// SPDX-License-Identifier: MIT
// SPDX-FileCopyrightText: Ryan Johnson

package pixstream

import (
	"context"
	"math"
	"time"
)

// DefaultThrottleInterval is the pause between slices.
const DefaultThrottleInterval = 100 * time.Millisecond

// Clock is the time source and delay primitive used by the throttle.
type Clock interface {
	Now() time.Time

	// Sleep pauses for d, returning early with ctx.Err() if ctx is done.
	Sleep(ctx context.Context, d time.Duration) error
}

// WallClock is the real-time Clock.
type WallClock struct{}

// Now returns the current time.
func (WallClock) Now() time.Time { return time.Now() }

// Sleep waits for d or until ctx is done.
func (WallClock) Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ThrottleConfig configures a Throttle.
type ThrottleConfig struct {
	// Rate is the bandwidth in KiB/s.
	Rate float64

	// Interval is the pause between slices. Zero means DefaultThrottleInterval.
	Interval time.Duration

	// Clock is the delay primitive. Nil means WallClock.
	Clock Clock
}

// Throttle paces bytes to a fixed bandwidth by splitting chunks into slices
// sized from the time elapsed since the previous slice.
type Throttle struct {
	rate     float64
	interval time.Duration
	clock    Clock
}

// NewThrottle validates cfg and returns a Throttle.
func NewThrottle(cfg ThrottleConfig) (*Throttle, error) {
	iv := newInputValidator()
	if err := iv.ValidateBandwidth(cfg.Rate); err != nil {
		return nil, configurationError("NewThrottle", "invalid rate", err)
	}
	if cfg.Interval == 0 {
		cfg.Interval = DefaultThrottleInterval
	}
	if err := iv.ValidateInterval(cfg.Interval); err != nil {
		return nil, configurationError("NewThrottle", "invalid interval", err)
	}
	if cfg.Clock == nil {
		cfg.Clock = WallClock{}
	}
	return &Throttle{rate: cfg.Rate, interval: cfg.Interval, clock: cfg.Clock}, nil
}

// Rate returns the configured bandwidth in KiB/s.
func (t *Throttle) Rate() float64 { return t.rate }

// Interval returns the pause between slices.
func (t *Throttle) Interval() time.Duration { return t.interval }

// SliceLen returns round(elapsed * rate * 1024), the bytes allowed after
// elapsed, saturating at math.MaxInt.
func (t *Throttle) SliceLen(elapsed time.Duration) int {
	if elapsed <= 0 {
		return 0
	}
	return clampBytes(math.Round(t.allowance(elapsed)))
}

// allowance returns the unrounded byte budget earned over elapsed.
func (t *Throttle) allowance(elapsed time.Duration) float64 {
	return elapsed.Seconds() * t.rate * 1024
}

func clampBytes(x float64) int {
	if x >= float64(math.MaxInt) {
		return math.MaxInt
	}
	return int(x)
}

// Transmit hands chunk to emit in paced slices, pausing Interval after each
// one. A slice that would be empty is skipped but the pause still happens.
// The last slice is clamped to the bytes remaining.
func (t *Throttle) Transmit(ctx context.Context, chunk []byte, emit func([]byte) error) error {
	p := t.newPacer(chunk)
	for !p.exhausted() {
		if slice := p.next(); len(slice) > 0 {
			if err := emit(slice); err != nil {
				return err
			}
		}
		if err := t.clock.Sleep(ctx, t.interval); err != nil {
			return err
		}
	}
	return nil
}

// pacer tracks one chunk's progress through the throttle. budget holds the
// fractional bytes earned but not yet sent, always in [0, 1) between slices.
type pacer struct {
	t      *Throttle
	chunk  []byte
	off    int
	prev   time.Time
	budget float64
}

func (t *Throttle) newPacer(chunk []byte) *pacer {
	return &pacer{t: t, chunk: chunk, prev: t.clock.Now()}
}

func (p *pacer) exhausted() bool {
	return p.off >= len(p.chunk)
}

// next returns the bytes allowed since the previous call, possibly none.
// The fractional remainder carries into the next call, so any positive rate
// drains the chunk in about len(chunk)/(rate*1024) seconds.
func (p *pacer) next() []byte {
	now := p.t.clock.Now()
	if elapsed := now.Sub(p.prev); elapsed > 0 {
		p.budget += p.t.allowance(elapsed)
	}
	p.prev = now

	p.budget = min(p.budget, float64(len(p.chunk)-p.off))
	n := int(p.budget)
	p.budget -= float64(n)

	slice := p.chunk[p.off : p.off+n]
	p.off += n
	return slice
}
