// SPDX-License-Identifier: MIT
// SPDX-FileCopyrightText: Ryan Johnson

package pixstream

import (
	"context"
	"encoding/binary"
	"errors"
	"sync"
	"time"
)

// drawCall is one recorded DrawPixel invocation.
type drawCall struct {
	X, Y, W, H int
	C          Color
	Clear      bool
}

// recordingSink records every call made to it.
type recordingSink struct {
	mu        sync.Mutex
	inits     [][2]int
	draws     []drawCall
	completed []int
	errs      []error
}

func (s *recordingSink) Init(width, height int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inits = append(s.inits, [2]int{width, height})
}

func (s *recordingSink) DrawPixel(x, y, w, h int, c Color, clearFirst bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.draws = append(s.draws, drawCall{X: x, Y: y, W: w, H: h, C: c, Clear: clearFirst})
}

func (s *recordingSink) MarkComplete(total int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.completed = append(s.completed, total)
}

func (s *recordingSink) MarkError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errs = append(s.errs, err)
}

func (s *recordingSink) drawCalls() []drawCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]drawCall(nil), s.draws...)
}

// encodeSIF builds a flat raster stream.
func encodeSIF(width, height uint16, colors func(x, y int) Color) []byte {
	out := binary.BigEndian.AppendUint16(nil, width)
	out = binary.BigEndian.AppendUint16(out, height)
	for y := 0; y < int(height); y++ {
		for x := 0; x < int(width); x++ {
			c := colors(x, y)
			out = append(out, c.R, c.G, c.B, c.A)
		}
	}
	return out
}

// encodePSI builds a progressive stream whose layer i decodes exactly to
// colors(i, x, y). Wraparound makes every target reachable from any base.
func encodePSI(width, height uint16, colors func(i, x, y int) Color) []byte {
	out := append([]byte(nil), ProgressiveMagic[:]...)
	out = binary.BigEndian.AppendUint16(out, width)
	out = binary.BigEndian.AppendUint16(out, height)

	var prev []Color
	prevWidth := 0
	for i, layer := range BuildPyramid(width, height) {
		out = append(out, LayerMarker)
		cur := make([]Color, layer.Pixels())
		for y := 0; y < int(layer.Height); y++ {
			for x := 0; x < int(layer.Width); x++ {
				c := colors(i, x, y)
				base := NeutralGray
				if i > 0 {
					base = prev[x/2+(y/2)*prevWidth]
				}
				out = append(out,
					c.R-base.R+DiffBias,
					c.G-base.G+DiffBias,
					c.B-base.B+DiffBias,
					c.A-base.A+DiffBias)
				cur[x+y*int(layer.Width)] = c
			}
		}
		prev, prevWidth = cur, int(layer.Width)
	}
	return out
}

// gradient is a deterministic color pattern for fixtures.
func gradient(i, x, y int) Color {
	return Color{
		R: uint8(x*37 + i*11),
		G: uint8(y*53 + i*7),
		B: uint8((x ^ y) * 19),
		A: uint8(200 + i),
	}
}

// errClockExhausted is returned by a fakeClock that has used up its sleeps.
var errClockExhausted = errors.New("fake clock: sleep limit reached")

// fakeClock advances only when slept on. A non-zero maxSleeps bounds how many
// pauses it grants, so a stalled pacer fails a test instead of hanging it.
type fakeClock struct {
	mu        sync.Mutex
	now       time.Time
	sleeps    []time.Duration
	maxSleeps int
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.maxSleeps > 0 && len(c.sleeps) >= c.maxSleeps {
		return errClockExhausted
	}
	c.now = c.now.Add(d)
	c.sleeps = append(c.sleeps, d)
	return nil
}

func (c *fakeClock) elapsed(since time.Time) time.Duration {
	return c.Now().Sub(since)
}
