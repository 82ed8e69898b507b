// SPDX-License-Identifier: MIT
// SPDX-FileCopyrightText: Ryan Johnson

package pixstream

import (
	"image"
	"image/color"
	"image/draw"
	"sync"
)

// PixelSink receives decoded pixels. It is invoked synchronously from the
// read loop, so a slow sink stalls decoding.
type PixelSink interface {
	// Init is called once, before any other method, with the render target size.
	Init(width, height int)

	// DrawPixel fills the cell at (x, y) of size w×h with c. When clearFirst is
	// set the cell must be cleared to transparent before filling, so a
	// translucent pixel does not reveal a stale lower-resolution layer.
	DrawPixel(x, y, w, h int, c Color, clearFirst bool)

	// MarkComplete is called once with the total number of bytes consumed.
	MarkComplete(total int)

	// MarkError is called once with the terminal error. Use GetErrorCode to
	// obtain the error kind.
	MarkError(err error)
}

// NoOpSink is a PixelSink that discards everything.
type NoOpSink struct{}

// Init does nothing.
func (NoOpSink) Init(width, height int) {}

// DrawPixel does nothing.
func (NoOpSink) DrawPixel(x, y, w, h int, c Color, clearFirst bool) {}

// MarkComplete does nothing.
func (NoOpSink) MarkComplete(total int) {}

// MarkError does nothing.
func (NoOpSink) MarkError(err error) {}

// ImageSink is a PixelSink that renders into an in-memory NRGBA image.
// Color channels are treated as straight alpha and composited source-over.
// Snapshot may be called from other goroutines while a loader is drawing.
type ImageSink struct {
	mu    sync.Mutex
	img   *image.NRGBA
	total int
	done  bool
	err   error
	draws int
}

// NewImageSink returns an empty ImageSink. The canvas is allocated by Init.
func NewImageSink() *ImageSink {
	return &ImageSink{}
}

// Init allocates a transparent canvas of the given size.
func (s *ImageSink) Init(width, height int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.img = image.NewNRGBA(image.Rect(0, 0, width, height))
}

// DrawPixel composites c over the cell, clipped to the canvas.
func (s *ImageSink) DrawPixel(x, y, w, h int, c Color, clearFirst bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.img == nil {
		return
	}
	s.draws++

	r := image.Rect(x, y, x+w, y+h).Intersect(s.img.Bounds())
	if r.Empty() {
		return
	}
	if clearFirst {
		draw.Draw(s.img, r, image.Transparent, image.Point{}, draw.Src)
	}
	src := image.NewUniform(color.NRGBA{R: c.R, G: c.G, B: c.B, A: c.A})
	draw.Draw(s.img, r, src, image.Point{}, draw.Over)
}

// MarkComplete records the completion byte count.
func (s *ImageSink) MarkComplete(total int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.total = total
	s.done = true
}

// MarkError records the terminal error.
func (s *ImageSink) MarkError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
	s.done = true
}

// Snapshot returns a copy of the canvas as drawn so far, or nil before Init.
func (s *ImageSink) Snapshot() *image.NRGBA {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.img == nil {
		return nil
	}
	cp := image.NewNRGBA(s.img.Rect)
	copy(cp.Pix, s.img.Pix)
	return cp
}

// Result reports the completion byte count, whether completion or failure
// has been signalled yet, and the terminal error.
func (s *ImageSink) Result() (total int, done bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.total, s.done, s.err
}

// Draws returns the number of DrawPixel calls received.
func (s *ImageSink) Draws() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.draws
}
