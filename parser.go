// SPDX-License-Identifier: MIT
// SPDX-FileCopyrightText: Ryan Johnson

package pixstream

import (
	"encoding/binary"
	"math"
)

// ParseState is the position of a parser's state machine. States only move
// forward; Finished and Error are terminal.
type ParseState int

const (
	// StateHeader waits for the image header.
	StateHeader ParseState = iota
	// StateLayerStart waits for a layer-start marker (progressive only).
	StateLayerStart
	// StatePixels decodes 4-byte pixels.
	StatePixels
	// StateFinished means the image is complete.
	StateFinished
	// StateError means a format error was found.
	StateError
)

// String returns the string representation of the parse state.
func (s ParseState) String() string {
	switch s {
	case StateHeader:
		return "header"
	case StateLayerStart:
		return "layer-start"
	case StatePixels:
		return "pixels"
	case StateFinished:
		return "finished"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further input will be consumed.
func (s ParseState) Terminal() bool {
	return s == StateFinished || s == StateError
}

// ImageHeader holds the native image size read from a stream header and the
// render target size supplied by the caller.
type ImageHeader struct {
	Width        uint16
	Height       uint16
	TargetWidth  int
	TargetHeight int
}

// Parser is an incremental decoder. Process consumes as many complete fields
// from the front of buf as it can and returns how many bytes it used; the
// caller keeps the rest and presents it again, extended, on the next call.
type Parser interface {
	Process(buf []byte) int
	State() ParseState
	// Err returns the format error once State is StateError.
	Err() error
	// Consumed returns the total bytes used so far.
	Consumed() int
	Header() ImageHeader
}

// cellScale returns the size of one source pixel in render pixels.
func cellScale(targetWidth, targetHeight int, width, height uint16) (float64, float64) {
	return float64(targetWidth) / float64(width), float64(targetHeight) / float64(height)
}

// cellRect maps source pixel (x, y) to a render cell. The origin is floored and
// the size ceiled so adjacent cells neither leave gaps nor blend.
func cellRect(x, y int, pixelWidth, pixelHeight float64) (int, int, int, int) {
	return int(math.Floor(float64(x) * pixelWidth)),
		int(math.Floor(float64(y) * pixelHeight)),
		int(math.Ceil(pixelWidth)),
		int(math.Ceil(pixelHeight))
}

func readDimensions(b []byte) (uint16, uint16) {
	return binary.BigEndian.Uint16(b[0:2]), binary.BigEndian.Uint16(b[2:4])
}

// cursor walks pixel coordinates in row-major order.
type cursor struct {
	x, y          int
	width, height int
}

// advance moves to the next pixel and reports whether the raster is exhausted.
func (c *cursor) advance() bool {
	c.x++
	if c.x >= c.width {
		c.x = 0
		c.y++
	}
	return c.y >= c.height
}

func (c *cursor) reset(width, height int) {
	c.x, c.y = 0, 0
	c.width, c.height = width, height
}
