// SPDX-License-Identifier: MIT
// SPDX-FileCopyrightText: Ryan Johnson

package pixstream

import "fmt"

// BytesPerPixel is the wire size of one pixel in both formats.
const BytesPerPixel = 4

// DiffBias is subtracted from a raw diff byte to obtain the signed delta.
const DiffBias = 127

// Color is a raw 4-channel pixel value. The alpha channel is passed through
// untouched; how it composites is up to the PixelSink.
type Color struct {
	R uint8
	G uint8
	B uint8
	A uint8
}

// NeutralGray is the prediction base for every pixel of the first progressive layer.
var NeutralGray = Color{R: 0x80, G: 0x80, B: 0x80, A: 0x80}

// String returns the color as rgba(r,g,b,a).
func (c Color) String() string {
	return fmt.Sprintf("rgba(%d,%d,%d,%d)", c.R, c.G, c.B, c.A)
}

// colorAt reads the pixel stored at byte offset i of an RGBA buffer.
func colorAt(buf []byte, i int) Color {
	return Color{R: buf[i], G: buf[i+1], B: buf[i+2], A: buf[i+3]}
}

// putColor stores c at byte offset i of an RGBA buffer.
func putColor(buf []byte, i int, c Color) {
	buf[i] = c.R
	buf[i+1] = c.G
	buf[i+2] = c.B
	buf[i+3] = c.A
}

// DecodeDelta returns the signed delta carried by a raw diff byte, in [-127, 128].
func DecodeDelta(raw byte) int {
	return int(raw) - DiffBias
}

// ApplyDelta adds the delta carried by raw to base with 8-bit wraparound.
// Results are not clamped: 250 + delta(20) yields 14.
func ApplyDelta(base, raw byte) byte {
	return base + raw - DiffBias
}

// applyDiff reconstructs a pixel from its predicted base and the four raw diff bytes.
func applyDiff(base Color, raw []byte) Color {
	return Color{
		R: ApplyDelta(base.R, raw[0]),
		G: ApplyDelta(base.G, raw[1]),
		B: ApplyDelta(base.B, raw[2]),
		A: ApplyDelta(base.A, raw[3]),
	}
}
