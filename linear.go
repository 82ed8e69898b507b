// SPDX-License-Identifier: MIT
// SPDX-FileCopyrightText: Ryan Johnson

package pixstream

// linearHeaderSize is the flat raster header: be16 width, be16 height.
const linearHeaderSize = 4

// LinearParser decodes the flat raster format: a 4-byte header followed by
// width*height RGBA pixels in row-major order.
type LinearParser struct {
	header    ImageHeader
	sink      PixelSink
	logger    Logger
	validator *InputValidator

	state    ParseState
	err      error
	pos      cursor
	consumed int

	pixelWidth  float64
	pixelHeight float64
}

// NewLinearParser creates a flat raster parser rendering to a target of the
// given size. The caller is responsible for calling sink.Init.
func NewLinearParser(targetWidth, targetHeight int, sink PixelSink) *LinearParser {
	return newLinearParser(targetWidth, targetHeight, sink, &NoOpLogger{})
}

func newLinearParser(targetWidth, targetHeight int, sink PixelSink, logger Logger) *LinearParser {
	return &LinearParser{
		header:    ImageHeader{TargetWidth: targetWidth, TargetHeight: targetHeight},
		sink:      sink,
		logger:    logger,
		validator: newInputValidator(),
		state:     StateHeader,
	}
}

// Process consumes complete fields from the front of buf and returns the number of bytes used.
func (p *LinearParser) Process(buf []byte) int {
	off := 0
	for !p.state.Terminal() {
		n := p.step(buf[off:])
		if n == 0 {
			break
		}
		off += n
		p.consumed += n
	}
	return off
}

func (p *LinearParser) step(b []byte) int {
	switch p.state {
	case StateHeader:
		if len(b) < linearHeaderSize {
			return 0
		}
		width, height := readDimensions(b)
		if err := p.validator.ValidateImageDimensions(width, height); err != nil {
			p.fail(err)
			return 0
		}
		p.header.Width, p.header.Height = width, height
		p.pixelWidth, p.pixelHeight = cellScale(p.header.TargetWidth, p.header.TargetHeight, width, height)
		p.pos.reset(int(width), int(height))
		p.logger.Debug("parsed flat raster header",
			Field{Key: "width", Value: width}, Field{Key: "height", Value: height})
		p.state = StatePixels
		return linearHeaderSize

	case StatePixels:
		if len(b) < BytesPerPixel {
			return 0
		}
		x, y, w, h := cellRect(p.pos.x, p.pos.y, p.pixelWidth, p.pixelHeight)
		p.sink.DrawPixel(x, y, w, h, colorAt(b, 0), false)
		if p.pos.advance() {
			p.state = StateFinished
		}
		return BytesPerPixel
	}
	return 0
}

func (p *LinearParser) fail(err error) {
	p.state = StateError
	p.err = err
}

// State returns the current parse state.
func (p *LinearParser) State() ParseState { return p.state }

// Err returns the format error, if any.
func (p *LinearParser) Err() error { return p.err }

// Consumed returns the number of bytes used so far. Once the parser is
// finished this includes the final pixel and equals 4 + 4*width*height.
func (p *LinearParser) Consumed() int { return p.consumed }

// Header returns the parsed header. Width and Height are zero until the header has been read.
func (p *LinearParser) Header() ImageHeader { return p.header }
