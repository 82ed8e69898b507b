// SPDX-License-Identifier: MIT
// SPDX-FileCopyrightText: Ryan Johnson

package pixstream

import "bytes"

const (
	// progressiveHeaderSize is magic(4) + be16 width + be16 height.
	progressiveHeaderSize = 8

	// LayerMarker prefixes every layer of a progressive stream.
	LayerMarker = 0x4D
)

// ProgressiveMagic opens every progressive stream.
var ProgressiveMagic = [4]byte{0x00, 'P', 'S', 'I'}

// LayerDescriptor is the size of one pyramid level.
type LayerDescriptor struct {
	Width  uint16
	Height uint16
}

// Pixels returns the number of pixels in the layer.
func (l LayerDescriptor) Pixels() int {
	return int(l.Width) * int(l.Height)
}

// BuildPyramid returns the layer sizes of a progressive image, smallest first.
// Starting at full resolution, both sides are halved with ceiling rounding
// until the level is 1×1, so each level is ceil(next/2) of the one above it.
// A 1×1 image has a single level.
func BuildPyramid(width, height uint16) []LayerDescriptor {
	w, h := int(width), int(height)
	levels := []LayerDescriptor{{Width: width, Height: height}}
	for w > 1 || h > 1 {
		w = (w + 1) / 2
		h = (h + 1) / 2
		levels = append(levels, LayerDescriptor{Width: uint16(w), Height: uint16(h)}) // #nosec G115 - halving never grows
	}
	for i, j := 0, len(levels)-1; i < j; i, j = i+1, j-1 {
		levels[i], levels[j] = levels[j], levels[i]
	}
	return levels
}

// ProgressiveParser decodes the multi-resolution diff format. Each layer is a
// full raster whose pixels are deltas from the pixel at (x/2, y/2) of the
// previous layer, or from NeutralGray for the first layer. Decoding stops
// early once a layer's source pixels are smaller than one render pixel.
type ProgressiveParser struct {
	header    ImageHeader
	sink      PixelSink
	logger    Logger
	validator *InputValidator

	state    ParseState
	err      error
	pos      cursor
	consumed int

	layers     []LayerDescriptor
	layerIndex int
	prevLayer  []byte
	curLayer   []byte

	pixelWidth  float64
	pixelHeight float64
}

// NewProgressiveParser creates a progressive parser rendering to a target of
// the given size. The caller is responsible for calling sink.Init.
func NewProgressiveParser(targetWidth, targetHeight int, sink PixelSink) *ProgressiveParser {
	return newProgressiveParser(targetWidth, targetHeight, sink, &NoOpLogger{})
}

func newProgressiveParser(targetWidth, targetHeight int, sink PixelSink, logger Logger) *ProgressiveParser {
	return &ProgressiveParser{
		header:    ImageHeader{TargetWidth: targetWidth, TargetHeight: targetHeight},
		sink:      sink,
		logger:    logger,
		validator: newInputValidator(),
		state:     StateHeader,
	}
}

// Process consumes complete fields from the front of buf and returns the number of bytes used.
// A field that fails validation is not consumed.
func (p *ProgressiveParser) Process(buf []byte) int {
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

func (p *ProgressiveParser) step(b []byte) int {
	switch p.state {
	case StateHeader:
		return p.parseHeader(b)
	case StateLayerStart:
		return p.startLayer(b)
	case StatePixels:
		return p.decodePixel(b)
	}
	return 0
}

func (p *ProgressiveParser) parseHeader(b []byte) int {
	if len(b) < progressiveHeaderSize {
		return 0
	}
	if !bytes.Equal(b[:4], ProgressiveMagic[:]) {
		p.fail(invalidMagicError("ProgressiveParser.parseHeader",
			"stream does not start with the progressive magic"))
		return 0
	}
	width, height := readDimensions(b[4:])
	if err := p.validator.ValidateImageDimensions(width, height); err != nil {
		p.fail(err)
		return 0
	}
	if err := p.validator.ValidateLayerSize(width, height); err != nil {
		p.fail(err)
		return 0
	}

	p.header.Width, p.header.Height = width, height
	p.layers = BuildPyramid(width, height)
	p.layerIndex = 0
	p.logger.Debug("parsed progressive header",
		Field{Key: "width", Value: width},
		Field{Key: "height", Value: height},
		Field{Key: "layers", Value: len(p.layers)})
	p.state = StateLayerStart
	return progressiveHeaderSize
}

func (p *ProgressiveParser) startLayer(b []byte) int {
	if len(b) < 1 {
		return 0
	}
	if b[0] != LayerMarker {
		p.fail(invalidLayerMarkerError("ProgressiveParser.startLayer",
			"layer does not start with the layer marker"))
		return 0
	}

	layer := p.layers[p.layerIndex]
	p.prevLayer = p.curLayer
	p.curLayer = make([]byte, layer.Pixels()*BytesPerPixel)
	p.pos.reset(int(layer.Width), int(layer.Height))
	p.pixelWidth, p.pixelHeight = cellScale(p.header.TargetWidth, p.header.TargetHeight, layer.Width, layer.Height)
	p.logger.Debug("starting layer",
		Field{Key: "index", Value: p.layerIndex},
		Field{Key: "width", Value: layer.Width},
		Field{Key: "height", Value: layer.Height})
	p.state = StatePixels
	return 1
}

func (p *ProgressiveParser) decodePixel(b []byte) int {
	if len(b) < BytesPerPixel {
		return 0
	}

	x, y := p.pos.x, p.pos.y
	c := applyDiff(p.predict(x, y), b[:BytesPerPixel])
	putColor(p.curLayer, (x+y*p.pos.width)*BytesPerPixel, c)

	cx, cy, cw, ch := cellRect(x, y, p.pixelWidth, p.pixelHeight)
	p.sink.DrawPixel(cx, cy, cw, ch, c, true)

	if p.pos.advance() {
		p.finishLayer()
	}
	return BytesPerPixel
}

// predict returns the base a pixel's delta is applied to.
func (p *ProgressiveParser) predict(x, y int) Color {
	if p.layerIndex == 0 {
		return NeutralGray
	}
	prevWidth := int(p.layers[p.layerIndex-1].Width)
	return colorAt(p.prevLayer, (x/2+(y/2)*prevWidth)*BytesPerPixel)
}

func (p *ProgressiveParser) finishLayer() {
	p.prevLayer = nil
	p.layerIndex++

	// Keep refining while the completed layer still spans at least one
	// render pixel per source pixel on some axis.
	if p.layerIndex < len(p.layers) && (p.pixelWidth >= 1 || p.pixelHeight >= 1) {
		p.state = StateLayerStart
		return
	}
	if p.layerIndex < len(p.layers) {
		p.logger.Debug("stopping before finer layers",
			Field{Key: "decoded", Value: p.layerIndex},
			Field{Key: "layers", Value: len(p.layers)})
	}
	p.state = StateFinished
}

func (p *ProgressiveParser) fail(err error) {
	p.state = StateError
	p.err = err
}

// State returns the current parse state.
func (p *ProgressiveParser) State() ParseState { return p.state }

// Err returns the format error, if any.
func (p *ProgressiveParser) Err() error { return p.err }

// Consumed returns the number of bytes used so far, including the final pixel once finished.
func (p *ProgressiveParser) Consumed() int { return p.consumed }

// Header returns the parsed header. Width and Height are zero until the header has been read.
func (p *ProgressiveParser) Header() ImageHeader { return p.header }

// Layers returns the pyramid built from the header, smallest first.
func (p *ProgressiveParser) Layers() []LayerDescriptor {
	return append([]LayerDescriptor(nil), p.layers...)
}

// LayerIndex returns the index of the layer being decoded, or the number of
// completed layers once the parser has finished.
func (p *ProgressiveParser) LayerIndex() int { return p.layerIndex }

// DecodedLayer returns the most recently completed layer and its RGBA pixels.
// The slice is owned by the parser and is not copied; ok is false until the
// first layer completes.
func (p *ProgressiveParser) DecodedLayer() (layer LayerDescriptor, pix []byte, ok bool) {
	if p.layerIndex == 0 {
		return LayerDescriptor{}, nil, false
	}
	if p.state == StatePixels {
		// curLayer is partially filled; the previous layer is the last complete one.
		return p.layers[p.layerIndex-1], p.prevLayer, true
	}
	return p.layers[p.layerIndex-1], p.curLayer, true
}
