// SPDX-License-Identifier: MIT
// SPDX-FileCopyrightText: Ryan Johnson

package pixstream

import (
	"reflect"
	"testing"
)

func TestProgressive_BuildPyramid(t *testing.T) {
	tests := []struct {
		name          string
		width, height uint16
		want          []LayerDescriptor
	}{
		{"13x7", 13, 7, []LayerDescriptor{{1, 1}, {2, 1}, {4, 2}, {7, 4}, {13, 7}}},
		{"1x1 single level", 1, 1, []LayerDescriptor{{1, 1}}},
		{"1x5 thin column", 1, 5, []LayerDescriptor{{1, 1}, {1, 2}, {1, 3}, {1, 5}}},
		{"8x8 power of two", 8, 8, []LayerDescriptor{{1, 1}, {2, 2}, {4, 4}, {8, 8}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := BuildPyramid(tt.width, tt.height)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("BuildPyramid(%d, %d) = %v, want %v", tt.width, tt.height, got, tt.want)
			}
		})
	}
}

func TestProgressive_PyramidInvariant(t *testing.T) {
	sizes := [][2]uint16{{2, 1}, {3, 17}, {100, 3}, {640, 480}, {65535, 1}, {65535, 65535}}
	for _, s := range sizes {
		levels := BuildPyramid(s[0], s[1])
		if levels[0] != (LayerDescriptor{1, 1}) {
			t.Errorf("%v: smallest level = %v, want 1x1", s, levels[0])
		}
		if last := levels[len(levels)-1]; last != (LayerDescriptor{s[0], s[1]}) {
			t.Errorf("%v: largest level = %v, want full size", s, last)
		}
		for i := 0; i+1 < len(levels); i++ {
			next := levels[i+1]
			if int(levels[i].Width) != (int(next.Width)+1)/2 || int(levels[i].Height) != (int(next.Height)+1)/2 {
				t.Errorf("%v: level %d %v is not ceil-half of %v", s, i, levels[i], next)
			}
		}
	}
}

func TestProgressive_FullDecode(t *testing.T) {
	sink := &recordingSink{}
	p := NewProgressiveParser(13, 7, sink)
	data := encodePSI(13, 7, gradient)

	if n := p.Process(data); n != len(data) {
		t.Fatalf("Process() = %d, want %d", n, len(data))
	}
	if p.State() != StateFinished {
		t.Fatalf("State() = %v, want %v", p.State(), StateFinished)
	}
	if p.Consumed() != len(data) {
		t.Errorf("Consumed() = %d, want %d", p.Consumed(), len(data))
	}

	draws := sink.drawCalls()
	i := 0
	for li, layer := range BuildPyramid(13, 7) {
		pw, ph := cellScale(13, 7, layer.Width, layer.Height)
		for y := 0; y < int(layer.Height); y++ {
			for x := 0; x < int(layer.Width); x++ {
				if i >= len(draws) {
					t.Fatalf("ran out of draws at layer %d (%d,%d)", li, x, y)
				}
				d := draws[i]
				wx, wy, ww, wh := cellRect(x, y, pw, ph)
				if d.X != wx || d.Y != wy || d.W != ww || d.H != wh {
					t.Errorf("layer %d (%d,%d): rect (%d,%d,%d,%d), want (%d,%d,%d,%d)",
						li, x, y, d.X, d.Y, d.W, d.H, wx, wy, ww, wh)
				}
				if d.C != gradient(li, x, y) {
					t.Errorf("layer %d (%d,%d): color %v, want %v", li, x, y, d.C, gradient(li, x, y))
				}
				if !d.Clear {
					t.Errorf("layer %d (%d,%d): progressive draws must clear first", li, x, y)
				}
				i++
			}
		}
	}
	if i != len(draws) {
		t.Errorf("got %d draws, want %d", len(draws), i)
	}

	layer, pix, ok := p.DecodedLayer()
	if !ok || layer != (LayerDescriptor{13, 7}) {
		t.Fatalf("DecodedLayer() = %v, ok=%v, want 13x7", layer, ok)
	}
	for y := 0; y < 7; y++ {
		for x := 0; x < 13; x++ {
			if got := colorAt(pix, (x+y*13)*4); got != gradient(4, x, y) {
				t.Errorf("decoded (%d,%d) = %v, want %v", x, y, got, gradient(4, x, y))
			}
		}
	}
}

func TestProgressive_EarlyExit(t *testing.T) {
	tests := []struct {
		name          string
		width, height uint16
		tw, th        int
		wantLayers    int
	}{
		// Cells are 4, 2, 1, then 0.5 render pixels: the 8x8 layer is the last.
		{"16x16 into 4x4", 16, 16, 4, 4, 4},
		{"8x8 into 1x1", 8, 8, 1, 1, 2},
		// The taller axis keeps refining after the narrow one drops below a pixel.
		{"16x16 into 1x4", 16, 16, 1, 4, 4},
		{"16x16 into 1x8", 16, 16, 1, 8, 5},
		{"native size decodes everything", 16, 16, 16, 16, 5},
		{"upscaled decodes everything", 4, 4, 100, 100, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sink := &recordingSink{}
			p := NewProgressiveParser(tt.tw, tt.th, sink)
			data := encodePSI(tt.width, tt.height, gradient)

			n := p.Process(data)
			if p.State() != StateFinished {
				t.Fatalf("State() = %v, want %v", p.State(), StateFinished)
			}
			if p.LayerIndex() != tt.wantLayers {
				t.Errorf("decoded %d layers, want %d", p.LayerIndex(), tt.wantLayers)
			}

			wantBytes, wantDraws := progressiveHeaderSize, 0
			for _, l := range BuildPyramid(tt.width, tt.height)[:tt.wantLayers] {
				wantBytes += 1 + l.Pixels()*BytesPerPixel
				wantDraws += l.Pixels()
			}
			if n != wantBytes || p.Consumed() != wantBytes {
				t.Errorf("consumed %d (reported %d), want %d", n, p.Consumed(), wantBytes)
			}
			if len(sink.drawCalls()) != wantDraws {
				t.Errorf("got %d draws, want %d", len(sink.drawCalls()), wantDraws)
			}
			if tt.wantLayers < len(p.Layers()) && n >= len(data) {
				t.Errorf("finer layers should remain unconsumed")
			}
		})
	}
}

func TestProgressive_InvalidMagic(t *testing.T) {
	sink := &recordingSink{}
	p := NewProgressiveParser(4, 4, sink)

	data := []byte{0x01, 0x02, 0x03, 0x04, 0, 2, 0, 2, LayerMarker, 127, 127, 127, 127}
	if n := p.Process(data); n != 0 {
		t.Errorf("Process() = %d, want 0", n)
	}
	if p.State() != StateError {
		t.Errorf("State() = %v, want %v", p.State(), StateError)
	}
	if !IsDecodeError(p.Err(), ErrInvalidMagic) {
		t.Errorf("Err() = %v, want invalid magic", p.Err())
	}
	if len(sink.drawCalls()) != 0 {
		t.Errorf("got %d draws, want 0", len(sink.drawCalls()))
	}
	if n := p.Process(data); n != 0 {
		t.Errorf("Process() after error = %d, want 0", n)
	}
}

func TestProgressive_InvalidLayerMarker(t *testing.T) {
	t.Run("first layer", func(t *testing.T) {
		p := NewProgressiveParser(4, 4, &recordingSink{})
		data := append(encodePSI(2, 2, gradient)[:8], 0x00)

		if n := p.Process(data); n != 8 {
			t.Errorf("Process() = %d, want 8", n)
		}
		if !IsDecodeError(p.Err(), ErrInvalidLayerMarker) {
			t.Errorf("Err() = %v, want invalid layer marker", p.Err())
		}
	})

	t.Run("second layer", func(t *testing.T) {
		sink := &recordingSink{}
		p := NewProgressiveParser(4, 4, sink)
		data := encodePSI(2, 2, gradient)
		data[8+1+4] = 'X'

		if n := p.Process(data); n != 13 {
			t.Errorf("Process() = %d, want 13", n)
		}
		if p.State() != StateError {
			t.Errorf("State() = %v, want %v", p.State(), StateError)
		}
		if len(sink.drawCalls()) != 1 {
			t.Errorf("got %d draws, want 1", len(sink.drawCalls()))
		}
		if layer, _, ok := p.DecodedLayer(); !ok || layer != (LayerDescriptor{1, 1}) {
			t.Errorf("DecodedLayer() = %v, %v, want the completed 1x1 layer", layer, ok)
		}
	})
}

func TestProgressive_ImageTooLarge(t *testing.T) {
	sink := &recordingSink{}
	p := NewProgressiveParser(MaxRenderDimension, MaxRenderDimension, sink)
	data := []byte{0x00, 'P', 'S', 'I', 0xFF, 0xFF, 0xFF, 0xFF, LayerMarker}

	if n := p.Process(data); n != 0 {
		t.Errorf("Process() = %d, want 0", n)
	}
	if p.State() != StateError {
		t.Errorf("State() = %v, want %v", p.State(), StateError)
	}
	if !IsDecodeError(p.Err(), ErrImageTooLarge) {
		t.Errorf("Err() = %v, want image too large", p.Err())
	}
	if len(p.Layers()) != 0 || len(sink.drawCalls()) != 0 {
		t.Error("an oversized header should not build layers or draw")
	}
}

func TestProgressive_DegenerateDimensions(t *testing.T) {
	p := NewProgressiveParser(4, 4, &recordingSink{})
	data := []byte{0x00, 'P', 'S', 'I', 0, 0, 0, 3}

	if n := p.Process(data); n != 0 {
		t.Errorf("Process() = %d, want 0", n)
	}
	if !IsDecodeError(p.Err(), ErrDegenerateDimensions) {
		t.Errorf("Err() = %v, want degenerate dimensions", p.Err())
	}
}

func TestProgressive_Wraparound(t *testing.T) {
	sink := &recordingSink{}
	p := NewProgressiveParser(1, 1, sink)

	data := []byte{0x00, 'P', 'S', 'I', 0, 1, 0, 1, LayerMarker, 255, 0, 127, 200}
	p.Process(data)

	draws := sink.drawCalls()
	if len(draws) != 1 {
		t.Fatalf("got %d draws, want 1", len(draws))
	}
	want := Color{R: 0, G: 1, B: 128, A: 201}
	if draws[0].C != want {
		t.Errorf("color = %v, want %v", draws[0].C, want)
	}
	if p.Consumed() != len(data) {
		t.Errorf("Consumed() = %d, want %d", p.Consumed(), len(data))
	}
}

func TestProgressive_PreviousLayerDiscarded(t *testing.T) {
	p := NewProgressiveParser(8, 8, &recordingSink{})
	data := encodePSI(4, 4, gradient)

	// Header, layer 0 and the marker of layer 1 plus one pixel.
	p.Process(data[:8+5+1+4])
	if p.prevLayer == nil {
		t.Fatalf("previous layer must be held while layer 1 decodes")
	}
	p.Process(data[8+5+1+4:])
	if p.prevLayer != nil {
		t.Errorf("previous layer should be released after the final layer completes")
	}
}

func BenchmarkProgressiveParser(b *testing.B) {
	data := encodePSI(256, 256, gradient)
	b.ReportAllocs()
	b.SetBytes(int64(len(data)))
	for i := 0; i < b.N; i++ {
		p := NewProgressiveParser(256, 256, NoOpSink{})
		p.Process(data)
	}
}
