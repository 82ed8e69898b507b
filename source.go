// SPDX-License-Identifier: MIT
// SPDX-FileCopyrightText: Ryan Johnson

package pixstream

import (
	"context"
	"errors"
	"io"

	"github.com/klauspost/compress/zstd"
)

// DefaultChunkSize is the read size of reader-backed sources.
const DefaultChunkSize = 32 * 1024

// maxEmptyReads is how many (0, nil) reads ReaderSource tolerates in a row
// before failing with io.ErrNoProgress, as bufio does.
const maxEmptyReads = 100

// ChunkSource produces the raw byte chunks of one image, in order.
// Next returns io.EOF once the stream is exhausted. A returned chunk is only
// valid until the next call.
type ChunkSource interface {
	Next(ctx context.Context) ([]byte, error)
}

// SliceSource replays a fixed list of chunks.
type SliceSource struct {
	chunks [][]byte
}

// NewSliceSource returns a source yielding chunks in order.
func NewSliceSource(chunks ...[]byte) *SliceSource {
	return &SliceSource{chunks: chunks}
}

// SplitSource returns a source yielding data in pieces of at most size bytes.
func SplitSource(data []byte, size int) *SliceSource {
	if size <= 0 {
		size = len(data)
	}
	var chunks [][]byte
	for len(data) > size {
		chunks = append(chunks, data[:size])
		data = data[size:]
	}
	return NewSliceSource(append(chunks, data)...)
}

// Next returns the next chunk.
func (s *SliceSource) Next(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(s.chunks) == 0 {
		return nil, io.EOF
	}
	chunk := s.chunks[0]
	s.chunks = s.chunks[1:]
	return chunk, nil
}

// ReaderSource reads chunks from an io.Reader.
type ReaderSource struct {
	r   io.Reader
	buf []byte
	err error
}

// NewReaderSource returns a source reading at most chunkSize bytes per chunk.
func NewReaderSource(r io.Reader, chunkSize int) (*ReaderSource, error) {
	if err := newInputValidator().ValidateChunkSize(chunkSize); err != nil {
		return nil, configurationError("NewReaderSource", "invalid chunk size", err)
	}
	return &ReaderSource{r: r, buf: make([]byte, chunkSize)}, nil
}

// Next reads the next chunk. A read error that arrives with data is
// reported on the following call. A reader that keeps returning no data and
// no error fails with io.ErrNoProgress.
func (s *ReaderSource) Next(ctx context.Context) ([]byte, error) {
	if s.err != nil {
		return nil, s.err
	}
	for i := 0; i < maxEmptyReads; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		n, err := s.r.Read(s.buf)
		if err != nil {
			s.err = err
		}
		if n > 0 {
			return s.buf[:n], nil
		}
		if err != nil {
			return nil, err
		}
	}
	s.err = io.ErrNoProgress
	return nil, s.err
}

// ZstdSource decompresses a zstd-framed stream into chunks.
type ZstdSource struct {
	*ReaderSource
	dec *zstd.Decoder
}

// NewZstdSource returns a source yielding the decompressed contents of r.
// The caller must Close it to release the decoder.
func NewZstdSource(r io.Reader, chunkSize int) (*ZstdSource, error) {
	dec, err := zstd.NewReader(r, zstd.WithDecoderConcurrency(1))
	if err != nil {
		return nil, sourceError("NewZstdSource", "failed to create zstd decoder", err)
	}
	rs, err := NewReaderSource(dec, chunkSize)
	if err != nil {
		dec.Close()
		return nil, err
	}
	return &ZstdSource{ReaderSource: rs, dec: dec}, nil
}

// Close releases the decoder.
func (s *ZstdSource) Close() error {
	s.dec.Close()
	return nil
}

// ThrottledSource paces another source through a Throttle.
type ThrottledSource struct {
	src      ChunkSource
	throttle *Throttle
	p        *pacer
	pause    bool
}

// NewThrottledSource returns a source that re-slices src's chunks at t's rate.
func NewThrottledSource(src ChunkSource, t *Throttle) *ThrottledSource {
	return &ThrottledSource{src: src, throttle: t}
}

// Next returns the next paced slice. The pause after each slice is taken at
// the start of the following call, so it can be cut short by ctx.
func (s *ThrottledSource) Next(ctx context.Context) ([]byte, error) {
	for {
		if s.pause {
			if err := s.throttle.clock.Sleep(ctx, s.throttle.interval); err != nil {
				return nil, err
			}
			s.pause = false
		}

		if s.p == nil || s.p.exhausted() {
			chunk, err := s.src.Next(ctx)
			if err != nil {
				return nil, err
			}
			// The upstream chunk may be reused by its source.
			s.p = s.throttle.newPacer(append([]byte(nil), chunk...))
			if s.p.exhausted() {
				continue
			}
		}

		slice := s.p.next()
		s.pause = true
		if len(slice) > 0 {
			return slice, nil
		}
	}
}

// isEOF reports whether err marks the normal end of a source.
func isEOF(err error) bool {
	return errors.Is(err, io.EOF)
}
