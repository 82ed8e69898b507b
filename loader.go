// SPDX-License-Identifier: MIT
// SPDX-FileCopyrightText: Ryan Johnson

package pixstream

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"
)

// Format identifies a stream encoding.
type Format int

const (
	// FormatLinear is the flat raster format (.sif).
	FormatLinear Format = iota
	// FormatProgressive is the multi-resolution diff format (.psi).
	FormatProgressive
)

// String returns the file extension used for the format.
func (f Format) String() string {
	switch f {
	case FormatLinear:
		return "sif"
	case FormatProgressive:
		return "psi"
	default:
		return "unknown"
	}
}

// FormatFromPath infers the format from a file name. A trailing ".zst"
// extension is stripped first and reported as compressed.
func FormatFromPath(path string) (format Format, compressed bool, err error) {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".zst" {
		compressed = true
		ext = strings.ToLower(filepath.Ext(strings.TrimSuffix(path, filepath.Ext(path))))
	}
	switch ext {
	case ".sif":
		return FormatLinear, compressed, nil
	case ".psi":
		return FormatProgressive, compressed, nil
	default:
		return 0, compressed, validationError("FormatFromPath",
			fmt.Sprintf("unrecognised image extension %q", ext), nil)
	}
}

// DetectFormat guesses the format from the first bytes of a stream. The flat
// format has no magic, so anything that is not progressive is reported as linear.
func DetectFormat(prefix []byte) Format {
	if len(prefix) >= len(ProgressiveMagic) && bytes.Equal(prefix[:len(ProgressiveMagic)], ProgressiveMagic[:]) {
		return FormatProgressive
	}
	return FormatLinear
}

// LoaderConfig configures a Loader.
type LoaderConfig struct {
	// Logger specifies the logger instance to use. Defaults to NoOpLogger.
	Logger Logger

	// OnComplete is called once when the loader resolves, with either the
	// total bytes consumed or the terminal error.
	OnComplete func(total int, err error)

	// BandwidthLimit throttles the source to this many KiB/s. Zero disables throttling.
	BandwidthLimit float64

	// ThrottleInterval is the pause between throttled slices.
	ThrottleInterval time.Duration

	// Clock is the delay primitive used by the throttle.
	Clock Clock
}

// LoaderOption represents a functional option for configuring a Loader.
type LoaderOption func(*LoaderConfig)

// WithLogger sets the logger for the loader.
func WithLogger(logger Logger) LoaderOption {
	return func(cfg *LoaderConfig) {
		cfg.Logger = logger
	}
}

// WithCompletionCallback sets a function invoked once on completion or failure.
// It runs on the read loop's goroutine.
func WithCompletionCallback(fn func(total int, err error)) LoaderOption {
	return func(cfg *LoaderConfig) {
		cfg.OnComplete = fn
	}
}

// WithBandwidthLimit throttles the source to rate KiB/s.
func WithBandwidthLimit(rate float64) LoaderOption {
	return func(cfg *LoaderConfig) {
		cfg.BandwidthLimit = rate
	}
}

// WithThrottleInterval sets the pause between throttled slices.
func WithThrottleInterval(interval time.Duration) LoaderOption {
	return func(cfg *LoaderConfig) {
		cfg.ThrottleInterval = interval
	}
}

// WithClock sets the clock used by the throttle.
func WithClock(clock Clock) LoaderOption {
	return func(cfg *LoaderConfig) {
		cfg.Clock = clock
	}
}

// Loader decodes one image from a ChunkSource into a PixelSink. A Loader
// runs a single read loop; it exclusively owns its parser, its buffered
// bytes and its Completion.
type Loader struct {
	format   Format
	sink     PixelSink
	config   *LoaderConfig
	logger   Logger
	parser   Parser
	asm      *Assembler
	throttle *Throttle

	completion *Completion
	started    atomic.Bool
}

// NewLoader creates a loader for format rendering to a width×height target.
// sink.Init is called before NewLoader returns.
func NewLoader(format Format, width, height int, sink PixelSink, opts ...LoaderOption) (*Loader, error) {
	if err := newInputValidator().ValidateRenderTarget(width, height); err != nil {
		return nil, err
	}
	if sink == nil {
		return nil, validationError("NewLoader", "pixel sink cannot be nil", nil)
	}

	cfg := &LoaderConfig{}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.Logger == nil {
		cfg.Logger = &NoOpLogger{}
	}
	logger := cfg.Logger.With(Field{Key: "format", Value: format.String()})

	l := &Loader{
		format:     format,
		sink:       sink,
		config:     cfg,
		logger:     logger,
		completion: newCompletion(),
	}

	switch format {
	case FormatLinear:
		l.parser = newLinearParser(width, height, sink, logger)
	case FormatProgressive:
		l.parser = newProgressiveParser(width, height, sink, logger)
	default:
		return nil, validationError("NewLoader", fmt.Sprintf("unsupported format %d", format), nil)
	}
	l.asm = NewAssembler(l.parser)

	if cfg.BandwidthLimit != 0 {
		t, err := NewThrottle(ThrottleConfig{
			Rate:     cfg.BandwidthLimit,
			Interval: cfg.ThrottleInterval,
			Clock:    cfg.Clock,
		})
		if err != nil {
			return nil, err
		}
		l.throttle = t
	}

	sink.Init(width, height)
	return l, nil
}

// Load runs the read loop on the calling goroutine until the image is
// finished, a format error is found, the source fails or ctx is done.
// It returns the total bytes consumed.
func (l *Loader) Load(ctx context.Context, src ChunkSource) (int, error) {
	if !l.started.CompareAndSwap(false, true) {
		return 0, configurationError("Loader.Load", "loader has already been started", nil)
	}
	return l.run(ctx, src)
}

// Start runs the read loop on a new goroutine and returns its Completion.
func (l *Loader) Start(ctx context.Context, src ChunkSource) *Completion {
	go func() {
		_, _ = l.Load(ctx, src)
	}()
	return l.completion
}

func (l *Loader) run(ctx context.Context, src ChunkSource) (int, error) {
	if l.throttle != nil {
		src = NewThrottledSource(src, l.throttle)
		l.logger.Debug("throttling source",
			Field{Key: "rate_kib", Value: l.throttle.Rate()},
			Field{Key: "interval", Value: l.throttle.Interval()})
	}

	for {
		if err := ctx.Err(); err != nil {
			return l.fail(canceledError("Loader.Load", err))
		}

		chunk, err := src.Next(ctx)
		if err != nil {
			switch {
			case isEOF(err):
				return l.fail(truncatedError("Loader.Load",
					fmt.Sprintf("source ended in state %s after %d bytes (%d buffered)",
						l.parser.State(), l.parser.Consumed(), l.asm.Buffered())))
			case ctx.Err() != nil:
				return l.fail(canceledError("Loader.Load", err))
			default:
				return l.fail(sourceError("Loader.Load", "failed to read chunk", err))
			}
		}

		l.asm.Feed(chunk)

		switch l.parser.State() {
		case StateFinished:
			return l.complete()
		case StateError:
			return l.fail(l.parser.Err())
		}
	}
}

// complete and fail run at most once per loader: the read loop returns
// straight after either. The Completion settles last so a waiter always
// observes a sink that has already been notified.
func (l *Loader) complete() (int, error) {
	total := l.parser.Consumed()
	l.logger.Info("image complete", Field{Key: "bytes", Value: total})
	l.sink.MarkComplete(total)
	if l.config.OnComplete != nil {
		l.config.OnComplete(total, nil)
	}
	l.completion.settle(total, nil)
	return total, nil
}

func (l *Loader) fail(err error) (int, error) {
	l.logger.Error("image failed",
		Field{Key: "error", Value: err},
		Field{Key: "bytes", Value: l.parser.Consumed()})
	l.sink.MarkError(err)
	if l.config.OnComplete != nil {
		l.config.OnComplete(0, err)
	}
	l.completion.settle(0, err)
	return 0, err
}

// Completion returns the loader's one-shot completion.
func (l *Loader) Completion() *Completion { return l.completion }

// Format returns the stream format being decoded.
func (l *Loader) Format() Format { return l.format }

// Parser returns the loader's parser. It must not be fed directly while the loader runs.
func (l *Loader) Parser() Parser { return l.parser }

// State returns the parser state. It is only meaningful once the read loop
// has returned or the completion has resolved.
func (l *Loader) State() ParseState { return l.parser.State() }
