// SPDX-License-Identifier: MIT
// SPDX-FileCopyrightText: Ryan Johnson

// Package pixstream implements incremental decoders for two streamed raster
// formats: a flat raster (.sif) and a progressive pyramid of diff layers (.psi).
//
// Bytes arrive in arbitrary chunks from a ChunkSource. An Assembler buffers
// them and drives a Parser, which emits one draw per decoded pixel to a
// PixelSink sized to the caller's render target. Progressive streams repaint
// the target coarse to fine and stop once further layers could not add detail.
//
// # Basic Usage
//
//	sink := pixstream.NewImageSink()
//	loader, err := pixstream.NewLoader(pixstream.FormatProgressive, 256, 256, sink)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	f, err := os.Open("photo.psi")
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer f.Close()
//
//	src, err := pixstream.NewReaderSource(f, pixstream.DefaultChunkSize)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	total, err := loader.Load(ctx, src)
//
// # Simulated Bandwidth
//
//	loader, err := pixstream.NewLoader(format, w, h, sink,
//		pixstream.WithBandwidthLimit(16),
//		pixstream.WithThrottleInterval(100*time.Millisecond),
//		pixstream.WithCompletionCallback(func(total int, err error) {
//			log.Printf("done: %d bytes, err=%v", total, err)
//		}),
//	)
//
//	completion := loader.Start(ctx, src)
//	total, err := completion.Wait(ctx)
//
// # Compressed Streams
//
//	src, err := pixstream.NewZstdSource(f, pixstream.DefaultChunkSize)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer src.Close()
//
// # Error Handling
//
//	if pixstream.IsDecodeError(err, pixstream.ErrInvalidMagic, pixstream.ErrInvalidLayerMarker) {
//		log.Printf("not a progressive stream: %v", err)
//	}
package pixstream
