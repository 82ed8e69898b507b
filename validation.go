// SPDX-License-Identifier: MIT
// SPDX-FileCopyrightText: Ryan Johnson

package pixstream

import (
	"fmt"
	"math"
	"time"
)

// MaxRenderDimension bounds the render target on each axis.
const MaxRenderDimension = 1 << 15

// MaxLayerPixels bounds the pixel count of a decoded progressive layer. The
// parser holds at most two layers of 4 bytes per pixel.
const MaxLayerPixels = 1 << 28

// InputValidator validates stream headers and caller-supplied configuration.
type InputValidator struct{}

func newInputValidator() *InputValidator {
	return &InputValidator{}
}

// ValidateImageDimensions rejects headers that would make the render scale undefined.
func (iv *InputValidator) ValidateImageDimensions(width, height uint16) error {
	if width == 0 || height == 0 {
		return degenerateDimensionsError("InputValidator.ValidateImageDimensions",
			fmt.Sprintf("image dimensions cannot be zero: %dx%d", width, height))
	}
	return nil
}

// ValidateLayerSize rejects progressive images whose full-resolution layer
// would need more than MaxLayerPixels pixels of buffer.
func (iv *InputValidator) ValidateLayerSize(width, height uint16) error {
	if pixels := int(width) * int(height); pixels > MaxLayerPixels {
		return imageTooLargeError("InputValidator.ValidateLayerSize",
			fmt.Sprintf("image %dx%d has %d pixels (max %d)", width, height, pixels, MaxLayerPixels))
	}
	return nil
}

// ValidateRenderTarget validates the caller-supplied render size.
func (iv *InputValidator) ValidateRenderTarget(width, height int) error {
	if width <= 0 || height <= 0 {
		return validationError("InputValidator.ValidateRenderTarget",
			fmt.Sprintf("render target must be positive, got %dx%d", width, height), nil)
	}
	if width > MaxRenderDimension || height > MaxRenderDimension {
		return validationError("InputValidator.ValidateRenderTarget",
			fmt.Sprintf("render target too large: %dx%d (max %d)",
				width, height, MaxRenderDimension), nil)
	}
	return nil
}

// ValidateBandwidth validates a throttle rate in KiB/s.
func (iv *InputValidator) ValidateBandwidth(rate float64) error {
	if math.IsNaN(rate) || math.IsInf(rate, 0) {
		return validationError("InputValidator.ValidateBandwidth",
			"bandwidth must be a finite number", nil)
	}
	if rate <= 0 {
		return validationError("InputValidator.ValidateBandwidth",
			fmt.Sprintf("bandwidth must be positive, got %g KiB/s", rate), nil)
	}
	return nil
}

// ValidateInterval validates the throttle pause interval.
func (iv *InputValidator) ValidateInterval(interval time.Duration) error {
	if interval <= 0 {
		return validationError("InputValidator.ValidateInterval",
			fmt.Sprintf("pause interval must be positive, got %v", interval), nil)
	}
	return nil
}

// ValidateChunkSize validates the read size of reader-backed sources.
func (iv *InputValidator) ValidateChunkSize(size int) error {
	if size <= 0 {
		return validationError("InputValidator.ValidateChunkSize",
			fmt.Sprintf("chunk size must be positive, got %d", size), nil)
	}
	return nil
}
