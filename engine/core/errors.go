package core

import (
	"errors"
)

// Recoverable / device-error sentinels. Wrap with fmt.Errorf("...: %w", Err...)
// so callers can errors.Is against these.
var (
	ErrSwapchainBooting = errors.New("swapchain resized or recreated, booting")
	ErrUnknown          = errors.New("unknown")

	// Device errors (§7 "device errors" class): surfaced to the caller, never
	// silently retried.
	ErrDeviceLost          = errors.New("vulkan device lost")
	ErrTimelineWaitTimeout = errors.New("timeline semaphore wait timed out")

	// Recoverable class.
	ErrSwapchainOutOfDate = errors.New("swapchain out of date")
	ErrSwapchainSuboptimal = errors.New("swapchain suboptimal")

	// Validation class: returned by pre-checks, never panics.
	ErrUnsupportedPixelFormat = errors.New("pixel format unsupported for requested usage")
	ErrUnsupportedFeature     = errors.New("feature not supported by this backend")

	// Programming-invariant class: these indicate a caller bug. The core
	// returns them as wrapped errors, except that metadata.Cursor.Advance
	// stops the process through LogFatal when it finds
	// ErrResourceCommandCursorOutOfRange. Callers that want to crash hard on
	// the others should pair the returned error with LogFatal.
	ErrResourceCommandCursorOutOfRange = errors.New("resource command cursor out of range")
	ErrAttachmentMismatch               = errors.New("attachment mismatch at render target finalisation")
	ErrUnsupportedBlitKind               = errors.New("unsupported blit kind")
	ErrPushConstantSizeMismatch          = errors.New("push constant size mismatch")
	ErrHandleGenerationMismatch          = errors.New("stale handle: generation mismatch")
	ErrHandleOutOfRange                  = errors.New("handle index out of range")
)
