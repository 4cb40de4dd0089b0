package metadata

import (
	"fmt"

	"github.com/kestrel-render/vkcore/engine/core"
)

// TextureType classifies the dimensionality/array-ness of a texture, mirrored
// onto vk.ImageViewType by the persistent resource pool.
type TextureType uint32

const (
	TextureType2D TextureType = iota
	TextureType2DArray
	TextureTypeCube
	TextureTypeCubeArray
	TextureType3D
)

// StorageMode selects the memory-type mapping table in §4.2.
type StorageMode uint32

const (
	StorageModePrivate StorageMode = iota
	StorageModeShared
	StorageModeManaged
)

// CacheMode further refines StorageMode's memory-type choice.
type CacheMode uint32

const (
	CacheModeDefault CacheMode = iota
	CacheModeWriteCombined
)

// UsageHint is a bitmask of intended texture/buffer uses, consulted by both
// the persistent resource pool (to pick usage flags) and the image layout
// tracker (to classify accesses).
type UsageHint uint32

const (
	UsageHintShaderRead UsageHint = 1 << iota
	UsageHintShaderWrite
	UsageHintRenderTarget
	UsageHintBlitSource
	UsageHintBlitDestination
	UsageHintPixelFormatView
)

// TextureDescriptor is the immutable description of an Image's shape and
// intended use, per spec §3.
type TextureDescriptor struct {
	PixelFormat  PixelFormat
	Width        uint32
	Height       uint32
	Depth        uint32
	MipLevels    uint32
	ArrayLayers  uint32
	SampleCount  uint32
	TextureType  TextureType
	UsageHint    UsageHint
	StorageMode  StorageMode
	CacheMode    CacheMode
}

// Validate enforces the descriptor's invariants: sample_count in {1,2,4,8};
// depth textures (TextureType3D) must have a positive volume.
func (d TextureDescriptor) Validate() error {
	if d.PixelFormat == PixelFormatInvalid || d.PixelFormat.BytesPerPixel() == 0 {
		return fmt.Errorf("texture descriptor: pixel format %d: %w", d.PixelFormat, core.ErrUnsupportedPixelFormat)
	}
	if d.UsageHint&UsageHintRenderTarget != 0 && d.TextureType == TextureType3D {
		return fmt.Errorf("texture descriptor: 3d render targets: %w", core.ErrUnsupportedFeature)
	}
	switch d.SampleCount {
	case 1, 2, 4, 8:
	default:
		return fmt.Errorf("texture descriptor: sample_count %d not in {1,2,4,8}", d.SampleCount)
	}
	if d.TextureType == TextureType3D && d.Width*d.Height*d.Depth == 0 {
		return fmt.Errorf("texture descriptor: 3d texture requires width*height*depth > 0, got %dx%dx%d", d.Width, d.Height, d.Depth)
	}
	if d.MipLevels == 0 {
		return fmt.Errorf("texture descriptor: mip_levels must be >= 1")
	}
	if d.ArrayLayers == 0 {
		return fmt.Errorf("texture descriptor: array_layers must be >= 1")
	}
	return nil
}
