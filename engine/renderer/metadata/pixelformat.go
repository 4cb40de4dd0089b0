// Package metadata holds the backend-agnostic descriptor types consumed by
// the render-target planner, image layout tracker, and transient allocator:
// pixel formats, texture/buffer descriptors, pass records, resource usage,
// and the planner's own output types. It replaces the teacher's
// renderer/metadata package, which described a higher-level material/
// geometry/render-view system now out of scope.
package metadata

import vk "github.com/goki/vulkan"

// PixelFormat is the closed enum of formats the backend understands, mapped
// bijectively onto vk.Format. Classification predicates below let planner
// and encoder code make layout/usage decisions without a type switch on the
// raw Vulkan enum.
type PixelFormat uint32

const (
	PixelFormatInvalid PixelFormat = iota
	PixelFormatR8Unorm
	PixelFormatRG8Unorm
	PixelFormatRGBA8Unorm
	PixelFormatRGBA8UnormSRGB
	PixelFormatBGRA8Unorm
	PixelFormatBGRA8UnormSRGB
	PixelFormatRGBA16Float
	PixelFormatRGBA32Float
	PixelFormatR32Uint
	PixelFormatR32Sint
	PixelFormatD32Float
	PixelFormatD32FloatS8Uint
	PixelFormatD24UnormS8Uint
	PixelFormatS8Uint
)

// vkFormats is the bijective crosswalk. Every PixelFormat value above must
// appear exactly once; vkToPixelFormat is built from this at init time so
// the two directions can never drift apart.
var vkFormats = map[PixelFormat]vk.Format{
	PixelFormatR8Unorm:        vk.FormatR8Unorm,
	PixelFormatRG8Unorm:       vk.FormatR8g8Unorm,
	PixelFormatRGBA8Unorm:     vk.FormatR8g8b8a8Unorm,
	PixelFormatRGBA8UnormSRGB: vk.FormatR8g8b8a8Srgb,
	PixelFormatBGRA8Unorm:     vk.FormatB8g8r8a8Unorm,
	PixelFormatBGRA8UnormSRGB: vk.FormatB8g8r8a8Srgb,
	PixelFormatRGBA16Float:    vk.FormatR16g16b16a16Sfloat,
	PixelFormatRGBA32Float:    vk.FormatR32g32b32a32Sfloat,
	PixelFormatR32Uint:        vk.FormatR32Uint,
	PixelFormatR32Sint:        vk.FormatR32Sint,
	PixelFormatD32Float:       vk.FormatD32Sfloat,
	PixelFormatD32FloatS8Uint: vk.FormatD32SfloatS8Uint,
	PixelFormatD24UnormS8Uint: vk.FormatD24UnormS8Uint,
	PixelFormatS8Uint:         vk.FormatS8Uint,
}

var vkToPixelFormat = func() map[vk.Format]PixelFormat {
	m := make(map[vk.Format]PixelFormat, len(vkFormats))
	for pf, vf := range vkFormats {
		m[vf] = pf
	}
	return m
}()

// ToVulkan returns the vk.Format this PixelFormat maps to.
func (f PixelFormat) ToVulkan() vk.Format {
	return vkFormats[f]
}

// PixelFormatFromVulkan is the inverse of ToVulkan; returns PixelFormatInvalid
// for formats outside the closed set above (e.g. swapchain surface formats
// not yet classified).
func PixelFormatFromVulkan(vf vk.Format) PixelFormat {
	if pf, ok := vkToPixelFormat[vf]; ok {
		return pf
	}
	return PixelFormatInvalid
}

func (f PixelFormat) IsDepth() bool {
	switch f {
	case PixelFormatD32Float, PixelFormatD32FloatS8Uint, PixelFormatD24UnormS8Uint:
		return true
	}
	return false
}

func (f PixelFormat) IsStencil() bool {
	switch f {
	case PixelFormatD32FloatS8Uint, PixelFormatD24UnormS8Uint, PixelFormatS8Uint:
		return true
	}
	return false
}

func (f PixelFormat) IsUnnormalizedInt() bool {
	switch f {
	case PixelFormatR32Uint, PixelFormatR32Sint:
		return true
	}
	return false
}

// BytesPerPixel returns the per-texel size in bytes for colour/depth/stencil
// formats. Packed depth-stencil formats report the full packed size.
func (f PixelFormat) BytesPerPixel() uint32 {
	switch f {
	case PixelFormatR8Unorm, PixelFormatS8Uint:
		return 1
	case PixelFormatRG8Unorm:
		return 2
	case PixelFormatRGBA8Unorm, PixelFormatRGBA8UnormSRGB, PixelFormatBGRA8Unorm, PixelFormatBGRA8UnormSRGB,
		PixelFormatR32Uint, PixelFormatR32Sint, PixelFormatD32Float, PixelFormatD32FloatS8Uint, PixelFormatD24UnormS8Uint:
		return 4
	case PixelFormatRGBA16Float:
		return 8
	case PixelFormatRGBA32Float:
		return 16
	}
	return 0
}

// AspectMask returns the vk.ImageAspectFlags implied by this format's
// classification, used when clearing attachments and generating blit regions
// (§4.7 "generated once per aspect that both source and destination
// possess").
func (f PixelFormat) AspectMask() vk.ImageAspectFlags {
	var mask vk.ImageAspectFlags
	switch {
	case f.IsDepth() && f.IsStencil():
		mask = vk.ImageAspectFlags(vk.ImageAspectDepthBit) | vk.ImageAspectFlags(vk.ImageAspectStencilBit)
	case f.IsDepth():
		mask = vk.ImageAspectFlags(vk.ImageAspectDepthBit)
	case f.IsStencil():
		mask = vk.ImageAspectFlags(vk.ImageAspectStencilBit)
	default:
		mask = vk.ImageAspectFlags(vk.ImageAspectColorBit)
	}
	return mask
}
