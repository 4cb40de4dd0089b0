package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/kestrel-render/vkcore/engine/core"
	"github.com/kestrel-render/vkcore/engine/renderer/metadata"
)

// ImageOwnership records which of the three mutually-exclusive owners
// allocated an image's backing memory, per spec §3: exactly one of
// allocator-owned, swapchain-owned, or externally-imported.
type ImageOwnership uint8

const (
	ImageOwnedByAllocator ImageOwnership = iota
	ImageOwnedBySwapchain
	ImageOwnedExternally
)

// VulkanImage is the backend Image object of §3: it owns a VkImage, a
// full-resource VkImageView, the TextureDescriptor it was created from, and
// the per-subresource layout timeline used by the layout tracker (§4.5).
type VulkanImage struct {
	Handle     vk.Image
	Memory     vk.DeviceMemory
	View       vk.ImageView
	Descriptor metadata.TextureDescriptor
	Ownership  ImageOwnership
	Layouts    *LayoutTracker

	Width  uint32
	Height uint32
}

// ImageCreate allocates a new image (and, if requested, its full-resource
// view) from a TextureDescriptor, per §4.2 allocate_image. Dimensions,
// mip/array/sample counts and sharing mode all come from the descriptor
// instead of being hardcoded, unlike the fixed-4-mip/1-layer image creation
// this was generalized from.
func ImageCreate(context *VulkanContext, desc metadata.TextureDescriptor, tiling vk.ImageTiling,
	memoryFlags vk.MemoryPropertyFlags, createView bool) (*VulkanImage, error) {
	if err := desc.Validate(); err != nil {
		return nil, err
	}

	format := desc.PixelFormat.ToVulkan()
	outImage := &VulkanImage{
		Width:      desc.Width,
		Height:     desc.Height,
		Descriptor: desc,
		Ownership:  ImageOwnedByAllocator,
	}

	imageType := vk.ImageType2d
	if desc.TextureType == metadata.TextureType3D {
		imageType = vk.ImageType3d
	}

	depth := desc.Depth
	if depth == 0 {
		depth = 1
	}

	sharingMode := vk.SharingModeExclusive
	var queueFamilyIndices []uint32
	if context.Device.GraphicsQueueIndex != context.Device.TransferQueueIndex {
		sharingMode = vk.SharingModeConcurrent
		queueFamilyIndices = []uint32{context.Device.GraphicsQueueIndex, context.Device.TransferQueueIndex}
	}

	imageCreateInfo := vk.ImageCreateInfo{
		SType:     vk.StructureTypeImageCreateInfo,
		ImageType: imageType,
		Extent: vk.Extent3D{
			Width:  desc.Width,
			Height: desc.Height,
			Depth:  depth,
		},
		MipLevels:             desc.MipLevels,
		ArrayLayers:           desc.ArrayLayers,
		Format:                format,
		Tiling:                tiling,
		InitialLayout:         vk.ImageLayoutUndefined,
		Usage:                 usageFlagsOf(desc),
		Samples:               sampleCountOf(desc.SampleCount),
		SharingMode:           sharingMode,
		QueueFamilyIndexCount: uint32(len(queueFamilyIndices)),
		PQueueFamilyIndices:   queueFamilyIndices,
	}

	if res := vk.CreateImage(context.Device.LogicalDevice, &imageCreateInfo, context.Allocator, &outImage.Handle); !VulkanResultIsSuccess(res) {
		return nil, fmt.Errorf("failed to create image: %s", VulkanResultString(res, true))
	}

	memoryRequirements := vk.MemoryRequirements{}
	vk.GetImageMemoryRequirements(context.Device.LogicalDevice, outImage.Handle, &memoryRequirements)
	memoryRequirements.Deref()

	memoryType := context.FindMemoryIndex(memoryRequirements.MemoryTypeBits, uint32(memoryFlags))
	if memoryType == -1 {
		return nil, fmt.Errorf("required memory type not found, image not valid")
	}

	memoryAllocateInfo := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  memoryRequirements.Size,
		MemoryTypeIndex: uint32(memoryType),
	}
	if res := vk.AllocateMemory(context.Device.LogicalDevice, &memoryAllocateInfo, context.Allocator, &outImage.Memory); !VulkanResultIsSuccess(res) {
		return nil, fmt.Errorf("failed to allocate memory for image: %s", VulkanResultString(res, true))
	}

	if res := vk.BindImageMemory(context.Device.LogicalDevice, outImage.Handle, outImage.Memory, 0); !VulkanResultIsSuccess(res) {
		return nil, fmt.Errorf("failed to bind image memory: %s", VulkanResultString(res, true))
	}

	outImage.Layouts = NewLayoutTracker(desc.MipLevels, desc.ArrayLayers, vk.ImageLayoutUndefined)

	if createView {
		if err := outImage.ImageViewCreate(context, format, desc.PixelFormat.AspectMask()); err != nil {
			return nil, err
		}
	}
	return outImage, nil
}

// ImportExternalImage wraps an image this module does not own the memory of
// (e.g. a swapchain image), per §4.2 import_external. No allocation or
// binding is performed; ImageDestroy on such an image only tears down the
// view.
func ImportExternalImage(handle vk.Image, desc metadata.TextureDescriptor, ownership ImageOwnership) *VulkanImage {
	return &VulkanImage{
		Handle:     handle,
		Descriptor: desc,
		Ownership:  ownership,
		Width:      desc.Width,
		Height:     desc.Height,
		Layouts:    NewLayoutTracker(desc.MipLevels, desc.ArrayLayers, vk.ImageLayoutUndefined),
	}
}

func usageFlagsOf(desc metadata.TextureDescriptor) vk.ImageUsageFlags {
	var flags vk.ImageUsageFlagBits
	if desc.UsageHint&metadata.UsageHintShaderRead != 0 {
		flags |= vk.ImageUsageSampledBit
	}
	if desc.UsageHint&metadata.UsageHintShaderWrite != 0 {
		flags |= vk.ImageUsageStorageBit
	}
	if desc.UsageHint&metadata.UsageHintRenderTarget != 0 {
		if desc.PixelFormat.IsDepth() || desc.PixelFormat.IsStencil() {
			flags |= vk.ImageUsageDepthStencilAttachmentBit
		} else {
			flags |= vk.ImageUsageColorAttachmentBit
		}
	}
	if desc.UsageHint&metadata.UsageHintBlitSource != 0 {
		flags |= vk.ImageUsageTransferSrcBit
	}
	if desc.UsageHint&metadata.UsageHintBlitDestination != 0 {
		flags |= vk.ImageUsageTransferDstBit
	}
	return vk.ImageUsageFlags(flags)
}

func sampleCountOf(n uint32) vk.SampleCountFlagBits {
	switch n {
	case 2:
		return vk.SampleCount2Bit
	case 4:
		return vk.SampleCount4Bit
	case 8:
		return vk.SampleCount8Bit
	default:
		return vk.SampleCount1Bit
	}
}

func (vi *VulkanImage) ImageViewCreate(context *VulkanContext, format vk.Format, aspectFlags vk.ImageAspectFlags) error {
	viewType := vk.ImageViewType2d
	switch vi.Descriptor.TextureType {
	case metadata.TextureType2DArray:
		viewType = vk.ImageViewType2dArray
	case metadata.TextureTypeCube:
		viewType = vk.ImageViewTypeCube
	case metadata.TextureTypeCubeArray:
		viewType = vk.ImageViewTypeCubeArray
	case metadata.TextureType3D:
		viewType = vk.ImageViewType3d
	}

	viewCreateInfo := vk.ImageViewCreateInfo{
		SType:    vk.StructureTypeImageViewCreateInfo,
		Image:    vi.Handle,
		ViewType: viewType,
		Format:   format,
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask:     aspectFlags,
			BaseMipLevel:   0,
			LevelCount:     vi.Descriptor.MipLevels,
			BaseArrayLayer: 0,
			LayerCount:     vi.Descriptor.ArrayLayers,
		},
	}

	if res := vk.CreateImageView(context.Device.LogicalDevice, &viewCreateInfo, context.Allocator, &vi.View); !VulkanResultIsSuccess(res) {
		err := fmt.Errorf("failed to create image view: %s", VulkanResultString(res, true))
		core.LogError(err.Error())
		return err
	}
	return nil
}

// ImageDestroy tears down the view always, and the memory/handle only when
// this image owns them (not imported/swapchain-owned), per §4.2.
func (vi *VulkanImage) ImageDestroy(context *VulkanContext) {
	if vi.View != nil {
		vk.DestroyImageView(context.Device.LogicalDevice, vi.View, context.Allocator)
		vi.View = nil
	}
	if vi.Ownership != ImageOwnedByAllocator {
		vi.Handle = nil
		return
	}
	if vi.Memory != nil {
		vk.FreeMemory(context.Device.LogicalDevice, vi.Memory, context.Allocator)
		vi.Memory = nil
	}
	if vi.Handle != nil {
		vk.DestroyImage(context.Device.LogicalDevice, vi.Handle, context.Allocator)
		vi.Handle = nil
	}
}
