package vulkan

import (
	"fmt"
	"math"

	vk "github.com/goki/vulkan"
	"github.com/kestrel-render/vkcore/engine/core"
	"github.com/kestrel-render/vkcore/engine/renderer/metadata"
)

type VulkanSwapchain struct {
	ImageFormat       vk.SurfaceFormat
	MaxFramesInFlight uint8
	Handle            vk.Swapchain
	ImageCount        uint32
	Images            []vk.Image
	Views             []vk.ImageView

	DepthAttachment *VulkanImage

	// framebuffers used for on-screen rendering.
	Framebuffers []*VulkanFramebuffer
}

type VulkanSwapchainSupportInfo struct {
	Capabilities     vk.SurfaceCapabilities
	FormatCount      uint32
	Formats          []vk.SurfaceFormat
	PresentModeCount uint32
	PresentModes     []vk.PresentMode
}

func SwapchainCreate(context *VulkanContext, width uint32, height uint32) (*VulkanSwapchain, error) {
	// Simply create a new one.
	return createSwapchain(context, width, height)
}

func (vs *VulkanSwapchain) SwapchainRecreate(context *VulkanContext, width uint32, height uint32) (*VulkanSwapchain, error) {
	// Destroy the old and create a new one.
	vs.destroySwapchain(context)
	return createSwapchain(context, width, height)
}

func (vs *VulkanSwapchain) SwapchainDestroy(context *VulkanContext) {
	vs.destroySwapchain(context)
}

func (vs *VulkanSwapchain) SwapchainAcquireNextImageIndex(context *VulkanContext, timeoutNS uint64, imageAvailableSemaphore vk.Semaphore, fence vk.Fence) (uint32, error) {
	var outImageIndex uint32
	result := vk.AcquireNextImage(context.Device.LogicalDevice, vs.Handle, timeoutNS, imageAvailableSemaphore, fence, &outImageIndex)

	switch result {
	case vk.Success:
		return outImageIndex, nil
	case vk.Suboptimal:
		return outImageIndex, fmt.Errorf("swapchain image acquired: %w", core.ErrSwapchainSuboptimal)
	case vk.ErrorOutOfDate:
		// Trigger swapchain recreation, then boot out of the render loop.
		vs.SwapchainRecreate(context, context.FramebufferWidth, context.FramebufferHeight)
		return 0, fmt.Errorf("swapchain image acquire: %w", core.ErrSwapchainOutOfDate)
	case vk.ErrorDeviceLost:
		return 0, fmt.Errorf("swapchain image acquire: %w", core.ErrDeviceLost)
	default:
		err := fmt.Errorf("failed to acquire swapchain image: %s: %w", VulkanResultString(result, true), core.ErrUnknown)
		core.LogFatal(err.Error())
		return 0, err
	}
}

func (vs *VulkanSwapchain) SwapchainPresent(context *VulkanContext, graphicsQueue vk.Queue, presentQueue vk.Queue, renderCompleteSemaphore vk.Semaphore, presentImageIndex uint32) error {
	// Return the image to the swapchain for presentation.
	presentInfo := vk.PresentInfo{
		SType:              vk.StructureTypePresentInfo,
		WaitSemaphoreCount: 1,
		PWaitSemaphores:    []vk.Semaphore{renderCompleteSemaphore},
		SwapchainCount:     1,
		PSwapchains:        []vk.Swapchain{vs.Handle},
		PImageIndices:      []uint32{presentImageIndex},
		PResults:           nil,
	}

	result := vk.QueuePresent(presentQueue, &presentInfo)

	// Increment (and loop) the index regardless of the present result; the
	// caller still owns a frame slot either way.
	context.CurrentFrame = (context.CurrentFrame + 1) % uint32(vs.MaxFramesInFlight)

	switch result {
	case vk.Success:
		return nil
	case vk.ErrorOutOfDate, vk.Suboptimal:
		// Swapchain is out of date, suboptimal or a framebuffer resize has occurred. Trigger swapchain recreation.
		vs.SwapchainRecreate(context, context.FramebufferWidth, context.FramebufferHeight)
		return fmt.Errorf("swapchain present: %w", core.ErrSwapchainOutOfDate)
	case vk.ErrorDeviceLost:
		return fmt.Errorf("swapchain present: %w", core.ErrDeviceLost)
	default:
		err := fmt.Errorf("failed to present swap chain image: %s: %w", VulkanResultString(result, true), core.ErrUnknown)
		core.LogFatal(err.Error())
		return err
	}
}

func createSwapchain(context *VulkanContext, width, height uint32) (*VulkanSwapchain, error) {
	swapchain := &VulkanSwapchain{}

	swapchainExtent := vk.Extent2D{
		Width:  width,
		Height: height,
	}
	maxFramesInFlight := uint32(2)
	preferredPresentMode := ""
	if context.Config != nil {
		if context.Config.Vulkan.MaxFramesInFlight > 0 {
			maxFramesInFlight = context.Config.Vulkan.MaxFramesInFlight
		}
		preferredPresentMode = context.Config.Vulkan.PreferredPresentMode
	}
	swapchain.MaxFramesInFlight = uint8(maxFramesInFlight)

	// Choose a swap surface format: SRGB preferred over UNORM (§4.9).
	preferredFormats := []vk.Format{vk.FormatB8g8r8a8Srgb, vk.FormatB8g8r8a8Unorm}
	found := false
	for _, preferred := range preferredFormats {
		for i := 0; i < int(context.Device.SwapchainSupport.FormatCount); i++ {
			format := context.Device.SwapchainSupport.Formats[i]
			if format.Format == preferred && format.ColorSpace == vk.ColorSpaceSrgbNonlinear {
				swapchain.ImageFormat = format
				found = true
				break
			}
		}
		if found {
			break
		}
	}

	if !found {
		swapchain.ImageFormat = context.Device.SwapchainSupport.Formats[0]
	}

	// Present-mode preference order is MAILBOX > IMMEDIATE > FIFO (§4.9),
	// unless the config overrides it.
	presentModeOrder := []vk.PresentMode{vk.PresentModeMailbox, vk.PresentModeImmediate}
	switch preferredPresentMode {
	case "immediate":
		presentModeOrder = []vk.PresentMode{vk.PresentModeImmediate}
	case "fifo":
		presentModeOrder = nil
	case "mailbox":
		presentModeOrder = []vk.PresentMode{vk.PresentModeMailbox}
	}

	presentMode := vk.PresentModeFifo
outer:
	for _, want := range presentModeOrder {
		for i := 0; i < int(context.Device.SwapchainSupport.PresentModeCount); i++ {
			mode := context.Device.SwapchainSupport.PresentModes[i]
			if mode == want {
				presentMode = mode
				break outer
			}
		}
	}

	// Swapchain extent
	if context.Device.SwapchainSupport.Capabilities.CurrentExtent.Width != math.MaxUint32 {
		swapchainExtent = context.Device.SwapchainSupport.Capabilities.CurrentExtent
	}

	// Clamp to the value allowed by the GPU.
	min := context.Device.SwapchainSupport.Capabilities.MinImageExtent
	max := context.Device.SwapchainSupport.Capabilities.MaxImageExtent
	swapchainExtent.Width = MathClamp(swapchainExtent.Width, min.Width, max.Width)
	swapchainExtent.Height = MathClamp(swapchainExtent.Height, min.Height, max.Height)

	imageCount := context.Device.SwapchainSupport.Capabilities.MinImageCount + 1
	if imageCount < 3 {
		imageCount = 3
	}
	if context.Device.SwapchainSupport.Capabilities.MaxImageCount > 0 && imageCount > context.Device.SwapchainSupport.Capabilities.MaxImageCount {
		imageCount = context.Device.SwapchainSupport.Capabilities.MaxImageCount
	}

	// Swapchain create info
	swapchainCreateInfo := vk.SwapchainCreateInfo{
		SType:            vk.StructureTypeSwapchainCreateInfo,
		Surface:          context.Surface,
		MinImageCount:    imageCount,
		ImageFormat:      swapchain.ImageFormat.Format,
		ImageColorSpace:  swapchain.ImageFormat.ColorSpace,
		ImageExtent:      swapchainExtent,
		ImageArrayLayers: 1,
		ImageUsage:       vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit),
	}

	// Setup the queue family indices
	if context.Device.GraphicsQueueIndex != context.Device.PresentQueueIndex {
		queueFamilyIndices := []uint32{
			uint32(context.Device.GraphicsQueueIndex),
			uint32(context.Device.PresentQueueIndex),
		}
		swapchainCreateInfo.ImageSharingMode = vk.SharingModeConcurrent
		swapchainCreateInfo.QueueFamilyIndexCount = 2
		swapchainCreateInfo.PQueueFamilyIndices = queueFamilyIndices
	} else {
		swapchainCreateInfo.ImageSharingMode = vk.SharingModeExclusive
		swapchainCreateInfo.QueueFamilyIndexCount = 0
		swapchainCreateInfo.PQueueFamilyIndices = nil
	}

	swapchainCreateInfo.PreTransform = context.Device.SwapchainSupport.Capabilities.CurrentTransform
	swapchainCreateInfo.CompositeAlpha = vk.CompositeAlphaOpaqueBit
	swapchainCreateInfo.PresentMode = presentMode
	swapchainCreateInfo.Clipped = vk.True
	swapchainCreateInfo.OldSwapchain = nil

	var swapchainHandle vk.Swapchain
	if res := vk.CreateSwapchain(context.Device.LogicalDevice, &swapchainCreateInfo, context.Allocator, &swapchainHandle); res != vk.Success {
		err := fmt.Errorf("failed to create swapchain")
		core.LogError(err.Error())
		return nil, err
	}
	swapchain.Handle = swapchainHandle

	// Start with a zero frame index.
	context.CurrentFrame = 0

	// Images
	swapchain.ImageCount = 0
	if res := vk.GetSwapchainImages(context.Device.LogicalDevice, swapchain.Handle, &swapchain.ImageCount, nil); res != vk.Success {
		err := fmt.Errorf("failed to get swapchain images")
		core.LogError(err.Error())
		return nil, err
	}
	if len(swapchain.Images) == 0 {
		// swapchain.images = (VkImage*)kallocate(sizeof(VkImage) * swapchain.image_count, MEMORY_TAG_RENDERER);
		swapchain.Images = make([]vk.Image, swapchain.ImageCount)
	}
	if len(swapchain.Views) == 0 {
		// swapchain.views = (VkImageView*)kallocate(sizeof(VkImageView) * swapchain.image_count, MEMORY_TAG_RENDERER);
		swapchain.Views = make([]vk.ImageView, swapchain.ImageCount)
	}
	if res := vk.GetSwapchainImages(context.Device.LogicalDevice, swapchain.Handle, &swapchain.ImageCount, swapchain.Images); res != vk.Success {
		err := fmt.Errorf("failed to get swapchain images")
		core.LogError(err.Error())
		return nil, err
	}

	// Views
	for i := 0; i < int(swapchain.ImageCount); i++ {
		viewInfo := vk.ImageViewCreateInfo{
			SType:    vk.StructureTypeImageViewCreateInfo,
			Image:    swapchain.Images[i],
			ViewType: vk.ImageViewType2d,
			Format:   swapchain.ImageFormat.Format,
			SubresourceRange: vk.ImageSubresourceRange{
				AspectMask:     vk.ImageAspectFlags(vk.ImageAspectColorBit),
				BaseMipLevel:   0,
				LevelCount:     1,
				BaseArrayLayer: 0,
				LayerCount:     1,
			},
		}

		if res := vk.CreateImageView(context.Device.LogicalDevice, &viewInfo, context.Allocator, &swapchain.Views[i]); res != vk.Success {
			err := fmt.Errorf("failed to create image view")
			core.LogError(err.Error())
			return nil, err
		}
	}

	// Depth resources
	if err := DeviceDetectDepthFormat(context.Device); err != nil {
		core.LogFatal("Failed to find a supported depth format: %s", err.Error())
		return nil, err
	}

	// Create depth image and its view.
	depthDescriptor := metadata.TextureDescriptor{
		PixelFormat: metadata.PixelFormatFromVulkan(context.Device.DepthFormat),
		Width:       swapchainExtent.Width,
		Height:      swapchainExtent.Height,
		Depth:       1,
		MipLevels:   1,
		ArrayLayers: 1,
		SampleCount: 1,
		TextureType: metadata.TextureType2D,
		UsageHint:   metadata.UsageHintRenderTarget,
		StorageMode: metadata.StorageModePrivate,
	}
	depthAttachment, err := ImageCreate(context, depthDescriptor, vk.ImageTilingOptimal,
		vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit), true)
	if err != nil {
		return nil, err
	}

	swapchain.DepthAttachment = depthAttachment

	core.LogInfo("Swapchain created successfully.")

	return swapchain, nil
}

func (vs *VulkanSwapchain) destroySwapchain(context *VulkanContext) {
	vk.DeviceWaitIdle(context.Device.LogicalDevice)
	vs.DepthAttachment.ImageDestroy(context)

	// Only destroy the views, not the images, since those are owned by the swapchain and are thus
	// destroyed when it is.
	for i := 0; i < int(vs.ImageCount); i++ {
		vk.DestroyImageView(context.Device.LogicalDevice, vs.Views[i], context.Allocator)
	}

	vk.DestroySwapchain(context.Device.LogicalDevice, vs.Handle, context.Allocator)
}
