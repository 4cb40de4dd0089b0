package vulkan

import (
	vk "github.com/goki/vulkan"
	"github.com/kestrel-render/vkcore/engine/config"
	"github.com/kestrel-render/vkcore/engine/core"
)

const VULKAN_MAX_REGISTERED_RENDERPASSES uint32 = 31

// VulkanGeometryData is the internal buffer offset bookkeeping for one piece
// of uploaded geometry within the object vertex/index buffers.
type VulkanGeometryData struct {
	ID                 uint32
	Generation         uint32
	VertexCount        uint32
	VertexElementSize  uint32
	VertexBufferOffset uint64
	IndexCount         uint32
	IndexElementSize   uint32
	IndexBufferOffset  uint64
}

// VulkanContext is the single owner of every live Vulkan object this module
// manages: the instance/device/swapchain, the per-frame synchronization and
// command-buffer state, and the three caches (resources, shader reflection,
// pipelines) that back §4.2-§4.10.
type VulkanContext struct {
	Config *config.BackendConfig

	FrameDeltaTime float32

	FramebufferWidth               uint32
	FramebufferHeight               uint32
	FramebufferSizeGeneration       uint64
	FramebufferSizeLastGeneration   uint64

	Instance  vk.Instance
	Allocator *vk.AllocationCallbacks
	Surface   vk.Surface

	debugMessenger vk.DebugReportCallback

	Device    *VulkanDevice
	Swapchain *VulkanSwapchain

	// Resources is the persistent resource pool (§4.2): every allocated
	// image/buffer is addressed by a generational handle from here.
	Resources *ResourcePool

	// Shaders caches loaded SPIR-V modules and their reflection (§4.4).
	Shaders *ShaderModuleCache

	// Pipelines caches descriptor-set layouts, pipeline layouts, and
	// graphics/compute pipelines keyed by their fingerprints (§4.4/§4.10).
	Pipelines *PipelineCache

	// Transient is the per-frame arena/pool allocator (§4.3).
	Transient *TransientAllocator

	// MainRenderTargetGroup is the swapchain-backed render target group used
	// by BeginFrame/EndFrame for on-screen presentation.
	MainRenderTargetGroup *RenderTargetGroupState
	MainRenderPass        *VulkanRenderPass

	ObjectVertexBuffer *VulkanBuffer
	ObjectIndexBuffer  *VulkanBuffer

	GraphicsCommandBuffers []*VulkanCommandBuffer
	// ImageAvailableSemaphores (acquire) and QueueCompleteSemaphores
	// (present) are the binary semaphore pair §4.8 keeps around timeline
	// semaphores specifically for swapchain interop, since acquire/present
	// don't accept timeline semaphores.
	ImageAvailableSemaphores []vk.Semaphore
	QueueCompleteSemaphores  []vk.Semaphore

	// Timeline is the single VK_KHR_timeline_semaphore every cross-frame and
	// cross-queue dependency waits/signals on (§4.1/§4.8), replacing the
	// binary per-frame-slot fence ring.
	Timeline *TimelineSemaphore
	// FrameTimelineValues[slot] is the timeline value the submission that
	// last used frame-in-flight slot `slot` signals; BeginFrame waits on it
	// before reusing the slot. ImageTimelineValues[image] is the same thing
	// keyed by swapchain image index, since MaxFramesInFlight may be less
	// than the swapchain's image count.
	FrameTimelineValues []uint64
	ImageTimelineValues []uint64

	ImageIndex   uint32
	CurrentFrame uint32

	RecreatingSwapchain bool

	Geometries []*VulkanGeometryData

	MultithreadingEnabled bool
}

func (vc *VulkanContext) FindMemoryIndex(typeFilter, propertyFlags uint32) int32 {
	var memoryProperties vk.PhysicalDeviceMemoryProperties
	vk.GetPhysicalDeviceMemoryProperties(vc.Device.PhysicalDevice, &memoryProperties)
	memoryProperties.Deref()

	for i := uint32(0); i < memoryProperties.MemoryTypeCount; i++ {
		// Check each memory type to see if its bit is set to 1.
		memoryProperties.MemoryTypes[i].Deref()
		if (typeFilter&(1<<i)) != 0 && (uint32(memoryProperties.MemoryTypes[i].PropertyFlags)&propertyFlags) == propertyFlags {
			return int32(i)
		}
	}
	core.LogWarn("Unable to find suitable memory type!")
	return -1
}
