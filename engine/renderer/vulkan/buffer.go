package vulkan

import (
	"fmt"
	"unsafe"

	vk "github.com/goki/vulkan"
	"github.com/kestrel-render/vkcore/engine/renderer/metadata"
)

// VulkanBuffer is the backend buffer object: a VkBuffer plus the memory it
// owns, per §3/§4.2 allocate_buffer.
type VulkanBuffer struct {
	Handle              vk.Buffer
	Descriptor          metadata.BufferDescriptor
	IsLocked            bool
	Memory              vk.DeviceMemory
	MemoryRequirements  vk.MemoryRequirements
	MemoryIndex         int32
	MemoryPropertyFlags uint32
}

func vulkanUsageFlagsOf(desc metadata.BufferDescriptor) vk.BufferUsageFlags {
	var flags vk.BufferUsageFlagBits
	if desc.UsageHint&metadata.UsageHintShaderRead != 0 {
		flags |= vk.BufferUsageUniformBufferBit | vk.BufferUsageVertexBufferBit | vk.BufferUsageIndexBufferBit
	}
	if desc.UsageHint&metadata.UsageHintShaderWrite != 0 {
		flags |= vk.BufferUsageStorageBufferBit
	}
	if desc.UsageHint&metadata.UsageHintBlitSource != 0 {
		flags |= vk.BufferUsageTransferSrcBit
	}
	if desc.UsageHint&metadata.UsageHintBlitDestination != 0 {
		flags |= vk.BufferUsageTransferDstBit
	}
	return vk.BufferUsageFlags(flags)
}

func memoryPropertyFlagsOf(desc metadata.BufferDescriptor) vk.MemoryPropertyFlagBits {
	switch desc.StorageMode {
	case metadata.StorageModeShared:
		if desc.CacheMode == metadata.CacheModeWriteCombined {
			return vk.MemoryPropertyHostVisibleBit | vk.MemoryPropertyHostCoherentBit
		}
		return vk.MemoryPropertyHostVisibleBit | vk.MemoryPropertyHostCoherentBit | vk.MemoryPropertyHostCachedBit
	case metadata.StorageModeManaged:
		if desc.CacheMode == metadata.CacheModeWriteCombined {
			return vk.MemoryPropertyHostVisibleBit
		}
		return vk.MemoryPropertyDeviceLocalBit | vk.MemoryPropertyHostVisibleBit | vk.MemoryPropertyHostCoherentBit
	default: // StorageModePrivate
		return vk.MemoryPropertyDeviceLocalBit
	}
}

// BufferCreate allocates a buffer and its backing memory from a
// BufferDescriptor, per §4.2. The memory-type mapping table from
// (storage_mode, cache_mode) lives in memoryPropertyFlagsOf above.
func BufferCreate(context *VulkanContext, desc metadata.BufferDescriptor) (*VulkanBuffer, error) {
	out := &VulkanBuffer{
		Descriptor:          desc,
		MemoryIndex:         -1,
		MemoryPropertyFlags: uint32(memoryPropertyFlagsOf(desc)),
	}

	createInfo := vk.BufferCreateInfo{
		SType:       vk.StructureTypeBufferCreateInfo,
		Size:        vk.DeviceSize(desc.Length),
		Usage:       vulkanUsageFlagsOf(desc),
		SharingMode: vk.SharingModeExclusive,
	}

	if res := vk.CreateBuffer(context.Device.LogicalDevice, &createInfo, context.Allocator, &out.Handle); !VulkanResultIsSuccess(res) {
		return nil, fmt.Errorf("failed to create buffer: %s", VulkanResultString(res, true))
	}

	vk.GetBufferMemoryRequirements(context.Device.LogicalDevice, out.Handle, &out.MemoryRequirements)
	out.MemoryRequirements.Deref()

	memoryType := context.FindMemoryIndex(out.MemoryRequirements.MemoryTypeBits, out.MemoryPropertyFlags)
	if memoryType == -1 {
		return nil, fmt.Errorf("required memory type not found, buffer not valid")
	}
	out.MemoryIndex = memoryType

	allocateInfo := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  out.MemoryRequirements.Size,
		MemoryTypeIndex: uint32(memoryType),
	}
	if res := vk.AllocateMemory(context.Device.LogicalDevice, &allocateInfo, context.Allocator, &out.Memory); !VulkanResultIsSuccess(res) {
		return nil, fmt.Errorf("failed to allocate buffer memory: %s", VulkanResultString(res, true))
	}

	if res := vk.BindBufferMemory(context.Device.LogicalDevice, out.Handle, out.Memory, 0); !VulkanResultIsSuccess(res) {
		return nil, fmt.Errorf("failed to bind buffer memory: %s", VulkanResultString(res, true))
	}
	return out, nil
}

func BufferDestroy(context *VulkanContext, b *VulkanBuffer) {
	if b.Memory != nil {
		vk.FreeMemory(context.Device.LogicalDevice, b.Memory, context.Allocator)
		b.Memory = nil
	}
	if b.Handle != nil {
		vk.DestroyBuffer(context.Device.LogicalDevice, b.Handle, context.Allocator)
		b.Handle = nil
	}
}

// LockMemory maps the requested range for CPU access. Only buffers created
// with a host-visible storage mode (Shared/Managed) can be locked.
func (b *VulkanBuffer) LockMemory(context *VulkanContext, r metadata.MemoryRange, flags vk.MemoryMapFlags) (unsafe.Pointer, error) {
	if b.Descriptor.StorageMode == metadata.StorageModePrivate {
		return nil, fmt.Errorf("cannot lock a device-local buffer for CPU access")
	}
	var data unsafe.Pointer
	if res := vk.MapMemory(context.Device.LogicalDevice, b.Memory, vk.DeviceSize(r.Offset), vk.DeviceSize(r.Size), flags, &data); !VulkanResultIsSuccess(res) {
		return nil, fmt.Errorf("failed to map buffer memory: %s", VulkanResultString(res, true))
	}
	b.IsLocked = true
	return data, nil
}

func (b *VulkanBuffer) UnlockMemory(context *VulkanContext) {
	if !b.IsLocked {
		return
	}
	vk.UnmapMemory(context.Device.LogicalDevice, b.Memory)
	b.IsLocked = false
}

// CopyTo records a GPU-side buffer-to-buffer copy on a single-use command
// buffer, per §4.2's staging-upload path for private-storage buffers.
func (b *VulkanBuffer) CopyTo(context *VulkanContext, pool vk.CommandPool, queue vk.Queue, srcOffset uint64, dst *VulkanBuffer, dstOffset, size uint64) error {
	cb, err := AllocateAndBeginSingleUse(context, pool)
	if err != nil {
		return err
	}
	copyRegion := vk.BufferCopy{
		SrcOffset: vk.DeviceSize(srcOffset),
		DstOffset: vk.DeviceSize(dstOffset),
		Size:      vk.DeviceSize(size),
	}
	vk.CmdCopyBuffer(cb.Handle, b.Handle, dst.Handle, 1, []vk.BufferCopy{copyRegion})
	return cb.EndSingleUse(context, pool, queue)
}
