package vulkan

import (
	vk "github.com/goki/vulkan"
	"github.com/kestrel-render/vkcore/engine/renderer/metadata"
)

// CommandEncoder drives the resolved vk.CommandBuffer through one pass's
// draw/dispatch calls interleaved with the resource commands the barrier
// planner emitted for it, per §4.7. It walks a metadata.Cursor so "before"
// commands for a given command index are always flushed ahead of the draw
// that index names, and "after" commands immediately behind it.
type CommandEncoder struct {
	context       *VulkanContext
	commandBuffer *VulkanCommandBuffer
	cursor        *metadata.Cursor
	index         uint64
}

// NewCommandEncoder builds an encoder over an already-sorted resource-command
// stream for one render target group (or one standalone pass).
func NewCommandEncoder(context *VulkanContext, commandBuffer *VulkanCommandBuffer, cmds []metadata.ResourceCommand) *CommandEncoder {
	return &CommandEncoder{
		context:       context,
		commandBuffer: commandBuffer,
		cursor:        metadata.NewCursor(cmds),
	}
}

// Before flushes every resource command due at the current command index's
// "before" phase; the index is left unchanged so the matching After sees the
// same command. Call once per draw/dispatch, ahead of recording it.
func (e *CommandEncoder) Before() {
	cmds := e.cursor.Advance(e.index, metadata.PhaseBefore)
	e.flush(cmds)
}

// After flushes every resource command due at the current command index's
// "after" phase, then advances the index past it. Call once per
// draw/dispatch, immediately after recording it.
func (e *CommandEncoder) After() {
	cmds := e.cursor.Advance(e.index, metadata.PhaseAfter)
	e.flush(cmds)
	e.index++
}

// Done reports whether every resource command in the stream has been
// encoded — a stream with entries past the final recorded command index
// indicates a planner/encoder bug, not a valid empty tail.
func (e *CommandEncoder) Done() bool {
	return e.cursor.Done()
}

func (e *CommandEncoder) flush(cmds []metadata.ResourceCommand) {
	for _, cmd := range cmds {
		switch cmd.Kind {
		case metadata.ResourceCommandPipelineBarrier:
			e.emitPipelineBarrier(cmd)
		case metadata.ResourceCommandSignalEvent, metadata.ResourceCommandWaitEvents:
			// Event-based synchronization is not exercised by the single
			// on-screen render target group this backend currently drives;
			// the planner never emits these kinds for it. Left unhandled
			// here rather than silently emitting a wrong barrier.
		}
	}
}

func subresourceRangeToVK(r metadata.SubresourceRange, aspect vk.ImageAspectFlags) vk.ImageSubresourceRange {
	return vk.ImageSubresourceRange{
		AspectMask:     aspect,
		BaseMipLevel:   r.BaseMip,
		LevelCount:     r.MipCount,
		BaseArrayLayer: r.BaseSlice,
		LayerCount:     r.SliceCount,
	}
}

func (e *CommandEncoder) emitPipelineBarrier(cmd metadata.ResourceCommand) {
	memoryBarriers := make([]vk.MemoryBarrier, 0, len(cmd.MemoryBarriers))
	for _, b := range cmd.MemoryBarriers {
		memoryBarriers = append(memoryBarriers, vk.MemoryBarrier{
			SType:         vk.StructureTypeMemoryBarrier,
			SrcAccessMask: b.SrcAccessMask,
			DstAccessMask: b.DstAccessMask,
		})
	}

	bufferBarriers := make([]vk.BufferMemoryBarrier, 0, len(cmd.BufferBarriers))
	for _, b := range cmd.BufferBarriers {
		buffer, ok := b.Buffer.(*VulkanBuffer)
		if !ok || buffer == nil {
			continue
		}
		bufferBarriers = append(bufferBarriers, vk.BufferMemoryBarrier{
			SType:               vk.StructureTypeBufferMemoryBarrier,
			SrcAccessMask:       b.SrcAccessMask,
			DstAccessMask:       b.DstAccessMask,
			SrcQueueFamilyIndex: vk.QueueFamilyIgnored,
			DstQueueFamilyIndex: vk.QueueFamilyIgnored,
			Buffer:              buffer.Handle,
			Offset:              vk.DeviceSize(b.Offset),
			Size:                vk.DeviceSize(b.Size),
		})
	}

	imageBarriers := make([]vk.ImageMemoryBarrier, 0, len(cmd.ImageBarriers))
	for _, b := range cmd.ImageBarriers {
		image, ok := b.Image.(*VulkanImage)
		if !ok || image == nil {
			continue
		}
		imageBarriers = append(imageBarriers, vk.ImageMemoryBarrier{
			SType:               vk.StructureTypeImageMemoryBarrier,
			SrcAccessMask:       b.SrcAccessMask,
			DstAccessMask:       b.DstAccessMask,
			OldLayout:           b.OldLayout,
			NewLayout:           b.NewLayout,
			SrcQueueFamilyIndex: vk.QueueFamilyIgnored,
			DstQueueFamilyIndex: vk.QueueFamilyIgnored,
			Image:               image.Handle,
			SubresourceRange:    subresourceRangeToVK(b.SubresourceRange, image.Descriptor.PixelFormat.AspectMask()),
		})

		if image.Layouts != nil {
			trackerRange := SubresourceRangeVK{
				BaseMip:    b.SubresourceRange.BaseMip,
				MipCount:   b.SubresourceRange.MipCount,
				BaseLayer:  b.SubresourceRange.BaseSlice,
				LayerCount: b.SubresourceRange.SliceCount,
			}
			image.Layouts.RecordTransition(trackerRange, cmd.CommandIndex, b.NewLayout)
		}
	}

	if len(memoryBarriers)+len(bufferBarriers)+len(imageBarriers) == 0 {
		return
	}

	vk.CmdPipelineBarrier(
		e.commandBuffer.Handle,
		cmd.SrcStageMask,
		cmd.DstStageMask,
		vk.DependencyFlags(0),
		uint32(len(memoryBarriers)), memoryBarriers,
		uint32(len(bufferBarriers)), bufferBarriers,
		uint32(len(imageBarriers)), imageBarriers,
	)
}
