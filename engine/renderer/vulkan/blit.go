package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/kestrel-render/vkcore/engine/core"
	"github.com/kestrel-render/vkcore/engine/renderer/metadata"
)

// BlitEncoder records the copy/fill/blit commands of a PassKindBlit pass
// (§4.7). Unlike CommandEncoder's pipeline barriers, blit commands assume
// their source/destination images have already been transitioned into
// VK_IMAGE_LAYOUT_TRANSFER_{SRC,DST}_OPTIMAL by the surrounding
// ResourceCommand stream; this encoder only issues the transfer itself.
type BlitEncoder struct {
	commandBuffer *VulkanCommandBuffer
}

func NewBlitEncoder(commandBuffer *VulkanCommandBuffer) *BlitEncoder {
	return &BlitEncoder{commandBuffer: commandBuffer}
}

// Emit records one blit-pass command, per BlitCommandKind. Returns
// core.ErrUnsupportedBlitKind if the payload does not resolve to the
// concrete buffer/image types this backend creates, or the kind carries an
// unrecognised payload shape.
func (e *BlitEncoder) Emit(cmd metadata.BlitCommand) error {
	switch cmd.Kind {
	case metadata.BlitCmdBufferToBuffer:
		return e.emitBufferToBuffer(cmd.Payload)
	case metadata.BlitCmdBufferToImage:
		return e.emitBufferToImage(cmd.Payload)
	case metadata.BlitCmdImageToImage:
		return e.emitImageToImage(cmd.Payload)
	case metadata.BlitCmdFill:
		return e.emitFill(cmd.Payload)
	case metadata.BlitCmdBlit:
		return e.emitBlit(cmd.Payload)
	default:
		return fmt.Errorf("blit command kind %d: %w", cmd.Kind, core.ErrUnsupportedBlitKind)
	}
}

func (e *BlitEncoder) emitBufferToBuffer(payload interface{}) error {
	p, ok := payload.(metadata.BufferToBufferPayload)
	if !ok {
		return fmt.Errorf("buffer-to-buffer blit: %w", core.ErrUnsupportedBlitKind)
	}
	src, srcOK := p.Src.(*VulkanBuffer)
	dst, dstOK := p.Dst.(*VulkanBuffer)
	if !srcOK || !dstOK || src == nil || dst == nil {
		return fmt.Errorf("buffer-to-buffer blit: %w", core.ErrUnsupportedBlitKind)
	}
	vk.CmdCopyBuffer(e.commandBuffer.Handle, src.Handle, dst.Handle, 1, []vk.BufferCopy{{
		SrcOffset: vk.DeviceSize(p.SrcOffset),
		DstOffset: vk.DeviceSize(p.DstOffset),
		Size:      vk.DeviceSize(p.Size),
	}})
	return nil
}

func (e *BlitEncoder) emitBufferToImage(payload interface{}) error {
	p, ok := payload.(metadata.BufferToImagePayload)
	if !ok {
		return fmt.Errorf("buffer-to-image blit: %w", core.ErrUnsupportedBlitKind)
	}
	src, srcOK := p.Src.(*VulkanBuffer)
	dst, dstOK := p.Dst.(*VulkanImage)
	if !srcOK || !dstOK || src == nil || dst == nil {
		return fmt.Errorf("buffer-to-image blit: %w", core.ErrUnsupportedBlitKind)
	}
	region := vk.BufferImageCopy{
		BufferOffset:      vk.DeviceSize(p.BufferOffset),
		ImageSubresource:  subresourceLayersToVK(p.Range, dst.Descriptor.PixelFormat.AspectMask()),
		ImageOffset:       vk.Offset3D{X: p.ImageOffset[0], Y: p.ImageOffset[1], Z: p.ImageOffset[2]},
		ImageExtent:       vk.Extent3D{Width: p.ImageExtent[0], Height: p.ImageExtent[1], Depth: p.ImageExtent[2]},
	}
	vk.CmdCopyBufferToImage(e.commandBuffer.Handle, src.Handle, dst.Handle, vk.ImageLayoutTransferDstOptimal, 1, []vk.BufferImageCopy{region})
	return nil
}

func (e *BlitEncoder) emitImageToImage(payload interface{}) error {
	p, ok := payload.(metadata.ImageToImagePayload)
	if !ok {
		return fmt.Errorf("image-to-image blit: %w", core.ErrUnsupportedBlitKind)
	}
	src, srcOK := p.Src.(*VulkanImage)
	dst, dstOK := p.Dst.(*VulkanImage)
	if !srcOK || !dstOK || src == nil || dst == nil {
		return fmt.Errorf("image-to-image blit: %w", core.ErrUnsupportedBlitKind)
	}
	region := vk.ImageCopy{
		SrcSubresource: subresourceLayersToVK(p.SrcRange, src.Descriptor.PixelFormat.AspectMask()),
		SrcOffset:      vk.Offset3D{X: p.SrcOffset[0], Y: p.SrcOffset[1], Z: p.SrcOffset[2]},
		DstSubresource: subresourceLayersToVK(p.DstRange, dst.Descriptor.PixelFormat.AspectMask()),
		DstOffset:      vk.Offset3D{X: p.DstOffset[0], Y: p.DstOffset[1], Z: p.DstOffset[2]},
		Extent:         vk.Extent3D{Width: p.Extent[0], Height: p.Extent[1], Depth: p.Extent[2]},
	}
	vk.CmdCopyImage(e.commandBuffer.Handle, src.Handle, vk.ImageLayoutTransferSrcOptimal, dst.Handle, vk.ImageLayoutTransferDstOptimal, 1, []vk.ImageCopy{region})
	return nil
}

func (e *BlitEncoder) emitFill(payload interface{}) error {
	p, ok := payload.(metadata.FillBufferPayload)
	if !ok {
		return fmt.Errorf("fill blit: %w", core.ErrUnsupportedBlitKind)
	}
	dst, dstOK := p.Dst.(*VulkanBuffer)
	if !dstOK || dst == nil {
		return fmt.Errorf("fill blit: %w", core.ErrUnsupportedBlitKind)
	}
	vk.CmdFillBuffer(e.commandBuffer.Handle, dst.Handle, vk.DeviceSize(p.Offset), vk.DeviceSize(p.Size), p.Data)
	return nil
}

func (e *BlitEncoder) emitBlit(payload interface{}) error {
	p, ok := payload.(metadata.BlitImagePayload)
	if !ok {
		return fmt.Errorf("image blit: %w", core.ErrUnsupportedBlitKind)
	}
	src, srcOK := p.Src.(*VulkanImage)
	dst, dstOK := p.Dst.(*VulkanImage)
	if !srcOK || !dstOK || src == nil || dst == nil {
		return fmt.Errorf("image blit: %w", core.ErrUnsupportedBlitKind)
	}
	region := vk.ImageBlit{
		SrcSubresource: subresourceLayersToVK(p.SrcRange, src.Descriptor.PixelFormat.AspectMask()),
		DstSubresource: subresourceLayersToVK(p.DstRange, dst.Descriptor.PixelFormat.AspectMask()),
	}
	for i := 0; i < 2; i++ {
		region.SrcOffsets[i] = vk.Offset3D{X: p.SrcOffsets[i][0], Y: p.SrcOffsets[i][1], Z: p.SrcOffsets[i][2]}
		region.DstOffsets[i] = vk.Offset3D{X: p.DstOffsets[i][0], Y: p.DstOffsets[i][1], Z: p.DstOffsets[i][2]}
	}
	filter := p.Filter
	vk.CmdBlitImage(e.commandBuffer.Handle, src.Handle, vk.ImageLayoutTransferSrcOptimal, dst.Handle, vk.ImageLayoutTransferDstOptimal, 1, []vk.ImageBlit{region}, filter)
	return nil
}

func subresourceLayersToVK(r metadata.SubresourceRange, aspect vk.ImageAspectFlags) vk.ImageSubresourceLayers {
	return vk.ImageSubresourceLayers{
		AspectMask:     aspect,
		MipLevel:       r.BaseMip,
		BaseArrayLayer: r.BaseSlice,
		LayerCount:     maxUint32(r.SliceCount, 1),
	}
}

func maxUint32(a, b uint32) uint32 {
	if a > b {
		return a
	}
	return b
}
