package metadata

import (
	"github.com/kestrel-render/vkcore/engine/core"
	vk "github.com/goki/vulkan"
)

// PassKind is the kind of work a PassRecord represents, per spec §3.
type PassKind uint8

const (
	PassKindDraw PassKind = iota
	PassKindCompute
	PassKindBlit
	PassKindExternal
	PassKindCPU
)

// CommandRange is a half-open range [Lo, Hi) of frame-global command-sequence
// numbers, the unit of ordering and barrier placement used everywhere in the
// planner and encoders.
type CommandRange struct {
	Lo uint64
	Hi uint64
}

func (r CommandRange) Contains(idx uint64) bool {
	return idx >= r.Lo && idx < r.Hi
}

func (r CommandRange) Len() uint64 {
	if r.Hi < r.Lo {
		return 0
	}
	return r.Hi - r.Lo
}

// DrawCommandKind enumerates the typed commands a draw PassRecord carries,
// per §6 "Upstream input".
type DrawCommandKind uint8

const (
	DrawCmdDraw DrawCommandKind = iota
	DrawCmdDrawIndexed
	DrawCmdSetVertexBuffer
	DrawCmdSetPipeline
	DrawCmdSetBytes
	DrawCmdSetDepthStencilState
)

// DrawCommand is one typed operation recorded within a draw PassRecord.
type DrawCommand struct {
	Index   uint64
	Kind    DrawCommandKind
	Payload interface{}
}

// SetPipelinePayload selects the pipeline the next draw in this pass binds,
// resolved from the pipeline state cache at encode time.
type SetPipelinePayload struct {
	Pipeline interface{} // resolved *vulkan.VulkanPipeline at encode time
}

// SetVertexBufferPayload binds one vertex buffer at a binding slot. Unlike
// descriptor/push-constant bindings, vertex buffer binds are not deferred to
// the next draw (§4.7).
type SetVertexBufferPayload struct {
	Buffer  interface{} // resolved *vulkan.VulkanBuffer at encode time
	Binding uint32
	Offset  uint64
}

// SetBytesPayload uploads small inline data via vkCmdPushConstants when it
// fits the device's push-constant range; a larger inline upload needs a
// staging-buffer fallback (§4.7 "unimplemented is a legal initial state").
type SetBytesPayload struct {
	Data   []byte
	Offset uint32
	Stages vk.ShaderStageFlags
}

// DrawPayload carries a non-indexed draw call's vertex/instance range.
type DrawPayload struct {
	VertexCount, InstanceCount   uint32
	FirstVertex, FirstInstance   uint32
}

// DrawIndexedPayload carries an indexed draw call's index buffer and range.
type DrawIndexedPayload struct {
	IndexBuffer   interface{} // resolved *vulkan.VulkanBuffer at encode time
	IndexType     vk.IndexType
	IndexCount    uint32
	InstanceCount uint32
	FirstIndex    uint32
	VertexOffset  int32
	FirstInstance uint32
}

// SetDepthStencilStatePayload carries the dynamic stencil reference value;
// the rest of the depth/stencil test is fixed-function pipeline state (§4.10
// GraphicsPipelineDescriptor), not dynamic.
type SetDepthStencilStatePayload struct {
	StencilReference uint32
}

// BlitCommandKind enumerates the operations the blit encoder implements
// (§4.7).
type BlitCommandKind uint8

const (
	BlitCmdBufferToBuffer BlitCommandKind = iota
	BlitCmdBufferToImage
	BlitCmdImageToImage
	BlitCmdFill
	BlitCmdBlit
)

type BlitCommand struct {
	Index   uint64
	Kind    BlitCommandKind
	Payload interface{}
}

// BufferToBufferPayload, BufferToImagePayload, ImageToImagePayload,
// FillBufferPayload, and BlitImagePayload carry the Vulkan-shaped data for
// each BlitCommandKind, resolved from opaque Buffer/Image interfaces at
// encode time just like the pipeline-barrier payloads in resourcecommand.go.
type BufferToBufferPayload struct {
	Src, Dst           interface{} // resolved *vulkan.VulkanBuffer at encode time
	SrcOffset, DstOffset uint64
	Size               uint64
}

type BufferToImagePayload struct {
	Src          interface{} // resolved *vulkan.VulkanBuffer at encode time
	Dst          interface{} // resolved *vulkan.VulkanImage at encode time
	BufferOffset uint64
	Range        SubresourceRange
	ImageOffset  [3]int32
	ImageExtent  [3]uint32
}

type ImageToImagePayload struct {
	Src, Dst           interface{} // resolved *vulkan.VulkanImage at encode time
	SrcRange, DstRange SubresourceRange
	SrcOffset, DstOffset [3]int32
	Extent             [3]uint32
}

type FillBufferPayload struct {
	Dst    interface{} // resolved *vulkan.VulkanBuffer at encode time
	Offset uint64
	Size   uint64
	Data   uint32
}

type BlitImagePayload struct {
	Src, Dst           interface{} // resolved *vulkan.VulkanImage at encode time
	SrcRange, DstRange SubresourceRange
	SrcOffsets, DstOffsets [2][3]int32
	Filter             vk.Filter
}

// ComputeCommand is a single dispatch, direct or indirect.
type ComputeCommand struct {
	Index    uint64
	Indirect bool
	Payload  interface{}
}

// DispatchPayload carries a direct vkCmdDispatch's group counts.
type DispatchPayload struct {
	GroupCountX, GroupCountY, GroupCountZ uint32
}

// DispatchIndirectPayload carries a vkCmdDispatchIndirect's source buffer and
// the byte offset of its VkDispatchIndirectCommand.
type DispatchIndirectPayload struct {
	Buffer interface{} // resolved *vulkan.VulkanBuffer at encode time
	Offset uint64
}

// PassRecord is one recorded operation from the upstream graph recorder,
// per spec §3. Exactly one of the Commands slices is populated, selected by
// Kind; for PassKindDraw, RenderTarget must be non-nil.
type PassRecord struct {
	Kind         PassKind
	CommandRange CommandRange

	DrawCommands    []DrawCommand
	ComputeCommands []ComputeCommand
	BlitCommands    []BlitCommand

	RenderTarget *RenderTargetDescriptor // only for PassKindDraw
}

// AccessKind is the kind of access a ResourceUsage entry records against a
// resource, per spec §3.
type AccessKind uint8

const (
	AccessRead AccessKind = iota
	AccessWrite
	AccessReadWrite
	AccessConstantBuffer
	AccessRenderTargetRW
	AccessRenderTargetWO
	AccessInputAttachment
	AccessInputAttachmentRT
	AccessVertexBuffer
	AccessIndexBuffer
	AccessBlitSource
	AccessBlitDestination
	AccessSampler
)

func (a AccessKind) IsWrite() bool {
	switch a {
	case AccessWrite, AccessReadWrite, AccessRenderTargetRW, AccessRenderTargetWO, AccessBlitDestination:
		return true
	}
	return false
}

func (a AccessKind) IsRead() bool {
	switch a {
	case AccessRead, AccessReadWrite, AccessConstantBuffer, AccessRenderTargetRW, AccessInputAttachment,
		AccessInputAttachmentRT, AccessVertexBuffer, AccessIndexBuffer, AccessBlitSource, AccessSampler:
		return true
	}
	return false
}

// SubresourceRange identifies the slice of an image or buffer a usage
// touches. For buffers, only Offset/Size are meaningful; for images, the
// mip/array range.
type SubresourceRange struct {
	BaseMip    uint32
	MipCount   uint32
	BaseSlice  uint32
	SliceCount uint32
	Offset     uint64
	Size       uint64
}

// ResourceUsage is one recorded access of a resource within a frame, per
// spec §3. Populated by the upstream graph recorder; consumed read-only by
// this core.
type ResourceUsage struct {
	ResourceHandle core.Handle
	PassIndex      int
	CommandRange   CommandRange
	Access         AccessKind
	Stages         vk.PipelineStageFlags
	ActiveRange    SubresourceRange
}
