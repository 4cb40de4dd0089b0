package vulkan

import (
	"fmt"
	"unsafe"

	vk "github.com/goki/vulkan"
	"github.com/kestrel-render/vkcore/engine/core"
	"github.com/kestrel-render/vkcore/engine/renderer/metadata"
)

// maxInlinePushConstantBytes is a conservative floor under every desktop
// Vulkan implementation's minimum guaranteed maxPushConstantsSize (128).
const maxInlinePushConstantBytes = 128

// DrawEncoder records a PassKindDraw pass's draw commands inside an
// already-open render pass/subpass, per §4.7 "Draw encoder". It does not
// open or close render passes or transition subpasses itself: the frame
// driver owns render-pass/subpass boundaries across a whole
// metadata.RenderTargetGroup and hands this encoder one subpass's worth of
// commands at a time, new for each subpass so pipeline state never leaks
// across a vkCmdNextSubpass.
type DrawEncoder struct {
	commandBuffer *VulkanCommandBuffer
	pipeline      *VulkanPipeline
	pipelineDirty bool
}

func NewDrawEncoder(commandBuffer *VulkanCommandBuffer) *DrawEncoder {
	return &DrawEncoder{commandBuffer: commandBuffer}
}

// Emit records one draw-pass command.
func (e *DrawEncoder) Emit(cmd metadata.DrawCommand) error {
	switch cmd.Kind {
	case metadata.DrawCmdSetPipeline:
		return e.setPipeline(cmd.Payload)
	case metadata.DrawCmdSetVertexBuffer:
		return e.setVertexBuffer(cmd.Payload)
	case metadata.DrawCmdSetBytes:
		return e.setBytes(cmd.Payload)
	case metadata.DrawCmdSetDepthStencilState:
		return e.setDepthStencilState(cmd.Payload)
	case metadata.DrawCmdDraw:
		return e.draw(cmd.Payload)
	case metadata.DrawCmdDrawIndexed:
		return e.drawIndexed(cmd.Payload)
	default:
		return fmt.Errorf("draw command kind %d: %w", cmd.Kind, core.ErrUnsupportedFeature)
	}
}

func (e *DrawEncoder) setPipeline(payload interface{}) error {
	p, ok := payload.(metadata.SetPipelinePayload)
	if !ok {
		return fmt.Errorf("set pipeline: %w", core.ErrUnsupportedFeature)
	}
	pipeline, ok := p.Pipeline.(*VulkanPipeline)
	if !ok || pipeline == nil {
		return fmt.Errorf("set pipeline: %w", core.ErrUnsupportedFeature)
	}
	// Rebinding is deferred to the next draw (§4.7 "rebinds the pipeline (if
	// dirty) then flushes descriptor-set and push-constant bindings").
	e.pipeline = pipeline
	e.pipelineDirty = true
	return nil
}

func (e *DrawEncoder) setVertexBuffer(payload interface{}) error {
	p, ok := payload.(metadata.SetVertexBufferPayload)
	if !ok {
		return fmt.Errorf("set vertex buffer: %w", core.ErrUnsupportedFeature)
	}
	buffer, ok := p.Buffer.(*VulkanBuffer)
	if !ok || buffer == nil {
		return fmt.Errorf("set vertex buffer: %w", core.ErrUnsupportedFeature)
	}
	vk.CmdBindVertexBuffers(e.commandBuffer.Handle, p.Binding, 1, []vk.Buffer{buffer.Handle}, []vk.DeviceSize{vk.DeviceSize(p.Offset)})
	return nil
}

func (e *DrawEncoder) setBytes(payload interface{}) error {
	p, ok := payload.(metadata.SetBytesPayload)
	if !ok {
		return fmt.Errorf("set bytes: %w", core.ErrUnsupportedFeature)
	}
	if e.pipeline == nil {
		return fmt.Errorf("set bytes issued before any pipeline bound: %w", core.ErrUnsupportedFeature)
	}
	if len(p.Data) == 0 {
		return nil
	}
	if len(p.Data) > maxInlinePushConstantBytes {
		return fmt.Errorf("inline upload of %d bytes exceeds the push-constant range, staging-buffer fallback not implemented: %w", len(p.Data), core.ErrPushConstantSizeMismatch)
	}
	vk.CmdPushConstants(e.commandBuffer.Handle, e.pipeline.PipelineLayout, p.Stages, p.Offset, uint32(len(p.Data)), unsafe.Pointer(&p.Data[0]))
	return nil
}

func (e *DrawEncoder) setDepthStencilState(payload interface{}) error {
	p, ok := payload.(metadata.SetDepthStencilStatePayload)
	if !ok {
		return fmt.Errorf("set depth stencil state: %w", core.ErrUnsupportedFeature)
	}
	vk.CmdSetStencilReference(e.commandBuffer.Handle, vk.StencilFaceFlags(vk.StencilFaceFrontAndBack), p.StencilReference)
	return nil
}

func (e *DrawEncoder) draw(payload interface{}) error {
	p, ok := payload.(metadata.DrawPayload)
	if !ok {
		return fmt.Errorf("draw: %w", core.ErrUnsupportedFeature)
	}
	if err := e.bindPipelineIfDirty(); err != nil {
		return err
	}
	vk.CmdDraw(e.commandBuffer.Handle, p.VertexCount, p.InstanceCount, p.FirstVertex, p.FirstInstance)
	return nil
}

func (e *DrawEncoder) drawIndexed(payload interface{}) error {
	p, ok := payload.(metadata.DrawIndexedPayload)
	if !ok {
		return fmt.Errorf("draw indexed: %w", core.ErrUnsupportedFeature)
	}
	indexBuffer, ok := p.IndexBuffer.(*VulkanBuffer)
	if !ok || indexBuffer == nil {
		return fmt.Errorf("draw indexed: %w", core.ErrUnsupportedFeature)
	}
	if err := e.bindPipelineIfDirty(); err != nil {
		return err
	}
	vk.CmdBindIndexBuffer(e.commandBuffer.Handle, indexBuffer.Handle, 0, p.IndexType)
	vk.CmdDrawIndexed(e.commandBuffer.Handle, p.IndexCount, p.InstanceCount, p.FirstIndex, p.VertexOffset, p.FirstInstance)
	return nil
}

func (e *DrawEncoder) bindPipelineIfDirty() error {
	if e.pipeline == nil {
		return fmt.Errorf("draw issued before any pipeline bound: %w", core.ErrUnsupportedFeature)
	}
	if e.pipelineDirty {
		e.pipeline.Bind(e.commandBuffer, vk.PipelineBindPointGraphics)
		e.pipelineDirty = false
	}
	return nil
}
