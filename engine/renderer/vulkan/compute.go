package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/kestrel-render/vkcore/engine/core"
	"github.com/kestrel-render/vkcore/engine/renderer/metadata"
)

// ComputeEncoder records a PassKindCompute pass's dispatches (§4.7 "Compute
// encoder"), honoring whatever pipeline is currently bound by a preceding
// DrawCmdSetPipeline-equivalent bind call. Resource-command phasing around a
// dispatch is driven the same way as draw commands, via CommandEncoder.
type ComputeEncoder struct {
	commandBuffer *VulkanCommandBuffer
}

func NewComputeEncoder(commandBuffer *VulkanCommandBuffer) *ComputeEncoder {
	return &ComputeEncoder{commandBuffer: commandBuffer}
}

// Emit records one dispatch, direct or indirect.
func (e *ComputeEncoder) Emit(cmd metadata.ComputeCommand) error {
	if cmd.Indirect {
		p, ok := cmd.Payload.(metadata.DispatchIndirectPayload)
		if !ok {
			return fmt.Errorf("indirect dispatch: %w", core.ErrUnsupportedFeature)
		}
		buffer, ok := p.Buffer.(*VulkanBuffer)
		if !ok || buffer == nil {
			return fmt.Errorf("indirect dispatch: %w", core.ErrUnsupportedFeature)
		}
		vk.CmdDispatchIndirect(e.commandBuffer.Handle, buffer.Handle, vk.DeviceSize(p.Offset))
		return nil
	}

	p, ok := cmd.Payload.(metadata.DispatchPayload)
	if !ok {
		return fmt.Errorf("direct dispatch: %w", core.ErrUnsupportedFeature)
	}
	vk.CmdDispatch(e.commandBuffer.Handle, p.GroupCountX, p.GroupCountY, p.GroupCountZ)
	return nil
}
