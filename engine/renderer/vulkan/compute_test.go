package vulkan

import (
	"errors"
	"testing"

	"github.com/kestrel-render/vkcore/engine/core"
	"github.com/kestrel-render/vkcore/engine/renderer/metadata"
)

func TestComputeEncoderEmitDirectRejectsWrongPayloadType(t *testing.T) {
	e := NewComputeEncoder(&VulkanCommandBuffer{})
	err := e.Emit(metadata.ComputeCommand{Payload: metadata.DispatchIndirectPayload{}})
	if !errors.Is(err, core.ErrUnsupportedFeature) {
		t.Fatalf("Emit(direct) with a mismatched payload = %v, want core.ErrUnsupportedFeature", err)
	}
}

func TestComputeEncoderEmitIndirectRejectsUnresolvedBuffer(t *testing.T) {
	e := NewComputeEncoder(&VulkanCommandBuffer{})
	err := e.Emit(metadata.ComputeCommand{
		Indirect: true,
		Payload:  metadata.DispatchIndirectPayload{Buffer: "not-a-vulkan-buffer"},
	})
	if !errors.Is(err, core.ErrUnsupportedFeature) {
		t.Fatalf("Emit(indirect) with an unresolved buffer = %v, want core.ErrUnsupportedFeature", err)
	}
}
