package vulkan

import (
	"errors"
	"testing"

	"github.com/kestrel-render/vkcore/engine/core"
	"github.com/kestrel-render/vkcore/engine/renderer/metadata"
)

func TestBlitEncoderEmitUnknownKindReturnsUnsupported(t *testing.T) {
	e := NewBlitEncoder(&VulkanCommandBuffer{})
	err := e.Emit(metadata.BlitCommand{Kind: metadata.BlitCommandKind(255)})
	if !errors.Is(err, core.ErrUnsupportedBlitKind) {
		t.Fatalf("Emit with an unknown kind = %v, want core.ErrUnsupportedBlitKind", err)
	}
}

func TestBlitEncoderEmitRejectsUnresolvedPayload(t *testing.T) {
	e := NewBlitEncoder(&VulkanCommandBuffer{})
	err := e.Emit(metadata.BlitCommand{
		Kind: metadata.BlitCmdBufferToBuffer,
		Payload: metadata.BufferToBufferPayload{
			Src: "not-a-vulkan-buffer",
			Dst: "not-a-vulkan-buffer",
		},
	})
	if !errors.Is(err, core.ErrUnsupportedBlitKind) {
		t.Fatalf("Emit with an unresolved payload = %v, want core.ErrUnsupportedBlitKind", err)
	}
}

func TestBlitEncoderEmitFillRejectsWrongPayloadType(t *testing.T) {
	e := NewBlitEncoder(&VulkanCommandBuffer{})
	err := e.Emit(metadata.BlitCommand{
		Kind:    metadata.BlitCmdFill,
		Payload: metadata.BufferToBufferPayload{},
	})
	if !errors.Is(err, core.ErrUnsupportedBlitKind) {
		t.Fatalf("Emit(Fill) with a mismatched payload = %v, want core.ErrUnsupportedBlitKind", err)
	}
}
