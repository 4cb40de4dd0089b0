package vulkan

import (
	"testing"

	vk "github.com/goki/vulkan"
	"github.com/kestrel-render/vkcore/engine/renderer/metadata"
)

func TestCommandEncoderBeforeAfterDrainPhasesInOrder(t *testing.T) {
	cmds := []metadata.ResourceCommand{
		{CommandIndex: 0, Phase: metadata.PhaseBefore, Kind: metadata.ResourceCommandPipelineBarrier},
		{CommandIndex: 0, Phase: metadata.PhaseAfter, Kind: metadata.ResourceCommandPipelineBarrier},
		{CommandIndex: 2, Phase: metadata.PhaseBefore, Kind: metadata.ResourceCommandPipelineBarrier},
	}
	if !metadata.IsSorted(cmds) {
		t.Fatalf("fixture stream must already be sorted")
	}

	encoder := NewCommandEncoder(nil, nil, cmds)

	// Draw 0: both phases fire.
	encoder.Before()
	encoder.After()
	if encoder.Done() {
		t.Fatalf("stream has an entry at index 2 still pending")
	}

	// Draw 1: nothing scheduled at this index.
	encoder.Before()
	encoder.After()

	// Draw 2: only the "before" phase has an entry.
	encoder.Before()
	encoder.After()

	if !encoder.Done() {
		t.Fatalf("expected cursor to have consumed the whole stream")
	}
}

func TestCommandEncoderFlushIgnoresUnhandledEventKinds(t *testing.T) {
	cmds := []metadata.ResourceCommand{
		{CommandIndex: 0, Phase: metadata.PhaseBefore, Kind: metadata.ResourceCommandSignalEvent},
		{CommandIndex: 0, Phase: metadata.PhaseAfter, Kind: metadata.ResourceCommandWaitEvents},
	}
	encoder := NewCommandEncoder(nil, nil, cmds)

	// Neither kind touches the (nil) command buffer, so this must not panic.
	encoder.Before()
	encoder.After()

	if !encoder.Done() {
		t.Fatalf("expected the two-entry stream to be fully consumed")
	}
}

func TestEmitPipelineBarrierSkipsVkCallWhenNoBarriersResolve(t *testing.T) {
	encoder := &CommandEncoder{}
	cmd := metadata.ResourceCommand{
		Kind:           metadata.ResourceCommandPipelineBarrier,
		BufferBarriers: []metadata.BufferBarrierPayload{{Buffer: "not-a-vulkan-buffer"}},
		ImageBarriers:  []metadata.ImageBarrierPayload{{Image: "not-a-vulkan-image"}},
	}

	// Buffer/Image fail their type assertions and are dropped, leaving
	// nothing to submit; a nil commandBuffer.Handle would panic if the
	// vk.CmdPipelineBarrier call were reached, so this only passes if the
	// early-return guard holds.
	encoder.emitPipelineBarrier(cmd)
}

func TestSubresourceRangeToVKMapsFieldsPositionally(t *testing.T) {
	r := metadata.SubresourceRange{BaseMip: 1, MipCount: 2, BaseSlice: 3, SliceCount: 4}
	got := subresourceRangeToVK(r, vk.ImageAspectFlags(vk.ImageAspectColorBit))
	want := vk.ImageSubresourceRange{
		AspectMask:     vk.ImageAspectFlags(vk.ImageAspectColorBit),
		BaseMipLevel:   1,
		LevelCount:     2,
		BaseArrayLayer: 3,
		LayerCount:     4,
	}
	if got != want {
		t.Fatalf("subresourceRangeToVK = %+v, want %+v", got, want)
	}
}
