package vulkan

import (
	"testing"

	"github.com/kestrel-render/vkcore/engine/renderer/metadata"
)

func TestAlignUpRoundsToAlignment(t *testing.T) {
	cases := map[uint64]uint64{0: 0, 1: 256, 255: 256, 256: 256, 257: 512}
	for value, want := range cases {
		if got := alignUp(value, 256); got != want {
			t.Fatalf("alignUp(%d, 256) = %d, want %d", value, got, want)
		}
	}
}

func TestTransientBlockBumpAllocatesWithinCapacity(t *testing.T) {
	block := &transientBlock{size: 1024}

	first, ok := block.tryAllocate(100)
	if !ok || first != 0 {
		t.Fatalf("first allocation = (%d, %v), want (0, true)", first, ok)
	}
	second, ok := block.tryAllocate(100)
	if !ok || second != 256 {
		t.Fatalf("second allocation = (%d, %v), want (256, true) — must be 256-byte aligned", second, ok)
	}
	if _, ok := block.tryAllocate(1000); ok {
		t.Fatalf("allocation past block capacity should fail")
	}
}

func TestBufferArenaRotatesBlocksAfterNFrames(t *testing.T) {
	arena := newBufferArena(ArenaSharedDefault, 2)
	block := &transientBlock{size: 1024}

	arena.beginFrame(0)
	arena.active = append(arena.active, block)
	block.cursor = 512
	arena.endFrame()

	// Frame 1 uses the other slot; the frame-0 block must not be visible yet.
	arena.beginFrame(1)
	if len(arena.active) != 0 {
		t.Fatalf("frame 1 should start with an empty slot, got %d blocks", len(arena.active))
	}
	arena.endFrame()

	// Frame 2 (= 0 mod 2) recycles frame 0's block, with its cursor reset.
	arena.beginFrame(2)
	if len(arena.active) != 1 {
		t.Fatalf("frame 2 should recycle frame 0's block, got %d blocks", len(arena.active))
	}
	if arena.active[0].cursor != 0 {
		t.Fatalf("recycled block cursor = %d, want 0", arena.active[0].cursor)
	}
}

func TestImagePoolReusesExactDescriptorMatch(t *testing.T) {
	pool := newImagePool(0)
	desc := metadata.TextureDescriptor{Width: 64, Height: 64, MipLevels: 1, ArrayLayers: 1, SampleCount: 1}
	image := &VulkanImage{Descriptor: desc}

	pool.depositImage(image)
	pool.retirePending()

	reused, err := pool.collectImage(nil, desc, 0, 0)
	if err != nil {
		t.Fatalf("collectImage: %v", err)
	}
	if reused != image {
		t.Fatalf("collectImage did not return the deposited image")
	}
}

func TestHistoryImagePoolKeepsOnlyOneFrame(t *testing.T) {
	pool := newImagePool(1)
	desc := metadata.TextureDescriptor{Width: 32, Height: 32, MipLevels: 1, ArrayLayers: 1, SampleCount: 1}
	first := &VulkanImage{Descriptor: desc}
	second := &VulkanImage{Descriptor: desc}

	pool.depositImage(first)
	pool.depositImage(second)

	if len(pool.pending[desc]) != 1 || pool.pending[desc][0] != second {
		t.Fatalf("history pool should keep only the most recent deposit")
	}
	if len(pool.free[desc]) != 1 || pool.free[desc][0] != first {
		t.Fatalf("the displaced older deposit should move to the free list")
	}
}
