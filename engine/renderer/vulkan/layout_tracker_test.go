package vulkan

import (
	"testing"

	vk "github.com/goki/vulkan"
)

func TestLayoutTrackerDefaultsToInitialLayout(t *testing.T) {
	lt := NewLayoutTracker(1, 1, vk.ImageLayoutUndefined)
	if got := lt.Layout(0, 0, 5); got != vk.ImageLayoutUndefined {
		t.Fatalf("Layout() = %v, want ImageLayoutUndefined", got)
	}
}

func TestLayoutTrackerRecordsPerSubresource(t *testing.T) {
	lt := NewLayoutTracker(2, 1, vk.ImageLayoutUndefined)
	whole := SubresourceRangeVK{BaseMip: 0, MipCount: 2, BaseLayer: 0, LayerCount: 1}
	lt.RecordTransition(whole, 0, vk.ImageLayoutTransferDstOptimal)

	mip0Only := SubresourceRangeVK{BaseMip: 0, MipCount: 1, BaseLayer: 0, LayerCount: 1}
	lt.RecordTransition(mip0Only, 4, vk.ImageLayoutShaderReadOnlyOptimal)

	if got := lt.Layout(0, 0, 4); got != vk.ImageLayoutShaderReadOnlyOptimal {
		t.Fatalf("mip0 at cmd 4 = %v, want ShaderReadOnlyOptimal", got)
	}
	if got := lt.Layout(1, 0, 4); got != vk.ImageLayoutTransferDstOptimal {
		t.Fatalf("mip1 at cmd 4 = %v, want TransferDstOptimal (untouched by the mip0-only transition)", got)
	}
	if got := lt.Layout(0, 0, 2); got != vk.ImageLayoutTransferDstOptimal {
		t.Fatalf("mip0 at cmd 2 = %v, want TransferDstOptimal (before the second transition)", got)
	}
}

func TestLayoutTrackerRenderPassLayouts(t *testing.T) {
	lt := NewLayoutTracker(1, 2, vk.ImageLayoutUndefined)
	lt.RecordTransition(SubresourceRangeVK{MipCount: 1, LayerCount: 1}, 1, vk.ImageLayoutColorAttachmentOptimal)
	lt.RecordTransition(SubresourceRangeVK{BaseLayer: 1, MipCount: 1, LayerCount: 1}, 2, vk.ImageLayoutColorAttachmentOptimal)

	layouts := lt.RenderPassLayouts(SubresourceRangeVK{MipCount: 1, LayerCount: 2}, 2)
	if len(layouts) != 2 {
		t.Fatalf("RenderPassLayouts returned %d entries, want 2", len(layouts))
	}
}
