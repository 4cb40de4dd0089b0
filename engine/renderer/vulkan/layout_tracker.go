package vulkan

import (
	"sort"

	vk "github.com/goki/vulkan"
	"github.com/kestrel-render/vkcore/engine/renderer/metadata"
)

// layoutPoint is one entry in a subresource's layout timeline: the layout an
// image subresource transitions into at a given planner command index, per
// spec §4.5.
type layoutPoint struct {
	commandIndex uint64
	layout       vk.ImageLayout
}

// LayoutTracker holds the per-subresource ordered command_index -> layout
// map for a single image, per §4.5. Subresources are addressed by
// (mipLevel, arrayLayer); each keeps its own independently-ordered timeline
// since a partial-resource barrier only affects the ranges it names.
type LayoutTracker struct {
	mipLevels   uint32
	arrayLayers uint32
	timelines   map[uint32][]layoutPoint // keyed by mip*arrayLayers+layer
	initial     vk.ImageLayout
}

func NewLayoutTracker(mipLevels, arrayLayers uint32, initial vk.ImageLayout) *LayoutTracker {
	return &LayoutTracker{
		mipLevels:   mipLevels,
		arrayLayers: arrayLayers,
		timelines:   make(map[uint32][]layoutPoint),
		initial:     initial,
	}
}

func (t *LayoutTracker) subresourceKey(mip, layer uint32) uint32 {
	return mip*t.arrayLayers + layer
}

// RecordTransition appends a layout change at commandIndex for every
// subresource in the given range. Entries must be appended in non-decreasing
// commandIndex order per subresource; compute_frame_layouts relies on this.
func (t *LayoutTracker) RecordTransition(r SubresourceRangeVK, commandIndex uint64, layout vk.ImageLayout) {
	for mip := r.BaseMip; mip < r.BaseMip+r.MipCount; mip++ {
		for layer := r.BaseLayer; layer < r.BaseLayer+r.LayerCount; layer++ {
			key := t.subresourceKey(mip, layer)
			timeline := t.timelines[key]
			if n := len(timeline); n > 0 && timeline[n-1].commandIndex == commandIndex {
				timeline[n-1].layout = layout
				continue
			}
			t.timelines[key] = append(timeline, layoutPoint{commandIndex: commandIndex, layout: layout})
		}
	}
}

// Layout returns the layout a subresource is in immediately before
// commandIndex executes: the most recent recorded transition with
// commandIndex <= the query, or the image's initial layout if none exists
// yet, per §4.5 layout().
func (t *LayoutTracker) Layout(mip, layer uint32, commandIndex uint64) vk.ImageLayout {
	timeline := t.timelines[t.subresourceKey(mip, layer)]
	if len(timeline) == 0 {
		return t.initial
	}
	// binary search for the last point with commandIndex <= query
	i := sort.Search(len(timeline), func(i int) bool { return timeline[i].commandIndex > commandIndex })
	if i == 0 {
		return t.initial
	}
	return timeline[i-1].layout
}

// RenderPassLayouts reports the layout each subresource in r holds at the
// start of the render pass beginning at commandIndex, per §4.5
// render_pass_layouts(). Used by the planner to decide each attachment's
// VkAttachmentDescription.initialLayout.
func (t *LayoutTracker) RenderPassLayouts(r SubresourceRangeVK, commandIndex uint64) map[uint32]vk.ImageLayout {
	out := make(map[uint32]vk.ImageLayout)
	for mip := r.BaseMip; mip < r.BaseMip+r.MipCount; mip++ {
		for layer := r.BaseLayer; layer < r.BaseLayer+r.LayerCount; layer++ {
			out[t.subresourceKey(mip, layer)] = t.Layout(mip, layer, commandIndex)
		}
	}
	return out
}

// ComputeFrameLayouts maps a recorded resource access to the VkImageLayout it
// requires, per §4.5 compute_frame_layouts(): the layout a subresource must
// be transitioned into to satisfy the given AccessKind. Barrier synthesis and
// attachment initial/final layout derivation both resolve a usage to its
// layout requirement through this one mapping, so the two never disagree
// about what a given access needs.
func ComputeFrameLayouts(access metadata.AccessKind) vk.ImageLayout {
	switch access {
	case metadata.AccessRenderTargetRW, metadata.AccessRenderTargetWO, metadata.AccessInputAttachmentRT:
		return vk.ImageLayoutColorAttachmentOptimal
	case metadata.AccessInputAttachment, metadata.AccessSampler, metadata.AccessRead:
		return vk.ImageLayoutShaderReadOnlyOptimal
	case metadata.AccessBlitSource:
		return vk.ImageLayoutTransferSrcOptimal
	case metadata.AccessBlitDestination:
		return vk.ImageLayoutTransferDstOptimal
	case metadata.AccessWrite, metadata.AccessReadWrite:
		return vk.ImageLayoutGeneral
	default:
		return vk.ImageLayoutGeneral
	}
}

// SubresourceRangeVK is the Vulkan-shaped mip/layer range a layout transition
// applies to. Kept distinct from metadata.SubresourceRange, which also
// carries the byte Offset/Size used for buffer-class resources.
type SubresourceRangeVK struct {
	BaseMip   uint32
	MipCount  uint32
	BaseLayer uint32
	LayerCount uint32
}
