package metadata

import vk "github.com/goki/vulkan"

// Subpass is one stage within a grouped render pass, per spec §3. It is
// produced by the render-target planner's merge rule (§4.6): an "identical"
// merge result reuses the previous pass's subpass, a "compatible" merge
// result opens a new one with Index = last + 1.
type Subpass struct {
	Descriptor          RenderTargetDescriptor
	Index               uint32
	InputAttachments    map[uint32]struct{} // set of attachment indices read as input attachments in this subpass
	PreserveAttachments map[uint32]struct{} // attachment indices this subpass must preserve (§4.6 "Mark any intermediate subpass...")
}

func NewSubpass(desc RenderTargetDescriptor, index uint32) *Subpass {
	return &Subpass{
		Descriptor:          desc,
		Index:               index,
		InputAttachments:    make(map[uint32]struct{}),
		PreserveAttachments: make(map[uint32]struct{}),
	}
}

// AttachmentOpState is the per-attachment load/store op plan for one
// render-target group, resolved during finalisation (§4.6).
type AttachmentOpState struct {
	LoadOp  vk.AttachmentLoadOp
	StoreOp vk.AttachmentStoreOp
	// StencilLoadOp/StencilStoreOp are only meaningful for the depth/stencil
	// attachment.
	StencilLoadOp  vk.AttachmentLoadOp
	StencilStoreOp vk.AttachmentStoreOp

	InitialLayout vk.ImageLayout
	FinalLayout   vk.ImageLayout

	Clear ClearOperation

	// PreviousCmd/NextCmd are the external command-sequence indices outside
	// the render-pass window used to synthesize pre/post barriers in the
	// resource-command stream (§4.6 "Compute (previous_cmd, next_cmd)...").
	// -1 means "no such command" (first/last use of the resource).
	PreviousCmd int64
	NextCmd     int64
}

// RenderTargetGroup is a maximal run of draw PassRecords merged into one
// Vulkan render pass with one or more subpasses, per spec §3.
type RenderTargetGroup struct {
	Descriptor RenderTargetDescriptor
	Passes     []*PassRecord
	Subpasses  []*Subpass

	ColorOps []AttachmentOpState
	DepthOp  *AttachmentOpState

	Dependencies []vk.SubpassDependency
}

type subpassDependencyKey struct {
	src, dst uint32
	flags    vk.DependencyFlags
}

// FinalizeDependencies computes group.Dependencies from group.Subpasses, per
// §4.6: an external dependency guards the first subpass against whatever
// used these attachments before this render pass began, an attachment-write
// to attachment-read dependency links each consecutive subpass pair, and an
// input-attachment self-dependency is added for any subpass that reads an
// attachment it (or an earlier subpass) also writes. Two dependencies with
// the same (src, dst, flags) are merged by OR-ing their stage/access masks
// together rather than emitted as duplicate VkSubpassDependency entries.
//
// Every subpass in this core's render passes references every color/depth
// attachment of the group (BuildRenderPass binds the full attachment set to
// each VkSubpassDescription), so there is never an attachment an
// intermediate subpass fails to reference; preserve-attachment marking
// therefore has nothing to do under this compaction model and
// Subpass.PreserveAttachments stays empty unless a future per-subpass
// attachment-subset model needs it.
func (g *RenderTargetGroup) FinalizeDependencies() {
	if len(g.Subpasses) == 0 {
		g.Dependencies = nil
		return
	}

	colorCount := len(g.Descriptor.Colors)
	hasDepth := g.Descriptor.Depth != nil

	order := make([]subpassDependencyKey, 0, 4)
	merged := make(map[subpassDependencyKey]*vk.SubpassDependency, 4)

	addDep := func(src, dst uint32, srcStage, dstStage vk.PipelineStageFlagBits, srcAccess, dstAccess vk.AccessFlagBits, flags vk.DependencyFlags) {
		key := subpassDependencyKey{src, dst, flags}
		if d, ok := merged[key]; ok {
			d.SrcStageMask |= vk.PipelineStageFlags(srcStage)
			d.DstStageMask |= vk.PipelineStageFlags(dstStage)
			d.SrcAccessMask |= vk.AccessFlags(srcAccess)
			d.DstAccessMask |= vk.AccessFlags(dstAccess)
			return
		}
		order = append(order, key)
		merged[key] = &vk.SubpassDependency{
			SrcSubpass:      src,
			DstSubpass:      dst,
			DependencyFlags: flags,
			SrcStageMask:    vk.PipelineStageFlags(srcStage),
			DstStageMask:    vk.PipelineStageFlags(dstStage),
			SrcAccessMask:   vk.AccessFlags(srcAccess),
			DstAccessMask:   vk.AccessFlags(dstAccess),
		}
	}

	first := g.Subpasses[0].Index
	if colorCount > 0 {
		addDep(vk.SubpassExternal, first, vk.PipelineStageColorAttachmentOutputBit, vk.PipelineStageColorAttachmentOutputBit,
			0, vk.AccessColorAttachmentWriteBit, 0)
	}
	if hasDepth {
		addDep(vk.SubpassExternal, first, vk.PipelineStageEarlyFragmentTestsBit|vk.PipelineStageLateFragmentTestsBit,
			vk.PipelineStageEarlyFragmentTestsBit, 0, vk.AccessDepthStencilAttachmentWriteBit, 0)
	}

	for i := 1; i < len(g.Subpasses); i++ {
		src := g.Subpasses[i-1].Index
		dst := g.Subpasses[i].Index
		if colorCount > 0 {
			addDep(src, dst, vk.PipelineStageColorAttachmentOutputBit, vk.PipelineStageFragmentShaderBit,
				vk.AccessColorAttachmentWriteBit, vk.AccessShaderReadBit|vk.AccessColorAttachmentReadBit, 0)
		}
		if hasDepth {
			addDep(src, dst, vk.PipelineStageLateFragmentTestsBit, vk.PipelineStageEarlyFragmentTestsBit,
				vk.AccessDepthStencilAttachmentWriteBit, vk.AccessDepthStencilAttachmentReadBit, 0)
		}
	}

	for _, sp := range g.Subpasses {
		if len(sp.InputAttachments) > 0 {
			addDep(sp.Index, sp.Index, vk.PipelineStageColorAttachmentOutputBit, vk.PipelineStageFragmentShaderBit,
				vk.AccessColorAttachmentWriteBit, vk.AccessInputAttachmentReadBit, vk.DependencyByRegionBit)
		}
	}

	deps := make([]vk.SubpassDependency, 0, len(order))
	for _, k := range order {
		deps = append(deps, *merged[k])
	}
	g.Dependencies = deps
}
