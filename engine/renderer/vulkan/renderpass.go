package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/kestrel-render/vkcore/engine/core"
	"github.com/kestrel-render/vkcore/engine/renderer/metadata"
)

type VulkanRenderPassState int

const (
	READY VulkanRenderPassState = iota
	RECORDING
	IN_RENDER_PASS
	RECORDING_ENDED
	SUBMITTED
	NOT_ALLOCATED
)

// VulkanRenderPass wraps the VkRenderPass built from a render target group,
// along with the clear values and render area needed to begin it.
type VulkanRenderPass struct {
	Handle vk.RenderPass
	State  VulkanRenderPassState

	X, Y, W, H  float32
	ClearValues []vk.ClearValue
}

// RenderTargetGroupState is the realized Vulkan-side counterpart of a
// metadata.RenderTargetGroup: the compiled VkRenderPass plus the
// per-swapchain-image framebuffers built against it.
type RenderTargetGroupState struct {
	Group        *metadata.RenderTargetGroup
	RenderPass   *VulkanRenderPass
	Framebuffers []*VulkanFramebuffer
}

// TryMergeRenderTargetGroups implements the render-target planner's
// compaction rule (§4.6): two adjacent groups merge into one VkRenderPass
// (as a new subpass) when their descriptors are compatible and neither
// names a visibility buffer that conflicts with the other's. Passes that
// cannot merge are left as separate groups, each becoming its own render
// pass.
func TryMergeRenderTargetGroups(a, b *metadata.RenderTargetGroup) (*metadata.RenderTargetGroup, bool) {
	if !a.Descriptor.CompatibleWith(b.Descriptor) {
		return nil, false
	}
	if a.Descriptor.VisibilityBuffer != nil && b.Descriptor.VisibilityBuffer != nil &&
		a.Descriptor.VisibilityBuffer != b.Descriptor.VisibilityBuffer {
		return nil, false
	}

	merged := &metadata.RenderTargetGroup{
		Descriptor: a.Descriptor,
		Passes:     append(append([]*metadata.PassRecord{}, a.Passes...), b.Passes...),
		ColorOps:   a.ColorOps,
		DepthOp:    a.DepthOp,
	}
	nextIndex := uint32(len(a.Subpasses))
	merged.Subpasses = append(append([]*metadata.Subpass{}, a.Subpasses...), b.Subpasses...)
	for _, sp := range merged.Subpasses[len(a.Subpasses):] {
		sp.Index = nextIndex
		nextIndex++
	}
	merged.FinalizeDependencies()
	return merged, true
}

// BuildRenderPass compiles a metadata.RenderTargetGroup into a VkRenderPass:
// one VkAttachmentDescription per color slot plus depth/stencil, one
// VkSubpassDescription per metadata.Subpass, and the group's precomputed
// subpass dependencies. Grounded on the single-subpass construction the
// original renderpass builder performed, generalized to N attachments and N
// subpasses per the render-target planner.
func BuildRenderPass(context *VulkanContext, group *metadata.RenderTargetGroup) (*VulkanRenderPass, error) {
	if err := group.Descriptor.Validate(); err != nil {
		return nil, err
	}

	colorCount := len(group.Descriptor.Colors)
	hasDepth := group.Descriptor.Depth != nil

	if len(group.ColorOps) != colorCount {
		return nil, fmt.Errorf("render pass build: %d color attachments but %d color ops: %w", colorCount, len(group.ColorOps), core.ErrAttachmentMismatch)
	}
	if hasDepth && group.DepthOp == nil {
		return nil, fmt.Errorf("render pass build: depth attachment present but no depth op supplied: %w", core.ErrAttachmentMismatch)
	}

	attachments := make([]vk.AttachmentDescription, 0, colorCount+1)
	clearValues := make([]vk.ClearValue, 0, colorCount+1)
	colorRefs := make([]vk.AttachmentReference, colorCount)

	for i := 0; i < colorCount; i++ {
		op := group.ColorOps[i]
		attachments = append(attachments, vk.AttachmentDescription{
			Format:         context.Swapchain.ImageFormat.Format,
			Samples:        vk.SampleCount1Bit,
			LoadOp:         op.LoadOp,
			StoreOp:        op.StoreOp,
			StencilLoadOp:  vk.AttachmentLoadOpDontCare,
			StencilStoreOp: vk.AttachmentStoreOpDontCare,
			InitialLayout:  op.InitialLayout,
			FinalLayout:    op.FinalLayout,
		})
		colorRefs[i] = vk.AttachmentReference{Attachment: uint32(i), Layout: vk.ImageLayoutColorAttachmentOptimal}
		clearValues = append(clearValues, clearValueOf(op.Clear))
	}

	var depthRef vk.AttachmentReference
	if hasDepth {
		op := group.DepthOp
		attachments = append(attachments, vk.AttachmentDescription{
			Format:         context.Device.DepthFormat,
			Samples:        vk.SampleCount1Bit,
			LoadOp:         op.LoadOp,
			StoreOp:        op.StoreOp,
			StencilLoadOp:  op.StencilLoadOp,
			StencilStoreOp: op.StencilStoreOp,
			InitialLayout:  op.InitialLayout,
			FinalLayout:    op.FinalLayout,
		})
		depthRef = vk.AttachmentReference{Attachment: uint32(colorCount), Layout: vk.ImageLayoutDepthStencilAttachmentOptimal}
		clearValues = append(clearValues, clearValueOf(op.Clear))
	}

	subpasses := make([]vk.SubpassDescription, len(group.Subpasses))
	for i, sp := range group.Subpasses {
		desc := vk.SubpassDescription{
			PipelineBindPoint:    vk.PipelineBindPointGraphics,
			ColorAttachmentCount: uint32(colorCount),
			PColorAttachments:    colorRefs,
		}
		if hasDepth {
			ref := depthRef
			desc.PDepthStencilAttachment = &ref
		}
		if len(sp.PreserveAttachments) > 0 {
			preserve := make([]uint32, 0, len(sp.PreserveAttachments))
			for idx := range sp.PreserveAttachments {
				preserve = append(preserve, idx)
			}
			desc.PreserveAttachmentCount = uint32(len(preserve))
			desc.PPreserveAttachments = preserve
		}
		subpasses[i] = desc
	}
	if len(subpasses) == 0 {
		subpasses = []vk.SubpassDescription{{
			PipelineBindPoint:    vk.PipelineBindPointGraphics,
			ColorAttachmentCount: uint32(colorCount),
			PColorAttachments:    colorRefs,
		}}
		if hasDepth {
			ref := depthRef
			subpasses[0].PDepthStencilAttachment = &ref
		}
	}

	dependencies := group.Dependencies
	if len(dependencies) == 0 {
		dependencies = []vk.SubpassDependency{{
			SrcSubpass:    vk.SubpassExternal,
			DstSubpass:    0,
			SrcStageMask:  vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
			DstStageMask:  vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
			DstAccessMask: vk.AccessFlags(vk.AccessColorAttachmentReadBit) | vk.AccessFlags(vk.AccessColorAttachmentWriteBit),
		}}
	}

	createInfo := vk.RenderPassCreateInfo{
		SType:           vk.StructureTypeRenderPassCreateInfo,
		AttachmentCount: uint32(len(attachments)),
		PAttachments:    attachments,
		SubpassCount:    uint32(len(subpasses)),
		PSubpasses:      subpasses,
		DependencyCount: uint32(len(dependencies)),
		PDependencies:   dependencies,
	}

	rp := &VulkanRenderPass{
		State:       NOT_ALLOCATED,
		W:           float32(group.Descriptor.Width),
		H:           float32(group.Descriptor.Height),
		ClearValues: clearValues,
	}
	if res := vk.CreateRenderPass(context.Device.LogicalDevice, &createInfo, context.Allocator, &rp.Handle); !VulkanResultIsSuccess(res) {
		return nil, fmt.Errorf("failed to create renderpass: %s", VulkanResultString(res, true))
	}
	rp.State = READY
	return rp, nil
}

func clearValueOf(op metadata.ClearOperation) vk.ClearValue {
	var cv vk.ClearValue
	switch op.Encoding {
	case metadata.ClearEncodingSignedInt:
		cv.SetColor([]int32{op.Int32[0], op.Int32[1], op.Int32[2], op.Int32[3]})
	case metadata.ClearEncodingUnsignedInt:
		cv.SetColor([]uint32{op.Uint32[0], op.Uint32[1], op.Uint32[2], op.Uint32[3]})
	default:
		cv.SetColor([]float32{op.Float32[0], op.Float32[1], op.Float32[2], op.Float32[3]})
	}
	return cv
}

func (vr *VulkanRenderPass) RenderpassDestroy(context *VulkanContext) {
	if vr.Handle != nil {
		vk.DestroyRenderPass(context.Device.LogicalDevice, vr.Handle, context.Allocator)
		vr.Handle = nil
	}
}

func (vr *VulkanRenderPass) RenderpassBegin(commandBuffer *VulkanCommandBuffer, frameBuffer vk.Framebuffer) {
	beginInfo := vk.RenderPassBeginInfo{
		SType:      vk.StructureTypeRenderPassBeginInfo,
		RenderPass: vr.Handle,
		Framebuffer: frameBuffer,
		RenderArea: vk.Rect2D{
			Offset: vk.Offset2D{X: int32(vr.X), Y: int32(vr.Y)},
			Extent: vk.Extent2D{Width: uint32(vr.W), Height: uint32(vr.H)},
		},
		ClearValueCount: uint32(len(vr.ClearValues)),
		PClearValues:    vr.ClearValues,
	}

	vk.CmdBeginRenderPass(commandBuffer.Handle, &beginInfo, vk.SubpassContentsInline)
	commandBuffer.State = COMMAND_BUFFER_STATE_IN_RENDER_PASS
	vr.State = IN_RENDER_PASS
}

func (vr *VulkanRenderPass) RenderpassEnd(commandBuffer *VulkanCommandBuffer) {
	vk.CmdEndRenderPass(commandBuffer.Handle)
	commandBuffer.State = COMMAND_BUFFER_STATE_RECORDING
	vr.State = RECORDING_ENDED
}
