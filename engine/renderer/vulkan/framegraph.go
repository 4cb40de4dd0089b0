package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/kestrel-render/vkcore/engine/core"
	"github.com/kestrel-render/vkcore/engine/renderer/metadata"
)

// FramePlan is the ordered pass-record list and its accompanying
// frame-global resource-command stream, per spec §1/§2: this is what a
// caller hands the backend once per frame to drive BeginFrame/EndFrame,
// instead of the single hardcoded on-screen render target group. Passes
// must already be in frame-global command order; ResourceCommands must
// already be sorted per metadata.SortResourceCommands/IsSorted.
type FramePlan struct {
	Passes           []*metadata.PassRecord
	ResourceCommands []metadata.ResourceCommand
}

// SubmitFramePlan stages a plan for the next BeginFrame/EndFrame pair to
// record. A nil or empty plan leaves BeginFrame/EndFrame driving the single
// on-screen MainRenderTargetGroup, unchanged.
func (vr *VulkanRenderer) SubmitFramePlan(plan *FramePlan) {
	vr.pendingPlan = plan
}

// deriveAttachmentOps resolves a render target descriptor's per-attachment
// load/store ops and layout transitions, per §4.6 "Attachment op
// resolution": an attachment the pass clears loads from kUndefined, one it
// doesn't starts from whatever ComputeFrameLayouts says the matching access
// kind requires, and every color/depth attachment stays in its
// attachment-optimal layout across the pass since this core never drives a
// resource straight out of a render pass into a different kind of access
// without an intervening barrier synthesized from its own ResourceUsage.
func deriveAttachmentOps(desc metadata.RenderTargetDescriptor) ([]metadata.AttachmentOpState, *metadata.AttachmentOpState) {
	colorOps := make([]metadata.AttachmentOpState, len(desc.Colors))
	for i, c := range desc.Colors {
		op := metadata.AttachmentOpState{StoreOp: vk.AttachmentStoreOpStore}
		if !c.IsNil() {
			if c.ClearOperation.Kind == metadata.ClearColor {
				op.LoadOp = vk.AttachmentLoadOpClear
				op.InitialLayout = vk.ImageLayoutUndefined
				op.Clear = c.ClearOperation
			} else {
				op.LoadOp = vk.AttachmentLoadOpLoad
				op.InitialLayout = ComputeFrameLayouts(metadata.AccessRenderTargetRW)
			}
			op.FinalLayout = ComputeFrameLayouts(metadata.AccessRenderTargetRW)
		}
		colorOps[i] = op
	}

	var depthOp *metadata.AttachmentOpState
	if desc.Depth != nil {
		depthOp = &metadata.AttachmentOpState{
			LoadOp:         vk.AttachmentLoadOpClear,
			StoreOp:        vk.AttachmentStoreOpDontCare,
			StencilLoadOp:  vk.AttachmentLoadOpDontCare,
			StencilStoreOp: vk.AttachmentStoreOpDontCare,
			InitialLayout:  vk.ImageLayoutUndefined,
			FinalLayout:    vk.ImageLayoutDepthStencilAttachmentOptimal,
			Clear: metadata.ClearOperation{
				Kind:    metadata.ClearColor,
				Float32: [4]float32{1.0, 0, 0, 0},
			},
		}
	}
	return colorOps, depthOp
}

// groupFromDrawPass wraps a single draw PassRecord in its own one-subpass
// RenderTargetGroup, the seed TryMergeRenderTargetGroups folds adjacent
// compatible passes into, per §4.6.
func groupFromDrawPass(pass *metadata.PassRecord) *metadata.RenderTargetGroup {
	desc := *pass.RenderTarget
	colorOps, depthOp := deriveAttachmentOps(desc)
	group := &metadata.RenderTargetGroup{
		Descriptor: desc,
		Passes:     []*metadata.PassRecord{pass},
		Subpasses:  []*metadata.Subpass{metadata.NewSubpass(desc, 0)},
		ColorOps:   colorOps,
		DepthOp:    depthOp,
	}
	group.FinalizeDependencies()
	return group
}

// buildRenderTargetGroups walks a frame's pass list in order, greedily
// merging each draw pass into the render target group still open when it is
// compatible (§4.6's compaction rule), and starting a fresh group when it
// isn't or when the next pass isn't a draw pass at all. Non-draw passes
// (compute, blit, external, CPU) never join a group; they execute between
// whichever render passes bracket them in the original order.
func buildRenderTargetGroups(passes []*metadata.PassRecord) []*metadata.RenderTargetGroup {
	var groups []*metadata.RenderTargetGroup
	open := false
	for _, pass := range passes {
		if pass.Kind != metadata.PassKindDraw || pass.RenderTarget == nil {
			open = false
			continue
		}
		next := groupFromDrawPass(pass)
		if open {
			if merged, ok := TryMergeRenderTargetGroups(groups[len(groups)-1], next); ok {
				groups[len(groups)-1] = merged
				continue
			}
		}
		groups = append(groups, next)
		open = true
	}
	return groups
}

// resolveAttachmentViews resolves a render target descriptor's attachments
// to concrete VkImageViews. A zero-value AttachmentRef (IsNil) names the
// on-screen swapchain image/depth buffer, matching the convention
// mainRenderTargetGroup already establishes; a non-nil ref resolves through
// the resource pool (§4.2).
func (vr *VulkanRenderer) resolveAttachmentViews(desc metadata.RenderTargetDescriptor) ([]vk.ImageView, error) {
	views := make([]vk.ImageView, 0, len(desc.Colors)+1)
	for _, c := range desc.Colors {
		if c.IsNil() || c.Target.IsNil() {
			views = append(views, vr.context.Swapchain.Views[vr.context.ImageIndex])
			continue
		}
		image, err := vr.context.Resources.Image(c.Target.ImageHandle)
		if err != nil {
			return nil, fmt.Errorf("resolve color attachment: %w", err)
		}
		views = append(views, image.View)
	}
	if desc.Depth != nil {
		if desc.Depth.IsNil() {
			views = append(views, vr.context.Swapchain.DepthAttachment.View)
		} else {
			image, err := vr.context.Resources.Image(desc.Depth.ImageHandle)
			if err != nil {
				return nil, fmt.Errorf("resolve depth attachment: %w", err)
			}
			views = append(views, image.View)
		}
	}
	return views, nil
}

// recordFramePlan is the frame driver of §4.7/§4.6 wired together: it
// compacts plan.Passes into render target groups, opens/advances/closes
// VkRenderPasses and subpasses around each group's draw passes, and drives a
// single frame-global CommandEncoder (plus lazily-built blit/compute
// encoders for non-draw passes) across plan.ResourceCommands so every
// command index in the frame gets its Before()/After() barrier flush exactly
// once, in order, regardless of which pass or render pass it falls inside.
func (vr *VulkanRenderer) recordFramePlan(commandBuffer *VulkanCommandBuffer, plan *FramePlan) error {
	groups := buildRenderTargetGroups(plan.Passes)

	groupOf := make(map[*metadata.PassRecord]int, len(plan.Passes))
	subpassOf := make(map[*metadata.PassRecord]int, len(plan.Passes))
	for gi, g := range groups {
		for si, p := range g.Passes {
			groupOf[p] = gi
			subpassOf[p] = si
		}
	}

	encoder := NewCommandEncoder(vr.context, commandBuffer, plan.ResourceCommands)
	var drawEnc *DrawEncoder
	var blitEnc *BlitEncoder
	var computeEnc *ComputeEncoder

	openGroup := -1
	openSubpass := 0
	var openRP *VulkanRenderPass
	var openFB *VulkanFramebuffer

	closeRenderPass := func() {
		if openGroup < 0 {
			return
		}
		openRP.RenderpassEnd(commandBuffer)
		openFB.Destroy(vr.context)
		openRP.RenderpassDestroy(vr.context)
		openGroup = -1
		openRP = nil
		openFB = nil
		drawEnc = nil
	}

	for _, pass := range plan.Passes {
		gi, grouped := groupOf[pass]
		if !grouped {
			gi = -1
		}

		switch {
		case gi != openGroup:
			closeRenderPass()
			if gi >= 0 {
				group := groups[gi]
				rp, err := BuildRenderPass(vr.context, group)
				if err != nil {
					return fmt.Errorf("record frame plan: build render pass: %w", err)
				}
				rp.X, rp.Y = 0, 0
				rp.W, rp.H = float32(group.Descriptor.Width), float32(group.Descriptor.Height)

				views, err := vr.resolveAttachmentViews(group.Descriptor)
				if err != nil {
					rp.RenderpassDestroy(vr.context)
					return err
				}
				fb, err := FramebufferCreate(vr.context, rp, group.Descriptor.Width, group.Descriptor.Height, uint32(len(views)), views)
				if err != nil {
					rp.RenderpassDestroy(vr.context)
					return fmt.Errorf("record frame plan: build framebuffer: %w", err)
				}

				rp.RenderpassBegin(commandBuffer, fb.Handle)
				openGroup, openRP, openFB, openSubpass = gi, rp, fb, 0
				drawEnc = NewDrawEncoder(commandBuffer)
			}
		case gi >= 0 && subpassOf[pass] != openSubpass:
			vk.CmdNextSubpass(commandBuffer.Handle, vk.SubpassContentsInline)
			openSubpass = subpassOf[pass]
			drawEnc = NewDrawEncoder(commandBuffer)
		}

		switch pass.Kind {
		case metadata.PassKindDraw:
			for _, cmd := range pass.DrawCommands {
				encoder.Before()
				if err := drawEnc.Emit(cmd); err != nil {
					return fmt.Errorf("record frame plan: draw pass: %w", err)
				}
				encoder.After()
			}
		case metadata.PassKindBlit:
			if blitEnc == nil {
				blitEnc = NewBlitEncoder(commandBuffer)
			}
			for _, cmd := range pass.BlitCommands {
				encoder.Before()
				if err := blitEnc.Emit(cmd); err != nil {
					return fmt.Errorf("record frame plan: blit pass: %w", err)
				}
				encoder.After()
			}
		case metadata.PassKindCompute:
			if computeEnc == nil {
				computeEnc = NewComputeEncoder(commandBuffer)
			}
			for _, cmd := range pass.ComputeCommands {
				encoder.Before()
				if err := computeEnc.Emit(cmd); err != nil {
					return fmt.Errorf("record frame plan: compute pass: %w", err)
				}
				encoder.After()
			}
		case metadata.PassKindExternal, metadata.PassKindCPU:
			// No device-side commands, but the pass still owns its
			// CommandRange: walk it so barriers scheduled around the pass
			// flush in order even though nothing is emitted here.
			for idx := pass.CommandRange.Lo; idx < pass.CommandRange.Hi; idx++ {
				encoder.Before()
				encoder.After()
			}
		}
	}

	closeRenderPass()

	if !encoder.Done() {
		return fmt.Errorf("record frame plan: %w", core.ErrResourceCommandCursorOutOfRange)
	}
	return nil
}
