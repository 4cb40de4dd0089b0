package metadata

import (
	"errors"
	"fmt"

	"github.com/kestrel-render/vkcore/engine/core"
)

// ClearKind distinguishes "keep whatever was there" from "clear to a value";
// ClearOperation.Keep ignores Color.
type ClearKind uint8

const (
	ClearKeep ClearKind = iota
	ClearColor
)

// ClearColorEncoding differentiates how the four ClearValue floats are
// interpreted, since signed-int, unsigned-int, and float attachments use
// distinct VkClearColorValue union members (§4.6 "Clear colour encoding").
type ClearColorEncoding uint8

const (
	ClearEncodingFloat ClearColorEncoding = iota
	ClearEncodingSignedInt
	ClearEncodingUnsignedInt
)

type ClearOperation struct {
	Kind     ClearKind
	Encoding ClearColorEncoding
	Float32  [4]float32
	Int32    [4]int32
	Uint32   [4]uint32
}

// AttachmentRef identifies one image subresource bound as a render target
// attachment: a specific mip level, array slice (or cube face), and 3D depth
// plane of a Texture handle. ImageHandle is opaque here; the vulkan package's
// resource pool resolves it to a concrete *Image.
type AttachmentRef struct {
	ImageHandle core.Handle
	Level       uint32
	Slice       uint32
	DepthPlane  uint32
}

func (a AttachmentRef) IsNil() bool {
	return a.ImageHandle.IsNil()
}

// ColorAttachment is one entry of a RenderTargetDescriptor's color array.
type ColorAttachment struct {
	Target AttachmentRef
	// Resolve is the optional MSAA-resolve destination; zero value means no
	// resolve is requested for this attachment.
	Resolve        AttachmentRef
	ClearOperation ClearOperation
}

func (c ColorAttachment) IsNil() bool {
	return c.Target.IsNil()
}

// RenderTargetDescriptor is the ordered set of attachments a draw pass
// renders into, per spec §3.
type RenderTargetDescriptor struct {
	Colors  []ColorAttachment
	Depth   *AttachmentRef
	Stencil *AttachmentRef

	// DepthResolve is reserved for a future VK_KHR_depth_stencil_resolve
	// wiring (§9 design note, open question resolved as "unsupported").
	// Validate rejects any descriptor that sets it.
	DepthResolve *AttachmentRef

	Width        uint32
	Height       uint32
	ArrayLength  uint32

	// VisibilityBuffer participates in the merge rule (§4.6 rule 4): nil or
	// equal is required to merge two passes. Left as an opaque handle; this
	// core does not interpret its contents.
	VisibilityBuffer interface{}
}

var (
	errStencilWithoutDepth = errors.New("render target descriptor: stencil attachment without depth is unsupported")
	errDepthResolveUnsupported = errors.New("render target descriptor: depth-stencil resolve attachments are unsupported")
)

// Validate enforces §3's render-target invariants: all non-nil attachments
// share the same size; stencil without depth is rejected; depth-stencil
// resolve is rejected (§9 design note, open question).
func (d RenderTargetDescriptor) Validate() error {
	if d.Stencil != nil && d.Depth == nil {
		return errStencilWithoutDepth
	}
	if d.DepthResolve != nil {
		return errDepthResolveUnsupported
	}
	for i, c := range d.Colors {
		if c.IsNil() {
			continue
		}
		// Size agreement is enforced at the Width/Height level for the whole
		// descriptor; per-attachment texture dimensions are checked by the
		// caller against d.Width/d.Height when resolving handles, since this
		// package does not resolve AttachmentRef.ImageHandle to a concrete
		// texture size.
		_ = i
	}
	if d.Width == 0 || d.Height == 0 {
		return fmt.Errorf("render target descriptor: size must be non-zero, got %dx%d", d.Width, d.Height)
	}
	return nil
}

// ColorCount returns the number of non-nil color attachments.
func (d RenderTargetDescriptor) ColorCount() int {
	n := 0
	for _, c := range d.Colors {
		if !c.IsNil() {
			n++
		}
	}
	return n
}

// CompatibleWith implements §4.10's render-target-descriptor compatibility
// rule used both by the pipeline state cache and by the render-target
// planner's merge gate (§4.6 rules 2/3). d is the already-accumulated group,
// other is the candidate being considered for merge into d.
//
// Two descriptors with different attachment counts are compatible only if
// the trailing slots on the longer side are all nil. Within the shared
// prefix, each color slot must be pairwise either: both nil, or identical
// (same image handle, level, slice, depth plane) with no clear requested by
// the candidate — re-clearing an attachment already written by an earlier
// subpass in the same render pass is not representable. Any other pairing
// (different attachments at the same slot, one nil and the other not, or an
// identical attachment the candidate wants to clear) is a mismatch and
// rejects the merge.
func attachmentRefsEqual(a, b AttachmentRef) bool {
	return a.ImageHandle == b.ImageHandle && a.Level == b.Level && a.Slice == b.Slice && a.DepthPlane == b.DepthPlane
}

func (c ClearOperation) isKeep() bool {
	return c.Kind == ClearKeep
}

func (d RenderTargetDescriptor) CompatibleWith(other RenderTargetDescriptor) bool {
	longer, shorter := d.Colors, other.Colors
	if len(shorter) > len(longer) {
		longer, shorter = shorter, longer
	}
	for i := range shorter {
		aNil, bNil := shorter[i].IsNil(), longer[i].IsNil()
		if aNil != bNil {
			return false
		}
	}
	for i := len(shorter); i < len(longer); i++ {
		if !longer[i].IsNil() {
			return false
		}
	}

	for i := 0; i < len(d.Colors) && i < len(other.Colors); i++ {
		a, b := d.Colors[i], other.Colors[i]
		if a.IsNil() || b.IsNil() {
			continue
		}
		if !attachmentRefsEqual(a.Target, b.Target) {
			return false
		}
		if !b.ClearOperation.isKeep() {
			// the candidate would re-clear an attachment d already wrote to
			// in an earlier subpass of the same render pass.
			return false
		}
	}

	if (d.Depth == nil) != (other.Depth == nil) {
		return false
	}
	if d.Depth != nil && other.Depth != nil && !attachmentRefsEqual(*d.Depth, *other.Depth) {
		return false
	}
	return true
}
