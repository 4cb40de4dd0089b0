package vulkan

import (
	"testing"

	"github.com/kestrel-render/vkcore/engine/core"
	"github.com/kestrel-render/vkcore/engine/renderer/metadata"
)

func twoColorGroups(vbufA, vbufB interface{}) (*metadata.RenderTargetGroup, *metadata.RenderTargetGroup) {
	descA := metadata.RenderTargetDescriptor{
		Colors:           []metadata.ColorAttachment{{}},
		Width:            800,
		Height:           600,
		VisibilityBuffer: vbufA,
	}
	descB := descA
	descB.VisibilityBuffer = vbufB

	a := &metadata.RenderTargetGroup{
		Descriptor: descA,
		Subpasses:  []*metadata.Subpass{metadata.NewSubpass(descA, 0)},
		ColorOps:   []metadata.AttachmentOpState{{}},
	}
	b := &metadata.RenderTargetGroup{
		Descriptor: descB,
		Subpasses:  []*metadata.Subpass{metadata.NewSubpass(descB, 0)},
		ColorOps:   []metadata.AttachmentOpState{{}},
	}
	return a, b
}

func TestTryMergeRenderTargetGroupsCompatibleShapesMerge(t *testing.T) {
	a, b := twoColorGroups(nil, nil)
	merged, ok := TryMergeRenderTargetGroups(a, b)
	if !ok {
		t.Fatalf("expected compatible groups to merge")
	}
	if len(merged.Subpasses) != 2 {
		t.Fatalf("expected 2 subpasses after merge, got %d", len(merged.Subpasses))
	}
	if merged.Subpasses[0].Index != 0 || merged.Subpasses[1].Index != 1 {
		t.Fatalf("expected re-indexed subpasses [0,1], got [%d,%d]", merged.Subpasses[0].Index, merged.Subpasses[1].Index)
	}
}

func TestTryMergeRenderTargetGroupsConflictingVisibilityBufferRejected(t *testing.T) {
	a, b := twoColorGroups("buffer-a", "buffer-b")
	if _, ok := TryMergeRenderTargetGroups(a, b); ok {
		t.Fatalf("expected conflicting visibility buffers to block the merge")
	}
}

func TestTryMergeRenderTargetGroupsIncompatibleShapeRejected(t *testing.T) {
	a, _ := twoColorGroups(nil, nil)
	b := &metadata.RenderTargetGroup{
		Descriptor: metadata.RenderTargetDescriptor{
			Colors: []metadata.ColorAttachment{{}, {}},
			Width:  800,
			Height: 600,
			Depth:  &metadata.AttachmentRef{},
		},
	}
	if _, ok := TryMergeRenderTargetGroups(a, b); ok {
		t.Fatalf("expected incompatible attachment shapes to block the merge")
	}
}

// Two groups of the same shape (one color slot each, no depth) but backed by
// unrelated textures must not merge, even though twoColorGroups's zero-value
// ColorAttachment{} always passes the old shape-only check. This is the case
// DESCRIPTION §4.6 rules 2/3 exist to catch.
func TestTryMergeRenderTargetGroupsDistinctAttachmentsRejected(t *testing.T) {
	slab := core.NewHandleSlab()
	handleA := slab.Acquire("texture-a")
	handleB := slab.Acquire("texture-b")

	descA := metadata.RenderTargetDescriptor{
		Colors: []metadata.ColorAttachment{{Target: metadata.AttachmentRef{ImageHandle: handleA}}},
		Width:  800,
		Height: 600,
	}
	descB := metadata.RenderTargetDescriptor{
		Colors: []metadata.ColorAttachment{{Target: metadata.AttachmentRef{ImageHandle: handleB}}},
		Width:  800,
		Height: 600,
	}

	a := &metadata.RenderTargetGroup{
		Descriptor: descA,
		Subpasses:  []*metadata.Subpass{metadata.NewSubpass(descA, 0)},
		ColorOps:   []metadata.AttachmentOpState{{}},
	}
	b := &metadata.RenderTargetGroup{
		Descriptor: descB,
		Subpasses:  []*metadata.Subpass{metadata.NewSubpass(descB, 0)},
		ColorOps:   []metadata.AttachmentOpState{{}},
	}

	if _, ok := TryMergeRenderTargetGroups(a, b); ok {
		t.Fatalf("expected groups targeting distinct, unrelated textures to be rejected")
	}
}

// Merging into the same attachment a prior subpass already wrote is fine
// only if the candidate doesn't re-clear it; a candidate that clears an
// attachment the accumulated group already owns must be rejected.
func TestTryMergeRenderTargetGroupsReclearOfSameAttachmentRejected(t *testing.T) {
	slab := core.NewHandleSlab()
	handle := slab.Acquire("texture-a")

	descA := metadata.RenderTargetDescriptor{
		Colors: []metadata.ColorAttachment{{Target: metadata.AttachmentRef{ImageHandle: handle}}},
		Width:  800,
		Height: 600,
	}
	descB := metadata.RenderTargetDescriptor{
		Colors: []metadata.ColorAttachment{{
			Target:         metadata.AttachmentRef{ImageHandle: handle},
			ClearOperation: metadata.ClearOperation{Kind: metadata.ClearColor},
		}},
		Width:  800,
		Height: 600,
	}

	a := &metadata.RenderTargetGroup{
		Descriptor: descA,
		Subpasses:  []*metadata.Subpass{metadata.NewSubpass(descA, 0)},
		ColorOps:   []metadata.AttachmentOpState{{}},
	}
	b := &metadata.RenderTargetGroup{
		Descriptor: descB,
		Subpasses:  []*metadata.Subpass{metadata.NewSubpass(descB, 0)},
		ColorOps:   []metadata.AttachmentOpState{{}},
	}

	if _, ok := TryMergeRenderTargetGroups(a, b); ok {
		t.Fatalf("expected a candidate re-clearing an already-written attachment to be rejected")
	}
}

// clearValueOf's three branches each call a distinct vk.ClearValue.SetColor
// overload; this just exercises all three without panicking, since the
// union's internal representation isn't inspectable from outside the binding.
func TestClearValueOfHandlesEveryEncoding(t *testing.T) {
	clearValueOf(metadata.ClearOperation{Encoding: metadata.ClearEncodingFloat, Float32: [4]float32{1, 0, 0, 1}})
	clearValueOf(metadata.ClearOperation{Encoding: metadata.ClearEncodingSignedInt, Int32: [4]int32{-1, 2, 3, 4}})
	clearValueOf(metadata.ClearOperation{Encoding: metadata.ClearEncodingUnsignedInt, Uint32: [4]uint32{1, 2, 3, 4}})
}
