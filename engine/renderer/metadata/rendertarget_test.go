package metadata

import (
	"testing"

	"github.com/kestrel-render/vkcore/engine/core"
)

func ref(idx uint32) AttachmentRef {
	return AttachmentRef{ImageHandle: core.Handle{Index: idx, Generation: 1}}
}

func TestRenderTargetDescriptorValidateStencilWithoutDepth(t *testing.T) {
	d := RenderTargetDescriptor{
		Width: 64, Height: 64,
		Stencil: &AttachmentRef{ImageHandle: core.Handle{Index: 1, Generation: 1}},
	}
	if err := d.Validate(); err != errStencilWithoutDepth {
		t.Fatalf("Validate() = %v, want errStencilWithoutDepth", err)
	}
}

func TestRenderTargetDescriptorValidateDepthResolveRejected(t *testing.T) {
	d := RenderTargetDescriptor{
		Width: 64, Height: 64,
		DepthResolve: &AttachmentRef{ImageHandle: core.Handle{Index: 1, Generation: 1}},
	}
	if err := d.Validate(); err != errDepthResolveUnsupported {
		t.Fatalf("Validate() = %v, want errDepthResolveUnsupported", err)
	}
}

func TestRenderTargetDescriptorCompatibleWithTrailingNils(t *testing.T) {
	a := RenderTargetDescriptor{Colors: []ColorAttachment{{Target: ref(1)}, {}}}
	b := RenderTargetDescriptor{Colors: []ColorAttachment{{Target: ref(1)}}}
	if !a.CompatibleWith(b) {
		t.Fatalf("expected compatible: trailing slot on the longer side (a) is nil")
	}
}

func TestRenderTargetDescriptorIncompatibleMismatchedSlot(t *testing.T) {
	a := RenderTargetDescriptor{Colors: []ColorAttachment{{Target: ref(1)}, {Target: ref(2)}}}
	b := RenderTargetDescriptor{Colors: []ColorAttachment{{}, {Target: ref(2)}}}
	if a.CompatibleWith(b) {
		t.Fatalf("expected incompatible: slot 0 present on a, nil on b")
	}
}

func TestColorCount(t *testing.T) {
	d := RenderTargetDescriptor{Colors: []ColorAttachment{{Target: ref(1)}, {}, {Target: ref(2)}}}
	if d.ColorCount() != 2 {
		t.Fatalf("ColorCount() = %d, want 2", d.ColorCount())
	}
}
