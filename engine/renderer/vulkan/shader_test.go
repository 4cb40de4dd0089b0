package vulkan

import (
	"encoding/binary"
	"testing"

	"github.com/kestrel-render/vkcore/engine/renderer/metadata"
	vk "github.com/goki/vulkan"
)

func packSPIRV(words []uint32) []byte {
	out := make([]byte, len(words)*4)
	for i, w := range words {
		binary.LittleEndian.PutUint32(out[i*4:], w)
	}
	return out
}

// minimalUniformBufferModule builds a hand-assembled SPIR-V module declaring
// one uniform-buffer variable at (set=0, binding=1): a struct type, a pointer
// to it in the Uniform storage class, the variable itself, and its two
// binding decorations.
func minimalUniformBufferModule() []byte {
	const (
		structID = 10
		ptrID    = 11
		varID    = 12
	)
	words := []uint32{
		spirvMagicNumber, 0x00010000, 0, 13, 0, // header
		(2 << 16) | uint32(opTypeStruct), structID,
		(4 << 16) | uint32(opTypePointer), ptrID, storageClassUniform, structID,
		(4 << 16) | uint32(opVariable), ptrID, varID, storageClassUniform,
		(4 << 16) | uint32(opDecorate), varID, decorationDescriptorSet, 0,
		(4 << 16) | uint32(opDecorate), varID, decorationBinding, 1,
	}
	return packSPIRV(words)
}

func TestReflectSPIRVFindsUniformBufferBinding(t *testing.T) {
	bindings, err := ReflectSPIRV(minimalUniformBufferModule(), vk.ShaderStageVertexBit)
	if err != nil {
		t.Fatalf("ReflectSPIRV: %v", err)
	}
	if len(bindings) != 1 {
		t.Fatalf("expected 1 binding, got %d", len(bindings))
	}
	b := bindings[0]
	if b.Path.Set != 0 || b.Path.Binding != 1 {
		t.Fatalf("unexpected path: %+v", b.Path)
	}
	if b.ResourceType != metadata.ResourceTypeUniformBuffer {
		t.Fatalf("expected uniform buffer resource type, got %v", b.ResourceType)
	}
}

func TestReflectSPIRVRejectsBadMagic(t *testing.T) {
	bad := packSPIRV([]uint32{0xDEADBEEF, 0, 0, 0, 0})
	if _, err := ReflectSPIRV(bad, vk.ShaderStageVertexBit); err == nil {
		t.Fatalf("expected an error for a bad magic number")
	}
}

func TestShaderModuleCacheMergesBindingsAcrossStages(t *testing.T) {
	reflection := metadata.NewShaderReflection(metadata.GraphicsLayoutKey("v", "f"))
	mergeBindings(reflection, []metadata.ReflectedBinding{
		{Path: metadata.BindingPath{Set: 0, Binding: 0}, ResourceType: metadata.ResourceTypeUniformBuffer, AccessedStages: vk.ShaderStageFlags(vk.ShaderStageVertexBit)},
	})
	mergeBindings(reflection, []metadata.ReflectedBinding{
		{Path: metadata.BindingPath{Set: 0, Binding: 0}, ResourceType: metadata.ResourceTypeUniformBuffer, AccessedStages: vk.ShaderStageFlags(vk.ShaderStageFragmentBit)},
	})

	if len(reflection.Ordered) != 1 {
		t.Fatalf("expected bindings to merge into one entry, got %d", len(reflection.Ordered))
	}
	merged := reflection.Bindings[metadata.BindingPath{Set: 0, Binding: 0}]
	want := vk.ShaderStageFlags(vk.ShaderStageVertexBit) | vk.ShaderStageFlags(vk.ShaderStageFragmentBit)
	if merged.AccessedStages != want {
		t.Fatalf("AccessedStages = %v, want %v", merged.AccessedStages, want)
	}
}
