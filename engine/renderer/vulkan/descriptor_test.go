package vulkan

import (
	"testing"

	vk "github.com/goki/vulkan"
	"github.com/kestrel-render/vkcore/engine/renderer/metadata"
)

func TestSetLayoutsForReturnsOneEntryPerUsedSet(t *testing.T) {
	key := metadata.GraphicsLayoutKey("triangle.vert", "triangle.frag")
	reflection := metadata.NewShaderReflection(key)
	reflection.Bindings[metadata.BindingPath{Set: 0, Binding: 0}] = metadata.ReflectedBinding{Path: metadata.BindingPath{Set: 0, Binding: 0}}
	reflection.Bindings[metadata.BindingPath{Set: 2, Binding: 1}] = metadata.ReflectedBinding{Path: metadata.BindingPath{Set: 2, Binding: 1}}

	cache := newPipelineLayoutCache()
	var set0, set1, set2 vk.DescriptorSetLayout
	cache.sets.layouts[metadata.DescriptorSetLayoutKey{Fingerprint: key, SetIndex: 0}] = set0
	cache.sets.layouts[metadata.DescriptorSetLayoutKey{Fingerprint: key, SetIndex: 1}] = set1
	cache.sets.layouts[metadata.DescriptorSetLayoutKey{Fingerprint: key, SetIndex: 2}] = set2

	got := cache.setLayoutsFor(reflection)
	if len(got) != 3 {
		t.Fatalf("setLayoutsFor returned %d layouts, want 3 (sets 0..=%d)", len(got), reflection.MaxUsedSet())
	}
}

func TestSetLayoutsForPushConstantOnlyReflectionIsEmpty(t *testing.T) {
	key := metadata.ComputeLayoutKey("particles.comp")
	reflection := metadata.NewShaderReflection(key)
	reflection.Bindings[metadata.PushConstantPath()] = metadata.ReflectedBinding{Path: metadata.PushConstantPath()}

	if reflection.MaxUsedSet() != -1 {
		t.Fatalf("MaxUsedSet() = %d, want -1 for a push-constant-only reflection", reflection.MaxUsedSet())
	}

	cache := newPipelineLayoutCache()
	got := cache.setLayoutsFor(reflection)
	if len(got) != 0 {
		t.Fatalf("setLayoutsFor = %d layouts, want 0", len(got))
	}
}

func TestDescriptorSetLayoutKeyIdentityDistinguishesSetIndex(t *testing.T) {
	fp := metadata.GraphicsLayoutKey("a.vert", "a.frag")
	a := metadata.DescriptorSetLayoutKey{Fingerprint: fp, SetIndex: 0}
	b := metadata.DescriptorSetLayoutKey{Fingerprint: fp, SetIndex: 1}
	if a == b {
		t.Fatalf("distinct set indices must produce distinct cache keys")
	}

	cache := newDescriptorSetLayoutCache()
	var layout vk.DescriptorSetLayout
	cache.layouts[a] = layout
	if _, ok := cache.layouts[b]; ok {
		t.Fatalf("set index 1 should not have been populated by seeding set index 0")
	}
}
