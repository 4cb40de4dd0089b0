package vulkan

import (
	"testing"

	"github.com/kestrel-render/vkcore/engine/renderer/metadata"
)

func baseGraphicsDescriptor() GraphicsPipelineDescriptor {
	return GraphicsPipelineDescriptor{
		VertexStride: 32,
		CullMode:     metadata.CullModeBack,
		Winding:      metadata.WindingCounterClockwise,
		DepthTest:    true,
		DepthWrite:   true,
		DepthCompare: metadata.CompareLess,
		Topology:     metadata.PrimitiveTriangle,
	}
}

func TestGraphicsPipelineKeyIdentityRequiresDescriptorEquality(t *testing.T) {
	shaders := metadata.GraphicsLayoutKey("a.vert", "a.frag")

	a := graphicsPipelineKey{Shaders: shaders, Subpass: 0, Descriptor: baseGraphicsDescriptor()}
	b := graphicsPipelineKey{Shaders: shaders, Subpass: 0, Descriptor: baseGraphicsDescriptor()}
	if a != b {
		t.Fatalf("two keys built from identical fixed-function state must compare equal")
	}

	wireframe := baseGraphicsDescriptor()
	wireframe.Wireframe = true
	c := graphicsPipelineKey{Shaders: shaders, Subpass: 0, Descriptor: wireframe}
	if a == c {
		t.Fatalf("flipping Wireframe must produce a distinct cache key")
	}
}

func TestGraphicsPipelineKeyIdentityRequiresSubpassEquality(t *testing.T) {
	shaders := metadata.GraphicsLayoutKey("a.vert", "a.frag")
	desc := baseGraphicsDescriptor()

	a := graphicsPipelineKey{Shaders: shaders, Subpass: 0, Descriptor: desc}
	b := graphicsPipelineKey{Shaders: shaders, Subpass: 1, Descriptor: desc}
	if a == b {
		t.Fatalf("distinct subpass indices against the same shader combination must not collide")
	}
}

func TestPipelineCacheGetOrCreateGraphicsReusesCachedHandle(t *testing.T) {
	cache := NewPipelineCache(newPipelineLayoutCache())
	shaders := metadata.GraphicsLayoutKey("a.vert", "a.frag")
	desc := baseGraphicsDescriptor()
	key := graphicsPipelineKey{Shaders: shaders, Subpass: 0, Descriptor: desc}

	seeded := &VulkanPipeline{}
	cache.pipelines[key] = seeded

	got, err := cache.GetOrCreateGraphics(nil, &metadata.ShaderReflection{Key: shaders}, nil, nil, &VulkanRenderPass{}, 0, nil, 0, desc)
	if err != nil {
		t.Fatalf("GetOrCreateGraphics returned an error on a cache hit: %v", err)
	}
	if got != seeded {
		t.Fatalf("expected the pre-seeded pipeline back on a cache hit, got a different pointer")
	}
}

func TestBoolToUint32(t *testing.T) {
	if boolToUint32(true) != 1 {
		t.Fatalf("boolToUint32(true) != 1")
	}
	if boolToUint32(false) != 0 {
		t.Fatalf("boolToUint32(false) != 0")
	}
}
