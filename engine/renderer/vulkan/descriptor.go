package vulkan

import (
	"fmt"
	"sync"
	"unsafe"

	vk "github.com/goki/vulkan"
	"github.com/kestrel-render/vkcore/engine/core"
	"github.com/kestrel-render/vkcore/engine/renderer/metadata"
)

// descriptorSetLayoutCache caches one VkDescriptorSetLayout per
// metadata.DescriptorSetLayoutKey (§3/§4.4): a (shader fingerprint, set
// index) pair always produces the same layout, so two pipelines sharing a
// reflection also share their descriptor-set layouts and can interchange
// descriptor sets bound to that slot.
type descriptorSetLayoutCache struct {
	mu      sync.Mutex
	layouts map[metadata.DescriptorSetLayoutKey]vk.DescriptorSetLayout
}

func newDescriptorSetLayoutCache() *descriptorSetLayoutCache {
	return &descriptorSetLayoutCache{layouts: make(map[metadata.DescriptorSetLayoutKey]vk.DescriptorSetLayout)}
}

// getOrCreate builds the VkDescriptorSetLayout for one set index from the
// subset of a ShaderReflection's bindings that belong to it, marking
// array-capable bindings PARTIALLY_BOUND per §4.4 so a shader can leave
// trailing array slots unbound.
func (c *descriptorSetLayoutCache) getOrCreate(context *VulkanContext, key metadata.DescriptorSetLayoutKey, reflection *metadata.ShaderReflection) (vk.DescriptorSetLayout, error) {
	c.mu.Lock()
	if layout, ok := c.layouts[key]; ok {
		c.mu.Unlock()
		return layout, nil
	}
	c.mu.Unlock()

	var bindings []vk.DescriptorSetLayoutBinding
	var bindingFlags []vk.DescriptorBindingFlags
	for _, b := range reflection.Ordered {
		if b.Path.Set != key.SetIndex || b.Path.Binding == metadata.ArgBufferSentinel {
			continue
		}
		arrayLength := b.ArrayLength
		if arrayLength == 0 {
			arrayLength = 1
		}
		bindings = append(bindings, vk.DescriptorSetLayoutBinding{
			Binding:         b.Path.Binding,
			DescriptorType:  b.ResourceType.ToVulkanDescriptorType(),
			DescriptorCount: arrayLength,
			StageFlags:      b.AccessedStages,
		})
		var flags vk.DescriptorBindingFlagBits
		if arrayLength > 1 {
			flags |= vk.DescriptorBindingPartiallyBoundBit
		}
		bindingFlags = append(bindingFlags, vk.DescriptorBindingFlags(flags))
	}

	bindingFlagsInfo := vk.DescriptorSetLayoutBindingFlagsCreateInfo{
		SType:         vk.StructureTypeDescriptorSetLayoutBindingFlagsCreateInfo,
		BindingCount:  uint32(len(bindingFlags)),
		PBindingFlags: bindingFlags,
	}
	createInfo := vk.DescriptorSetLayoutCreateInfo{
		SType:        vk.StructureTypeDescriptorSetLayoutCreateInfo,
		PNext:        unsafe.Pointer(&bindingFlagsInfo),
		BindingCount: uint32(len(bindings)),
		PBindings:    bindings,
	}

	var layout vk.DescriptorSetLayout
	if res := vk.CreateDescriptorSetLayout(context.Device.LogicalDevice, &createInfo, context.Allocator, &layout); res != vk.Success {
		return nil, fmt.Errorf("failed to create descriptor set layout: %s", VulkanResultString(res, true))
	}

	c.mu.Lock()
	c.layouts[key] = layout
	c.mu.Unlock()
	return layout, nil
}

func (c *descriptorSetLayoutCache) Destroy(context *VulkanContext) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key, layout := range c.layouts {
		vk.DestroyDescriptorSetLayout(context.Device.LogicalDevice, layout, context.Allocator)
		delete(c.layouts, key)
	}
}

// pipelineLayoutCache caches one VkPipelineLayout per
// metadata.PipelineLayoutKey, built from the descriptor-set layouts for every
// set referenced by the shader's reflection, plus a single push-constant
// range sized to cover the reflected push-constant binding if present.
type pipelineLayoutCache struct {
	mu      sync.Mutex
	layouts map[metadata.PipelineLayoutKey]vk.PipelineLayout
	sets    *descriptorSetLayoutCache
}

func newPipelineLayoutCache() *pipelineLayoutCache {
	return &pipelineLayoutCache{
		layouts: make(map[metadata.PipelineLayoutKey]vk.PipelineLayout),
		sets:    newDescriptorSetLayoutCache(),
	}
}

func (c *pipelineLayoutCache) getOrCreate(context *VulkanContext, reflection *metadata.ShaderReflection, pushConstantSize uint32) (vk.PipelineLayout, []vk.DescriptorSetLayout, error) {
	c.mu.Lock()
	if layout, ok := c.layouts[reflection.Key]; ok {
		c.mu.Unlock()
		return layout, c.setLayoutsFor(reflection), nil
	}
	c.mu.Unlock()

	maxSet := reflection.MaxUsedSet()
	setLayouts := make([]vk.DescriptorSetLayout, 0, maxSet+1)
	for set := 0; set <= maxSet; set++ {
		layout, err := c.sets.getOrCreate(context, metadata.DescriptorSetLayoutKey{Fingerprint: reflection.Key, SetIndex: uint32(set)}, reflection)
		if err != nil {
			return nil, nil, err
		}
		setLayouts = append(setLayouts, layout)
	}

	createInfo := vk.PipelineLayoutCreateInfo{
		SType:          vk.StructureTypePipelineLayoutCreateInfo,
		SetLayoutCount: uint32(len(setLayouts)),
		PSetLayouts:    setLayouts,
	}

	var pushRanges []vk.PushConstantRange
	if pushConstantSize > 0 {
		if binding, ok := reflection.Bindings[metadata.PushConstantPath()]; ok {
			if needed := binding.BindingRange.MaxOffset; needed > uint64(pushConstantSize) {
				return nil, nil, fmt.Errorf("pipeline layout %v: shader accesses push constant byte %d but only %d bytes were supplied: %w",
					reflection.Key, needed, pushConstantSize, core.ErrPushConstantSizeMismatch)
			}
			pushRanges = []vk.PushConstantRange{{
				StageFlags: vk.ShaderStageFlags(vk.ShaderStageVertexBit) | vk.ShaderStageFlags(vk.ShaderStageFragmentBit),
				Offset:     0,
				Size:       pushConstantSize,
			}}
			createInfo.PushConstantRangeCount = 1
			createInfo.PPushConstantRanges = pushRanges
		}
	}

	var layout vk.PipelineLayout
	if res := vk.CreatePipelineLayout(context.Device.LogicalDevice, &createInfo, context.Allocator, &layout); res != vk.Success {
		return nil, nil, fmt.Errorf("failed to create pipeline layout: %s", VulkanResultString(res, true))
	}

	c.mu.Lock()
	c.layouts[reflection.Key] = layout
	c.mu.Unlock()
	return layout, setLayouts, nil
}

func (c *pipelineLayoutCache) setLayoutsFor(reflection *metadata.ShaderReflection) []vk.DescriptorSetLayout {
	maxSet := reflection.MaxUsedSet()
	out := make([]vk.DescriptorSetLayout, 0, maxSet+1)
	c.sets.mu.Lock()
	defer c.sets.mu.Unlock()
	for set := 0; set <= maxSet; set++ {
		out = append(out, c.sets.layouts[metadata.DescriptorSetLayoutKey{Fingerprint: reflection.Key, SetIndex: uint32(set)}])
	}
	return out
}

func (c *pipelineLayoutCache) Destroy(context *VulkanContext) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key, layout := range c.layouts {
		vk.DestroyPipelineLayout(context.Device.LogicalDevice, layout, context.Allocator)
		delete(c.layouts, key)
	}
	c.sets.Destroy(context)
}
