package vulkan

import (
	"fmt"
	"sync"

	vk "github.com/goki/vulkan"
	"github.com/kestrel-render/vkcore/engine/core"
	"github.com/kestrel-render/vkcore/engine/renderer/metadata"
)

// VulkanPipeline holds a compiled graphics pipeline and the layout it was
// built against.
type VulkanPipeline struct {
	Handle         vk.Pipeline
	PipelineLayout vk.PipelineLayout
}

// GraphicsPipelineDescriptor is the fixed-function state of a graphics
// pipeline (§4.10): everything about a pipeline that is NOT covered by
// dynamic state or supplied by the shader reflection. Two descriptors that
// compare equal always produce an interchangeable VkPipeline, so this type
// is the cache key's value component.
type GraphicsPipelineDescriptor struct {
	VertexStride   uint32
	CullMode       metadata.CullMode
	Winding        metadata.Winding
	Wireframe      bool
	DepthTest      bool
	DepthWrite     bool
	DepthCompare   metadata.CompareFunction
	Topology       metadata.PrimitiveType
	BlendEnable    bool
	SrcColorBlend  metadata.BlendFactor
	DstColorBlend  metadata.BlendFactor
	SrcAlphaBlend  metadata.BlendFactor
	DstAlphaBlend  metadata.BlendFactor
}

// graphicsPipelineKey identifies one cached VkPipeline: the shader
// combination, the render pass/subpass it was built against, and its
// fixed-function state (§4.10 "a pipeline is keyed by the fingerprint of
// everything that feeds VkGraphicsPipelineCreateInfo").
type graphicsPipelineKey struct {
	Shaders    metadata.PipelineLayoutKey
	RenderPass vk.RenderPass
	Subpass    uint32
	Descriptor GraphicsPipelineDescriptor
}

// PipelineCache caches compiled VkPipeline objects by graphicsPipelineKey, so
// recording the same draw shape against the same render pass never recompiles
// a pipeline twice (§4.10).
type PipelineCache struct {
	mu       sync.Mutex
	pipelines map[graphicsPipelineKey]*VulkanPipeline
	layouts  *pipelineLayoutCache
}

func NewPipelineCache(layouts *pipelineLayoutCache) *PipelineCache {
	return &PipelineCache{
		pipelines: make(map[graphicsPipelineKey]*VulkanPipeline),
		layouts:   layouts,
	}
}

// GetOrCreateGraphics builds (or reuses) the pipeline for one shader
// combination, render pass/subpass, attribute layout, and fixed-function
// descriptor. attributes must already be laid out for binding 0.
func (c *PipelineCache) GetOrCreateGraphics(
	context *VulkanContext,
	reflection *metadata.ShaderReflection,
	vertexStage, fragmentStage *VulkanShaderStage,
	renderpass *VulkanRenderPass,
	subpass uint32,
	attributes []vk.VertexInputAttributeDescription,
	pushConstantSize uint32,
	desc GraphicsPipelineDescriptor,
) (*VulkanPipeline, error) {
	key := graphicsPipelineKey{Shaders: reflection.Key, RenderPass: renderpass.Handle, Subpass: subpass, Descriptor: desc}

	c.mu.Lock()
	if pipeline, ok := c.pipelines[key]; ok {
		c.mu.Unlock()
		return pipeline, nil
	}
	c.mu.Unlock()

	layout, setLayouts, err := c.layouts.getOrCreate(context, reflection, pushConstantSize)
	if err != nil {
		return nil, err
	}

	pipeline, err := newGraphicsPipeline(context, renderpass, subpass, desc, attributes,
		[]vk.PipelineShaderStageCreateInfo{vertexStage.ShaderStageCreateInfo, fragmentStage.ShaderStageCreateInfo},
		layout, setLayouts)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.pipelines[key] = pipeline
	c.mu.Unlock()
	return pipeline, nil
}

func (c *PipelineCache) Destroy(context *VulkanContext) {
	c.mu.Lock()
	for key, pipeline := range c.pipelines {
		vk.DestroyPipeline(context.Device.LogicalDevice, pipeline.Handle, context.Allocator)
		delete(c.pipelines, key)
	}
	c.mu.Unlock()
	c.layouts.Destroy(context)
}

// newGraphicsPipeline assembles the VkGraphicsPipelineCreateInfo for one
// descriptor. Viewport, scissor, depth bias, blend constants, and the
// stencil reference are all left dynamic (§4.10) so one pipeline serves
// every framebuffer size and per-draw blend/stencil tweak without rebuilding.
func newGraphicsPipeline(
	context *VulkanContext,
	renderpass *VulkanRenderPass,
	subpass uint32,
	desc GraphicsPipelineDescriptor,
	attributes []vk.VertexInputAttributeDescription,
	stages []vk.PipelineShaderStageCreateInfo,
	layout vk.PipelineLayout,
	setLayouts []vk.DescriptorSetLayout,
) (*VulkanPipeline, error) {
	out := &VulkanPipeline{PipelineLayout: layout}

	viewportState := vk.PipelineViewportStateCreateInfo{
		SType:         vk.StructureTypePipelineViewportStateCreateInfo,
		ViewportCount: 1,
		ScissorCount:  1,
	}

	polygonMode := vk.PolygonModeFill
	if desc.Wireframe {
		polygonMode = vk.PolygonModeLine
	}
	rasterizer := vk.PipelineRasterizationStateCreateInfo{
		SType:                   vk.StructureTypePipelineRasterizationStateCreateInfo,
		DepthClampEnable:        vk.False,
		RasterizerDiscardEnable: vk.False,
		PolygonMode:             polygonMode,
		LineWidth:               1.0,
		CullMode:                vk.CullModeFlags(desc.CullMode.ToVulkan()),
		FrontFace:               desc.Winding.ToVulkan(),
		DepthBiasEnable:         vk.True, // dynamic, constant/clamp/slope supplied per draw
	}

	multisampling := vk.PipelineMultisampleStateCreateInfo{
		SType:                vk.StructureTypePipelineMultisampleStateCreateInfo,
		SampleShadingEnable:  vk.False,
		RasterizationSamples: vk.SampleCount1Bit,
		MinSampleShading:     1.0,
	}

	depthStencil := vk.PipelineDepthStencilStateCreateInfo{
		SType:                 vk.StructureTypePipelineDepthStencilStateCreateInfo,
		DepthTestEnable:       vk.Bool32(boolToUint32(desc.DepthTest)),
		DepthWriteEnable:      vk.Bool32(boolToUint32(desc.DepthWrite)),
		DepthCompareOp:        desc.DepthCompare.ToVulkan(),
		DepthBoundsTestEnable: vk.False,
		StencilTestEnable:     vk.False,
	}

	colorBlendAttachment := vk.PipelineColorBlendAttachmentState{
		BlendEnable:         vk.Bool32(boolToUint32(desc.BlendEnable)),
		SrcColorBlendFactor: desc.SrcColorBlend.ToVulkan(),
		DstColorBlendFactor: desc.DstColorBlend.ToVulkan(),
		ColorBlendOp:        vk.BlendOpAdd,
		SrcAlphaBlendFactor: desc.SrcAlphaBlend.ToVulkan(),
		DstAlphaBlendFactor: desc.DstAlphaBlend.ToVulkan(),
		AlphaBlendOp:        vk.BlendOpAdd,
		ColorWriteMask: vk.ColorComponentFlags(vk.ColorComponentRBit) | vk.ColorComponentFlags(vk.ColorComponentGBit) |
			vk.ColorComponentFlags(vk.ColorComponentBBit) | vk.ColorComponentFlags(vk.ColorComponentABit),
	}

	colorBlendState := vk.PipelineColorBlendStateCreateInfo{
		SType:           vk.StructureTypePipelineColorBlendStateCreateInfo,
		LogicOpEnable:   vk.False,
		LogicOp:         vk.LogicOpCopy,
		AttachmentCount: 1,
		PAttachments:    []vk.PipelineColorBlendAttachmentState{colorBlendAttachment},
	}

	dynamicStates := []vk.DynamicState{
		vk.DynamicStateViewport,
		vk.DynamicStateScissor,
		vk.DynamicStateDepthBias,
		vk.DynamicStateBlendConstants,
		vk.DynamicStateStencilReference,
	}
	dynamicState := vk.PipelineDynamicStateCreateInfo{
		SType:             vk.StructureTypePipelineDynamicStateCreateInfo,
		DynamicStateCount: uint32(len(dynamicStates)),
		PDynamicStates:    dynamicStates,
	}

	bindingDescription := vk.VertexInputBindingDescription{
		Binding:   0,
		Stride:    desc.VertexStride,
		InputRate: vk.VertexInputRateVertex,
	}
	vertexInput := vk.PipelineVertexInputStateCreateInfo{
		SType:                           vk.StructureTypePipelineVertexInputStateCreateInfo,
		VertexBindingDescriptionCount:   1,
		PVertexBindingDescriptions:      []vk.VertexInputBindingDescription{bindingDescription},
		VertexAttributeDescriptionCount: uint32(len(attributes)),
		PVertexAttributeDescriptions:    attributes,
	}

	inputAssembly := vk.PipelineInputAssemblyStateCreateInfo{
		SType:                  vk.StructureTypePipelineInputAssemblyStateCreateInfo,
		Topology:               desc.Topology.ToVulkan(),
		PrimitiveRestartEnable: vk.False,
	}

	createInfo := vk.GraphicsPipelineCreateInfo{
		SType:               vk.StructureTypeGraphicsPipelineCreateInfo,
		StageCount:          uint32(len(stages)),
		PStages:             stages,
		PVertexInputState:   &vertexInput,
		PInputAssemblyState: &inputAssembly,
		PViewportState:      &viewportState,
		PRasterizationState: &rasterizer,
		PMultisampleState:   &multisampling,
		PColorBlendState:    &colorBlendState,
		PDynamicState:       &dynamicState,
		Layout:              layout,
		RenderPass:          renderpass.Handle,
		Subpass:             subpass,
		BasePipelineHandle:  vk.NullPipeline,
		BasePipelineIndex:   -1,
	}
	if desc.DepthTest {
		createInfo.PDepthStencilState = &depthStencil
	}

	handles := make([]vk.Pipeline, 1)
	result := vk.CreateGraphicsPipelines(
		context.Device.LogicalDevice,
		vk.NullPipelineCache,
		1,
		[]vk.GraphicsPipelineCreateInfo{createInfo},
		context.Allocator,
		handles)
	if !VulkanResultIsSuccess(result) {
		return nil, fmt.Errorf("vkCreateGraphicsPipelines failed with %s", VulkanResultString(result, true))
	}
	out.Handle = handles[0]

	core.LogDebug("graphics pipeline created with %d descriptor set layouts", len(setLayouts))
	return out, nil
}

func boolToUint32(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}

func (pipeline *VulkanPipeline) Destroy(context *VulkanContext) {
	if pipeline.Handle != nil {
		vk.DestroyPipeline(context.Device.LogicalDevice, pipeline.Handle, context.Allocator)
		pipeline.Handle = nil
	}
	// PipelineLayout lifetime is owned by pipelineLayoutCache; not destroyed here.
}

func (pipeline *VulkanPipeline) Bind(commandBuffer *VulkanCommandBuffer, bindPoint vk.PipelineBindPoint) {
	vk.CmdBindPipeline(commandBuffer.Handle, bindPoint, pipeline.Handle)
}
