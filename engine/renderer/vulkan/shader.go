package vulkan

import (
	"encoding/binary"
	"fmt"
	"sync"

	vk "github.com/goki/vulkan"
	"github.com/kestrel-render/vkcore/engine/core"
	"github.com/kestrel-render/vkcore/engine/renderer/metadata"
)

const (
	spirvMagicNumber uint32 = 0x07230203

	opEntryPoint          uint16 = 15
	opTypeImage           uint16 = 25
	opTypeSampledImage    uint16 = 27
	opTypeStruct          uint16 = 30
	opTypePointer         uint16 = 32
	opVariable            uint16 = 59
	opDecorate            uint16 = 71
	opMemberDecorate      uint16 = 72

	decorationBinding     uint32 = 33
	decorationDescriptorSet uint32 = 34

	storageClassUniformConstant uint32 = 0
	storageClassUniform         uint32 = 2
	storageClassStorageBuffer   uint32 = 12
	storageClassPushConstant    uint32 = 9
)

// spirvVariable is the intermediate reflection record for one OpVariable
// before its (set, binding) decorations and resource kind are resolved.
type spirvVariable struct {
	id            uint32
	resultType    uint32
	storageClass  uint32
	set, binding  uint32
	hasSet        bool
	hasBinding    bool
}

// ReflectSPIRV performs a minimal SPIR-V reflection pass (§4.4): it walks the
// module's instruction stream once, tracking OpVariable declarations in the
// UniformConstant/Uniform/StorageBuffer/PushConstant storage classes and the
// OpDecorate Binding/DescriptorSet annotations attached to them, then
// classifies each by its pointee's OpType (image, sampled image, or struct)
// to produce a ResourceType. No SPIR-V reflection library exists anywhere in
// the reference corpus, so this walks the raw word stream directly with
// encoding/binary rather than depending on one.
func ReflectSPIRV(spirv []byte, stage vk.ShaderStageFlagBits) ([]metadata.ReflectedBinding, error) {
	if len(spirv) < 20 || len(spirv)%4 != 0 {
		return nil, fmt.Errorf("spirv reflection: module size %d is not a valid word stream", len(spirv))
	}
	words := make([]uint32, len(spirv)/4)
	for i := range words {
		words[i] = binary.LittleEndian.Uint32(spirv[i*4:])
	}
	if words[0] != spirvMagicNumber {
		return nil, fmt.Errorf("spirv reflection: bad magic number 0x%x", words[0])
	}

	variables := make(map[uint32]*spirvVariable)
	pointeeTypes := make(map[uint32]uint32) // OpTypePointer result id -> pointee type id
	imageTypes := make(map[uint32]bool)
	sampledImageTypes := make(map[uint32]bool)
	structTypes := make(map[uint32]bool)
	names := make(map[uint32]string)

	i := 5 // word stream starts after the 5-word header
	for i < len(words) {
		instrLen := words[i] >> 16
		opcode := uint16(words[i] & 0xFFFF)
		if instrLen == 0 || i+int(instrLen) > len(words) {
			break
		}
		operands := words[i+1 : i+int(instrLen)]

		switch opcode {
		case opTypeImage:
			imageTypes[operands[0]] = true
		case opTypeSampledImage:
			sampledImageTypes[operands[0]] = true
		case opTypeStruct:
			structTypes[operands[0]] = true
		case opTypePointer:
			if len(operands) >= 3 {
				pointeeTypes[operands[0]] = operands[2]
			}
		case opVariable:
			if len(operands) >= 3 {
				resultType, resultID, storageClass := operands[0], operands[1], operands[2]
				if isResourceStorageClass(storageClass) {
					variables[resultID] = &spirvVariable{id: resultID, resultType: resultType, storageClass: storageClass}
				}
			}
		case opDecorate:
			if len(operands) >= 2 {
				target, decoration := operands[0], operands[1]
				if v, ok := variables[target]; ok {
					switch decoration {
					case decorationBinding:
						if len(operands) >= 3 {
							v.binding, v.hasBinding = operands[2], true
						}
					case decorationDescriptorSet:
						if len(operands) >= 3 {
							v.set, v.hasSet = operands[2], true
						}
					}
				}
			}
		}
		i += int(instrLen)
	}

	var out []metadata.ReflectedBinding
	for _, v := range variables {
		pointee := pointeeTypes[v.resultType]

		if v.storageClass == storageClassPushConstant {
			out = append(out, metadata.ReflectedBinding{
				Path:           metadata.PushConstantPath(),
				Name:           names[v.id],
				ResourceType:   metadata.ResourceTypePushConstant,
				ArrayLength:    1,
				AccessedStages: vk.ShaderStageFlags(stage),
			})
			continue
		}
		if !v.hasSet || !v.hasBinding {
			continue
		}

		resourceType := metadata.ResourceTypeUniformBuffer
		switch {
		case sampledImageTypes[pointee]:
			resourceType = metadata.ResourceTypeCombinedImageSampler
		case imageTypes[pointee]:
			resourceType = metadata.ResourceTypeStorageImage
		case structTypes[pointee] && v.storageClass == storageClassStorageBuffer:
			resourceType = metadata.ResourceTypeStorageBuffer
		case structTypes[pointee]:
			resourceType = metadata.ResourceTypeUniformBuffer
		}

		out = append(out, metadata.ReflectedBinding{
			Path:           metadata.BindingPath{Set: v.set, Binding: v.binding},
			Name:           names[v.id],
			ResourceType:   resourceType,
			ArrayLength:    1,
			AccessedStages: vk.ShaderStageFlags(stage),
		})
	}
	return out, nil
}

func isResourceStorageClass(class uint32) bool {
	switch class {
	case storageClassUniformConstant, storageClassUniform, storageClassStorageBuffer, storageClassPushConstant:
		return true
	default:
		return false
	}
}

// VulkanShaderStage is one compiled SPIR-V module bound to a pipeline stage.
type VulkanShaderStage struct {
	Handle                vk.ShaderModule
	Stage                 vk.ShaderStageFlagBits
	ShaderStageCreateInfo vk.PipelineShaderStageCreateInfo
}

func shaderModuleCreate(context *VulkanContext, spirv []byte, stage vk.ShaderStageFlagBits) (*VulkanShaderStage, error) {
	createInfo := vk.ShaderModuleCreateInfo{
		SType:    vk.StructureTypeShaderModuleCreateInfo,
		CodeSize: uint(len(spirv)),
		PCode:    sliceToUint32Ptr(spirv),
	}
	out := &VulkanShaderStage{Stage: stage}
	if res := vk.CreateShaderModule(context.Device.LogicalDevice, &createInfo, context.Allocator, &out.Handle); res != vk.Success {
		return nil, fmt.Errorf("failed to create shader module: %s", VulkanResultString(res, true))
	}
	out.ShaderStageCreateInfo = vk.PipelineShaderStageCreateInfo{
		SType:  vk.StructureTypePipelineShaderStageCreateInfo,
		Stage:  vk.ShaderStageFlagBits(stage),
		Module: out.Handle,
		PName:  VulkanSafeString("main"),
	}
	return out, nil
}

func (s *VulkanShaderStage) Destroy(context *VulkanContext) {
	if s.Handle != nil {
		vk.DestroyShaderModule(context.Device.LogicalDevice, s.Handle, context.Allocator)
		s.Handle = nil
	}
}

// shaderModuleEntry is one loaded SPIR-V module and its reflected bindings,
// cached by source path so identical shaders reuse one VkShaderModule.
type shaderModuleEntry struct {
	path   string
	stage  *VulkanShaderStage
	bindings []metadata.ReflectedBinding
}

// ShaderModuleCache loads SPIR-V modules, reflects their bindings, and
// assembles the per-combination ShaderReflection used by the pipeline-layout
// cache, per §4.4. Entries are invalidated by path on hot reload (§10).
type ShaderModuleCache struct {
	mu         sync.Mutex
	modules    map[string]*shaderModuleEntry
	reflections map[metadata.PipelineLayoutKey]*metadata.ShaderReflection
}

func NewShaderModuleCache() *ShaderModuleCache {
	return &ShaderModuleCache{
		modules:     make(map[string]*shaderModuleEntry),
		reflections: make(map[metadata.PipelineLayoutKey]*metadata.ShaderReflection),
	}
}

func (c *ShaderModuleCache) loadModule(context *VulkanContext, path string, spirv []byte, stage vk.ShaderStageFlagBits) (*shaderModuleEntry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if entry, ok := c.modules[path]; ok {
		return entry, nil
	}
	bindings, err := ReflectSPIRV(spirv, stage)
	if err != nil {
		return nil, err
	}
	module, err := shaderModuleCreate(context, spirv, stage)
	if err != nil {
		return nil, err
	}
	entry := &shaderModuleEntry{path: path, stage: module, bindings: bindings}
	c.modules[path] = entry
	return entry, nil
}

// LoadGraphics loads (or reuses) a vertex+fragment pair, merges their
// reflected bindings into one ShaderReflection keyed by GraphicsLayoutKey,
// and caches the result.
func (c *ShaderModuleCache) LoadGraphics(context *VulkanContext, vertexPath string, vertexSPIRV []byte, fragmentPath string, fragmentSPIRV []byte) (*metadata.ShaderReflection, *VulkanShaderStage, *VulkanShaderStage, error) {
	vertex, err := c.loadModule(context, vertexPath, vertexSPIRV, vk.ShaderStageVertexBit)
	if err != nil {
		return nil, nil, nil, err
	}
	fragment, err := c.loadModule(context, fragmentPath, fragmentSPIRV, vk.ShaderStageFragmentBit)
	if err != nil {
		return nil, nil, nil, err
	}

	key := metadata.GraphicsLayoutKey(vertexPath, fragmentPath)

	c.mu.Lock()
	defer c.mu.Unlock()
	if r, ok := c.reflections[key]; ok {
		return r, vertex.stage, fragment.stage, nil
	}

	reflection := metadata.NewShaderReflection(key)
	mergeBindings(reflection, vertex.bindings)
	mergeBindings(reflection, fragment.bindings)
	c.reflections[key] = reflection
	return reflection, vertex.stage, fragment.stage, nil
}

func mergeBindings(r *metadata.ShaderReflection, bindings []metadata.ReflectedBinding) {
	for _, b := range bindings {
		if existing, ok := r.Bindings[b.Path]; ok {
			existing.AccessedStages |= b.AccessedStages
			r.Bindings[b.Path] = existing
			continue
		}
		r.Bindings[b.Path] = b
		r.Ordered = append(r.Ordered, b)
	}
}

// Invalidate drops a cached module by path, forcing the next Load* call to
// recompile and re-reflect it. Called by the config-driven hot-reload
// watcher (§10) when a .spv file on disk changes.
func (c *ShaderModuleCache) Invalidate(context *VulkanContext, path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.modules[path]
	if !ok {
		return
	}
	entry.stage.Destroy(context)
	delete(c.modules, path)
	for key := range c.reflections {
		if key.VertexShader == path || key.FragmentShader == path || key.ComputeShader == path {
			delete(c.reflections, key)
		}
	}
	core.LogInfo("shader module invalidated: %s", path)
}

// Destroy releases every cached VkShaderModule. Called once at shutdown.
func (c *ShaderModuleCache) Destroy(context *VulkanContext) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for path, entry := range c.modules {
		entry.stage.Destroy(context)
		delete(c.modules, path)
	}
	c.reflections = make(map[metadata.PipelineLayoutKey]*metadata.ShaderReflection)
}

func sliceToUint32Ptr(b []byte) []uint32 {
	out := make([]uint32, len(b)/4)
	for i := range out {
		out[i] = binary.LittleEndian.Uint32(b[i*4:])
	}
	return out
}
