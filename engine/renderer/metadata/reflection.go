package metadata

import vk "github.com/goki/vulkan"

// ArgBufferSentinel is the reserved binding slot used to address an entire
// argument buffer (descriptor set) as a single resource, per §4.4 "Argument-
// buffer paths use (set, ARG_BUFFER_SENTINEL)".
const ArgBufferSentinel uint32 = 0xFFFFFFFF

// PushConstantSentinelSet/PushConstantSentinelBinding address push-constant
// resources, which don't live in any descriptor set (§4.4 "Push-constant
// resources use a reserved sentinel path").
const (
	PushConstantSentinelSet     uint32 = 0xFFFFFFFF
	PushConstantSentinelBinding uint32 = 0xFFFFFFFF
)

// BindingPath is the stable key for a reflected resource: {set, binding,
// array_index}, per §4.4.
type BindingPath struct {
	Set        uint32
	Binding    uint32
	ArrayIndex uint32
}

func PushConstantPath() BindingPath {
	return BindingPath{Set: PushConstantSentinelSet, Binding: PushConstantSentinelBinding}
}

func ArgBufferPath(set uint32) BindingPath {
	return BindingPath{Set: set, Binding: ArgBufferSentinel}
}

// ResourceType is the kind of resource bound at a BindingPath.
type ResourceType uint8

const (
	ResourceTypeSampledImage ResourceType = iota
	ResourceTypeStorageImage
	ResourceTypeUniformBuffer
	ResourceTypeStorageBuffer
	ResourceTypeSampler
	ResourceTypeCombinedImageSampler
	ResourceTypeInputAttachment
	ResourceTypePushConstant
)

func (t ResourceType) ToVulkanDescriptorType() vk.DescriptorType {
	switch t {
	case ResourceTypeSampledImage:
		return vk.DescriptorTypeSampledImage
	case ResourceTypeStorageImage:
		return vk.DescriptorTypeStorageImage
	case ResourceTypeUniformBuffer:
		return vk.DescriptorTypeUniformBuffer
	case ResourceTypeStorageBuffer:
		return vk.DescriptorTypeStorageBuffer
	case ResourceTypeSampler:
		return vk.DescriptorTypeSampler
	case ResourceTypeCombinedImageSampler:
		return vk.DescriptorTypeCombinedImageSampler
	case ResourceTypeInputAttachment:
		return vk.DescriptorTypeInputAttachment
	default:
		return vk.DescriptorTypeUniformBuffer
	}
}

// BindingRange covers the min..max accessed byte offset across all entry
// points for buffer-class resources (§4.4).
type BindingRange struct {
	MinOffset uint64
	MaxOffset uint64
}

// ReflectedBinding is one resource entry produced by shader reflection.
type ReflectedBinding struct {
	Path           BindingPath
	Name           string
	ResourceType   ResourceType
	ArrayLength    uint32
	Access         AccessKind
	AccessedStages vk.ShaderStageFlags
	BindingRange   BindingRange
}

// ShaderReflection is the parsed-SPIR-V reflection object for one shader
// combination (e.g. a vertex+fragment pair, or a single compute module),
// keyed by PipelineLayoutKey. Maps BindingPath -> ReflectedBinding for O(1)
// lookup, and keeps a sorted slice for the deterministic iteration the
// pipeline-layout builder needs.
type ShaderReflection struct {
	Key      PipelineLayoutKey
	Bindings map[BindingPath]ReflectedBinding
	Ordered  []ReflectedBinding // sorted by (Set, Binding, ArrayIndex)
}

func NewShaderReflection(key PipelineLayoutKey) *ShaderReflection {
	return &ShaderReflection{Key: key, Bindings: make(map[BindingPath]ReflectedBinding)}
}

// MaxUsedSet returns the highest descriptor-set index referenced by any
// non-push-constant, non-argument-buffer-sentinel binding, or -1 if none.
// The descriptor-set layouts for a pipeline are exactly layouts[0..=this]
// per §4.4.
func (r *ShaderReflection) MaxUsedSet() int {
	max := -1
	for path := range r.Bindings {
		if path.Set == PushConstantSentinelSet {
			continue
		}
		if int(path.Set) > max {
			max = int(path.Set)
		}
	}
	return max
}

// PipelineLayoutKey is the cache key for both the pipeline layout and the
// reflection object, per §3/§4.4: graphics(vs,fs) or compute(cs). Identity of
// this key must imply identity of the produced VkPipelineLayout — two
// distinct shader modules with byte-identical bindings are NOT
// interchangeable, so the key carries the shader module identities
// themselves, not a hash of their bindings.
type PipelineLayoutKey struct {
	VertexShader   string
	FragmentShader string
	ComputeShader  string
}

func GraphicsLayoutKey(vertex, fragment string) PipelineLayoutKey {
	return PipelineLayoutKey{VertexShader: vertex, FragmentShader: fragment}
}

func ComputeLayoutKey(compute string) PipelineLayoutKey {
	return PipelineLayoutKey{ComputeShader: compute}
}

// DescriptorSetLayoutKey caches a descriptor-set layout per (shader
// fingerprint, set index), per §3.
type DescriptorSetLayoutKey struct {
	Fingerprint PipelineLayoutKey
	SetIndex    uint32
}
