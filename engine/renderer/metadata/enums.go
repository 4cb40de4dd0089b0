package metadata

import vk "github.com/goki/vulkan"

// The enum crosswalks below are total on their domain types, per spec §6:
// "any domain value added later must be added to both sides simultaneously."
// Each crosswalk is a plain function rather than a map literal so a missing
// case is a compile-time-visible default rather than a silent zero value.

type PrimitiveType uint8

const (
	PrimitivePoint PrimitiveType = iota
	PrimitiveLine
	PrimitiveLineStrip
	PrimitiveTriangle
	PrimitiveTriangleStrip
)

func (p PrimitiveType) ToVulkan() vk.PrimitiveTopology {
	switch p {
	case PrimitivePoint:
		return vk.PrimitiveTopologyPointList
	case PrimitiveLine:
		return vk.PrimitiveTopologyLineList
	case PrimitiveLineStrip:
		return vk.PrimitiveTopologyLineStrip
	case PrimitiveTriangle:
		return vk.PrimitiveTopologyTriangleList
	case PrimitiveTriangleStrip:
		return vk.PrimitiveTopologyTriangleStrip
	default:
		return vk.PrimitiveTopologyTriangleList
	}
}

type BlendFactor uint8

const (
	BlendFactorZero BlendFactor = iota
	BlendFactorOne
	BlendFactorSrcColor
	BlendFactorOneMinusSrcColor
	BlendFactorDstColor
	BlendFactorOneMinusDstColor
	BlendFactorSrcAlpha
	BlendFactorOneMinusSrcAlpha
	BlendFactorDstAlpha
	BlendFactorOneMinusDstAlpha
	BlendFactorSrc1Color
	BlendFactorOneMinusSrc1Color
	BlendFactorSrc1Alpha
	BlendFactorOneMinusSrc1Alpha
	BlendFactorConstantColor
	BlendFactorConstantAlpha
	BlendFactorSrcAlphaSaturate
)

func (b BlendFactor) ToVulkan() vk.BlendFactor {
	switch b {
	case BlendFactorZero:
		return vk.BlendFactorZero
	case BlendFactorOne:
		return vk.BlendFactorOne
	case BlendFactorSrcColor:
		return vk.BlendFactorSrcColor
	case BlendFactorOneMinusSrcColor:
		return vk.BlendFactorOneMinusSrcColor
	case BlendFactorDstColor:
		return vk.BlendFactorDstColor
	case BlendFactorOneMinusDstColor:
		return vk.BlendFactorOneMinusDstColor
	case BlendFactorSrcAlpha:
		return vk.BlendFactorSrcAlpha
	case BlendFactorOneMinusSrcAlpha:
		return vk.BlendFactorOneMinusSrcAlpha
	case BlendFactorDstAlpha:
		return vk.BlendFactorDstAlpha
	case BlendFactorOneMinusDstAlpha:
		return vk.BlendFactorOneMinusDstAlpha
	case BlendFactorSrc1Color:
		return vk.BlendFactorSrc1Color
	case BlendFactorOneMinusSrc1Color:
		return vk.BlendFactorOneMinusSrc1Color
	case BlendFactorSrc1Alpha:
		return vk.BlendFactorSrc1Alpha
	case BlendFactorOneMinusSrc1Alpha:
		return vk.BlendFactorOneMinusSrc1Alpha
	case BlendFactorConstantColor:
		return vk.BlendFactorConstantColor
	case BlendFactorConstantAlpha:
		return vk.BlendFactorConstantAlpha
	case BlendFactorSrcAlphaSaturate:
		return vk.BlendFactorSrcAlphaSaturate
	default:
		return vk.BlendFactorOne
	}
}

type CompareFunction uint8

const (
	CompareAlways CompareFunction = iota
	CompareNever
	CompareLess
	CompareLessEqual
	CompareEqual
	CompareGreater
	CompareNotEqual
	CompareGreaterEqual
)

func (c CompareFunction) ToVulkan() vk.CompareOp {
	switch c {
	case CompareAlways:
		return vk.CompareOpAlways
	case CompareNever:
		return vk.CompareOpNever
	case CompareLess:
		return vk.CompareOpLess
	case CompareLessEqual:
		return vk.CompareOpLessOrEqual
	case CompareEqual:
		return vk.CompareOpEqual
	case CompareGreater:
		return vk.CompareOpGreater
	case CompareNotEqual:
		return vk.CompareOpNotEqual
	case CompareGreaterEqual:
		return vk.CompareOpGreaterOrEqual
	default:
		return vk.CompareOpAlways
	}
}

type CullMode uint8

const (
	CullModeNone CullMode = iota
	CullModeFront
	CullModeBack
)

func (c CullMode) ToVulkan() vk.CullModeFlagBits {
	switch c {
	case CullModeNone:
		return vk.CullModeNone
	case CullModeFront:
		return vk.CullModeFrontBit
	case CullModeBack:
		return vk.CullModeBackBit
	default:
		return vk.CullModeNone
	}
}

type Winding uint8

const (
	WindingClockwise Winding = iota
	WindingCounterClockwise
)

func (w Winding) ToVulkan() vk.FrontFace {
	switch w {
	case WindingClockwise:
		return vk.FrontFaceClockwise
	case WindingCounterClockwise:
		return vk.FrontFaceCounterClockwise
	default:
		return vk.FrontFaceCounterClockwise
	}
}

type SamplerAddressMode uint8

const (
	AddressModeRepeat SamplerAddressMode = iota
	AddressModeMirrorRepeat
	AddressModeClampToEdge
	AddressModeClampToBorder
	AddressModeMirrorClampToEdge
)

func (a SamplerAddressMode) ToVulkan() vk.SamplerAddressMode {
	switch a {
	case AddressModeRepeat:
		return vk.SamplerAddressModeRepeat
	case AddressModeMirrorRepeat:
		return vk.SamplerAddressModeMirroredRepeat
	case AddressModeClampToEdge:
		return vk.SamplerAddressModeClampToEdge
	case AddressModeClampToBorder:
		return vk.SamplerAddressModeClampToBorder
	case AddressModeMirrorClampToEdge:
		return vk.SamplerAddressModeMirrorClampToEdge
	default:
		return vk.SamplerAddressModeRepeat
	}
}

// VertexFormat crosswalk: scalar/2/3/4 of the listed scalar kinds, with
// optional normalization, plus the packed 10_10_10_2 format (§6).
type VertexScalarKind uint8

const (
	VertexScalarU8 VertexScalarKind = iota
	VertexScalarI8
	VertexScalarU16
	VertexScalarI16
	VertexScalarU32
	VertexScalarI32
	VertexScalarF16
	VertexScalarF32
)

type VertexFormat struct {
	Scalar       VertexScalarKind
	Components   uint8 // 1..4
	Normalized   bool
	Packed1010102 bool
}

func (v VertexFormat) ToVulkan() vk.Format {
	if v.Packed1010102 {
		if v.Normalized {
			return vk.FormatA2b10g10r10UnormPack32
		}
		return vk.FormatA2b10g10r10UintPack32
	}
	switch v.Scalar {
	case VertexScalarU8:
		return pickByComponents(v.Components, v.Normalized,
			vk.FormatR8Uint, vk.FormatR8g8Uint, vk.FormatR8g8b8Uint, vk.FormatR8g8b8a8Uint,
			vk.FormatR8Unorm, vk.FormatR8g8Unorm, vk.FormatR8g8b8Unorm, vk.FormatR8g8b8a8Unorm)
	case VertexScalarI8:
		return pickByComponents(v.Components, v.Normalized,
			vk.FormatR8Sint, vk.FormatR8g8Sint, vk.FormatR8g8b8Sint, vk.FormatR8g8b8a8Sint,
			vk.FormatR8Snorm, vk.FormatR8g8Snorm, vk.FormatR8g8b8Snorm, vk.FormatR8g8b8a8Snorm)
	case VertexScalarU16:
		return pickByComponents(v.Components, v.Normalized,
			vk.FormatR16Uint, vk.FormatR16g16Uint, vk.FormatR16g16b16Uint, vk.FormatR16g16b16a16Uint,
			vk.FormatR16Unorm, vk.FormatR16g16Unorm, vk.FormatR16g16b16Unorm, vk.FormatR16g16b16a16Unorm)
	case VertexScalarI16:
		return pickByComponents(v.Components, v.Normalized,
			vk.FormatR16Sint, vk.FormatR16g16Sint, vk.FormatR16g16b16Sint, vk.FormatR16g16b16a16Sint,
			vk.FormatR16Snorm, vk.FormatR16g16Snorm, vk.FormatR16g16b16Snorm, vk.FormatR16g16b16a16Snorm)
	case VertexScalarU32:
		return pickByComponents(v.Components, false,
			vk.FormatR32Uint, vk.FormatR32g32Uint, vk.FormatR32g32b32Uint, vk.FormatR32g32b32a32Uint,
			vk.FormatR32Uint, vk.FormatR32g32Uint, vk.FormatR32g32b32Uint, vk.FormatR32g32b32a32Uint)
	case VertexScalarI32:
		return pickByComponents(v.Components, false,
			vk.FormatR32Sint, vk.FormatR32g32Sint, vk.FormatR32g32b32Sint, vk.FormatR32g32b32a32Sint,
			vk.FormatR32Sint, vk.FormatR32g32Sint, vk.FormatR32g32b32Sint, vk.FormatR32g32b32a32Sint)
	case VertexScalarF16:
		return pickByComponents(v.Components, false,
			vk.FormatR16Sfloat, vk.FormatR16g16Sfloat, vk.FormatR16g16b16Sfloat, vk.FormatR16g16b16a16Sfloat,
			vk.FormatR16Sfloat, vk.FormatR16g16Sfloat, vk.FormatR16g16b16Sfloat, vk.FormatR16g16b16a16Sfloat)
	case VertexScalarF32:
		return pickByComponents(v.Components, false,
			vk.FormatR32Sfloat, vk.FormatR32g32Sfloat, vk.FormatR32g32b32Sfloat, vk.FormatR32g32b32a32Sfloat,
			vk.FormatR32Sfloat, vk.FormatR32g32Sfloat, vk.FormatR32g32b32Sfloat, vk.FormatR32g32b32a32Sfloat)
	default:
		return vk.FormatR32g32b32a32Sfloat
	}
}

func pickByComponents(n uint8, normalized bool, i1, i2, i3, i4, n1, n2, n3, n4 vk.Format) vk.Format {
	table := [4]vk.Format{i1, i2, i3, i4}
	if normalized {
		table = [4]vk.Format{n1, n2, n3, n4}
	}
	if n < 1 {
		n = 1
	}
	if n > 4 {
		n = 4
	}
	return table[n-1]
}
