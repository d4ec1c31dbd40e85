package ir

import "strconv"

// RegisterType is a register file as encoded in parameter tokens.
type RegisterType uint8

const (
	RegTemp        RegisterType = 0
	RegInput       RegisterType = 1
	RegConst       RegisterType = 2
	RegAddress     RegisterType = 3 // vertex shaders
	RegTexture     RegisterType = 3 // pixel shaders
	RegRastOut     RegisterType = 4
	RegAttrOut     RegisterType = 5
	RegTexCrdOut   RegisterType = 6
	RegOutput      RegisterType = 6 // vs_3_0
	RegConstInt    RegisterType = 7
	RegColorOut    RegisterType = 8
	RegDepthOut    RegisterType = 9
	RegSampler     RegisterType = 10
	RegConst2      RegisterType = 11
	RegConst3      RegisterType = 12
	RegConst4      RegisterType = 13
	RegConstBool   RegisterType = 14
	RegLoop        RegisterType = 15
	RegTempFloat16 RegisterType = 16
	RegMisc        RegisterType = 17
	RegLabel       RegisterType = 18
	RegPredicate   RegisterType = 19

	// RegMax is one past the largest valid register type.
	RegMax RegisterType = 20
)

// Rasterizer output register numbers.
const (
	RastOutPosition  = 0
	RastOutFog       = 1
	RastOutPointSize = 2
)

// Misc register numbers.
const (
	MiscPosition = 0
	MiscFace     = 1
)

// Usage is a vertex declaration usage.
type Usage uint8

const (
	UsagePosition Usage = iota
	UsageBlendWeight
	UsageBlendIndices
	UsageNormal
	UsagePointSize
	UsageTexCoord
	UsageTangent
	UsageBinormal
	UsageTessFactor
	UsagePositionT
	UsageColor
	UsageFog
	UsageDepth
	UsageSample

	UsageTotal

	// UsageUnknown marks a register with no usage.
	UsageUnknown Usage = 0xFF
)

var usageNames = [...]string{
	"POSITION", "BLENDWEIGHT", "BLENDINDICES", "NORMAL", "PSIZE", "TEXCOORD",
	"TANGENT", "BINORMAL", "TESSFACTOR", "POSITIONT", "COLOR", "FOG", "DEPTH",
	"SAMPLE",
}

// String returns the D3D semantic name of the usage.
func (u Usage) String() string {
	if int(u) < len(usageNames) {
		return usageNames[u]
	}
	return "UNKNOWN"
}

// ParseUsage maps a semantic name (case-sensitive, upper case) back to a Usage.
func ParseUsage(s string) (Usage, bool) {
	for i, name := range usageNames {
		if name == s {
			return Usage(i), true
		}
	}
	if s == "POINTSIZE" {
		return UsagePointSize, true
	}
	return UsageUnknown, false
}

// Register is the usage record of one register.
type Register struct {
	Type RegisterType
	Num  int

	// Usage and UsageIndex are set for declared inputs and outputs.
	Usage      Usage
	UsageIndex int

	// Declared is set by an explicit DCL.
	Declared bool
	// Mod holds DCL result modifiers (centroid, partial precision).
	Mod ResultMod

	Read    bool
	Written bool
	// Relative is set when the register is used as a relative address.
	Relative bool
}

// IsConstFile reports whether t addresses one of the float constant banks.
func (t RegisterType) IsConstFile() bool {
	return t == RegConst || t == RegConst2 || t == RegConst3 || t == RegConst4
}

// RegisterName returns the assembly name of a register, e.g. "r0", "oPos",
// "vFace". The result does not include any stage prefix.
func RegisterName(st ShaderType, v Version, t RegisterType, num int) string {
	n := strconv.Itoa(num)
	switch t {
	case RegTemp:
		return "r" + n
	case RegInput:
		return "v" + n
	case RegConst:
		return "c" + n
	case RegConst2:
		return "c" + strconv.Itoa(num+2048)
	case RegConst3:
		return "c" + strconv.Itoa(num+4096)
	case RegConst4:
		return "c" + strconv.Itoa(num+6144)
	case RegAddress:
		if st == ShaderVertex {
			return "a" + n
		}
		return "t" + n
	case RegRastOut:
		switch num {
		case RastOutPosition:
			return "oPos"
		case RastOutFog:
			return "oFog"
		case RastOutPointSize:
			return "oPts"
		}
		return "oRast" + n
	case RegAttrOut:
		return "oD" + n
	case RegOutput:
		if st == ShaderVertex && v.Major >= 3 {
			return "o" + n
		}
		return "oT" + n
	case RegConstInt:
		return "i" + n
	case RegColorOut:
		return "oC" + n
	case RegDepthOut:
		return "oDepth"
	case RegSampler:
		return "s" + n
	case RegConstBool:
		return "b" + n
	case RegLoop:
		return "aL"
	case RegTempFloat16:
		return "h" + n
	case RegMisc:
		switch num {
		case MiscPosition:
			return "vPos"
		case MiscFace:
			return "vFace"
		}
		return "misc" + n
	case RegLabel:
		return "l" + n
	case RegPredicate:
		return "p" + n
	}
	return "?" + n
}

// IsScalarRegister reports whether a register holds a single value.
func IsScalarRegister(t RegisterType, num int) bool {
	switch t {
	case RegRastOut:
		return num == RastOutFog || num == RastOutPointSize
	case RegDepthOut, RegConstBool, RegLoop:
		return true
	case RegMisc:
		return num == MiscFace
	}
	return false
}
