package d3dbc

import (
	"runtime"
	"testing"

	"github.com/gogpu/d3dbc/bytecode"
	"github.com/gogpu/d3dbc/ir"
)

// ---------------------------------------------------------------------------
// Benchmark shaders at different complexity levels
// ---------------------------------------------------------------------------

// transformShader is vs_2_0: a world-view-projection transform through four
// dp4s plus a lit color.
func transformShader() []byte {
	c := func(n int) uint32 { return src(ir.RegConst, n) }
	b := bytecode.NewBuilder(ir.ShaderVertex, 2, 0).
		Def(8, 0.25, 0.5, 1, 0).
		DclInput(ir.RegInput, 0, ir.UsagePosition, 0, ir.MaskAll).
		DclInput(ir.RegInput, 1, ir.UsageNormal, 0, ir.MaskAll).
		DclInput(ir.RegInput, 2, ir.UsageTexCoord, 0, ir.MaskAll)
	for i, m := range []ir.WriteMask{ir.MaskX, ir.MaskY, ir.MaskZ, ir.MaskW} {
		b.Op(ir.OpDp4, bytecode.DestToken(ir.RegRastOut, ir.RastOutPosition, m), src(ir.RegInput, 0), c(i))
	}
	x := ir.MakeSwizzle(0, 0, 0, 0)
	return b.
		Op(ir.OpDp3, bytecode.DestToken(ir.RegTemp, 0, ir.MaskX), src(ir.RegInput, 1), c(4)).
		Op(ir.OpMax, bytecode.DestToken(ir.RegTemp, 0, ir.MaskX), src(ir.RegTemp, 0), c(8)).
		Op(ir.OpMad, dst(ir.RegAttrOut, 0), c(5), bytecode.SrcToken(ir.RegTemp, 0, x, ir.SrcModNone), c(6)).
		Op(ir.OpMov, dst(ir.RegTexCrdOut, 0), src(ir.RegInput, 2)).
		End().Bytes()
}

// ---------------------------------------------------------------------------
// Complexity-grouped shaders for table-driven benchmarks
// ---------------------------------------------------------------------------

type shaderCase struct {
	name string
	code []byte
}

var shadersByComplexity = []shaderCase{
	{"vs_1_1_position", positionShader()},
	{"vs_2_0_passthrough", vertexShader()},
	{"vs_2_0_transform", transformShader()},
	{"ps_2_0_modulate", pixelShader()},
}

// ---------------------------------------------------------------------------
// End-to-End: translation per profile
// ---------------------------------------------------------------------------

// BenchmarkParse benchmarks decode plus emit for every profile, grouped by
// shader. Reports allocations and throughput in bytecode bytes/sec.
func BenchmarkParse(b *testing.B) {
	for _, profile := range Profiles() {
		for _, sc := range shadersByComplexity {
			b.Run(profile+"/"+sc.name, func(b *testing.B) {
				b.ReportAllocs()
				b.SetBytes(int64(len(sc.code)))
				b.ResetTimer()

				var result *Result
				for i := 0; i < b.N; i++ {
					result = Parse(profile, "", sc.code, nil)
					if len(result.Errors) > 0 {
						b.Fatalf("parse failed: %v", result.Errors[0])
					}
					result.Free()
				}
				runtime.KeepAlive(result)
			})
		}
	}
}

// ---------------------------------------------------------------------------
// Individual stages
// ---------------------------------------------------------------------------

// BenchmarkDecode measures bytecode decoding alone.
func BenchmarkDecode(b *testing.B) {
	for _, sc := range shadersByComplexity {
		b.Run(sc.name, func(b *testing.B) {
			b.ReportAllocs()
			b.SetBytes(int64(len(sc.code)))
			b.ResetTimer()

			var prog *ir.Program
			for i := 0; i < b.N; i++ {
				var errs *ir.ErrorList
				prog, errs = bytecode.Decode(sc.code, bytecode.Options{})
				if errs.HasErrors() {
					b.Fatalf("decode failed: %v", errs.Err())
				}
			}
			runtime.KeepAlive(prog)
		})
	}
}

// BenchmarkLinkSPIRV measures varying relocation of a linked pair.
func BenchmarkLinkSPIRV(b *testing.B) {
	vs := Parse("spirv", "", transformShader(), nil)
	ps := Parse("spirv", "", pixelShader(), nil)
	defer vs.Free()
	defer ps.Free()
	if len(vs.Errors)+len(ps.Errors) > 0 {
		b.Fatal("setup failed")
	}
	b.ReportAllocs()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		vsCode := append([]byte(nil), vs.Output...)
		psCode := append([]byte(nil), ps.Output...)
		if _, err := LinkSPIRV(vsCode, psCode, nil); err != nil {
			b.Fatalf("link failed: %v", err)
		}
	}
}
