package d3d

import (
	"encoding/binary"
	"fmt"

	"github.com/gogpu/d3dbc/bytecode"
	"github.com/gogpu/d3dbc/ir"
)

// Passthrough returns a copy of src with the tokens that prog overrides
// re-encoded. A source parameter is patched when its swizzle no longer
// matches the token it was decoded from; a sampler DCL is patched when the
// sampler's type differs from the declared one. All other bits are kept.
func Passthrough(src []byte, prog *ir.Program) ([]byte, error) {
	if len(src) == 0 {
		return nil, ErrNoSource
	}
	out := append([]byte(nil), src...)

	patch := func(off int, tok uint32) error {
		if off < 0 || off+4 > len(out) {
			return fmt.Errorf("token offset %d is outside the %d byte stream", off, len(out))
		}
		binary.LittleEndian.PutUint32(out[off:], tok)
		return nil
	}

	for i := range prog.Instructions {
		for _, s := range prog.Instructions[i].Src {
			if ir.Swizzle(s.Token>>16) == s.Swizzle {
				continue
			}
			if err := patch(s.Offset, bytecode.WithSwizzle(s.Token, s.Swizzle)); err != nil {
				return nil, err
			}
		}
	}

	for _, s := range prog.Samplers {
		if s.DeclOffset <= 0 {
			continue
		}
		if s.DeclOffset+4 > len(out) {
			return nil, fmt.Errorf("sampler s%d declaration is outside the stream", s.Index)
		}
		tok := binary.LittleEndian.Uint32(out[s.DeclOffset:])
		if re := bytecode.WithSamplerType(tok, s.Type); re != tok {
			if err := patch(s.DeclOffset, re); err != nil {
				return nil, err
			}
		}
	}
	return out, nil
}
