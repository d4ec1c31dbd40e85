package bytecode

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/gogpu/d3dbc/ir"
)

// ErrCTAB reports a malformed constant table.
var ErrCTAB = errors.New("malformed constant table")

const (
	ctabHeaderSize   = 28
	ctabConstantSize = 20
	ctabTypeSize     = 16
	ctabMemberSize   = 8

	// maxTypeDepth bounds struct nesting so a cyclic table cannot recurse forever.
	maxTypeDepth = 16
)

// ParseCTAB parses a constant table. data starts at the byte after the
// CTAB magic; every offset in the table is relative to it.
func ParseCTAB(data []byte) (*ir.CTABHeader, []ir.Symbol, error) {
	size, ok := u32(data, 0)
	if !ok || size != ctabHeaderSize {
		return nil, nil, fmt.Errorf("%w: bad header size", ErrCTAB)
	}
	creatorOff, _ := u32(data, 4)
	version, _ := u32(data, 8)
	count, _ := u32(data, 12)
	infoOff, _ := u32(data, 16)
	flags, _ := u32(data, 20)
	targetOff, ok := u32(data, 24)
	if !ok {
		return nil, nil, fmt.Errorf("%w: truncated header", ErrCTAB)
	}

	hdr := &ir.CTABHeader{Version: version, Flags: flags}
	var err error
	if hdr.Creator, err = cstring(data, creatorOff); err != nil {
		return nil, nil, err
	}
	if hdr.Target, err = cstring(data, targetOff); err != nil {
		return nil, nil, err
	}
	if uint64(infoOff)+uint64(count)*ctabConstantSize > uint64(len(data)) {
		return nil, nil, fmt.Errorf("%w: constant info out of bounds", ErrCTAB)
	}

	syms := make([]ir.Symbol, 0, count)
	for i := uint32(0); i < count; i++ {
		base := infoOff + i*ctabConstantSize
		nameOff, _ := u32(data, base)
		set, _ := u16(data, base+4)
		idx, _ := u16(data, base+6)
		cnt, _ := u16(data, base+8)
		typeOff, _ := u32(data, base+12)

		name, err := cstring(data, nameOff)
		if err != nil {
			return nil, nil, err
		}
		if ir.SymbolRegisterSet(set) > ir.SymbolRegisterSampler {
			return nil, nil, fmt.Errorf("%w: symbol %q has register set %d", ErrCTAB, name, set)
		}
		info, err := parseTypeInfo(data, typeOff, 0)
		if err != nil {
			return nil, nil, err
		}
		syms = append(syms, ir.Symbol{
			Name:          name,
			RegisterSet:   ir.SymbolRegisterSet(set),
			RegisterIndex: uint32(idx),
			RegisterCount: uint32(cnt),
			Info:          info,
		})
	}
	return hdr, syms, nil
}

func parseTypeInfo(data []byte, off uint32, depth int) (ir.SymbolTypeInfo, error) {
	var info ir.SymbolTypeInfo
	if depth > maxTypeDepth {
		return info, fmt.Errorf("%w: struct nesting too deep", ErrCTAB)
	}
	if uint64(off)+ctabTypeSize > uint64(len(data)) {
		return info, fmt.Errorf("%w: type info out of bounds", ErrCTAB)
	}
	class, _ := u16(data, off)
	typ, _ := u16(data, off+2)
	rows, _ := u16(data, off+4)
	cols, _ := u16(data, off+6)
	elems, _ := u16(data, off+8)
	members, _ := u16(data, off+10)
	memberOff, _ := u32(data, off+12)

	info = ir.SymbolTypeInfo{
		Class:    ir.SymbolClass(class),
		Type:     ir.SymbolType(typ),
		Rows:     uint32(rows),
		Columns:  uint32(cols),
		Elements: uint32(elems),
	}
	if info.Type > ir.SymbolTypeUnsupported {
		info.Type = ir.SymbolTypeUnsupported
	}
	if members == 0 {
		return info, nil
	}
	if uint64(memberOff)+uint64(members)*ctabMemberSize > uint64(len(data)) {
		return info, fmt.Errorf("%w: struct members out of bounds", ErrCTAB)
	}
	info.Members = make([]ir.SymbolStructMember, 0, members)
	for i := uint32(0); i < uint32(members); i++ {
		nameOff, _ := u32(data, memberOff+i*ctabMemberSize)
		typeOff, _ := u32(data, memberOff+i*ctabMemberSize+4)
		name, err := cstring(data, nameOff)
		if err != nil {
			return info, err
		}
		mi, err := parseTypeInfo(data, typeOff, depth+1)
		if err != nil {
			return info, err
		}
		info.Members = append(info.Members, ir.SymbolStructMember{Name: name, Info: mi})
	}
	return info, nil
}

// cstring reads a NUL-terminated string at off.
func cstring(data []byte, off uint32) (string, error) {
	if uint64(off) >= uint64(len(data)) {
		return "", fmt.Errorf("%w: string offset %d out of bounds", ErrCTAB, off)
	}
	s := data[off:]
	n := bytes.IndexByte(s, 0)
	if n < 0 {
		return "", fmt.Errorf("%w: unterminated string at %d", ErrCTAB, off)
	}
	return string(s[:n]), nil
}
