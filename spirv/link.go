package spirv

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/gogpu/d3dbc/ir"
)

// Every module ends with a patch table listing its relocatable Location
// decorations. The table has a fixed capacity so both stages of a pair
// carry tables of the same size:
//
//	[PatchCapacity]{usage, index, word offset}  unused entries first
//	count
//	PatchMagic
const (
	PatchCapacity  = 32
	PatchMagic     = 0x48435450
	PatchTableSize = (PatchCapacity*3 + 2) * 4
)

// ErrPatchTable is returned by Link when a module carries no valid patch
// table.
var ErrPatchTable = errors.New("spirv: missing or corrupt patch table")

type patch struct {
	usage  ir.Usage
	index  int
	target uint32
}

type patchEntry struct {
	usage  ir.Usage
	index  int
	offset int
}

// patchTable locates the Location literal of every patched target in words
// and encodes the table.
func patchTable(words []uint32, patches []patch) ([]uint32, error) {
	if len(patches) > PatchCapacity {
		return nil, fmt.Errorf("%d relocatable interface variables exceed the limit of %d", len(patches), PatchCapacity)
	}
	offsets := make(map[uint32]int, len(patches))
	for _, p := range patches {
		offsets[p.target] = 0
	}
	for i := 5; i < len(words); {
		n := int(words[i] >> 16)
		if n == 0 {
			return nil, fmt.Errorf("zero-length instruction at word %d", i)
		}
		if OpCode(words[i]&0xFFFF) == OpDecorate && n == 4 && Decoration(words[i+2]) == DecorationLocation {
			if _, ok := offsets[words[i+1]]; ok {
				offsets[words[i+1]] = i + 3
			}
		}
		i += n
	}

	table := make([]uint32, 3*(PatchCapacity-len(patches)), PatchCapacity*3+2)
	for _, p := range patches {
		off := offsets[p.target]
		if off == 0 {
			return nil, fmt.Errorf("no location decoration for %%%d", p.target)
		}
		table = append(table, uint32(p.usage), uint32(p.index), uint32(off))
	}
	return append(table, uint32(len(patches)), PatchMagic), nil
}

// readPatchTable decodes the table at the end of a module and checks each
// entry against the module words.
func readPatchTable(words []uint32) ([]patchEntry, error) {
	const n = PatchTableSize / 4
	if len(words) < n+5 {
		return nil, ErrPatchTable
	}
	table := words[len(words)-n:]
	if table[n-1] != PatchMagic {
		return nil, ErrPatchTable
	}
	count := int(table[n-2])
	if count > PatchCapacity {
		return nil, fmt.Errorf("%w: %d entries", ErrPatchTable, count)
	}
	module := len(words) - n
	entries := make([]patchEntry, 0, count)
	for i := PatchCapacity - count; i < PatchCapacity; i++ {
		e := patchEntry{
			usage:  ir.Usage(table[3*i]),
			index:  int(table[3*i+1]),
			offset: int(table[3*i+2]),
		}
		if e.offset < 7 || e.offset >= module || Decoration(words[e.offset-1]) != DecorationLocation {
			return nil, fmt.Errorf("%w: bad offset %d", ErrPatchTable, e.offset)
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// storageClasses maps every global variable of a module to its storage
// class.
func storageClasses(words []uint32) map[uint32]StorageClass {
	classes := make(map[uint32]StorageClass)
	for i := 5; i < len(words); {
		n := int(words[i] >> 16)
		if n == 0 || i+n > len(words) {
			break
		}
		if OpCode(words[i]&0xFFFF) == OpVariable && n >= 4 {
			classes[words[i+2]] = StorageClass(words[i+3])
		}
		i += n
	}
	return classes
}

type varyingKey struct {
	usage ir.Usage
	index int
}

func toWords(b []byte) ([]uint32, error) {
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("%w: size %d is not a multiple of 4", ErrPatchTable, len(b))
	}
	words := make([]uint32, len(b)/4)
	for i := range words {
		words[i] = binary.LittleEndian.Uint32(b[4*i:])
	}
	return words, nil
}

// Link rewrites the Location decorations of a vertex and pixel module pair
// in place so that their varyings agree. Vertex inputs take the position of
// the matching entry in attrs; inputs attrs does not name follow after it in
// declaration order. Varyings are numbered by their sorted (usage, index)
// pairs across both stages.
//
// Link returns the size of the patch table at the end of each module, which
// callers strip before handing the modules to a driver.
func Link(vs, ps []byte, attrs []ir.Attribute, logger *zap.Logger) (int, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	vw, err := toWords(vs)
	if err != nil {
		return 0, fmt.Errorf("vertex module: %w", err)
	}
	pw, err := toWords(ps)
	if err != nil {
		return 0, fmt.Errorf("pixel module: %w", err)
	}
	ve, err := readPatchTable(vw)
	if err != nil {
		return 0, fmt.Errorf("vertex module: %w", err)
	}
	pe, err := readPatchTable(pw)
	if err != nil {
		return 0, fmt.Errorf("pixel module: %w", err)
	}
	vc, pc := storageClasses(vw), storageClasses(pw)

	var vsIn, vsOut []patchEntry
	for _, e := range ve {
		switch vc[vw[e.offset-2]] {
		case StorageClassInput:
			vsIn = append(vsIn, e)
		case StorageClassOutput:
			vsOut = append(vsOut, e)
		default:
			return 0, fmt.Errorf("vertex module: %w: entry targets a non-interface variable", ErrPatchTable)
		}
	}
	for _, e := range pe {
		if pc[pw[e.offset-2]] != StorageClassInput {
			return 0, fmt.Errorf("pixel module: %w: entry targets a non-input variable", ErrPatchTable)
		}
	}

	next := len(attrs)
	for _, e := range vsIn {
		loc := -1
		for i := range attrs {
			if attrs[i].Usage == e.usage && attrs[i].Index == e.index {
				loc = i
				break
			}
		}
		if loc < 0 {
			loc = next
			next++
		}
		vw[e.offset] = uint32(loc)
		logger.Debug("vertex input location",
			zap.String("usage", e.usage.String()), zap.Int("index", e.index), zap.Int("location", loc))
	}

	seen := make(map[varyingKey]bool)
	var keys []varyingKey
	for _, e := range append(append([]patchEntry(nil), vsOut...), pe...) {
		k := varyingKey{e.usage, e.index}
		if !seen[k] {
			seen[k] = true
			keys = append(keys, k)
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].usage != keys[j].usage {
			return keys[i].usage < keys[j].usage
		}
		return keys[i].index < keys[j].index
	})
	locs := make(map[varyingKey]uint32, len(keys))
	for i, k := range keys {
		locs[k] = uint32(i)
	}
	for _, e := range vsOut {
		vw[e.offset] = locs[varyingKey{e.usage, e.index}]
	}
	for _, e := range pe {
		pw[e.offset] = locs[varyingKey{e.usage, e.index}]
	}
	logger.Debug("linked varyings", zap.Int("varyings", len(keys)), zap.Int("attributes", len(vsIn)))

	for i, w := range vw {
		binary.LittleEndian.PutUint32(vs[4*i:], w)
	}
	for i, w := range pw {
		binary.LittleEndian.PutUint32(ps[4*i:], w)
	}
	return PatchTableSize, nil
}
