package d3dbc

import "errors"

// ErrOutOfMemory is returned by an Arena that cannot satisfy a request.
var ErrOutOfMemory = errors.New("d3dbc: out of memory")

// Allocator creates the arena of one Parse or ParsePreshader call. The arena
// holds the output buffer and the preshader input copy; descriptor tables
// and the decoded program live on the Go heap. Implementations used from
// several goroutines must be safe for concurrent use.
type Allocator interface {
	NewArena() Arena
}

// Arena hands out memory that is released as a unit.
type Arena interface {
	Alloc(n int) ([]byte, error)
	Release()
}

// HeapAllocator allocates from the Go heap. It is the default.
type HeapAllocator struct{}

// NewArena implements Allocator.
func (HeapAllocator) NewArena() Arena { return &heapArena{} }

type heapArena struct {
	blocks [][]byte
}

func (a *heapArena) Alloc(n int) ([]byte, error) {
	if n < 0 {
		return nil, ErrOutOfMemory
	}
	b := make([]byte, n)
	a.blocks = append(a.blocks, b)
	return b, nil
}

func (a *heapArena) Release() {
	clear(a.blocks)
	a.blocks = a.blocks[:0]
}

// arenaCopy copies b into arena memory.
func arenaCopy(a Arena, b []byte) ([]byte, error) {
	out, err := a.Alloc(len(b))
	if err != nil {
		return nil, err
	}
	if len(out) < len(b) {
		return nil, ErrOutOfMemory
	}
	out = out[:len(b)]
	copy(out, b)
	return out, nil
}
