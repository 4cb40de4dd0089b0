package core

// HandleSlab is a generational slab allocator: the persistent resource pool's
// image/buffer/sampler registries are all built on top of one of these
// instead of handing out raw pointers. A public handle is (index, generation);
// Release bumps the generation so a stale handle held by a caller is
// detectable instead of aliasing a reused slot.
//
// This replaces the flat nil-reuse slab in the teacher's identifier.go
// (Owners []interface{} / IdentifierAquireNewID / IdentifierReleaseID) with
// the same free-slot-scan discipline, generalized to carry a generation
// counter per slot.
type HandleSlab struct {
	slots       []interface{}
	generations []uint32
	freeList    []uint32
}

// Handle is an opaque, copyable reference into a HandleSlab.
type Handle struct {
	Index      uint32
	Generation uint32
}

// IsNil reports whether h was ever populated by Acquire.
func (h Handle) IsNil() bool {
	return h.Generation == 0 && h.Index == 0
}

func NewHandleSlab() *HandleSlab {
	return &HandleSlab{}
}

// Acquire stores owner behind a fresh or recycled slot and returns its handle.
func (s *HandleSlab) Acquire(owner interface{}) Handle {
	if n := len(s.freeList); n > 0 {
		idx := s.freeList[n-1]
		s.freeList = s.freeList[:n-1]
		s.slots[idx] = owner
		return Handle{Index: idx, Generation: s.generations[idx]}
	}
	idx := uint32(len(s.slots))
	s.slots = append(s.slots, owner)
	s.generations = append(s.generations, 1)
	return Handle{Index: idx, Generation: 1}
}

// Lookup returns the owner for h, or an error if h is stale or out of range.
func (s *HandleSlab) Lookup(h Handle) (interface{}, error) {
	if int(h.Index) >= len(s.slots) {
		return nil, ErrHandleOutOfRange
	}
	if s.generations[h.Index] != h.Generation || s.slots[h.Index] == nil {
		return nil, ErrHandleGenerationMismatch
	}
	return s.slots[h.Index], nil
}

// Release bumps h's generation and returns the slot to the free list. The
// owner value itself is not destroyed here — callers dispose their own GPU
// resources before calling Release, matching the deferred-disposal discipline
// in §4.2 (disposal is queued on a command-end manager and drained after
// submit; Release is the final step of that drain).
func (s *HandleSlab) Release(h Handle) error {
	if int(h.Index) >= len(s.slots) {
		return ErrHandleOutOfRange
	}
	if s.generations[h.Index] != h.Generation {
		return ErrHandleGenerationMismatch
	}
	s.slots[h.Index] = nil
	s.generations[h.Index]++
	if s.generations[h.Index] == 0 {
		s.generations[h.Index] = 1 // never let a slot's generation wrap to 0 (reserved for "nil handle")
	}
	s.freeList = append(s.freeList, h.Index)
	return nil
}

// Len reports the number of live (non-freed) slots.
func (s *HandleSlab) Len() int {
	return len(s.slots) - len(s.freeList)
}
