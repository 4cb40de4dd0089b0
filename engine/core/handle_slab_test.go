package core

import "testing"

func TestHandleSlabAcquireLookupRelease(t *testing.T) {
	s := NewHandleSlab()

	h1 := s.Acquire("a")
	h2 := s.Acquire("b")

	if got, err := s.Lookup(h1); err != nil || got != "a" {
		t.Fatalf("Lookup(h1) = %v, %v; want a, nil", got, err)
	}
	if got, err := s.Lookup(h2); err != nil || got != "b" {
		t.Fatalf("Lookup(h2) = %v, %v; want b, nil", got, err)
	}
	if s.Len() != 2 {
		t.Fatalf("Len() = %d; want 2", s.Len())
	}
}

func TestHandleSlabReleaseThenStaleLookupFails(t *testing.T) {
	s := NewHandleSlab()
	h1 := s.Acquire("a")

	if err := s.Release(h1); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if _, err := s.Lookup(h1); err != ErrHandleGenerationMismatch {
		t.Fatalf("Lookup(stale) = %v; want ErrHandleGenerationMismatch", err)
	}
}

func TestHandleSlabRecyclesSlotWithBumpedGeneration(t *testing.T) {
	s := NewHandleSlab()
	h1 := s.Acquire("a")
	if err := s.Release(h1); err != nil {
		t.Fatalf("Release: %v", err)
	}

	h2 := s.Acquire("b")
	if h2.Index != h1.Index {
		t.Fatalf("expected slot reuse: h1.Index=%d h2.Index=%d", h1.Index, h2.Index)
	}
	if h2.Generation == h1.Generation {
		t.Fatalf("expected generation to change on reuse, both were %d", h1.Generation)
	}

	// the old handle must not resolve to the new owner
	if _, err := s.Lookup(h1); err != ErrHandleGenerationMismatch {
		t.Fatalf("Lookup(h1 after reuse) = %v; want ErrHandleGenerationMismatch", err)
	}
	if got, err := s.Lookup(h2); err != nil || got != "b" {
		t.Fatalf("Lookup(h2) = %v, %v; want b, nil", got, err)
	}
}

func TestHandleSlabOutOfRange(t *testing.T) {
	s := NewHandleSlab()
	if _, err := s.Lookup(Handle{Index: 5, Generation: 1}); err != ErrHandleOutOfRange {
		t.Fatalf("Lookup(out of range) = %v; want ErrHandleOutOfRange", err)
	}
}
