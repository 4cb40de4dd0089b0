package metadata

import "testing"

func TestSortResourceCommandsOrdersByIndexThenPhase(t *testing.T) {
	cmds := []ResourceCommand{
		{CommandIndex: 5, Phase: PhaseAfter},
		{CommandIndex: 2, Phase: PhaseBefore},
		{CommandIndex: 2, Phase: PhaseAfter},
		{CommandIndex: 5, Phase: PhaseBefore},
		{CommandIndex: 0, Phase: PhaseBefore},
	}
	SortResourceCommands(cmds)

	if !IsSorted(cmds) {
		t.Fatalf("expected sorted stream, got %+v", cmds)
	}
	want := []uint64{0, 2, 2, 5, 5}
	for i, w := range want {
		if cmds[i].CommandIndex != w {
			t.Fatalf("cmds[%d].CommandIndex = %d, want %d", i, cmds[i].CommandIndex, w)
		}
	}
	if cmds[1].Phase != PhaseBefore || cmds[2].Phase != PhaseAfter {
		t.Fatalf("expected before to sort ahead of after at the same index")
	}
}

func TestCursorAdvanceConsumesExactIndexAndPhase(t *testing.T) {
	cmds := []ResourceCommand{
		{CommandIndex: 1, Phase: PhaseBefore, Kind: ResourceCommandPipelineBarrier},
		{CommandIndex: 1, Phase: PhaseBefore, Kind: ResourceCommandSignalEvent},
		{CommandIndex: 1, Phase: PhaseAfter, Kind: ResourceCommandWaitEvents},
		{CommandIndex: 3, Phase: PhaseBefore, Kind: ResourceCommandPipelineBarrier},
	}
	c := NewCursor(cmds)

	before1 := c.Advance(1, PhaseBefore)
	if len(before1) != 2 {
		t.Fatalf("Advance(1, before) = %d entries, want 2", len(before1))
	}
	// a second advance at the same point must not re-yield already-consumed entries
	if got := c.Advance(1, PhaseBefore); len(got) != 0 {
		t.Fatalf("re-advancing at the same point yielded %d entries, want 0", len(got))
	}
	after1 := c.Advance(1, PhaseAfter)
	if len(after1) != 1 {
		t.Fatalf("Advance(1, after) = %d entries, want 1", len(after1))
	}
	// nothing queued at index 2
	if got := c.Advance(2, PhaseBefore); len(got) != 0 {
		t.Fatalf("Advance(2, before) = %d entries, want 0", len(got))
	}
	if c.Done() {
		t.Fatalf("cursor reports done before consuming index 3")
	}
	before3 := c.Advance(3, PhaseBefore)
	if len(before3) != 1 {
		t.Fatalf("Advance(3, before) = %d entries, want 1", len(before3))
	}
	if !c.Done() {
		t.Fatalf("cursor should be done after consuming all entries")
	}
}

func TestCommandRangeContainsAndLen(t *testing.T) {
	r := CommandRange{Lo: 4, Hi: 9}
	if r.Len() != 5 {
		t.Fatalf("Len() = %d, want 5", r.Len())
	}
	if r.Contains(3) || r.Contains(9) {
		t.Fatalf("range must be half-open [lo, hi)")
	}
	if !r.Contains(4) || !r.Contains(8) {
		t.Fatalf("range must include lo and hi-1")
	}
}
