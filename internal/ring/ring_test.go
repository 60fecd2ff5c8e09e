package ring

import "testing"

// TestPushAndOrder tests FIFO ordering below capacity.
func TestPushAndOrder(t *testing.T) {
	b := New[int](4)
	for i := 1; i <= 3; i++ {
		b.Push(i)
	}
	if b.Len() != 3 {
		t.Fatalf("Len = %d, want 3", b.Len())
	}
	for i := 0; i < 3; i++ {
		if got := b.At(i); got != i+1 {
			t.Errorf("At(%d) = %d, want %d", i, got, i+1)
		}
	}
}

// TestEviction tests that overflow evicts the oldest element.
func TestEviction(t *testing.T) {
	b := New[int](3)
	for i := 1; i <= 5; i++ {
		b.Push(i)
	}
	if b.Len() != 3 {
		t.Fatalf("Len = %d, want 3", b.Len())
	}
	want := []int{3, 4, 5}
	got := b.Snapshot()
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Snapshot[%d] = %d, want %d", i, got[i], want[i])
		}
	}
}

// TestLast tests the most-recent accessor.
func TestLast(t *testing.T) {
	b := New[string](2)
	if _, ok := b.Last(); ok {
		t.Error("Last on empty buffer reported ok")
	}
	b.Push("a")
	b.Push("b")
	b.Push("c")
	if v, ok := b.Last(); !ok || v != "c" {
		t.Errorf("Last = %q, %v; want %q, true", v, ok, "c")
	}
}

// TestTail tests trailing-window copies.
func TestTail(t *testing.T) {
	b := New[int](5)
	for i := 1; i <= 5; i++ {
		b.Push(i)
	}
	tail := b.Tail(2)
	if len(tail) != 2 || tail[0] != 4 || tail[1] != 5 {
		t.Errorf("Tail(2) = %v, want [4 5]", tail)
	}
	if got := b.Tail(10); len(got) != 5 {
		t.Errorf("Tail(10) returned %d elements, want 5", len(got))
	}
}
