package bitset

import "testing"

func TestSetContainsClearEveryIndex(t *testing.T) {
	var b BitSet
	for i := 0; i < 256; i++ {
		n := uint8(i)
		if b.Contains(n) {
			t.Fatalf("fresh set contains %d", n)
		}
		b.Set(n)
		if !b.Contains(n) {
			t.Fatalf("set(%d) then contains = false", n)
		}
	}
	for i := 0; i < 256; i++ {
		n := uint8(i)
		b.Clear(n)
		if b.Contains(n) {
			t.Fatalf("clear(%d) then contains = true", n)
		}
		if i < 255 && !b.Contains(n+1) {
			t.Fatalf("clear(%d) also cleared %d", n, n+1)
		}
	}
}

func TestClearAll(t *testing.T) {
	var b BitSet
	for _, n := range []uint8{0, 7, 8, 69, 127, 128, 255} {
		b.Set(n)
	}
	b.ClearAll()
	for i := 0; i < 256; i++ {
		if b.Contains(uint8(i)) {
			t.Fatalf("contains(%d) after ClearAll", i)
		}
	}
	if b.Len() != 0 {
		t.Fatalf("Len = %d, want 0", b.Len())
	}
}

func TestIterAscendingAndRestartable(t *testing.T) {
	var b BitSet
	want := []uint8{0, 3, 60, 64, 67, 200, 255}
	for i := len(want) - 1; i >= 0; i-- {
		b.Set(want[i])
	}
	for pass := 0; pass < 2; pass++ {
		var got []uint8
		for it := b.Iter(); ; {
			n, ok := it.Next()
			if !ok {
				break
			}
			got = append(got, n)
		}
		if len(got) != len(want) {
			t.Fatalf("pass %d: got %v, want %v", pass, got, want)
		}
		for i := range want {
			if got[i] != want[i] {
				t.Fatalf("pass %d: got %v, want %v", pass, got, want)
			}
		}
	}
}

func TestIterSnapshotsValue(t *testing.T) {
	var b BitSet
	b.Set(10)
	it := b.Iter()
	b.Set(5)
	b.Clear(10)
	n, ok := it.Next()
	if !ok || n != 10 {
		t.Fatalf("Next = %d,%v, want 10,true", n, ok)
	}
	if _, ok := it.Next(); ok {
		t.Fatal("iterator observed later mutation")
	}
}

func TestPartialIterationAndBounds(t *testing.T) {
	var b BitSet
	b.Set(1)
	b.Set(2)
	it := b.Iter()
	if n, _ := it.Next(); n != 1 {
		t.Fatalf("first = %d, want 1", n)
	}
	if lo, ok := b.Lowest(); !ok || lo != 1 {
		t.Fatalf("Lowest = %d,%v", lo, ok)
	}
	if hi, ok := b.Highest(); !ok || hi != 2 {
		t.Fatalf("Highest = %d,%v", hi, ok)
	}
	var empty BitSet
	if _, ok := empty.Highest(); ok {
		t.Fatal("Highest on empty set reported a value")
	}
	if b.Len() != 2 {
		t.Fatalf("Len = %d, want 2", b.Len())
	}
}
