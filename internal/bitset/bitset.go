package bitset

// BitSet is a fixed 256-bit set indexed by uint8, large enough for every MIDI
// note number with headroom. The zero value is an empty set. BitSet is a plain
// value: copying it snapshots the set.
type BitSet [32]byte

func (b *BitSet) Set(i uint8) {
	b[i>>3] |= 1 << (i & 7)
}

func (b *BitSet) Clear(i uint8) {
	b[i>>3] &^= 1 << (i & 7)
}

func (b *BitSet) ClearAll() {
	*b = BitSet{}
}

func (b BitSet) Contains(i uint8) bool {
	return b[i>>3]&(1<<(i&7)) != 0
}

// Len returns the number of set bits.
func (b BitSet) Len() int {
	n := 0
	for it := b.Iter(); ; {
		if _, ok := it.Next(); !ok {
			return n
		}
		n++
	}
}

// Iter returns an iterator over the set bits in ascending order. The iterator
// holds its own copy of the set, so later changes to b are not observed.
func (b BitSet) Iter() Iterator {
	return Iterator{set: b}
}

// Iterator walks a BitSet snapshot. It may be abandoned at any point.
type Iterator struct {
	set   BitSet
	index uint16
}

// Next returns the next set index, or false once all 256 bits were visited.
func (it *Iterator) Next() (uint8, bool) {
	for it.index <= 255 {
		i := uint8(it.index)
		it.index++
		if it.set.Contains(i) {
			return i, true
		}
	}
	return 0, false
}

// Lowest returns the smallest set index.
func (b BitSet) Lowest() (uint8, bool) {
	it := b.Iter()
	return it.Next()
}

// Highest returns the largest set index.
func (b BitSet) Highest() (uint8, bool) {
	for i := 255; i >= 0; i-- {
		if b.Contains(uint8(i)) {
			return uint8(i), true
		}
	}
	return 0, false
}
