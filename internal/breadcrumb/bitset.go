package breadcrumb

import "math/bits"

// bitset is a fixed-size bit set keyed by path index. It backs both the
// simplifier's keep-set and the path's removal marks; the two are never
// aliased.
type bitset struct {
	words []uint64
	size  int
}

func newBitset(size int) bitset {
	return bitset{
		words: make([]uint64, (size+63)/64),
		size:  size,
	}
}

func (b *bitset) get(i int) bool {
	if i < 0 || i >= b.size {
		return false
	}
	return b.words[i/64]&(1<<(uint(i)%64)) != 0
}

func (b *bitset) set(i int) {
	if i < 0 || i >= b.size {
		return
	}
	b.words[i/64] |= 1 << (uint(i) % 64)
}

func (b *bitset) clear(i int) {
	if i < 0 || i >= b.size {
		return
	}
	b.words[i/64] &^= 1 << (uint(i) % 64)
}

func (b *bitset) setAll() {
	for i := range b.words {
		b.words[i] = ^uint64(0)
	}
	// Mask off the bits past size so counts stay exact.
	if rem := b.size % 64; rem != 0 && len(b.words) > 0 {
		b.words[len(b.words)-1] = (1 << uint(rem)) - 1
	}
}

// setFrom sets every bit in [from, size).
func (b *bitset) setFrom(from int) {
	if from < 0 {
		from = 0
	}
	for i := from; i < b.size; i++ {
		b.set(i)
	}
}

func (b *bitset) clearAll() {
	for i := range b.words {
		b.words[i] = 0
	}
}

// countSet returns the number of set bits in [0, n).
func (b *bitset) countSet(n int) int {
	if n > b.size {
		n = b.size
	}
	total := 0
	full := n / 64
	for i := 0; i < full; i++ {
		total += bits.OnesCount64(b.words[i])
	}
	if rem := n % 64; rem != 0 {
		total += bits.OnesCount64(b.words[full] & ((1 << uint(rem)) - 1))
	}
	return total
}

// countClear returns the number of clear bits in [0, n).
func (b *bitset) countClear(n int) int {
	if n > b.size {
		n = b.size
	}
	return n - b.countSet(n)
}
