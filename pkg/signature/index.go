package signature

import (
	"bytes"
	"sort"
)

// Tag16 folds a 32-bit weak checksum down to the 16-bit tag used to bucket
// entries in the hash index, by adding the high and low halves together.
// This is the same fold the original sumset implementation uses: it is
// cheap, and for Rollsum/RabinKarp outputs it spreads real-world block
// checksums across the table well enough to keep buckets small.
func Tag16(weak uint32) uint16 {
	return uint16(weak+(weak>>16)) & 0xffff
}

// entry is one row of the sorted index array: the 16-bit tag, the full weak
// checksum, and the basis position of the block it names. Keeping the tag
// alongside the array entry (rather than recomputing it) lets the sort and
// the bucket scan both work off a single flat slice.
type entry struct {
	tag   uint16
	weak  uint32
	block int // index into the owning Signature's Blocks slice
}

// tagRange gives the inclusive [l, r] slice bounds, into the sorted entry
// array, of all entries sharing a given 16-bit tag. An empty bucket is
// represented as l > r.
type tagRange struct {
	l, r int
}

// index is the built hash index for a Signature: a flat array of entries
// sorted by (tag, weak, strong checksum, block index), and a fixed
// 65536-entry table mapping each
// possible tag to its range within that array.
type index struct {
	entries []entry
	table   [65536]tagRange
}

func buildIndex(blocks []BlockSig) *index {
	entries := make([]entry, len(blocks))
	for i, b := range blocks {
		entries[i] = entry{tag: Tag16(b.Weak), weak: b.Weak, block: i}
	}

	sort.Slice(entries, func(a, z int) bool {
		ea, ez := entries[a], entries[z]
		if ea.tag != ez.tag {
			return ea.tag < ez.tag
		}
		if ea.weak != ez.weak {
			return ea.weak < ez.weak
		}
		sa, sz := blocks[ea.block].Strong, blocks[ez.block].Strong
		if c := bytes.Compare(sa, sz); c != 0 {
			return c < 0
		}
		// Identical (weak, strong): break the tie by basis position so
		// that Search, scanning in this order, always reports the
		// lowest-indexed match first for duplicate blocks.
		return blocks[ea.block].Index < blocks[ez.block].Index
	})

	idx := &index{entries: entries}
	for i := range idx.table {
		idx.table[i] = tagRange{l: 0, r: -1}
	}

	for i := 0; i < len(entries); {
		tag := entries[i].tag
		j := i
		for j < len(entries) && entries[j].tag == tag {
			j++
		}
		idx.table[tag] = tagRange{l: i, r: j - 1}
		i = j
	}

	return idx
}

// search scans the bucket for weak's tag, skipping to the first entry whose
// weak checksum matches (entries within a bucket are sorted by weak), then
// compares strong checksums in order until one matches or the bucket is
// exhausted.
func (idx *index) search(blocks []BlockSig, weak uint32, computeStrong func() []byte) (int, int) {
	rng := idx.table[Tag16(weak)]
	if rng.l > rng.r {
		return 0, 0
	}

	lo := rng.l
	start := sort.Search(rng.r-rng.l+1, func(k int) bool {
		return idx.entries[rng.l+k].weak >= weak
	}) + lo

	falseMatches := 0
	var strong []byte
	strongComputed := false

	for k := start; k <= rng.r && idx.entries[k].weak == weak; k++ {
		if !strongComputed {
			strong = computeStrong()
			strongComputed = true
		}
		block := blocks[idx.entries[k].block]
		if bytes.Equal(block.Strong, strong) {
			return block.Index, falseMatches
		}
		falseMatches++
	}

	return 0, falseMatches
}
