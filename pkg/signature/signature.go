// Package signature builds and searches librsync block signatures: the
// per-block (weak checksum, truncated strong checksum) pairs that a
// signature file carries, and the in-memory hash index used to find
// candidate matching blocks while computing a delta.
//
// The index is deliberately not the simple map[uint32][]int an in-memory Go
// program would reach for first. It mirrors the original sumset design: a
// 16-bit fold of the weak checksum (Tag16) selects a bucket in a fixed
// 65536-entry range table, and within a bucket entries are kept in a single
// sorted array rather than per-bucket slices. This keeps the index's memory
// layout flat and its build step a single sort, matching how an index built
// from a signature file received over the wire would be reconstructed.
package signature

import (
	"github.com/pkg/errors"

	"github.com/mutagen-io/librsync/pkg/rsmagic"
)

// Signature is an ordered collection of block signatures together with the
// parameters needed to interpret them, and (once Build has been called) the
// hash index used to search them efficiently.
type Signature struct {
	// Magic identifies the weak/strong checksum algorithm pair used to
	// compute every block in this signature.
	Magic rsmagic.Magic
	// BlockLen is the basis block length signed blocks were computed over,
	// in bytes. Every block is this long except possibly the last.
	BlockLen uint32
	// StrongLen is the truncation length, in bytes, of every block's
	// strong checksum.
	StrongLen int

	// Blocks holds the block signatures in basis order. Index i of a
	// BlockSig always equals its position in this slice plus one.
	Blocks []BlockSig

	index *index
}

// New creates an empty Signature for the given checksum algorithms, basis
// block length, and strong checksum truncation length.
func New(magic rsmagic.Magic, blockLen uint32, strongLen int) (*Signature, error) {
	if !rsmagic.Valid(magic) {
		return nil, errors.Errorf("unrecognized signature magic: %#x", uint32(magic))
	}
	if blockLen == 0 {
		return nil, errors.New("block length must be non-zero")
	}
	if strongLen <= 0 {
		return nil, errors.New("strong checksum length must be positive")
	}
	return &Signature{
		Magic:     magic,
		BlockLen:  blockLen,
		StrongLen: strongLen,
	}, nil
}

// AddBlock appends a new block signature computed over the next BlockLen (or
// shorter, for the final block) bytes of the basis. strong is copied and
// truncated to StrongLen bytes if it is longer. AddBlock cannot be called
// after Build; constructing a Signature incrementally and then searching it
// requires calling Build after all blocks are added.
func (s *Signature) AddBlock(weak uint32, strong []byte) error {
	if s.index != nil {
		return errors.New("cannot add blocks after the index has been built")
	}
	if len(strong) < s.StrongLen {
		return errors.Errorf("strong checksum is %d bytes, need at least %d", len(strong), s.StrongLen)
	}
	truncated := make([]byte, s.StrongLen)
	copy(truncated, strong[:s.StrongLen])
	s.Blocks = append(s.Blocks, BlockSig{
		Index:  len(s.Blocks) + 1,
		Weak:   weak,
		Strong: truncated,
	})
	return nil
}

// Empty reports whether the signature carries no blocks, meaning the basis
// it was computed over was itself empty.
func (s *Signature) Empty() bool {
	return len(s.Blocks) == 0
}

// Built reports whether Build has been called.
func (s *Signature) Built() bool {
	return s.index != nil
}

// Build constructs the hash index over the current set of blocks. It is
// idempotent: calling it again (for instance after loading a signature
// incrementally and deciding to rebuild) simply recomputes the same index
// from the current Blocks, deterministically.
func (s *Signature) Build() {
	s.index = buildIndex(s.Blocks)
}

// Search looks for a block whose weak checksum equals weak and whose strong
// checksum equals the value computeStrong returns. computeStrong is called
// at most once, and only if at least one block shares weak's index bucket
// and weak value — callers should pass a closure that lazily computes the
// (expensive) strong checksum over the current delta window.
//
// Search returns the 1-based index of the first matching block in basis
// order (the lowest index, when multiple blocks are byte-identical), or 0 if
// there is no match. falseMatches counts how many strong-checksum
// comparisons were attempted and failed, for the caller to fold into its
// statistics.
func (s *Signature) Search(weak uint32, computeStrong func() []byte) (index int, falseMatches int) {
	if s.index == nil {
		panic("signature: Search called before Build")
	}
	return s.index.search(s.Blocks, weak, computeStrong)
}

// EnsureValid verifies Signature invariants.
func (s *Signature) EnsureValid() error {
	if s == nil {
		return errors.New("nil signature")
	}
	if !rsmagic.Valid(s.Magic) {
		return errors.New("signature has invalid magic")
	}
	if s.BlockLen == 0 {
		return errors.New("signature has zero block length")
	}
	if s.StrongLen <= 0 {
		return errors.New("signature has non-positive strong checksum length")
	}
	for i := range s.Blocks {
		if err := s.Blocks[i].EnsureValid(); err != nil {
			return errors.Wrapf(err, "invalid block at position %d", i)
		}
	}
	return nil
}
