package signature

import "github.com/pkg/errors"

// BlockSig is the signature of a single basis block: its 1-based position in
// the basis, its weak checksum, and its truncated strong checksum. BlockSigs
// are appended to a Signature in file order and are never reordered — the
// Index field is exactly their position, recorded explicitly so that the
// sorted hash-index array (built separately, see index.go) can refer back to
// the original block without relying on array position.
type BlockSig struct {
	// Index is the 1-based position of this block in the basis.
	Index int
	// Weak is the block's weak (rolling) checksum.
	Weak uint32
	// Strong is the block's truncated strong checksum, exactly StrongLen
	// bytes long for the owning Signature.
	Strong []byte
}

// EnsureValid verifies BlockSig invariants.
func (b *BlockSig) EnsureValid() error {
	if b == nil {
		return errors.New("nil block signature")
	}
	if b.Index < 1 {
		return errors.New("block signature has non-positive index")
	}
	if len(b.Strong) == 0 {
		return errors.New("block signature has empty strong checksum")
	}
	return nil
}
