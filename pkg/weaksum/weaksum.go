// Package weaksum implements the rolling weak checksums used to scan a
// target stream for blocks that match a basis signature. Two algorithms are
// provided: Rollsum (an Adler-like checksum, used by the legacy signature
// magic numbers) and RabinKarp (a polynomial hash, used by the extended
// magic numbers). Both satisfy the WeakHash interface, so the Delta and Sign
// pipelines never need to know which one is in play.
package weaksum

import "github.com/mutagen-io/librsync/pkg/rsmagic"

// WeakHash is the rolling-checksum interface shared by Rollsum and RabinKarp.
// Implementations must use wrapping unsigned arithmetic throughout; the
// algorithms are only correct under defined overflow.
type WeakHash interface {
	// Init resets the hash to its zero state.
	Init()
	// Update folds an entire buffer into the hash as though each byte had
	// been passed to RollIn in turn. It does not treat any existing state
	// as a window to roll out of; callers that want a fresh digest over buf
	// should call Init first.
	Update(buf []byte)
	// RollIn adds a single trailing byte to the window.
	RollIn(b byte)
	// RollOut removes a single leading byte from the window.
	RollOut(b byte)
	// Rotate is equivalent to RollOut(out) followed by RollIn(in), but may
	// be implemented more efficiently by fusing the two updates.
	Rotate(out, in byte)
	// Count returns the number of bytes currently included in the sum (the
	// number rolled in minus the number rolled out since the last Init).
	Count() uint64
	// Digest returns the current 32-bit checksum value.
	Digest() uint32
}

// New constructs the weak hash implementation selected by magic. It panics if
// magic does not name a known signature magic, since this is always a
// programming error (the magic should have already been validated against
// rsmagic.Valid).
func New(magic rsmagic.Magic) WeakHash {
	switch rsmagic.WeakOf(magic) {
	case rsmagic.WeakRollsum:
		return new(Rollsum)
	case rsmagic.WeakRabinKarp:
		return new(RabinKarp)
	default:
		panic("weaksum: unknown magic")
	}
}
