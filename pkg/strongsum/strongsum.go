// Package strongsum dispatches to the strong (cryptographic-grade) hash
// function selected by a signature's magic number. The core treats these as
// opaque init/update/final primitives, supplied here by golang.org/x/crypto
// rather than reimplemented.
package strongsum

import (
	"hash"

	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/md4"

	"github.com/mutagen-io/librsync/pkg/rsmagic"
)

// FullLength returns the untruncated digest length, in bytes, produced by the
// strong algorithm that magic selects: 16 for MD4, 32 for BLAKE2b.
func FullLength(magic rsmagic.Magic) int {
	switch rsmagic.StrongOf(magic) {
	case rsmagic.StrongMD4:
		return md4.Size
	case rsmagic.StrongBLAKE2:
		return blake2b.Size256
	default:
		panic("strongsum: unknown magic")
	}
}

// New constructs a fresh hash.Hash for the strong algorithm that magic
// selects. It panics if magic is not a valid signature magic, since that
// should always have been checked already via rsmagic.Valid.
func New(magic rsmagic.Magic) hash.Hash {
	switch rsmagic.StrongOf(magic) {
	case rsmagic.StrongMD4:
		return md4.New()
	case rsmagic.StrongBLAKE2:
		h, err := blake2b.New256(nil)
		if err != nil {
			// New256 only fails for an oversized key, and we never pass one.
			panic(err)
		}
		return h
	default:
		panic("strongsum: unknown magic")
	}
}

// Sum computes the strong hash of data for the given magic and truncates the
// result to length bytes. length must be between 1 and FullLength(magic).
func Sum(magic rsmagic.Magic, data []byte, length int) []byte {
	h := New(magic)
	h.Write(data)
	digest := h.Sum(nil)
	return digest[:length]
}
