// Package rsmagic defines the 32-bit magic numbers that open every signature
// and delta stream, and the weak/strong algorithm pairs that each signature
// magic selects. Magic values are part of the wire format and must never
// change meaning once assigned.
package rsmagic

import "fmt"

// Magic identifies the format and algorithms of a signature or delta stream.
type Magic uint32

// Signature and delta magic numbers, as fixed by the wire format.
const (
	// MD4Signature identifies a signature using MD4 strong sums and the
	// legacy Rollsum weak checksum.
	MD4Signature Magic = 0x72730136
	// BLAKE2Signature identifies a signature using BLAKE2b strong sums and
	// the legacy Rollsum weak checksum.
	BLAKE2Signature Magic = 0x72730137
	// MD4SignatureRabinKarp identifies a signature using MD4 strong sums and
	// the RabinKarp weak checksum.
	MD4SignatureRabinKarp Magic = 0x72730146
	// BLAKE2SignatureRabinKarp identifies a signature using BLAKE2b strong
	// sums and the RabinKarp weak checksum.
	BLAKE2SignatureRabinKarp Magic = 0x72730147
	// Delta identifies a delta (command) stream.
	Delta Magic = 0x72730236
)

// WeakAlgorithm identifies a rolling weak-checksum algorithm.
type WeakAlgorithm int

// StrongAlgorithm identifies a strong (cryptographic-grade) hash algorithm.
type StrongAlgorithm int

const (
	// WeakRollsum is the legacy Adler-like rolling checksum.
	WeakRollsum WeakAlgorithm = iota
	// WeakRabinKarp is the polynomial rolling checksum.
	WeakRabinKarp
)

const (
	// StrongMD4 selects the truncated MD4 strong hash.
	StrongMD4 StrongAlgorithm = iota
	// StrongBLAKE2 selects the truncated BLAKE2b strong hash.
	StrongBLAKE2
)

// signatureMagics maps every valid signature magic to the algorithm pair it
// selects. Delta is handled separately since it carries no algorithm choice
// of its own (the operations it encodes are algorithm-agnostic).
var signatureMagics = map[Magic]struct {
	weak   WeakAlgorithm
	strong StrongAlgorithm
}{
	MD4Signature:             {WeakRollsum, StrongMD4},
	BLAKE2Signature:          {WeakRollsum, StrongBLAKE2},
	MD4SignatureRabinKarp:    {WeakRabinKarp, StrongMD4},
	BLAKE2SignatureRabinKarp: {WeakRabinKarp, StrongBLAKE2},
}

// Valid reports whether magic is a recognized signature magic.
func Valid(magic Magic) bool {
	_, ok := signatureMagics[magic]
	return ok
}

// WeakOf returns the weak-checksum algorithm that magic selects. It panics
// if magic is not a valid signature magic; callers must validate with Valid
// (or rely on LoadSig having already rejected an unknown magic with
// BadMagic) before calling this.
func WeakOf(magic Magic) WeakAlgorithm {
	entry, ok := signatureMagics[magic]
	if !ok {
		panic(fmt.Sprintf("rsmagic: unknown magic 0x%08x", uint32(magic)))
	}
	return entry.weak
}

// StrongOf returns the strong-hash algorithm that magic selects. See WeakOf
// for panic behavior on an unrecognized magic.
func StrongOf(magic Magic) StrongAlgorithm {
	entry, ok := signatureMagics[magic]
	if !ok {
		panic(fmt.Sprintf("rsmagic: unknown magic 0x%08x", uint32(magic)))
	}
	return entry.strong
}

// String renders a magic as it would appear in diagnostic output.
func (m Magic) String() string {
	return fmt.Sprintf("0x%08x", uint32(m))
}

// ForAlgorithms returns the signature magic corresponding to the given weak
// and strong algorithm pair. It returns false if no magic is defined for
// that combination (there is currently no RabinKarp-free... every pair in
// the table above is covered, so this only fails for algorithm values
// outside the defined enums).
func ForAlgorithms(weak WeakAlgorithm, strong StrongAlgorithm) (Magic, bool) {
	for magic, entry := range signatureMagics {
		if entry.weak == weak && entry.strong == strong {
			return magic, true
		}
	}
	return 0, false
}
