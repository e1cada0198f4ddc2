package weaksum

import (
	"math/rand"
	"testing"
)

// newImplementations returns one fresh instance of each WeakHash
// implementation (callers Init it before use), so property tests can run
// against both uniformly.
func newImplementations() []WeakHash {
	return []WeakHash{new(Rollsum), new(RabinKarp)}
}

// TestUpdateMatchesRollIn verifies that folding a buffer with Update produces
// the same digest as rolling in each byte individually.
func TestUpdateMatchesRollIn(t *testing.T) {
	data := []byte("the quick brown fox jumps over the lazy dog")
	for _, w := range newImplementations() {
		w.Init()
		w.Update(data)
		viaUpdate := w.Digest()

		w.Init()
		for _, b := range data {
			w.RollIn(b)
		}
		viaRollIn := w.Digest()

		if viaUpdate != viaRollIn {
			t.Errorf("%T: Update digest %#x != RollIn digest %#x", w, viaUpdate, viaRollIn)
		}
	}
}

// TestRollOutMatchesShorterWindow verifies that rolling the first byte out of
// a window produces the same digest as having hashed the remainder directly.
func TestRollOutMatchesShorterWindow(t *testing.T) {
	data := []byte("0123456789abcdef")
	for _, w := range newImplementations() {
		w.Init()
		w.Update(data)
		w.RollOut(data[0])
		rolled := w.Digest()

		w.Init()
		w.Update(data[1:])
		direct := w.Digest()

		if rolled != direct {
			t.Errorf("%T: rolled-out digest %#x != direct digest %#x", w, rolled, direct)
		}
	}
}

// TestRotateMatchesRollOutRollIn verifies that Rotate is equivalent to a
// RollOut followed by a RollIn for a sliding window.
func TestRotateMatchesRollOutRollIn(t *testing.T) {
	window := []byte("abcdefgh")
	next := byte('Z')
	for _, w := range newImplementations() {
		w.Init()
		w.Update(window)
		w.Rotate(window[0], next)
		viaRotate := w.Digest()

		w.Init()
		w.Update(window)
		w.RollOut(window[0])
		w.RollIn(next)
		viaSeparate := w.Digest()

		if viaRotate != viaSeparate {
			t.Errorf("%T: rotate digest %#x != rollout+rollin digest %#x", w, viaRotate, viaSeparate)
		}
	}
}

// TestCountTracksWindowSize verifies that Count reflects the number of bytes
// rolled in minus the number rolled out since the last Init.
func TestCountTracksWindowSize(t *testing.T) {
	for _, w := range newImplementations() {
		w.Init()
		for i := 0; i < 10; i++ {
			w.RollIn(byte(i))
		}
		if w.Count() != 10 {
			t.Errorf("%T: count after 10 roll-ins = %d, want 10", w, w.Count())
		}
		w.RollOut(0)
		w.RollOut(1)
		if w.Count() != 8 {
			t.Errorf("%T: count after 2 roll-outs = %d, want 8", w, w.Count())
		}
	}
}

// TestSlidingWindowConsistency rolls a window across a pseudorandom buffer
// byte by byte and checks, at every position, that the rolled digest matches
// a digest computed from scratch over the same window (the paranoia-mode
// check described in spec section 4.11, exercised here as a unit test rather
// than a runtime assertion).
func TestSlidingWindowConsistency(t *testing.T) {
	random := rand.New(rand.NewSource(1))
	data := make([]byte, 4096)
	random.Read(data)

	const windowSize = 64
	for _, w := range newImplementations() {
		w.Init()
		w.Update(data[:windowSize])

		for pos := 0; pos+windowSize < len(data); pos++ {
			w.Rotate(data[pos], data[pos+windowSize])

			fresh := newFreshOfSameType(w)
			fresh.Init()
			fresh.Update(data[pos+1 : pos+1+windowSize])

			if w.Digest() != fresh.Digest() {
				t.Fatalf("%T: digest diverged at position %d: %#x != %#x", w, pos, w.Digest(), fresh.Digest())
			}
		}
	}
}

// newFreshOfSameType returns a zero-valued WeakHash of the same concrete type
// as w; callers Init it before use.
func newFreshOfSameType(w WeakHash) WeakHash {
	switch w.(type) {
	case *Rollsum:
		return new(Rollsum)
	case *RabinKarp:
		return new(RabinKarp)
	default:
		panic("unknown weak hash type")
	}
}
