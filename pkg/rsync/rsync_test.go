package rsync

import (
	"bytes"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/mutagen-io/librsync/pkg/netint"
	"github.com/mutagen-io/librsync/pkg/prototab"
	"github.com/mutagen-io/librsync/pkg/random"
	"github.com/mutagen-io/librsync/pkg/rsmagic"
	"github.com/mutagen-io/librsync/pkg/signature"
	"github.com/mutagen-io/librsync/pkg/strongsum"
	"github.com/mutagen-io/librsync/pkg/weaksum"
)

// deltaCommand is a single decoded command from a delta stream: either a
// COPY (Off/Len set, Literal nil) or a LITERAL (Literal set).
type deltaCommand struct {
	Copy    bool
	Off     uint64
	Len     uint64
	Literal []byte
}

// decodeDeltaCommands parses a complete delta stream (magic header through
// END) into its command sequence, for tests that need to assert the exact
// COPY/LITERAL shape of a delta rather than just its round-trip result.
func decodeDeltaCommands(t *testing.T, delta []byte) []deltaCommand {
	t.Helper()
	if len(delta) < 4 {
		t.Fatalf("delta too short to contain a magic header: %d bytes", len(delta))
	}
	if magic := netint.Get(delta[:4], 4); magic != uint64(rsmagic.Delta) {
		t.Fatalf("delta magic = %#x, want %#x", magic, uint64(rsmagic.Delta))
	}
	rest := delta[4:]

	var commands []deltaCommand
	for {
		if len(rest) == 0 {
			t.Fatalf("delta stream ended without an END command")
		}
		cmdByte := rest[0]
		entry := prototab.Lookup(cmdByte)
		rest = rest[1:]
		switch entry.Kind {
		case prototab.KindEnd:
			return commands
		case prototab.KindLiteral:
			length := uint64(entry.Immediate)
			if entry.Param1Len > 0 {
				length = netint.Get(rest, entry.Param1Len)
				rest = rest[entry.Param1Len:]
			}
			if uint64(len(rest)) < length {
				t.Fatalf("literal command claims %d bytes, only %d remain", length, len(rest))
			}
			commands = append(commands, deltaCommand{Literal: append([]byte(nil), rest[:length]...)})
			rest = rest[length:]
		case prototab.KindCopy:
			off := netint.Get(rest, entry.Param1Len)
			rest = rest[entry.Param1Len:]
			length := netint.Get(rest, entry.Param2Len)
			rest = rest[entry.Param2Len:]
			commands = append(commands, deltaCommand{Copy: true, Off: off, Len: length})
		default:
			t.Fatalf("unexpected command byte in delta stream: %#x", cmdByte)
		}
	}
}

func mustSign(t *testing.T, magic rsmagic.Magic, blockLen uint32, strongLen int, basis []byte) []byte {
	t.Helper()
	sig, _, err := SignBytes(magic, blockLen, strongLen, basis)
	if err != nil {
		t.Fatalf("SignBytes failed: %v", err)
	}
	return sig
}

func mustLoadSig(t *testing.T, sig []byte) *signature.Signature {
	t.Helper()
	loaded, _, err := LoadSigBytes(sig)
	if err != nil {
		t.Fatalf("LoadSigBytes failed: %v", err)
	}
	loaded.Build()
	return loaded
}

func mustDelta(t *testing.T, sig *signature.Signature, target []byte) []byte {
	t.Helper()
	delta, _, err := DeltaBytes(sig, true, target)
	if err != nil {
		t.Fatalf("DeltaBytes failed: %v", err)
	}
	return delta
}

func mustPatch(t *testing.T, basis, delta []byte) []byte {
	t.Helper()
	out, _, err := PatchBytes(basis, delta)
	if err != nil {
		t.Fatalf("PatchBytes failed: %v", err)
	}
	return out
}

// roundTrip signs basis, computes a delta against target, and patches it
// back, asserting the result equals target exactly.
func roundTrip(t *testing.T, magic rsmagic.Magic, blockLen uint32, strongLen int, basis, target []byte) []byte {
	t.Helper()
	sig := mustSign(t, magic, blockLen, strongLen, basis)
	loaded := mustLoadSig(t, sig)
	delta := mustDelta(t, loaded, target)
	got := mustPatch(t, basis, delta)
	if !bytes.Equal(got, target) {
		t.Fatalf("patch result mismatch:\n got: %q\nwant: %q", got, target)
	}
	return delta
}

func TestIdentity(t *testing.T) {
	data := []byte("ABCDEFGHIJKLMNOP")
	delta := roundTrip(t, rsmagic.BLAKE2Signature, 4, 32, data, data)

	// A whole-basis match should collapse to a single COPY command plus a
	// magic header and END, well under the size of the data itself.
	if len(delta) > 32 {
		t.Errorf("identity delta unexpectedly large: %d bytes", len(delta))
	}

	want := []deltaCommand{{Copy: true, Off: 0, Len: 16}}
	if diff := cmp.Diff(want, decodeDeltaCommands(t, delta)); diff != "" {
		t.Errorf("command sequence mismatch (-want +got):\n%s", diff)
	}
}

func TestPureLiteral(t *testing.T) {
	delta := roundTrip(t, rsmagic.BLAKE2Signature, 4, 32, []byte(""), []byte("hello"))

	want := []deltaCommand{{Literal: []byte("hello")}}
	if diff := cmp.Diff(want, decodeDeltaCommands(t, delta)); diff != "" {
		t.Errorf("command sequence mismatch (-want +got):\n%s", diff)
	}
}

func TestAlignedInsert(t *testing.T) {
	basis := []byte("AAAABBBBCCCCDDDD")
	target := []byte("AAAAXXXXBBBBCCCCDDDD")
	delta := roundTrip(t, rsmagic.BLAKE2Signature, 4, 32, basis, target)

	want := []deltaCommand{
		{Copy: true, Off: 0, Len: 4},
		{Literal: []byte("XXXX")},
		{Copy: true, Off: 4, Len: 12},
	}
	if diff := cmp.Diff(want, decodeDeltaCommands(t, delta)); diff != "" {
		t.Errorf("command sequence mismatch (-want +got):\n%s", diff)
	}
}

func TestMisalignedMatch(t *testing.T) {
	basis := []byte("AAAABBBBCCCCDDDD")
	target := []byte("ZBBBBCCCCDDDDAAAA")
	delta := roundTrip(t, rsmagic.BLAKE2Signature, 4, 32, basis, target)

	// The engine finds BBBBCCCCDDDD starting at basis offset 4 (after a
	// one-byte literal for the leading Z) and extends it across all three
	// contiguous blocks into a single COPY, then finds the trailing AAAA
	// back at basis offset 0 as a second, disjoint COPY.
	want := []deltaCommand{
		{Literal: []byte("Z")},
		{Copy: true, Off: 4, Len: 12},
		{Copy: true, Off: 0, Len: 4},
	}
	if diff := cmp.Diff(want, decodeDeltaCommands(t, delta)); diff != "" {
		t.Errorf("command sequence mismatch (-want +got):\n%s", diff)
	}
}

// TestShortTail covers spec scenario 5: a basis whose final block is shorter
// than the configured block length. basis = target = "ABCDEFGHIJ" (10
// bytes) with block_len 4 splits into blocks of length 4, 4, 2.
//
// A literal reading of the scenario expects three separate COPY commands,
// (0,4), (4,4), (8,2), one per basis block. That is not what this encoder
// produces: because all three blocks are also contiguous in the target
// (this is an identity case), match extension - the same contiguous-block
// merging exercised by TestAlignedInsert's trailing COPY(4,12) - folds all
// three into one COPY(0,10). This matches the original librsync encoder
// (rs_appendmatch / rs_appendflush in original_source/src/delta.c), which
// only flushes a match when the next candidate is non-contiguous or a
// literal run intervenes; see DESIGN.md's open-question log for the
// resolution.
func TestShortTail(t *testing.T) {
	basis := []byte("ABCDEFGHIJ")
	target := []byte("ABCDEFGHIJ")
	delta := roundTrip(t, rsmagic.BLAKE2Signature, 4, 32, basis, target)

	want := []deltaCommand{{Copy: true, Off: 0, Len: 10}}
	if diff := cmp.Diff(want, decodeDeltaCommands(t, delta)); diff != "" {
		t.Errorf("command sequence mismatch (-want +got):\n%s", diff)
	}

	// A target whose short tail differs from the basis's short final block
	// ("EE" against "EEE") must still round-trip: the tail cannot match and
	// is carried as literal data after the merged COPY.
	basis2 := []byte("AAAABBBBCCCCDDDDEEE")
	roundTrip(t, rsmagic.BLAKE2Signature, 8, 32, basis2, []byte("AAAABBBBCCCCDDDDEE"))
}

// TestSignatureRoundTrip covers spec scenario 6: sign a 1 MiB buffer with
// BLAKE2 magic, block_len 2048, strong_sum_len 32, then assert the BlockSig
// array LoadSig parses back out of the wire format is bit-identical to the
// per-block weak/strong checksums computed directly from the same buffer
// (independently of the Sign job, which streams its output rather than
// building a signature.Signature of its own to compare against).
func TestSignatureRoundTrip(t *testing.T) {
	const blockLen = 2048
	const strongLen = 32

	basis, err := random.New(1 << 20)
	if err != nil {
		t.Fatalf("unable to generate random basis: %v", err)
	}

	sig := mustSign(t, rsmagic.BLAKE2Signature, blockLen, strongLen, basis)
	loaded := mustLoadSig(t, sig)

	if loaded.Magic != rsmagic.BLAKE2Signature {
		t.Errorf("magic mismatch: got %v", loaded.Magic)
	}
	if loaded.BlockLen != blockLen {
		t.Errorf("block length mismatch: got %d", loaded.BlockLen)
	}
	if loaded.StrongLen != strongLen {
		t.Errorf("strong length mismatch: got %d", loaded.StrongLen)
	}

	want := computeBlockSigs(rsmagic.BLAKE2Signature, blockLen, strongLen, basis)
	if diff := cmp.Diff(want, loaded.Blocks); diff != "" {
		t.Errorf("block signature mismatch (-want +got):\n%s", diff)
	}
}

// computeBlockSigs independently recomputes the expected per-block weak and
// truncated strong checksums directly from pkg/weaksum and pkg/strongsum,
// bypassing the Sign job entirely, so TestSignatureRoundTrip cross-checks
// what LoadSig parsed against a second, independent derivation rather than
// just re-deriving the same code path twice.
func computeBlockSigs(magic rsmagic.Magic, blockLen uint32, strongLen int, basis []byte) []signature.BlockSig {
	var blocks []signature.BlockSig
	for pos := 0; pos < len(basis); pos += int(blockLen) {
		end := pos + int(blockLen)
		if end > len(basis) {
			end = len(basis)
		}
		block := basis[pos:end]

		weak := weaksum.New(magic)
		weak.Init()
		weak.Update(block)

		blocks = append(blocks, signature.BlockSig{
			Index:  len(blocks) + 1,
			Weak:   weak.Digest(),
			Strong: strongsum.Sum(magic, block, strongLen),
		})
	}
	return blocks
}

func TestNoSignatureProducesSlackDelta(t *testing.T) {
	target := []byte("no basis available for this one")
	delta, _, err := DeltaBytes(nil, false, target)
	if err != nil {
		t.Fatalf("DeltaBytes failed: %v", err)
	}
	basis := []byte{}
	got, _, err := PatchBytes(basis, delta)
	if err != nil {
		t.Fatalf("PatchBytes failed: %v", err)
	}
	if !bytes.Equal(got, target) {
		t.Fatalf("slack delta round trip mismatch:\n got: %q\nwant: %q", got, target)
	}
}

// TestFragmentedInput drives Sign, Delta, and Patch jobs one byte at a time
// (the worst possible caller fragmentation) and checks the output matches
// the whole-buffer convenience wrapper byte for byte.
func TestFragmentedInput(t *testing.T) {
	basis := []byte("AAAABBBBCCCCDDDDEEEEFFFFGGGGHHHH")
	target := []byte("AAAAZZZZBBBBCCCCDDDDEEEEFFFFGGGGHHHHQQ")

	wholeSig := mustSign(t, rsmagic.BLAKE2Signature, 4, 32, basis)
	fragSig := driveFragmented(t, func() (*Job, error) {
		return NewSignJob(rsmagic.BLAKE2Signature, 4, 32)
	}, basis)
	if !bytes.Equal(wholeSig, fragSig) {
		t.Fatalf("fragmented signature mismatch:\n got: %x\nwant: %x", fragSig, wholeSig)
	}

	sig := mustLoadSig(t, wholeSig)
	wholeDelta := mustDelta(t, sig, target)
	fragDelta := driveFragmented(t, func() (*Job, error) {
		return NewDeltaJob(sig, false)
	}, target)
	if !bytes.Equal(wholeDelta, fragDelta) {
		t.Fatalf("fragmented delta mismatch:\n got: %x\nwant: %x", fragDelta, wholeDelta)
	}

	wholePatch := mustPatch(t, basis, wholeDelta)
	fragPatch := driveFragmented(t, func() (*Job, error) {
		return NewPatchJob(BytesBasis(basis))
	}, wholeDelta)
	if !bytes.Equal(wholePatch, fragPatch) {
		t.Fatalf("fragmented patch mismatch:\n got: %q\nwant: %q", fragPatch, wholePatch)
	}
	if !bytes.Equal(fragPatch, target) {
		t.Fatalf("fragmented patch did not reconstruct target:\n got: %q\nwant: %q", fragPatch, target)
	}
}

// driveFragmented feeds input to a freshly constructed job exactly one byte
// at a time, with a one-byte output buffer as well, to exercise every
// Blocked/Running transition the job engine can take.
func driveFragmented(t *testing.T, newJob func() (*Job, error), input []byte) []byte {
	t.Helper()
	job, err := newJob()
	if err != nil {
		t.Fatalf("job construction failed: %v", err)
	}

	var out bytes.Buffer
	var outByte [1]byte
	pos := 0
	for {
		var in []byte
		if pos < len(input) {
			in = input[pos : pos+1]
		}
		b := &Buffers{In: in, InEnd: pos >= len(input), Out: outByte[:]}
		r := job.Iter(b)
		out.Write(outByte[:1-len(b.Out)])
		pos += 1 - len(b.In)
		switch r.Kind {
		case Done:
			return out.Bytes()
		case Error:
			t.Fatalf("job failed: %v", r)
		}
	}
}
