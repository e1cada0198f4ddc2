package rsync

import (
	"github.com/pkg/errors"

	"github.com/mutagen-io/librsync/pkg/netint"
	"github.com/mutagen-io/librsync/pkg/prototab"
	"github.com/mutagen-io/librsync/pkg/rsmagic"
	"github.com/mutagen-io/librsync/pkg/signature"
	"github.com/mutagen-io/librsync/pkg/strongsum"
	"github.com/mutagen-io/librsync/pkg/weaksum"
)

// deltaMissBound caps how many unmatched bytes accumulate before they are
// forced out as a LITERAL command, bounding the job's memory use regardless
// of how poorly the target matches the basis.
const deltaMissBound = 32 * 1024

// slackChunkMax bounds how many bytes a single LITERAL command carries when
// there is no signature at all (a "slack" delta).
const slackChunkMax = 32 * 1024

// deltaJob holds the state of a Delta pipeline: the signature being matched
// against (nil or empty for a slack delta), the scan position bookkeeping,
// and whatever match or literal run is currently pending flush.
type deltaJob struct {
	job *Job

	sig       *signature.Signature
	blockLen  uint32
	strongLen int
	sigMagic  rsmagic.Magic
	paranoia  bool

	weak        weaksum.WeakHash
	freshWindow bool
	literalLen  int

	hasPendingMatch bool
	matchBasisPos   uint64
	matchBasisLen   uint64

	// pendingP/pendingLen carry a just-found match's basis position and
	// length through the flush chain into whichever commit step follows.
	pendingP   uint64
	pendingLen uint64

	// afterFlush is invoked once any pending match and literal run have
	// been queued to the tube; it is how the three places that need to
	// flush (a non-extending scan match, the miss bound, and end of
	// input) each resume at the right place afterwards.
	afterFlush stateFunc

	// tailWindow/tailFront track the shrinking end-of-input window used by
	// tailEnter and tailTry for the final short block: the remaining bytes
	// are tested as a whole, then one byte at a time is rolled off the
	// front and reclassified as literal until either a match is found or
	// nothing is left.
	tailWindow []byte
	tailFront  int
}

// NewDeltaJob creates a Job that reads a target from Iter's input buffer and
// writes a delta against sig to the output buffer. A nil or empty signature
// produces a "slack" delta containing only literal commands. sig must
// already have had Build called if it is non-empty. paranoia enables a
// development-only assertion that the rolling weak sum matches a freshly
// computed digest after every roll.
func NewDeltaJob(sig *signature.Signature, paranoia bool) (*Job, error) {
	if sig != nil && !sig.Empty() && !sig.Built() {
		return nil, errorf(ParamError, "signature has not had its hash index built")
	}

	j := &Job{}
	dj := &deltaJob{job: j, sig: sig, paranoia: paranoia}
	if sig != nil && !sig.Empty() {
		dj.blockLen = sig.BlockLen
		dj.strongLen = sig.StrongLen
		dj.sigMagic = sig.Magic
		dj.weak = weaksum.New(sig.Magic)
	}
	j.state = dj.header
	return j, nil
}

func (dj *deltaJob) header(b *Buffers) Result {
	payload := netint.Put(nil, uint64(rsmagic.Delta), 4)
	if err := dj.job.tube.write(payload); err != nil {
		return fail(InternalError, err)
	}
	if dj.sig == nil || dj.sig.Empty() {
		dj.job.state = dj.slackBody
	} else {
		dj.freshWindow = true
		dj.job.state = dj.scan
	}
	dj.job.progress()
	return running()
}

// slackBody handles the no-signature case: every byte becomes literal data.
func (dj *deltaJob) slackBody(b *Buffers) Result {
	n := dj.job.scoop.totalAvail(b)
	if n == 0 {
		if b.inputExhausted() {
			dj.job.state = dj.finishDelta
			dj.job.progress()
			return running()
		}
		return blocked()
	}
	if n > slackChunkMax {
		n = slackChunkMax
	}
	header := dj.literalCommandHeader(uint64(n))
	if err := dj.job.tube.queueLiteral(header, uint64(n)); err != nil {
		return fail(InternalError, err)
	}
	dj.job.stats.LiteralBytes += uint64(n)
	dj.job.progress()
	return running()
}

// scan implements the rolling-match loop: evaluate the current window, and
// either extend or start a pending match on a hit, or roll one byte into
// the pending literal run on a miss.
func (dj *deltaJob) scan(b *Buffers) Result {
	need := dj.literalLen + int(dj.blockLen) + 1
	peek, r := dj.job.scoop.readahead(b, need)
	if r.Kind == Blocked {
		return r
	}
	if r.Kind == Error {
		windowNeed := dj.literalLen + int(dj.blockLen)
		_, r2 := dj.job.scoop.readahead(b, windowNeed)
		if r2.Kind == Blocked {
			return r2
		}
		dj.job.state = dj.tailEnter
		dj.job.progress()
		return running()
	}

	window := peek[dj.literalLen : dj.literalLen+int(dj.blockLen)]
	lookahead := peek[dj.literalLen+int(dj.blockLen)]

	if dj.freshWindow {
		dj.weak.Init()
		dj.weak.Update(window)
		dj.freshWindow = false
	}

	idx, falseMatches := dj.sig.Search(dj.weak.Digest(), func() []byte {
		return strongsum.Sum(dj.sigMagic, window, dj.strongLen)
	})
	dj.job.stats.FalseMatches += uint64(falseMatches)

	if idx > 0 {
		P := uint64(idx-1) * uint64(dj.blockLen)
		if dj.hasPendingMatch && dj.literalLen == 0 && dj.matchBasisPos+dj.matchBasisLen == P {
			dj.job.scoop.advance(b, int(dj.blockLen))
			dj.matchBasisLen += uint64(dj.blockLen)
			dj.freshWindow = true
			dj.job.progress()
			return running()
		}
		dj.pendingP = P
		dj.pendingLen = uint64(dj.blockLen)
		dj.afterFlush = dj.commitScanMatch
		dj.job.state = dj.flushMatchStep
		dj.job.progress()
		return running()
	}

	dj.weak.Rotate(window[0], lookahead)
	dj.literalLen++

	if dj.paranoia {
		check := weaksum.New(dj.sigMagic)
		check.Init()
		check.Update(peek[dj.literalLen : dj.literalLen+int(dj.blockLen)])
		if check.Digest() != dj.weak.Digest() {
			return fail(InternalError, errors.New("rsync: paranoia check failed after rolling the weak sum"))
		}
	}

	if dj.literalLen >= deltaMissBound {
		dj.afterFlush = dj.scan
		dj.job.state = dj.flushMatchStep
		dj.job.progress()
		return running()
	}
	dj.job.progress()
	return running()
}

// tailEnter pulls every remaining input byte into the scoop and prepares to
// test the shrinking end-of-input window.
func (dj *deltaJob) tailEnter(b *Buffers) Result {
	total := dj.job.scoop.totalAvail(b)
	if total < dj.literalLen {
		return fail(InternalError, errors.New("rsync: delta tail window underflowed pending literal length"))
	}
	data, r := dj.job.scoop.readahead(b, total)
	if r.Kind != Done {
		return r
	}
	dj.tailWindow = append([]byte(nil), data[dj.literalLen:total]...)
	dj.tailFront = 0

	if len(dj.tailWindow) == 0 {
		dj.afterFlush = dj.finishDelta
		dj.job.state = dj.flushMatchStep
		dj.job.progress()
		return running()
	}

	dj.weak.Init()
	dj.weak.Update(dj.tailWindow)
	dj.job.state = dj.tailTry
	dj.job.progress()
	return running()
}

// tailTry evaluates the current (possibly already shrunk) tail window,
// rolling one more byte off the front into the literal run on a miss.
func (dj *deltaJob) tailTry(b *Buffers) Result {
	window := dj.tailWindow[dj.tailFront:]
	length := len(window)
	if length == 0 {
		dj.afterFlush = dj.finishDelta
		dj.job.state = dj.flushMatchStep
		dj.job.progress()
		return running()
	}

	idx, falseMatches := dj.sig.Search(dj.weak.Digest(), func() []byte {
		return strongsum.Sum(dj.sigMagic, window, dj.strongLen)
	})
	dj.job.stats.FalseMatches += uint64(falseMatches)

	if idx > 0 {
		P := uint64(idx-1) * uint64(dj.blockLen)
		if dj.hasPendingMatch && dj.literalLen == 0 && dj.matchBasisPos+dj.matchBasisLen == P {
			dj.job.scoop.advance(b, length)
			dj.matchBasisLen += uint64(length)
			dj.tailFront += length
			dj.afterFlush = dj.finishDelta
			dj.job.state = dj.flushMatchStep
			dj.job.progress()
			return running()
		}
		dj.pendingP = P
		dj.pendingLen = uint64(length)
		dj.tailFront += length
		dj.afterFlush = dj.commitTailMatch
		dj.job.state = dj.flushMatchStep
		dj.job.progress()
		return running()
	}

	dj.weak.RollOut(window[0])
	dj.literalLen++
	dj.tailFront++
	dj.job.progress()
	return running()
}

func (dj *deltaJob) commitScanMatch(b *Buffers) Result {
	dj.job.scoop.advance(b, int(dj.pendingLen))
	dj.matchBasisPos = dj.pendingP
	dj.matchBasisLen = dj.pendingLen
	dj.hasPendingMatch = true
	dj.freshWindow = true
	dj.job.state = dj.scan
	dj.job.progress()
	return running()
}

func (dj *deltaJob) commitTailMatch(b *Buffers) Result {
	dj.job.scoop.advance(b, int(dj.pendingLen))
	dj.matchBasisPos = dj.pendingP
	dj.matchBasisLen = dj.pendingLen
	dj.hasPendingMatch = true
	dj.afterFlush = dj.finishDelta
	dj.job.state = dj.flushMatchStep
	dj.job.progress()
	return running()
}

// flushMatchStep emits a COPY command for any pending match, in basis order,
// before any literal bytes that were scanned after it - matching the
// concrete worked examples rather than a literal reading of "flush literal,
// then flush match", which would reorder bytes relative to the target. See
// DESIGN.md.
func (dj *deltaJob) flushMatchStep(b *Buffers) Result {
	if dj.hasPendingMatch {
		header := dj.copyCommandHeader(dj.matchBasisPos, dj.matchBasisLen)
		if err := dj.job.tube.write(header); err != nil {
			return fail(InternalError, err)
		}
		dj.job.stats.MatchedBytes += dj.matchBasisLen
		dj.hasPendingMatch = false
		dj.job.state = dj.flushLiteralStep
		dj.job.progress()
		return running()
	}
	return dj.flushLiteralStep(b)
}

func (dj *deltaJob) flushLiteralStep(b *Buffers) Result {
	if dj.literalLen > 0 {
		header := dj.literalCommandHeader(uint64(dj.literalLen))
		if err := dj.job.tube.queueLiteral(header, uint64(dj.literalLen)); err != nil {
			return fail(InternalError, err)
		}
		dj.job.stats.LiteralBytes += uint64(dj.literalLen)
		dj.literalLen = 0
		dj.job.state = dj.afterFlush
		dj.job.progress()
		return running()
	}
	return dj.afterFlush(b)
}

func (dj *deltaJob) finishDelta(b *Buffers) Result {
	if err := dj.job.tube.write([]byte{prototab.End}); err != nil {
		return fail(InternalError, err)
	}
	dj.job.progress()
	return done()
}

func (dj *deltaJob) literalCommandHeader(length uint64) []byte {
	n := netint.Len(length)
	cmd := prototab.LiteralCommand(length, n)
	if length >= 1 && length <= 64 {
		return []byte{cmd}
	}
	return netint.Put([]byte{cmd}, length, n)
}

func (dj *deltaJob) copyCommandHeader(pos, length uint64) []byte {
	offLen := netint.Len(pos)
	lenLen := netint.Len(length)
	cmd := prototab.CopyCommand(offLen, lenLen)
	buf := append([]byte{cmd}, netint.Put(nil, pos, offLen)...)
	return netint.Put(buf, length, lenLen)
}
