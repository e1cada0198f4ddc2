package rsync

import (
	"github.com/mutagen-io/librsync/pkg/netint"
	"github.com/mutagen-io/librsync/pkg/rsmagic"
	"github.com/mutagen-io/librsync/pkg/signature"
	"github.com/mutagen-io/librsync/pkg/strongsum"
)

// SignatureReceiver is populated by a LoadSig job as it decodes a signature
// stream. Signature is nil until the header has been read, then gains a
// block for each record decoded; once the job reaches a terminal Done result
// it holds a fully built (hash-indexed) Signature.
type SignatureReceiver struct {
	Signature *signature.Signature
}

type loadSigJob struct {
	job      *Job
	receiver *SignatureReceiver

	magic       rsmagic.Magic
	blockLen    uint32
	strongLen   int
	pendingWeak uint32
}

// NewLoadSigJob creates a Job that reads a signature stream from Iter's
// input buffer and builds a Signature, delivered through the returned
// SignatureReceiver once the job completes successfully.
func NewLoadSigJob() (*Job, *SignatureReceiver) {
	j := &Job{}
	receiver := &SignatureReceiver{}
	lj := &loadSigJob{job: j, receiver: receiver}
	j.state = lj.readMagic
	return j, receiver
}

func (lj *loadSigJob) readMagic(b *Buffers) Result {
	data, r := lj.job.scoop.readahead(b, 4)
	if r.Kind != Done {
		return r
	}
	magic := rsmagic.Magic(netint.Get(data, 4))
	lj.job.scoop.advance(b, 4)
	if !rsmagic.Valid(magic) {
		return fail(BadMagic, nil)
	}
	lj.magic = magic
	lj.job.state = lj.readBlockLen
	lj.job.progress()
	return running()
}

func (lj *loadSigJob) readBlockLen(b *Buffers) Result {
	data, r := lj.job.scoop.readahead(b, 4)
	if r.Kind != Done {
		return r
	}
	blockLen := uint32(netint.Get(data, 4))
	lj.job.scoop.advance(b, 4)
	if blockLen == 0 {
		return fail(Corrupt, nil)
	}
	lj.blockLen = blockLen
	lj.job.state = lj.readStrongLen
	lj.job.progress()
	return running()
}

func (lj *loadSigJob) readStrongLen(b *Buffers) Result {
	data, r := lj.job.scoop.readahead(b, 4)
	if r.Kind != Done {
		return r
	}
	strongLen := int(netint.Get(data, 4))
	lj.job.scoop.advance(b, 4)
	if strongLen <= 0 || strongLen > strongsum.FullLength(lj.magic) {
		return fail(Corrupt, nil)
	}
	lj.strongLen = strongLen

	sig, err := signature.New(lj.magic, lj.blockLen, lj.strongLen)
	if err != nil {
		return fail(InternalError, err)
	}
	lj.receiver.Signature = sig

	lj.job.state = lj.readWeak
	lj.job.progress()
	return running()
}

func (lj *loadSigJob) readWeak(b *Buffers) Result {
	if lj.job.scoop.avail() == 0 && len(b.In) == 0 && b.inputExhausted() {
		lj.receiver.Signature.Build()
		return done()
	}
	data, r := lj.job.scoop.readahead(b, 4)
	if r.Kind != Done {
		return r
	}
	lj.pendingWeak = uint32(netint.Get(data, 4))
	lj.job.scoop.advance(b, 4)
	lj.job.state = lj.readStrong
	lj.job.progress()
	return running()
}

func (lj *loadSigJob) readStrong(b *Buffers) Result {
	data, r := lj.job.scoop.readahead(b, lj.strongLen)
	if r.Kind != Done {
		return r
	}
	strong := make([]byte, lj.strongLen)
	copy(strong, data[:lj.strongLen])
	lj.job.scoop.advance(b, lj.strongLen)

	if err := lj.receiver.Signature.AddBlock(lj.pendingWeak, strong); err != nil {
		return fail(InternalError, err)
	}
	lj.job.stats.Blocks++
	lj.job.stats.InBytes += uint64(4 + lj.strongLen)

	lj.job.state = lj.readWeak
	lj.job.progress()
	return running()
}
