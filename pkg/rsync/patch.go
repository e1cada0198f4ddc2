package rsync

import (
	"io"

	"github.com/pkg/errors"

	"github.com/mutagen-io/librsync/pkg/netint"
	"github.com/mutagen-io/librsync/pkg/prototab"
	"github.com/mutagen-io/librsync/pkg/rsmagic"
)

// BasisReader supplies basis bytes to a Patch job: at most maxLen bytes
// starting at pos. It is the sole escape from the pull model described in
// spec.md's job engine - unlike every other input a job consumes, a basis
// read is not mediated by the scoop, and a BasisReader may itself return
// Blocked (for instance while an underlying file read is outstanding),
// which propagates straight out of Iter exactly like any other Blocked
// result. A returned slice shorter than maxLen is accepted as a partial
// read and the job will call again for the remainder.
type BasisReader func(pos uint64, maxLen int) (data []byte, result Result)

// BytesBasis returns a BasisReader over an in-memory basis. It never
// blocks, and reports Corrupt if a copy command requests bytes at or beyond
// the end of data.
func BytesBasis(data []byte) BasisReader {
	return func(pos uint64, maxLen int) ([]byte, Result) {
		if pos >= uint64(len(data)) {
			return nil, fail(Corrupt, errors.New("patch: copy command references basis position at or beyond its end"))
		}
		end := pos + uint64(maxLen)
		if end > uint64(len(data)) {
			end = uint64(len(data))
		}
		return data[pos:end], done()
	}
}

// ReaderAtBasis returns a BasisReader over a basis accessed through an
// io.ReaderAt (a file, typically). It never blocks; a Blocked-capable basis
// source (for instance one backed by asynchronous or network I/O) should
// implement BasisReader directly instead.
func ReaderAtBasis(r io.ReaderAt) BasisReader {
	return func(pos uint64, maxLen int) ([]byte, Result) {
		buf := make([]byte, maxLen)
		n, err := r.ReadAt(buf, int64(pos))
		if n == 0 {
			if err != nil && err != io.EOF {
				return nil, fail(IoError, errors.Wrap(err, "patch: basis read failed"))
			}
			return nil, fail(Corrupt, errors.New("patch: copy command references basis position at or beyond its end"))
		}
		return buf[:n], done()
	}
}

// patchJob holds the state private to a Patch pipeline: the basis reader it
// was constructed with, the currently decoded command, and, while servicing
// a COPY, the remaining basis span to deliver.
type patchJob struct {
	job   *Job
	basis BasisReader

	pendingKind prototab.Kind
	param1Len   int
	param2Len   int
	param1      uint64
	param2      uint64

	basisPos uint64
	basisLen uint64
}

// NewPatchJob creates a Job that reads a delta from Iter's input buffer and
// writes the reconstructed target to the output buffer, fetching basis
// bytes on demand from basis.
func NewPatchJob(basis BasisReader) (*Job, error) {
	if basis == nil {
		return nil, errorf(ParamError, "patch requires a basis reader")
	}
	j := &Job{}
	pj := &patchJob{job: j, basis: basis}
	j.state = pj.header
	return j, nil
}

func (pj *patchJob) header(b *Buffers) Result {
	data, r := pj.job.scoop.readahead(b, 4)
	if r.Kind != Done {
		return r
	}
	magic := rsmagic.Magic(netint.Get(data, 4))
	pj.job.scoop.advance(b, 4)
	if magic != rsmagic.Delta {
		return fail(BadMagic, nil)
	}
	pj.job.state = pj.cmdbyte
	pj.job.progress()
	return running()
}

func (pj *patchJob) cmdbyte(b *Buffers) Result {
	data, r := pj.job.scoop.readahead(b, 1)
	if r.Kind != Done {
		return r
	}
	cmd := data[0]
	pj.job.scoop.advance(b, 1)

	entry := prototab.Lookup(cmd)
	switch entry.Kind {
	case prototab.KindEnd:
		return done()
	case prototab.KindReserved:
		return fail(Corrupt, errors.Errorf("patch: reserved command byte 0x%02x", cmd))
	case prototab.KindLiteral:
		pj.pendingKind = prototab.KindLiteral
		if entry.Param1Len == 0 {
			pj.param1 = uint64(entry.Immediate)
			pj.job.state = pj.run
			pj.job.progress()
			return running()
		}
		pj.param1Len = entry.Param1Len
		pj.param2Len = 0
		pj.job.state = pj.params
		pj.job.progress()
		return running()
	case prototab.KindCopy:
		pj.pendingKind = prototab.KindCopy
		pj.param1Len = entry.Param1Len
		pj.param2Len = entry.Param2Len
		pj.job.state = pj.params
		pj.job.progress()
		return running()
	default:
		return fail(InternalError, errors.New("patch: unknown prototable entry kind"))
	}
}

func (pj *patchJob) params(b *Buffers) Result {
	need := pj.param1Len + pj.param2Len
	data, r := pj.job.scoop.readahead(b, need)
	if r.Kind != Done {
		return r
	}
	pj.param1 = netint.Get(data[:pj.param1Len], pj.param1Len)
	if pj.param2Len > 0 {
		pj.param2 = netint.Get(data[pj.param1Len:pj.param1Len+pj.param2Len], pj.param2Len)
	}
	pj.job.scoop.advance(b, need)
	pj.job.state = pj.run
	pj.job.progress()
	return running()
}

func (pj *patchJob) run(b *Buffers) Result {
	switch pj.pendingKind {
	case prototab.KindLiteral:
		if err := pj.job.tube.queueCopy(pj.param1); err != nil {
			return fail(InternalError, err)
		}
		pj.job.stats.LiteralBytes += pj.param1
		pj.job.state = pj.cmdbyte
		pj.job.progress()
		return running()
	case prototab.KindCopy:
		pj.basisPos = pj.param1
		pj.basisLen = pj.param2
		pj.job.state = pj.copying
		pj.job.progress()
		return running()
	default:
		return fail(InternalError, errors.New("patch: unknown pending command kind"))
	}
}

func (pj *patchJob) copying(b *Buffers) Result {
	if pj.basisLen == 0 {
		pj.job.state = pj.cmdbyte
		pj.job.progress()
		return running()
	}

	space := b.outSpace()
	if space == 0 {
		return blocked()
	}
	want := pj.basisLen
	if uint64(space) < want {
		want = uint64(space)
	}

	chunk, r := pj.basis(pj.basisPos, int(want))
	if r.Kind == Blocked || r.Kind == Error {
		return r
	}
	if len(chunk) == 0 {
		return fail(InternalError, errors.New("patch: basis reader returned no data without an error"))
	}

	n := b.writeOut(chunk)
	pj.basisPos += uint64(n)
	pj.basisLen -= uint64(n)
	pj.job.stats.MatchedBytes += uint64(n)
	pj.job.progress()
	return running()
}
