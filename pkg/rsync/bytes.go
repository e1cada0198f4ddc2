package rsync

import (
	"bytes"

	"github.com/pkg/errors"

	"github.com/mutagen-io/librsync/pkg/rsmagic"
	"github.com/mutagen-io/librsync/pkg/signature"
)

// outputChunk sizes the scratch output buffer drive uses between Iter
// calls when the caller doesn't need to manage buffering itself.
const outputChunk = 64 * 1024

// drive runs job to completion against input, which is handed over in full
// up front with end-of-input flagged immediately. This is only correct for
// jobs with no out-of-band blocking source (a Patch job backed by a
// Blocked-capable BasisReader cannot use it); Delta and Sign jobs block only
// on output space or right after pulling leftover input into the scoop, and
// calling Iter again gets past both.
func drive(job *Job, input []byte) ([]byte, Stats, error) {
	var out bytes.Buffer
	scratch := make([]byte, outputChunk)
	b := &Buffers{In: input, InEnd: true}
	for {
		b.Out = scratch
		r := job.Iter(b)
		out.Write(scratch[:len(scratch)-len(b.Out)])
		switch r.Kind {
		case Done:
			return out.Bytes(), job.Stats(), nil
		case Error:
			return nil, job.Stats(), resultError(r)
		case Blocked:
			// With the entire input handed over up front and InEnd set,
			// a job blocks either because scratch filled up or because
			// it has just moved the rest of the input into its scoop;
			// give it a fresh chunk and keep going.
			continue
		}
	}
}

func resultError(r Result) error {
	if r.Err != nil {
		return &jobError{code: r.Code, err: errors.Wrapf(r.Err, "rsync: %s", r.Code)}
	}
	return &jobError{code: r.Code, err: errors.Errorf("rsync: %s", r.Code)}
}

// SignBytes computes the signature of basis in one call, for callers that
// already hold the whole basis in memory.
func SignBytes(magic rsmagic.Magic, blockLen uint32, strongLen int, basis []byte) ([]byte, Stats, error) {
	job, err := NewSignJob(magic, blockLen, strongLen)
	if err != nil {
		return nil, Stats{}, err
	}
	return drive(job, basis)
}

// LoadSigBytes decodes a signature stream held entirely in memory.
func LoadSigBytes(data []byte) (*signature.Signature, Stats, error) {
	job, receiver := NewLoadSigJob()
	_, stats, err := drive(job, data)
	if err != nil {
		return nil, stats, err
	}
	return receiver.Signature, stats, nil
}

// DeltaBytes computes the delta from sig to target in one call. sig may be
// nil for a slack (literal-only) delta.
func DeltaBytes(sig *signature.Signature, paranoia bool, target []byte) ([]byte, Stats, error) {
	job, err := NewDeltaJob(sig, paranoia)
	if err != nil {
		return nil, Stats{}, err
	}
	return drive(job, target)
}

// PatchBytes applies delta to basis, both held entirely in memory, and
// returns the reconstructed target.
func PatchBytes(basis, delta []byte) ([]byte, Stats, error) {
	job, err := NewPatchJob(BytesBasis(basis))
	if err != nil {
		return nil, Stats{}, err
	}
	return drive(job, delta)
}
