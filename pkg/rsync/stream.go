package rsync

import (
	"io"

	"github.com/pkg/errors"
)

// ioChunk sizes the read and write buffers Stream uses between Iter calls.
const ioChunk = 64 * 1024

// Stream runs job to completion, reading input from r and writing output to
// w, without requiring either to fit in memory. Unlike drive (used by the
// *Bytes convenience wrappers), Stream only hands over as much input as it
// has actually read, flagging end-of-input once r reports io.EOF.
func Stream(job *Job, r io.Reader, w io.Writer) (Stats, error) {
	inBuf := make([]byte, ioChunk)
	outBuf := make([]byte, ioChunk)

	var pending []byte
	var atEOF bool
	b := &Buffers{}

	for {
		if len(pending) == 0 && !atEOF {
			n, err := r.Read(inBuf)
			if n > 0 {
				pending = inBuf[:n]
			}
			if err == io.EOF {
				atEOF = true
			} else if err != nil {
				return job.Stats(), errors.Wrap(err, "rsync: input read failed")
			}
		}

		b.In = pending
		b.InEnd = atEOF
		b.Out = outBuf

		result := job.Iter(b)

		if n := len(outBuf) - len(b.Out); n > 0 {
			if _, err := w.Write(outBuf[:n]); err != nil {
				return job.Stats(), errors.Wrap(err, "rsync: output write failed")
			}
		}
		pending = b.In

		switch result.Kind {
		case Done:
			return job.Stats(), nil
		case Error:
			return job.Stats(), resultError(result)
		case Blocked:
			continue
		}
	}
}
