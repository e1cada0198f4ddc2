package rsync

import "github.com/pkg/errors"

// maxLiteral bounds the tube's literal buffer. It only ever needs to hold
// one encoded command header (a magic word, a block length, a weak sum plus
// truncated strong sum, or similar) — anything larger is queued as a copy
// from the scoop or caller input instead of being buffered here.
const maxLiteral = 36

// tube is the small pending-output buffer: literal bytes queued by write,
// then a copy-from-input length queued by queueCopy. It is drained in
// strict order, literal bytes first. Enqueue operations are only valid while
// idle; write and queueCopy each queue one of the two, and queueLiteral
// queues both at once.
type tube struct {
	buf     [maxLiteral]byte
	pending []byte // slice of buf currently awaiting output
	copyLen uint64
}

// idle reports whether the tube has nothing queued.
func (t *tube) idle() bool {
	return len(t.pending) == 0 && t.copyLen == 0
}

// write queues literal bytes for output. Valid only while idle.
func (t *tube) write(p []byte) error {
	if !t.idle() {
		return errors.New("tube: write called while not idle")
	}
	if len(p) > maxLiteral {
		return errors.Errorf("tube: literal of %d bytes exceeds fixed buffer of %d", len(p), maxLiteral)
	}
	n := copy(t.buf[:], p)
	t.pending = t.buf[:n]
	return nil
}

// queueCopy queues n bytes to be copied from the input source (scoop first,
// then caller input) into output. Valid only while idle.
func (t *tube) queueCopy(n uint64) error {
	if !t.idle() {
		return errors.New("tube: queueCopy called while not idle")
	}
	t.copyLen = n
	return nil
}

// queueLiteral queues a command header as literal bytes immediately followed
// by payloadLen bytes copied from the input source, as one atomic enqueue.
// This is how a LITERAL command's header and body are queued together:
// write and queueCopy cannot both be called from idle since the first call
// leaves the tube non-idle, but a LITERAL's payload bytes are the scoop's own
// bytes (or the caller's), not something write's fixed-size buffer could
// hold anyway. Valid only while idle.
func (t *tube) queueLiteral(header []byte, payloadLen uint64) error {
	if !t.idle() {
		return errors.New("tube: queueLiteral called while not idle")
	}
	if len(header) > maxLiteral {
		return errors.Errorf("tube: literal header of %d bytes exceeds fixed buffer of %d", len(header), maxLiteral)
	}
	n := copy(t.buf[:], header)
	t.pending = t.buf[:n]
	t.copyLen = payloadLen
	return nil
}

// catchup flushes pending literal bytes, then drains any queued copy,
// preferring bytes already held in the scoop over pulling fresh bytes from
// the caller's input buffer.
func (t *tube) catchup(b *Buffers, s *scoop) Result {
	if len(t.pending) > 0 {
		n := b.writeOut(t.pending)
		t.pending = t.pending[n:]
		if len(t.pending) > 0 {
			return blocked()
		}
	}

	for t.copyLen > 0 {
		space := b.outSpace()
		if space == 0 {
			return blocked()
		}
		want := t.copyLen
		if uint64(space) < want {
			want = uint64(space)
		}

		var chunk []byte
		fromScoop := false
		switch {
		case s.avail() > 0:
			n := want
			if uint64(s.avail()) < n {
				n = uint64(s.avail())
			}
			chunk = s.peek(int(n))
			fromScoop = true
		case len(b.In) > 0:
			n := want
			if uint64(len(b.In)) < n {
				n = uint64(len(b.In))
			}
			chunk = b.takeIn(int(n))
		case b.inputExhausted():
			return fail(InputEnded, errors.New("tube: input ended with a queued copy still pending"))
		default:
			return blocked()
		}

		written := b.writeOut(chunk)
		if fromScoop {
			s.consume(written)
		}
		t.copyLen -= uint64(written)
		if written != len(chunk) {
			return fail(InternalError, errors.New("tube: short write into output during queued copy"))
		}
	}

	return done()
}
