package rsync

import "github.com/pkg/errors"

// scoop is the readahead buffer that decouples "minimum contiguous bytes
// needed to make progress" from however the caller happened to fragment its
// input buffer. Its active region is data[start:end]; bytes are appended at
// end and consumed from start. The backing array is shifted to the front
// only when an append would not otherwise fit, and doubles in size when
// shifting still isn't enough, matching the growth policy the job engine
// relies on to keep readahead cheap in the common case where the caller
// supplies reasonably sized buffers.
type scoop struct {
	data  []byte
	start int
	end   int

	// fromCaller records whether the most recent call to readahead
	// returned a pointer into the caller's input buffer (true) or into
	// data (false), so that the matching advance knows which to consume
	// from. The two cases are mutually exclusive by construction: a
	// readahead that is satisfied straight from the caller's buffer only
	// happens when the scoop itself is empty.
	fromCaller bool
}

func (s *scoop) avail() int {
	return s.end - s.start
}

// totalAvail returns how many bytes are available without pulling anything
// further from the caller: whatever the scoop already holds plus whatever
// currently sits in the caller's input buffer. It is used by end-of-stream
// handling to size a single readahead call that exactly exhausts input.
func (s *scoop) totalAvail(b *Buffers) int {
	return s.avail() + len(b.In)
}

func (s *scoop) peek(n int) []byte {
	return s.data[s.start : s.start+n]
}

func (s *scoop) consume(n int) {
	s.start += n
	if s.start == s.end {
		s.start, s.end = 0, 0
	}
}

func (s *scoop) append(p []byte) {
	if len(p) == 0 {
		return
	}
	need := s.end + len(p)
	if need > len(s.data) {
		if s.start > 0 && s.avail()+len(p) <= len(s.data) {
			copy(s.data, s.data[s.start:s.end])
			s.end -= s.start
			s.start = 0
			need = s.end + len(p)
		}
		if need > len(s.data) {
			newCap := len(s.data) * 2
			if newCap < need {
				newCap = need
			}
			if newCap < 256 {
				newCap = 256
			}
			grown := make([]byte, newCap)
			copy(grown, s.data[s.start:s.end])
			s.end -= s.start
			s.start = 0
			s.data = grown
		}
	}
	s.end += copy(s.data[s.end:], p)
}

// readahead returns a pointer to at least n contiguous bytes of input
// without consuming them, pulling caller input into the scoop as needed.
// Nothing is consumed until the caller calls advance(n) (or less, to take a
// prefix); readahead may also be called again at the same position, as the
// delta scan does after a miss.
func (s *scoop) readahead(b *Buffers, n int) ([]byte, Result) {
	if s.avail() >= n {
		s.fromCaller = false
		return s.peek(n), done()
	}
	if s.avail() == 0 && len(b.In) >= n {
		s.fromCaller = true
		return b.In[:n], done()
	}
	if len(b.In) > 0 {
		s.append(b.In)
		b.In = b.In[len(b.In):]
		return nil, blocked()
	}
	if b.inputExhausted() {
		return nil, fail(InputEnded, errors.New("scoop: end of input reached with insufficient data to proceed"))
	}
	return nil, blocked()
}

// advance consumes n bytes from whichever source the most recent readahead
// call returned a pointer into.
func (s *scoop) advance(b *Buffers, n int) {
	if s.fromCaller {
		b.In = b.In[n:]
	} else {
		s.consume(n)
	}
}

// readRest consumes all currently available input, scoop plus whatever the
// caller currently has, as one contiguous span. The returned slice is only
// valid until the next call that mutates the scoop.
func (s *scoop) readRest(b *Buffers) []byte {
	if len(b.In) > 0 {
		s.append(b.In)
		b.In = b.In[len(b.In):]
	}
	out := s.peek(s.avail())
	s.consume(len(out))
	return out
}
