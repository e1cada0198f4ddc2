package rsync

// Buffers is the caller-owned input/output window passed to Iter. The
// engine never retains a Buffers or its slices across calls: whatever it
// needs to remember past the end of one Iter call is copied into the job's
// scoop or tube first.
//
// In is consumed from the front as the engine reads it; Out is written from
// the front as the engine produces bytes. Both are re-sliced in place by
// Iter, so after a call the caller can tell exactly how much of each buffer
// was used: len(original In) - len(b.In) bytes were consumed, and
// len(original Out) - len(b.Out) bytes were produced.
type Buffers struct {
	// In holds unconsumed input bytes.
	In []byte
	// InEnd is true once the caller will never supply more input beyond
	// what remains in In.
	InEnd bool
	// Out holds the unused tail of the caller's output buffer.
	Out []byte
}

// inputExhausted reports whether there is genuinely no more input to read,
// ever: the buffer is empty and end-of-input has been flagged.
func (b *Buffers) inputExhausted() bool {
	return len(b.In) == 0 && b.InEnd
}

// outSpace reports how many bytes of output space remain.
func (b *Buffers) outSpace() int {
	return len(b.Out)
}

// writeOut copies as much of p into the output buffer as will fit,
// advancing Out past what was written, and returns the number of bytes
// written.
func (b *Buffers) writeOut(p []byte) int {
	n := copy(b.Out, p)
	b.Out = b.Out[n:]
	return n
}

// takeIn consumes up to n bytes directly from the caller's input buffer
// (bypassing the scoop) and returns them, advancing In past what was taken.
func (b *Buffers) takeIn(n int) []byte {
	if n > len(b.In) {
		n = len(b.In)
	}
	p := b.In[:n]
	b.In = b.In[n:]
	return p
}
