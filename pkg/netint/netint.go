// Package netint implements the big-endian variable-length integer encoding
// used throughout the signature and delta wire formats. All integers are
// unsigned and of length 1, 2, 4, or 8 bytes; there is no support for any
// other width.
package netint

import "fmt"

// MaxBytes is the widest integer width the wire format supports.
const MaxBytes = 8

// validLength reports whether n is one of the widths the format allows.
func validLength(n int) bool {
	return n == 1 || n == 2 || n == 4 || n == 8
}

// Put encodes v as a big-endian integer occupying exactly n bytes (n must be
// 1, 2, 4, or 8) and appends it to dst, returning the extended slice. Bytes
// of v beyond the n-byte width are silently truncated, matching the original
// squirt_netint behavior.
func Put(dst []byte, v uint64, n int) []byte {
	if !validLength(n) {
		panic(fmt.Sprintf("netint: illegal integer length %d", n))
	}
	var buf [MaxBytes]byte
	for i := n - 1; i >= 0; i-- {
		buf[i] = byte(v)
		v >>= 8
	}
	return append(dst, buf[:n]...)
}

// Get decodes an n-byte big-endian unsigned integer from the front of src. It
// panics if src is shorter than n or if n is not a valid width; callers are
// expected to have used the scoop to guarantee n bytes are available before
// calling this.
func Get(src []byte, n int) uint64 {
	if !validLength(n) {
		panic(fmt.Sprintf("netint: illegal integer length %d", n))
	}
	if len(src) < n {
		panic("netint: short buffer")
	}
	var v uint64
	for i := 0; i < n; i++ {
		v = v<<8 | uint64(src[i])
	}
	return v
}

// Len returns the narrowest width in {1, 2, 4, 8} that can represent v
// without truncation. It is used to choose the smallest LITERAL/COPY opcode
// that can carry a given length or offset.
func Len(v uint64) int {
	switch {
	case v <= 0xff:
		return 1
	case v <= 0xffff:
		return 2
	case v <= 0xffffffff:
		return 4
	default:
		return 8
	}
}
