package netint

import "testing"

func TestPutGetRoundTrip(t *testing.T) {
	cases := []struct {
		v uint64
		n int
	}{
		{0, 1},
		{0xff, 1},
		{0x1234, 2},
		{0x12345678, 4},
		{0x0102030405060708, 8},
	}
	for _, c := range cases {
		buf := Put(nil, c.v, c.n)
		if len(buf) != c.n {
			t.Fatalf("Put(%d, %d) produced %d bytes, want %d", c.v, c.n, len(buf), c.n)
		}
		if got := Get(buf, c.n); got != c.v {
			t.Errorf("Get(Put(%d, %d)) = %d, want %d", c.v, c.n, got, c.v)
		}
	}
}

func TestLenChoosesNarrowestWidth(t *testing.T) {
	cases := []struct {
		v    uint64
		want int
	}{
		{0, 1},
		{255, 1},
		{256, 2},
		{65535, 2},
		{65536, 4},
		{1<<32 - 1, 4},
		{1 << 32, 8},
	}
	for _, c := range cases {
		if got := Len(c.v); got != c.want {
			t.Errorf("Len(%d) = %d, want %d", c.v, got, c.want)
		}
	}
}

func TestPutTruncatesToWidth(t *testing.T) {
	buf := Put(nil, 0x1122334455, 1)
	if len(buf) != 1 || buf[0] != 0x55 {
		t.Errorf("Put truncation: got %x, want [55]", buf)
	}
}
