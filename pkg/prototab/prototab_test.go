package prototab

import "testing"

func TestEndIsKindEnd(t *testing.T) {
	if e := Lookup(End); e.Kind != KindEnd {
		t.Errorf("command 0x00 has kind %v, want KindEnd", e.Kind)
	}
}

func TestInlineLiteralRange(t *testing.T) {
	for n := 1; n <= 64; n++ {
		e := Lookup(byte(n))
		if e.Kind != KindLiteral || e.Immediate != n || e.Param1Len != 0 {
			t.Errorf("command 0x%02x = %+v, want inline literal of length %d", n, e, n)
		}
	}
}

func TestLiteralWidthCommands(t *testing.T) {
	widthsByCommand := map[byte]int{Literal1: 1, Literal2: 2, Literal4: 4, Literal8: 8}
	for cmd, width := range widthsByCommand {
		e := Lookup(cmd)
		if e.Kind != KindLiteral || e.Param1Len != width {
			t.Errorf("command 0x%02x = %+v, want literal with param width %d", cmd, e, width)
		}
	}
}

func TestCopyCommandRange(t *testing.T) {
	widths := []int{1, 2, 4, 8}
	for _, offsetWidth := range widths {
		for _, lengthWidth := range widths {
			cmd := CopyCommand(offsetWidth, lengthWidth)
			e := Lookup(cmd)
			if e.Kind != KindCopy || e.Param1Len != offsetWidth || e.Param2Len != lengthWidth {
				t.Errorf("CopyCommand(%d, %d) = 0x%02x -> %+v, mismatch", offsetWidth, lengthWidth, cmd, e)
			}
		}
	}
}

func TestReservedRangeIsCorrupt(t *testing.T) {
	for n := copyLast + 1; n <= 0xff; n++ {
		if e := Lookup(byte(n)); e.Kind != KindReserved {
			t.Errorf("command 0x%02x has kind %v, want KindReserved", n, e.Kind)
		}
	}
}

func TestLiteralCommandChoosesInlineWhenPossible(t *testing.T) {
	if got := LiteralCommand(1, 1); got != 1 {
		t.Errorf("LiteralCommand(1, 1) = 0x%02x, want 0x01", got)
	}
	if got := LiteralCommand(64, 1); got != 64 {
		t.Errorf("LiteralCommand(64, 1) = 0x%02x, want 0x40", got)
	}
	if got := LiteralCommand(65, 1); got != Literal1 {
		t.Errorf("LiteralCommand(65, 1) = 0x%02x, want Literal1", got)
	}
}
