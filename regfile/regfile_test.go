package regfile

import (
	"math/rand"
	"testing"
)

func check(t *testing.T, condition bool, reason ...interface{}) {
	if !condition {
		t.Error(reason...)
		t.FailNow()
	}
}

var allOffsets = []Offset{DataOut, Direction, DataIn, IntEnable, IntClear, IntStatus}

func TestOffsetValid(t *testing.T) {
	for _, o := range allOffsets {
		check(t, o.Valid(), "Offset should be valid", o)
	}

	for _, o := range []Offset{0x01, 0x02, 0x13, 0x18, 0x100} {
		check(t, !o.Valid(), "Offset should be invalid", o)
	}

	check(t, IntClear.String() == "IntClear", "Wrong name", IntClear.String())
	check(t, Offset(0x18).String() == "Offset(0x18)", "Wrong name", Offset(0x18).String())
}

func TestToggleInvolution(t *testing.T) {
	regs := []RegisterFile{NewSim(), NewMem(make([]byte, WindowSize))}

	for _, rf := range regs {
		for i := 0; i < 200; i++ {
			off := []Offset{DataOut, Direction, IntEnable}[rand.Intn(3)]
			initial := rand.Uint32()
			mask := rand.Uint32()

			rf.Write(off, initial)
			Toggle(rf, off, mask)
			check(t, rf.Read(off) == initial^mask, "Toggle did not flip the masked bits")
			Toggle(rf, off, mask)
			check(t, rf.Read(off) == initial, "Double toggle did not restore the register")
		}
	}
}

func TestToggleLeavesUnmaskedBits(t *testing.T) {
	rf := NewMem(make([]byte, WindowSize))
	rf.Write(DataOut, 0xA5A5A5A5)
	Toggle(rf, DataOut, 0x0000000F)
	check(t, rf.Read(DataOut) == 0xA5A5A5AA, "Wrong result", rf.Read(DataOut))
}

func TestMemLayout(t *testing.T) {
	buf := make([]byte, WindowSize)
	m := NewMem(buf)

	for i, o := range allOffsets {
		m.Write(o, uint32(i+1))
	}
	for i, o := range allOffsets {
		check(t, m.Read(o) == uint32(i+1), "Register aliasing", o)
	}

	check(t, m.Close() == nil, "Close of unmapped Mem failed")
}

func TestMemTooSmall(t *testing.T) {
	defer func() {
		check(t, recover() != nil, "Short buffer did not panic")
	}()
	NewMem(make([]byte, WindowSize-4))
}

func TestSimClearModel(t *testing.T) {
	s := NewSim()
	s.Raise(0x0F)
	s.Write(IntClear, 0x05)
	check(t, s.Peek(IntStatus) == 0x0A, "IntClear did not clear status bits", s.Peek(IntStatus))

	s.Write(IntStatus, 0xFF)
	check(t, s.Peek(IntStatus) == 0x0A, "IntStatus must be read only")

	s.SetInput(0x3)
	check(t, s.Read(DataIn) == 0x3, "DataIn not driven")
	check(t, s.Reads(DataIn) == 1, "Read not counted")

	check(t, len(s.Writes()) == 2, "Writes not recorded", s.Writes())
	check(t, len(s.WritesTo(IntClear)) == 1, "WritesTo filter wrong")

	s.Reset()
	check(t, len(s.Writes()) == 0 && s.Reads(DataIn) == 0, "Reset did not clear the log")
}

func TestSimHook(t *testing.T) {
	s := NewSim()
	var seen []Access
	s.OnWrite = func(off Offset, value uint32) {
		/* Must not deadlock */
		s.Peek(off)
		seen = append(seen, Access{off, value})
	}

	s.Write(DataOut, 1)
	s.Write(IntClear, 2)
	check(t, len(seen) == 2 && seen[1].Offset == IntClear && seen[1].Value == 2, "Hook not called", seen)
}

func TestSimInvalidOffset(t *testing.T) {
	defer func() {
		check(t, recover() != nil, "Invalid offset did not panic")
	}()
	NewSim().Read(0x18)
}
