// Package regfile provides 32-bit access to the register window of a GPIO peripheral.
package regfile

import "fmt"

// Offset is a byte offset from the peripheral base
type Offset uint32

const (
	DataOut   Offset = 0x00 // output value per pin (RW)
	Direction Offset = 0x04 // per pin direction, set = driven (RW)
	DataIn    Offset = 0x08 // input value per pin (R)
	IntEnable Offset = 0x0C // per pin interrupt enable (RW)
	IntClear  Offset = 0x10 // write mask, then 0 (W, pulse)
	IntStatus Offset = 0x14 // pending lines, independent of IntEnable (R)
)

// WindowSize is the number of bytes covered by the registers
const WindowSize = int(IntStatus) + 4

var names = [...]string{"DataOut", "Direction", "DataIn", "IntEnable", "IntClear", "IntStatus"}

// Valid returns true if the offset is aligned and addresses one of the six registers
func (o Offset) Valid() bool {
	return o%4 == 0 && o <= IntStatus
}

func (o Offset) String() string {
	if o.Valid() {
		return names[o/4]
	}
	return fmt.Sprintf("Offset(0x%02x)", uint32(o))
}

// RegisterFile is a set of memory mapped registers. Implementations do not check their input,
// passing an invalid offset is a programming error.
type RegisterFile interface {
	Read(off Offset) uint32
	Write(off Offset, value uint32)
}

// Toggle flips the bits set in mask and leaves the others unchanged
func Toggle(rf RegisterFile, off Offset, mask uint32) {
	rf.Write(off, mask^rf.Read(off))
}

func assert(condition bool, reason string) {
	if !condition {
		panic(reason)
	}
}
