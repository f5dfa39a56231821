package regfile

import "sync"

// Access is one recorded register write
type Access struct {
	Offset Offset
	Value  uint32
}

// Sim is a simulated register file. It behaves like the peripheral: DataIn and IntStatus are
// driven from the outside (SetInput, Raise) and writing a mask to IntClear clears those bits
// from IntStatus. All writes are recorded in order.
type Sim struct {
	sync.Mutex

	regs   [WindowSize / 4]uint32
	writes []Access
	reads  [WindowSize / 4]int

	// OnWrite is called after every write, without holding the lock
	OnWrite func(off Offset, value uint32)
}

// NewSim returns a Sim with all registers zero
func NewSim() *Sim {
	return &Sim{}
}

func (s *Sim) Read(off Offset) uint32 {
	assert(off.Valid(), "Invalid register offset")

	s.Lock()
	defer s.Unlock()

	s.reads[off/4]++
	return s.regs[off/4]
}

func (s *Sim) Write(off Offset, value uint32) {
	assert(off.Valid(), "Invalid register offset")

	s.Lock()
	switch off {
	case DataIn, IntStatus:
		/* Read only, the write is recorded but has no effect */
	case IntClear:
		s.regs[IntStatus/4] &^= value
		s.regs[off/4] = value
	default:
		s.regs[off/4] = value
	}
	s.writes = append(s.writes, Access{Offset: off, Value: value})
	hook := s.OnWrite
	s.Unlock()

	if hook != nil {
		hook(off, value)
	}
}

// SetInput sets the value the pins present on DataIn
func (s *Sim) SetInput(value uint32) {
	s.Lock()
	defer s.Unlock()

	s.regs[DataIn/4] = value
}

// Raise asserts the lines in mask in IntStatus
func (s *Sim) Raise(mask uint32) {
	s.Lock()
	defer s.Unlock()

	s.regs[IntStatus/4] |= mask
}

// Peek returns a register without counting it as a read
func (s *Sim) Peek(off Offset) uint32 {
	s.Lock()
	defer s.Unlock()

	return s.regs[off/4]
}

// Poke sets a register without recording a write
func (s *Sim) Poke(off Offset, value uint32) {
	s.Lock()
	defer s.Unlock()

	s.regs[off/4] = value
}

// Writes returns a copy of all recorded writes
func (s *Sim) Writes() []Access {
	s.Lock()
	defer s.Unlock()

	result := make([]Access, len(s.writes))
	copy(result, s.writes)
	return result
}

// WritesTo returns the values written to one register, in order
func (s *Sim) WritesTo(off Offset) []uint32 {
	s.Lock()
	defer s.Unlock()

	var result []uint32
	for _, w := range s.writes {
		if w.Offset == off {
			result = append(result, w.Value)
		}
	}
	return result
}

// Reads returns how many times a register was read
func (s *Sim) Reads(off Offset) int {
	s.Lock()
	defer s.Unlock()

	return s.reads[off/4]
}

// Reset forgets the recorded accesses, register contents are kept
func (s *Sim) Reset() {
	s.Lock()
	defer s.Unlock()

	s.writes = nil
	s.reads = [WindowSize / 4]int{}
}
