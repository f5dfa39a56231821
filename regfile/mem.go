package regfile

import (
	"sync/atomic"
	"unsafe"
)

// Mem accesses registers through a byte slice, usually a mapped device page.
type Mem struct {
	mem   []byte
	unmap func([]byte) error
}

// NewMem wraps buf. The slice must cover the register window and be 32 bit aligned.
func NewMem(buf []byte) *Mem {
	assert(len(buf) >= WindowSize, "Buffer does not cover the register window")
	assert(uintptr(unsafe.Pointer(&buf[0]))%4 == 0, "Buffer is not 32 bit aligned")

	return &Mem{mem: buf}
}

func (m *Mem) ptr(off Offset) *uint32 {
	return (*uint32)(unsafe.Pointer(&m.mem[off]))
}

// Read loads one 32 bit register
func (m *Mem) Read(off Offset) uint32 {
	return atomic.LoadUint32(m.ptr(off))
}

// Write stores one 32 bit register
func (m *Mem) Write(off Offset, value uint32) {
	atomic.StoreUint32(m.ptr(off), value)
}

// Close releases the mapping if Mem was created by Map or OpenDevMem. The Mem must not be
// used afterwards.
func (m *Mem) Close() error {
	if m.unmap == nil {
		return nil
	}

	unmap := m.unmap
	m.unmap = nil
	err := unmap(m.mem)
	m.mem = nil
	return err
}
