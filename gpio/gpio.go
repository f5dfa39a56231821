// Package gpio implements one GPIO peripheral on top of its register file.
package gpio

import (
	"sync"

	"github.com/BertoldVdb/zybo-gpio/regfile"
)

type Error string

func (e Error) Error() string { return string(e) }

const (
	ErrorNullBase              = Error("No register file given")
	ErrorNotReady              = Error("GPIO instance is not initialised")
	ErrorInterruptsUnsupported = Error("GPIO instance does not support interrupts")
	ErrorOffsetOutOfRange      = Error("Register offset out of range")
	ErrorNotToggleable         = Error("Register cannot be toggled")
)

// Mode selects the direction of the pins passed to SetDirection
type Mode int

const (
	// DirectionRead makes the pins inputs
	DirectionRead Mode = 0
	// DirectionWrite makes the pins driven outputs
	DirectionWrite Mode = 1
)

// Instance is one GPIO peripheral. The zero value is not ready, Init must succeed before
// any other method can be used.
type Instance struct {
	regs             regfile.RegisterFile
	ready            bool
	interruptCapable bool

	// writeLock serializes Direction and DataOut writers
	writeLock sync.Mutex
	// intLock serializes IntEnable read-modify-write. The interrupt acknowledge
	// path uses neither lock.
	intLock sync.Mutex
}

// New allocates and initialises an Instance
func New(regs regfile.RegisterFile, interruptCapable bool) (*Instance, error) {
	g := &Instance{}
	if err := g.Init(regs, interruptCapable); err != nil {
		return nil, err
	}
	return g, nil
}

// Init binds the instance to its registers. On failure the instance stays not ready.
func (g *Instance) Init(regs regfile.RegisterFile, interruptCapable bool) error {
	if regs == nil {
		return ErrorNullBase
	}

	g.regs = regs
	g.interruptCapable = interruptCapable
	g.ready = true
	return nil
}

func (g *Instance) Ready() bool {
	return g.ready
}

func (g *Instance) InterruptCapable() bool {
	return g.ready && g.interruptCapable
}

func (g *Instance) checkInterrupt() error {
	if !g.ready {
		return ErrorNotReady
	}
	if !g.interruptCapable {
		return ErrorInterruptsUnsupported
	}
	return nil
}

func (g *Instance) setDirection(mask uint32, mode Mode) {
	dir := g.regs.Read(regfile.Direction)
	if mode == DirectionWrite {
		dir |= mask
	} else {
		dir &^= mask
	}
	g.regs.Write(regfile.Direction, dir)
}

// SetDirection changes the direction of the pins in mask. Other pins keep their direction.
func (g *Instance) SetDirection(mask uint32, mode Mode) error {
	if !g.ready {
		return ErrorNotReady
	}

	g.writeLock.Lock()
	defer g.writeLock.Unlock()

	g.setDirection(mask, mode)
	return nil
}

// GetDirection returns the direction bits selected by mask
func (g *Instance) GetDirection(mask uint32) (uint32, error) {
	if !g.ready {
		return 0, ErrorNotReady
	}

	return g.regs.Read(regfile.Direction) & mask, nil
}

// ReadValue returns the level of the input pins
func (g *Instance) ReadValue() (uint32, error) {
	if !g.ready {
		return 0, ErrorNotReady
	}

	return g.regs.Read(regfile.DataIn), nil
}

// WriteValue stores data in the output register
func (g *Instance) WriteValue(data uint32) error {
	if !g.ready {
		return ErrorNotReady
	}

	g.writeLock.Lock()
	defer g.writeLock.Unlock()

	g.regs.Write(regfile.DataOut, data)
	return nil
}

// Output turns the pins in mask into outputs and then stores data. Concurrent calls never
// interleave their direction and value writes.
func (g *Instance) Output(mask uint32, data uint32) error {
	if !g.ready {
		return ErrorNotReady
	}

	g.writeLock.Lock()
	defer g.writeLock.Unlock()

	g.setDirection(mask, DirectionWrite)
	g.regs.Write(regfile.DataOut, data)
	return nil
}

// ToggleBits flips the bits in mask of the register at off. Only the read-write registers
// (DataOut, Direction, IntEnable) can be toggled.
func (g *Instance) ToggleBits(off regfile.Offset, mask uint32) error {
	if !g.ready {
		return ErrorNotReady
	}
	if !off.Valid() {
		return ErrorOffsetOutOfRange
	}

	switch off {
	case regfile.DataOut, regfile.Direction:
		g.writeLock.Lock()
		defer g.writeLock.Unlock()

	case regfile.IntEnable:
		if err := g.checkInterrupt(); err != nil {
			return err
		}
		g.intLock.Lock()
		defer g.intLock.Unlock()

	default:
		return ErrorNotToggleable
	}

	regfile.Toggle(g.regs, off, mask)
	return nil
}

func (g *Instance) updateEnable(mask uint32, enable bool) error {
	if err := g.checkInterrupt(); err != nil {
		return err
	}

	g.intLock.Lock()
	defer g.intLock.Unlock()

	ier := g.regs.Read(regfile.IntEnable)
	if enable {
		ier |= mask
	} else {
		ier &^= mask
	}
	g.regs.Write(regfile.IntEnable, ier)
	return nil
}

// InterruptEnable enables the interrupts of the pins in mask
func (g *Instance) InterruptEnable(mask uint32) error {
	return g.updateEnable(mask, true)
}

// InterruptDisable disables the interrupts of the pins in mask
func (g *Instance) InterruptDisable(mask uint32) error {
	return g.updateEnable(mask, false)
}

// InterruptEnabled returns the interrupt enable register
func (g *Instance) InterruptEnabled() (uint32, error) {
	if err := g.checkInterrupt(); err != nil {
		return 0, err
	}

	return g.regs.Read(regfile.IntEnable), nil
}

// InterruptClear acknowledges the pending interrupts in mask. The clear register is
// pulse sensitive: the mask is written and then released by writing 0.
func (g *Instance) InterruptClear(mask uint32) error {
	if err := g.checkInterrupt(); err != nil {
		return err
	}

	g.regs.Write(regfile.IntClear, mask)
	g.regs.Write(regfile.IntClear, 0)
	return nil
}

// InterruptStatus returns the pending lines, whether they are enabled or not
func (g *Instance) InterruptStatus() (uint32, error) {
	if err := g.checkInterrupt(); err != nil {
		return 0, err
	}

	return g.regs.Read(regfile.IntStatus), nil
}
