// Package gpiodrv multiplexes several GPIO peripherals behind one driver. Each peripheral
// gets a small integer id (the minor number of a character device) and may be bound to an
// interrupt line that wakes readers of that device.
package gpiodrv

import (
	"sync"
	"sync/atomic"

	"github.com/BertoldVdb/zybo-gpio/gpio"
	"github.com/BertoldVdb/zybo-gpio/readyflag"
	"github.com/sirupsen/logrus"
)

type Error string

func (e Error) Error() string { return string(e) }

const (
	ErrorTableFull       = Error("Too many devices registered")
	ErrorNoDevice        = Error("No device registered with this id")
	ErrorLineBound       = Error("Interrupt line already has an owner")
	ErrorOwnerNotFound   = Error("Interrupt line has no owner")
	ErrorInterruptedWait = Error("Wait for data was interrupted")
	ErrorClosed          = Error("Device is closed")
)

const (
	// DefaultCapacity is the number of devices a driver manages by default
	DefaultCapacity = 3
	// DefaultOutputPins are the pins driven by a device write
	DefaultOutputPins = 0x0F

	noLine = -1
)

// Config holds the driver parameters. Zero values select the defaults.
type Config struct {
	Capacity   int
	OutputPins uint32
	Logger     *logrus.Entry
}

type entry struct {
	id   int
	inst *gpio.Instance
	line int
	mask uint32

	ready      readyflag.Flag
	interrupts uint64

	// users is held for reading around register access from outside the interrupt path
	// and for writing by Unregister. Once removed is set no handle touches the registers.
	users   sync.RWMutex
	removed bool
}

// acquire locks the entry for register access. It fails once the device is unregistered.
func (e *entry) acquire() bool {
	e.users.RLock()
	if e.removed {
		e.users.RUnlock()
		return false
	}
	return true
}

func (e *entry) release() {
	e.users.RUnlock()
}

// Driver owns the id table and the interrupt line bindings
type Driver struct {
	// Lock guards table membership only, never register access
	sync.Mutex
	entries []*entry

	// lines holds a map[int]*entry that is replaced, never modified, so the interrupt
	// path can read it without locking.
	lines atomic.Value

	missed     uint64
	outputPins uint32
	log        *logrus.Entry
}

// New creates an empty driver
func New(config Config) *Driver {
	if config.Capacity <= 0 {
		config.Capacity = DefaultCapacity
	}
	if config.OutputPins == 0 {
		config.OutputPins = DefaultOutputPins
	}
	if config.Logger == nil {
		config.Logger = logrus.NewEntry(logrus.StandardLogger())
	}

	d := &Driver{
		entries:    make([]*entry, config.Capacity),
		outputPins: config.OutputPins,
		log:        config.Logger,
	}
	d.lines.Store(map[int]*entry{})
	return d
}

// Capacity returns the maximum number of devices
func (d *Driver) Capacity() int {
	return len(d.entries)
}

// Register adds an initialised instance and returns the lowest free id
func (d *Driver) Register(inst *gpio.Instance) (int, error) {
	if inst == nil || !inst.Ready() {
		return 0, gpio.ErrorNotReady
	}

	d.Lock()
	defer d.Unlock()

	for id, e := range d.entries {
		if e == nil {
			d.entries[id] = &entry{id: id, inst: inst, line: noLine}
			d.log.Debugf("Registered device %d", id)
			return id, nil
		}
	}

	d.log.Warnf("Cannot register device, all %d ids are in use", len(d.entries))
	return 0, ErrorTableFull
}

func (d *Driver) getEntryWithoutLock(id int) *entry {
	if id < 0 || id >= len(d.entries) {
		return nil
	}
	return d.entries[id]
}

func (d *Driver) getEntry(id int) *entry {
	d.Lock()
	defer d.Unlock()

	return d.getEntryWithoutLock(id)
}

// Lookup returns the instance registered under id
func (d *Driver) Lookup(id int) (*gpio.Instance, bool) {
	e := d.getEntry(id)
	if e == nil {
		return nil, false
	}
	return e.inst, true
}

func (d *Driver) publishLinesWithoutLock() {
	lines := make(map[int]*entry)
	for _, e := range d.entries {
		if e != nil && e.line != noLine {
			lines[e.line] = e
		}
	}
	d.lines.Store(lines)
}

func (d *Driver) checkBindWithoutLock(id int, line int) (*entry, error) {
	e := d.getEntryWithoutLock(id)
	if e == nil {
		return nil, ErrorNoDevice
	}
	if !e.inst.InterruptCapable() {
		return nil, gpio.ErrorInterruptsUnsupported
	}

	if owner, ok := d.lines.Load().(map[int]*entry)[line]; ok && owner != e {
		return nil, ErrorLineBound
	}
	return e, nil
}

// BindInterrupt routes interrupt line to device id and enables the interrupts in mask on
// the peripheral.
func (d *Driver) BindInterrupt(id int, line int, mask uint32) error {
	d.Lock()
	e, err := d.checkBindWithoutLock(id, line)
	d.Unlock()
	if err != nil {
		return err
	}

	/* Unregister waits for the entry, so the rollback below still reaches the registers */
	if !e.acquire() {
		return ErrorNoDevice
	}
	defer e.release()

	if err := e.inst.InterruptEnable(mask); err != nil {
		return err
	}

	/* The table may have changed while the enable register was written */
	d.Lock()
	current, err := d.checkBindWithoutLock(id, line)
	if err == nil && current != e {
		err = ErrorNoDevice
	}
	if err == nil {
		e.line = line
		e.mask |= mask
		d.publishLinesWithoutLock()
	}
	unused := mask &^ e.mask
	bound := e.mask
	d.Unlock()

	if err != nil {
		e.inst.InterruptDisable(unused)
		return err
	}

	d.log.Debugf("Device %d handles interrupt line %d (mask 0x%08x)", id, line, bound)
	return nil
}

// Unregister removes device id together with its interrupt binding. Readers blocked on the
// device return ErrorClosed.
func (d *Driver) Unregister(id int) error {
	d.Lock()
	e := d.getEntryWithoutLock(id)
	if e == nil {
		d.Unlock()
		return ErrorNoDevice
	}

	d.entries[id] = nil
	if e.line != noLine {
		d.publishLinesWithoutLock()
	}
	mask := e.mask
	d.Unlock()

	/* Waits for handles that are still accessing the registers */
	e.users.Lock()
	e.removed = true
	if mask != 0 {
		e.inst.InterruptDisable(mask)
	}
	e.users.Unlock()
	e.ready.Close()

	d.log.Debugf("Unregistered device %d", id)
	return nil
}

// Close unregisters all devices
func (d *Driver) Close() error {
	for id := range d.entries {
		if d.getEntry(id) != nil {
			d.Unregister(id)
		}
	}
	return nil
}

// DeviceStats describes one registered device
type DeviceStats struct {
	ID         int    `json:"id"`
	Line       int    `json:"line"`
	Mask       uint32 `json:"mask"`
	Enabled    uint32 `json:"enabled"`
	Interrupts uint64 `json:"interrupts"`
	Ready      bool   `json:"ready"`
}

// Stats returns the state of all registered devices, ordered by id
func (d *Driver) Stats() []DeviceStats {
	d.Lock()
	var entries []*entry
	var result []DeviceStats
	for _, e := range d.entries {
		if e == nil {
			continue
		}
		entries = append(entries, e)
		result = append(result, DeviceStats{
			ID:         e.id,
			Line:       e.line,
			Mask:       e.mask,
			Interrupts: atomic.LoadUint64(&e.interrupts),
			Ready:      e.ready.IsReady(),
		})
	}
	d.Unlock()

	/* Registers are read without the table lock, only interrupt capable instances have an
	 * enable register */
	for i, e := range entries {
		if !e.inst.InterruptCapable() || !e.acquire() {
			continue
		}
		result[i].Enabled, _ = e.inst.InterruptEnabled()
		e.release()
	}
	return result
}
