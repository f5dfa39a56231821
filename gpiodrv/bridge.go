package gpiodrv

import "sync/atomic"

// HandleInterrupt services one assertion of line. It reads the pending lines, acknowledges
// exactly those, then marks the owning device ready and wakes its readers.
//
// It never takes the table lock or an instance write lock and does not log: if the line
// has no owner the missed interrupt counter is incremented and ErrorOwnerNotFound returned
// without touching any register.
func (d *Driver) HandleInterrupt(line int) error {
	e, ok := d.lines.Load().(map[int]*entry)[line]
	if !ok {
		atomic.AddUint64(&d.missed, 1)
		return ErrorOwnerNotFound
	}

	/* Snapshot before any other register access so later assertions stay pending */
	pending, err := e.inst.InterruptStatus()
	if err != nil {
		atomic.AddUint64(&d.missed, 1)
		return err
	}

	if err := e.inst.InterruptClear(pending); err != nil {
		atomic.AddUint64(&d.missed, 1)
		return err
	}

	atomic.AddUint64(&e.interrupts, 1)
	e.ready.Set()
	return nil
}

// MissedInterrupts returns how many interrupts could not be delivered to a device
func (d *Driver) MissedInterrupts() uint64 {
	return atomic.LoadUint64(&d.missed)
}
