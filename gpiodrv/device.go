package gpiodrv

import (
	"context"
	"io"
	"sync"

	"github.com/BertoldVdb/zybo-gpio/readyflag"
)

// File is the character device view of one GPIO peripheral
type File interface {
	io.ReadWriteCloser

	// ReadContext is Read with a way to interrupt the wait
	ReadContext(ctx context.Context, p []byte) (int, error)
}

// Device is an open handle on a registered peripheral
type Device struct {
	driver *Driver
	e      *entry

	sync.Mutex
	closed    bool
	closeChan chan (struct{})
}

// Open returns a handle on device id
func (d *Driver) Open(id int) (*Device, error) {
	e := d.getEntry(id)
	if e == nil {
		d.log.Warnf("Open of unknown device %d", id)
		return nil, ErrorNoDevice
	}

	return &Device{driver: d, e: e, closeChan: make(chan (struct{}))}, nil
}

// ID returns the id the device was opened with
func (dev *Device) ID() int {
	return dev.e.id
}

func (dev *Device) isClosed() bool {
	dev.Lock()
	defer dev.Unlock()

	return dev.closed
}

// Read blocks until the device signals new data and returns one status byte
func (dev *Device) Read(p []byte) (int, error) {
	return dev.ReadContext(context.Background(), p)
}

// ReadContext blocks until the device signals new data and returns one status byte. If ctx is
// done first ErrorInterruptedWait is returned and nothing is read.
func (dev *Device) ReadContext(ctx context.Context, p []byte) (int, error) {
	if dev.isClosed() {
		return 0, ErrorClosed
	}
	if len(p) == 0 {
		return 0, nil
	}

	err := dev.e.ready.WaitAbort(ctx, dev.closeChan)
	if err == readyflag.ErrorClosed || err == readyflag.ErrorAborted {
		return 0, ErrorClosed
	} else if err != nil {
		dev.driver.log.Debugf("Read on device %d interrupted: %v", dev.e.id, err)
		return 0, ErrorInterruptedWait
	}

	if !dev.e.acquire() {
		return 0, ErrorClosed
	}
	value, err := dev.e.inst.ReadValue()
	dev.e.release()
	if err != nil {
		return 0, err
	}

	p[0] = byte(value)
	return 1, nil
}

// Write drives the output pins and stores each byte of p in order. Writes fail with
// ErrorClosed once the device is unregistered.
func (dev *Device) Write(p []byte) (int, error) {
	if dev.isClosed() || !dev.e.acquire() {
		return 0, ErrorClosed
	}
	defer dev.e.release()

	for i, b := range p {
		if err := dev.e.inst.Output(dev.driver.outputPins, uint32(b)); err != nil {
			return i, err
		}
	}

	return len(p), nil
}

// Close releases the handle and wakes a Read blocked on it. The device stays registered.
func (dev *Device) Close() error {
	dev.Lock()
	defer dev.Unlock()

	if dev.closed {
		return ErrorClosed
	}
	dev.closed = true
	close(dev.closeChan)
	return nil
}
