package gpiodrv

import (
	"context"
	"testing"
	"time"

	"github.com/BertoldVdb/zybo-gpio/regfile"
)

func TestOpenUnknown(t *testing.T) {
	d := New(Config{})
	dev, err := d.Open(2)
	check(t, dev == nil && err == ErrorNoDevice, "Open of an unknown id succeeded", err)
}

func TestDeviceWrite(t *testing.T) {
	d := New(Config{})
	inst, sim := newInstance(t, false)
	id, _ := d.Register(inst)
	dev, err := d.Open(id)
	check(t, err == nil, "Open failed", err)

	var f File = dev
	n, err := f.Write([]byte{0x3})
	check(t, err == nil && n == 1, "Write failed", n, err)

	writes := sim.Writes()
	check(t, len(writes) == 2, "Wrong number of writes", writes)
	check(t, writes[0].Offset == regfile.Direction && writes[0].Value == DefaultOutputPins, "Pins not driven first", writes[0])
	check(t, writes[1].Offset == regfile.DataOut && writes[1].Value == 0x3, "Value not stored", writes[1])

	n, err = f.Write([]byte{0x1, 0x2})
	check(t, err == nil && n == 2, "Multi byte write failed", n, err)
	check(t, sim.Peek(regfile.DataOut) == 0x2, "Last byte not applied")

	n, err = f.Write(nil)
	check(t, err == nil && n == 0, "Empty write failed")
}

func TestDeviceOutputPins(t *testing.T) {
	d := New(Config{OutputPins: 0xFF})
	inst, sim := newInstance(t, false)
	id, _ := d.Register(inst)
	dev, _ := d.Open(id)

	dev.Write([]byte{0x80})
	check(t, sim.Peek(regfile.Direction) == 0xFF, "Configured pins not used")
}

func TestReadInterrupted(t *testing.T) {
	d := New(Config{})
	dev, sim := newBoundDevice(t, d)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	buf := make([]byte, 1)
	n, err := dev.ReadContext(ctx, buf)
	check(t, n == 0 && err == ErrorInterruptedWait, "Wrong result", n, err)
	check(t, sim.Reads(regfile.DataIn) == 0, "Interrupted read touched DataIn")

	/* An interrupt after the cancellation is kept for the next reader */
	check(t, d.HandleInterrupt(testLine) == nil, "HandleInterrupt failed")
	n, err = dev.ReadContext(context.Background(), buf)
	check(t, n == 1 && err == nil, "Retry failed", n, err)
}

func TestReadAfterUnregister(t *testing.T) {
	d := New(Config{})
	dev, _ := newBoundDevice(t, d)

	go func() {
		time.Sleep(50 * time.Millisecond)
		d.Unregister(dev.ID())
	}()

	_, err := dev.Read(make([]byte, 1))
	check(t, err == ErrorClosed, "Blocked reader not released", err)
}

func TestWriteAfterUnregister(t *testing.T) {
	d := New(Config{})
	inst, sim := newInstance(t, false)
	id, _ := d.Register(inst)
	dev, err := d.Open(id)
	check(t, err == nil, "Open failed", err)

	check(t, d.Unregister(id) == nil, "Unregister failed")
	n, err := dev.Write([]byte{7})
	check(t, n == 0 && err == ErrorClosed, "Write through a stale handle succeeded", n, err)
	check(t, len(sim.Writes()) == 0, "Registers written after unregister", sim.Writes())
}

func TestCloseWakesReader(t *testing.T) {
	d := New(Config{})
	dev, sim := newBoundDevice(t, d)

	go func() {
		time.Sleep(50 * time.Millisecond)
		dev.Close()
	}()

	buf := make([]byte, 1)
	_, err := dev.Read(buf)
	check(t, err == ErrorClosed, "Blocked reader not released by Close", err)
	check(t, sim.Reads(regfile.DataIn) == 0, "Released reader touched DataIn")

	/* Other handles on the device keep working */
	other, err := d.Open(dev.ID())
	check(t, err == nil, "Open failed", err)
	check(t, d.HandleInterrupt(testLine) == nil, "HandleInterrupt failed")
	n, err := other.Read(buf)
	check(t, n == 1 && err == nil, "Read on a second handle failed", n, err)
}

func TestDeviceClose(t *testing.T) {
	d := New(Config{})
	dev, _ := newBoundDevice(t, d)

	check(t, dev.Close() == nil, "Close failed")
	check(t, dev.Close() == ErrorClosed, "Double close succeeded")

	_, err := dev.Read(make([]byte, 1))
	check(t, err == ErrorClosed, "Read on closed handle", err)
	_, err = dev.Write([]byte{1})
	check(t, err == ErrorClosed, "Write on closed handle", err)

	n, err := d.Open(dev.ID())
	check(t, err == nil && n != nil, "Device unusable after handle close")

	zero, err := n.Read(nil)
	check(t, zero == 0 && err == nil, "Empty read blocked or failed")
}
