// +build linux

package uio

import (
	"fmt"
	"os"
	"syscall"

	"github.com/BertoldVdb/zybo-gpio/regfile"
)

// Device is an open /dev/uioN with its registers mapped
type Device struct {
	file *os.File
	Info Info
	Regs *regfile.Mem
}

// Open opens /dev/uio<index> and maps its first memory region
func Open(index int) (*Device, error) {
	info, err := ReadInfo(index)
	if err != nil {
		return nil, err
	}

	file, err := os.OpenFile(fmt.Sprintf("/dev/uio%d", index), syscall.O_RDWR|os.O_SYNC, 0600)
	if err != nil {
		return nil, err
	}

	regs, err := regfile.Map(file, 0, info.Size)
	if err != nil {
		file.Close()
		return nil, err
	}

	return &Device{
		file: file,
		Info: info,
		Regs: regs,
	}, nil
}

// Wait blocks until the device raises an interrupt and returns the interrupt count
func (u *Device) Wait() (uint32, error) {
	return waitEvent(u.file)
}

// Unmask re-enables the interrupt after it has been handled
func (u *Device) Unmask() error {
	return unmask(u.file)
}

// Close closes the device, a blocked Wait returns an error. The registers stay mapped
// until Regs.Close is called.
func (u *Device) Close() error {
	return u.file.Close()
}
