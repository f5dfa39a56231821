// Package uio drives GPIO peripherals exported through the Linux userspace I/O framework.
// Interrupts arrive as blocking 4 byte reads on /dev/uioN, writing 1 re-enables them.
package uio

import (
	"errors"
	"fmt"
	"io"
	"io/ioutil"
	"path/filepath"
	"strconv"
	"strings"
)

var (
	ErrorShortRead  = errors.New("Short read from UIO device")
	ErrorShortWrite = errors.New("Short write to UIO device")
)

// SysfsRoot is where the UIO class attributes are found
var SysfsRoot = "/sys/class/uio"

func attrPath(index int, attr ...string) string {
	return filepath.Join(append([]string{SysfsRoot, fmt.Sprintf("uio%d", index)}, attr...)...)
}

// readAttr reads a sysfs attribute of device index and decodes it as an integer. Both
// decimal and 0x prefixed values are accepted.
func readAttr(index int, attr ...string) (int64, error) {
	path := attrPath(index, attr...)
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return -1, err
	}

	s := strings.TrimSpace(string(data))
	if len(s) == 0 {
		return -1, fmt.Errorf("%s: no value found", path)
	}

	v, err := strconv.ParseInt(s, 0, 64)
	if err != nil {
		return -1, fmt.Errorf("%s: %w", path, err)
	}
	return v, nil
}

// Info describes the first memory map of a UIO device
type Info struct {
	Name string
	Addr int64
	Size int
}

// ReadInfo reads the sysfs description of /dev/uio<index>
func ReadInfo(index int) (Info, error) {
	var info Info

	name, err := ioutil.ReadFile(attrPath(index, "name"))
	if err != nil {
		return info, err
	}
	info.Name = strings.TrimSpace(string(name))

	info.Addr, err = readAttr(index, "maps", "map0", "addr")
	if err != nil {
		return info, err
	}

	size, err := readAttr(index, "maps", "map0", "size")
	if err != nil {
		return info, err
	}
	info.Size = int(size)

	return info, nil
}

// waitEvent reads one interrupt notification and returns the total interrupt count
func waitEvent(r io.Reader) (uint32, error) {
	var b [4]byte
	n, err := r.Read(b[:])
	if err != nil {
		return 0, err
	}
	if n != 4 {
		return 0, ErrorShortRead
	}
	return nativeEndian.Uint32(b[:]), nil
}

// unmask re-enables the interrupt of the device
func unmask(w io.Writer) error {
	var b [4]byte
	nativeEndian.PutUint32(b[:], 1)
	n, err := w.Write(b[:])
	if err != nil {
		return err
	}
	if n != 4 {
		return ErrorShortWrite
	}
	return nil
}
