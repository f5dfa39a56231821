// +build linux

package regfile

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

const pageSize = 0x1000

// Map maps size bytes of file starting at offset. For UIO devices the offset selects the
// map index (N * page size).
func Map(file *os.File, offset int64, size int) (*Mem, error) {
	if size < WindowSize {
		return nil, fmt.Errorf("%s: mapping of %d bytes does not cover the registers", file.Name(), size)
	}

	mem, err := unix.Mmap(int(file.Fd()), offset, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", file.Name(), err)
	}

	m := NewMem(mem)
	m.unmap = unix.Munmap
	return m, nil
}

// OpenDevMem maps the physical region at phys through /dev/mem. The file descriptor is
// closed after mapping, the mapping stays valid until Close.
func OpenDevMem(phys int64, size int) (*Mem, error) {
	if phys%4 != 0 {
		return nil, fmt.Errorf("Physical address 0x%x is not 32 bit aligned", phys)
	}
	/* Checked before the page offset is added, Map only sees the whole pages */
	if size < WindowSize {
		return nil, fmt.Errorf("Mapping of %d bytes at 0x%x does not cover the registers", size, phys)
	}

	f, err := os.OpenFile("/dev/mem", os.O_RDWR|os.O_SYNC, 0)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	pageOffset := int(phys % pageSize)
	m, err := Map(f, phys-int64(pageOffset), size+pageOffset)
	if err != nil {
		return nil, err
	}

	if pageOffset != 0 {
		whole := m.mem
		m.mem = whole[pageOffset:]
		m.unmap = func([]byte) error {
			return unix.Munmap(whole)
		}
	}

	return m, nil
}
