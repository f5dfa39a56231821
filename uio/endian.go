package uio

import (
	"encoding/binary"
	"unsafe"
)

// The interrupt counter is exchanged in host byte order
var nativeEndian binary.ByteOrder

func init() {
	x := uint16(1)
	if *(*byte)(unsafe.Pointer(&x)) == 1 {
		nativeEndian = binary.LittleEndian
	} else {
		nativeEndian = binary.BigEndian
	}
}
