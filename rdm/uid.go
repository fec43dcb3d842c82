// Copyright 2026 The DMX512 Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license
// that can be found in the LICENSE file.

// Package rdm implements the RDM wire codec: standard packet headers,
// the DISC_UNIQUE_BRANCH interleaved response, and the PDL format
// string DSL used to describe parameter layouts without hand-written
// marshalling. See spec §4.3 and §6.
package rdm

import "fmt"

// UID is a 48-bit RDM device identifier: a 16-bit manufacturer ID in the
// upper bits and a 32-bit device ID in the lower bits. The top 16 bits of
// the underlying uint64 are always zero.
type UID uint64

// BroadcastUID addresses every device on the bus.
const BroadcastUID UID = 0xFFFFFFFFFFFF

// MaxUID is the highest valid (non-broadcast) UID, per spec §6.
const MaxUID UID = 0x0000FFFFFFFFFFFE

// NewUID builds a UID from a manufacturer ID and a device ID.
func NewUID(mfr uint16, device uint32) UID {
	return UID(uint64(mfr)<<32 | uint64(device))
}

// Manufacturer returns the 16-bit manufacturer ID.
func (u UID) Manufacturer() uint16 {
	return uint16(u >> 32)
}

// Device returns the 32-bit device ID.
func (u UID) Device() uint32 {
	return uint32(u)
}

// IsBroadcast reports whether u is the all-ones broadcast address.
func (u UID) IsBroadcast() bool {
	return u == BroadcastUID
}

// InRange reports whether u falls within the inclusive range [lo, hi],
// as used by DISC_UNIQUE_BRANCH (spec §4.6).
func (u UID) InRange(lo, hi UID) bool {
	return u >= lo && u <= hi
}

// Compare returns -1, 0 or 1 as u is less than, equal to, or greater
// than other, for sorting discovery results.
func (u UID) Compare(other UID) int {
	switch {
	case u < other:
		return -1
	case u > other:
		return 1
	default:
		return 0
	}
}

// String renders the UID as "mmmm:dddddddd", matching RDM controller
// convention.
func (u UID) String() string {
	return fmt.Sprintf("%04X:%08X", u.Manufacturer(), u.Device())
}

// PutUID writes u big-endian, MSB-first, into the first 6 bytes of b.
// Panics if len(b) < 6, mirroring encoding/binary's PutUint* family.
func PutUID(b []byte, u UID) {
	_ = b[5]
	b[0] = byte(u >> 40)
	b[1] = byte(u >> 32)
	b[2] = byte(u >> 24)
	b[3] = byte(u >> 16)
	b[4] = byte(u >> 8)
	b[5] = byte(u)
}

// GetUID reads a big-endian 6-byte UID from the first 6 bytes of b.
// Panics if len(b) < 6.
func GetUID(b []byte) UID {
	_ = b[5]
	return UID(b[0])<<40 | UID(b[1])<<32 | UID(b[2])<<24 | UID(b[3])<<16 | UID(b[4])<<8 | UID(b[5])
}
