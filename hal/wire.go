// Copyright 2026 The DMX512 Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license
// that can be found in the LICENSE file.

package hal

import "time"

// DMX/RDM wire-format constants, spec §6.
const (
	// DefaultBaudRate is the only baud rate DMX512 runs at: 250kbaud,
	// 8N2. Tolerance is +/-2%.
	DefaultBaudRate = 250000
	BaudTolerance   = 0.02

	// BufferSize is one start code plus 512 data slots.
	BufferSize = 513

	// MaxPorts bounds how many independent ports a process may install:
	// the port registry is a fixed array of this many slots. Driver and
	// parameter storage is not pre-reserved; it is allocated at install
	// and as parameters are registered.
	MaxPorts = 8
)

// Start codes, spec §6.
const (
	StartCodeDMX = 0x00
	StartCodeRDM = 0xCC
)

// Reserved alternate start code ranges that must be rejected by
// StartCodeIsValid.
var reservedRanges = [3][2]byte{
	{0x92, 0xA9},
	{0xAB, 0xCD},
	{0xF0, 0xF7},
}

// StartCodeIsValid reports whether sc is an acceptable start code: either
// of the two this module understands (DMX, RDM), or any byte outside the
// reserved alternate-start-code ranges.
func StartCodeIsValid(sc byte) bool {
	if sc == StartCodeDMX || sc == StartCodeRDM {
		return true
	}
	for _, r := range reservedRanges {
		if sc >= r[0] && sc <= r[1] {
			return false
		}
	}
	return true
}

// Break/MAB timing, spec §4.2.
const (
	DefaultBreakLen = 176 * time.Microsecond
	MinBreakLenTx   = 92 * time.Microsecond
	MinBreakLenRx   = 88 * time.Microsecond

	DefaultMabLen = 12 * time.Microsecond
	MinMabLenRx   = 8 * time.Microsecond

	// RxWatchdog is the maximum allowed gap before a blocked Receive
	// fails with ErrTimeout.
	RxWatchdog = 1250 * time.Millisecond
	// TxWatchdog is the maximum time a Send is allowed to take end to
	// end before it is considered to have failed.
	TxWatchdog = 1000 * time.Millisecond
)

// RxTimeoutUnit is the duration represented by one unit of the UART's
// RX-timeout threshold register, used to back-date last_received_ts when
// the trigger was a timeout rather than a FIFO-full event (spec §4.2).
const RxTimeoutUnit = 44 * time.Microsecond
