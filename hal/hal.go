// Copyright 2026 The DMX512 Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license
// that can be found in the LICENSE file.

// Package hal defines the API to communicate with a DMX512/RDM bus over
// a UART peripheral.
//
// Every component above the Framer talks to the bus exclusively through
// UartHal, Timer and Nvs. No other package in this module is permitted to
// touch peripheral registers, arm a hardware timer, or read/write
// non-volatile storage directly; that narrowing is what lets the Framer
// and codec be tested on a host with fake implementations of these three
// interfaces.
package hal

import "time"

// IntMask is a bitmask of UART interrupt sources. The concrete bit
// positions are hardware-specific; the Framer only ever tests named bits
// via Has, never raw values.
type IntMask uint32

// Has reports whether m contains all bits of other.
func (m IntMask) Has(other IntMask) bool {
	return m&other == other
}

// Interrupt sources the Framer reacts to, checked in this priority order
// on every ISR entry.
const (
	IntRxFifoOverflow IntMask = 1 << iota
	IntFrameError             // framing, parity, or RS-485 frame error
	IntBreakDetected
	IntRxFifoFull
	IntRxTimeout
	IntTxData
	IntTxDone
	IntRS485Clash
)

// Direction selects which way the RS-485 transceiver is pointed.
type Direction int

const (
	// DirRX listens on the bus. This is the idle direction.
	DirRX Direction = iota
	// DirTX drives the bus.
	DirTX
)

func (d Direction) String() string {
	if d == DirTX {
		return "TX"
	}
	return "RX"
}

// UartHal is the narrow vocabulary the Framer consumes to drive one
// physical UART in half-duplex RS-485 mode.
//
// Every method here may be called from ISR context. Implementations must
// not allocate, block, or take a lock that can also be held across a
// blocking operation; see the package doc and spec §5.
type UartHal interface {
	// Configure sets up the peripheral once, at install time: baud rate,
	// 8 data bits, no parity, 2 stop bits, RS-485 half-duplex, hardware
	// flow control disabled, TX idle low.
	Configure(baud int) error

	// GetInterruptStatus returns the pending, enabled interrupt sources.
	GetInterruptStatus() IntMask
	// EnableInterrupt unmasks the given sources.
	EnableInterrupt(mask IntMask)
	// DisableInterrupt masks the given sources.
	DisableInterrupt(mask IntMask)
	// ClearInterrupt acknowledges the given sources.
	ClearInterrupt(mask IntMask)

	// ReadRxFifo drains up to len(buf) bytes from the RX FIFO, returning
	// the number of bytes actually read.
	ReadRxFifo(buf []byte) int
	// WriteTxFifo pushes up to len(buf) bytes into the TX FIFO, returning
	// the number of bytes actually accepted.
	WriteTxFifo(buf []byte) int
	// RxFifoReset discards any buffered RX bytes.
	RxFifoReset()
	// TxFifoReset discards any buffered, not-yet-sent TX bytes.
	TxFifoReset()

	// SetRTS points the RS-485 transceiver in the given direction.
	SetRTS(dir Direction)
	// InvertTxSignal drives the TX line inverted (true) or normal
	// (false). Used to generate a break without a dedicated break bit.
	InvertTxSignal(inverted bool)

	// SetRxTimeoutThreshold sets the number of idle bit-periods that
	// trigger an IntRxTimeout.
	SetRxTimeoutThreshold(n int)
	// SetRxFifoFullThreshold sets the RX FIFO fill level that triggers
	// IntRxFifoFull.
	SetRxFifoFullThreshold(n int)
	// SetTxFifoEmptyThreshold sets the TX FIFO drain level that triggers
	// IntTxData.
	SetTxFifoEmptyThreshold(n int)
}

// Timer is a single one-shot hardware timer used to time the break and
// MAB phases of the TX state machine. The send watchdog does not use it.
//
// Arm and Stop may be called from ISR context; the fire callback passed
// to Arm is itself invoked from (hardware) timer-ISR context and is
// subject to the same no-block, no-allocate constraints as UartHal
// methods.
type Timer interface {
	// Arm schedules fire to be called once after d elapses. Arming an
	// already-armed timer reprograms it.
	Arm(d time.Duration, fire func())
	// Stop cancels a pending fire, if any.
	Stop()
}

// Nvs is the non-volatile storage collaborator backing NON_VOLATILE
// parameters. It is only ever touched from task context (spec §5).
type Nvs interface {
	// Load returns the raw bytes stored under key, or ok=false if the
	// key has never been written.
	Load(key string) (value []byte, ok bool)
	// Store persists value under key, overwriting any previous value.
	Store(key string, value []byte) error
}
