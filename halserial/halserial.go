// Copyright 2026 The DMX512 Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license
// that can be found in the LICENSE file.

// Package halserial implements hal.UartHal over a real Linux tty in
// RS-485 half-duplex mode, using github.com/daedaluz/goserial. It lets
// this module's Framer and responder be exercised against genuine
// serial hardware (a USB-RS485 adapter, say) without any MCU silicon,
// for host-side integration tests and tooling.
//
// A Linux tty has no interrupt controller a task can attach to, so
// this adapter emulates one: a background goroutine polls the file
// descriptor and raises the same hal.IntMask bits a real UART would,
// which the caller services by calling framer.Framer's HandleInterrupt;
// nothing in this package calls it. This is deliberately the only
// place in the module where "ISR context" is actually a goroutine.
//
// Break detection: Configure puts the line in raw mode with PARMRK set
// and IGNBRK/BRKINT clear, so a break condition arrives from the
// kernel as the marker sequence \xFF\x00\x00 rather than folding into
// an indistinguishable null byte (DMX's own null start code). A
// literal \xFF data byte is doubled by the same kernel mechanism, so
// pollLoop runs every read chunk through a small unescaper
// (UartHal.feed) before it ever reaches u.rx, turning a detected break
// into hal.IntBreakDetected instead of three bytes of RX payload.
package halserial

import (
	"sync"
	"time"

	serial "github.com/daedaluz/goserial"
	"github.com/oclyke/dmx512/hal"
)

// pollInterval bounds how promptly a host build notices new bytes or
// a break condition; a real UART's hardware threshold interrupts are
// effectively instantaneous, so this is the cost of emulating them
// here rather than a tunable knob the spec reasons about.
const pollInterval = 500 * time.Microsecond

var _ hal.UartHal = (*UartHal)(nil)

// UartHal adapts a *serial.Port to hal.UartHal.
type UartHal struct {
	port *serial.Port

	mu      sync.Mutex
	status  hal.IntMask
	enabled hal.IntMask
	rx      []byte
	pending []byte // 1-2 byte tail of an unresolved PARMRK marker, carried across reads

	stopCh chan struct{}
	doneCh chan struct{}
}

// Open opens path (e.g. "/dev/ttyUSB0") and wraps it as a hal.UartHal.
// Configure must still be called before use.
func Open(path string) (*UartHal, error) {
	p, err := serial.Open(path, serial.NewOptions().SetReadTimeout(pollInterval))
	if err != nil {
		return nil, err
	}
	return &UartHal{port: p}, nil
}

// Configure implements hal.UartHal: 8 data bits, no parity, 2 stop
// bits, RS-485 half-duplex, custom baud via BOTHER/Termios2 (DMX's
// 250000 baud has no entry in the standard POSIX speed table).
func (u *UartHal) Configure(baud int) error {
	attrs, err := u.port.GetAttr2()
	if err != nil {
		return err
	}
	attrs.MakeRaw()
	attrs.Cflag |= serial.CS8 | serial.CSTOPB | serial.CREAD | serial.CLOCAL
	attrs.Cflag &^= serial.PARENB
	// MakeRaw clears PARMRK along with BRKINT/IGNBRK, which would make a
	// break condition indistinguishable from a DMX null start code (both
	// read back as a single 0x00 byte). Re-set it alone so breaks surface
	// as the \xFF\x00\x00 marker sequence instead; see UartHal.feed.
	attrs.Iflag |= serial.PARMRK
	attrs.SetCustomIOSpeed(uint32(baud), uint32(baud))
	if err := u.port.SetAttr2(serial.TCSANOW, attrs); err != nil {
		return err
	}

	if err := u.port.SetRS485(&serial.RS485{Flags: serial.RS485Enabled}); err != nil {
		return err
	}

	u.mu.Lock()
	if u.stopCh == nil {
		u.stopCh = make(chan struct{})
		u.doneCh = make(chan struct{})
		go u.pollLoop(u.stopCh, u.doneCh)
	}
	u.mu.Unlock()
	return nil
}

// Close stops the polling goroutine and closes the underlying port.
func (u *UartHal) Close() error {
	u.mu.Lock()
	stop := u.stopCh
	done := u.doneCh
	u.stopCh, u.doneCh = nil, nil
	u.mu.Unlock()
	if stop != nil {
		close(stop)
		<-done
	}
	return u.port.Close()
}

func (u *UartHal) pollLoop(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	buf := make([]byte, 256)
	for {
		select {
		case <-stop:
			return
		default:
		}
		n, err := u.port.ReadTimeout(buf, pollInterval)
		if err != nil || n <= 0 {
			continue
		}
		u.feed(buf[:n])
	}
}

// feed unescapes a chunk of raw tty bytes per the PARMRK convention
// Configure enables (see package doc) and appends decoded data bytes
// to u.rx, raising hal.IntBreakDetected on a \xFF\x00\x00 marker and
// hal.IntFrameError on a \xFF\x00<byte> marker instead of passing
// either through as payload. A trailing, not-yet-classifiable \xFF (or
// \xFF\x00) is held in u.pending until the next chunk arrives.
func (u *UartHal) feed(chunk []byte) {
	u.mu.Lock()
	defer u.mu.Unlock()

	data := chunk
	if len(u.pending) > 0 {
		data = append(append([]byte(nil), u.pending...), chunk...)
		u.pending = nil
	}

	i := 0
scan:
	for i < len(data) {
		if data[i] != 0xFF {
			u.rx = append(u.rx, data[i])
			i++
			continue
		}
		if i+1 >= len(data) {
			u.pending = []byte{0xFF}
			break
		}
		switch data[i+1] {
		case 0xFF: // escaped literal 0xFF data byte
			u.rx = append(u.rx, 0xFF)
			i += 2
		case 0x00: // error marker: \xFF \x00 <third>
			if i+2 >= len(data) {
				u.pending = []byte{0xFF, 0x00}
				break scan
			}
			if third := data[i+2]; third == 0x00 {
				u.status |= hal.IntBreakDetected
			} else {
				u.status |= hal.IntFrameError
				u.rx = append(u.rx, third)
			}
			i += 3
		default: // not a valid PARMRK sequence; pass the 0xFF through
			u.rx = append(u.rx, 0xFF)
			i++
		}
	}
	if len(u.rx) >= hal.BufferSize {
		u.status |= hal.IntRxFifoOverflow
	} else if len(u.rx) > 0 {
		u.status |= hal.IntRxFifoFull
	}
}

// GetInterruptStatus implements hal.UartHal.
func (u *UartHal) GetInterruptStatus() hal.IntMask {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.status & u.enabled
}

// EnableInterrupt implements hal.UartHal.
func (u *UartHal) EnableInterrupt(mask hal.IntMask) {
	u.mu.Lock()
	u.enabled |= mask
	u.mu.Unlock()
}

// DisableInterrupt implements hal.UartHal.
func (u *UartHal) DisableInterrupt(mask hal.IntMask) {
	u.mu.Lock()
	u.enabled &^= mask
	u.mu.Unlock()
}

// ClearInterrupt implements hal.UartHal.
func (u *UartHal) ClearInterrupt(mask hal.IntMask) {
	u.mu.Lock()
	u.status &^= mask
	u.mu.Unlock()
}

// ReadRxFifo implements hal.UartHal, draining from the internal
// buffer fed by pollLoop rather than the fd directly (the fd has
// already been read into u.rx; re-reading it here would race the
// poller).
func (u *UartHal) ReadRxFifo(buf []byte) int {
	u.mu.Lock()
	defer u.mu.Unlock()
	n := copy(buf, u.rx)
	u.rx = u.rx[n:]
	return n
}

// WriteTxFifo implements hal.UartHal by writing straight through to
// the tty; a real UART's FIFO depth limit doesn't apply to a kernel
// tty buffer, so every byte is always accepted.
func (u *UartHal) WriteTxFifo(buf []byte) int {
	n, err := u.port.Write(buf)
	if err != nil {
		return 0
	}
	return n
}

// RxFifoReset implements hal.UartHal.
func (u *UartHal) RxFifoReset() {
	u.mu.Lock()
	u.rx = nil
	u.status &^= hal.IntRxFifoOverflow | hal.IntRxFifoFull
	u.mu.Unlock()
	_ = u.port.Flush(serial.TCIFLUSH)
}

// TxFifoReset implements hal.UartHal.
func (u *UartHal) TxFifoReset() {
	_ = u.port.Flush(serial.TCOFLUSH)
}

// SetRTS implements hal.UartHal as a no-op: once RS485Enabled is set
// in Configure, the kernel driver toggles the transceiver direction
// automatically around each write, so there is no separate RTS call
// for this adapter to make.
func (u *UartHal) SetRTS(dir hal.Direction) {}

// InvertTxSignal implements hal.UartHal's software break generation by
// mapping directly onto the tty's break control ioctls: true holds
// the line low (SetBreak, the start of a DMX break), false releases it
// (ClearBreak, the start of MAB).
func (u *UartHal) InvertTxSignal(inverted bool) {
	if inverted {
		_ = u.port.SetBreak()
	} else {
		_ = u.port.ClearBreak()
	}
}

// SetRxTimeoutThreshold implements hal.UartHal as a no-op: this
// adapter's receive cadence is governed by pollInterval, not a
// hardware threshold register.
func (u *UartHal) SetRxTimeoutThreshold(n int) {}

// SetRxFifoFullThreshold implements hal.UartHal as a no-op, for the
// same reason as SetRxTimeoutThreshold.
func (u *UartHal) SetRxFifoFullThreshold(n int) {}

// SetTxFifoEmptyThreshold implements hal.UartHal as a no-op: WriteTxFifo
// always drains synchronously into the tty.
func (u *UartHal) SetTxFifoEmptyThreshold(n int) {}
