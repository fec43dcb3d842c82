// Copyright 2026 The DMX512 Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license
// that can be found in the LICENSE file.

package framer

import (
	"time"

	"github.com/oclyke/dmx512/hal"
	"github.com/oclyke/dmx512/rdm"
)

// txChunkSize bounds how many bytes are pushed into the TX FIFO per
// TX_DATA interrupt; a real FIFO is typically much smaller than 513
// bytes.
const txChunkSize = 16

// Send transmits data (a full frame: start code plus slots, or an RDM
// packet) and blocks until the hardware reports TX_DONE or timeout
// elapses. Task context only (spec §4.2 "Transmit path").
func (f *Framer) Send(data []byte, timeout time.Duration) error {
	f.mu.Lock()
	if f.isBusy {
		f.mu.Unlock()
		return rdm.ErrInvalidArg
	}
	f.isBusy = true
	f.isInBreak = true
	f.txBuf = data
	f.head = 0
	f.size = len(data)
	f.txSent = false
	f.direction = hal.DirTX
	f.hal.SetRTS(hal.DirTX)
	f.hal.InvertTxSignal(true)
	breakLen := f.breakLen
	f.mu.Unlock()

	f.timer.Arm(breakLen, f.onBreakFire)

	select {
	case err := <-f.sendDone:
		return err
	case <-time.After(timeout):
		f.mu.Lock()
		f.isBusy = false
		f.timer.Stop()
		f.hal.SetRTS(hal.DirRX)
		f.mu.Unlock()
		return rdm.ErrTimeout
	}
}

// onBreakFire runs when the break-length timer expires: it de-inverts
// the line (MAB begins) and reprograms the timer for the MAB length.
// Timer-ISR context.
func (f *Framer) onBreakFire() {
	f.mu.Lock()
	if !f.isInBreak {
		f.mu.Unlock()
		return
	}
	f.hal.InvertTxSignal(false)
	mabLen := f.mabLen
	f.mu.Unlock()
	f.timer.Arm(mabLen, f.onMabFire)
}

// onMabFire runs when the MAB timer expires: it pushes the initial
// chunk into the TX FIFO and enables TX_DATA. Timer-ISR context.
func (f *Framer) onMabFire() {
	f.mu.Lock()
	f.isInBreak = false
	n := f.hal.WriteTxFifo(f.txBuf[f.head:min(len(f.txBuf), f.head+txChunkSize)])
	f.head += n
	f.mu.Unlock()
	f.hal.EnableInterrupt(hal.IntTxData)
}

// OnTxData runs on a TX_DATA interrupt: it writes the next chunk, and
// once the whole buffer has been pushed, disables TX_DATA and waits for
// TX_DONE. ISR context.
func (f *Framer) OnTxData() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.head >= len(f.txBuf) {
		f.hal.DisableInterrupt(hal.IntTxData)
		f.hal.EnableInterrupt(hal.IntTxDone)
		return
	}
	end := f.head + txChunkSize
	if end > len(f.txBuf) {
		end = len(f.txBuf)
	}
	n := f.hal.WriteTxFifo(f.txBuf[f.head:end])
	f.head += n
	if f.head >= len(f.txBuf) {
		f.hal.DisableInterrupt(hal.IntTxData)
		f.hal.EnableInterrupt(hal.IntTxDone)
	}
}

// OnTxDone runs on a TX_DONE interrupt: it records last_sent_ts, clears
// is_busy, releases the waiting task, and switches direction back to
// RX. ISR context.
func (f *Framer) OnTxDone() {
	f.mu.Lock()
	f.hal.DisableInterrupt(hal.IntTxDone)
	f.lastSentTs = time.Now()
	f.isBusy = false
	f.txSent = true
	f.direction = hal.DirRX
	f.hal.SetRTS(hal.DirRX)
	f.mu.Unlock()

	select {
	case <-f.sendDone:
	default:
	}
	f.sendDone <- nil
}
