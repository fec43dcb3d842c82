// Copyright 2026 The DMX512 Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license
// that can be found in the LICENSE file.

// Package framer is the ISR-resident DMX512/RDM frame state machine
// (spec §4.2). It translates hal.UartHal interrupts into whole frames on
// receive, and drives the break -> MAB -> data -> idle state machine on
// transmit.
//
// Every exported method whose doc comment says "ISR context" is meant to
// be invoked directly from a real interrupt handler (or a hardware
// timer's fire callback) and must never block, allocate off a fast
// path, or take a lock also held across a blocking call -- spec §5. The
// mutex used here stands in for the spec's "short spinlock": it is only
// ever held across a handful of field reads/writes, never across a HAL
// call that could itself block.
package framer

import (
	"sync"
	"time"

	"github.com/oclyke/dmx512/hal"
	"github.com/oclyke/dmx512/rdm"
)

// Notification is what a blocked Receive wakes up with.
type Notification struct {
	Status rdm.Status
	// Size is the number of bytes observed in the frame (head at the
	// time of notification), valid when Status == rdm.OK.
	Size int
	// IsRDM reports whether the frame's start code was 0xCC.
	IsRDM bool
}

// Framer owns one port's receive/transmit state. The zero value is not
// usable; construct with New.
type Framer struct {
	hal   hal.UartHal
	timer hal.Timer

	mu        sync.Mutex
	buf       [hal.BufferSize]byte
	head      int
	size      int
	isBusy    bool
	isInBreak bool
	direction hal.Direction
	muted     bool

	breakLen time.Duration
	mabLen   time.Duration

	rxTimeoutThreshold int
	lastReceivedTs      time.Time
	lastSentTs          time.Time

	waiting bool
	waitCh  chan Notification

	txBuf    []byte
	txSent   bool
	sendDone chan error
}

// New constructs a Framer driving h through t for timing, with the
// given break/MAB lengths (spec §3 "TX break length ... MAB length").
func New(h hal.UartHal, t hal.Timer, breakLen, mabLen time.Duration) *Framer {
	f := &Framer{
		hal:      h,
		timer:    t,
		breakLen: breakLen,
		mabLen:   mabLen,
		waitCh:   make(chan Notification, 1),
		sendDone: make(chan error, 1),
	}
	f.hal.SetRTS(hal.DirRX)
	f.hal.EnableInterrupt(hal.IntRxFifoOverflow | hal.IntFrameError | hal.IntBreakDetected | hal.IntRxFifoFull | hal.IntRxTimeout | hal.IntRS485Clash)
	return f
}

// Muted reports the DISC_MUTE flag last stored with SetMuted (spec
// §4.6). HandleInterrupt does not read it.
func (f *Framer) Muted() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.muted
}

// SetMuted sets the DISC_MUTE state.
func (f *Framer) SetMuted(m bool) {
	f.mu.Lock()
	f.muted = m
	f.mu.Unlock()
}

// Receive blocks until a full frame arrives, an error condition is
// notified, or timeout elapses (ErrTimeout). Task context only.
func (f *Framer) Receive(timeout time.Duration) (Notification, []byte, error) {
	f.mu.Lock()
	f.waiting = true
	f.mu.Unlock()

	select {
	case n := <-f.waitCh:
		if n.Status != rdm.OK {
			return n, nil, n.Status
		}
		f.mu.Lock()
		frame := append([]byte(nil), f.buf[:n.Size]...)
		f.mu.Unlock()
		return n, frame, nil
	case <-time.After(timeout):
		f.mu.Lock()
		f.waiting = false
		f.isBusy = false
		f.mu.Unlock()
		return Notification{}, nil, rdm.ErrTimeout
	}
}

// notify delivers n to a blocked Receive using overwrite semantics: if a
// notification is already pending, it is replaced rather than queued
// (spec §5 "Ordering guarantees"). If no task is currently waiting, the
// notification is dropped -- the corresponding RX path has already reset
// the FIFO so no data is lost silently into stale state.
func (f *Framer) notify(n Notification) {
	if !f.waiting {
		return
	}
	f.waiting = false
	select {
	case <-f.waitCh:
	default:
	}
	f.waitCh <- n
}

// HandleInterrupt services one ISR entry: it checks the sources in the
// priority order of spec §4.2's receive-path table. ISR context.
func (f *Framer) HandleInterrupt() {
	f.mu.Lock()
	defer f.mu.Unlock()

	status := f.hal.GetInterruptStatus()

	if status.Has(hal.IntRxFifoOverflow) {
		f.hal.ClearInterrupt(hal.IntRxFifoOverflow)
		f.isBusy = false
		f.notify(Notification{Status: rdm.ErrOverflow})
		f.hal.RxFifoReset()
		return
	}
	if status.Has(hal.IntFrameError) {
		f.hal.ClearInterrupt(hal.IntFrameError)
		f.isBusy = false
		f.notify(Notification{Status: rdm.ErrImproperSlot})
		f.hal.RxFifoReset()
		return
	}
	if status.Has(hal.IntBreakDetected) {
		f.hal.ClearInterrupt(hal.IntBreakDetected)
		if f.isBusy {
			f.size = f.head
			f.notify(Notification{Status: rdm.OK, Size: f.size, IsRDM: f.size > 0 && f.buf[0] == hal.StartCodeRDM})
		}
		f.isInBreak = true
		f.isBusy = true
		f.head = 0
		f.hal.RxFifoReset()
		return
	}
	if status.Has(hal.IntRxFifoFull) || status.Has(hal.IntRxTimeout) {
		f.hal.ClearInterrupt(hal.IntRxFifoFull | hal.IntRxTimeout)
		wasTimeout := status.Has(hal.IntRxTimeout)
		f.isInBreak = false

		if wasTimeout {
			f.lastReceivedTs = time.Now().Add(-time.Duration(f.rxTimeoutThreshold) * hal.RxTimeoutUnit)
		} else {
			f.lastReceivedTs = time.Now()
		}

		if !f.waiting {
			f.hal.RxFifoReset()
			return
		}

		room := hal.BufferSize - f.head
		if room <= 0 {
			return
		}
		n := f.hal.ReadRxFifo(f.buf[f.head : f.head+room])
		f.head += n

		if f.head == 0 {
			return
		}
		switch f.buf[0] {
		case hal.StartCodeDMX:
			if f.head > f.size {
				f.size = f.head
				f.notify(Notification{Status: rdm.OK, Size: f.size, IsRDM: false})
			}
		case hal.StartCodeRDM:
			if f.head >= 2 {
				msgLen := int(f.buf[2])
				if f.head >= msgLen+2 {
					f.size = f.head
					f.notify(Notification{Status: rdm.OK, Size: f.size, IsRDM: true})
				}
			}
		}
		return
	}
	if status.Has(hal.IntRS485Clash) {
		// Expected during DISC_UNIQUE_BRANCH; clear and continue.
		f.hal.ClearInterrupt(hal.IntRS485Clash)
	}
}
