// Copyright 2026 The DMX512 Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license
// that can be found in the LICENSE file.

package framer

import (
	"sync"
	"testing"
	"time"

	"github.com/oclyke/dmx512/hal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeHal is an in-memory hal.UartHal for exercising the Framer without
// real silicon, in the spirit of conn/gpio/gpiotest's fake pins.
type fakeHal struct {
	mu      sync.Mutex
	status  hal.IntMask
	enabled hal.IntMask
	rx      []byte
	tx      []byte
	dir     hal.Direction
}

func (h *fakeHal) Configure(baud int) error { return nil }

func (h *fakeHal) GetInterruptStatus() hal.IntMask {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.status & h.enabled
}
func (h *fakeHal) EnableInterrupt(mask hal.IntMask) {
	h.mu.Lock()
	h.enabled |= mask
	h.mu.Unlock()
}
func (h *fakeHal) DisableInterrupt(mask hal.IntMask) {
	h.mu.Lock()
	h.enabled &^= mask
	h.mu.Unlock()
}
func (h *fakeHal) ClearInterrupt(mask hal.IntMask) {
	h.mu.Lock()
	h.status &^= mask
	h.mu.Unlock()
}
func (h *fakeHal) ReadRxFifo(buf []byte) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := copy(buf, h.rx)
	h.rx = h.rx[n:]
	return n
}
func (h *fakeHal) WriteTxFifo(buf []byte) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.tx = append(h.tx, buf...)
	return len(buf)
}
func (h *fakeHal) RxFifoReset() { h.mu.Lock(); h.rx = nil; h.mu.Unlock() }
func (h *fakeHal) TxFifoReset() { h.mu.Lock(); h.tx = nil; h.mu.Unlock() }
func (h *fakeHal) SetRTS(dir hal.Direction) {
	h.mu.Lock()
	h.dir = dir
	h.mu.Unlock()
}
func (h *fakeHal) InvertTxSignal(inverted bool)       {}
func (h *fakeHal) SetRxTimeoutThreshold(n int)         {}
func (h *fakeHal) SetRxFifoFullThreshold(n int)        {}
func (h *fakeHal) SetTxFifoEmptyThreshold(n int)       {}

func (h *fakeHal) deliver(b []byte) {
	h.mu.Lock()
	h.rx = append(h.rx, b...)
	h.mu.Unlock()
}
func (h *fakeHal) raise(m hal.IntMask) {
	h.mu.Lock()
	h.status |= m
	h.mu.Unlock()
}

// fakeTimer never fires on its own: Arm only records the callback and
// ignores the duration, and tests run the recorded callback via
// trigger().
type fakeTimer struct {
	mu   sync.Mutex
	fire func()
}

func (t *fakeTimer) Arm(d time.Duration, fire func()) {
	t.mu.Lock()
	t.fire = fire
	t.mu.Unlock()
}
func (t *fakeTimer) Stop() {
	t.mu.Lock()
	t.fire = nil
	t.mu.Unlock()
}
func (t *fakeTimer) trigger() {
	t.mu.Lock()
	fn := t.fire
	t.mu.Unlock()
	if fn != nil {
		fn()
	}
}

func newTestFramer() (*Framer, *fakeHal) {
	h := &fakeHal{}
	f := New(h, &fakeTimer{}, hal.DefaultBreakLen, hal.DefaultMabLen)
	return f, h
}

func TestReceiveDMXFrame(t *testing.T) {
	f, h := newTestFramer()
	done := make(chan struct{})
	var gotErr error
	var frame []byte
	go func() {
		_, frame, gotErr = f.Receive(time.Second)
		close(done)
	}()
	time.Sleep(10 * time.Millisecond)

	h.raise(hal.IntBreakDetected)
	f.HandleInterrupt()

	payload := append([]byte{hal.StartCodeDMX}, make([]byte, 10)...)
	h.deliver(payload)
	h.raise(hal.IntRxFifoFull)
	f.HandleInterrupt()

	h.raise(hal.IntBreakDetected)
	f.HandleInterrupt()

	<-done
	require.NoError(t, gotErr)
	assert.Equal(t, payload, frame)
}

func TestReceiveOverflow(t *testing.T) {
	f, h := newTestFramer()
	done := make(chan struct{})
	var gotErr error
	go func() {
		_, _, gotErr = f.Receive(time.Second)
		close(done)
	}()
	time.Sleep(10 * time.Millisecond)

	h.raise(hal.IntRxFifoOverflow)
	f.HandleInterrupt()

	<-done
	assert.Error(t, gotErr)
}

func TestReceiveTimeout(t *testing.T) {
	f, _ := newTestFramer()
	_, _, err := f.Receive(10 * time.Millisecond)
	assert.Error(t, err)
}

func TestHeadSizeInvariantHolds(t *testing.T) {
	f, h := newTestFramer()
	done := make(chan struct{})
	go func() {
		f.Receive(time.Second)
		close(done)
	}()
	time.Sleep(5 * time.Millisecond)
	h.raise(hal.IntBreakDetected)
	f.HandleInterrupt()
	for i := 0; i < 20; i++ {
		h.deliver([]byte{byte(i)})
		h.raise(hal.IntRxFifoFull)
		f.HandleInterrupt()
		f.mu.Lock()
		ok := f.head <= f.size && f.size <= hal.BufferSize
		f.mu.Unlock()
		require.True(t, ok)
	}
	h.raise(hal.IntBreakDetected)
	f.HandleInterrupt()
	<-done
}

func TestSendCompletesOnTxDone(t *testing.T) {
	f, h := newTestFramer()
	timer := &fakeTimer{}
	f.timer = timer

	done := make(chan error, 1)
	go func() {
		done <- f.Send([]byte{hal.StartCodeDMX, 1, 2, 3}, time.Second)
	}()
	time.Sleep(10 * time.Millisecond)

	timer.trigger() // break elapsed -> arms MAB
	time.Sleep(5 * time.Millisecond)
	timer.trigger() // MAB elapsed -> pushes first chunk, enables TX_DATA
	time.Sleep(5 * time.Millisecond)

	f.OnTxData()
	f.OnTxDone()

	err := <-done
	require.NoError(t, err)
	assert.Equal(t, []byte{hal.StartCodeDMX, 1, 2, 3}, h.tx)
}
