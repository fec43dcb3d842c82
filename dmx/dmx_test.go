// Copyright 2026 The DMX512 Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license
// that can be found in the LICENSE file.

package dmx

import (
	"sync"
	"testing"
	"time"

	"github.com/oclyke/dmx512/hal"
	"github.com/oclyke/dmx512/rdm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeHal struct {
	mu      sync.Mutex
	enabled hal.IntMask
	rx      []byte
	tx      []byte
}

func (h *fakeHal) Configure(baud int) error { return nil }
func (h *fakeHal) GetInterruptStatus() hal.IntMask {
	return 0
}
func (h *fakeHal) EnableInterrupt(mask hal.IntMask)  { h.enabled |= mask }
func (h *fakeHal) DisableInterrupt(mask hal.IntMask) { h.enabled &^= mask }
func (h *fakeHal) ClearInterrupt(mask hal.IntMask)   {}
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
func (h *fakeHal) RxFifoReset()                  { h.mu.Lock(); h.rx = nil; h.mu.Unlock() }
func (h *fakeHal) TxFifoReset()                  { h.mu.Lock(); h.tx = nil; h.mu.Unlock() }
func (h *fakeHal) SetRTS(dir hal.Direction)      {}
func (h *fakeHal) InvertTxSignal(inverted bool)  {}
func (h *fakeHal) SetRxTimeoutThreshold(n int)   {}
func (h *fakeHal) SetRxFifoFullThreshold(n int)  {}
func (h *fakeHal) SetTxFifoEmptyThreshold(n int) {}

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

func TestInstallRejectsBadBaud(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Timer = &fakeTimer{}
	cfg.BaudRate = 1000
	_, err := Install(0, &fakeHal{}, cfg, rdm.NewUID(1, 1))
	assert.Error(t, err)
}

func TestInstallRejectsPortOutOfRange(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Timer = &fakeTimer{}
	_, err := Install(hal.MaxPorts, &fakeHal{}, cfg, rdm.NewUID(1, 1))
	assert.Error(t, err)
}

func TestInstallUninstallRoundTrip(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Timer = &fakeTimer{}
	d, err := Install(1, &fakeHal{}, cfg, rdm.NewUID(1, 1))
	require.NoError(t, err)
	require.NotNil(t, d)

	_, ok := Port(1)
	assert.True(t, ok)

	_, err = Install(1, &fakeHal{}, cfg, rdm.NewUID(1, 2))
	assert.ErrorIs(t, err, errAlreadyInstalled)

	require.NoError(t, Uninstall(1))
	_, ok = Port(1)
	assert.False(t, ok)
}

func TestUninstallNotInstalled(t *testing.T) {
	err := Uninstall(2)
	assert.ErrorIs(t, err, rdm.ErrNotInstalled)
}
