// Copyright 2026 The DMX512 Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license
// that can be found in the LICENSE file.

package halserial

import (
	"testing"

	"github.com/oclyke/dmx512/hal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFeedPlainDataPassesThrough(t *testing.T) {
	u := &UartHal{}
	u.feed([]byte{0x00, 0x01, 0x02, 0x03})
	assert.Equal(t, []byte{0x00, 0x01, 0x02, 0x03}, u.rx)
	assert.Zero(t, u.status&hal.IntBreakDetected)
}

func TestFeedBreakMarkerRaisesIntBreakDetected(t *testing.T) {
	u := &UartHal{}
	u.feed([]byte{0x01, 0xFF, 0x00, 0x00, 0x02})
	assert.Equal(t, []byte{0x01, 0x02}, u.rx)
	assert.NotZero(t, u.status&hal.IntBreakDetected)
}

func TestFeedEscapedLiteralFF(t *testing.T) {
	u := &UartHal{}
	u.feed([]byte{0x01, 0xFF, 0xFF, 0x02})
	assert.Equal(t, []byte{0x01, 0xFF, 0x02}, u.rx)
	assert.Zero(t, u.status&hal.IntBreakDetected)
}

func TestFeedFrameErrorMarkerKeepsByte(t *testing.T) {
	u := &UartHal{}
	u.feed([]byte{0xFF, 0x00, 0x7E})
	assert.Equal(t, []byte{0x7E}, u.rx)
	assert.NotZero(t, u.status&hal.IntFrameError)
}

func TestFeedBreakMarkerSplitAcrossReads(t *testing.T) {
	u := &UartHal{}
	u.feed([]byte{0x01, 0xFF})
	require.Equal(t, []byte{0xFF}, u.pending)
	assert.Equal(t, []byte{0x01}, u.rx)

	u.feed([]byte{0x00})
	require.Equal(t, []byte{0xFF, 0x00}, u.pending)

	u.feed([]byte{0x00, 0x02})
	assert.Equal(t, []byte{0x01, 0x02}, u.rx)
	assert.NotZero(t, u.status&hal.IntBreakDetected)
}

func TestFeedSetsRxFifoFull(t *testing.T) {
	u := &UartHal{}
	u.feed([]byte{0x01})
	assert.NotZero(t, u.status&hal.IntRxFifoFull)
}
