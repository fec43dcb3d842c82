// Copyright 2026 The DMX512 Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license
// that can be found in the LICENSE file.

package rdm

import (
	"testing"

	"github.com/oclyke/dmx512/hal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeaderRoundTrip(t *testing.T) {
	h := Header{
		DestUID:        NewUID(0x4850, 1),
		SrcUID:         NewUID(0x1234, 2),
		TransactionNum: 7,
		PortOrResponse: 0,
		MessageCount:   0,
		SubDevice:      0,
		CC:             CCGetCommand,
		PID:            PIDDeviceInfo,
		PDL:            []byte{0xDE, 0xAD, 0xBE, 0xEF},
	}
	buf, err := FormatHeader(h)
	require.NoError(t, err)

	got, err := ParseHeader(buf)
	require.NoError(t, err)
	assert.True(t, got.ChecksumOK)
	assert.Equal(t, h.DestUID, got.DestUID)
	assert.Equal(t, h.SrcUID, got.SrcUID)
	assert.Equal(t, h.TransactionNum, got.TransactionNum)
	assert.Equal(t, h.CC, got.CC)
	assert.Equal(t, h.PID, got.PID)
	assert.Equal(t, h.PDL, got.PDL)
}

func TestHeaderZeroPDL(t *testing.T) {
	h := Header{DestUID: NewUID(1, 1), SrcUID: NewUID(2, 2), CC: CCGetCommand, PID: PIDDeviceInfo}
	buf, err := FormatHeader(h)
	require.NoError(t, err)
	assert.Len(t, buf, HeaderLen+2)

	got, err := ParseHeader(buf)
	require.NoError(t, err)
	assert.True(t, got.ChecksumOK)
	assert.Empty(t, got.PDL)
}

func TestHeaderCorruptChecksumDetected(t *testing.T) {
	h := Header{DestUID: NewUID(1, 1), SrcUID: NewUID(2, 2), CC: CCGetCommand, PID: PIDDeviceInfo}
	buf, err := FormatHeader(h)
	require.NoError(t, err)
	buf[len(buf)-1] ^= 0xFF

	got, err := ParseHeader(buf)
	require.NoError(t, err)
	assert.False(t, got.ChecksumOK)
}

func TestHeaderTooShort(t *testing.T) {
	_, err := ParseHeader([]byte{StartCodeRDM, 0x01})
	assert.Error(t, err)
}

func TestDiscRoundTrip(t *testing.T) {
	uid := NewUID(0x4850, 0x1)
	wire := EncodeDiscResponse(uid)
	assert.Len(t, wire, 24)
	for i := 0; i < 7; i++ {
		assert.Equal(t, byte(0xFE), wire[i])
	}
	assert.Equal(t, byte(0xAA), wire[7])

	got, ok, err := DecodeDiscResponse(wire)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, uid, got)
}

func TestDiscPreambleBoundary(t *testing.T) {
	uid := NewUID(1, 2)
	full := EncodeDiscResponse(uid)
	body := full[8:] // strip all 7 preamble bytes + delimiter

	zero := append([]byte{0xAA}, body...)
	_, ok, err := DecodeDiscResponse(zero)
	require.NoError(t, err)
	assert.True(t, ok)

	seven := full
	_, ok, err = DecodeDiscResponse(seven)
	require.NoError(t, err)
	assert.True(t, ok)

	eight := append([]byte{0xFE, 0xFE, 0xFE, 0xFE, 0xFE, 0xFE, 0xFE, 0xFE}, body...)
	_, _, err = DecodeDiscResponse(eight)
	assert.Error(t, err)
}

func TestStartCodeValidation(t *testing.T) {
	reject := []byte{0x92, 0xA9, 0xAB, 0xCD, 0xF0, 0xF7}
	for _, sc := range reject {
		assert.False(t, hal.StartCodeIsValid(sc), "0x%02X should be rejected", sc)
	}
	accept := []byte{0x91, 0xAA, 0xCE}
	for _, sc := range accept {
		assert.True(t, hal.StartCodeIsValid(sc), "0x%02X should be accepted", sc)
	}
}

func TestFormatCompileReadWrite(t *testing.T) {
	f, err := Compile("x01x00wwdwbb")
	require.NoError(t, err)
	assert.Equal(t, 14, f.Size())

	values := []ReadValue{
		{Kind: KindLiteral, Byte: 0x01},
		{Kind: KindLiteral, Byte: 0x00},
		{Kind: KindWord, Word: 0x0100},
		{Kind: KindWord, Word: 0x0101},
		{Kind: KindDWord, DWord: 0x01000000},
		{Kind: KindWord, Word: 1},
		{Kind: KindByte, Byte: 1},
		{Kind: KindByte, Byte: 1},
	}
	buf := f.Write(values)
	assert.Len(t, buf, 14)

	got, err := f.Read(buf)
	require.NoError(t, err)
	require.Len(t, got, len(values))
	assert.Equal(t, uint16(0x0100), got[2].Word)
}

func TestFormatASCIITrailing(t *testing.T) {
	f, err := Compile("a$")
	require.NoError(t, err)
	got, err := f.Read([]byte("Hello"))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Hello", got[0].ASCII)
}

func TestFormatPDLTooShort(t *testing.T) {
	f, err := Compile("wd")
	require.NoError(t, err)
	_, err = f.Read([]byte{0x00})
	assert.Error(t, err)
}
