// Copyright 2026 The DMX512 Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license
// that can be found in the LICENSE file.

package rdm

import "encoding/binary"

// HeaderLen is the fixed-size prefix shared by every standard RDM
// packet, spec §3 "RDM header".
const HeaderLen = 24

// MaxPDL is the largest PDL a standard RDM packet can carry.
const MaxPDL = 231

// StartCodeRDM is the start code of every standard RDM packet.
const StartCodeRDM = 0xCC

const subStartCode = 0x01

// Header is the parsed 24-byte RDM prefix plus its PDL payload.
type Header struct {
	DestUID          UID
	SrcUID           UID
	TransactionNum   uint8
	PortOrResponse   uint8
	MessageCount     uint8
	SubDevice        uint16
	CC               CC
	PID              PID
	PDL              []byte // borrowed from the input buffer on Parse
	ChecksumOK       bool
}

// ParseHeader parses a standard RDM packet out of buf (a full received
// frame, start code through the trailing checksum). It never returns an
// error for a checksum mismatch: spec §4.3 requires checksum failures to
// surface only via Header.ChecksumOK, discarded by the caller before
// dispatch, never as a thrown error. A malformed (too-short, bad start
// code) buffer still returns an error since the header fields themselves
// cannot be trusted.
func ParseHeader(buf []byte) (Header, error) {
	var h Header
	if len(buf) < HeaderLen+2 {
		return h, ErrFrame("buffer shorter than a minimal RDM packet")
	}
	if buf[0] != StartCodeRDM {
		return h, ErrFrame("bad start code")
	}
	if buf[1] != subStartCode {
		return h, ErrFrame("bad sub-start code")
	}
	msgLen := int(buf[2])
	if msgLen < HeaderLen || msgLen+2 > len(buf) {
		return h, ErrFrame("message length out of bounds")
	}
	pdl := int(buf[23])
	if HeaderLen+pdl > msgLen {
		return h, ErrFrame("pdl exceeds message length")
	}

	sum := additiveChecksum(buf[:msgLen])
	wire := binary.BigEndian.Uint16(buf[msgLen : msgLen+2])
	h.ChecksumOK = sum == wire

	h.DestUID = GetUID(buf[3:9])
	h.SrcUID = GetUID(buf[9:15])
	h.TransactionNum = buf[15]
	h.PortOrResponse = buf[16]
	h.MessageCount = buf[17]
	h.SubDevice = binary.BigEndian.Uint16(buf[18:20])
	h.CC = CC(buf[20])
	h.PID = PID(binary.BigEndian.Uint16(buf[21:23]))
	h.PDL = buf[HeaderLen : HeaderLen+pdl]
	return h, nil
}

// FormatHeader writes the 24-byte header for h, appends h.PDL (which
// must be <= MaxPDL bytes), and appends the big-endian additive
// checksum. It is the symmetric inverse of ParseHeader's field layout.
func FormatHeader(h Header) ([]byte, error) {
	if len(h.PDL) > MaxPDL {
		return nil, ErrFrame("pdl too large")
	}
	msgLen := HeaderLen + len(h.PDL)
	buf := make([]byte, msgLen+2)
	buf[0] = StartCodeRDM
	buf[1] = subStartCode
	buf[2] = byte(msgLen)
	PutUID(buf[3:9], h.DestUID)
	PutUID(buf[9:15], h.SrcUID)
	buf[15] = h.TransactionNum
	buf[16] = h.PortOrResponse
	buf[17] = h.MessageCount
	binary.BigEndian.PutUint16(buf[18:20], h.SubDevice)
	buf[20] = byte(h.CC)
	binary.BigEndian.PutUint16(buf[21:23], uint16(h.PID))
	buf[23] = byte(len(h.PDL))
	copy(buf[HeaderLen:msgLen], h.PDL)
	binary.BigEndian.PutUint16(buf[msgLen:msgLen+2], additiveChecksum(buf[:msgLen]))
	return buf, nil
}

func additiveChecksum(b []byte) uint16 {
	var sum uint16
	for _, c := range b {
		sum += uint16(c)
	}
	return sum
}

// FrameError reports a malformed RDM packet that could not be parsed at
// all (as distinct from a well-formed packet with a bad checksum, which
// is reported via Header.ChecksumOK).
type FrameError string

func (e FrameError) Error() string { return "rdm: " + string(e) }

// ErrFrame constructs a FrameError.
func ErrFrame(msg string) error { return FrameError(msg) }
