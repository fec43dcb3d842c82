// Copyright 2026 The DMX512 Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license
// that can be found in the LICENSE file.

package rdm

// DISC_UNIQUE_BRANCH has no start code at the RDM layer and uses a
// peculiar interleaved wire encoding (spec §4.3, §6). Each source byte B
// becomes two on-wire bytes, (B|0xAA) then (B|0x55); the decoder masks
// reciprocally. There is no framing length prefix: the preamble length
// is variable (0-7 bytes of 0xFE) followed by a single 0xAA delimiter.

const (
	discPreambleByte  = 0xFE
	discDelimiterByte = 0xAA
	maxDiscPreamble   = 7
	// interleaved body: 12 bytes of UID + 4 bytes of checksum = 16.
	discBodyLen = 16
)

// EncodeDiscResponse renders the maximal-preamble DISC_UNIQUE_BRANCH
// reply for uid: 7x 0xFE, one 0xAA delimiter, 12 interleaved UID bytes,
// 4 interleaved checksum bytes -- 24 bytes total.
func EncodeDiscResponse(uid UID) []byte {
	out := make([]byte, maxDiscPreamble+1+discBodyLen)
	for i := 0; i < maxDiscPreamble; i++ {
		out[i] = discPreambleByte
	}
	out[maxDiscPreamble] = discDelimiterByte
	body := out[maxDiscPreamble+1:]

	var src [6]byte
	PutUID(src[:], uid)
	var checksum uint16
	for i, b := range src {
		interleave(body[2*i:2*i+2], b)
		checksum += uint16(b) + 0xFF
	}
	var csBytes [2]byte
	csBytes[0] = byte(checksum >> 8)
	csBytes[1] = byte(checksum)
	for i, b := range csBytes {
		interleave(body[12+2*i:12+2*i+2], b)
	}
	return out
}

func interleave(dst []byte, b byte) {
	dst[0] = b | 0xAA
	dst[1] = b | 0x55
}

func deinterleave(src []byte) byte {
	return src[0]&0x55 | src[1]&0xAA
}

// DecodeDiscResponse locates the preamble/delimiter, decodes the
// interleaved UID and checksum, and reports whether the embedded
// checksum matches. It accepts 0-7 preamble bytes before the delimiter;
// it rejects input with no delimiter in the first 8 bytes, or with fewer
// than preambleLen+17 total bytes.
func DecodeDiscResponse(buf []byte) (uid UID, checksumOK bool, err error) {
	scan := buf
	if len(scan) > maxDiscPreamble+1 {
		scan = scan[:maxDiscPreamble+1]
	}
	delim := -1
	for i, b := range scan {
		if b == discDelimiterByte {
			delim = i
			break
		}
	}
	if delim < 0 {
		return 0, false, ErrFrame("disc response: no delimiter in first 8 bytes")
	}
	if len(buf) < delim+1+discBodyLen {
		return 0, false, ErrFrame("disc response: too short")
	}
	body := buf[delim+1 : delim+1+discBodyLen]

	var src [6]byte
	for i := range src {
		src[i] = deinterleave(body[2*i : 2*i+2])
	}
	uid = GetUID(src[:])

	wireCS := uint16(deinterleave(body[12:14]))<<8 | uint16(deinterleave(body[14:16]))
	var computed uint16
	for _, b := range src {
		computed += uint16(b) + 0xFF
	}
	return uid, computed == wireCS, nil
}
