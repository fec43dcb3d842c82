// Copyright 2026 The DMX512 Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license
// that can be found in the LICENSE file.

package rdm

import (
	"encoding/binary"
	"strconv"
)

// Kind identifies one field of a compiled Format.
type Kind int

const (
	KindByte Kind = iota // "b": 1 byte
	KindWord             // "w": 2 bytes, big-endian
	KindDWord            // "d": 4 bytes, big-endian
	KindUID              // "u": 6 bytes, big-endian on wire
	KindASCII            // "a": variable-length ASCII, bounded by what remains
	KindLiteral          // "x<hex><hex>": a fixed byte inserted unconditionally
)

// Field is one compiled token of a Format.
type Field struct {
	Kind    Kind
	Literal byte // valid when Kind == KindLiteral
	// Last marks the trailing field (DSL token "$"): for KindASCII it
	// means "consume the remaining bytes", still capped at 32.
	Last bool
}

// Format is a compiled PDL layout DSL program, spec §4.3.
//
// Grammar: a sequence of tokens, each one of "b", "w", "d", "u", "a",
// "x<hex><hex>", or a trailing "$" anchor. Compile once per
// ParameterDefinition and reuse; it holds no state of its own.
type Format []Field

const maxASCIIField = 32

// Compile parses a format-string token sequence. Tokens are whitespace
// free and concatenated (e.g. "x01x00wwdwbb$"); Compile scans
// greedily left to right.
func Compile(s string) (Format, error) {
	var f Format
	for i := 0; i < len(s); {
		switch s[i] {
		case 'b':
			f = append(f, Field{Kind: KindByte})
			i++
		case 'w':
			f = append(f, Field{Kind: KindWord})
			i++
		case 'd':
			f = append(f, Field{Kind: KindDWord})
			i++
		case 'u':
			f = append(f, Field{Kind: KindUID})
			i++
		case 'a':
			f = append(f, Field{Kind: KindASCII})
			i++
		case 'x':
			if i+3 > len(s) {
				return nil, ErrFrame("format: truncated literal")
			}
			v, err := strconv.ParseUint(s[i+1:i+3], 16, 8)
			if err != nil {
				return nil, ErrFrame("format: bad literal hex digits")
			}
			f = append(f, Field{Kind: KindLiteral, Literal: byte(v)})
			i += 3
		case '$':
			if len(f) > 0 {
				f[len(f)-1].Last = true
			}
			i++
		default:
			return nil, ErrFrame("format: unknown token '" + string(s[i]) + "'")
		}
	}
	return f, nil
}

// Size returns the fixed portion of the format's encoded size (excluding
// any variable-length ASCII field's actual content length).
func (f Format) Size() int {
	n := 0
	for _, fld := range f {
		switch fld.Kind {
		case KindByte, KindLiteral:
			n++
		case KindWord:
			n += 2
		case KindDWord:
			n += 4
		case KindUID:
			n += 6
		}
	}
	return n
}

// ReadValue is one decoded field value, yielded in format order.
type ReadValue struct {
	Kind  Kind
	Byte  byte
	Word  uint16
	DWord uint32
	UID   UID
	ASCII string
}

// Read decodes pdl according to f, stopping at the first Last field
// (typically the trailing "a$" or a fixed-width field with no ASCII
// tail). It returns an error if pdl is shorter than the format's fixed
// fields require.
func (f Format) Read(pdl []byte) ([]ReadValue, error) {
	out := make([]ReadValue, 0, len(f))
	pos := 0
	for i, fld := range f {
		switch fld.Kind {
		case KindByte:
			if pos+1 > len(pdl) {
				return nil, ErrFrame("format: pdl too short for byte field")
			}
			out = append(out, ReadValue{Kind: fld.Kind, Byte: pdl[pos]})
			pos++
		case KindWord:
			if pos+2 > len(pdl) {
				return nil, ErrFrame("format: pdl too short for word field")
			}
			out = append(out, ReadValue{Kind: fld.Kind, Word: binary.BigEndian.Uint16(pdl[pos : pos+2])})
			pos += 2
		case KindDWord:
			if pos+4 > len(pdl) {
				return nil, ErrFrame("format: pdl too short for dword field")
			}
			out = append(out, ReadValue{Kind: fld.Kind, DWord: binary.BigEndian.Uint32(pdl[pos : pos+4])})
			pos += 4
		case KindUID:
			if pos+6 > len(pdl) {
				return nil, ErrFrame("format: pdl too short for uid field")
			}
			out = append(out, ReadValue{Kind: fld.Kind, UID: GetUID(pdl[pos : pos+6])})
			pos += 6
		case KindLiteral:
			if pos+1 > len(pdl) || pdl[pos] != fld.Literal {
				return nil, ErrFrame("format: literal mismatch")
			}
			out = append(out, ReadValue{Kind: fld.Kind, Byte: fld.Literal})
			pos++
		case KindASCII:
			n := len(pdl) - pos
			if !fld.Last && i != len(f)-1 {
				// A non-trailing ASCII field has no defined bound in
				// this DSL; treat the rest of the format as following
				// immediately, which only makes sense if it is last.
				return nil, ErrFrame("format: ascii field must be last")
			}
			if n > maxASCIIField {
				n = maxASCIIField
			}
			out = append(out, ReadValue{Kind: fld.Kind, ASCII: string(pdl[pos : pos+n])})
			pos += n
		}
		if fld.Last {
			break
		}
	}
	return out, nil
}

// Write encodes values according to f into a freshly allocated PDL
// buffer. len(values) must equal len(f) (callers build the Format and
// the argument list together, so a mismatch is a programming error, not
// a runtime data error, hence the panic rather than an error return).
func (f Format) Write(values []ReadValue) []byte {
	if len(values) != len(f) {
		panic("rdm: format.Write: value count does not match format")
	}
	buf := make([]byte, 0, f.Size())
	for i, fld := range f {
		v := values[i]
		switch fld.Kind {
		case KindByte:
			buf = append(buf, v.Byte)
		case KindWord:
			var tmp [2]byte
			binary.BigEndian.PutUint16(tmp[:], v.Word)
			buf = append(buf, tmp[:]...)
		case KindDWord:
			var tmp [4]byte
			binary.BigEndian.PutUint32(tmp[:], v.DWord)
			buf = append(buf, tmp[:]...)
		case KindUID:
			var tmp [6]byte
			PutUID(tmp[:], v.UID)
			buf = append(buf, tmp[:]...)
		case KindLiteral:
			buf = append(buf, fld.Literal)
		case KindASCII:
			s := v.ASCII
			if len(s) > maxASCIIField {
				s = s[:maxASCIIField]
			}
			buf = append(buf, s...)
		}
	}
	return buf
}
