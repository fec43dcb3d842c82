// Copyright 2026 The DMX512 Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license
// that can be found in the LICENSE file.

package rdm

// PID is a 16-bit RDM Parameter ID.
type PID uint16

// Mandatory/built-in PIDs, spec §4.5.
const (
	PIDDiscUniqueBranch     PID = 0x0001
	PIDDiscMute             PID = 0x0002
	PIDDiscUnMute           PID = 0x0003
	PIDQueuedMessage        PID = 0x0020
	PIDStatusMessage        PID = 0x0030
	PIDSupportedParameters  PID = 0x0050
	PIDParameterDescription PID = 0x0051
	PIDDeviceInfo           PID = 0x0060
	PIDDeviceLabel          PID = 0x0082
	PIDSoftwareVersionLabel PID = 0x00C0
	PIDDMXStartAddress      PID = 0x00F0
	PIDIdentifyDevice       PID = 0x1000
)

// CC is an RDM command class.
type CC uint8

const (
	CCDiscCommand         CC = 0x10
	CCDiscCommandResponse CC = 0x11
	CCGetCommand          CC = 0x20
	CCGetCommandResponse  CC = 0x21
	CCSetCommand          CC = 0x30
	CCSetCommandResponse  CC = 0x31
)

// IsResponse reports whether cc is one of the *_RESPONSE classes.
func (cc CC) IsResponse() bool {
	return cc == CCDiscCommandResponse || cc == CCGetCommandResponse || cc == CCSetCommandResponse
}

// PidCC is the set of command classes a PID accepts, spec §3
// ParameterDefinition.
type PidCC uint8

const (
	PidCCGet PidCC = 1 << iota
	PidCCSet
	PidCCDisc
)

const PidCCGetSet = PidCCGet | PidCCSet

// Allows reports whether cc is permitted by pcc.
func (pcc PidCC) Allows(cc CC) bool {
	switch cc {
	case CCGetCommand:
		return pcc&PidCCGet != 0
	case CCSetCommand:
		return pcc&PidCCSet != 0
	case CCDiscCommand:
		return pcc&PidCCDisc != 0
	default:
		return false
	}
}

// ResponseType is the type field of an RDM response.
type ResponseType uint8

const (
	ResponseTypeAck        ResponseType = 0x00
	ResponseTypeAckTimer   ResponseType = 0x01
	ResponseTypeNackReason ResponseType = 0x02
	ResponseTypeAckOverflow ResponseType = 0x03
)

// NackReason is a 2-byte NACK reason code, spec §7.
type NackReason uint16

const (
	NRUnknownPid               NackReason = 0x0000
	NRFormatError               NackReason = 0x0001
	NRHardwareFault              NackReason = 0x0002
	NRUnsupportedCommandClass   NackReason = 0x0003
	NRDataOutOfRange            NackReason = 0x0004
	NRBufferFull                NackReason = 0x0005
	NRPacketSizeUnsupported     NackReason = 0x0006
	NRSubDeviceOutOfRange       NackReason = 0x0007
	NRProxyBufferFull           NackReason = 0x0008
)
