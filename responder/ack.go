// Copyright 2026 The DMX512 Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license
// that can be found in the LICENSE file.

package responder

import (
	"encoding/binary"

	"github.com/oclyke/dmx512/paramstore"
	"github.com/oclyke/dmx512/rdm"
	"github.com/sirupsen/logrus"
)

// responseHeader mirrors req's addressing fields back as a response:
// source and destination swap, the command class becomes its
// *_RESPONSE counterpart, and transaction/sub-device are echoed.
func (r *Responder) responseHeader(req rdm.Header, respCC rdm.CC) rdm.Header {
	return rdm.Header{
		DestUID:        req.SrcUID,
		SrcUID:         r.uid,
		TransactionNum: req.TransactionNum,
		MessageCount:   r.pendingCount(),
		SubDevice:      req.SubDevice,
		CC:             respCC,
		PID:            req.PID,
	}
}

// pendingCount reports how many queued notifications remain, clamped
// to a byte, for the response header's message_count field.
func (r *Responder) pendingCount() uint8 {
	n := r.store.QueueLen()
	if n > 255 {
		n = 255
	}
	return uint8(n)
}

func responseClass(cc rdm.CC) rdm.CC {
	switch cc {
	case rdm.CCGetCommand:
		return rdm.CCGetCommandResponse
	case rdm.CCSetCommand:
		return rdm.CCSetCommandResponse
	case rdm.CCDiscCommand:
		return rdm.CCDiscCommandResponse
	default:
		return cc
	}
}

// writeAck composes a standard ACK response (spec §4.5 "write_ack").
func (r *Responder) writeAck(req rdm.Header, pid rdm.PID, pdl []byte) []byte {
	h := r.responseHeader(req, responseClass(req.CC))
	h.PID = pid
	h.PDL = pdl
	h.PortOrResponse = uint8(rdm.ResponseTypeAck)
	buf, err := rdm.FormatHeader(h)
	if err != nil {
		r.log.WithError(err).Warn("responder: failed to format ack")
		return nil
	}
	return buf
}

// writeResponse turns a paramstore.Response into wire bytes according
// to its Kind.
func (r *Responder) writeResponse(req rdm.Header, resp paramstore.Response) []byte {
	switch resp.Kind {
	case paramstore.Ack:
		return r.writeAck(req, req.PID, resp.PDL)
	case paramstore.AckTimer:
		return r.writeAckTimer(req, resp.EstimateMs)
	case paramstore.Nack:
		return r.writeNack(req, resp.Reason)
	default:
		return r.writeNack(req, rdm.NRHardwareFault)
	}
}

// writeNack composes a NACK_REASON response (spec §4.5
// "write_nack_reason").
func (r *Responder) writeNack(req rdm.Header, reason rdm.NackReason) []byte {
	r.log.WithFields(logrus.Fields{"pid": req.PID, "reason": reason}).Warn("responder: nack")
	h := r.responseHeader(req, responseClass(req.CC))
	var pdl [2]byte
	binary.BigEndian.PutUint16(pdl[:], uint16(reason))
	h.PDL = pdl[:]
	h.PortOrResponse = uint8(rdm.ResponseTypeNackReason)
	buf, err := rdm.FormatHeader(h)
	if err != nil {
		r.log.WithError(err).Warn("responder: failed to format nack")
		return nil
	}
	return buf
}

// writeAckTimer composes an ACK_TIMER response carrying an estimated
// response delay in milliseconds (spec §4.5 "write_ack_timer").
func (r *Responder) writeAckTimer(req rdm.Header, estimateMs uint16) []byte {
	h := r.responseHeader(req, responseClass(req.CC))
	var pdl [2]byte
	binary.BigEndian.PutUint16(pdl[:], estimateMs)
	h.PDL = pdl[:]
	h.PortOrResponse = uint8(rdm.ResponseTypeAckTimer)
	buf, err := rdm.FormatHeader(h)
	if err != nil {
		r.log.WithError(err).Warn("responder: failed to format ack_timer")
		return nil
	}
	return buf
}

// writeQueuedResponse turns a popped handler's Response into the reply
// to a QUEUED_MESSAGE request, framed by the inner pid's own response
// kind. An ACK carries the popped pid in its PID field and the
// handler's PDL unchanged; ACK_TIMER and NACK replies keep the
// request's PID (QUEUED_MESSAGE).
func (r *Responder) writeQueuedResponse(req rdm.Header, pid rdm.PID, resp paramstore.Response) []byte {
	switch resp.Kind {
	case paramstore.Ack:
		return r.writeAck(req, pid, resp.PDL)
	case paramstore.AckTimer:
		return r.writeAckTimer(req, resp.EstimateMs)
	case paramstore.Nack:
		return r.writeNack(req, resp.Reason)
	default:
		return r.writeNack(req, rdm.NRHardwareFault)
	}
}

// writeMuteAck composes the 2-byte control-field reply to DISC_MUTE /
// DISC_UN_MUTE (spec §4.6): bit 0 of the first byte is the managed
// proxy flag (never set by this responder). Both bytes are always
// zero, and no binding device UID follows them.
func (r *Responder) writeMuteAck(req rdm.Header) []byte {
	h := r.responseHeader(req, rdm.CCDiscCommandResponse)
	h.PDL = []byte{0x00, 0x00}
	h.PortOrResponse = uint8(rdm.ResponseTypeAck)
	buf, err := rdm.FormatHeader(h)
	if err != nil {
		r.log.WithError(err).Warn("responder: failed to format mute ack")
		return nil
	}
	return buf
}

// handleDiscUniqueBranch implements spec §4.6: compare the device UID
// against the inclusive 12-byte range carried in the request PDL, and
// if in range and not muted, emit the unique DISC wire reply -- which
// has no standard header at all, so it bypasses writeAck entirely.
func (r *Responder) handleDiscUniqueBranch(h rdm.Header) []byte {
	if r.muted {
		return nil
	}
	if len(h.PDL) < 12 {
		return nil
	}
	lo := rdm.GetUID(h.PDL[0:6])
	hi := rdm.GetUID(h.PDL[6:12])
	if !r.uid.InRange(lo, hi) {
		return nil
	}
	return rdm.EncodeDiscResponse(r.uid)
}
