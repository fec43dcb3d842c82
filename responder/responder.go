// Copyright 2026 The DMX512 Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license
// that can be found in the LICENSE file.

// Package responder dispatches parsed RDM requests to registered
// handlers and composes ACK/NACK/ACK_TIMER responses (spec §4.5).
//
// A Responder is touched only from task context: it is handed whole
// frames already pulled out of the Framer, never interrupt state.
package responder

import (
	"github.com/oclyke/dmx512/paramstore"
	"github.com/oclyke/dmx512/rdm"
	"github.com/sirupsen/logrus"
)

// ProductInfo is the static identity a Responder advertises through
// DEVICE_INFO and SOFTWARE_VERSION_LABEL (spec §4.5 "synthesized at
// call time from ... stored product info").
type ProductInfo struct {
	ModelID            uint16
	ProductCategory    uint16
	SoftwareVersionID  uint32
	SoftwareVersionLabel string
	Footprint          uint16
	PersonalityCount   uint8
	SubDeviceCount     uint16
	SensorCount        uint8
}

// Responder owns one device's identity, parameter store and mute
// state, and dispatches standard RDM packets against them.
type Responder struct {
	store *paramstore.Store
	info  ProductInfo
	log   *logrus.Entry

	uid   rdm.UID
	muted bool

	personalityCurrent uint8
}

// New constructs a Responder for uid, wired to store, and registers
// the mandatory built-in PIDs (spec §4.5 "Built-in PIDs"). log is the
// single *logrus.Entry threaded down from the owning Driver (spec's
// Logging section); a nil log defaults to the standard logger with no
// extra fields.
func New(uid rdm.UID, store *paramstore.Store, info ProductInfo, log *logrus.Entry) *Responder {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	r := &Responder{store: store, info: info, log: log, uid: uid, personalityCurrent: 1}
	r.registerBuiltins()
	return r
}

// UID returns the device's RDM UID.
func (r *Responder) UID() rdm.UID { return r.uid }

// Muted reports the DISC_MUTE state.
func (r *Responder) Muted() bool { return r.muted }

// EnableDeviceLabel registers the optional DEVICE_LABEL PID (spec
// §4.5 "DEVICE_LABEL is optional and registered on demand"), seeded
// with init as its initial value.
func (r *Responder) EnableDeviceLabel(subDevice uint16, class paramstore.Class, init string) {
	r.registerDeviceLabel(subDevice, class, init)
}

// Dispatch processes one parsed RDM request addressed to this device
// (or broadcast) and returns the wire bytes of the response, or nil if
// no response should be sent (broadcast GET/SET requests, or a checksum
// failure the caller should have already filtered -- spec §8 scenario
// 6 "Corrupt checksum ... dropped silently"). Discovery-class requests
// (DISC_UNIQUE_BRANCH, DISC_MUTE, DISC_UN_MUTE) are answered whether
// they are broadcast or addressed.
//
// Dispatch implements spec §4.5 steps 1-5.
func (r *Responder) Dispatch(h rdm.Header) []byte {
	if !h.ChecksumOK {
		return nil
	}
	if h.DestUID != r.uid && !h.DestUID.IsBroadcast() {
		return nil
	}
	broadcast := h.DestUID.IsBroadcast()
	r.log.WithFields(logrus.Fields{"cc": h.CC, "pid": h.PID, "sub_device": h.SubDevice}).Debug("responder: dispatch")

	if h.PID == rdm.PIDQueuedMessage && h.MessageCount > 0 {
		return r.handleQueuedMessage(h, broadcast)
	}

	def := r.store.Definition(h.SubDevice, h.PID)
	if def == nil {
		if broadcast {
			return nil
		}
		return r.writeNack(h, rdm.NRUnknownPid)
	}
	if !def.CC.Allows(h.CC) {
		if broadcast {
			return nil
		}
		return r.writeNack(h, rdm.NRUnsupportedCommandClass)
	}

	var handler paramstore.Handler
	switch h.CC {
	case rdm.CCGetCommand:
		handler = def.Get
	case rdm.CCSetCommand:
		handler = def.Set
	case rdm.CCDiscCommand:
		return r.dispatchDisc(h)
	default:
		if broadcast {
			return nil
		}
		return r.writeNack(h, rdm.NRUnsupportedCommandClass)
	}
	if handler == nil {
		if broadcast {
			return nil
		}
		return r.writeNack(h, rdm.NRUnsupportedCommandClass)
	}

	resp := handler.Handle(paramstore.Request{Header: h, SubDevice: h.SubDevice, PID: h.PID})

	var out []byte
	if !broadcast {
		out = r.writeResponse(h, resp)
	}
	if resp.Kind != paramstore.Nack {
		r.store.FireCallback(h.SubDevice, h.PID)
	}
	return out
}

func (r *Responder) dispatchDisc(h rdm.Header) []byte {
	switch h.PID {
	case rdm.PIDDiscUniqueBranch:
		return r.handleDiscUniqueBranch(h)
	case rdm.PIDDiscMute:
		r.muted = true
		return r.writeMuteAck(h)
	case rdm.PIDDiscUnMute:
		r.muted = false
		return r.writeMuteAck(h)
	default:
		return nil
	}
}

// handleQueuedMessage implements spec §4.5 step 3 and resolves Open
// Question 1 (spec §9): the popped PID is looked up at pop time, not
// at push time. If the entry backing a popped PID has since been
// removed, it is silently skipped and the next pending PID (if any)
// is tried; if the queue drains without yielding a deliverable PID,
// an empty STATUS_MESSAGE ACK is returned instead of NACKing the
// QUEUED_MESSAGE request itself.
func (r *Responder) handleQueuedMessage(h rdm.Header, broadcast bool) []byte {
	for {
		pid, ok := r.store.QueuePop()
		if !ok {
			if broadcast {
				return nil
			}
			return r.writeAck(h, rdm.PIDStatusMessage, nil)
		}
		def := r.store.Definition(h.SubDevice, pid)
		if def == nil || def.Get == nil {
			continue
		}
		resp := def.Get.Handle(paramstore.Request{Header: h, SubDevice: h.SubDevice, PID: pid})
		if broadcast {
			return nil
		}
		return r.writeQueuedResponse(h, pid, resp)
	}
}
