// Copyright 2026 The DMX512 Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license
// that can be found in the LICENSE file.

package responder

import (
	"encoding/binary"

	"github.com/oclyke/dmx512/paramstore"
	"github.com/oclyke/dmx512/rdm"
)

// builtinPIDs are auto-registered at construction time (spec §4.5
// "Built-in PIDs that must be auto-registered during install").
// DEVICE_LABEL is deliberately absent here; it is optional and
// registered on demand via EnableDeviceLabel.
var builtinPIDs = []rdm.PID{
	rdm.PIDSupportedParameters,
	rdm.PIDParameterDescription,
	rdm.PIDDeviceInfo,
	rdm.PIDSoftwareVersionLabel,
	rdm.PIDDMXStartAddress,
	rdm.PIDIdentifyDevice,
	rdm.PIDDiscUniqueBranch,
	rdm.PIDDiscMute,
	rdm.PIDDiscUnMute,
}

const rootSubDevice = 0x0000

// mustCompile panics on a bad literal format string; every call site
// below passes a constant, so a failure here is a programming error
// caught the first time registerBuiltins runs, never a runtime data
// error (mirrors Format.Write's own panic convention).
func mustCompile(s string) rdm.Format {
	f, err := rdm.Compile(s)
	if err != nil {
		panic("responder: bad builtin format " + s + ": " + err.Error())
	}
	return f
}

var (
	dmxStartAddressFormat = mustCompile("w")
	identifyDeviceFormat  = mustCompile("b")
	deviceLabelFormat     = mustCompile("a$")
)

func (r *Responder) registerBuiltins() {
	r.store.AddParameter(rootSubDevice, rdm.PIDDMXStartAddress, paramstore.Dynamic, []byte{0, 1}, 2)
	r.store.DefinitionSet(rootSubDevice, rdm.PIDDMXStartAddress, &paramstore.Definition{
		PID:            rdm.PIDDMXStartAddress,
		CC:             rdm.PidCCGetSet,
		Get:            paramstore.HandlerFunc(r.getDMXStartAddress),
		Set:            paramstore.HandlerFunc(r.setDMXStartAddress),
		RequestFormat:  dmxStartAddressFormat,
		ResponseFormat: dmxStartAddressFormat,
	})

	r.store.AddParameter(rootSubDevice, rdm.PIDIdentifyDevice, paramstore.Dynamic, []byte{0}, 1)
	r.store.DefinitionSet(rootSubDevice, rdm.PIDIdentifyDevice, &paramstore.Definition{
		PID:            rdm.PIDIdentifyDevice,
		CC:             rdm.PidCCGetSet,
		Get:            paramstore.HandlerFunc(r.getIdentifyDevice),
		Set:            paramstore.HandlerFunc(r.setIdentifyDevice),
		RequestFormat:  identifyDeviceFormat,
		ResponseFormat: identifyDeviceFormat,
	})

	for _, def := range []*paramstore.Definition{
		{PID: rdm.PIDSupportedParameters, CC: rdm.PidCCGet, Get: paramstore.HandlerFunc(r.getSupportedParameters)},
		{PID: rdm.PIDParameterDescription, CC: rdm.PidCCGet, Get: paramstore.HandlerFunc(r.getParameterDescription)},
		{PID: rdm.PIDDeviceInfo, CC: rdm.PidCCGet, Get: paramstore.HandlerFunc(r.getDeviceInfo)},
		{PID: rdm.PIDSoftwareVersionLabel, CC: rdm.PidCCGet, Get: paramstore.HandlerFunc(r.getSoftwareVersionLabel)},
		{PID: rdm.PIDDiscUniqueBranch, CC: rdm.PidCCDisc},
		{PID: rdm.PIDDiscMute, CC: rdm.PidCCDisc},
		{PID: rdm.PIDDiscUnMute, CC: rdm.PidCCDisc},
	} {
		r.store.AddParameter(rootSubDevice, def.PID, paramstore.Static, nil, 0)
		r.store.DefinitionSet(rootSubDevice, def.PID, def)
	}
}

// registerDeviceLabel backs EnableDeviceLabel (spec §4.5 "DEVICE_LABEL
// is optional and registered on demand").
func (r *Responder) registerDeviceLabel(subDevice uint16, class paramstore.Class, init string) {
	v := []byte(init)
	if len(v) > 32 {
		v = v[:32]
	}
	r.store.AddParameter(subDevice, rdm.PIDDeviceLabel, class, v, 32)
	r.store.DefinitionSet(subDevice, rdm.PIDDeviceLabel, &paramstore.Definition{
		PID:            rdm.PIDDeviceLabel,
		CC:             rdm.PidCCGetSet,
		Get:            paramstore.HandlerFunc(r.getDeviceLabel),
		Set:            paramstore.HandlerFunc(r.setDeviceLabel),
		RequestFormat:  deviceLabelFormat,
		ResponseFormat: deviceLabelFormat,
	})
}

func (r *Responder) getDMXStartAddress(req paramstore.Request) paramstore.Response {
	v, _, ok := r.store.ParameterGet(req.SubDevice, req.PID)
	if !ok {
		return paramstore.Response{Kind: paramstore.Nack, Reason: rdm.NRHardwareFault}
	}
	values, err := dmxStartAddressFormat.Read(v)
	if err != nil {
		return paramstore.Response{Kind: paramstore.Nack, Reason: rdm.NRHardwareFault}
	}
	return paramstore.Response{Kind: paramstore.Ack, PDL: dmxStartAddressFormat.Write(values)}
}

func (r *Responder) setDMXStartAddress(req paramstore.Request) paramstore.Response {
	if len(req.Header.PDL) != dmxStartAddressFormat.Size() {
		return paramstore.Response{Kind: paramstore.Nack, Reason: rdm.NRFormatError}
	}
	values, err := dmxStartAddressFormat.Read(req.Header.PDL)
	if err != nil {
		return paramstore.Response{Kind: paramstore.Nack, Reason: rdm.NRFormatError}
	}
	addr := values[0].Word
	if addr < 1 || addr > 512 {
		return paramstore.Response{Kind: paramstore.Nack, Reason: rdm.NRDataOutOfRange}
	}
	if !r.store.ParameterSet(req.SubDevice, req.PID, dmxStartAddressFormat.Write(values)) {
		return paramstore.Response{Kind: paramstore.Nack, Reason: rdm.NRHardwareFault}
	}
	return paramstore.Response{Kind: paramstore.Ack}
}

func (r *Responder) getIdentifyDevice(req paramstore.Request) paramstore.Response {
	v, _, ok := r.store.ParameterGet(req.SubDevice, req.PID)
	if !ok {
		return paramstore.Response{Kind: paramstore.Nack, Reason: rdm.NRHardwareFault}
	}
	values, err := identifyDeviceFormat.Read(v)
	if err != nil {
		return paramstore.Response{Kind: paramstore.Nack, Reason: rdm.NRHardwareFault}
	}
	return paramstore.Response{Kind: paramstore.Ack, PDL: identifyDeviceFormat.Write(values)}
}

func (r *Responder) setIdentifyDevice(req paramstore.Request) paramstore.Response {
	if len(req.Header.PDL) != identifyDeviceFormat.Size() {
		return paramstore.Response{Kind: paramstore.Nack, Reason: rdm.NRFormatError}
	}
	values, err := identifyDeviceFormat.Read(req.Header.PDL)
	if err != nil {
		return paramstore.Response{Kind: paramstore.Nack, Reason: rdm.NRFormatError}
	}
	if values[0].Byte != 0 && values[0].Byte != 1 {
		return paramstore.Response{Kind: paramstore.Nack, Reason: rdm.NRDataOutOfRange}
	}
	if !r.store.ParameterSet(req.SubDevice, req.PID, identifyDeviceFormat.Write(values)) {
		return paramstore.Response{Kind: paramstore.Nack, Reason: rdm.NRHardwareFault}
	}
	return paramstore.Response{Kind: paramstore.Ack}
}

// getSupportedParameters lists every registered PID at this
// sub-device besides the mandatory ones every RDM device already
// implies, per RDM convention and spec §4.5's "Built-in PIDs" note.
func (r *Responder) getSupportedParameters(req paramstore.Request) paramstore.Response {
	mandatory := map[rdm.PID]bool{}
	for _, p := range builtinPIDs {
		mandatory[p] = true
	}
	var pdl []byte
	for _, pid := range r.store.SupportedPIDs(req.SubDevice) {
		if mandatory[pid] {
			continue
		}
		var tmp [2]byte
		binary.BigEndian.PutUint16(tmp[:], uint16(pid))
		pdl = append(pdl, tmp[:]...)
	}
	return paramstore.Response{Kind: paramstore.Ack, PDL: pdl}
}

// getParameterDescription answers PARAMETER_DESCRIPTION for
// non-standard (non-builtin) PIDs only, per spec §4.5.
func (r *Responder) getParameterDescription(req paramstore.Request) paramstore.Response {
	if len(req.Header.PDL) != 2 {
		return paramstore.Response{Kind: paramstore.Nack, Reason: rdm.NRFormatError}
	}
	target := rdm.PID(binary.BigEndian.Uint16(req.Header.PDL))
	for _, p := range builtinPIDs {
		if p == target {
			return paramstore.Response{Kind: paramstore.Nack, Reason: rdm.NRDataOutOfRange}
		}
	}
	def := r.store.Definition(req.SubDevice, target)
	if def == nil {
		return paramstore.Response{Kind: paramstore.Nack, Reason: rdm.NRDataOutOfRange}
	}

	desc := def.Description
	if len(desc) > 32 {
		desc = desc[:32]
	}
	pdl := make([]byte, 0, 20+len(desc))
	var tmp2 [2]byte
	binary.BigEndian.PutUint16(tmp2[:], uint16(target))
	pdl = append(pdl, tmp2[:]...)
	pdl = append(pdl, byte(def.MaxPDL))
	pdl = append(pdl, def.DataType)
	pdl = append(pdl, byte(def.CC))
	pdl = append(pdl, byte(def.DataType))
	pdl = append(pdl, byte(def.ValueUnits))
	pdl = append(pdl, byte(def.ValuePrefix))
	var tmp4 [4]byte
	binary.BigEndian.PutUint32(tmp4[:], uint32(def.Min))
	pdl = append(pdl, tmp4[:]...)
	binary.BigEndian.PutUint32(tmp4[:], uint32(def.Max))
	pdl = append(pdl, tmp4[:]...)
	binary.BigEndian.PutUint32(tmp4[:], 0)
	pdl = append(pdl, tmp4[:]...)
	pdl = append(pdl, desc...)
	return paramstore.Response{Kind: paramstore.Ack, PDL: pdl}
}

// getDeviceInfo synthesizes the 19-byte DEVICE_INFO PDL (spec §8
// scenario 1) from ProductInfo, the current personality, sub-device
// count, sensor count and DMX start address.
func (r *Responder) getDeviceInfo(req paramstore.Request) paramstore.Response {
	addrBytes, _, ok := r.store.ParameterGet(rootSubDevice, rdm.PIDDMXStartAddress)
	if !ok || len(addrBytes) != 2 {
		return paramstore.Response{Kind: paramstore.Nack, Reason: rdm.NRHardwareFault}
	}

	pdl := make([]byte, 19)
	pdl[0] = 0x01
	pdl[1] = 0x00
	binary.BigEndian.PutUint16(pdl[2:4], r.info.ModelID)
	binary.BigEndian.PutUint16(pdl[4:6], r.info.ProductCategory)
	binary.BigEndian.PutUint32(pdl[6:10], r.info.SoftwareVersionID)
	binary.BigEndian.PutUint16(pdl[10:12], r.info.Footprint)
	pdl[12] = r.personalityCurrent
	pdl[13] = r.info.PersonalityCount
	copy(pdl[14:16], addrBytes)
	binary.BigEndian.PutUint16(pdl[16:18], r.info.SubDeviceCount)
	pdl[18] = r.info.SensorCount
	return paramstore.Response{Kind: paramstore.Ack, PDL: pdl}
}

func (r *Responder) getSoftwareVersionLabel(req paramstore.Request) paramstore.Response {
	label := r.info.SoftwareVersionLabel
	if len(label) > 32 {
		label = label[:32]
	}
	return paramstore.Response{Kind: paramstore.Ack, PDL: []byte(label)}
}

func (r *Responder) getDeviceLabel(req paramstore.Request) paramstore.Response {
	v, n, ok := r.store.ParameterGet(req.SubDevice, req.PID)
	if !ok {
		return paramstore.Response{Kind: paramstore.Nack, Reason: rdm.NRHardwareFault}
	}
	values, err := deviceLabelFormat.Read(v[:n])
	if err != nil {
		return paramstore.Response{Kind: paramstore.Nack, Reason: rdm.NRHardwareFault}
	}
	return paramstore.Response{Kind: paramstore.Ack, PDL: deviceLabelFormat.Write(values)}
}

// setDeviceLabel resolves Open Question 3 (spec §9): a label of
// exactly 32 bytes is rejected with FORMAT_ERROR rather than silently
// truncated, enforcing a strict "< 32" bound (spec §4.3). This
// is checked ahead of deviceLabelFormat.Read because the DSL's
// trailing ASCII field caps silently at 32 bytes rather than erroring
// on an over-long one.
func (r *Responder) setDeviceLabel(req paramstore.Request) paramstore.Response {
	if len(req.Header.PDL) >= 32 {
		return paramstore.Response{Kind: paramstore.Nack, Reason: rdm.NRFormatError}
	}
	values, err := deviceLabelFormat.Read(req.Header.PDL)
	if err != nil {
		return paramstore.Response{Kind: paramstore.Nack, Reason: rdm.NRFormatError}
	}
	if !r.store.ParameterSet(req.SubDevice, req.PID, deviceLabelFormat.Write(values)) {
		return paramstore.Response{Kind: paramstore.Nack, Reason: rdm.NRHardwareFault}
	}
	return paramstore.Response{Kind: paramstore.Ack}
}
