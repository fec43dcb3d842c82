// Copyright 2026 The DMX512 Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license
// that can be found in the LICENSE file.

package paramstore

import (
	"testing"

	"github.com/oclyke/dmx512/rdm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeNvs struct {
	data map[string][]byte
}

func newFakeNvs() *fakeNvs { return &fakeNvs{data: map[string][]byte{}} }

func (n *fakeNvs) Load(key string) ([]byte, bool) {
	v, ok := n.data[key]
	return v, ok
}
func (n *fakeNvs) Store(key string, value []byte) error {
	n.data[key] = append([]byte(nil), value...)
	return nil
}

func TestAddParameterRejectsDuplicate(t *testing.T) {
	s := New(nil)
	require.True(t, s.AddParameter(0, rdm.PIDDeviceLabel, Dynamic, nil, 32))
	assert.False(t, s.AddParameter(0, rdm.PIDDeviceLabel, Dynamic, nil, 32))
}

func TestSetThenGetConsistency(t *testing.T) {
	s := New(nil)
	require.True(t, s.AddParameter(0, rdm.PIDDeviceLabel, Dynamic, []byte("init"), 32))

	require.True(t, s.ParameterSet(0, rdm.PIDDeviceLabel, []byte("Hello")))
	v, n, ok := s.ParameterGet(0, rdm.PIDDeviceLabel)
	require.True(t, ok)
	assert.Equal(t, 5, n)
	assert.Equal(t, []byte("Hello"), v)
}

func TestStaticParameterRejectsSet(t *testing.T) {
	buf := []byte("readonly")
	s := New(nil)
	require.True(t, s.AddParameter(0, rdm.PIDDeviceInfo, Static, buf, 0))
	assert.False(t, s.ParameterSet(0, rdm.PIDDeviceInfo, []byte("nope")))
}

func TestSetClampsToCapacity(t *testing.T) {
	s := New(nil)
	require.True(t, s.AddParameter(0, rdm.PIDDeviceLabel, Dynamic, nil, 4))
	require.True(t, s.ParameterSet(0, rdm.PIDDeviceLabel, []byte("Hello")))
	v, n, ok := s.ParameterGet(0, rdm.PIDDeviceLabel)
	require.True(t, ok)
	assert.Equal(t, 4, n)
	assert.Equal(t, []byte("Hell"), v)
}

func TestNonVolatileWriteThrough(t *testing.T) {
	nvs := newFakeNvs()
	s := New(nvs)
	require.True(t, s.AddParameter(0, rdm.PIDDMXStartAddress, NonVolatile, []byte{0, 1}, 2))
	require.True(t, s.ParameterSet(0, rdm.PIDDMXStartAddress, []byte{0, 42}))

	stored, ok := nvs.Load("0:240")
	require.True(t, ok)
	assert.Equal(t, []byte{0, 42}, stored)
}

func TestNonVolatileReloadsFromNvsOnReinstall(t *testing.T) {
	nvs := newFakeNvs()
	nvs.data["0:240"] = []byte{1, 44}

	s := New(nvs)
	require.True(t, s.AddParameter(0, rdm.PIDDMXStartAddress, NonVolatile, []byte{0, 1}, 2))
	v, _, ok := s.ParameterGet(0, rdm.PIDDMXStartAddress)
	require.True(t, ok)
	assert.Equal(t, []byte{1, 44}, v)
}

func TestQueuePushPopOverflow(t *testing.T) {
	s := New(nil)
	for i := 0; i < queueCapacity+5; i++ {
		s.QueuePush(rdm.PID(i))
	}
	assert.Equal(t, queueCapacity, s.QueueLen())
	first, ok := s.QueuePop()
	require.True(t, ok)
	assert.Equal(t, rdm.PID(5), first) // oldest 5 were dropped
}

func TestQueuePopEmpty(t *testing.T) {
	s := New(nil)
	_, ok := s.QueuePop()
	assert.False(t, ok)
}

func TestSupportedPIDsSorted(t *testing.T) {
	s := New(nil)
	s.AddParameter(0, rdm.PID(0x50), Static, nil, 0)
	s.AddParameter(0, rdm.PID(0x10), Static, nil, 0)
	s.AddParameter(0, rdm.PID(0x30), Static, nil, 0)
	s.AddParameter(1, rdm.PID(0x99), Static, nil, 0)

	pids := s.SupportedPIDs(0)
	assert.Equal(t, []rdm.PID{0x10, 0x30, 0x50}, pids)
}

func TestCallbackFiresOnlyOnFireCallback(t *testing.T) {
	s := New(nil)
	require.True(t, s.AddParameter(0, rdm.PIDDeviceLabel, Dynamic, []byte("x"), 32))
	calls := 0
	require.True(t, s.CallbackSet(0, rdm.PIDDeviceLabel, func(sd uint16, pid rdm.PID, ctx interface{}) {
		calls++
	}, nil))

	s.ParameterSet(0, rdm.PIDDeviceLabel, []byte("new"))
	s.ParameterGet(0, rdm.PIDDeviceLabel)
	assert.Equal(t, 0, calls)

	s.FireCallback(0, rdm.PIDDeviceLabel)
	assert.Equal(t, 1, calls)
}
