// Copyright 2026 The DMX512 Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license
// that can be found in the LICENSE file.

// Package paramstore is the typed registry of RDM parameters (spec §3
// "Parameter entry", §4.4). Entries are keyed by (sub-device, PID) and
// carry a storage class, a backing value, an optional
// ParameterDefinition, and an optional user callback.
//
// The store is touched only in task context (spec §5) -- the Framer
// never reaches into it.
package paramstore

import (
	"fmt"
	"sync"

	"github.com/oclyke/dmx512/hal"
	"github.com/oclyke/dmx512/rdm"
	"github.com/sirupsen/logrus"
)

// Class is a parameter entry's storage class, spec §3.
type Class int

const (
	// Static entries are caller-owned memory; the store never writes
	// to them.
	Static Class = iota
	// Dynamic entries are driver-owned RAM.
	Dynamic
	// NonVolatile entries are driver-owned RAM backed by hal.Nvs, with
	// write-through on every successful SET.
	NonVolatile
)

// Callback is invoked after every successful GET or SET on a parameter.
type Callback func(subDevice uint16, pid rdm.PID, ctx interface{})

type key struct {
	subDevice uint16
	pid       rdm.PID
}

func (k key) nvsKey() string {
	return fmt.Sprintf("%d:%d", k.subDevice, k.pid)
}

// Entry is one registered parameter, spec §3.
type Entry struct {
	class Class
	value []byte // length <= cap(value) for Dynamic/NonVolatile
	cap   int

	def *Definition

	cb    Callback
	cbCtx interface{}
}

// Class returns the entry's storage class.
func (e *Entry) Class() Class { return e.class }

// Definition returns the entry's associated metadata, or nil.
func (e *Entry) Definition() *Definition { return e.def }

// queueCapacity bounds the pending-notification FIFO (spec §4.4); on
// overflow the oldest entry is dropped.
const queueCapacity = 32

// Store is one driver's parameter registry plus its QUEUED_MESSAGE
// notification FIFO.
type Store struct {
	nvs hal.Nvs
	log *logrus.Entry

	mu      sync.Mutex
	entries map[key]*Entry
	queue   []rdm.PID
}

// New creates an empty Store. nvs may be nil if no NonVolatile
// parameters will be registered.
func New(nvs hal.Nvs) *Store {
	return &Store{nvs: nvs, entries: map[key]*Entry{}}
}

// SetLog installs the *logrus.Entry a Store logs through (spec's
// Logging section: "a single package-level *logrus.Entry threaded
// through a Driver"). Unset, the Store logs through the standard
// logger with no extra fields.
func (s *Store) SetLog(log *logrus.Entry) {
	s.mu.Lock()
	s.log = log
	s.mu.Unlock()
}

func (s *Store) logEntry() *logrus.Entry {
	if s.log != nil {
		return s.log
	}
	return logrus.NewEntry(logrus.StandardLogger())
}

// AddParameter registers a new parameter entry. It refuses (returns
// false) on a duplicate (sub_device, pid) key. For NonVolatile, it
// attempts to load the value from Nvs first, falling back to
// initValue if absent. For Static, only the pointer is stored -- the
// caller's buffer must outlive the driver (spec §4.4).
func (s *Store) AddParameter(subDevice uint16, pid rdm.PID, class Class, initValue []byte, size int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := key{subDevice, pid}
	if _, ok := s.entries[k]; ok {
		return false
	}
	if class != Static && size < len(initValue) {
		return false
	}

	e := &Entry{class: class, cap: size}
	switch class {
	case Static:
		e.value = initValue
	case Dynamic:
		e.value = append([]byte(nil), initValue...)
	case NonVolatile:
		if s.nvs == nil {
			return false
		}
		if v, ok := s.nvs.Load(k.nvsKey()); ok {
			if len(v) > size {
				v = v[:size]
			}
			e.value = v
		} else {
			e.value = append([]byte(nil), initValue...)
			_ = s.nvs.Store(k.nvsKey(), e.value)
		}
	}
	s.entries[k] = e
	return true
}

// ParameterExists reports whether (subDevice, pid) is registered.
func (s *Store) ParameterExists(subDevice uint16, pid rdm.PID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.entries[key{subDevice, pid}]
	return ok
}

// ParameterGet returns a read borrow of the current value. The slice is
// only valid until the next write to that entry; callers that need a
// stable copy should use ParameterCopy.
func (s *Store) ParameterGet(subDevice uint16, pid rdm.PID) ([]byte, int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key{subDevice, pid}]
	if !ok {
		return nil, 0, false
	}
	return e.value, len(e.value), true
}

// ParameterCopy reads the current value into out, returning the number
// of bytes copied (<= len(out)).
func (s *Store) ParameterCopy(subDevice uint16, pid rdm.PID, out []byte) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key{subDevice, pid}]
	if !ok {
		return 0
	}
	n := copy(out, e.value)
	return n
}

// ParameterSet overwrites the value of a registered, writable (not
// Static) parameter. Size is clamped to the entry's registered
// capacity. NonVolatile entries are written through to Nvs before the
// in-RAM value is considered committed (spec invariant 4). On success,
// pid is pushed onto the change-notification queue. The entry's
// callback is not fired here; see FireCallback.
func (s *Store) ParameterSet(subDevice uint16, pid rdm.PID, value []byte) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := key{subDevice, pid}
	e, ok := s.entries[k]
	if !ok || e.class == Static {
		return false
	}
	n := len(value)
	if n > e.cap {
		n = e.cap
	}
	v := append([]byte(nil), value[:n]...)
	if e.class == NonVolatile {
		if s.nvs == nil || s.nvs.Store(k.nvsKey(), v) != nil {
			return false
		}
	}
	e.value = v
	s.pushLocked(pid)
	return true
}

// FireCallback invokes the registered callback for (subDevice, pid), if
// any. The responder calls this once per dispatched GET/SET request
// whose handler did not NACK (spec §4.5 step 5), after the response
// has been composed --
// never from inside ParameterGet/ParameterSet, since a single request
// handler (e.g. DEVICE_INFO, which reads several parameters to
// synthesize one response) may touch the store more than once per
// request.
func (s *Store) FireCallback(subDevice uint16, pid rdm.PID) {
	s.mu.Lock()
	e, ok := s.entries[key{subDevice, pid}]
	s.mu.Unlock()
	if ok && e.cb != nil {
		e.cb(subDevice, pid, e.cbCtx)
	}
}

// DefinitionSet associates def with a registered entry. def is expected
// to be immutable for the driver's lifetime (typically static storage);
// re-registration updates the definition without disturbing the stored
// value (spec "Lifecycles").
func (s *Store) DefinitionSet(subDevice uint16, pid rdm.PID, def *Definition) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key{subDevice, pid}]
	if !ok {
		return false
	}
	e.def = def
	return true
}

// Definition returns the definition associated with (subDevice, pid), or
// nil if none is registered or the parameter does not exist.
func (s *Store) Definition(subDevice uint16, pid rdm.PID) *Definition {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key{subDevice, pid}]
	if !ok {
		return nil
	}
	return e.def
}

// CallbackSet installs a user callback invoked after every successful
// GET or SET against (subDevice, pid).
func (s *Store) CallbackSet(subDevice uint16, pid rdm.PID, cb Callback, ctx interface{}) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key{subDevice, pid}]
	if !ok {
		return false
	}
	e.cb = cb
	e.cbCtx = ctx
	return true
}

// SupportedPIDs returns every registered PID for subDevice, in
// ascending order, for SUPPORTED_PARAMETERS (spec §4.5).
func (s *Store) SupportedPIDs(subDevice uint16) []rdm.PID {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []rdm.PID
	for k := range s.entries {
		if k.subDevice == subDevice {
			out = append(out, k.pid)
		}
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j-1] > out[j]; j-- {
			out[j-1], out[j] = out[j], out[j-1]
		}
	}
	return out
}

// QueuePush appends pid to the pending-notification FIFO (invariant 6:
// only changed, registered PIDs are queued -- callers are expected to
// only push PIDs that belong to a registered entry). On overflow the
// oldest entry is dropped to make room.
func (s *Store) QueuePush(pid rdm.PID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pushLocked(pid)
}

func (s *Store) pushLocked(pid rdm.PID) {
	if len(s.queue) >= queueCapacity {
		dropped := s.queue[0]
		s.queue = s.queue[1:]
		s.logEntry().WithField("pid", dropped).Warn("paramstore: notification queue full, dropping oldest entry")
	}
	s.queue = append(s.queue, pid)
}

// QueuePop removes and returns the oldest pending PID, or ok=false if
// the queue is empty.
func (s *Store) QueuePop() (rdm.PID, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.queue) == 0 {
		return 0, false
	}
	pid := s.queue[0]
	s.queue = s.queue[1:]
	return pid, true
}

// QueueLen reports how many notifications are pending.
func (s *Store) QueueLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}
