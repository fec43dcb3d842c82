// Copyright 2026 The DMX512 Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license
// that can be found in the LICENSE file.

// Package dmx is the top-level driver: it wires hal.UartHal/Timer/Nvs
// through framer, rdm, paramstore and responder into one installable
// per-port engine (spec §2 "System overview", §3 "Lifecycles").
package dmx

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/oclyke/dmx512/framer"
	"github.com/oclyke/dmx512/hal"
	"github.com/oclyke/dmx512/paramstore"
	"github.com/oclyke/dmx512/rdm"
	"github.com/oclyke/dmx512/responder"
	"github.com/sirupsen/logrus"
)

// Config is the install-time configuration of one port (spec §6
// "Environment / configuration").
type Config struct {
	BaudRate            int
	BreakLenUs          int
	MabLenUs            int
	InterruptAllocFlags uint32

	Timer hal.Timer
	Nvs   hal.Nvs
	Log   *logrus.Logger

	Info responder.ProductInfo
}

// DefaultConfig returns a Config with spec-mandated defaults (spec §3
// "TX break length (default 176 µs) and MAB length (default 12 µs)",
// §6 "baud_rate (default 250000)").
func DefaultConfig() Config {
	return Config{
		BaudRate:   hal.DefaultBaudRate,
		BreakLenUs: int(hal.DefaultBreakLen / time.Microsecond),
		MabLenUs:   int(hal.DefaultMabLen / time.Microsecond),
	}
}

// validate checks baud tolerance and break/MAB floors (spec §4.1,
// §4.2 "Timing contract"), an expansion beyond the literal spec:
// rejecting a bad Config outright at Install rather than silently
// clamping it to the nearest legal value (SPEC_FULL.md "dmx.Config
// validation").
func (c Config) validate() error {
	if c.BaudRate == 0 {
		return nil // zero means "use DefaultConfig", handled by caller
	}
	tol := float64(c.BaudRate-hal.DefaultBaudRate) / float64(hal.DefaultBaudRate)
	if tol < 0 {
		tol = -tol
	}
	if tol > hal.BaudTolerance {
		return fmt.Errorf("dmx: baud rate %d exceeds %.0f%% tolerance of %d: %w", c.BaudRate, hal.BaudTolerance*100, hal.DefaultBaudRate, rdm.ErrInvalidArg)
	}
	breakLen := time.Duration(c.BreakLenUs) * time.Microsecond
	if breakLen < hal.MinBreakLenTx {
		return fmt.Errorf("dmx: break length %dus below minimum %s: %w", c.BreakLenUs, hal.MinBreakLenTx, rdm.ErrInvalidArg)
	}
	mabLen := time.Duration(c.MabLenUs) * time.Microsecond
	if mabLen < hal.MinMabLenRx {
		return fmt.Errorf("dmx: mab length %dus below minimum %s: %w", c.MabLenUs, hal.MinMabLenRx, rdm.ErrInvalidArg)
	}
	return nil
}

// Driver owns one installed port: its Framer, parameter store and
// responder.
type Driver struct {
	port int

	framer    *framer.Framer
	store     *paramstore.Store
	responder *responder.Responder
	log       *logrus.Entry

	config Config
}

var (
	registryMu sync.Mutex
	ports      [hal.MaxPorts]*Driver
)

// errAlreadyInstalled mirrors the teacher's named-sentinel-error
// registry idiom (periph.go's "already registered"), adapted to a
// fixed-size port array rather than a name-keyed map.
var errAlreadyInstalled = errors.New("dmx: port already installed")

// Install brings up port using h for the UART peripheral and the
// given Config, registering the mandatory built-in PIDs and returning
// a ready Driver (spec §3 "Lifecycles", "A driver is created by
// install(port, config)"). Double-install on the same port is fatal
// per spec §7 "Fatal conditions".
func Install(port int, h hal.UartHal, cfg Config, uid rdm.UID) (*Driver, error) {
	if port < 0 || port >= hal.MaxPorts {
		return nil, fmt.Errorf("dmx: port %d out of range [0,%d): %w", port, hal.MaxPorts, rdm.ErrInvalidArg)
	}
	if cfg.BaudRate == 0 {
		d := DefaultConfig()
		d.Timer, d.Nvs, d.Log, d.Info = cfg.Timer, cfg.Nvs, cfg.Log, cfg.Info
		cfg = d
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if cfg.Timer == nil {
		return nil, fmt.Errorf("dmx: install requires a Timer: %w", rdm.ErrInvalidArg)
	}

	registryMu.Lock()
	defer registryMu.Unlock()
	if ports[port] != nil {
		return nil, errAlreadyInstalled
	}

	if err := h.Configure(cfg.BaudRate); err != nil {
		return nil, fmt.Errorf("dmx: configure port %d: %w", port, err)
	}

	log := cfg.Log
	if log == nil {
		log = logrus.StandardLogger()
	}
	entry := log.WithField("port", port)

	breakLen := time.Duration(cfg.BreakLenUs) * time.Microsecond
	mabLen := time.Duration(cfg.MabLenUs) * time.Microsecond

	store := paramstore.New(cfg.Nvs)
	store.SetLog(entry)
	f := framer.New(h, cfg.Timer, breakLen, mabLen)
	resp := responder.New(uid, store, cfg.Info, entry)

	d := &Driver{port: port, framer: f, store: store, responder: resp, log: entry, config: cfg}
	ports[port] = d
	entry.Debug("dmx: port installed")
	return d, nil
}

// Uninstall tears down port, freeing its registry slot. Parameter
// memory for NON_VOLATILE entries persists in Nvs across Uninstall
// (spec §3 "owns all its parameter memory across reboots only for
// NON_VOLATILE entries").
func Uninstall(port int) error {
	registryMu.Lock()
	defer registryMu.Unlock()
	if port < 0 || port >= hal.MaxPorts || ports[port] == nil {
		return rdm.ErrNotInstalled
	}
	ports[port].log.Debug("dmx: port uninstalled")
	ports[port] = nil
	return nil
}

// Port looks up an installed Driver by port number.
func Port(port int) (*Driver, bool) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if port < 0 || port >= hal.MaxPorts || ports[port] == nil {
		return nil, false
	}
	return ports[port], true
}

// Store returns the port's parameter registry, for registering
// application-specific PIDs beyond the built-ins.
func (d *Driver) Store() *paramstore.Store { return d.store }

// Responder returns the port's RDM responder.
func (d *Driver) Responder() *responder.Responder { return d.responder }

// Send transmits a raw frame (start code plus slots, or a formatted
// RDM packet) and blocks until TX completes or timeout elapses (spec
// §4.2 "Transmit path").
func (d *Driver) Send(data []byte, timeout time.Duration) error {
	err := d.framer.Send(data, timeout)
	if err != nil {
		d.log.WithError(err).Warn("dmx: send failed")
	}
	return err
}

// Receive blocks for one full frame (spec §4.2 "Receive path") and, if
// it carries an RDM start code with a valid header, dispatches it
// through the responder and transmits the reply before returning.
//
// Receive returns the raw received frame (including start code) and
// any reply bytes actually transmitted (nil if none was sent, e.g. a
// DMX data frame, a broadcast GET/SET request, or a corrupt checksum).
func (d *Driver) Receive(timeout time.Duration) (frame []byte, reply []byte, err error) {
	n, buf, err := d.framer.Receive(timeout)
	if err != nil {
		return nil, nil, err
	}
	if !n.IsRDM {
		return buf, nil, nil
	}

	h, perr := rdm.ParseHeader(buf)
	if perr != nil {
		d.log.WithError(perr).Debug("dmx: malformed rdm frame, dropped")
		return buf, nil, nil
	}
	if h.CC.IsResponse() {
		return buf, nil, nil
	}

	out := d.responder.Dispatch(h)
	if out == nil {
		return buf, nil, nil
	}
	sendTimeout := hal.TxWatchdog
	if serr := d.framer.Send(out, sendTimeout); serr != nil {
		d.log.WithError(serr).Warn("dmx: failed to send rdm reply")
		return buf, nil, nil
	}
	return buf, out, nil
}
