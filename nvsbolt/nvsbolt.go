// Copyright 2026 The DMX512 Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license
// that can be found in the LICENSE file.

// Package nvsbolt implements hal.Nvs over a single-file bbolt database,
// for host-side persistence of NON_VOLATILE parameters across
// dmx.Install/dmx.Uninstall cycles (spec §4.4, §6 "Persisted state").
package nvsbolt

import (
	"time"

	"github.com/oclyke/dmx512/hal"
	bolt "go.etcd.io/bbolt"
)

var bucketName = []byte("dmx512-parameters")

var _ hal.Nvs = (*Nvs)(nil)

// Nvs is a bbolt-backed hal.Nvs. The zero value is not usable;
// construct with Open.
type Nvs struct {
	db *bolt.DB
}

// Open opens (creating if absent) a bbolt database at path and ensures
// its parameter bucket exists.
func Open(path string) (*Nvs, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, err
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketName)
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &Nvs{db: db}, nil
}

// Close closes the underlying database file.
func (n *Nvs) Close() error { return n.db.Close() }

// Load implements hal.Nvs, using the "<sub_device>:<pid>" key format
// spec §6 specifies.
func (n *Nvs) Load(key string) ([]byte, bool) {
	var value []byte
	var found bool
	_ = n.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketName)
		if b == nil {
			return nil
		}
		if v := b.Get([]byte(key)); v != nil {
			value = append([]byte(nil), v...)
			found = true
		}
		return nil
	})
	return value, found
}

// Store implements hal.Nvs.
func (n *Nvs) Store(key string, value []byte) error {
	return n.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketName)
		return b.Put([]byte(key), value)
	})
}
