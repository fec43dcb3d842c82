// Copyright 2026 The DMX512 Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license
// that can be found in the LICENSE file.

package nvsbolt

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreThenLoad(t *testing.T) {
	n, err := Open(filepath.Join(t.TempDir(), "params.db"))
	require.NoError(t, err)
	defer n.Close()

	_, ok := n.Load("0:130")
	assert.False(t, ok)

	require.NoError(t, n.Store("0:130", []byte("Hello")))
	v, ok := n.Load("0:130")
	require.True(t, ok)
	assert.Equal(t, []byte("Hello"), v)
}

func TestPersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "params.db")
	n, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, n.Store("0:240", []byte{1, 2, 3}))
	require.NoError(t, n.Close())

	n2, err := Open(path)
	require.NoError(t, err)
	defer n2.Close()
	v, ok := n2.Load("0:240")
	require.True(t, ok)
	assert.Equal(t, []byte{1, 2, 3}, v)
}
