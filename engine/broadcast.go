// Copyright 2026 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package engine

import "sync"

var (
	broadcastMu     sync.RWMutex
	broadcastLastID uint64
	broadcastValues = map[uint64]interface{}{}
)

// Broadcast is a handle to one immutable value registered for the duration of
// a single read operation and readable identically from every worker. The
// value is held in a process-wide registry and referenced by id rather than
// by live pointer, so a record that keeps a Broadcast does not couple its
// lifetime to other concurrent operations. The zero Broadcast is empty.
//
// The registered value must not be mutated while the Broadcast is live.
type Broadcast struct {
	id uint64
}

// NewBroadcast registers v and returns its handle. v may be nil; the handle
// then resolves to a nil value rather than reporting absence.
func NewBroadcast(v interface{}) Broadcast {
	broadcastMu.Lock()
	broadcastLastID++
	id := broadcastLastID
	broadcastValues[id] = v
	broadcastMu.Unlock()
	return Broadcast{id: id}
}

// Value returns the registered value. ok is false for the zero Broadcast and
// after Release.
func (b Broadcast) Value() (v interface{}, ok bool) {
	broadcastMu.RLock()
	v, ok = broadcastValues[b.id]
	broadcastMu.RUnlock()
	return v, ok
}

// Release removes the value from the registry. Callers must not resolve the
// handle, or any record holding it, after Release.
func (b Broadcast) Release() {
	broadcastMu.Lock()
	delete(broadcastValues, b.id)
	broadcastMu.Unlock()
}
