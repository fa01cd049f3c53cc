/*
Copyright (C) 2026  MemCP Contributors

	This program is free software: you can redistribute it and/or modify
	it under the terms of the GNU General Public License as published by
	the Free Software Foundation, either version 3 of the License, or
	(at your option) any later version.

	This program is distributed in the hope that it will be useful,
	but WITHOUT ANY WARRANTY; without even the implied warranty of
	MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
	GNU General Public License for more details.

	You should have received a copy of the GNU General Public License
	along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/
package engine

import "github.com/launix-de/NonLockingReadMap"

// Meta identifies one Set record's byte range in the live log.
type Meta struct {
	Offset uint64
	Length uint64
}

// metaEntry is the NonLockingReadMap element: a key plus its Meta, boxed so
// the map can hand out stable pointers for its lock-free compare-and-swap.
type metaEntry struct {
	key  string
	meta Meta
}

// GetKey and ComputeSize use value receivers, not pointer receivers: the
// map's type parameter is instantiated with metaEntry itself (elements
// are stored as *metaEntry internally, per NonLockingReadMap's own
// design), so metaEntry's method set — not just *metaEntry's — must
// satisfy NonLockingReadMap.KeyGetter.
func (e metaEntry) GetKey() string { return e.key }

// ComputeSize satisfies NonLockingReadMap.Sizable; it is not on any hot
// path but keeps the map's own bookkeeping consistent with how the
// teacher's storage layer sizes its in-memory structures.
func (e metaEntry) ComputeSize() uint { return uint(len(e.key)) + 24 }

// index maps key to Meta with unique keys and concurrent lookups during a
// write and during compaction. NonLockingReadMap (copied from the
// teacher's third_party/, unmodified) is exactly the structure this
// calls for: a sorted slice behind an atomic.Pointer, giving O(log n)
// non-blocking reads that never contend with the single writer.
type index = NonLockingReadMap.NonLockingReadMap[metaEntry, string]

func newIndex() index {
	return NonLockingReadMap.New[metaEntry, string]()
}

// indexGet, indexSet, and indexRemove all take *index, not index: Set and
// Remove are defined with pointer receivers (they CAS the struct's
// atomic.Pointer field in place), so calling them through a by-value
// index parameter would CAS a throwaway copy of the struct and discard
// the result the instant the wrapper returned. Taking *index ensures the
// CAS lands on the caller's actual field (readerView.idx, or replay's
// local idx).

// indexGet returns the Meta for key, or false if absent.
func indexGet(idx *index, key string) (Meta, bool) {
	e := idx.Get(key)
	if e == nil {
		return Meta{}, false
	}
	return (*e).meta, true
}

// indexSet installs key -> meta, returning the previous Meta if the key was
// already present (the caller uses this to bump dangling_bytes).
func indexSet(idx *index, key string, meta Meta) (prev Meta, had bool) {
	old := idx.Set(&metaEntry{key: key, meta: meta})
	if old == nil {
		return Meta{}, false
	}
	return (*old).meta, true
}

// indexRemove deletes key, returning its Meta if present.
func indexRemove(idx *index, key string) (Meta, bool) {
	old := idx.Remove(key)
	if old == nil {
		return Meta{}, false
	}
	return (*old).meta, true
}

// indexEntries snapshots every (key, Meta) pair currently in idx, in
// whatever order the map holds them (compaction doesn't care about order).
func indexEntries(idx *index) []struct {
	Key  string
	Meta Meta
} {
	all := idx.GetAll()
	out := make([]struct {
		Key  string
		Meta Meta
	}, len(all))
	for i, e := range all {
		out[i].Key = (*e).key
		out[i].Meta = (*e).meta
	}
	return out
}
