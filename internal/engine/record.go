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

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// recordOp tags the two record kinds that can ever reach the log. A Get is
// never written; it is a read-only query answered from the index.
type recordOp string

const (
	opSet    recordOp = "set"
	opRemove recordOp = "remove"
)

// record is the self-delimiting text encoding of one log entry.
// encode/decode round-trip exactly: encode∘decode is the identity on the
// record set, and the byte length captured at append time is decodable on
// its own, independent of anything before or after it in the file.
type record struct {
	Op    recordOp `json:"op"`
	Key   string   `json:"key"`
	Value string   `json:"value,omitempty"`
}

// encodeRecord returns the JSON encoding of one record, without a trailing
// newline. Meta.len is measured over exactly these bytes.
func encodeRecord(r record) ([]byte, error) {
	b, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("encode record: %w", err)
	}
	return b, nil
}

// decodeRecord parses exactly one record from b. It fails if b contains
// anything other than one well-formed JSON object, or trailing garbage.
func decodeRecord(b []byte) (record, error) {
	var r record
	dec := json.NewDecoder(bytes.NewReader(b))
	if err := dec.Decode(&r); err != nil {
		return record{}, fmt.Errorf("%w: %v", ErrCorruption, err)
	}
	if dec.More() {
		return record{}, fmt.Errorf("%w: trailing data after record", ErrCorruption)
	}
	switch r.Op {
	case opSet, opRemove:
	default:
		return record{}, fmt.Errorf("%w: unknown record op %q", ErrCorruption, r.Op)
	}
	return r, nil
}
