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
package proto

import (
	"bufio"
	"io"
)

// RequestDecoder is the streaming parser: it yields one Request
// per Next() call from a buffered byte source and ends cleanly when the
// stream closes (io.EOF). Its bufio.Reader reads ahead as much as one read
// returns (up to the buffer size), so bytes of later requests can be held
// in the buffer; they stay there for the following Next calls. It is
// non-restartable: once Next returns an error
// the decoder must be discarded, matching the connection handler's policy
// of closing on any parse error.
type RequestDecoder struct {
	r *bufio.Reader
}

// NewRequestDecoder wraps r (or buffers it if it isn't already buffered).
func NewRequestDecoder(r io.Reader) *RequestDecoder {
	return &RequestDecoder{r: bufio.NewReader(r)}
}

// Next returns the next Request, io.EOF if the peer closed the stream
// cleanly between requests, or ErrParse-wrapped error on malformed input.
func (d *RequestDecoder) Next() (Request, error) {
	if _, err := d.r.Peek(1); err != nil {
		return Request{}, err // clean io.EOF, or the underlying read error
	}
	return DecodeRequest(d.r)
}
