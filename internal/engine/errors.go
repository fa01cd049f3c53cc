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

import "errors"

// ErrKeyNotFound is returned by Remove for a key that is not present. Get
// does not use it: an absent key is reported as found == false.
var ErrKeyNotFound = errors.New("key not found")

// ErrCorruption is returned by Open when the log cannot be replayed, or by
// Get when a stored record does not decode to the expected shape.
var ErrCorruption = errors.New("log corruption")

// ErrIO wraps an underlying file-system failure. Use errors.Is(err, ErrIO)
// to test for it; the wrapped error carries the original cause.
var ErrIO = errors.New("io error")
