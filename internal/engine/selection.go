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
	"fmt"
	"os"
	"path/filepath"
)

// ErrEngineMismatch is returned by CheckSelection when the requested
// engine differs from the one recorded on a previous start.
var ErrEngineMismatch = fmt.Errorf("%w: engine does not match the one recorded on first start", ErrIO)

// markerNames maps an engine name to its marker file. "sled" is an
// external collaborator this repo never implements; CheckSelection still
// honors its marker name so a directory previously started with the sled
// engine correctly refuses to be reopened as "kvs".
var markerNames = map[string]string{
	"kvs":  "kvs.engine",
	"sled": "sled.engine",
}

// CheckSelection records engineName as the marker on first start, or
// verifies it matches an existing marker on subsequent starts. It does not
// open or validate the engine itself — that contract belongs entirely to
// the caller (open(path) -> Engine); engine selection is kept out of the
// core on purpose.
func CheckSelection(dir, engineName string) error {
	marker, ok := markerNames[engineName]
	if !ok {
		return fmt.Errorf("%w: unknown engine %q", ErrIO, engineName)
	}

	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("%w: mkdir %s: %v", ErrIO, dir, err)
	}

	for name, file := range markerNames {
		if name == engineName {
			continue
		}
		if _, err := os.Stat(filepath.Join(dir, file)); err == nil {
			return ErrEngineMismatch
		}
	}

	path := filepath.Join(dir, marker)
	if _, err := os.Stat(path); err == nil {
		return nil // already selected, matches
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0640)
	if err != nil {
		if os.IsExist(err) {
			return nil
		}
		return fmt.Errorf("%w: create %s: %v", ErrIO, path, err)
	}
	return f.Close()
}
