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
)

// dataFileName is the live log; compactFileName is its transient staging
// area during compaction.
const (
	dataFileName    = "data"
	compactFileName = "data.compact"
)

// openAppend opens path for exclusive append-only writing, creating it if
// missing. Grounded on storage/persistence-files.go's FileStorage.OpenLog,
// generalized from per-shard logs to the single live log an Engine keeps.
func openAppend(path string) (*os.File, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0640)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s for append: %v", ErrIO, path, err)
	}
	return f, nil
}

// openPread opens path for positional reads. The returned handle's ReadAt
// is safe to call concurrently from many goroutines: pread(2) never moves
// a shared cursor, so callers never disturb one another.
func openPread(path string) (*os.File, error) {
	f, err := os.OpenFile(path, os.O_RDONLY, 0)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s for read: %v", ErrIO, path, err)
	}
	return f, nil
}

// renameFile performs the atomic, same-filesystem rename compaction relies
// on to swap the live log in place.
func renameFile(src, dst string) error {
	if err := os.Rename(src, dst); err != nil {
		return fmt.Errorf("%w: rename %s -> %s: %v", ErrIO, src, dst, err)
	}
	return nil
}

func removeFile(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("%w: remove %s: %v", ErrIO, path, err)
	}
	return nil
}
