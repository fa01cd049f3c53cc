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

	"github.com/rs/zerolog/log"
)

// compactIfNeededLocked runs the compaction protocol when
// danglingBytes exceeds the configured threshold. Caller must hold e.mu,
// which keeps compaction serialized with every other writer operation;
// readers are blocked only for the instant it takes to publish the new
// readerView (an atomic pointer store), never for the copy itself.
func (e *Engine) compactIfNeededLocked() error {
	if e.danglingBytes <= e.compactThreshold {
		return nil
	}

	oldView := e.view.Load()
	dataPath := filepath.Join(e.dir, dataFileName)
	compactPath := filepath.Join(e.dir, compactFileName)

	// O_TRUNC clears any stale data.compact left by a crash mid-compaction;
	// the live data file was never touched by that earlier attempt.
	compactFile, err := os.OpenFile(compactPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0640)
	if err != nil {
		return fmt.Errorf("%w: open %s: %v", ErrIO, compactPath, err)
	}

	newIdx := newIndex()
	var newOffset uint64
	for _, ent := range indexEntries(&oldView.idx) {
		buf := make([]byte, ent.Meta.Length)
		if _, err := oldView.file.ReadAt(buf, int64(ent.Meta.Offset)); err != nil {
			compactFile.Close()
			removeFile(compactPath)
			return fmt.Errorf("%w: compact read %s at %d: %v", ErrIO, dataPath, ent.Meta.Offset, err)
		}
		if _, err := compactFile.Write(append(buf, '\n')); err != nil {
			compactFile.Close()
			removeFile(compactPath)
			return fmt.Errorf("%w: compact write: %v", ErrIO, err)
		}
		indexSet(&newIdx, ent.Key, Meta{Offset: newOffset, Length: ent.Meta.Length})
		newOffset += ent.Meta.Length + 1
	}

	if err := compactFile.Sync(); err != nil {
		compactFile.Close()
		return fmt.Errorf("%w: sync compact file: %v", ErrIO, err)
	}
	if err := compactFile.Close(); err != nil {
		return fmt.Errorf("%w: close compact file: %v", ErrIO, err)
	}

	if err := renameFile(compactPath, dataPath); err != nil {
		return err
	}

	newReader, err := openPread(dataPath)
	if err != nil {
		return err
	}
	newWriter, err := openAppend(dataPath)
	if err != nil {
		newReader.Close()
		return err
	}

	// Atomic swap: both the rekeyed index and the renamed file's read
	// handle are ready, so publish them together. Readers that already
	// hold oldView keep reading through its (now unlinked-but-open)
	// handle until it is no longer referenced; see Engine.Close.
	e.view.Store(&readerView{idx: newIdx, file: newReader})

	oldWriter := e.writer
	e.writer = newWriter
	e.writeOffset = newOffset
	e.danglingBytes = 0
	oldWriter.Close()

	log.Info().Str("dir", e.dir).Uint64("new_size", newOffset).
		Int("live_keys", len(indexEntries(&newIdx))).Msg("compaction complete")
	return nil
}
