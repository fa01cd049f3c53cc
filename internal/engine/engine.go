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

// Package engine implements the log-structured storage engine: an
// in-memory index backed by an append-only on-disk log, with online
// compaction that swaps the live data file without blocking readers.
package engine

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog/log"
)

// DefaultCompactThreshold is the default dangling-byte budget before a
// write triggers compaction.
const DefaultCompactThreshold = 1 << 20 // 1 MiB

// readerView is the double-buffered (index, file handle) pair readers
// consult. Compaction publishes a brand new readerView atomically, once
// both the rekeyed index and the renamed file's read handle are ready;
// readers that already loaded the previous view keep using its (now
// detached) file handle until it is garbage collected, so a Get concurrent
// with a compaction swap never mixes an old Meta with the new file or
// vice versa.
type readerView struct {
	idx  index
	file *os.File
}

// Engine is a clone-able handle: all of its methods are safe to call from
// many goroutines at once. Clone it by sharing the pointer; there is no
// per-clone state to duplicate.
type Engine struct {
	dir string

	view atomic.Pointer[readerView]

	// writer mutex: guards writer, writeOffset, danglingBytes and all index
	// mutations. Readers never take it.
	mu               sync.Mutex
	writer           *os.File
	writeOffset      uint64
	danglingBytes    uint64
	compactThreshold uint64
}

// Open creates dir if missing, replays data to rebuild the index, and
// opens the writer/reader handles. threshold <= 0 means
// DefaultCompactThreshold.
func Open(dir string, threshold uint64) (*Engine, error) {
	if threshold == 0 {
		threshold = DefaultCompactThreshold
	}
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("%w: mkdir %s: %v", ErrIO, dir, err)
	}

	dataPath := filepath.Join(dir, dataFileName)
	idx, danglingBytes, err := replay(dataPath)
	if err != nil {
		return nil, err
	}

	writer, err := openAppend(dataPath)
	if err != nil {
		return nil, err
	}
	reader, err := openPread(dataPath)
	if err != nil {
		writer.Close()
		return nil, err
	}
	stat, err := reader.Stat()
	if err != nil {
		writer.Close()
		reader.Close()
		return nil, fmt.Errorf("%w: stat %s: %v", ErrIO, dataPath, err)
	}

	e := &Engine{
		dir:              dir,
		writer:           writer,
		writeOffset:      uint64(stat.Size()),
		danglingBytes:    danglingBytes,
		compactThreshold: threshold,
	}
	e.view.Store(&readerView{idx: idx, file: reader})

	log.Info().Str("dir", dir).Uint64("write_offset", e.writeOffset).
		Uint64("dangling_bytes", danglingBytes).Msg("engine opened")
	return e, nil
}

// replay scans data from offset 0, rebuilding the index. A parse
// failure mid-file is corruption: open must fail, not truncate.
//
// Offsets and lengths are tracked by hand from a line-oriented read
// rather than from json.Decoder.InputOffset: the decoder's offset marks
// the end of the most recently returned token, not the start of the
// next one, so across the '\n' separators append() writes between
// records it is consistently one byte off from the record's true span.
func replay(dataPath string) (index, uint64, error) {
	idx := newIndex()

	f, err := os.OpenFile(dataPath, os.O_CREATE|os.O_RDONLY, 0640)
	if err != nil {
		return idx, 0, fmt.Errorf("%w: open %s: %v", ErrIO, dataPath, err)
	}
	defer f.Close()

	var danglingBytes uint64
	var offset uint64
	br := bufio.NewReader(f)
	for {
		line, readErr := br.ReadBytes('\n')
		body := line
		if n := len(body); n > 0 && body[n-1] == '\n' {
			body = body[:n-1]
		}
		if len(body) == 0 {
			if readErr == io.EOF {
				break
			}
			if readErr != nil {
				return idx, 0, fmt.Errorf("%w: replay %s at offset %d: %v", ErrIO, dataPath, offset, readErr)
			}
		}

		start := offset
		length := uint64(len(body))

		var r record
		if err := json.Unmarshal(body, &r); err != nil {
			return idx, 0, fmt.Errorf("%w: replay %s at offset %d: %v", ErrCorruption, dataPath, start, err)
		}

		switch r.Op {
		case opSet:
			if prev, had := indexSet(&idx, r.Key, Meta{Offset: start, Length: length}); had {
				danglingBytes += prev.Length
			}
		case opRemove:
			if prev, had := indexRemove(&idx, r.Key); had {
				danglingBytes += prev.Length
			}
			danglingBytes += length
		default:
			return idx, 0, fmt.Errorf("%w: replay %s: unknown op %q", ErrCorruption, dataPath, r.Op)
		}

		offset += length + 1 // +1 for the '\n' separator, present on every complete record

		if readErr == io.EOF {
			break
		}
	}
	return idx, danglingBytes, nil
}

// Set encodes and appends a Set record, then opportunistically compacts
// if the dangling-bytes threshold has been crossed.
func (e *Engine) Set(key, value string) error {
	if key == "" {
		return fmt.Errorf("%w: empty key", ErrIO)
	}
	body, err := encodeRecord(record{Op: opSet, Key: key, Value: value})
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	offset := e.writeOffset
	if err := e.append(body); err != nil {
		return err
	}

	view := e.view.Load()
	if prev, had := indexSet(&view.idx, key, Meta{Offset: offset, Length: uint64(len(body))}); had {
		e.danglingBytes += prev.Length
	}

	return e.compactIfNeededLocked()
}

// Get answers a read-only query against the index and, on a hit, issues a
// positional read through the reader's handle.
func (e *Engine) Get(key string) (string, bool, error) {
	view := e.view.Load()
	meta, ok := indexGet(&view.idx, key)
	if !ok {
		return "", false, nil
	}

	buf := make([]byte, meta.Length)
	if _, err := view.file.ReadAt(buf, int64(meta.Offset)); err != nil {
		return "", false, fmt.Errorf("%w: read %s at %d: %v", ErrIO, filepath.Join(e.dir, dataFileName), meta.Offset, err)
	}
	r, err := decodeRecord(buf)
	if err != nil {
		return "", false, err
	}
	if r.Op != opSet {
		return "", false, fmt.Errorf("%w: indexed record at %d is not a Set", ErrCorruption, meta.Offset)
	}
	return r.Value, true, nil
}

// Remove looks up key; absent keys are KeyNotFound and write no record.
func (e *Engine) Remove(key string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	view := e.view.Load()
	meta, ok := indexGet(&view.idx, key)
	if !ok {
		return ErrKeyNotFound
	}

	body, err := encodeRecord(record{Op: opRemove, Key: key})
	if err != nil {
		return err
	}
	if err := e.append(body); err != nil {
		return err
	}

	indexRemove(&view.idx, key)
	e.danglingBytes += meta.Length + uint64(len(body))

	return e.compactIfNeededLocked()
}

// append writes body followed by a newline separator and flushes it to
// stable storage before returning, so a crash right after Set/Remove
// returns never loses the record. Caller must hold e.mu.
func (e *Engine) append(body []byte) error {
	buf := make([]byte, 0, len(body)+1)
	buf = append(buf, body...)
	buf = append(buf, '\n')
	if _, err := e.writer.Write(buf); err != nil {
		return fmt.Errorf("%w: append: %v", ErrIO, err)
	}
	if err := e.writer.Sync(); err != nil {
		return fmt.Errorf("%w: sync: %v", ErrIO, err)
	}
	e.writeOffset += uint64(len(body)) + 1
	return nil
}

// Close releases the writer handle. The current reader handle is left to
// the garbage collector's *os.File finalizer, same as a retired
// post-compaction handle (see compact.go) — nothing else holds open
// in-flight reads against it once the caller stops using the Engine.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.writer.Close(); err != nil {
		return fmt.Errorf("%w: close writer: %v", ErrIO, err)
	}
	return nil
}

// Dir returns the engine's directory, for the engine-selection marker file
// which lives alongside it as an external collaborator.
func (e *Engine) Dir() string { return e.dir }
