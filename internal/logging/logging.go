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

// Package logging configures the process-wide zerolog logger. The teacher
// itself logs with bare fmt.Print (see storage/database.go); this package
// brings in structured logging the way the rest of the pack does it
// (bgpfix wires up zerolog the same way: one console writer for
// interactive use, plain JSON otherwise).
package logging

import (
	"os"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Init installs the global logger. When stderr is a terminal, output is
// human-readable; otherwise it is newline-delimited JSON, suited to being
// piped into a log collector.
func Init(levelName string) {
	level, err := zerolog.ParseLevel(levelName)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	var w zerolog.Logger
	if isatty.IsTerminal(os.Stderr.Fd()) {
		w = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	} else {
		w = zerolog.New(os.Stderr)
	}
	log.Logger = w.With().Timestamp().Logger()
}
