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

// Package config resolves kvs-server/kvs-client settings from flags and
// environment overrides. Minimal by design: a thin layer over the
// standard flag package, not a separate config library.
package config

import (
	"flag"
	"fmt"
	"os"

	"github.com/docker/go-units"
	"github.com/spf13/cast"
)

const (
	DefaultAddr   = "127.0.0.1:4000"
	DefaultEngine = "kvs"
)

// ServerConfig is kvs-server's resolved configuration.
type ServerConfig struct {
	Addr             string
	Engine           string
	Dir              string
	CompactThreshold uint64
	LogLevel         string
}

// ParseServer parses args (normally os.Args[1:]). KVS_* environment
// variables replace the built-in flag defaults and an explicit flag wins
// over them; both reach the same parsing, so e.g.
// KVS_COMPACT_THRESHOLD="2MiB" and --compact-threshold=2MiB behave
// identically.
func ParseServer(args []string) (ServerConfig, error) {
	fs := flag.NewFlagSet("kvs-server", flag.ContinueOnError)
	addr := fs.String("addr", envOr("KVS_ADDR", DefaultAddr), "listen address")
	engineName := fs.String("engine", envOr("KVS_ENGINE", DefaultEngine), "storage engine: kvs or sled")
	dir := fs.String("dir", envOr("KVS_DIR", "."), "engine data directory")
	threshold := fs.String("compact-threshold", envOr("KVS_COMPACT_THRESHOLD", "1MiB"), "dangling-bytes threshold before compaction")
	logLevel := fs.String("log-level", envOr("KVS_LOG_LEVEL", "info"), "zerolog level")

	if err := fs.Parse(args); err != nil {
		return ServerConfig{}, err
	}

	thresholdBytes, err := units.RAMInBytes(*threshold)
	if err != nil {
		return ServerConfig{}, fmt.Errorf("invalid --compact-threshold %q: %w", *threshold, err)
	}

	return ServerConfig{
		Addr:             *addr,
		Engine:           cast.ToString(*engineName),
		Dir:              *dir,
		CompactThreshold: uint64(thresholdBytes),
		LogLevel:         *logLevel,
	}, nil
}

// ClientConfig is kvs-client's resolved configuration.
type ClientConfig struct {
	Addr        string
	Interactive bool
}

// ParseClient parses args for kvs-client, returning the remaining
// positional arguments (the subcommand and its operands).
func ParseClient(args []string) (ClientConfig, []string, error) {
	fs := flag.NewFlagSet("kvs-client", flag.ContinueOnError)
	addr := fs.String("addr", envOr("KVS_ADDR", DefaultAddr), "server address")
	interactive := fs.Bool("i", false, "interactive readline mode")

	// fs.Parse stops at the first positional argument; parse again after
	// each one so flags may also follow the subcommand.
	var rest []string
	for {
		if err := fs.Parse(args); err != nil {
			return ClientConfig{}, nil, err
		}
		args = fs.Args()
		if len(args) == 0 {
			break
		}
		rest = append(rest, args[0])
		args = args[1:]
	}
	return ClientConfig{Addr: *addr, Interactive: *interactive}, rest, nil
}

func envOr(key, def string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return def
}
