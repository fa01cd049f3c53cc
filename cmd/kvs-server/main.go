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
package main

import (
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/dc0d/onexit"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/launix-de/kvs/internal/config"
	"github.com/launix-de/kvs/internal/engine"
	"github.com/launix-de/kvs/internal/logging"
	"github.com/launix-de/kvs/internal/pool"
	"github.com/launix-de/kvs/internal/server"
)

func main() {
	cfg, err := config.ParseServer(os.Args[1:])
	if err != nil {
		os.Exit(2)
	}
	logging.Init(cfg.LogLevel)

	if cfg.Engine != "kvs" {
		// The alternative embedded backend is an external collaborator
		// this repo doesn't implement; only the selection contract
		// is ours to honor.
		log.Error().Str("engine", cfg.Engine).Msg("unsupported engine")
		os.Exit(1)
	}
	if err := engine.CheckSelection(cfg.Dir, cfg.Engine); err != nil {
		log.Error().Err(err).Msg("engine selection mismatch")
		os.Exit(1)
	}

	eng, err := engine.Open(cfg.Dir, cfg.CompactThreshold)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open engine")
	}

	// Fixed at max(1, cpu_count); the queue behind it
	// is sized 3*workers by pool.New.
	workers := pool.New(runtime.NumCPU())
	srv := server.New(cfg.Addr, eng, workers)

	// dc0d/onexit runs this on normal return AND on the signals we
	// register below, so kvs-server behaves the same whether stopped by
	// Ctrl-C or by a programmatic Shutdown().
	onexit.Register(func() {
		log.Info().Msg("flushing engine before exit")
		if err := eng.Close(); err != nil {
			log.Error().Err(err).Msg("error closing engine")
		}
	})

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	stopWatching := make(chan struct{})

	// errgroup ties the accept loop and the signal watcher together: the
	// watcher calls Shutdown() on SIGINT/SIGTERM, which forces Run() to
	// return nil; closing stopWatching unblocks the watcher if Run()
	// instead exits on its own, so Wait() can't hang on either goroutine.
	var g errgroup.Group
	g.Go(func() error {
		select {
		case <-sig:
			log.Info().Msg("shutdown signal received")
			return srv.Shutdown()
		case <-stopWatching:
			return nil
		}
	})
	g.Go(func() error {
		defer close(stopWatching)
		return srv.Run()
	})

	if err := g.Wait(); err != nil {
		log.Fatal().Err(err).Msg("server exited with error")
	}
	srv.Wait()
	onexit.Exit(0)
}
