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

// Package server implements the network server and the per-connection
// handler. Grounded on scm/network.go's HTTPServe
// (which wraps a stdlib server in a small adapter and runs its accept loop
// on its own goroutine) generalized from net/http's managed listener to a
// raw net.Listener, since the wire protocol here is not HTTP.
package server

import (
	"net"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/jtolds/gls"
	"github.com/puzpuzpuz/xsync/v3"
	"github.com/rs/zerolog/log"
	"golang.org/x/sys/unix"

	"github.com/launix-de/kvs/internal/engine"
	"github.com/launix-de/kvs/internal/pool"
)

// connIDMgr gives every connection a gls-propagated correlation id, so code
// running on the pool worker that serves the connection can read it through
// ConnID without the id being threaded through every function signature.
// The handler's own log lines carry the id it is passed directly; the
// engine's log lines do not include it. Grounded on storage/compute.go,
// storage/scan_order.go and storage/partition.go, which use the same
// jtolds/gls package to carry per-goroutine context through a worker
// pool's data-parallel callbacks.
var connIDMgr = gls.NewContextManager()

// ConnID returns the correlation id of the connection currently executing
// on this goroutine, or "" outside of any connection's context.
func ConnID() string {
	if v, ok := connIDMgr.GetValue("conn_id"); ok {
		return v.(string)
	}
	return ""
}

// Server accepts connections on a reused, zero-linger socket and
// dispatches each one into a worker pool running the connection handler.
type Server struct {
	addr   string
	engine *engine.Engine
	pool   *pool.Pool

	ln     net.Listener
	closed atomic.Bool

	active sync.WaitGroup // connections handed to the pool whose handler has not returned, for Wait

	// conns is the live-connection registry: connection id -> accept time.
	// A plain concurrent map is the right structure for it, since entries
	// are only ever inserted by the accept loop and removed by the
	// connection's own handler goroutine, never scanned-and-mutated by a
	// third party. Reads (ActiveConnections, dashboard-style reporting)
	// never block writers and vice versa.
	conns *xsync.MapOf[string, time.Time]
}

// New builds a Server bound to addr, dispatching into a pool of workers
// worker count (max(1, cpu_count) is the caller's job to pick; Server
// itself just takes whatever pool it's given).
func New(addr string, eng *engine.Engine, workers *pool.Pool) *Server {
	return &Server{addr: addr, engine: eng, pool: workers, conns: xsync.NewMapOf[string, time.Time]()}
}

// ActiveConnections reports how many connections are currently registered,
// for a dashboard-style caller.
func (s *Server) ActiveConnections() int {
	return s.conns.Size()
}

// listenConfig enables SO_REUSEADDR/SO_REUSEPORT on the listening socket,
// so a restarted server can rebind the same address immediately.
func listenConfig() net.ListenConfig {
	return net.ListenConfig{
		Control: func(_, _ string, c syscall.RawConn) error {
			var sockErr error
			err := c.Control(func(fd uintptr) {
				sockErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEADDR, 1)
				if sockErr != nil {
					return
				}
				sockErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEPORT, 1)
			})
			if err != nil {
				return err
			}
			return sockErr
		},
	}
}

// Run binds and listens, then accepts connections until Shutdown is
// called. It returns nil on a clean shutdown.
func (s *Server) Run() error {
	lc := listenConfig()
	ln, err := lc.Listen(nil, "tcp", s.addr)
	if err != nil {
		return err
	}
	s.ln = ln
	log.Info().Str("addr", s.addr).Msg("listening")

	for {
		conn, err := s.ln.Accept()
		if err != nil {
			if s.closed.Load() {
				return nil // shutdown forced accept to fail; clean return
			}
			log.Warn().Err(err).Msg("accept error")
			continue
		}

		id := uuid.NewString()
		if tc, ok := conn.(*net.TCPConn); ok {
			// Zero linger: release the port promptly on close, so repeated
			// benchmark runs against the same address don't hit TIME_WAIT.
			_ = tc.SetLinger(0)
		}

		eng := s.engine // the engine handle is clone-able; sharing the pointer is the clone
		s.conns.Store(id, time.Now())
		s.active.Add(1)
		s.pool.Submit(func() {
			defer s.active.Done()
			defer s.conns.Delete(id)
			connIDMgr.SetValues(gls.Values{"conn_id": id}, func() {
				handleConn(eng, conn, id)
			})
		})
	}
}

// Shutdown raises the close flag and forces the listener out of Accept.
// In-flight handlers are not interrupted; Shutdown does not wait
// for them (the caller may additionally wait on the pool if it wants a
// fully drained shutdown).
func (s *Server) Shutdown() error {
	s.closed.Store(true)
	if s.ln == nil {
		return nil
	}
	return s.ln.Close()
}

// Wait blocks until every connection handed to the pool has returned.
func (s *Server) Wait() { s.active.Wait() }
