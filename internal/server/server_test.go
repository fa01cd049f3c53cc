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
package server

import (
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/launix-de/kvs/internal/client"
	"github.com/launix-de/kvs/internal/engine"
	"github.com/launix-de/kvs/internal/pool"
)

// startTestServer binds to an OS-assigned port on loopback and returns its
// address once Run has actually started listening.
func startTestServer(t *testing.T) (addr string, srv *Server, eng *engine.Engine) {
	t.Helper()
	dir, err := os.MkdirTemp("", "kvs-server-test-*")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.RemoveAll(dir) })

	eng, err = engine.Open(dir, 0)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { eng.Close() })

	workers := pool.New(4)
	srv = New("127.0.0.1:0", eng, workers)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Run() }()

	deadline := time.Now().Add(2 * time.Second)
	for srv.ln == nil {
		select {
		case err := <-errCh:
			t.Fatalf("server exited early: %v", err)
		default:
		}
		if time.Now().After(deadline) {
			t.Fatal("timed out waiting for server to start listening")
		}
		time.Sleep(time.Millisecond)
	}

	t.Cleanup(func() {
		srv.Shutdown()
		srv.Wait()
	})

	return srv.ln.Addr().String(), srv, eng
}

// TestClientServerRoundtripOverTCP covers set/get/rm/get over a real TCP connection,
// matching the CLI's exact contract.
func TestClientServerRoundtripOverTCP(t *testing.T) {
	addr, _, _ := startTestServer(t)

	c, err := client.Dial(addr)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	if err := c.Set("foo", "bar"); err != nil {
		t.Fatalf("set: %v", err)
	}
	v, err := c.Get("foo")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if v != "bar" {
		t.Fatalf("get foo = %q, want %q", v, "bar")
	}
	if err := c.Remove("foo"); err != nil {
		t.Fatalf("rm: %v", err)
	}
	v, err = c.Get("foo")
	if err != nil {
		t.Fatalf("get after rm: %v", err)
	}
	if v != "Key not found" {
		t.Fatalf("get foo after rm = %q, want %q", v, "Key not found")
	}
}

// TestConcurrentClientsDistinctKeys covers many concurrent clients setting distinct keys,
// then many concurrent clients getting them back, every one correct
// regardless of interleaving.
func TestConcurrentClientsDistinctKeys(t *testing.T) {
	addr, _, _ := startTestServer(t)

	const n = 1000
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		i := i
		go func() {
			defer wg.Done()
			c, err := client.Dial(addr)
			if err != nil {
				t.Error(err)
				return
			}
			defer c.Close()
			key, val := fmt.Sprintf("key%d", i), fmt.Sprintf("value%d", i)
			if err := c.Set(key, val); err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()

	wg.Add(n)
	for i := 0; i < n; i++ {
		i := i
		go func() {
			defer wg.Done()
			c, err := client.Dial(addr)
			if err != nil {
				t.Error(err)
				return
			}
			defer c.Close()
			key, want := fmt.Sprintf("key%d", i), fmt.Sprintf("value%d", i)
			got, err := c.Get(key)
			if err != nil {
				t.Error(err)
				return
			}
			if got != want {
				t.Errorf("get %s = %q, want %q", key, got, want)
			}
		}()
	}
	wg.Wait()
}

func TestActiveConnectionsTracksLifecycle(t *testing.T) {
	addr, srv, _ := startTestServer(t)

	c, err := client.Dial(addr)
	if err != nil {
		t.Fatal(err)
	}
	if err := c.Set("k", "v"); err != nil {
		t.Fatal(err)
	}
	c.Close()

	deadline := time.Now().Add(2 * time.Second)
	for srv.ActiveConnections() != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("ActiveConnections stuck at %d after connection close", srv.ActiveConnections())
		}
		time.Sleep(time.Millisecond)
	}
}

func TestConnIDEmptyOutsideHandler(t *testing.T) {
	if got := ConnID(); got != "" {
		t.Fatalf("ConnID() outside a connection = %q, want empty", got)
	}
}

// BenchmarkServerRoundtrip measures one get/set request/reply pair over a
// reused connection. Grounded on original_source/benches/server_bench.rs.
func BenchmarkServerRoundtrip(b *testing.B) {
	dir, err := os.MkdirTemp("", "kvs-server-bench-*")
	if err != nil {
		b.Fatal(err)
	}
	defer os.RemoveAll(dir)

	eng, err := engine.Open(dir, 0)
	if err != nil {
		b.Fatal(err)
	}
	defer eng.Close()

	workers := pool.New(4)
	srv := New("127.0.0.1:0", eng, workers)
	go srv.Run()
	for srv.ln == nil {
		time.Sleep(time.Millisecond)
	}
	defer func() {
		srv.Shutdown()
		srv.Wait()
	}()

	c, err := client.Dial(srv.ln.Addr().String())
	if err != nil {
		b.Fatal(err)
	}
	defer c.Close()

	if err := c.Set("bench", "value"); err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := c.Get("bench"); err != nil {
			b.Fatal(err)
		}
	}
}
