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
package client

import (
	"bufio"
	"net"
	"testing"

	"github.com/launix-de/kvs/internal/proto"
)

func TestDialRefused(t *testing.T) {
	if _, err := Dial("127.0.0.1:1"); err == nil {
		t.Fatal("expected Dial to a closed port to fail")
	}
}

// fakeServer accepts one connection and replies to whatever single
// request it receives with reply, for testing Client against a
// hand-written peer rather than the real handler.
func fakeServer(t *testing.T, reply proto.Reply) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { ln.Close() })

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		r := bufio.NewReader(conn)
		if _, err := proto.DecodeRequest(r); err != nil {
			return
		}
		body, err := proto.EncodeReply(reply)
		if err != nil {
			return
		}
		conn.Write(body)
	}()
	return ln.Addr().String()
}

func TestGetSurfacesErrorReply(t *testing.T) {
	addr := fakeServer(t, proto.ErrorReply("boom"))
	c, err := Dial(addr)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	if _, err := c.Get("k"); err == nil || err.Error() != "boom" {
		t.Fatalf("Get error = %v, want \"boom\"", err)
	}
}

func TestRemoveSurfacesErrorReply(t *testing.T) {
	addr := fakeServer(t, proto.ErrorReply("key not found"))
	c, err := Dial(addr)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	if err := c.Remove("k"); err == nil || err.Error() != "key not found" {
		t.Fatalf("Remove error = %v, want \"key not found\"", err)
	}
}
