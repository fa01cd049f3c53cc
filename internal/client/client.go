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

// Package client is the thin kvs-client connection: one TCP connection,
// three commands (get/set/rm), and the simple-string/error reply contract
// the wire protocol defines. Grounded on original_source/src/client.rs,
// which is just as thin (dial, write request, read one reply, hand the
// result back).
package client

import (
	"bufio"
	"fmt"
	"net"
	"time"

	"github.com/launix-de/kvs/internal/proto"
)

// ConnectTimeout is the client->server connect timeout.
const ConnectTimeout = 3 * time.Second

// Client holds one open connection, reused across commands in interactive
// mode instead of reconnecting for every line.
type Client struct {
	conn net.Conn
	r    *bufio.Reader
	w    *bufio.Writer
}

// Dial opens a connection to addr.
func Dial(addr string) (*Client, error) {
	conn, err := net.DialTimeout("tcp", addr, ConnectTimeout)
	if err != nil {
		return nil, fmt.Errorf("connect to %s: %w", addr, err)
	}
	return &Client{conn: conn, r: bufio.NewReader(conn), w: bufio.NewWriter(conn)}, nil
}

func (c *Client) Close() error { return c.conn.Close() }

func (c *Client) roundtrip(req proto.Request) (proto.Reply, error) {
	body, err := proto.EncodeRequest(req)
	if err != nil {
		return proto.Reply{}, err
	}
	if _, err := c.w.Write(body); err != nil {
		return proto.Reply{}, fmt.Errorf("write request: %w", err)
	}
	if err := c.w.Flush(); err != nil {
		return proto.Reply{}, fmt.Errorf("flush request: %w", err)
	}
	reply, err := proto.DecodeReply(c.r)
	if err != nil {
		return proto.Reply{}, fmt.Errorf("decode reply: %w", err)
	}
	return reply, nil
}

// Get returns the value string to print on stdout (possibly "Key not
// found"), or an error for the caller to print on stderr.
func (c *Client) Get(key string) (string, error) {
	reply, err := c.roundtrip(proto.Request{Verb: proto.VerbGet, Key: key})
	if err != nil {
		return "", err
	}
	if reply.Kind == proto.ReplyError {
		return "", fmt.Errorf("%s", reply.Str)
	}
	return reply.Str, nil
}

// Set performs a SET; there is nothing to print on success.
func (c *Client) Set(key, value string) error {
	reply, err := c.roundtrip(proto.Request{Verb: proto.VerbSet, Key: key, Value: value})
	if err != nil {
		return err
	}
	if reply.Kind == proto.ReplyError {
		return fmt.Errorf("%s", reply.Str)
	}
	return nil
}

// Remove performs a REMOVE; KeyNotFound surfaces as an error.
func (c *Client) Remove(key string) error {
	reply, err := c.roundtrip(proto.Request{Verb: proto.VerbRemove, Key: key})
	if err != nil {
		return err
	}
	if reply.Kind == proto.ReplyError {
		return fmt.Errorf("%s", reply.Str)
	}
	return nil
}
