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
	"bufio"
	"errors"
	"io"
	"net"

	"github.com/rs/zerolog/log"

	"github.com/launix-de/kvs/internal/engine"
	"github.com/launix-de/kvs/internal/proto"
)

// handleConn decodes a request, calls the engine, encodes the reply, flushes,
// repeat until the stream ends or a parse error occurs.
func handleConn(eng *engine.Engine, conn net.Conn, connID string) {
	defer conn.Close()

	dec := proto.NewRequestDecoder(conn)
	w := bufio.NewWriter(conn)

	logger := log.With().Str("conn_id", connID).Str("remote", conn.RemoteAddr().String()).Logger()
	logger.Debug().Msg("connection accepted")

	for {
		req, err := dec.Next()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				logger.Warn().Err(err).Msg("parse error, closing connection")
			}
			return
		}

		reply := dispatch(eng, req)

		body, err := proto.EncodeReply(reply)
		if err != nil {
			logger.Error().Err(err).Msg("failed to encode reply")
			return
		}
		if _, err := w.Write(body); err != nil {
			logger.Warn().Err(err).Msg("write error, closing connection")
			return
		}
		if err := w.Flush(); err != nil {
			logger.Warn().Err(err).Msg("flush error, closing connection")
			return
		}
	}
}

// dispatch implements the three request/reply mappings.
func dispatch(eng *engine.Engine, req proto.Request) proto.Reply {
	switch req.Verb {
	case proto.VerbGet:
		value, found, err := eng.Get(req.Key)
		if err != nil {
			return proto.ErrorReply(err.Error())
		}
		if !found {
			return proto.SimpleReply("Key not found")
		}
		return proto.SimpleReply(value)

	case proto.VerbSet:
		if err := eng.Set(req.Key, req.Value); err != nil {
			return proto.ErrorReply(err.Error())
		}
		return proto.SimpleReply("")

	case proto.VerbRemove:
		if err := eng.Remove(req.Key); err != nil {
			return proto.ErrorReply(err.Error())
		}
		return proto.SimpleReply("")

	default:
		return proto.ErrorReply("unsupported verb")
	}
}
