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
package proto

import (
	"bufio"
	"bytes"
	"errors"
	"testing"
)

func TestEncodeDecodeRequestRoundtrip(t *testing.T) {
	cases := []Request{
		{Verb: VerbGet, Key: "foo"},
		{Verb: VerbSet, Key: "foo", Value: "bar"},
		{Verb: VerbRemove, Key: "foo"},
		{Verb: VerbSet, Key: "k", Value: ""},
	}
	for _, want := range cases {
		encoded, err := EncodeRequest(want)
		if err != nil {
			t.Fatalf("encode %+v: %v", want, err)
		}
		got, err := DecodeRequest(bufio.NewReader(bytes.NewReader(encoded)))
		if err != nil {
			t.Fatalf("decode %q: %v", encoded, err)
		}
		if got != want {
			t.Fatalf("roundtrip %+v -> %q -> %+v", want, encoded, got)
		}
	}
}

func TestEncodeDecodeReplyRoundtrip(t *testing.T) {
	cases := []Reply{
		SimpleReply("bar"),
		SimpleReply(""),
		ErrorReply("Key not found"),
		IntReply(42),
		IntReply(-1),
	}
	for _, want := range cases {
		encoded, err := EncodeReply(want)
		if err != nil {
			t.Fatalf("encode %+v: %v", want, err)
		}
		got, err := DecodeReply(bufio.NewReader(bytes.NewReader(encoded)))
		if err != nil {
			t.Fatalf("decode %q: %v", encoded, err)
		}
		if got != want {
			t.Fatalf("roundtrip %+v -> %q -> %+v", want, encoded, got)
		}
	}
}

func TestEncodeWireFormat(t *testing.T) {
	got, err := EncodeRequest(Request{Verb: VerbSet, Key: "k", Value: "v"})
	if err != nil {
		t.Fatal(err)
	}
	if want := "*3\r\nSET\r\nk\r\nv\r\n"; string(got) != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestDecodeRequestMissingTerminator(t *testing.T) {
	_, err := DecodeRequest(bufio.NewReader(bytes.NewReader([]byte("*2\r\nGET\r\nfoo"))))
	if !errors.Is(err, ErrParse) {
		t.Fatalf("expected ErrParse for missing terminator, got %v", err)
	}
}

func TestDecodeReplyBadInteger(t *testing.T) {
	_, err := DecodeReply(bufio.NewReader(bytes.NewReader([]byte(":notanumber\r\n"))))
	if !errors.Is(err, ErrParse) {
		t.Fatalf("expected ErrParse for bad integer, got %v", err)
	}
}

func TestDecodeRequestUnsupportedVerb(t *testing.T) {
	_, err := DecodeRequest(bufio.NewReader(bytes.NewReader([]byte("*2\r\nPING\r\nfoo\r\n"))))
	if !errors.Is(err, ErrParse) {
		t.Fatalf("expected ErrParse for unsupported verb, got %v", err)
	}
}

func TestDecodeRequestWrongArity(t *testing.T) {
	_, err := DecodeRequest(bufio.NewReader(bytes.NewReader([]byte("*3\r\nGET\r\nfoo\r\nbar\r\n"))))
	if !errors.Is(err, ErrParse) {
		t.Fatalf("expected ErrParse for wrong arity, got %v", err)
	}
}

func TestEncodeRequestRejectsOpaqueValue(t *testing.T) {
	_, err := EncodeRequest(Request{Verb: VerbSet, Key: "k", Value: "line1\r\nline2"})
	if !errors.Is(err, ErrParse) {
		t.Fatalf("expected ErrParse for embedded CRLF, got %v", err)
	}
}

func TestRequestDecoderCleanEOF(t *testing.T) {
	dec := NewRequestDecoder(bytes.NewReader(nil))
	if _, err := dec.Next(); err == nil {
		t.Fatal("expected an error (EOF) on empty stream")
	}
}

func TestRequestDecoderMultipleRequests(t *testing.T) {
	var buf bytes.Buffer
	for _, v := range []string{"a", "b", "c"} {
		enc, _ := EncodeRequest(Request{Verb: VerbGet, Key: v})
		buf.Write(enc)
	}
	dec := NewRequestDecoder(&buf)
	for _, want := range []string{"a", "b", "c"} {
		req, err := dec.Next()
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		if req.Key != want {
			t.Fatalf("got key %q, want %q", req.Key, want)
		}
	}
	if _, err := dec.Next(); err == nil {
		t.Fatal("expected EOF after last request")
	}
}
