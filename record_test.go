package kvstore

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	cases := []Command{
		SetCommand("a", "1"),
		SetCommand("", ""),
		RemoveCommand("a"),
		SetCommand(strings.Repeat("k", 70000), strings.Repeat("v", 1<<20)),
		SetCommand("unicode-é中文", "é中文-value"),
	}
	var buf bytes.Buffer
	for _, cmd := range cases {
		if err := encodeCommand(&buf, cmd); err != nil {
			t.Fatalf("encodeCommand(%v): %v", cmd, err)
		}
	}
	for i, want := range cases {
		got, err := decodeCommand(&buf)
		if err != nil {
			t.Fatalf("decodeCommand #%d: %v", i, err)
		}
		if got != want {
			t.Fatalf("decodeCommand #%d = %+v, want %+v", i, got, want)
		}
	}
	if _, err := decodeCommand(&buf); err != io.EOF {
		t.Fatalf("decodeCommand at end = %v, want io.EOF", err)
	}
}

func TestDecodeEmptyStreamIsEOF(t *testing.T) {
	if _, err := decodeCommand(bytes.NewReader(nil)); err != io.EOF {
		t.Fatalf("decodeCommand(empty) = %v, want io.EOF", err)
	}
}

func TestDecodeTruncatedRecordIsEOF(t *testing.T) {
	var buf bytes.Buffer
	if err := encodeCommand(&buf, SetCommand("key", "value")); err != nil {
		t.Fatal(err)
	}
	full := buf.Bytes()
	for cut := 1; cut < len(full); cut++ {
		r := bytes.NewReader(full[:cut])
		if _, err := decodeCommand(r); err != io.EOF {
			t.Fatalf("decodeCommand(truncated at %d) = %v, want io.EOF", cut, err)
		}
	}
}

func TestDecodeChecksumMismatchIsCorrupt(t *testing.T) {
	var buf bytes.Buffer
	if err := encodeCommand(&buf, SetCommand("key", "value")); err != nil {
		t.Fatal(err)
	}
	corrupted := buf.Bytes()
	corrupted[len(corrupted)-1] ^= 0xff
	if _, err := decodeCommand(bytes.NewReader(corrupted)); err == nil {
		t.Fatal("expected corruption error, got nil")
	} else if !errors.Is(err, ErrCorrupt) {
		t.Fatalf("decodeCommand(corrupted) = %v, want wrapping ErrCorrupt", err)
	}
}

func TestDecodeUnknownKindIsCorrupt(t *testing.T) {
	buf := []byte{0xff, 0, 0, 0, 0}
	if _, err := decodeCommand(bytes.NewReader(buf)); !errors.Is(err, ErrCorrupt) {
		t.Fatalf("decodeCommand(unknown kind) = %v, want wrapping ErrCorrupt", err)
	}
}
