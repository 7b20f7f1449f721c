package kvstore

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/spaolacci/murmur3"
)

// CommandKind tags the two variants of the on-disk Command union.
type CommandKind uint8

const (
	// KindSet records a key/value write.
	KindSet CommandKind = 1
	// KindRemove records a tombstone for a key.
	KindRemove CommandKind = 2
)

func (k CommandKind) String() string {
	switch k {
	case KindSet:
		return "Set"
	case KindRemove:
		return "Remove"
	default:
		return fmt.Sprintf("CommandKind(%d)", uint8(k))
	}
}

// Command is the tagged union written to and read from a generation's log.
// A Set carries both Key and Value; a Remove carries only Key.
type Command struct {
	Kind  CommandKind
	Key   string
	Value string
}

// SetCommand builds a Set record for key/value.
func SetCommand(key, value string) Command {
	return Command{Kind: KindSet, Key: key, Value: value}
}

// RemoveCommand builds a Remove record for key.
func RemoveCommand(key string) Command {
	return Command{Kind: KindRemove, Key: key}
}

// EstimatedBytes is the logical on-disk footprint used for wasted-byte
// accounting: len(key)+len(value) for a Set, len(key) for a Remove.
func (c Command) EstimatedBytes() int {
	if c.Kind == KindSet {
		return len(c.Key) + len(c.Value)
	}
	return len(c.Key)
}

// wire format, a single self-delimiting frame:
//
//	kind byte(1)
//	keyLen uint32(4), key bytes
//	[Set only] valueLen uint32(4), value bytes
//	checksum uint32(4) -- murmur3 of everything above in this frame
//
// encodeCommand appends the frame for cmd to w.
func encodeCommand(w io.Writer, cmd Command) error {
	payload := buildPayload(cmd)
	if _, err := w.Write(payload); err != nil {
		return err
	}
	var sumBuf [4]byte
	binary.BigEndian.PutUint32(sumBuf[:], murmur3.Sum32(payload))
	_, err := w.Write(sumBuf[:])
	return err
}

func buildPayload(cmd Command) []byte {
	size := 1 + 4 + len(cmd.Key)
	if cmd.Kind == KindSet {
		size += 4 + len(cmd.Value)
	}
	buf := make([]byte, size)
	buf[0] = byte(cmd.Kind)
	binary.BigEndian.PutUint32(buf[1:5], uint32(len(cmd.Key)))
	off := 5
	off += copy(buf[off:], cmd.Key)
	if cmd.Kind == KindSet {
		binary.BigEndian.PutUint32(buf[off:off+4], uint32(len(cmd.Value)))
		off += 4
		copy(buf[off:], cmd.Value)
	}
	return buf
}

// decodeCommand reads exactly one frame from r.
//
// A frame cannot be fully read because r is at (or runs into) its end is
// reported as io.EOF: this is the clean-termination case used during replay
// to recover from a crash that truncated an in-progress append (see store.go
// replay). A frame with an unknown kind byte, or one that is fully present
// but fails its checksum, is reported as ErrCorrupt, which replay treats as
// fatal.
func decodeCommand(r io.Reader) (Command, error) {
	var kindBuf [1]byte
	if _, err := io.ReadFull(r, kindBuf[:]); err != nil {
		return Command{}, io.EOF
	}
	kind := CommandKind(kindBuf[0])
	if kind != KindSet && kind != KindRemove {
		return Command{}, fmt.Errorf("%w: unknown command kind %d", ErrCorrupt, kindBuf[0])
	}

	key, err := readFramedString(r)
	if err != nil {
		return Command{}, io.EOF
	}

	cmd := Command{Kind: kind, Key: key}
	if kind == KindSet {
		value, err := readFramedString(r)
		if err != nil {
			return Command{}, io.EOF
		}
		cmd.Value = value
	}

	payload := buildPayload(cmd)
	var sumBuf [4]byte
	if _, err := io.ReadFull(r, sumBuf[:]); err != nil {
		return Command{}, io.EOF
	}
	want := binary.BigEndian.Uint32(sumBuf[:])
	if got := murmur3.Sum32(payload); got != want {
		return Command{}, fmt.Errorf("%w: checksum mismatch decoding %s", ErrCorrupt, kind)
	}
	return cmd, nil
}

func readFramedString(r io.Reader) (string, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return "", err
	}
	n := binary.BigEndian.Uint32(lenBuf[:])
	buf := make([]byte, n)
	if n > 0 {
		if _, err := io.ReadFull(r, buf); err != nil {
			return "", err
		}
	}
	return string(buf), nil
}
