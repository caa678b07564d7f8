package wire

import (
	"bytes"
	"encoding/binary"
	"errors"
)

const (
	version   byte = 1
	kindEntry byte = 1
)

var (
	ErrCorrupt = errors.New("querysync: corrupt entry")
	magic4     = [...]byte{'Q', 'S', 'Y', 'N'}
)

const entryHeader = 4 + 1 + 1 + 8 + 4

func hasMagic(b []byte) bool {
	return len(b) >= 4 && bytes.Equal(b[:4], magic4[:])
}

// Entry: magic(4) | ver(1) | kind(1=entry) | writtenAt(i64 be, unix nanos) | vlen(u32 be) | payload(vlen)
func EncodeEntry(writtenAt int64, payload []byte) []byte {
	var buf bytes.Buffer
	buf.Grow(entryHeader + len(payload))

	buf.Write(magic4[:])
	buf.WriteByte(version)
	buf.WriteByte(kindEntry)

	var u8 [8]byte
	var u4 [4]byte

	binary.BigEndian.PutUint64(u8[:], uint64(writtenAt))
	buf.Write(u8[:])

	binary.BigEndian.PutUint32(u4[:], uint32(len(payload)))
	buf.Write(u4[:])

	buf.Write(payload)
	return buf.Bytes()
}

// DecodeEntry is strict: trailing bytes after the payload are rejected.
func DecodeEntry(b []byte) (writtenAt int64, payload []byte, err error) {
	if len(b) < entryHeader || !hasMagic(b) || b[4] != version || b[5] != kindEntry {
		return 0, nil, ErrCorrupt
	}

	off := 6
	writtenAt = int64(binary.BigEndian.Uint64(b[off : off+8]))
	off += 8

	vlen := int(binary.BigEndian.Uint32(b[off : off+4]))
	off += 4
	if vlen < 0 || vlen != len(b)-off {
		return 0, nil, ErrCorrupt
	}

	return writtenAt, b[off : off+vlen], nil
}
