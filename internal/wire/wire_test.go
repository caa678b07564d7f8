package wire

import (
	"bytes"
	"math"
	"testing"
)

func mustDecodeEntry(t *testing.T, b []byte) (int64, []byte) {
	t.Helper()
	at, p, err := DecodeEntry(b)
	if err != nil {
		t.Fatalf("DecodeEntry error: %v", err)
	}
	return at, p
}

func TestEntryEmptyAndNonEmpty(t *testing.T) {
	cases := []struct {
		at      int64
		payload []byte
	}{
		{0, nil},
		{1700000000000000000, []byte("hello")},
		{math.MaxInt64, []byte{0, 1, 2, 3, 4}},
		{-1, []byte("before epoch")},
	}
	for _, tc := range cases {
		enc := EncodeEntry(tc.at, tc.payload)
		at, p := mustDecodeEntry(t, enc)
		if at != tc.at {
			t.Fatalf("writtenAt mismatch: got %d want %d", at, tc.at)
		}
		if !bytes.Equal(p, tc.payload) {
			t.Fatalf("payload mismatch: got %x want %x", p, tc.payload)
		}
	}
}

func TestEntryRejectsTrailingBytes(t *testing.T) {
	enc := EncodeEntry(7, []byte("x"))
	enc = append(enc, 0xDE, 0xAD)
	if _, _, err := DecodeEntry(enc); err == nil {
		t.Fatalf("expected error on trailing bytes")
	}
}

func TestEntryCorruptHeadersAndLengths(t *testing.T) {
	enc := EncodeEntry(1, []byte("abc"))

	badMagic := append([]byte(nil), enc...)
	badMagic[0] = 'X'
	if _, _, err := DecodeEntry(badMagic); err == nil {
		t.Fatalf("expected error on bad magic")
	}

	badVer := append([]byte(nil), enc...)
	badVer[4] = version + 1
	if _, _, err := DecodeEntry(badVer); err == nil {
		t.Fatalf("expected error on bad version")
	}

	badKind := append([]byte(nil), enc...)
	badKind[5] = kindEntry + 1
	if _, _, err := DecodeEntry(badKind); err == nil {
		t.Fatalf("expected error on bad kind")
	}

	if _, _, err := DecodeEntry(enc[:entryHeader-1]); err == nil {
		t.Fatalf("expected error on short header")
	}

	truncated := enc[:len(enc)-1]
	if _, _, err := DecodeEntry(truncated); err == nil {
		t.Fatalf("expected error on truncated payload")
	}
}
