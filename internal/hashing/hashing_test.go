package hashing

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestHashReaderDeterministic(t *testing.T) {
	data := make([]byte, 3*ReadChunkSize+17)
	for i := range data {
		data[i] = byte(i % 251)
	}

	first, err := HashReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("HashReader: %v", err)
	}
	second, err := HashReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("HashReader: %v", err)
	}

	if first != second {
		t.Errorf("same content produced different checksums: %v vs %v", first, second)
	}
}

func TestIncrementalMatchesOneShot(t *testing.T) {
	data := []byte("the quick brown fox jumps over the lazy dog")

	oneShot := New()
	oneShot.Write(data)

	incremental := New()
	for _, b := range data {
		incremental.Write([]byte{b})
	}

	if oneShot.Sum() != incremental.Sum() {
		t.Errorf("incremental hashing diverged from one-shot: %v vs %v",
			incremental.Sum(), oneShot.Sum())
	}
}

func TestCRC32KnownValue(t *testing.T) {
	// Standard CRC-32/IEEE check value.
	h := New()
	h.Write([]byte("123456789"))
	sums := h.Sum()

	if sums.CRC32 != 0xCBF43926 {
		t.Errorf("CRC32 = %08X, want CBF43926", sums.CRC32)
	}
	if sums.CRC32Hex() != "CBF43926" {
		t.Errorf("CRC32Hex = %q, want %q", sums.CRC32Hex(), "CBF43926")
	}
}

func TestMatchCRC32(t *testing.T) {
	h := New()
	h.Write([]byte("123456789"))
	sums := h.Sum()

	if !sums.MatchCRC32("CBF43926") {
		t.Error("upper-case control value did not match")
	}
	if !sums.MatchCRC32("cbf43926") {
		t.Error("lower-case control value did not match")
	}
	if sums.MatchCRC32("00000000") {
		t.Error("wrong control value matched")
	}
	if sums.MatchCRC32("not-hex") {
		t.Error("unparsable control value matched")
	}
}

func TestDigestHexCanonical(t *testing.T) {
	h := New()
	h.Write([]byte("abc"))
	digest := h.Sum().Digest

	hexForm := digest.Hex()
	if len(hexForm) != 64 {
		t.Fatalf("Hex length = %d, want 64", len(hexForm))
	}
	if hexForm != strings.ToUpper(hexForm) {
		t.Errorf("Hex is not upper-case: %q", hexForm)
	}
}

func TestParseDigestCaseInsensitive(t *testing.T) {
	h := New()
	h.Write([]byte("abc"))
	digest := h.Sum().Digest

	upper, err := ParseDigest(digest.Hex())
	if err != nil {
		t.Fatalf("ParseDigest(upper): %v", err)
	}
	lower, err := ParseDigest(strings.ToLower(digest.Hex()))
	if err != nil {
		t.Fatalf("ParseDigest(lower): %v", err)
	}

	if upper != digest || lower != digest {
		t.Error("parsed digests do not round-trip")
	}
}

func TestParseDigestInvalid(t *testing.T) {
	if _, err := ParseDigest("zz"); err == nil {
		t.Error("expected error for non-hex input")
	}
	if _, err := ParseDigest("abcd"); err == nil {
		t.Error("expected error for short input")
	}
}

func TestHashFileMatchesReader(t *testing.T) {
	data := make([]byte, ReadChunkSize+123)
	for i := range data {
		data[i] = byte(i % 256)
	}

	path := filepath.Join(t.TempDir(), "payload.bin")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write payload: %v", err)
	}

	fromFile, err := HashFile(path)
	if err != nil {
		t.Fatalf("HashFile: %v", err)
	}
	fromReader, err := HashReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("HashReader: %v", err)
	}

	if fromFile != fromReader {
		t.Errorf("file and reader checksums differ: %v vs %v", fromFile, fromReader)
	}
}

func TestHashFileMissing(t *testing.T) {
	if _, err := HashFile(filepath.Join(t.TempDir(), "absent")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestIsZero(t *testing.T) {
	var zero Digest
	if !zero.IsZero() {
		t.Error("zero digest not reported as zero")
	}

	h := New()
	h.Write([]byte("x"))
	if h.Sum().Digest.IsZero() {
		t.Error("real digest reported as zero")
	}
}
