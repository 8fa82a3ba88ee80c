package hashing

import (
	"encoding/hex"
	"fmt"
	"hash/crc32"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/zeebo/blake3"
)

// ReadChunkSize is the buffer size used when hashing files and streams.
// Model files run into the gigabytes, so everything in this package
// reads through a fixed-size buffer and never holds a full payload in
// memory.
const ReadChunkSize = 512 * 1024

// Digest is a 32-byte BLAKE3 content digest. It is the dedup key for
// downloaded files: two files with the same Digest hold the same bytes.
type Digest [32]byte

// Hex returns the canonical string form of the digest: 64 upper-case
// hex characters. This is the form stored in the location cache and
// printed to users.
func (d Digest) Hex() string {
	return strings.ToUpper(hex.EncodeToString(d[:]))
}

// IsZero reports whether the digest is the zero value. The catalog does
// not declare a hash for every file, so the zero digest is used as the
// "unknown" marker.
func (d Digest) IsZero() bool {
	return d == Digest{}
}

// ParseDigest parses a 64-character hex string into a Digest. Parsing
// is case-insensitive; comparison of two parsed digests is therefore
// independent of the case the catalog happened to use.
func ParseDigest(hexString string) (Digest, error) {
	var digest Digest
	decoded, err := hex.DecodeString(hexString)
	if err != nil {
		return digest, fmt.Errorf("parsing content digest: %w", err)
	}
	if len(decoded) != len(digest) {
		return digest, fmt.Errorf("content digest is %d bytes, want %d", len(decoded), len(digest))
	}
	copy(digest[:], decoded)
	return digest, nil
}

// Checksums holds the result of one pass over a byte stream: the
// primary content digest and the CRC32 (IEEE) checksum computed over
// the same bytes. The CRC exists only because the catalog declares one
// for most files; it is never used as a dedup key.
type Checksums struct {
	Digest Digest
	CRC32  uint32
}

// CRC32Hex returns the checksum as 8 upper-case hex characters, the
// form the catalog declares.
func (c Checksums) CRC32Hex() string {
	return fmt.Sprintf("%08X", c.CRC32)
}

// MatchCRC32 reports whether the checksum equals the given hex control
// value (case-insensitive). An unparsable control value never matches.
func (c Checksums) MatchCRC32(control string) bool {
	value, err := strconv.ParseUint(control, 16, 32)
	if err != nil {
		return false
	}
	return uint32(value) == c.CRC32
}

// Hasher computes a content digest and CRC32 incrementally. Feeding a
// payload through any number of Write calls produces the same result
// as hashing it in one call. The zero value is not usable; call New.
type Hasher struct {
	blake *blake3.Hasher
	crc   uint32
}

// New returns a Hasher ready to accept writes.
func New() *Hasher {
	return &Hasher{blake: blake3.New()}
}

// Write feeds bytes into both hash states. It never fails.
func (h *Hasher) Write(p []byte) (int, error) {
	h.blake.Write(p)
	h.crc = crc32.Update(h.crc, crc32.IEEETable, p)
	return len(p), nil
}

// Sum returns the checksums over all bytes written so far. Sum does
// not reset the hasher: writing more bytes and calling Sum again
// yields the checksums of the longer stream.
func (h *Hasher) Sum() Checksums {
	var sums Checksums
	copy(sums.Digest[:], h.blake.Sum(nil))
	sums.CRC32 = h.crc
	return sums
}

// HashReader consumes r to EOF and returns the checksums of its
// content. Read failures propagate to the caller unchanged.
func HashReader(r io.Reader) (Checksums, error) {
	hasher := New()
	buf := make([]byte, ReadChunkSize)
	if _, err := io.CopyBuffer(hasher, r, buf); err != nil {
		return Checksums{}, fmt.Errorf("hash stream: %w", err)
	}
	return hasher.Sum(), nil
}

// HashFile opens path and returns the checksums of its content. This
// is how downloads are verified: the file is hashed by re-reading it
// from disk after the transfer completes, so the result reflects what
// is actually resident, not what passed through the network buffers.
func HashFile(path string) (Checksums, error) {
	f, err := os.Open(path)
	if err != nil {
		return Checksums{}, fmt.Errorf("open %s for hashing: %w", path, err)
	}
	defer f.Close()

	sums, err := HashReader(f)
	if err != nil {
		return Checksums{}, fmt.Errorf("hash %s: %w", path, err)
	}
	return sums, nil
}
