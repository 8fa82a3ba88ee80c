// Package hashing computes content digests for downloaded model files.
//
// The primary digest is BLAKE3 (32 bytes, rendered as upper-case hex).
// A CRC32 checksum is computed in the same pass because the catalog
// declares one for most files and checking it is nearly free.
//
// All hashing is streaming: input is consumed in 512 KiB chunks and a
// multi-gigabyte file never occupies more than one chunk of memory.
//
// # Usage
//
//	sums, err := hashing.HashFile("/models/m.safetensors")
//	// sums.Digest.Hex(), sums.CRC32Hex()
//
// Incremental use, producing byte-identical results:
//
//	h := hashing.New()
//	h.Write(part1)
//	h.Write(part2)
//	sums := h.Sum()
package hashing
