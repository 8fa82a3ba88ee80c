// Package download fetches model files and verifies what landed on
// disk.
//
// The streaming downloader performs one authenticated GET per file and
// writes the body through a gocloud blob bucket opened on the
// destination directory, reporting progress per chunk. It never holds
// more than one copy buffer in memory.
//
// The orchestrator sequences the full lifecycle of one requested file:
//
//	cache lookup → (reuse | download under retry policy) →
//	re-read and hash → compare declared checksums → record location
//
// Verification hashes the file by re-reading it from disk after the
// transfer commits, so the recorded digest describes the resident
// bytes, not the bytes that passed through the transfer buffers.
// Declared catalog hashes are advisory: a mismatch produces a warning
// and the record is stored under the computed digest.
//
// Transfers are strictly sequential; there is no multi-file or
// multi-range parallelism, and a failed transfer restarts from byte
// zero.
package download
