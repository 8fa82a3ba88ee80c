package download

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"gocloud.dev/blob/fileblob"

	"github.com/vixalie/interactive-model-downloader/internal/cache"
	"github.com/vixalie/interactive-model-downloader/internal/hashing"
	"github.com/vixalie/interactive-model-downloader/internal/httpclient"
	"github.com/vixalie/interactive-model-downloader/internal/retry"
)

// Target describes one file to fetch. It is assembled by the catalog
// metadata layer and immutable once created.
type Target struct {
	// URL is the authenticated download URL.
	URL string

	// Name is the file name used for the destination and in progress
	// output.
	Name string

	// DestDir is the destination directory. It must already exist.
	DestDir string

	// ExpectedSize is the catalog-declared size in bytes, 0 if
	// unknown. Advisory: a transfer that differs by more than the
	// catalog's kilobyte rounding is warned about, not rejected.
	ExpectedSize int64

	// KnownHash is the catalog-declared content hash in hex, empty if
	// the catalog declared none. Advisory: a mismatch is reported,
	// not rejected.
	KnownHash string

	// KnownCRC32 is the catalog-declared CRC32 in hex, empty if none.
	KnownCRC32 string

	// Logical catalog identifiers recorded alongside the location.
	ModelID   int64
	VersionID int64
	FileID    int64
}

// Decider answers whether an already-present verified copy should be
// downloaded again. It is the only interactive touchpoint of the
// orchestrator; pass a scripted implementation in tests.
type Decider interface {
	DecideOverwrite(existingPath string) bool
}

// DeciderFunc adapts a function to the Decider interface.
type DeciderFunc func(existingPath string) bool

// DecideOverwrite calls f.
func (f DeciderFunc) DecideOverwrite(existingPath string) bool { return f(existingPath) }

// Result reports the outcome of one orchestrated fetch.
type Result struct {
	// Path is the canonical absolute path of the file.
	Path string

	// BytesWritten is the number of bytes transferred. Zero when the
	// fetch was satisfied from an existing copy.
	BytesWritten int64

	// Checksums are the verified checksums of the file on disk. For a
	// reused copy only the Digest is set, taken from the cache key.
	Checksums hashing.Checksums

	// Reused is true when an existing verified copy was returned and
	// no network transfer happened.
	Reused bool

	// HashMismatch is true when the computed checksums disagree with
	// what the catalog declared. The file is kept and cached anyway.
	HashMismatch bool
}

// OrchestratorOptions configures an Orchestrator.
type OrchestratorOptions struct {
	// Client performs the HTTP requests. Required.
	Client *httpclient.Client

	// Cache is the location cache consulted before and updated after
	// every fetch. Required.
	Cache *cache.Store

	// Policy governs retries around the streaming download.
	Policy retry.Policy

	// Decider is asked before re-downloading content that already has
	// a live verified copy. If nil, the existing copy is reused.
	Decider Decider

	// Observer receives transfer progress. Optional.
	Observer Observer

	// Logger receives operational messages. If nil, logs are
	// discarded.
	Logger *slog.Logger
}

// Orchestrator sequences cache lookup, download, verification, and
// cache update for requested files. Files are processed strictly one
// at a time; an Orchestrator must not be used concurrently.
type Orchestrator struct {
	client   *httpclient.Client
	cache    *cache.Store
	policy   retry.Policy
	decider  Decider
	observer Observer
	logger   *slog.Logger
}

// NewOrchestrator creates an orchestrator.
func NewOrchestrator(opts OrchestratorOptions) (*Orchestrator, error) {
	if opts.Client == nil {
		return nil, errors.New("download: Client is required")
	}
	if opts.Cache == nil {
		return nil, errors.New("download: Cache is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Orchestrator{
		client:   opts.Client,
		cache:    opts.Cache,
		policy:   opts.Policy,
		decider:  opts.Decider,
		observer: opts.Observer,
		logger:   logger,
	}, nil
}

// Fetch downloads one target, verifies it, and records the verified
// location. When the cache already knows a live copy of the declared
// hash and the decider declines a re-download, the existing path is
// returned without any network access.
//
// A hash mismatch against the catalog's declared values is reported
// through Result.HashMismatch and a warning log, not an error: the
// catalog's hashes are advisory and frequently stale. The record is
// stored under the actual computed digest.
//
// If the verified download cannot be recorded in the cache, Fetch
// returns the error together with a valid Result: the file is intact
// on disk, only dedup tracking is stale.
func (o *Orchestrator) Fetch(ctx context.Context, target Target) (*Result, error) {
	if target.URL == "" || target.Name == "" || target.DestDir == "" {
		return nil, errors.New("download: target needs URL, Name, and DestDir")
	}

	if target.KnownHash != "" {
		if reused := o.findReusable(ctx, target); reused != nil {
			return reused, nil
		}
	}

	bucket, err := fileblob.OpenBucket(target.DestDir, &fileblob.Options{
		Metadata: fileblob.MetadataDontWrite,
	})
	if err != nil {
		return nil, fmt.Errorf("open destination %s: %w", target.DestDir, err)
	}
	defer bucket.Close()

	var written int64
	err = o.policy.Do(ctx, func(ctx context.Context) error {
		n, err := Download(ctx, o.client, target.URL, bucket, target.Name, Options{
			Observer: o.observer,
		})
		written = n
		return err
	})
	if o.observer != nil {
		o.observer.Finish()
	}
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", target.Name, err)
	}

	canonical, err := canonicalPath(filepath.Join(target.DestDir, target.Name))
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", target.Name, err)
	}

	sums, err := hashing.HashFile(canonical)
	if err != nil {
		return nil, fmt.Errorf("verify %s: %w", target.Name, err)
	}

	o.checkDeclaredSize(target, written)

	result := &Result{
		Path:         canonical,
		BytesWritten: written,
		Checksums:    sums,
		HashMismatch: o.checkDeclared(target, sums),
	}

	err = o.cache.StoreLocation(ctx, sums.Digest, cache.FileIdentity{
		ModelID:   target.ModelID,
		VersionID: target.VersionID,
		FileID:    target.FileID,
	}, canonical)
	if err != nil {
		return result, fmt.Errorf("record location of %s: %w", target.Name, err)
	}

	o.logger.Info("download verified",
		"file", target.Name,
		"digest", sums.Digest.Hex(),
		"bytes", written,
	)
	return result, nil
}

// findReusable returns a Result pointing at an existing verified copy
// when the cache knows one that is still present on disk and the
// decider declines a fresh download. A cached location whose file has
// vanished is treated as not cached at all: the decider is not even
// consulted.
func (o *Orchestrator) findReusable(ctx context.Context, target Target) *Result {
	digest, err := hashing.ParseDigest(target.KnownHash)
	if err != nil {
		o.logger.Warn("ignoring unparsable declared hash",
			"file", target.Name,
			"hash", target.KnownHash,
		)
		return nil
	}

	record, err := o.cache.LookupByHash(ctx, digest)
	if err != nil {
		o.logger.Warn("cache lookup failed", "file", target.Name, "error", err)
		return nil
	}
	if record == nil {
		return nil
	}

	existing := ""
	for _, location := range record.Locations {
		if _, statErr := os.Stat(location); statErr == nil {
			existing = location
			break
		}
	}
	if existing == "" {
		return nil
	}

	if o.decider != nil && o.decider.DecideOverwrite(existing) {
		return nil
	}

	o.logger.Info("reusing verified copy", "file", target.Name, "path", existing)
	return &Result{
		Path:      existing,
		Checksums: hashing.Checksums{Digest: digest},
		Reused:    true,
	}
}

// sizeTolerance absorbs the catalog's fractional-kilobyte rounding
// when comparing a declared size against the transferred byte count.
const sizeTolerance = 1024

// checkDeclaredSize warns when the transferred size disagrees with the
// catalog's declared size by more than the rounding tolerance.
func (o *Orchestrator) checkDeclaredSize(target Target, written int64) {
	if target.ExpectedSize <= 0 {
		return
	}
	diff := written - target.ExpectedSize
	if diff < -sizeTolerance || diff > sizeTolerance {
		o.logger.Warn("size differs from catalog",
			"file", target.Name,
			"declared", target.ExpectedSize,
			"actual", written,
		)
	}
}

// checkDeclared compares computed checksums against the catalog's
// declared values and logs a warning on any disagreement.
func (o *Orchestrator) checkDeclared(target Target, sums hashing.Checksums) bool {
	mismatch := false

	if target.KnownHash != "" {
		declared, err := hashing.ParseDigest(target.KnownHash)
		if err != nil || declared != sums.Digest {
			mismatch = true
			o.logger.Warn("content hash mismatch",
				"file", target.Name,
				"declared", target.KnownHash,
				"actual", sums.Digest.Hex(),
			)
		}
	}

	if target.KnownCRC32 != "" && !sums.MatchCRC32(target.KnownCRC32) {
		mismatch = true
		o.logger.Warn("CRC32 mismatch",
			"file", target.Name,
			"declared", target.KnownCRC32,
			"actual", sums.CRC32Hex(),
		)
	}

	return mismatch
}

// canonicalPath resolves path to an absolute path with symlinks
// evaluated. The location cache only ever holds canonical paths.
func canonicalPath(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	return filepath.EvalSymlinks(abs)
}
