package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/vixalie/interactive-model-downloader/internal/cache"
	"github.com/vixalie/interactive-model-downloader/internal/civitai"
	"github.com/vixalie/interactive-model-downloader/internal/hashing"
)

func runRenew(args []string) int {
	fs := flag.NewFlagSet("renew", flag.ExitOnError)

	configPath := fs.String("config", "", "Config file path (default: ~/.config/imd/config.yaml)")
	noMetadata := fs.Bool("no-metadata", false, "Skip the metadata sidecar file")
	verbose := fs.Bool("verbose", false, "Verbose logging")

	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, `Usage: imd renew [options] <model-file>...

Re-register local model files that were downloaded outside of imd, or
whose cache records were lost. Each file is hashed, identified through
the catalog's hash lookup, and recorded so future downloads of the
same content reuse it.

Options:`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return ExitInvalidArgs
	}
	if fs.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "Error: at least one model file is required")
		fs.Usage()
		return ExitInvalidArgs
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return ExitConfigError
	}

	ctx, cancel := signalContext()
	defer cancel()

	logger := newLogger(*verbose)

	client, err := newHTTPClient(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return ExitConfigError
	}

	store, err := openCache(cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return ExitCacheError
	}
	defer store.Close()

	catalog := civitai.NewClient(client, "")

	exit := ExitSuccess
	for _, path := range fs.Args() {
		if err := renewFile(ctx, catalog, store, path, !*noMetadata); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %s: %v\n", path, err)
			exit = ExitGeneralError
			continue
		}
		fmt.Fprintf(os.Stderr, "[imd] Registered %s\n", path)
	}
	return exit
}

// renewFile hashes one local file, identifies it through the catalog,
// and records both its metadata and its location.
func renewFile(ctx context.Context, catalog *civitai.Client, store *cache.Store, path string, sidecar bool) error {
	canonical, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve path: %w", err)
	}
	if resolved, err := filepath.EvalSymlinks(canonical); err == nil {
		canonical = resolved
	}

	fmt.Fprintf(os.Stderr, "[imd] Hashing %s...\n", path)
	sums, err := hashing.HashFile(canonical)
	if err != nil {
		return fmt.Errorf("hash file: %w", err)
	}

	version, err := catalog.VersionByHash(ctx, sums.Digest.Hex())
	if err != nil {
		return fmt.Errorf("catalog does not know this content: %w", err)
	}

	// The by-hash endpoint returns the owning version, but the file id
	// has to be recovered from the declared hashes.
	var fileID int64
	for i := range version.Files {
		declared, parseErr := hashing.ParseDigest(version.Files[i].Hashes.BLAKE3)
		if parseErr == nil && declared == sums.Digest {
			fileID = version.Files[i].ID
			break
		}
	}

	if err := store.StoreModelVersion(ctx, version); err != nil {
		return fmt.Errorf("cache version metadata: %w", err)
	}
	identity := cache.FileIdentity{
		ModelID:   version.ModelID,
		VersionID: version.ID,
		FileID:    fileID,
	}
	if err := store.StoreLocation(ctx, sums.Digest, identity, canonical); err != nil {
		return fmt.Errorf("record location: %w", err)
	}

	if sidecar {
		model, err := catalog.Model(ctx, version.ModelID)
		if err != nil {
			return fmt.Errorf("fetch model metadata: %w", err)
		}
		if err := store.StoreModel(ctx, model); err != nil {
			return fmt.Errorf("cache model metadata: %w", err)
		}
		if _, err := civitai.WriteMetadata(filepath.Dir(canonical), model); err != nil {
			return fmt.Errorf("write metadata sidecar: %w", err)
		}
	}
	return nil
}
