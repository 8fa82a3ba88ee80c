package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/vixalie/interactive-model-downloader/internal/cache"
	"github.com/vixalie/interactive-model-downloader/internal/civitai"
	"github.com/vixalie/interactive-model-downloader/internal/download"
	"github.com/vixalie/interactive-model-downloader/internal/httpclient"
	"github.com/vixalie/interactive-model-downloader/internal/progress"
	"github.com/vixalie/interactive-model-downloader/internal/retry"
)

func runDownload(args []string) int {
	fs := flag.NewFlagSet("download", flag.ExitOnError)

	output := fs.String("output", ".", "Destination directory")
	versionID := fs.Int64("version", 0, "Version id to download (default: URL selection or latest)")
	fileID := fs.Int64("file", 0, "File id to download (default: the primary file)")
	yes := fs.Bool("yes", false, "Re-download without asking when a verified copy exists")
	noCover := fs.Bool("no-cover", false, "Skip the cover image")
	noMetadata := fs.Bool("no-metadata", false, "Skip the metadata sidecar file")
	configPath := fs.String("config", "", "Config file path (default: ~/.config/imd/config.yaml)")
	verbose := fs.Bool("verbose", false, "Verbose logging")

	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, `Usage: imd download [options] <model-page-url>

Download a model file from its catalog page URL, for example
https://civitai.com/models/4384?modelVersionId=128713. The file is
verified after download and its location is remembered, so fetching
the same content again reuses the existing copy.

Options:`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return ExitInvalidArgs
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Error: exactly one model page URL is required")
		fs.Usage()
		return ExitInvalidArgs
	}

	modelID, urlVersionID, err := civitai.ParseModelURL(fs.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return ExitInvalidArgs
	}
	if *versionID == 0 {
		*versionID = urlVersionID
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

	return downloadModel(ctx, downloadDeps{
		catalog: catalog,
		client:  client,
		store:   store,
		logger:  logger,
		policy: retry.Policy{
			InitialInterval: cfg.Backoff.InitialInterval,
			Multiplier:      cfg.Backoff.Multiplier,
			MaxAttempts:     cfg.Backoff.MaxAttempts,
			AttemptTimeout:  cfg.Backoff.AttemptTimeout,
		},
	}, downloadRequest{
		modelID:   modelID,
		versionID: *versionID,
		fileID:    *fileID,
		destDir:   *output,
		assumeYes: *yes,
		skipCover: *noCover,
		skipJSON:  *noMetadata,
	})
}

type downloadDeps struct {
	catalog *civitai.Client
	client  *httpclient.Client
	store   *cache.Store
	logger  *slog.Logger
	policy  retry.Policy
}

type downloadRequest struct {
	modelID   int64
	versionID int64
	fileID    int64
	destDir   string
	assumeYes bool
	skipCover bool
	skipJSON  bool
}

func downloadModel(ctx context.Context, deps downloadDeps, req downloadRequest) int {
	model, err := lookupModel(ctx, deps, req.modelID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if errors.Is(err, httpclient.ErrUnauthorized) || errors.Is(err, httpclient.ErrForbidden) {
			fmt.Fprintln(os.Stderr, "Hint: set an API token with 'imd config -civitai-token <token>'")
		}
		return ExitNetworkError
	}

	version := model.LatestVersion()
	if req.versionID != 0 {
		version = model.Version(req.versionID)
	}
	if version == nil {
		fmt.Fprintf(os.Stderr, "Error: model %d has no version %d\n", req.modelID, req.versionID)
		return ExitInvalidArgs
	}

	file := version.PrimaryFile()
	if req.fileID != 0 {
		file = version.File(req.fileID)
	}
	if file == nil {
		fmt.Fprintf(os.Stderr, "Error: version %d has no file %d\n", version.ID, req.fileID)
		return ExitInvalidArgs
	}

	if err := os.MkdirAll(req.destDir, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return ExitGeneralError
	}

	var decider download.Decider
	if req.assumeYes {
		decider = download.DeciderFunc(func(string) bool { return true })
	} else {
		decider = download.DeciderFunc(promptOverwrite)
	}

	reporter := progress.NewReporter(progress.Options{Label: file.Name})

	orch, err := download.NewOrchestrator(download.OrchestratorOptions{
		Client:   deps.client,
		Cache:    deps.store,
		Policy:   deps.policy,
		Decider:  decider,
		Observer: reporter,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return ExitGeneralError
	}

	result, err := orch.Fetch(ctx, download.FileTarget(version, file, req.destDir))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if errors.Is(err, context.Canceled) {
			return ExitGeneralError
		}
		return ExitNetworkError
	}

	if result.Reused {
		fmt.Fprintf(os.Stderr, "[imd] Already downloaded: %s\n", result.Path)
	} else {
		fmt.Fprintf(os.Stderr, "[imd] Downloaded and verified: %s\n", result.Path)
	}
	if result.HashMismatch {
		fmt.Fprintln(os.Stderr, "[imd] Warning: file checksums differ from the catalog's declared values")
	}

	// Cover image and metadata sidecar are best-effort extras.
	if !req.skipCover && !result.Reused {
		if cover := version.CoverImage(); cover != nil {
			stem := strings.TrimSuffix(file.Name, filepath.Ext(file.Name))
			if _, err := download.FetchCover(ctx, deps.client, cover.URL, req.destDir, stem); err != nil {
				deps.logger.Warn("cover image skipped", "error", err)
			}
		}
	}
	if !req.skipJSON {
		if _, err := civitai.WriteMetadata(req.destDir, model); err != nil {
			deps.logger.Warn("metadata sidecar skipped", "error", err)
		}
	}

	return ExitSuccess
}

// lookupModel serves model metadata from the cache when present,
// fetching and caching it otherwise.
func lookupModel(ctx context.Context, deps downloadDeps, modelID int64) (*civitai.Model, error) {
	model, err := deps.store.Model(ctx, modelID)
	if err != nil {
		deps.logger.Warn("metadata cache lookup failed", "error", err)
	}
	if model != nil {
		return model, nil
	}

	model, err = deps.catalog.Model(ctx, modelID)
	if err != nil {
		return nil, err
	}
	if err := deps.store.StoreModel(ctx, model); err != nil {
		deps.logger.Warn("metadata not cached", "error", err)
	}
	for i := range model.ModelVersions {
		version := &model.ModelVersions[i]
		for j := range version.Images {
			if err := deps.store.StoreModelImage(ctx, model.ID, &version.Images[j]); err != nil {
				deps.logger.Warn("image metadata not cached", "error", err)
				break
			}
		}
	}
	return model, nil
}

// promptOverwrite asks on the terminal whether to download again.
func promptOverwrite(existingPath string) bool {
	fmt.Fprintf(os.Stderr, "[imd] Verified copy exists at %s. Download again? [y/N] ", existingPath)
	scanner := bufio.NewScanner(os.Stdin)
	if !scanner.Scan() {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(scanner.Text()))
	return answer == "y" || answer == "yes"
}
