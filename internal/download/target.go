package download

import (
	"github.com/vixalie/interactive-model-downloader/internal/civitai"
)

// FileTarget builds the fetch target for one catalog file. The file's
// own download URL wins; the version-level URL is the fallback the
// catalog provides for single-file versions.
func FileTarget(version *civitai.ModelVersion, file *civitai.ModelVersionFile, destDir string) Target {
	url := file.DownloadURL
	if url == "" {
		url = version.DownloadURL
	}
	return Target{
		URL:          url,
		Name:         file.Name,
		DestDir:      destDir,
		ExpectedSize: file.SizeBytes(),
		KnownHash:    file.Hashes.BLAKE3,
		KnownCRC32:   file.Hashes.CRC32,
		ModelID:      version.ModelID,
		VersionID:    version.ID,
		FileID:       file.ID,
	}
}
