package download

import (
	"context"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png" // cover sources are served as PNG or JPEG
	"os"
	"path/filepath"

	"github.com/vixalie/interactive-model-downloader/internal/httpclient"
)

// coverQuality is the JPEG quality for re-encoded cover images.
const coverQuality = 90

// FetchCover downloads a version's preview image and stores it next to
// the model file as "<stem>.cover.jpg", re-encoded as JPEG regardless
// of the source format. Returns the written path. Cover images are
// small, so this is a plain unretried GET.
func FetchCover(ctx context.Context, client *httpclient.Client, imageURL, destDir, stem string) (string, error) {
	resp, err := client.Get(ctx, imageURL)
	if err != nil {
		return "", fmt.Errorf("fetch cover image: %w", err)
	}
	defer resp.Body.Close()

	decoded, _, err := image.Decode(resp.Body)
	if err != nil {
		return "", fmt.Errorf("decode cover image: %w", err)
	}

	path := filepath.Join(destDir, stem+".cover.jpg")
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create cover image %s: %w", path, err)
	}

	if err := jpeg.Encode(f, decoded, &jpeg.Options{Quality: coverQuality}); err != nil {
		f.Close()
		os.Remove(path)
		return "", fmt.Errorf("encode cover image %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close cover image %s: %w", path, err)
	}
	return path, nil
}
