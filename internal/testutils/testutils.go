// Package testutils provides shared test infrastructure: deterministic
// payload generation and a fake catalog service serving both metadata
// and file downloads.
package testutils

import (
	"bytes"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"

	"github.com/vixalie/interactive-model-downloader/internal/civitai"
	"github.com/vixalie/interactive-model-downloader/internal/hashing"
)

// GenerateTestData generates test data of the given size. Files up to
// 10MB use a deterministic pattern; larger files use random data.
func GenerateTestData(t *testing.T, size int64) []byte {
	t.Helper()
	data := make([]byte, size)
	if size <= 10*1024*1024 {
		for i := range data {
			data[i] = byte(i % 256)
		}
	} else {
		if _, err := rand.Read(data); err != nil {
			t.Fatalf("generate random data: %v", err)
		}
	}
	return data
}

// CatalogServer is a fake catalog service. It serves one model with
// one version and one file, the file's bytes, and a cover image, and
// counts file download requests.
type CatalogServer struct {
	*httptest.Server

	// Model is the served metadata, with correct declared hashes and
	// URLs pointing back at this server.
	Model *civitai.Model

	// FileData is the payload served for the model file.
	FileData []byte

	// Downloads counts file download requests.
	Downloads atomic.Int64
}

// StartCatalogServer builds and starts a fake catalog around the given
// file payload. The server is shut down with the test.
func StartCatalogServer(t *testing.T, modelID, versionID, fileID int64, fileData []byte) *CatalogServer {
	t.Helper()

	sums, err := hashing.HashReader(bytes.NewReader(fileData))
	if err != nil {
		t.Fatalf("hashing payload: %v", err)
	}

	cs := &CatalogServer{FileData: fileData}

	mux := http.NewServeMux()
	mux.HandleFunc(fmt.Sprintf("/api/v1/models/%d", modelID), func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(cs.Model)
	})
	mux.HandleFunc(fmt.Sprintf("/api/v1/model-versions/%d", versionID), func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(&cs.Model.ModelVersions[0])
	})
	mux.HandleFunc("/api/v1/model-versions/by-hash/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(&cs.Model.ModelVersions[0])
	})
	mux.HandleFunc("/download", func(w http.ResponseWriter, r *http.Request) {
		cs.Downloads.Add(1)
		w.Header().Set("Content-Length", strconv.Itoa(len(cs.FileData)))
		w.Write(cs.FileData)
	})
	mux.HandleFunc("/cover.jpg", func(w http.ResponseWriter, r *http.Request) {
		img := image.NewRGBA(image.Rect(0, 0, 16, 16))
		for x := 0; x < 16; x++ {
			img.Set(x, 8, color.RGBA{B: 255, A: 255})
		}
		jpeg.Encode(w, img, nil)
	})

	cs.Server = httptest.NewServer(mux)
	t.Cleanup(cs.Close)

	cs.Model = &civitai.Model{
		ID:   modelID,
		Name: "Test Model",
		Type: "Checkpoint",
		ModelVersions: []civitai.ModelVersion{
			{
				ID:          versionID,
				ModelID:     modelID,
				Name:        "v1",
				DownloadURL: cs.URL + "/download",
				Files: []civitai.ModelVersionFile{
					{
						ID:          fileID,
						Name:        "test-model.safetensors",
						SizeKB:      float64(len(fileData)) / 1024,
						Type:        "Model",
						Primary:     true,
						DownloadURL: cs.URL + "/download",
						Hashes: civitai.FileHashes{
							BLAKE3: sums.Digest.Hex(),
							CRC32:  sums.CRC32Hex(),
						},
					},
				},
				Images: []civitai.ModelImage{
					{ID: 1, URL: cs.URL + "/cover.jpg", Type: "image"},
				},
			},
		},
	}

	return cs
}
