package cache

import (
	"context"
	"path/filepath"
	"slices"
	"testing"

	"github.com/vixalie/interactive-model-downloader/internal/civitai"
	"github.com/vixalie/interactive-model-downloader/internal/hashing"
)

func openTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cache.db")
	store, err := Open(Options{Path: path})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store, path
}

func testDigest(seed byte) hashing.Digest {
	var d hashing.Digest
	for i := range d {
		d[i] = seed
	}
	return d
}

func TestStoreLocationAndLookup(t *testing.T) {
	store, _ := openTestStore(t)
	ctx := context.Background()
	digest := testDigest(0x11)
	id := FileIdentity{ModelID: 10, VersionID: 20, FileID: 30}

	if err := store.StoreLocation(ctx, digest, id, "/models/a.safetensors"); err != nil {
		t.Fatalf("StoreLocation() error = %v", err)
	}

	record, err := store.LookupByHash(ctx, digest)
	if err != nil {
		t.Fatalf("LookupByHash() error = %v", err)
	}
	if record == nil {
		t.Fatal("LookupByHash() = nil, want record")
	}
	if record.ModelID != 10 || record.VersionID != 20 || record.FileID != 30 {
		t.Errorf("record identity = %d/%d/%d, want 10/20/30",
			record.ModelID, record.VersionID, record.FileID)
	}
	if !slices.Equal(record.Locations, []string{"/models/a.safetensors"}) {
		t.Errorf("Locations = %v, want [/models/a.safetensors]", record.Locations)
	}

	byID, err := store.LookupByID(ctx, id)
	if err != nil {
		t.Fatalf("LookupByID() error = %v", err)
	}
	if byID == nil || !slices.Equal(byID.Locations, record.Locations) {
		t.Errorf("LookupByID() = %+v, want same record as LookupByHash()", byID)
	}
}

func TestStoreLocationDeduplicates(t *testing.T) {
	store, _ := openTestStore(t)
	ctx := context.Background()
	digest := testDigest(0x22)
	id := FileIdentity{ModelID: 1, VersionID: 2, FileID: 3}

	for i := 0; i < 3; i++ {
		if err := store.StoreLocation(ctx, digest, id, "/models/dup.safetensors"); err != nil {
			t.Fatalf("StoreLocation() error = %v", err)
		}
	}

	record, err := store.LookupByHash(ctx, digest)
	if err != nil {
		t.Fatalf("LookupByHash() error = %v", err)
	}
	if len(record.Locations) != 1 {
		t.Errorf("Locations = %v, want exactly one entry", record.Locations)
	}
}

func TestStoreLocationAppendsDistinctPaths(t *testing.T) {
	store, _ := openTestStore(t)
	ctx := context.Background()
	digest := testDigest(0x33)
	id := FileIdentity{ModelID: 1, VersionID: 2, FileID: 3}

	if err := store.StoreLocation(ctx, digest, id, "/models/first.safetensors"); err != nil {
		t.Fatalf("StoreLocation() error = %v", err)
	}
	if err := store.StoreLocation(ctx, digest, id, "/backup/second.safetensors"); err != nil {
		t.Fatalf("StoreLocation() error = %v", err)
	}

	record, err := store.LookupByHash(ctx, digest)
	if err != nil {
		t.Fatalf("LookupByHash() error = %v", err)
	}
	want := []string{"/models/first.safetensors", "/backup/second.safetensors"}
	if !slices.Equal(record.Locations, want) {
		t.Errorf("Locations = %v, want %v", record.Locations, want)
	}
}

func TestLookupByHashAbsent(t *testing.T) {
	store, _ := openTestStore(t)

	record, err := store.LookupByHash(context.Background(), testDigest(0x44))
	if err != nil {
		t.Fatalf("LookupByHash() error = %v", err)
	}
	if record != nil {
		t.Errorf("LookupByHash() = %+v, want nil for unknown hash", record)
	}

	ok, err := store.HasHash(context.Background(), testDigest(0x44))
	if err != nil {
		t.Fatalf("HasHash() error = %v", err)
	}
	if ok {
		t.Error("HasHash() = true, want false for unknown hash")
	}
}

func TestLocationsSurviveReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")
	ctx := context.Background()
	digest := testDigest(0x55)
	id := FileIdentity{ModelID: 7, VersionID: 8, FileID: 9}

	store, err := Open(Options{Path: path})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if err := store.StoreLocation(ctx, digest, id, "/models/durable.safetensors"); err != nil {
		t.Fatalf("StoreLocation() error = %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	reopened, err := Open(Options{Path: path})
	if err != nil {
		t.Fatalf("reopening: %v", err)
	}
	defer reopened.Close()

	record, err := reopened.LookupByHash(ctx, digest)
	if err != nil {
		t.Fatalf("LookupByHash() after reopen error = %v", err)
	}
	if record == nil || !slices.Contains(record.Locations, "/models/durable.safetensors") {
		t.Errorf("record after reopen = %+v, want stored location", record)
	}
}

func TestModelMetadataRoundTrip(t *testing.T) {
	store, _ := openTestStore(t)
	ctx := context.Background()

	model := &civitai.Model{
		ID:   42,
		Name: "Test Checkpoint",
		Type: "Checkpoint",
		ModelVersions: []civitai.ModelVersion{
			{ID: 100, ModelID: 42, Name: "v1.0", DownloadURL: "https://example.com/100"},
		},
	}
	if err := store.StoreModel(ctx, model); err != nil {
		t.Fatalf("StoreModel() error = %v", err)
	}

	got, err := store.Model(ctx, 42)
	if err != nil {
		t.Fatalf("Model() error = %v", err)
	}
	if got == nil || got.Name != "Test Checkpoint" || len(got.ModelVersions) != 1 {
		t.Errorf("Model() = %+v, want stored model back", got)
	}

	// StoreModel caches versions on their own keys too.
	version, err := store.ModelVersion(ctx, 100)
	if err != nil {
		t.Fatalf("ModelVersion() error = %v", err)
	}
	if version == nil || version.Name != "v1.0" {
		t.Errorf("ModelVersion() = %+v, want version cached by StoreModel", version)
	}

	missing, err := store.Model(ctx, 999)
	if err != nil {
		t.Fatalf("Model(999) error = %v", err)
	}
	if missing != nil {
		t.Errorf("Model(999) = %+v, want nil for unknown model", missing)
	}
}

func TestModelImagesPrefixScan(t *testing.T) {
	store, _ := openTestStore(t)
	ctx := context.Background()

	for _, image := range []civitai.ModelImage{
		{ID: 1, URL: "https://example.com/1.jpg"},
		{ID: 2, URL: "https://example.com/2.jpg"},
	} {
		if err := store.StoreModelImage(ctx, 5, &image); err != nil {
			t.Fatalf("StoreModelImage() error = %v", err)
		}
	}
	// A different model's image must not leak into the scan.
	if err := store.StoreModelImage(ctx, 50, &civitai.ModelImage{ID: 3, URL: "https://example.com/3.jpg"}); err != nil {
		t.Fatalf("StoreModelImage() error = %v", err)
	}

	images, err := store.ModelImages(ctx, 5)
	if err != nil {
		t.Fatalf("ModelImages() error = %v", err)
	}
	if len(images) != 2 {
		t.Fatalf("ModelImages() returned %d images, want 2", len(images))
	}
	for _, image := range images {
		if image.ID != 1 && image.ID != 2 {
			t.Errorf("unexpected image %d in scan for model 5", image.ID)
		}
	}
}
