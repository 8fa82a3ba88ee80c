package cache

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/vixalie/interactive-model-downloader/internal/civitai"
)

// StoreModel caches a catalog model record. The model's versions are
// cached individually as well, so ModelVersion lookups hit without a
// second fetch.
func (s *Store) StoreModel(ctx context.Context, model *civitai.Model) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	value, err := json.Marshal(model)
	if err != nil {
		return fmt.Errorf("cache: encoding model %d: %w", model.ID, err)
	}
	if err := s.put(ctx, modelKey(model.ID), string(value)); err != nil {
		return err
	}
	for i := range model.ModelVersions {
		if err := s.storeVersion(ctx, &model.ModelVersions[i]); err != nil {
			return err
		}
	}
	s.logger.Debug("model cached", "model", model.ID, "versions", len(model.ModelVersions))
	return nil
}

// Model returns a cached model record, or (nil, nil) when absent.
func (s *Store) Model(ctx context.Context, modelID int64) (*civitai.Model, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	value, found, err := s.get(ctx, modelKey(modelID))
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	var model civitai.Model
	if err := json.Unmarshal([]byte(value), &model); err != nil {
		return nil, fmt.Errorf("cache: decoding model %d: %w", modelID, err)
	}
	return &model, nil
}

// StoreModelVersion caches one version record on its own key.
func (s *Store) StoreModelVersion(ctx context.Context, version *civitai.ModelVersion) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.storeVersion(ctx, version)
}

func (s *Store) storeVersion(ctx context.Context, version *civitai.ModelVersion) error {
	value, err := json.Marshal(version)
	if err != nil {
		return fmt.Errorf("cache: encoding version %d: %w", version.ID, err)
	}
	return s.put(ctx, versionKey(version.ID), string(value))
}

// ModelVersion returns a cached version record, or (nil, nil) when
// absent.
func (s *Store) ModelVersion(ctx context.Context, versionID int64) (*civitai.ModelVersion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	value, found, err := s.get(ctx, versionKey(versionID))
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	var version civitai.ModelVersion
	if err := json.Unmarshal([]byte(value), &version); err != nil {
		return nil, fmt.Errorf("cache: decoding version %d: %w", versionID, err)
	}
	return &version, nil
}

// StoreModelImage caches one image record under its model.
func (s *Store) StoreModelImage(ctx context.Context, modelID int64, image *civitai.ModelImage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	value, err := json.Marshal(image)
	if err != nil {
		return fmt.Errorf("cache: encoding image %d: %w", image.ID, err)
	}
	return s.put(ctx, imageKey(modelID, image.ID), string(value))
}

// ModelImages returns every cached image for a model. The slice is
// empty when none are cached.
func (s *Store) ModelImages(ctx context.Context, modelID int64) ([]civitai.ModelImage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var images []civitai.ModelImage
	err := s.scanPrefix(ctx, imagePrefix(modelID), func(key, value string) error {
		var image civitai.ModelImage
		if err := json.Unmarshal([]byte(value), &image); err != nil {
			return fmt.Errorf("cache: decoding %s: %w", key, err)
		}
		images = append(images, image)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return images, nil
}
