package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"

	"github.com/vixalie/interactive-model-downloader/internal/hashing"
)

// FileIdentity names a catalog file by its model, version and file
// IDs.
type FileIdentity struct {
	ModelID   int64
	VersionID int64
	FileID    int64
}

// LocationRecord maps one content hash to the local copies of that
// content. Locations are canonical absolute paths, oldest first, with
// no duplicates.
type LocationRecord struct {
	ModelID   int64    `json:"modelId"`
	VersionID int64    `json:"versionId"`
	FileID    int64    `json:"fileId"`
	Locations []string `json:"locations"`
}

// StoreLocation records that the content identified by digest now
// lives at canonicalPath. The record is written under both the hash
// key and the file-identity key, appending the path to any existing
// record. Storing a path that is already recorded is a no-op.
//
// The write is durable before StoreLocation returns.
func (s *Store) StoreLocation(ctx context.Context, digest hashing.Digest, id FileIdentity, canonicalPath string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, err := s.loadLocations(ctx, hashKey(digest))
	if err != nil {
		return err
	}
	if record == nil {
		record = &LocationRecord{
			ModelID:   id.ModelID,
			VersionID: id.VersionID,
			FileID:    id.FileID,
		}
	}
	if !slices.Contains(record.Locations, canonicalPath) {
		record.Locations = append(record.Locations, canonicalPath)
	}

	value, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("cache: encoding location record: %w", err)
	}

	if err := s.put(ctx, hashKey(digest), string(value)); err != nil {
		return err
	}
	if id != (FileIdentity{}) {
		if err := s.put(ctx, fileIDKey(id), string(value)); err != nil {
			return err
		}
	}

	s.logger.Debug("location stored",
		"hash", digest.Hex(), "path", canonicalPath, "locations", len(record.Locations))
	return nil
}

// LookupByHash returns the location record for a content hash, or
// (nil, nil) when the hash has never been recorded.
func (s *Store) LookupByHash(ctx context.Context, digest hashing.Digest) (*LocationRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocations(ctx, hashKey(digest))
}

// LookupByID returns the location record for a catalog file identity,
// or (nil, nil) when none is recorded.
func (s *Store) LookupByID(ctx context.Context, id FileIdentity) (*LocationRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocations(ctx, fileIDKey(id))
}

// HasHash reports whether any location record exists for the digest.
func (s *Store) HasHash(ctx context.Context, digest hashing.Digest) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.exists(ctx, hashKey(digest))
}

// loadLocations reads and decodes one location record. Callers hold
// s.mu.
func (s *Store) loadLocations(ctx context.Context, key string) (*LocationRecord, error) {
	value, found, err := s.get(ctx, key)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	var record LocationRecord
	if err := json.Unmarshal([]byte(value), &record); err != nil {
		return nil, fmt.Errorf("cache: decoding %s: %w", key, err)
	}
	return &record, nil
}
