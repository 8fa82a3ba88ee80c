package civitai

import "strings"

// Model is one catalog entry: a named model with its published
// versions. Field names follow the catalog's JSON schema.
type Model struct {
	ID            int64          `json:"id"`
	Name          string         `json:"name"`
	Description   string         `json:"description,omitempty"`
	Type          string         `json:"type"`
	NSFW          bool           `json:"nsfw"`
	Mode          string         `json:"mode,omitempty"`
	Creator       Creator        `json:"creator"`
	Tags          []string       `json:"tags,omitempty"`
	Stats         ModelStats     `json:"stats"`
	ModelVersions []ModelVersion `json:"modelVersions"`
}

// Creator identifies who published a model.
type Creator struct {
	Username string `json:"username"`
	Image    string `json:"image,omitempty"`
}

// ModelStats carries the catalog's usage counters for a model.
type ModelStats struct {
	DownloadCount int64   `json:"downloadCount"`
	FavoriteCount int64   `json:"favoriteCount"`
	CommentCount  int64   `json:"commentCount"`
	RatingCount   int64   `json:"ratingCount"`
	Rating        float64 `json:"rating"`
}

// ModelVersion is one published revision of a model, with its
// downloadable files and community images.
type ModelVersion struct {
	ID           int64              `json:"id"`
	ModelID      int64              `json:"modelId"`
	Name         string             `json:"name"`
	BaseModel    string             `json:"baseModel,omitempty"`
	CreatedAt    string             `json:"createdAt,omitempty"`
	TrainedWords []string           `json:"trainedWords,omitempty"`
	DownloadURL  string             `json:"downloadUrl"`
	Files        []ModelVersionFile `json:"files"`
	Images       []ModelImage       `json:"images,omitempty"`
}

// FileHashes holds the digests the catalog declares for a file. All
// values are hex strings in whatever case the catalog used; none are
// guaranteed present.
type FileHashes struct {
	AutoV2 string `json:"AutoV2,omitempty"`
	SHA256 string `json:"SHA256,omitempty"`
	CRC32  string `json:"CRC32,omitempty"`
	BLAKE3 string `json:"BLAKE3,omitempty"`
}

// ModelVersionFile is one downloadable file within a version.
type ModelVersionFile struct {
	ID          int64      `json:"id"`
	Name        string     `json:"name"`
	SizeKB      float64    `json:"sizeKB"`
	Type        string     `json:"type"`
	Primary     bool       `json:"primary,omitempty"`
	DownloadURL string     `json:"downloadUrl"`
	Hashes      FileHashes `json:"hashes"`
}

// SizeBytes converts the catalog's kilobyte size to bytes. The catalog
// reports fractional kilobytes, so this is approximate and only useful
// for display.
func (f *ModelVersionFile) SizeBytes() int64 {
	return int64(f.SizeKB * 1024)
}

// ModelImage is one community or preview image attached to a version.
type ModelImage struct {
	ID        int64  `json:"id"`
	URL       string `json:"url"`
	Type      string `json:"type,omitempty"` // "image" or "video"
	Width     int    `json:"width,omitempty"`
	Height    int    `json:"height,omitempty"`
	NSFWLevel int    `json:"nsfwLevel,omitempty"`
}

// Version returns the version with the given id, or nil.
func (m *Model) Version(id int64) *ModelVersion {
	for i := range m.ModelVersions {
		if m.ModelVersions[i].ID == id {
			return &m.ModelVersions[i]
		}
	}
	return nil
}

// LatestVersion returns the newest version. The catalog orders
// versions newest first, so this is the first element. Nil if the
// model has no versions.
func (m *Model) LatestVersion() *ModelVersion {
	if len(m.ModelVersions) == 0 {
		return nil
	}
	return &m.ModelVersions[0]
}

// File returns the file with the given id, or nil.
func (v *ModelVersion) File(id int64) *ModelVersionFile {
	for i := range v.Files {
		if v.Files[i].ID == id {
			return &v.Files[i]
		}
	}
	return nil
}

// PrimaryFile returns the file the catalog marks primary, falling back
// to the first file. Nil if the version has no files.
func (v *ModelVersion) PrimaryFile() *ModelVersionFile {
	for i := range v.Files {
		if v.Files[i].Primary {
			return &v.Files[i]
		}
	}
	if len(v.Files) == 0 {
		return nil
	}
	return &v.Files[0]
}

// CoverImage returns the first non-video image of the version, or nil.
func (v *ModelVersion) CoverImage() *ModelImage {
	for i := range v.Images {
		if !strings.EqualFold(v.Images[i].Type, "video") {
			return &v.Images[i]
		}
	}
	return nil
}
