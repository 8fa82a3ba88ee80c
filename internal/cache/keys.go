package cache

import (
	"fmt"

	"github.com/vixalie/interactive-model-downloader/internal/hashing"
)

// Key namespaces. Every record lives under a "civitai:" prefixed key
// so unrelated data can share the database later without collisions.
func hashKey(digest hashing.Digest) string {
	return "civitai:file:hash:" + digest.Hex()
}

func fileIDKey(id FileIdentity) string {
	return fmt.Sprintf("civitai:file:id:%d:%d:%d", id.ModelID, id.VersionID, id.FileID)
}

func modelKey(modelID int64) string {
	return fmt.Sprintf("civitai:model:%d", modelID)
}

func versionKey(versionID int64) string {
	return fmt.Sprintf("civitai:version:%d", versionID)
}

func imageKey(modelID int64, imageID int64) string {
	return fmt.Sprintf("civitai:image:id:%d:%d", modelID, imageID)
}

func imagePrefix(modelID int64) string {
	return fmt.Sprintf("civitai:image:id:%d:", modelID)
}
