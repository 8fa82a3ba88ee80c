package civitai

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// ErrNotModelURL is returned for URLs that are not catalog model pages.
var ErrNotModelURL = errors.New("civitai: not a model page URL")

// ParseModelURL extracts the model id, and the version id when the URL
// carries a modelVersionId query parameter, from a model page URL like
//
//	https://civitai.com/models/4384/some-model?modelVersionId=128713
//
// versionID is 0 when the URL does not select a specific version.
func ParseModelURL(rawURL string) (modelID, versionID int64, err error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return 0, 0, fmt.Errorf("parse model URL: %w", err)
	}

	host := strings.TrimPrefix(strings.ToLower(parsed.Hostname()), "www.")
	if host != "civitai.com" {
		return 0, 0, fmt.Errorf("%w: host %q", ErrNotModelURL, parsed.Hostname())
	}

	segments := strings.Split(strings.Trim(parsed.Path, "/"), "/")
	if len(segments) < 2 || segments[0] != "models" {
		return 0, 0, fmt.Errorf("%w: path %q", ErrNotModelURL, parsed.Path)
	}

	modelID, err = strconv.ParseInt(segments[1], 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: model id %q", ErrNotModelURL, segments[1])
	}

	if raw := parsed.Query().Get("modelVersionId"); raw != "" {
		versionID, err = strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return 0, 0, fmt.Errorf("%w: version id %q", ErrNotModelURL, raw)
		}
	}

	return modelID, versionID, nil
}
