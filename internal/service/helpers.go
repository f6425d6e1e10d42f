package service

import (
	"net/url"
	"path"
	"strings"

	"github.com/agencykit/instaflow/internal/models"
)

var videoExtensions = map[string]struct{}{
	".mp4": {}, ".mov": {}, ".m4v": {},
}

// isVideoURL detects a video by file extension, ignoring any query string.
func isVideoURL(mediaURL string) bool {
	ext := strings.ToLower(path.Ext(mediaURL))
	if u, err := url.Parse(mediaURL); err == nil {
		ext = strings.ToLower(path.Ext(u.Path))
	}
	_, ok := videoExtensions[ext]
	return ok
}

func isSupportedMediaType(mediaType string) bool {
	switch mediaType {
	case models.MediaTypeImage, models.MediaTypeVideo, models.MediaTypeReel,
		models.MediaTypeCarousel, models.MediaTypeStory:
		return true
	}
	return false
}
