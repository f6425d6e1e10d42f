package transfer

import "time"

type PublishRequest struct {
	AccountID    int64    `json:"account_id"`
	MediaURLs    []string `json:"media_urls"`
	Caption      string   `json:"caption"`
	MediaType    string   `json:"media_type"`
	ThumbnailURL string   `json:"thumbnail_url,omitempty"`
}

type PublishResult struct {
	Success     bool   `json:"success"`
	MediaID     string `json:"media_id,omitempty"`
	Permalink   string `json:"permalink,omitempty"`
	ContainerID string `json:"container_id,omitempty"`
	Error       string `json:"error,omitempty"`
}

type PostCreation struct {
	AccountID    int64    `json:"account_id"`
	MediaURLs    []string `json:"media_urls"`
	Caption      string   `json:"caption"`
	MediaType    string   `json:"media_type"`
	ThumbnailURL string   `json:"thumbnail_url"`
	ScheduledFor string   `json:"scheduled_for"`
	Timezone     string   `json:"timezone"`
}

type DuePostResult struct {
	PostID  int64  `json:"post_id"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

type DuePostRunResult struct {
	Processed int             `json:"processed"`
	Succeeded int             `json:"succeeded"`
	Failed    int             `json:"failed"`
	Results   []DuePostResult `json:"results"`
	StartedAt time.Time       `json:"started_at"`
}

type MediaUploadResult struct {
	FileName string `json:"file_name"`
	FileType string `json:"file_type"`
	FileURL  string `json:"file_url"`
}
