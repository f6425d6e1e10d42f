package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"

	"github.com/agencykit/instaflow/internal/transfer"
	"github.com/h2non/filetype"
	"github.com/h2non/filetype/types"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

type MediaService interface {
	Upload(ctx context.Context, userID int64, files []*multipart.FileHeader) ([]*transfer.MediaUploadResult, error)
}

type mediaService struct {
	r2 *R2Service
}

func NewMediaService(r2 *R2Service) MediaService {
	return &mediaService{r2: r2}
}

var allowedUploadTypes = map[string]struct{}{
	"mp4": {}, "mov": {}, "jpeg": {}, "png": {}, "jpg": {},
}

// Upload sniffs each file's real type, stores it in R2 and returns the
// public URL to use as a post media URL.
func (s *mediaService) Upload(ctx context.Context, userID int64, files []*multipart.FileHeader) ([]*transfer.MediaUploadResult, error) {
	if userID == 0 {
		err := errors.New("user is not valid")
		slog.Info(err.Error())
		return nil, err
	}
	if len(files) == 0 {
		return nil, errors.New("no files provided")
	}

	results := make([]*transfer.MediaUploadResult, 0, len(files))
	for _, file := range files {
		result, err := s.uploadOne(ctx, file)
		if err != nil {
			return nil, err
		}
		results = append(results, result)
	}

	return results, nil
}

func (s *mediaService) uploadOne(ctx context.Context, file *multipart.FileHeader) (*transfer.MediaUploadResult, error) {
	fileContent, err := file.Open()
	if err != nil {
		return nil, fmt.Errorf("error opening file: %w", err)
	}
	defer fileContent.Close()

	fileBytes, err := io.ReadAll(fileContent)
	if err != nil {
		return nil, fmt.Errorf("error reading file content: %w", err)
	}

	fileType, err := filetype.Match(fileBytes)
	if err != nil || fileType == types.Unknown {
		return nil, fmt.Errorf("unsupported file type: %w", err)
	}
	if _, ok := allowedUploadTypes[fileType.Extension]; !ok {
		return nil, fmt.Errorf("file type %s is not allowed", fileType.Extension)
	}

	key, err := gonanoid.New()
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	key = fmt.Sprintf("%s.%s", key, fileType.Extension)

	if err := s.r2.Upload(ctx, key, fileBytes, fileType.MIME.Value); err != nil {
		return nil, fmt.Errorf("error uploading file: %w", err)
	}

	return &transfer.MediaUploadResult{
		FileName: key,
		FileType: fileType.MIME.Value,
		FileURL:  s.r2.PublicURL(key),
	}, nil
}
