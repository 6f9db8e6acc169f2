package app

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"dm_chat_service/pkg/database"
	errprocess "dm_chat_service/pkg/err"

	"github.com/google/uuid"
)

// presignExpiry how long a download link stays valid
const presignExpiry = 60 * time.Minute

// MediaUseCase stores message attachments in object storage and resolves
// refs back into presigned download URLs.
type MediaUseCase struct {
	minioClient *database.MinIOClient
}

// NewMediaUseCase create MediaUseCase
func NewMediaUseCase(minioClient *database.MinIOClient) *MediaUseCase {
	return &MediaUseCase{minioClient: minioClient}
}

// Store uploads the attachment under media/{uuid}/{name} and returns the
// ref together with a presigned URL for immediate display.
func (uc *MediaUseCase) Store(ctx context.Context, name string, reader io.Reader, size int64, contentType string) (string, string, error) {
	objectName := fmt.Sprintf("media/%s/%s", uuid.New().String(), filepath.Base(name))

	if err := uc.minioClient.UploadObject(ctx, objectName, reader, size, contentType); err != nil {
		return "", "", errprocess.Set(fmt.Sprintf("upload object [%s] failed: %v", objectName, err))
	}

	url, err := uc.minioClient.PresignGetURL(ctx, objectName, presignExpiry)
	if err != nil {
		return "", "", errprocess.Set(fmt.Sprintf("presign object [%s] failed: %v", objectName, err))
	}
	return objectName, url, nil
}

// Resolve turns a stored media ref into a fresh presigned download URL.
func (uc *MediaUseCase) Resolve(ctx context.Context, ref string) (string, error) {
	url, err := uc.minioClient.PresignGetURL(ctx, ref, presignExpiry)
	if err != nil {
		return "", errprocess.Set(fmt.Sprintf("presign object [%s] failed: %v", ref, err))
	}
	return url, nil
}
