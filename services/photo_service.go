package services

import (
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// s3RefPrefix marks a photo entry that was offloaded to object storage.
const s3RefPrefix = "s3:"

// PhotoService moves opaque photo payloads between reports and storage.
// The report engine enforces only the count invariant; payload encoding is
// passed through untouched.
type PhotoService interface {
	// Offload stores inline payloads and returns the entries to persist on
	// the report (storage references, or the payloads unchanged).
	Offload(reportID string, photos []string) ([]string, error)

	// Resolve turns stored entries back into something a client can render:
	// presigned URLs for offloaded photos, the payload itself otherwise.
	Resolve(photos []string) ([]string, error)
}

var photoServiceInstance PhotoService

// InitPhotoService initializes the photo service. With an S3 backend the
// payloads are offloaded; without one they stay embedded on the report.
func InitPhotoService(s3Service S3Interface) PhotoService {
	if s3Service != nil {
		photoServiceInstance = &S3PhotoService{s3Service: s3Service}
	} else {
		photoServiceInstance = &InlinePhotoService{}
	}
	return photoServiceInstance
}

// GetPhotoService returns the initialized photo service instance
func GetPhotoService() PhotoService {
	return photoServiceInstance
}

// SetPhotoService sets the photo service instance (primarily for testing)
func SetPhotoService(service PhotoService) {
	photoServiceInstance = service
}

// InlinePhotoService keeps photo payloads embedded on the report.
type InlinePhotoService struct{}

// Offload returns the payloads unchanged
func (s *InlinePhotoService) Offload(reportID string, photos []string) ([]string, error) {
	return photos, nil
}

// Resolve returns the stored entries unchanged
func (s *InlinePhotoService) Resolve(photos []string) ([]string, error) {
	return photos, nil
}

// S3PhotoService stores photo payloads as S3 objects and keeps only a
// storage reference on the report.
type S3PhotoService struct {
	s3Service S3Interface
}

// Offload uploads each inline payload to S3 and replaces it with a
// reference. Entries that are already references are kept as-is, and a
// payload that does not decode is stored inline rather than rejected.
func (s *S3PhotoService) Offload(reportID string, photos []string) ([]string, error) {
	stored := make([]string, 0, len(photos))
	for _, photo := range photos {
		if strings.HasPrefix(photo, s3RefPrefix) {
			stored = append(stored, photo)
			continue
		}

		data, contentType, ok := decodePhotoPayload(photo)
		if !ok {
			stored = append(stored, photo)
			continue
		}

		key := fmt.Sprintf("reports/%s/%s", reportID, uuid.NewString())
		if err := s.s3Service.PutObject(key, data, contentType); err != nil {
			return nil, fmt.Errorf("failed to offload photo: %w", err)
		}
		stored = append(stored, s3RefPrefix+key)
	}
	return stored, nil
}

// Resolve replaces S3 references with presigned URLs
func (s *S3PhotoService) Resolve(photos []string) ([]string, error) {
	resolved := make([]string, 0, len(photos))
	for _, photo := range photos {
		if !strings.HasPrefix(photo, s3RefPrefix) {
			resolved = append(resolved, photo)
			continue
		}

		url, err := s.s3Service.GetPresignedURL(strings.TrimPrefix(photo, s3RefPrefix))
		if err != nil {
			return nil, fmt.Errorf("failed to resolve photo: %w", err)
		}
		resolved = append(resolved, url)
	}
	return resolved, nil
}

// decodePhotoPayload extracts raw bytes from a base64 payload, with or
// without a data-URL header.
func decodePhotoPayload(payload string) (data []byte, contentType string, ok bool) {
	contentType = "application/octet-stream"
	encoded := payload

	if strings.HasPrefix(payload, "data:") {
		header, rest, found := strings.Cut(payload, ",")
		if !found {
			return nil, "", false
		}
		if mediaType, _, hasEncoding := strings.Cut(strings.TrimPrefix(header, "data:"), ";"); hasEncoding && mediaType != "" {
			contentType = mediaType
		}
		encoded = rest
	}

	decoded, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, "", false
	}
	return decoded, contentType, true
}
