// Package storage issues presigned upload URLs for S3-compatible object
// stores and Azure Blob Storage.
package storage

import (
	"context"
	"errors"
	"strings"
	"time"
)

// Provider names.
const (
	ProviderS3    = "s3"
	ProviderAzure = "azure"
)

const (
	// DefaultTTL is how long a presigned upload stays valid.
	DefaultTTL = 10 * time.Minute
	// DefaultMaxUploadSize caps the content-length-range of S3 policies.
	DefaultMaxUploadSize int64 = 10 << 20
)

var (
	// ErrNotConfigured is returned when neither provider has credentials.
	ErrNotConfigured = errors.New("S3 not properly configured. Missing one of those variables: S3_ENDPOINT, S3_ACCESS_KEY, S3_SECRET_KEY")
	// ErrInvalidRequest is returned when the file path or type is empty.
	ErrInvalidRequest = errors.New("filePath and fileType are required")
)

// UploadRequest describes the object a client wants to upload.
type UploadRequest struct {
	FilePath string
	FileType string
}

// PresignedUpload is what a browser needs to upload directly to storage.
type PresignedUpload struct {
	PresignedURL string            `json:"presignedUrl"`
	FormData     map[string]string `json:"formData"`
}

// Signer issues presigned uploads for one provider.
type Signer interface {
	Provider() string
	Presign(ctx context.Context, req UploadRequest) (*PresignedUpload, error)
}

// Config carries provider credentials. Zero values fall back to defaults.
type Config struct {
	S3Endpoint  string
	S3AccessKey string
	S3SecretKey string
	S3Bucket    string
	S3Region    string
	S3Port      int
	S3SSL       bool

	AzureConnectionString string
	AzureContainerName    string

	TTL           time.Duration
	MaxUploadSize int64
}

// S3Configured reports whether S3 credentials are complete.
func (c Config) S3Configured() bool {
	return c.S3Endpoint != "" && c.S3AccessKey != "" && c.S3SecretKey != ""
}

// AzureConfigured reports whether Azure credentials are complete.
func (c Config) AzureConfigured() bool {
	return c.AzureConnectionString != "" && c.AzureContainerName != ""
}

// NewSigner picks the provider from cfg. S3 wins when both are configured.
func NewSigner(cfg Config) (Signer, error) {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.MaxUploadSize <= 0 {
		cfg.MaxUploadSize = DefaultMaxUploadSize
	}

	switch {
	case cfg.S3Configured():
		return newS3Signer(cfg), nil
	case cfg.AzureConfigured():
		return newAzureSigner(cfg)
	default:
		return nil, ErrNotConfigured
	}
}

func (r UploadRequest) validate() error {
	if strings.TrimSpace(r.FilePath) == "" || strings.TrimSpace(r.FileType) == "" {
		return ErrInvalidRequest
	}
	return nil
}

// objectKey strips leading slashes so keys never start with an empty segment.
func objectKey(filePath string) string {
	return strings.TrimLeft(filePath, "/")
}
