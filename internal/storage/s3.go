package storage

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

const (
	defaultS3Bucket = "typebot"
	defaultS3Region = "us-east-1"
	amzAlgorithm    = "AWS4-HMAC-SHA256"
)

// s3Signer builds SigV4 presigned POST policies. Buckets are addressed
// path-style so any S3-compatible endpoint works.
type s3Signer struct {
	endpoint  string
	accessKey string
	secretKey string
	bucket    string
	region    string
	port      int
	ssl       bool
	ttl       time.Duration
	maxSize   int64
	now       func() time.Time
}

func newS3Signer(cfg Config) *s3Signer {
	s := &s3Signer{
		endpoint:  cfg.S3Endpoint,
		accessKey: cfg.S3AccessKey,
		secretKey: cfg.S3SecretKey,
		bucket:    cfg.S3Bucket,
		region:    cfg.S3Region,
		port:      cfg.S3Port,
		ssl:       cfg.S3SSL,
		ttl:       cfg.TTL,
		maxSize:   cfg.MaxUploadSize,
		now:       time.Now,
	}
	if s.bucket == "" {
		s.bucket = defaultS3Bucket
	}
	if s.region == "" {
		s.region = defaultS3Region
	}
	return s
}

func (s *s3Signer) Provider() string { return ProviderS3 }

// Presign returns a policy restricted to one key, one content type and
// the configured maximum size.
func (s *s3Signer) Presign(ctx context.Context, req UploadRequest) (*PresignedUpload, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	dateStamp := now.Format("20060102")
	amzDate := now.Format("20060102T150405Z")
	credential := fmt.Sprintf("%s/%s/%s/s3/aws4_request", s.accessKey, dateStamp, s.region)
	key := objectKey(req.FilePath)

	policy := map[string]any{
		"expiration": now.Add(s.ttl).Format("2006-01-02T15:04:05.000Z"),
		"conditions": []any{
			map[string]string{"bucket": s.bucket},
			[]string{"eq", "$key", key},
			[]string{"eq", "$Content-Type", req.FileType},
			[]any{"content-length-range", 0, s.maxSize},
			map[string]string{"x-amz-algorithm": amzAlgorithm},
			map[string]string{"x-amz-credential": credential},
			map[string]string{"x-amz-date": amzDate},
		},
	}
	raw, err := json.Marshal(policy)
	if err != nil {
		return nil, fmt.Errorf("encode s3 policy: %w", err)
	}
	encoded := base64.StdEncoding.EncodeToString(raw)

	signingKey := deriveSigningKey(s.secretKey, dateStamp, s.region, "s3")
	signature := hex.EncodeToString(hmacSHA256(signingKey, encoded))

	postURL := s.postURL()
	return &PresignedUpload{
		PresignedURL: postURL + "/" + key,
		FormData: map[string]string{
			"bucket":           s.bucket,
			"key":              key,
			"Content-Type":     req.FileType,
			"policy":           encoded,
			"x-amz-algorithm":  amzAlgorithm,
			"x-amz-credential": credential,
			"x-amz-date":       amzDate,
			"x-amz-signature":  signature,
		},
	}, nil
}

func (s *s3Signer) postURL() string {
	scheme := "http"
	if s.ssl {
		scheme = "https"
	}
	host := s.endpoint
	if s.port != 0 {
		host += ":" + strconv.Itoa(s.port)
	}
	return scheme + "://" + host + "/" + s.bucket
}

// deriveSigningKey computes the SigV4 signing key for a date and scope.
func deriveSigningKey(secretKey, dateStamp, region, service string) []byte {
	kDate := hmacSHA256([]byte("AWS4"+secretKey), dateStamp)
	kRegion := hmacSHA256(kDate, region)
	kService := hmacSHA256(kRegion, service)
	return hmacSHA256(kService, "aws4_request")
}

func hmacSHA256(key []byte, data string) []byte {
	h := hmac.New(sha256.New, key)
	h.Write([]byte(data))
	return h.Sum(nil)
}
