package storage

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, 3, 9, 14, 30, 0, 0, time.UTC)

const azureKey = "dGVzdC1hY2NvdW50LWtleS0wMTIzNDU2Nzg5YWJjZGVm" // base64("test-account-key-0123456789abcdef")

func s3Config() Config {
	return Config{
		S3Endpoint:  "minio.example.com",
		S3AccessKey: "AKIDEXAMPLE",
		S3SecretKey: "secret",
		S3Bucket:    "uploads",
		S3Region:    "eu-west-1",
		S3SSL:       true,
		TTL:         15 * time.Minute,
	}
}

func azureConfig() Config {
	return Config{
		AzureConnectionString: "DefaultEndpointsProtocol=https;AccountName=flowbot;AccountKey=" + azureKey + ";EndpointSuffix=core.windows.net",
		AzureContainerName:    "files",
		TTL:                   15 * time.Minute,
	}
}

func TestNewSigner_ProviderSelection(t *testing.T) {
	_, err := NewSigner(Config{})
	assert.ErrorIs(t, err, ErrNotConfigured)

	partial := s3Config()
	partial.S3SecretKey = ""
	_, err = NewSigner(partial)
	assert.ErrorIs(t, err, ErrNotConfigured, "incomplete S3 config is not configured")

	s, err := NewSigner(s3Config())
	require.NoError(t, err)
	assert.Equal(t, ProviderS3, s.Provider())

	s, err = NewSigner(azureConfig())
	require.NoError(t, err)
	assert.Equal(t, ProviderAzure, s.Provider())

	both := s3Config()
	both.AzureConnectionString = azureConfig().AzureConnectionString
	both.AzureContainerName = "files"
	s, err = NewSigner(both)
	require.NoError(t, err)
	assert.Equal(t, ProviderS3, s.Provider(), "S3 wins when both are set")
}

func TestPresign_RequiresPathAndType(t *testing.T) {
	for _, cfg := range []Config{s3Config(), azureConfig()} {
		s, err := NewSigner(cfg)
		require.NoError(t, err)

		_, err = s.Presign(context.Background(), UploadRequest{FilePath: "a.png"})
		assert.ErrorIs(t, err, ErrInvalidRequest)
		_, err = s.Presign(context.Background(), UploadRequest{FileType: "image/png"})
		assert.ErrorIs(t, err, ErrInvalidRequest)
	}
}

func TestDeriveSigningKey_KnownVector(t *testing.T) {
	// Published SigV4 signing key derivation example.
	key := deriveSigningKey("wJalrXUtnFEMI/K7MDENG+bPxRfiCYEXAMPLEKEY", "20120215", "us-east-1", "iam")
	assert.Equal(t, "f4780e2d9f65fa895f9c67b32ce1baf0b0d8a43505a000a1a9e090d414db404d", hex.EncodeToString(key))
}

func TestS3Signer_Presign(t *testing.T) {
	s := newS3Signer(s3Config())
	s.maxSize = 1024
	s.now = func() time.Time { return fixedNow }

	up, err := s.Presign(context.Background(), UploadRequest{FilePath: "/public/ws-1/avatar.png", FileType: "image/png"})
	require.NoError(t, err)

	assert.Equal(t, "https://minio.example.com/uploads/public/ws-1/avatar.png", up.PresignedURL)
	fd := up.FormData
	assert.Equal(t, "public/ws-1/avatar.png", fd["key"])
	assert.Equal(t, "image/png", fd["Content-Type"])
	assert.Equal(t, "uploads", fd["bucket"])
	assert.Equal(t, amzAlgorithm, fd["x-amz-algorithm"])
	assert.Equal(t, "AKIDEXAMPLE/20240309/eu-west-1/s3/aws4_request", fd["x-amz-credential"])
	assert.Equal(t, "20240309T143000Z", fd["x-amz-date"])

	raw, err := base64.StdEncoding.DecodeString(fd["policy"])
	require.NoError(t, err)
	var policy struct {
		Expiration string            `json:"expiration"`
		Conditions []json.RawMessage `json:"conditions"`
	}
	require.NoError(t, json.Unmarshal(raw, &policy))
	assert.Equal(t, "2024-03-09T14:45:00.000Z", policy.Expiration)

	conditions := make([]string, 0, len(policy.Conditions))
	for _, c := range policy.Conditions {
		conditions = append(conditions, string(c))
	}
	assert.Contains(t, conditions, `["eq","$key","public/ws-1/avatar.png"]`)
	assert.Contains(t, conditions, `["eq","$Content-Type","image/png"]`)
	assert.Contains(t, conditions, `["content-length-range",0,1024]`)
	assert.Contains(t, conditions, `{"bucket":"uploads"}`)

	mac := hmac.New(sha256.New, deriveSigningKey("secret", "20240309", "eu-west-1", "s3"))
	mac.Write([]byte(fd["policy"]))
	assert.Equal(t, hex.EncodeToString(mac.Sum(nil)), fd["x-amz-signature"])
}

func TestS3Signer_PostURLDefaults(t *testing.T) {
	s := newS3Signer(Config{S3Endpoint: "localhost", S3AccessKey: "a", S3SecretKey: "b", S3Port: 9000})
	assert.Equal(t, "http://localhost:9000/typebot", s.postURL())
	assert.Equal(t, defaultS3Region, s.region)
}

func TestParseConnectionString(t *testing.T) {
	acc, err := parseConnectionString(azureConfig().AzureConnectionString)
	require.NoError(t, err)
	assert.Equal(t, "flowbot", acc.name)
	assert.Equal(t, "https://flowbot.blob.core.windows.net", acc.blobEndpoint)
	assert.Equal(t, "test-account-key-0123456789abcdef", string(acc.key))

	acc, err = parseConnectionString("AccountName=devstoreaccount1;AccountKey=" + azureKey + ";BlobEndpoint=http://127.0.0.1:10000/devstoreaccount1/")
	require.NoError(t, err)
	assert.Equal(t, "http://127.0.0.1:10000/devstoreaccount1", acc.blobEndpoint)
	assert.Equal(t, "http", acc.protocol)

	for _, bad := range []string{
		"",
		"AccountName=x",
		"AccountName=x;AccountKey=***notbase64***",
		"garbage",
	} {
		_, err := parseConnectionString(bad)
		assert.ErrorIs(t, err, ErrInvalidConnectionString, bad)
	}
}

func TestAzureSigner_Presign(t *testing.T) {
	s, err := newAzureSigner(azureConfig())
	require.NoError(t, err)
	s.now = func() time.Time { return fixedNow }

	up, err := s.Presign(context.Background(), UploadRequest{FilePath: "public/my file.png", FileType: "image/png"})
	require.NoError(t, err)

	base, query, ok := strings.Cut(up.PresignedURL, "?")
	require.True(t, ok)
	assert.Equal(t, "https://flowbot.blob.core.windows.net/files/public/my%20file.png", base)
	assert.Equal(t, "public/my file.png", up.FormData["key"])
	assert.Equal(t, "BlockBlob", up.FormData["x-ms-blob-type"])

	q, err := url.ParseQuery(query)
	require.NoError(t, err)
	assert.Equal(t, sasVersion, q.Get("sv"))
	assert.Equal(t, "b", q.Get("sr"))
	assert.Equal(t, "cw", q.Get("sp"))
	assert.Equal(t, "https", q.Get("spr"))
	assert.Equal(t, "2024-03-09T14:25:00Z", q.Get("st"))
	assert.Equal(t, "2024-03-09T14:45:00Z", q.Get("se"))

	stringToSign := strings.Join([]string{
		"cw", "2024-03-09T14:25:00Z", "2024-03-09T14:45:00Z", "/blob/flowbot/files/public/my file.png",
		"", "", "https", sasVersion, "b", "", "", "", "", "", "", "",
	}, "\n")
	mac := hmac.New(sha256.New, []byte("test-account-key-0123456789abcdef"))
	mac.Write([]byte(stringToSign))
	assert.Equal(t, base64.StdEncoding.EncodeToString(mac.Sum(nil)), q.Get("sig"))
}
