package storage

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

const (
	sasVersion     = "2020-12-06"
	sasPermissions = "cw"
)

// ErrInvalidConnectionString is returned for unparsable Azure connection strings.
var ErrInvalidConnectionString = errors.New("invalid azure blob connection string")

// azureAccount is the subset of a storage connection string used for SAS.
type azureAccount struct {
	name         string
	key          []byte
	blobEndpoint string
	protocol     string
}

// parseConnectionString reads AccountName, AccountKey and either
// BlobEndpoint or DefaultEndpointsProtocol plus EndpointSuffix.
func parseConnectionString(cs string) (*azureAccount, error) {
	fields := make(map[string]string)
	for _, part := range strings.Split(cs, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		k, v, ok := strings.Cut(part, "=")
		if !ok {
			return nil, ErrInvalidConnectionString
		}
		fields[strings.ToLower(k)] = v
	}

	acc := &azureAccount{
		name:     fields["accountname"],
		protocol: fields["defaultendpointsprotocol"],
	}
	if acc.name == "" || fields["accountkey"] == "" {
		return nil, ErrInvalidConnectionString
	}

	key, err := base64.StdEncoding.DecodeString(fields["accountkey"])
	if err != nil {
		return nil, fmt.Errorf("%w: account key is not base64", ErrInvalidConnectionString)
	}
	acc.key = key

	if acc.protocol == "" {
		acc.protocol = "https"
	}

	if ep := fields["blobendpoint"]; ep != "" {
		u, err := url.Parse(ep)
		if err != nil || u.Host == "" {
			return nil, fmt.Errorf("%w: bad BlobEndpoint", ErrInvalidConnectionString)
		}
		acc.blobEndpoint = strings.TrimRight(ep, "/")
		acc.protocol = u.Scheme
	} else {
		suffix := fields["endpointsuffix"]
		if suffix == "" {
			suffix = "core.windows.net"
		}
		acc.blobEndpoint = fmt.Sprintf("%s://%s.blob.%s", acc.protocol, acc.name, suffix)
	}

	return acc, nil
}

// azureSigner issues blob service SAS tokens allowing create and write on a
// single blob.
type azureSigner struct {
	account   *azureAccount
	container string
	ttl       time.Duration
	now       func() time.Time
}

func newAzureSigner(cfg Config) (*azureSigner, error) {
	acc, err := parseConnectionString(cfg.AzureConnectionString)
	if err != nil {
		return nil, err
	}
	return &azureSigner{
		account:   acc,
		container: cfg.AzureContainerName,
		ttl:       cfg.TTL,
		now:       time.Now,
	}, nil
}

func (a *azureSigner) Provider() string { return ProviderAzure }

func (a *azureSigner) Presign(ctx context.Context, req UploadRequest) (*PresignedUpload, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	key := objectKey(req.FilePath)
	now := a.now().UTC()
	// Allow for clock skew between us and the storage service.
	start := now.Add(-5 * time.Minute).Format(time.RFC3339)
	expiry := now.Add(a.ttl).Format(time.RFC3339)

	protocol := "https"
	if a.account.protocol == "http" {
		protocol = "https,http"
	}

	canonical := "/blob/" + a.account.name + "/" + a.container + "/" + key
	// permissions, start, expiry, resource, identifier, IP, protocol,
	// version, resource type, snapshot, encryption scope, then the five
	// response header overrides.
	stringToSign := strings.Join([]string{
		sasPermissions, start, expiry, canonical, "", "", protocol, sasVersion, "b", "", "", "", "", "", "", "",
	}, "\n")

	mac := hmac.New(sha256.New, a.account.key)
	mac.Write([]byte(stringToSign))
	sig := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	q := url.Values{}
	q.Set("sv", sasVersion)
	q.Set("spr", protocol)
	q.Set("st", start)
	q.Set("se", expiry)
	q.Set("sr", "b")
	q.Set("sp", sasPermissions)
	q.Set("sig", sig)

	containerURL := a.account.blobEndpoint + "/" + url.PathEscape(a.container)
	return &PresignedUpload{
		PresignedURL: containerURL + "/" + escapeBlobPath(key) + "?" + q.Encode(),
		FormData: map[string]string{
			"key":            key,
			"Content-Type":   req.FileType,
			"x-ms-blob-type": "BlockBlob",
		},
	}, nil
}

// escapeBlobPath escapes each segment while keeping the separators.
func escapeBlobPath(key string) string {
	segments := strings.Split(key, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return strings.Join(segments, "/")
}
