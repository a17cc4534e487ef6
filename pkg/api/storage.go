package api

import (
	"context"
	"net/url"
	"strconv"
	"strings"

	"github.com/Kush1612/BuckIt/pkg/client"
	"github.com/Kush1612/BuckIt/pkg/logger"
	json "github.com/json-iterator/go"
)

// escapePath escapes each segment of an object path, keeping the slashes.
func escapePath(p string) string {
	segs := strings.Split(strings.TrimLeft(p, "/"), "/")
	for i, s := range segs {
		segs[i] = url.PathEscape(s)
	}
	return strings.Join(segs, "/")
}

// Upload stores data at bucket/path.
func Upload(ctx context.Context, bucket, path string, data []byte, contentType string, upsert bool) error {
	logger.Debug("Uploading object", "bucket", bucket, "path", path, "bytes", len(data))

	if contentType == "" {
		contentType = "application/octet-stream"
	}

	c, err := client.GetClient()
	if err != nil {
		return err
	}
	resp, err := c.R().
		SetContext(ctx).
		SetHeader("Content-Type", contentType).
		SetHeader("Cache-Control", "max-age=3600").
		SetHeader("x-upsert", strconv.FormatBool(upsert)).
		SetBody(data).
		Post("/storage/v1/object/" + bucket + "/" + escapePath(path))

	if err := CheckResponse(resp, err); err != nil {
		return err
	}

	logger.Debug("Object uploaded", "bucket", bucket, "path", path)
	return nil
}

// CreateSignedURL asks the backend for a URL that reads bucket/path for ttl
// seconds. The backend answers with a path relative to the storage API in
// older versions; it is made absolute here.
func CreateSignedURL(ctx context.Context, bucket, path string, ttl int) (string, error) {
	logger.Debug("Creating signed URL", "bucket", bucket, "path", path, "ttl", ttl)

	reqBody, err := json.Marshal(SignedURLRequest{ExpiresIn: ttl})
	if err != nil {
		return "", err
	}

	c, err := client.GetClient()
	if err != nil {
		return "", err
	}
	resp, err := c.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(reqBody).
		Post("/storage/v1/object/sign/" + bucket + "/" + escapePath(path))

	if err := CheckResponse(resp, err); err != nil {
		return "", err
	}

	var body map[string]interface{}
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		return "", err
	}
	signed := firstString(body, "signedURL", "signedUrl", "signed_url")
	if signed == "" {
		return "", notFound("no signed URL returned for " + path)
	}
	return absoluteStorageURL(client.Backend().URL, signed), nil
}

func absoluteStorageURL(base, signed string) string {
	if strings.HasPrefix(signed, "http://") || strings.HasPrefix(signed, "https://") {
		return signed
	}
	base = strings.TrimRight(base, "/")
	if !strings.HasPrefix(signed, "/") {
		signed = "/" + signed
	}
	if strings.HasPrefix(signed, "/storage/v1/") {
		return base + signed
	}
	return base + "/storage/v1" + signed
}

// PublicURL is the address of bucket/path when the bucket is public.
func PublicURL(bucket, path string) string {
	base := strings.TrimRight(client.Backend().URL, "/")
	return base + "/storage/v1/object/public/" + bucket + "/" + escapePath(path)
}

// Remove deletes the given object paths from bucket.
func Remove(ctx context.Context, bucket string, paths []string) error {
	logger.Debug("Removing objects", "bucket", bucket, "count", len(paths))

	if len(paths) == 0 {
		return nil
	}
	reqBody, err := json.Marshal(removeRequest{Prefixes: paths})
	if err != nil {
		return err
	}

	c, err := client.GetClient()
	if err != nil {
		return err
	}
	resp, err := c.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(reqBody).
		Delete("/storage/v1/object/" + bucket)

	return CheckResponse(resp, err)
}

// ListObjects lists the entries directly under prefix.
func ListObjects(ctx context.Context, bucket, prefix string) ([]StorageObject, error) {
	logger.Debug("Listing objects", "bucket", bucket, "prefix", prefix)

	reqBody, err := json.Marshal(listObjectsRequest{
		Prefix: prefix,
		Limit:  1000,
		Offset: 0,
		SortBy: map[string]string{"column": "name", "order": "asc"},
	})
	if err != nil {
		return nil, err
	}

	c, err := client.GetClient()
	if err != nil {
		return nil, err
	}
	resp, err := c.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(reqBody).
		Post("/storage/v1/object/list/" + bucket)

	if err := CheckResponse(resp, err); err != nil {
		return nil, err
	}

	var objects []StorageObject
	if err := json.Unmarshal(resp.Body(), &objects); err != nil {
		return nil, err
	}
	return objects, nil
}

// Head issues a HEAD request against an absolute URL and reports the status.
func Head(ctx context.Context, rawURL string) (int, error) {
	c, err := client.GetClient()
	if err != nil {
		return 0, err
	}
	resp, err := c.R().
		SetContext(ctx).
		Head(rawURL)
	if err != nil {
		return 0, err
	}
	return resp.StatusCode(), nil
}
