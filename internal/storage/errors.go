package storage

import (
	"strings"

	"github.com/minio/minio-go/v7"
)

// errorCode returns the S3 error code of err, lowercased, or "".
func errorCode(err error) string {
	if err == nil {
		return ""
	}
	return strings.ToLower(minio.ToErrorResponse(err).Code)
}

// IsNoSuchKey reports whether err means the object is already gone.
func IsNoSuchKey(err error) bool {
	switch errorCode(err) {
	case "nosuchkey", "notfound":
		return true
	}
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "specified key does not exist")
}

// IsNoSuchBucket reports whether err means the export bucket does not exist.
func IsNoSuchBucket(err error) bool {
	return errorCode(err) == "nosuchbucket" ||
		(err != nil && strings.Contains(strings.ToLower(err.Error()), "specified bucket does not exist"))
}
