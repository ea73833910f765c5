package storage

import (
	"fmt"
	"strings"
)

const uploadPrefix = "uploads"

var extensionByContentType = map[string]string{
	"image/jpeg": "jpg",
	"image/png":  "png",
	"image/webp": "webp",
}

// UploadKey composes the object key for an uploaded photo.
func UploadKey(id, contentType string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", fmt.Errorf("storage: upload id is required")
	}
	if strings.ContainsAny(id, "/\\") || strings.Contains(id, "..") {
		return "", fmt.Errorf("storage: upload id contains invalid path characters")
	}
	ext, ok := extensionByContentType[strings.ToLower(strings.TrimSpace(contentType))]
	if !ok {
		return "", fmt.Errorf("storage: unsupported content type %q", contentType)
	}
	return fmt.Sprintf("%s/%s.%s", uploadPrefix, id, ext), nil
}

// ParseUploadKey validates a photo path from a request and returns the object
// key, rejecting traversal attempts.
func ParseUploadKey(path string) (string, error) {
	path = strings.TrimSpace(strings.TrimPrefix(path, "/"))
	if path == "" {
		return "", fmt.Errorf("storage: photo path is required")
	}
	if strings.Contains(path, "..") || strings.Contains(path, "\\") {
		return "", fmt.Errorf("storage: photo path contains invalid traversal sequence")
	}
	if !strings.HasPrefix(path, uploadPrefix+"/") {
		path = uploadPrefix + "/" + path
	}
	return path, nil
}
