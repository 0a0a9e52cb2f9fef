// Package media moves attachments from ephemeral provider URLs and inline
// payloads into durable storage, and runs the lazy repair flow for messages
// whose media could not be extracted at ingestion time.
package media

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Storage is the durable destination for extracted media bytes. Provider URLs
// expire, so pipeline output is always re-uploaded here and only the returned
// reference is persisted.
type Storage interface {
	Put(ctx context.Context, key, contentType string, data []byte) (string, error)
}

// DiskStorage writes media under a local directory and serves it from a
// configurable base URL.
type DiskStorage struct {
	Root    string
	BaseURL string
}

func NewDiskStorage(root, baseURL string) *DiskStorage {
	return &DiskStorage{Root: root, BaseURL: strings.TrimSuffix(baseURL, "/")}
}

func (s *DiskStorage) Put(ctx context.Context, key, contentType string, data []byte) (string, error) {
	name := key + extensionFor(contentType)
	path := filepath.Join(s.Root, name)

	if err := os.MkdirAll(s.Root, 0o755); err != nil {
		return "", fmt.Errorf("create storage dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write media file: %w", err)
	}
	return s.BaseURL + "/" + name, nil
}

func extensionFor(contentType string) string {
	switch {
	case strings.HasPrefix(contentType, "image/jpeg"):
		return ".jpg"
	case strings.HasPrefix(contentType, "image/png"):
		return ".png"
	case strings.HasPrefix(contentType, "image/webp"):
		return ".webp"
	case strings.HasPrefix(contentType, "audio/ogg"):
		return ".ogg"
	case strings.HasPrefix(contentType, "audio/"):
		return ".mp3"
	case strings.HasPrefix(contentType, "video/"):
		return ".mp4"
	case strings.HasPrefix(contentType, "application/pdf"):
		return ".pdf"
	default:
		return ".bin"
	}
}
