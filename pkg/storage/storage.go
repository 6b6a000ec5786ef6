package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/noah-isme/bookwyrm-admin/pkg/config"
)

// Backend publishes URLs for instance media and reports whether the store is reachable.
type Backend interface {
	URL(name string) string
	Check(ctx context.Context) error
}

// New selects the media backend from configuration: S3-compatible object storage when
// USE_S3 is on, the local media root otherwise.
func New(cfg *config.Config) (Backend, error) {
	if cfg.Storage.UseS3 {
		return NewS3Storage(cfg.Storage)
	}
	scheme := "http"
	if cfg.Security.UseHTTPS {
		scheme = "https"
	}
	return NewLocalStorage(cfg.Storage.MediaRoot, fmt.Sprintf("%s://%s/images/", scheme, cfg.Security.Domain))
}

func joinURL(base, name string) string {
	if name == "" {
		return ""
	}
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(name, "/")
}
