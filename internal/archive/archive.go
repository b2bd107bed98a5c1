// Package archive keeps copies of downloaded regulation documents. Archiving
// is best effort: callers log failures and carry on.
package archive

import (
	"context"
	"fmt"
	"path"
	"regexp"
	"strings"
	"time"

	"racefeed/internal/config"
)

// Driver names a storage backend.
type Driver string

const (
	DriverFS     Driver = "fs"
	DriverS3     Driver = "s3"
	DriverMemory Driver = "memory"
	DriverNone   Driver = "none"
)

// Store persists archived documents.
type Store interface {
	Driver() Driver
	// Put stores data under key and returns a locator (path or URI).
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
}

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// Key builds the archive key for a document fetched for the head row at
// position: <yyyy-mm-dd>/row-<position>/<file>.
func Key(now time.Time, position int, filename string) string {
	name := unsafeName.ReplaceAllString(path.Base(strings.TrimSpace(filename)), "_")
	name = strings.Trim(name, "._")
	if name == "" {
		name = "document"
	}
	return fmt.Sprintf("%s/row-%d/%s", now.UTC().Format("2006-01-02"), position, name)
}

// Open builds the store selected by cfg.
func Open(ctx context.Context, cfg config.Archive) (Store, error) {
	switch Driver(strings.ToLower(strings.TrimSpace(cfg.Driver))) {
	case DriverFS, "":
		return NewFS(cfg.Dir)
	case DriverS3:
		return NewS3(ctx, S3Config{
			Bucket:    cfg.Bucket,
			Prefix:    cfg.Prefix,
			Region:    cfg.Region,
			Endpoint:  cfg.Endpoint,
			PathStyle: cfg.UsePathStyle,
		})
	case DriverMemory:
		return NewMemory(), nil
	case DriverNone:
		return None{}, nil
	default:
		return nil, fmt.Errorf("unknown archive driver %q", cfg.Driver)
	}
}

// None discards documents.
type None struct{}

func (None) Driver() Driver { return DriverNone }

func (None) Put(context.Context, string, []byte, string) (string, error) { return "", nil }
