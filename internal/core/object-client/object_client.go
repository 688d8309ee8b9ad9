package objectclient

import (
	"context"
	"fmt"
	"path"
	"strings"

	cfg "github.com/markdave123-py/Clausewise/internal/config"
	"github.com/markdave123-py/Clausewise/internal/core"
)

// New returns the client selected by STORAGE_DRIVER, or nil for "none".
func New(ctx context.Context, cfg *cfg.Config) (core.ObjectClient, error) {
	switch cfg.StorageDriver {
	case "s3":
		c, err := NewS3Client(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return c, nil
	case "minio":
		c, err := NewMinioClient(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return c, nil
	case "none", "":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown STORAGE_DRIVER %q", cfg.StorageDriver)
	}
}

// Key builds an object key below prefix with the file's base name.
func Key(prefix, id, fileName string) string {
	name := path.Base(strings.ReplaceAll(fileName, "\\", "/"))
	if name == "." || name == "/" || name == "" {
		name = "file"
	}
	return path.Join(prefix, id, name)
}
