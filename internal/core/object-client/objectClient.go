package objectclient

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/markdave123-py/integraldb/internal/core"
)

var _ core.ObjectClient = (*LocalClient)(nil)

// LocalClient keeps fetched documents under a directory on disk.
type LocalClient struct {
	root string
}

func NewLocalClient(root string) (*LocalClient, error) {
	if root == "" {
		return nil, fmt.Errorf("attachment dir not set")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create attachment dir: %w", err)
	}
	return &LocalClient{root: root}, nil
}

// PutObject writes data under root/key and returns the file path.
func (c *LocalClient) PutObject(ctx context.Context, key string, data []byte, _ string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	p, err := c.resolve(key)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return "", fmt.Errorf("create dir: %w", err)
	}
	if err := os.WriteFile(p, data, 0o644); err != nil {
		return "", fmt.Errorf("write file: %w", err)
	}
	return p, nil
}

// ObjectExists accepts either a key or a path previously returned by PutObject.
func (c *LocalClient) ObjectExists(_ context.Context, key string) (bool, error) {
	p := key
	if !strings.HasPrefix(filepath.Clean(key), filepath.Clean(c.root)) {
		var err error
		if p, err = c.resolve(key); err != nil {
			return false, err
		}
	}
	_, err := os.Stat(p)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// resolve keeps keys inside root.
func (c *LocalClient) resolve(key string) (string, error) {
	clean := filepath.Clean("/" + filepath.ToSlash(key))
	if clean == "/" {
		return "", fmt.Errorf("invalid object key %q", key)
	}
	return filepath.Join(c.root, clean), nil
}

// ObjectKey builds the cache key for a document: <origin>/<display name>.
func ObjectKey(origin, displayName string) string {
	name := strings.TrimSpace(displayName)
	name = strings.ReplaceAll(name, "/", "_")
	return origin + "/" + name
}
