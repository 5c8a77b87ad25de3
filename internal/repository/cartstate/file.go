package cartstate

import (
	"context"
	"encoding/base32"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"storefront/internal/domain"
)

type fileRepo struct {
	dir string
}

// NewFile stores each key as <dir>/<encoded key>.json. The directory is
// created on demand.
func NewFile(dir string) (Repository, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("cart file dir required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cart dir: %w", err)
	}
	return &fileRepo{dir: dir}, nil
}

func (r *fileRepo) Load(_ context.Context, key string) ([]byte, error) {
	payload, err := os.ReadFile(r.path(key))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return payload, nil
}

// Save writes to a temp file in the same directory and renames it over the
// target so readers never observe a partial snapshot.
func (r *fileRepo) Save(_ context.Context, key string, payload []byte) error {
	tmp, err := os.CreateTemp(r.dir, ".cart-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(payload); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, r.path(key)); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}

func (r *fileRepo) Delete(_ context.Context, key string) error {
	err := os.Remove(r.path(key))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

func (r *fileRepo) path(key string) string {
	return filepath.Join(r.dir, fileName(key))
}

var keyEncoding = base32.HexEncoding.WithPadding(base32.NoPadding)

// fileName maps a storage key onto a file name. The encoding is reversible and
// lower-case only, so distinct keys never share a file, even on
// case-insensitive filesystems.
func fileName(key string) string {
	return strings.ToLower(keyEncoding.EncodeToString([]byte(key))) + ".json"
}
