package artifact

import (
	"context"
	"fmt"
	"path"
	"strings"
	"sync"

	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/docsearch/pkg/errors"
)

// Store persists artifacts by key. Get returns an error wrapping
// ErrArtifactNotFound for missing keys.
type Store interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Get(ctx context.Context, key string) ([]byte, error)
}

// Factory builds a Store from configuration.
type Factory func(ctx context.Context, cfg config.StoreConfig) (Store, error)

var (
	registryMu sync.RWMutex
	registry   = map[string]Factory{}
)

// Register makes a backend available under name.
func Register(name string, factory Factory) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" || factory == nil {
		return
	}
	registryMu.Lock()
	registry[key] = factory
	registryMu.Unlock()
}

// New builds the backend named by cfg.Type.
func New(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	key := strings.ToLower(strings.TrimSpace(cfg.Type))
	if key == "" {
		return nil, fmt.Errorf("store.type is required")
	}
	registryMu.RLock()
	factory := registry[key]
	registryMu.RUnlock()
	if factory == nil {
		return nil, fmt.Errorf("unsupported artifact store type: %s", cfg.Type)
	}
	return factory(ctx, cfg)
}

// Key is the storage key of a book's artifact.
func Key(book, name string) string {
	return path.Join(book, name)
}

// cleanKey rejects keys that could escape the store root.
func cleanKey(key string) (string, error) {
	if key == "" {
		return "", fmt.Errorf("artifact key is required")
	}
	cleaned := path.Clean("/" + strings.ReplaceAll(key, "\\", "/"))
	if cleaned != "/"+key {
		return "", fmt.Errorf("invalid artifact key %q", key)
	}
	return strings.TrimPrefix(cleaned, "/"), nil
}

func notFound(key string) error {
	return fmt.Errorf("%w: %s", apperrors.ErrArtifactNotFound, key)
}
