package secrets

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/99designs/keyring"
	"github.com/redis/go-redis/v9"
)

// EnvStore selects the backend: empty or "keyring" for the OS keychain, or a
// redis:// / rediss:// URL.
const EnvStore = "GEOPOST_SECRET_STORE"

// KeyringOpener opens the shared keychain lazily.
type KeyringOpener func() (keyring.Keyring, error)

// Open returns the configured Store for scope and a closer for it.
func Open(ctx context.Context, spec, scope string, openRing KeyringOpener) (Store, io.Closer, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		spec = strings.TrimSpace(os.Getenv(EnvStore))
	}

	switch {
	case spec == "" || strings.EqualFold(spec, "keyring"):
		ring, err := openRing()
		if err != nil {
			return nil, nil, err
		}
		return NewKeyringStore(ring, scope), nopCloser{}, nil

	case strings.HasPrefix(spec, "redis://") || strings.HasPrefix(spec, "rediss://"):
		opts, err := redis.ParseURL(spec)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid %s: %w", EnvStore, err)
		}
		store := NewRedisStore(redis.NewClient(opts), scope)
		if err := store.Ping(ctx); err != nil {
			_ = store.Close()
			return nil, nil, fmt.Errorf("secret store unreachable: %w", err)
		}
		return store, store, nil

	default:
		return nil, nil, fmt.Errorf("unsupported %s %q: use \"keyring\" or a redis:// URL", EnvStore, spec)
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
