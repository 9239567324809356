package cmd

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/geopost/geopost-cli/internal/api"
	"github.com/geopost/geopost-cli/internal/config"
	"github.com/geopost/geopost-cli/internal/secrets"
)

// session bundles a client with the secret store it was wired to.
type session struct {
	client  *api.Client
	secrets secrets.Store
	closer  io.Closer
	auth    *api.BasicAuth
	workers int
}

func (s *session) Close() {
	s.client.Wait()
	if s.closer != nil {
		_ = s.closer.Close()
	}
}

type clientFactory struct {
	overrides config.Overrides
	userAgent string
}

func newClientFactory() *clientFactory {
	return &clientFactory{
		overrides: config.Overrides{
			Profile:        flags.Profile,
			BaseURL:        flags.BaseURL,
			ConnectTimeout: flags.ConnectTimeout,
			ReadTimeout:    flags.ReadTimeout,
			Workers:        flags.Workers,
		},
		userAgent: fmt.Sprintf("geopost-cli/%s", version),
	}
}

// openSession resolves configuration and builds a client. The secret store
// is opened on first use so read-only commands never unlock the keychain.
func openSession(ctx context.Context) (*session, error) {
	return newClientFactory().open(ctx)
}

func (f *clientFactory) open(ctx context.Context) (*session, error) {
	cfg, err := config.ResolveClientConfig(f.overrides)
	if err != nil {
		return nil, err
	}
	cfg.UserAgent = f.userAgent

	store := &lazyStore{open: func() (secrets.Store, io.Closer, error) {
		return secrets.Open(ctx, flags.SecretStore, secrets.Scope(cfg.BaseURL), config.OpenKeyring)
	}}
	adapter := secrets.Secrets{Store: store}
	cfg.Secrets = adapter
	cfg.SecretSaver = adapter

	sess := &session{client: api.New(cfg), secrets: store, closer: store, workers: cfg.Workers}
	if cfg.Username != "" && cfg.Password != "" {
		sess.auth = &api.BasicAuth{Username: cfg.Username, Password: cfg.Password}
	}
	return sess, nil
}

// lazyStore opens the configured backend once, on first use.
type lazyStore struct {
	open func() (secrets.Store, io.Closer, error)

	once   sync.Once
	store  secrets.Store
	closer io.Closer
	err    error
}

func (l *lazyStore) get() (secrets.Store, error) {
	l.once.Do(func() {
		l.store, l.closer, l.err = l.open()
	})
	return l.store, l.err
}

func (l *lazyStore) Get(ctx context.Context, postID int) (secrets.Entry, error) {
	s, err := l.get()
	if err != nil {
		return secrets.Entry{}, err
	}
	return s.Get(ctx, postID)
}

func (l *lazyStore) Put(ctx context.Context, postID int, secret string) error {
	s, err := l.get()
	if err != nil {
		return err
	}
	return s.Put(ctx, postID, secret)
}

func (l *lazyStore) Delete(ctx context.Context, postID int) error {
	s, err := l.get()
	if err != nil {
		return err
	}
	return s.Delete(ctx, postID)
}

func (l *lazyStore) List(ctx context.Context) ([]secrets.Entry, error) {
	s, err := l.get()
	if err != nil {
		return nil, err
	}
	return s.List(ctx)
}

func (l *lazyStore) Close() error {
	if l.closer == nil {
		return nil
	}
	return l.closer.Close()
}
