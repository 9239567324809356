package secrets

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/99designs/keyring"
	"github.com/goccy/go-json"
)

const keyringPrefix = "secret:"

// KeyringStore keeps secrets in the OS keychain next to the profiles.
type KeyringStore struct {
	ring  keyring.Keyring
	scope string
	now   func() time.Time
}

// NewKeyringStore creates a store for one server scope.
func NewKeyringStore(ring keyring.Keyring, scope string) *KeyringStore {
	return &KeyringStore{ring: ring, scope: scope, now: time.Now}
}

func (s *KeyringStore) prefix() string {
	return keyringPrefix + s.scope + ":"
}

func (s *KeyringStore) key(postID int) string {
	return s.prefix() + strconv.Itoa(postID)
}

// Get returns the secret for postID or ErrNotFound.
func (s *KeyringStore) Get(_ context.Context, postID int) (Entry, error) {
	item, err := s.ring.Get(s.key(postID))
	if err != nil {
		if errors.Is(err, keyring.ErrKeyNotFound) {
			return Entry{}, ErrNotFound
		}
		return Entry{}, err
	}
	return decodeEntry(postID, item.Data)
}

// Put stores or replaces the secret for postID.
func (s *KeyringStore) Put(_ context.Context, postID int, secret string) error {
	data, err := json.Marshal(Entry{PostID: postID, Secret: secret, SavedAt: s.now().UTC()})
	if err != nil {
		return err
	}
	return s.ring.Set(keyring.Item{
		Key:   s.key(postID),
		Data:  data,
		Label: fmt.Sprintf("geopost post %d (%s)", postID, s.scope),
	})
}

// Delete forgets the secret for postID. Deleting a missing secret is not an error.
func (s *KeyringStore) Delete(_ context.Context, postID int) error {
	if err := s.ring.Remove(s.key(postID)); err != nil && !errors.Is(err, keyring.ErrKeyNotFound) {
		return err
	}
	return nil
}

// List returns every secret in this scope ordered by post ID.
func (s *KeyringStore) List(ctx context.Context) ([]Entry, error) {
	keys, err := s.ring.Keys()
	if err != nil {
		return nil, fmt.Errorf("failed to list keyring: %w", err)
	}
	entries := []Entry{}
	for _, key := range keys {
		raw, ok := strings.CutPrefix(key, s.prefix())
		if !ok {
			continue
		}
		id, ok := parsePostID(raw)
		if !ok {
			continue
		}
		entry, err := s.Get(ctx, id)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				continue
			}
			return nil, err
		}
		entries = append(entries, entry)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].PostID < entries[j].PostID })
	return entries, nil
}

// decodeEntry accepts the JSON record and, for hand-imported items, a bare secret.
func decodeEntry(postID int, data []byte) (Entry, error) {
	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil || entry.Secret == "" {
		if len(data) == 0 || data[0] == '{' {
			return Entry{}, fmt.Errorf("corrupt secret record for post %d", postID)
		}
		return Entry{PostID: postID, Secret: string(data)}, nil
	}
	entry.PostID = postID
	return entry, nil
}
