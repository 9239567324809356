package secrets

import (
	"context"
	"sort"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "geopost:secrets:"

// RedisStore keeps secrets in one Redis hash per server scope, so several
// machines (or a CI fleet) can share post ownership.
type RedisStore struct {
	client redis.UniversalClient
	key    string
	now    func() time.Time
}

// NewRedisStore creates a RedisStore for scope.
func NewRedisStore(client redis.UniversalClient, scope string) *RedisStore {
	return &RedisStore{client: client, key: redisKeyPrefix + scope, now: time.Now}
}

func (rs *RedisStore) Get(ctx context.Context, postID int) (Entry, error) {
	data, err := rs.client.HGet(ctx, rs.key, strconv.Itoa(postID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return Entry{}, ErrNotFound
		}
		return Entry{}, err
	}
	return decodeEntry(postID, data)
}

func (rs *RedisStore) Put(ctx context.Context, postID int, secret string) error {
	data, err := json.Marshal(Entry{PostID: postID, Secret: secret, SavedAt: rs.now().UTC()})
	if err != nil {
		return err
	}
	return rs.client.HSet(ctx, rs.key, strconv.Itoa(postID), data).Err()
}

func (rs *RedisStore) Delete(ctx context.Context, postID int) error {
	return rs.client.HDel(ctx, rs.key, strconv.Itoa(postID)).Err()
}

func (rs *RedisStore) List(ctx context.Context) ([]Entry, error) {
	all, err := rs.client.HGetAll(ctx, rs.key).Result()
	if err != nil {
		return nil, err
	}
	entries := make([]Entry, 0, len(all))
	for field, raw := range all {
		id, ok := parsePostID(field)
		if !ok {
			continue
		}
		entry, err := decodeEntry(id, []byte(raw))
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].PostID < entries[j].PostID })
	return entries, nil
}

// Ping verifies the server is reachable.
func (rs *RedisStore) Ping(ctx context.Context) error {
	return rs.client.Ping(ctx).Err()
}

// Close releases the underlying client.
func (rs *RedisStore) Close() error {
	return rs.client.Close()
}
