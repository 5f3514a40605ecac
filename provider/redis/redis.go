package redis

import (
	"context"
	"errors"
	"iter"
	"time"

	goredis "github.com/redis/go-redis/v9"

	pr "github.com/unkn0wn-root/redcache/provider"
)

var ErrNilClient = errors.New("redis provider: nil client")

// compareAndDelete removes KEYS[1] only while it still holds ARGV[1].
var compareAndDelete = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
else
	return 0
end
`)

const scanBatch = 200

type Redis struct {
	rdb         goredis.UniversalClient
	closeClient bool
}

var (
	_ pr.Store     = (*Redis)(nil)
	_ pr.HashStore = (*Redis)(nil)
)

type Config struct {
	Client      goredis.UniversalClient
	CloseClient bool // set true only if this provider exclusively owns the client
}

func New(cfg Config) (*Redis, error) {
	if cfg.Client == nil {
		return nil, ErrNilClient
	}
	return &Redis{rdb: cfg.Client, closeClient: cfg.CloseClient}, nil
}

// NewFromURL parses a redis:// or rediss:// URL and returns a provider that owns
// the created client.
func NewFromURL(url string) (*Redis, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return New(Config{Client: goredis.NewClient(opts), CloseClient: true})
}

// Client exposes the underlying client for commands outside the contract.
func (p *Redis) Client() goredis.UniversalClient { return p.rdb }

func (p *Redis) Get(ctx context.Context, key string) ([]byte, bool, error) {
	b, err := p.rdb.Get(ctx, key).Bytes()
	if err == goredis.Nil {
		return nil, false, nil // miss
	}
	if err != nil {
		return nil, false, err // transport/server error
	}
	return b, true, nil
}

func (p *Redis) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return p.rdb.Set(ctx, key, value, expiry(ttl)).Err()
}

func (p *Redis) SetNX(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	return p.rdb.SetNX(ctx, key, value, expiry(ttl)).Result()
}

func (p *Redis) IncrBy(ctx context.Context, key string, delta int64) (int64, error) {
	return p.rdb.IncrBy(ctx, key, delta).Result()
}

func (p *Redis) Del(ctx context.Context, keys ...string) (int64, error) {
	if len(keys) == 0 {
		return 0, nil
	}
	return p.rdb.Del(ctx, keys...).Result()
}

func (p *Redis) Exists(ctx context.Context, key string) (bool, error) {
	n, err := p.rdb.Exists(ctx, key).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (p *Redis) Scan(ctx context.Context, match string) iter.Seq2[string, error] {
	if match == "" {
		match = "*"
	}
	return func(yield func(string, error) bool) {
		it := p.rdb.Scan(ctx, 0, match, scanBatch).Iterator()
		for it.Next(ctx) {
			if !yield(it.Val(), nil) {
				return
			}
		}
		if err := it.Err(); err != nil {
			yield("", err)
		}
	}
}

func (p *Redis) CompareAndDelete(ctx context.Context, key string, value []byte) (bool, error) {
	n, err := compareAndDelete.Run(ctx, p.rdb, []string{key}, value).Int64()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (p *Redis) Len(ctx context.Context) (int64, error) {
	return p.rdb.DBSize(ctx).Result()
}

func (p *Redis) Flush(ctx context.Context) error {
	return p.rdb.FlushDB(ctx).Err()
}

func (p *Redis) HGet(ctx context.Context, resource, field string) ([]byte, bool, error) {
	b, err := p.rdb.HGet(ctx, resource, field).Bytes()
	if err == goredis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return b, true, nil
}

func (p *Redis) HSet(ctx context.Context, resource, field string, value []byte) error {
	return p.rdb.HSet(ctx, resource, field, value).Err()
}

func (p *Redis) HSetNX(ctx context.Context, resource, field string, value []byte) (bool, error) {
	return p.rdb.HSetNX(ctx, resource, field, value).Result()
}

func (p *Redis) HIncrBy(ctx context.Context, resource, field string, delta int64) (int64, error) {
	return p.rdb.HIncrBy(ctx, resource, field, delta).Result()
}

func (p *Redis) HDel(ctx context.Context, resource string, fields ...string) (int64, error) {
	return p.rdb.HDel(ctx, resource, fields...).Result()
}

func (p *Redis) HExists(ctx context.Context, resource, field string) (bool, error) {
	return p.rdb.HExists(ctx, resource, field).Result()
}

func (p *Redis) HLen(ctx context.Context, resource string) (int64, error) {
	return p.rdb.HLen(ctx, resource).Result()
}

func (p *Redis) HKeys(ctx context.Context, resource string) ([]string, error) {
	return p.rdb.HKeys(ctx, resource).Result()
}

// Close releases the underlying redis client only when this provider owns it.
// Safe to call multiple times; repeated calls become no-ops.
func (p *Redis) Close(context.Context) error {
	if p.closeClient {
		if err := p.rdb.Close(); err != nil && !errors.Is(err, goredis.ErrClosed) {
			return err
		}
	}
	return nil
}

// expiry maps "no expiry" onto go-redis' zero expiration; negative values would
// otherwise be read as KEEPTTL.
func expiry(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return 0
	}
	return ttl
}
