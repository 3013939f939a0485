package source

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/Aman-CERP/docsearch/pkg/document"
)

// redisScanCount is the COUNT hint passed to SCAN.
const redisScanCount = 100

// RedisProvider reads every hash whose key matches a glob pattern. Each
// hash field becomes a document field. Keys of other types fail the
// iteration.
type RedisProvider struct {
	client   redis.UniversalClient
	pattern  string
	keyField string
}

// NewRedisClient connects to addr and verifies the connection with PING.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return rdb, nil
}

// NewRedisProvider returns a provider over the hashes of client matching
// pattern. When keyField is set, the Redis key is stored in that field.
// The provider does not own client.
func NewRedisProvider(client redis.UniversalClient, pattern, keyField string) *RedisProvider {
	if pattern == "" {
		pattern = "*"
	}
	return &RedisProvider{client: client, pattern: pattern, keyField: keyField}
}

// Iterate starts a SCAN over the key space.
func (p *RedisProvider) Iterate(ctx context.Context) (document.Iterator, error) {
	return &redisIterator{
		ctx:      ctx,
		client:   p.client,
		scan:     p.client.Scan(ctx, 0, p.pattern, redisScanCount).Iterator(),
		keyField: p.keyField,
	}, nil
}

// Close is a no-op; a SCAN cursor holds no server resources.
func (p *RedisProvider) Close(document.Iterator) error { return nil }

type redisIterator struct {
	ctx      context.Context
	client   redis.UniversalClient
	scan     *redis.ScanIterator
	keyField string
	doc      document.Document
	err      error
}

func (it *redisIterator) Next() bool {
	if it.err != nil {
		return false
	}
	for it.scan.Next(it.ctx) {
		key := it.scan.Val()
		fields, err := it.client.HGetAll(it.ctx, key).Result()
		if err != nil {
			it.err = fmt.Errorf("read hash %s: %w", key, err)
			return false
		}
		// Deleted between SCAN and HGETALL.
		if len(fields) == 0 {
			continue
		}
		doc := document.FromMap(fields)
		if it.keyField != "" {
			doc.Set(it.keyField, key)
		}
		it.doc = doc
		return true
	}
	if err := it.scan.Err(); err != nil {
		it.err = fmt.Errorf("scan keys: %w", err)
	}
	return false
}

func (it *redisIterator) Document() document.Document { return it.doc }
func (it *redisIterator) Err() error                  { return it.err }
